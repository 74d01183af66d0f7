package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{userRepo: userRepo, jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry}
}

// Login verifies the credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entities.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, httperr.ErrUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, httperr.ErrUnauthorized("invalid credentials")
	}

	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &entities.LoginResponse{
		Token: token,
		User:  toUserResponse(user),
	}, nil
}

// Register creates a student account. Staff accounts are created through
// the admin endpoints.
func (s *AuthService) Register(ctx context.Context, req entities.RegisterRequest) (*entities.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, httperr.ErrValidation("a valid email is required")
	}
	if req.Name == "" {
		return nil, httperr.ErrValidation("name is required")
	}
	if len(req.Password) < 8 {
		return nil, httperr.ErrValidation("password must be at least 8 characters")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, httperr.ErrConflict("an account with this email already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, email, req.Name, req.Phone, "student", req.Password)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// CreateStaffUser lets admins add teacher or admin accounts.
func (s *AuthService) CreateStaffUser(ctx context.Context, req entities.RegisterRequest, role string) (*entities.UserResponse, error) {
	if role != "teacher" && role != "admin" {
		return nil, httperr.ErrValidation("role must be teacher or admin")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Name == "" || len(req.Password) < 8 {
		return nil, httperr.ErrValidation("email, name and a password of at least 8 characters are required")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, httperr.ErrConflict("an account with this email already exists")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err := s.userRepo.Create(ctx, email, req.Name, req.Phone, role, req.Password)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ListUsers returns accounts, optionally filtered by role.
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]entities.UserResponse, error) {
	users, err := s.userRepo.List(ctx, role)
	if err != nil {
		return nil, err
	}
	out := make([]entities.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, nil
}

func toUserResponse(u *db.User) entities.UserResponse {
	return entities.UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Phone: u.Phone,
		Role:  u.Role,
	}
}

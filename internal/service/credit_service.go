package service

import (
	"context"
	"database/sql"
	"errors"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"

	"go.uber.org/zap"
)

// CreditService exposes the per-user credit ledger. Balances only ever go
// down through bookings; replenishment is an admin action.
type CreditService struct {
	creditRepo repository.CreditRepository
	logger     *zap.Logger
}

func NewCreditService(creditRepo repository.CreditRepository, logger *zap.Logger) *CreditService {
	return &CreditService{creditRepo: creditRepo, logger: logger}
}

// HasAvailableCredit reports whether the summed remaining balance across all
// matching records covers at least one booking.
func (s *CreditService) HasAvailableCredit(ctx context.Context, userID, lessonTypeID int, creditType string) (bool, error) {
	total, err := s.creditRepo.SumRemaining(ctx, userID, lessonTypeID, creditType)
	if err != nil {
		return false, err
	}
	return total >= 1, nil
}

func (s *CreditService) ListUserCredits(ctx context.Context, userID int) ([]entities.CreditResponse, error) {
	credits, err := s.creditRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	responses := make([]entities.CreditResponse, 0, len(credits))
	for _, c := range credits {
		resp := entities.CreditResponse{
			ID:               c.ID,
			CreditType:       c.CreditType,
			CreditsRemaining: c.CreditsRemaining,
			CreditsTotal:     c.CreditsTotal,
		}
		if c.LessonTypeID.Valid {
			resp.LessonTypeID = int(c.LessonTypeID.Int64)
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// AddCredits is the admin replenishment path.
func (s *CreditService) AddCredits(ctx context.Context, req entities.AddCreditsRequest) (*db.UserCredit, error) {
	if req.Amount <= 0 {
		return nil, httperr.ErrValidation("amount must be positive")
	}
	if req.UserID == 0 {
		return nil, httperr.ErrValidation("user_id is required")
	}
	credit := &db.UserCredit{
		UserID:       req.UserID,
		CreditType:   req.CreditType,
		CreditsTotal: req.Amount,
	}
	if req.LessonTypeID != 0 {
		credit.LessonTypeID = sql.NullInt64{Int64: int64(req.LessonTypeID), Valid: true}
	}
	if err := s.creditRepo.Add(ctx, credit); err != nil {
		return nil, err
	}
	s.logger.Info("credits added",
		zap.Int("user_id", req.UserID),
		zap.Int("amount", req.Amount),
		zap.String("credit_type", req.CreditType),
	)
	return credit, nil
}

// ConsumeOne spends a single credit against a booking; the decrement and the
// booking flip share a transaction in the repository.
func (s *CreditService) ConsumeOne(ctx context.Context, userID, lessonTypeID, bookingID int) (int, error) {
	creditID, err := s.creditRepo.ConsumeOneForBooking(ctx, userID, lessonTypeID, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientCredits) {
			return 0, httperr.ErrConflict("insufficient credits")
		}
		return 0, err
	}
	return creditID, nil
}

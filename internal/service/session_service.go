package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService manages the shared-capacity Teori and Handledar sessions.
// Seat accounting lives in the repository as single transactions; this layer
// adds the policy checks and notifications.
type SessionService struct {
	sessionRepo repository.SessionRepository
	creditRepo  repository.CreditRepository
	sender      *SenderService
	logger      *zap.Logger
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	creditRepo repository.CreditRepository,
	sender *SenderService,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		creditRepo:  creditRepo,
		sender:      sender,
		logger:      logger,
	}
}

func (s *SessionService) ListUpcoming(ctx context.Context, sessionType string) ([]entities.SessionResponse, error) {
	if sessionType != "" && sessionType != db.SessionTeori && sessionType != db.SessionHandledar {
		return nil, httperr.ErrValidation("unknown session type")
	}
	sessions, err := s.sessionRepo.ListUpcoming(ctx, sessionType, time.Now())
	if err != nil {
		return nil, err
	}
	responses := make([]entities.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		responses = append(responses, toSessionResponse(sess))
	}
	return responses, nil
}

func (s *SessionService) Create(ctx context.Context, req entities.CreateSessionRequest) (*db.GroupSession, error) {
	if req.SessionType != db.SessionTeori && req.SessionType != db.SessionHandledar {
		return nil, httperr.ErrValidation("session_type must be teori or handledar")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, httperr.ErrValidation("end_time must be after start_time")
	}
	if req.MaxParticipants <= 0 {
		return nil, httperr.ErrValidation("max_participants must be positive")
	}
	session := &db.GroupSession{
		SessionType:     req.SessionType,
		Title:           req.Title,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Price:           req.Price,
		Active:          true,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info("group session created",
		zap.Int("session_id", session.ID),
		zap.String("type", session.SessionType),
		zap.Time("start", session.StartTime),
	)
	return session, nil
}

func (s *SessionService) Update(ctx context.Context, session *db.GroupSession) error {
	err := s.sessionRepo.Update(ctx, session)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return httperr.ErrNotFound("session not found")
	}
	return err
}

// ReserveSeat claims a participant spot and creates the group booking. The
// claim is a conditional increment, so a full session rejects without any
// write. Credits pay from the type's generic bucket.
func (s *SessionService) ReserveSeat(ctx context.Context, sessionID int, userID int, req entities.GroupBookingRequest) (*db.GroupBooking, error) {
	if req.StudentName == "" || req.StudentEmail == "" {
		return nil, httperr.ErrValidation("student_name and student_email are required")
	}
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, httperr.ErrNotFound("session not found")
		}
		return nil, err
	}
	if session.StartTime.Before(time.Now()) {
		return nil, httperr.ErrValidation("session has already started")
	}
	if session.SessionType == db.SessionHandledar && req.SupervisorName == "" {
		return nil, httperr.ErrValidation("supervisor_name is required for handledar sessions")
	}

	booking := &db.GroupBooking{
		Code:            uuid.NewString(),
		SessionID:       sessionID,
		StudentName:     req.StudentName,
		StudentEmail:    req.StudentEmail,
		StudentPhone:    req.StudentPhone,
		SupervisorName:  nullString(req.SupervisorName),
		SupervisorPhone: nullString(req.SupervisorPhone),
		Status:          db.StatusPending,
		PaymentStatus:   db.PaymentUnpaid,
		PaymentMethod:   req.PaymentMethod,
	}
	if userID != 0 {
		booking.UserID = sql.NullInt64{Int64: int64(userID), Valid: true}
	}

	err = s.sessionRepo.ReserveWithBooking(ctx, booking)
	if err != nil {
		if errors.Is(err, repository.ErrSessionFull) {
			return nil, httperr.ErrConflict("session is fully booked")
		}
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, httperr.ErrNotFound("session not found")
		}
		return nil, err
	}

	if req.PaymentMethod == db.MethodCredits && userID != 0 {
		_, err := s.creditRepo.ConsumeOneForGroupBooking(ctx, userID, session.SessionType, booking.ID)
		if err != nil {
			if cancelErr := s.sessionRepo.CancelBooking(ctx, booking.ID); cancelErr != nil {
				s.logger.Error("failed to release credit-less seat",
					zap.Int("group_booking_id", booking.ID), zap.Error(cancelErr))
			}
			if errors.Is(err, repository.ErrInsufficientCredits) {
				return nil, httperr.ErrConflict("insufficient credits for this session type")
			}
			return nil, err
		}
		booking.Status = db.StatusConfirmed
		booking.PaymentStatus = db.PaymentPaid
	}

	s.logger.Info("seat reserved",
		zap.Int("group_booking_id", booking.ID),
		zap.Int("session_id", sessionID),
		zap.String("status", booking.Status),
	)
	s.sender.SendGroupBookingEmail(ctx, booking, session, booking.Status)
	return booking, nil
}

// CancelSeat flips the booking and releases the seat in one transaction.
// Public access is keyed by the booking code, so callers cannot walk the
// sequential ids. A second cancel is rejected and must never decrement the
// counter again.
func (s *SessionService) CancelSeat(ctx context.Context, code string) error {
	booking, err := s.GetBookingByCode(ctx, code)
	if err != nil {
		return err
	}
	err = s.sessionRepo.CancelBooking(ctx, booking.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCancelled) {
			return httperr.ErrConflict("booking is already cancelled")
		}
		if errors.Is(err, repository.ErrGroupBookingNotFound) {
			return httperr.ErrNotFound("booking not found")
		}
		return err
	}
	s.logger.Info("seat released", zap.Int("group_booking_id", booking.ID))
	return nil
}

// MoveSeat transfers a participant to another session: the target must be in
// the future and have a free spot; source release and target claim happen in
// one transaction.
func (s *SessionService) MoveSeat(ctx context.Context, bookingID, toSessionID int) error {
	target, err := s.sessionRepo.GetByID(ctx, toSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return httperr.ErrNotFound("target session not found")
		}
		return err
	}
	if target.StartTime.Before(time.Now()) {
		return httperr.ErrValidation("target session is in the past")
	}

	err = s.sessionRepo.MoveBooking(ctx, bookingID, toSessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionFull) {
			return httperr.ErrConflict("target session is fully booked")
		}
		if errors.Is(err, repository.ErrGroupBookingNotFound) {
			return httperr.ErrNotFound("booking not found")
		}
		if errors.Is(err, repository.ErrSessionNotFound) {
			return httperr.ErrNotFound("target session not found")
		}
		return err
	}
	s.logger.Info("seat moved",
		zap.Int("group_booking_id", bookingID),
		zap.Int("to_session_id", toSessionID),
	)
	return nil
}

func (s *SessionService) GetBookingByCode(ctx context.Context, code string) (*db.GroupBooking, error) {
	if code == "" {
		return nil, httperr.ErrValidation("booking code is required")
	}
	booking, err := s.sessionRepo.GetBookingByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrGroupBookingNotFound) {
			return nil, httperr.ErrNotFound("booking not found")
		}
		return nil, err
	}
	return booking, nil
}

func (s *SessionService) ListBookings(ctx context.Context, sessionID int) ([]db.GroupBooking, error) {
	return s.sessionRepo.ListBookings(ctx, sessionID)
}

func toSessionResponse(sess db.GroupSession) entities.SessionResponse {
	return entities.SessionResponse{
		ID:              sess.ID,
		SessionType:     sess.SessionType,
		Title:           sess.Title,
		StartTime:       sess.StartTime,
		EndTime:         sess.EndTime,
		MaxParticipants: sess.MaxParticipants,
		SpotsTaken:      sess.CurrentParticipants,
		SpotsAvailable:  sess.MaxParticipants - sess.CurrentParticipants,
		Price:           sess.Price,
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

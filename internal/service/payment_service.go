package service

import (
	"context"
	"errors"
	"fmt"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"

	"go.uber.org/zap"
)

// PaymentService starts Swish/Qliro payments for bookings and applies the
// gateway callbacks. Its only real job on the callback side is locating the
// local row through the merchant reference and flipping its status; delivery
// of notifications is best-effort and never rolls a mutation back.
type PaymentService struct {
	bookingRepo  repository.BookingRepository
	sessionRepo  repository.SessionRepository
	scheduleRepo repository.ScheduleRepository
	swish        *SwishClient
	qliro        *QliroClient
	sender       *SenderService
	logger       *zap.Logger
}

func NewPaymentService(
	bookingRepo repository.BookingRepository,
	sessionRepo repository.SessionRepository,
	scheduleRepo repository.ScheduleRepository,
	swish *SwishClient,
	qliro *QliroClient,
	sender *SenderService,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		bookingRepo:  bookingRepo,
		sessionRepo:  sessionRepo,
		scheduleRepo: scheduleRepo,
		swish:        swish,
		qliro:        qliro,
		sender:       sender,
		logger:       logger,
	}
}

// StartBookingPayment creates a gateway order for a lesson booking and
// stores the merchant reference on the row.
func (s *PaymentService) StartBookingPayment(ctx context.Context, actorID int, role string, bookingID int, req entities.CreatePaymentRequest) (*entities.CreatePaymentResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, httperr.ErrNotFound("booking not found")
		}
		return nil, err
	}
	if err := requireOwnerOrStaff(booking.UserID, actorID, role); err != nil {
		return nil, err
	}
	if booking.PaymentStatus == db.PaymentPaid {
		return nil, httperr.ErrConflict("booking is already paid")
	}
	if booking.Status == db.StatusCancelled {
		return nil, httperr.ErrConflict("booking is cancelled")
	}

	lessonType, err := s.scheduleRepo.GetLessonType(ctx, booking.LessonTypeID)
	if err != nil {
		return nil, err
	}

	ref := FormatMerchantRef(RefBooking, booking.ID)
	resp, err := s.createGatewayOrder(ctx, ref, lessonType.Name, lessonType.Price, req)
	if err != nil {
		return nil, err
	}
	if err := s.bookingRepo.SetMerchantRef(ctx, booking.ID, ref, req.Method); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartGroupBookingPayment does the same for a Teori/Handledar seat. The
// seat is looked up by its booking code, the only handle guests hold.
func (s *PaymentService) StartGroupBookingPayment(ctx context.Context, code string, req entities.CreatePaymentRequest) (*entities.CreatePaymentResponse, error) {
	booking, err := s.sessionRepo.GetBookingByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrGroupBookingNotFound) {
			return nil, httperr.ErrNotFound("booking not found")
		}
		return nil, err
	}
	if booking.PaymentStatus == db.PaymentPaid {
		return nil, httperr.ErrConflict("booking is already paid")
	}
	if booking.Status == db.StatusCancelled {
		return nil, httperr.ErrConflict("booking is cancelled")
	}
	session, err := s.sessionRepo.GetByID(ctx, booking.SessionID)
	if err != nil {
		return nil, err
	}

	kind := RefTeori
	if session.SessionType == db.SessionHandledar {
		kind = RefHandledar
	}
	ref := FormatMerchantRef(kind, booking.ID)
	resp, err := s.createGatewayOrder(ctx, ref, session.Title, session.Price, req)
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.SetBookingMerchantRef(ctx, booking.ID, ref, req.Method); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *PaymentService) createGatewayOrder(ctx context.Context, ref, description string, amount int, req entities.CreatePaymentRequest) (*entities.CreatePaymentResponse, error) {
	switch req.Method {
	case db.MethodSwish:
		token, err := s.swish.CreatePaymentRequest(ctx, ref, amount, req.PhoneNumber, description)
		if err != nil {
			s.logger.Error("swish payment request failed", zap.String("merchant_ref", ref), zap.Error(err))
			return nil, fmt.Errorf("start swish payment: %w", err)
		}
		return &entities.CreatePaymentResponse{MerchantRef: ref, Method: db.MethodSwish, Token: token}, nil
	case db.MethodQliro:
		_, link, err := s.qliro.CreateCheckoutOrder(ctx, ref, description, amount)
		if err != nil {
			s.logger.Error("qliro order failed", zap.String("merchant_ref", ref), zap.Error(err))
			return nil, fmt.Errorf("start qliro payment: %w", err)
		}
		return &entities.CreatePaymentResponse{MerchantRef: ref, Method: db.MethodQliro, PaymentURL: link}, nil
	default:
		return nil, httperr.ErrValidation("method must be swish or qliro")
	}
}

// HandleSwishCallback applies a settled Swish payment request.
func (s *PaymentService) HandleSwishCallback(ctx context.Context, cb entities.SwishCallback) error {
	switch cb.Status {
	case "PAID":
		return s.applyPayment(ctx, cb.PayeePaymentRef, db.StatusConfirmed, db.PaymentPaid)
	case "DECLINED", "ERROR", "CANCELLED":
		s.logger.Info("swish payment not completed",
			zap.String("merchant_ref", cb.PayeePaymentRef),
			zap.String("status", cb.Status),
			zap.String("error_code", cb.ErrorCode),
		)
		return s.applyPayment(ctx, cb.PayeePaymentRef, db.StatusPending, db.PaymentUnpaid)
	default:
		s.logger.Warn("unhandled swish status", zap.String("status", cb.Status))
		return nil
	}
}

// HandleQliroCallback applies a Qliro order-management push.
func (s *PaymentService) HandleQliroCallback(ctx context.Context, cb entities.QliroCallback) error {
	switch cb.Status {
	case "Completed":
		return s.applyPayment(ctx, cb.MerchantReference, db.StatusConfirmed, db.PaymentPaid)
	case "Refunded":
		return s.applyPayment(ctx, cb.MerchantReference, db.StatusCancelled, db.PaymentRefunded)
	case "Refused", "Cancelled":
		return s.applyPayment(ctx, cb.MerchantReference, db.StatusPending, db.PaymentUnpaid)
	default:
		s.logger.Warn("unhandled qliro status", zap.String("status", cb.Status))
		return nil
	}
}

// applyPayment resolves the merchant reference to its local row and flips
// the statuses. On a completed payment the confirmation goes out after the
// write; a failed send is logged and swallowed.
func (s *PaymentService) applyPayment(ctx context.Context, ref, status, paymentStatus string) error {
	kind, _, err := ParseMerchantRef(ref)
	if err != nil {
		return httperr.ErrValidation(err.Error())
	}

	switch kind {
	case RefBooking:
		booking, err := s.bookingRepo.GetByMerchantRef(ctx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return httperr.ErrNotFound("no booking for merchant reference")
			}
			return err
		}
		if err := s.bookingRepo.UpdatePayment(ctx, booking.ID, status, paymentStatus); err != nil {
			return err
		}
		if paymentStatus == db.PaymentPaid {
			booking.Status = status
			booking.PaymentStatus = paymentStatus
			s.sender.SendBookingEmail(ctx, booking, "", "confirmed")
			s.sender.SendBookingSMS(ctx, booking, "confirmed")
		}
	case RefTeori, RefHandledar:
		booking, err := s.sessionRepo.GetBookingByMerchantRef(ctx, ref)
		if err != nil {
			if errors.Is(err, repository.ErrGroupBookingNotFound) {
				return httperr.ErrNotFound("no group booking for merchant reference")
			}
			return err
		}
		if status == db.StatusCancelled {
			// A refund cancellation must also release the seat, otherwise
			// the session stays artificially full.
			if err := s.sessionRepo.RefundBooking(ctx, booking.ID); err != nil {
				return err
			}
		} else if err := s.sessionRepo.UpdateBookingPayment(ctx, booking.ID, status, paymentStatus); err != nil {
			return err
		}
		if paymentStatus == db.PaymentPaid {
			session, err := s.sessionRepo.GetByID(ctx, booking.SessionID)
			if err == nil {
				booking.Status = status
				booking.PaymentStatus = paymentStatus
				s.sender.SendGroupBookingEmail(ctx, booking, session, "confirmed")
			}
		}
	}

	s.logger.Info("payment applied",
		zap.String("merchant_ref", ref),
		zap.String("status", status),
		zap.String("payment_status", paymentStatus),
	)
	return nil
}

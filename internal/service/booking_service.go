package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"
	"trafikskolan/internal/schedule"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService struct {
	bookingRepo  repository.BookingRepository
	scheduleRepo repository.ScheduleRepository
	creditRepo   repository.CreditRepository
	sender       *SenderService
	logger       *zap.Logger
	loc          *time.Location
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	scheduleRepo repository.ScheduleRepository,
	creditRepo repository.CreditRepository,
	sender *SenderService,
	logger *zap.Logger,
	loc *time.Location,
) *BookingService {
	return &BookingService{
		bookingRepo:  bookingRepo,
		scheduleRepo: scheduleRepo,
		creditRepo:   creditRepo,
		sender:       sender,
		logger:       logger,
		loc:          loc,
	}
}

// AvailableSlots generates the bookable slots for a date and lesson type:
// weekday templates cut to the lesson duration, minus existing bookings and
// blocked ranges.
func (s *BookingService) AvailableSlots(ctx context.Context, date time.Time, lessonTypeID int) (*entities.AvailableSlotsResponse, error) {
	lessonType, err := s.scheduleRepo.GetLessonType(ctx, lessonTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrLessonTypeNotFound) {
			return nil, httperr.ErrNotFound("lesson type not found")
		}
		return nil, err
	}

	templates, err := s.scheduleRepo.ListTemplates(ctx, int(date.In(s.loc).Weekday()), true)
	if err != nil {
		return nil, err
	}
	var windows []schedule.ClockRange
	for _, tpl := range templates {
		windows = append(windows, schedule.ClockRange{StartMin: tpl.StartMin, EndMin: tpl.EndMin})
	}

	dayStart, dayEnd := s.dayBounds(date)
	existing, err := s.bookingRepo.ListActiveBetween(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	var taken []schedule.TimeRange
	for _, b := range existing {
		taken = append(taken, schedule.TimeRange{Start: b.StartTime, End: b.EndTime})
	}

	blockedRows, err := s.scheduleRepo.ListBlocked(ctx, date)
	if err != nil {
		return nil, err
	}
	var blocked []schedule.TimeRange
	for _, row := range blockedRows {
		if !row.StartMin.Valid {
			blocked = append(blocked, schedule.TimeRange{Start: dayStart, End: dayEnd})
			continue
		}
		cr := schedule.ClockRange{StartMin: int(row.StartMin.Int64), EndMin: int(row.EndMin.Int64)}
		blocked = append(blocked, cr.At(date, s.loc))
	}

	duration := time.Duration(lessonType.DurationMinutes) * time.Minute
	slots := schedule.GenerateSlots(date, windows, duration, taken, blocked, s.loc)

	resp := &entities.AvailableSlotsResponse{
		Date:         date.In(s.loc).Format("2006-01-02"),
		LessonTypeID: lessonTypeID,
	}
	for _, slot := range slots {
		resp.Slots = append(resp.Slots, entities.AvailableSlot{StartTime: slot.Start, EndTime: slot.End})
	}
	return resp, nil
}

// CreateBooking validates the requested range, runs the overlap check against
// the day's non-cancelled bookings and inserts the new row. Paying with
// credits confirms the booking immediately; other methods leave a temp hold
// that the payment callback (or the purge job) resolves.
func (s *BookingService) CreateBooking(ctx context.Context, userID int, req entities.CreateBookingRequest) (*db.Booking, error) {
	proposed := schedule.TimeRange{Start: req.StartTime, End: req.EndTime}
	if !proposed.Valid() {
		return nil, httperr.ErrValidation("end_time must be after start_time")
	}
	if req.StartTime.Before(time.Now()) {
		return nil, httperr.ErrValidation("cannot book a time in the past")
	}
	lessonType, err := s.scheduleRepo.GetLessonType(ctx, req.LessonTypeID)
	if err != nil {
		if errors.Is(err, repository.ErrLessonTypeNotFound) {
			return nil, httperr.ErrNotFound("lesson type not found")
		}
		return nil, err
	}
	if !lessonType.Active {
		return nil, httperr.ErrValidation("lesson type is not bookable")
	}

	status := db.StatusTemp
	paymentStatus := db.PaymentUnpaid
	if req.PaymentMethod == db.MethodAtDesk {
		status = db.StatusConfirmed
	}

	booking := &db.Booking{
		Code:          uuid.NewString(),
		UserID:        userID,
		LessonTypeID:  req.LessonTypeID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		Status:        status,
		PaymentStatus: paymentStatus,
		PaymentMethod: req.PaymentMethod,
	}
	dayStart, dayEnd := s.dayBounds(proposed.Start)
	err = s.bookingRepo.CreateChecked(ctx, booking, dayStart, dayEnd, s.conflictCheck(userID, proposed, 0))
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == db.MethodCredits {
		creditID, err := s.creditRepo.ConsumeOneForBooking(ctx, userID, req.LessonTypeID, booking.ID)
		if err != nil {
			// The hold is useless without a credit behind it; release it.
			if cancelErr := s.bookingRepo.Cancel(ctx, booking.ID, "insufficient credits"); cancelErr != nil {
				s.logger.Error("failed to release credit-less booking hold",
					zap.Int("booking_id", booking.ID), zap.Error(cancelErr))
			}
			if errors.Is(err, repository.ErrInsufficientCredits) {
				return nil, httperr.ErrConflict("insufficient credits for this lesson type")
			}
			return nil, err
		}
		booking.Status = db.StatusConfirmed
		booking.PaymentStatus = db.PaymentPaid
		s.logger.Info("booking paid with credit",
			zap.Int("booking_id", booking.ID),
			zap.Int("credit_id", creditID),
			zap.Int("user_id", userID),
		)
		s.sender.SendBookingEmail(ctx, booking, lessonType.Name, "confirmed")
		s.sender.SendBookingSMS(ctx, booking, "confirmed")
	}

	s.logger.Info("booking created",
		zap.Int("booking_id", booking.ID),
		zap.Int("user_id", userID),
		zap.String("status", booking.Status),
		zap.Time("start", booking.StartTime),
	)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actorID int, role string, bookingID int) (*db.Booking, error) {
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
	return booking, nil
}

// GetBookingByCode is the public lookup: the uuid code acts as the access
// token, so no ownership check applies.
func (s *BookingService) GetBookingByCode(ctx context.Context, code string) (*db.Booking, error) {
	if code == "" {
		return nil, httperr.ErrValidation("booking code is required")
	}
	booking, err := s.bookingRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, httperr.ErrNotFound("booking not found")
		}
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int) ([]db.Booking, error) {
	return s.bookingRepo.ListByUser(ctx, userID)
}

func (s *BookingService) ListBookings(ctx context.Context, date, status string) ([]db.Booking, error) {
	return s.bookingRepo.List(ctx, date, status)
}

// Reschedule moves a booking to a new range after re-running the overlap
// check. The booking itself is excluded from the candidate set.
func (s *BookingService) Reschedule(ctx context.Context, actorID int, role string, bookingID int, req entities.RescheduleBookingRequest) (*db.Booking, error) {
	booking, err := s.GetBooking(ctx, actorID, role, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status == db.StatusCancelled || booking.Status == db.StatusCompleted {
		return nil, httperr.ErrConflict("booking can no longer be moved")
	}

	proposed := schedule.TimeRange{Start: req.StartTime, End: req.EndTime}
	if !proposed.Valid() {
		return nil, httperr.ErrValidation("end_time must be after start_time")
	}
	if req.StartTime.Before(time.Now()) {
		return nil, httperr.ErrValidation("cannot move a booking into the past")
	}
	dayStart, dayEnd := s.dayBounds(proposed.Start)
	err = s.bookingRepo.RescheduleChecked(ctx, bookingID, req.StartTime, req.EndTime, dayStart, dayEnd,
		s.conflictCheck(booking.UserID, proposed, bookingID))
	if err != nil {
		return nil, err
	}
	booking.StartTime = req.StartTime
	booking.EndTime = req.EndTime

	s.logger.Info("booking rescheduled",
		zap.Int("booking_id", bookingID),
		zap.Time("start", req.StartTime),
	)
	s.sender.SendBookingEmail(ctx, booking, "", "moved")
	return booking, nil
}

// Cancel flips the booking to cancelled. A second cancel is rejected before
// any write, so the operation is idempotent from the data's point of view.
// Credits spent on the booking are not refunded here.
func (s *BookingService) Cancel(ctx context.Context, actorID int, role string, bookingID int, reason string) error {
	booking, err := s.GetBooking(ctx, actorID, role, bookingID)
	if err != nil {
		return err
	}
	if booking.Status == db.StatusCancelled {
		return httperr.ErrConflict("booking is already cancelled")
	}
	if booking.Status == db.StatusCompleted {
		return httperr.ErrConflict("completed bookings cannot be cancelled")
	}

	if err := s.bookingRepo.Cancel(ctx, bookingID, reason); err != nil {
		return err
	}
	s.logger.Info("booking cancelled",
		zap.Int("booking_id", bookingID),
		zap.Int("actor_id", actorID),
		zap.String("reason", reason),
	)
	booking.Status = db.StatusCancelled
	s.sender.SendBookingEmail(ctx, booking, "", "cancelled")
	return nil
}

// conflictCheck builds the closure the repository runs inside the insert or
// reschedule transaction, so the conflict decision and the write cannot be
// split by a concurrent booking.
func (s *BookingService) conflictCheck(userID int, proposed schedule.TimeRange, excludeBookingID int) func([]db.Booking) error {
	return func(existing []db.Booking) error {
		var candidates []schedule.Candidate
		for _, b := range existing {
			if b.ID == excludeBookingID {
				continue
			}
			candidates = append(candidates, schedule.Candidate{
				BookingID: b.ID,
				UserID:    b.UserID,
				Range:     schedule.TimeRange{Start: b.StartTime, End: b.EndTime},
			})
		}

		conflict := schedule.CheckConflict(candidates, userID, proposed)
		switch conflict.Kind {
		case schedule.ConflictSameUser:
			return httperr.ErrConflict(fmt.Sprintf(
				"you already have a booking from %s to %s",
				conflict.With.Range.Start.In(s.loc).Format("15:04"),
				conflict.With.Range.End.In(s.loc).Format("15:04")))
		case schedule.ConflictOtherUser:
			return httperr.ErrConflict("the requested time is already booked")
		}
		return nil
	}
}

func (s *BookingService) dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.In(s.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

func requireOwnerOrStaff(ownerID, actorID int, role string) error {
	if actorID == ownerID || role == "admin" || role == "teacher" {
		return nil
	}
	return httperr.ErrForbidden("not allowed to access this booking")
}

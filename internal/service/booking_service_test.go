package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"

	"go.uber.org/zap"
)

func newBookingServiceForTest() (*BookingService, *fakeBookingRepo, *fakeCreditRepo) {
	bookingRepo := newFakeBookingRepo()
	creditRepo := &fakeCreditRepo{}
	svc := NewBookingService(bookingRepo, newFakeScheduleRepo(), creditRepo, newTestSender(), zap.NewNop(), time.UTC)
	return svc, bookingRepo, creditRepo
}

// lessonAt returns a future slot start on a fixed clock so tests never race
// the past-time check.
func lessonAt(hour, min int) time.Time {
	day := time.Now().UTC().AddDate(0, 0, 2)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, time.UTC)
}

func requireHTTPCode(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *httperr.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if httpErr.Code != code {
		t.Fatalf("expected status %d, got %d (%s)", code, httpErr.Code, httpErr.Message)
	}
}

func TestCreateBookingRejectsSameUserOverlap(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err = svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 30), EndTime: lessonAt(11, 15), PaymentMethod: db.MethodAtDesk,
	})
	requireHTTPCode(t, err, 409)
}

func TestCreateBookingRejectsOtherUserOverlap(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	if _, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := svc.CreateBooking(ctx, 2, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	requireHTTPCode(t, err, 409)
}

func TestGetBookingByCode(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if booking.Code == "" {
		t.Fatal("expected a booking code")
	}

	got, err := svc.GetBookingByCode(ctx, booking.Code)
	if err != nil {
		t.Fatalf("lookup by code: %v", err)
	}
	if got.ID != booking.ID {
		t.Fatalf("expected booking %d, got %d", booking.ID, got.ID)
	}

	_, err = svc.GetBookingByCode(ctx, "missing-code")
	requireHTTPCode(t, err, 404)
}

func TestCreateBookingAllowsBackToBack(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	if _, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	booking, err := svc.CreateBooking(ctx, 2, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 45), EndTime: lessonAt(11, 30), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
	if booking.Status != db.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", booking.Status)
	}
}

func TestCreateBookingRejectsInvalidRange(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()

	_, err := svc.CreateBooking(context.Background(), 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(11, 0), EndTime: lessonAt(10, 0), PaymentMethod: db.MethodAtDesk,
	})
	requireHTTPCode(t, err, 400)
}

func TestCreateBookingWithCreditsConfirms(t *testing.T) {
	svc, bookingRepo, creditRepo := newBookingServiceForTest()
	creditRepo.credits = []*db.UserCredit{
		{ID: 1, UserID: 1, LessonTypeID: sql.NullInt64{Int64: 1, Valid: true}, CreditsRemaining: 2, CreditsTotal: 5},
	}

	booking, err := svc.CreateBooking(context.Background(), 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(9, 0), EndTime: lessonAt(9, 45), PaymentMethod: db.MethodCredits,
	})
	if err != nil {
		t.Fatalf("credit booking: %v", err)
	}
	if booking.Status != db.StatusConfirmed || booking.PaymentStatus != db.PaymentPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", booking.Status, booking.PaymentStatus)
	}
	if creditRepo.credits[0].CreditsRemaining != 1 {
		t.Fatalf("expected 1 credit left, got %d", creditRepo.credits[0].CreditsRemaining)
	}
	if len(bookingRepo.bookings) != 1 {
		t.Fatalf("expected 1 stored booking, got %d", len(bookingRepo.bookings))
	}
}

func TestCreateBookingWithoutCreditsReleasesHold(t *testing.T) {
	svc, bookingRepo, _ := newBookingServiceForTest()

	_, err := svc.CreateBooking(context.Background(), 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(9, 0), EndTime: lessonAt(9, 45), PaymentMethod: db.MethodCredits,
	})
	requireHTTPCode(t, err, 409)

	for _, b := range bookingRepo.bookings {
		if b.Status != db.StatusCancelled {
			t.Fatalf("expected released hold to be cancelled, got %s", b.Status)
		}
	}
}

func TestCancelBookingIsRejectedSecondTime(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Cancel(ctx, 1, "student", booking.ID, "sick"); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	err = svc.Cancel(ctx, 1, "student", booking.ID, "sick again")
	requireHTTPCode(t, err, 409)
}

func TestCancelledSlotIsBookableAgain(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Cancel(ctx, 1, "student", booking.ID, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.CreateBooking(ctx, 2, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	}); err != nil {
		t.Fatalf("rebooking cancelled slot: %v", err)
	}
}

func TestRescheduleExcludesOwnBookingFromOverlapCheck(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	moved, err := svc.Reschedule(ctx, 1, "student", booking.ID, entities.RescheduleBookingRequest{
		StartTime: lessonAt(10, 15), EndTime: lessonAt(11, 0),
	})
	if err != nil {
		t.Fatalf("reschedule into own slot: %v", err)
	}
	if !moved.StartTime.Equal(lessonAt(10, 15)) {
		t.Fatalf("start not updated: %v", moved.StartTime)
	}
}

func TestGetBookingEnforcesOwnership(t *testing.T) {
	svc, _, _ := newBookingServiceForTest()
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, 1, entities.CreateBookingRequest{
		LessonTypeID: 1, StartTime: lessonAt(10, 0), EndTime: lessonAt(10, 45), PaymentMethod: db.MethodAtDesk,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetBooking(ctx, 2, "student", booking.ID); err == nil {
		t.Fatal("expected forbidden for another student")
	}
	if _, err := svc.GetBooking(ctx, 99, "teacher", booking.ID); err != nil {
		t.Fatalf("teacher should see any booking: %v", err)
	}
}

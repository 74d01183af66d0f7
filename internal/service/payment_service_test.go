package service

import (
	"context"
	"testing"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"

	"go.uber.org/zap"
)

func newPaymentServiceForTest() (*PaymentService, *fakeBookingRepo, *fakeSessionRepo) {
	bookingRepo := newFakeBookingRepo()
	sessionRepo := newFakeSessionRepo()
	svc := NewPaymentService(bookingRepo, sessionRepo, newFakeScheduleRepo(), nil, nil, newTestSender(), zap.NewNop())
	return svc, bookingRepo, sessionRepo
}

func reserveGroupSeat(t *testing.T, sessionRepo *fakeSessionRepo, maxParticipants int) (*db.GroupSession, *db.GroupBooking) {
	t.Helper()
	ctx := context.Background()
	session := &db.GroupSession{
		SessionType:     db.SessionTeori,
		Title:           "Teorilektion",
		StartTime:       time.Now().Add(72 * time.Hour),
		EndTime:         time.Now().Add(74 * time.Hour),
		MaxParticipants: maxParticipants,
		Active:          true,
	}
	if err := sessionRepo.Create(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	booking := &db.GroupBooking{
		Code:          "code-anna",
		SessionID:     session.ID,
		StudentName:   "Anna",
		StudentEmail:  "anna@example.com",
		Status:        db.StatusPending,
		PaymentStatus: db.PaymentUnpaid,
	}
	if err := sessionRepo.ReserveWithBooking(ctx, booking); err != nil {
		t.Fatalf("reserve seat: %v", err)
	}
	return session, booking
}

func TestQliroRefundReleasesGroupSeat(t *testing.T) {
	svc, _, sessionRepo := newPaymentServiceForTest()
	ctx := context.Background()
	session, booking := reserveGroupSeat(t, sessionRepo, 1)

	ref := FormatMerchantRef(RefTeori, booking.ID)
	if err := sessionRepo.SetBookingMerchantRef(ctx, booking.ID, ref, db.MethodQliro); err != nil {
		t.Fatalf("set merchant ref: %v", err)
	}

	err := svc.HandleQliroCallback(ctx, entities.QliroCallback{MerchantReference: ref, Status: "Refunded"})
	if err != nil {
		t.Fatalf("refund callback: %v", err)
	}

	gb := sessionRepo.bookings[booking.ID]
	if gb.Status != db.StatusCancelled || gb.PaymentStatus != db.PaymentRefunded {
		t.Fatalf("expected cancelled/refunded, got %s/%s", gb.Status, gb.PaymentStatus)
	}
	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 0 {
		t.Fatalf("refund must release the seat, got %d participants", got)
	}

	// The freed seat must be bookable again.
	rebooking := &db.GroupBooking{
		Code:          "code-bjorn",
		SessionID:     session.ID,
		StudentName:   "Björn",
		StudentEmail:  "bjorn@example.com",
		Status:        db.StatusPending,
		PaymentStatus: db.PaymentUnpaid,
	}
	if err := sessionRepo.ReserveWithBooking(ctx, rebooking); err != nil {
		t.Fatalf("rebooking refunded seat: %v", err)
	}
}

func TestQliroRefundAfterCancelDoesNotDoubleRelease(t *testing.T) {
	svc, _, sessionRepo := newPaymentServiceForTest()
	ctx := context.Background()
	session, booking := reserveGroupSeat(t, sessionRepo, 2)

	other := &db.GroupBooking{
		Code:          "code-cecilia",
		SessionID:     session.ID,
		StudentName:   "Cecilia",
		StudentEmail:  "cecilia@example.com",
		Status:        db.StatusPending,
		PaymentStatus: db.PaymentUnpaid,
	}
	if err := sessionRepo.ReserveWithBooking(ctx, other); err != nil {
		t.Fatalf("reserve second seat: %v", err)
	}

	ref := FormatMerchantRef(RefTeori, booking.ID)
	if err := sessionRepo.SetBookingMerchantRef(ctx, booking.ID, ref, db.MethodQliro); err != nil {
		t.Fatalf("set merchant ref: %v", err)
	}
	if err := sessionRepo.CancelBooking(ctx, booking.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	err := svc.HandleQliroCallback(ctx, entities.QliroCallback{MerchantReference: ref, Status: "Refunded"})
	if err != nil {
		t.Fatalf("refund callback: %v", err)
	}

	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 1 {
		t.Fatalf("expected 1 participant after refund of cancelled booking, got %d", got)
	}
	if got := sessionRepo.bookings[booking.ID].PaymentStatus; got != db.PaymentRefunded {
		t.Fatalf("expected refunded payment status, got %s", got)
	}
}

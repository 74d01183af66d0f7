package service

import (
	"context"
	"testing"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"

	"go.uber.org/zap"
)

func newSessionServiceForTest() (*SessionService, *fakeSessionRepo, *fakeCreditRepo) {
	sessionRepo := newFakeSessionRepo()
	creditRepo := &fakeCreditRepo{}
	svc := NewSessionService(sessionRepo, creditRepo, newTestSender(), zap.NewNop())
	return svc, sessionRepo, creditRepo
}

func addSession(t *testing.T, svc *SessionService, sessionType string, maxParticipants int) *db.GroupSession {
	t.Helper()
	start := time.Now().Add(72 * time.Hour)
	session, err := svc.Create(context.Background(), entities.CreateSessionRequest{
		SessionType:     sessionType,
		Title:           "Teorilektion",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		MaxParticipants: maxParticipants,
		Price:           50000,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func seatRequest(name string) entities.GroupBookingRequest {
	return entities.GroupBookingRequest{
		StudentName:   name,
		StudentEmail:  name + "@example.com",
		PaymentMethod: db.MethodAtDesk,
	}
}

func TestReserveSeatRejectsWhenFull(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 2)
	ctx := context.Background()

	if _, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("anna")); err != nil {
		t.Fatalf("first seat: %v", err)
	}
	if _, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("bjorn")); err != nil {
		t.Fatalf("second seat: %v", err)
	}

	_, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("cecilia"))
	requireHTTPCode(t, err, 409)

	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 2 {
		t.Fatalf("counter should stay at capacity, got %d", got)
	}
}

func TestCancelSeatFreesSpotForRebooking(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 1)
	ctx := context.Background()

	booking, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("bjorn")); err == nil {
		t.Fatal("expected full session")
	}

	if err := svc.CancelSeat(ctx, booking.Code); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 0 {
		t.Fatalf("expected freed counter, got %d", got)
	}

	if _, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("bjorn")); err != nil {
		t.Fatalf("rebooking freed seat: %v", err)
	}
}

func TestCancelSeatTwiceDoesNotDoubleRelease(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 3)
	ctx := context.Background()

	first, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("bjorn")); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.CancelSeat(ctx, first.Code); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	err = svc.CancelSeat(ctx, first.Code)
	requireHTTPCode(t, err, 409)

	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 1 {
		t.Fatalf("expected 1 participant after repeated cancel, got %d", got)
	}
}

func TestGroupBookingLookupIsKeyedByCode(t *testing.T) {
	svc, _, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 2)
	ctx := context.Background()

	booking, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
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

	_, err = svc.GetBookingByCode(ctx, "not-a-real-code")
	requireHTTPCode(t, err, 404)
	err = svc.CancelSeat(ctx, "not-a-real-code")
	requireHTTPCode(t, err, 404)
}

func TestReserveHandledarRequiresSupervisor(t *testing.T) {
	svc, _, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionHandledar, 5)

	_, err := svc.ReserveSeat(context.Background(), session.ID, 0, seatRequest("anna"))
	requireHTTPCode(t, err, 400)

	req := seatRequest("anna")
	req.SupervisorName = "Karin"
	if _, err := svc.ReserveSeat(context.Background(), session.ID, 0, req); err != nil {
		t.Fatalf("with supervisor: %v", err)
	}
}

func TestMoveSeatRejectsPastTarget(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 2)
	ctx := context.Background()

	booking, err := svc.ReserveSeat(ctx, session.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	past := &db.GroupSession{
		SessionType:     db.SessionTeori,
		Title:           "Gammal lektion",
		StartTime:       time.Now().Add(-24 * time.Hour),
		EndTime:         time.Now().Add(-22 * time.Hour),
		MaxParticipants: 5,
		Active:          true,
	}
	if err := sessionRepo.Create(ctx, past); err != nil {
		t.Fatalf("seed past session: %v", err)
	}

	err = svc.MoveSeat(ctx, booking.ID, past.ID)
	requireHTTPCode(t, err, 400)
}

func TestMoveSeatTransfersCounter(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	source := addSession(t, svc, db.SessionTeori, 2)
	target := addSession(t, svc, db.SessionTeori, 2)
	ctx := context.Background()

	booking, err := svc.ReserveSeat(ctx, source.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := svc.MoveSeat(ctx, booking.ID, target.ID); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := sessionRepo.sessions[source.ID].CurrentParticipants; got != 0 {
		t.Fatalf("source not released, got %d", got)
	}
	if got := sessionRepo.sessions[target.ID].CurrentParticipants; got != 1 {
		t.Fatalf("target not claimed, got %d", got)
	}
}

func TestMoveSeatRejectsFullTarget(t *testing.T) {
	svc, _, _ := newSessionServiceForTest()
	source := addSession(t, svc, db.SessionTeori, 2)
	target := addSession(t, svc, db.SessionTeori, 1)
	ctx := context.Background()

	booking, err := svc.ReserveSeat(ctx, source.ID, 0, seatRequest("anna"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ReserveSeat(ctx, target.ID, 0, seatRequest("bjorn")); err != nil {
		t.Fatalf("fill target: %v", err)
	}

	err = svc.MoveSeat(ctx, booking.ID, target.ID)
	requireHTTPCode(t, err, 409)
}

func TestReserveSeatWithCreditsConfirms(t *testing.T) {
	svc, _, creditRepo := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 2)
	creditRepo.credits = []*db.UserCredit{
		{ID: 1, UserID: 1, CreditType: db.SessionTeori, CreditsRemaining: 1, CreditsTotal: 1},
	}

	req := seatRequest("anna")
	req.PaymentMethod = db.MethodCredits
	booking, err := svc.ReserveSeat(context.Background(), session.ID, 1, req)
	if err != nil {
		t.Fatalf("reserve with credit: %v", err)
	}
	if booking.Status != db.StatusConfirmed || booking.PaymentStatus != db.PaymentPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", booking.Status, booking.PaymentStatus)
	}
	if creditRepo.credits[0].CreditsRemaining != 0 {
		t.Fatalf("credit not consumed, got %d", creditRepo.credits[0].CreditsRemaining)
	}
}

func TestReserveSeatWithoutCreditsReleasesSeat(t *testing.T) {
	svc, sessionRepo, _ := newSessionServiceForTest()
	session := addSession(t, svc, db.SessionTeori, 2)

	req := seatRequest("anna")
	req.PaymentMethod = db.MethodCredits
	_, err := svc.ReserveSeat(context.Background(), session.ID, 1, req)
	requireHTTPCode(t, err, 409)

	if got := sessionRepo.sessions[session.ID].CurrentParticipants; got != 0 {
		t.Fatalf("seat should be released on failed credit spend, got %d", got)
	}
}

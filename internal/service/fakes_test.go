package service

import (
	"context"
	"errors"
	"time"

	"trafikskolan/internal/config"
	"trafikskolan/internal/db"
	"trafikskolan/internal/repository"

	"go.uber.org/zap"
)

// In-memory repository fakes backing the service tests.

type fakeBookingRepo struct {
	bookings map[int]*db.Booking
	nextID   int
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[int]*db.Booking), nextID: 1}
}

func (f *fakeBookingRepo) CreateChecked(ctx context.Context, b *db.Booking, from, to time.Time, check func(existing []db.Booking) error) error {
	existing, _ := f.ListActiveBetween(ctx, from, to)
	if err := check(existing); err != nil {
		return err
	}
	b.ID = f.nextID
	f.nextID++
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	stored := *b
	f.bookings[b.ID] = &stored
	return nil
}

func (f *fakeBookingRepo) RescheduleChecked(ctx context.Context, id int, start, end, from, to time.Time, check func(existing []db.Booking) error) error {
	existing, _ := f.ListActiveBetween(ctx, from, to)
	if err := check(existing); err != nil {
		return err
	}
	b, ok := f.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.StartTime = start
	b.EndTime = end
	return nil
}

func (f *fakeBookingRepo) GetByID(ctx context.Context, id int) (*db.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingRepo) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	for _, b := range f.bookings {
		if b.Code == code {
			copied := *b
			return &copied, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (f *fakeBookingRepo) ListActiveBetween(ctx context.Context, from, to time.Time) ([]db.Booking, error) {
	var out []db.Booking
	for _, b := range f.bookings {
		if b.Status == db.StatusCancelled || b.Status == db.StatusCompleted {
			continue
		}
		if b.StartTime.Before(to) && b.EndTime.After(from) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) ListByUser(ctx context.Context, userID int) ([]db.Booking, error) {
	var out []db.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) List(ctx context.Context, date, status string) ([]db.Booking, error) {
	var out []db.Booking
	for _, b := range f.bookings {
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (f *fakeBookingRepo) Cancel(ctx context.Context, id int, reason string) error {
	b, ok := f.bookings[id]
	if !ok || b.Status == db.StatusCancelled {
		return repository.ErrBookingNotFound
	}
	b.Status = db.StatusCancelled
	if reason != "" {
		b.CancelReason.String = reason
		b.CancelReason.Valid = true
	}
	return nil
}

func (f *fakeBookingRepo) UpdatePayment(ctx context.Context, id int, status, paymentStatus string) error {
	b, ok := f.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.Status = status
	b.PaymentStatus = paymentStatus
	return nil
}

func (f *fakeBookingRepo) SetMerchantRef(ctx context.Context, id int, ref, method string) error {
	b, ok := f.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	b.MerchantRef.String = ref
	b.MerchantRef.Valid = true
	b.PaymentMethod = method
	b.PaymentStatus = db.PaymentPending
	return nil
}

func (f *fakeBookingRepo) GetByMerchantRef(ctx context.Context, ref string) (*db.Booking, error) {
	for _, b := range f.bookings {
		if b.MerchantRef.Valid && b.MerchantRef.String == ref {
			copied := *b
			return &copied, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

type fakeCreditRepo struct {
	credits []*db.UserCredit
}

func (f *fakeCreditRepo) SumRemaining(ctx context.Context, userID, lessonTypeID int, creditType string) (int, error) {
	total := 0
	for _, c := range f.credits {
		if c.UserID == userID && f.matches(c, lessonTypeID, creditType) {
			total += c.CreditsRemaining
		}
	}
	return total, nil
}

func (f *fakeCreditRepo) matches(c *db.UserCredit, lessonTypeID int, creditType string) bool {
	if lessonTypeID != 0 {
		return c.LessonTypeID.Valid && int(c.LessonTypeID.Int64) == lessonTypeID
	}
	return !c.LessonTypeID.Valid && c.CreditType == creditType
}

func (f *fakeCreditRepo) consume(userID, lessonTypeID int, creditType string) (int, error) {
	for _, c := range f.credits {
		if c.UserID == userID && f.matches(c, lessonTypeID, creditType) && c.CreditsRemaining > 0 {
			c.CreditsRemaining--
			return c.ID, nil
		}
	}
	return 0, repository.ErrInsufficientCredits
}

func (f *fakeCreditRepo) ConsumeOneForBooking(ctx context.Context, userID, lessonTypeID, bookingID int) (int, error) {
	return f.consume(userID, lessonTypeID, "")
}

func (f *fakeCreditRepo) ConsumeOneForGroupBooking(ctx context.Context, userID int, creditType string, groupBookingID int) (int, error) {
	return f.consume(userID, 0, creditType)
}

func (f *fakeCreditRepo) ListByUser(ctx context.Context, userID int) ([]db.UserCredit, error) {
	var out []db.UserCredit
	for _, c := range f.credits {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCreditRepo) Add(ctx context.Context, credit *db.UserCredit) error {
	credit.ID = len(f.credits) + 1
	credit.CreditsRemaining = credit.CreditsTotal
	stored := *credit
	f.credits = append(f.credits, &stored)
	return nil
}

type fakeSessionRepo struct {
	sessions map[int]*db.GroupSession
	bookings map[int]*db.GroupBooking
	nextID   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[int]*db.GroupSession),
		bookings: make(map[int]*db.GroupBooking),
		nextID:   1,
	}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *db.GroupSession) error {
	s.ID = f.nextID
	f.nextID++
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) GetByID(ctx context.Context, id int) (*db.GroupSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionRepo) ListUpcoming(ctx context.Context, sessionType string, from time.Time) ([]db.GroupSession, error) {
	var out []db.GroupSession
	for _, s := range f.sessions {
		if !s.Active || s.StartTime.Before(from) {
			continue
		}
		if sessionType != "" && s.SessionType != sessionType {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSessionRepo) Update(ctx context.Context, s *db.GroupSession) error {
	existing, ok := f.sessions[s.ID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.CurrentParticipants = existing.CurrentParticipants
	stored := *s
	f.sessions[s.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) ReserveWithBooking(ctx context.Context, gb *db.GroupBooking) error {
	s, ok := f.sessions[gb.SessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if s.CurrentParticipants >= s.MaxParticipants {
		return repository.ErrSessionFull
	}
	s.CurrentParticipants++
	gb.ID = f.nextID
	f.nextID++
	gb.CreatedAt = time.Now()
	stored := *gb
	f.bookings[gb.ID] = &stored
	return nil
}

func (f *fakeSessionRepo) CancelBooking(ctx context.Context, bookingID int) error {
	gb, ok := f.bookings[bookingID]
	if !ok {
		return repository.ErrGroupBookingNotFound
	}
	if gb.Status == db.StatusCancelled {
		return repository.ErrAlreadyCancelled
	}
	gb.Status = db.StatusCancelled
	if s, ok := f.sessions[gb.SessionID]; ok && s.CurrentParticipants > 0 {
		s.CurrentParticipants--
	}
	return nil
}

func (f *fakeSessionRepo) RefundBooking(ctx context.Context, bookingID int) error {
	gb, ok := f.bookings[bookingID]
	if !ok {
		return repository.ErrGroupBookingNotFound
	}
	if gb.Status != db.StatusCancelled {
		gb.Status = db.StatusCancelled
		if s, ok := f.sessions[gb.SessionID]; ok && s.CurrentParticipants > 0 {
			s.CurrentParticipants--
		}
	}
	gb.PaymentStatus = db.PaymentRefunded
	return nil
}

func (f *fakeSessionRepo) MoveBooking(ctx context.Context, bookingID, toSessionID int) error {
	gb, ok := f.bookings[bookingID]
	if !ok || gb.Status == db.StatusCancelled {
		return repository.ErrGroupBookingNotFound
	}
	target, ok := f.sessions[toSessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	if target.CurrentParticipants >= target.MaxParticipants {
		return repository.ErrSessionFull
	}
	target.CurrentParticipants++
	if source, ok := f.sessions[gb.SessionID]; ok && source.CurrentParticipants > 0 {
		source.CurrentParticipants--
	}
	gb.SessionID = toSessionID
	return nil
}

func (f *fakeSessionRepo) GetBookingByCode(ctx context.Context, code string) (*db.GroupBooking, error) {
	for _, gb := range f.bookings {
		if gb.Code == code {
			copied := *gb
			return &copied, nil
		}
	}
	return nil, repository.ErrGroupBookingNotFound
}

func (f *fakeSessionRepo) GetBookingByMerchantRef(ctx context.Context, ref string) (*db.GroupBooking, error) {
	for _, gb := range f.bookings {
		if gb.MerchantRef.Valid && gb.MerchantRef.String == ref {
			copied := *gb
			return &copied, nil
		}
	}
	return nil, repository.ErrGroupBookingNotFound
}

func (f *fakeSessionRepo) ListBookings(ctx context.Context, sessionID int) ([]db.GroupBooking, error) {
	var out []db.GroupBooking
	for _, gb := range f.bookings {
		if gb.SessionID == sessionID {
			out = append(out, *gb)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) SetBookingMerchantRef(ctx context.Context, id int, ref, method string) error {
	gb, ok := f.bookings[id]
	if !ok {
		return repository.ErrGroupBookingNotFound
	}
	gb.MerchantRef.String = ref
	gb.MerchantRef.Valid = true
	gb.PaymentMethod = method
	gb.PaymentStatus = db.PaymentPending
	return nil
}

func (f *fakeSessionRepo) UpdateBookingPayment(ctx context.Context, id int, status, paymentStatus string) error {
	gb, ok := f.bookings[id]
	if !ok {
		return repository.ErrGroupBookingNotFound
	}
	gb.Status = status
	gb.PaymentStatus = paymentStatus
	return nil
}

type fakeScheduleRepo struct {
	templates   []db.SlotTemplate
	blocked     []db.BlockedSlot
	lessonTypes map[int]*db.LessonType
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		lessonTypes: map[int]*db.LessonType{
			1: {ID: 1, Name: "Körlektion 45 min", DurationMinutes: 45, Price: 69500, Active: true},
		},
	}
}

func (f *fakeScheduleRepo) ListTemplates(ctx context.Context, weekday int, activeOnly bool) ([]db.SlotTemplate, error) {
	var out []db.SlotTemplate
	for _, tpl := range f.templates {
		if weekday >= 0 && tpl.Weekday != weekday {
			continue
		}
		if activeOnly && !tpl.Active {
			continue
		}
		out = append(out, tpl)
	}
	return out, nil
}

func (f *fakeScheduleRepo) CreateTemplate(ctx context.Context, tpl *db.SlotTemplate) error {
	tpl.ID = len(f.templates) + 1
	f.templates = append(f.templates, *tpl)
	return nil
}

func (f *fakeScheduleRepo) UpdateTemplate(ctx context.Context, tpl *db.SlotTemplate) error {
	for i := range f.templates {
		if f.templates[i].ID == tpl.ID {
			f.templates[i] = *tpl
			return nil
		}
	}
	return repository.ErrTemplateNotFound
}

func (f *fakeScheduleRepo) DeleteTemplate(ctx context.Context, id int) error {
	for i := range f.templates {
		if f.templates[i].ID == id {
			f.templates = append(f.templates[:i], f.templates[i+1:]...)
			return nil
		}
	}
	return repository.ErrTemplateNotFound
}

func (f *fakeScheduleRepo) ListBlocked(ctx context.Context, date time.Time) ([]db.BlockedSlot, error) {
	var out []db.BlockedSlot
	for _, b := range f.blocked {
		if b.Date.Year() == date.Year() && b.Date.YearDay() == date.YearDay() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) CreateBlocked(ctx context.Context, blocked *db.BlockedSlot) error {
	blocked.ID = len(f.blocked) + 1
	f.blocked = append(f.blocked, *blocked)
	return nil
}

func (f *fakeScheduleRepo) DeleteBlocked(ctx context.Context, id int) error {
	for i := range f.blocked {
		if f.blocked[i].ID == id {
			f.blocked = append(f.blocked[:i], f.blocked[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeScheduleRepo) GetLessonType(ctx context.Context, id int) (*db.LessonType, error) {
	lt, ok := f.lessonTypes[id]
	if !ok {
		return nil, repository.ErrLessonTypeNotFound
	}
	copied := *lt
	return &copied, nil
}

func (f *fakeScheduleRepo) ListLessonTypes(ctx context.Context, activeOnly bool) ([]db.LessonType, error) {
	var out []db.LessonType
	for _, lt := range f.lessonTypes {
		if activeOnly && !lt.Active {
			continue
		}
		out = append(out, *lt)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[int]*db.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]*db.User{
		1: {ID: 1, Email: "anna@example.com", Name: "Anna", Role: "student"},
		2: {ID: 2, Email: "bjorn@example.com", Name: "Björn", Role: "student"},
	}}
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (*db.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, email, name, phone, role, password string) (*db.User, error) {
	if password == "" {
		return nil, errors.New("password required")
	}
	u := &db.User{ID: len(f.users) + 1, Email: email, Name: name, Phone: phone, Role: role}
	f.users[u.ID] = u
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) List(ctx context.Context, role string) ([]db.User, error) {
	var out []db.User
	for _, u := range f.users {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

// newTestSender builds a sender with no providers configured, so every send
// degrades to a log line.
func newTestSender() *SenderService {
	return NewSenderService(&config.Config{SendgridFromName: "Testskolan"}, newFakeUserRepo(), zap.NewNop())
}

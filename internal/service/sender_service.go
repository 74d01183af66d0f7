package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"trafikskolan/internal/config"
	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	"trafikskolan/internal/repository"

	"go.uber.org/zap"
)

// SenderService builds and dispatches booking notifications. Sends run in
// their own goroutines so a slow provider never holds a request; failures
// are logged and dropped.
type SenderService struct {
	cfg      *config.Config
	userRepo repository.UserRepository
	logger   *zap.Logger
	loc      *time.Location
}

func NewSenderService(cfg *config.Config, userRepo repository.UserRepository, logger *zap.Logger) *SenderService {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		loc = time.FixedZone("CET", 1*60*60)
	}
	return &SenderService{cfg: cfg, userRepo: userRepo, logger: logger, loc: loc}
}

func (s *SenderService) SendBookingEmail(ctx context.Context, booking *db.Booking, lessonName, status string) {
	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		s.logger.Warn("skip booking email, user lookup failed",
			zap.String("booking_code", booking.Code), zap.Error(err))
		return
	}

	data := entities.BookingEmailData{
		UserName:           user.Name,
		BookingCode:        booking.Code,
		LessonName:         lessonName,
		StartTimeFormatted: booking.StartTime.In(s.loc).Format("02 Jan 2006 15:04"),
		EndTimeFormatted:   booking.EndTime.In(s.loc).Format("02 Jan 2006 15:04"),
		Status:             status,
		CurrentYear:        time.Now().In(s.loc).Year(),
	}

	subject := fmt.Sprintf("Your driving lesson is %s - Code: %s", status, booking.Code)
	plainBody := fmt.Sprintf(
		"Hi %s,\n\nYour booking at %s is %s.\n\n"+
			"Booking code: %s\n"+
			"Lesson: %s\n"+
			"Start: %s\n"+
			"End: %s\n\n"+
			"See you at the school.\n",
		data.UserName, s.cfg.SendgridFromName, status,
		data.BookingCode, data.LessonName, data.StartTimeFormatted, data.EndTimeFormatted,
	)

	go s.sendEmail(user.Email, user.Name, subject, plainBody, s.renderEmailHTML(data))
}

func (s *SenderService) SendBookingSMS(ctx context.Context, booking *db.Booking, status string) {
	user, err := s.userRepo.GetByID(ctx, booking.UserID)
	if err != nil {
		s.logger.Warn("skip booking sms, user lookup failed",
			zap.String("booking_code", booking.Code), zap.Error(err))
		return
	}
	if user.Phone == "" {
		return
	}

	message := fmt.Sprintf("%s: booking %s is %s.\nStart: %s.\nDetails in your email.",
		s.cfg.SendgridFromName, booking.Code, status,
		booking.StartTime.In(s.loc).Format("02/01 15:04"),
	)

	go func() {
		if err := s.sendSMS(user.Phone, message); err != nil {
			s.logger.Warn("booking sms failed",
				zap.String("booking_code", booking.Code), zap.Error(err))
		}
	}()
}

func (s *SenderService) SendGroupBookingEmail(ctx context.Context, booking *db.GroupBooking, session *db.GroupSession, status string) {
	data := entities.BookingEmailData{
		UserName:           booking.StudentName,
		BookingCode:        fmt.Sprintf("%d", booking.ID),
		LessonName:         session.Title,
		StartTimeFormatted: session.StartTime.In(s.loc).Format("02 Jan 2006 15:04"),
		EndTimeFormatted:   session.EndTime.In(s.loc).Format("02 Jan 2006 15:04"),
		Status:             status,
		CurrentYear:        time.Now().In(s.loc).Year(),
	}

	subject := fmt.Sprintf("Your seat for %s is %s", session.Title, status)
	plainBody := fmt.Sprintf(
		"Hi %s,\n\nYour seat for %s at %s is %s.\n\n"+
			"Start: %s\n"+
			"End: %s\n\n"+
			"See you at the school.\n",
		data.UserName, session.Title, s.cfg.SendgridFromName, status,
		data.StartTimeFormatted, data.EndTimeFormatted,
	)

	go s.sendEmail(booking.StudentEmail, booking.StudentName, subject, plainBody, s.renderEmailHTML(data))
}

// SendReminderEmail mails an upcoming-lesson reminder to the booking owner.
func (s *SenderService) SendReminderEmail(rb repository.ReminderBooking) {
	start := rb.StartTime.In(s.loc).Format("02 Jan 2006 15:04")
	subject := fmt.Sprintf("Reminder: your driving lesson starts %s", start)
	plainBody := fmt.Sprintf(
		"Hi %s,\n\nA reminder that your lesson (code %s) starts %s.\n\nSee you at the school.\n",
		rb.UserName, rb.Code, start,
	)

	go s.sendEmail(rb.UserEmail, rb.UserName, subject, plainBody, "")
	if rb.UserPhone != "" {
		message := fmt.Sprintf("%s: reminder, lesson %s starts %s.",
			s.cfg.SendgridFromName, rb.Code, rb.StartTime.In(s.loc).Format("02/01 15:04"))
		go func() {
			if err := s.sendSMS(rb.UserPhone, message); err != nil {
				s.logger.Warn("reminder sms failed", zap.String("booking_code", rb.Code), zap.Error(err))
			}
		}()
	}
}

func (s *SenderService) renderEmailHTML(data entities.BookingEmailData) string {
	tmplPath := filepath.Join("internal", "templates", "booking_email.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		s.logger.Warn("parse email template failed", zap.String("path", tmplPath), zap.Error(err))
		return ""
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		s.logger.Warn("render email template failed", zap.String("booking_code", data.BookingCode), zap.Error(err))
		return ""
	}
	return buf.String()
}

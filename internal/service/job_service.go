package service

import (
	"context"
	"fmt"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/repository"

	"go.uber.org/zap"
)

// JobService holds the scheduled maintenance passes run from cron.
type JobService struct {
	repo   *repository.JobRepository
	sender *SenderService
	logger *zap.Logger
}

func NewJobService(repo *repository.JobRepository, sender *SenderService, logger *zap.Logger) *JobService {
	return &JobService{repo: repo, sender: sender, logger: logger}
}

// CompletePastBookings marks confirmed lessons whose end time has passed.
func (s *JobService) CompletePastBookings(ctx context.Context) error {
	ids, err := s.repo.GetConfirmedIDsPastEndTime(ctx)
	if err != nil {
		return fmt.Errorf("cron: get bookings past end time: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	updated, err := s.repo.UpdateBookingStatuses(ctx, ids, db.StatusCompleted)
	if err != nil {
		return fmt.Errorf("cron: mark bookings completed: %w", err)
	}
	s.logger.Info("marked past bookings completed", zap.Int64("count", updated))
	return nil
}

// PurgeTempBookings drops unpaid holds older than the timeout so their
// slots become bookable again.
func (s *JobService) PurgeTempBookings(ctx context.Context, timeout time.Duration) error {
	deleted, err := s.repo.DeleteTempBookingsOlderThan(ctx, time.Now().Add(-timeout))
	if err != nil {
		return fmt.Errorf("cron: purge temp bookings: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("purged expired temp bookings", zap.Int64("count", deleted))
	}
	return nil
}

// SendReminders mails everyone whose confirmed lesson starts within the
// next 24 hours but not within the next 23, so each booking is hit once
// by an hourly schedule.
func (s *JobService) SendReminders(ctx context.Context) error {
	now := time.Now()
	reminders, err := s.repo.ListConfirmedStartingBetween(ctx, now.Add(23*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		return fmt.Errorf("cron: list reminder bookings: %w", err)
	}
	for _, rb := range reminders {
		s.sender.SendReminderEmail(rb)
	}
	if len(reminders) > 0 {
		s.logger.Info("sent booking reminders", zap.Int("count", len(reminders)))
	}
	return nil
}

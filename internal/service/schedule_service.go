package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trafikskolan/internal/db"
	"trafikskolan/internal/entities"
	httperr "trafikskolan/internal/errors"
	"trafikskolan/internal/repository"
	"trafikskolan/internal/schedule"

	"go.uber.org/zap"
)

// ScheduleService manages the slot templates and blocked slots the admin
// maintains. Template validation uses the inclusive-boundary overlap test:
// abutting templates on the same weekday are rejected.
type ScheduleService struct {
	scheduleRepo repository.ScheduleRepository
	logger       *zap.Logger
}

func NewScheduleService(scheduleRepo repository.ScheduleRepository, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{scheduleRepo: scheduleRepo, logger: logger}
}

func (s *ScheduleService) ListTemplates(ctx context.Context) ([]entities.SlotTemplateResponse, error) {
	templates, err := s.scheduleRepo.ListTemplates(ctx, -1, false)
	if err != nil {
		return nil, err
	}
	responses := make([]entities.SlotTemplateResponse, 0, len(templates))
	for _, tpl := range templates {
		responses = append(responses, entities.SlotTemplateResponse{
			ID:      tpl.ID,
			Weekday: tpl.Weekday,
			Start:   formatClock(tpl.StartMin),
			End:     formatClock(tpl.EndMin),
			Active:  tpl.Active,
		})
	}
	return responses, nil
}

func (s *ScheduleService) CreateTemplate(ctx context.Context, req entities.SlotTemplateRequest) (*db.SlotTemplate, error) {
	tpl, err := s.validateTemplate(ctx, 0, req)
	if err != nil {
		return nil, err
	}
	if err := s.scheduleRepo.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	s.logger.Info("slot template created",
		zap.Int("template_id", tpl.ID),
		zap.Int("weekday", tpl.Weekday),
	)
	return tpl, nil
}

func (s *ScheduleService) UpdateTemplate(ctx context.Context, id int, req entities.SlotTemplateRequest) (*db.SlotTemplate, error) {
	tpl, err := s.validateTemplate(ctx, id, req)
	if err != nil {
		return nil, err
	}
	tpl.ID = id
	if err := s.scheduleRepo.UpdateTemplate(ctx, tpl); err != nil {
		if err == repository.ErrTemplateNotFound {
			return nil, httperr.ErrNotFound("slot template not found")
		}
		return nil, err
	}
	return tpl, nil
}

func (s *ScheduleService) DeleteTemplate(ctx context.Context, id int) error {
	err := s.scheduleRepo.DeleteTemplate(ctx, id)
	if err == repository.ErrTemplateNotFound {
		return httperr.ErrNotFound("slot template not found")
	}
	return err
}

func (s *ScheduleService) validateTemplate(ctx context.Context, excludeID int, req entities.SlotTemplateRequest) (*db.SlotTemplate, error) {
	if req.Weekday < 0 || req.Weekday > 6 {
		return nil, httperr.ErrValidation("weekday must be 0-6")
	}
	startMin, err := parseClock(req.Start)
	if err != nil {
		return nil, httperr.ErrValidation("start must be HH:MM")
	}
	endMin, err := parseClock(req.End)
	if err != nil {
		return nil, httperr.ErrValidation("end must be HH:MM")
	}
	if endMin <= startMin {
		return nil, httperr.ErrValidation("end must be after start")
	}

	existing, err := s.scheduleRepo.ListTemplates(ctx, req.Weekday, false)
	if err != nil {
		return nil, err
	}
	proposed := schedule.ClockRange{StartMin: startMin, EndMin: endMin}
	for _, tpl := range existing {
		if tpl.ID == excludeID {
			continue
		}
		if schedule.TemplatesOverlap(proposed, schedule.ClockRange{StartMin: tpl.StartMin, EndMin: tpl.EndMin}) {
			return nil, httperr.ErrConflict(fmt.Sprintf(
				"template overlaps existing template %s-%s",
				formatClock(tpl.StartMin), formatClock(tpl.EndMin)))
		}
	}

	return &db.SlotTemplate{
		Weekday:  req.Weekday,
		StartMin: startMin,
		EndMin:   endMin,
		Active:   req.Active,
	}, nil
}

func (s *ScheduleService) ListBlocked(ctx context.Context, date time.Time) ([]entities.BlockedSlotResponse, error) {
	blocked, err := s.scheduleRepo.ListBlocked(ctx, date)
	if err != nil {
		return nil, err
	}
	responses := make([]entities.BlockedSlotResponse, 0, len(blocked))
	for _, b := range blocked {
		resp := entities.BlockedSlotResponse{ID: b.ID, Date: b.Date, Reason: b.Reason.String}
		if b.StartMin.Valid {
			resp.Start = formatClock(int(b.StartMin.Int64))
			resp.End = formatClock(int(b.EndMin.Int64))
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (s *ScheduleService) CreateBlocked(ctx context.Context, req entities.BlockedSlotRequest) (*db.BlockedSlot, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, httperr.ErrValidation("date must be YYYY-MM-DD")
	}
	blocked := &db.BlockedSlot{Date: date}
	if req.Reason != "" {
		blocked.Reason = sql.NullString{String: req.Reason, Valid: true}
	}
	if req.Start != "" || req.End != "" {
		startMin, err := parseClock(req.Start)
		if err != nil {
			return nil, httperr.ErrValidation("start must be HH:MM")
		}
		endMin, err := parseClock(req.End)
		if err != nil {
			return nil, httperr.ErrValidation("end must be HH:MM")
		}
		if endMin <= startMin {
			return nil, httperr.ErrValidation("end must be after start")
		}
		blocked.StartMin = sql.NullInt64{Int64: int64(startMin), Valid: true}
		blocked.EndMin = sql.NullInt64{Int64: int64(endMin), Valid: true}
	}
	if err := s.scheduleRepo.CreateBlocked(ctx, blocked); err != nil {
		return nil, err
	}
	s.logger.Info("slot blocked",
		zap.String("date", req.Date),
		zap.String("start", req.Start),
		zap.String("end", req.End),
	)
	return blocked, nil
}

func (s *ScheduleService) DeleteBlocked(ctx context.Context, id int) error {
	return s.scheduleRepo.DeleteBlocked(ctx, id)
}

func (s *ScheduleService) ListLessonTypes(ctx context.Context) ([]db.LessonType, error) {
	return s.scheduleRepo.ListLessonTypes(ctx, true)
}

func parseClock(value string) (int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

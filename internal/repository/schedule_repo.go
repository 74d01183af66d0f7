package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trafikskolan/internal/db"
)

var (
	ErrTemplateNotFound   = errors.New("slot template not found")
	ErrLessonTypeNotFound = errors.New("lesson type not found")
)

// ScheduleRepository owns slot templates, blocked slots and lesson types,
// the inputs to slot generation.
type ScheduleRepository interface {
	ListTemplates(ctx context.Context, weekday int, activeOnly bool) ([]db.SlotTemplate, error)
	CreateTemplate(ctx context.Context, tpl *db.SlotTemplate) error
	UpdateTemplate(ctx context.Context, tpl *db.SlotTemplate) error
	DeleteTemplate(ctx context.Context, id int) error

	ListBlocked(ctx context.Context, date time.Time) ([]db.BlockedSlot, error)
	CreateBlocked(ctx context.Context, blocked *db.BlockedSlot) error
	DeleteBlocked(ctx context.Context, id int) error

	GetLessonType(ctx context.Context, id int) (*db.LessonType, error)
	ListLessonTypes(ctx context.Context, activeOnly bool) ([]db.LessonType, error)
}

type scheduleRepository struct {
	DB *sql.DB
}

func NewScheduleRepository(database *sql.DB) ScheduleRepository {
	return &scheduleRepository{DB: database}
}

func (r *scheduleRepository) ListTemplates(ctx context.Context, weekday int, activeOnly bool) ([]db.SlotTemplate, error) {
	query := `SELECT id, weekday, start_min, end_min, active, created_at FROM slot_templates WHERE 1=1`
	args := []any{}
	if weekday >= 0 {
		args = append(args, weekday)
		query += fmt.Sprintf(" AND weekday = $%d", len(args))
	}
	if activeOnly {
		query += " AND active"
	}
	query += " ORDER BY weekday, start_min"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []db.SlotTemplate
	for rows.Next() {
		var tpl db.SlotTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Weekday, &tpl.StartMin, &tpl.EndMin, &tpl.Active, &tpl.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

func (r *scheduleRepository) CreateTemplate(ctx context.Context, tpl *db.SlotTemplate) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO slot_templates (weekday, start_min, end_min, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		tpl.Weekday, tpl.StartMin, tpl.EndMin, tpl.Active).
		Scan(&tpl.ID, &tpl.CreatedAt)
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *scheduleRepository) UpdateTemplate(ctx context.Context, tpl *db.SlotTemplate) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE slot_templates SET weekday = $2, start_min = $3, end_min = $4, active = $5 WHERE id = $1`,
		tpl.ID, tpl.Weekday, tpl.StartMin, tpl.EndMin, tpl.Active)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireTemplateRow(result)
}

func (r *scheduleRepository) DeleteTemplate(ctx context.Context, id int) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM slot_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireTemplateRow(result)
}

func requireTemplateRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *scheduleRepository) ListBlocked(ctx context.Context, date time.Time) ([]db.BlockedSlot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, date, start_min, end_min, reason FROM blocked_slots WHERE date = $1::date ORDER BY start_min NULLS FIRST`,
		date)
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	defer rows.Close()

	var blocked []db.BlockedSlot
	for rows.Next() {
		var b db.BlockedSlot
		if err := rows.Scan(&b.ID, &b.Date, &b.StartMin, &b.EndMin, &b.Reason); err != nil {
			return nil, fmt.Errorf("scan blocked slot: %w", err)
		}
		blocked = append(blocked, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocked slots: %w", err)
	}
	return blocked, nil
}

func (r *scheduleRepository) CreateBlocked(ctx context.Context, blocked *db.BlockedSlot) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO blocked_slots (date, start_min, end_min, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		blocked.Date, blocked.StartMin, blocked.EndMin, blocked.Reason).
		Scan(&blocked.ID)
	if err != nil {
		return fmt.Errorf("create blocked slot: %w", err)
	}
	return nil
}

func (r *scheduleRepository) DeleteBlocked(ctx context.Context, id int) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	return nil
}

func (r *scheduleRepository) GetLessonType(ctx context.Context, id int) (*db.LessonType, error) {
	var lt db.LessonType
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, duration_minutes, price, active FROM lesson_types WHERE id = $1`, id).
		Scan(&lt.ID, &lt.Name, &lt.DurationMinutes, &lt.Price, &lt.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLessonTypeNotFound
		}
		return nil, fmt.Errorf("get lesson type: %w", err)
	}
	return &lt, nil
}

func (r *scheduleRepository) ListLessonTypes(ctx context.Context, activeOnly bool) ([]db.LessonType, error) {
	query := `SELECT id, name, duration_minutes, price, active FROM lesson_types`
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY name"

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list lesson types: %w", err)
	}
	defer rows.Close()

	var types []db.LessonType
	for rows.Next() {
		var lt db.LessonType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.DurationMinutes, &lt.Price, &lt.Active); err != nil {
			return nil, fmt.Errorf("scan lesson type: %w", err)
		}
		types = append(types, lt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lesson types: %w", err)
	}
	return types, nil
}

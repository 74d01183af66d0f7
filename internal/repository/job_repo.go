package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(database *sql.DB) *JobRepository {
	return &JobRepository{DB: database}
}

// GetConfirmedIDsPastEndTime finds confirmed lessons whose end time has passed.
func (r *JobRepository) GetConfirmedIDsPastEndTime(ctx context.Context) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM bookings WHERE status = 'confirmed' AND end_time < NOW()`)
	if err != nil {
		return nil, fmt.Errorf("query confirmed bookings past end time: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan booking id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking ids: %w", err)
	}
	return ids, nil
}

func (r *JobRepository) UpdateBookingStatuses(ctx context.Context, ids []int, newStatus string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = ANY($2)`,
		newStatus, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("update booking statuses: %w", err)
	}
	return result.RowsAffected()
}

// DeleteTempBookingsOlderThan drops unpaid temp holds so their slots free up.
func (r *JobRepository) DeleteTempBookingsOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`DELETE FROM bookings WHERE status = 'temp' AND created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete temp bookings: %w", err)
	}
	return result.RowsAffected()
}

// ListConfirmedStartingBetween returns bookings starting inside the window,
// joined with their user, for reminder sends.
func (r *JobRepository) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time) ([]ReminderBooking, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT b.id, b.code, b.start_time, b.end_time, u.name, u.email, u.phone
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		WHERE b.status = 'confirmed' AND b.start_time >= $1 AND b.start_time < $2`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("query reminder bookings: %w", err)
	}
	defer rows.Close()

	var reminders []ReminderBooking
	for rows.Next() {
		var rb ReminderBooking
		if err := rows.Scan(&rb.BookingID, &rb.Code, &rb.StartTime, &rb.EndTime, &rb.UserName, &rb.UserEmail, &rb.UserPhone); err != nil {
			return nil, fmt.Errorf("scan reminder booking: %w", err)
		}
		reminders = append(reminders, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder bookings: %w", err)
	}
	return reminders, nil
}

type ReminderBooking struct {
	BookingID int
	Code      string
	StartTime time.Time
	EndTime   time.Time
	UserName  string
	UserEmail string
	UserPhone string
}

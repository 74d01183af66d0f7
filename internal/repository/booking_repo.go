package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trafikskolan/internal/db"
)

var ErrBookingNotFound = errors.New("booking not found")

// BookingRepository is the persistence surface the booking service needs.
// Kept as an interface so service tests can run against an in-memory fake.
type BookingRepository interface {
	CreateChecked(ctx context.Context, b *db.Booking, from, to time.Time, check func(existing []db.Booking) error) error
	RescheduleChecked(ctx context.Context, id int, start, end, from, to time.Time, check func(existing []db.Booking) error) error
	GetByID(ctx context.Context, id int) (*db.Booking, error)
	GetByCode(ctx context.Context, code string) (*db.Booking, error)
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]db.Booking, error)
	ListByUser(ctx context.Context, userID int) ([]db.Booking, error)
	List(ctx context.Context, date, status string) ([]db.Booking, error)
	Cancel(ctx context.Context, id int, reason string) error
	UpdatePayment(ctx context.Context, id int, status, paymentStatus string) error
	SetMerchantRef(ctx context.Context, id int, ref string, method string) error
	GetByMerchantRef(ctx context.Context, ref string) (*db.Booking, error)
}

type bookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) BookingRepository {
	return &bookingRepository{DB: database}
}

const bookingColumns = `id, code, user_id, lesson_type_id, start_time, end_time,
	status, payment_status, payment_method, merchant_ref, cancel_reason, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*db.Booking, error) {
	var b db.Booking
	err := row.Scan(
		&b.ID, &b.Code, &b.UserID, &b.LessonTypeID, &b.StartTime, &b.EndTime,
		&b.Status, &b.PaymentStatus, &b.PaymentMethod, &b.MerchantRef, &b.CancelReason,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateChecked runs the caller's conflict check against the bookings that
// touch [from, to) and inserts the new row, all in one transaction. The
// candidate rows are locked so a concurrent insert cannot slip between the
// check and the write.
func (r *bookingRepository) CreateChecked(ctx context.Context, b *db.Booking, from, to time.Time, check func(existing []db.Booking) error) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		existing, err := lockActiveBetween(ctx, tx, from, to)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}

		query := `
			INSERT INTO bookings
			(code, user_id, lesson_type_id, start_time, end_time, status, payment_status, payment_method, merchant_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at, updated_at`
		err = tx.QueryRowContext(ctx, query,
			b.Code, b.UserID, b.LessonTypeID, b.StartTime, b.EndTime,
			b.Status, b.PaymentStatus, b.PaymentMethod, b.MerchantRef,
		).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
}

// RescheduleChecked is the moving counterpart: conflict check over the new
// range and the time update share one transaction.
func (r *bookingRepository) RescheduleChecked(ctx context.Context, id int, start, end, from, to time.Time, check func(existing []db.Booking) error) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		existing, err := lockActiveBetween(ctx, tx, from, to)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE bookings SET start_time = $1, end_time = $2, updated_at = NOW() WHERE id = $3`,
			start, end, id)
		if err != nil {
			return fmt.Errorf("reschedule booking: %w", err)
		}
		return requireRow(result)
	})
}

func lockActiveBetween(ctx context.Context, tx *sql.Tx, from, to time.Time) ([]db.Booking, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status NOT IN ('cancelled', 'completed')
		  AND start_time < $2 AND end_time > $1
		ORDER BY start_time
		FOR UPDATE`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("lock bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int) (*db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

func (r *bookingRepository) GetByCode(ctx context.Context, code string) (*db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE code = $1`
	b, err := scanBooking(r.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by code: %w", err)
	}
	return b, nil
}

// ListActiveBetween returns all non-cancelled bookings touching [from, to),
// the candidate set for overlap checks.
func (r *bookingRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]db.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status NOT IN ('cancelled', 'completed')
		  AND start_time < $2 AND end_time > $1
		ORDER BY start_time`
	return r.queryBookings(ctx, query, from, to)
}

func (r *bookingRepository) ListByUser(ctx context.Context, userID int) ([]db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY start_time DESC`
	return r.queryBookings(ctx, query, userID)
}

func (r *bookingRepository) List(ctx context.Context, date, status string) ([]db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE 1=1`
	args := []any{}
	if date != "" {
		args = append(args, date)
		query += fmt.Sprintf(" AND start_time::date = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_time DESC"
	return r.queryBookings(ctx, query, args...)
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]db.Booking, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

// Cancel flips the status; the guard on the current status makes repeated
// cancellation a no-op at the database level.
func (r *bookingRepository) Cancel(ctx context.Context, id int, reason string) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancel_reason = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'`,
		id, reason)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	return requireRow(result)
}

func (r *bookingRepository) UpdatePayment(ctx context.Context, id int, status, paymentStatus string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE bookings SET status = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`,
		id, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("update booking payment: %w", err)
	}
	return requireRow(result)
}

func (r *bookingRepository) SetMerchantRef(ctx context.Context, id int, ref, method string) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE bookings
		SET merchant_ref = $2, payment_method = $3, payment_status = 'pending', updated_at = NOW()
		WHERE id = $1`,
		id, ref, method)
	if err != nil {
		return fmt.Errorf("set merchant ref: %w", err)
	}
	return requireRow(result)
}

func (r *bookingRepository) GetByMerchantRef(ctx context.Context, ref string) (*db.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE merchant_ref = $1`
	b, err := scanBooking(r.DB.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by merchant ref: %w", err)
	}
	return b, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrBookingNotFound
	}
	return nil
}

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
	ErrSessionFull          = errors.New("session is full")
	ErrSessionNotFound      = errors.New("session not found")
	ErrGroupBookingNotFound = errors.New("group booking not found")
	ErrAlreadyCancelled     = errors.New("group booking already cancelled")
)

// SessionRepository owns group sessions and their participant counters. The
// counter operations are single conditional statements (or one transaction
// for the multi-row ones) so concurrent requests cannot overbook a session
// or drive a counter negative.
type SessionRepository interface {
	Create(ctx context.Context, s *db.GroupSession) error
	GetByID(ctx context.Context, id int) (*db.GroupSession, error)
	ListUpcoming(ctx context.Context, sessionType string, from time.Time) ([]db.GroupSession, error)
	Update(ctx context.Context, s *db.GroupSession) error

	ReserveWithBooking(ctx context.Context, gb *db.GroupBooking) error
	CancelBooking(ctx context.Context, bookingID int) error
	RefundBooking(ctx context.Context, bookingID int) error
	MoveBooking(ctx context.Context, bookingID, toSessionID int) error

	GetBookingByCode(ctx context.Context, code string) (*db.GroupBooking, error)
	GetBookingByMerchantRef(ctx context.Context, ref string) (*db.GroupBooking, error)
	ListBookings(ctx context.Context, sessionID int) ([]db.GroupBooking, error)
	SetBookingMerchantRef(ctx context.Context, id int, ref, method string) error
	UpdateBookingPayment(ctx context.Context, id int, status, paymentStatus string) error
}

type sessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(database *sql.DB) SessionRepository {
	return &sessionRepository{DB: database}
}

const sessionColumns = `id, session_type, title, start_time, end_time,
	max_participants, current_participants, price, active, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*db.GroupSession, error) {
	var s db.GroupSession
	err := row.Scan(
		&s.ID, &s.SessionType, &s.Title, &s.StartTime, &s.EndTime,
		&s.MaxParticipants, &s.CurrentParticipants, &s.Price, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Create(ctx context.Context, s *db.GroupSession) error {
	query := `
		INSERT INTO group_sessions
		(session_type, title, start_time, end_time, max_participants, price, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, current_participants, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		s.SessionType, s.Title, s.StartTime, s.EndTime, s.MaxParticipants, s.Price, s.Active,
	).Scan(&s.ID, &s.CurrentParticipants, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id int) (*db.GroupSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM group_sessions WHERE id = $1`
	s, err := scanSession(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *sessionRepository) ListUpcoming(ctx context.Context, sessionType string, from time.Time) ([]db.GroupSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM group_sessions WHERE active AND start_time >= $1`
	args := []any{from}
	if sessionType != "" {
		args = append(args, sessionType)
		query += " AND session_type = $2"
	}
	query += " ORDER BY start_time"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []db.GroupSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) Update(ctx context.Context, s *db.GroupSession) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE group_sessions
		SET title = $2, start_time = $3, end_time = $4, max_participants = $5,
		    price = $6, active = $7, updated_at = NOW()
		WHERE id = $1`,
		s.ID, s.Title, s.StartTime, s.EndTime, s.MaxParticipants, s.Price, s.Active)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ReserveWithBooking claims a seat and creates the participant row in one
// transaction. The seat claim is a conditional increment: zero rows means
// the session was full (or missing) and nothing is written.
func (r *sessionRepository) ReserveWithBooking(ctx context.Context, gb *db.GroupBooking) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `
			UPDATE group_sessions
			SET current_participants = current_participants + 1, updated_at = NOW()
			WHERE id = $1 AND current_participants < max_participants
			RETURNING current_participants`,
			gb.SessionID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			if exists, existsErr := r.sessionExists(ctx, tx, gb.SessionID); existsErr != nil {
				return existsErr
			} else if !exists {
				return ErrSessionNotFound
			}
			return ErrSessionFull
		}
		if err != nil {
			return fmt.Errorf("reserve seat: %w", err)
		}

		return tx.QueryRowContext(ctx, `
			INSERT INTO group_bookings
			(code, session_id, user_id, student_name, student_email, student_phone,
			 supervisor_name, supervisor_phone, status, payment_status, payment_method, merchant_ref)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at`,
			gb.Code, gb.SessionID, gb.UserID, gb.StudentName, gb.StudentEmail, gb.StudentPhone,
			gb.SupervisorName, gb.SupervisorPhone, gb.Status, gb.PaymentStatus,
			gb.PaymentMethod, gb.MerchantRef,
		).Scan(&gb.ID, &gb.CreatedAt, &gb.UpdatedAt)
	})
}

// CancelBooking flips the participant row and releases the seat in one
// transaction. The status guard makes a second cancellation fail before any
// counter write, and the GREATEST clamp keeps the counter at zero even if a
// stray release slips through.
func (r *sessionRepository) CancelBooking(ctx context.Context, bookingID int) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var sessionID int
		err := tx.QueryRowContext(ctx, `
			UPDATE group_bookings
			SET status = 'cancelled', updated_at = NOW()
			WHERE id = $1 AND status <> 'cancelled'
			RETURNING session_id`,
			bookingID).Scan(&sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM group_bookings WHERE id = $1)`, bookingID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrGroupBookingNotFound
			}
			return ErrAlreadyCancelled
		}
		if err != nil {
			return fmt.Errorf("cancel group booking: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE group_sessions
			SET current_participants = GREATEST(current_participants - 1, 0), updated_at = NOW()
			WHERE id = $1`,
			sessionID)
		if err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
		return nil
	})
}

// RefundBooking is the payment-callback counterpart of CancelBooking: the
// cancellation also releases the seat, and payment_status flips to refunded.
// A booking that was already cancelled only gets the payment flip, so the
// counter is never decremented twice.
func (r *sessionRepository) RefundBooking(ctx context.Context, bookingID int) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var sessionID int
		err := tx.QueryRowContext(ctx, `
			UPDATE group_bookings
			SET status = 'cancelled', payment_status = 'refunded', updated_at = NOW()
			WHERE id = $1 AND status <> 'cancelled'
			RETURNING session_id`,
			bookingID).Scan(&sessionID)
		if errors.Is(err, sql.ErrNoRows) {
			result, updErr := tx.ExecContext(ctx,
				`UPDATE group_bookings SET payment_status = 'refunded', updated_at = NOW() WHERE id = $1`,
				bookingID)
			if updErr != nil {
				return fmt.Errorf("mark group booking refunded: %w", updErr)
			}
			affected, updErr := result.RowsAffected()
			if updErr != nil {
				return updErr
			}
			if affected == 0 {
				return ErrGroupBookingNotFound
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("refund group booking: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE group_sessions
			SET current_participants = GREATEST(current_participants - 1, 0), updated_at = NOW()
			WHERE id = $1`,
			sessionID)
		if err != nil {
			return fmt.Errorf("release refunded seat: %w", err)
		}
		return nil
	})
}

// MoveBooking claims a seat on the target, releases the source and repoints
// the participant row, all in one transaction.
func (r *sessionRepository) MoveBooking(ctx context.Context, bookingID, toSessionID int) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		var fromSessionID int
		err := tx.QueryRowContext(ctx,
			`SELECT session_id FROM group_bookings WHERE id = $1 AND status <> 'cancelled' FOR UPDATE`,
			bookingID).Scan(&fromSessionID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrGroupBookingNotFound
		}
		if err != nil {
			return fmt.Errorf("lock group booking: %w", err)
		}

		var current int
		err = tx.QueryRowContext(ctx, `
			UPDATE group_sessions
			SET current_participants = current_participants + 1, updated_at = NOW()
			WHERE id = $1 AND current_participants < max_participants
			RETURNING current_participants`,
			toSessionID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			if exists, existsErr := r.sessionExists(ctx, tx, toSessionID); existsErr != nil {
				return existsErr
			} else if !exists {
				return ErrSessionNotFound
			}
			return ErrSessionFull
		}
		if err != nil {
			return fmt.Errorf("reserve target seat: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE group_sessions
			SET current_participants = GREATEST(current_participants - 1, 0), updated_at = NOW()
			WHERE id = $1`,
			fromSessionID)
		if err != nil {
			return fmt.Errorf("release source seat: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE group_bookings SET session_id = $2, updated_at = NOW() WHERE id = $1`,
			bookingID, toSessionID)
		if err != nil {
			return fmt.Errorf("repoint group booking: %w", err)
		}
		return nil
	})
}

func (r *sessionRepository) sessionExists(ctx context.Context, tx *sql.Tx, id int) (bool, error) {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

const groupBookingColumns = `id, code, session_id, user_id, student_name, student_email, student_phone,
	supervisor_name, supervisor_phone, status, payment_status, payment_method, merchant_ref,
	created_at, updated_at`

func scanGroupBooking(row interface{ Scan(...any) error }) (*db.GroupBooking, error) {
	var gb db.GroupBooking
	err := row.Scan(
		&gb.ID, &gb.Code, &gb.SessionID, &gb.UserID, &gb.StudentName, &gb.StudentEmail, &gb.StudentPhone,
		&gb.SupervisorName, &gb.SupervisorPhone, &gb.Status, &gb.PaymentStatus,
		&gb.PaymentMethod, &gb.MerchantRef, &gb.CreatedAt, &gb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &gb, nil
}

func (r *sessionRepository) GetBookingByCode(ctx context.Context, code string) (*db.GroupBooking, error) {
	query := `SELECT ` + groupBookingColumns + ` FROM group_bookings WHERE code = $1`
	gb, err := scanGroupBooking(r.DB.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupBookingNotFound
		}
		return nil, fmt.Errorf("get group booking by code: %w", err)
	}
	return gb, nil
}

func (r *sessionRepository) GetBookingByMerchantRef(ctx context.Context, ref string) (*db.GroupBooking, error) {
	query := `SELECT ` + groupBookingColumns + ` FROM group_bookings WHERE merchant_ref = $1`
	gb, err := scanGroupBooking(r.DB.QueryRowContext(ctx, query, ref))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGroupBookingNotFound
		}
		return nil, fmt.Errorf("get group booking by merchant ref: %w", err)
	}
	return gb, nil
}

func (r *sessionRepository) ListBookings(ctx context.Context, sessionID int) ([]db.GroupBooking, error) {
	query := `SELECT ` + groupBookingColumns + ` FROM group_bookings WHERE session_id = $1 ORDER BY created_at`
	rows, err := r.DB.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list group bookings: %w", err)
	}
	defer rows.Close()

	var bookings []db.GroupBooking
	for rows.Next() {
		gb, err := scanGroupBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group booking: %w", err)
		}
		bookings = append(bookings, *gb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group bookings: %w", err)
	}
	return bookings, nil
}

func (r *sessionRepository) SetBookingMerchantRef(ctx context.Context, id int, ref, method string) error {
	result, err := r.DB.ExecContext(ctx, `
		UPDATE group_bookings
		SET merchant_ref = $2, payment_method = $3, payment_status = 'pending', updated_at = NOW()
		WHERE id = $1`,
		id, ref, method)
	if err != nil {
		return fmt.Errorf("set group booking merchant ref: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGroupBookingNotFound
	}
	return nil
}

func (r *sessionRepository) UpdateBookingPayment(ctx context.Context, id int, status, paymentStatus string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE group_bookings SET status = $2, payment_status = $3, updated_at = NOW() WHERE id = $1`,
		id, status, paymentStatus)
	if err != nil {
		return fmt.Errorf("update group booking payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGroupBookingNotFound
	}
	return nil
}

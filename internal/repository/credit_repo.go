package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trafikskolan/internal/db"
)

var ErrInsufficientCredits = errors.New("insufficient credits")

// CreditRepository keeps per-user credit balances. Consumption locks the
// matching rows, decrements the first one with a remaining balance and flips
// the paying booking inside the same transaction.
type CreditRepository interface {
	SumRemaining(ctx context.Context, userID int, lessonTypeID int, creditType string) (int, error)
	ConsumeOneForBooking(ctx context.Context, userID, lessonTypeID, bookingID int) (int, error)
	ConsumeOneForGroupBooking(ctx context.Context, userID int, creditType string, groupBookingID int) (int, error)
	ListByUser(ctx context.Context, userID int) ([]db.UserCredit, error)
	Add(ctx context.Context, credit *db.UserCredit) error
}

type creditRepository struct {
	DB *sql.DB
}

func NewCreditRepository(database *sql.DB) CreditRepository {
	return &creditRepository{DB: database}
}

// SumRemaining matches either the specific lesson type or the generic bucket
// for the credit type.
func (r *creditRepository) SumRemaining(ctx context.Context, userID int, lessonTypeID int, creditType string) (int, error) {
	var total int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(credits_remaining), 0)
		FROM user_credits
		WHERE user_id = $1 AND (lesson_type_id = $2 OR ($2 = 0 AND lesson_type_id IS NULL AND credit_type = $3))`,
		userID, lessonTypeID, creditType).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum credits: %w", err)
	}
	return total, nil
}

func (r *creditRepository) ConsumeOneForBooking(ctx context.Context, userID, lessonTypeID, bookingID int) (int, error) {
	return r.consumeOne(ctx, userID, lessonTypeID, "", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE bookings
			SET status = 'confirmed', payment_status = 'paid', payment_method = 'credits', updated_at = NOW()
			WHERE id = $1`,
			bookingID)
		return err
	})
}

func (r *creditRepository) ConsumeOneForGroupBooking(ctx context.Context, userID int, creditType string, groupBookingID int) (int, error) {
	return r.consumeOne(ctx, userID, 0, creditType, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE group_bookings
			SET status = 'confirmed', payment_status = 'paid', payment_method = 'credits', updated_at = NOW()
			WHERE id = $1`,
			groupBookingID)
		return err
	})
}

// consumeOne locks the candidate rows in id order, decrements the first with
// a positive balance and runs the booking flip in the same transaction. The
// first-match order is user-visible: holders of several partial balances
// deplete the oldest row id first.
func (r *creditRepository) consumeOne(ctx context.Context, userID, lessonTypeID int, creditType string, flipBooking func(*sql.Tx) error) (int, error) {
	var creditID int
	err := db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM user_credits
			WHERE user_id = $1
			  AND (lesson_type_id = $2 OR ($2 = 0 AND lesson_type_id IS NULL AND credit_type = $3))
			  AND credits_remaining > 0
			ORDER BY id
			LIMIT 1
			FOR UPDATE`,
			userID, lessonTypeID, creditType).Scan(&creditID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInsufficientCredits
		}
		if err != nil {
			return fmt.Errorf("lock credit row: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE user_credits
			SET credits_remaining = credits_remaining - 1, updated_at = NOW()
			WHERE id = $1 AND credits_remaining > 0`,
			creditID)
		if err != nil {
			return fmt.Errorf("decrement credit: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInsufficientCredits
		}

		return flipBooking(tx)
	})
	if err != nil {
		return 0, err
	}
	return creditID, nil
}

func (r *creditRepository) ListByUser(ctx context.Context, userID int) ([]db.UserCredit, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, lesson_type_id, credit_type, credits_remaining, credits_total, created_at, updated_at
		FROM user_credits
		WHERE user_id = $1
		ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list credits: %w", err)
	}
	defer rows.Close()

	var credits []db.UserCredit
	for rows.Next() {
		var c db.UserCredit
		err := rows.Scan(&c.ID, &c.UserID, &c.LessonTypeID, &c.CreditType,
			&c.CreditsRemaining, &c.CreditsTotal, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		credits = append(credits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credits: %w", err)
	}
	return credits, nil
}

// Add is the admin replenishment path; the booking flow never increments.
func (r *creditRepository) Add(ctx context.Context, credit *db.UserCredit) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO user_credits (user_id, lesson_type_id, credit_type, credits_remaining, credits_total)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at`,
		credit.UserID, credit.LessonTypeID, credit.CreditType, credit.CreditsTotal,
	).Scan(&credit.ID, &credit.CreatedAt, &credit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("add credits: %w", err)
	}
	credit.CreditsRemaining = credit.CreditsTotal
	return nil
}

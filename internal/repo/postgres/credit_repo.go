package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNegativeBalance = errors.New("negative credit balance observed")
)

type CreditRepo struct {
	pool *pgxpool.Pool
}

type CreditBalanceRecord struct {
	UserID           int64
	PurchasedCredits int
	FreeLikeDay      string
	UnlimitedUntil   *time.Time
	UpdatedAt        time.Time
}

func NewCreditRepo(pool *pgxpool.Pool) *CreditRepo {
	return &CreditRepo{pool: pool}
}

func (r *CreditRepo) Get(ctx context.Context, userID int64) (CreditBalanceRecord, error) {
	if userID <= 0 {
		return CreditBalanceRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return CreditBalanceRecord{UserID: userID}, nil
	}

	var record CreditBalanceRecord
	var freeLikeDay *string
	err := r.pool.QueryRow(ctx, `
SELECT user_id, purchased_credits, free_like_day::text, unlimited_until, updated_at
FROM credit_balances
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&record.UserID,
		&record.PurchasedCredits,
		&freeLikeDay,
		&record.UnlimitedUntil,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditBalanceRecord{UserID: userID}, nil
		}
		return CreditBalanceRecord{}, fmt.Errorf("get credit balance: %w", err)
	}

	if freeLikeDay != nil {
		record.FreeLikeDay = *freeLikeDay
	}
	if record.PurchasedCredits < 0 {
		return CreditBalanceRecord{}, ErrNegativeBalance
	}

	return record, nil
}

// ConsumeFree marks today's free like as used. A fresh row counts as free
// available. The WHERE guard on the upsert makes this a single atomic
// check-and-set: exactly one of two concurrent calls for the same day wins.
func (r *CreditRepo) ConsumeFree(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (bool, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return false, fmt.Errorf("invalid free consume payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var consumedDay string
	err := tx.QueryRow(ctx, `
INSERT INTO credit_balances (
	user_id,
	purchased_credits,
	free_like_day,
	updated_at
) VALUES ($1, 0, $2::date, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	free_like_day = EXCLUDED.free_like_day,
	updated_at = NOW()
WHERE credit_balances.free_like_day IS DISTINCT FROM EXCLUDED.free_like_day
RETURNING free_like_day::text
`, userID, dayKey).Scan(&consumedDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("consume free like: %w", err)
	}

	return true, nil
}

// ConsumePurchased decrements one purchased credit. The balance guard in the
// WHERE clause is the compare-and-swap: on a balance of 1, only one of two
// concurrent debits can succeed.
func (r *CreditRepo) ConsumePurchased(ctx context.Context, tx pgx.Tx, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid purchased consume payload")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
UPDATE credit_balances
SET
	purchased_credits = purchased_credits - 1,
	updated_at = NOW()
WHERE user_id = $1 AND purchased_credits > 0
`, userID)
	if err != nil {
		return false, fmt.Errorf("consume purchased credit: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *CreditRepo) AddPurchased(ctx context.Context, userID int64, amount int) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO credit_balances (
	user_id,
	purchased_credits,
	updated_at
) VALUES ($1, $2, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	purchased_credits = credit_balances.purchased_credits + EXCLUDED.purchased_credits,
	updated_at = NOW()
`, userID, amount); err != nil {
		return fmt.Errorf("add purchased credits: %w", err)
	}

	return nil
}

// ExtendUnlimited sets or extends the unlimited window; it never shortens an
// already-granted one.
func (r *CreditRepo) ExtendUnlimited(ctx context.Context, userID int64, until time.Time) error {
	if userID <= 0 {
		return fmt.Errorf("invalid user id")
	}
	if until.IsZero() {
		return fmt.Errorf("unlimited until is required")
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO credit_balances (
	user_id,
	purchased_credits,
	unlimited_until,
	updated_at
) VALUES ($1, 0, $2::timestamptz, NOW())
ON CONFLICT (user_id) DO UPDATE SET
	unlimited_until = GREATEST(COALESCE(credit_balances.unlimited_until, 'epoch'::timestamptz), EXCLUDED.unlimited_until),
	updated_at = NOW()
`, userID, until.UTC()); err != nil {
		return fmt.Errorf("extend unlimited window: %w", err)
	}

	return nil
}

// PurgeStale drops exhausted rows whose only content is an old free-like day
// key. Rows carrying purchased credits or an unlimited window are kept.
func (r *CreditRepo) PurgeStale(ctx context.Context, beforeDay string) (int64, error) {
	if strings.TrimSpace(beforeDay) == "" {
		return 0, fmt.Errorf("cutoff day is required")
	}
	if r.pool == nil {
		return 0, nil
	}

	result, err := r.pool.Exec(ctx, `
DELETE FROM credit_balances
WHERE purchased_credits = 0
	AND (unlimited_until IS NULL OR unlimited_until < NOW())
	AND free_like_day IS NOT NULL
	AND free_like_day < $1::date
`, beforeDay)
	if err != nil {
		return 0, fmt.Errorf("purge stale credit balances: %w", err)
	}

	return result.RowsAffected(), nil
}

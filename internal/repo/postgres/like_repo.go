package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLikeNotFound = errors.New("like edge not found")

type LikeRepo struct {
	pool *pgxpool.Pool
}

type LikeEdgeRecord struct {
	ID              int64
	FromUserID      int64
	ToUserID        int64
	GroupID         int64
	IsSuper         bool
	ConsumedByMatch bool
	CorrelationID   string
	CreatedAt       time.Time
}

func NewLikeRepo(pool *pgxpool.Pool) *LikeRepo {
	return &LikeRepo{pool: pool}
}

// Upsert records a like edge. A retried sync with the same correlation ID
// lands on the existing row unchanged, so clients can resend safely. A new
// correlation ID replaces the row wholesale and starts a fresh cycle.
func (r *LikeRepo) Upsert(ctx context.Context, tx pgx.Tx, fromUserID, toUserID, groupID int64, isSuper bool, correlationID string) (LikeEdgeRecord, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return LikeEdgeRecord{}, fmt.Errorf("invalid like payload")
	}
	if tx == nil {
		return LikeEdgeRecord{}, fmt.Errorf("transaction is required")
	}

	record, err := scanLikeEdge(tx.QueryRow(ctx, `
INSERT INTO like_edges (
	from_user_id,
	to_user_id,
	group_id,
	is_super,
	consumed_by_match,
	correlation_id,
	created_at
) VALUES ($1, $2, $3, $4, FALSE, $5, NOW())
ON CONFLICT (from_user_id, to_user_id, group_id) DO UPDATE SET
	is_super = CASE
		WHEN like_edges.correlation_id = EXCLUDED.correlation_id THEN like_edges.is_super OR EXCLUDED.is_super
		ELSE EXCLUDED.is_super
	END,
	consumed_by_match = CASE
		WHEN like_edges.correlation_id = EXCLUDED.correlation_id THEN like_edges.consumed_by_match
		ELSE FALSE
	END,
	created_at = CASE
		WHEN like_edges.correlation_id = EXCLUDED.correlation_id THEN like_edges.created_at
		ELSE NOW()
	END,
	correlation_id = EXCLUDED.correlation_id
RETURNING id, from_user_id, to_user_id, group_id, is_super, consumed_by_match, correlation_id, created_at
`, fromUserID, toUserID, groupID, isSuper, correlationID))
	if err != nil {
		return LikeEdgeRecord{}, fmt.Errorf("upsert like edge: %w", err)
	}

	return record, nil
}

func (r *LikeRepo) GetActive(ctx context.Context, tx pgx.Tx, fromUserID, toUserID, groupID int64) (LikeEdgeRecord, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return LikeEdgeRecord{}, fmt.Errorf("invalid like lookup payload")
	}

	row := r.queryRow(ctx, tx, `
SELECT id, from_user_id, to_user_id, group_id, is_super, consumed_by_match, correlation_id, created_at
FROM like_edges
WHERE from_user_id = $1 AND to_user_id = $2 AND group_id = $3
LIMIT 1
`, fromUserID, toUserID, groupID)

	record, err := scanLikeEdge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LikeEdgeRecord{}, ErrLikeNotFound
		}
		return LikeEdgeRecord{}, fmt.Errorf("lookup like edge: %w", err)
	}

	return record, nil
}

func (r *LikeRepo) GetByID(ctx context.Context, likeEdgeID int64) (LikeEdgeRecord, error) {
	if likeEdgeID <= 0 {
		return LikeEdgeRecord{}, fmt.Errorf("invalid like edge id")
	}
	if r.pool == nil {
		return LikeEdgeRecord{}, fmt.Errorf("postgres pool is nil")
	}

	record, err := scanLikeEdge(r.pool.QueryRow(ctx, `
SELECT id, from_user_id, to_user_id, group_id, is_super, consumed_by_match, correlation_id, created_at
FROM like_edges
WHERE id = $1
LIMIT 1
`, likeEdgeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LikeEdgeRecord{}, ErrLikeNotFound
		}
		return LikeEdgeRecord{}, fmt.Errorf("get like edge by id: %w", err)
	}

	return record, nil
}

func (r *LikeRepo) DeleteByID(ctx context.Context, tx pgx.Tx, likeEdgeID int64) (bool, error) {
	if likeEdgeID <= 0 {
		return false, fmt.Errorf("invalid like edge id")
	}
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	result, err := tx.Exec(ctx, `
DELETE FROM like_edges
WHERE id = $1
`, likeEdgeID)
	if err != nil {
		return false, fmt.Errorf("delete like edge: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkPairConsumed flags both directions of a matched pair so neither edge can
// be cancelled or counted as pending after the match exists.
func (r *LikeRepo) MarkPairConsumed(ctx context.Context, tx pgx.Tx, userIDA, userIDB, groupID int64) error {
	if userIDA <= 0 || userIDB <= 0 {
		return fmt.Errorf("invalid pair payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
UPDATE like_edges
SET consumed_by_match = TRUE
WHERE group_id = $3
	AND (
		(from_user_id = $1 AND to_user_id = $2)
		OR (from_user_id = $2 AND to_user_id = $1)
	)
`, userIDA, userIDB, groupID); err != nil {
		return fmt.Errorf("mark pair consumed: %w", err)
	}

	return nil
}

// LastAttemptAt is the durable fallback for the cooldown tracker: the newest
// like from A to B across all groups. Edge deletion on cancel does not clear
// the hot-path record, so this only matters after a cache flush.
func (r *LikeRepo) LastAttemptAt(ctx context.Context, fromUserID, toUserID int64) (time.Time, bool, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return time.Time{}, false, fmt.Errorf("invalid attempt lookup payload")
	}
	if r.pool == nil {
		return time.Time{}, false, fmt.Errorf("postgres pool is nil")
	}

	var at time.Time
	err := r.pool.QueryRow(ctx, `
SELECT created_at
FROM like_edges
WHERE from_user_id = $1 AND to_user_id = $2
ORDER BY created_at DESC
LIMIT 1
`, fromUserID, toUserID).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("lookup last like attempt: %w", err)
	}

	return at, true, nil
}

func (r *LikeRepo) queryRow(ctx context.Context, tx pgx.Tx, query string, args ...any) pgx.Row {
	if tx != nil {
		return tx.QueryRow(ctx, query, args...)
	}
	return r.pool.QueryRow(ctx, query, args...)
}

func scanLikeEdge(row pgx.Row) (LikeEdgeRecord, error) {
	var record LikeEdgeRecord
	err := row.Scan(
		&record.ID,
		&record.FromUserID,
		&record.ToUserID,
		&record.GroupID,
		&record.IsSuper,
		&record.ConsumedByMatch,
		&record.CorrelationID,
		&record.CreatedAt,
	)
	return record, err
}

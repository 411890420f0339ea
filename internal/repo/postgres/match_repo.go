package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMatchNotFound = errors.New("match not found")

const (
	matchStatusActive    = "active"
	matchStatusDissolved = "dissolved"
)

type MatchRepo struct {
	pool *pgxpool.Pool
}

type MatchRecord struct {
	ID            int64
	UserAID       int64
	UserBID       int64
	GroupID       int64
	ChatChannelID string
	Status        string
	CreatedAt     time.Time
	DissolvedAt   *time.Time
}

type ActiveMatchItem struct {
	ID            int64
	TargetUserID  int64
	Nickname      string
	ChatChannelID string
	MatchedAt     time.Time
}

func (m MatchRecord) Active() bool {
	return m.Status == matchStatusActive
}

func NewMatchRepo(pool *pgxpool.Pool) *MatchRepo {
	return &MatchRepo{pool: pool}
}

// CreateIfMutualLike promotes the pair to a match when the reciprocal edge
// exists. The insert is idempotent: the partial unique index on
// (user_a_id, user_b_id, group_id) for active rows absorbs the race where both
// directions commit concurrently, and the existing match is returned instead.
func (r *MatchRepo) CreateIfMutualLike(ctx context.Context, tx pgx.Tx, userID, targetID, groupID int64, chatChannelID string) (MatchRecord, bool, error) {
	if userID <= 0 || targetID <= 0 {
		return MatchRecord{}, false, fmt.Errorf("invalid match payload")
	}
	if tx == nil {
		return MatchRecord{}, false, fmt.Errorf("transaction is required")
	}

	var one int
	err := tx.QueryRow(ctx, `
SELECT 1
FROM like_edges
WHERE from_user_id = $1 AND to_user_id = $2 AND group_id = $3 AND consumed_by_match = FALSE
LIMIT 1
`, targetID, userID, groupID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, false, nil
		}
		return MatchRecord{}, false, fmt.Errorf("lookup reciprocal like: %w", err)
	}

	userA := userID
	userB := targetID
	if userA > userB {
		userA, userB = userB, userA
	}

	record, err := scanMatch(tx.QueryRow(ctx, `
INSERT INTO matches (
	user_a_id,
	user_b_id,
	group_id,
	chat_channel_id,
	status,
	created_at
) VALUES ($1, $2, $3, $4, 'active', NOW())
ON CONFLICT (user_a_id, user_b_id, group_id) WHERE status = 'active' DO NOTHING
RETURNING id, user_a_id, user_b_id, group_id, chat_channel_id, status, created_at, dissolved_at
`, userA, userB, groupID, chatChannelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, findErr := r.findActiveByPair(ctx, tx, userA, userB, groupID)
			if findErr != nil {
				return MatchRecord{}, false, findErr
			}
			return existing, false, nil
		}
		return MatchRecord{}, false, fmt.Errorf("create match: %w", err)
	}

	return record, true, nil
}

func (r *MatchRepo) FindByID(ctx context.Context, matchID int64) (MatchRecord, error) {
	if matchID <= 0 {
		return MatchRecord{}, fmt.Errorf("invalid match id")
	}
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}

	record, err := scanMatch(r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, group_id, chat_channel_id, status, created_at, dissolved_at
FROM matches
WHERE id = $1
LIMIT 1
`, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("find match by id: %w", err)
	}

	return record, nil
}

func (r *MatchRepo) FindActiveByPair(ctx context.Context, userIDA, userIDB, groupID int64) (MatchRecord, error) {
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userIDA > userIDB {
		userIDA, userIDB = userIDB, userIDA
	}
	return r.findActiveByPairRow(r.pool.QueryRow(ctx, activeByPairQuery, userIDA, userIDB, groupID))
}

func (r *MatchRepo) findActiveByPair(ctx context.Context, tx pgx.Tx, userIDA, userIDB, groupID int64) (MatchRecord, error) {
	return r.findActiveByPairRow(tx.QueryRow(ctx, activeByPairQuery, userIDA, userIDB, groupID))
}

// FindLatestByPair returns the most recent match for the pair regardless of
// status, so callers can distinguish "never matched" from "unmatched".
func (r *MatchRepo) FindLatestByPair(ctx context.Context, userIDA, userIDB, groupID int64) (MatchRecord, error) {
	if r.pool == nil {
		return MatchRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userIDA > userIDB {
		userIDA, userIDB = userIDB, userIDA
	}

	record, err := scanMatch(r.pool.QueryRow(ctx, `
SELECT id, user_a_id, user_b_id, group_id, chat_channel_id, status, created_at, dissolved_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2 AND group_id = $3
ORDER BY created_at DESC
LIMIT 1
`, userIDA, userIDB, groupID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("find latest match by pair: %w", err)
	}

	return record, nil
}

const activeByPairQuery = `
SELECT id, user_a_id, user_b_id, group_id, chat_channel_id, status, created_at, dissolved_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2 AND group_id = $3 AND status = 'active'
LIMIT 1
`

func (r *MatchRepo) findActiveByPairRow(row pgx.Row) (MatchRecord, error) {
	record, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, ErrMatchNotFound
		}
		return MatchRecord{}, fmt.Errorf("find active match by pair: %w", err)
	}
	return record, nil
}

func (r *MatchRepo) ListActiveForUser(ctx context.Context, userID int64, limit int) ([]ActiveMatchItem, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 {
		limit = 100
	}
	if r.pool == nil {
		return []ActiveMatchItem{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT
	m.id,
	CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END AS target_user_id,
	COALESCE(p.nickname, ''),
	m.chat_channel_id,
	m.created_at
FROM matches m
LEFT JOIN profiles p ON p.user_id = CASE WHEN m.user_a_id = $1 THEN m.user_b_id ELSE m.user_a_id END
WHERE
	(m.user_a_id = $1 OR m.user_b_id = $1)
	AND m.status = 'active'
ORDER BY m.created_at DESC, m.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}
	defer rows.Close()

	items := make([]ActiveMatchItem, 0, limit)
	for rows.Next() {
		var item ActiveMatchItem
		if err := rows.Scan(
			&item.ID,
			&item.TargetUserID,
			&item.Nickname,
			&item.ChatChannelID,
			&item.MatchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan active match: %w", err)
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate active matches: %w", rows.Err())
	}

	return items, nil
}

// LastDissolvedAt returns the newest dissolve time for the pair across all
// groups. Accepts either orientation.
func (r *MatchRepo) LastDissolvedAt(ctx context.Context, userIDA, userIDB int64) (time.Time, bool, error) {
	if userIDA <= 0 || userIDB <= 0 {
		return time.Time{}, false, fmt.Errorf("invalid pair")
	}
	if r.pool == nil {
		return time.Time{}, false, fmt.Errorf("postgres pool is nil")
	}
	if userIDA > userIDB {
		userIDA, userIDB = userIDB, userIDA
	}

	var dissolvedAt time.Time
	err := r.pool.QueryRow(ctx, `
SELECT dissolved_at
FROM matches
WHERE user_a_id = $1 AND user_b_id = $2 AND dissolved_at IS NOT NULL
ORDER BY dissolved_at DESC
LIMIT 1
`, userIDA, userIDB).Scan(&dissolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("find last dissolve for pair: %w", err)
	}

	return dissolvedAt, true, nil
}

// Dissolve deactivates a match. Rows are never hard-deleted so the pair's
// history stays queryable for moderation.
func (r *MatchRepo) Dissolve(ctx context.Context, tx pgx.Tx, matchID int64) (MatchRecord, bool, error) {
	if matchID <= 0 {
		return MatchRecord{}, false, fmt.Errorf("invalid match id")
	}
	if tx == nil {
		return MatchRecord{}, false, fmt.Errorf("transaction is required")
	}

	record, err := scanMatch(tx.QueryRow(ctx, `
UPDATE matches
SET status = 'dissolved', dissolved_at = NOW()
WHERE id = $1 AND status = 'active'
RETURNING id, user_a_id, user_b_id, group_id, chat_channel_id, status, created_at, dissolved_at
`, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MatchRecord{}, false, nil
		}
		return MatchRecord{}, false, fmt.Errorf("dissolve match: %w", err)
	}

	return record, true, nil
}

func (r *MatchRepo) InsertMismatchReport(ctx context.Context, tx pgx.Tx, matchID, reporterUserID int64, reason, details string) error {
	if matchID <= 0 || reporterUserID <= 0 {
		return fmt.Errorf("invalid mismatch report payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO mismatch_reports (
	match_id,
	reporter_user_id,
	reason,
	details,
	created_at
) VALUES ($1, $2, $3, $4, NOW())
`, matchID, reporterUserID, reason, details); err != nil {
		return fmt.Errorf("insert mismatch report: %w", err)
	}

	return nil
}

func scanMatch(row pgx.Row) (MatchRecord, error) {
	var record MatchRecord
	err := row.Scan(
		&record.ID,
		&record.UserAID,
		&record.UserBID,
		&record.GroupID,
		&record.ChatChannelID,
		&record.Status,
		&record.CreatedAt,
		&record.DissolvedAt,
	)
	return record, err
}

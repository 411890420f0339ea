package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProfileNotFound = errors.New("profile not found")
)

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID        int64
	Nickname  string
	Pseudonym string
	Verified  bool
	IsPremium bool
	CreatedAt time.Time
}

type ProfileRecord struct {
	UserID     int64
	Nickname   string
	Pseudonym  string
	Age        int
	GroupID    int64
	City       string
	PhoneE164  string
	SharePhone bool
	ShareCity  bool
	UpdatedAt  time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Get(ctx context.Context, userID int64) (UserRecord, error) {
	if userID <= 0 {
		return UserRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var record UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, nickname, pseudonym, verified, is_premium, created_at
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(
		&record.ID,
		&record.Nickname,
		&record.Pseudonym,
		&record.Verified,
		&record.IsPremium,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}

	return record, nil
}

func (r *UserRepo) IsPremium(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return false, nil
	}

	var isPremium bool
	err := r.pool.QueryRow(ctx, `
SELECT is_premium
FROM users
WHERE id = $1
LIMIT 1
`, userID).Scan(&isPremium)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("get premium flag: %w", err)
	}

	return isPremium, nil
}

func (r *UserRepo) GetProfile(ctx context.Context, userID int64) (ProfileRecord, error) {
	if userID <= 0 {
		return ProfileRecord{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ProfileRecord{}, fmt.Errorf("postgres pool is nil")
	}

	var record ProfileRecord
	err := r.pool.QueryRow(ctx, `
SELECT
	p.user_id,
	COALESCE(p.nickname, ''),
	COALESCE(p.pseudonym, ''),
	COALESCE(DATE_PART('year', AGE(NOW(), p.birthdate::timestamp))::int, 0),
	p.group_id,
	COALESCE(p.city, ''),
	COALESCE(p.phone_e164, ''),
	p.share_phone,
	p.share_city,
	p.updated_at
FROM profiles p
WHERE p.user_id = $1
LIMIT 1
`, userID).Scan(
		&record.UserID,
		&record.Nickname,
		&record.Pseudonym,
		&record.Age,
		&record.GroupID,
		&record.City,
		&record.PhoneE164,
		&record.SharePhone,
		&record.ShareCity,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProfileRecord{}, ErrProfileNotFound
		}
		return ProfileRecord{}, fmt.Errorf("get profile: %w", err)
	}

	return record, nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
)

const (
	sessionKeyPrefix = "auth:session:"
	refreshKeyPrefix = "auth:refresh:"
	pointerKeyPrefix = "auth:session_refresh:"
)

// SessionRepo keeps sessions in redis as JSON documents. Three keys per
// session: the session itself, the refresh token (pointing back at the
// session), and a session→refresh pointer so logout can sweep all three.
type SessionRepo struct {
	client *goredis.Client
}

type sessionDoc struct {
	SID       string `json:"sid"`
	UserID    int64  `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client}
}

func (r *SessionRepo) Create(ctx context.Context, session authsvc.SessionRecord, refreshToken string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(session.SID) == "" || strings.TrimSpace(refreshToken) == "" || session.UserID <= 0 {
		return authsvc.ErrInvalidInput
	}

	return r.write(ctx, session, refreshToken, "")
}

func (r *SessionRepo) GetSession(ctx context.Context, sid string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	record, err := r.load(ctx, sessionKeyPrefix+sid)
	if errors.Is(err, goredis.Nil) {
		return authsvc.SessionRecord{}, authsvc.ErrSessionNotFound
	}
	return record, err
}

func (r *SessionRepo) GetByRefreshToken(ctx context.Context, refreshToken string) (authsvc.SessionRecord, error) {
	if r.client == nil {
		return authsvc.SessionRecord{}, fmt.Errorf("redis client is nil")
	}

	record, err := r.load(ctx, refreshKeyPrefix+refreshToken)
	if errors.Is(err, goredis.Nil) {
		return authsvc.SessionRecord{}, authsvc.ErrRefreshNotFound
	}
	return record, err
}

// RotateRefresh atomically replaces the refresh token and extends the
// session. The old token dies in the same pipeline, so a replayed old token
// can never mint a second session.
func (r *SessionRepo) RotateRefresh(ctx context.Context, sid, oldRefreshToken, newRefreshToken string, expiresAt time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}

	session, err := r.GetByRefreshToken(ctx, oldRefreshToken)
	if err != nil {
		return err
	}
	if sid != "" && sid != session.SID {
		return authsvc.ErrRefreshNotFound
	}

	session.ExpiresAt = expiresAt
	return r.write(ctx, session, newRefreshToken, oldRefreshToken)
}

func (r *SessionRepo) DeleteSession(ctx context.Context, sid string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(sid) == "" {
		return nil
	}

	refreshToken, err := r.client.Get(ctx, pointerKeyPrefix+sid).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return fmt.Errorf("load session refresh pointer: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKeyPrefix+sid)
	pipe.Del(ctx, pointerKeyPrefix+sid)
	if refreshToken != "" {
		pipe.Del(ctx, refreshKeyPrefix+refreshToken)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// write stores all three keys for a session in one pipeline, deleting the
// superseded refresh token when one is given.
func (r *SessionRepo) write(ctx context.Context, session authsvc.SessionRecord, refreshToken, oldRefreshToken string) error {
	doc, err := json.Marshal(sessionDoc{
		SID:       session.SID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal session doc: %w", err)
	}

	ttl := ttlFor(session.ExpiresAt)

	pipe := r.client.TxPipeline()
	if oldRefreshToken != "" {
		pipe.Del(ctx, refreshKeyPrefix+oldRefreshToken)
	}
	pipe.Set(ctx, sessionKeyPrefix+session.SID, doc, ttl)
	pipe.Set(ctx, refreshKeyPrefix+refreshToken, doc, ttl)
	pipe.Set(ctx, pointerKeyPrefix+session.SID, refreshToken, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write redis session: %w", err)
	}

	return nil
}

func (r *SessionRepo) load(ctx context.Context, key string) (authsvc.SessionRecord, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return authsvc.SessionRecord{}, err
		}
		return authsvc.SessionRecord{}, fmt.Errorf("get session doc: %w", err)
	}

	var doc sessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return authsvc.SessionRecord{}, fmt.Errorf("unmarshal session doc: %w", err)
	}
	if doc.UserID <= 0 || doc.SID == "" {
		return authsvc.SessionRecord{}, authsvc.ErrUnauthorized
	}

	return authsvc.SessionRecord{
		SID:       doc.SID,
		UserID:    doc.UserID,
		ExpiresAt: time.Unix(doc.ExpiresAt, 0).UTC(),
	}, nil
}

func ttlFor(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}

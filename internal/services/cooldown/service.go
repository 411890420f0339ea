package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrValidation = errors.New("validation error")

type HotStore interface {
	Record(ctx context.Context, fromUserID, toUserID int64, at time.Time, window time.Duration) error
	Remaining(ctx context.Context, fromUserID, toUserID int64) (time.Duration, bool, error)
	Clear(ctx context.Context, fromUserID, toUserID int64) error
}

type AttemptLog interface {
	LastAttemptAt(ctx context.Context, fromUserID, toUserID int64) (time.Time, bool, error)
}

// DissolutionLog is the durable record of dissolved matches. A dissolve
// re-arms the pair cooldown, and the redis key alone cannot be trusted to
// outlive the window.
type DissolutionLog interface {
	LastDissolvedAt(ctx context.Context, userIDA, userIDB int64) (time.Time, bool, error)
}

type Config struct {
	Window time.Duration
}

const DefaultWindow = 14 * 24 * time.Hour

type Service struct {
	hot          HotStore
	attempts     AttemptLog
	dissolutions DissolutionLog
	cfg          Config
	now          func() time.Time
}

type Dependencies struct {
	Hot          HotStore
	Attempts     AttemptLog
	Dissolutions DissolutionLog
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	return &Service{
		hot:          deps.Hot,
		attempts:     deps.Attempts,
		dissolutions: deps.Dissolutions,
		cfg:          cfg,
		now:          time.Now,
	}
}

func (s *Service) Window() time.Duration {
	return s.cfg.Window
}

// IsCoolingDown reports whether a fresh attempt from one user toward another
// is still blocked, and until when. Redis is the hot path; when it has no key
// the durable attempt log decides, so an evicted key never opens the window
// early. A redis failure is returned as an error, never treated as "no
// cooldown".
func (s *Service) IsCoolingDown(ctx context.Context, fromUserID, toUserID int64) (bool, time.Time, error) {
	if fromUserID <= 0 || toUserID <= 0 {
		return false, time.Time{}, ErrValidation
	}
	if s.hot == nil || s.attempts == nil {
		return false, time.Time{}, fmt.Errorf("cooldown dependencies are not configured")
	}

	now := s.now().UTC()

	remaining, found, err := s.hot.Remaining(ctx, fromUserID, toUserID)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("read cooldown state: %w", err)
	}
	if found {
		return true, now.Add(remaining), nil
	}

	lastAt, found, err := s.attempts.LastAttemptAt(ctx, fromUserID, toUserID)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("read last attempt: %w", err)
	}

	// a dissolve re-arms the window, and it may be newer than the last
	// attempt the like edges remember
	if s.dissolutions != nil {
		dissolvedAt, dissolved, err := s.dissolutions.LastDissolvedAt(ctx, fromUserID, toUserID)
		if err != nil {
			return false, time.Time{}, fmt.Errorf("read last dissolve: %w", err)
		}
		if dissolved && (!found || dissolvedAt.After(lastAt)) {
			lastAt = dissolvedAt
			found = true
		}
	}
	if !found {
		return false, time.Time{}, nil
	}

	coolsUntil := lastAt.UTC().Add(s.cfg.Window)
	if coolsUntil.After(now) {
		return true, coolsUntil, nil
	}
	return false, time.Time{}, nil
}

func (s *Service) Record(ctx context.Context, fromUserID, toUserID int64, at time.Time) error {
	if fromUserID <= 0 || toUserID <= 0 {
		return ErrValidation
	}
	if s.hot == nil {
		return fmt.Errorf("cooldown dependencies are not configured")
	}
	if at.IsZero() {
		at = s.now()
	}

	if err := s.hot.Record(ctx, fromUserID, toUserID, at.UTC(), s.cfg.Window); err != nil {
		return fmt.Errorf("record cooldown: %w", err)
	}
	return nil
}

// RecordPair re-arms the cooldown in both directions, used when a mismatch
// report dissolves a match.
func (s *Service) RecordPair(ctx context.Context, userIDA, userIDB int64, at time.Time) error {
	if err := s.Record(ctx, userIDA, userIDB, at); err != nil {
		return err
	}
	return s.Record(ctx, userIDB, userIDA, at)
}

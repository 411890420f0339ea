package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("user is not part of this match")
	ErrInvalidReason  = errors.New("invalid mismatch reason")
)

type MatchStore interface {
	FindByID(ctx context.Context, matchID int64) (pgrepo.MatchRecord, error)
	ListActiveForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.ActiveMatchItem, error)
	Dissolve(ctx context.Context, tx pgx.Tx, matchID int64) (pgrepo.MatchRecord, bool, error)
	InsertMismatchReport(ctx context.Context, tx pgx.Tx, matchID, reporterUserID int64, reason, details string) error
}

type CooldownTracker interface {
	RecordPair(ctx context.Context, userIDA, userIDB int64, at time.Time) error
}

type EventRecorder interface {
	Record(ctx context.Context, userID *int64, event pgrepo.EventRecord) error
}

type Config struct {
	ListLimit int
}

type Summary struct {
	MatchID       int64     `json:"match_id"`
	TargetUserID  int64     `json:"target_user_id"`
	Nickname      string    `json:"nickname"`
	ChatChannelID string    `json:"chat_channel_id"`
	MatchedAt     time.Time `json:"matched_at"`
}

type Service struct {
	matchStore MatchStore
	cooldowns  CooldownTracker
	events     EventRecorder
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	runInTx func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type Dependencies struct {
	Pool       *pgxpool.Pool
	MatchStore MatchStore
	Cooldowns  CooldownTracker
	Events     EventRecorder
	Logger     *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{
		matchStore: deps.MatchStore,
		cooldowns:  deps.Cooldowns,
		events:     deps.Events,
		cfg:        cfg,
		logger:     deps.Logger,
		now:        time.Now,
		runInTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

func (s *Service) List(ctx context.Context, userID int64) ([]Summary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.matchStore == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}

	items, err := s.matchStore.ListActiveForUser(ctx, userID, s.cfg.ListLimit)
	if err != nil {
		return nil, fmt.Errorf("list active matches: %w", err)
	}

	summaries := make([]Summary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, Summary{
			MatchID:       item.ID,
			TargetUserID:  item.TargetUserID,
			Nickname:      item.Nickname,
			ChatChannelID: item.ChatChannelID,
			MatchedAt:     item.MatchedAt,
		})
	}
	return summaries, nil
}

// Unmatch dissolves an active match. Dissolving an already dissolved match is
// a no-op, so client retries are safe. Both directions of the pair cooldown
// are re-armed: unmatching does not buy an immediate second attempt.
func (s *Service) Unmatch(ctx context.Context, matchID, byUserID int64) error {
	dissolved, err := s.dissolve(ctx, matchID, byUserID, func(context.Context, pgx.Tx, pgrepo.MatchRecord) error {
		return nil
	})
	if err != nil {
		return err
	}
	if dissolved != nil {
		s.afterDissolve(ctx, *dissolved, "unmatch")
	}
	return nil
}

// ReportMismatch records the reporter's reason and dissolves the match. The
// report row is written even when the match was already dissolved, so a
// second participant can still file their own reason.
func (s *Service) ReportMismatch(ctx context.Context, matchID, byUserID int64, reason enums.MismatchReason, details string) error {
	if !validReason(reason) {
		return ErrInvalidReason
	}

	dissolved, err := s.dissolve(ctx, matchID, byUserID, func(txCtx context.Context, tx pgx.Tx, record pgrepo.MatchRecord) error {
		return s.matchStore.InsertMismatchReport(txCtx, tx, record.ID, byUserID, string(reason), strings.TrimSpace(details))
	})
	if err != nil {
		return err
	}
	if dissolved != nil {
		s.afterDissolve(ctx, *dissolved, string(reason))
	}
	return nil
}

// dissolve runs the shared participant checks and transaction. extra runs
// inside the transaction whether or not the match was still active. The
// returned record is non-nil only when this call flipped the match to
// dissolved.
func (s *Service) dissolve(ctx context.Context, matchID, byUserID int64, extra func(context.Context, pgx.Tx, pgrepo.MatchRecord) error) (*pgrepo.MatchRecord, error) {
	if matchID <= 0 || byUserID <= 0 {
		return nil, ErrValidation
	}
	if s.matchStore == nil || s.cooldowns == nil {
		return nil, fmt.Errorf("match dependencies are not configured")
	}

	record, err := s.matchStore.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if record.UserAID != byUserID && record.UserBID != byUserID {
		return nil, ErrNotParticipant
	}

	var (
		dissolvedRecord pgrepo.MatchRecord
		flipped         bool
	)
	err = s.runInTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		dissolvedRecord, flipped, err = s.matchStore.Dissolve(txCtx, tx, matchID)
		if err != nil {
			return err
		}
		return extra(txCtx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	if !flipped {
		return nil, nil
	}
	return &dissolvedRecord, nil
}

func (s *Service) afterDissolve(ctx context.Context, record pgrepo.MatchRecord, cause string) {
	now := s.now().UTC()

	// the dissolve row in matches keeps the re-armed window durable; redis
	// is only the hot path, so a failed write costs a fallback query, not
	// the window itself
	if err := s.cooldowns.RecordPair(ctx, record.UserAID, record.UserBID, now); err != nil {
		s.logger.Warn("re-arm pair cooldown",
			zap.Int64("match_id", record.ID),
			zap.Error(err))
	}

	if s.events == nil {
		return
	}
	err := s.events.Record(ctx, nil, pgrepo.EventRecord{
		Name:       model.EventMatchDissolved,
		OccurredAt: now,
		Props: map[string]any{
			"match_id":  record.ID,
			"user_a_id": record.UserAID,
			"user_b_id": record.UserBID,
			"group_id":  record.GroupID,
			"cause":     cause,
		},
	})
	if err != nil {
		s.logger.Warn("record match_dissolved event", zap.Int64("match_id", record.ID), zap.Error(err))
	}
}

func validReason(reason enums.MismatchReason) bool {
	switch reason {
	case enums.MismatchReasonNotInterested,
		enums.MismatchReasonWrongPerson,
		enums.MismatchReasonFake,
		enums.MismatchReasonAbusive,
		enums.MismatchReasonOther:
		return true
	default:
		return false
	}
}

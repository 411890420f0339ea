package likes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
	creditssvc "github.com/b0ho/glimpse-backend/internal/services/credits"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrLikeNotFound        = errors.New("like not found")
	ErrNotSender           = errors.New("only the sender can cancel a like")
	ErrLikeConsumed        = errors.New("like already consumed by a match")
	ErrCancelWindowExpired = errors.New("cancel window expired")
)

// rejection outcomes roll the transaction back without surfacing as errors
var errRejected = errors.New("like attempt rejected")

// Namespace for deterministic chat channel IDs. Both sides derive the same
// channel for a pair without coordination.
var chatChannelNamespace = uuid.MustParse("7d1f3bb2-56c4-4a8e-9f0d-c1a2b3d4e5f6")

type LikeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, fromUserID, toUserID, groupID int64, isSuper bool, correlationID string) (pgrepo.LikeEdgeRecord, error)
	GetActive(ctx context.Context, tx pgx.Tx, fromUserID, toUserID, groupID int64) (pgrepo.LikeEdgeRecord, error)
	GetByID(ctx context.Context, likeEdgeID int64) (pgrepo.LikeEdgeRecord, error)
	DeleteByID(ctx context.Context, tx pgx.Tx, likeEdgeID int64) (bool, error)
	MarkPairConsumed(ctx context.Context, tx pgx.Tx, userIDA, userIDB, groupID int64) error
}

type MatchStore interface {
	CreateIfMutualLike(ctx context.Context, tx pgx.Tx, userID, targetID, groupID int64, chatChannelID string) (pgrepo.MatchRecord, bool, error)
	FindLatestByPair(ctx context.Context, userIDA, userIDB, groupID int64) (pgrepo.MatchRecord, error)
}

type CreditLedger interface {
	Balance(ctx context.Context, userID int64) (model.CreditBalance, error)
	Debit(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (creditssvc.DebitResult, error)
	DayKey(at time.Time) string
}

type CooldownTracker interface {
	IsCoolingDown(ctx context.Context, fromUserID, toUserID int64) (bool, time.Time, error)
	Record(ctx context.Context, fromUserID, toUserID int64, at time.Time) error
	Window() time.Duration
}

type UserStore interface {
	IsPremium(ctx context.Context, userID int64) (bool, error)
}

type EventRecorder interface {
	Record(ctx context.Context, userID *int64, event pgrepo.EventRecord) error
}

type Config struct {
	CancelGrace time.Duration
}

type Rejection struct {
	Reason     enums.RejectionReason `json:"reason"`
	CoolsUntil *time.Time            `json:"cools_until,omitempty"`
}

type SendLikeResult struct {
	Like      model.LikeEdge
	IsMatch   bool
	Match     *model.Match
	Rejection *Rejection
}

type Service struct {
	likeStore  LikeStore
	matchStore MatchStore
	credits    CreditLedger
	cooldowns  CooldownTracker
	userStore  UserStore
	events     EventRecorder
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	runInTx  func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
	lockPair func(ctx context.Context, tx pgx.Tx, userIDA, userIDB, groupID int64) error
}

type Dependencies struct {
	Pool       *pgxpool.Pool
	LikeStore  LikeStore
	MatchStore MatchStore
	Credits    CreditLedger
	Cooldowns  CooldownTracker
	UserStore  UserStore
	Events     EventRecorder
	Logger     *zap.Logger
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.CancelGrace <= 0 {
		cfg.CancelGrace = 24 * time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{
		likeStore:  deps.LikeStore,
		matchStore: deps.MatchStore,
		credits:    deps.Credits,
		cooldowns:  deps.Cooldowns,
		userStore:  deps.UserStore,
		events:     deps.Events,
		cfg:        cfg,
		logger:     deps.Logger,
		now:        time.Now,
		runInTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
		lockPair: pgrepo.LockPair,
	}
}

// SendLike runs the full like attempt. A rejection is a normal outcome
// carried in the result; an error means infrastructure failed and nothing
// can be said about the attempt.
func (s *Service) SendLike(ctx context.Context, fromUserID, toUserID, groupID int64, isSuper bool, correlationID string) (SendLikeResult, error) {
	if fromUserID <= 0 || toUserID <= 0 || groupID <= 0 {
		return SendLikeResult{}, ErrValidation
	}
	if s.likeStore == nil || s.matchStore == nil || s.credits == nil || s.cooldowns == nil || s.userStore == nil {
		return SendLikeResult{}, fmt.Errorf("like dependencies are not configured")
	}

	if fromUserID == toUserID {
		return rejected(enums.RejectionSelfLikeForbidden, nil), nil
	}

	coolingDown, coolsUntil, err := s.cooldowns.IsCoolingDown(ctx, fromUserID, toUserID)
	if err != nil {
		return SendLikeResult{}, err
	}
	if coolingDown {
		return rejected(enums.RejectionCooldownActive, &coolsUntil), nil
	}

	// clients that skip the correlation ID still need one: the edge row
	// carries it so a retried replacement can be told apart from a dupe
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	existing, err := s.likeStore.GetActive(ctx, nil, fromUserID, toUserID, groupID)
	switch {
	case err == nil:
		replaceable, repErr := s.edgeReplaceable(ctx, existing)
		if repErr != nil {
			return SendLikeResult{}, repErr
		}
		if !replaceable {
			return s.resolveExistingEdge(ctx, existing, correlationID)
		}
		// the stored edge is spent; fall through and start a fresh cycle
	case !errors.Is(err, pgrepo.ErrLikeNotFound):
		return SendLikeResult{}, err
	}

	if isSuper {
		premium, err := s.userStore.IsPremium(ctx, fromUserID)
		if err != nil {
			return SendLikeResult{}, fmt.Errorf("resolve premium flag: %w", err)
		}
		if !premium {
			return rejected(enums.RejectionPremiumRequired, nil), nil
		}
	}

	balance, err := s.credits.Balance(ctx, fromUserID)
	if err != nil {
		return SendLikeResult{}, err
	}

	now := s.now().UTC()
	unlimited := balance.Unlimited(now)
	dayKey := s.credits.DayKey(now)

	var (
		edge         pgrepo.LikeEdgeRecord
		matchRecord  pgrepo.MatchRecord
		matchCreated bool
		replay       *SendLikeResult
	)
	txErr := s.runInTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.lockPair(txCtx, tx, fromUserID, toUserID, groupID); err != nil {
			return err
		}

		// re-check under the pair lock: a concurrent attempt may have
		// landed between the pre-check and here
		current, err := s.likeStore.GetActive(txCtx, tx, fromUserID, toUserID, groupID)
		if err == nil {
			replaceable, repErr := s.edgeReplaceable(txCtx, current)
			if repErr != nil {
				return repErr
			}
			if !replaceable {
				result, resolveErr := s.resolveExistingEdge(txCtx, current, correlationID)
				if resolveErr != nil {
					return resolveErr
				}
				replay = &result
				return nil
			}
		} else if !errors.Is(err, pgrepo.ErrLikeNotFound) {
			return err
		}

		if !unlimited {
			debit, err := s.credits.Debit(txCtx, tx, fromUserID, dayKey)
			if err != nil {
				return err
			}
			if debit == creditssvc.DebitRejected {
				return errRejected
			}
		}

		edge, err = s.likeStore.Upsert(txCtx, tx, fromUserID, toUserID, groupID, isSuper, correlationID)
		if err != nil {
			return err
		}

		matchRecord, matchCreated, err = s.matchStore.CreateIfMutualLike(txCtx, tx, fromUserID, toUserID, groupID, ChatChannelID(fromUserID, toUserID, groupID))
		if err != nil {
			return err
		}
		if matchCreated {
			if err := s.likeStore.MarkPairConsumed(txCtx, tx, fromUserID, toUserID, groupID); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, errRejected) {
			return rejected(enums.RejectionNoCredits, nil), nil
		}
		return SendLikeResult{}, txErr
	}
	if replay != nil {
		return *replay, nil
	}

	// redis record failure is survivable: the edge row keeps the window
	// through the durable fallback
	if err := s.cooldowns.Record(ctx, fromUserID, toUserID, now); err != nil {
		s.logger.Warn("record like cooldown",
			zap.Int64("from_user_id", fromUserID),
			zap.Int64("to_user_id", toUserID),
			zap.Error(err))
	}

	result := SendLikeResult{Like: likeToModel(edge)}
	if matchRecord.ID != 0 {
		match := matchToModel(matchRecord)
		result.IsMatch = true
		result.Match = &match
		if matchCreated {
			s.emitMatchCreated(ctx, match)
		}
	}

	return result, nil
}

// edgeReplaceable reports whether a stored edge no longer blocks a fresh
// like cycle. A consumed edge is spent once its match is gone or dissolved;
// a pending edge expires with the cooldown window.
func (s *Service) edgeReplaceable(ctx context.Context, edge pgrepo.LikeEdgeRecord) (bool, error) {
	if edge.ConsumedByMatch {
		matchRecord, err := s.matchStore.FindLatestByPair(ctx, edge.FromUserID, edge.ToUserID, edge.GroupID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrMatchNotFound) {
				return true, nil
			}
			return false, err
		}
		return !matchRecord.Active(), nil
	}
	return s.now().UTC().Sub(edge.CreatedAt.UTC()) >= s.cooldowns.Window(), nil
}

// resolveExistingEdge decides what an attempt means when an active edge is
// already present. The same correlation ID is a retried sync and replays the
// original success; anything else is an ALREADY_LIKED rejection.
func (s *Service) resolveExistingEdge(ctx context.Context, edge pgrepo.LikeEdgeRecord, correlationID string) (SendLikeResult, error) {
	if edge.CorrelationID != correlationID {
		return rejected(enums.RejectionAlreadyLiked, nil), nil
	}

	result := SendLikeResult{Like: likeToModel(edge)}
	matchRecord, err := s.matchStore.FindLatestByPair(ctx, edge.FromUserID, edge.ToUserID, edge.GroupID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return result, nil
		}
		return SendLikeResult{}, err
	}
	if matchRecord.Active() {
		match := matchToModel(matchRecord)
		result.IsMatch = true
		result.Match = &match
	}
	return result, nil
}

// CancelLike removes a like the caller sent, inside the grace window and only
// while no match consumed it. The cooldown stays armed: cancelling does not
// buy another attempt at the same person.
func (s *Service) CancelLike(ctx context.Context, likeEdgeID, byUserID int64) error {
	if likeEdgeID <= 0 || byUserID <= 0 {
		return ErrValidation
	}
	if s.likeStore == nil {
		return fmt.Errorf("like dependencies are not configured")
	}

	edge, err := s.likeStore.GetByID(ctx, likeEdgeID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrLikeNotFound) {
			return ErrLikeNotFound
		}
		return err
	}
	if edge.FromUserID != byUserID {
		return ErrNotSender
	}

	return s.runInTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.lockPair(txCtx, tx, edge.FromUserID, edge.ToUserID, edge.GroupID); err != nil {
			return err
		}

		current, err := s.likeStore.GetActive(txCtx, tx, edge.FromUserID, edge.ToUserID, edge.GroupID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrLikeNotFound) {
				return ErrLikeNotFound
			}
			return err
		}
		if current.ID != likeEdgeID {
			return ErrLikeNotFound
		}
		if current.ConsumedByMatch {
			return ErrLikeConsumed
		}
		if s.now().UTC().Sub(current.CreatedAt.UTC()) > s.cfg.CancelGrace {
			return ErrCancelWindowExpired
		}

		deleted, err := s.likeStore.DeleteByID(txCtx, tx, likeEdgeID)
		if err != nil {
			return err
		}
		if !deleted {
			return ErrLikeNotFound
		}
		return nil
	})
}

// RelationshipState is the directed view from a viewer onto a subject, used
// by the reveal policy.
func (s *Service) RelationshipState(ctx context.Context, viewerID, subjectID, groupID int64) (enums.RelationshipState, error) {
	if viewerID <= 0 || subjectID <= 0 || groupID <= 0 || viewerID == subjectID {
		return enums.RelationshipNone, ErrValidation
	}
	if s.likeStore == nil || s.matchStore == nil {
		return enums.RelationshipNone, fmt.Errorf("like dependencies are not configured")
	}

	matchRecord, err := s.matchStore.FindLatestByPair(ctx, viewerID, subjectID, groupID)
	switch {
	case err == nil:
		if matchRecord.Active() {
			return enums.RelationshipMatched, nil
		}
		return enums.RelationshipUnmatched, nil
	case !errors.Is(err, pgrepo.ErrMatchNotFound):
		return enums.RelationshipNone, err
	}

	_, err = s.likeStore.GetActive(ctx, nil, viewerID, subjectID, groupID)
	switch {
	case err == nil:
		return enums.RelationshipLiked, nil
	case errors.Is(err, pgrepo.ErrLikeNotFound):
		return enums.RelationshipNone, nil
	default:
		return enums.RelationshipNone, err
	}
}

// ChatChannelID derives the deterministic channel for a matched pair.
func ChatChannelID(userIDA, userIDB, groupID int64) string {
	if userIDA > userIDB {
		userIDA, userIDB = userIDB, userIDA
	}
	name := strconv.FormatInt(userIDA, 10) + ":" + strconv.FormatInt(userIDB, 10) + ":" + strconv.FormatInt(groupID, 10)
	return uuid.NewSHA1(chatChannelNamespace, []byte(name)).String()
}

func (s *Service) emitMatchCreated(ctx context.Context, match model.Match) {
	if s.events == nil {
		return
	}
	// the recorder is advisory: losing an event never fails the like
	err := s.events.Record(ctx, nil, pgrepo.EventRecord{
		Name:       model.EventMatchCreated,
		OccurredAt: match.MatchedAt,
		Props: map[string]any{
			"match_id":        match.ID,
			"user_a_id":       match.UserAID,
			"user_b_id":       match.UserBID,
			"group_id":        match.GroupID,
			"chat_channel_id": match.ChatChannelID,
		},
	})
	if err != nil {
		s.logger.Warn("record match_created event", zap.Int64("match_id", match.ID), zap.Error(err))
	}
}

func rejected(reason enums.RejectionReason, coolsUntil *time.Time) SendLikeResult {
	return SendLikeResult{Rejection: &Rejection{Reason: reason, CoolsUntil: coolsUntil}}
}

func likeToModel(record pgrepo.LikeEdgeRecord) model.LikeEdge {
	return model.LikeEdge{
		ID:              record.ID,
		FromUserID:      record.FromUserID,
		ToUserID:        record.ToUserID,
		GroupID:         record.GroupID,
		IsSuper:         record.IsSuper,
		ConsumedByMatch: record.ConsumedByMatch,
		CorrelationID:   record.CorrelationID,
		CreatedAt:       record.CreatedAt,
	}
}

func matchToModel(record pgrepo.MatchRecord) model.Match {
	return model.Match{
		ID:            record.ID,
		UserAID:       record.UserAID,
		UserBID:       record.UserBID,
		GroupID:       record.GroupID,
		ChatChannelID: record.ChatChannelID,
		Active:        record.Active(),
		MatchedAt:     record.CreatedAt,
		DissolvedAt:   record.DissolvedAt,
	}
}

package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/b0ho/glimpse-backend/internal/domain/model"
	"github.com/b0ho/glimpse-backend/internal/domain/rules"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

var ErrValidation = errors.New("validation error")

// DebitResult says how a like attempt was paid for. DebitRejected is a
// normal outcome, not an error: the caller turns it into a NO_CREDITS
// rejection.
type DebitResult string

const (
	DebitConsumedFree      DebitResult = "CONSUMED_FREE"
	DebitConsumedPurchased DebitResult = "CONSUMED_PURCHASED"
	DebitRejected          DebitResult = "REJECTED"
)

type BalanceStore interface {
	Get(ctx context.Context, userID int64) (pgrepo.CreditBalanceRecord, error)
	ConsumeFree(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (bool, error)
	ConsumePurchased(ctx context.Context, tx pgx.Tx, userID int64) (bool, error)
	AddPurchased(ctx context.Context, userID int64, amount int) error
	ExtendUnlimited(ctx context.Context, userID int64, until time.Time) error
}

type Config struct {
	DefaultTimezone string
}

type Snapshot struct {
	FreeLikeAvailable bool       `json:"free_like_available"`
	PurchasedCredits  int        `json:"purchased_credits"`
	UnlimitedUntil    *time.Time `json:"unlimited_until,omitempty"`
	ResetsAt          time.Time  `json:"resets_at"`
}

type Service struct {
	store BalanceStore
	cfg   Config
	now   func() time.Time
}

type Dependencies struct {
	Store BalanceStore
}

func NewService(deps Dependencies, cfg Config) *Service {
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}

	return &Service{
		store: deps.Store,
		cfg:   cfg,
		now:   time.Now,
	}
}

func (s *Service) Balance(ctx context.Context, userID int64) (model.CreditBalance, error) {
	if userID <= 0 {
		return model.CreditBalance{}, ErrValidation
	}
	if s.store == nil {
		return model.CreditBalance{}, fmt.Errorf("credit store is not configured")
	}

	record, err := s.store.Get(ctx, userID)
	if err != nil {
		return model.CreditBalance{}, fmt.Errorf("read credit balance: %w", err)
	}

	return model.CreditBalance{
		UserID:           record.UserID,
		PurchasedCredits: record.PurchasedCredits,
		FreeLikeDay:      record.FreeLikeDay,
		UnlimitedUntil:   record.UnlimitedUntil,
		UpdatedAt:        record.UpdatedAt,
	}, nil
}

// CanSendLike is the read-only allowance check. It can say true while a
// concurrent debit drains the last unit; Debit inside the transaction is the
// authoritative gate.
func (s *Service) CanSendLike(ctx context.Context, userID int64) (bool, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	if balance.Unlimited(now) {
		return true, nil
	}
	if balance.PurchasedCredits > 0 {
		return true, nil
	}
	return balance.FreeLikeAvailable(s.DayKey(now)), nil
}

// Debit consumes one like unit inside the caller's transaction, free daily
// like first, purchased credits second. Both consume paths are single
// conditional statements, so two concurrent debits racing for the last unit
// cannot both succeed.
func (s *Service) Debit(ctx context.Context, tx pgx.Tx, userID int64, dayKey string) (DebitResult, error) {
	if userID <= 0 || strings.TrimSpace(dayKey) == "" {
		return DebitRejected, ErrValidation
	}
	if s.store == nil {
		return DebitRejected, fmt.Errorf("credit store is not configured")
	}

	consumedFree, err := s.store.ConsumeFree(ctx, tx, userID, dayKey)
	if err != nil {
		return DebitRejected, fmt.Errorf("consume free like: %w", err)
	}
	if consumedFree {
		return DebitConsumedFree, nil
	}

	consumedPurchased, err := s.store.ConsumePurchased(ctx, tx, userID)
	if err != nil {
		return DebitRejected, fmt.Errorf("consume purchased credit: %w", err)
	}
	if consumedPurchased {
		return DebitConsumedPurchased, nil
	}

	return DebitRejected, nil
}

func (s *Service) Credit(ctx context.Context, userID int64, amount int) error {
	if userID <= 0 || amount <= 0 {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("credit store is not configured")
	}

	if err := s.store.AddPurchased(ctx, userID, amount); err != nil {
		return fmt.Errorf("add purchased credits: %w", err)
	}
	return nil
}

func (s *Service) GrantUnlimited(ctx context.Context, userID int64, until time.Time) error {
	if userID <= 0 || until.IsZero() {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("credit store is not configured")
	}

	if err := s.store.ExtendUnlimited(ctx, userID, until.UTC()); err != nil {
		return fmt.Errorf("extend unlimited window: %w", err)
	}
	return nil
}

func (s *Service) GetSnapshot(ctx context.Context, userID int64) (Snapshot, error) {
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	now := s.now().UTC()
	loc := s.location()
	snapshot := Snapshot{
		FreeLikeAvailable: balance.FreeLikeAvailable(rules.DayKey(now, loc)),
		PurchasedCredits:  balance.PurchasedCredits,
		ResetsAt:          rules.NextResetAt(now, loc),
	}
	if balance.Unlimited(now) {
		snapshot.UnlimitedUntil = balance.UnlimitedUntil
	}

	return snapshot, nil
}

func (s *Service) DayKey(at time.Time) string {
	return rules.DayKey(at, s.location())
}

func (s *Service) location() *time.Location {
	loc, err := time.LoadLocation(s.cfg.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

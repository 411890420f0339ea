package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

const statusConfirmed = "confirmed"

var (
	ErrValidation     = errors.New("validation error")
	ErrUnsupportedSKU = errors.New("unsupported sku")
	ErrOrderNotFound  = errors.New("order not found")
)

type OrderStore interface {
	CreatePending(ctx context.Context, userID int64, sku, provider string, payload map[string]any) (pgrepo.CreditOrderRecord, error)
	FindByID(ctx context.Context, orderID int64) (pgrepo.CreditOrderRecord, error)
	FindByProviderTx(ctx context.Context, provider, providerTxID string) (pgrepo.CreditOrderRecord, error)
	MarkConfirmed(ctx context.Context, orderID int64, provider, providerTxID string, payload map[string]any) (pgrepo.CreditOrderRecord, bool, error)
}

type CreditLedger interface {
	Credit(ctx context.Context, userID int64, amount int) error
	GrantUnlimited(ctx context.Context, userID int64, until time.Time) error
}

type EventRecorder interface {
	Record(ctx context.Context, userID *int64, event pgrepo.EventRecord) error
}

type Config struct {
	UnlimitedPeriod time.Duration
}

type Service struct {
	orders  OrderStore
	credits CreditLedger
	events  EventRecorder
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

type Dependencies struct {
	Orders  OrderStore
	Credits CreditLedger
	Events  EventRecorder
	Logger  *zap.Logger
}

type CreateInput struct {
	SKU      string
	Provider string
}

type CreateResult struct {
	OrderID  int64
	SKU      string
	Provider string
	Status   string
}

type WebhookInput struct {
	OrderID      int64
	Provider     string
	ProviderTxID string
	Status       string
	Payload      map[string]any
}

type WebhookResult struct {
	OrderID          int64
	UserID           int64
	SKU              string
	Status           string
	AlreadyProcessed bool
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.UnlimitedPeriod <= 0 {
		cfg.UnlimitedPeriod = 30 * 24 * time.Hour
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Service{
		orders:  deps.Orders,
		credits: deps.Credits,
		events:  deps.Events,
		cfg:     cfg,
		logger:  deps.Logger,
		now:     time.Now,
	}
}

func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (CreateResult, error) {
	if userID <= 0 {
		return CreateResult{}, ErrValidation
	}
	if s.orders == nil {
		return CreateResult{}, fmt.Errorf("order store is nil")
	}

	sku, err := normalizeSKU(in.SKU)
	if err != nil {
		return CreateResult{}, err
	}
	provider := normalizeProvider(in.Provider)
	if provider == "" {
		return CreateResult{}, ErrValidation
	}

	record, err := s.orders.CreatePending(ctx, userID, string(sku), provider, map[string]any{
		"source": "api",
	})
	if err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		OrderID:  record.ID,
		SKU:      record.SKU,
		Provider: record.Provider,
		Status:   record.Status,
	}, nil
}

// ConfirmWebhook is the provider callback. It is idempotent on the provider
// transaction ID: replays return the already-confirmed order and never apply
// the SKU twice.
func (s *Service) ConfirmWebhook(ctx context.Context, in WebhookInput) (WebhookResult, error) {
	if s.orders == nil || s.credits == nil {
		return WebhookResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	provider := normalizeProvider(in.Provider)
	providerTxID := strings.TrimSpace(in.ProviderTxID)
	if provider == "" || providerTxID == "" {
		return WebhookResult{}, ErrValidation
	}
	if !isConfirmationStatus(in.Status) {
		return WebhookResult{}, ErrValidation
	}

	existing, err := s.orders.FindByProviderTx(ctx, provider, providerTxID)
	if err == nil {
		return webhookResult(existing), nil
	}
	if !errors.Is(err, pgrepo.ErrOrderNotFound) {
		return WebhookResult{}, err
	}

	if in.OrderID <= 0 {
		return WebhookResult{}, ErrValidation
	}

	order, err := s.orders.FindByID(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrOrderNotFound) {
			return WebhookResult{}, ErrOrderNotFound
		}
		return WebhookResult{}, err
	}

	updated, changed, err := s.orders.MarkConfirmed(ctx, order.ID, provider, providerTxID, in.Payload)
	if err != nil {
		if errors.Is(err, pgrepo.ErrProviderTxConflict) {
			conflictRecord, lookupErr := s.orders.FindByProviderTx(ctx, provider, providerTxID)
			if lookupErr == nil {
				return webhookResult(conflictRecord), nil
			}
		}
		return WebhookResult{}, err
	}
	if !changed {
		if !strings.EqualFold(updated.Status, statusConfirmed) {
			return WebhookResult{}, fmt.Errorf("order did not transition to confirmed status")
		}
		return webhookResult(updated), nil
	}

	sku, err := normalizeSKU(updated.SKU)
	if err != nil {
		return WebhookResult{}, err
	}
	if err := s.applySKU(ctx, updated.UserID, sku); err != nil {
		return WebhookResult{}, err
	}
	s.emitCreditsGranted(ctx, updated.UserID, sku, updated.ID)

	result := webhookResult(updated)
	result.AlreadyProcessed = false
	return result, nil
}

func (s *Service) applySKU(ctx context.Context, userID int64, sku enums.CreditSKU) error {
	switch sku {
	case enums.CreditSKUCredits5:
		return s.credits.Credit(ctx, userID, 5)
	case enums.CreditSKUCredits20:
		return s.credits.Credit(ctx, userID, 20)
	case enums.CreditSKUUnlimited1m:
		return s.credits.GrantUnlimited(ctx, userID, s.now().UTC().Add(s.cfg.UnlimitedPeriod))
	default:
		return ErrUnsupportedSKU
	}
}

func (s *Service) emitCreditsGranted(ctx context.Context, userID int64, sku enums.CreditSKU, orderID int64) {
	if s.events == nil {
		return
	}
	uid := userID
	err := s.events.Record(ctx, &uid, pgrepo.EventRecord{
		Name:       model.EventCreditsGranted,
		OccurredAt: s.now().UTC(),
		Props: map[string]any{
			"order_id": orderID,
			"sku":      string(sku),
		},
	})
	if err != nil {
		s.logger.Warn("record credits_granted event", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

func webhookResult(record pgrepo.CreditOrderRecord) WebhookResult {
	return WebhookResult{
		OrderID:          record.ID,
		UserID:           record.UserID,
		SKU:              record.SKU,
		Status:           record.Status,
		AlreadyProcessed: strings.EqualFold(record.Status, statusConfirmed),
	}
}

func normalizeSKU(raw string) (enums.CreditSKU, error) {
	sku := enums.CreditSKU(strings.ToLower(strings.TrimSpace(raw)))
	switch sku {
	case enums.CreditSKUCredits5, enums.CreditSKUCredits20, enums.CreditSKUUnlimited1m:
		return sku, nil
	default:
		return "", ErrUnsupportedSKU
	}
}

func normalizeProvider(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isConfirmationStatus(raw string) bool {
	status := strings.ToLower(strings.TrimSpace(raw))
	if status == "" {
		return true
	}
	switch status {
	case "confirmed", "success", "paid":
		return true
	default:
		return false
	}
}

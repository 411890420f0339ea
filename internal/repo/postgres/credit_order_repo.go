package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrOrderNotFound      = errors.New("credit order not found")
	ErrProviderTxConflict = errors.New("provider tx already attached to another order")
)

type CreditOrderRepo struct {
	pool *pgxpool.Pool
}

type CreditOrderRecord struct {
	ID           int64
	UserID       int64
	SKU          string
	Provider     string
	ProviderTxID *string
	Status       string
	Payload      map[string]any
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewCreditOrderRepo(pool *pgxpool.Pool) *CreditOrderRepo {
	return &CreditOrderRepo{pool: pool}
}

func (r *CreditOrderRepo) CreatePending(ctx context.Context, userID int64, sku, provider string, payload map[string]any) (CreditOrderRecord, error) {
	if r.pool == nil {
		return CreditOrderRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if userID <= 0 || strings.TrimSpace(sku) == "" || strings.TrimSpace(provider) == "" {
		return CreditOrderRecord{}, fmt.Errorf("invalid order create payload")
	}

	payloadJSON, err := marshalOrderPayload(payload)
	if err != nil {
		return CreditOrderRecord{}, err
	}

	record, err := scanCreditOrder(r.pool.QueryRow(ctx, `
INSERT INTO credit_orders (
	user_id,
	sku,
	provider,
	status,
	payload,
	created_at,
	updated_at
) VALUES ($1, $2, $3, 'pending', $4::jsonb, NOW(), NOW())
RETURNING id, user_id, sku, provider, provider_tx_id, status, payload, created_at, updated_at
`, userID, strings.ToLower(strings.TrimSpace(sku)), strings.ToLower(strings.TrimSpace(provider)), payloadJSON))
	if err != nil {
		return CreditOrderRecord{}, fmt.Errorf("create pending order: %w", err)
	}

	return record, nil
}

func (r *CreditOrderRepo) FindByID(ctx context.Context, orderID int64) (CreditOrderRecord, error) {
	if r.pool == nil {
		return CreditOrderRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if orderID <= 0 {
		return CreditOrderRecord{}, fmt.Errorf("invalid order id")
	}

	record, err := scanCreditOrder(r.pool.QueryRow(ctx, `
SELECT id, user_id, sku, provider, provider_tx_id, status, payload, created_at, updated_at
FROM credit_orders
WHERE id = $1
LIMIT 1
`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditOrderRecord{}, ErrOrderNotFound
		}
		return CreditOrderRecord{}, fmt.Errorf("find order by id: %w", err)
	}

	return record, nil
}

func (r *CreditOrderRepo) FindByProviderTx(ctx context.Context, provider, providerTxID string) (CreditOrderRecord, error) {
	if r.pool == nil {
		return CreditOrderRecord{}, fmt.Errorf("postgres pool is nil")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	providerTxID = strings.TrimSpace(providerTxID)
	if provider == "" || providerTxID == "" {
		return CreditOrderRecord{}, fmt.Errorf("invalid provider tx payload")
	}

	record, err := scanCreditOrder(r.pool.QueryRow(ctx, `
SELECT id, user_id, sku, provider, provider_tx_id, status, payload, created_at, updated_at
FROM credit_orders
WHERE provider = $1
	AND provider_tx_id = $2
LIMIT 1
`, provider, providerTxID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditOrderRecord{}, ErrOrderNotFound
		}
		return CreditOrderRecord{}, fmt.Errorf("find order by provider tx: %w", err)
	}

	return record, nil
}

// MarkConfirmed attaches the provider transaction and flips the order to
// confirmed. The second return value is false when the order was already
// confirmed, which is the webhook-replay case.
func (r *CreditOrderRepo) MarkConfirmed(ctx context.Context, orderID int64, provider, providerTxID string, payload map[string]any) (CreditOrderRecord, bool, error) {
	if r.pool == nil {
		return CreditOrderRecord{}, false, fmt.Errorf("postgres pool is nil")
	}
	if orderID <= 0 {
		return CreditOrderRecord{}, false, fmt.Errorf("invalid order id")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	providerTxID = strings.TrimSpace(providerTxID)
	if provider == "" || providerTxID == "" {
		return CreditOrderRecord{}, false, fmt.Errorf("invalid provider tx payload")
	}

	payloadJSON, err := marshalOrderPayload(payload)
	if err != nil {
		return CreditOrderRecord{}, false, err
	}

	record, err := scanCreditOrder(r.pool.QueryRow(ctx, `
UPDATE credit_orders
SET
	provider_tx_id = $2,
	status = 'confirmed',
	payload = $3::jsonb,
	updated_at = NOW()
WHERE id = $1 AND status = 'pending'
RETURNING id, user_id, sku, provider, provider_tx_id, status, payload, created_at, updated_at
`, orderID, providerTxID, payloadJSON))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, findErr := r.FindByID(ctx, orderID)
			if findErr != nil {
				return CreditOrderRecord{}, false, findErr
			}
			return existing, false, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return CreditOrderRecord{}, false, ErrProviderTxConflict
		}
		return CreditOrderRecord{}, false, fmt.Errorf("confirm order: %w", err)
	}

	return record, true, nil
}

func scanCreditOrder(row pgx.Row) (CreditOrderRecord, error) {
	var (
		record     CreditOrderRecord
		rawPayload []byte
	)
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&record.SKU,
		&record.Provider,
		&record.ProviderTxID,
		&record.Status,
		&rawPayload,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return CreditOrderRecord{}, err
	}

	record.Payload = decodeOrderPayload(rawPayload)
	return record, nil
}

func marshalOrderPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal order payload: %w", err)
	}
	return string(data), nil
}

func decodeOrderPayload(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{}
	}
	return out
}

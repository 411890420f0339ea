package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepo appends domain events (match_created, match_dissolved,
// credits_granted) to the events table. Emission is best-effort: services
// record after commit and log failures instead of failing the request.
type EventRepo struct {
	pool *pgxpool.Pool
}

type EventRecord struct {
	Name       string
	OccurredAt time.Time
	Props      map[string]any
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) Record(ctx context.Context, userID *int64, event EventRecord) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if event.Name == "" {
		return fmt.Errorf("event name is required")
	}

	payload, err := json.Marshal(event.Props)
	if err != nil {
		return fmt.Errorf("marshal event props: %w", err)
	}

	var uid any
	if userID != nil && *userID > 0 {
		uid = *userID
	}

	occurredAt := event.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO events (
	user_id,
	name,
	payload,
	occurred_at,
	created_at
) VALUES (
	$1,
	$2,
	$3::jsonb,
	$4,
	NOW()
)
`, uid, event.Name, string(payload), occurredAt)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", event.Name, err)
	}

	return nil
}

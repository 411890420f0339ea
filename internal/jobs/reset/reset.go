package reset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/domain/rules"
)

// stalePurger removes exhausted per-day credit rows recorded before the
// given day key.
type stalePurger interface {
	PurgeStale(ctx context.Context, beforeDay string) (int64, error)
}

type Job struct {
	ledger    stalePurger
	retention time.Duration
	interval  time.Duration
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func New() *Job {
	return &Job{
		retention: 30 * 24 * time.Hour,
		interval:  6 * time.Hour,
		loc:       time.UTC,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
}

func NewDailyResetJob(
	ledger stalePurger,
	retention time.Duration,
	interval time.Duration,
	loc *time.Location,
	logger *zap.Logger,
) *Job {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		ledger:    ledger,
		retention: retention,
		interval:  interval,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// Run does a single purge pass. The free-like reset itself is lazy: the
// ledger keys state by local day, so a new day means a fresh row. This job
// only trims rows old enough that no snapshot can reference them.
func (j *Job) Run(ctx context.Context) error {
	if j.ledger == nil {
		return nil
	}

	beforeDay := rules.DayKey(j.now().Add(-j.retention), j.loc)
	rows, err := j.ledger.PurgeStale(ctx, beforeDay)
	if err != nil {
		return fmt.Errorf("purge stale credit days: %w", err)
	}
	if rows > 0 {
		j.logger.Info("purge stale credit days completed", zap.Int64("purged", rows), zap.String("before_day", beforeDay))
	}
	return nil
}

// Start runs one pass immediately, then repeats on the configured interval
// until the context is cancelled.
func (j *Job) Start(ctx context.Context) error {
	if err := j.Run(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				return err
			}
		}
	}
}

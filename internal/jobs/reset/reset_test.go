package reset

import (
	"context"
	"testing"
	"time"
)

func TestRunPurgesDaysOlderThanRetention(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	purger := &fakePurger{
		days: map[string]int{
			"2026-01-15": 3,
			"2026-01-31": 1,
			"2026-02-20": 5,
			"2026-03-01": 2,
		},
	}

	job := New()
	job.ledger = purger
	job.retention = 30 * 24 * time.Hour
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run reset job: %v", err)
	}

	if _, ok := purger.days["2026-01-15"]; ok {
		t.Fatalf("expected day row older than retention to be purged")
	}
	if _, ok := purger.days["2026-01-31"]; !ok {
		t.Fatalf("expected day row on the cutoff boundary to remain")
	}
	if _, ok := purger.days["2026-02-20"]; !ok {
		t.Fatalf("expected day row inside retention to remain")
	}
	if _, ok := purger.days["2026-03-01"]; !ok {
		t.Fatalf("expected recent day row to remain")
	}
	if purger.lastBeforeDay != "2026-01-31" {
		t.Fatalf("unexpected purge cutoff day: %q", purger.lastBeforeDay)
	}
}

func TestRunKeepsEverythingInsideRetention(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	purger := &fakePurger{
		days: map[string]int{
			"2026-02-25": 1,
			"2026-03-01": 4,
		},
	}

	job := New()
	job.ledger = purger
	job.retention = 30 * 24 * time.Hour
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run reset job: %v", err)
	}

	if len(purger.days) != 2 {
		t.Fatalf("expected no rows purged, have %d left", len(purger.days))
	}
}

func TestRunWithoutLedgerIsNoOp(t *testing.T) {
	job := New()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run reset job without ledger: %v", err)
	}
}

type fakePurger struct {
	days          map[string]int
	lastBeforeDay string
}

func (f *fakePurger) PurgeStale(_ context.Context, beforeDay string) (int64, error) {
	f.lastBeforeDay = beforeDay
	var purged int64
	for day := range f.days {
		if day < beforeDay {
			delete(f.days, day)
			purged++
		}
	}
	return purged, nil
}

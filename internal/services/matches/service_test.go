package matches

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

type matchStoreStub struct {
	records map[int64]pgrepo.MatchRecord
	items   []pgrepo.ActiveMatchItem

	dissolves int
	reports   []string
}

func newMatchStoreStub() *matchStoreStub {
	return &matchStoreStub{records: map[int64]pgrepo.MatchRecord{}}
}

func (s *matchStoreStub) FindByID(_ context.Context, matchID int64) (pgrepo.MatchRecord, error) {
	record, ok := s.records[matchID]
	if !ok {
		return pgrepo.MatchRecord{}, pgrepo.ErrMatchNotFound
	}
	return record, nil
}

func (s *matchStoreStub) ListActiveForUser(context.Context, int64, int) ([]pgrepo.ActiveMatchItem, error) {
	return s.items, nil
}

func (s *matchStoreStub) Dissolve(_ context.Context, _ pgx.Tx, matchID int64) (pgrepo.MatchRecord, bool, error) {
	record, ok := s.records[matchID]
	if !ok {
		return pgrepo.MatchRecord{}, false, pgrepo.ErrMatchNotFound
	}
	if record.Status != "active" {
		return record, false, nil
	}
	s.dissolves++
	record.Status = "dissolved"
	s.records[matchID] = record
	return record, true, nil
}

func (s *matchStoreStub) InsertMismatchReport(_ context.Context, _ pgx.Tx, _, _ int64, reason, _ string) error {
	s.reports = append(s.reports, reason)
	return nil
}

type cooldownStub struct {
	pairs [][2]int64
	err   error
}

func (s *cooldownStub) RecordPair(_ context.Context, userIDA, userIDB int64, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.pairs = append(s.pairs, [2]int64{userIDA, userIDB})
	return nil
}

type eventRecorderStub struct {
	events []pgrepo.EventRecord
	err    error
}

func (s *eventRecorderStub) Record(_ context.Context, _ *int64, event pgrepo.EventRecord) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc     *Service
	store   *matchStoreStub
	cool    *cooldownStub
	events  *eventRecorderStub
	txCalls int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:  newMatchStoreStub(),
		cool:   &cooldownStub{},
		events: &eventRecorderStub{},
	}
	f.svc = NewService(Dependencies{
		MatchStore: f.store,
		Cooldowns:  f.cool,
		Events:     f.events,
	}, Config{})
	f.svc.runInTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		f.txCalls++
		return fn(ctx, nil)
	}
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return f
}

func activeMatch(id int64) pgrepo.MatchRecord {
	return pgrepo.MatchRecord{
		ID:            id,
		UserAID:       101,
		UserBID:       202,
		GroupID:       1,
		ChatChannelID: "chan-1",
		Status:        "active",
		CreatedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestListMapsItems(t *testing.T) {
	f := newFixture(t)
	f.store.items = []pgrepo.ActiveMatchItem{{
		ID:            5,
		TargetUserID:  202,
		Nickname:      "dana",
		ChatChannelID: "chan-5",
		MatchedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}

	summaries, err := f.svc.List(context.Background(), 101)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected one summary, got %d", len(summaries))
	}
	got := summaries[0]
	if got.MatchID != 5 || got.TargetUserID != 202 || got.Nickname != "dana" || got.ChatChannelID != "chan-5" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestUnmatchDissolvesAndRearmsCooldown(t *testing.T) {
	f := newFixture(t)
	f.store.records[5] = activeMatch(5)

	if err := f.svc.Unmatch(context.Background(), 5, 101); err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if f.store.dissolves != 1 {
		t.Fatalf("expected one dissolve, got %d", f.store.dissolves)
	}
	if len(f.cool.pairs) != 1 || f.cool.pairs[0] != [2]int64{101, 202} {
		t.Fatalf("expected the pair cooldown to be re-armed, got %+v", f.cool.pairs)
	}
	if len(f.events.events) != 1 || f.events.events[0].Name != model.EventMatchDissolved {
		t.Fatalf("expected one match_dissolved event, got %+v", f.events.events)
	}
}

func TestUnmatchSurvivesBestEffortFailures(t *testing.T) {
	f := newFixture(t)
	f.store.records[5] = activeMatch(5)
	f.cool.err = errors.New("redis down")
	f.events.err = errors.New("pg down")

	// the dissolve is committed; the cooldown write and the event are
	// advisory and must not undo it
	if err := f.svc.Unmatch(context.Background(), 5, 101); err != nil {
		t.Fatalf("unmatch: %v", err)
	}
	if f.store.dissolves != 1 {
		t.Fatalf("expected the dissolve to stick, got %d", f.store.dissolves)
	}
}

func TestUnmatchIdempotent(t *testing.T) {
	f := newFixture(t)
	record := activeMatch(5)
	record.Status = "dissolved"
	f.store.records[5] = record

	if err := f.svc.Unmatch(context.Background(), 5, 202); err != nil {
		t.Fatalf("unmatch of a dissolved match must be a no-op, got %v", err)
	}
	if len(f.cool.pairs) != 0 || len(f.events.events) != 0 {
		t.Fatalf("a no-op unmatch must not re-arm cooldowns or emit events")
	}
}

func TestUnmatchRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	f.store.records[5] = activeMatch(5)

	if err := f.svc.Unmatch(context.Background(), 5, 999); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if f.store.dissolves != 0 {
		t.Fatalf("nothing may be dissolved for a stranger")
	}
}

func TestUnmatchUnknownMatch(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Unmatch(context.Background(), 5, 101); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestReportMismatchRecordsReasonAndDissolves(t *testing.T) {
	f := newFixture(t)
	f.store.records[5] = activeMatch(5)

	err := f.svc.ReportMismatch(context.Background(), 5, 202, enums.MismatchReasonWrongPerson, "not who they claimed")
	if err != nil {
		t.Fatalf("report mismatch: %v", err)
	}
	if len(f.store.reports) != 1 || f.store.reports[0] != string(enums.MismatchReasonWrongPerson) {
		t.Fatalf("unexpected reports: %+v", f.store.reports)
	}
	if f.store.dissolves != 1 {
		t.Fatalf("the match must be dissolved by the report")
	}
	if len(f.cool.pairs) != 1 {
		t.Fatalf("the pair cooldown must be re-armed at report time")
	}
}

func TestReportMismatchSecondReporterStillRecorded(t *testing.T) {
	f := newFixture(t)
	record := activeMatch(5)
	record.Status = "dissolved"
	f.store.records[5] = record

	err := f.svc.ReportMismatch(context.Background(), 5, 101, enums.MismatchReasonFake, "")
	if err != nil {
		t.Fatalf("report mismatch: %v", err)
	}
	if len(f.store.reports) != 1 {
		t.Fatalf("the second reporter's reason must still be stored")
	}
	if len(f.events.events) != 0 {
		t.Fatalf("no second match_dissolved event may be emitted")
	}
}

func TestReportMismatchRejectsUnknownReason(t *testing.T) {
	f := newFixture(t)
	f.store.records[5] = activeMatch(5)

	err := f.svc.ReportMismatch(context.Background(), 5, 101, enums.MismatchReason("grumpy"), "")
	if !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("expected ErrInvalidReason, got %v", err)
	}
	if f.txCalls != 0 {
		t.Fatalf("an invalid reason must be rejected before any write")
	}
}

package profiles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/pkg/cryptox"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

type profileStoreStub struct {
	profiles map[int64]pgrepo.ProfileRecord
}

func (s *profileStoreStub) GetProfile(_ context.Context, userID int64) (pgrepo.ProfileRecord, error) {
	record, ok := s.profiles[userID]
	if !ok {
		return pgrepo.ProfileRecord{}, pgrepo.ErrProfileNotFound
	}
	return record, nil
}

type relationshipStub struct {
	state enums.RelationshipState
	err   error
}

func (s *relationshipStub) RelationshipState(context.Context, int64, int64, int64) (enums.RelationshipState, error) {
	return s.state, s.err
}

func newTestService(state enums.RelationshipState) (*Service, *profileStoreStub) {
	store := &profileStoreStub{profiles: map[int64]pgrepo.ProfileRecord{
		202: {
			UserID:     202,
			Nickname:   "dana",
			Pseudonym:  "quiet-otter",
			Age:        29,
			GroupID:    1,
			City:       "Lisbon",
			PhoneE164:  "+351900000001",
			SharePhone: true,
			ShareCity:  true,
			UpdatedAt:  time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewService(Dependencies{
		Store:         store,
		Relationships: &relationshipStub{state: state},
	})
	return svc, store
}

func TestVisibleProfileBeforeMatchIsAnonymized(t *testing.T) {
	for _, state := range []enums.RelationshipState{
		enums.RelationshipNone,
		enums.RelationshipLiked,
		enums.RelationshipUnmatched,
	} {
		svc, _ := newTestService(state)

		view, gotState, err := svc.GetVisibleProfile(context.Background(), 101, 202)
		if err != nil {
			t.Fatalf("%s: %v", state, err)
		}
		if gotState != state {
			t.Fatalf("state = %s, want %s", gotState, state)
		}
		if view.Pseudonym != "quiet-otter" || view.AgeBucket != "28-32" || view.GroupID != 1 {
			t.Fatalf("%s: anonymized fields missing: %+v", state, view)
		}
		if view.Nickname != "" || view.City != "" || view.Phone != "" {
			t.Fatalf("%s: identifying fields leaked: %+v", state, view)
		}
	}
}

func TestVisibleProfileAfterMatchReveals(t *testing.T) {
	svc, _ := newTestService(enums.RelationshipMatched)

	view, state, err := svc.GetVisibleProfile(context.Background(), 101, 202)
	if err != nil {
		t.Fatalf("get visible profile: %v", err)
	}
	if state != enums.RelationshipMatched {
		t.Fatalf("state = %s, want MATCHED", state)
	}
	if view.Nickname != "dana" || view.City != "Lisbon" || view.Phone != "+351900000001" {
		t.Fatalf("matched view incomplete: %+v", view)
	}
}

func TestVisibleProfileHonorsOptOut(t *testing.T) {
	svc, store := newTestService(enums.RelationshipMatched)
	record := store.profiles[202]
	record.SharePhone = false
	record.ShareCity = false
	store.profiles[202] = record

	view, _, err := svc.GetVisibleProfile(context.Background(), 101, 202)
	if err != nil {
		t.Fatalf("get visible profile: %v", err)
	}
	if view.Phone != "" || view.City != "" {
		t.Fatalf("opted-out fields must stay hidden even when matched: %+v", view)
	}
	if view.Nickname != "dana" {
		t.Fatalf("nickname is not opt-in gated: %+v", view)
	}
}

func TestSelfViewUsesMatchedFields(t *testing.T) {
	svc, _ := newTestService(enums.RelationshipNone)

	view, _, err := svc.GetVisibleProfile(context.Background(), 202, 202)
	if err != nil {
		t.Fatalf("self view: %v", err)
	}
	if view.Nickname != "dana" || view.Phone != "+351900000001" {
		t.Fatalf("self view must not be anonymized: %+v", view)
	}
}

func TestVisibleProfileFailsClosedOnResolverError(t *testing.T) {
	svc, _ := newTestService(enums.RelationshipNone)
	svc.relationships = &relationshipStub{err: errors.New("redis down")}

	_, _, err := svc.GetVisibleProfile(context.Background(), 101, 202)
	if err == nil {
		t.Fatalf("a resolver failure must surface, not downgrade to NONE")
	}
}

func TestPhoneEnvelopeRoundTrip(t *testing.T) {
	svc, store := newTestService(enums.RelationshipMatched)
	svc.serverSecret = []byte("unit-test-secret")

	sealed, err := svc.SealPhone(202, "+351900000001")
	if err != nil {
		t.Fatalf("seal phone: %v", err)
	}
	record := store.profiles[202]
	record.PhoneE164 = sealed
	store.profiles[202] = record

	view, _, err := svc.GetVisibleProfile(context.Background(), 101, 202)
	if err != nil {
		t.Fatalf("get visible profile: %v", err)
	}
	if view.Phone != "+351900000001" {
		t.Fatalf("sealed phone did not round-trip: %+v", view)
	}
}

func TestPhoneEnvelopeTamperSurfacesIntegrityError(t *testing.T) {
	svc, store := newTestService(enums.RelationshipMatched)
	svc.serverSecret = []byte("unit-test-secret")

	sealed, err := svc.SealPhone(202, "+351900000001")
	if err != nil {
		t.Fatalf("seal phone: %v", err)
	}
	tampered := []byte(sealed)
	if tampered[0] == 'A' {
		tampered[0] = 'B'
	} else {
		tampered[0] = 'A'
	}
	record := store.profiles[202]
	record.PhoneE164 = string(tampered)
	store.profiles[202] = record

	_, _, err = svc.GetVisibleProfile(context.Background(), 101, 202)
	var decErr *cryptox.DecryptionError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected a decryption error on tamper, got %v", err)
	}
}

func TestVisibleProfileUnknownSubject(t *testing.T) {
	svc, _ := newTestService(enums.RelationshipNone)

	_, _, err := svc.GetVisibleProfile(context.Background(), 101, 999)
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	matchessvc "github.com/b0ho/glimpse-backend/internal/services/matches"
)

type matchHandlerStoreStub struct {
	record pgrepo.MatchRecord
	found  bool
}

func (s matchHandlerStoreStub) FindByID(context.Context, int64) (pgrepo.MatchRecord, error) {
	if !s.found {
		return pgrepo.MatchRecord{}, pgrepo.ErrMatchNotFound
	}
	return s.record, nil
}

func (s matchHandlerStoreStub) ListActiveForUser(context.Context, int64, int) ([]pgrepo.ActiveMatchItem, error) {
	return nil, nil
}

func (s matchHandlerStoreStub) Dissolve(context.Context, pgx.Tx, int64) (pgrepo.MatchRecord, bool, error) {
	return s.record, false, nil
}

func (s matchHandlerStoreStub) InsertMismatchReport(context.Context, pgx.Tx, int64, int64, string, string) error {
	return nil
}

type pairCooldownStub struct{}

func (pairCooldownStub) RecordPair(context.Context, int64, int64, time.Time) error {
	return nil
}

func newMatchesHandler(store matchessvc.MatchStore) *MatchesHandler {
	svc := matchessvc.NewService(matchessvc.Dependencies{
		MatchStore: store,
		Cooldowns:  pairCooldownStub{},
	}, matchessvc.Config{})
	return NewMatchesHandler(svc)
}

func authedRequest(t *testing.T, method, target string, userID int64, body map[string]any) *http.Request {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req = req.WithContext(authsvc.WithIdentity(context.Background(), authsvc.Identity{
		UserID: userID,
		SID:    "sid-test",
	}))
	return req
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestUnmatchByStrangerReturns403(t *testing.T) {
	h := newMatchesHandler(matchHandlerStoreStub{
		found: true,
		record: pgrepo.MatchRecord{
			ID: 5, UserAID: 101, UserBID: 202, GroupID: 1, Status: "active",
		},
	})

	rr := httptest.NewRecorder()
	h.Unmatch(rr, authedRequest(t, http.MethodPost, "/unmatch", 999, map[string]any{"match_id": 5}))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "NOT_PARTICIPANT" {
		t.Fatalf("unexpected code: got %q", payload.Code)
	}
}

func TestUnmatchUnknownMatchReturns404(t *testing.T) {
	h := newMatchesHandler(matchHandlerStoreStub{})

	rr := httptest.NewRecorder()
	h.Unmatch(rr, authedRequest(t, http.MethodPost, "/unmatch", 101, map[string]any{"match_id": 5}))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestMismatchUnknownReasonReturns400(t *testing.T) {
	h := newMatchesHandler(matchHandlerStoreStub{
		found: true,
		record: pgrepo.MatchRecord{
			ID: 5, UserAID: 101, UserBID: 202, GroupID: 1, Status: "active",
		},
	})

	req := authedRequest(t, http.MethodPost, "/matches/5/mismatch", 101, map[string]any{"reason": "grumpy"})
	req = withURLParam(req, "id", "5")

	rr := httptest.NewRecorder()
	h.Mismatch(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Code != "INVALID_REASON" {
		t.Fatalf("unexpected code: got %q", payload.Code)
	}
}

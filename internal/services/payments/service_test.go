package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
)

type orderStoreStub struct {
	nextID int64
	orders map[int64]pgrepo.CreditOrderRecord
	byTx   map[string]int64
}

func newOrderStoreStub() *orderStoreStub {
	return &orderStoreStub{
		nextID: 1,
		orders: map[int64]pgrepo.CreditOrderRecord{},
		byTx:   map[string]int64{},
	}
}

func (s *orderStoreStub) CreatePending(_ context.Context, userID int64, sku, provider string, payload map[string]any) (pgrepo.CreditOrderRecord, error) {
	record := pgrepo.CreditOrderRecord{
		ID:       s.nextID,
		UserID:   userID,
		SKU:      sku,
		Provider: provider,
		Status:   "pending",
		Payload:  payload,
	}
	s.nextID++
	s.orders[record.ID] = record
	return record, nil
}

func (s *orderStoreStub) FindByID(_ context.Context, orderID int64) (pgrepo.CreditOrderRecord, error) {
	record, ok := s.orders[orderID]
	if !ok {
		return pgrepo.CreditOrderRecord{}, pgrepo.ErrOrderNotFound
	}
	return record, nil
}

func (s *orderStoreStub) FindByProviderTx(_ context.Context, provider, providerTxID string) (pgrepo.CreditOrderRecord, error) {
	id, ok := s.byTx[provider+"/"+providerTxID]
	if !ok {
		return pgrepo.CreditOrderRecord{}, pgrepo.ErrOrderNotFound
	}
	return s.orders[id], nil
}

func (s *orderStoreStub) MarkConfirmed(_ context.Context, orderID int64, provider, providerTxID string, payload map[string]any) (pgrepo.CreditOrderRecord, bool, error) {
	if existingID, ok := s.byTx[provider+"/"+providerTxID]; ok && existingID != orderID {
		return pgrepo.CreditOrderRecord{}, false, pgrepo.ErrProviderTxConflict
	}
	record, ok := s.orders[orderID]
	if !ok {
		return pgrepo.CreditOrderRecord{}, false, pgrepo.ErrOrderNotFound
	}
	if record.Status != "pending" {
		return record, false, nil
	}
	record.Status = "confirmed"
	record.Provider = provider
	record.ProviderTxID = &providerTxID
	record.Payload = payload
	s.orders[orderID] = record
	s.byTx[provider+"/"+providerTxID] = orderID
	return record, true, nil
}

type creditLedgerStub struct {
	credited       map[int64]int
	unlimitedUntil map[int64]time.Time
}

func newCreditLedgerStub() *creditLedgerStub {
	return &creditLedgerStub{
		credited:       map[int64]int{},
		unlimitedUntil: map[int64]time.Time{},
	}
}

func (s *creditLedgerStub) Credit(_ context.Context, userID int64, amount int) error {
	s.credited[userID] += amount
	return nil
}

func (s *creditLedgerStub) GrantUnlimited(_ context.Context, userID int64, until time.Time) error {
	s.unlimitedUntil[userID] = until
	return nil
}

type eventRecorderStub struct {
	events []pgrepo.EventRecord
}

func (s *eventRecorderStub) Record(_ context.Context, _ *int64, event pgrepo.EventRecord) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc    *Service
	orders *orderStoreStub
	ledger *creditLedgerStub
	events *eventRecorderStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orders: newOrderStoreStub(),
		ledger: newCreditLedgerStub(),
		events: &eventRecorderStub{},
	}
	f.svc = NewService(Dependencies{
		Orders:  f.orders,
		Credits: f.ledger,
		Events:  f.events,
	}, Config{})
	f.svc.now = func() time.Time { return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestCreateNormalizesSKUAndProvider(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Create(context.Background(), 7, CreateInput{SKU: " Credits_5 ", Provider: "Stripe"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.SKU != "credits_5" || result.Provider != "stripe" || result.Status != "pending" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestCreateRejectsUnknownSKU(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), 7, CreateInput{SKU: "credits_500", Provider: "stripe"})
	if !errors.Is(err, ErrUnsupportedSKU) {
		t.Fatalf("expected ErrUnsupportedSKU, got %v", err)
	}
}

func TestWebhookConfirmsAndCreditsOnce(t *testing.T) {
	f := newFixture(t)
	order, _ := f.orders.CreatePending(context.Background(), 7, "credits_20", "stripe", nil)

	in := WebhookInput{OrderID: order.ID, Provider: "stripe", ProviderTxID: "tx-1", Status: "paid"}

	first, err := f.svc.ConfirmWebhook(context.Background(), in)
	if err != nil {
		t.Fatalf("first webhook: %v", err)
	}
	if first.AlreadyProcessed {
		t.Fatalf("first delivery must not be flagged as a replay")
	}
	if f.ledger.credited[7] != 20 {
		t.Fatalf("expected 20 credits, got %d", f.ledger.credited[7])
	}
	if len(f.events.events) != 1 {
		t.Fatalf("expected one credits_granted event, got %d", len(f.events.events))
	}

	second, err := f.svc.ConfirmWebhook(context.Background(), in)
	if err != nil {
		t.Fatalf("replayed webhook: %v", err)
	}
	if !second.AlreadyProcessed {
		t.Fatalf("replay must be flagged as already processed")
	}
	if f.ledger.credited[7] != 20 {
		t.Fatalf("replay must not credit again, got %d", f.ledger.credited[7])
	}
	if len(f.events.events) != 1 {
		t.Fatalf("replay must not emit a second event")
	}
}

func TestWebhookGrantsUnlimited(t *testing.T) {
	f := newFixture(t)
	order, _ := f.orders.CreatePending(context.Background(), 9, "unlimited_1m", "stripe", nil)

	_, err := f.svc.ConfirmWebhook(context.Background(), WebhookInput{
		OrderID: order.ID, Provider: "stripe", ProviderTxID: "tx-u1",
	})
	if err != nil {
		t.Fatalf("webhook: %v", err)
	}

	want := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	if got := f.ledger.unlimitedUntil[9]; !got.Equal(want) {
		t.Fatalf("unlimited until = %v, want %v", got, want)
	}
	if f.ledger.credited[9] != 0 {
		t.Fatalf("an unlimited grant must not add purchased credits")
	}
}

func TestWebhookProviderTxConflictReturnsWinner(t *testing.T) {
	f := newFixture(t)
	winner, _ := f.orders.CreatePending(context.Background(), 7, "credits_5", "stripe", nil)
	loser, _ := f.orders.CreatePending(context.Background(), 7, "credits_5", "stripe", nil)

	if _, err := f.svc.ConfirmWebhook(context.Background(), WebhookInput{
		OrderID: winner.ID, Provider: "stripe", ProviderTxID: "tx-dup",
	}); err != nil {
		t.Fatalf("winner webhook: %v", err)
	}

	result, err := f.svc.ConfirmWebhook(context.Background(), WebhookInput{
		OrderID: loser.ID, Provider: "stripe", ProviderTxID: "tx-dup",
	})
	if err != nil {
		t.Fatalf("conflicting webhook: %v", err)
	}
	if result.OrderID != winner.ID || !result.AlreadyProcessed {
		t.Fatalf("expected the already-confirmed order back, got %+v", result)
	}
	if f.ledger.credited[7] != 5 {
		t.Fatalf("the losing delivery must not credit, got %d", f.ledger.credited[7])
	}
}

func TestWebhookRejectsFailureStatus(t *testing.T) {
	f := newFixture(t)
	order, _ := f.orders.CreatePending(context.Background(), 7, "credits_5", "stripe", nil)

	_, err := f.svc.ConfirmWebhook(context.Background(), WebhookInput{
		OrderID: order.ID, Provider: "stripe", ProviderTxID: "tx-1", Status: "failed",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.ledger.credited[7] != 0 {
		t.Fatalf("a failed status must not credit")
	}
}

func TestWebhookUnknownOrder(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ConfirmWebhook(context.Background(), WebhookInput{
		OrderID: 404, Provider: "stripe", ProviderTxID: "tx-1",
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	paymentsvc "github.com/b0ho/glimpse-backend/internal/services/payments"
	"github.com/b0ho/glimpse-backend/internal/transport/http/dto"
	httperrors "github.com/b0ho/glimpse-backend/internal/transport/http/errors"
)

type PurchaseHandler struct {
	service *paymentsvc.Service
}

func NewPurchaseHandler(service *paymentsvc.Service) *PurchaseHandler {
	return &PurchaseHandler{service: service}
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	var req dto.PurchaseCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.Create(r.Context(), identity.UserID, paymentsvc.CreateInput{
		SKU:      req.SKU,
		Provider: req.Provider,
	})
	if err != nil {
		writePaymentError(w, err, "failed to create order")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseCreateResponse{
		OrderID:  result.OrderID,
		SKU:      result.SKU,
		Provider: result.Provider,
		Status:   result.Status,
	})
}

// Webhook is the unauthenticated provider callback. Replays are answered with
// the recorded outcome, never re-applied.
func (h *PurchaseHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PAYMENT_SERVICE_UNAVAILABLE", "payment service is unavailable")
		return
	}

	var req dto.PurchaseWebhookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.service.ConfirmWebhook(r.Context(), paymentsvc.WebhookInput{
		OrderID:      req.OrderID,
		Provider:     req.Provider,
		ProviderTxID: req.ProviderTxID,
		Status:       req.Status,
		Payload:      req.Payload,
	})
	if err != nil {
		writePaymentError(w, err, "failed to confirm payment")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PurchaseWebhookResponse{
		OrderID:          result.OrderID,
		SKU:              result.SKU,
		Status:           result.Status,
		AlreadyProcessed: result.AlreadyProcessed,
	})
}

func writePaymentError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, paymentsvc.ErrUnsupportedSKU):
		writeBadRequest(w, "UNSUPPORTED_SKU", "unknown product sku")
	case errors.Is(err, paymentsvc.ErrOrderNotFound):
		writeNotFound(w, "ORDER_NOT_FOUND", "order not found")
	case errors.Is(err, paymentsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid payment request")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	creditssvc "github.com/b0ho/glimpse-backend/internal/services/credits"
	"github.com/b0ho/glimpse-backend/internal/transport/http/dto"
	httperrors "github.com/b0ho/glimpse-backend/internal/transport/http/errors"
)

type CreditsHandler struct {
	service *creditssvc.Service
}

func NewCreditsHandler(service *creditssvc.Service) *CreditsHandler {
	return &CreditsHandler{service: service}
}

func (h *CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "CREDITS_SERVICE_UNAVAILABLE", "credits service is unavailable")
		return
	}

	snapshot, err := h.service.GetSnapshot(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, creditssvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid credits request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load credit balance")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreditsResponse{
		FreeLikeAvailable: snapshot.FreeLikeAvailable,
		PurchasedCredits:  snapshot.PurchasedCredits,
		UnlimitedUntil:    snapshot.UnlimitedUntil,
		ResetsAt:          snapshot.ResetsAt,
	})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	matchessvc "github.com/b0ho/glimpse-backend/internal/services/matches"
	"github.com/b0ho/glimpse-backend/internal/transport/http/dto"
	httperrors "github.com/b0ho/glimpse-backend/internal/transport/http/errors"
)

type MatchesHandler struct {
	service *matchessvc.Service
}

func NewMatchesHandler(service *matchessvc.Service) *MatchesHandler {
	return &MatchesHandler{service: service}
}

func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	summaries, err := h.service.List(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, matchessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid matches request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load matches")
		return
	}

	items := make([]dto.MatchItemResponse, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, dto.MatchItemResponse{
			MatchID:       s.MatchID,
			TargetUserID:  s.TargetUserID,
			Nickname:      s.Nickname,
			ChatChannelID: s.ChatChannelID,
			MatchedAt:     s.MatchedAt,
		})
	}
	httperrors.Write(w, http.StatusOK, dto.MatchesListResponse{Matches: items})
}

func (h *MatchesHandler) Unmatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	var req dto.UnmatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if err := h.service.Unmatch(r.Context(), req.MatchID, identity.UserID); err != nil {
		writeMatchError(w, err, "failed to unmatch")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchActionResponse{OK: true})
}

func (h *MatchesHandler) Mismatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "MATCHES_SERVICE_UNAVAILABLE", "matches service is unavailable")
		return
	}

	matchID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || matchID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid match id")
		return
	}

	var req dto.MismatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	err = h.service.ReportMismatch(r.Context(), matchID, identity.UserID, enums.MismatchReason(req.Reason), req.Details)
	if err != nil {
		writeMatchError(w, err, "failed to report mismatch")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MatchActionResponse{OK: true})
}

func writeMatchError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, matchessvc.ErrMatchNotFound):
		writeNotFound(w, "MATCH_NOT_FOUND", "match not found")
	case errors.Is(err, matchessvc.ErrNotParticipant):
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "NOT_PARTICIPANT",
			Message: "you are not part of this match",
		})
	case errors.Is(err, matchessvc.ErrInvalidReason):
		writeBadRequest(w, "INVALID_REASON", "unknown mismatch reason")
	case errors.Is(err, matchessvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request")
	default:
		writeInternal(w, "INTERNAL_ERROR", fallback)
	}
}

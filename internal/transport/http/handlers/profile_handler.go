package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	profilesvc "github.com/b0ho/glimpse-backend/internal/services/profiles"
	"github.com/b0ho/glimpse-backend/internal/transport/http/dto"
	httperrors "github.com/b0ho/glimpse-backend/internal/transport/http/errors"
)

type ProfileHandler struct {
	service *profilesvc.Service
}

func NewProfileHandler(service *profilesvc.Service) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// View returns the subject's profile through the reveal policy for the
// authenticated viewer.
func (h *ProfileHandler) View(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	subjectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || subjectID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	visible, state, err := h.service.GetVisibleProfile(r.Context(), identity.UserID, subjectID)
	if err != nil {
		switch {
		case errors.Is(err, profilesvc.ErrProfileNotFound):
			writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
		case errors.Is(err, profilesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load profile")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ProfileViewResponse{
		Profile: dto.VisibleProfileResponse{
			UserID:    visible.UserID,
			Pseudonym: visible.Pseudonym,
			AgeBucket: visible.AgeBucket,
			GroupID:   visible.GroupID,
			Nickname:  visible.Nickname,
			City:      visible.City,
			Phone:     visible.Phone,
		},
		Relationship: string(state),
	})
}

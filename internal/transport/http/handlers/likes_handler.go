package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/b0ho/glimpse-backend/internal/domain/enums"
	"github.com/b0ho/glimpse-backend/internal/domain/model"
	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	likessvc "github.com/b0ho/glimpse-backend/internal/services/likes"
	ratesvc "github.com/b0ho/glimpse-backend/internal/services/rate"
	"github.com/b0ho/glimpse-backend/internal/transport/http/dto"
	httperrors "github.com/b0ho/glimpse-backend/internal/transport/http/errors"
)

type LikesHandler struct {
	service *likessvc.Service
	limiter *ratesvc.Limiter
}

func NewLikesHandler(service *likessvc.Service, limiter *ratesvc.Limiter) *LikesHandler {
	return &LikesHandler{service: service, limiter: limiter}
}

// Send runs the burst limiter before the state machine: the limiter is
// ambient anti-spam, the pair cooldown is product policy.
func (h *LikesHandler) Send(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	var req dto.SendLikeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	if h.limiter != nil {
		retryAfterSec, allowed, err := h.limiter.AllowLike(r.Context(), identity.UserID)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "rate limiter unavailable")
			return
		}
		if !allowed {
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many like attempts",
				RetryAfterSec: retryAfterSec,
			})
			return
		}
	}

	result, err := h.service.SendLike(r.Context(), identity.UserID, req.ToUserID, req.GroupID, req.IsSuper, req.CorrelationID)
	if err != nil {
		if errors.Is(err, likessvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid like request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to process like")
		return
	}

	if result.Rejection != nil {
		writeLikeRejection(w, *result.Rejection)
		return
	}

	resp := dto.SendLikeResponse{
		IsMatch: result.IsMatch,
		Like:    likeResponse(result.Like),
	}
	if result.Match != nil {
		m := matchResponse(*result.Match)
		resp.Match = &m
	}
	httperrors.Write(w, http.StatusOK, resp)
}

func (h *LikesHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "LIKES_SERVICE_UNAVAILABLE", "likes service is unavailable")
		return
	}

	likeID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || likeID <= 0 {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid like id")
		return
	}

	if err := h.service.CancelLike(r.Context(), likeID, identity.UserID); err != nil {
		switch {
		case errors.Is(err, likessvc.ErrLikeNotFound):
			writeNotFound(w, "LIKE_NOT_FOUND", "like not found")
		case errors.Is(err, likessvc.ErrNotSender):
			httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
				Code:    "NOT_SENDER",
				Message: "only the sender can cancel a like",
			})
		case errors.Is(err, likessvc.ErrLikeConsumed):
			writeConflict(w, "LIKE_CONSUMED", "like already produced a match")
		case errors.Is(err, likessvc.ErrCancelWindowExpired):
			writeConflict(w, "CANCEL_WINDOW_EXPIRED", "cancellation window has passed")
		case errors.Is(err, likessvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid cancel request")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to cancel like")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CancelLikeResponse{OK: true})
}

func writeLikeRejection(w http.ResponseWriter, rejection likessvc.Rejection) {
	if rejection.Reason == enums.RejectionCooldownActive {
		retryAfterSec := int64(0)
		if rejection.CoolsUntil != nil {
			retryAfterSec = maxInt64(0, int64(time.Until(*rejection.CoolsUntil).Seconds()))
		}
		httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
			Code:          string(rejection.Reason),
			Message:       "pair is in a cooldown window",
			RetryAfterSec: retryAfterSec,
			CooldownUntil: rejection.CoolsUntil,
		})
		return
	}

	writeConflict(w, string(rejection.Reason), rejectionMessage(rejection.Reason))
}

func rejectionMessage(reason enums.RejectionReason) string {
	switch reason {
	case enums.RejectionSelfLikeForbidden:
		return "you cannot like yourself"
	case enums.RejectionAlreadyLiked:
		return "an active like to this user already exists"
	case enums.RejectionPremiumRequired:
		return "super likes require premium"
	case enums.RejectionNoCredits:
		return "no like allowance available"
	default:
		return "like attempt rejected"
	}
}

func likeResponse(like model.LikeEdge) dto.LikeResponse {
	return dto.LikeResponse{
		ID:            like.ID,
		FromUserID:    like.FromUserID,
		ToUserID:      like.ToUserID,
		GroupID:       like.GroupID,
		IsSuper:       like.IsSuper,
		CorrelationID: like.CorrelationID,
		CreatedAt:     like.CreatedAt,
	}
}

func matchResponse(match model.Match) dto.MatchResponse {
	return dto.MatchResponse{
		ID:            match.ID,
		UserAID:       match.UserAID,
		UserBID:       match.UserBID,
		GroupID:       match.GroupID,
		ChatChannelID: match.ChatChannelID,
		MatchedAt:     match.MatchedAt,
	}
}

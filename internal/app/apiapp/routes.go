package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/config"
	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	creditssvc "github.com/b0ho/glimpse-backend/internal/services/credits"
	likessvc "github.com/b0ho/glimpse-backend/internal/services/likes"
	matchessvc "github.com/b0ho/glimpse-backend/internal/services/matches"
	paymentsvc "github.com/b0ho/glimpse-backend/internal/services/payments"
	profilesvc "github.com/b0ho/glimpse-backend/internal/services/profiles"
	ratesvc "github.com/b0ho/glimpse-backend/internal/services/rate"
	"github.com/b0ho/glimpse-backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	CreditsService *creditssvc.Service
	LikeService    *likessvc.Service
	MatchService   *matchessvc.Service
	PaymentService *paymentsvc.Service
	ProfileService *profilesvc.Service
	RateLimiter    *ratesvc.Limiter
	Logger         *zap.Logger
	Config         config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	healthHandler := handlers.NewHealthHandler()
	likesHandler := handlers.NewLikesHandler(deps.LikeService, deps.RateLimiter)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService)
	creditsHandler := handlers.NewCreditsHandler(deps.CreditsService)
	purchaseHandler := handlers.NewPurchaseHandler(deps.PaymentService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.Token)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
	})

	r.With(authMW).Post("/likes", likesHandler.Send)
	r.With(authMW).Delete("/likes/{id}", likesHandler.Cancel)
	r.With(authMW).Get("/matches", matchesHandler.List)
	r.With(authMW).Post("/unmatch", matchesHandler.Unmatch)
	r.With(authMW).Post("/matches/{id}/mismatch", matchesHandler.Mismatch)
	r.With(authMW).Get("/credits", creditsHandler.Get)
	r.With(authMW).Get("/users/{id}/profile", profileHandler.View)
	r.With(authMW).Post("/purchase/create", purchaseHandler.Create)
	r.Post("/purchase/webhook", purchaseHandler.Webhook)
}

package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/b0ho/glimpse-backend/internal/config"
	"github.com/b0ho/glimpse-backend/internal/jobs/reset"
	pgrepo "github.com/b0ho/glimpse-backend/internal/repo/postgres"
	redrepo "github.com/b0ho/glimpse-backend/internal/repo/redis"
	authsvc "github.com/b0ho/glimpse-backend/internal/services/auth"
	cooldownsvc "github.com/b0ho/glimpse-backend/internal/services/cooldown"
	creditssvc "github.com/b0ho/glimpse-backend/internal/services/credits"
	likessvc "github.com/b0ho/glimpse-backend/internal/services/likes"
	matchessvc "github.com/b0ho/glimpse-backend/internal/services/matches"
	paymentsvc "github.com/b0ho/glimpse-backend/internal/services/payments"
	profilesvc "github.com/b0ho/glimpse-backend/internal/services/profiles"
	ratesvc "github.com/b0ho/glimpse-backend/internal/services/rate"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
	resetJob   *reset.Job
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	likeRepo := pgrepo.NewLikeRepo(pool)
	matchRepo := pgrepo.NewMatchRepo(pool)
	creditRepo := pgrepo.NewCreditRepo(pool)
	userRepo := pgrepo.NewUserRepo(pool)
	eventRepo := pgrepo.NewEventRepo(pool)
	orderRepo := pgrepo.NewCreditOrderRepo(pool)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	cooldownRepo := redrepo.NewCooldownRepo(redisClient)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userRepo, cfg.Auth.RefreshTTL)

	creditsService := creditssvc.NewService(creditssvc.Dependencies{
		Store: creditRepo,
	}, creditssvc.Config{
		DefaultTimezone: cfg.Engine.Timezone,
	})
	cooldownService := cooldownsvc.NewService(cooldownsvc.Dependencies{
		Hot:          cooldownRepo,
		Attempts:     likeRepo,
		Dissolutions: matchRepo,
	}, cooldownsvc.Config{
		Window: cfg.Engine.CooldownWindow,
	})
	likeService := likessvc.NewService(likessvc.Dependencies{
		Pool:       pool,
		LikeStore:  likeRepo,
		MatchStore: matchRepo,
		Credits:    creditsService,
		Cooldowns:  cooldownService,
		UserStore:  userRepo,
		Events:     eventRepo,
		Logger:     log,
	}, likessvc.Config{
		CancelGrace: cfg.Engine.CancelGrace,
	})
	matchesService := matchessvc.NewService(matchessvc.Dependencies{
		Pool:       pool,
		MatchStore: matchRepo,
		Cooldowns:  cooldownService,
		Events:     eventRepo,
		Logger:     log,
	}, matchessvc.Config{
		ListLimit: cfg.Engine.MatchListLimit,
	})
	profileService := profilesvc.NewService(profilesvc.Dependencies{
		Store:         userRepo,
		Relationships: likeService,
		ServerSecret:  cfg.Crypto.ServerSecret,
	})
	paymentService := paymentsvc.NewService(paymentsvc.Dependencies{
		Orders:  orderRepo,
		Credits: creditsService,
		Events:  eventRepo,
		Logger:  log,
	}, paymentsvc.Config{
		UnlimitedPeriod: cfg.Engine.UnlimitedPeriod,
	})
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Engine.LikesPerMinute, cfg.Engine.LikesPer10Sec)

	loc, err := time.LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		log.Warn("unknown engine timezone, falling back to UTC", zap.String("timezone", cfg.Engine.Timezone))
		loc = time.UTC
	}
	resetJob := reset.NewDailyResetJob(creditRepo, cfg.Jobs.ResetRetention, cfg.Jobs.ResetInterval, loc, log)

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		CreditsService: creditsService,
		LikeService:    likeService,
		MatchService:   matchesService,
		PaymentService: paymentService,
		ProfileService: profileService,
		RateLimiter:    rateLimiter,
		Logger:         log,
		Config:         cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
		resetJob:   resetJob,
	}, nil
}

// RunResetJob blocks running the periodic credit-day purge until ctx is
// cancelled. Callers run it alongside the HTTP server.
func (a *App) RunResetJob(ctx context.Context) error {
	return a.resetJob.Start(ctx)
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

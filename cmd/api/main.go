package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/estate-listings/internal/app"
	"github.com/diagnosis/estate-listings/internal/http/handlers"
	"github.com/diagnosis/estate-listings/internal/http/middleware"
	"github.com/diagnosis/estate-listings/internal/service"
	"github.com/diagnosis/estate-listings/pkg/auth"
	"github.com/diagnosis/estate-listings/pkg/config"
	"github.com/diagnosis/estate-listings/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const serviceName = "estate-api"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Env, cfg.LogLevel)

	if err := run(cfg); err != nil {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	eventBus, err := app.OpenPublisher(cfg)
	if err != nil {
		return err
	}
	defer eventBus.Close()
	if err := app.StartEventLog(eventBus); err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher)
	if err != nil {
		return err
	}

	authLimit, closeLimiter, err := authRateLimit(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:        service.NewAuthService(stores.Users, hasher, tokens, eventBus),
		Catalog:     service.NewCatalogService(stores.Properties, eventBus, cfg.Server.PublicURL),
		Guard:       middleware.NewGuard(tokens),
		AuthLimit:   authLimit,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		ServiceName: serviceName,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting API server", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// authRateLimit prefers a shared Redis counter and falls back to per-process buckets.
func authRateLimit(cfg *config.Config) (func(http.Handler) http.Handler, func(), error) {
	if cfg.RateLimit.Requests == 0 {
		return nil, func() {}, nil
	}
	limitCfg := middleware.RateLimitConfig{Requests: cfg.RateLimit.Requests, Window: cfg.RateLimit.Window}

	if cfg.Redis.URL == "" {
		limiter := middleware.NewMemoryLimiter(limitCfg)
		return middleware.RateLimit(limiter, "auth", cfg.RateLimit.Window, cfg.RateLimit.TrustProxyHeaders), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	logger.Info("Using Redis for auth rate limiting")
	limiter := middleware.NewRedisLimiter(client, limitCfg)
	return middleware.RateLimit(limiter, "auth", cfg.RateLimit.Window, cfg.RateLimit.TrustProxyHeaders), func() { _ = client.Close() }, nil
}

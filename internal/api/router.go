package api

import (
	"database/sql"
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-api/internal/api/handler"
	"github.com/campushub/campushub-api/internal/api/middleware"
	"github.com/campushub/campushub-api/internal/core/federated"
	"github.com/campushub/campushub-api/internal/core/ports"
	"github.com/campushub/campushub-api/internal/core/service"
	"github.com/campushub/campushub-api/internal/core/token"
	"github.com/campushub/campushub-api/internal/infrastructure/config"
	"github.com/campushub/campushub-api/internal/infrastructure/db/postgres"
	redisinfra "github.com/campushub/campushub-api/internal/infrastructure/db/redis"
)

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(db *sql.DB, rdb *redis.Client, cfg *config.Config, log zerolog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("campushub"))

	// --- Dependencies ---
	codec, err := token.NewCodec(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	var verifier ports.FederatedVerifier
	if cfg.Federated.Enabled() {
		verifier = federated.NewVerifier(federated.Config{
			Issuer:         cfg.Federated.Issuer,
			Audience:       cfg.Federated.Audience,
			JWKSURL:        cfg.Federated.JWKSURL,
			AllowTestToken: !cfg.IsProduction(),
		}, redisinfra.NewKeyCache(rdb), log)
	} else {
		log.Warn().Msg("federated provider not configured, /auth/sync will reject all tokens")
	}

	userRepo := postgres.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, codec, verifier, log)
	authHandler := handler.NewAuthHandler(authService)
	authMiddleware := middleware.Auth(codec)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/sync", authHandler.Sync)
	e.GET("/auth/me", authHandler.Me, authMiddleware)

	// --- User routes ---
	e.GET("/users/:id", authHandler.GetUser, authMiddleware, middleware.SelfOrAdmin())

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())

	return e, nil
}

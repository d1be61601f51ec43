// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/perumahan-api/internal/admin"
	"github.com/carterperez-dev/perumahan-api/internal/auth"
	"github.com/carterperez-dev/perumahan-api/internal/core"
	"github.com/carterperez-dev/perumahan-api/internal/division"
	"github.com/carterperez-dev/perumahan-api/internal/health"
	"github.com/carterperez-dev/perumahan-api/internal/identity"
	"github.com/carterperez-dev/perumahan-api/internal/inventory"
	"github.com/carterperez-dev/perumahan-api/internal/middleware"
	"github.com/carterperez-dev/perumahan-api/internal/module"
	"github.com/carterperez-dev/perumahan-api/internal/notification"
	"github.com/carterperez-dev/perumahan-api/internal/permission"
	"github.com/carterperez-dev/perumahan-api/internal/sales"
	"github.com/carterperez-dev/perumahan-api/internal/server"
	"github.com/carterperez-dev/perumahan-api/internal/user"
)

const (
	drainDelay         = 5 * time.Second
	credentialAttempts = 10
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

//nolint:funlen // bootstrap code is inherently verbose
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(
		cmd.Context(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	a, err := bootstrap(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close()

	cfg, logger := a.cfg, a.logger
	core.SetExposeInternalErrors(!cfg.IsProduction())

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	baseVerifier, err := identity.NewVerifier(ctx, cfg.Identity, a.identity)
	if err != nil {
		return err
	}
	verifier := identity.NewCachedVerifier(
		baseVerifier,
		redis.Client,
		cfg.Identity.VerifyCacheTTL,
		logger,
	)
	logger.Info("identity verifier initialized",
		"mode", cfg.Identity.VerifyMode,
		"provider", cfg.Identity.URL,
	)

	oauthRedirect := cfg.Identity.OAuthRedirectURL
	if oauthRedirect == "" {
		oauthRedirect = cfg.App.FrontendURL
	}
	oauthFlow := identity.NewOAuthFlow(a.identity, redis.Client, oauthRedirect)

	gate := division.NewGate(a.divRepo)
	authorizer := permission.NewSelector(
		permission.NewStaticRoleAuthorizer(),
		permission.NewPerUserGrantAuthorizer(a.permStore),
		cfg.Authz.PerUserModules,
	)

	notifier := notification.NewNotifier(a.db.DB, logger)

	permSvc := permission.NewService(a.permStore, a.users, gate, logger)

	authSvc := auth.NewService(
		a.identity,
		oauthFlow,
		a.users,
		a.provisioner,
		cfg.App.FrontendURL,
		logger,
	).WithTokenInvalidator(verifier)

	handlers := []interface {
		RegisterRoutes(chi.Router, func(http.Handler) http.Handler)
	}{
		auth.NewHandler(authSvc).WithCredentialLimiter(
			middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
				Limit:    middleware.Window(credentialAttempts, credentialAttempts, time.Minute),
				KeyFunc:  middleware.KeyByIPAndEndpoint,
				FailOpen: true,
			}).Handler,
		),
		user.NewHandler(a.users),
		user.NewRoleHandler(a.users),
		permission.NewHandler(permSvc),
		module.NewHandler(module.NewService(module.NewRepository(a.db.DB), logger)),
		division.NewHandler(
			division.NewService(a.divRepo, a.permStore, logger),
			permSvc,
			gate,
		),
		notification.NewHandler(notification.NewInbox(a.db.DB)),
		admin.NewHandler(admin.HandlerConfig{
			DBStats:      a.db.Stats,
			RedisStats:   redis.PoolStats,
			DBPing:       a.db.Ping,
			RedisPing:    redis.Ping,
			IdentityPing: a.identity.Ping,
			Roles:        a.users,
		}),
	}

	salesHandler := sales.NewHandler(sales.NewService(a.db.DB, notifier, logger))
	inventoryHandler := inventory.NewHandler(inventory.NewService(a.db.DB, notifier, logger))

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: a.db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "identity", Checker: a.identity},
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(logger))
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics)
	}
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Window(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen:   true,
			BypassFunc: middleware.BypassPaths("/healthz", "/livez", "/readyz", cfg.Metrics.Path),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.SetReady(false)
	healthHandler.RegisterRoutes(router)
	if cfg.Metrics.Enabled {
		prometheus.MustRegister(a.db.Collector())
		router.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	authenticator := middleware.Authenticator(verifier, a.users)

	router.Route("/api", func(r chi.Router) {
		for _, h := range handlers {
			h.RegisterRoutes(r, authenticator)
		}
		salesHandler.RegisterRoutes(r, authenticator, authorizer)
		inventoryHandler.RegisterRoutes(r, authenticator, authorizer)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()
	healthHandler.SetReady(true)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := notifier.Wait(shutdownCtx); err != nil {
		logger.Error("notification drain error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

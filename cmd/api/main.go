// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/eventhub/internal/admin"
	"github.com/carterperez-dev/eventhub/internal/auth"
	"github.com/carterperez-dev/eventhub/internal/bus"
	"github.com/carterperez-dev/eventhub/internal/config"
	"github.com/carterperez-dev/eventhub/internal/core"
	"github.com/carterperez-dev/eventhub/internal/dashboard"
	"github.com/carterperez-dev/eventhub/internal/event"
	"github.com/carterperez-dev/eventhub/internal/health"
	"github.com/carterperez-dev/eventhub/internal/identity"
	"github.com/carterperez-dev/eventhub/internal/metrics"
	"github.com/carterperez-dev/eventhub/internal/middleware"
	"github.com/carterperez-dev/eventhub/internal/notify"
	"github.com/carterperez-dev/eventhub/internal/server"
	"github.com/carterperez-dev/eventhub/internal/ticket"
	"github.com/carterperez-dev/eventhub/migrations"
)

const (
	drainDelay      = 5 * time.Second
	purgeInterval   = time.Hour
	roleCachePrefix = "role:"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

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

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, migrations.FS); err != nil {
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

	eventBus, err := newBus(cfg.NATS)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT, !cfg.IsProduction())
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	appMetrics := metrics.New()

	resolver := identity.NewResolver(
		identity.NewRepository(db.DB),
		core.NewCache(redis.Client, roleCachePrefix, cfg.Redis.RoleCacheTTL),
	)
	identityHandler := identity.NewHandler(resolver)

	authSvc := auth.NewService(
		auth.NewTokenRepository(db.DB),
		auth.NewPrincipalRepository(db.DB),
		jwtManager,
		resolver,
		redis.Client,
	)
	authHandler := auth.NewHandler(authSvc)

	eventSvc := event.NewService(event.NewRepository(db.DB), eventBus, appMetrics)
	eventHandler := event.NewHandler(eventSvc)

	ticketSvc := ticket.NewService(ticket.NewRepository(db.DB), eventSvc, eventBus, appMetrics)
	ticketHandler := ticket.NewHandler(ticketSvc)

	dashboardHandler := dashboard.NewHandler(
		dashboard.NewService(eventSvc, ticketSvc, resolver),
	)

	if err := notify.NewNotifier(notify.NewSender(cfg.Mail), cfg.Mail.Timeout).
		Subscribe(eventBus); err != nil {
		return err
	}
	logger.Info("booking receipts enabled",
		"mailersend", cfg.Mail.Enabled(),
	)

	if cfg.Seed.Enabled {
		if err := seed(ctx, cfg.Seed, authSvc, resolver); err != nil {
			return err
		}
	}

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "bus", Checker: eventBus},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		BusPing:    eventBus.Ping,
		Roles:      admin.Counts(resolver.CountByRole),
		Events:     admin.Counts(eventSvc.CountByStatus),
		Tickets:    admin.Counts(ticketSvc.CountByStatus),
		Lifecycle:  appMetrics.Snapshot,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(appMetrics.Middleware)
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle("/metrics", appMetrics.Handler())

	resolveRole := middleware.ResolveRole(resolver.RoleName)
	authenticated := chain(middleware.Authenticator(authSvc), resolveRole)
	optional := chain(middleware.OptionalAuth(authSvc), resolveRole)
	adminOnly := identity.RequireRole(identity.RoleAdmin)

	verifyLimit := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit: middleware.PerMinute(
			cfg.RateLimit.VerifyRequests,
			cfg.RateLimit.VerifyBurst,
		),
		KeyFunc:  middleware.KeyByUserAndEndpoint,
		FailOpen: true,
		Name:     "verify",
	}).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticated, optional)
		identityHandler.RegisterRoutes(r, authenticated)
		eventHandler.RegisterRoutes(r, authenticated, optional)
		ticketHandler.RegisterRoutes(r, authenticated, verifyLimit)
		dashboardHandler.RegisterRoutes(r, optional)
		adminHandler.RegisterRoutes(r, authenticated, adminOnly)
	})

	go purgeTokens(ctx, authSvc)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

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

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func newBus(cfg config.NATSConfig) (bus.Bus, error) {
	if !cfg.Enabled() {
		slog.Info("event bus running in-process")
		return bus.NewLocal(), nil
	}

	natsBus, err := bus.NewNATS(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("nats connected", "name", cfg.Name)
	return natsBus, nil
}

// seed creates the configured bootstrap profiles, and sign-in principals
// for those that carry a password.
func seed(
	ctx context.Context,
	cfg config.SeedConfig,
	authSvc *auth.Service,
	resolver *identity.Resolver,
) error {
	profiles := make([]identity.SeedProfile, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		if password := cfg.PasswordFor(p); password != "" {
			if _, err := authSvc.EnsurePrincipal(ctx, p.ID, p.Email, password); err != nil {
				return err
			}
		}
		profiles = append(profiles, identity.SeedProfile{
			ID:    p.ID,
			Email: p.Email,
			Role:  identity.Role(p.Role),
		})
	}

	created, err := resolver.EnsureSeedProfiles(ctx, profiles)
	if err != nil {
		return err
	}
	slog.Info("seed profiles ensured",
		"configured", len(profiles),
		"created", created,
	)
	return nil
}

func purgeTokens(ctx context.Context, authSvc *auth.Service) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authSvc.PurgeExpired(ctx); err != nil {
				slog.Warn("refresh token purge failed", "error", err)
			}
		}
	}
}

func chain(mws ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			next = mws[i](next)
		}
		return next
	}
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

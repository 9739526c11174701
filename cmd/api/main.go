package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/lorrc/service-desk-pki/internal/adapters/primary/http"
	mw "github.com/lorrc/service-desk-pki/internal/adapters/primary/http/middleware"
	"github.com/lorrc/service-desk-pki/internal/adapters/primary/websocket"
	"github.com/lorrc/service-desk-pki/internal/adapters/secondary/email"
	"github.com/lorrc/service-desk-pki/internal/adapters/secondary/postgres"
	"github.com/lorrc/service-desk-pki/internal/adapters/secondary/spreadsheet"
	"github.com/lorrc/service-desk-pki/internal/auth"
	"github.com/lorrc/service-desk-pki/internal/config"
	"github.com/lorrc/service-desk-pki/internal/core/services"
	"github.com/lorrc/service-desk-pki/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	output, closeOutput := logging.NewOutput(logging.FileConfig{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer func() { _ = closeOutput() }()

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      output,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		_ = closeOutput()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 3. Initialize Database Pool
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxOpenConns,
		MinConns:        cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection established")

	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database.MigrationsPath, cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("database migrations applied", "source", cfg.Database.MigrationsPath)
	}

	// Readiness compares the live schema with the newest migration on disk.
	schemaVersion, err := postgres.LatestMigrationVersion(cfg.Database.MigrationsPath)
	if err != nil {
		logger.Warn("migration source unreadable, readiness skips the version check", "error", err)
		schemaVersion = 0
	}

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	var loginLimiter *mw.RateLimitByKey
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})
		defer generalRateLimiter.Stop()

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
		defer authRateLimiter.Stop()

		loginLimiter = mw.NewRateLimitByKey(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst)
		defer loginLimiter.Stop()
	}

	// 6. Dependency Injection (Wiring the Hexagon)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	eventRepo := postgres.NewTicketEventRepository(pool)
	technicianRepo := postgres.NewTechnicianRepository(pool)
	deviceRepo := postgres.NewDeviceRepository(pool)
	causeRepo := postgres.NewIncidentCauseRepository(pool)
	planRepo := postgres.NewActionPlanRepository(pool)
	txManager := postgres.NewTransactionManager(pool)

	codec := spreadsheet.NewCodec(cfg.Location())
	notifier := email.NewMockSMTPNotifier(technicianRepo, cfg.App.DispatchTo, logger)

	// Services (Core)
	authService := services.NewAuthService(userRepo, cfg.DefaultRole())
	authzService := services.NewAuthorizationService(userRepo)
	adminService := services.NewAdminService(userRepo, authzService)
	ticketService := services.NewTicketService(services.TicketServiceDeps{
		Tickets:     ticketRepo,
		Events:      eventRepo,
		Technicians: technicianRepo,
		Authz:       authzService,
		Tx:          txManager,
		Codec:       codec,
		Notifier:    notifier,
		Broadcaster: hub,
		Policy:      cfg.DeadlinePolicy(),
		Logger:      logger,
	})
	defer ticketService.Shutdown()
	eventService := services.NewEventService(eventRepo, ticketService)
	pkiService := services.NewPKIService(ticketRepo, authzService, cfg.Scorecard())
	recordsService := services.NewRecordsService(technicianRepo, deviceRepo, causeRepo, planRepo, authzService)

	// Handlers (Primary Adapters)
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		Logger:         logger,
		TokenValidator: tokenManager,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		GeneralLimiter: generalRateLimiter,
		AuthLimiter:    authRateLimiter,
		Auth:           httpAdapter.NewAuthHandler(authService, tokenManager, loginLimiter, errorHandler, logger),
		Tickets:        httpAdapter.NewTicketHandler(ticketService, eventService, errorHandler, logger),
		PKI:            httpAdapter.NewPKIHandler(pkiService, errorHandler, logger),
		Records:        httpAdapter.NewRecordsHandler(recordsService, errorHandler, logger),
		Admin:          httpAdapter.NewAdminHandler(adminService, errorHandler, logger),
		Me:             httpAdapter.NewMeHandler(authzService, errorHandler, logger),
		Health: httpAdapter.NewHealthHandler(httpAdapter.HealthOptions{
			Store:         postgres.NewStoreHealth(pool),
			SchemaVersion: schemaVersion,
			Dashboard:     hub,
			Version:       cfg.App.Version,
		}),
		WebSocket: httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
	})

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Closes websocket clients; deferred calls drain notifications and the pool.
	stop()
	logger.Info("server shutdown complete")
	return nil
}

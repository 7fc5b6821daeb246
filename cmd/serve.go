package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/checked/chesscom"
	"github.com/Dosada05/checked/config"
	"github.com/Dosada05/checked/db"
	"github.com/Dosada05/checked/handlers"
	"github.com/Dosada05/checked/metrics"
	"github.com/Dosada05/checked/middleware"
	"github.com/Dosada05/checked/migrations"
	"github.com/Dosada05/checked/realtime"
	"github.com/Dosada05/checked/repositories"
	api "github.com/Dosada05/checked/routes"
	"github.com/Dosada05/checked/services"
	"github.com/Dosada05/checked/storage"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the websocket hub and the background jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

func serve(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("database", cfg.DatabasePath))
	if cfg.GeneratedSecret {
		logger.Warn("SECRET_KEY is not set; using a random key, tokens will not survive a restart")
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(cfg.DatabasePath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.AutoMigrate {
		autoMigrate(ctx, dbConn, logger)
	}

	cache := storage.NewCache(ctx, cfg.RedisAddr, logger)
	defer cache.Close()

	var uploader storage.FileUploader
	if cfg.R2Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader; uploads disabled", slog.Any("error", err))
			uploader = nil
		} else {
			logger.Info("Cloudflare R2 uploader initialized")
		}
	}

	m := metrics.New()
	chess := chesscom.NewClient(cfg.ChessComAPIBase,
		chesscom.WithCache(cache),
		chesscom.WithLogger(logger))

	playerRepo := repositories.NewPlayerRepository(dbConn)
	tournamentRepo := repositories.NewTournamentRepository(dbConn)
	entryRepo := repositories.NewTournamentPlayerRepository(dbConn)
	pairingRepo := repositories.NewPairingRepository(dbConn)
	clubRepo := repositories.NewClubRepository(dbConn)
	notificationRepo := repositories.NewNotificationRepository(dbConn)
	otpRepo := repositories.NewOTPRepository(dbConn)
	securityRepo := repositories.NewSecurityRepository(dbConn)
	statsRepo := repositories.NewStatsRepository(dbConn)
	logger.Info("repositories initialized")

	securityService := services.NewSecurityService(securityRepo, cache, logger)
	authService := services.NewAuthService(playerRepo, chess, securityService, cfg.SecretKey, cfg.TokenTTL(), logger)
	resetService := services.NewPasswordResetService(dbConn, otpRepo, playerRepo, services.NewSMSService(cfg, logger), logger)
	playerService := services.NewPlayerService(playerRepo, entryRepo, statsRepo, chess, m, logger)
	notificationService := services.NewNotificationService(notificationRepo, playerRepo, services.NewPushSender(cfg, logger), m, logger)
	tournamentService := services.NewTournamentService(dbConn, tournamentRepo, entryRepo, pairingRepo, playerRepo, chess, logger)

	hub := realtime.NewHub(tournamentService, logger.With(slog.String("component", "hub")))

	pairingService := services.NewPairingService(dbConn, tournamentRepo, entryRepo, pairingRepo, playerRepo, chess, notificationService, hub, m, logger)
	matchService := services.NewMatchService(pairingRepo, tournamentRepo, playerRepo)
	clubService := services.NewClubService(dbConn, clubRepo, playerRepo, uploader, cfg.R2PublicBaseURL, logger)
	analyticsService := services.NewAnalyticsService(statsRepo, m)
	catalogService := services.NewCatalogService(statsRepo, tournamentRepo)
	automation := services.NewAutomationService(tournamentRepo, pairingRepo, playerRepo, pairingService, playerService, resetService, chess, m, logger)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		App:          handlers.NewAppHandler(cfg.AppName, dbConn, cfg.DatabasePath, uploader, logger),
		Auth:         handlers.NewAuthHandler(authService, resetService, securityService),
		Player:       handlers.NewPlayerHandler(playerService),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Pairing:      handlers.NewPairingHandler(pairingService),
		Match:        handlers.NewMatchHandler(matchService),
		Club:         handlers.NewClubHandler(clubService),
		Notification: handlers.NewNotificationHandler(notificationService),
		Utils:        handlers.NewUtilsHandler(catalogService),
		Admin:        handlers.NewAdminHandler(analyticsService, securityService),
		WebSocket:    handlers.NewWebSocketHandler(hub, authService, playerService, entryRepo, m, cfg.AllowedOrigins(), logger),
	}, api.Options{
		Auth:               middleware.NewAuth(authService),
		Metrics:            m,
		Cache:              cache,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AllowedOrigins:     cfg.AllowedOrigins(),
		Logger:             logger,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		automation.Run(gctx, cfg.AutomationInterval, cfg.AutomationInitialDelay)
		return nil
	})
	g.Go(func() error {
		automation.RunRatingSync(gctx, cfg.RatingSyncInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		logger.Info("server shutdown complete")
		return nil
	})

	err = g.Wait()
	logger.Info("application exited")
	return err
}

// autoMigrate brings the schema to head. Failures are logged and the server
// starts anyway.
func autoMigrate(ctx context.Context, conn *sql.DB, logger *slog.Logger) {
	migrator, err := migrations.New(conn, logger)
	if err != nil {
		logger.Error("failed to load migrations", slog.Any("error", err))
		return
	}
	steps, err := migrator.Upgrade(ctx, "head")
	if err != nil {
		logger.Error("automatic migration failed; continuing with the current schema", slog.Any("error", err))
		return
	}
	for _, step := range steps {
		logger.Info("migration applied", slog.String("step", step.String()))
	}
	if len(steps) == 0 {
		logger.Info("database schema is up to date", slog.String("revision", migrator.Head()))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kegtrack/bracket-engine/brackets"
	"github.com/kegtrack/bracket-engine/config"
	"github.com/kegtrack/bracket-engine/db"
	"github.com/kegtrack/bracket-engine/handlers"
	"github.com/kegtrack/bracket-engine/repositories"
	api "github.com/kegtrack/bracket-engine/routes"
	"github.com/kegtrack/bracket-engine/services"
	"github.com/kegtrack/bracket-engine/storage"
	_ "github.com/lib/pq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn, cfg.MigrationsDir); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Crest uploads are optional; without R2 credentials the team
	// service rejects uploads but everything else works.
	var uploader storage.FileUploader
	if cfg.R2.Configured() {
		uploader, err = storage.NewCloudflareR2Uploader(cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("Cloudflare R2 not configured, crest uploads disabled")
	}

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub started")

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	teamRepo := repositories.NewPostgresTeamRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	poolRepo := repositories.NewPostgresPoolTeamRepository(dbConn)
	ledgerRepo := repositories.NewPostgresConsumptionLedgerRepository(dbConn)
	directory := repositories.NewPostgresParticipantDirectory(dbConn)
	txRunner := repositories.NewSQLTxRunner(dbConn)
	logger.Info("repositories initialized")

	coordinator := services.NewConsumptionCoordinator(ledgerRepo)

	authService := services.NewAuthService(userRepo, []byte(cfg.JWTSecretKey))
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		teamRepo,
		matchRepo,
		directory,
		uploader,
		txRunner,
		wsHub,
		logger,
	)
	teamService := services.NewTeamService(teamRepo, tournamentRepo, matchRepo, poolRepo, txRunner, uploader)
	matchService := services.NewMatchService(
		matchRepo,
		teamRepo,
		tournamentRepo,
		coordinator,
		txRunner,
		wsHub,
		logger,
	)
	logger.Info("services initialized")

	authHandler := handlers.NewAuthHandler(authService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	teamHandler := handlers.NewTeamHandler(teamService)
	matchHandler := handlers.NewMatchHandler(matchService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		authHandler,
		tournamentHandler,
		teamHandler,
		matchHandler,
		webSocketHandler,
		[]byte(cfg.JWTSecretKey),
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	"github.com/lessonforge/lessonforge/internal/adapter/fsm"
	handler "github.com/lessonforge/lessonforge/internal/adapter/http"
	"github.com/lessonforge/lessonforge/internal/adapter/otel"
	"github.com/lessonforge/lessonforge/internal/adapter/river"
	"github.com/lessonforge/lessonforge/internal/adapter/sqlite"
	"github.com/lessonforge/lessonforge/internal/app"
)

// config is parsed from the environment; a .env file is loaded first when
// present.
type config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"lessonforge.db"`
	Environment  string `env:"ENVIRONMENT" envDefault:"development"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lessonforge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	repo, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	riverClient, err := river.Setup(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("river setup: %w", err)
	}
	if err := riverClient.Start(ctx); err != nil {
		return fmt.Errorf("river start: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Warn("river stop", zap.Error(err))
		}
	}()

	publisher := otel.NewTracingPublisher(river.NewPublisher(riverClient))
	store := otel.NewTracingLedgerStore(repo)

	// --- Application ---
	ledger := app.NewLedger(store, fsm.New(), publisher, logger)
	locks := app.NewRequestLocks()
	svc := &handler.Services{
		Ledger:      ledger,
		Broker:      app.NewQuoteBroker(repo, repo, repo, ledger, locks, logger),
		Coordinator: app.NewCoordinator(repo, repo, ledger, locks, logger),
		Roster:      app.NewRosterService(repo, ledger, logger),
		Objectives:  app.NewObjectiveService(repo, ledger),
	}

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(otelchi.Middleware("lessonforge", otelchi.WithChiRoutes(router)))

	api := humachi.New(router, huma.DefaultConfig("lessonforge", "0.1.0"))
	handler.Register(api, svc)

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("stopped")
	return nil
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

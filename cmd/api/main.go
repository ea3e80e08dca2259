// Package main is the entry point for the RainCast API server.
//
// It loads configuration, opens the durable observation store, wires the
// verification services (proof validation, claim matching, vote aggregation,
// swarm tally) into the HTTP chassis, and serves until interrupted.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
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
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"raincast/internal/api/handlers"
	"raincast/internal/claims"
	"raincast/internal/config"
	"raincast/internal/consensus"
	"raincast/internal/core"
	"raincast/internal/external"
	"raincast/internal/observability"
	"raincast/internal/predict"
	"raincast/internal/proof"
	"raincast/internal/store"
	"raincast/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main() can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("raincast API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	metrics := observability.New(prometheus.DefaultRegisterer)
	clock := clockwork.NewRealClock()

	// Durable state: the observation history and the proof artifacts.
	st, err := store.Open(cfg.Storage.HistoryFile, logger)
	if err != nil {
		return fmt.Errorf("opening observation store: %w", err)
	}

	artifacts, err := proof.NewArtifactStore(cfg.Storage.UploadDir, logger)
	if err != nil {
		return fmt.Errorf("opening artifact store: %w", err)
	}

	// Upstream weather access goes through the circuit-breaking base client.
	base := external.NewBaseClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		"open-meteo",
		external.DefaultRetryPolicy(),
		cfg.Weather.UserAgent,
	)
	weatherClient := weather.New(base,
		cfg.Weather.GeocodeBaseURL,
		cfg.Weather.ForecastBaseURL,
		cfg.Weather.GeocodeCacheTTL,
	)

	// Verification services.
	proofValidator := proof.NewValidator(clock)
	claimsSvc := claims.NewService(st, proofValidator, artifacts, logger)
	votes := consensus.NewVoteAggregator(st, cfg.Consensus.PromoteThreshold, logger)
	swarm := consensus.NewSwarmTally(clock, cfg.Consensus.SwarmIdleTTL, cfg.Consensus.AlertThreshold, logger)

	srv, err := core.NewServer(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	obsHandler := handlers.NewObservationHandler(st, weatherClient, predict.Heuristic{}, srv.Validator, logger, metrics)
	claimHandler := handlers.NewClaimHandler(claimsSvc, logger, metrics, cfg.Proof.MaxUploadBytes)
	voteHandler := handlers.NewVoteHandler(votes, srv.Validator, logger, metrics)
	swarmHandler := handlers.NewSwarmHandler(swarm, srv.Validator, logger, metrics, cfg.Consensus.AlertThreshold)
	adminHandler := handlers.NewAdminHandler(st, artifacts, logger, cfg.Admin.KeyHash)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		func(r chi.Router) { obsHandler.RegisterRoutes(r) },
		func(r chi.Router) { claimHandler.RegisterRoutes(r) },
		func(r chi.Router) { voteHandler.RegisterRoutes(r) },
		func(r chi.Router) { swarmHandler.RegisterRoutes(r) },
		func(r chi.Router) { adminHandler.RegisterRoutes(r) },
	)

	srv.HealthProbes = append(srv.HealthProbes,
		storeProbe{store: st},
		dirProbe{name: "uploads", dir: cfg.Storage.UploadDir},
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// storeProbe reports the observation store healthy when it answers a read.
type storeProbe struct {
	store *store.Store
}

func (p storeProbe) Name() string { return "store" }

func (p storeProbe) Check(_ context.Context) error {
	p.store.Len()
	return nil
}

// dirProbe reports a required directory present and accessible.
type dirProbe struct {
	name string
	dir  string
}

func (p dirProbe) Name() string { return p.name }

func (p dirProbe) Check(_ context.Context) error {
	info, err := os.Stat(p.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", p.dir)
	}
	return nil
}

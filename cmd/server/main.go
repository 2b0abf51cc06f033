// GeoPulse - Realtime GPS Tracking and Environmental Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geopulse

// Package main is the entry point for the GeoPulse server.
//
// GeoPulse is a self-hosted realtime GPS tracking server. Browser clients
// stream coordinates over a websocket connection; the server enriches each
// update with environmental data, rebroadcasts it to every other connected
// client, and persists sessions, location records, and per-session analytics
// to an embedded store.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from config file and environment (Koanf v2)
//  2. Store: Open the embedded BadgerDB document store (optional)
//  3. Tracker: Session lifecycle and analytics aggregation
//  4. Weather: Environmental data provider with synthetic fallback
//  5. WebSocket Hub: Realtime fan-out to connected clients
//  6. HTTP Server: REST API, websocket endpoint, Prometheus metrics
//
// All long-running components run under a suture supervision tree and are
// restarted with backoff if they fail.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (GEOPULSE_ prefix, e.g. GEOPULSE_SERVER_PORT)
//   - Config file (config.yaml, or the path in GEOPULSE_CONFIG)
//   - Built-in defaults
//
// Persistence is optional: with an empty GEOPULSE_DATABASE_PATH the server
// runs fully in realtime-relay mode and never touches disk.
//
// Environmental enrichment degrades rather than fails: without a
// GEOPULSE_WEATHER_API_KEY, and whenever the upstream API is unreachable,
// readings are synthesized locally so location updates always carry data.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Notifies websocket clients and closes their sessions
//   - Waits for in-flight requests to complete (bounded by shutdown_timeout)
//   - Closes the store
//
// # Example Usage
//
// Realtime relay only, no persistence:
//
//	export GEOPULSE_DATABASE_PATH=
//	./geopulse
//
// Persistent tracking with live weather:
//
//	export GEOPULSE_DATABASE_PATH=/data/geopulse
//	export GEOPULSE_WEATHER_API_KEY=your-openweathermap-key
//	./geopulse
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/geopulse/internal/api"
	"github.com/tomtom215/geopulse/internal/config"
	"github.com/tomtom215/geopulse/internal/logging"
	"github.com/tomtom215/geopulse/internal/store"
	"github.com/tomtom215/geopulse/internal/supervisor"
	"github.com/tomtom215/geopulse/internal/supervisor/services"
	"github.com/tomtom215/geopulse/internal/tracker"
	"github.com/tomtom215/geopulse/internal/weather"
	ws "github.com/tomtom215/geopulse/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Timestamp: true,
	})

	logging.Info().Msg("Starting GeoPulse with supervisor tree")

	if cfg.Database.Enabled() {
		logging.Info().
			Str("db_path", cfg.Database.Path).
			Bool("in_memory", cfg.Database.InMemory).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("persistence", false).
			Msg("Configuration loaded (realtime relay mode)")
	}

	// Open the embedded store; a nil store disables persistence and every
	// consumer degrades to realtime-only behavior.
	var st *store.Store
	if cfg.Database.Enabled() {
		st, err = store.Open(store.Options{
			Path:     cfg.Database.Path,
			InMemory: cfg.Database.InMemory,
		})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to open store")
		}
		defer func() {
			if err := st.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing store")
			}
		}()
		logging.Info().Msg("Store opened successfully")
	} else {
		logging.Warn().Msg("Persistence disabled - sessions and locations will not be stored")
	}

	// Weather provider: live upstream with circuit breaker when a key is
	// configured, synthetic-only otherwise.
	weatherProvider := weather.New(weather.Config{
		APIKey:            cfg.Weather.APIKey,
		BaseURL:           cfg.Weather.BaseURL,
		Timeout:           cfg.Weather.Timeout,
		RequestsPerMinute: cfg.Weather.RequestsPerMinute,
	})
	if cfg.Weather.APIKey == "" {
		logging.Info().Msg("Weather API key not configured - using synthetic environmental data")
	}

	trk := tracker.New(st)
	hub := ws.NewHub(trk, weatherProvider)

	handler := api.NewHandler(cfg, trk, weatherProvider, hub, st)
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slogLogger, treeCfg)

	// Data layer: Badger value-log GC (no-op without an on-disk store)
	if st != nil {
		tree.AddDataService(services.NewStoreGCService(st, cfg.Database.GCInterval))
	}

	// Messaging layer: websocket hub fan-out
	tree.AddMessagingService(services.NewHubService(hub))

	// API layer: HTTP server with graceful shutdown
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

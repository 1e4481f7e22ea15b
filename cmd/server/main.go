// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/transitsync/internal/api"
	"github.com/tomtom215/transitsync/internal/cachevalidity"
	"github.com/tomtom215/transitsync/internal/config"
	"github.com/tomtom215/transitsync/internal/coordinator"
	"github.com/tomtom215/transitsync/internal/logging"
	"github.com/tomtom215/transitsync/internal/supervisor"
	"github.com/tomtom215/transitsync/internal/supervisor/services"
	"github.com/tomtom215/transitsync/internal/transport"
	ws "github.com/tomtom215/transitsync/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("stream_url", cfg.Stream.URL).
		Str("cache_backend", cfg.Cache.Backend).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting transitsync")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("transitsync stopped with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config) error {
	store, err := cachevalidity.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing cache store")
		}
	}()

	payload, err := cfg.SubscriptionPayload()
	if err != nil {
		return err
	}

	stream := transport.New(cfg.TransportConfig(), transport.WithLogger(logging.WithComponent("transport")))
	coord := coordinator.New(stream, payload, coordinator.WithLogger(logging.WithComponent("coordinator")))

	hub := ws.NewHub()
	coord.OnChange(hub.Publish)

	handlerOpts := []api.HandlerOption{api.WithLiveHub(hub, cfg.Server.CORSOrigins)}

	var refresher *cachevalidity.Refresher
	if cfg.Cache.DatasetURL != "" {
		oracle := cachevalidity.NewOracle(store.Store, cachevalidity.WithLocation(cfg.Location()))
		fetcher := cachevalidity.NewHTTPFetcher(cfg.Cache.DatasetURL, cfg.Cache.FetchTimeout)
		refresher = cachevalidity.NewRefresher(oracle, store.Store, fetcher)
		handlerOpts = append(handlerOpts, api.WithRefresher(refresher))
	} else {
		logging.Info().Msg("CACHE_DATASET_URL not set, static dataset refresh disabled")
	}

	mwConfig := api.DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Server.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Server.RateLimitRequests
	mwConfig.RateLimitWindow = cfg.Server.RateLimitWindow

	handler := api.NewHandler(coord, handlerOpts...)
	router := api.NewRouter(handler, mwConfig)

	// WriteTimeout does not apply to hijacked websocket connections.
	server := &http.Server{
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
		return err
	}

	tree.AddSyncService(services.NewCoordinatorService(coord))
	if refresher != nil {
		tree.AddSyncService(services.NewCacheRefreshService(refresher, cfg.Cache.RefreshInterval))
	}
	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), cfg.Supervisor.ShutdownTimeout))

	logging.Info().Msg("Starting supervisor tree...")
	err = tree.Serve(ctx)

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

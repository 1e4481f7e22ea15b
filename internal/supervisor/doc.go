// Transitsync - Real-time Transit Fleet Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/transitsync

/*
Package supervisor provides process supervision for transitsync using suture v4.

	RootSupervisor ("transitsync")
	├── SyncSupervisor ("sync-layer")
	│   ├── CoordinatorService
	│   └── CacheRefreshService
	└── APISupervisor ("api-layer")
	    ├── websocket.Hub
	    └── HTTPServerService

Crashed services restart with suture's failure counting and backoff; each
layer counts failures independently. Supervisor events are written through
sutureslog into the zerolog-backed slog adapter from internal/logging.

Usage in main.go:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(),
	    supervisor.TreeConfigFrom(cfg.Supervisor))
	if err != nil {
	    logging.Fatal().Err(err).Msg("create supervisor tree")
	}
	tree.AddSyncService(services.NewCoordinatorService(coord))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Addr(), timeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("supervisor stopped")
	}

See package services for the wrappers.
*/
package supervisor

// Reelfeed - Continuous Media Feed Playback Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelfeed

/*
Package supervisor provides the suture v4 process supervision tree of the
Reelfeed server.

# Tree Layout

	reelfeed (root)
	├── engine-layer
	│   ├── feed-manager          preload sweeps; closes every session on stop
	│   └── poll-session-reaper   closes idle HTTP-polled sessions
	├── messaging-layer
	│   ├── websocket-hub         client registry; shutdown notice on stop
	│   └── event-router          watermill router feeding the stats projection
	└── api-layer
	    └── http-server           chi router behind services.HTTPServerService

A service that keeps failing is restarted with backoff inside its layer;
the other layers keep running. Supervisor events are logged through
sutureslog into the application's slog handler.

# Usage

	tree, err := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	tree.AddEngineService(manager)
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, addr, timeout))
	err = tree.Serve(ctx)

Cancelling ctx stops the tree. Services that do not return within
ShutdownTimeout are listed by UnstoppedServiceReport.
*/
package supervisor

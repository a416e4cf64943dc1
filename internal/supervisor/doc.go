// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package supervisor provides process supervision for Partyline using suture v4.

The tree separates the realtime background work from the HTTP listener so
that a failing relay or reaper restarts without dropping the listener:

	RootSupervisor ("partyline")
	├── RealtimeSupervisor ("realtime-layer")
	│   ├── websocket-reaper
	│   ├── nats-relay (if NATS_ENABLED)
	│   └── directory-cache-janitor (if DIRECTORY_URL is set)
	└── APISupervisor ("api-layer")
	    └── http-server

Supervisor events are logged through sutureslog, bridged onto zerolog with
logging.NewSlogLogger.

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddRealtimeService(hub.Reaper())
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)
*/
package supervisor

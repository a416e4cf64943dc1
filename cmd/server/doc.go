// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package main is the entry point for the Partyline gateway.

Partyline terminates authenticated WebSocket connections for a group chat
product, tracks which connections follow which chats, and fans out typing
indicators, chat messages and per-user notifications.

# Application Architecture

	RootSupervisor ("partyline")
	├── RealtimeSupervisor ("realtime-layer")
	│   ├── websocket-reaper
	│   ├── nats-relay (NATS_ENABLED=true)
	│   └── directory-cache-janitor (DIRECTORY_URL set)
	└── APISupervisor ("api-layer")
	    └── http-server (GET /ws, /health, /metrics)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Authentication: HMAC JWT validation of the upgrade token
 4. Directory: optional HTTP user directory behind a circuit breaker
 5. Hub: the single registry, tracker, broadcaster, router and reaper
 6. Relay: optional NATS relay between gateway nodes
 7. Supervisor Tree and HTTP server

# Configuration

The only required setting is JWT_SECRET (at least 32 characters). See
internal/config for every key and its environment variable.
*/
package main

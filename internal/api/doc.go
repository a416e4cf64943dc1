// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package api provides the gateway's HTTP surface using the Chi router.

Routes:

  - GET /ws: WebSocket upgrade, rate limited per client IP
  - GET /health: connection and subscription counts plus component health
  - GET /metrics: Prometheus exposition

Global middleware, in order: request ID with logging context, real IP
extraction, panic recovery, CORS. Prometheus instrumentation is applied to
every route; it keeps http.Hijacker reachable so the upgrade still works.
*/
package api

// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package middleware provides HTTP middleware for the gateway's HTTP surface.

Key Components:

  - Request ID: UUID-based request tracking, propagated into logging context
  - Prometheus Metrics: request count, latency and in-flight instrumentation

Both middlewares wrap the ResponseWriter in a way that keeps http.Hijacker
reachable, so they can sit in front of the WebSocket upgrade endpoint.

Middleware Stack:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Get("/ws", hub.Handler().ServeHTTP)

Metrics are labelled with the chi route pattern rather than the raw path,
so query strings and path parameters never create new series.
*/
package middleware

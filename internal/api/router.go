// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/partyline/internal/middleware"
)

// Router owns the HTTP routes in front of the hub.
type Router struct {
	ws         http.Handler
	stats      StatsSource
	components []Component
	mw         *MiddlewareConfig
	started    time.Time
}

// NewRouter creates a router serving ws at /ws. A nil mw uses defaults.
func NewRouter(ws http.Handler, stats StatsSource, mw *MiddlewareConfig, components ...Component) *Router {
	if mw == nil {
		mw = DefaultMiddlewareConfig()
	}
	return &Router{
		ws:         ws,
		stats:      stats,
		components: components,
		mw:         mw,
		started:    time.Now(),
	}
}

// Handler builds the chi handler tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(rt.mw.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.With(rt.mw.UpgradeRateLimit()).Get("/ws", rt.ws.ServeHTTP)
	r.Get("/health", rt.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

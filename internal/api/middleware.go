// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/partyline/internal/config"
	"github.com/tomtom215/partyline/internal/logging"
)

// MiddlewareConfig holds CORS and upgrade rate-limit settings.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	// UpgradeRequests per UpgradeWindow per client IP. Zero disables the limit.
	UpgradeRequests int
	UpgradeWindow   time.Duration
}

// DefaultMiddlewareConfig returns the built-in defaults.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{http.MethodGet, http.MethodOptions},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		CORSMaxAge:         86400,
		UpgradeRequests:    60,
		UpgradeWindow:      time.Minute,
	}
}

// MiddlewareConfigFromSecurity maps the security section onto the defaults.
func MiddlewareConfigFromSecurity(sec *config.SecurityConfig) *MiddlewareConfig {
	cfg := DefaultMiddlewareConfig()
	if sec == nil {
		return cfg
	}
	cfg.CORSAllowedOrigins = sec.CORSOrigins
	cfg.UpgradeRequests = sec.UpgradeRateLimit
	if sec.UpgradeRateWindow > 0 {
		cfg.UpgradeWindow = sec.UpgradeRateWindow
	}
	return cfg
}

// CORS returns a go-chi/cors handler for the configured origins.
func (c *MiddlewareConfig) CORS() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         c.CORSMaxAge,
	})
}

// UpgradeRateLimit limits WebSocket handshakes per client IP.
func (c *MiddlewareConfig) UpgradeRateLimit() func(http.Handler) http.Handler {
	if c.UpgradeRequests <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		c.UpgradeRequests,
		c.UpgradeWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logging.Ctx(r.Context()).Warn().
				Str("remote_addr", r.RemoteAddr).
				Msg("websocket upgrade rate limited")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)
}

// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/websocket"
)

// StatsSource reports live hub counts.
type StatsSource interface {
	Stats() websocket.Stats
}

// Component is an optional dependency whose health is reported by /health.
type Component interface {
	String() string
	Healthy() bool
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status     string          `json:"status"`
	Uptime     string          `json:"uptime"`
	Stats      websocket.Stats `json:"stats"`
	Components map[string]bool `json:"components,omitempty"`
}

// Health serves connection counts. Status is "degraded" when any optional
// component is unhealthy; the response code stays 200.
func (rt *Router) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "healthy",
		Uptime: time.Since(rt.started).Round(time.Second).String(),
		Stats:  rt.stats.Stats(),
	}
	if len(rt.components) > 0 {
		resp.Components = make(map[string]bool, len(rt.components))
		for _, c := range rt.components {
			healthy := c.Healthy()
			resp.Components[c.String()] = healthy
			if !healthy {
				resp.Status = "degraded"
			}
		}
	}

	respondJSON(w, r, http.StatusOK, &resp)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write JSON response")
	}
}

// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"context"
	"time"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

const defaultReaperInterval = 30 * time.Second

// Reaper periodically removes registry entries whose transport is no longer
// open, along with their subscriptions.
type Reaper struct {
	registry *Registry
	tracker  *Tracker
	interval time.Duration
}

// NewReaper creates a reaper. A non-positive interval uses 30s.
func NewReaper(reg *Registry, tr *Tracker, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = defaultReaperInterval
	}
	return &Reaper{registry: reg, tracker: tr, interval: interval}
}

// Sweep runs one pass and returns how many connections it removed. An entry
// whose state probe panics is skipped.
func (r *Reaper) Sweep() int {
	removed := 0
	for _, e := range r.registry.Snapshot() {
		state, ok := probeState(e.Transport)
		if !ok || state == StateOpen {
			continue
		}
		if disconnect(r.registry, r.tracker, e.ID) {
			removed++
		}
	}

	metrics.RecordReaperSweep(removed)
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("reaper removed stale connections")
	}
	return removed
}

// Serve implements suture.Service.
func (r *Reaper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (r *Reaper) String() string {
	return "websocket-reaper"
}

// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/partyline/internal/logging"
)

// Notifier is the surface the business layer calls after it commits a write.
type Notifier interface {
	BroadcastChatMessage(ctx context.Context, topic TopicID, msg ChatMessage) (int, error)
	NotifyPendingJoinRequest(ctx context.Context, notice PendingJoinRequest) (bool, error)
	NotifyGroupAccepted(ctx context.Context, notice GroupAccepted) (bool, error)
}

// HubConfig configures a Hub.
type HubConfig struct {
	Router         RouterConfig
	ReaperInterval time.Duration
}

// HubOption configures optional collaborators.
type HubOption func(*hubOptions)

type hubOptions struct {
	names   DisplayNameResolver
	members MembershipChecker
}

// WithDisplayNames enriches typing and chat broadcasts with directory names.
func WithDisplayNames(r DisplayNameResolver) HubOption {
	return func(o *hubOptions) { o.names = r }
}

// WithMembership lets the router verify joins when VerifyMembership is set.
func WithMembership(m MembershipChecker) HubOption {
	return func(o *hubOptions) { o.members = m }
}

// Hub owns the single Registry and Tracker of the process and composes the
// router, broadcaster and reaper around them.
type Hub struct {
	registry    *Registry
	tracker     *Tracker
	broadcaster *Broadcaster
	router      *Router
	reaper      *Reaper
}

var _ Notifier = (*Hub)(nil)

// NewHub builds a hub. authenticator is required.
func NewHub(cfg HubConfig, authenticator Authenticator, opts ...HubOption) *Hub {
	var o hubOptions
	for _, opt := range opts {
		opt(&o)
	}

	reg := NewRegistry()
	tr := NewTracker()
	b := NewBroadcaster(reg, tr)
	return &Hub{
		registry:    reg,
		tracker:     tr,
		broadcaster: b,
		router:      NewRouter(cfg.Router, reg, tr, b, authenticator, o.names, o.members),
		reaper:      NewReaper(reg, tr, cfg.ReaperInterval),
	}
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry { return h.registry }

// Tracker returns the membership tracker.
func (h *Hub) Tracker() *Tracker { return h.tracker }

// Broadcaster returns the fan-out broadcaster.
func (h *Hub) Broadcaster() *Broadcaster { return h.broadcaster }

// Reaper returns the stale-connection reaper, to be run under a supervisor.
func (h *Hub) Reaper() *Reaper { return h.reaper }

// Handler returns the upgrade handler for the WebSocket endpoint.
func (h *Hub) Handler() http.Handler { return h.router }

// BroadcastChatMessage fans a persisted chat message out to every
// subscriber of topic, the sender's connections included.
func (h *Hub) BroadcastChatMessage(ctx context.Context, topic TopicID, msg ChatMessage) (int, error) {
	msg.ChatID = int(topic)
	n, err := h.broadcaster.BroadcastToTopic(topic, &msg, "")
	if err != nil {
		return 0, fmt.Errorf("broadcast chat message: %w", err)
	}
	logging.Ctx(ctx).Debug().Int("topic", int(topic)).Int("recipients", n).Msg("chat message broadcast")
	return n, nil
}

// NotifyPendingJoinRequest tells the group owner about a new join request.
func (h *Hub) NotifyPendingJoinRequest(ctx context.Context, notice PendingJoinRequest) (bool, error) {
	ok, err := h.broadcaster.SendToUser(notice.OwnerID, &notice)
	if err != nil {
		return false, fmt.Errorf("notify pending join request: %w", err)
	}
	logging.Ctx(ctx).Debug().Int("owner_id", notice.OwnerID).Bool("delivered", ok).Msg("pending join request notice")
	return ok, nil
}

// NotifyGroupAccepted tells a user their join request was approved.
func (h *Hub) NotifyGroupAccepted(ctx context.Context, notice GroupAccepted) (bool, error) {
	ok, err := h.broadcaster.SendToUser(notice.UserID, &notice)
	if err != nil {
		return false, fmt.Errorf("notify group accepted: %w", err)
	}
	logging.Ctx(ctx).Debug().Int("user_id", notice.UserID).Bool("delivered", ok).Msg("group accepted notice")
	return ok, nil
}

// CloseAll sends a going-away close to every connection and removes them.
// It is registered with http.Server.RegisterOnShutdown because hijacked
// connections are not tracked by the server.
func (h *Hub) CloseAll() {
	entries := h.registry.Snapshot()
	for _, e := range entries {
		if state, ok := probeState(e.Transport); ok && state == StateOpen {
			_ = e.Transport.Close(websocket.CloseGoingAway, "Server shutting down")
		}
		disconnect(h.registry, h.tracker, e.ID)
	}
	logging.Info().Int("connections", len(entries)).Msg("closed all websocket connections")
}

// Stats is a point-in-time summary for the health endpoint.
type Stats struct {
	Connections     int `json:"connections"`
	OpenConnections int `json:"open_connections"`
	Subscriptions   int `json:"subscriptions"`
}

// Stats returns current connection and subscription counts.
func (h *Hub) Stats() Stats {
	return Stats{
		Connections:     h.registry.Count(),
		OpenConnections: len(h.registry.AllOpen()),
		Subscriptions:   h.tracker.Count(),
	}
}

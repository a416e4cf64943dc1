// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/partyline/internal/api"
	"github.com/tomtom215/partyline/internal/auth"
	"github.com/tomtom215/partyline/internal/config"
	"github.com/tomtom215/partyline/internal/directory"
	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/supervisor"
	"github.com/tomtom215/partyline/internal/supervisor/services"
	ws "github.com/tomtom215/partyline/internal/websocket"
)

// app holds the wired process components.
type app struct {
	hub       *ws.Hub
	relay     *ws.Relay          // nil unless NATS is enabled
	directory *directory.Service // nil unless a directory URL is set
	server    *http.Server
}

// newApp wires every component from cfg. Nothing is started.
func newApp(cfg *config.Config) (*app, error) {
	manager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return nil, fmt.Errorf("jwt manager: %w", err)
	}

	a := &app{}
	var opts []ws.HubOption
	var components []api.Component

	if cfg.Directory.BaseURL != "" {
		a.directory = directory.NewService(&cfg.Directory)
		opts = append(opts, ws.WithDisplayNames(a.directory), ws.WithMembership(a.directory))
		components = append(components, a.directory)
		logging.Info().
			Str("directory_url", cfg.Directory.BaseURL).
			Bool("verify_membership", cfg.Directory.VerifyMembership).
			Msg("Directory enrichment enabled")
	} else if cfg.Directory.VerifyMembership {
		return nil, errors.New("directory.verify_membership requires directory.base_url")
	}

	a.hub = ws.NewHub(ws.HubConfig{
		Router: ws.RouterConfig{
			TokenQueryParam: cfg.Security.TokenQueryParam,
			AllowedOrigins:  cfg.Security.AllowedOrigins,
			Client: ws.ClientConfig{
				WriteWait:      cfg.Realtime.WriteWait,
				PongWait:       cfg.Realtime.PongWait,
				IdleTimeout:    cfg.Realtime.IdleTimeout,
				MaxMessageSize: cfg.Realtime.MaxMessageSize,
				SendBuffer:     cfg.Realtime.SendBuffer,
			},
			InboundRate:      cfg.Realtime.InboundRate,
			InboundBurst:     cfg.Realtime.InboundBurst,
			VerifyMembership: cfg.Directory.VerifyMembership,
		},
		ReaperInterval: cfg.Realtime.ReaperInterval,
	}, auth.NewJWTAuthenticator(manager), opts...)

	if cfg.NATS.Enabled {
		a.relay = ws.NewRelay(ws.RelayConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			NodeID:        cfg.NATS.NodeID,
		}, a.hub.Broadcaster())
		components = append(components, a.relay)
		logging.Info().
			Str("nats_url", cfg.NATS.URL).
			Str("node_id", a.relay.NodeID()).
			Msg("NATS relay enabled")
	}

	router := api.NewRouter(a.hub.Handler(), a.hub, api.MiddlewareConfigFromSecurity(&cfg.Security), components...)

	a.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	// Hijacked connections are invisible to Shutdown.
	a.server.RegisterOnShutdown(a.hub.CloseAll)

	return a, nil
}

// supervise adds every long-running component to tree.
func (a *app) supervise(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	tree.AddRealtimeService(a.hub.Reaper())
	if a.relay != nil {
		tree.AddRealtimeService(a.relay)
	}
	if a.directory != nil {
		tree.AddRealtimeService(a.directory)
	}
	tree.AddAPIService(services.NewHTTPServerService(a.server, shutdownTimeout))
}

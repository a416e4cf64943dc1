// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package config

import (
	"fmt"
	"time"
)

// Config holds all gateway configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (config.yaml)
//  3. Environment Variables: override any setting
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Realtime  RealtimeConfig  `koanf:"realtime"`
	Directory DirectoryConfig `koanf:"directory"`
	NATS      NATSConfig      `koanf:"nats"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds handshake authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret   string `koanf:"jwt_secret"`
	JWTIssuer   string `koanf:"jwt_issuer"`
	JWTAudience string `koanf:"jwt_audience"`

	// TokenQueryParam is the query string key that carries the bearer token
	// on the upgrade request. Browsers cannot set headers on WebSocket
	// handshakes, so the query parameter is the primary carrier.
	TokenQueryParam string `koanf:"token_query_param"`

	CORSOrigins []string `koanf:"cors_origins"`

	// AllowedOrigins restricts the Origin header accepted by the upgrader.
	// Empty or "*" accepts any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	UpgradeRateLimit  int           `koanf:"upgrade_rate_limit"`
	UpgradeRateWindow time.Duration `koanf:"upgrade_rate_window"`
}

// RealtimeConfig holds connection lifecycle tuning.
type RealtimeConfig struct {
	// ReaperInterval is how often stale registry entries are swept.
	ReaperInterval time.Duration `koanf:"reaper_interval"`

	// IdleTimeout closes connections that send no data frame for this long.
	// Zero disables it; the read deadline then follows pong_wait only.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	SendBuffer     int           `koanf:"send_buffer"`

	// InboundRate is the sustained frames/second a single connection may
	// send; excess frames are dropped. Zero disables limiting.
	InboundRate  float64 `koanf:"inbound_rate"`
	InboundBurst int     `koanf:"inbound_burst"`
}

// DirectoryConfig points at the user-profile and membership service.
// An empty BaseURL disables display-name enrichment and membership checks.
type DirectoryConfig struct {
	BaseURL          string        `koanf:"base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	CacheSize        int           `koanf:"cache_size"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	VerifyMembership bool          `koanf:"verify_membership"`
}

// NATSConfig enables cross-instance relay of deliveries.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
	NodeID        string `koanf:"node_id"` // generated at startup if empty
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs with production checks.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

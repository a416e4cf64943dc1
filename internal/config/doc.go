// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

/*
Package config loads and validates Partyline configuration.

# Configuration Sources

Values are layered with Koanf v2, later layers winning:
  - Built-in defaults (defaultConfig)
  - Optional YAML file: $CONFIG_PATH, ./config.yaml, /etc/partyline/config.yaml
  - Environment variables

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT (default: 0.0.0.0:5080)
  - HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT, HTTP_SHUTDOWN_TIMEOUT
  - ENVIRONMENT: development, staging, production

Security:
  - JWT_SECRET: HMAC secret for handshake tokens (required, min 32 chars)
  - JWT_ISSUER, JWT_AUDIENCE: expected claims (checked when set)
  - WS_TOKEN_PARAM: query parameter carrying the token (default: token)
  - CORS_ORIGINS, WS_ALLOWED_ORIGINS: comma-separated origin lists
  - UPGRADE_RATE_LIMIT, UPGRADE_RATE_WINDOW: per-IP upgrade throttling

Realtime:
  - WS_REAPER_INTERVAL (default: 30s)
  - WS_IDLE_TIMEOUT (default: 5m, 0 disables)
  - WS_WRITE_WAIT, WS_PONG_WAIT, WS_MAX_MESSAGE_SIZE, WS_SEND_BUFFER
  - WS_INBOUND_RATE, WS_INBOUND_BURST: per-connection frame limit

Directory:
  - DIRECTORY_URL: user-profile service base URL (empty disables lookups)
  - DIRECTORY_TIMEOUT, DIRECTORY_CACHE_SIZE, DIRECTORY_CACHE_TTL
  - DIRECTORY_VERIFY_MEMBERSHIP: check IsMember before honoring a join

NATS relay:
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT_PREFIX, NATS_NODE_ID

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.Load()
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
*/
package config

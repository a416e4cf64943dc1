// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// minJWTSecretLength is the shortest HMAC secret accepted for token validation.
const minJWTSecretLength = 32

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the configuration and reports every problem found, joined
// into a single error.
func (c *Config) Validate() error {
	return errors.Join(
		c.validateServer(),
		c.validateSecurity(),
		c.validateRealtime(),
		c.validateDirectory(),
		c.validateNATS(),
		c.validateLogging(),
	)
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	var errs []error

	switch {
	case c.Security.JWTSecret == "":
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	case len(c.Security.JWTSecret) < minJWTSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	case c.IsProduction() && isPlaceholder(c.Security.JWTSecret):
		errs = append(errs, fmt.Errorf("JWT_SECRET appears to be a placeholder value"))
	}

	if strings.TrimSpace(c.Security.TokenQueryParam) == "" {
		errs = append(errs, fmt.Errorf("WS_TOKEN_PARAM must not be empty"))
	}
	if c.Security.UpgradeRateLimit < 0 {
		errs = append(errs, fmt.Errorf("UPGRADE_RATE_LIMIT must not be negative"))
	}
	if c.Security.UpgradeRateLimit > 0 && c.Security.UpgradeRateWindow <= 0 {
		errs = append(errs, fmt.Errorf("UPGRADE_RATE_WINDOW must be positive when UPGRADE_RATE_LIMIT is set"))
	}
	if c.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				errs = append(errs, fmt.Errorf("CORS_ORIGINS must not contain '*' in production"))
				break
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) validateRealtime() error {
	var errs []error
	rt := c.Realtime

	if rt.ReaperInterval <= 0 {
		errs = append(errs, fmt.Errorf("WS_REAPER_INTERVAL must be positive"))
	}
	if rt.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("WS_IDLE_TIMEOUT must not be negative"))
	}
	if rt.WriteWait <= 0 {
		errs = append(errs, fmt.Errorf("WS_WRITE_WAIT must be positive"))
	}
	if rt.PongWait <= 0 {
		errs = append(errs, fmt.Errorf("WS_PONG_WAIT must be positive"))
	}
	if rt.MaxMessageSize <= 0 {
		errs = append(errs, fmt.Errorf("WS_MAX_MESSAGE_SIZE must be positive"))
	}
	if rt.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("WS_SEND_BUFFER must be at least 1"))
	}
	if rt.InboundRate < 0 {
		errs = append(errs, fmt.Errorf("WS_INBOUND_RATE must not be negative"))
	}
	if rt.InboundRate > 0 && rt.InboundBurst < 1 {
		errs = append(errs, fmt.Errorf("WS_INBOUND_BURST must be at least 1 when WS_INBOUND_RATE is set"))
	}

	return errors.Join(errs...)
}

func (c *Config) validateDirectory() error {
	if c.Directory.BaseURL == "" {
		if c.Directory.VerifyMembership {
			return fmt.Errorf("DIRECTORY_VERIFY_MEMBERSHIP requires DIRECTORY_URL")
		}
		return nil
	}

	var errs []error
	if err := validateHTTPURL(c.Directory.BaseURL, "DIRECTORY_URL"); err != nil {
		errs = append(errs, err)
	}
	if c.Directory.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("DIRECTORY_TIMEOUT must be positive"))
	}
	if c.Directory.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("DIRECTORY_CACHE_SIZE must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	var errs []error
	if c.NATS.URL == "" {
		errs = append(errs, fmt.Errorf("NATS_URL is required when NATS_ENABLED=true"))
	} else if u, err := url.Parse(c.NATS.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("NATS_URL is invalid: %q", c.NATS.URL))
	}
	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		errs = append(errs, fmt.Errorf("NATS_SUBJECT_PREFIX must be a non-empty literal subject token"))
	}
	return errors.Join(errs...)
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateHTTPURL checks that rawURL is an absolute http(s) URL without
// query parameters. A path prefix is allowed.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}

// placeholderPatterns indicate a secret copied from an example file.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_",
	"EXAMPLE",
}

func isPlaceholder(value string) bool {
	upper := strings.ToUpper(value)
	for _, p := range placeholderPatterns {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

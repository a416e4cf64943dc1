// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/partyline/internal/cache"
	"github.com/tomtom215/partyline/internal/config"
	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
	"github.com/tomtom215/partyline/internal/websocket"
)

// Service adapts the directory to the websocket collaborator interfaces,
// caching display names.
type Service struct {
	api      API
	names    *cache.LRU[int, string]
	cacheTTL time.Duration
}

var (
	_ websocket.DisplayNameResolver = (*Service)(nil)
	_ websocket.MembershipChecker   = (*Service)(nil)
)

// NewService builds the breaker-wrapped HTTP client described by cfg.
func NewService(cfg *config.DirectoryConfig) *Service {
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	return NewServiceWithAPI(NewCircuitBreakerClient(client, BreakerSettings{}), cfg.CacheSize, cfg.CacheTTL)
}

// NewServiceWithAPI wraps an existing API. Used by tests and by callers that
// bring their own transport.
func NewServiceWithAPI(api API, cacheSize int, cacheTTL time.Duration) *Service {
	return &Service{
		api:      api,
		names:    cache.NewLRU[int, string](cacheSize, cacheTTL),
		cacheTTL: cacheTTL,
	}
}

// ResolveDisplayName implements websocket.DisplayNameResolver. Failures are
// logged and reported as "no name"; they never fail the caller.
func (s *Service) ResolveDisplayName(ctx context.Context, userID int) (string, bool) {
	if name, ok := s.names.Get(userID); ok {
		metrics.DirectoryCacheHits.Inc()
		return name, true
	}
	metrics.DirectoryCacheMisses.Inc()

	user, err := s.api.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			logging.Ctx(ctx).Debug().Err(err).Int("user_id", userID).Msg("display name lookup failed")
		}
		return "", false
	}

	name := strings.TrimSpace(user.DisplayName)
	if name == "" {
		return "", false
	}
	s.names.Add(userID, name)
	return name, true
}

// IsMember implements websocket.MembershipChecker.
func (s *Service) IsMember(ctx context.Context, userID int, topic websocket.TopicID) (bool, error) {
	return s.api.IsMember(ctx, userID, int(topic))
}

// Forget drops a cached display name, e.g. after a profile rename.
func (s *Service) Forget(userID int) {
	s.names.Remove(userID)
}

// Healthy reports false while the circuit breaker is open.
func (s *Service) Healthy() bool {
	if cb, ok := s.api.(interface{ State() gobreaker.State }); ok {
		return cb.State() != gobreaker.StateOpen
	}
	return true
}

// Serve evicts expired display names until ctx is cancelled.
func (s *Service) Serve(ctx context.Context) error {
	interval := s.cacheTTL
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if removed := s.names.CleanupExpired(); removed > 0 {
				logging.Debug().Int("removed", removed).Msg("expired display names evicted")
			}
		}
	}
}

func (s *Service) String() string {
	return "directory-cache-janitor"
}

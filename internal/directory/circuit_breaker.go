// Partyline - Real-time Group Chat and Notification Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/partyline

package directory

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/partyline/internal/logging"
	"github.com/tomtom215/partyline/internal/metrics"
)

var _ API = (*CircuitBreakerClient)(nil)

// CircuitBreakerClient wraps an API with a circuit breaker so a slow or
// failing directory is skipped instead of stalling every receive loop.
type CircuitBreakerClient struct {
	api  API
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// BreakerSettings tunes the breaker. Zero values use the defaults below.
type BreakerSettings struct {
	MaxRequests  uint32        // half-open probes, default 3
	Interval     time.Duration // closed-state count reset, default 1m
	Timeout      time.Duration // open -> half-open, default 30s
	MinRequests  uint32        // default 10
	FailureRatio float64       // default 0.6
}

// NewCircuitBreakerClient wraps api.
// Opens after a 60% failure rate over at least 10 requests by default.
// ErrUserNotFound is an answer, not a failure.
func NewCircuitBreakerClient(api API, s BreakerSettings) *CircuitBreakerClient {
	if s.MaxRequests == 0 {
		s.MaxRequests = 3
	}
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	if s.Timeout <= 0 {
		s.Timeout = 30 * time.Second
	}
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = 0.6
	}

	cbName := "directory-api"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= s.FailureRatio
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening directory circuit")
			}
			return shouldTrip
		},

		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUserNotFound)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] Directory state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerClient{api: api, cb: cb, name: cbName}
}

// State returns the breaker state.
func (cbc *CircuitBreakerClient) State() gobreaker.State {
	return cbc.cb.State()
}

func (cbc *CircuitBreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cbc.cb.Execute(fn)

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		logging.Debug().Err(err).Msg("[CIRCUIT BREAKER] Directory request rejected")
	case errors.Is(err, ErrUserNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
	}
	return result, err
}

// GetUser fetches a user profile with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetUser(ctx context.Context, userID int) (*User, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.api.GetUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	user, ok := result.(*User)
	if !ok || user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// IsMember checks chat membership with circuit breaker protection.
func (cbc *CircuitBreakerClient) IsMember(ctx context.Context, userID, chatID int) (bool, error) {
	result, err := cbc.execute(func() (interface{}, error) {
		return cbc.api.IsMember(ctx, userID, chatID)
	})
	if err != nil {
		return false, err
	}
	member, _ := result.(bool)
	return member, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

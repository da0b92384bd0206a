// Fudosync - Incremental extraction engine for the Fudo POS API
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fudosync

package sync

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fudosync/internal/logging"
	"github.com/tomtom215/fudosync/internal/metrics"
)

// breaker wraps a gobreaker circuit breaker with metrics and logging.
//
// Only failures that say something about the health of the Fudo API count
// against the circuit: transport errors and 5xx responses. Client errors
// (401, 403, other 4xx, 429) are excluded so a bad credential or an
// unsupported filter on one entity cannot open the circuit for everyone.
//
// The breaker uses real time for its interval and timeout. Tests that need
// deterministic behavior drive the wrapped function directly.
type breaker[T any] struct {
	cb      *gobreaker.CircuitBreaker[T]
	name    string
	timeout time.Duration
}

// defaultBreakerTimeout is how long an open circuit rejects calls before it
// lets a single trial request through.
const defaultBreakerTimeout = 30 * time.Second

func newBreaker[T any](name string, timeout time.Duration) *breaker[T] {
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,

		// Opens when failure rate >= 60% with at least 10 counted requests.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Str("breaker", name).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsExcluded: func(err error) bool {
			var se *statusError
			return errors.As(err, &se) && se.code < 500
		},
	})

	return &breaker[T]{cb: cb, name: name, timeout: timeout}
}

// execute runs fn through the circuit. A rejected call returns
// gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
func (b *breaker[T]) execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if isCircuitRejection(err) {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).
				Set(float64(b.cb.Counts().ConsecutiveFailures))
		}
		return result, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(b.name).Set(0)
	return result, nil
}

// state returns the current circuit state name.
func (b *breaker[T]) state() string {
	return b.cb.State().String()
}

func isCircuitRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
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

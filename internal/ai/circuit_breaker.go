package ai

import (
	stderrors "errors"
	"fmt"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker wraps provider calls with the circuit breaker pattern. It
// fails fast while the endpoint keeps failing and never re-issues a call.
// A nil breaker runs calls directly.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewAICircuitBreaker creates the breaker guarding generation requests
func NewAICircuitBreaker(name string, cfg *config.OperationAIConfig, logger *errors.Logger) *CircuitBreaker[*Completion] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	breaker := cfg.CircuitBreaker
	return newCircuitBreaker[*Completion](fmt.Sprintf("AI-%s", name), breaker, logger, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= breaker.MinRequests && failureRatio >= breaker.FailureThreshold
	})
}

// NewModelCircuitBreaker creates the breaker guarding model availability checks
func NewModelCircuitBreaker(name string, cfg *config.OperationAIConfig, logger *errors.Logger) *CircuitBreaker[*ModelInfo] {
	if !cfg.CircuitBreaker.Enabled {
		return nil
	}

	// Model info is less critical, so use more lenient settings
	return newCircuitBreaker[*ModelInfo](fmt.Sprintf("AI-Model-%s", name), cfg.CircuitBreaker, logger, func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.8
	})
}

func newCircuitBreaker[T any](name string, cfg config.CircuitBreakerConfig, logger *errors.Logger, readyToTrip func(gobreaker.Counts) bool) *CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: readyToTrip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger == nil {
				return
			}
			logger.Info("Circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn with circuit breaker protection
func (cb *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	if cb == nil || cb.cb == nil {
		return fn()
	}
	return cb.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker[T]) GetStats() map[string]any {
	if cb == nil || cb.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}

	return map[string]any{
		"name":    cb.cb.Name(),
		"state":   cb.cb.State().String(),
		"counts":  cb.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state
func (cb *CircuitBreaker[T]) IsHealthy() bool {
	if cb == nil || cb.cb == nil {
		return true
	}
	return cb.cb.State() == gobreaker.StateClosed
}

// isBreakerRejection reports whether err came from an open or saturated breaker
func isBreakerRejection(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}

// generationFailed wraps any provider failure in the single error the
// pipeline surfaces for a failed request.
func generationFailed(provider, model string, err error) error {
	appErr := errors.NewAIError(errors.ErrCodeGenerationFailed, "Generation request failed", err).
		WithContext("provider", provider).
		WithContext("model", model)
	if isBreakerRejection(err) {
		appErr.Message = "Generation endpoint unavailable, circuit breaker is open"
		appErr.WithContext("reason", errors.ErrCodeCircuitOpen)
	}
	return appErr
}

package ai

import (
	"fmt"
	"testing"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func breakerConfig(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "openai",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      1,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}
}

func TestCircuitBreakerConfigurationMapping(t *testing.T) {
	cb := NewAICircuitBreaker("Generate", breakerConfig(true), nil)
	if cb == nil {
		t.Fatal("Circuit breaker should not be nil")
	}

	stats := cb.GetStats()
	name, ok := stats["name"].(string)
	if !ok {
		t.Fatal("Circuit breaker name not found")
	}
	if name != "AI-Generate" {
		t.Errorf("Expected circuit breaker name 'AI-Generate', got '%s'", name)
	}

	state, ok := stats["state"].(string)
	if !ok {
		t.Fatal("Circuit breaker state not found")
	}
	if state != "closed" {
		t.Errorf("Expected initial state 'closed', got '%s'", state)
	}
	if !cb.IsHealthy() {
		t.Error("Circuit breaker should be healthy initially")
	}

	model := NewModelCircuitBreaker("Generate", breakerConfig(true), nil)
	assert.Equal(t, "AI-Model-Generate", model.GetStats()["name"])
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cb := NewAICircuitBreaker("Generate", breakerConfig(false), nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker runs the call directly and reports healthy
	calls := 0
	completion, err := cb.Execute(func() (*Completion, error) {
		calls++
		return &Completion{Text: "{}"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "{}", completion.Text)
	assert.Equal(t, 1, calls)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, map[string]any{"enabled": false}, cb.GetStats())
}

func TestCircuitBreakerOpensWithoutReissuingCalls(t *testing.T) {
	cb := NewAICircuitBreaker("Generate", breakerConfig(true), errors.NewLogger(0))

	calls := 0
	failing := func() (*Completion, error) {
		calls++
		return nil, fmt.Errorf("endpoint down")
	}

	for range 3 {
		_, err := cb.Execute(failing)
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls, "every request is issued exactly once")
	assert.False(t, cb.IsHealthy())

	_, err := cb.Execute(failing)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, calls, "an open breaker fails fast without calling the endpoint")

	wrapped := generationFailed("openai", "test-model", err)
	assert.True(t, errors.HasCode(wrapped, errors.ErrCodeGenerationFailed))
	appErr, ok := errors.AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeCircuitOpen, appErr.Context["reason"])
}

func TestIndependentCircuitBreakers(t *testing.T) {
	first := NewAICircuitBreaker("First", breakerConfig(true), nil)
	second := NewAICircuitBreaker("Second", breakerConfig(true), nil)

	for range 3 {
		_, _ = first.Execute(func() (*Completion, error) { return nil, fmt.Errorf("boom") })
	}

	assert.False(t, first.IsHealthy())
	assert.True(t, second.IsHealthy(), "failures in one breaker must not trip another")
}

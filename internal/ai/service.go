package ai

import (
	"context"
	"fmt"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// Service handles resume generation requests against the configured provider
type Service struct {
	Provider Generator // Exported for access from server package
	config   *config.OperationAIConfig
	logger   *errors.Logger
}

// NewService creates a generation service for the given operation configuration
func NewService(cfg *config.OperationAIConfig, name string, logger *errors.Logger) (*Service, error) {
	var provider Generator
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", name,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"max_tokens", *cfg.MaxTokens,
		"timeout", *cfg.Timeout)

	switch cfg.Provider {
	case "openai":
		provider, err = NewOpenAIProvider(cfg, name, logger)
	case "gemini":
		provider, err = NewGeminiProvider(cfg, name, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		return nil, err
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Generate sends the prompt pair to the provider
func (s *Service) Generate(ctx context.Context, prompt PromptPair) (*Completion, error) {
	return s.Provider.Generate(ctx, prompt)
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// Close releases provider resources
func (s *Service) Close() error {
	return s.Provider.Close()
}

// CircuitBreakerStats returns the provider's breaker state, if it has breakers
func (s *Service) CircuitBreakerStats() map[string]any {
	if reporter, ok := s.Provider.(BreakerReporter); ok {
		return reporter.CircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Model returns the configured model name
func (s *Service) Model() string {
	return s.config.Model
}

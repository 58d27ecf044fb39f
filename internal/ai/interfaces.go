package ai

import "context"

// Generator sends a prompt pair to a chat-completion model and returns its raw
// text. Implementations never retry a request.
type Generator interface {
	Generate(ctx context.Context, prompt PromptPair) (*Completion, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// BreakerReporter is implemented by generators guarded by circuit breakers.
type BreakerReporter interface {
	CircuitBreakerStats() map[string]any
}

// Completion is the raw model output for one request.
type Completion struct {
	Text       string
	Model      string
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

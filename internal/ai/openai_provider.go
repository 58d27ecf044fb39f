package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxErrorBodyBytes caps how much of a failed response body is kept in the error
const maxErrorBodyBytes = 2048

// OpenAIProvider implements Generator for OpenAI-compatible chat-completion endpoints
type OpenAIProvider struct {
	httpClient     *http.Client
	baseURL        string
	config         *config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*Completion]
	modelBreaker   *CircuitBreaker[*ModelInfo]
	logger         *errors.Logger
}

// Ensure OpenAIProvider implements Generator
var _ Generator = (*OpenAIProvider)(nil)

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float32        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

type modelResponse struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

// NewOpenAIProvider creates a provider for the configured chat-completion endpoint
func NewOpenAIProvider(cfg *config.OperationAIConfig, name string, logger *errors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"API key is required for the openai provider (set OPENAI_API_KEY or ai.apiKey)", nil)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		httpClient: &http.Client{
			Timeout:   *cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:        baseURL,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(name, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(name, cfg, logger),
		logger:         logger,
	}, nil
}

// Generate sends one chat-completion request. Any failure is returned as a
// GENERATION_FAILED error; the request is never repeated.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt PromptPair) (*Completion, error) {
	tracer := otel.Tracer("resumeforge.ai.openai")
	ctx, span := tracer.Start(ctx, "openai.generate_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", o.config.Model),
		attribute.Float64("ai.temperature", float64(*o.config.Temperature)),
		attribute.Int("ai.max_tokens", *o.config.MaxTokens),
	)

	completion, err := o.circuitBreaker.Execute(func() (*Completion, error) {
		return o.send(ctx, prompt)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, generationFailed("openai", o.config.Model, err)
	}

	if usage := completion.TokenUsage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return completion, nil
}

func (o *OpenAIProvider) send(ctx context.Context, prompt PromptPair) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model: o.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
		Temperature:    *o.config.Temperature,
		MaxTokens:      *o.config.MaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeGenerationFailed, "request to generation endpoint failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeGenerationFailed, "error reading response", err)
	}

	o.logger.Debug("Generation endpoint responded",
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(respBody))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, truncate(respBody, maxErrorBodyBytes))
	}

	var envelope chatResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("malformed response envelope: %w", err)
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("endpoint error: %s", envelope.Error.Message)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from endpoint")
	}

	model := envelope.Model
	if model == "" {
		model = o.config.Model
	}

	return &Completion{
		Text:       cleanJSONResponse(envelope.Choices[0].Message.Content),
		Model:      model,
		TokenUsage: envelope.Usage.tokenUsage(),
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (o *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := o.modelBreaker.Execute(func() (*ModelInfo, error) {
		return o.fetchModel(checkCtx)
	})
	if err != nil {
		o.logger.Warn("Model availability check failed",
			"model", o.config.Model,
			"provider", o.config.Provider,
			"error", err.Error())
		return &ModelInfo{
			Name:     o.config.Model,
			Provider: "openai",
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}

	o.logger.Debug("Model availability check successful",
		"model", o.config.Model,
		"provider", o.config.Provider)
	return info
}

func (o *OpenAIProvider) fetchModel(ctx context.Context) (*ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/models/"+o.config.Model, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var model modelResponse
	if err := json.NewDecoder(resp.Body).Decode(&model); err != nil {
		return nil, fmt.Errorf("malformed model response: %w", err)
	}

	return &ModelInfo{
		Name:        o.config.Model,
		Provider:    "openai",
		DisplayName: model.ID,
		Version:     model.OwnedBy,
		Available:   true,
	}, nil
}

// CircuitBreakerStats reports the generation and model-check breakers
func (o *OpenAIProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"generate":    o.circuitBreaker.GetStats(),
		"model_check": o.modelBreaker.GetStats(),
		"healthy":     o.circuitBreaker.IsHealthy(),
	}
}

// Close releases idle connections
func (o *OpenAIProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

func (u *chatUsage) tokenUsage() *TokenUsage {
	if u == nil {
		return nil
	}
	return &TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// cleanJSONResponse removes a markdown code fence wrapped around the content
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	// Drop the info string, e.g. ```json
	if newline := strings.IndexByte(content, '\n'); newline >= 0 {
		content = content[newline+1:]
	} else {
		content = strings.TrimPrefix(content, "json")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func truncate(body []byte, limit int) string {
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

// modelCheckTimeout bounds model availability checks
const modelCheckTimeout = 10 * time.Second

// GeminiProvider implements Generator for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationAIConfig
	circuitBreaker *CircuitBreaker[*Completion]
	modelBreaker   *CircuitBreaker[*ModelInfo]
	logger         *errors.Logger
}

// Ensure GeminiProvider implements Generator
var _ Generator = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance
func NewGeminiProvider(cfg *config.OperationAIConfig, name string, logger *errors.Logger) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"API key is required for the gemini provider (set GEMINI_API_KEY or ai.apiKey)", nil)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   *cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeGenerationFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewAICircuitBreaker(name, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(name, cfg, logger),
		logger:         logger,
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := g.modelBreaker.Execute(func() (*ModelInfo, error) {
		model, err := g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
		if err != nil {
			return nil, err
		}
		return &ModelInfo{
			Name:        g.config.Model,
			Provider:    "gemini",
			DisplayName: model.DisplayName,
			Version:     model.Version,
			Available:   true,
		}, nil
	})
	if err != nil {
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return &ModelInfo{
			Name:     g.config.Model,
			Provider: "gemini",
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"provider", g.config.Provider,
		"display_name", info.DisplayName,
		"version", info.Version)

	return info
}

// Generate sends one generation request. Any failure is returned as a
// GENERATION_FAILED error; the request is never repeated.
func (g *GeminiProvider) Generate(ctx context.Context, prompt PromptPair) (*Completion, error) {
	tracer := otel.Tracer("resumeforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate_resume")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("ai.max_tokens", *g.config.MaxTokens),
	)

	genaiConfig := g.buildResumeSchema()
	if prompt.System != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	completion, err := g.circuitBreaker.Execute(func() (*Completion, error) {
		result, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt.User), genaiConfig)
		if err != nil {
			return nil, err
		}
		text := result.Text()
		if text == "" {
			return nil, fmt.Errorf("no candidates returned from endpoint")
		}
		model := result.ModelVersion
		if model == "" {
			model = g.config.Model
		}
		return &Completion{Text: text, Model: model, TokenUsage: extractTokenUsage(result)}, nil
	})
	if err != nil {
		recordAPIStatus(span, err)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, generationFailed("gemini", g.config.Model, err)
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

// CircuitBreakerStats reports the generation and model-check breakers
func (g *GeminiProvider) CircuitBreakerStats() map[string]any {
	return map[string]any{
		"generate":    g.circuitBreaker.GetStats(),
		"model_check": g.modelBreaker.GetStats(),
		"healthy":     g.circuitBreaker.IsHealthy(),
	}
}

// Close releases provider resources
func (g *GeminiProvider) Close() error {
	return nil
}

// buildResumeSchema creates the response schema for the resume document
func (g *GeminiProvider) buildResumeSchema() *genai.GenerateContentConfig {
	stringList := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"personalInfo": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"fullName": {Type: genai.TypeString},
						"email":    {Type: genai.TypeString},
						"phone":    {Type: genai.TypeString},
						"location": {Type: genai.TypeString},
						"title":    {Type: genai.TypeString},
					},
					Required: []string{"fullName", "email", "phone", "location", "title"},
				},
				"summary": {Type: genai.TypeString},
				"experience": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"company":      {Type: genai.TypeString},
							"position":     {Type: genai.TypeString},
							"location":     {Type: genai.TypeString},
							"startDate":    {Type: genai.TypeString},
							"endDate":      {Type: genai.TypeString},
							"achievements": stringList,
						},
						Required: []string{"company", "position", "startDate", "endDate", "achievements"},
					},
				},
				"education": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"school":       {Type: genai.TypeString},
							"degree":       {Type: genai.TypeString},
							"field":        {Type: genai.TypeString},
							"startDate":    {Type: genai.TypeString},
							"endDate":      {Type: genai.TypeString},
							"achievements": stringList,
						},
						Required: []string{"school", "degree", "startDate", "endDate"},
					},
				},
				"skills": stringList,
			},
			Required: []string{"personalInfo", "summary", "experience", "education", "skills"},
		},
	}

	// A configured temperature of 0 is kept, it selects greedy sampling
	if g.config.Temperature != nil {
		temperature := *g.config.Temperature
		config.Temperature = &temperature
	}
	if g.config.MaxTokens != nil && *g.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(*g.config.MaxTokens)
	}

	return config
}

// recordAPIStatus adds the endpoint status code to the span when the error carries one
func recordAPIStatus(span trace.Span, err error) {
	if code, ok := apiStatusCode(err); ok {
		span.SetAttributes(attribute.Int("http.response.status_code", code))
	}
}

// apiStatusCode extracts the HTTP status from errors returned by the genai client
func apiStatusCode(err error) (int, bool) {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if stderrors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

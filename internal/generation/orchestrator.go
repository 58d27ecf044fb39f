// Package generation runs the resume pipeline for one interview session:
// prompt building, the model call, response validation and the storage handoff.
package generation

import (
	"context"
	"time"

	"resumeforge/internal/ai"
	"resumeforge/internal/errors"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"
	"resumeforge/internal/observability"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// maxLoggedResponseBytes caps the raw model output written to the log on a parse failure
const maxLoggedResponseBytes = 4096

// Result is the outcome of a successful generation.
type Result struct {
	Handoff    *storage.Handoff `json:"handoff"`
	Document   *resume.Document `json:"document"`
	Warnings   []resume.Issue   `json:"warnings,omitempty"`
	Model      string           `json:"model"`
	TokenUsage *ai.TokenUsage   `json:"tokenUsage,omitempty"`
	Duration   time.Duration    `json:"duration"`
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	prompts   *ai.PromptBuilder
	generator ai.Generator
	validator *resume.Validator
	sink      *storage.Sink
	catalog   *i18n.Catalog
	metrics   *observability.Metrics
	logger    *errors.Logger
}

// Options configures an Orchestrator. Prompts and Metrics may be nil.
type Options struct {
	Prompts   *ai.PromptBuilder
	Generator ai.Generator
	Validator *resume.Validator
	Sink      *storage.Sink
	Catalog   *i18n.Catalog
	Metrics   *observability.Metrics
	Logger    *errors.Logger
}

// NewOrchestrator creates an orchestrator from opts.
func NewOrchestrator(opts Options) *Orchestrator {
	return &Orchestrator{
		prompts:   opts.Prompts,
		generator: opts.Generator,
		validator: opts.Validator,
		sink:      opts.Sink,
		catalog:   opts.Catalog,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Prompt renders the prompt pair for the session's current answers in locale.
func (o *Orchestrator) Prompt(session *interview.Session, locale string) ai.PromptPair {
	return o.prompts.Build(interview.Sections(), session.Answers(), o.catalog.Translator(locale))
}

// Generate produces, validates and stores a resume for a complete session.
// Only one generation may run per session; a concurrent call is rejected.
// The session's answers are never modified.
func (o *Orchestrator) Generate(ctx context.Context, session *interview.Session, locale string) (*Result, error) {
	answers, err := session.ClaimGeneration()
	if err != nil {
		return nil, err
	}
	defer session.EndGeneration()

	ctx, span := otel.Tracer("resumeforge.generation").Start(ctx, "generation.generate")
	defer span.End()

	t := o.catalog.Translator(locale)
	span.SetAttributes(
		attribute.String("session.id", session.ID()),
		attribute.String("locale", t.Locale()),
	)

	start := time.Now()
	result, err := o.run(ctx, session.ID(), answers, t)
	if err != nil {
		span.RecordError(err)
		o.recordFailure(ctx, session, t.Locale(), err)
		return nil, err
	}
	result.Duration = time.Since(start)

	o.metrics.RecordBusinessMetric(ctx, observability.MetricResumeGenerated, true,
		attribute.String("locale", t.Locale()))
	o.metrics.RecordResumeSize(ctx, len(result.Document.Raw()))

	o.logger.Info("Resume generated",
		"session_id", session.ID(),
		"locale", t.Locale(),
		"model", result.Model,
		"warnings", len(result.Warnings),
		"duration", result.Duration)

	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, sessionID string, answers map[string]string, t i18n.Translator) (*Result, error) {
	prompt := o.prompts.Build(interview.Sections(), answers, t)

	var completion *ai.Completion
	err := o.metrics.TrackAIOperationWithTokens(ctx, "generate_resume", func(ctx context.Context) *observability.AIOperationResult {
		var genErr error
		completion, genErr = o.generator.Generate(ctx, prompt)
		result := &observability.AIOperationResult{Error: genErr}
		if completion != nil && completion.TokenUsage != nil {
			result.TokenUsage = &observability.TokenUsage{
				InputTokens:  completion.TokenUsage.InputTokens,
				OutputTokens: completion.TokenUsage.OutputTokens,
				TotalTokens:  completion.TokenUsage.TotalTokens,
			}
		}
		return result
	})
	if err != nil {
		return nil, err
	}

	doc, err := o.validator.Validate(completion.Text)
	if err != nil {
		o.logger.Warn("Model response rejected",
			"session_id", sessionID,
			"model", completion.Model,
			"error", err.Error(),
			"response", clip(completion.Text, maxLoggedResponseBytes))
		return nil, err
	}
	for _, issue := range doc.Warnings {
		o.logger.Debug("Resume entry warning",
			"session_id", sessionID,
			"field", issue.Field,
			"message", issue.Message)
	}

	handoff, err := o.sink.Save(ctx, sessionID, doc)
	if err != nil {
		return nil, err
	}

	return &Result{
		Handoff:    handoff,
		Document:   doc,
		Warnings:   doc.Warnings,
		Model:      completion.Model,
		TokenUsage: completion.TokenUsage,
	}, nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, session *interview.Session, locale string, err error) {
	errorType := string(errors.ErrorTypeInternal)
	if appErr, ok := errors.AsAppError(err); ok {
		errorType = string(appErr.Type)
	}
	o.metrics.RecordBusinessMetric(ctx, observability.MetricResumeGenerated, false,
		attribute.String("locale", locale))
	o.metrics.RecordGenerationFailure(ctx, errorType)
	o.logger.LogError(err, "Resume generation failed",
		"session_id", session.ID(),
		"locale", locale)
}

func clip(text string, limit int) string {
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}

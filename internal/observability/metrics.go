package observability

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric
const (
	MetricInterviewStarted = "interview_started"
	MetricAnswerSubmitted  = "answer_submitted"
	MetricResumeGenerated  = "resume_generated"
	MetricRateLimitHit     = "rate_limit_hit"
)

// Metrics holds all custom metrics for resumeforge. The zero value records nothing.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Interview and resume metrics
	InterviewsStarted  metric.Int64Counter
	AnswersSubmitted   metric.Int64Counter
	ResumesGenerated   metric.Int64Counter
	GenerationFailures metric.Int64Counter
	ResumeSize         metric.Int64Histogram

	// Infrastructure metrics
	ActiveSessions metric.Int64UpDownCounter
	RateLimitHits  metric.Int64Counter

	fullConfig *config.Config
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter, fullConfig *config.Config) (*Metrics, error) {
	m := &Metrics{fullConfig: fullConfig}
	var err error

	if m.AIProcessingTime, err = meter.Float64Histogram(
		"resumeforge_ai_processing_duration_seconds",
		metric.WithDescription("Time spent processing AI requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	if m.AIRequestCount, err = meter.Int64Counter(
		"resumeforge_ai_requests_total",
		metric.WithDescription("Total number of AI requests"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	if m.AIErrorCount, err = meter.Int64Counter(
		"resumeforge_ai_errors_total",
		metric.WithDescription("Total number of AI request errors"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	if m.AITokenUsage, err = meter.Int64Histogram(
		"resumeforge_ai_token_usage",
		metric.WithDescription("Token usage for AI requests (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	if m.InterviewsStarted, err = meter.Int64Counter(
		"resumeforge_interviews_started_total",
		metric.WithDescription("Total number of interview sessions started"),
	); err != nil {
		return nil, fmt.Errorf("failed to create interviews started metric: %w", err)
	}

	if m.AnswersSubmitted, err = meter.Int64Counter(
		"resumeforge_answers_submitted_total",
		metric.WithDescription("Total number of answer submissions, accepted or rejected"),
	); err != nil {
		return nil, fmt.Errorf("failed to create answers submitted metric: %w", err)
	}

	if m.ResumesGenerated, err = meter.Int64Counter(
		"resumeforge_resumes_generated_total",
		metric.WithDescription("Total number of resume generations"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resumes generated metric: %w", err)
	}

	if m.GenerationFailures, err = meter.Int64Counter(
		"resumeforge_generation_failures_total",
		metric.WithDescription("Resume generation failures by error type"),
	); err != nil {
		return nil, fmt.Errorf("failed to create generation failures metric: %w", err)
	}

	if m.ResumeSize, err = meter.Int64Histogram(
		"resumeforge_resume_size_bytes",
		metric.WithDescription("Size of stored resume documents"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, fmt.Errorf("failed to create resume size metric: %w", err)
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"resumeforge_active_sessions",
		metric.WithDescription("Interview sessions currently held in memory"),
	); err != nil {
		return nil, fmt.Errorf("failed to create active sessions metric: %w", err)
	}

	if m.RateLimitHits, err = meter.Int64Counter(
		"resumeforge_rate_limit_hits_total",
		metric.WithDescription("Total number of rate limit hits"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if m == nil || m.AIProcessingTime == nil {
		// Metrics not initialized, just run the function
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("resumeforge.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.aiOperations().Enabled {
		m.recordAIMetrics(ctx, operation, err, duration, result, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}

	return err
}

func (m *Metrics) aiOperations() config.AIOperationsMetricsConfig {
	if m.fullConfig == nil {
		return config.AIOperationsMetricsConfig{Enabled: true, TrackDuration: true, TrackTokenUsage: true}
	}
	return m.fullConfig.Observability.CustomMetrics.AIOperations
}

func (m *Metrics) businessMetrics() config.BusinessMetricsConfig {
	if m.fullConfig == nil {
		return config.BusinessMetricsConfig{Enabled: true, TrackSuccessRates: true, TrackContentSizes: true}
	}
	return m.fullConfig.Observability.CustomMetrics.BusinessMetrics
}

func (m *Metrics) infrastructure() config.InfrastructureMetricsConfig {
	if m.fullConfig == nil {
		return config.InfrastructureMetricsConfig{Enabled: true, TrackRateLimits: true}
	}
	return m.fullConfig.Observability.CustomMetrics.Infrastructure
}

// recordAIMetrics records all AI-related metrics
func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if m.aiOperations().TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, operation, result, span)

	span.SetAttributes(attrs...)
}

// recordTokenUsage records token usage metrics and span attributes
func (m *Metrics) recordTokenUsage(ctx context.Context, operation string, result *AIOperationResult, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	if m.aiOperations().TrackTokenUsage {
		for _, tt := range []struct {
			tokenType string
			value     int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("token_type", tt.tokenType),
			))
		}
	}

	// Token usage always goes on the span for debugging
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// RecordBusinessMetric records an interview or resume event
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if m == nil {
		return
	}
	if metricType == MetricRateLimitHit {
		m.recordRateLimitHit(ctx, attributes)
		return
	}
	if !m.businessMetrics().Enabled {
		return
	}

	attrs := attributes
	if m.businessMetrics().TrackSuccessRates {
		attrs = append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	}

	var counter metric.Int64Counter
	switch metricType {
	case MetricInterviewStarted:
		counter = m.InterviewsStarted
	case MetricAnswerSubmitted:
		counter = m.AnswersSubmitted
	case MetricResumeGenerated:
		counter = m.ResumesGenerated
	}
	if counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordGenerationFailure counts a failed generation by error type
func (m *Metrics) RecordGenerationFailure(ctx context.Context, errorType string) {
	if m == nil || m.GenerationFailures == nil || !m.businessMetrics().Enabled {
		return
	}
	m.GenerationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error_type", errorType)))
}

// RecordResumeSize records the size of a stored document
func (m *Metrics) RecordResumeSize(ctx context.Context, bytes int) {
	if m == nil || m.ResumeSize == nil || !m.businessMetrics().TrackContentSizes {
		return
	}
	m.ResumeSize.Record(ctx, int64(bytes))
}

// SessionOpened and SessionsClosed track the number of live interview sessions
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.addActiveSessions(ctx, 1)
}

func (m *Metrics) SessionsClosed(ctx context.Context, count int) {
	m.addActiveSessions(ctx, -int64(count))
}

func (m *Metrics) addActiveSessions(ctx context.Context, delta int64) {
	if m == nil || m.ActiveSessions == nil || !m.infrastructure().Enabled {
		return
	}
	m.ActiveSessions.Add(ctx, delta)
}

// recordRateLimitHit records rate limit hit metric
func (m *Metrics) recordRateLimitHit(ctx context.Context, attrs []attribute.KeyValue) {
	if m.RateLimitHits == nil || !m.infrastructure().TrackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
}

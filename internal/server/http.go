package server

import (
	"context"
	"crypto/x509"
	"time"

	"resumeforge/internal/ai"
	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/generation"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"
	"resumeforge/internal/observability"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"
)

// CreateInterviewRequest is the body for POST /api/v1/interviews
type CreateInterviewRequest struct {
	Locale string `json:"locale"`
}

// AnswerRequest is the body for POST /api/v1/interviews/{id}/answers
type AnswerRequest struct {
	Text string `json:"text"`
}

// ErrorResponse represents an error response. Message is localized for the end user.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// QuestionView is the question a session is waiting on
type QuestionView struct {
	SectionID    string `json:"sectionId"`
	SectionTitle string `json:"sectionTitle"`
	Key          string `json:"key"`
	Text         string `json:"text"`
}

// ProgressView reports how far through the script a session is
type ProgressView struct {
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
	Label    string `json:"label"`
}

// InterviewResponse is the state returned by every interview route
type InterviewResponse struct {
	ID         string             `json:"id"`
	Locale     string             `json:"locale"`
	Position   interview.Position `json:"position"`
	Complete   bool               `json:"complete"`
	Generating bool               `json:"generating"`
	Progress   ProgressView       `json:"progress"`
	Current    *QuestionView      `json:"current,omitempty"`
	Answers    map[string]string  `json:"answers,omitempty"`
}

// GenerateResponse is returned by a successful generation
type GenerateResponse struct {
	Handoff  *storage.Handoff `json:"handoff"`
	Message  string           `json:"message"`
	Model    string           `json:"model"`
	Warnings []resume.Issue   `json:"warnings,omitempty"`
}

// Dependencies are the collaborators the HTTP layer drives
type Dependencies struct {
	Sessions      *interview.Store
	Orchestrator  *generation.Orchestrator
	Catalog       *i18n.Catalog
	Sink          *storage.Sink
	AI            *ai.Service                         // used for health checks, may be nil
	Auth          auth.Service                        // nil when end-user auth is disabled
	Observability *observability.ObservabilityManager // may be nil
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// certificate is the parsed leaf of the served TLS certificate
	certificate *x509.Certificate

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	sessions      *interview.Store
	orchestrator  *generation.Orchestrator
	catalog       *i18n.Catalog
	sink          *storage.Sink
	ai            *ai.Service
	auth          auth.Service
	observability *observability.ObservabilityManager

	// Logger
	Logger *errors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServerConfig reads the server section of the application config
func NewServerConfig(appCfg *config.Config, version string) ServerConfig {
	rateLimit := appCfg.Server.RateLimit
	return ServerConfig{
		Host:           appCfg.Server.Host,
		Port:           appCfg.Server.Port,
		Version:        version,
		TLSConfig:      appCfg.Server.TLS,
		APIKeys:        appCfg.Server.APIKeys,
		ReadTimeout:    appCfg.Server.ReadTimeout,
		WriteTimeout:   appCfg.Server.WriteTimeout,
		IdleTimeout:    appCfg.Server.IdleTimeout,
		MaxRequestSize: appCfg.Server.MaxRequestSize,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *errors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	s := &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		sessions:       deps.Sessions,
		orchestrator:   deps.Orchestrator,
		catalog:        deps.Catalog,
		sink:           deps.Sink,
		ai:             deps.AI,
		auth:           deps.Auth,
		observability:  deps.Observability,
		Logger:         logger,
	}

	if s.sessions != nil {
		s.sessions.OnRemove(s.sessionsRemoved)
	}

	return s
}

// sessionsRemoved updates the session gauge and discards the resumes stored
// for deleted or evicted sessions.
func (s *Server) sessionsRemoved(ids []string) {
	ctx := context.Background()
	s.observability.GetMetrics().SessionsClosed(ctx, len(ids))
	if s.sink == nil {
		return
	}
	for _, id := range ids {
		if err := s.sink.Discard(ctx, id); err != nil {
			s.Logger.LogError(err, "Failed to discard stored resume", "session_id", id)
		}
	}
}

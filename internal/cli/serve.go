package cli

import (
	"context"
	"fmt"
	"time"

	"resumeforge/internal/auth"
	"resumeforge/internal/config"
	"resumeforge/internal/generation"
	"resumeforge/internal/interview"
	"resumeforge/internal/observability"
	"resumeforge/internal/server"

	"github.com/spf13/cobra"
)

const observabilityShutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API for interviews and resume generation",
		Long: `Start an HTTP server that runs interviews and generates resumes over a REST API.

Available endpoints:
- GET  /api/v1/sections: The interview script in the requested language
- POST /api/v1/interviews: Start an interview
- POST /api/v1/interviews/{id}/answers: Answer the current question
- POST /api/v1/interviews/{id}/generate: Generate the resume
- GET  /api/v1/interviews/{id}/resume: Fetch the stored resume
- GET  /health: Health check endpoint
- GET  /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	cmd.Flags().String("host", "", "Host to bind to (default from config)")
	cmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	cmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	cmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
	return cmd
}

// applyServeOverrides copies explicitly set flags over the loaded config
func applyServeOverrides(cmd *cobra.Command, cfg *config.Config) {
	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	applyServeOverrides(cmd, cfg)

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	catalog, err := newCatalog(cfg, logger)
	if err != nil {
		return err
	}

	obsManager, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, Version), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), observabilityShutdownTimeout)
		defer cancel()
		if err := obsManager.Shutdown(ctx); err != nil {
			logger.LogError(err, "Failed to shut down observability")
		}
	}()

	pipeline, err := generation.NewPipeline(cfg, catalog, obsManager.GetMetrics(), logger)
	if err != nil {
		return fmt.Errorf("failed to create generation pipeline: %w", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.LogError(err, "Failed to close generation pipeline")
		}
	}()

	// A nil auth.Service keeps every interview anonymous
	var authService auth.Service
	if cfg.Auth.Enabled {
		local, err := auth.NewLocalService(cfg.Auth, logger)
		if err != nil {
			return fmt.Errorf("failed to create auth service: %w", err)
		}
		authService = local
	}

	deps := server.Dependencies{
		Sessions:      interview.NewStore(cfg.Interview.SessionTTL, cfg.Interview.MaxSessions, logger),
		Orchestrator:  pipeline.Orchestrator,
		Catalog:       catalog,
		Sink:          pipeline.Sink,
		AI:            pipeline.Service,
		Auth:          authService,
		Observability: obsManager,
	}

	return server.NewServer(cfg, server.NewServerConfig(cfg, Version), deps, logger).Start(cmd.Context())
}

package generation

import (
	stderrors "errors"

	"resumeforge/internal/ai"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/i18n"
	"resumeforge/internal/observability"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"
)

// Pipeline bundles the orchestrator with the resources it owns.
type Pipeline struct {
	Orchestrator *Orchestrator
	Service      *ai.Service
	Sink         *storage.Sink
}

// NewPipeline builds every pipeline stage from configuration. The generate
// operation's API key is required here, not at config load time.
func NewPipeline(cfg *config.Config, catalog *i18n.Catalog, metrics *observability.Metrics, logger *errors.Logger) (*Pipeline, error) {
	generateConfig := cfg.GetGenerateConfig()
	service, err := ai.NewService(&generateConfig, "Generate", logger)
	if err != nil {
		return nil, err
	}

	validator, err := resume.NewValidator(cfg.Generation.StrictEntries)
	if err != nil {
		_ = service.Close()
		return nil, err
	}

	store, err := storage.NewStore(cfg.Storage, logger)
	if err != nil {
		_ = service.Close()
		return nil, err
	}
	sink := storage.NewSink(store, cfg.Storage, logger)

	orchestrator := NewOrchestrator(Options{
		Prompts:   ai.NewPromptBuilder(cfg.GetLoadedGeneratePrompts(), generateConfig.CustomPrompts),
		Generator: service,
		Validator: validator,
		Sink:      sink,
		Catalog:   catalog,
		Metrics:   metrics,
		Logger:    logger,
	})

	return &Pipeline{Orchestrator: orchestrator, Service: service, Sink: sink}, nil
}

// Close releases the provider and the store.
func (p *Pipeline) Close() error {
	return stderrors.Join(p.Service.Close(), p.Sink.Close())
}

package storage

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/resume"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ResumeKey is the fixed key under which a session's generated resume is stored.
const ResumeKey = "generatedResume"

// Handoff tells the resume editor where to find a generated document.
type Handoff struct {
	SessionID  string `json:"sessionId"`
	Key        string `json:"key"`
	TemplateID string `json:"templateId"`
	EditorPath string `json:"editorPath"`
}

// Sink writes validated documents to transient storage.
type Sink struct {
	store      Store
	ttl        time.Duration
	templateID string
	editorPath string
	logger     *errors.Logger
}

// NewSink creates a sink over store using the configured TTL, template and editor path.
func NewSink(store Store, cfg config.StorageConfig, logger *errors.Logger) *Sink {
	return &Sink{
		store:      store,
		ttl:        cfg.TTL,
		templateID: cfg.DefaultTemplate,
		editorPath: cfg.EditorPath,
		logger:     logger,
	}
}

// SessionKey scopes the resume key to one session.
func SessionKey(sessionID string) string {
	return "session:" + sessionID + ":" + ResumeKey
}

// Save stores the document for sessionID and returns the editor handoff.
// There is no confirmation beyond the store write.
func (s *Sink) Save(ctx context.Context, sessionID string, doc *resume.Document) (*Handoff, error) {
	ctx, span := otel.Tracer("resumeforge.storage").Start(ctx, "sink.save")
	defer span.End()

	key := SessionKey(sessionID)
	span.SetAttributes(attribute.String("storage.key", key))

	if err := s.store.Set(ctx, key, doc.Raw(), s.ttl); err != nil {
		span.RecordError(err)
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to store generated resume", err).
			WithContext("key", key)
	}

	s.logger.Debug("Generated resume stored",
		"session_id", sessionID,
		"key", key,
		"ttl", s.ttl,
		"bytes", len(doc.Raw()))

	return &Handoff{
		SessionID:  sessionID,
		Key:        key,
		TemplateID: s.templateID,
		EditorPath: s.editorPath,
	}, nil
}

// Load returns the stored document JSON for sessionID.
func (s *Sink) Load(ctx context.Context, sessionID string) (json.RawMessage, error) {
	key := SessionKey(sessionID)
	raw, err := s.store.Get(ctx, key)
	if stderrors.Is(err, ErrNotFound) {
		return nil, errors.NewNotFoundError(errors.ErrCodeResumeNotFound, "no generated resume for this session", err).
			WithContext("key", key)
	}
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeStorageFailed, "failed to load generated resume", err).
			WithContext("key", key)
	}
	return raw, nil
}

// Discard removes the stored document for sessionID.
func (s *Sink) Discard(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, SessionKey(sessionID))
}

// Sweeper is implemented by stores that only drop expired keys when asked.
type Sweeper interface {
	Sweep() int
}

// RunJanitor sweeps expired documents every interval until ctx is cancelled.
// Stores that expire keys on their own return immediately.
func (s *Sink) RunJanitor(ctx context.Context, interval time.Duration) error {
	sweeper, ok := s.store.(Sweeper)
	if !ok {
		return nil
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if swept := sweeper.Sweep(); swept > 0 {
				s.logger.Debug("Swept expired resumes", "count", swept)
			}
		}
	}
}

// Ping checks that the underlying store is reachable.
func (s *Sink) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the underlying store.
func (s *Sink) Close() error {
	return s.store.Close()
}

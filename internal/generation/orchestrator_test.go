package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resumeforge/internal/ai"
	"resumeforge/internal/config"
	"resumeforge/internal/errors"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"
	"resumeforge/internal/resume"
	"resumeforge/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedResume = `{
  "personalInfo": {"fullName": "Ada Lovelace", "email": "ada@example.com", "phone": "", "location": "London", "title": "Analyst"},
  "summary": "Mathematician.",
  "experience": [{"company": "Analytical Engine", "position": "Programmer", "location": "London", "startDate": "1842", "endDate": "1843", "achievements": ["Wrote the first program"]}],
  "education": [{"school": "Home", "degree": "Tutoring", "field": "Mathematics", "startDate": "", "endDate": "", "achievements": []}],
  "skills": ["Mathematics", "Analysis"]
}`

type fakeGenerator struct {
	text   string
	err    error
	calls  atomic.Int32
	seen   ai.PromptPair
	during func()
}

func (f *fakeGenerator) Generate(_ context.Context, prompt ai.PromptPair) (*ai.Completion, error) {
	f.calls.Add(1)
	f.seen = prompt
	if f.during != nil {
		f.during()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Completion{Text: f.text, Model: "fake-model"}, nil
}

func (f *fakeGenerator) GetModelInfo(context.Context) *ai.ModelInfo {
	return &ai.ModelInfo{Name: "fake-model", Available: true}
}

func (f *fakeGenerator) Close() error { return nil }

type fixture struct {
	orchestrator *Orchestrator
	store        *storage.MemoryStore
	sink         *storage.Sink
	logs         *bytes.Buffer
}

func newFixture(t *testing.T, generator ai.Generator, strict bool) *fixture {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := errors.NewLoggerWithWriter(logs, slog.LevelDebug)

	catalog, err := i18n.NewCatalog("en", "", logger)
	require.NoError(t, err)
	validator, err := resume.NewValidator(strict)
	require.NoError(t, err)

	store := storage.NewMemoryStore()
	sink := storage.NewSink(store, config.StorageConfig{
		TTL:             time.Hour,
		DefaultTemplate: "modern",
		EditorPath:      "/editor",
	}, logger)

	return &fixture{
		orchestrator: NewOrchestrator(Options{
			Prompts:   ai.NewPromptBuilder(config.LoadedPrompts{}, config.PromptConfig{}),
			Generator: generator,
			Validator: validator,
			Sink:      sink,
			Catalog:   catalog,
			Logger:    logger,
		}),
		store: store,
		sink:  sink,
		logs:  logs,
	}
}

func completeSession(t *testing.T, id string) *interview.Session {
	t.Helper()
	session := interview.NewSession(id, "", "en")
	for i := range interview.TotalQuestions() {
		require.NoError(t, session.SubmitAnswer(fmt.Sprintf("answer %d", i+1)))
	}
	require.True(t, session.IsComplete())
	return session
}

func compact(t *testing.T, raw string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.Compact(&buf, []byte(raw)))
	return buf.Bytes()
}

func TestGenerateEndToEnd(t *testing.T) {
	var requests atomic.Int32
	var userPrompt string
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 2) {
			userPrompt = body.Messages[1].Content
		}

		content, _ := json.Marshal(generatedResume)
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"model":"gpt-test","choices":[{"index":0,"message":{"role":"assistant","content":%s}}],"usage":{"prompt_tokens":10,"completion_tokens":20,"total_tokens":30}}`, content)
	}))
	t.Cleanup(endpoint.Close)

	timeout := 5 * time.Second
	temperature := float32(0.7)
	maxTokens := 2000
	provider, err := ai.NewOpenAIProvider(&config.OperationAIConfig{
		Provider:    "openai",
		Model:       "gpt-test",
		BaseURL:     endpoint.URL,
		APIKey:      "sk-test",
		Timeout:     &timeout,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}, "Generate", errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug))
	require.NoError(t, err)

	f := newFixture(t, provider, false)
	session := completeSession(t, "session-1")
	answersBefore := session.Answers()

	result, err := f.orchestrator.Generate(context.Background(), session, "en")
	require.NoError(t, err)

	assert.Equal(t, int32(1), requests.Load())
	assert.Contains(t, userPrompt, "Full name: answer 1")
	assert.Contains(t, userPrompt, "Career goals: answer 20")

	assert.Equal(t, &storage.Handoff{
		SessionID:  "session-1",
		Key:        "session:session-1:generatedResume",
		TemplateID: "modern",
		EditorPath: "/editor",
	}, result.Handoff)
	assert.Equal(t, "gpt-test", result.Model)
	assert.Equal(t, &ai.TokenUsage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}, result.TokenUsage)
	assert.Equal(t, "Ada Lovelace", result.Document.Resume.PersonalInfo.FullName)
	assert.Empty(t, result.Warnings)

	stored, err := f.sink.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, string(compact(t, generatedResume)), string(stored))

	assert.Equal(t, answersBefore, session.Answers(), "generation must not change answers")
	assert.False(t, session.IsGenerating())
}

func TestGenerateRejectsIncompleteSession(t *testing.T) {
	generator := &fakeGenerator{text: generatedResume}
	f := newFixture(t, generator, false)

	session := interview.NewSession("partial", "", "en")
	require.NoError(t, session.SubmitAnswer("Ada"))

	_, err := f.orchestrator.Generate(context.Background(), session, "en")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInterviewIncomplete))
	assert.Zero(t, generator.calls.Load())
	assert.Zero(t, f.store.Len())
}

func TestGenerateRejectsConcurrentGeneration(t *testing.T) {
	generator := &fakeGenerator{text: generatedResume}
	f := newFixture(t, generator, false)
	session := completeSession(t, "busy")

	require.True(t, session.BeginGeneration())
	_, err := f.orchestrator.Generate(context.Background(), session, "en")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationInProgress))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
	assert.Zero(t, generator.calls.Load())

	// The slot held by the other caller is left untouched
	assert.True(t, session.IsGenerating())
	session.EndGeneration()

	_, err = f.orchestrator.Generate(context.Background(), session, "en")
	assert.NoError(t, err)
}

func TestGenerateUsesAnswersClaimedAtStart(t *testing.T) {
	generator := &fakeGenerator{text: generatedResume}
	f := newFixture(t, generator, false)
	session := completeSession(t, "reset-mid-flight")
	generator.during = session.Reset

	result, err := f.orchestrator.Generate(context.Background(), session, "en")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, generator.seen.User, "answer 1")
	assert.Contains(t, generator.seen.User, fmt.Sprintf("answer %d", interview.TotalQuestions()))
	assert.False(t, session.IsComplete())
	assert.False(t, session.IsGenerating())
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name      string
		generator *fakeGenerator
		strict    bool
		wantType  errors.ErrorType
		wantCode  string
	}{
		{
			name:      "endpoint failure",
			generator: &fakeGenerator{err: errors.NewAIError(errors.ErrCodeGenerationFailed, "endpoint returned status 500", nil)},
			wantType:  errors.ErrorTypeAI,
			wantCode:  errors.ErrCodeGenerationFailed,
		},
		{
			name:      "not json",
			generator: &fakeGenerator{text: "not json"},
			wantType:  errors.ErrorTypeParse,
			wantCode:  errors.ErrCodeResponseNotJSON,
		},
		{
			name:      "missing sections",
			generator: &fakeGenerator{text: `{"summary":"x"}`},
			wantType:  errors.ErrorTypeSchema,
			wantCode:  errors.ErrCodeMissingRequiredSections,
		},
		{
			name:      "malformed entries in strict mode",
			generator: &fakeGenerator{text: `{"personalInfo":{"fullName":"A"},"experience":[{"position":"Dev"}],"education":[],"skills":["Go"]}`},
			strict:    true,
			wantType:  errors.ErrorTypeSchema,
			wantCode:  errors.ErrCodeMalformedEntries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.generator, tt.strict)
			session := completeSession(t, "failing")

			result, err := f.orchestrator.Generate(context.Background(), session, "en")
			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)

			assert.Equal(t, int32(1), tt.generator.calls.Load(), "a failed generation is never retried")
			assert.Zero(t, f.store.Len(), "nothing is stored on failure")
			assert.False(t, session.IsGenerating())
			assert.True(t, session.IsComplete())
		})
	}
}

func TestGenerateLogsRejectedResponse(t *testing.T) {
	generator := &fakeGenerator{text: "Sorry, I cannot help with that."}
	f := newFixture(t, generator, false)

	_, err := f.orchestrator.Generate(context.Background(), completeSession(t, "logged"), "en")
	require.Error(t, err)

	logs := f.logs.String()
	assert.Contains(t, logs, "Model response rejected")
	assert.Contains(t, logs, "Sorry, I cannot help with that.")
	assert.NotContains(t, err.Error(), "Sorry", "raw model output stays out of the returned error")
}

func TestGenerateTolerantWarnings(t *testing.T) {
	generator := &fakeGenerator{text: `{"personalInfo":{"fullName":"A"},"experience":[{"position":"Dev"}],"education":[],"skills":["Go"]}`}
	f := newFixture(t, generator, false)

	result, err := f.orchestrator.Generate(context.Background(), completeSession(t, "tolerant"), "en")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 1, f.store.Len())
}

func TestPromptUsesSessionLocale(t *testing.T) {
	f := newFixture(t, &fakeGenerator{}, false)
	session := completeSession(t, "fr")

	english := f.orchestrator.Prompt(session, "en")
	french := f.orchestrator.Prompt(session, "fr")

	assert.NotEqual(t, english.System, french.System)
	assert.True(t, strings.Contains(english.User, "answer 1"))
	assert.True(t, strings.Contains(french.User, "answer 1"))
	assert.Equal(t, english, f.orchestrator.Prompt(session, "en-GB"))
}

package ai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions to create pointers for test values
func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }

var testLogger = errors.NewLoggerWithWriter(io.Discard, slog.LevelDebug)

func testOperationConfig(baseURL string) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider:    "openai",
		Model:       "gpt-test",
		BaseURL:     baseURL,
		APIKey:      "sk-test",
		Timeout:     timePtr(5 * time.Second),
		Temperature: float32Ptr(0.7),
		MaxTokens:   intPtr(2000),
	}
}

func newStubEndpoint(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIProviderGenerate(t *testing.T) {
	var received chatRequest
	server := newStubEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1",
			"model": "gpt-test-2024",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"skills\":[\"Go\"]}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`)
	})

	provider, err := NewOpenAIProvider(testOperationConfig(server.URL+"/"), "Generate", testLogger)
	require.NoError(t, err)

	completion, err := provider.Generate(context.Background(), PromptPair{System: "sys", User: "usr"})
	require.NoError(t, err)

	assert.Equal(t, `{"skills":["Go"]}`, completion.Text)
	assert.Equal(t, "gpt-test-2024", completion.Model)
	assert.Equal(t, &TokenUsage{InputTokens: 120, OutputTokens: 30, TotalTokens: 150}, completion.TokenUsage)

	assert.Equal(t, "gpt-test", received.Model)
	assert.Equal(t, []chatMessage{{Role: "system", Content: "sys"}, {Role: "user", Content: "usr"}}, received.Messages)
	assert.InDelta(t, 0.7, received.Temperature, 0.0001)
	assert.Equal(t, 2000, received.MaxTokens)
	assert.Equal(t, "json_object", received.ResponseFormat.Type)
}

func TestOpenAIProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"non-200 status", http.StatusInternalServerError, `{"error":{"message":"overloaded"}}`, "status 500"},
		{"malformed envelope", http.StatusOK, `not json`, "malformed response envelope"},
		{"error object", http.StatusOK, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, "quota exceeded"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := newStubEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			provider, err := NewOpenAIProvider(testOperationConfig(server.URL), "Generate", testLogger)
			require.NoError(t, err)

			completion, err := provider.Generate(context.Background(), PromptPair{System: "s", User: "u"})
			require.Error(t, err)
			assert.Nil(t, completion)
			assert.True(t, errors.IsType(err, errors.ErrorTypeAI))
			assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationFailed))
			assert.Contains(t, err.Error(), tt.message)
			assert.Equal(t, int32(1), calls.Load(), "failed requests are not retried")
		})
	}
}

func TestOpenAIProviderTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	provider, err := NewOpenAIProvider(testOperationConfig(url), "Generate", testLogger)
	require.NoError(t, err)

	_, err = provider.Generate(context.Background(), PromptPair{User: "u"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationFailed))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork), "transport failures keep their network type in the chain")
}

func TestOpenAIProviderRequiresAPIKey(t *testing.T) {
	cfg := testOperationConfig("http://localhost")
	cfg.APIKey = ""

	_, err := NewOpenAIProvider(cfg, "Generate", testLogger)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

func TestOpenAIProviderModelInfo(t *testing.T) {
	server := newStubEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/gpt-test" {
			_, _ = io.WriteString(w, `{"id":"gpt-test","owned_by":"system"}`)
			return
		}
		http.NotFound(w, r)
	})

	provider, err := NewOpenAIProvider(testOperationConfig(server.URL), "Generate", testLogger)
	require.NoError(t, err)

	info := provider.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "gpt-test", info.Name)
	assert.Equal(t, "openai", info.Provider)

	cfg := testOperationConfig(server.URL)
	cfg.Model = "missing"
	provider, err = NewOpenAIProvider(cfg, "Generate", testLogger)
	require.NoError(t, err)

	info = provider.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.Contains(t, info.Error, "status 404")
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"surrounding whitespace", "\n  {\"a\":1}  \n", `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
		{"not json is left alone", "not json", "not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanJSONResponse(tt.input))
		})
	}
}

func TestNewServiceProviders(t *testing.T) {
	cfg := testOperationConfig("http://localhost")
	service, err := NewService(cfg, "Generate", testLogger)
	require.NoError(t, err)
	assert.IsType(t, &OpenAIProvider{}, service.Provider)
	assert.Equal(t, "gpt-test", service.Model())
	assert.NoError(t, service.Close())

	cfg.Provider = "unknown"
	_, err = NewService(cfg, "Generate", testLogger)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	cfg.Provider = "gemini"
	cfg.APIKey = ""
	_, err = NewService(cfg, "Generate", testLogger)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeMissingAPIKey))
}

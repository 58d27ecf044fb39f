package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Timeout:     120 * time.Second,
			Temperature: 0.7,
			MaxTokens:   2000,
			Generate: OperationAIConfig{
				CircuitBreaker: CircuitBreakerConfig{Enabled: true, FailureThreshold: 0.6},
			},
		},
		Interview: InterviewConfig{SessionTTL: 2 * time.Hour},
		I18n:      I18nConfig{DefaultLocale: "en"},
		Storage:   StorageConfig{Driver: "memory", TTL: time.Hour, DefaultTemplate: "modern"},
		Auth:      AuthConfig{ExpirationHours: 24, BcryptCost: 4},
		Server:    ServerConfig{Port: "8080", TLS: TLSConfig{Mode: "disabled"}},
		App:       AppConfig{LogLevel: "info", DefaultFormat: "json", SupportedFormats: []string{"json", "text", "markdown"}},
	}
}

func TestGetGenerateConfigFallbacks(t *testing.T) {
	cfg := validTestConfig()
	cfg.AI.APIKey = "global-key"
	cfg.AI.CustomPrompts.SystemPrompt = "global system"

	gen := cfg.GetGenerateConfig()
	assert.Equal(t, "openai", gen.Provider)
	assert.Equal(t, "gpt-4o-mini", gen.Model)
	assert.Equal(t, "global-key", gen.APIKey)
	require.NotNil(t, gen.Timeout)
	assert.Equal(t, 120*time.Second, *gen.Timeout)
	require.NotNil(t, gen.Temperature)
	assert.InDelta(t, 0.7, *gen.Temperature, 0.0001)
	require.NotNil(t, gen.MaxTokens)
	assert.Equal(t, 2000, *gen.MaxTokens)
	assert.Equal(t, "global system", gen.CustomPrompts.SystemPrompt)

	timeout := 30 * time.Second
	temperature := float32(0.2)
	cfg.AI.Generate.Provider = "gemini"
	cfg.AI.Generate.Model = "gemini-2.0-flash"
	cfg.AI.Generate.Timeout = &timeout
	cfg.AI.Generate.Temperature = &temperature
	cfg.AI.Generate.CustomPrompts.SystemPrompt = "operation system"

	gen = cfg.GetGenerateConfig()
	assert.Equal(t, "gemini", gen.Provider)
	assert.Equal(t, "gemini-2.0-flash", gen.Model)
	assert.Equal(t, 30*time.Second, *gen.Timeout)
	assert.InDelta(t, 0.2, *gen.Temperature, 0.0001)
	assert.Equal(t, "operation system", gen.CustomPrompts.SystemPrompt)

	// The global timeout must not be aliased by the resolved copy.
	*gen.Timeout = time.Second
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "llama" }, expectError: "unsupported AI provider"},
		{name: "zero timeout", mutate: func(c *Config) { c.AI.Timeout = 0 }, expectError: "AI timeout must be positive"},
		{name: "bad failure threshold", mutate: func(c *Config) { c.AI.Generate.CircuitBreaker.FailureThreshold = 1.5 }, expectError: "failureThreshold"},
		{name: "missing port", mutate: func(c *Config) { c.Server.Port = "" }, expectError: "server port is required"},
		{name: "unsupported format", mutate: func(c *Config) { c.App.DefaultFormat = "pdf" }, expectError: "invalid default format"},
		{name: "zero session ttl", mutate: func(c *Config) { c.Interview.SessionTTL = 0 }, expectError: "session TTL"},
		{name: "missing locale", mutate: func(c *Config) { c.I18n.DefaultLocale = "" }, expectError: "default locale"},
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "s3" }, expectError: "unsupported storage driver"},
		{name: "redis without address", mutate: func(c *Config) { c.Storage.Driver = "redis" }, expectError: "redis address is required"},
		{name: "missing template", mutate: func(c *Config) { c.Storage.DefaultTemplate = "" }, expectError: "default template"},
		{name: "auth with short secret", mutate: func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "short" }, expectError: "jwtSecret"},
		{
			name: "auth with valid secret",
			mutate: func(c *Config) {
				c.Auth.Enabled = true
				c.Auth.JWTSecret = strings.Repeat("x", 32)
			},
		},
		{name: "bad tls mode", mutate: func(c *Config) { c.Server.TLS.Mode = "mutual" }, expectError: "TLS configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.expectError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestLoadConfigWithViper(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	promptFile := filepath.Join(dir, "system.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("custom system prompt"), 0600))

	yaml := `
ai:
  provider: gemini
  model: gemini-2.0-flash
  generate:
    temperature: 0.2
    customPrompts:
      systemPromptFile: ` + promptFile + `
i18n:
  defaultLocale: fr
storage:
  defaultTemplate: classic
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0600))

	t.Setenv("RESUMEFORGE_SERVER_PORT", "9999")
	t.Setenv("RESUMEFORGE_AI_APIKEY", "env-key")

	cfg, err := LoadConfigWithViper(viper.New())
	require.NoError(t, err)

	gen := cfg.GetGenerateConfig()
	assert.Equal(t, "gemini", gen.Provider)
	assert.Equal(t, "gemini-2.0-flash", gen.Model)
	assert.Equal(t, "env-key", gen.APIKey)
	assert.InDelta(t, 0.2, *gen.Temperature, 0.0001)
	assert.Equal(t, 120*time.Second, *gen.Timeout)
	assert.Equal(t, "custom system prompt", cfg.GetLoadedGeneratePrompts().SystemPrompt)
	assert.Equal(t, "fr", cfg.I18n.DefaultLocale)
	assert.Equal(t, "classic", cfg.Storage.DefaultTemplate)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Interview.SessionTTL)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfigWithViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "modern", cfg.Storage.DefaultTemplate)
	assert.Equal(t, "en", cfg.I18n.DefaultLocale)
	assert.False(t, cfg.Generation.StrictEntries)
}

func TestApplyServerAPIKeyFallbacks(t *testing.T) {
	cfg := validTestConfig()
	cfg.Server.APIKeys = []string{"a, b,,c "}
	cfg.applyServerAPIKeyFallbacks()
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)

	cfg.Server.APIKeys = nil
	t.Setenv("RESUMEFORGE_SERVER_APIKEYS", "x,y")
	cfg.applyServerAPIKeyFallbacks()
	assert.Equal(t, []string{"x", "y"}, cfg.Server.APIKeys)
}

func TestApplyAIKeyFallbacks(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-env")
	t.Setenv("GEMINI_API_KEY", "gemini-env")

	cfg := validTestConfig()
	cfg.applyAIKeyFallbacks()
	assert.Equal(t, "openai-env", cfg.AI.APIKey)

	cfg = validTestConfig()
	cfg.AI.Provider = "gemini"
	cfg.applyAIKeyFallbacks()
	assert.Equal(t, "gemini-env", cfg.AI.APIKey)

	cfg = validTestConfig()
	cfg.AI.APIKey = "configured"
	cfg.applyAIKeyFallbacks()
	assert.Equal(t, "configured", cfg.AI.APIKey)
}

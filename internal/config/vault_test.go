package config

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"resumeforge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockLogger() *errors.Logger {
	logger, _ := errors.New("debug")
	return logger
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42.0), expected: 42},
		{name: "json number", input: json.Number("7"), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "invalid json number", input: json.Number("1.5"), expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDecodeKVv2Secret(t *testing.T) {
	tests := []struct {
		name        string
		raw         map[string]any
		expectError string
	}{
		{
			name: "valid secret",
			raw: map[string]any{
				"data":     map[string]any{"api_key": "sk-test"},
				"metadata": map[string]any{"version": json.Number("3")},
			},
		},
		{name: "missing data", raw: map[string]any{"metadata": map[string]any{"version": 1}}, expectError: "missing 'data' field"},
		{name: "missing metadata", raw: map[string]any{"data": map[string]any{}}, expectError: "missing 'metadata' field"},
		{
			name:        "missing version",
			raw:         map[string]any{"data": map[string]any{}, "metadata": map[string]any{}},
			expectError: "missing 'version' field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := decodeKVv2Secret(tt.raw, "secret/data/test")
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(3), secret.Version)
			assert.Equal(t, "sk-test", secret.Data["api_key"])
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	logger := newMockLogger()
	tempDir := t.TempDir()

	tokenFile := filepath.Join(tempDir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0600))

	token, err := resolveVaultToken(VaultConfig{Token: "direct"}, logger)
	require.NoError(t, err)
	assert.Equal(t, "direct", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(tempDir, "missing")}, logger)
	assert.Error(t, err)

	_, err = resolveVaultToken(VaultConfig{}, logger)
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sk-1****cdef", maskSecret("sk-1234567890abcdef"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}

type stubSecretReader struct {
	secrets map[string]map[string]any
}

func (s stubSecretReader) GetSecretV2(path string) (*VaultSecret, error) {
	data, ok := s.secrets[path]
	if !ok {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return &VaultSecret{Data: data, Version: 1}, nil
}

func (s stubSecretReader) GetStringSecret(path, key string) (string, error) {
	secret, err := s.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func vaultBackedConfig() *Config {
	cfg := validTestConfig()
	cfg.Vault = VaultConfig{
		Enabled: true,
		Secrets: VaultSecrets{
			APIKeys:   "secret/data/api",
			AIKey:     "secret/data/ai",
			JWTSecret: "secret/data/jwt",
			TLSCerts:  "secret/data/tls",
		},
	}
	cfg.Auth.Enabled = true
	cfg.Auth.JWTSecret = ""
	cfg.Server.TLS.Mode = "server"
	return cfg
}

func TestApplySecrets(t *testing.T) {
	cfg := vaultBackedConfig()
	require.NoError(t, cfg.Validate(), "secrets still pending in vault should not fail validation")

	reader := stubSecretReader{secrets: map[string]map[string]any{
		"secret/data/api": {"keys": "key-one, key-two ,"},
		"secret/data/ai":  {"api_key": "sk-from-vault"},
		"secret/data/jwt": {"secret": strings.Repeat("s", 40)},
		"secret/data/tls": {"cert": "CERT PEM", "key": "KEY PEM"},
	}}

	require.NoError(t, applySecrets(reader, cfg, newMockLogger()))

	assert.Equal(t, []string{"key-one", "key-two"}, cfg.Server.APIKeys)
	assert.Equal(t, "sk-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "sk-from-vault", cfg.GetGenerateConfig().APIKey)
	assert.Equal(t, strings.Repeat("s", 40), cfg.Auth.JWTSecret)
	assert.Equal(t, "CERT PEM", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY PEM", cfg.Server.TLS.KeyContent)
}

func TestApplySecretsKeepsOperationKey(t *testing.T) {
	cfg := validTestConfig()
	cfg.AI.Generate.APIKey = "operation-key"
	cfg.Vault = VaultConfig{Enabled: true, Secrets: VaultSecrets{AIKey: "secret/data/ai"}}

	reader := stubSecretReader{secrets: map[string]map[string]any{
		"secret/data/ai": {"api_key": "sk-from-vault"},
	}}
	require.NoError(t, applySecrets(reader, cfg, nil))

	assert.Equal(t, "sk-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "operation-key", cfg.GetGenerateConfig().APIKey)
}

func TestApplySecretsFailures(t *testing.T) {
	tests := []struct {
		name    string
		secrets map[string]map[string]any
		expect  string
	}{
		{name: "missing path", secrets: map[string]map[string]any{}, expect: "failed to load API keys"},
		{name: "missing field", secrets: map[string]map[string]any{"secret/data/api": {"other": "x"}}, expect: "key 'keys' not found"},
		{name: "wrong type", secrets: map[string]map[string]any{"secret/data/api": {"keys": 12}}, expect: "is not a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			cfg.Vault = VaultConfig{Enabled: true, Secrets: VaultSecrets{APIKeys: "secret/data/api"}}
			err := applySecrets(stubSecretReader{secrets: tt.secrets}, cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expect)
		})
	}
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := validTestConfig()
	require.NoError(t, ApplyVaultSecrets(cfg, newMockLogger()))
	assert.Empty(t, cfg.Server.APIKeys)
}

// fakeVault serves the subset of the Vault HTTP API the client touches.
func fakeVault(t *testing.T, secrets map[string]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/sys/health" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"initialized": true,
				"sealed":      false,
				"standby":     false,
				"version":     "1.17.0",
			})
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		data, ok := secrets[strings.TrimPrefix(r.URL.Path, "/v1/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data":     data,
				"metadata": map[string]any{"version": 2},
			},
		})
	}))
}

func TestApplyVaultSecretsAgainstServer(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]any{
		"secret/data/resumeforge/ai": {"api_key": "sk-live"},
	})
	defer srv.Close()

	cfg := validTestConfig()
	cfg.Vault = VaultConfig{
		Enabled: true,
		Address: srv.URL,
		Token:   "test-token",
		Secrets: VaultSecrets{AIKey: "secret/data/resumeforge/ai"},
	}

	require.NoError(t, ApplyVaultSecrets(cfg, newMockLogger()))
	assert.Equal(t, "sk-live", cfg.AI.APIKey)

	client, err := NewVaultClient(cfg.Vault, nil)
	require.NoError(t, err)

	secret, err := client.GetSecretV2("secret/data/resumeforge/ai")
	require.NoError(t, err)
	assert.Equal(t, int64(2), secret.Version)

	_, err = client.GetStringSecret("secret/data/resumeforge/missing", "api_key")
	assert.Error(t, err)
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)

	_, err = client.GetSecretV2("secret/data/x")
	assert.Error(t, err)
}

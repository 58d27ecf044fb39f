package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret Precedence Order:
// 1. Vault (if configured) - Highest priority
// 2. Config File values
// 3. Environment Variables (RESUMEFORGE_AI_APIKEY, etc.)
// 4. Default values - Lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Generation    GenerationConfig    `mapstructure:"generation"`
	Interview     InterviewConfig     `mapstructure:"interview"`
	I18n          I18nConfig          `mapstructure:"i18n"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	prompts LoadedPrompts
}

// AIConfig holds AI service configuration
type AIConfig struct {
	// Global/fallback configuration
	Provider      string        `mapstructure:"provider"`
	Model         string        `mapstructure:"model"`
	BaseURL       string        `mapstructure:"baseURL"`
	Timeout       time.Duration `mapstructure:"timeout"`
	APIKey        string        `mapstructure:"apiKey"`
	Temperature   float32       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"maxTokens"`
	CustomPrompts PromptConfig  `mapstructure:"customPrompts"`

	// Resume generation overrides
	Generate OperationAIConfig `mapstructure:"generate"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// OperationAIConfig holds AI configuration for specific operations
type OperationAIConfig struct {
	Provider       string               `mapstructure:"provider"`
	Model          string               `mapstructure:"model"`
	BaseURL        string               `mapstructure:"baseURL"`
	Timeout        *time.Duration       `mapstructure:"timeout"`
	APIKey         string               `mapstructure:"apiKey"`
	Temperature    *float32             `mapstructure:"temperature"`
	MaxTokens      *int                 `mapstructure:"maxTokens"`
	CustomPrompts  PromptConfig         `mapstructure:"customPrompts"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// PromptConfig holds a replacement for the catalog system instruction
type PromptConfig struct {
	SystemPrompt     string `mapstructure:"systemPrompt"`
	SystemPromptFile string `mapstructure:"systemPromptFile"`
}

// GenerationConfig controls response validation
type GenerationConfig struct {
	StrictEntries bool `mapstructure:"strictEntries"` // Fail on malformed experience/education entries
}

// InterviewConfig holds interview session settings
type InterviewConfig struct {
	SessionTTL      time.Duration `mapstructure:"sessionTTL"`
	JanitorInterval time.Duration `mapstructure:"janitorInterval"`
	MaxSessions     int           `mapstructure:"maxSessions"`
}

// I18nConfig holds locale catalog settings
type I18nConfig struct {
	DefaultLocale string `mapstructure:"defaultLocale"`
	OverridesDir  string `mapstructure:"overridesDir"` // Directory of <locale>.yaml files merged over the built-in catalogs
	Watch         bool   `mapstructure:"watch"`        // Reload overrides on change
}

// StorageConfig holds transient storage settings
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"` // "memory" or "redis"
	TTL             time.Duration `mapstructure:"ttl"`
	DefaultTemplate string        `mapstructure:"defaultTemplate"`
	EditorPath      string        `mapstructure:"editorPath"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"poolSize"`
	KeyPrefix string `mapstructure:"keyPrefix"`
}

// AuthConfig holds end-user authentication settings
type AuthConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	JWTSecret       string `mapstructure:"jwtSecret"`
	Issuer          string `mapstructure:"issuer"`
	ExpirationHours int    `mapstructure:"expirationHours"`
	BcryptCost      int    `mapstructure:"bcryptCost"`
	Pepper          string `mapstructure:"pepper"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	MaxRequestSize int64         `mapstructure:"maxRequestSize"`

	// TLS Configuration
	TLS TLSConfig `mapstructure:"tls"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"` // Valid API keys for authentication

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// TLSConfig holds TLS configuration
type TLSConfig struct {
	Mode     string `mapstructure:"mode"`     // TLS mode: "disabled", "server"
	CertFile string `mapstructure:"certFile"` // Server certificate file (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Server private key file (PEM)

	// Certificate content (used when loaded from Vault instead of files)
	CertContent string `mapstructure:"certContent"`
	KeyContent  string `mapstructure:"keyContent"`

	MinVersion string `mapstructure:"minVersion"` // Minimum TLS version: "1.2", "1.3"
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`        // Enable/disable rate limiting
	RequestsPerMin int           `mapstructure:"requestsPerMin"` // Requests allowed per minute
	BurstCapacity  int           `mapstructure:"burstCapacity"`  // Burst capacity for token bucket
	ByIP           bool          `mapstructure:"byIP"`           // Enable per-IP rate limiting
	ByAPIKey       bool          `mapstructure:"byAPIKey"`       // Enable per-API-key rate limiting
	Window         time.Duration `mapstructure:"window"`         // Rate limiting window duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool                `mapstructure:"enabled"`
	ServiceName     string              `mapstructure:"serviceName"`
	ServiceVersion  string              `mapstructure:"serviceVersion"`
	ServiceInstance string              `mapstructure:"serviceInstance"`
	ConsoleOutput   bool                `mapstructure:"consoleOutput"`
	SampleRate      float64             `mapstructure:"sampleRate"`
	Tracing         TracingConfig       `mapstructure:"tracing"`
	Metrics         MetricsConfig       `mapstructure:"metrics"`
	CustomMetrics   CustomMetricsConfig `mapstructure:"customMetrics"`
	Console         ConsoleConfig       `mapstructure:"console"`
	Prometheus      PrometheusConfig    `mapstructure:"prometheus"`
	OTLP            OTLPConfig          `mapstructure:"otlp"`
	HealthCheck     HealthCheckConfig   `mapstructure:"healthCheck"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// CustomMetricsConfig holds fine-grained custom metrics configuration
type CustomMetricsConfig struct {
	AIOperations    AIOperationsMetricsConfig   `mapstructure:"aiOperations"`
	BusinessMetrics BusinessMetricsConfig       `mapstructure:"businessMetrics"`
	Infrastructure  InfrastructureMetricsConfig `mapstructure:"infrastructure"`
}

// AIOperationsMetricsConfig holds AI operation metrics configuration
type AIOperationsMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackDuration   bool `mapstructure:"trackDuration"`
	TrackTokenUsage bool `mapstructure:"trackTokenUsage"`
}

// BusinessMetricsConfig holds interview and resume metrics configuration
type BusinessMetricsConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	TrackSuccessRates bool `mapstructure:"trackSuccessRates"`
	TrackContentSizes bool `mapstructure:"trackContentSizes"`
}

// InfrastructureMetricsConfig holds infrastructure metrics configuration
type InfrastructureMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TrackRateLimits bool `mapstructure:"trackRateLimits"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// HealthCheckConfig holds health check configuration
type HealthCheckConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	AIModelCheckTimeout time.Duration `mapstructure:"aiModelCheckTimeout"`
}

const envPrefix = "RESUMEFORGE"

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	return LoadConfigWithViper(viper.New())
}

// LoadConfigWithViper loads configuration into a caller-provided viper instance,
// which lets cobra flags be bound before the values are read.
func LoadConfigWithViper(v *viper.Viper) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	// Set up environment variable handling
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", envPrefix)

	// Set up config file handling
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/resumeforge/")
	v.AddConfigPath("$HOME/.resumeforge")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.loadPromptsFromFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts from files: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Validate checks if the configuration is valid. The AI API key is checked
// when a generator is built, so commands that never call the model work without one.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}

	gen := c.GetGenerateConfig()
	switch gen.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported AI provider: %s (must be 'openai' or 'gemini')", gen.Provider)
	}
	if gen.Timeout != nil && *gen.Timeout <= 0 {
		return fmt.Errorf("generate timeout must be positive")
	}
	if cb := gen.CircuitBreaker; cb.Enabled && (cb.FailureThreshold <= 0 || cb.FailureThreshold > 1) {
		return fmt.Errorf("circuit breaker failureThreshold must be in (0, 1], got %v", cb.FailureThreshold)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}

	if c.Interview.SessionTTL <= 0 {
		return fmt.Errorf("interview session TTL must be positive")
	}

	if c.I18n.DefaultLocale == "" {
		return fmt.Errorf("i18n default locale is required")
	}

	if err := c.validateStorage(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}

	if err := c.validateAuth(); err != nil {
		return fmt.Errorf("auth configuration error: %w", err)
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Storage.Redis.Address == "" {
			return fmt.Errorf("redis address is required when driver is 'redis'")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s (must be 'memory' or 'redis')", c.Storage.Driver)
	}
	if c.Storage.TTL <= 0 {
		return fmt.Errorf("storage TTL must be positive")
	}
	if c.Storage.DefaultTemplate == "" {
		return fmt.Errorf("default template is required")
	}
	return nil
}

func (c *Config) validateAuth() error {
	if !c.Auth.Enabled {
		return nil
	}
	if c.Auth.ExpirationHours <= 0 {
		return fmt.Errorf("expirationHours must be positive")
	}
	if c.Vault.pending(c.Vault.Secrets.JWTSecret) {
		return nil
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwtSecret must be at least 32 characters when auth is enabled")
	}
	return nil
}

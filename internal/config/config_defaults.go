package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.baseURL", "https://api.openai.com/v1")
	v.SetDefault("ai.timeout", 120*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxTokens", 2000)
	v.SetDefault("ai.customPrompts.systemPrompt", "")
	v.SetDefault("ai.customPrompts.systemPromptFile", "")

	// AI Configuration - Resume generation; empty values inherit the globals
	v.SetDefault("ai.generate.provider", "")
	v.SetDefault("ai.generate.model", "")
	v.SetDefault("ai.generate.baseURL", "")
	v.SetDefault("ai.generate.apiKey", "")
	v.SetDefault("ai.generate.customPrompts.systemPrompt", "")
	v.SetDefault("ai.generate.customPrompts.systemPromptFile", "")

	// Circuit Breaker Configuration
	v.SetDefault("ai.generate.circuitBreaker.enabled", true)
	v.SetDefault("ai.generate.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.generate.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.generate.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.generate.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.generate.circuitBreaker.failureThreshold", 0.6)

	// Generation
	v.SetDefault("generation.strictEntries", false)

	// Interview sessions
	v.SetDefault("interview.sessionTTL", 2*time.Hour)
	v.SetDefault("interview.janitorInterval", 5*time.Minute)
	v.SetDefault("interview.maxSessions", 10000)

	// Locale catalogs
	v.SetDefault("i18n.defaultLocale", "en")
	v.SetDefault("i18n.overridesDir", "")
	v.SetDefault("i18n.watch", false)

	// Transient storage
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.ttl", 24*time.Hour)
	v.SetDefault("storage.defaultTemplate", "modern")
	v.SetDefault("storage.editorPath", "/editor")
	v.SetDefault("storage.redis.address", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.poolSize", 10)
	v.SetDefault("storage.redis.keyPrefix", "resumeforge:")

	// End-user authentication
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.issuer", "resumeforge")
	v.SetDefault("auth.expirationHours", 24)
	v.SetDefault("auth.bcryptCost", 12)
	v.SetDefault("auth.pepper", "")

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 150*time.Second) // Must outlast ai.timeout
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 1024*1024)
	v.SetDefault("server.tls.mode", "disabled") // disabled, server
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 1024*1024) // 1MB

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.jwtSecret", "")
	v.SetDefault("vault.secrets.tlsCerts", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumeforge")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}

package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.BaseURL == "" {
		opCfg.BaseURL = c.AI.BaseURL
	}
	if opCfg.Timeout == nil {
		timeout := c.AI.Timeout
		opCfg.Timeout = &timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.Temperature == nil {
		temperature := c.AI.Temperature
		opCfg.Temperature = &temperature
	}
	if opCfg.MaxTokens == nil {
		maxTokens := c.AI.MaxTokens
		opCfg.MaxTokens = &maxTokens
	}
}

// GetGenerateConfig returns the AI configuration for resume generation with fallback to global config
func (c *Config) GetGenerateConfig() OperationAIConfig {
	config := c.AI.Generate

	c.applyOperationDefaults(&config)

	if config.CustomPrompts.SystemPrompt == "" {
		config.CustomPrompts.SystemPrompt = c.AI.CustomPrompts.SystemPrompt
	}
	if config.CustomPrompts.SystemPromptFile == "" {
		config.CustomPrompts.SystemPromptFile = c.AI.CustomPrompts.SystemPromptFile
	}

	return config
}

// GetLoadedGeneratePrompts returns the prompt content read from files for generation
func (c *Config) GetLoadedGeneratePrompts() LoadedPrompts {
	return c.prompts
}

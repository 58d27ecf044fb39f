package ai

import (
	"strings"

	"resumeforge/internal/config"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"
)

// PromptPair is the system and user instruction sent to the generation endpoint.
type PromptPair struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// BuildPrompt renders the prompt pair for an answer record in the translator's
// locale. The output depends only on its inputs.
func BuildPrompt(sections []interview.Section, answers map[string]string, t i18n.Translator) PromptPair {
	return PromptPair{
		System: t.T("prompt.system"),
		User:   buildUserPrompt(sections, answers, t),
	}
}

func buildUserPrompt(sections []interview.Section, answers map[string]string, t i18n.Translator) string {
	var b strings.Builder

	b.WriteString(t.T("prompt.intro"))
	b.WriteString("\n")

	for _, section := range sections {
		b.WriteString("\n## ")
		b.WriteString(section.Title(t))
		b.WriteString("\n")

		for _, q := range section.Questions {
			b.WriteString(questionLabel(q, t))
			b.WriteString(": ")
			// Missing answers render as empty text
			b.WriteString(answers[q.Key()])
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(t.T("prompt.outro"))
	return b.String()
}

// questionLabel returns the short prompt label for q, or the full question
// text when the catalog has no label for it.
func questionLabel(q interview.Question, t i18n.Translator) string {
	key := "prompt.labels." + q.Key()
	if label := t.T(key); label != key {
		return label
	}
	return q.Text(t)
}

// PromptBuilder applies configured system prompt overrides on top of BuildPrompt.
type PromptBuilder struct {
	loaded config.LoadedPrompts
	custom config.PromptConfig
}

// NewPromptBuilder creates a builder from the generate operation configuration.
func NewPromptBuilder(loaded config.LoadedPrompts, custom config.PromptConfig) *PromptBuilder {
	return &PromptBuilder{loaded: loaded, custom: custom}
}

// Build renders the prompt pair, replacing the catalog system prompt when an
// override is configured.
func (p *PromptBuilder) Build(sections []interview.Section, answers map[string]string, t i18n.Translator) PromptPair {
	pair := BuildPrompt(sections, answers, t)
	if p != nil {
		pair.System = resolvePrompt(p.loaded.SystemPrompt, p.custom.SystemPrompt, pair.System)
	}
	return pair
}

// resolvePrompt selects the prompt in priority order:
// 1. A prompt loaded from a file.
// 2. A prompt defined directly in the configuration.
// 3. The locale catalog prompt.
func resolvePrompt(loadedFromFile, fromConfig, fromCatalog string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromCatalog
}

package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"resumeforge/internal/ai"
	"resumeforge/internal/generation"
	"resumeforge/internal/interview"
	"resumeforge/internal/resume"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "ResumeDocument", &ResumeTextFormatter{})
	registry.RegisterFormatter("markdown", "ResumeDocument", &ResumeMarkdownFormatter{})
	registry.RegisterFormatter("text", "GenerationResult", &ResultTextFormatter{})
	registry.RegisterFormatter("markdown", "GenerationResult", &ResultMarkdownFormatter{})
	registry.RegisterFormatter("text", "PromptPair", &PromptTextFormatter{})
	registry.RegisterFormatter("markdown", "PromptPair", &PromptMarkdownFormatter{})
	registry.RegisterFormatter("text", "Questionnaire", &QuestionnaireTextFormatter{})
	registry.RegisterFormatter("markdown", "Questionnaire", &QuestionnaireMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *resume.Document:
		return "ResumeDocument"
	case *generation.Result:
		return "GenerationResult"
	case ai.PromptPair:
		return "PromptPair"
	case []interview.LocalizedSection:
		return "Questionnaire"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResumeTextFormatter renders a generated resume as plain text
type ResumeTextFormatter struct{}

func (rtf *ResumeTextFormatter) Format(data any) (string, error) {
	doc, ok := data.(*resume.Document)
	if !ok || doc == nil {
		return "", fmt.Errorf("expected *resume.Document, got %T", data)
	}
	return resumeText(doc), nil
}

func (rtf *ResumeTextFormatter) SupportedType() string {
	return "ResumeDocument"
}

func resumeText(doc *resume.Document) string {
	r := doc.Resume
	var output strings.Builder

	info := r.PersonalInfo
	output.WriteString("=== " + strings.ToUpper(fallback(info.FullName, "RESUME")) + " ===\n")
	if info.Title != "" {
		output.WriteString(info.Title + "\n")
	}
	if contact := joinNonEmpty(" | ", info.Email, info.Phone, info.Location); contact != "" {
		output.WriteString(contact + "\n")
	}

	if r.Summary != "" {
		output.WriteString("\n=== SUMMARY ===\n")
		output.WriteString(r.Summary + "\n")
	}

	output.WriteString("\n=== EXPERIENCE ===\n")
	for _, exp := range r.Experience {
		output.WriteString(fmt.Sprintf("%s - %s", exp.Position, exp.Company))
		if dates := dateRange(exp.StartDate, exp.EndDate); dates != "" {
			output.WriteString(" (" + dates + ")")
		}
		output.WriteString("\n")
		if exp.Location != "" {
			output.WriteString("  " + exp.Location + "\n")
		}
		for _, achievement := range exp.Achievements {
			output.WriteString(fmt.Sprintf("  • %s\n", achievement))
		}
	}

	output.WriteString("\n=== EDUCATION ===\n")
	for _, edu := range r.Education {
		output.WriteString(joinNonEmpty(", ", edu.Degree, edu.Field))
		output.WriteString(" - " + edu.School)
		if dates := dateRange(edu.StartDate, edu.EndDate); dates != "" {
			output.WriteString(" (" + dates + ")")
		}
		output.WriteString("\n")
		for _, achievement := range edu.Achievements {
			output.WriteString(fmt.Sprintf("  • %s\n", achievement))
		}
	}

	output.WriteString("\n=== SKILLS ===\n")
	output.WriteString(strings.Join(r.Skills, ", ") + "\n")

	if len(doc.Warnings) > 0 {
		output.WriteString("\n=== WARNINGS ===\n")
		for _, w := range doc.Warnings {
			output.WriteString(fmt.Sprintf("- %s: %s\n", w.Field, w.Message))
		}
	}

	return output.String()
}

// ResumeMarkdownFormatter renders a generated resume as markdown
type ResumeMarkdownFormatter struct{}

func (rmf *ResumeMarkdownFormatter) Format(data any) (string, error) {
	doc, ok := data.(*resume.Document)
	if !ok || doc == nil {
		return "", fmt.Errorf("expected *resume.Document, got %T", data)
	}
	return resumeMarkdown(doc), nil
}

func (rmf *ResumeMarkdownFormatter) SupportedType() string {
	return "ResumeDocument"
}

func resumeMarkdown(doc *resume.Document) string {
	r := doc.Resume
	var output strings.Builder

	info := r.PersonalInfo
	output.WriteString("# " + fallback(info.FullName, "Resume") + "\n\n")
	if info.Title != "" {
		output.WriteString("**" + info.Title + "**\n\n")
	}
	if contact := joinNonEmpty(" · ", info.Email, info.Phone, info.Location); contact != "" {
		output.WriteString(contact + "\n\n")
	}

	if r.Summary != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(r.Summary + "\n\n")
	}

	output.WriteString("## Experience\n\n")
	for _, exp := range r.Experience {
		output.WriteString(fmt.Sprintf("### %s, %s\n\n", exp.Position, exp.Company))
		if meta := joinNonEmpty(" · ", exp.Location, dateRange(exp.StartDate, exp.EndDate)); meta != "" {
			output.WriteString("*" + meta + "*\n\n")
		}
		for _, achievement := range exp.Achievements {
			output.WriteString(fmt.Sprintf("- %s\n", achievement))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Education\n\n")
	for _, edu := range r.Education {
		output.WriteString(fmt.Sprintf("### %s\n\n", edu.School))
		if meta := joinNonEmpty(" · ", joinNonEmpty(", ", edu.Degree, edu.Field), dateRange(edu.StartDate, edu.EndDate)); meta != "" {
			output.WriteString("*" + meta + "*\n\n")
		}
		for _, achievement := range edu.Achievements {
			output.WriteString(fmt.Sprintf("- %s\n", achievement))
		}
		output.WriteString("\n")
	}

	output.WriteString("## Skills\n\n")
	for _, skill := range r.Skills {
		output.WriteString(fmt.Sprintf("- %s\n", skill))
	}

	return output.String()
}

// ResultTextFormatter renders a generation result with its handoff as plain text
type ResultTextFormatter struct{}

func (rtf *ResultTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*generation.Result)
	if !ok || result == nil || result.Document == nil {
		return "", fmt.Errorf("expected *generation.Result, got %T", data)
	}

	var output strings.Builder
	output.WriteString(resumeText(result.Document))
	output.WriteString("\n=== HANDOFF ===\n")
	output.WriteString(fmt.Sprintf("Storage key: %s\n", result.Handoff.Key))
	output.WriteString(fmt.Sprintf("Template: %s\n", result.Handoff.TemplateID))
	output.WriteString(fmt.Sprintf("Editor: %s\n", result.Handoff.EditorPath))
	output.WriteString(fmt.Sprintf("Model: %s\n", result.Model))
	return output.String(), nil
}

func (rtf *ResultTextFormatter) SupportedType() string {
	return "GenerationResult"
}

// ResultMarkdownFormatter renders a generation result with its handoff as markdown
type ResultMarkdownFormatter struct{}

func (rmf *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*generation.Result)
	if !ok || result == nil || result.Document == nil {
		return "", fmt.Errorf("expected *generation.Result, got %T", data)
	}

	var output strings.Builder
	output.WriteString(resumeMarkdown(result.Document))
	output.WriteString("\n---\n\n")
	output.WriteString("| Handoff | |\n|---|---|\n")
	output.WriteString(fmt.Sprintf("| Storage key | `%s` |\n", result.Handoff.Key))
	output.WriteString(fmt.Sprintf("| Template | %s |\n", result.Handoff.TemplateID))
	output.WriteString(fmt.Sprintf("| Editor | %s |\n", result.Handoff.EditorPath))
	output.WriteString(fmt.Sprintf("| Model | %s |\n", result.Model))
	return output.String(), nil
}

func (rmf *ResultMarkdownFormatter) SupportedType() string {
	return "GenerationResult"
}

// PromptTextFormatter renders a prompt pair as plain text
type PromptTextFormatter struct{}

func (ptf *PromptTextFormatter) Format(data any) (string, error) {
	prompt, ok := data.(ai.PromptPair)
	if !ok {
		return "", fmt.Errorf("expected ai.PromptPair, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== SYSTEM ===\n")
	output.WriteString(prompt.System)
	output.WriteString("\n\n=== USER ===\n")
	output.WriteString(prompt.User)
	output.WriteString("\n")
	return output.String(), nil
}

func (ptf *PromptTextFormatter) SupportedType() string {
	return "PromptPair"
}

// PromptMarkdownFormatter renders a prompt pair as markdown
type PromptMarkdownFormatter struct{}

func (pmf *PromptMarkdownFormatter) Format(data any) (string, error) {
	prompt, ok := data.(ai.PromptPair)
	if !ok {
		return "", fmt.Errorf("expected ai.PromptPair, got %T", data)
	}

	var output strings.Builder
	output.WriteString("## System\n\n```\n")
	output.WriteString(prompt.System)
	output.WriteString("\n```\n\n## User\n\n```\n")
	output.WriteString(prompt.User)
	output.WriteString("\n```\n")
	return output.String(), nil
}

func (pmf *PromptMarkdownFormatter) SupportedType() string {
	return "PromptPair"
}

// QuestionnaireTextFormatter lists the interview questions as plain text
type QuestionnaireTextFormatter struct{}

func (qtf *QuestionnaireTextFormatter) Format(data any) (string, error) {
	sections, ok := data.([]interview.LocalizedSection)
	if !ok {
		return "", fmt.Errorf("expected []interview.LocalizedSection, got %T", data)
	}

	var output strings.Builder
	for i, section := range sections {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("=== %s ===\n", strings.ToUpper(section.Title)))
		for _, q := range section.Questions {
			output.WriteString(fmt.Sprintf("%-30s %s\n", q.Key, q.Text))
		}
	}
	return output.String(), nil
}

func (qtf *QuestionnaireTextFormatter) SupportedType() string {
	return "Questionnaire"
}

// QuestionnaireMarkdownFormatter lists the interview questions as markdown
type QuestionnaireMarkdownFormatter struct{}

func (qmf *QuestionnaireMarkdownFormatter) Format(data any) (string, error) {
	sections, ok := data.([]interview.LocalizedSection)
	if !ok {
		return "", fmt.Errorf("expected []interview.LocalizedSection, got %T", data)
	}

	var output strings.Builder
	for _, section := range sections {
		output.WriteString(fmt.Sprintf("## %s\n\n", section.Title))
		for i, q := range section.Questions {
			output.WriteString(fmt.Sprintf("%d. %s (`%s`)\n", i+1, q.Text, q.Key))
		}
		output.WriteString("\n")
	}
	return output.String(), nil
}

func (qmf *QuestionnaireMarkdownFormatter) SupportedType() string {
	return "Questionnaire"
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func dateRange(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " - " + end
	case start != "":
		return start + " - present"
	default:
		return end
	}
}

// GlobalRegistry is the default formatter registry
var GlobalRegistry = NewFormatterRegistry()

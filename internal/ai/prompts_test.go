package ai

import (
	"strings"
	"testing"

	"resumeforge/internal/config"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCatalog(t *testing.T) *i18n.Catalog {
	t.Helper()
	catalog, err := i18n.NewCatalog("en", "", nil)
	require.NoError(t, err)
	return catalog
}

func sampleAnswers() map[string]string {
	return map[string]string{
		"personal_fullName":       "Ada Lovelace",
		"personal_email":          "ada@example.com",
		"career_targetRole":       "Staff Engineer",
		"experience_recentRole":   "Analyst, Babbage & Co, 1842-1843",
		"skills_technical":        "Go, Kubernetes",
		"summary_goals":           "Lead a platform team",
		"education_degree":        "Mathematics",
		"skills_languages":        "English, French",
		"experience_achievements": "Published the first algorithm",
	}
}

func TestBuildPromptIsDeterministic(t *testing.T) {
	catalog := newTestCatalog(t)
	sections := interview.Sections()
	answers := sampleAnswers()

	for _, locale := range []string{"en", "fr"} {
		t.Run(locale, func(t *testing.T) {
			tr := catalog.Translator(locale)
			first := BuildPrompt(sections, answers, tr)
			for range 10 {
				assert.Equal(t, first, BuildPrompt(sections, answers, tr))
			}
		})
	}
}

func TestBuildPromptLayout(t *testing.T) {
	catalog := newTestCatalog(t)
	tr := catalog.Translator("en")

	pair := BuildPrompt(interview.Sections(), sampleAnswers(), tr)

	assert.Equal(t, tr.T("prompt.system"), pair.System)
	assert.True(t, strings.HasPrefix(pair.User, tr.T("prompt.intro")))
	assert.True(t, strings.HasSuffix(pair.User, tr.T("prompt.outro")))
	assert.Contains(t, pair.User, "## Personal Information\nFull name: Ada Lovelace\nEmail: ada@example.com\n")
	assert.Contains(t, pair.User, "Technical skills: Go, Kubernetes\n")

	// Sections appear in script order
	last := -1
	for _, section := range interview.Sections() {
		idx := strings.Index(pair.User, "## "+section.Title(tr)+"\n")
		require.GreaterOrEqual(t, idx, 0, "missing heading for %s", section.ID)
		assert.Greater(t, idx, last, "section %s out of order", section.ID)
		last = idx
	}
}

func TestBuildPromptMissingAnswersRenderEmpty(t *testing.T) {
	catalog := newTestCatalog(t)
	tr := catalog.Translator("en")

	pair := BuildPrompt(interview.Sections(), map[string]string{}, tr)

	assert.Contains(t, pair.User, "Full name: \n")
	assert.Contains(t, pair.User, "Career goals: \n")
	assert.Equal(t, interview.TotalQuestions(), strings.Count(pair.User, ": \n"))
}

func TestBuildPromptLocalized(t *testing.T) {
	catalog := newTestCatalog(t)

	en := BuildPrompt(interview.Sections(), sampleAnswers(), catalog.Translator("en"))
	fr := BuildPrompt(interview.Sections(), sampleAnswers(), catalog.Translator("fr"))

	assert.NotEqual(t, en.User, fr.User)
	assert.Contains(t, fr.User, "## Informations personnelles\nNom complet: Ada Lovelace\n")
	// The document schema is the same in every locale
	assert.Contains(t, fr.System, `"personalInfo"`)
	assert.Contains(t, fr.System, `"experience"`)
}

type labelOnlyTranslator struct{}

func (labelOnlyTranslator) Locale() string { return "xx" }
func (labelOnlyTranslator) T(key string) string {
	if key == "questions.personal.fullName" {
		return "What is your name?"
	}
	return key
}

func TestQuestionLabelFallsBackToQuestionText(t *testing.T) {
	q := interview.Sections()[0].Questions[0]
	assert.Equal(t, "What is your name?", questionLabel(q, labelOnlyTranslator{}))
}

func TestPromptBuilderOverrides(t *testing.T) {
	catalog := newTestCatalog(t)
	tr := catalog.Translator("fr")
	sections := interview.Sections()
	answers := sampleAnswers()

	tests := []struct {
		name     string
		builder  *PromptBuilder
		expected string
	}{
		{"nil builder uses catalog", nil, tr.T("prompt.system")},
		{"no overrides uses catalog", NewPromptBuilder(config.LoadedPrompts{}, config.PromptConfig{}), tr.T("prompt.system")},
		{"config override", NewPromptBuilder(config.LoadedPrompts{}, config.PromptConfig{SystemPrompt: "from config"}), "from config"},
		{"file wins over config", NewPromptBuilder(config.LoadedPrompts{SystemPrompt: "from file"}, config.PromptConfig{SystemPrompt: "from config"}), "from file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := tt.builder.Build(sections, answers, tr)
			assert.Equal(t, tt.expected, pair.System)
			assert.Equal(t, BuildPrompt(sections, answers, tr).User, pair.User)
		})
	}
}

func BenchmarkBuildPrompt(b *testing.B) {
	catalog, err := i18n.NewCatalog("en", "", nil)
	if err != nil {
		b.Fatal(err)
	}
	tr := catalog.Translator("en")
	sections := interview.Sections()
	answers := sampleAnswers()

	for b.Loop() {
		BuildPrompt(sections, answers, tr)
	}
}

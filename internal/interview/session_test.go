package interview

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"resumeforge/internal/errors"
	"resumeforge/internal/i18n"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allKeys() []string {
	var keys []string
	for _, section := range Sections() {
		for _, q := range section.Questions {
			keys = append(keys, q.Key())
		}
	}
	return keys
}

func TestScript(t *testing.T) {
	sections := Sections()
	ids := make([]string, len(sections))
	for i, s := range sections {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"personal", "career", "experience", "education", "skills", "summary"}, ids)
	assert.Equal(t, 20, TotalQuestions())
	assert.True(t, IsValidKey("personal_fullName"))
	assert.True(t, IsValidKey("summary_goals"))
	assert.False(t, IsValidKey("personal_age"))

	// Sections returns a copy.
	sections[0].Questions[0].ID = "mutated"
	assert.Equal(t, "fullName", Sections()[0].Questions[0].ID)
}

func TestCompletesAfterExactlyTotalSubmissions(t *testing.T) {
	s := NewSession("id", "", "en")

	total := TotalQuestions()
	for i := 0; i < total; i++ {
		require.False(t, s.IsComplete(), "complete after %d submissions", i)
		require.NoError(t, s.SubmitAnswer(fmt.Sprintf("answer %d", i)))
	}
	assert.True(t, s.IsComplete())

	answers := s.Answers()
	assert.Len(t, answers, total)
	assert.Equal(t, "answer 0", answers["personal_fullName"])
	assert.Equal(t, fmt.Sprintf("answer %d", total-1), answers["summary_goals"])

	err := s.SubmitAnswer("one more")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInterviewComplete))
	assert.Len(t, s.Answers(), total)
}

func TestAdvanceCrossesSections(t *testing.T) {
	s := NewSession("id", "", "en")

	for range 4 {
		require.NoError(t, s.SubmitAnswer("x"))
	}
	assert.Equal(t, Position{Section: 1, Question: 0}, s.Position())

	section, ok := s.CurrentSection()
	require.True(t, ok)
	assert.Equal(t, "career", section.ID)

	q, ok := s.CurrentQuestion()
	require.True(t, ok)
	assert.Equal(t, "career_currentTitle", q.Key())
}

func TestEmptyAnswersNeverMutate(t *testing.T) {
	s := NewSession("id", "", "en")
	require.NoError(t, s.SubmitAnswer("Ada Lovelace"))
	before := s.Snapshot()

	for _, text := range []string{"", " ", "\t\n", "   \r\n  "} {
		err := s.SubmitAnswer(text)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeEmptyAnswer))
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	}

	assert.Equal(t, before, s.Snapshot())
}

func TestAnswerStoredAsGiven(t *testing.T) {
	s := NewSession("id", "", "en")
	require.NoError(t, s.SubmitAnswer("  Ada  Lovelace \n"))
	assert.Equal(t, "  Ada  Lovelace \n", s.Answers()["personal_fullName"])
}

func TestReset(t *testing.T) {
	s := NewSession("id", "", "en")
	for _, key := range allKeys() {
		require.NoError(t, s.SubmitAnswer("value for "+key))
	}
	require.True(t, s.IsComplete())

	s.Reset()

	assert.False(t, s.IsComplete())
	assert.Equal(t, Position{}, s.Position())
	assert.Empty(t, s.Answers())
	answered, total := s.Progress()
	assert.Equal(t, 0, answered)
	assert.Equal(t, 20, total)

	require.NoError(t, s.SubmitAnswer("again"))
	assert.Equal(t, "again", s.Answers()["personal_fullName"])
}

func TestAnswersReturnsCopy(t *testing.T) {
	s := NewSession("id", "", "en")
	require.NoError(t, s.SubmitAnswer("Ada"))

	answers := s.Answers()
	answers["personal_fullName"] = "changed"
	answers["personal_email"] = "injected"

	assert.Equal(t, map[string]string{"personal_fullName": "Ada"}, s.Answers())
}

func TestLoadAnswers(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]string
		expectCode   string
		wantComplete bool
		wantPosition Position
	}{
		{
			name:         "partial record resumes at first gap",
			record:       map[string]string{"personal_fullName": "Ada", "personal_email": "ada@example.com", "personal_location": "London"},
			wantPosition: Position{Section: 0, Question: 2},
		},
		{
			name:         "empty values count as unanswered",
			record:       map[string]string{"personal_fullName": "  "},
			wantPosition: Position{},
		},
		{
			name:       "unknown key rejected",
			record:     map[string]string{"personal_fullName": "Ada", "personal_age": "36"},
			expectCode: errors.ErrCodeUnknownAnswerKey,
		},
		{
			name: "full record completes",
			record: func() map[string]string {
				m := map[string]string{}
				for _, k := range allKeys() {
					m[k] = "v"
				}
				return m
			}(),
			wantComplete: true,
			wantPosition: Position{Section: 5, Question: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("id", "", "en")
			require.NoError(t, s.SubmitAnswer("previous"))

			err := s.LoadAnswers(tt.record)
			if tt.expectCode != "" {
				require.Error(t, err)
				assert.True(t, errors.HasCode(err, tt.expectCode))
				assert.Equal(t, map[string]string{"personal_fullName": "previous"}, s.Answers())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantComplete, s.IsComplete())
			assert.Equal(t, tt.wantPosition, s.Position())
		})
	}
}

func TestGenerationGuard(t *testing.T) {
	s := NewSession("id", "", "en")

	require.True(t, s.BeginGeneration())
	assert.False(t, s.BeginGeneration())
	assert.True(t, s.IsGenerating())

	s.EndGeneration()
	assert.False(t, s.IsGenerating())
	assert.True(t, s.BeginGeneration())
}

func TestClaimGeneration(t *testing.T) {
	s := NewSession("id", "", "en")
	require.NoError(t, s.SubmitAnswer("Ada"))

	_, err := s.ClaimGeneration()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInterviewIncomplete))
	assert.False(t, s.IsGenerating())

	for range TotalQuestions() - 1 {
		require.NoError(t, s.SubmitAnswer("answer"))
	}
	answers, err := s.ClaimGeneration()
	require.NoError(t, err)
	assert.Len(t, answers, TotalQuestions())
	assert.True(t, s.IsGenerating())

	_, err = s.ClaimGeneration()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeGenerationInProgress))

	// The claimed record is a copy and survives a reset
	s.Reset()
	assert.Equal(t, "Ada", answers["personal_fullName"])
	s.EndGeneration()

	_, err = s.ClaimGeneration()
	assert.True(t, errors.HasCode(err, errors.ErrCodeInterviewIncomplete))
}

func TestGenerationGuardConcurrent(t *testing.T) {
	s := NewSession("id", "", "en")

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginGeneration() {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestLocalize(t *testing.T) {
	catalog, err := i18n.NewCatalog("en", "", nil)
	require.NoError(t, err)

	for _, locale := range []string{"en", "fr"} {
		sections := Localize(catalog.Translator(locale))
		require.Len(t, sections, 6)
		for _, section := range sections {
			assert.False(t, strings.HasPrefix(section.Title, "sections."), "untranslated title %s in %s", section.Title, locale)
			for _, q := range section.Questions {
				assert.False(t, strings.HasPrefix(q.Text, "questions."), "untranslated question %s in %s", q.Key, locale)
			}
		}
	}

	fr := Localize(catalog.Translator("fr"))
	assert.Equal(t, "Formation", fr[3].Title)
	assert.Equal(t, "education_degree", fr[3].Questions[0].Key)
}

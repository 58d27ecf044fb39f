// Package interview holds the fixed interview script and the per-user
// session state that walks through it.
package interview

import "resumeforge/internal/i18n"

// Question is one prompt inside a section. Its identifier is unique within the section.
type Question struct {
	SectionID string
	ID        string
}

// Key is the answer record key for this question.
func (q Question) Key() string {
	return AnswerKey(q.SectionID, q.ID)
}

// Text returns the localized question text.
func (q Question) Text(t i18n.Translator) string {
	return t.T("questions." + q.SectionID + "." + q.ID)
}

// Section is an ordered group of questions.
type Section struct {
	ID        string
	Questions []Question
}

// Title returns the localized section title.
func (s Section) Title(t i18n.Translator) string {
	return t.T("sections." + s.ID + ".title")
}

// AnswerKey builds the answer record key {sectionId}_{questionId}.
func AnswerKey(sectionID, questionID string) string {
	return sectionID + "_" + questionID
}

func newSection(id string, questionIDs ...string) Section {
	questions := make([]Question, len(questionIDs))
	for i, qid := range questionIDs {
		questions[i] = Question{SectionID: id, ID: qid}
	}
	return Section{ID: id, Questions: questions}
}

var script = []Section{
	newSection("personal", "fullName", "email", "phone", "location"),
	newSection("career", "currentTitle", "targetRole", "yearsExperience"),
	newSection("experience", "recentRole", "responsibilities", "achievements", "previousRoles"),
	newSection("education", "degree", "school", "graduation", "certifications"),
	newSection("skills", "technical", "soft", "languages"),
	newSection("summary", "strengths", "goals"),
}

var validKeys = func() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, section := range script {
		for _, q := range section.Questions {
			keys[q.Key()] = struct{}{}
		}
	}
	return keys
}()

// Sections returns the interview script in order. The returned slice is a copy.
func Sections() []Section {
	out := make([]Section, len(script))
	for i, s := range script {
		out[i] = Section{ID: s.ID, Questions: append([]Question(nil), s.Questions...)}
	}
	return out
}

// TotalQuestions is the number of questions across all sections.
func TotalQuestions() int {
	return len(validKeys)
}

// IsValidKey reports whether key names a question in the script.
func IsValidKey(key string) bool {
	_, ok := validKeys[key]
	return ok
}

// LocalizedQuestion is a question rendered for one locale.
type LocalizedQuestion struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Text string `json:"text"`
}

// LocalizedSection is a section rendered for one locale.
type LocalizedSection struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Questions []LocalizedQuestion `json:"questions"`
}

// Localize renders the interview script with t.
func Localize(t i18n.Translator) []LocalizedSection {
	out := make([]LocalizedSection, 0, len(script))
	for _, section := range script {
		ls := LocalizedSection{ID: section.ID, Title: section.Title(t)}
		for _, q := range section.Questions {
			ls.Questions = append(ls.Questions, LocalizedQuestion{ID: q.ID, Key: q.Key(), Text: q.Text(t)})
		}
		out = append(out, ls)
	}
	return out
}

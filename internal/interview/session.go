package interview

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"resumeforge/internal/errors"
)

// Position is the zero-based (section, question) cursor of a session.
type Position struct {
	Section  int `json:"section"`
	Question int `json:"question"`
}

// Session is one interview run. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	owner     string
	locale    string
	createdAt time.Time

	answers    map[string]string
	position   Position
	complete   bool
	generating bool
}

// NewSession creates a session positioned at the first question.
func NewSession(id, owner, locale string) *Session {
	return &Session{
		id:        id,
		owner:     owner,
		locale:    locale,
		createdAt: time.Now(),
		answers:   make(map[string]string, TotalQuestions()),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Owner() string        { return s.owner }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Locale returns the locale the session was created with.
func (s *Session) Locale() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locale
}

// SetLocale switches the locale used for questions and the prompt.
func (s *Session) SetLocale(locale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locale = locale
}

// SubmitAnswer records text for the current question and advances the
// cursor. Empty or whitespace-only text is rejected without any change,
// as is any submission once the interview is complete.
func (s *Session) SubmitAnswer(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.NewValidationError(errors.ErrCodeEmptyAnswer, "answer must not be empty", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.complete {
		return errors.NewValidationError(errors.ErrCodeInterviewComplete, "interview is already complete", nil)
	}

	q := script[s.position.Section].Questions[s.position.Question]
	s.answers[q.Key()] = text
	s.advance()
	return nil
}

func (s *Session) advance() {
	if s.position.Question+1 < len(script[s.position.Section].Questions) {
		s.position.Question++
		return
	}
	if s.position.Section+1 < len(script) {
		s.position = Position{Section: s.position.Section + 1}
		return
	}
	s.complete = true
}

// Reset clears every answer and returns to the first question.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.answers = make(map[string]string, TotalQuestions())
	s.position = Position{}
	s.complete = false
}

// LoadAnswers replaces the answer record with record. Unknown keys are
// rejected without any change. The cursor moves to the first unanswered
// question, or the session completes when every question has an answer.
func (s *Session) LoadAnswers(record map[string]string) error {
	var unknown []string
	for key := range record {
		if !IsValidKey(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return errors.NewValidationError(errors.ErrCodeUnknownAnswerKey,
			fmt.Sprintf("unknown answer keys: %s", strings.Join(unknown, ", ")), nil).
			WithContext("keys", unknown)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.answers = make(map[string]string, TotalQuestions())
	for key, value := range record {
		if strings.TrimSpace(value) != "" {
			s.answers[key] = value
		}
	}

	s.position = Position{}
	s.complete = true
	for si, section := range script {
		for qi, q := range section.Questions {
			if _, ok := s.answers[q.Key()]; !ok {
				s.position = Position{Section: si, Question: qi}
				s.complete = false
				return nil
			}
		}
	}
	// A complete session keeps its cursor on the last question.
	last := len(script) - 1
	s.position = Position{Section: last, Question: len(script[last].Questions) - 1}
	return nil
}

// Position returns the current cursor.
func (s *Session) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// IsComplete reports whether every question has been answered.
func (s *Session) IsComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// CurrentSection returns the section under the cursor. ok is false once complete.
func (s *Session) CurrentSection() (section Section, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return Section{}, false
	}
	return script[s.position.Section], true
}

// CurrentQuestion returns the question under the cursor. ok is false once complete.
func (s *Session) CurrentQuestion() (question Question, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return Question{}, false
	}
	return script[s.position.Section].Questions[s.position.Question], true
}

// Answers returns a copy of the answer record.
func (s *Session) Answers() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.answers)
}

// Progress returns the number of answered questions and the total.
func (s *Session) Progress() (answered, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers), TotalQuestions()
}

// BeginGeneration claims the generation slot. It returns false when a
// generation is already in flight.
func (s *Session) BeginGeneration() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generating {
		return false
	}
	s.generating = true
	return true
}

// ClaimGeneration claims the generation slot of a complete session and
// returns the answer record the generation must use. Completeness, the slot
// and the record are read under one lock, so a concurrent Reset cannot leave
// the caller with an empty record.
func (s *Session) ClaimGeneration() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.complete {
		return nil, errors.NewValidationError(errors.ErrCodeInterviewIncomplete, "interview is not complete", nil).
			WithContext("answered", len(s.answers)).
			WithContext("total", TotalQuestions())
	}
	if s.generating {
		return nil, errors.NewConflictError(errors.ErrCodeGenerationInProgress, "a generation is already running for this session", nil)
	}
	s.generating = true
	return maps.Clone(s.answers), nil
}

// EndGeneration releases the generation slot.
func (s *Session) EndGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false
}

// IsGenerating reports whether a generation is in flight.
func (s *Session) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generating
}

// State is a consistent snapshot of a session.
type State struct {
	ID         string            `json:"id"`
	Locale     string            `json:"locale"`
	Position   Position          `json:"position"`
	Complete   bool              `json:"complete"`
	Generating bool              `json:"generating"`
	Answered   int               `json:"answered"`
	Total      int               `json:"total"`
	Answers    map[string]string `json:"answers,omitempty"`
}

// Snapshot captures the session state under a single lock.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:         s.id,
		Locale:     s.locale,
		Position:   s.position,
		Complete:   s.complete,
		Generating: s.generating,
		Answered:   len(s.answers),
		Total:      TotalQuestions(),
		Answers:    maps.Clone(s.answers),
	}
}

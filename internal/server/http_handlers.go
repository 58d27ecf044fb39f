package server

import (
	"context"
	"net/http"
	"strconv"

	"resumeforge/internal/auth"
	"resumeforge/internal/errors"
	"resumeforge/internal/i18n"
	"resumeforge/internal/interview"
	"resumeforge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.Registration
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return
	}

	session, err := s.auth.Register(r.Context(), req)
	if err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return
	}

	session, err := s.auth.Login(r.Context(), req)
	if err != nil {
		s.Logger.Info("Login failed", "client_ip", getClientIP(r))
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r.Context()))
}

// sectionsHandler returns the interview script in the requested locale
func (s *Server) sectionsHandler(w http.ResponseWriter, r *http.Request) {
	t := s.catalog.Translator(s.requestLocale(r, ""))
	writeJSON(w, http.StatusOK, map[string]any{
		"locale":   t.Locale(),
		"total":    interview.TotalQuestions(),
		"sections": interview.Localize(t),
	})
}

func (s *Server) createInterviewHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateInterviewRequest
	if r.ContentLength != 0 {
		if err := parseJSONRequest(r, &req); err != nil {
			s.writeAppError(w, r, err, s.requestLocale(r, ""))
			return
		}
	}

	locale := s.requestLocale(r, "")
	if req.Locale != "" {
		locale = s.catalog.Resolve(req.Locale)
	}

	session, err := s.sessions.Create(ownerID(r.Context()), locale)
	if err != nil {
		s.writeAppError(w, r, err, locale)
		return
	}

	metrics := s.observability.GetMetrics()
	metrics.SessionOpened(r.Context())
	metrics.RecordBusinessMetric(r.Context(), observability.MetricInterviewStarted, true,
		attribute.String("locale", locale))

	s.Logger.Info("Interview started",
		"session_id", session.ID(),
		"locale", locale,
		"authenticated", currentUser(r.Context()) != nil)

	writeJSON(w, http.StatusCreated, s.interviewResponse(session, locale))
}

func (s *Server) getInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.interviewResponse(session, s.requestLocale(r, session.Locale())))
}

func (s *Server) deleteInterviewHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	// The removal hook discards the stored resume
	s.sessions.Delete(session.ID())
	w.WriteHeader(http.StatusNoContent)
}

// answerHandler submits the answer to the current question. An empty answer
// leaves the session untouched and returns the localized warning.
func (s *Server) answerHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	locale := s.requestLocale(r, session.Locale())

	var req AnswerRequest
	if err := parseJSONRequest(r, &req); err != nil {
		s.writeAppError(w, r, err, locale)
		return
	}

	err := session.SubmitAnswer(req.Text)
	s.observability.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricAnswerSubmitted, err == nil,
		attribute.String("locale", locale))
	if err != nil {
		s.writeAppError(w, r, err, locale)
		return
	}

	writeJSON(w, http.StatusOK, s.interviewResponse(session, locale))
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	session.Reset()
	s.Logger.Debug("Interview reset", "session_id", session.ID())
	writeJSON(w, http.StatusOK, s.interviewResponse(session, s.requestLocale(r, session.Locale())))
}

// promptHandler renders the prompt pair without calling the model
func (s *Server) promptHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.orchestrator.Prompt(session, s.requestLocale(r, session.Locale())))
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	locale := s.requestLocale(r, session.Locale())

	// A client disconnect does not abort a generation that has started
	result, err := s.orchestrator.Generate(context.WithoutCancel(r.Context()), session, locale)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeValidation) || errors.IsType(err, errors.ErrorTypeConflict) {
			s.writeAppError(w, r, err, locale)
			return
		}
		s.writeAppErrorStatus(w, r, err, locale, http.StatusBadGateway, "messages.generationFailed", endpointFailureDetail(err))
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Handoff:  result.Handoff,
		Message:  s.catalog.Translator(locale).T("messages.generationSucceeded"),
		Model:    result.Model,
		Warnings: result.Warnings,
	})
}

// resumeHandler returns the stored document exactly as it was saved
func (s *Server) resumeHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	raw, err := s.sink.Load(r.Context(), session.ID())
	if err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, session.Locale()))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// lookupSession loads the session named by the path and checks it belongs to
// the caller. Another user's session is reported as forbidden.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*interview.Session, bool) {
	session, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		s.writeAppError(w, r, err, s.requestLocale(r, ""))
		return nil, false
	}

	if owner := session.Owner(); owner != "" && owner != ownerID(r.Context()) {
		err := errors.NewAuthError(errors.ErrCodeForbidden, "interview belongs to another user", nil).
			WithContext("session_id", session.ID())
		s.writeAppError(w, r, err, s.requestLocale(r, session.Locale()))
		return nil, false
	}
	return session, true
}

// interviewResponse renders a consistent snapshot of session in locale
func (s *Server) interviewResponse(session *interview.Session, locale string) InterviewResponse {
	t := s.catalog.Translator(locale)
	state := session.Snapshot()

	response := InterviewResponse{
		ID:         state.ID,
		Locale:     t.Locale(),
		Position:   state.Position,
		Complete:   state.Complete,
		Generating: state.Generating,
		Answers:    state.Answers,
		Progress: ProgressView{
			Answered: state.Answered,
			Total:    state.Total,
		},
	}

	current := state.Answered
	if !state.Complete {
		sections := interview.Sections()
		section := sections[state.Position.Section]
		question := section.Questions[state.Position.Question]
		response.Current = &QuestionView{
			SectionID:    section.ID,
			SectionTitle: section.Title(t),
			Key:          question.Key(),
			Text:         question.Text(t),
		}
		current = questionNumber(state.Position)
	}
	response.Progress.Label = i18n.Format(t.T("messages.progress"), map[string]string{
		"current": strconv.Itoa(current),
		"total":   strconv.Itoa(state.Total),
	})

	return response
}

// questionNumber is the 1-based index of the question at pos in the whole script
func questionNumber(pos interview.Position) int {
	n := 0
	for i, section := range interview.Sections() {
		if i == pos.Section {
			return n + pos.Question + 1
		}
		n += len(section.Questions)
	}
	return n
}

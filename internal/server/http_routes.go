package server

import (
	"context"
	"net/http"
	"strings"

	"resumeforge/internal/auth"
)

type contextKey string

const userKey contextKey = "user"

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	rateLimit := s.rateLimitMiddleware()
	requestLimit := s.requestSizeLimitMiddleware()

	// api wraps a public /api route; user additionally requires an end-user session
	api := func(h http.HandlerFunc) http.HandlerFunc {
		return rateLimit(s.authMiddleware(requestLimit(h)))
	}
	user := func(h http.HandlerFunc) http.HandlerFunc {
		return api(s.sessionMiddleware(h))
	}

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	if s.auth != nil {
		mux.HandleFunc("POST /api/v1/auth/register", api(s.registerHandler))
		mux.HandleFunc("POST /api/v1/auth/login", api(s.loginHandler))
		mux.HandleFunc("POST /api/v1/auth/logout", user(s.logoutHandler))
		mux.HandleFunc("GET /api/v1/auth/me", user(s.meHandler))
	}

	mux.HandleFunc("GET /api/v1/sections", api(s.sectionsHandler))

	mux.HandleFunc("POST /api/v1/interviews", user(s.createInterviewHandler))
	mux.HandleFunc("GET /api/v1/interviews/{id}", user(s.getInterviewHandler))
	mux.HandleFunc("DELETE /api/v1/interviews/{id}", user(s.deleteInterviewHandler))
	mux.HandleFunc("POST /api/v1/interviews/{id}/answers", user(s.answerHandler))
	mux.HandleFunc("POST /api/v1/interviews/{id}/reset", user(s.resetHandler))
	mux.HandleFunc("GET /api/v1/interviews/{id}/prompt", user(s.promptHandler))
	mux.HandleFunc("POST /api/v1/interviews/{id}/generate", user(s.generateHandler))
	mux.HandleFunc("GET /api/v1/interviews/{id}/resume", user(s.resumeHandler))

	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, ErrorResponse{
				Error:   "Missing API key",
				Code:    "MISSING_API_KEY",
				Message: "X-API-Key header required",
			}, http.StatusUnauthorized)
			return
		}

		if !s.APIKeys[apiKey] {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, ErrorResponse{
				Error:   "Invalid API key",
				Code:    "INVALID_API_KEY",
				Message: "Unauthorized access",
			}, http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// sessionMiddleware resolves the end user from the Bearer session token.
// With end-user auth disabled every request is anonymous.
func (s *Server) sessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			next(w, r)
			return
		}

		ctx := r.Context()
		if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
			ctx = auth.WithToken(ctx, strings.TrimSpace(token))
		}

		current, err := s.auth.CurrentUser(ctx)
		if err != nil {
			s.writeAppError(w, r, err, s.catalog.DefaultLocale())
			return
		}

		next(w, r.WithContext(context.WithValue(ctx, userKey, current)))
	}
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// currentUser returns the authenticated user, or nil for anonymous requests
func currentUser(ctx context.Context) *auth.User {
	u, _ := ctx.Value(userKey).(*auth.User)
	return u
}

// ownerID is the session owner recorded for the request's user
func ownerID(ctx context.Context) string {
	if u := currentUser(ctx); u != nil {
		return u.ID
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}

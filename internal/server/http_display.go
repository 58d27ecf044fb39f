package server

import (
	"fmt"
	"io"
	"os"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.writeServerInfo(os.Stdout)
}

func (s *Server) writeServerInfo(w io.Writer) {
	scheme := "http"
	if s.TLSConfig.Mode == "server" {
		scheme = "https"
	}
	_, _ = fmt.Fprintf(w, "Starting resumeforge on %s://%s:%s\n", scheme, s.Host, s.Port)

	s.displayEndpoints(w)
	s.displayAuthInfo(w)
	s.displayRequestLimitInfo(w)
	s.displayRateLimitInfo(w)
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Available endpoints:")
	_, _ = fmt.Fprintln(w, "  GET    /health                             - Health check")
	_, _ = fmt.Fprintln(w, "  GET    /stats                              - Server statistics")
	if s.auth != nil {
		_, _ = fmt.Fprintln(w, "  POST   /api/v1/auth/{register,login,logout} - Account sessions")
		_, _ = fmt.Fprintln(w, "  GET    /api/v1/auth/me                     - Current user")
	}
	_, _ = fmt.Fprintln(w, "  GET    /api/v1/sections                    - Interview script")
	_, _ = fmt.Fprintln(w, "  POST   /api/v1/interviews                  - Start an interview")
	_, _ = fmt.Fprintln(w, "  GET    /api/v1/interviews/{id}             - Interview state")
	_, _ = fmt.Fprintln(w, "  POST   /api/v1/interviews/{id}/answers     - Answer the current question")
	_, _ = fmt.Fprintln(w, "  POST   /api/v1/interviews/{id}/reset       - Start over")
	_, _ = fmt.Fprintln(w, "  GET    /api/v1/interviews/{id}/prompt      - Preview the generation prompt")
	_, _ = fmt.Fprintln(w, "  POST   /api/v1/interviews/{id}/generate    - Generate the resume")
	_, _ = fmt.Fprintln(w, "  GET    /api/v1/interviews/{id}/resume      - Fetch the generated resume")
	_, _ = fmt.Fprintln(w, "  DELETE /api/v1/interviews/{id}             - Discard the interview")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo(w io.Writer) {
	if len(s.APIKeys) > 0 {
		_, _ = fmt.Fprintf(w, "API key authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		_, _ = fmt.Fprintln(w, "Include 'X-API-Key: <your-key>' header in requests to /api")
	} else {
		_, _ = fmt.Fprintln(w, "API key authentication: DISABLED (no API keys configured)")
	}
	if s.auth != nil {
		_, _ = fmt.Fprintln(w, "User sessions: ENABLED (send 'Authorization: Bearer <token>' to interview routes)")
	} else {
		_, _ = fmt.Fprintln(w, "User sessions: DISABLED")
		if len(s.APIKeys) == 0 {
			_, _ = fmt.Fprintln(w, "WARNING: API endpoints are publicly accessible!")
		}
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo(w io.Writer) {
	if s.MaxRequestSize > 0 {
		_, _ = fmt.Fprintf(w, "Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		_, _ = fmt.Fprintln(w, "Request size limit: DISABLED")
		_, _ = fmt.Fprintln(w, "WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo(w io.Writer) {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		_, _ = fmt.Fprintf(w, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			_, _ = fmt.Fprintln(w, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			_, _ = fmt.Fprintln(w, "  - Per IP address rate limiting enabled")
		}
	} else {
		_, _ = fmt.Fprintln(w, "Rate limiting: DISABLED")
	}
}

package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"mime"
	"net/http"
	"time"

	"resumeforge/internal/errors"

	"golang.org/x/text/language"
)

const (
	defaultHealthCheckTimeout = 5 * time.Second
	errCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
)

// userMessageKeys maps error codes to the catalog message shown to end users
var userMessageKeys = map[string]string{
	errors.ErrCodeEmptyAnswer:          "messages.emptyAnswer",
	errors.ErrCodeInterviewComplete:    "messages.interviewComplete",
	errors.ErrCodeInterviewIncomplete:  "messages.interviewIncomplete",
	errors.ErrCodeGenerationInProgress: "messages.generationInProgress",
}

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.Timeout <= 0 {
		return defaultHealthCheckTimeout
	}
	return s.AppConfig.Observability.HealthCheck.Timeout
}

func (s *Server) getAIModelCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout <= 0 {
		return s.getHealthCheckTimeout()
	}
	return s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
}

// healthHandler reports model availability, breaker state, storage and certificate health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"service": "resumeforge",
		"version": s.Version,
	}
	healthy := true

	if s.ai != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.getAIModelCheckTimeout())
		modelInfo := s.ai.GetModelInfo(ctx)
		cancel()

		response["ai_model"] = modelInfo
		response["circuit_breakers"] = s.ai.CircuitBreakerStats()
		if modelInfo == nil || !modelInfo.Available {
			healthy = false
		}
	}

	if s.sink != nil {
		storageStatus := s.checkStorageHealth(r.Context())
		response["storage"] = storageStatus
		if ok, _ := storageStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	if certStatus := s.checkCertificateHealth(); certStatus != nil {
		response["certificates"] = certStatus
		if ok, _ := certStatus["healthy"].(bool); !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// checkStorageHealth pings the transient store behind the result sink
func (s *Server) checkStorageHealth(ctx context.Context) map[string]any {
	ctx, cancel := context.WithTimeout(ctx, s.getHealthCheckTimeout())
	defer cancel()

	backend := "memory"
	if s.AppConfig != nil && s.AppConfig.Storage.Driver != "" {
		backend = s.AppConfig.Storage.Driver
	}

	if err := s.sink.Ping(ctx); err != nil {
		return map[string]any{
			"healthy": false,
			"backend": backend,
			"error":   err.Error(),
		}
	}
	return map[string]any{"healthy": true, "backend": backend}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumeforge",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"api_keys_configured":    len(s.APIKeys),
			"user_auth_enabled":      s.auth != nil,
		},
	}

	if s.sessions != nil {
		sessions := map[string]any{"active": s.sessions.Len()}
		if s.AppConfig != nil {
			sessions["max"] = s.AppConfig.Interview.MaxSessions
			sessions["ttl"] = s.AppConfig.Interview.SessionTTL.String()
		}
		response["sessions"] = sessions
	}

	if s.catalog != nil {
		response["locales"] = map[string]any{
			"available": s.catalog.Locales(),
			"default":   s.catalog.DefaultLocale(),
		}
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// requestLocale picks the locale for a request: the locale query parameter,
// then Accept-Language, then fallback. The result is always one the catalog serves.
func (s *Server) requestLocale(r *http.Request, fallback string) string {
	if locale := r.URL.Query().Get("locale"); locale != "" {
		return s.catalog.Resolve(locale)
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil {
			for _, tag := range tags {
				base, _ := tag.Base()
				if s.catalog.Has(base.String()) {
					return base.String()
				}
			}
		}
	}
	if fallback != "" {
		return s.catalog.Resolve(fallback)
	}
	return s.catalog.DefaultLocale()
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", err)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errCodeRequestTooLarge, "request body too large", err).
				WithContext("limit_bytes", maxBytesErr.Limit)
		}
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "failed to parse JSON body", err)
	}
	return nil
}

// statusForError maps an error to the HTTP status the API returns for it
func statusForError(err error) int {
	switch {
	case errors.HasCode(err, errCodeRequestTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.HasCode(err, errors.ErrCodeInterviewIncomplete),
		errors.HasCode(err, errors.ErrCodeGenerationInProgress),
		errors.HasCode(err, errors.ErrCodeEmailTaken):
		return http.StatusConflict
	case errors.HasCode(err, errors.ErrCodeForbidden):
		return http.StatusForbidden
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeAuth:
		return http.StatusUnauthorized
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeConflict:
		return http.StatusConflict
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork, errors.ErrorTypeParse, errors.ErrorTypeSchema:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError writes err with its mapped status and a message localized for locale
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error, locale string) {
	s.writeAppErrorStatus(w, r, err, locale, statusForError(err), "", "")
}

func (s *Server) writeAppErrorStatus(w http.ResponseWriter, r *http.Request, err error, locale string, status int, messageKey, detail string) {
	response := ErrorResponse{Error: http.StatusText(status), Detail: detail}
	if appErr, ok := errors.AsAppError(err); ok {
		response.Error = appErr.Message
		response.Code = appErr.Code
		if messageKey == "" {
			messageKey = userMessageKeys[appErr.Code]
		}
	}
	if messageKey != "" && s.catalog != nil {
		response.Message = s.catalog.Translator(locale).T(messageKey)
	}

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed",
			"endpoint", r.URL.Path,
			"status", status)
	} else {
		s.Logger.Debug("Request rejected",
			"endpoint", r.URL.Path,
			"status", status,
			"error", err.Error())
	}

	writeErrorResponse(w, response, status)
}

// endpointFailureDetail returns the underlying message of a failed call to the
// generation endpoint. Parse and schema failures have no detail, so model
// output never reaches the caller.
func endpointFailureDetail(err error) string {
	if !errors.IsType(err, errors.ErrorTypeAI) && !errors.IsType(err, errors.ErrorTypeNetwork) {
		return ""
	}
	appErr, _ := errors.AsAppError(err)
	for appErr.Cause != nil {
		next, ok := errors.AsAppError(appErr.Cause)
		if !ok {
			return appErr.Cause.Error()
		}
		appErr = next
	}
	return appErr.Message
}

// writeJSON writes v as the JSON response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, response ErrorResponse, statusCode int) {
	writeJSON(w, statusCode, response)
}

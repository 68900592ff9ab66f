package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/viewingscheduler/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/viewingscheduler/pkg/errors"
)

// errorResponse is the body of every non-2xx response
type errorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details []apperrors.FieldError `json:"details,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps an error to its HTTP status. Internal causes are logged, never returned.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())

	appErr, ok := apperrors.As(err)
	if !ok {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled error")
		respondWithError(w, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	status := statusForType(appErr.Type)
	body := errorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
		Meta:    appErr.Meta,
	}

	switch {
	case status >= http.StatusInternalServerError && appErr.Type == apperrors.ErrorTypeInternal:
		logger.Error().Err(appErr.Err).Str("code", appErr.Code).Str("path", r.URL.Path).Msg(appErr.Message)
		body.Error = "an unexpected error occurred"
	case status >= http.StatusInternalServerError:
		logger.Warn().Err(appErr.Err).Str("code", appErr.Code).Str("path", r.URL.Path).Msg(appErr.Message)
	}

	respondWithJSON(w, status, body)
}

func statusForType(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	case apperrors.ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

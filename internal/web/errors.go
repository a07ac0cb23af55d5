package web

// errors.go provides unified error responses for the API.
//
// Every failure is logged with its technical detail and request ID, then
// returned to the client as a coded JSON message from the diagnostics package.

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/sheetdedup/internal/diagnostics"
	"github.com/JonMunkholm/sheetdedup/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing JSON form.
// A zero statusCode is derived from the diagnostic code.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	uerr := diagnostics.NewUserError(err)
	userMsg := uerr.User
	if statusCode == 0 {
		statusCode = statusForCode(userMsg.Code)
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"status", statusCode,
		"error", uerr.Technical.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	writeJSON(w, statusCode, ErrorResponse{
		Error:   userMsg.Message,
		Message: uerr.Display(),
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusForCode maps a diagnostic code to an HTTP status.
func statusForCode(code string) int {
	switch {
	case code == "FILE006":
		return http.StatusRequestEntityTooLarge
	case code == "JOB001":
		return http.StatusServiceUnavailable
	case code == "JOB002", code == "JOB003":
		return http.StatusRequestTimeout
	case strings.HasPrefix(code, "COL"),
		strings.HasPrefix(code, "CFG"),
		strings.HasPrefix(code, "FILE"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "DB"):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

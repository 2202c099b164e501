package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/openjobspec/ojs-monitor/internal/core"
)

// ContentTypeJSON is the media type of every response body.
const ContentTypeJSON = "application/json"

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries an OJSError plus the request it belongs to.
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// WriteError writes an OJSError response with the given status.
func WriteError(w http.ResponseWriter, status int, ojsErr *core.OJSError) {
	WriteJSON(w, status, ErrorResponse{
		Error: ErrorBody{
			Code:      ojsErr.Code,
			Message:   ojsErr.Message,
			Retryable: ojsErr.Retryable,
			Details:   ojsErr.Details,
			RequestID: w.Header().Get("X-Request-Id"),
		},
	})
}

// StatusForCode maps an error code to its HTTP status.
func StatusForCode(code string) int {
	switch code {
	case core.ErrCodeNotFound:
		return http.StatusNotFound
	case core.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case core.ErrCodeOwnershipDenied:
		return http.StatusForbidden
	case core.ErrCodeNoMatchingHost, core.ErrCodeCommandFailed:
		return http.StatusBadGateway
	case core.ErrCodeHostUnreachable:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeBackendError writes err with the status its code maps to. Errors that
// are not OJSErrors become internal errors.
func writeBackendError(w http.ResponseWriter, err error) {
	ojsErr, ok := core.AsOJSError(err)
	if !ok {
		ojsErr = core.NewInternalError(err.Error())
	}
	WriteError(w, StatusForCode(ojsErr.Code), ojsErr)
}

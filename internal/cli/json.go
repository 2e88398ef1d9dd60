package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/hackx/skillos/internal/errors"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound   = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeNotSignedIn      = "NOT_SIGNED_IN"
	ErrCodeAuthFailed       = "AUTH_FAILED"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeFetchFailed      = "FETCH_FAILED"
	ErrCodeUnknown          = "UNKNOWN"
)

// notSignedInMessage is the message of the error returned to commands that
// need a session.
const notSignedInMessage = "You're not signed in"

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var skErr *errors.Error
	if stderrors.As(err, &skErr) {
		return &JSONError{
			Code:       mapErrorCode(skErr.Code, skErr.Message),
			Message:    skErr.Message,
			Suggestion: skErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		msgLower := strings.ToLower(message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "not set") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrAuth:
		if message == notSignedInMessage {
			return ErrCodeNotSignedIn
		}
		return ErrCodeAuthFailed
	case errors.ErrValidation:
		return ErrCodeInvalidInput
	case errors.ErrConnection:
		return ErrCodeConnectionFailed
	case errors.ErrFetch:
		return ErrCodeFetchFailed
	}

	return ErrCodeUnknown
}

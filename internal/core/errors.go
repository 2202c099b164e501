package core

import (
	"errors"
	"fmt"
)

// Error codes surfaced to operators.
const (
	ErrCodeNotFound        = "not_found"
	ErrCodeInvalidRequest  = "invalid_request"
	ErrCodeInternalError   = "internal_error"
	ErrCodeNoMatchingHost  = "no_matching_host"
	ErrCodeHostUnreachable = "host_unreachable"
	ErrCodeOwnershipDenied = "ownership_denied"
	ErrCodeCommandFailed   = "command_failed"
)

// OJSError is the structured error returned by every monitor operation.
type OJSError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

func (e *OJSError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// AsOJSError unwraps err into an *OJSError when one is present in the chain.
func AsOJSError(err error) (*OJSError, bool) {
	var ojsErr *OJSError
	if errors.As(err, &ojsErr) {
		return ojsErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an OJSError with the given code.
func HasCode(err error, code string) bool {
	ojsErr, ok := AsOJSError(err)
	return ok && ojsErr.Code == code
}

func NewInvalidRequestError(message string, details map[string]any) *OJSError {
	return &OJSError{Code: ErrCodeInvalidRequest, Message: message, Details: details}
}

func NewNotFoundError(resourceType, resourceID string) *OJSError {
	return &OJSError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s '%s' not found.", resourceType, resourceID),
		Details: map[string]any{
			"resource_type": resourceType,
			"resource_id":   resourceID,
		},
	}
}

func NewInternalError(message string) *OJSError {
	return &OJSError{Code: ErrCodeInternalError, Message: message, Retryable: true}
}

// NewNoMatchingHostError reports that no configured SSH alias resolves to the
// worker's address.
func NewNoMatchingHostError(hostname, address string) *OJSError {
	return &OJSError{
		Code:    ErrCodeNoMatchingHost,
		Message: fmt.Sprintf("No configured SSH host matches worker host %s (%s).", hostname, address),
		Details: map[string]any{
			"hostname": hostname,
			"address":  address,
		},
	}
}

// NewHostUnreachableError reports that the worker's host could not be
// determined or contacted.
func NewHostUnreachableError(host, reason string) *OJSError {
	return &OJSError{
		Code:      ErrCodeHostUnreachable,
		Message:   fmt.Sprintf("Host %s is unreachable: %s", host, reason),
		Retryable: true,
		Details: map[string]any{
			"host":   host,
			"reason": reason,
		},
	}
}

// NewOwnershipDeniedError reports that the acting user may not signal a
// process owned by someone else.
func NewOwnershipDeniedError(host string, pid int, owner, actingUser string) *OJSError {
	return &OJSError{
		Code: ErrCodeOwnershipDenied,
		Message: fmt.Sprintf("Logged in user %s does not have permission to kill worker process with pid %d on %s because it is owned by user %s.",
			actingUser, pid, host, owner),
		Details: map[string]any{
			"host":        host,
			"pid":         pid,
			"owner":       owner,
			"acting_user": actingUser,
		},
	}
}

// NewCommandFailedError reports a failed signal delivery together with the
// captured command output.
func NewCommandFailedError(host, command, stdout, stderr string, exitStatus int) *OJSError {
	return &OJSError{
		Code:    ErrCodeCommandFailed,
		Message: fmt.Sprintf("Command %q on %s failed with exit status %d.", command, host, exitStatus),
		Details: map[string]any{
			"host":        host,
			"command":     command,
			"stdout":      stdout,
			"stderr":      stderr,
			"exit_status": exitStatus,
		},
	}
}

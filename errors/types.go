package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Git errors, in rough order of how often callers branch on them.
	// Absence codes (not a repository, ref not found) are usually recoverable;
	// conflict codes need user intervention; configuration codes are
	// informational.
	ErrCodeGitNotARepository   ErrorCode = "GIT_NOT_A_REPOSITORY"
	ErrCodeGitLockConflict     ErrorCode = "GIT_LOCK_CONFLICT"
	ErrCodeGitMergeConflict    ErrorCode = "GIT_MERGE_CONFLICT"
	ErrCodeGitDetachedHead     ErrorCode = "GIT_DETACHED_HEAD"
	ErrCodeGitNoUpstream       ErrorCode = "GIT_NO_UPSTREAM"
	ErrCodeGitRefNotFound      ErrorCode = "GIT_REF_NOT_FOUND"
	ErrCodeGitPermissionDenied ErrorCode = "GIT_PERMISSION_DENIED"
	ErrCodeGitUnknown          ErrorCode = "GIT_UNKNOWN"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Command execution errors
	ErrCodeCommandTimeout  ErrorCode = "COMMAND_TIMEOUT"
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"

	// Watcher errors
	ErrCodeWatchSetupFailed ErrorCode = "WATCH_SETUP_FAILED"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// CoreError represents a structured error with context
type CoreError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *CoreError) WithDetail(key string, value interface{}) *CoreError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *CoreError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new CoreError
func New(code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CoreError
func Wrap(err error, code ErrorCode, message string) *CoreError {
	return &CoreError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific CoreError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	coreErr, ok := err.(*CoreError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return coreErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	coreErr, ok := err.(*CoreError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return coreErr.Code
}

package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Registry errors
	ErrCodeRecordNotFound  ErrorCode = "RECORD_NOT_FOUND"
	ErrCodeRecordCorrupt   ErrorCode = "RECORD_CORRUPT"
	ErrCodeInvalidKey      ErrorCode = "INVALID_KEY"
	ErrCodeStoreFailed     ErrorCode = "STORE_FAILED"
	ErrCodeSessionExists   ErrorCode = "SESSION_EXISTS"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Command execution errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"

	// Git errors
	ErrCodeGitFailed        ErrorCode = "GIT_FAILED"
	ErrCodeNotARepository   ErrorCode = "NOT_A_REPOSITORY"
	ErrCodeNoTrackingBranch ErrorCode = "NO_TRACKING_BRANCH"

	// General errors
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
)

// CoordError represents a structured error with context
type CoordError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CoordError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CoordError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *CoordError) WithDetail(key string, value interface{}) *CoordError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *CoordError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new CoordError
func New(code ErrorCode, message string) *CoordError {
	return &CoordError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CoordError
func Wrap(err error, code ErrorCode, message string) *CoordError {
	return &CoordError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific CoordError code
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, searching the unwrap chain.
func GetCode(err error) ErrorCode {
	for err != nil {
		if coordErr, ok := err.(*CoordError); ok {
			return coordErr.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}

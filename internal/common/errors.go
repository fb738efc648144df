package common

import "fmt"

// AppError is the application-level error shape: a stable code for
// branching, a human message, and the wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError wraps a cause with a code and message.
func WrapError(code, message string, err error) error {
	return &AppError{Code: code, Message: message, Err: err}
}

// NewError creates an error with no cause.
func NewError(code, message string) error {
	return &AppError{Code: code, Message: message}
}

const (
	ErrCodeGitHubAPI    = "GITHUB_API_ERROR"
	ErrCodeHackerNews   = "HACKERNEWS_API_ERROR"
	ErrCodeCache        = "CACHE_ERROR"
	ErrCodeSnapshot     = "SNAPSHOT_STORE_ERROR"
	ErrCodeScoring      = "SCORING_ERROR"
	ErrCodeGeneration   = "GENERATION_ERROR"
	ErrCodeSchema       = "SCHEMA_VALIDATION_ERROR"
	ErrCodeNotification = "NOTIFICATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

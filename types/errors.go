package types

import (
	"errors"
	"fmt"
)

// Error codes for the orchestrator's failure taxonomy, keyed by origin.
const (
	CodeLoggerInit  = "logger_init_failed"
	CodePlanCall    = "plan_call_failed"
	CodePlanInvalid = "plan_invalid"
	CodeInvalidTask = "invalid_task"
	CodeRewrite     = "rewrite_failed"
	CodeInternal    = "internal_error"
)

// CoderError provides structured error information for agent-coder failures.
// Details carries diagnostic context such as the offending task's id and path.
type CoderError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *CoderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CoderError) Unwrap() error { return e.Err }

// NewCoderError creates a new structured error.
func NewCoderError(code string, message string, details map[string]interface{}) *CoderError {
	return &CoderError{Code: code, Message: message, Details: details}
}

// WrapCoderError wraps an underlying error with a code and context.
func WrapCoderError(code string, message string, err error, details map[string]interface{}) *CoderError {
	return &CoderError{Code: code, Message: message, Details: details, Err: err}
}

// ErrorCode extracts the taxonomy code from err, or CodeInternal if err is not
// a CoderError.
func ErrorCode(err error) string {
	var ce *CoderError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

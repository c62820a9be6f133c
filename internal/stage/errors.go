package stage

import (
	"errors"
	"fmt"
	"strings"

	"reelfactory/internal/services"
)

// ErrPersist marks failures to write durable state. They always fail the job,
// whatever the pipeline policy.
var ErrPersist = errors.New("persistence failure")

// Persist wraps a store error with ErrPersist.
func Persist(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("persist %s: %w: %w", operation, ErrPersist, err)
}

// Error is a stage failure. Retryable is reserved; the workflow never retries
// a stage on its own. Abort is set by the workflow when the pipeline policy
// let the error end the job.
type Error struct {
	Stage     string
	Message   string
	Retryable bool
	Abort     bool
	Cause     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Stage == "" {
		return msg
	}
	return e.Stage + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fail builds a stage error whose handling is left to the pipeline policy.
func Fail(stageName, message string, cause error) *Error {
	return &Error{Stage: stageName, Message: strings.TrimSpace(message), Cause: cause}
}

// FromService converts a collaborator error into a stage error. The service
// marker stays reachable through errors.Is.
func FromService(stageName string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	return Fail(stageName, services.Details(err).Message, err)
}

// AsError unwraps err to a stage error.
func AsError(err error) (*Error, bool) {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr, true
	}
	return nil, false
}

// Message renders err for a job's error message and failure events.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if stageErr, ok := AsError(err); ok {
		if stageErr.Message != "" {
			return stageErr.Message
		}
		if stageErr.Cause != nil {
			return services.Details(stageErr.Cause).Message
		}
	}
	return services.Details(err).Message
}

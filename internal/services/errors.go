package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternal      = errors.New("external service error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ServiceError carries the classification and context attached by Wrap.
type ServiceError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *ServiceError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *ServiceError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Cause}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &ServiceError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Cause:     err,
	}
}

// ErrorDetails summarizes a wrapped error for logs and job records.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Hint      string
}

// Details extracts the outermost ServiceError context from err. Plain errors
// yield a Kind of "unknown" and their text as Message.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		return ErrorDetails{Kind: "unknown", Message: err.Error(), Hint: "check logs for details"}
	}
	message := svcErr.Message
	if svcErr.Cause != nil {
		if message == "" {
			message = svcErr.Cause.Error()
		} else {
			message = message + ": " + svcErr.Cause.Error()
		}
	}
	return ErrorDetails{
		Kind:      kindOf(svcErr.Marker),
		Stage:     svcErr.Stage,
		Operation: svcErr.Operation,
		Message:   message,
		Hint:      hintFor(svcErr.Marker),
	}
}

// IsRetryable reports whether err is tagged with a marker that a later attempt
// could plausibly clear.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout)
}

func kindOf(marker error) string {
	switch {
	case errors.Is(marker, ErrExternal):
		return "external"
	case errors.Is(marker, ErrValidation):
		return "validation"
	case errors.Is(marker, ErrConfiguration):
		return "configuration"
	case errors.Is(marker, ErrNotFound):
		return "not_found"
	case errors.Is(marker, ErrTimeout):
		return "timeout"
	case errors.Is(marker, ErrTransient):
		return "transient"
	default:
		return "unknown"
	}
}

func hintFor(marker error) string {
	switch {
	case errors.Is(marker, ErrConfiguration):
		return "check API keys and endpoints in config.toml"
	case errors.Is(marker, ErrValidation):
		return "check the request parameters"
	case errors.Is(marker, ErrTimeout):
		return "the remote generation did not finish within the polling budget; retry later"
	case errors.Is(marker, ErrExternal), errors.Is(marker, ErrTransient):
		return "check the remote service status and retry"
	default:
		return "check logs for details"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

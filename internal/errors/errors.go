// Package errors provides the operation-error shape used across the pipeline:
// every adapter and component wraps failures the same way so logs and DLQ
// entries carry a consistent operation/component/resource/cause tuple.
package errors

import (
	"errors"
	"fmt"

	faster "github.com/go-faster/errors"
)

// OperationError describes a failed operation with enough context to log,
// retry-classify, and DLQ without re-deriving it from a bare error string.
type OperationError struct {
	Operation string
	Component string
	Resource  string
	Cause     error
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("failed to %s", e.Operation)
	if e.Component != "" {
		msg += fmt.Sprintf(", component: %s", e.Component)
	}
	if e.Resource != "" {
		msg += fmt.Sprintf(", resource: %s", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(", cause: %s", e.Cause.Error())
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// FailedTo wraps cause into an *OperationError with no component/resource.
func FailedTo(action string, cause error) error {
	if cause == nil {
		return &OperationError{Operation: action}
	}
	return &OperationError{Operation: action, Cause: faster.Wrap(cause, action)}
}

// FailedToWithDetails wraps cause with component/resource context attached.
func FailedToWithDetails(action, component, resource string, cause error) error {
	var wrapped error
	if cause != nil {
		wrapped = faster.Wrap(cause, action)
	}
	return &OperationError{
		Operation: action,
		Component: component,
		Resource:  resource,
		Cause:     wrapped,
	}
}

// Code classifies errors surfaced at process boundaries.
type Code string

const (
	CodeHTTP4xx              Code = "HTTP_4xx"
	CodeCircuitBreakerOpen    Code = "CIRCUIT_BREAKER_OPEN"
	CodeEmptyResponse         Code = "EMPTY_RESPONSE"
	CodeInvalidJSON           Code = "INVALID_JSON"
	CodeActivationPolicyError Code = "ACTIVATION_POLICY_ERROR"
	CodeSSOTViolation         Code = "SSOT_VIOLATION"
	CodeProcessingError       Code = "PROCESSING_ERROR"
)

// CodedError attaches a closed error Code to a cause for callers that must
// branch on the taxonomy (retry policy, DLQ recoverability, AuditReport.errorCode).
type CodedError struct {
	Code  Code
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Cause.Error())
}

func (e *CodedError) Unwrap() error { return e.Cause }

// WithCode wraps cause with a taxonomy code.
func WithCode(code Code, cause error) error {
	return &CodedError{Code: code, Cause: cause}
}

// CodeOf extracts the Code from err, if any was attached via WithCode.
func CodeOf(err error) (Code, bool) {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *OperationError
		expected string
	}{
		{
			name: "full error",
			err: &OperationError{
				Operation: "extract text",
				Component: "ocr",
				Resource:  "doc-123",
				Cause:     fmt.Errorf("connection timeout"),
			},
			expected: "failed to extract text, component: ocr, resource: doc-123, cause: connection timeout",
		},
		{
			name: "minimal error",
			err: &OperationError{
				Operation: "parse spec",
				Cause:     fmt.Errorf("invalid json"),
			},
			expected: "failed to parse spec, cause: invalid json",
		},
		{
			name: "no cause",
			err: &OperationError{
				Operation: "activate version",
				Component: "registry",
			},
			expected: "failed to activate version, component: registry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying")
	err := &OperationError{Operation: "test", Cause: cause}
	assert.Equal(t, cause, err.Unwrap())

	noCause := &OperationError{Operation: "test"}
	assert.Nil(t, noCause.Unwrap())
}

func TestFailedTo(t *testing.T) {
	err := FailedTo("connect to ocr provider", fmt.Errorf("refused"))
	assert.Contains(t, err.Error(), "failed to connect to ocr provider")
	assert.Contains(t, err.Error(), "refused")

	err = FailedTo("start pipeline", nil)
	assert.Equal(t, "failed to start pipeline", err.Error())
}

func TestFailedToWithDetails(t *testing.T) {
	cause := fmt.Errorf("timeout")
	err := FailedToWithDetails("score candidates", "selector", "doc-9", cause)

	opErr, ok := err.(*OperationError)
	if !ok {
		t.Fatalf("FailedToWithDetails() should return *OperationError, got %T", err)
	}
	assert.Equal(t, "score candidates", opErr.Operation)
	assert.Equal(t, "selector", opErr.Component)
	assert.Equal(t, "doc-9", opErr.Resource)
	assert.ErrorContains(t, opErr.Cause, "timeout")
}

func TestCodedError(t *testing.T) {
	err := WithCode(CodeCircuitBreakerOpen, fmt.Errorf("ocr upstream"))
	assert.Equal(t, "CIRCUIT_BREAKER_OPEN: ocr upstream", err.Error())

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodeCircuitBreakerOpen, code)

	_, ok = CodeOf(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestCodedError_NoCause(t *testing.T) {
	err := WithCode(CodeSSOTViolation, nil)
	assert.Equal(t, "SSOT_VIOLATION", err.Error())
	assert.Nil(t, err.(*CodedError).Unwrap())
}

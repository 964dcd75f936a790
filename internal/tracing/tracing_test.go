package tracing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/tracing"
)

func TestSetup_ExportsSpanWithCorrelationAttributes(t *testing.T) {
	var buf bytes.Buffer

	shutdown, err := tracing.Setup("test-service", &buf)
	require.NoError(t, err)

	_, span := tracing.StartDocumentSpan(context.Background(), "test", "unit.span", "corr-123", "doc-456")
	span.End()

	require.NoError(t, shutdown(context.Background()))

	var exported []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var v map[string]any
		require.NoError(t, dec.Decode(&v))
		exported = append(exported, v)
	}
	require.NotEmpty(t, exported)
	assert.Equal(t, "unit.span", exported[0]["Name"])
}

func TestSetup_NilWriterDisablesExportWithoutPanicking(t *testing.T) {
	shutdown, err := tracing.Setup("test-service", nil)
	require.NoError(t, err)

	_, span := tracing.StartDocumentSpan(context.Background(), "test", "unit.span", "corr-1", "doc-1")
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

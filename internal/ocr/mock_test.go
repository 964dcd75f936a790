package ocr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProvider_ExtractFromURL_ReturnsFixture(t *testing.T) {
	m := NewMockProvider()
	m.ByURL["https://example.com/doc.pdf"] = Result{
		Success: true,
		Pages:   []Page{{PageNumber: 1, Markdown: "job sheet content"}},
		Model:   "mock-v1",
	}

	res, err := m.ExtractFromURL(context.Background(), "https://example.com/doc.pdf", Options{})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.TotalPages)
}

func TestMockProvider_ExtractFromURL_MissingFixture(t *testing.T) {
	m := NewMockProvider()
	res, err := m.ExtractFromURL(context.Background(), "https://example.com/missing.pdf", Options{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "HTTP_404", res.ErrorCode)
}

func TestMockProvider_RedactPII_AppliedBeforeReturn(t *testing.T) {
	m := NewMockProvider()
	m.ByURL["u"] = Result{Success: true, Pages: []Page{{PageNumber: 1, Markdown: "contact jane@example.com"}}}

	res, err := m.ExtractFromURL(context.Background(), "u", Options{RedactPII: true})
	require.NoError(t, err)
	assert.Equal(t, "contact [REDACTED]", res.Pages[0].Markdown)
}

func TestMockProvider_ValidateAPIKey(t *testing.T) {
	m := NewMockProvider()
	v, err := m.ValidateAPIKey(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Valid)

	m.KeyValid = false
	v, err = m.ValidateAPIKey(context.Background())
	require.NoError(t, err)
	assert.False(t, v.Valid)
}

func TestMockProvider_GetProviderArtifact_NeverContainsText(t *testing.T) {
	m := NewMockProvider()
	res := Result{Success: true, Pages: []Page{{PageNumber: 1, Markdown: "sensitive text"}}}
	artifact := m.GetProviderArtifact(res, nil)
	assert.NotContains(t, artifact.Provider, "sensitive")
	assert.Equal(t, "mock", artifact.Provider)
}

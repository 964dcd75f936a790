// Package ocr implements the pluggable OCR adapter contract: a
// Mistral-shaped HTTP provider and a deterministic mock for tests, both
// behind the same Provider interface and guarded by the shared resiliency
// substrate.
package ocr

import (
	"context"
	"time"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/redact"
)

// Page is one page of OCR output.
type Page struct {
	PageNumber int            `json:"pageNumber"`
	Markdown   string         `json:"markdown"`
	Images     []ImageRef     `json:"images,omitempty"`
	Dimensions *PageDimensions `json:"dimensions,omitempty"`
}

// ImageRef locates one embedded image on a page.
type ImageRef struct {
	X, Y, W, H float64
	URI        string
}

// PageDimensions is a page's physical size, in points.
type PageDimensions struct {
	WidthPt  float64 `json:"widthPt"`
	HeightPt float64 `json:"heightPt"`
}

// UsageInfo is provider-reported token/cost usage, when available.
type UsageInfo struct {
	TokensUsed int `json:"tokensUsed,omitempty"`
}

// Result is the outcome of one OCR extraction call.
type Result struct {
	Success        bool
	Pages          []Page
	TotalPages     int
	Model          string
	CorrelationID  string
	ProcessingTimeMs int64
	UsageInfo      *UsageInfo
	Error          string
	ErrorCode      string
	RetryAttempts  int
}

// Options configures a single OCR call.
type Options struct {
	IncludeImageLocations bool
	ImageLimit            int
	PageLimit             int
	JobSheetID            string
	SkipRetry             bool
	RedactPII             bool
}

// RequestMetadata is the request-side summary recorded on a ProviderArtifact.
type RequestMetadata struct {
	DocumentType string `json:"documentType"`
	PageLimit    *int   `json:"pageLimit,omitempty"`
	ImageLimit   *int   `json:"imageLimit,omitempty"`
}

// ResponseMetadata is the response-side summary recorded on a
// ProviderArtifact.
type ResponseMetadata struct {
	StatusCode       int    `json:"statusCode"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
	PagesProcessed   int    `json:"pagesProcessed"`
	TokensGenerated  *int   `json:"tokensGenerated,omitempty"`
}

// ProviderArtifact contains only metadata about an OCR call — never the
// extracted text.
type ProviderArtifact struct {
	Provider        string           `json:"provider"`
	Model           string           `json:"model"`
	Timestamp       time.Time        `json:"timestamp"`
	CorrelationID   string           `json:"correlationId,omitempty"`
	RequestMetadata RequestMetadata  `json:"requestMetadata"`
	ResponseMetadata ResponseMetadata `json:"responseMetadata"`
}

// KeyValidation is the result of validating a provider's API key.
type KeyValidation struct {
	Valid bool
	Error string
}

// Provider is the OCR adapter contract.
type Provider interface {
	ExtractFromURL(ctx context.Context, url string, opts Options) (Result, error)
	ExtractFromBase64(ctx context.Context, data, mime string, opts Options) (Result, error)
	ValidateAPIKey(ctx context.Context) (KeyValidation, error)
	GetProviderArtifact(result Result, opts *Options) ProviderArtifact
}

// redactPages replaces every page's markdown with its PII-redacted form,
// applied before the result is returned to the caller when opts.RedactPII
// is set.
func redactPages(pages []Page) []Page {
	out := make([]Page, len(pages))
	for i, p := range pages {
		p.Markdown = redact.Text(p.Markdown)
		out[i] = p
	}
	return out
}

package ocr

import (
	"context"
	"time"
)

// MockProvider is a deterministic in-memory OCR provider for tests and
// offline runs. Fixtures map a cache key (URL or base64 payload) to a
// canned Result or error.
type MockProvider struct {
	Model     string
	ByURL     map[string]Result
	ByBase64  map[string]Result
	ErrByURL  map[string]error
	KeyValid  bool
	now       func() time.Time
}

// NewMockProvider returns a MockProvider with empty fixture tables.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Model:    "mock-ocr-v1",
		ByURL:    make(map[string]Result),
		ByBase64: make(map[string]Result),
		ErrByURL: make(map[string]error),
		KeyValid: true,
		now:      time.Now,
	}
}

func (m *MockProvider) ExtractFromURL(ctx context.Context, url string, opts Options) (Result, error) {
	if err, ok := m.ErrByURL[url]; ok {
		return Result{}, err
	}
	res, ok := m.ByURL[url]
	if !ok {
		res = Result{Success: false, ErrorCode: "HTTP_404", Error: "no fixture for url"}
	}
	return m.finalize(res, opts), nil
}

func (m *MockProvider) ExtractFromBase64(ctx context.Context, data, mime string, opts Options) (Result, error) {
	res, ok := m.ByBase64[data]
	if !ok {
		res = Result{Success: false, ErrorCode: "HTTP_404", Error: "no fixture for payload"}
	}
	return m.finalize(res, opts), nil
}

func (m *MockProvider) finalize(res Result, opts Options) Result {
	if opts.RedactPII && res.Success {
		res.Pages = redactPages(res.Pages)
	}
	res.TotalPages = len(res.Pages)
	if res.Model == "" {
		res.Model = m.Model
	}
	return res
}

func (m *MockProvider) ValidateAPIKey(ctx context.Context) (KeyValidation, error) {
	if m.KeyValid {
		return KeyValidation{Valid: true}, nil
	}
	return KeyValidation{Valid: false, Error: "invalid mock api key"}, nil
}

func (m *MockProvider) GetProviderArtifact(result Result, opts *Options) ProviderArtifact {
	statusCode := 200
	if !result.Success {
		statusCode = 400
	}
	var imageLimit, pageLimit *int
	if opts != nil {
		if opts.ImageLimit > 0 {
			imageLimit = &opts.ImageLimit
		}
		if opts.PageLimit > 0 {
			pageLimit = &opts.PageLimit
		}
	}
	return ProviderArtifact{
		Provider:      "mock",
		Model:         result.Model,
		Timestamp:     m.now(),
		CorrelationID: result.CorrelationID,
		RequestMetadata: RequestMetadata{
			DocumentType: "job-sheet",
			PageLimit:    pageLimit,
			ImageLimit:   imageLimit,
		},
		ResponseMetadata: ResponseMetadata{
			StatusCode:       statusCode,
			ProcessingTimeMs: result.ProcessingTimeMs,
			PagesProcessed:   result.TotalPages,
		},
	}
}

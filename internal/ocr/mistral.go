package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	ferrors "github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/errors"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/dlq"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/resiliency"
)

// MistralProvider calls a Mistral-shaped OCR HTTP endpoint, guarded by the
// shared resiliency substrate.
type MistralProvider struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Breaker    *resiliency.Breaker
	RetryOpts  resiliency.RetryOptions
	DLQ        *dlq.Queue
	now        func() time.Time
}

// NewMistralProvider constructs a provider against baseURL, with a
// singleton breaker and default retry options unless overridden.
func NewMistralProvider(baseURL, apiKey string, breaker *resiliency.Breaker, q *dlq.Queue) *MistralProvider {
	return &MistralProvider{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Breaker:    breaker,
		RetryOpts:  resiliency.DefaultRetryOptions(),
		DLQ:        q,
		now:        time.Now,
	}
}

type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("ocr provider returned %d: %s", e.status, e.body)
}

func (e *httpStatusError) Code() string {
	return fmt.Sprintf("%d", e.status)
}

func (p *MistralProvider) ExtractFromURL(ctx context.Context, url string, opts Options) (Result, error) {
	payload := map[string]any{
		"documentUrl":           url,
		"includeImageLocations": opts.IncludeImageLocations,
	}
	return p.extract(ctx, payload, opts)
}

func (p *MistralProvider) ExtractFromBase64(ctx context.Context, data, mime string, opts Options) (Result, error) {
	payload := map[string]any{
		"documentBase64":        data,
		"mimeType":              mime,
		"includeImageLocations": opts.IncludeImageLocations,
	}
	return p.extract(ctx, payload, opts)
}

// extract runs the HTTP round trip through the resiliency substrate,
// enforcing the adapter contract: 5xx/429 retry, 4xx surfaces as
// HTTP_<status> without retry, open breaker dead-letters and returns
// CIRCUIT_BREAKER_OPEN.
func (p *MistralProvider) extract(ctx context.Context, payload map[string]any, opts Options) (Result, error) {
	var nonRetryableResult *Result
	retryOpts := p.RetryOpts
	if opts.SkipRetry {
		retryOpts.MaxRetries = 0
	}

	err := resiliency.WithResiliency(ctx, p.Breaker, retryOpts, func(ctx context.Context) error {
		body, status, respErr := p.doRequest(ctx, payload)
		if respErr != nil {
			return respErr
		}
		if status == 429 || status >= 500 {
			return &httpStatusError{status: status, body: string(body)}
		}
		if status >= 400 {
			r := Result{Success: false, ErrorCode: fmt.Sprintf("HTTP_%d", status), Error: string(body)}
			nonRetryableResult = &r
			return nil
		}
		parsed, parseErr := p.parseResponse(body)
		if parseErr != nil {
			nonRetryableResult = &Result{Success: false, ErrorCode: "INVALID_JSON", Error: parseErr.Error()}
			return nil
		}
		nonRetryableResult = &parsed
		return nil
	})

	if err != nil {
		if openErr, ok := err.(*resiliency.CircuitBreakerOpenError); ok {
			if opts.JobSheetID != "" && p.DLQ != nil {
				p.DLQ.Add("ocr", opts.JobSheetID, openErr.Error())
			}
			return Result{Success: false, ErrorCode: "CIRCUIT_BREAKER_OPEN", Error: openErr.Error()}, nil
		}
		return Result{}, ferrors.FailedToWithDetails("extract document", "ocr", opts.JobSheetID, err)
	}

	res := *nonRetryableResult
	if opts.RedactPII && res.Success {
		res.Pages = redactPages(res.Pages)
	}
	res.TotalPages = len(res.Pages)
	return res, nil
}

func (p *MistralProvider) doRequest(ctx context.Context, payload map[string]any) ([]byte, int, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/ocr", bytes.NewReader(buf))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// parseResponse defensively pulls fields out of the provider's JSON body
// using gjson, so extra/missing keys in a provider response revision never
// panic a strict struct unmarshal.
func (p *MistralProvider) parseResponse(body []byte) (Result, error) {
	if len(body) == 0 {
		return Result{}, fmt.Errorf("empty response body")
	}
	root := gjson.ParseBytes(body)
	if !root.Get("pages").Exists() {
		return Result{}, fmt.Errorf("response missing pages field")
	}

	var pages []Page
	for _, pageResult := range root.Get("pages").Array() {
		pages = append(pages, Page{
			PageNumber: int(pageResult.Get("pageNumber").Int()),
			Markdown:   pageResult.Get("markdown").String(),
		})
	}

	return Result{
		Success:    true,
		Pages:      pages,
		TotalPages: len(pages),
		Model:      root.Get("model").String(),
	}, nil
}

func (p *MistralProvider) ValidateAPIKey(ctx context.Context) (KeyValidation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/v1/validate", nil)
	if err != nil {
		return KeyValidation{}, err
	}
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return KeyValidation{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return KeyValidation{Valid: true}, nil
	}
	return KeyValidation{Valid: false, Error: fmt.Sprintf("HTTP_%d", resp.StatusCode)}, nil
}

func (p *MistralProvider) GetProviderArtifact(result Result, opts *Options) ProviderArtifact {
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
		Provider:      "mistral",
		Model:         result.Model,
		Timestamp:     p.now(),
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

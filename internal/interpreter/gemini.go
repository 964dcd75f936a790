package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// geminiSchemaResponse is the JSON shape the schema-constrained call to
// Gemini is required to return.
type geminiSchemaResponse struct {
	Insights []audit.Insight `json:"insights"`
	Summary  string          `json:"summary"`
}

// GeminiProvider calls the Gemini API via google/generative-ai-go, asking
// for a JSON-schema-constrained response so parsing never has to guess at
// free-form prose.
type GeminiProvider struct {
	ModelName         string
	APIKey            string
	ProcessEnabledRaw bool
	now               func() time.Time
}

// NewGeminiProvider constructs a GeminiProvider for modelName (e.g.
// "gemini-1.5-pro").
func NewGeminiProvider(apiKey, modelName string) *GeminiProvider {
	return &GeminiProvider{ModelName: modelName, APIKey: apiKey, now: time.Now}
}

func (g *GeminiProvider) Interpret(ctx context.Context, input Input, opts Options) (Result, error) {
	upstreamInput := buildUpstreamInput(input, opts, g.ProcessEnabledRaw)

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return Result{}, fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.ModelName)
	model.ResponseMIMEType = "application/json"

	prompt, err := buildPrompt(upstreamInput)
	if err != nil {
		return Result{}, fmt.Errorf("gemini prompt: %w", err)
	}

	start := g.now()
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return Result{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{ErrorCode: "EMPTY_RESPONSE", Error: "gemini returned no candidates"}, nil
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Result{ErrorCode: "EMPTY_RESPONSE", Error: "gemini returned a non-text part"}, nil
	}

	var parsed geminiSchemaResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return Result{ErrorCode: "INVALID_JSON", Error: err.Error()}, nil
	}

	insights := filterAndClampInsights(parsed.Insights, opts)
	return Result{
		Insights:     insights,
		Summary:      parsed.Summary,
		Model:        g.ModelName,
		ProcessingMs: g.now().Sub(start).Milliseconds(),
	}, nil
}

func (g *GeminiProvider) ValidateAPIKey(ctx context.Context) (KeyValidation, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.APIKey))
	if err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}, nil
	}
	defer client.Close()

	model := client.GenerativeModel(g.ModelName)
	if _, err := model.GenerateContent(ctx, genai.Text("ping")); err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}, nil
	}
	return KeyValidation{Valid: true}, nil
}

func (g *GeminiProvider) GenerateArtifact(result Result, correlationID string, inputArtifacts []string) audit.InsightsArtifact {
	return genericArtifact("gemini", g.ModelName, result, correlationID, inputArtifacts, g.now())
}

// buildPrompt renders the canonical-only input into the prompt sent
// upstream; rawOcrText is included only when buildUpstreamInput already let
// it through.
func buildPrompt(input Input) (string, error) {
	payload := map[string]any{
		"extractedFields": input.ExtractedFields,
	}
	if input.AuditReport != nil {
		payload["findings"] = input.AuditReport.Findings
		payload["validatedFields"] = input.AuditReport.ValidatedFields
	}
	if input.RawOCRText != "" {
		payload["rawOcrText"] = input.RawOCRText
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"You are auditing a maintenance job sheet. Given this canonical data, respond with JSON "+
			"matching {insights:[{title,detail,confidence,category}], summary}. Data: %s", string(b),
	), nil
}

package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// bedrockAnthropicRequest is the wire body Bedrock's InvokeModel expects for
// an Anthropic model, shaped with anthropic-sdk-go's message types so the
// JSON stays wire-compatible with the Anthropic Messages API even though the
// call itself goes through Bedrock, not Anthropic's own endpoint.
type bedrockAnthropicRequest struct {
	AnthropicVersion string                         `json:"anthropic_version"`
	MaxTokens        int                            `json:"max_tokens"`
	Messages         []anthropic.MessageParam       `json:"messages"`
}

type bedrockAnthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// bedrockSchemaResponse mirrors geminiSchemaResponse: the JSON object the
// prompt instructs the model to emit as its sole text block.
type bedrockSchemaResponse struct {
	Insights []audit.Insight `json:"insights"`
	Summary  string          `json:"summary"`
}

// BedrockProvider invokes an Anthropic model through AWS Bedrock Runtime.
type BedrockProvider struct {
	ModelID           string
	Region            string
	ProcessEnabledRaw bool
	now               func() time.Time
}

// NewBedrockProvider constructs a BedrockProvider for modelID (e.g.
// "anthropic.claude-3-5-sonnet-20241022-v2:0") in region.
func NewBedrockProvider(modelID, region string) *BedrockProvider {
	return &BedrockProvider{ModelID: modelID, Region: region, now: time.Now}
}

func (b *BedrockProvider) client(ctx context.Context) (*bedrockruntime.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(b.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock config: %w", err)
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

func (b *BedrockProvider) Interpret(ctx context.Context, input Input, opts Options) (Result, error) {
	upstreamInput := buildUpstreamInput(input, opts, b.ProcessEnabledRaw)

	prompt, err := buildPrompt(upstreamInput)
	if err != nil {
		return Result{}, fmt.Errorf("bedrock prompt: %w", err)
	}

	reqBody := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{}, err
	}

	cl, err := b.client(ctx)
	if err != nil {
		return Result{}, err
	}

	start := b.now()
	out, err := cl.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return Result{}, err
	}

	var resp bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return Result{ErrorCode: "INVALID_JSON", Error: err.Error()}, nil
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return Result{ErrorCode: "EMPTY_RESPONSE", Error: "bedrock returned no content"}, nil
	}

	var parsed bedrockSchemaResponse
	if err := json.Unmarshal([]byte(resp.Content[0].Text), &parsed); err != nil {
		return Result{ErrorCode: "INVALID_JSON", Error: err.Error()}, nil
	}

	insights := filterAndClampInsights(parsed.Insights, opts)
	return Result{
		Insights:     insights,
		Summary:      parsed.Summary,
		Model:        b.ModelID,
		ProcessingMs: b.now().Sub(start).Milliseconds(),
	}, nil
}

func (b *BedrockProvider) ValidateAPIKey(ctx context.Context) (KeyValidation, error) {
	cl, err := b.client(ctx)
	if err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}, nil
	}
	reqBody := bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        8,
		Messages:         []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock("ping"))},
	}
	payload, _ := json.Marshal(reqBody)
	_, err = cl.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.ModelID),
		ContentType: aws.String("application/json"),
		Body:        payload,
	})
	if err != nil {
		return KeyValidation{Valid: false, Error: err.Error()}, nil
	}
	return KeyValidation{Valid: true}, nil
}

func (b *BedrockProvider) GenerateArtifact(result Result, correlationID string, inputArtifacts []string) audit.InsightsArtifact {
	return genericArtifact("bedrock", b.ModelID, result, correlationID, inputArtifacts, b.now())
}

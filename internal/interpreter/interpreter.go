// Package interpreter implements the pluggable LLM interpreter adapter
// contract: advisory-only insight generation that never feeds
// the canonical AuditReport. Three providers are available — gemini,
// bedrock, and a deterministic mock — all behind the same Provider
// interface, selected once at process start via INTERPRETER_PROVIDER.
package interpreter

import (
	"context"
	"sort"
	"time"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// Input is the canonical-only view of a document's processing state that may
// be handed to an interpreter.
type Input struct {
	AuditReport    *AuditReportView
	ExtractedFields map[string]audit.ExtractedField
	RawOCRText     string
}

// AuditReportView is the subset of AuditReport an interpreter may see.
type AuditReportView struct {
	Findings         []audit.Finding
	ValidatedFields  map[string]audit.ExtractedField
}

// Options configures a single interpret call.
type Options struct {
	IncludeRawOCR bool
	MaxInsights   int
	MinConfidence float64
	SkipRetry     bool
}

// Result is the outcome of one interpret call.
type Result struct {
	Insights      []audit.Insight
	Summary       string
	Model         string
	ProcessingMs  int64
	ErrorCode     string
	Error         string
}

// KeyValidation is the result of validating a provider's API key.
type KeyValidation struct {
	Valid bool
	Error string
}

// Provider is the LLM interpreter adapter contract.
type Provider interface {
	Interpret(ctx context.Context, input Input, opts Options) (Result, error)
	ValidateAPIKey(ctx context.Context) (KeyValidation, error)
	GenerateArtifact(result Result, correlationID string, inputArtifacts []string) audit.InsightsArtifact
}

// AllowRawOCR reports whether rawOcrText may be sent upstream: both the
// per-call option AND the process-level flag must be set.
func AllowRawOCR(opts Options, processLevelEnabled bool) bool {
	return opts.IncludeRawOCR && processLevelEnabled
}

// buildUpstreamInput strips rawOcrText unless AllowRawOCR permits it,
// guaranteeing the adapter never forwards raw text without both gates open.
func buildUpstreamInput(input Input, opts Options, processLevelEnabled bool) Input {
	out := input
	if !AllowRawOCR(opts, processLevelEnabled) {
		out.RawOCRText = ""
	}
	return out
}

// filterAndClampInsights applies minConfidence filtering then clamps to
// maxInsights.
func filterAndClampInsights(insights []audit.Insight, opts Options) []audit.Insight {
	var filtered []audit.Insight
	for _, ins := range insights {
		if ins.Confidence >= opts.MinConfidence {
			filtered = append(filtered, ins)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Confidence > filtered[j].Confidence
	})
	if opts.MaxInsights > 0 && len(filtered) > opts.MaxInsights {
		filtered = filtered[:opts.MaxInsights]
	}
	return filtered
}

// genericArtifact builds the advisory InsightsArtifact shell shared by every
// provider; each provider supplies its own Model/Provider-specific metadata
// wiring via GenerateArtifact.
func genericArtifact(provider, model string, result Result, correlationID string, inputArtifacts []string, now time.Time) audit.InsightsArtifact {
	return audit.InsightsArtifact{
		Version:        "1.0.0",
		GeneratedAt:    now,
		CorrelationID:  correlationID,
		Model:          model,
		IsAdvisoryOnly: true,
		Insights:       result.Insights,
		Summary:        result.Summary,
		Metadata: audit.InsightsMetadata{
			ProcessingMs:   result.ProcessingMs,
			InputArtifacts: inputArtifacts,
		},
	}
}

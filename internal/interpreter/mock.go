package interpreter

import (
	"context"
	"time"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// MockProvider is a deterministic in-memory interpreter for tests and the
// insights-invariance property: swapping the interpreter on/off must never
// change the canonical AuditReport.
type MockProvider struct {
	Model            string
	Insights         []audit.Insight
	Summary          string
	ProcessEnabledRaw bool
	KeyValid         bool
	now              func() time.Time
}

// NewMockProvider returns a MockProvider with a small canned insight set.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Model: "mock-interpreter-v1",
		Insights: []audit.Insight{
			{Title: "Consistent technician notes", Detail: "Notes align with detected field values.", Confidence: 0.9, Category: "quality"},
		},
		Summary:  "Document appears internally consistent.",
		KeyValid: true,
		now:      time.Now,
	}
}

func (m *MockProvider) Interpret(ctx context.Context, input Input, opts Options) (Result, error) {
	_ = buildUpstreamInput(input, opts, m.ProcessEnabledRaw)
	insights := filterAndClampInsights(m.Insights, opts)
	return Result{
		Insights:     insights,
		Summary:      m.Summary,
		Model:        m.Model,
		ProcessingMs: 1,
	}, nil
}

func (m *MockProvider) ValidateAPIKey(ctx context.Context) (KeyValidation, error) {
	if m.KeyValid {
		return KeyValidation{Valid: true}, nil
	}
	return KeyValidation{Valid: false, Error: "invalid mock api key"}, nil
}

func (m *MockProvider) GenerateArtifact(result Result, correlationID string, inputArtifacts []string) audit.InsightsArtifact {
	return genericArtifact("mock", m.Model, result, correlationID, inputArtifacts, m.now())
}

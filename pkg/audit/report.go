package audit

import "time"

// OverallResult is the canonical outcome of an audit run.
type OverallResult string

const (
	ResultPass        OverallResult = "PASS"
	ResultFail        OverallResult = "FAIL"
	ResultReviewQueue OverallResult = "REVIEW_QUEUE"
)

// AuditReport is the canonical output of the analyzer. Its
// overallResult, score, and findings are never influenced by the advisory
// InsightsArtifact.
type AuditReport struct {
	OverallResult   OverallResult              `json:"overallResult"`
	Score           float64                    `json:"score"`
	Findings        []Finding                  `json:"findings"`
	ExtractedFields map[string]ExtractedField  `json:"extractedFields"`
	Summary         string                     `json:"summary"`
	ProcessingMs    int64                      `json:"processingMs"`
	Model           string                     `json:"model,omitempty"`
	CorrelationID   string                     `json:"correlationId"`
	RetryAttempts   int                        `json:"retryAttempts"`
	ErrorCode       string                     `json:"errorCode,omitempty"`
}

// Insight is one advisory observation produced by the LLM interpreter.
type Insight struct {
	Title      string  `json:"title"`
	Detail     string  `json:"detail"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category,omitempty"`
}

// InsightsMetadata carries provenance for an InsightsArtifact.
type InsightsMetadata struct {
	ProcessingMs   int64    `json:"processingMs"`
	InputArtifacts []string `json:"inputArtifacts,omitempty"`
}

// InsightsArtifact is the advisory-only output of the LLM interpreter.
// IsAdvisoryOnly is always true; nothing in this type is ever
// merged into AuditReport.
type InsightsArtifact struct {
	Version        string           `json:"version"`
	GeneratedAt    time.Time        `json:"generatedAt"`
	CorrelationID  string           `json:"correlationId"`
	Model          string           `json:"model"`
	IsAdvisoryOnly bool             `json:"isAdvisoryOnly"`
	Insights       []Insight        `json:"insights"`
	Summary        string           `json:"summary,omitempty"`
	Metadata       InsightsMetadata `json:"metadata"`
}

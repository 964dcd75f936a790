package audit

// FindingSeverity is a Finding's reported severity band (distinct from a
// Rule's declared Severity).
type FindingSeverity string

const (
	FindingS0 FindingSeverity = "S0"
	FindingS1 FindingSeverity = "S1"
	FindingS2 FindingSeverity = "S2"
	FindingS3 FindingSeverity = "S3"
)

// severityRank gives FindingSeverity its total order (S0 < S1 < S2 < S3) for
// deterministic sorting.
var severityRank = map[FindingSeverity]int{
	FindingS0: 0,
	FindingS1: 1,
	FindingS2: 2,
	FindingS3: 3,
}

// Rank returns this severity's sort weight, lowest first.
func (s FindingSeverity) Rank() int {
	return severityRank[s]
}

// ReasonCode is the canonical, closed enum of analyzer finding reasons.
type ReasonCode string

const (
	ReasonMissingField       ReasonCode = "MISSING_FIELD"
	ReasonUnreadableField    ReasonCode = "UNREADABLE_FIELD"
	ReasonLowConfidence      ReasonCode = "LOW_CONFIDENCE"
	ReasonInvalidFormat      ReasonCode = "INVALID_FORMAT"
	ReasonConflict           ReasonCode = "CONFLICT"
	ReasonOutOfPolicy        ReasonCode = "OUT_OF_POLICY"
	ReasonIncompleteEvidence ReasonCode = "INCOMPLETE_EVIDENCE"
	ReasonOCRFailure         ReasonCode = "OCR_FAILURE"
	ReasonPipelineError      ReasonCode = "PIPELINE_ERROR"
	ReasonSpecGap            ReasonCode = "SPEC_GAP"
	ReasonSecurityRisk       ReasonCode = "SECURITY_RISK"
)

// BoundingBox is an optional page-normalized rectangle locating a Finding's
// evidence.
type BoundingBox struct {
	Page int     `json:"page"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	W    float64 `json:"w"`
	H    float64 `json:"h"`
}

// Finding is one canonical validation result.
type Finding struct {
	RuleID            string          `json:"ruleId"`
	FieldName         string          `json:"fieldName"`
	Severity          FindingSeverity `json:"severity"`
	ReasonCode        ReasonCode      `json:"reasonCode"`
	RawSnippet        string          `json:"rawSnippet,omitempty"`
	NormalisedSnippet string          `json:"normalisedSnippet,omitempty"`
	Confidence        float64         `json:"confidence"`
	PageNumber        int             `json:"pageNumber,omitempty"`
	BoundingBox       *BoundingBox    `json:"boundingBox,omitempty"`
	WhyItMatters      string          `json:"whyItMatters,omitempty"`
	SuggestedFix      string          `json:"suggestedFix,omitempty"`
}

package audit

// ThresholdLevel selects how strict a CalibrationProfile is.
type ThresholdLevel string

const (
	ThresholdStrict   ThresholdLevel = "strict"
	ThresholdStandard ThresholdLevel = "standard"
	ThresholdLenient  ThresholdLevel = "lenient"
)

// CalibrationProfile is the threshold set a FieldCalibration is derived
// against. Values are monotonic strict > standard > lenient.
type CalibrationProfile struct {
	Level                      ThresholdLevel
	GlobalMinConfidence        float64
	CriticalFieldMinConfidence float64
	ReviewThreshold            float64
	RequireRoiForCriticalFields bool
}

// FieldCalibration is one field's calibration parameters, derived from its
// SpecJson declaration and the active CalibrationProfile.
type FieldCalibration struct {
	FieldID          string
	MinConfidence    float64
	ReviewThreshold  float64
	IsCritical       bool
	AllowedMethods   []ExtractionSource
	ValidationPattern string
	MaxRetries       int
}

// FieldDecision is the outcome of calibrating one ExtractedField.
type FieldDecision string

const (
	DecisionAccepted    FieldDecision = "accepted"
	DecisionNeedsReview FieldDecision = "needsReview"
	DecisionRejected    FieldDecision = "rejected"
)

// CalibratedField is one field's post-penalty calibration result.
type CalibratedField struct {
	FieldID          string
	RawConfidence    float64
	AdjustedConfidence float64
	Decision         FieldDecision
	Notes            []string
}

// QualityGrade is the letter grade on a QualityAssessment.
type QualityGrade string

const (
	GradeA QualityGrade = "A"
	GradeB QualityGrade = "B"
	GradeC QualityGrade = "C"
	GradeD QualityGrade = "D"
	GradeF QualityGrade = "F"
)

// QualityAssessment aggregates per-field calibration results.
type QualityAssessment struct {
	Score              float64
	Grade              QualityGrade
	Issues             []string
	AnomalyDetected    bool
	PassedQualityGates bool
	Recommendations    []string
}

// GuardrailSeverity is a guardrail's S0-S3 severity band.
type GuardrailSeverity string

const (
	GuardrailS0 GuardrailSeverity = "S0"
	GuardrailS1 GuardrailSeverity = "S1"
	GuardrailS2 GuardrailSeverity = "S2"
	GuardrailS3 GuardrailSeverity = "S3"
)

// StopBehavior is the deterministic action a guardrail severity maps to.
type StopBehavior string

const (
	StopImmediately StopBehavior = "STOP_IMMEDIATELY"
	StopReviewQueue StopBehavior = "REVIEW_QUEUE"
	StopContinueFlagged StopBehavior = "CONTINUE_FLAGGED"
	StopContinue    StopBehavior = "CONTINUE"
)

// GuardrailResult is one guardrail's evaluation outcome.
type GuardrailResult struct {
	ID       string
	Severity GuardrailSeverity
	Passed   bool
	Message  string
}

// GuardrailEvaluation is the folded result of every guardrail run against a
// calibration pass.
type GuardrailEvaluation struct {
	Results      []GuardrailResult
	ShouldStop   bool
	StopBehavior StopBehavior
	StopReasons  []string
}

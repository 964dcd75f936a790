package calibration

import (
	"sort"

	"go.uber.org/multierr"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// anomalyScoreThreshold bounds G004's anomaly score (currently sourced from
// QualityAssessment.AnomalyDetected, a boolean 0/1 signal; kept as a named
// threshold so a future continuous anomaly score can replace it without
// changing the guardrail's call site).
const anomalyScoreThreshold = 1.0

// severityStopBehavior is the total, constant severity→stop-behavior
// function.
var severityStopBehavior = map[audit.GuardrailSeverity]audit.StopBehavior{
	audit.GuardrailS0: audit.StopImmediately,
	audit.GuardrailS1: audit.StopReviewQueue,
	audit.GuardrailS2: audit.StopContinueFlagged,
	audit.GuardrailS3: audit.StopContinue,
}

var stopPrecedence = map[audit.StopBehavior]int{
	audit.StopImmediately:     3,
	audit.StopReviewQueue:     2,
	audit.StopContinueFlagged: 1,
	audit.StopContinue:        0,
}

// EvaluateGuardrails runs G001-G004 against the calibration results and
// folds them into a GuardrailEvaluation using multierr to accumulate every
// failure into one value before deriving the stop decision, rather than
// stopping at the first failing guardrail; the maximum-precedence stop
// behavior wins.
func EvaluateGuardrails(fields []audit.CalibratedField, fcs []audit.FieldCalibration, quality audit.QualityAssessment) audit.GuardrailEvaluation {
	var errs error
	results := []audit.GuardrailResult{
		gateG001AtLeastOneFieldExtracted(fields),
		gateG002CriticalFieldsMeetConfidence(fields, fcs),
		gateG003NoDuplicateExtractions(fields),
		gateG004AnomalyBelowThreshold(quality),
	}
	for _, r := range results {
		if !r.Passed {
			errs = multierr.Append(errs, guardrailFailure{r})
		}
	}

	eval := audit.GuardrailEvaluation{Results: results}
	worst := audit.StopContinue
	var reasons []string
	for _, err := range multierr.Errors(errs) {
		gf := err.(guardrailFailure)
		reasons = append(reasons, gf.result.ID)
		behavior := severityStopBehavior[gf.result.Severity]
		if stopPrecedence[behavior] > stopPrecedence[worst] {
			worst = behavior
		}
	}
	sort.Strings(reasons)

	eval.ShouldStop = len(reasons) > 0
	eval.StopBehavior = worst
	eval.StopReasons = reasons
	return eval
}

type guardrailFailure struct{ result audit.GuardrailResult }

func (f guardrailFailure) Error() string { return f.result.ID + ": " + f.result.Message }

func gateG001AtLeastOneFieldExtracted(fields []audit.CalibratedField) audit.GuardrailResult {
	passed := false
	for _, f := range fields {
		if f.Decision != audit.DecisionRejected {
			passed = true
			break
		}
	}
	return audit.GuardrailResult{ID: "G001", Severity: audit.GuardrailS0, Passed: passed, Message: "at least one field must be extracted"}
}

func gateG002CriticalFieldsMeetConfidence(fields []audit.CalibratedField, fcs []audit.FieldCalibration) audit.GuardrailResult {
	critical := make(map[string]audit.FieldCalibration)
	for _, fc := range fcs {
		if fc.IsCritical {
			critical[fc.FieldID] = fc
		}
	}
	byID := make(map[string]audit.CalibratedField, len(fields))
	for _, f := range fields {
		byID[f.FieldID] = f
	}
	for id, fc := range critical {
		f, ok := byID[id]
		if !ok || f.AdjustedConfidence < fc.MinConfidence {
			return audit.GuardrailResult{ID: "G002", Severity: audit.GuardrailS1, Passed: false, Message: "a critical field did not meet its minimum confidence"}
		}
	}
	return audit.GuardrailResult{ID: "G002", Severity: audit.GuardrailS1, Passed: true, Message: "all critical fields meet minimum confidence"}
}

func gateG003NoDuplicateExtractions(fields []audit.CalibratedField) audit.GuardrailResult {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.FieldID] {
			return audit.GuardrailResult{ID: "G003", Severity: audit.GuardrailS2, Passed: false, Message: "duplicate extraction for field " + f.FieldID}
		}
		seen[f.FieldID] = true
	}
	return audit.GuardrailResult{ID: "G003", Severity: audit.GuardrailS2, Passed: true, Message: "no duplicate extractions"}
}

func gateG004AnomalyBelowThreshold(quality audit.QualityAssessment) audit.GuardrailResult {
	score := 0.0
	if quality.AnomalyDetected {
		score = 1.0
	}
	return audit.GuardrailResult{
		ID: "G004", Severity: audit.GuardrailS2,
		Passed:  score < anomalyScoreThreshold,
		Message: "anomaly score below threshold",
	}
}

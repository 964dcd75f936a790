package calibration

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// Penalty weights. Named constants rather than profile fields: each is tied
// to the penalty kind, not the threshold level.
const (
	penaltyAlphaDisallowedSource = 0.15
	penaltyBetaPatternMismatch   = 0.20
	penaltyGammaCriticalNoROI    = 0.25
)

// CalibrateField applies the three penalties to one ExtractedField and
// decides accepted/needsReview/rejected.
func CalibrateField(field audit.ExtractedField, fc audit.FieldCalibration, fieldType audit.FieldType) audit.CalibratedField {
	adjusted := field.Confidence
	var notes []string

	if !allowedSource(fc.AllowedMethods, field.Source) {
		adjusted -= penaltyAlphaDisallowedSource
		notes = append(notes, fmt.Sprintf("source %s not in allowed methods", field.Source))
	}

	if fc.ValidationPattern != "" && !patternMatches(fc.ValidationPattern, field.Value, fieldType) {
		adjusted -= penaltyBetaPatternMismatch
		notes = append(notes, "value fails validation pattern")
	}

	if fc.IsCritical && field.ROIMatch != nil && !*field.ROIMatch {
		adjusted -= penaltyGammaCriticalNoROI
		notes = append(notes, "critical field has no ROI match")
	}

	if adjusted < 0 {
		adjusted = 0
	}

	decision := audit.DecisionRejected
	switch {
	case adjusted >= fc.MinConfidence:
		decision = audit.DecisionAccepted
	case adjusted >= fc.ReviewThreshold:
		decision = audit.DecisionNeedsReview
	}

	return audit.CalibratedField{
		FieldID:            field.FieldID,
		RawConfidence:       field.Confidence,
		AdjustedConfidence: adjusted,
		Decision:           decision,
		Notes:              notes,
	}
}

func allowedSource(allowed []audit.ExtractionSource, source audit.ExtractionSource) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == source {
			return true
		}
	}
	return false
}

// patternMatches validates value against pattern. For currency fields, a
// regex alone can't tell a malformed amount from a valid one with unusual
// grouping, so a currency field additionally requires the value to parse as
// a decimal.Decimal — catching "12.34.56" or "abc" that a loose regex would
// pass.
func patternMatches(pattern, value string, fieldType audit.FieldType) bool {
	if fieldType == audit.FieldTypeCurrency {
		if _, err := decimal.NewFromString(value); err != nil {
			return false
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

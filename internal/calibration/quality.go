package calibration

import (
	"fmt"
	"sort"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// anomalyThreshold is the fraction of rejected fields above which the
// document is flagged as anomalous (too many rejections to be a merely
// sloppy scan — more likely the wrong template or a corrupted capture).
const anomalyThreshold = 0.5

// AssessQuality aggregates per-field CalibratedFields into a
// QualityAssessment.
func AssessQuality(fields []audit.CalibratedField, fcs []audit.FieldCalibration) audit.QualityAssessment {
	criticalByID := make(map[string]bool, len(fcs))
	for _, fc := range fcs {
		if fc.IsCritical {
			criticalByID[fc.FieldID] = true
		}
	}

	var accepted, needsReview, rejected int
	var issues []string
	missingCritical := make(map[string]bool, len(criticalByID))
	for id := range criticalByID {
		missingCritical[id] = true
	}

	for _, f := range fields {
		delete(missingCritical, f.FieldID)
		switch f.Decision {
		case audit.DecisionAccepted:
			accepted++
		case audit.DecisionNeedsReview:
			needsReview++
			issues = append(issues, fmt.Sprintf("field %q needs review: %v", f.FieldID, f.Notes))
		case audit.DecisionRejected:
			rejected++
			issues = append(issues, fmt.Sprintf("field %q rejected: %v", f.FieldID, f.Notes))
		}
	}
	missing := make([]string, 0, len(missingCritical))
	for id := range missingCritical {
		missing = append(missing, id)
	}
	sort.Strings(missing)
	for _, id := range missing {
		issues = append(issues, fmt.Sprintf("critical field %q was not extracted", id))
	}

	total := len(fields)
	score := 100.0
	if total > 0 {
		score = 100.0 * float64(accepted) / float64(total)
	}

	anomalyDetected := total > 0 && float64(rejected)/float64(total) > anomalyThreshold

	return audit.QualityAssessment{
		Score:              score,
		Grade:              gradeFor(score),
		Issues:             issues,
		AnomalyDetected:    anomalyDetected,
		PassedQualityGates: len(missingCritical) == 0,
		Recommendations:    recommendationsFor(needsReview, rejected, len(missingCritical) > 0),
	}
}

func gradeFor(score float64) audit.QualityGrade {
	switch {
	case score >= 90:
		return audit.GradeA
	case score >= 80:
		return audit.GradeB
	case score >= 70:
		return audit.GradeC
	case score >= 60:
		return audit.GradeD
	default:
		return audit.GradeF
	}
}

func recommendationsFor(needsReview, rejected int, missingCritical bool) []string {
	var out []string
	if missingCritical {
		out = append(out, "re-scan the document: a critical field was not extracted at all")
	}
	if rejected > 0 {
		out = append(out, "manually verify rejected fields before approving this job sheet")
	}
	if needsReview > 0 {
		out = append(out, "route to human review for fields below the confidence threshold")
	}
	return out
}

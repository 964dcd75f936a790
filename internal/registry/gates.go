package registry

import (
	"fmt"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// criticalGateFields is gate 2's exact field list and also gate 6's
// critical-ROI field set. It is a distinct, narrower list than
// internal/calibration's own ALWAYS_CRITICAL set, which covers
// a conceptually different "always critical for scoring" concern and is not
// required to match this one field-for-field.
var criticalGateFields = map[string]bool{
	"jobReference":    true,
	"assetId":         true,
	"date":            true,
	"engineerSignOff": true,
}

// criticalGateFieldIDs is criticalGateFields in a fixed order, so gate
// violations and ROI-presence lists on an ActivationReport are stable
// across runs.
var criticalGateFieldIDs = []string{"assetId", "date", "engineerSignOff", "jobReference"}

// minSelectionTokens is the floor on a version's combined required/optional
// token vocabulary below which selection would be too ambiguous to trust.
const minSelectionTokens = 1

// EvaluateGates runs the seven activation gates against a candidate
// TemplateVersion and its bound fixture pack. It does not read
// or write the Store; callers assemble inputs and persist the resulting
// ActivationReport.
func EvaluateGates(v audit.TemplateVersion, pack *audit.FixturePack, allowedMissingROIs []string) audit.ActivationReport {
	var violations []audit.GateViolation

	selSummary := evaluateSelectionConfig(v, &violations)
	evaluateCriticalFields(v, &violations)
	evaluateAtLeastOneRule(v, &violations)

	var fixSummary audit.FixtureSummary
	if pack == nil {
		violations = append(violations, audit.GateViolation{
			Gate:    audit.GateFixturePackExists,
			Message: "no fixture pack is bound to this template version",
			FixPath: "registry.fixturePacks[" + v.VersionID + "]",
		})
	} else {
		result := RunFixturePack(v.Spec, *pack)
		fixSummary = audit.FixtureSummary{
			Total: result.Total, Passed: result.PassedCount,
			Failed: result.FailedCount, RequiredFailed: result.RequiredFailed,
		}
		if !result.Passed {
			violations = append(violations, audit.GateViolation{
				Gate:    audit.GateFixturePackPasses,
				Message: fmt.Sprintf("%d required fixture case(s) failed", result.RequiredFailed),
				FixPath: "registry.fixturePacks[" + v.VersionID + "].cases",
			})
		}
	}

	roiPresence := evaluateCriticalROIs(v, allowedMissingROIs, &violations)

	return audit.ActivationReport{
		TemplateID:       v.TemplateID,
		VersionID:        v.VersionID,
		Passed:           len(violations) == 0,
		Violations:       violations,
		FixtureSummary:   fixSummary,
		ROIPresence:      roiPresence,
		SelectionSummary: selSummary,
	}
}

func evaluateSelectionConfig(v audit.TemplateVersion, violations *[]audit.GateViolation) audit.SelectionSummary {
	s := v.Selection
	tokenCount := len(s.RequiredTokensAll) + len(s.RequiredTokensAny) + len(s.OptionalTokens)
	summary := audit.SelectionSummary{
		HasRequiredTokens: len(s.RequiredTokensAll) > 0 || len(s.RequiredTokensAny) > 0,
		HasFormCodeRegex:  s.FormCodeRegex != "",
		TokenCount:        tokenCount,
	}
	if tokenCount == 0 {
		*violations = append(*violations, audit.GateViolation{
			Gate:    audit.GateSelectionConfigNonEmpty,
			Message: "selection config declares no tokens of any kind",
			FixPath: "spec.selection",
		})
	}
	if tokenCount < minSelectionTokens {
		*violations = append(*violations, audit.GateViolation{
			Gate:    audit.GateMinSelectionTokens,
			Message: fmt.Sprintf("selection config has %d tokens, need at least %d", tokenCount, minSelectionTokens),
			FixPath: "spec.selection",
		})
	}
	return summary
}

func evaluateCriticalFields(v audit.TemplateVersion, violations *[]audit.GateViolation) {
	for _, id := range criticalGateFieldIDs {
		if _, ok := v.Spec.FieldByID(id); !ok {
			*violations = append(*violations, audit.GateViolation{
				Gate:    audit.GateCriticalFieldsPresent,
				Message: fmt.Sprintf("critical field %q is not declared in spec.fields", id),
				FixPath: "spec.fields",
			})
		}
	}
}

func evaluateAtLeastOneRule(v audit.TemplateVersion, violations *[]audit.GateViolation) {
	enabled := 0
	for _, r := range v.Spec.Rules {
		if r.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		*violations = append(*violations, audit.GateViolation{
			Gate:    audit.GateAtLeastOneRule,
			Message: "spec declares no enabled rules",
			FixPath: "spec.rules",
		})
	}
}

func evaluateCriticalROIs(v audit.TemplateVersion, allowedMissing []string, violations *[]audit.GateViolation) audit.ROIPresence {
	allowed := make(map[string]bool, len(allowedMissing))
	for _, id := range allowedMissing {
		allowed[id] = true
	}

	hasROI := make(map[string]bool)
	if v.ROI != nil {
		for field, regions := range v.ROI.Regions {
			if len(regions) > 0 {
				hasROI[field] = true
			}
		}
	}

	presence := audit.ROIPresence{}
	for _, id := range criticalGateFieldIDs {
		switch {
		case hasROI[id]:
			presence.Present = append(presence.Present, id)
		case allowed[id]:
			presence.AllowedMissing = append(presence.AllowedMissing, id)
		default:
			presence.Missing = append(presence.Missing, id)
			*violations = append(*violations, audit.GateViolation{
				Gate:    audit.GateCriticalROIsPresent,
				Message: fmt.Sprintf("critical field %q has no ROI region and is not in allowedMissingRois", id),
				FixPath: "spec.roi.regions." + id,
			})
		}
	}
	return presence
}

// Package calibration implements field calibration, quality assessment, and
// guardrail evaluation.
package calibration

import "github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"

// alwaysCritical is unioned into every profile's critical-field set
// regardless of what the template's own rules mark critical. It is
// deliberately not identical to the registry's activation-gate
// critical-field list (internal/registry's criticalGateFields) — the two
// cover different concerns
// (always-critical-for-scoring vs. required-to-exist-before-activation)
// and the two packages must not import each other (registry is upstream of
// calibration in the pipeline).
var alwaysCritical = map[string]bool{
	"engineerSignOff": true,
	"serialNumber":    true,
	"jobReference":    true,
	"date":            true,
}

// Profiles holds the three built-in threshold levels. Values are monotonic:
// strict is hardest to satisfy, lenient is easiest.
var Profiles = map[audit.ThresholdLevel]audit.CalibrationProfile{
	audit.ThresholdStrict: {
		Level: audit.ThresholdStrict, GlobalMinConfidence: 0.85,
		CriticalFieldMinConfidence: 0.92, ReviewThreshold: 0.70,
		RequireRoiForCriticalFields: true,
	},
	audit.ThresholdStandard: {
		Level: audit.ThresholdStandard, GlobalMinConfidence: 0.70,
		CriticalFieldMinConfidence: 0.80, ReviewThreshold: 0.55,
		RequireRoiForCriticalFields: false,
	},
	audit.ThresholdLenient: {
		Level: audit.ThresholdLenient, GlobalMinConfidence: 0.55,
		CriticalFieldMinConfidence: 0.65, ReviewThreshold: 0.40,
		RequireRoiForCriticalFields: false,
	},
}

// DeriveFieldCalibrations builds one FieldCalibration per declared field,
// applying profile and unioning in the ALWAYS_CRITICAL set.
func DeriveFieldCalibrations(spec audit.SpecJson, profile audit.CalibrationProfile) []audit.FieldCalibration {
	out := make([]audit.FieldCalibration, 0, len(spec.Fields))
	for _, f := range spec.Fields {
		critical := f.Required || alwaysCritical[f.ID]

		fc := audit.FieldCalibration{
			FieldID:        f.ID,
			IsCritical:     critical,
			AllowedMethods: []audit.ExtractionSource{audit.SourceOCR, audit.SourceRegex, audit.SourceInference, audit.SourceImageQA},
			MaxRetries:     2,
		}
		if critical {
			fc.MinConfidence = profile.CriticalFieldMinConfidence
		} else {
			fc.MinConfidence = profile.GlobalMinConfidence
		}
		fc.ReviewThreshold = profile.ReviewThreshold

		for _, r := range spec.Rules {
			if r.Field == f.ID && r.Type == audit.RuleTypePattern && r.Enabled {
				fc.ValidationPattern = r.Pattern
			}
		}

		out = append(out, fc)
	}
	return out
}

// CalibrationByField indexes a FieldCalibration slice by field id.
func CalibrationByField(fcs []audit.FieldCalibration) map[string]audit.FieldCalibration {
	m := make(map[string]audit.FieldCalibration, len(fcs))
	for _, fc := range fcs {
		m[fc.FieldID] = fc
	}
	return m
}

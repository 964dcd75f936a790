package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

func TestProfiles_AreMonotonicStrictToLenient(t *testing.T) {
	strict := Profiles[audit.ThresholdStrict]
	standard := Profiles[audit.ThresholdStandard]
	lenient := Profiles[audit.ThresholdLenient]

	assert.Greater(t, strict.GlobalMinConfidence, standard.GlobalMinConfidence)
	assert.Greater(t, standard.GlobalMinConfidence, lenient.GlobalMinConfidence)
	assert.Greater(t, strict.CriticalFieldMinConfidence, standard.CriticalFieldMinConfidence)
	assert.Greater(t, standard.CriticalFieldMinConfidence, lenient.CriticalFieldMinConfidence)
	assert.True(t, strict.RequireRoiForCriticalFields)
	assert.False(t, standard.RequireRoiForCriticalFields)
}

func TestDeriveFieldCalibrations_RequiredFieldIsCriticalWithHigherMin(t *testing.T) {
	spec := audit.SpecJson{Fields: []audit.Field{
		{ID: "technician", Required: true},
		{ID: "notes", Required: false},
	}}
	fcs := DeriveFieldCalibrations(spec, Profiles[audit.ThresholdStandard])
	byID := CalibrationByField(fcs)

	assert.True(t, byID["technician"].IsCritical)
	assert.False(t, byID["notes"].IsCritical)
	assert.Greater(t, byID["technician"].MinConfidence, byID["notes"].MinConfidence)
}

func TestDeriveFieldCalibrations_AlwaysCriticalUnionedEvenIfNotRequired(t *testing.T) {
	spec := audit.SpecJson{Fields: []audit.Field{{ID: "serialNumber", Required: false}}}
	fcs := DeriveFieldCalibrations(spec, Profiles[audit.ThresholdStandard])
	assert.True(t, fcs[0].IsCritical)
}

func TestDeriveFieldCalibrations_PullsValidationPatternFromEnabledRule(t *testing.T) {
	spec := audit.SpecJson{
		Fields: []audit.Field{{ID: "timeIn"}},
		Rules: []audit.Rule{
			{Field: "timeIn", Type: audit.RuleTypePattern, Pattern: `^\d{2}:\d{2}$`, Enabled: true},
		},
	}
	fcs := DeriveFieldCalibrations(spec, Profiles[audit.ThresholdStandard])
	assert.Equal(t, `^\d{2}:\d{2}$`, fcs[0].ValidationPattern)
}

func TestDeriveFieldCalibrations_IgnoresDisabledRulePattern(t *testing.T) {
	spec := audit.SpecJson{
		Fields: []audit.Field{{ID: "timeIn"}},
		Rules: []audit.Rule{
			{Field: "timeIn", Type: audit.RuleTypePattern, Pattern: `^\d{2}:\d{2}$`, Enabled: false},
		},
	}
	fcs := DeriveFieldCalibrations(spec, Profiles[audit.ThresholdStandard])
	assert.Empty(t, fcs[0].ValidationPattern)
}

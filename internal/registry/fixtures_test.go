package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

func sampleSpec() audit.SpecJson {
	return audit.SpecJson{
		Fields: []audit.Field{
			{ID: "technician", Label: "Technician", Type: audit.FieldTypeString, Required: true},
			{ID: "serialNumber", Label: "Serial Number", Type: audit.FieldTypeString, Required: true, Aliases: []string{"serial no"}},
		},
	}
}

func TestRunFixturePack_PassesWhenFieldsPresent(t *testing.T) {
	spec := sampleSpec()
	pack := audit.FixturePack{Cases: []audit.FixtureCase{
		{
			CaseID:          "c1",
			InputText:       "Technician: Jane Doe. Serial No: SN-12345-AB. Work performed on site as scheduled today.",
			ExpectedOutcome: audit.ExpectedPass,
			Required:        true,
		},
	}}
	result := RunFixturePack(spec, pack)
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.RequiredFailed)
}

func TestRunFixturePack_MissingRequiredFieldPredictsReviewQueue(t *testing.T) {
	spec := sampleSpec()
	pack := audit.FixturePack{Cases: []audit.FixtureCase{
		{
			CaseID:              "c2",
			InputText:           "Technician: Jane Doe. No serial information recorded anywhere in this long document body.",
			ExpectedOutcome:     audit.ExpectedReviewQueue,
			ExpectedReasonCodes: []string{"MISSING_FIELD"},
			Required:            true,
		},
	}}
	result := RunFixturePack(spec, pack)
	assert.True(t, result.Passed)
}

func TestRunFixturePack_ShortTextPredictsFail(t *testing.T) {
	spec := sampleSpec()
	pack := audit.FixturePack{Cases: []audit.FixtureCase{
		{CaseID: "c3", InputText: "short", ExpectedOutcome: audit.ExpectedFail, Required: true},
	}}
	result := RunFixturePack(spec, pack)
	assert.True(t, result.Passed)
	assert.Equal(t, audit.ExpectedFail, result.Cases[0].PredictedOutcome)
}

func TestRunFixturePack_RequiredFailureCountsTowardOverallFail(t *testing.T) {
	spec := sampleSpec()
	pack := audit.FixturePack{Cases: []audit.FixtureCase{
		{CaseID: "c4", InputText: "short", ExpectedOutcome: audit.ExpectedPass, Required: true},
	}}
	result := RunFixturePack(spec, pack)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.RequiredFailed)
}

func TestRunFixturePack_NonRequiredFailureDoesNotFailPack(t *testing.T) {
	spec := sampleSpec()
	pack := audit.FixturePack{Cases: []audit.FixtureCase{
		{CaseID: "c5", InputText: "short", ExpectedOutcome: audit.ExpectedPass, Required: false},
	}}
	result := RunFixturePack(spec, pack)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.FailedCount)
}

func TestHashFixturePack_DeterministicRegardlessOfOrder(t *testing.T) {
	a := []audit.FixtureCase{{CaseID: "b"}, {CaseID: "a"}}
	b := []audit.FixtureCase{{CaseID: "a"}, {CaseID: "b"}}
	ha, err := HashFixturePack(a)
	assert.NoError(t, err)
	hb, err := HashFixturePack(b)
	assert.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestHashFixturePack_DiffersOnContentChange(t *testing.T) {
	a := []audit.FixtureCase{{CaseID: "a", InputText: "x"}}
	b := []audit.FixtureCase{{CaseID: "a", InputText: "y"}}
	ha, _ := HashFixturePack(a)
	hb, _ := HashFixturePack(b)
	assert.NotEqual(t, ha, hb)
}

func TestNormalizeForMatch_LowercasesAndStripsPunctuation(t *testing.T) {
	assert.Equal(t, "serial no 12345", normalizeForMatch("Serial-No: #12345!"))
}

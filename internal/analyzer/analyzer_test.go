package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

const contentfulText = "Job No: JOB-123456\nSerial: SN-12345-AB\nDate: 01/01/2026\nTime In: 08:00\nTime Out: 09:00\nTechnician: J. Doe\nCustomer: ACME\nSignature: J.Doe"

func jobSheetSpec() audit.SpecJson {
	return audit.SpecJson{
		Fields: []audit.Field{
			{ID: "jobReference", Label: "Job No", Type: audit.FieldTypeString, Required: true},
			{ID: "serialNumber", Label: "Serial", Type: audit.FieldTypeString, Required: true},
			{ID: "technician", Label: "Technician", Type: audit.FieldTypeString, Required: true},
		},
		Rules: []audit.Rule{
			{RuleID: "R-001", Field: "jobReference", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true},
			{RuleID: "R-003", Field: "serialNumber", Type: audit.RuleTypePattern, Severity: audit.SeverityMajor, Pattern: `^SN-\d{5}-[A-Z]{2}$`, Enabled: true},
			{RuleID: "R-004", Field: "technician", Type: audit.RuleTypeRequired, Severity: audit.SeverityMajor, Enabled: true},
		},
	}
}

func allFieldsExtracted() map[string]audit.ExtractedField {
	return map[string]audit.ExtractedField{
		"jobReference": {FieldID: "jobReference", Value: "JOB-123456", Confidence: 0.9, Source: audit.SourceOCR, Extracted: true},
		"serialNumber": {FieldID: "serialNumber", Value: "SN-12345-AB", Confidence: 0.85, Source: audit.SourceRegex, Extracted: true},
		"technician":   {FieldID: "technician", Value: "J. Doe", Confidence: 0.8, Source: audit.SourceOCR, Extracted: true},
	}
}

func TestAnalyze_EmptyDocumentFailsWithOCRFailure(t *testing.T) {
	report := Analyze(Input{Spec: jobSheetSpec(), Text: "", ExtractedFields: map[string]audit.ExtractedField{}}, Options{})

	assert.Equal(t, audit.ResultFail, report.OverallResult)
	assert.Equal(t, 0.0, report.Score)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, audit.ReasonOCRFailure, report.Findings[0].ReasonCode)
	assert.Equal(t, audit.FindingS0, report.Findings[0].Severity)
}

func TestAnalyze_ShortDocumentFails(t *testing.T) {
	report := Analyze(Input{Spec: jobSheetSpec(), Text: "Job done.", ExtractedFields: map[string]audit.ExtractedField{}}, Options{})

	assert.Equal(t, audit.ResultFail, report.OverallResult)
	assert.Equal(t, 0.0, report.Score)
	reasons := make([]audit.ReasonCode, 0, len(report.Findings))
	for _, f := range report.Findings {
		reasons = append(reasons, f.ReasonCode)
	}
	assert.Contains(t, reasons, audit.ReasonOCRFailure)
}

func TestAnalyze_CleanDocumentPasses(t *testing.T) {
	report := Analyze(Input{Spec: jobSheetSpec(), Text: contentfulText, ExtractedFields: allFieldsExtracted()}, Options{})

	assert.Equal(t, audit.ResultPass, report.OverallResult)
	assert.Greater(t, report.Score, 0.0)
	assert.Empty(t, report.Findings)
}

func TestAnalyze_MissingFieldDoesNotFailLenientOutcome(t *testing.T) {
	extracted := allFieldsExtracted()
	delete(extracted, "technician")

	report := Analyze(Input{Spec: jobSheetSpec(), Text: contentfulText, ExtractedFields: extracted}, Options{})

	require.Len(t, report.Findings, 1)
	assert.Equal(t, audit.ReasonMissingField, report.Findings[0].ReasonCode)
	assert.Equal(t, "technician", report.Findings[0].FieldName)
	assert.Equal(t, audit.ResultPass, report.OverallResult)
}

func TestAnalyze_InvalidSerialFormatFails(t *testing.T) {
	extracted := allFieldsExtracted()
	ef := extracted["serialNumber"]
	ef.Value = "SN-12-AB"
	extracted["serialNumber"] = ef

	report := Analyze(Input{Spec: jobSheetSpec(), Text: contentfulText, ExtractedFields: extracted}, Options{})

	assert.Equal(t, audit.ResultFail, report.OverallResult)
	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, "R-003", finding.RuleID)
	assert.Equal(t, audit.FindingS1, finding.Severity)
	assert.Equal(t, audit.ReasonInvalidFormat, finding.ReasonCode)
	assert.Equal(t, "SN-12-AB", finding.RawSnippet)
}

func TestAnalyze_StrictModeCountsMissingFields(t *testing.T) {
	extracted := allFieldsExtracted()
	delete(extracted, "technician")

	report := Analyze(Input{Spec: jobSheetSpec(), Text: contentfulText, ExtractedFields: extracted}, Options{StrictMode: true})

	assert.Equal(t, audit.ResultFail, report.OverallResult)
}

// The canonical report must be identical no matter how often or in what
// process configuration Analyze runs: its signature admits no interpreter,
// so configuring one on the pipeline cannot change the output here.
func TestAnalyze_CanonicalReportIsDeterministic(t *testing.T) {
	input := Input{Spec: jobSheetSpec(), Text: contentfulText, ExtractedFields: allFieldsExtracted(), CorrelationID: "corr-fixed"}

	first := Analyze(input, Options{})
	second := Analyze(input, Options{})

	assert.Equal(t, first, second)
}

func TestSortFindings_SeverityThenReasonThenField(t *testing.T) {
	findings := []audit.Finding{
		{Severity: audit.FindingS2, ReasonCode: audit.ReasonLowConfidence, FieldName: "technician"},
		{Severity: audit.FindingS1, ReasonCode: audit.ReasonMissingField, FieldName: "serialNumber"},
		{Severity: audit.FindingS1, ReasonCode: audit.ReasonInvalidFormat, FieldName: "serialNumber"},
		{Severity: audit.FindingS0, ReasonCode: audit.ReasonMissingField, FieldName: "jobReference"},
		{Severity: audit.FindingS1, ReasonCode: audit.ReasonInvalidFormat, FieldName: "date"},
	}

	sortFindings(findings)

	assert.Equal(t, audit.FindingS0, findings[0].Severity)
	assert.Equal(t, audit.ReasonInvalidFormat, findings[1].ReasonCode)
	assert.Equal(t, "date", findings[1].FieldName)
	assert.Equal(t, "serialNumber", findings[2].FieldName)
	assert.Equal(t, audit.ReasonMissingField, findings[3].ReasonCode)
	assert.Equal(t, audit.FindingS2, findings[4].Severity)
}

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

func singleRuleSpec(rule audit.Rule) audit.SpecJson {
	return audit.SpecJson{
		Fields: []audit.Field{{ID: rule.Field, Label: "Label " + rule.Field, Type: audit.FieldTypeString}},
		Rules:  []audit.Rule{rule},
	}
}

func TestFindingsFromRules_RequiredFieldMissing(t *testing.T) {
	spec := singleRuleSpec(audit.Rule{RuleID: "R-001", Field: "jobReference", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true})

	findings := findingsFromRules(spec, map[string]audit.ExtractedField{})

	require.Len(t, findings, 1)
	assert.Equal(t, audit.ReasonMissingField, findings[0].ReasonCode)
	assert.Equal(t, audit.FindingS0, findings[0].Severity)
	assert.Equal(t, "jobReference", findings[0].FieldName)
}

func TestFindingsFromRules_PatternMismatch(t *testing.T) {
	spec := singleRuleSpec(audit.Rule{RuleID: "R-003", Field: "serialNumber", Type: audit.RuleTypePattern, Severity: audit.SeverityMajor, Pattern: `^SN-\d{5}-[A-Z]{2}$`, Enabled: true})
	extracted := map[string]audit.ExtractedField{
		"serialNumber": {FieldID: "serialNumber", Value: "SN-12-AB", Confidence: 0.9, Source: audit.SourceRegex, Extracted: true},
	}

	findings := findingsFromRules(spec, extracted)

	require.Len(t, findings, 1)
	assert.Equal(t, audit.ReasonInvalidFormat, findings[0].ReasonCode)
	assert.Equal(t, audit.FindingS1, findings[0].Severity)
	assert.Equal(t, "SN-12-AB", findings[0].RawSnippet)
}

func TestFindingsFromRules_PatternMatchProducesNoFinding(t *testing.T) {
	spec := singleRuleSpec(audit.Rule{RuleID: "R-003", Field: "serialNumber", Type: audit.RuleTypePattern, Severity: audit.SeverityMajor, Pattern: `^SN-\d{5}-[A-Z]{2}$`, Enabled: true})
	extracted := map[string]audit.ExtractedField{
		"serialNumber": {FieldID: "serialNumber", Value: "SN-12345-AB", Confidence: 0.9, Source: audit.SourceRegex, Extracted: true},
	}

	assert.Empty(t, findingsFromRules(spec, extracted))
}

func TestFindingsFromRules_RangeOutOfBounds(t *testing.T) {
	min, max := 0.0, 24.0
	spec := singleRuleSpec(audit.Rule{RuleID: "R-020", Field: "hoursWorked", Type: audit.RuleTypeRange, Severity: audit.SeverityMinor, Range: &audit.Range{Min: &min, Max: &max}, Enabled: true})
	extracted := map[string]audit.ExtractedField{
		"hoursWorked": {FieldID: "hoursWorked", Value: "36", Confidence: 0.9, Source: audit.SourceOCR, Extracted: true},
	}

	findings := findingsFromRules(spec, extracted)

	require.Len(t, findings, 1)
	assert.Equal(t, audit.ReasonInvalidFormat, findings[0].ReasonCode)
	assert.Equal(t, audit.FindingS2, findings[0].Severity)
}

func TestFindingsFromRules_LowConfidenceFlagged(t *testing.T) {
	spec := singleRuleSpec(audit.Rule{RuleID: "R-001", Field: "technician", Type: audit.RuleTypeRequired, Severity: audit.SeverityMajor, Enabled: true})
	extracted := map[string]audit.ExtractedField{
		"technician": {FieldID: "technician", Value: "J. Doe", Confidence: 0.3, Source: audit.SourceOCR, Extracted: true},
	}

	findings := findingsFromRules(spec, extracted)

	require.Len(t, findings, 1)
	assert.Equal(t, audit.ReasonLowConfidence, findings[0].ReasonCode)
	assert.Equal(t, audit.FindingS2, findings[0].Severity)
}

func TestFindingsFromRules_DisabledRuleSkipped(t *testing.T) {
	spec := singleRuleSpec(audit.Rule{RuleID: "R-001", Field: "jobReference", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: false})

	assert.Empty(t, findingsFromRules(spec, map[string]audit.ExtractedField{}))
}

func TestFindingsFromRules_UndeclaredFieldSkipped(t *testing.T) {
	spec := audit.SpecJson{
		Fields: []audit.Field{{ID: "jobReference", Label: "Job No", Type: audit.FieldTypeString}},
		Rules:  []audit.Rule{{RuleID: "R-099", Field: "ghostField", Type: audit.RuleTypeRequired, Severity: audit.SeverityCritical, Enabled: true}},
	}

	assert.Empty(t, findingsFromRules(spec, map[string]audit.ExtractedField{}))
}

func TestSeverityToFindingSeverity_TotalMapping(t *testing.T) {
	assert.Equal(t, audit.FindingS0, severityToFindingSeverity(audit.SeverityCritical))
	assert.Equal(t, audit.FindingS1, severityToFindingSeverity(audit.SeverityMajor))
	assert.Equal(t, audit.FindingS2, severityToFindingSeverity(audit.SeverityMinor))
	assert.Equal(t, audit.FindingS3, severityToFindingSeverity(audit.SeverityInfo))
}

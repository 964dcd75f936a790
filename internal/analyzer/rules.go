package analyzer

import (
	"regexp"
	"strconv"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// findingsFromRules runs every enabled rule against extracted field state:
// label-containment presence checks, plus an optional regex match, each
// producing findings with canonical reason codes.
func findingsFromRules(spec audit.SpecJson, extracted map[string]audit.ExtractedField) []audit.Finding {
	var findings []audit.Finding
	for _, rule := range spec.Rules {
		if !rule.Enabled {
			continue
		}
		field, declared := spec.FieldByID(rule.Field)
		if !declared {
			continue
		}

		ef, present := extracted[rule.Field]
		switch rule.Type {
		case audit.RuleTypeRequired:
			if !present || !ef.Extracted {
				findings = append(findings, missingFieldFinding(rule, field))
			}
		case audit.RuleTypePattern, audit.RuleTypeFormat:
			if present && ef.Extracted && rule.Pattern != "" {
				if re, err := regexp.Compile(rule.Pattern); err == nil && !re.MatchString(ef.Value) {
					findings = append(findings, invalidFormatFinding(rule, field, ef))
				}
			}
		case audit.RuleTypeRange:
			if present && ef.Extracted && rule.Range != nil {
				if f, ok := parseFloat(ef.Value); ok && outOfRange(f, rule.Range) {
					findings = append(findings, invalidFormatFinding(rule, field, ef))
				}
			}
		}

		if present && ef.Extracted && ef.Confidence > 0 && ef.Confidence < 0.5 {
			findings = append(findings, lowConfidenceFinding(rule, field, ef))
		}
	}
	return findings
}

func missingFieldFinding(rule audit.Rule, field audit.Field) audit.Finding {
	return audit.Finding{
		RuleID:       rule.RuleID,
		FieldName:    field.ID,
		Severity:     severityToFindingSeverity(rule.Severity),
		ReasonCode:   audit.ReasonMissingField,
		WhyItMatters: "required field " + field.Label + " was not found in the document",
	}
}

func invalidFormatFinding(rule audit.Rule, field audit.Field, ef audit.ExtractedField) audit.Finding {
	return audit.Finding{
		RuleID:            rule.RuleID,
		FieldName:         field.ID,
		Severity:          severityToFindingSeverity(rule.Severity),
		ReasonCode:        audit.ReasonInvalidFormat,
		RawSnippet:        ef.Value,
		WhyItMatters:      field.Label + " does not match the expected format",
		SuggestedFix:      "verify the original document and re-enter the value",
	}
}

func lowConfidenceFinding(rule audit.Rule, field audit.Field, ef audit.ExtractedField) audit.Finding {
	return audit.Finding{
		RuleID:       rule.RuleID,
		FieldName:    field.ID,
		Severity:     audit.FindingS2,
		ReasonCode:   audit.ReasonLowConfidence,
		Confidence:   ef.Confidence,
		WhyItMatters: field.Label + " was extracted with low confidence",
	}
}

func severityToFindingSeverity(s audit.Severity) audit.FindingSeverity {
	switch s {
	case audit.SeverityCritical:
		return audit.FindingS0
	case audit.SeverityMajor:
		return audit.FindingS1
	case audit.SeverityMinor:
		return audit.FindingS2
	default:
		return audit.FindingS3
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func outOfRange(v float64, r *audit.Range) bool {
	if r.Min != nil && v < *r.Min {
		return true
	}
	if r.Max != nil && v > *r.Max {
		return true
	}
	return false
}

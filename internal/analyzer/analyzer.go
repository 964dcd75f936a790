// Package analyzer implements the validator: given a SpecJson, the
// extracted document text, and the calibrated field state, it produces the
// canonical AuditReport. Analysis is fully deterministic — the advisory
// interpreter (internal/interpreter) is never consulted here, so the
// canonical report is identical whether or not an interpreter is
// configured.
package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/internal/redact"
	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// lenientMinLength and lenientMinWords gate the deliberately lenient
// PASS/FAIL split: a document below either floor is treated as an OCR
// failure rather than assessed.
const (
	lenientMinLength = 50
	lenientMinWords  = 10
)

// Options configures one Analyze call. The default (lenient) outcome never
// fails a document over findings that reflect extraction uncertainty
// (MISSING_FIELD, LOW_CONFIDENCE) — processing must not block just because
// the extractor missed a label. StrictMode counts those findings against
// the outcome too. RedactPII scrubs finding snippets before the report is
// returned.
type Options struct {
	StrictMode bool
	RedactPII  bool
}

// Input bundles everything the analyzer needs to produce an AuditReport.
type Input struct {
	Spec            audit.SpecJson
	Text            string
	ExtractedFields map[string]audit.ExtractedField
	CorrelationID   string
}

// Analyze evaluates every enabled rule against the extracted field state
// and folds the findings into the canonical AuditReport.
func Analyze(input Input, opts Options) audit.AuditReport {
	trimmed := strings.TrimSpace(input.Text)
	wordCount := len(strings.Fields(trimmed))

	if len(trimmed) == 0 {
		return audit.AuditReport{
			OverallResult:   audit.ResultFail,
			Score:           0,
			Findings:        []audit.Finding{{ReasonCode: audit.ReasonOCRFailure, Severity: audit.FindingS0, WhyItMatters: "no text was extracted from the document"}},
			ExtractedFields: input.ExtractedFields,
			Summary:         "document produced no extractable text",
			CorrelationID:   input.CorrelationID,
		}
	}

	findings := findingsFromRules(input.Spec, input.ExtractedFields)
	if opts.RedactPII {
		redactFindings(findings)
	}

	if len(trimmed) < lenientMinLength || wordCount < lenientMinWords {
		findings = append(findings, audit.Finding{ReasonCode: audit.ReasonOCRFailure, Severity: audit.FindingS0, WhyItMatters: "extracted text is too short to assess"})
		sortFindings(findings)
		return audit.AuditReport{
			OverallResult:   audit.ResultFail,
			Score:           0,
			Findings:        findings,
			ExtractedFields: input.ExtractedFields,
			Summary:         "extracted text is too short to assess",
			CorrelationID:   input.CorrelationID,
		}
	}

	sortFindings(findings)
	defects := documentDefects(findings, opts.StrictMode)

	detectedRatio := detectedFieldRatio(input.Spec, input.ExtractedFields)
	score := clampScore(60*detectedRatio + 40*lengthFactor(wordCount) - totalPenalty(defects))

	return audit.AuditReport{
		OverallResult:   overallResultFor(defects),
		Score:           score,
		Findings:        findings,
		ExtractedFields: input.ExtractedFields,
		Summary:         fmt.Sprintf("%d field(s) declared, %.0f%% detected", len(input.Spec.Fields), detectedRatio*100),
		CorrelationID:   input.CorrelationID,
	}
}

// documentDefects filters findings down to the ones that count against the
// overall outcome. In the lenient default, MISSING_FIELD and LOW_CONFIDENCE
// findings are excluded — they describe the extraction, not the document —
// while format/range violations on values actually read from the page are
// genuine document defects. StrictMode counts every finding.
func documentDefects(findings []audit.Finding, strict bool) []audit.Finding {
	if strict {
		return findings
	}
	var defects []audit.Finding
	for _, f := range findings {
		if f.ReasonCode == audit.ReasonMissingField || f.ReasonCode == audit.ReasonLowConfidence {
			continue
		}
		defects = append(defects, f)
	}
	return defects
}

func redactFindings(findings []audit.Finding) {
	for i := range findings {
		findings[i].RawSnippet = redact.Text(findings[i].RawSnippet)
		findings[i].NormalisedSnippet = redact.Text(findings[i].NormalisedSnippet)
	}
}

func detectedFieldRatio(spec audit.SpecJson, extracted map[string]audit.ExtractedField) float64 {
	if len(spec.Fields) == 0 {
		return 1
	}
	detected := 0
	for _, f := range spec.Fields {
		if ef, ok := extracted[f.ID]; ok && ef.Extracted {
			detected++
		}
	}
	return float64(detected) / float64(len(spec.Fields))
}

func lengthFactor(wordCount int) float64 {
	const saturationWords = 200
	if wordCount >= saturationWords {
		return 1
	}
	return float64(wordCount) / saturationWords
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func sortFindings(findings []audit.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		if findings[i].Severity.Rank() != findings[j].Severity.Rank() {
			return findings[i].Severity.Rank() < findings[j].Severity.Rank()
		}
		if findings[i].ReasonCode != findings[j].ReasonCode {
			return findings[i].ReasonCode < findings[j].ReasonCode
		}
		return findings[i].FieldName < findings[j].FieldName
	})
}

// overallResultFor derives the outcome from the defect list: any S0/S1
// defect fails the document, S2 defects route it to review, S3-only passes.
func overallResultFor(defects []audit.Finding) audit.OverallResult {
	overall := audit.ResultPass
	for _, f := range defects {
		switch f.Severity {
		case audit.FindingS0, audit.FindingS1:
			return audit.ResultFail
		case audit.FindingS2:
			overall = audit.ResultReviewQueue
		}
	}
	return overall
}

func totalPenalty(defects []audit.Finding) float64 {
	penalty := 0.0
	for _, f := range defects {
		switch f.Severity {
		case audit.FindingS0:
			penalty += 40
		case audit.FindingS1:
			penalty += 20
		case audit.FindingS2:
			penalty += 10
		case audit.FindingS3:
			penalty += 5
		}
	}
	return penalty
}

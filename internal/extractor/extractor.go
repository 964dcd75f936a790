// Package extractor turns OCR'd page text into per-field ExtractedFields,
// the stage between the Selector and the Calibrator. It is deliberately simple and regex/label
// driven, the same style as the registry's fixture-pack mock matcher
// (internal/registry/fixtures.go): label/alias containment over normalized
// text, plus an optional regex hint for fields that declare one.
package extractor

import (
	"regexp"
	"strings"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// labelSeparator splits "Label: value" or "Label - value" lines, the shape
// job-sheet forms use ("Job No: JOB-123456").
var labelSeparator = regexp.MustCompile(`[:\-]\s*`)

// Extract derives one ExtractedField per declared field in spec, using
// each field's ExtractionHints (treated as regexes, tried in order) and
// falling back to label/alias line-scanning. Fields that match neither
// come back with Extracted=false so calibration can flag them as missing.
func Extract(spec audit.SpecJson, text string) map[string]audit.ExtractedField {
	lines := strings.Split(text, "\n")
	out := make(map[string]audit.ExtractedField, len(spec.Fields))

	for _, f := range spec.Fields {
		if ef, ok := extractByHint(f, text); ok {
			out[f.ID] = ef
			continue
		}
		if ef, ok := extractByLabel(f, lines); ok {
			out[f.ID] = ef
			continue
		}
		out[f.ID] = audit.ExtractedField{FieldID: f.ID, Source: audit.SourceOCR, Extracted: false}
	}
	return out
}

// extractByHint tries each of f.ExtractionHints as a regex against the full
// text, in declaration order. A hint with a capture group yields the first
// group; otherwise the whole match is the value.
func extractByHint(f audit.Field, text string) (audit.ExtractedField, bool) {
	for _, hint := range f.ExtractionHints {
		re, err := regexp.Compile(hint)
		if err != nil {
			continue
		}
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := m[0]
		if len(m) > 1 {
			value = m[1]
		}
		return audit.ExtractedField{
			FieldID:    f.ID,
			Value:      strings.TrimSpace(value),
			Confidence: 0.9,
			Source:     audit.SourceRegex,
			Extracted:  true,
		}, true
	}
	return audit.ExtractedField{}, false
}

// extractByLabel scans lines for one of the field's label/id/aliases,
// followed by a ":" or "-" separator, and takes the remainder of the line
// as the value.
func extractByLabel(f audit.Field, lines []string) (audit.ExtractedField, bool) {
	candidates := append([]string{f.Label, f.ID}, f.Aliases...)
	for _, line := range lines {
		for _, c := range candidates {
			if c == "" {
				continue
			}
			idx := indexFold(line, c)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(c):]
			loc := labelSeparator.FindStringIndex(rest)
			if loc == nil || loc[0] != 0 {
				continue
			}
			value := strings.TrimSpace(rest[loc[1]:])
			if value == "" {
				continue
			}
			return audit.ExtractedField{
				FieldID:    f.ID,
				Value:      value,
				Confidence: 0.75,
				Source:     audit.SourceOCR,
				Extracted:  true,
			}, true
		}
	}
	return audit.ExtractedField{}, false
}

func indexFold(haystack, needle string) int {
	return strings.Index(strings.ToLower(haystack), strings.ToLower(needle))
}

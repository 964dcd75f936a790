package selector

import (
	"regexp"
	"sort"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

const (
	formCodeBonus       = 30.0
	requiredAllBase     = 40.0
	requiredAnyBase     = 20.0
	defaultEpsilon      = 0.01
)

// ScoreCandidate scores one template version's SelectionConfig against a
// tokenized document. rawText is
// used only for the formCodeRegex match, which operates on the unsegmented
// document text.
func ScoreCandidate(tokens []string, rawText string, cfg audit.SelectionConfig) (score float64, matched, missingRequired []string) {
	tokenSet := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = true
	}

	for _, req := range cfg.RequiredTokensAll {
		if !tokenSet[req] {
			missingRequired = append(missingRequired, req)
		} else {
			matched = append(matched, req)
		}
	}
	if len(missingRequired) > 0 {
		return 0, matched, missingRequired
	}
	if len(cfg.RequiredTokensAll) > 0 {
		score += requiredAllBase
	}

	if len(cfg.RequiredTokensAny) > 0 {
		anyMatched := false
		for _, req := range cfg.RequiredTokensAny {
			if tokenSet[req] {
				anyMatched = true
				matched = append(matched, req)
			}
		}
		if !anyMatched {
			return 0, matched, missingRequired
		}
		score += requiredAnyBase
	}

	if cfg.FormCodeRegex != "" {
		if re, err := regexp.Compile(cfg.FormCodeRegex); err == nil && re.MatchString(rawText) {
			score += formCodeBonus
		}
	}

	// Sorted iteration keeps matched-token order, and therefore the trace
	// artifact, stable across runs.
	optional := make([]string, 0, len(cfg.OptionalTokens))
	for tok := range cfg.OptionalTokens {
		optional = append(optional, tok)
	}
	sort.Strings(optional)
	for _, tok := range optional {
		if tokenSet[tok] {
			score += cfg.OptionalTokens[tok]
			matched = append(matched, tok)
		}
	}

	return clamp(score, 0, 100), matched, missingRequired
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

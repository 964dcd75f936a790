package selector

import (
	"sort"
	"time"

	"github.com/cgtqwmwkhp-rgb/job-sheet-qa-auditor-sub001/pkg/audit"
)

// SignalWeightsVersion identifies the current weight set. Weights are pure
// data: changing them means cutting a new version, never branching on the
// environment.
const SignalWeightsVersion = "2024.1"

// DefaultSignalWeights is the current weight set. effectiveAt is populated
// by the caller at trace-write time and recorded on the trace verbatim.
var DefaultSignalWeights = audit.SignalWeights{
	Version:            SignalWeightsVersion,
	TokenWeight:        0.40,
	LayoutWeight:       0.20,
	ROIWeight:          0.25,
	PlausibilityWeight: 0.15,
}

const ambiguityGapThreshold = 10.0

// signals collects whichever per-candidate signal scores are available for
// this selection. Only the token signal is produced at selection time today
// — layout/roi/plausibility signals require inputs (page layout geometry,
// per-field ROI hits, calibration output) that don't exist until later
// pipeline stages, so they are left at zero weight contribution rather than
// faked; see DESIGN.md.
type signals struct {
	token        float64
	hasLayout    bool
	layout       float64
	hasROI       bool
	roi          float64
	hasPlausible bool
	plausible    float64
}

// combine applies the versioned weight set across whichever signals are
// present, renormalizing by the sum of weights actually in play so a
// token-only candidate still lands in [0,100].
func (s signals) combine(w audit.SignalWeights) float64 {
	total := w.TokenWeight * s.token
	weightSum := w.TokenWeight
	if s.hasLayout {
		total += w.LayoutWeight * s.layout
		weightSum += w.LayoutWeight
	}
	if s.hasROI {
		total += w.ROIWeight * s.roi
		weightSum += w.ROIWeight
	}
	if s.hasPlausible {
		total += w.PlausibilityWeight * s.plausible
		weightSum += w.PlausibilityWeight
	}
	if weightSum == 0 {
		return 0
	}
	return clamp(total/weightSum, 0, 100)
}

func bandFor(score, gap float64, candidateCount int) audit.ConfidenceBand {
	switch {
	case score >= 80:
		return audit.BandHigh
	case score >= 60 && gap >= ambiguityGapThreshold:
		return audit.BandMedium
	default:
		return audit.BandLow
	}
}

// isDefaultTemplate reports whether templateID is the registry's reserved
// built-in fallback slug, which is always deprioritized in tie-breaks.
func isDefaultTemplate(templateID, defaultSlug string) bool {
	return defaultSlug != "" && templateID == defaultSlug
}

// Select scores text against every candidate active TemplateVersion and
// returns the deterministic SelectionResult. defaultSlug, if
// non-empty, names the reserved default-template id to deprioritize.
func Select(text string, candidates []audit.TemplateVersion, defaultSlug string) audit.SelectionResult {
	tokens := Tokenize(text)

	scores := make([]audit.SelectionScore, 0, len(candidates))
	for _, c := range candidates {
		tokenScore, matched, missing := ScoreCandidate(tokens, text, c.Selection)
		combined := (signals{token: tokenScore}).combine(DefaultSignalWeights)

		effective := combined
		if isDefaultTemplate(c.TemplateID, defaultSlug) {
			effective -= defaultEpsilon
		}

		scores = append(scores, audit.SelectionScore{
			TemplateID:      c.TemplateID,
			VersionID:       c.VersionID,
			Score:           effective,
			MatchedTokens:   matched,
			MissingRequired: missing,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].TemplateID < scores[j].TemplateID
	})

	result := audit.SelectionResult{Candidates: scores}
	if len(scores) == 0 {
		result.ConfidenceBand = audit.BandLow
		result.BlockReason = "no active template versions"
		return result
	}

	result.TopScore = scores[0].Score
	if len(scores) > 1 {
		result.RunnerUpScore = scores[1].Score
	}
	result.Gap = result.TopScore - result.RunnerUpScore
	result.Ambiguous = result.Gap < ambiguityGapThreshold && len(scores) > 1
	result.ConfidenceBand = bandFor(result.TopScore, result.Gap, len(scores))

	top := scores[0]
	top.ConfidenceBand = result.ConfidenceBand
	scores[0] = top

	if top.Score > 0 {
		selected := top
		result.Selected = &selected
	} else {
		result.BlockReason = "no candidate met required-token criteria"
	}

	result.AutoProcessing = result.ConfidenceBand == audit.BandHigh && !result.Ambiguous && result.Selected != nil
	return result
}

const traceTokenSampleLimit = 20

// BuildTrace assembles the SelectionTrace artifact for one selection
// decision, truncating the recorded token sample to the
// first 20 tokens.
func BuildTrace(documentID, text string, result audit.SelectionResult, now time.Time) audit.SelectionTrace {
	tokens := Tokenize(text)
	sample := tokens
	if len(sample) > traceTokenSampleLimit {
		sample = sample[:traceTokenSampleLimit]
	}

	outcome := audit.SelectionOutcome{
		Selected:       result.Selected != nil,
		ConfidenceBand: result.ConfidenceBand,
		Gap:            result.Gap,
		Ambiguous:      result.Ambiguous,
		AutoProcessing: result.AutoProcessing,
		BlockReason:    result.BlockReason,
	}
	if result.Selected != nil {
		outcome.TemplateID = result.Selected.TemplateID
		outcome.VersionID = result.Selected.VersionID
	}

	weights := DefaultSignalWeights
	weights.EffectiveAt = now

	return audit.SelectionTrace{
		ArtifactVersion: "1.0.0",
		Timestamp:       now,
		DocumentID:      documentID,
		InputSignals: audit.SelectionInputSignals{
			TokenCount:     len(tokens),
			TokenSample:    sample,
			DocumentLength: len(text),
		},
		Outcome:     outcome,
		Candidates:  result.Candidates,
		WeightsUsed: weights,
	}
}

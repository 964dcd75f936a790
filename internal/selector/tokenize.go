// Package selector implements the template selector: document
// tokenization, per-candidate scoring, versioned signal combination, and
// confidence-band/ambiguity classification.
package selector

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

const minTokenLen = 3

// Tokenize lowercases text, splits on non-alphanumerics, drops tokens
// shorter than minTokenLen, and keeps insertion-order uniqueness.
func Tokenize(text string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if len(tok) < minTokenLen || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

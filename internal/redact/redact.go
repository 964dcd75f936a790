// Package redact implements pattern-based PII redaction over free text and
// arbitrary JSON/map structures. Rules run in a fixed order so
// output is deterministic; redaction is idempotent by construction because
// every substitution replaces the matched span with a fixed literal that no
// rule matches again.
package redact

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Redacted is the literal substituted for any matched PII span or forbidden
// field value. It intentionally contains no structure a pattern below could
// re-match, which is what makes Redact idempotent.
const Redacted = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
}

// rules run in a fixed order: email, generic phone,
// regional phone, SSN, national insurance, credit card, IPv4, date of birth,
// bank account, titled name.
var rules = []rule{
	{"email", regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)},
	{"phone_generic", regexp.MustCompile(`\b(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)},
	{"phone_regional", regexp.MustCompile(`\b0\d{2,4}[\s.\-]?\d{3,4}[\s.\-]?\d{3,4}\b`)},
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"national_insurance", regexp.MustCompile(`(?i)\b[A-CEGHJ-PR-TW-Z]{2}\s?\d{2}\s?\d{2}\s?\d{2}\s?[A-D]\b`)},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[\s\-]){3}\d{4}\b`)},
	{"ipv4", regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(?:25[0-5]|2[0-4]\d|1?\d?\d)\b`)},
	{"dob", regexp.MustCompile(`\b(?:0[1-9]|[12]\d|3[01])[/\-](?:0[1-9]|1[0-2])[/\-](?:19|20)\d{2}\b`)},
	{"bank_account", regexp.MustCompile(`\b\d{8,17}\b`)},
	{"titled_name", regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof)\.?\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)},
}

// forbiddenFieldSubstrings: any field whose normalized name contains one of
// these has its value wholly replaced, regardless of content.
var forbiddenFieldSubstrings = []string{
	"password", "secret", "token", "apikey", "api_key", "authorization", "credential",
	"private_key", "ssn", "credit_card", "cvv", "pin", "dob", "nino",
}

func normalizeFieldName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "-", "_"))
}

// isForbiddenField reports whether a field's normalized name should have its
// value replaced wholesale rather than pattern-scanned.
func isForbiddenField(name string) bool {
	n := normalizeFieldName(name)
	for _, s := range forbiddenFieldSubstrings {
		if strings.Contains(n, s) {
			return true
		}
	}
	return false
}

// Text applies all rules, in order, to s and returns the redacted string.
// Redacting an already-redacted string is a no-op (idempotence): Redacted
// contains no digits/@/colons that any rule above matches.
func Text(s string) string {
	out := s
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, Redacted)
	}
	return out
}

// Object recursively redacts a decoded JSON-like value (map[string]any,
// []any, or scalar), applying forbidden-field replacement to map values and
// Text to every string leaf (including ones inside non-forbidden fields).
func Object(v any) any {
	return redactValue("", v)
}

func redactValue(fieldName string, v any) any {
	switch val := v.(type) {
	case string:
		if fieldName != "" && isForbiddenField(fieldName) {
			return Redacted
		}
		return Text(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if isForbiddenField(k) {
				out[k] = Redacted
				continue
			}
			out[k] = redactValue(k, item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = redactValue(fieldName, item)
		}
		return out
	default:
		return v
	}
}

// JSON redacts a raw JSON document byte-for-byte using gjson/sjson so callers
// never need to round-trip through Go structs for shapes they don't fully
// model (provider payloads, free-form artifacts). Object-field names feeding
// the forbidden-field check are derived from each JSON key's path segment.
func JSON(doc []byte) ([]byte, error) {
	result := gjson.ParseBytes(doc)
	out := string(doc)
	var walkErr error
	var walk func(path string, value gjson.Result)
	walk = func(path string, value gjson.Result) {
		switch {
		case value.IsObject():
			value.ForEach(func(key, val gjson.Result) bool {
				childPath := key.String()
				if path != "" {
					childPath = path + "." + key.String()
				}
				walk(childPath, val)
				return true
			})
		case value.IsArray():
			value.ForEach(func(idx, val gjson.Result) bool {
				walk(path, val)
				return true
			})
		case value.Type == gjson.String:
			leaf := lastSegment(path)
			var replacement string
			if isForbiddenField(leaf) {
				replacement = Redacted
			} else {
				replacement = Text(value.String())
			}
			if replacement != value.String() {
				var err error
				out, err = sjson.Set(out, path, replacement)
				if err != nil {
					walkErr = err
				}
			}
		}
	}
	walk("", result)
	if walkErr != nil {
		return nil, walkErr
	}
	return []byte(out), nil
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

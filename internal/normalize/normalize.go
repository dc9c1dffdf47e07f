// Package normalize holds the pure text-preparation helpers shared by the
// extractors, the fingerprint generator, and the similarity engine.
package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Text lowercases the input, replaces every non-letter/non-digit rune with a
// space, and collapses runs of whitespace. It is idempotent and never fails on
// empty input.
func Text(input string) string {
	trimmed := strings.TrimSpace(strings.ToLower(input))
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	lastSpace := false
	for _, r := range trimmed {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// StripURLs removes http(s) URLs before normalization. Used by the
// fingerprint path only, so link variations never perturb the digest.
func StripURLs(input string) string {
	if input == "" {
		return ""
	}
	return urlPattern.ReplaceAllString(input, " ")
}

// Tokens normalizes the input and splits it into word tokens.
func Tokens(input string) []string {
	normalized := Text(input)
	if normalized == "" {
		return nil
	}
	return strings.Fields(normalized)
}

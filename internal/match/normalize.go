package match

import (
	"sort"
	"strings"
	"unicode"
)

// Normalize drops every rune that is not a letter or digit and lower-cases the rest.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// sortedTokens splits on whitespace, normalizes each token and joins them in sorted order,
// so "Song, The" and "the song" compare equal.
func sortedTokens(s string) string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if n := Normalize(f); n != "" {
			tokens = append(tokens, n)
		}
	}
	sort.Strings(tokens)
	return strings.Join(tokens, "")
}

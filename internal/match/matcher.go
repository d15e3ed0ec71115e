package match

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// DefaultThreshold is the similarity score (0-100) an answer needs to be accepted.
const DefaultThreshold = 85

// Matcher decides whether a free-text answer names one of a question's canonical answers.
// It is safe for concurrent use.
type Matcher struct {
	threshold int
	score     func(a, b form) int
}

// form is a string reduced once to both shapes the scorer compares.
type form struct {
	plain  string
	sorted string
}

func newForm(s string) form {
	return form{plain: Normalize(s), sorted: sortedTokens(s)}
}

// NewMatcher returns a matcher with the given threshold; values outside 1..100 fall back to DefaultThreshold.
func NewMatcher(threshold int) *Matcher {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultThreshold
	}
	return &Matcher{threshold: threshold, score: similarity}
}

// Threshold reports the configured acceptance score.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// IsCorrect reports whether candidate matches any member of answers.
// A literal lower-cased hit short-circuits; otherwise each answer is fuzzily scored
// after normalization and the first one reaching the threshold wins.
func (m *Matcher) IsCorrect(answers map[string]struct{}, candidate string) bool {
	if strings.TrimSpace(candidate) == "" {
		return false
	}
	if _, ok := answers[strings.ToLower(candidate)]; ok {
		return true
	}

	cand := newForm(candidate)
	if cand.plain == "" {
		return false
	}
	for answer := range answers {
		ans := newForm(answer)
		if ans.plain == "" {
			continue
		}
		if m.score(ans, cand) >= m.threshold {
			return true
		}
	}
	return false
}

// IsCorrect is a convenience wrapper for one-off checks.
func IsCorrect(answers map[string]struct{}, candidate string, threshold int) bool {
	return NewMatcher(threshold).IsCorrect(answers, candidate)
}

// Similarity scores two strings in [0,100]. It is the better of the plain normalized ratio
// and the token-sorted ratio. Both compare whole strings, so a short candidate that merely
// appears inside a long title scores low. Empty normalized input scores 0.
func Similarity(a, b string) int {
	return similarity(newForm(a), newForm(b))
}

func similarity(a, b form) int {
	if a.plain == "" || b.plain == "" {
		return 0
	}
	best := ratio(a.plain, b.plain)
	if sorted := ratio(a.sorted, b.sorted); sorted > best {
		best = sorted
	}
	return best
}

func ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	dist := levenshtein.Distance(a, b, nil)
	return (100*(longest-dist) + longest/2) / longest
}

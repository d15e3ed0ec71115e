package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func answers(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                "",
		"Song A":          "songa",
		"  !!! ":          "",
		"V2 (Remix)":      "v2remix",
		"Ænima, Déjà-vu!": "ænimadéjàvu",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestExactMatchSkipsFuzzyScoring(t *testing.T) {
	m := NewMatcher(100)
	calls := 0
	m.score = func(a, b form) int {
		calls++
		return 0
	}

	assert.True(t, m.IsCorrect(answers("song a"), "Song A"))
	assert.Zero(t, calls)
}

func TestFuzzyScoringReceivesNormalizedForms(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	var seen []form
	m.score = func(a, b form) int {
		seen = append(seen, a, b)
		return similarity(a, b)
	}

	assert.True(t, m.IsCorrect(answers("Safari, The"), "the  safari!"))
	assert.Equal(t, []form{
		{plain: "safarithe", sorted: "safarithe"},
		{plain: "thesafari", sorted: "safarithe"},
	}, seen)
}

func TestEmptyStringsNeverMatch(t *testing.T) {
	for _, threshold := range []int{1, 50, 85, 100} {
		assert.False(t, IsCorrect(answers(""), "", threshold), "threshold %d", threshold)
		assert.False(t, IsCorrect(answers("!!"), "?", threshold), "threshold %d", threshold)
	}
	assert.False(t, IsCorrect(answers("song a"), "", 1))
}

func TestFuzzyMatching(t *testing.T) {
	m := NewMatcher(DefaultThreshold)
	title := answers("thor's hammer")

	assert.True(t, m.IsCorrect(title, "Thors Hammer"))
	assert.True(t, m.IsCorrect(title, "thors hamer"))
	assert.True(t, m.IsCorrect(answers("the safari"), "Safari, The"))
	assert.False(t, m.IsCorrect(title, "hammer"))
	assert.False(t, m.IsCorrect(title, "t"))
	assert.False(t, m.IsCorrect(title, "quasar"))
}

func TestMatchesAlternateTitle(t *testing.T) {
	set := answers("gamblers", "gambol")
	assert.True(t, IsCorrect(set, "GAMBOL!", DefaultThreshold))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 100, Similarity("Song A", "song-a"))
	assert.Equal(t, 0, Similarity("", "anything"))
	assert.Equal(t, 100, Similarity("red blue", "Blue Red"))
	assert.Less(t, Similarity("a", "abcdefghij"), 20)
}

func TestNewMatcherThresholdFallback(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewMatcher(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewMatcher(101).Threshold())
	assert.Equal(t, 90, NewMatcher(90).Threshold())
}

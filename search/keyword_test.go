package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeywordQueryBareTerms(t *testing.T) {
	parsed := parseKeywordQuery("Install Widget")
	assert.False(t, parsed.degraded)
	assert.Equal(t, []string{"install", "widget"}, parsed.terms)
	assert.Empty(t, parsed.phrases)
}

func TestParseKeywordQueryExplicitAnd(t *testing.T) {
	parsed := parseKeywordQuery("install AND widget")
	assert.False(t, parsed.degraded)
	assert.Equal(t, []string{"install", "widget"}, parsed.terms)
}

func TestParseKeywordQueryPhrase(t *testing.T) {
	parsed := parseKeywordQuery(`"configure the widget" test`)
	assert.False(t, parsed.degraded)
	assert.Equal(t, []string{"configure the widget"}, parsed.phrases)
	assert.Equal(t, []string{"test"}, parsed.terms)
}

func TestParseKeywordQueryMalformedDegrades(t *testing.T) {
	for _, query := range []string{
		"widget OR gadget",
		"NOT widget",
		"(widget)",
		`"unbalanced widget`,
		"AND",
	} {
		parsed := parseKeywordQuery(query)
		assert.True(t, parsed.degraded, "query %q", query)
	}

	// degraded unbalanced quote falls back to the quote-stripped raw query
	parsed := parseKeywordQuery(`"widget`)
	assert.Equal(t, "widget", parsed.raw)
}

func TestKeywordScoreTermFrequency(t *testing.T) {
	parsed := parseKeywordQuery("widget")

	rank, ok := parsed.score("Install the widget. Configure the widget.")
	require.True(t, ok)
	assert.Equal(t, 2.0, rank)

	rank, ok = parsed.score("Test the widget.")
	require.True(t, ok)
	assert.Equal(t, 1.0, rank)

	_, ok = parsed.score("nothing relevant here")
	assert.False(t, ok)
}

func TestKeywordScoreImplicitAnd(t *testing.T) {
	parsed := parseKeywordQuery("install configure")

	_, ok := parsed.score("Install the widget. Configure the widget.")
	assert.True(t, ok)

	// both terms must be present
	_, ok = parsed.score("Install the widget.")
	assert.False(t, ok)
}

func TestKeywordScorePhraseExactSubstring(t *testing.T) {
	parsed := parseKeywordQuery(`"configure the widget"`)

	_, ok := parsed.score("First configure the widget, then test it.")
	assert.True(t, ok)

	// words present but not as a phrase
	_, ok = parsed.score("configure it, then the widget works")
	assert.False(t, ok)
}

func TestKeywordScoreCaseInsensitive(t *testing.T) {
	parsed := parseKeywordQuery("WIDGET")

	rank, ok := parsed.score("widget Widget WIDGET")
	require.True(t, ok)
	assert.Equal(t, 3.0, rank)
}

func TestKeywordScoreDegraded(t *testing.T) {
	parsed := parseKeywordQuery("widget OR gadget")

	// degraded mode matches the raw query as one substring
	_, ok := parsed.score("has widget but not the rest")
	assert.False(t, ok)

	rank, ok := parsed.score("literal widget or gadget text")
	require.True(t, ok)
	assert.Equal(t, 1.0, rank)
}

func TestKeywordHighlight(t *testing.T) {
	parsed := parseKeywordQuery("widget")

	highlighted := parsed.highlight("Install the Widget.")
	assert.Equal(t, "Install the <mark>Widget</mark>.", highlighted)
}

func TestKeywordHighlightPhraseBeforeTerm(t *testing.T) {
	parsed := parseKeywordQuery(`"the widget" widget`)

	highlighted := parsed.highlight("test the widget now")
	// the phrase wins over the bare term inside it
	assert.Equal(t, "test <mark>the widget</mark> now", highlighted)
}

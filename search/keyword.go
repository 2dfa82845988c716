// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"regexp"
	"sort"
	"strings"
)

// keywordQuery is a parsed lexical query. Matching is case-insensitive:
// bare terms combine with implicit AND, quoted phrases match as exact
// substrings, and malformed boolean syntax degrades the whole query to a
// single plain substring match rather than erroring.
type keywordQuery struct {
	terms    []string
	phrases  []string
	degraded bool
	raw      string
}

var quotedPhrasePattern = regexp.MustCompile(`"([^"]*)"`)

// parseKeywordQuery parses a lexical query string.
//
// Recognized syntax: bare terms (implicit AND), explicit AND between terms,
// and double-quoted phrases. Anything beyond that (OR, NOT, parentheses,
// unbalanced quotes) is treated as malformed boolean syntax and degrades to
// a plain substring match of the raw query.
func parseKeywordQuery(query string) keywordQuery {
	raw := strings.ToLower(strings.TrimSpace(query))
	parsed := keywordQuery{raw: raw}

	if strings.Count(query, `"`)%2 != 0 ||
		strings.ContainsAny(query, "()") ||
		containsBooleanToken(raw, "or") || containsBooleanToken(raw, "not") {
		parsed.degraded = true
		parsed.raw = strings.Trim(raw, `"`)
		return parsed
	}

	rest := quotedPhrasePattern.ReplaceAllStringFunc(query, func(match string) string {
		phrase := strings.ToLower(strings.Trim(match, `"`))
		if strings.TrimSpace(phrase) != "" {
			parsed.phrases = append(parsed.phrases, phrase)
		}
		return " "
	})

	for _, token := range strings.Fields(rest) {
		token = strings.ToLower(token)
		if token == "and" {
			continue
		}
		parsed.terms = append(parsed.terms, token)
	}

	// Nothing usable survived parsing (e.g. the query was a lone AND).
	if len(parsed.terms) == 0 && len(parsed.phrases) == 0 {
		parsed.degraded = true
		parsed.raw = strings.Trim(raw, `"`)
	}

	return parsed
}

func containsBooleanToken(query, token string) bool {
	for _, field := range strings.Fields(query) {
		if field == token {
			return true
		}
	}
	return false
}

// needles returns every pattern the query matches on.
func (q keywordQuery) needles() []string {
	if q.degraded {
		if q.raw == "" {
			return nil
		}
		return []string{q.raw}
	}
	needles := make([]string, 0, len(q.terms)+len(q.phrases))
	needles = append(needles, q.phrases...)
	needles = append(needles, q.terms...)
	return needles
}

// score computes a term-frequency rank for the content. The second return
// is false when the content doesn't match: every term and phrase must be
// present (implicit AND), or the raw query in degraded mode.
func (q keywordQuery) score(content string) (float64, bool) {
	lower := strings.ToLower(content)

	frequency := 0
	for _, needle := range q.needles() {
		count := strings.Count(lower, needle)
		if count == 0 {
			return 0, false
		}
		frequency += count
	}
	if frequency == 0 {
		return 0, false
	}
	return float64(frequency), true
}

// highlight wraps every matched span in <mark> tags, case-insensitively.
// Longer needles are applied first so a term never splits a phrase match.
func (q keywordQuery) highlight(content string) string {
	needles := q.needles()
	if len(needles) == 0 {
		return content
	}

	sort.Slice(needles, func(i, j int) bool {
		return len(needles[i]) > len(needles[j])
	})

	quoted := make([]string, len(needles))
	for i, needle := range needles {
		quoted[i] = regexp.QuoteMeta(needle)
	}

	pattern, err := regexp.Compile(`(?i)` + strings.Join(quoted, "|"))
	if err != nil {
		return content
	}
	return pattern.ReplaceAllString(content, "<mark>$0</mark>")
}

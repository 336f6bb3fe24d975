// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns structured search parameters into Scopus query
// language. Every phrase is matched against title, abstract, and keywords
// with TITLE-ABS-KEY; term-groups are AND-joined and the phrases inside a
// group are OR-joined.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/paper-search/pkg/types"
)

// Params holds the user-facing search parameters.
type Params struct {
	// Topic becomes a required term-group of one phrase.
	Topic string

	// Additional terms each become their own required term-group, so every
	// one of them must match. This narrows results multiplicatively.
	Additional []string

	// AdditionalAny terms form a single term-group of alternatives.
	AdditionalAny []string

	// Exclude terms are appended as AND NOT clauses.
	Exclude []string

	YearFrom int
	YearTo   int

	// SubjectAreas are Scopus subject codes such as COMP or ENGI.
	SubjectAreas []string

	// Raw bypasses building entirely when non-empty.
	Raw string
}

// Build validates p and returns the structured query with its rendered
// expression. A raw query takes precedence over every other field.
func Build(p Params) (types.SearchQuery, error) {
	if raw := strings.TrimSpace(p.Raw); raw != "" {
		return types.SearchQuery{Raw: raw, Expression: raw}, nil
	}

	topic := cleanPhrase(p.Topic)
	if topic == "" {
		return types.SearchQuery{}, types.NewValidationError("query", "provide a topic or a raw query")
	}
	if p.YearFrom < 0 || p.YearTo < 0 {
		return types.SearchQuery{}, types.NewValidationError("year", "years must be positive")
	}
	if p.YearFrom > 0 && p.YearTo > 0 && p.YearFrom > p.YearTo {
		return types.SearchQuery{}, types.NewValidationError("year",
			fmt.Sprintf("year-from %d is after year-to %d", p.YearFrom, p.YearTo))
	}

	q := types.SearchQuery{
		Groups:   [][]string{{topic}},
		YearFrom: p.YearFrom,
		YearTo:   p.YearTo,
	}

	seen := map[string]bool{strings.ToLower(topic): true}
	for _, term := range p.Additional {
		term = cleanPhrase(term)
		key := strings.ToLower(term)
		if term == "" || seen[key] {
			continue
		}
		seen[key] = true
		q.Groups = append(q.Groups, []string{term})
	}

	if alts := uniquePhrases(p.AdditionalAny, false); len(alts) > 0 {
		q.Groups = append(q.Groups, alts)
	}

	q.Exclude = uniquePhrases(p.Exclude, true)

	for _, area := range uniquePhrases(p.SubjectAreas, false) {
		q.SubjectAreas = append(q.SubjectAreas, strings.ToUpper(area))
	}

	q.Expression = Render(q)
	return q, nil
}

// Render produces the Scopus query string for q.
func Render(q types.SearchQuery) string {
	if q.IsRaw() {
		return q.Raw
	}

	var groups []string
	for _, g := range q.Groups {
		var alts []string
		for _, phrase := range g {
			if phrase = cleanPhrase(phrase); phrase != "" {
				alts = append(alts, titleAbsKey(phrase))
			}
		}
		switch len(alts) {
		case 0:
		case 1:
			groups = append(groups, alts[0])
		default:
			groups = append(groups, "("+strings.Join(alts, " OR ")+")")
		}
	}

	var parts []string
	if len(groups) > 0 {
		parts = append(parts, "("+strings.Join(groups, " AND ")+")")
	}

	if len(q.SubjectAreas) > 0 {
		areas := make([]string, len(q.SubjectAreas))
		for i, a := range q.SubjectAreas {
			areas[i] = fmt.Sprintf("SUBJAREA(%s)", a)
		}
		parts = append(parts, "("+strings.Join(areas, " OR ")+")")
	}

	// Scopus only supports strict comparisons on PUBYEAR.
	if q.YearFrom > 0 {
		parts = append(parts, fmt.Sprintf("PUBYEAR > %d", q.YearFrom-1))
	}
	if q.YearTo > 0 {
		parts = append(parts, fmt.Sprintf("PUBYEAR < %d", q.YearTo+1))
	}

	expr := strings.Join(parts, " AND ")
	for _, term := range q.Exclude {
		if term = cleanPhrase(term); term != "" {
			expr += " AND NOT " + titleAbsKey(term)
		}
	}
	return expr
}

// SplitTerms splits a comma-separated flag value into trimmed, non-empty terms.
func SplitTerms(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func titleAbsKey(phrase string) string {
	return `TITLE-ABS-KEY("` + phrase + `")`
}

// cleanPhrase strips double quotes, which would end the phrase early, and
// collapses whitespace.
func cleanPhrase(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return strings.Join(strings.Fields(s), " ")
}

// uniquePhrases cleans and case-insensitively deduplicates terms, keeping the
// first spelling. With sorted set the result is ordered so the rendered
// string does not depend on input order.
func uniquePhrases(terms []string, sorted bool) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		t = cleanPhrase(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if sorted {
		sort.Slice(out, func(i, j int) bool {
			return strings.ToLower(out[i]) < strings.ToLower(out[j])
		})
	}
	return out
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the paper-search pipeline:
// the structured search query, paper records fetched from Scopus, corpus
// snapshots persisted between runs, stage configuration, and the error
// taxonomy shared by all stages.
package types

// SearchQuery is the structured form of a Scopus search. Groups are
// AND-joined; the phrases inside a group are alternatives (OR-joined).
// A query built from a topic always has at least one group. When Raw is
// set the structured fields are ignored and Raw is sent verbatim.
type SearchQuery struct {
	// Groups lists the required term-groups in order.
	Groups [][]string `json:"groups,omitempty" yaml:"groups,omitempty"`

	// YearFrom is the inclusive lower bound on publication year (0 = unset).
	YearFrom int `json:"year_from,omitempty" yaml:"year_from,omitempty"`

	// YearTo is the inclusive upper bound on publication year (0 = unset).
	YearTo int `json:"year_to,omitempty" yaml:"year_to,omitempty"`

	// Exclude lists terms combined with AND NOT, sorted and deduplicated.
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// SubjectAreas lists Scopus subject area codes (e.g. "COMP"), OR-joined.
	SubjectAreas []string `json:"subject_areas,omitempty" yaml:"subject_areas,omitempty"`

	// Raw is a caller-supplied query string that bypasses building.
	Raw string `json:"raw,omitempty" yaml:"raw,omitempty"`

	// Expression is the rendered query string sent to the search API.
	Expression string `json:"expression" yaml:"expression"`
}

// IsRaw reports whether the query is a pass-through query.
func (q SearchQuery) IsRaw() bool {
	return q.Raw != ""
}

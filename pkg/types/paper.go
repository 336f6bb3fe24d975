// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperRecord holds the bibliographic metadata of one search hit.
// Records are immutable once fetched.
type PaperRecord struct {
	// ID is the Scopus identifier with the "SCOPUS_ID:" prefix removed.
	ID string `json:"id" yaml:"id"`

	// EID is the Scopus electronic identifier (e.g. "2-s2.0-85012345678").
	EID string `json:"eid,omitempty" yaml:"eid,omitempty"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Venue is the journal, proceedings, or book series name.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// Year is the publication year (0 when unknown).
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// CoverDate is the issue cover date as reported by Scopus (YYYY-MM-DD).
	CoverDate string `json:"cover_date,omitempty" yaml:"cover_date,omitempty"`

	// CitationCount is the cited-by count; nil when Scopus did not report one.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// DOI is the bare DOI (no https://doi.org/ prefix).
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// Abstract is the paper abstract.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Keywords lists the author keywords.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// URL is the Scopus API link for the record.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// OpenAccess is the Scopus open-access flag.
	OpenAccess bool `json:"open_access,omitempty" yaml:"open_access,omitempty"`
}

// HasDOI reports whether the record carries a DOI.
func (p PaperRecord) HasDOI() bool {
	return p.DOI != ""
}

// CorpusSnapshot is one persisted search result set. Snapshots are written
// once and never modified; later searches produce new snapshots.
type CorpusSnapshot struct {
	Query   SearchQuery   `json:"query"`
	Created time.Time     `json:"created"`
	Records []PaperRecord `json:"records"`
}

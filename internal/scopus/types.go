// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scopus

// Scopus Search API JSON structures (COMPLETE view).
type searchResponse struct {
	SearchResults searchResults `json:"search-results"`
}

type searchResults struct {
	TotalResults string  `json:"opensearch:totalResults"`
	StartIndex   string  `json:"opensearch:startIndex"`
	ItemsPerPage string  `json:"opensearch:itemsPerPage"`
	Entries      []entry `json:"entry"`
}

type entry struct {
	// Error is set on the placeholder entry Scopus returns for an empty
	// result set ("Result set was empty").
	Error string `json:"error"`

	Identifier      string         `json:"dc:identifier"` // "SCOPUS_ID:85012345678"
	EID             string         `json:"eid"`
	DOI             string         `json:"prism:doi"`
	Title           string         `json:"dc:title"`
	Creator         string         `json:"dc:creator"`
	Description     string         `json:"dc:description"`
	PublicationName string         `json:"prism:publicationName"`
	CoverDate       string         `json:"prism:coverDate"` // "2024-01-15"
	CitedByCount    string         `json:"citedby-count"`
	AuthKeywords    string         `json:"authkeywords"` // "a | b | c"
	URL             string         `json:"prism:url"`
	OpenAccessFlag  bool           `json:"openaccessFlag"`
	Authors         []scopusAuthor `json:"author"`
}

type scopusAuthor struct {
	AuthID    string `json:"authid"`
	Name      string `json:"authname"`
	GivenName string `json:"given-name"`
	Surname   string `json:"surname"`
}

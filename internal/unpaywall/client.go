// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package unpaywall resolves DOIs to open-access PDF links through the
// Unpaywall API. Unpaywall identifies callers by email address rather
// than an API key.
package unpaywall

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-search/pkg/types"
)

// apiBase is the Unpaywall v2 endpoint. Declared as a var so tests can
// substitute an httptest server.
var apiBase = "https://api.unpaywall.org/v2/"

const sourceName = "Unpaywall"

// Location is the resolved open-access copy of a paper. An empty PDFURL
// means Unpaywall knows the DOI but has no downloadable copy.
type Location struct {
	PDFURL     string
	LandingURL string
	HostType   string
	Version    string
	License    string
}

// Client looks up DOIs on Unpaywall.
type Client struct {
	http          *http.Client
	base          string
	email         string
	userAgent     string
	scrapeLanding bool
	log           zerolog.Logger
}

// New creates an Unpaywall client from cfg.
func New(client *http.Client, cfg types.DownloadConfig, log zerolog.Logger) *Client {
	base := apiBase
	if cfg.BaseURL != "" {
		base = strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	}
	return &Client{
		http:          client,
		base:          base,
		email:         cfg.Email,
		userAgent:     cfg.UserAgent,
		scrapeLanding: cfg.ScrapeLanding,
		log:           log.With().Str("component", "unpaywall").Logger(),
	}
}

// Lookup returns the best open-access location for doi. It prefers
// best_oa_location and falls back to the first oa_locations entry with a
// PDF link. With landing-page scraping enabled, a location that only has
// a landing page is fetched and its citation_pdf_url meta tag used.
// Any non-2xx response or transport failure is returned as an error.
func (c *Client) Lookup(ctx context.Context, doi string) (Location, error) {
	doi = NormalizeDOI(doi)
	if doi == "" {
		return Location{}, types.NewValidationError("doi", "empty DOI")
	}
	if c.email == "" {
		return Location{}, types.NewValidationError("email", "Unpaywall requires an email address (set UNPAYWALL_EMAIL)")
	}

	// DOIs contain slashes; escape each segment but keep the separators.
	escaped := (&url.URL{Path: doi}).EscapedPath()
	reqURL := c.base + escaped + "?" + url.Values{"email": {c.email}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Location{}, fmt.Errorf("creating Unpaywall request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, &types.RemoteAPIError{Source: sourceName, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return Location{}, &types.RemoteAPIError{
			Source:     sourceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Location{}, fmt.Errorf("parsing Unpaywall response: %w", err)
	}

	loc := r.pick()
	if loc.PDFURL == "" && loc.LandingURL != "" && c.scrapeLanding {
		pdfURL, err := c.scrapeCitationPDF(ctx, loc.LandingURL)
		if err != nil {
			c.log.Debug().Err(err).Str("doi", doi).Msg("landing page scrape failed")
		} else {
			loc.PDFURL = pdfURL
		}
	}
	return loc, nil
}

// NormalizeDOI strips resolver prefixes so "https://doi.org/10.1/x" and
// "doi:10.1/x" both become "10.1/x".
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	lower := strings.ToLower(doi)
	for _, p := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(doi[len(p):])
		}
	}
	return doi
}

// pick selects the location to download from.
func (r response) pick() Location {
	candidates := make([]*oaLocation, 0, len(r.OALocations)+1)
	if r.BestOALocation != nil {
		candidates = append(candidates, r.BestOALocation)
	}
	for i := range r.OALocations {
		candidates = append(candidates, &r.OALocations[i])
	}

	var landing *oaLocation
	for _, l := range candidates {
		if l.URLForPDF != "" {
			return l.location()
		}
		if landing == nil && l.URL != "" {
			landing = l
		}
	}
	if landing != nil {
		loc := landing.location()
		loc.PDFURL = ""
		return loc
	}
	return Location{}
}

// scrapeCitationPDF fetches a landing page and returns the absolute URL in
// its <meta name="citation_pdf_url"> tag, the convention publishers use
// for indexers.
func (c *Client) scrapeCitationPDF(ctx context.Context, landingURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, landingURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating landing page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching landing page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("landing page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("parsing landing page: %w", err)
	}

	content, ok := doc.Find(`meta[name="citation_pdf_url"]`).First().Attr("content")
	content = strings.TrimSpace(content)
	if !ok || content == "" {
		return "", nil
	}

	ref, err := url.Parse(content)
	if err != nil {
		return "", fmt.Errorf("invalid citation_pdf_url %q: %w", content, err)
	}
	// Resolve relative links against the final URL after redirects.
	return resp.Request.URL.ResolveReference(ref).String(), nil
}

// Unpaywall API JSON structures.
type response struct {
	DOI            string       `json:"doi"`
	IsOA           bool         `json:"is_oa"`
	BestOALocation *oaLocation  `json:"best_oa_location"`
	OALocations    []oaLocation `json:"oa_locations"`
}

type oaLocation struct {
	URL       string `json:"url"`
	URLForPDF string `json:"url_for_pdf"`
	HostType  string `json:"host_type"`
	Version   string `json:"version"`
	License   string `json:"license"`
}

func (l *oaLocation) location() Location {
	return Location{
		PDFURL:     l.URLForPDF,
		LandingURL: l.URL,
		HostType:   l.HostType,
		Version:    l.Version,
		License:    l.License,
	}
}

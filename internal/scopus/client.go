// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scopus fetches paper records from the Elsevier Scopus Search API.
// Pages are requested one at a time at increasing offsets, paced by a
// token-bucket limiter, until the requested number of records has been
// collected or Scopus reports no further results.
package scopus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/pkg/types"
)

// searchBase is the Scopus Search API endpoint. Declared as a var so tests
// can substitute an httptest server.
var searchBase = "https://api.elsevier.com/content/search/scopus"

const (
	// PageSize is the most records Scopus returns per response.
	PageSize = 25

	// MaxResults caps a single fetch; Scopus rejects start offsets beyond 5000.
	MaxResults = 5000

	// DefaultSort keeps Scopus relevance ordering.
	DefaultSort = "relevancy"

	apiKeyHeader = "X-ELS-APIKey"
	sourceName   = "Scopus"

	// maxErrorBody bounds how much of an error response is kept.
	maxErrorBody = 64 << 10
)

// Client fetches search results from Scopus. It is not safe for concurrent
// use; fetches are sequential.
type Client struct {
	http  *http.Client
	cfg   types.SearchConfig
	pacer *rate.Limiter
	log   zerolog.Logger
}

// New creates a Scopus client. The API key and all tuning come from cfg;
// the client never reads the environment.
func New(client *http.Client, cfg types.SearchConfig, log zerolog.Logger) *Client {
	if cfg.Sort == "" {
		cfg.Sort = DefaultSort
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	return &Client{
		http:  client,
		cfg:   cfg,
		pacer: httputil.NewPacer(httputil.PerSecond(cfg.RequestsPerSecond)),
		log:   log.With().Str("component", "scopus").Logger(),
	}
}

// Fetch runs query and returns up to desired records in Scopus order.
// Fewer records are returned without error when Scopus has fewer matches.
// A non-positive desired count is a ValidationError. Throttled pages are
// retried a fixed number of times; any other HTTP failure, a timeout, or
// throttling past the cap fails the whole fetch with a RemoteAPIError.
func (c *Client) Fetch(ctx context.Context, query string, desired int) ([]types.PaperRecord, error) {
	if strings.TrimSpace(query) == "" {
		return nil, types.NewValidationError("query", "query string is empty")
	}
	if desired <= 0 {
		return nil, types.NewValidationError("count", fmt.Sprintf("must be positive, got %d", desired))
	}
	if c.cfg.APIKey == "" {
		return nil, types.NewValidationError("api key", "Scopus API key is required (set SCOPUS_API_KEY)")
	}
	if desired > MaxResults {
		c.log.Warn().Int("requested", desired).Int("max", MaxResults).Msg("count capped")
		desired = MaxResults
	}

	records := make([]types.PaperRecord, 0, min(desired, PageSize))
	seen := make(map[string]bool)
	duplicates := 0
	start := 0

	for len(records) < desired {
		count := min(PageSize, desired-len(records))

		page, err := c.fetchPage(ctx, query, start, count)
		if err != nil {
			return nil, err
		}
		if len(page.Entries) == 0 {
			break
		}

		for _, e := range page.Entries {
			rec, ok := toRecord(e)
			if !ok {
				continue
			}
			if seen[rec.ID] {
				duplicates++
				continue
			}
			seen[rec.ID] = true
			records = append(records, rec)
			if len(records) == desired {
				break
			}
		}

		start += len(page.Entries)
		total, _ := strconv.Atoi(page.TotalResults)
		c.log.Debug().
			Int("start", start).
			Int("total", total).
			Int("collected", len(records)).
			Msg("page fetched")
		if start >= total {
			break
		}
	}

	if duplicates > 0 {
		c.log.Warn().Int("duplicates", duplicates).Msg("overlapping pages; duplicates dropped")
	}
	return records, nil
}

// fetchPage requests one page of results starting at offset start.
func (c *Client) fetchPage(ctx context.Context, query string, start, count int) (searchResults, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return searchResults{}, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	params := url.Values{
		"query": {query},
		"start": {strconv.Itoa(start)},
		"count": {strconv.Itoa(count)},
		"sort":  {c.cfg.Sort},
		"view":  {"COMPLETE"},
	}

	base := searchBase
	if c.cfg.BaseURL != "" {
		base = c.cfg.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return searchResults{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	policy := httputil.RetryPolicy{
		MaxAttempts: c.cfg.MaxAttempts,
		Delay:       c.cfg.RetryDelay,
		OnRetry: func(attempt int, wait time.Duration) {
			c.log.Warn().Int("attempt", attempt).Dur("wait", wait).Int("start", start).Msg("throttled by Scopus, retrying")
		},
	}

	resp, err := httputil.DoWithRetry(ctx, c.http, req, policy)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return searchResults{}, err
		}
		return searchResults{}, &types.RemoteAPIError{Source: sourceName, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return searchResults{}, &types.RemoteAPIError{
			Source:     sourceName,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return searchResults{}, fmt.Errorf("parsing Scopus response: %w", err)
	}
	return sr.SearchResults, nil
}

// toRecord maps a Scopus entry to a PaperRecord. Placeholder entries and
// entries without an identifier are rejected.
func toRecord(e entry) (types.PaperRecord, bool) {
	if e.Error != "" {
		return types.PaperRecord{}, false
	}
	id := strings.TrimSpace(strings.TrimPrefix(e.Identifier, "SCOPUS_ID:"))
	if id == "" {
		return types.PaperRecord{}, false
	}

	rec := types.PaperRecord{
		ID:         id,
		EID:        strings.TrimSpace(e.EID),
		Title:      strings.TrimSpace(e.Title),
		Authors:    extractAuthors(e),
		Venue:      strings.TrimSpace(e.PublicationName),
		CoverDate:  strings.TrimSpace(e.CoverDate),
		DOI:        strings.TrimSpace(e.DOI),
		Abstract:   strings.TrimSpace(e.Description),
		Keywords:   splitKeywords(e.AuthKeywords),
		URL:        strings.TrimSpace(e.URL),
		OpenAccess: e.OpenAccessFlag,
	}

	if len(rec.CoverDate) >= 4 {
		if y, err := strconv.Atoi(rec.CoverDate[:4]); err == nil {
			rec.Year = y
		}
	}
	if s := strings.TrimSpace(e.CitedByCount); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			rec.CitationCount = &n
		}
	}
	return rec, true
}

// extractAuthors prefers the COMPLETE-view author list and falls back to
// dc:creator, which only names the first author.
func extractAuthors(e entry) []string {
	var authors []string
	for _, a := range e.Authors {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = strings.TrimSpace(a.GivenName + " " + a.Surname)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	if len(authors) == 0 {
		if creator := strings.TrimSpace(e.Creator); creator != "" {
			authors = []string{creator}
		}
	}
	return authors
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, "|") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

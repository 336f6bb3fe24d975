// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unpaywall

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-search/pkg/types"
)

const testEmail = "test@example.com"

func overrideAPIBase(t *testing.T, ts *httptest.Server) {
	t.Helper()
	orig := apiBase
	apiBase = ts.URL + "/v2/"
	t.Cleanup(func() { apiBase = orig })
}

func newTestClient(ts *httptest.Server, scrape bool) *Client {
	return New(ts.Client(), types.DownloadConfig{Email: testEmail, ScrapeLanding: scrape}, zerolog.Nop())
}

func TestLookup_BestLocation(t *testing.T) {
	var gotPath, gotEmail string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmail = r.URL.Query().Get("email")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"doi": "10.1000/xyz",
			"is_oa": true,
			"best_oa_location": {
				"url": "https://example.org/landing",
				"url_for_pdf": "https://example.org/paper.pdf",
				"host_type": "repository",
				"version": "acceptedVersion",
				"license": "cc-by"
			},
			"oa_locations": []
		}`)
	}))
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, false).Lookup(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, "/v2/10.1000/xyz", gotPath)
	assert.Equal(t, testEmail, gotEmail)
	assert.Equal(t, Location{
		PDFURL:     "https://example.org/paper.pdf",
		LandingURL: "https://example.org/landing",
		HostType:   "repository",
		Version:    "acceptedVersion",
		License:    "cc-by",
	}, loc)
}

func TestLookup_FallsBackToOALocations(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"best_oa_location": {"url": "https://example.org/landing"},
			"oa_locations": [
				{"url": "https://mirror.org/a"},
				{"url": "https://mirror.org/b", "url_for_pdf": "https://mirror.org/b.pdf", "host_type": "repository"}
			]
		}`)
	}))
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, false).Lookup(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, "https://mirror.org/b.pdf", loc.PDFURL)
	assert.Equal(t, "repository", loc.HostType)
}

func TestLookup_NoOpenAccessCopy(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"doi": "10.1000/closed", "is_oa": false, "best_oa_location": null, "oa_locations": []}`)
	}))
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, false).Lookup(context.Background(), "10.1000/closed")
	require.NoError(t, err)
	assert.Empty(t, loc.PDFURL)
}

func TestLookup_LandingOnlyWithoutScrape(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"best_oa_location": {"url": "https://example.org/landing", "url_for_pdf": null}}`)
	}))
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, false).Lookup(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Empty(t, loc.PDFURL)
	assert.Equal(t, "https://example.org/landing", loc.LandingURL)
}

func TestLookup_ScrapesLandingPage(t *testing.T) {
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"best_oa_location": {"url": "%s/article/42"}}`, ts.URL)
	})
	mux.HandleFunc("/article/42", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head>
			<meta name="citation_title" content="A Paper">
			<meta name="citation_pdf_url" content="/article/42/fulltext.pdf">
		</head><body></body></html>`)
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, true).Lookup(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/article/42/fulltext.pdf", loc.PDFURL)
}

func TestLookup_ScrapeFailureIsNotAnError(t *testing.T) {
	mux := http.NewServeMux()
	var ts *httptest.Server
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"best_oa_location": {"url": "%s/gone"}}`, ts.URL)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	ts = httptest.NewServer(mux)
	defer ts.Close()
	overrideAPIBase(t, ts)

	loc, err := newTestClient(ts, true).Lookup(context.Background(), "10.1000/xyz")
	require.NoError(t, err)
	assert.Empty(t, loc.PDFURL)
}

func TestLookup_HTTPErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				fmt.Fprint(w, `{"error": true}`)
			}))
			defer ts.Close()
			overrideAPIBase(t, ts)

			_, err := newTestClient(ts, false).Lookup(context.Background(), "10.1000/xyz")
			require.Error(t, err)
			var apiErr *types.RemoteAPIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, status, apiErr.StatusCode)
			assert.Equal(t, "Unpaywall", apiErr.Source)
		})
	}
}

func TestLookup_Validation(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()
	overrideAPIBase(t, ts)

	_, err := newTestClient(ts, false).Lookup(context.Background(), "  ")
	assert.ErrorIs(t, err, types.ErrValidation)

	noEmail := New(ts.Client(), types.DownloadConfig{}, zerolog.Nop())
	_, err = noEmail.Lookup(context.Background(), "10.1000/xyz")
	assert.ErrorIs(t, err, types.ErrValidation)

	assert.Zero(t, calls.Load())
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.1000/xyz", "10.1000/xyz"},
		{" https://doi.org/10.1000/xyz ", "10.1000/xyz"},
		{"http://dx.doi.org/10.1000/xyz", "10.1000/xyz"},
		{"DOI:10.1000/xyz", "10.1000/xyz"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDOI(tt.in), tt.in)
	}
}

func TestNew_BaseURLOverride(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"best_oa_location": {"url_for_pdf": "https://x/y.pdf"}}`)
	}))
	defer ts.Close()

	c := New(ts.Client(), types.DownloadConfig{
		HTTPConfig: types.HTTPConfig{BaseURL: ts.URL + "/mirror"},
		Email:      testEmail,
	}, zerolog.Nop())
	loc, err := c.Lookup(context.Background(), "doi:10.1000/xyz")
	require.NoError(t, err)
	assert.Equal(t, "/mirror/10.1000/xyz", gotPath)
	assert.Equal(t, "https://x/y.pdf", loc.PDFURL)
}

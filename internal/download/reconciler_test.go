// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-search/internal/unpaywall"
	"github.com/pdiddy/paper-search/pkg/types"
)

var pdfBody = append([]byte("%PDF-1.7\n"), bytes.Repeat([]byte("x"), 2000)...)

// stubResolver answers lookups from maps and records the DOIs it saw.
type stubResolver struct {
	links map[string]string
	errs  map[string]error
	calls []string
}

func (s *stubResolver) Lookup(_ context.Context, doi string) (unpaywall.Location, error) {
	s.calls = append(s.calls, doi)
	if err, ok := s.errs[doi]; ok {
		return unpaywall.Location{}, err
	}
	return unpaywall.Location{PDFURL: s.links[doi], HostType: "repository"}, nil
}

// newPDFServer serves pdfBody under /ok/ and counts requests.
func newPDFServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ok/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdfBody)
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		w.Write(bytes.Repeat([]byte("<html>login required</html>"), 100))
	})
	mux.HandleFunc("/tiny", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("%PDF-1.4\n%%EOF"))
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/truncated", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Length", strconv.Itoa(len(pdfBody)*4))
		w.Write(pdfBody)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestReconciler(ts *httptest.Server, resolver LinkResolver, dir string) *Reconciler {
	return New(ts.Client(), resolver, types.DownloadConfig{OutputDir: dir}, zerolog.Nop())
}

func record(id, doi string) types.PaperRecord {
	return types.PaperRecord{ID: id, Title: "Paper " + id, DOI: doi}
}

// dirNames lists the entries in dir, or nil if it does not exist.
func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestResolve_DownloadsThenIdempotent(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	dir := filepath.Join(t.TempDir(), "pdfs")
	res := &stubResolver{links: map[string]string{
		"10.1/a": ts.URL + "/ok/a.pdf",
		"10.1/b": ts.URL + "/ok/b.pdf",
	}}
	rec := newTestReconciler(ts, res, dir)
	records := []types.PaperRecord{record("111", "10.1/a"), record("222", "10.1/b")}

	first := rec.Resolve(context.Background(), records, Selection{All: true})
	require.Len(t, first, 2)
	for _, o := range first {
		assert.Equal(t, StatusDownloaded, o.Status, o.Record.ID)
		assert.NoError(t, o.Err)
		data, err := os.ReadFile(o.Path)
		require.NoError(t, err)
		assert.Equal(t, pdfBody, data)
	}
	assert.Equal(t, filepath.Join(dir, "111.pdf"), first[0].Path)
	assert.Equal(t, "repository", first[0].Host)
	assert.ElementsMatch(t, []string{"111.pdf", "222.pdf"}, dirNames(t, dir))

	lookups, downloads := len(res.calls), hits.Load()
	second := rec.Resolve(context.Background(), records, Selection{All: true})
	require.Len(t, second, 2)
	for _, o := range second {
		assert.Equal(t, StatusAlreadyPresent, o.Status)
	}
	assert.Len(t, res.calls, lookups, "no lookups on second run")
	assert.Equal(t, downloads, hits.Load(), "no downloads on second run")
}

func TestResolve_SelectionBeyondCorpus(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	res := &stubResolver{links: map[string]string{
		"10.1/a": ts.URL + "/ok/a.pdf",
		"10.1/b": ts.URL + "/ok/b.pdf",
	}}
	rec := newTestReconciler(ts, res, t.TempDir())
	records := []types.PaperRecord{record("111", "10.1/a"), record("222", "10.1/b")}

	outcomes := rec.Resolve(context.Background(), records, Selection{Indices: []int{1, 2, 3}})
	require.Len(t, outcomes, 2)
	assert.Equal(t, 1, outcomes[0].Index)
	assert.Equal(t, 2, outcomes[1].Index)

	assert.Empty(t, rec.Resolve(context.Background(), records, Selection{Indices: []int{3}}))
}

func TestResolve_SelectionOrderAndDuplicates(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	res := &stubResolver{}
	rec := newTestReconciler(ts, res, t.TempDir())
	records := []types.PaperRecord{
		record("1", "10.1/a"), record("2", "10.1/b"), record("3", "10.1/c"),
	}

	var progress []int
	rec.OnProgress(func(n, total int, o Outcome) {
		assert.Equal(t, 2, total)
		progress = append(progress, n)
	})

	outcomes := rec.Resolve(context.Background(), records, Selection{Indices: []int{3, 1, 3, 0, -2}})
	require.Len(t, outcomes, 2)
	assert.Equal(t, []int{1, 2}, progress)
	assert.Equal(t, []int{1, 3}, []int{outcomes[0].Index, outcomes[1].Index})
	assert.Equal(t, []string{"10.1/a", "10.1/c"}, res.calls)
}

func TestResolve_NoDOIMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	res := &stubResolver{}
	rec := newTestReconciler(ts, res, t.TempDir())

	outcomes := rec.Resolve(context.Background(), []types.PaperRecord{record("111", "")}, Selection{Indices: []int{1}})
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusLookupFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, ErrNoDOI)
	assert.Empty(t, res.calls)
	assert.Zero(t, hits.Load())
}

func TestResolve_PerItemFailuresAreIsolated(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	dir := t.TempDir()
	res := &stubResolver{
		links: map[string]string{
			"10.1/ok":        ts.URL + "/ok/x.pdf",
			"10.1/html":      ts.URL + "/html",
			"10.1/tiny":      ts.URL + "/tiny",
			"10.1/forbidden": ts.URL + "/forbidden",
			"10.1/truncated": ts.URL + "/truncated",
		},
		errs: map[string]error{
			"10.1/broken": &types.RemoteAPIError{Source: "Unpaywall", StatusCode: 500},
		},
	}
	rec := newTestReconciler(ts, res, dir)
	records := []types.PaperRecord{
		record("1", "10.1/broken"),
		record("2", "10.1/closed"),
		record("3", "10.1/html"),
		record("4", "10.1/tiny"),
		record("5", "10.1/forbidden"),
		record("6", "10.1/truncated"),
		record("7", "10.1/ok"),
	}

	outcomes := rec.Resolve(context.Background(), records, Selection{All: true})
	require.Len(t, outcomes, 7)

	assert.Equal(t, StatusLookupFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, types.ErrRemoteAPI)

	assert.Equal(t, StatusNoLink, outcomes[1].Status)
	assert.NoError(t, outcomes[1].Err)

	assert.Equal(t, StatusDownloadFailed, outcomes[2].Status)
	assert.ErrorIs(t, outcomes[2].Err, ErrNotPDF)

	assert.Equal(t, StatusDownloadFailed, outcomes[3].Status)
	assert.ErrorIs(t, outcomes[3].Err, ErrTooSmall)

	assert.Equal(t, StatusDownloadFailed, outcomes[4].Status)
	assert.Contains(t, outcomes[4].Err.Error(), "HTTP 403")

	assert.Equal(t, StatusDownloadFailed, outcomes[5].Status)
	assert.Error(t, outcomes[5].Err)

	assert.Equal(t, StatusDownloaded, outcomes[6].Status)

	// Only the good download is on disk; failed transfers leave nothing behind.
	assert.Equal(t, []string{"7.pdf"}, dirNames(t, dir))

	s := Summarize(outcomes)
	assert.Equal(t, Summary{
		Selected:       7,
		Downloaded:     1,
		NoLink:         1,
		LookupFailed:   1,
		DownloadFailed: 4,
	}, s)
	assert.Equal(t, 5, s.Failed())
}

func TestResolve_PartialFileIsRetried(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	dir := t.TempDir()
	res := &stubResolver{links: map[string]string{"10.1/a": ts.URL + "/truncated"}}
	rec := newTestReconciler(ts, res, dir)
	records := []types.PaperRecord{record("111", "10.1/a")}

	first := rec.Resolve(context.Background(), records, Selection{All: true})
	require.Len(t, first, 1)
	assert.Equal(t, StatusDownloadFailed, first[0].Status)
	assert.NoFileExists(t, filepath.Join(dir, "111.pdf"))

	res.links["10.1/a"] = ts.URL + "/ok/a.pdf"
	second := rec.Resolve(context.Background(), records, Selection{All: true})
	require.Len(t, second, 1)
	assert.Equal(t, StatusDownloaded, second[0].Status, "a failed transfer is not mistaken for a present file")
}

func TestResolve_CanceledContext(t *testing.T) {
	var hits atomic.Int32
	ts := newPDFServer(t, &hits)
	res := &stubResolver{}
	rec := newTestReconciler(ts, res, t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := rec.Resolve(ctx, []types.PaperRecord{record("1", "10.1/a")}, Selection{All: true})
	assert.Empty(t, outcomes)
	assert.Empty(t, res.calls)
}

func TestTargetName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"85012345678", "85012345678.pdf"},
		{"2-s2.0-850123", "2-s2.0-850123.pdf"},
		{"a/b:c", "a_b_c.pdf"},
		{" ../etc/passwd ", "etc_passwd.pdf"},
		{"", "unknown.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetName(types.PaperRecord{ID: tt.id}), tt.id)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	outcomes := []Outcome{
		{Index: 1, Record: record("1", "10.1/a"), Status: StatusDownloaded, Path: "pdfs/1.pdf", Link: "https://x/a.pdf", Host: "publisher"},
		{Index: 2, Record: record("2", ""), Status: StatusLookupFailed, Path: "pdfs/2.pdf", Err: ErrNoDOI},
	}

	require.NoError(t, WriteReport(path, NewReport("papers_20240101_000000.json", "pdfs", outcomes)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Report
	require.NoError(t, yaml.Unmarshal(data, &got))

	assert.Equal(t, "papers_20240101_000000.json", got.Snapshot)
	assert.Equal(t, Summary{Selected: 2, Downloaded: 1, LookupFailed: 1}, got.Summary)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "pdfs/1.pdf", got.Items[0].Path)
	assert.Equal(t, StatusDownloaded, got.Items[0].Status)
	assert.Empty(t, got.Items[1].Path, "no path for items without a file")
	assert.Equal(t, ErrNoDOI.Error(), got.Items[1].Error)
	assert.Contains(t, string(data), "status: lookup-failed")
}

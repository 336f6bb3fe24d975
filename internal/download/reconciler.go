// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download reconciles a selection of corpus records with the PDFs
// on disk. Each selected record ends in exactly one Outcome; per-item
// failures never abort the batch. A record whose target file already exists
// is reported as present without touching the network, so running the same
// selection twice downloads nothing the second time.
package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-search/internal/httputil"
	"github.com/pdiddy/paper-search/internal/unpaywall"
	"github.com/pdiddy/paper-search/pkg/types"
)

// Status is the terminal state of one selected record.
type Status string

const (
	StatusAlreadyPresent Status = "already-present"
	StatusDownloaded     Status = "downloaded"
	StatusNoLink         Status = "no-open-access-link"
	StatusLookupFailed   Status = "lookup-failed"
	StatusDownloadFailed Status = "download-failed"
)

// MinPDFSize is the smallest body accepted as a PDF. Smaller bodies are
// almost always error pages served with a 200.
const MinPDFSize = 1000

var pdfMagic = []byte("%PDF")

// Errors recorded on outcomes.
var (
	ErrNoDOI    = errors.New("record has no DOI")
	ErrNotPDF   = errors.New("response is not a PDF")
	ErrTooSmall = errors.New("response too small to be a PDF")
)

// Outcome is the result for one selected record.
type Outcome struct {
	Index  int
	Record types.PaperRecord
	Status Status
	Path   string
	Link   string
	Host   string
	Err    error
}

// LinkResolver finds an open-access location for a DOI.
type LinkResolver interface {
	Lookup(ctx context.Context, doi string) (unpaywall.Location, error)
}

// Reconciler downloads selected records into a directory.
type Reconciler struct {
	http      *http.Client
	resolver  LinkResolver
	dir       string
	userAgent string
	pacer     *rate.Limiter
	progress  func(n, total int, o Outcome)
	log       zerolog.Logger
}

// New creates a Reconciler writing into cfg.OutputDir. Items that touch
// the network are spaced at least cfg.Delay apart; a non-positive delay
// disables pacing.
func New(client *http.Client, resolver LinkResolver, cfg types.DownloadConfig, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		http:      client,
		resolver:  resolver,
		dir:       cfg.OutputDir,
		userAgent: cfg.UserAgent,
		pacer:     httputil.NewPacer(cfg.Delay),
		log:       log.With().Str("component", "download").Logger(),
	}
}

// OnProgress registers fn to be called after each outcome with its
// 1-based position among the in-range selected records.
func (r *Reconciler) OnProgress(fn func(n, total int, o Outcome)) {
	r.progress = fn
}

// Dir returns the output directory.
func (r *Reconciler) Dir() string { return r.dir }

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// TargetName returns the filename a record is stored under: its
// identifier with unsafe characters replaced, plus ".pdf".
func TargetName(rec types.PaperRecord) string {
	name := unsafeChars.ReplaceAllString(strings.TrimSpace(rec.ID), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "unknown"
	}
	return name + ".pdf"
}

// Resolve reconciles the selected records and returns one outcome per
// in-range selected index, in ascending index order. It stops early only
// when ctx is canceled; the outcomes gathered so far are returned.
func (r *Reconciler) Resolve(ctx context.Context, records []types.PaperRecord, sel Selection) []Outcome {
	selected, skipped := sel.indices(len(records))
	if len(skipped) > 0 {
		r.log.Debug().Ints("indices", skipped).Int("records", len(records)).Msg("out-of-range selection skipped")
	}

	outcomes := make([]Outcome, 0, len(selected))
	for _, idx := range selected {
		if ctx.Err() != nil {
			r.log.Warn().Int("remaining", len(selected)-len(outcomes)).Msg("download interrupted")
			break
		}
		out := r.resolveOne(ctx, idx, records[idx-1])
		var ev *zerolog.Event
		if out.Err != nil {
			ev = r.log.Warn().Err(out.Err)
		} else {
			ev = r.log.Info()
		}
		ev.Int("index", idx).Str("id", out.Record.ID).Str("status", string(out.Status)).Msg("reconciled")
		outcomes = append(outcomes, out)
		if r.progress != nil {
			r.progress(len(outcomes), len(selected), out)
		}
	}
	return outcomes
}

func (r *Reconciler) resolveOne(ctx context.Context, idx int, rec types.PaperRecord) Outcome {
	out := Outcome{
		Index:  idx,
		Record: rec,
		Path:   filepath.Join(r.dir, TargetName(rec)),
	}

	if !rec.HasDOI() {
		out.Status = StatusLookupFailed
		out.Err = ErrNoDOI
		return out
	}

	if _, err := os.Stat(out.Path); err == nil {
		out.Status = StatusAlreadyPresent
		return out
	}

	if err := r.pacer.Wait(ctx); err != nil {
		out.Status = StatusLookupFailed
		out.Err = err
		return out
	}

	loc, err := r.resolver.Lookup(ctx, rec.DOI)
	if err != nil {
		out.Status = StatusLookupFailed
		out.Err = err
		return out
	}
	if loc.PDFURL == "" {
		out.Status = StatusNoLink
		return out
	}
	out.Link = loc.PDFURL
	out.Host = loc.HostType

	if err := r.fetch(ctx, loc.PDFURL, out.Path); err != nil {
		out.Status = StatusDownloadFailed
		out.Err = err
		return out
	}
	out.Status = StatusDownloaded
	return out
}

// fetch streams url into destPath through a temp file in the same
// directory. The body must look like a PDF. On any failure the temp file
// is removed and destPath is left untouched.
func (r *Reconciler) fetch(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(destPath), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}

	body := bufio.NewReader(resp.Body)
	head, err := body.Peek(len(pdfMagic))
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return ErrNotPDF
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if n < MinPDFSize {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %d bytes", ErrTooSmall, n)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Summary counts outcomes per status.
type Summary struct {
	Selected       int `yaml:"selected"`
	AlreadyPresent int `yaml:"already_present"`
	Downloaded     int `yaml:"downloaded"`
	NoLink         int `yaml:"no_open_access_link"`
	LookupFailed   int `yaml:"lookup_failed"`
	DownloadFailed int `yaml:"download_failed"`
}

// Failed returns the number of outcomes that did not end with a file on disk
// for a reason other than a missing open-access copy.
func (s Summary) Failed() int {
	return s.LookupFailed + s.DownloadFailed
}

// Summarize counts outcomes per status.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Selected: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusAlreadyPresent:
			s.AlreadyPresent++
		case StatusDownloaded:
			s.Downloaded++
		case StatusNoLink:
			s.NoLink++
		case StatusLookupFailed:
			s.LookupFailed++
		case StatusDownloadFailed:
			s.DownloadFailed++
		}
	}
	return s
}

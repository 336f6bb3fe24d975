// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review formats corpus snapshots and download outcomes for the
// agent driving the tool: a Markdown review document for search results,
// a numbered paper list to select from, and per-item download progress
// with a closing summary.
package review

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-search/internal/download"
	"github.com/pdiddy/paper-search/pkg/types"
)

const (
	reviewAuthors  = 5
	reviewKeywords = 10
	listAuthors    = 3
	listTitleWidth = 60
	progressWidth  = 50
	ruleWidth      = 80
)

// WriteMarkdown writes the review document for snap. Each record is a
// numbered section whose number matches the index accepted by download
// --select.
func WriteMarkdown(w io.Writer, snap types.CorpusSnapshot) error {
	var b strings.Builder

	b.WriteString("# Paper Search Results for Review\n\n")
	fmt.Fprintf(&b, "**Search Query:** `%s`\n", snap.Query.Expression)
	fmt.Fprintf(&b, "**Total Papers:** %d\n", len(snap.Records))
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", snap.Created.Format(time.RFC3339))

	for i, r := range snap.Records {
		fmt.Fprintf(&b, "## Paper %d: %s\n\n", i+1, r.Title)
		fmt.Fprintf(&b, "**Scopus ID:** %s\n", r.ID)
		fmt.Fprintf(&b, "**Authors:** %s\n", joinLimited(r.Authors, reviewAuthors))
		fmt.Fprintf(&b, "**Publication:** %s\n", r.Venue)
		fmt.Fprintf(&b, "**Date:** %s\n", date(r))
		fmt.Fprintf(&b, "**Citations:** %s\n", citations(r))
		if r.HasDOI() {
			fmt.Fprintf(&b, "**DOI:** https://doi.org/%s\n", r.DOI)
		}
		if len(r.Keywords) > 0 {
			fmt.Fprintf(&b, "**Keywords:** %s\n", strings.Join(r.Keywords[:min(len(r.Keywords), reviewKeywords)], ", "))
		}

		b.WriteString("\n### Abstract\n\n")
		if r.Abstract != "" {
			b.WriteString(r.Abstract)
		} else {
			b.WriteString("No abstract available.")
		}
		b.WriteString("\n\n---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteList writes the numbered paper list used to choose a selection.
func WriteList(w io.Writer, records []types.PaperRecord) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Available Papers")
	fmt.Fprintln(w, rule)

	if len(records) == 0 {
		fmt.Fprintln(w, "\nNo papers in snapshot.")
	}
	withDOI := 0
	for i, r := range records {
		doi := "[No DOI]"
		if r.HasDOI() {
			doi = "[DOI]"
			withDOI++
		}
		fmt.Fprintf(w, "\n%3d. %s\n", i+1, truncate(r.Title, listTitleWidth))
		fmt.Fprintf(w, "     Authors: %s\n", joinLimited(r.Authors, listAuthors))
		fmt.Fprintf(w, "     %s (%s)\n", r.Venue, year(r))
		fmt.Fprintf(w, "     Citations: %s %s\n", citations(r), doi)
	}

	fmt.Fprintf(w, "\n%d papers, %d with DOI\n", len(records), withDOI)
	fmt.Fprintln(w, rule)
}

// WriteProgress writes one line for an outcome, numbered n of total.
func WriteProgress(w io.Writer, n, total int, o download.Outcome) {
	title := truncate(o.Record.Title, progressWidth)
	switch o.Status {
	case download.StatusDownloaded:
		host := ""
		if o.Host != "" {
			host = " (" + o.Host + ")"
		}
		fmt.Fprintf(w, "[%d/%d] downloaded%s: %s\n", n, total, host, title)
	case download.StatusAlreadyPresent:
		fmt.Fprintf(w, "[%d/%d] already present: %s\n", n, total, title)
	case download.StatusNoLink:
		fmt.Fprintf(w, "[%d/%d] no open-access link: %s\n", n, total, title)
	default:
		reason := ""
		if o.Err != nil {
			reason = " - " + o.Err.Error()
		}
		fmt.Fprintf(w, "[%d/%d] %s%s: %s\n", n, total, o.Status, reason, title)
	}
}

// WriteSummary writes the closing download summary.
func WriteSummary(w io.Writer, outcomes []download.Outcome, dir string) {
	s := download.Summarize(outcomes)
	rule := strings.Repeat("=", ruleWidth)

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "Download Summary")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Selected:            %d\n", s.Selected)
	fmt.Fprintf(w, "Downloaded:          %d\n", s.Downloaded)
	fmt.Fprintf(w, "Already present:     %d\n", s.AlreadyPresent)
	fmt.Fprintf(w, "No open-access link: %d\n", s.NoLink)
	fmt.Fprintf(w, "Lookup failed:       %d\n", s.LookupFailed)
	fmt.Fprintf(w, "Download failed:     %d\n", s.DownloadFailed)

	hosts := make(map[string]int)
	for _, o := range outcomes {
		if o.Status == download.StatusDownloaded && o.Host != "" {
			hosts[o.Host]++
		}
	}
	if len(hosts) > 0 {
		fmt.Fprintln(w, "\nDownload sources:")
		for _, h := range sortedKeys(hosts) {
			fmt.Fprintf(w, "  - %s: %d\n", h, hosts[h])
		}
	}

	fmt.Fprintf(w, "\nDownload directory: %s\n", dir)
	fmt.Fprintln(w, rule)
}

func joinLimited(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:limit], ", ") + "..."
}

func citations(r types.PaperRecord) string {
	if r.CitationCount == nil {
		return "n/a"
	}
	return strconv.Itoa(*r.CitationCount)
}

func date(r types.PaperRecord) string {
	if r.CoverDate != "" {
		return r.CoverDate
	}
	return year(r)
}

func year(r types.PaperRecord) string {
	if r.Year == 0 {
		return "n.d."
	}
	return strconv.Itoa(r.Year)
}

// truncate shortens s to at most max runes, ending with "...".
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

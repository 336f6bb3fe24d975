// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/corpus"
	"github.com/pdiddy/paper-search/internal/query"
	"github.com/pdiddy/paper-search/internal/review"
	"github.com/pdiddy/paper-search/internal/scopus"
	"github.com/pdiddy/paper-search/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search Scopus and save the results as a corpus snapshot",
	Long: `Search builds a Scopus query from a topic plus optional required terms,
alternative terms, excluded terms, year bounds and subject areas, or takes a
raw Scopus query with --query. Results are fetched page by page, deduplicated,
saved to a timestamped snapshot, and printed as a Markdown review document
whose paper numbers are the indices accepted by download --select.

Every --additional term must match, so each one narrows the results. Use
--additional-any for terms where any one match is enough.

With --load an existing snapshot is reprinted without contacting Scopus.`,
	Example: `  paper-search search -t "graph neural networks" -a "molecular" -e survey --year-from 2020
  paper-search search -q 'TITLE-ABS-KEY("transformers") AND PUBYEAR > 2021' -c 100
  paper-search search --load data/papers/papers_20240101_120000.json -o review.md`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringP("topic", "t", "", "main search topic")
	searchCmd.Flags().StringP("query", "q", "", "raw Scopus query (overrides query building)")
	searchCmd.Flags().StringArrayP("additional", "a", nil, "additional required term (repeatable)")
	searchCmd.Flags().StringArray("additional-any", nil, "alternative term, any one must match (repeatable)")
	searchCmd.Flags().StringArrayP("exclude", "e", nil, "term to exclude (repeatable or comma-separated)")
	searchCmd.Flags().IntP("count", "c", 30, "number of papers to fetch")
	searchCmd.Flags().Int("year-from", 0, "earliest publication year")
	searchCmd.Flags().Int("year-to", 0, "latest publication year")
	searchCmd.Flags().StringArray("subject", nil, "Scopus subject area code such as COMP or ENGI (repeatable or comma-separated)")
	searchCmd.Flags().String("sort", scopus.DefaultSort, "Scopus sort order (relevancy, -citedby-count, -coverDate)")
	searchCmd.Flags().StringP("load", "l", "", "print an existing snapshot instead of searching")
	searchCmd.Flags().StringP("output", "o", "", "write the review document to this file instead of stdout")
	searchCmd.Flags().Bool("no-save", false, "do not save a snapshot")
	searchCmd.Flags().String("papers-dir", defaultPapersDir, "snapshot directory")

	searchCmd.MarkFlagsMutuallyExclusive("load", "topic")
	searchCmd.MarkFlagsMutuallyExclusive("load", "query")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"sort":       "scopus.sort",
		"papers-dir": "corpus.papers_dir",
	}); err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		snap, err := corpus.LoadExplicit(path)
		if err != nil {
			return err
		}
		logger.Info().Str("path", path).Int("papers", len(snap.Records)).Msg("loaded snapshot")
		return writeReview(cmd.OutOrStdout(), output, snap)
	}

	params := query.Params{}
	params.Topic, _ = cmd.Flags().GetString("topic")
	params.Raw, _ = cmd.Flags().GetString("query")
	params.Additional, _ = cmd.Flags().GetStringArray("additional")
	params.AdditionalAny, _ = cmd.Flags().GetStringArray("additional-any")
	params.YearFrom, _ = cmd.Flags().GetInt("year-from")
	params.YearTo, _ = cmd.Flags().GetInt("year-to")
	exclude, _ := cmd.Flags().GetStringArray("exclude")
	params.Exclude = splitAll(exclude)
	subjects, _ := cmd.Flags().GetStringArray("subject")
	params.SubjectAreas = splitAll(subjects)

	q, err := query.Build(params)
	if err != nil {
		return err
	}
	count, _ := cmd.Flags().GetInt("count")
	if count <= 0 {
		return types.NewValidationError("count", fmt.Sprintf("must be positive, got %d", count))
	}
	logger.Info().Str("query", q.Expression).Int("count", count).Msg("searching Scopus")

	cfg := searchConfig()
	client := scopus.New(&http.Client{Timeout: cfg.Timeout}, cfg, logger)
	records, err := client.Fetch(cmd.Context(), q.Expression, count)
	if err != nil {
		return err
	}
	logger.Info().Int("papers", len(records)).Msg("search complete")

	snap := types.CorpusSnapshot{
		Query:   q,
		Created: time.Now(),
		Records: records,
	}

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		store := corpus.NewStore(corpusConfig(), logger)
		path, err := store.Save(snap)
		if err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("snapshot saved")
	}

	return writeReview(cmd.OutOrStdout(), output, snap)
}

// writeReview writes the Markdown review to path, or to w when path is empty.
func writeReview(w io.Writer, path string, snap types.CorpusSnapshot) error {
	if path == "" {
		return review.WriteMarkdown(w, snap)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating review file: %w", err)
	}
	if err := review.WriteMarkdown(f, snap); err != nil {
		f.Close()
		return fmt.Errorf("writing review file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing review file: %w", err)
	}
	logger.Info().Str("path", path).Msg("review written")
	return nil
}

// splitAll flattens repeatable flag values that may also be comma-separated.
func splitAll(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, query.SplitTerms(v)...)
	}
	return out
}

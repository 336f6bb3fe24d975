// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/corpus"
	"github.com/pdiddy/paper-search/internal/download"
	"github.com/pdiddy/paper-search/internal/review"
	"github.com/pdiddy/paper-search/internal/unpaywall"
	"github.com/pdiddy/paper-search/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download open-access PDFs for papers in a snapshot",
	Long: `Download loads a corpus snapshot (the latest by default, or --load path),
resolves each selected paper's DOI through Unpaywall and saves the PDF under
the output directory as <scopus-id>.pdf.

Papers whose file already exists are skipped without any network call, so a
selection can be re-run safely. Per-paper failures are reported in the
summary and do not stop the run.

Use --list-only to print the numbered paper list, then --select with indices
and ranges (1,3,5-10) or --all.`,
	Example: `  paper-search download --list-only
  paper-search download --select 1,3,5-10
  paper-search download --load data/papers/papers_20240101_120000.json --all --report run.yaml`,
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().Bool("latest", false, "use the most recent snapshot (the default)")
	downloadCmd.Flags().StringP("load", "l", "", "snapshot file to load")
	downloadCmd.Flags().StringP("select", "s", "", "papers to download: indices and ranges such as 1,3,5-10")
	downloadCmd.Flags().Bool("all", false, "download every paper in the snapshot")
	downloadCmd.Flags().StringP("output-dir", "o", defaultPDFDir, "directory for downloaded PDFs")
	downloadCmd.Flags().Bool("list-only", false, "print the numbered paper list and exit")
	downloadCmd.Flags().String("report", "", "write a YAML report of the outcomes to this file")
	downloadCmd.Flags().Duration("delay", defaultDelay, "minimum spacing between papers that need network access")
	downloadCmd.Flags().Bool("scrape-landing", false, "read citation_pdf_url from landing pages when Unpaywall has no PDF link")
	downloadCmd.Flags().String("email", "", "email address sent to Unpaywall (default $UNPAYWALL_EMAIL)")
	downloadCmd.Flags().String("papers-dir", defaultPapersDir, "snapshot directory")

	downloadCmd.MarkFlagsMutuallyExclusive("latest", "load")
	downloadCmd.MarkFlagsMutuallyExclusive("select", "all")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{
		"output-dir":     "download.output_dir",
		"delay":          "download.delay",
		"scrape-landing": "download.scrape_landing",
		"email":          "unpaywall.email",
		"papers-dir":     "corpus.papers_dir",
	}); err != nil {
		return err
	}

	snap, snapPath, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}
	logger.Info().Str("path", snapPath).Int("papers", len(snap.Records)).Msg("loaded snapshot")

	out := cmd.OutOrStdout()
	if listOnly, _ := cmd.Flags().GetBool("list-only"); listOnly {
		review.WriteList(out, snap.Records)
		return nil
	}

	sel, err := selection(cmd)
	if err != nil {
		return err
	}

	cfg := downloadConfig()
	if cfg.Email == "" {
		return types.NewValidationError("email", "Unpaywall requires an email address (set UNPAYWALL_EMAIL or --email)")
	}

	client := &http.Client{Timeout: cfg.Timeout}
	rec := download.New(client, unpaywall.New(client, cfg, logger), cfg, logger)
	rec.OnProgress(func(n, total int, o download.Outcome) {
		review.WriteProgress(out, n, total, o)
	})

	outcomes := rec.Resolve(cmd.Context(), snap.Records, sel)
	review.WriteSummary(out, outcomes, rec.Dir())

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := download.WriteReport(path, download.NewReport(snapPath, rec.Dir(), outcomes)); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("report written")
	}

	// Per-paper failures are outcomes, not errors; only an interrupt fails the run.
	return cmd.Context().Err()
}

// loadSnapshot returns the snapshot named by --load, or the latest one.
func loadSnapshot(cmd *cobra.Command) (types.CorpusSnapshot, string, error) {
	if path, _ := cmd.Flags().GetString("load"); path != "" {
		snap, err := corpus.LoadExplicit(path)
		return snap, path, err
	}
	return corpus.NewStore(corpusConfig(), logger).LoadLatest()
}

// selection builds the Selection from --all or --select.
func selection(cmd *cobra.Command) (download.Selection, error) {
	if all, _ := cmd.Flags().GetBool("all"); all {
		return download.Selection{All: true}, nil
	}
	s, _ := cmd.Flags().GetString("select")
	if s == "" {
		return download.Selection{}, types.NewValidationError("selection", "use --select or --all (run with --list-only to see indices)")
	}
	return download.ParseSelection(s)
}

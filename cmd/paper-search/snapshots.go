// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-search/internal/corpus"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List saved corpus snapshots",
	Long: `Snapshots lists the corpus snapshots in the papers directory, oldest
first, with their creation time, paper count and query. The last one listed is
the snapshot download uses by default.`,
	RunE: runSnapshots,
}

func init() {
	snapshotsCmd.Flags().String("papers-dir", defaultPapersDir, "snapshot directory")

	rootCmd.AddCommand(snapshotsCmd)
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd, map[string]string{"papers-dir": "corpus.papers_dir"}); err != nil {
		return err
	}

	infos, err := corpus.NewStore(corpusConfig(), logger).List()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No snapshots found.")
		return nil
	}

	fmt.Fprintf(w, "%-30s  %-19s  %6s  %s\n", "Snapshot", "Created", "Papers", "Query")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, info := range infos {
		q := info.Query
		if len(q) > 40 {
			q = q[:37] + "..."
		}
		fmt.Fprintf(w, "%-30s  %-19s  %6d  %s\n",
			info.Name, info.Created.Local().Format(time.DateTime), info.Count, q)
	}
	fmt.Fprintf(w, "\n%d snapshots\n", len(infos))
	return nil
}

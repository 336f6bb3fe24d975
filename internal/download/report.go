// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// Report is the YAML document written by WriteReport.
type Report struct {
	Snapshot  string        `yaml:"snapshot,omitempty"`
	OutputDir string        `yaml:"output_dir"`
	Finished  time.Time     `yaml:"finished"`
	Summary   Summary       `yaml:"summary"`
	Items     []ReportEntry `yaml:"items"`
}

// ReportEntry is one outcome in a Report.
type ReportEntry struct {
	Index  int    `yaml:"index"`
	ID     string `yaml:"id"`
	Title  string `yaml:"title,omitempty"`
	DOI    string `yaml:"doi,omitempty"`
	Status Status `yaml:"status"`
	Path   string `yaml:"path,omitempty"`
	Link   string `yaml:"link,omitempty"`
	Host   string `yaml:"host_type,omitempty"`
	Error  string `yaml:"error,omitempty"`
}

// NewReport builds a report from outcomes. Paths are only recorded for
// outcomes that left a file on disk.
func NewReport(snapshot, outputDir string, outcomes []Outcome) Report {
	rep := Report{
		Snapshot:  snapshot,
		OutputDir: outputDir,
		Finished:  time.Now().UTC().Truncate(time.Second),
		Summary:   Summarize(outcomes),
		Items:     make([]ReportEntry, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		e := ReportEntry{
			Index:  o.Index,
			ID:     o.Record.ID,
			Title:  o.Record.Title,
			DOI:    o.Record.DOI,
			Status: o.Status,
			Link:   o.Link,
			Host:   o.Host,
		}
		if o.Status == StatusDownloaded || o.Status == StatusAlreadyPresent {
			e.Path = o.Path
		}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		rep.Items = append(rep.Items, e)
	}
	return rep
}

// WriteReport writes rep as YAML to path, creating parent directories.
func WriteReport(path string, rep Report) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists search results as timestamped JSON snapshots.
// Each search writes a new papers_<YYYYMMDD>_<HHMMSS>.json file; existing
// snapshots are never rewritten. The most recent snapshot is the one with
// the lexicographically greatest name, which the naming scheme keeps equal
// to the newest. There is a single writer per directory, so no locking.
package corpus

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-search/pkg/types"
)

const (
	filePrefix = "papers_"
	fileExt    = ".json"
	timeLayout = "20060102_150405"
)

// Store reads and writes snapshots in a single directory.
type Store struct {
	dir string
	log zerolog.Logger
}

// SnapshotInfo describes a stored snapshot without its records.
type SnapshotInfo struct {
	Name    string
	Path    string
	Created time.Time
	Count   int
	Query   string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first Save.
func NewStore(cfg types.CorpusConfig, log zerolog.Logger) *Store {
	return &Store{
		dir: cfg.PapersDir,
		log: log.With().Str("component", "corpus").Logger(),
	}
}

// Dir returns the snapshot directory.
func (s *Store) Dir() string { return s.dir }

// FileName returns the snapshot filename for a creation time.
func FileName(created time.Time) string {
	return filePrefix + created.Format(timeLayout) + fileExt
}

// Save writes snap to a new file named after snap.Created and returns its
// path. A zero Created is set to the current time. The content is written
// to a temp file and renamed into place; an existing snapshot with the same
// name is never replaced.
func (s *Store) Save(snap types.CorpusSnapshot) (string, error) {
	if snap.Created.IsZero() {
		snap.Created = time.Now()
	}
	if snap.Records == nil {
		snap.Records = []types.PaperRecord{}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot directory %s: %w", s.dir, err)
	}

	path := filepath.Join(s.dir, FileName(snap.Created))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("snapshot %s: %w", path, fs.ErrExist)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, ".papers-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing snapshot: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("renaming temp file: %w", err)
	}

	s.log.Debug().Str("path", path).Int("records", len(snap.Records)).Msg("snapshot saved")
	return path, nil
}

// LoadLatest loads the newest snapshot and returns it with its path.
func (s *Store) LoadLatest() (types.CorpusSnapshot, string, error) {
	names, err := s.snapshotNames()
	if err != nil {
		return types.CorpusSnapshot{}, "", err
	}
	if len(names) == 0 {
		return types.CorpusSnapshot{}, "", &types.NotFoundError{Entity: "snapshot", Path: s.dir}
	}
	path := filepath.Join(s.dir, names[len(names)-1])
	snap, err := LoadExplicit(path)
	return snap, path, err
}

// List returns all snapshots, oldest first. Unreadable snapshots are
// logged and skipped.
func (s *Store) List() ([]SnapshotInfo, error) {
	names, err := s.snapshotNames()
	if err != nil {
		return nil, err
	}
	infos := make([]SnapshotInfo, 0, len(names))
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		snap, err := LoadExplicit(path)
		if err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable snapshot")
			continue
		}
		infos = append(infos, SnapshotInfo{
			Name:    name,
			Path:    path,
			Created: snap.Created,
			Count:   len(snap.Records),
			Query:   snap.Query.Expression,
		})
	}
	return infos, nil
}

// snapshotNames returns the snapshot filenames in the directory, sorted.
// A missing directory is a NotFoundError.
func (s *Store) snapshotNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.NotFoundError{Entity: "snapshot directory", Path: s.dir}
		}
		return nil, fmt.Errorf("reading snapshot directory %s: %w", s.dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// snapshotFile mirrors CorpusSnapshot with pointer fields so missing keys
// can be told apart from empty values.
type snapshotFile struct {
	Query   *types.SearchQuery   `json:"query"`
	Created *time.Time           `json:"created"`
	Records *[]types.PaperRecord `json:"records"`
}

// LoadExplicit reads the snapshot at path. A missing file is a
// NotFoundError; content that is not a well-formed snapshot is a
// CorruptDataError and nothing from it is returned.
func LoadExplicit(path string) (types.CorpusSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.CorpusSnapshot{}, &types.NotFoundError{Entity: "snapshot", Path: path}
		}
		return types.CorpusSnapshot{}, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	var f snapshotFile
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&f); err != nil {
		return types.CorpusSnapshot{}, &types.CorruptDataError{Path: path, Reason: "invalid JSON", Cause: err}
	}
	if dec.More() {
		return types.CorpusSnapshot{}, &types.CorruptDataError{Path: path, Reason: "trailing data after snapshot object"}
	}
	if f.Records == nil {
		return types.CorpusSnapshot{}, &types.CorruptDataError{Path: path, Reason: `missing "records" array`}
	}
	if f.Created == nil || f.Created.IsZero() {
		return types.CorpusSnapshot{}, &types.CorruptDataError{Path: path, Reason: `missing "created" timestamp`}
	}
	for i, r := range *f.Records {
		if strings.TrimSpace(r.ID) == "" {
			return types.CorpusSnapshot{}, &types.CorruptDataError{
				Path:   path,
				Reason: fmt.Sprintf("record %d has no identifier", i+1),
			}
		}
	}

	snap := types.CorpusSnapshot{
		Created: *f.Created,
		Records: *f.Records,
	}
	if f.Query != nil {
		snap.Query = *f.Query
	}
	return snap, nil
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the fixed per-request timeout. A timeout counts as a
	// failed request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-search/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// BaseURL overrides the remote API endpoint. Empty means the public
	// service.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// SearchConfig holds settings for the Scopus search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the Elsevier API key sent as the X-ELS-APIKey header.
	APIKey string `json:"-" yaml:"-"`

	// Sort is the Scopus sort order (e.g. "relevancy", "-citedby-count").
	Sort string `json:"sort" yaml:"sort"`

	// MaxAttempts caps the attempts per page when Scopus throttles (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RetryDelay is the fixed wait after an HTTP 429 (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// RequestsPerSecond paces page requests (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// CorpusConfig holds settings for snapshot persistence.
type CorpusConfig struct {
	// PapersDir is the directory holding papers_<timestamp>.json snapshots.
	PapersDir string `json:"papers_dir" yaml:"papers_dir"`
}

// DownloadConfig holds settings for the download stage.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// Email identifies the caller to Unpaywall, which authenticates by email.
	Email string `json:"email" yaml:"email"`

	// OutputDir is the directory where PDFs are written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Delay is the minimum spacing between items that touch the network (default 1s).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// ScrapeLanding enables reading citation_pdf_url from OA landing pages
	// when Unpaywall reports no direct PDF link.
	ScrapeLanding bool `json:"scrape_landing" yaml:"scrape_landing"`
}

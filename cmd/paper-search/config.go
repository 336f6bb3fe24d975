// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-search/internal/scopus"
	"github.com/pdiddy/paper-search/internal/secrets"
	"github.com/pdiddy/paper-search/pkg/types"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultDelay      = 1 * time.Second
	defaultRetryDelay = 2 * time.Second
	defaultPapersDir  = "data/papers"
	defaultPDFDir     = "data/pdfs"
)

// setDefaults registers the lowest-precedence value of every config key.
// Config file keys use the same dotted names, for example:
//
//	scopus:
//	  sort: -citedby-count
//	download:
//	  delay: 2s
func setDefaults() {
	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", "paper-search/"+version)

	viper.SetDefault("scopus.sort", scopus.DefaultSort)
	viper.SetDefault("scopus.max_attempts", 3)
	viper.SetDefault("scopus.retry_delay", defaultRetryDelay)
	viper.SetDefault("scopus.requests_per_second", 2.0)

	viper.SetDefault("corpus.papers_dir", defaultPapersDir)

	viper.SetDefault("download.output_dir", defaultPDFDir)
	viper.SetDefault("download.delay", defaultDelay)
	viper.SetDefault("download.scrape_landing", false)
}

// bindFlags binds command flags to config keys. Binding happens when the
// command runs because several commands share key names.
func bindFlags(cmd *cobra.Command, flagToKey map[string]string) error {
	for flag, key := range flagToKey {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func httpConfig(baseURLKey string) types.HTTPConfig {
	return types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
		BaseURL:   viper.GetString(baseURLKey),
	}
}

func searchConfig() types.SearchConfig {
	return types.SearchConfig{
		HTTPConfig:        httpConfig("scopus.base_url"),
		APIKey:            secretDefault(secrets.ScopusAPIKey, viper.GetString("scopus.api_key")),
		Sort:              viper.GetString("scopus.sort"),
		MaxAttempts:       viper.GetInt("scopus.max_attempts"),
		RetryDelay:        viper.GetDuration("scopus.retry_delay"),
		RequestsPerSecond: viper.GetFloat64("scopus.requests_per_second"),
	}
}

func corpusConfig() types.CorpusConfig {
	return types.CorpusConfig{PapersDir: viper.GetString("corpus.papers_dir")}
}

func downloadConfig() types.DownloadConfig {
	return types.DownloadConfig{
		HTTPConfig:    httpConfig("unpaywall.base_url"),
		Email:         secretDefault(secrets.UnpaywallEmail, viper.GetString("unpaywall.email")),
		OutputDir:     viper.GetString("download.output_dir"),
		Delay:         viper.GetDuration("download.delay"),
		ScrapeLanding: viper.GetBool("download.scrape_landing"),
	}
}

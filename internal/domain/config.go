// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Config represents the application configuration
type Config struct {
	Version       string
	LogLevel      string `toml:"logLevel" mapstructure:"logLevel"`
	LogPath       string `toml:"logPath" mapstructure:"logPath"`
	LogMaxSize    int    `toml:"logMaxSize" mapstructure:"logMaxSize"`
	LogMaxBackups int    `toml:"logMaxBackups" mapstructure:"logMaxBackups"`
	DataDir       string `toml:"dataDir" mapstructure:"dataDir"`
	DatabasePath  string `toml:"databasePath" mapstructure:"databasePath"`

	MetricsEnabled        bool   `toml:"metricsEnabled" mapstructure:"metricsEnabled"`
	MetricsHost           string `toml:"metricsHost" mapstructure:"metricsHost"`
	MetricsPort           int    `toml:"metricsPort" mapstructure:"metricsPort"`
	MetricsBasicAuthUsers string `toml:"metricsBasicAuthUsers" mapstructure:"metricsBasicAuthUsers"`

	SlskdURL       string `toml:"slskdUrl" mapstructure:"slskdUrl"`
	SlskdAPIKey    string `toml:"slskdApiKey" mapstructure:"slskdApiKey"`
	SlskdRateLimit int    `toml:"slskdRateLimit" mapstructure:"slskdRateLimit"`
	// SlskdTimeout bounds a single API request, in seconds.
	SlskdTimeout int `toml:"slskdTimeout" mapstructure:"slskdTimeout"`

	// Search timings are in seconds.
	SearchPollInterval     int `toml:"searchPollInterval" mapstructure:"searchPollInterval"`
	SearchMaxWait          int `toml:"searchMaxWait" mapstructure:"searchMaxWait"`
	SearchMinWaitEarlyExit int `toml:"searchMinWaitEarlyExit" mapstructure:"searchMinWaitEarlyExit"`
	SearchTimeout          int `toml:"searchTimeout" mapstructure:"searchTimeout"`

	MinSizeBytes   int64    `toml:"minSizeBytes" mapstructure:"minSizeBytes"`
	MaxSizeBytes   int64    `toml:"maxSizeBytes" mapstructure:"maxSizeBytes"`
	AllowedFormats []string `toml:"allowedFormats" mapstructure:"allowedFormats"`
	// FilterExpr is an optional expression every candidate must satisfy,
	// e.g. `Lossless || Bitrate >= 256`.
	FilterExpr string `toml:"filterExpr" mapstructure:"filterExpr"`

	MinAlbumFiles   int `toml:"minAlbumFiles" mapstructure:"minAlbumFiles"`
	MinTrackScore   int `toml:"minTrackScore" mapstructure:"minTrackScore"`
	RemasterPenalty int `toml:"remasterPenalty" mapstructure:"remasterPenalty"`

	MaxFallbackTracks int `toml:"maxFallbackTracks" mapstructure:"maxFallbackTracks"`
	MaxSinkAttempts   int `toml:"maxSinkAttempts" mapstructure:"maxSinkAttempts"`
	Concurrency       int `toml:"concurrency" mapstructure:"concurrency"`

	OwnedMusicPath         string  `toml:"ownedMusicPath" mapstructure:"ownedMusicPath"`
	CompletedDownloadsPath string  `toml:"completedDownloadsPath" mapstructure:"completedDownloadsPath"`
	DedupFailOpen          bool    `toml:"dedupFailOpen" mapstructure:"dedupFailOpen"`
	TokenOverlap           float64 `toml:"tokenOverlap" mapstructure:"tokenOverlap"`
	WatchLibrary           bool    `toml:"watchLibrary" mapstructure:"watchLibrary"`

	TargetsPath string `toml:"targetsPath" mapstructure:"targetsPath"`
	// RunInterval is the pause between batches of the run command, in minutes.
	RunInterval          int `toml:"runInterval" mapstructure:"runInterval"`
	HistoryRetentionDays int `toml:"historyRetentionDays" mapstructure:"historyRetentionDays"`
}

var validLogLevels = map[string]struct{}{
	"ERROR": {}, "WARN": {}, "INFO": {}, "DEBUG": {}, "TRACE": {},
}

// Validate checks the settings needed to talk to slskd and run a batch.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.SlskdURL) == "" {
		errs = append(errs, errors.New("slskdUrl is required"))
	} else if u, err := url.Parse(c.SlskdURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("slskdUrl %q must be an absolute http(s) url", c.SlskdURL))
	}
	if strings.TrimSpace(c.SlskdAPIKey) == "" {
		errs = append(errs, errors.New("slskdApiKey is required"))
	}

	if c.SearchPollInterval <= 0 {
		errs = append(errs, errors.New("searchPollInterval must be positive"))
	}
	if c.SearchMaxWait < c.SearchPollInterval {
		errs = append(errs, errors.New("searchMaxWait must be at least searchPollInterval"))
	}
	if c.SearchMinWaitEarlyExit < 0 || c.SearchMinWaitEarlyExit > c.SearchMaxWait {
		errs = append(errs, errors.New("searchMinWaitEarlyExit must be between 0 and searchMaxWait"))
	}

	if c.MinSizeBytes < 0 || (c.MaxSizeBytes > 0 && c.MaxSizeBytes < c.MinSizeBytes) {
		errs = append(errs, errors.New("minSizeBytes must not exceed maxSizeBytes"))
	}
	if c.TokenOverlap <= 0 || c.TokenOverlap > 1 {
		errs = append(errs, errors.New("tokenOverlap must be in (0, 1]"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("concurrency must be at least 1"))
	}
	if c.MaxFallbackTracks < 0 {
		errs = append(errs, errors.New("maxFallbackTracks must not be negative"))
	}

	if _, ok := validLogLevels[strings.ToUpper(c.LogLevel)]; !ok {
		errs = append(errs, fmt.Errorf("logLevel %q is not one of ERROR, WARN, INFO, DEBUG, TRACE", c.LogLevel))
	}
	if c.MetricsEnabled && (c.MetricsPort <= 0 || c.MetricsPort > 65535) {
		errs = append(errs, fmt.Errorf("metricsPort %d is out of range", c.MetricsPort))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	c.SlskdAPIKey = RedactString(c.SlskdAPIKey)
	c.MetricsBasicAuthUsers = RedactString(c.MetricsBasicAuthUsers)
	return c
}

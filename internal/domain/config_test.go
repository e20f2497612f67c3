// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		LogLevel:               "INFO",
		SlskdURL:               "http://localhost:5030",
		SlskdAPIKey:            "key",
		SearchPollInterval:     4,
		SearchMaxWait:          120,
		SearchMinWaitEarlyExit: 60,
		MinSizeBytes:           1 << 20,
		MaxSizeBytes:           100 << 20,
		TokenOverlap:           0.8,
		Concurrency:            2,
		MaxFallbackTracks:      3,
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	t.Run("reports every problem", func(t *testing.T) {
		cfg := validConfig()
		cfg.SlskdURL = "localhost:5030"
		cfg.SlskdAPIKey = ""
		cfg.SearchMaxWait = 2
		cfg.TokenOverlap = 1.5
		cfg.LogLevel = "LOUD"

		err := cfg.Validate()
		require.Error(t, err)
		for _, want := range []string{"slskdUrl", "slskdApiKey", "searchMaxWait", "tokenOverlap", "logLevel"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("metrics port checked only when enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.MetricsPort = 0
		require.NoError(t, cfg.Validate())

		cfg.MetricsEnabled = true
		require.Error(t, cfg.Validate())
	})

	t.Run("size bounds", func(t *testing.T) {
		cfg := validConfig()
		cfg.MaxSizeBytes = 10
		require.Error(t, cfg.Validate())
	})
}

func TestConfig_Redacted(t *testing.T) {
	cfg := validConfig()
	cfg.MetricsBasicAuthUsers = "user:hash"

	redacted := cfg.Redacted()
	assert.Equal(t, RedactedStr, redacted.SlskdAPIKey)
	assert.Equal(t, RedactedStr, redacted.MetricsBasicAuthUsers)
	assert.Equal(t, "key", cfg.SlskdAPIKey, "original is untouched")
}

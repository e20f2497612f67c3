// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/soulseekarr/soulseekarr/internal/buildinfo"
	"github.com/soulseekarr/soulseekarr/internal/domain"
)

const (
	envPrefix         = "SOULSEEKARR__"
	defaultConfigName = "config.toml"
	defaultDBName     = "soulseekarr.db"
)

// AppConfig is the loaded configuration plus where it came from.
type AppConfig struct {
	Config *domain.Config

	configPath string
	viper      *viper.Viper
}

var defaults = map[string]any{
	"logLevel":      "INFO",
	"logPath":       "",
	"logMaxSize":    50,
	"logMaxBackups": 3,
	"dataDir":       "",
	"databasePath":  "",

	"metricsEnabled":        false,
	"metricsHost":           "127.0.0.1",
	"metricsPort":           9074,
	"metricsBasicAuthUsers": "",

	"slskdUrl":       "http://localhost:5030",
	"slskdApiKey":    "",
	"slskdRateLimit": 5,
	"slskdTimeout":   30,

	"searchPollInterval":     4,
	"searchMaxWait":          120,
	"searchMinWaitEarlyExit": 60,
	"searchTimeout":          45,

	"minSizeBytes":   int64(1 << 20),
	"maxSizeBytes":   int64(100 << 20),
	"allowedFormats": []string{"flac", "mp3", "aac", "ogg", "wav"},
	"filterExpr":     "",

	"minAlbumFiles":   3,
	"minTrackScore":   1,
	"remasterPenalty": 5,

	"maxFallbackTracks": 3,
	"maxSinkAttempts":   3,
	"concurrency":       2,

	"ownedMusicPath":         "",
	"completedDownloadsPath": "",
	"dedupFailOpen":          true,
	"tokenOverlap":           0.8,
	"watchLibrary":           false,

	"targetsPath":          "",
	"runInterval":          60,
	"historyRetentionDays": 90,
}

// New loads configuration from configPath (or the default location when
// empty). A config file is written with commented defaults on first run.
// Environment variables named SOULSEEKARR__<UPPER_SNAKE_KEY> override the file.
func New(configPath string) (*AppConfig, error) {
	if configPath == "" {
		configPath = filepath.Join(getDefaultConfigDir(), defaultConfigName)
	} else if info, err := os.Stat(configPath); err == nil && info.IsDir() {
		configPath = filepath.Join(configPath, defaultConfigName)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetConfigFile(configPath)
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return nil, errors.Wrapf(err, "bind env for %s", key)
		}
	}

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeDefaultConfig(configPath); err != nil {
			// Defaults still apply, a read-only config dir is not fatal.
			log.Warn().Err(err).Str("path", configPath).Msg("Could not write default config")
		} else {
			log.Info().Str("path", configPath).Msg("Wrote default config")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "read config %s", configPath)
		}
	}

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Version = buildinfo.Version

	return &AppConfig{Config: cfg, configPath: configPath, viper: v}, nil
}

// ConfigPath returns the file the configuration was read from.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// ConfigDir returns the directory holding the config file.
func (c *AppConfig) ConfigDir() string {
	return filepath.Dir(c.configPath)
}

// GetDatabasePath resolves the database location: an explicit path wins,
// then the data dir, then the directory of the config file.
func (c *AppConfig) GetDatabasePath() string {
	if c.Config.DatabasePath != "" {
		return c.Config.DatabasePath
	}
	if c.Config.DataDir != "" {
		return filepath.Join(c.Config.DataDir, defaultDBName)
	}
	return filepath.Join(c.ConfigDir(), defaultDBName)
}

// EnvName maps a config key to its environment variable,
// e.g. slskdApiKey becomes SOULSEEKARR__SLSKD_API_KEY.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString(envPrefix)
	runes := []rune(key)
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && !unicode.IsUpper(runes[i-1]) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

func getDefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		// Containers mount the config volume at /config directly.
		if xdg == "/config" {
			return xdg
		}
		return filepath.Join(xdg, "soulseekarr")
	}

	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "soulseekarr")
}

func writeDefaultConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(path, []byte(defaultConfigTemplate), 0o600), "write config")
}

const defaultConfigTemplate = `# config.toml - Auto-generated on first run

# slskd base url and API key
# Required
slskdUrl = "http://localhost:5030"
slskdApiKey = ""

# Requests per second sent to slskd
# Default: 5
#slskdRateLimit = 5

# Log level
# Default: "INFO"
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
logLevel = "INFO"

# Log file path
# If not defined, logs to stdout
#logPath = "log/soulseekarr.log"
#logMaxSize = 50
#logMaxBackups = 3

# Database path, defaults to soulseekarr.db next to this file
#databasePath = ""

# Library root laid out as Artist/Album
#ownedMusicPath = "/music"

# slskd completed downloads folder
#completedDownloadsPath = "/downloads/complete"

# Wanted albums and tracks
#targetsPath = "targets.yaml"

# Search polling, in seconds
#searchPollInterval = 4
#searchMaxWait = 120
#searchMinWaitEarlyExit = 60

# Candidate filters
#allowedFormats = ["flac", "mp3", "aac", "ogg", "wav"]
#minSizeBytes = 1048576
#maxSizeBytes = 104857600
#filterExpr = "Lossless || Bitrate >= 256"

# Prometheus metrics
#metricsEnabled = false
#metricsHost = "127.0.0.1"
#metricsPort = 9074
#metricsBasicAuthUsers = ""
`

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/soulseekarr/soulseekarr/internal/domain"
)

const (
	defaultMaxSize    = 50
	defaultMaxBackups = 3
)

// Setup points the global logger at stdout, or at a rotated file plus
// stdout when a log path is configured. Stdout gets a console format on a
// terminal and JSON lines otherwise. The returned closer flushes the file
// writer and is safe to call when no file is used.
func Setup(cfg *domain.Config) io.Closer {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(ParseLevel(cfg.LogLevel))

	console := stdoutWriter()
	if cfg.LogPath == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    positiveOr(cfg.LogMaxSize, defaultMaxSize),
		MaxBackups: max(cfg.LogMaxBackups, 0),
		Compress:   false,
	}
	if cfg.LogMaxBackups == 0 && cfg.LogMaxSize == 0 {
		file.MaxBackups = defaultMaxBackups
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, file)).With().Timestamp().Logger()
	return file
}

func stdoutWriter() io.Writer {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	return os.Stdout
}

// ParseLevel maps the config log level to zerolog, falling back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/soulseekarr/soulseekarr/internal/buildinfo"
	"github.com/soulseekarr/soulseekarr/internal/config"
	"github.com/soulseekarr/soulseekarr/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setupLogging is swapped in tests.
var setupLogging = logger.Setup

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logCloser  io.Closer
	)

	cmd := &cobra.Command{
		Use:           "soulseekarr",
		Short:         "Find wanted albums and tracks on Soulseek and queue them in slskd",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml or its directory")

	loadConfig := func() (*config.AppConfig, error) {
		appCfg, err := config.New(configPath)
		if err != nil {
			return nil, err
		}
		logCloser = setupLogging(appCfg.Config)
		return appCfg, nil
	}

	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		if logCloser == nil {
			return nil
		}
		err := logCloser.Close()
		logCloser = nil
		return err
	}

	cmd.AddCommand(
		RunPlanCommand(loadConfig),
		RunLoopCommand(loadConfig),
		RunHistoryCommand(loadConfig),
		RunConfigCommand(loadConfig),
		RunVersionCommand(),
	)
	return cmd
}

type configLoader func() (*config.AppConfig, error)

func RunVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				data, err := buildinfo.JSON()
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}
			cmd.Print(buildinfo.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func RunConfigCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := load()
			if err != nil {
				return err
			}
			cfg := appCfg.Config.Redacted()

			cmd.Printf("Config file: %s\n", appCfg.ConfigPath())
			cmd.Printf("Database: %s\n", appCfg.GetDatabasePath())
			cmd.Printf("slskd: %s (api key %s)\n", cfg.SlskdURL, orNone(cfg.SlskdAPIKey))
			cmd.Printf("Library: %s\n", orNone(cfg.OwnedMusicPath))
			cmd.Printf("Completed downloads: %s\n", orNone(cfg.CompletedDownloadsPath))
			cmd.Printf("Targets: %s\n", orNone(cfg.TargetsPath))
			cmd.Printf("Formats: %v, size %d-%d bytes\n", cfg.AllowedFormats, cfg.MinSizeBytes, cfg.MaxSizeBytes)

			if err := appCfg.Config.Validate(); err != nil {
				cmd.Printf("Invalid: %v\n", err)
				return err
			}
			log.Debug().Msg("Configuration is valid")
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

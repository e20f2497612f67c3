// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/soulseekarr/soulseekarr/internal/database"
	"github.com/soulseekarr/soulseekarr/internal/history"
)

func RunHistoryCommand(load configLoader) *cobra.Command {
	var (
		limit  int
		artist string
		album  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent planning decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appCfg, err := load()
			if err != nil {
				return err
			}

			db, err := database.New(appCfg.GetDatabasePath())
			if err != nil {
				return err
			}
			defer db.Close()

			store := history.NewStore(db)

			var entries []history.Entry
			if artist != "" {
				entries, err = store.ForTarget(cmd.Context(), artist, album, limit)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				cmd.Println("No decisions recorded yet.")
				return nil
			}
			for _, e := range entries {
				d := e.Decision
				mode := ""
				if d.DryRun {
					mode = " (dry run)"
				}
				cmd.Printf("%s  %s%s\n", d.DecidedAt.Local().Format(time.DateTime), describeDecision(d, d.DryRun), mode)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", history.DefaultLimit, "Number of decisions to show")
	cmd.Flags().StringVar(&artist, "artist", "", "Only decisions for this artist")
	cmd.Flags().StringVar(&album, "album", "", "Only decisions for this album, with --artist")
	return cmd
}

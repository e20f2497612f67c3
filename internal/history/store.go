// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package history persists planner decisions.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soulseekarr/soulseekarr/internal/dbinterface"
	"github.com/soulseekarr/soulseekarr/internal/models"
)

const DefaultLimit = 50

// Entry is one stored decision.
type Entry struct {
	ID       int64           `json:"id"`
	Decision models.Decision `json:"decision"`
}

type Store struct {
	db dbinterface.Querier
}

func NewStore(db dbinterface.Querier) *Store {
	return &Store{db: db}
}

// Append stores d. The full decision is kept as JSON next to the columns
// used for filtering.
func (s *Store) Append(ctx context.Context, d models.Decision) error {
	if !d.Reason.IsValid() {
		return fmt.Errorf("invalid decision reason %q", d.Reason)
	}

	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}

	decidedAt := d.DecidedAt
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (artist, album, reason, peer, file_count, missing_count, dry_run, queued, detail, payload, decided_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		d.Target.Artist,
		d.Target.Album,
		string(d.Reason),
		d.Peer(),
		d.FileCount(),
		len(d.Missing),
		d.DryRun,
		d.Queued(),
		d.Detail,
		string(payload),
		decidedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// Recent returns the newest decisions first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx, `
		SELECT id, payload FROM decisions
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`, limit)
}

// ForTarget returns the newest decisions for one artist and album.
func (s *Store) ForTarget(ctx context.Context, artist, album string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return s.query(ctx, `
		SELECT id, payload FROM decisions
		WHERE artist = ? AND album = ?
		ORDER BY decided_at DESC, id DESC
		LIMIT ?
	`, artist, album, limit)
}

// Prune deletes decisions made before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM decisions WHERE decided_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune decisions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	var errs []error
	for rows.Next() {
		var e Entry
		var payload string
		if err := rows.Scan(&e.ID, &payload); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &e.Decision); err != nil {
			errs = append(errs, fmt.Errorf("decode decision %d: %w", e.ID, err))
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, errors.Join(errs...)
}

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package slskd

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

type downloadFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

type transferUser struct {
	Username    string              `json:"username"`
	Directories []transferDirectory `json:"directories"`
}

type transferDirectory struct {
	Directory string         `json:"directory"`
	Files     []transferFile `json:"files"`
}

type transferFile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	State    string `json:"state"`
}

// RequestDownload enqueues files from one peer. A refusal is returned as a
// *StatusError.
func (c *Client) RequestDownload(ctx context.Context, peer string, files []models.RequestedFile) error {
	if peer == "" {
		return errors.New("download request without peer")
	}
	if len(files) == 0 {
		return nil
	}

	payload := make([]downloadFile, 0, len(files))
	for _, f := range files {
		payload = append(payload, downloadFile{Filename: f.Path, Size: f.Size})
	}

	endpoint := "transfers/downloads/" + url.PathEscape(peer)
	if err := c.do(ctx, http.MethodPost, endpoint, payload, nil, http.StatusOK, http.StatusCreated); err != nil {
		return errors.Wrapf(err, "enqueue %d files from %s", len(files), peer)
	}

	log.Debug().Str("peer", peer).Int("files", len(files)).Msg("Downloads enqueued")
	return nil
}

// ListTransfers returns every download slskd knows about, finished ones
// included.
func (c *Client) ListTransfers(ctx context.Context) ([]models.Transfer, error) {
	var users []transferUser
	if err := c.get(ctx, "transfers/downloads", &users); err != nil {
		return nil, err
	}

	var transfers []models.Transfer
	for _, u := range users {
		for _, d := range u.Directories {
			for _, f := range d.Files {
				peer := f.Username
				if peer == "" {
					peer = u.Username
				}
				transfers = append(transfers, models.Transfer{
					Peer:     peer,
					Filename: f.Filename,
					Size:     f.Size,
					State:    TranslateState(f.State),
				})
			}
		}
	}
	return transfers, nil
}

// TranslateState maps slskd's flag-style transfer state ("Completed,
// Succeeded", "Queued, Remotely", "InProgress") to a models.TransferState.
// Unknown states map to queued so that they block a duplicate request.
func TranslateState(raw string) models.TransferState {
	s := strings.ToLower(strings.ReplaceAll(raw, " ", ""))

	switch {
	case strings.Contains(s, "succeeded"):
		return models.TransferStateCompleted
	case strings.Contains(s, "cancelled"), strings.Contains(s, "canceled"):
		return models.TransferStateCancelled
	case strings.Contains(s, "timedout"):
		return models.TransferStateTimedOut
	case strings.Contains(s, "errored"), strings.Contains(s, "rejected"), strings.Contains(s, "failed"):
		return models.TransferStateFailed
	case strings.Contains(s, "completed"):
		return models.TransferStateCompleted
	case strings.Contains(s, "inprogress"), strings.Contains(s, "initializing"):
		return models.TransferStateInProgress
	case strings.Contains(s, "queued"), strings.Contains(s, "requested"):
		return models.TransferStateQueued
	}

	log.Debug().Str("state", raw).Msg("Unknown slskd transfer state, treating as queued")
	return models.TransferStateQueued
}

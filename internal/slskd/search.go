// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package slskd

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

type searchRequest struct {
	SearchText string `json:"searchText"`
	Timeout    int64  `json:"timeout"`
}

type searchState struct {
	ID            string `json:"id"`
	SearchText    string `json:"searchText"`
	State         string `json:"state"`
	IsComplete    bool   `json:"isComplete"`
	FileCount     int    `json:"fileCount"`
	ResponseCount int    `json:"responseCount"`
}

type searchResponse struct {
	Username          string       `json:"username"`
	HasFreeUploadSlot bool         `json:"hasFreeUploadSlot"`
	UploadSpeed       int          `json:"uploadSpeed"`
	QueueLength       int          `json:"queueLength"`
	FileCount         int          `json:"fileCount"`
	Files             []searchFile `json:"files"`
}

type searchFile struct {
	Filename          string `json:"filename"`
	Size              int64  `json:"size"`
	BitRate           int    `json:"bitRate"`
	SampleRate        int    `json:"sampleRate"`
	BitDepth          int    `json:"bitDepth"`
	Length            int    `json:"length"`
	IsVariableBitRate bool   `json:"isVariableBitRate"`
}

func searchEndpoint(id string) string {
	return "searches/" + url.PathEscape(id)
}

// Issue starts a search and returns its id.
func (c *Client) Issue(ctx context.Context, query string) (string, error) {
	req := searchRequest{
		SearchText: query,
		Timeout:    c.searchTimeout.Milliseconds(),
	}

	var state searchState
	if err := c.do(ctx, http.MethodPost, "searches", req, &state, http.StatusOK, http.StatusCreated); err != nil {
		return "", err
	}
	if state.ID == "" {
		return "", errors.New("slskd returned a search without id")
	}

	log.Debug().Str("search_id", state.ID).Str("query", query).Msg("Search issued")
	return state.ID, nil
}

// PollStatus returns the progress of a search.
func (c *Client) PollStatus(ctx context.Context, id string) (models.SearchStatus, error) {
	var state searchState
	if err := c.get(ctx, searchEndpoint(id), &state); err != nil {
		return models.SearchStatus{}, err
	}
	return models.SearchStatus{
		IsComplete:    state.IsComplete,
		FileCount:     state.FileCount,
		ResponseCount: state.ResponseCount,
	}, nil
}

// FetchResponses returns every peer response collected so far.
func (c *Client) FetchResponses(ctx context.Context, id string) ([]models.PeerResponse, error) {
	var raw []searchResponse
	if err := c.get(ctx, searchEndpoint(id)+"/responses", &raw); err != nil {
		return nil, err
	}

	responses := make([]models.PeerResponse, 0, len(raw))
	for _, r := range raw {
		if r.Username == "" {
			continue
		}
		resp := models.PeerResponse{
			Peer:        r.Username,
			HasFreeSlot: r.HasFreeUploadSlot,
			UploadSpeed: r.UploadSpeed,
			QueueLength: r.QueueLength,
			Files:       make([]models.RemoteFile, 0, len(r.Files)),
		}
		for _, f := range r.Files {
			resp.Files = append(resp.Files, models.RemoteFile{
				Path:       f.Filename,
				Size:       f.Size,
				BitRate:    f.BitRate,
				SampleRate: f.SampleRate,
				BitDepth:   f.BitDepth,
				Length:     f.Length,
				IsVBR:      f.IsVariableBitRate,
			})
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Close deletes the search on the server. A search that is already gone
// is not an error.
func (c *Client) Close(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, searchEndpoint(id), nil, nil, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return errors.Wrapf(err, "close search %s", id)
	}
	return nil
}

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import "time"

// Reason explains why a Decision chose what it chose, or nothing.
type Reason string

const (
	ReasonMatched             Reason = "matched"
	ReasonPartialMatch        Reason = "partial_match"
	ReasonAlreadySatisfied    Reason = "already_satisfied"
	ReasonNoCandidates        Reason = "no_candidates"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonSinkRejected        Reason = "sink_rejected"
	ReasonCancelled           Reason = "cancelled"
	ReasonInvalidTarget       Reason = "invalid_target"
)

var validReasons = map[Reason]struct{}{
	ReasonMatched:             {},
	ReasonPartialMatch:        {},
	ReasonAlreadySatisfied:    {},
	ReasonNoCandidates:        {},
	ReasonProviderUnavailable: {},
	ReasonSinkRejected:        {},
	ReasonCancelled:           {},
	ReasonInvalidTarget:       {},
}

// IsValid returns true if the reason is a recognized reason code.
func (r Reason) IsValid() bool {
	_, ok := validReasons[r]
	return ok
}

// Retryable reports whether a later cycle may reasonably reach a different
// outcome for the same target.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonNoCandidates, ReasonProviderUnavailable, ReasonSinkRejected, ReasonCancelled, ReasonPartialMatch:
		return true
	default:
		return false
	}
}

// RequestedFile is one file asked for from a peer.
type RequestedFile struct {
	Path  string       `json:"path"`
	Size  int64        `json:"size"`
	Score int          `json:"score"`
	Track *WantedTrack `json:"track,omitempty"`
}

// DownloadRequest is the file set asked for from a single peer.
type DownloadRequest struct {
	Peer     string          `json:"peer"`
	Files    []RequestedFile `json:"files"`
	Accepted bool            `json:"accepted"`
}

// Decision is the engine's output for one target.
type Decision struct {
	Target    WantedTarget      `json:"target"`
	Reason    Reason            `json:"reason"`
	Requests  []DownloadRequest `json:"requests,omitempty"`
	Missing   []WantedTrack     `json:"missing,omitempty"`
	Satisfied []WantedTrack     `json:"satisfied,omitempty"`
	DryRun    bool              `json:"dryRun,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	DecidedAt time.Time         `json:"decidedAt"`
}

// Peer returns the peer of the first request, the chosen peer for album
// and single-search decisions.
func (d Decision) Peer() string {
	if len(d.Requests) == 0 {
		return ""
	}
	return d.Requests[0].Peer
}

// Files flattens every requested file across peers.
func (d Decision) Files() []RequestedFile {
	var out []RequestedFile
	for _, r := range d.Requests {
		out = append(out, r.Files...)
	}
	return out
}

// FileCount counts requested files across peers.
func (d Decision) FileCount() int {
	n := 0
	for _, r := range d.Requests {
		n += len(r.Files)
	}
	return n
}

// Queued reports whether anything was accepted by the download sink.
func (d Decision) Queued() bool {
	for _, r := range d.Requests {
		if r.Accepted {
			return true
		}
	}
	return false
}

// DedupRecord holds the three independent dedup signals for a target or a
// track. It is computed fresh per planning cycle.
type DedupRecord struct {
	Owned     bool `json:"owned"`
	Queued    bool `json:"queued"`
	Completed bool `json:"completed"`
	// Degraded is set when a source could not be read and a default was used.
	Degraded bool `json:"degraded,omitempty"`
}

// Satisfied reports whether any source says the content is already here or
// on its way.
func (r DedupRecord) Satisfied() bool {
	return r.Owned || r.Queued || r.Completed
}

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// TransferState is the closed set of download states the engine reasons
// about. Provider-specific strings are translated at the client boundary.
type TransferState string

const (
	TransferStateQueued     TransferState = "queued"
	TransferStateInProgress TransferState = "in_progress"
	TransferStateCompleted  TransferState = "completed"
	TransferStateFailed     TransferState = "failed"
	TransferStateCancelled  TransferState = "cancelled"
	TransferStateTimedOut   TransferState = "timed_out"
)

// terminalStates is the single source of truth for terminal transfer states.
var terminalStates = map[TransferState]struct{}{
	TransferStateCompleted: {},
	TransferStateFailed:    {},
	TransferStateCancelled: {},
	TransferStateTimedOut:  {},
}

// validStates contains all valid transfer states for validation.
var validStates = map[TransferState]struct{}{
	TransferStateQueued:     {},
	TransferStateInProgress: {},
	TransferStateCompleted:  {},
	TransferStateFailed:     {},
	TransferStateCancelled:  {},
	TransferStateTimedOut:   {},
}

// requeueBlockingStates are states in which asking for the file again would
// produce a duplicate download.
var requeueBlockingStates = map[TransferState]struct{}{
	TransferStateQueued:     {},
	TransferStateInProgress: {},
	TransferStateCompleted:  {},
}

// IsTerminal returns true if the state is a terminal state (no further transitions)
func (s TransferState) IsTerminal() bool {
	_, ok := terminalStates[s]
	return ok
}

// IsValid returns true if the state is a recognized transfer state.
func (s TransferState) IsValid() bool {
	_, ok := validStates[s]
	return ok
}

// BlocksRequeue reports whether a transfer in this state means the file is
// already on its way or already here. Failed, cancelled and timed out
// transfers may be retried.
func (s TransferState) BlocksRequeue() bool {
	_, ok := requeueBlockingStates[s]
	return ok
}

// Transfer is one entry of the provider's download queue.
type Transfer struct {
	Peer     string        `json:"peer"`
	Filename string        `json:"filename"`
	Size     int64         `json:"size"`
	State    TransferState `json:"state"`
}

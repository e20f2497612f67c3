// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

// RemoteFile is one file a peer shares. Path uses the peer's own separators.
type RemoteFile struct {
	Path       string
	Size       int64
	BitRate    int
	SampleRate int
	BitDepth   int
	Length     int
	IsVBR      bool
}

// PeerResponse is the answer of one peer to one search.
type PeerResponse struct {
	Peer        string
	HasFreeSlot bool
	UploadSpeed int
	QueueLength int
	Files       []RemoteFile
}

// SearchStatus is the provider's view of a running search.
type SearchStatus struct {
	IsComplete    bool
	FileCount     int
	ResponseCount int
}

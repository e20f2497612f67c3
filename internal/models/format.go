// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"strings"

	"github.com/soulseekarr/soulseekarr/pkg/pathcmp"
)

// AudioFormat is the container/codec inferred from a file extension.
type AudioFormat string

const (
	FormatUnknown AudioFormat = ""
	FormatFLAC    AudioFormat = "flac"
	FormatWAV     AudioFormat = "wav"
	FormatAIFF    AudioFormat = "aiff"
	FormatAPE     AudioFormat = "ape"
	FormatWavPack AudioFormat = "wv"
	FormatMP3     AudioFormat = "mp3"
	FormatAAC     AudioFormat = "aac"
	FormatOGG     AudioFormat = "ogg"
	FormatOpus    AudioFormat = "opus"
)

var extensionFormats = map[string]AudioFormat{
	"flac": FormatFLAC,
	"wav":  FormatWAV,
	"aiff": FormatAIFF,
	"aif":  FormatAIFF,
	"ape":  FormatAPE,
	"wv":   FormatWavPack,
	"mp3":  FormatMP3,
	"m4a":  FormatAAC,
	"aac":  FormatAAC,
	"ogg":  FormatOGG,
	"oga":  FormatOGG,
	"opus": FormatOpus,
}

var losslessFormats = map[AudioFormat]struct{}{
	FormatFLAC:    {},
	FormatWAV:     {},
	FormatAIFF:    {},
	FormatAPE:     {},
	FormatWavPack: {},
}

// DefaultAllowedFormats is the allow-list used when none is configured.
var DefaultAllowedFormats = []AudioFormat{FormatFLAC, FormatMP3, FormatAAC, FormatOGG, FormatWAV}

// FormatFromPath infers the audio format of a remote or local path.
func FormatFromPath(p string) AudioFormat {
	return extensionFormats[pathcmp.Ext(p)]
}

// ParseAudioFormat maps a configured format or extension name to a format.
func ParseAudioFormat(s string) (AudioFormat, bool) {
	f, ok := extensionFormats[strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")]
	return f, ok
}

// IsAudioPath reports whether p has any recognised audio extension.
func IsAudioPath(p string) bool {
	return FormatFromPath(p) != FormatUnknown
}

// IsLossless reports whether the format carries uncompressed or losslessly
// compressed audio.
func (f AudioFormat) IsLossless() bool {
	_, ok := losslessFormats[f]
	return ok
}

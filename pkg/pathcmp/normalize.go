// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pathcmp splits and compares the file paths peers share. Soulseek
// clients mostly run on Windows, so remote paths arrive backslash-separated
// ("@@music\Artist\Album\01 Track.flac") and sometimes mixed. Everything here
// uses path semantics after converting separators, never filepath.
package pathcmp

import (
	"path"
	"strings"
)

// ToSlash converts every backslash in a remote path to a forward slash.
func ToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// NormalizePath normalizes a remote path for comparison by converting
// separators, cleaning it and dropping trailing slashes.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = path.Clean(ToSlash(p))
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// NormalizePathFold is a case-folded version of NormalizePath.
func NormalizePathFold(p string) string {
	return strings.ToLower(NormalizePath(p))
}

// Split returns the parent directory and file name of a remote path. The
// directory keeps the peer's original separators so it can be sent back
// verbatim; it is empty when p has no separator.
func Split(p string) (dir, file string) {
	idx := strings.LastIndexAny(p, "/\\")
	if idx < 0 {
		return "", p
	}
	return p[:idx], p[idx+1:]
}

// Dir returns the parent directory of a remote path.
func Dir(p string) string {
	dir, _ := Split(p)
	return dir
}

// Base returns the file name of a remote path.
func Base(p string) string {
	_, file := Split(p)
	return file
}

// Ext returns the lower-cased extension of a remote path without the dot.
func Ext(p string) string {
	base := Base(p)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 || idx == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[idx+1:])
}

// Stem returns the file name of a remote path without its extension.
func Stem(p string) string {
	base := Base(p)
	if idx := strings.LastIndexByte(base, '.'); idx > 0 {
		return base[:idx]
	}
	return base
}

// DirName returns the last element of the parent directory, which for a
// typical share layout is the album folder.
func DirName(p string) string {
	return Base(Dir(p))
}

// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RedactedStr replaces secrets in logged configuration.
const RedactedStr = "<redacted>"

// RedactString hides a secret. Empty strings stay empty so a missing
// setting remains visible.
func RedactString(s string) string {
	if len(s) == 0 {
		return ""
	}
	return RedactedStr
}

// IsRedactedValue checks if a value is the redaction placeholder
func IsRedactedValue(value string) bool {
	return value == RedactedStr
}

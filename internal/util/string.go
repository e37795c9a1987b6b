// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared by the HUAI packages.
package util

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// UNICODE: Rune-aware helpers. Prompts are routinely Arabic or mixed-script,
// so byte slicing would corrupt UTF-8 sequences.

// RuneLen returns the number of runes (characters) in a string.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended within the limit.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// StringWidth returns the terminal display width of a string.
// Wide characters (CJK, fullwidth forms) count as two columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// Preview collapses whitespace and truncates s to the given display width.
// It is used wherever prompt or reply text ends up in a log line.
func Preview(s string, width int) string {
	if width <= 0 {
		return ""
	}
	flat := strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(flat) <= width {
		return flat
	}
	return runewidth.Truncate(flat, width, "...")
}

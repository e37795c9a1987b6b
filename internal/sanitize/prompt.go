// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sanitize cleans text crossing the model boundary.
//
// Prompt scrubs user input before it is stored or sent: forged special
// tokens such as <|system|> and control characters are removed. Cleaner
// scrubs model output of scripts outside the product's output-language
// policy. Both are total functions; deciding what an empty result means is
// left to the caller.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	// specialTokenPattern matches chat-template delimiters like <|im_start|>,
	// including forgeries built from the full-width and small-form
	// look-alikes (＜｜…｜＞, ﹤｜…｜﹥). Non-greedy and line-bound so ordinary
	// "<" and "|" text survives.
	specialTokenPattern = regexp.MustCompile(`[<＜﹤][|｜].*?[|｜][>＞﹥]`)

	// controlPattern matches C0 and C1 control characters (including \n and \t).
	controlPattern = regexp.MustCompile(`[\x{0000}-\x{001F}\x{007F}-\x{009F}]`)
)

// Prompt scrubs user input:
//  1. removal of every <|…|> special token and its look-alike forgeries
//  2. removal of C0/C1 control characters
//  3. whitespace trim
//
// Everything else is kept as typed; no Unicode normalization is applied.
func Prompt(s string) string {
	s = specialTokenPattern.ReplaceAllString(s, "")
	s = controlPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// ContainsSpecialToken reports whether s carries a special-token delimiter.
// Used for logging injection attempts.
func ContainsSpecialToken(s string) bool {
	return specialTokenPattern.MatchString(s)
}

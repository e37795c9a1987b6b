// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ============================================================================
// KEYWORD TABLES
// ============================================================================

// CodePatterns are regexp fragments signalling programming intent: syntax
// tokens plus English and Arabic programming vocabulary. Matching is
// case-insensitive and substring-based ("softw" covers software, softwares).
var CodePatterns = []string{
	`\{`, `\}`, `\[`, `\]`, `=>`,
	`function`, `const`, `let`, `var`, `import`, `export`,
	`def `, `if `, `class `, `async`, `await`,
	`select `, `from `, `where `,
	`script`, `coding`, `program`, `develop`, `softw`, `api`,
	`كود`, `برمج`, `دال`, `خوارزم`, `تطوير`, `موقع`, `تطبيق`,
	`سيكويل`, `قواعد`, `بناء`, `برمج[ةه]`, `دال[ةه]`,
}

// CreativePatterns are regexp fragments signalling creative-writing intent.
var CreativePatterns = []string{
	`writ`, `imag`, `stor`, `poem`, `creat`, `blog`, `essay`, `artic`,
	`paint`, `draw`, `design`,
	`اكتب`, `قص[ةه]`, `شعر`, `تخيل`, `ابداع`, `مقال`, `افكار`,
	`سيناريو`, `وصف`, `تأليف`, `رواية`, `مدون[ةه]`,
}

// compileTable joins fragments into one case-insensitive alternation.
func compileTable(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(` + strings.Join(patterns, "|") + `)`)
}

var (
	codePattern     = compileTable(CodePatterns)
	creativePattern = compileTable(CreativePatterns)
)

// ============================================================================
// CLASSIFICATION FUNCTIONS
// ============================================================================

// IsCodeIntent reports whether the prompt matches the code table.
func IsCodeIntent(prompt string) bool {
	return codePattern.MatchString(prompt)
}

// IsCreativeIntent reports whether the prompt matches the creative table.
func IsCreativeIntent(prompt string) bool {
	return creativePattern.MatchString(prompt)
}

// ClassifyRoute picks the route for an already sanitized prompt.
//
// Rules (first match wins):
//  1. Code: code table matches, even if creative words are also present
//  2. Creative: creative table matches, even for short prompts
//  3. Long: rune count exceeds fastLimit
//  4. Fast: everything else
func ClassifyRoute(prompt string, fastLimit int) Route {
	switch {
	case IsCodeIntent(prompt):
		return RouteCode
	case IsCreativeIntent(prompt):
		return RouteCreative
	case utf8.RuneCountInString(prompt) > fastLimit:
		return RouteLong
	default:
		return RouteFast
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sanitize

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// DefaultFilteredScripts are the scripts stripped from model output: the
// assistant answers in Arabic and English, and smaller models drift into
// Chinese, Japanese or Hindi mid-answer.
var DefaultFilteredScripts = []string{"Han", "Hiragana", "Katakana", "Devanagari"}

// scriptBlocks widens a script to its whole Unicode blocks. Marks such as
// the prolonged sound mark (U+30FC), the katakana middle dot (U+30FB) and
// the danda (U+0964) belong to the Common script but are only ever written
// inside text of the filtered script, so they are stripped with it.
var scriptBlocks = map[string]*unicode.RangeTable{
	"Han": {R16: []unicode.Range16{
		{Lo: 0x3400, Hi: 0x4dbf, Stride: 1},
		{Lo: 0x4e00, Hi: 0x9fff, Stride: 1},
		{Lo: 0xf900, Hi: 0xfaff, Stride: 1},
	}},
	"Hiragana": {R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x309f, Stride: 1},
	}},
	"Katakana": {R16: []unicode.Range16{
		{Lo: 0x30a0, Hi: 0x30ff, Stride: 1},
		{Lo: 0xff66, Hi: 0xff9f, Stride: 1},
	}},
	"Devanagari": {R16: []unicode.Range16{
		{Lo: 0x0900, Hi: 0x097f, Stride: 1},
	}},
}

// Cleaner strips runes of configured Unicode scripts from model output.
type Cleaner struct {
	scripts []string
	table   *unicode.RangeTable
}

// NewCleaner builds a cleaner for the named scripts (names as in
// unicode.Scripts). Scripts with an entry in scriptBlocks also cover the
// rest of their blocks. An empty list disables filtering.
func NewCleaner(scripts []string) (*Cleaner, error) {
	tables := make([]*unicode.RangeTable, 0, len(scripts))
	names := make([]string, 0, len(scripts))
	for _, name := range scripts {
		name = strings.TrimSpace(name)
		t, ok := unicode.Scripts[name]
		if !ok {
			return nil, fmt.Errorf("unknown unicode script %q", name)
		}
		tables = append(tables, t)
		if block, ok := scriptBlocks[name]; ok {
			tables = append(tables, block)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Cleaner{scripts: names}
	if len(tables) > 0 {
		c.table = rangetable.Merge(tables...)
	}
	return c, nil
}

// MustCleaner is like NewCleaner but panics on an unknown script name.
func MustCleaner(scripts []string) *Cleaner {
	c, err := NewCleaner(scripts)
	if err != nil {
		panic(err)
	}
	return c
}

// Scripts returns the filtered script names, sorted.
func (c *Cleaner) Scripts() []string {
	return append([]string(nil), c.scripts...)
}

// Clean removes filtered-script runes and trims the result. It never fails
// and returns "" when nothing survives.
func (c *Cleaner) Clean(s string) string {
	if c == nil || c.table == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.Is(c.table, r) {
			return -1
		}
		return r
	}, s))
}

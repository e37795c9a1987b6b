// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small string and file helpers shared by the HUAI packages.
//
// String Utilities:
//   - RuneLen, TruncateRunes: UTF-8 safe length and truncation
//   - StringWidth, Preview: display-width aware previews for logs and the REPL
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
package util

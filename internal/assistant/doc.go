// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant ties the session store, conversation buffer, sanitizer,
// router and inference client into a single Ask operation.
//
// Ask either records a full exchange (user turn plus assistant turn) or,
// when the endpoint fails, leaves the session exactly as it was before the
// call. Input errors are reported before any state is touched.
package assistant

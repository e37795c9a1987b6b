// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the in-process conversation memory for chat sessions.
//
// # Key Types
//
//   - Store: bounded, expiring map from session id to conversation history
//   - StoreConfig: capacity, time-to-live and clock
//   - StoreStats: hit, miss, eviction and expiration counters
//
// # Retention
//
// Two independent rules bound memory use:
//
//   - Capacity: admitting a session beyond Capacity evicts exactly one entry,
//     the least recently used one.
//   - Time-to-live: an entry not read or written for TTL is expired. Expired
//     entries behave exactly like unknown ones; they are removed lazily on
//     access or in bulk by Sweep.
//
// # Usage
//
//	store := session.NewStore(session.DefaultStoreConfig(), buffer.Initialize)
//	history := store.Get(id)          // seeded if new or expired
//	history = buffer.Append(history, model.RoleUser, prompt)
//	store.Put(id, history)
//
// Memory is volatile: nothing survives a process restart.
package session

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"container/list"
	"sync"
	"time"

	"github.com/yasser8111/HUAI/internal/model"
)

const (
	// DefaultCapacity is the default maximum number of sessions held in memory.
	DefaultCapacity = 1000

	// DefaultTTL is how long an untouched session is kept.
	DefaultTTL = time.Hour
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// Capacity is the maximum number of live sessions (default: 1000).
	Capacity int

	// TTL is the idle time after which a session expires (default: 1 hour).
	// Zero or negative disables expiry.
	TTL time.Duration

	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity: DefaultCapacity,
		TTL:      DefaultTTL,
		Now:      time.Now,
	}
}

// StoreStats holds store counters.
type StoreStats struct {
	Sessions    int    `json:"sessions"`
	Capacity    int    `json:"capacity"`
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`
	Expirations uint64 `json:"expirations"`
}

type entry struct {
	id         string
	history    []model.Message
	lastAccess time.Time
}

// Store maps session ids to conversation histories under an LRU capacity
// bound and an idle TTL. It is safe for concurrent use, but a
// Get-modify-Put sequence is not atomic: two submissions on the same session
// race and the last Put wins.
type Store struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time
	seed     func() []model.Message

	entries map[string]*list.Element
	order   *list.List // front = most recently used

	// Statistics
	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// NewStore creates a store. seed builds the history of a session seen for the
// first time (or again after expiry).
func NewStore(cfg StoreConfig, seed func() []model.Message) *Store {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if seed == nil {
		seed = func() []model.Message { return nil }
	}
	return &Store{
		capacity: cfg.Capacity,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		seed:     seed,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get returns a copy of the history for id. A missing or expired session is
// seeded, admitted and returned. Either way the session becomes the most
// recently used.
func (s *Store) Get(id string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.entries[id]; ok {
		e := el.Value.(*entry)
		if !s.expiredLocked(e, now) {
			e.lastAccess = now
			s.order.MoveToFront(el)
			s.hits++
			return model.CloneHistory(e.history)
		}
		s.removeLocked(el)
		s.expirations++
	}

	s.misses++
	history := s.seed()
	s.admitLocked(id, model.CloneHistory(history), now)
	return model.CloneHistory(history)
}

// Put stores a copy of history for id and marks it most recently used.
func (s *Store) Put(id string, history []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if el, ok := s.entries[id]; ok {
		e := el.Value.(*entry)
		e.history = model.CloneHistory(history)
		e.lastAccess = now
		s.order.MoveToFront(el)
		return
	}
	s.admitLocked(id, model.CloneHistory(history), now)
}

// Update replaces the history for id with fn's result, atomically with
// respect to other store calls. fn receives a copy of the live history, or
// nil when id is absent or expired. A nil result leaves the store unchanged;
// otherwise the session becomes the most recently used.
func (s *Store) Update(id string, fn func(current []model.Message) []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var current []model.Message
	el, held := s.entries[id]
	live := held && !s.expiredLocked(el.Value.(*entry), now)
	if live {
		current = model.CloneHistory(el.Value.(*entry).history)
	}

	next := fn(current)
	if next == nil {
		return
	}
	if live {
		e := el.Value.(*entry)
		e.history = model.CloneHistory(next)
		e.lastAccess = now
		s.order.MoveToFront(el)
		return
	}
	if held {
		s.removeLocked(el)
		s.expirations++
	}
	s.admitLocked(id, model.CloneHistory(next), now)
}

// Peek returns a copy of the live history for id without touching its
// recency or expiry. Expired sessions report false.
func (s *Store) Peek(id string) ([]model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	if s.expiredLocked(e, s.now()) {
		return nil, false
	}
	return model.CloneHistory(e.history), true
}

// Sweep removes every expired entry and returns how many were removed.
// Observable behavior does not depend on whether Sweep is ever called.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	// Recency order is also last-access order, so expired entries sit at the back.
	for el := s.order.Back(); el != nil; {
		e := el.Value.(*entry)
		if !s.expiredLocked(e, now) {
			break
		}
		prev := el.Prev()
		s.removeLocked(el)
		s.expirations++
		removed++
		el = prev
	}
	return removed
}

// Len returns the number of physically held entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Stats returns store statistics.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{
		Sessions:    s.order.Len(),
		Capacity:    s.capacity,
		Hits:        s.hits,
		Misses:      s.misses,
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}

// admitLocked inserts a new entry and evicts the least recently used one if
// capacity is exceeded (must hold lock).
func (s *Store) admitLocked(id string, history []model.Message, now time.Time) {
	el := s.order.PushFront(&entry{id: id, history: history, lastAccess: now})
	s.entries[id] = el

	if s.order.Len() > s.capacity {
		if victim := s.order.Back(); victim != nil && victim != el {
			s.removeLocked(victim)
			s.evictions++
		}
	}
}

// removeLocked drops an entry (must hold lock).
func (s *Store) removeLocked(el *list.Element) {
	e := s.order.Remove(el).(*entry)
	delete(s.entries, e.id)
}

// expiredLocked reports whether e has been idle for longer than the TTL.
func (s *Store) expiredLocked(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastAccess) > s.ttl
}

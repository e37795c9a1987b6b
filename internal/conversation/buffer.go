// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation maintains the rotating message window of one chat session.
//
// A history always starts with the system message carrying the assistant
// profile. That message is pinned: it is never rotated out, never replaced
// and never counted against the turn limit.
package conversation

import (
	"errors"
	"fmt"

	"github.com/yasser8111/HUAI/internal/model"
)

// DefaultMaxTurns is the number of non-system messages kept per session.
const DefaultMaxTurns = 6

var (
	// ErrMissingSystem is returned by Validate when element 0 is not a system message.
	ErrMissingSystem = errors.New("history does not start with a system message")

	// ErrTooLong is returned by Validate when a history exceeds maxTurns+1 messages.
	ErrTooLong = errors.New("history exceeds turn limit")
)

// Buffer applies the rotation rules to session histories. It holds no
// history itself, so one Buffer serves every session.
type Buffer struct {
	maxTurns int
	profile  func() string
}

// NewBuffer creates a buffer keeping maxTurns recent messages after the
// system message. profile is called each time a new history is seeded so a
// reloaded profile applies to new sessions.
func NewBuffer(maxTurns int, profile func() string) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if profile == nil {
		profile = func() string { return "" }
	}
	return &Buffer{maxTurns: maxTurns, profile: profile}
}

// MaxTurns returns the rotation limit.
func (b *Buffer) MaxTurns() int {
	return b.maxTurns
}

// Initialize returns a fresh history holding only the system message.
func (b *Buffer) Initialize() []model.Message {
	return []model.Message{model.NewSystemMessage(b.profile())}
}

// Append returns history with a new message at the end. When the result
// exceeds maxTurns+1 messages it is rebuilt as the system message followed by
// the maxTurns most recent messages. The input slice is never modified, so a
// caller may keep it as a rollback point.
func (b *Buffer) Append(history []model.Message, role model.Role, content string) []model.Message {
	if len(history) == 0 {
		history = b.Initialize()
	}

	next := make([]model.Message, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, model.Message{Role: role, Content: content})

	if len(next) <= b.maxTurns+1 {
		return next
	}

	rotated := make([]model.Message, 0, b.maxTurns+1)
	rotated = append(rotated, next[0])
	rotated = append(rotated, next[len(next)-b.maxTurns:]...)
	return rotated
}

// NonSystem returns the rotating part of history (everything after element 0).
func NonSystem(history []model.Message) []model.Message {
	if len(history) <= 1 {
		return nil
	}
	return history[1:]
}

// Validate checks the pinned-system and length invariants.
func (b *Buffer) Validate(history []model.Message) error {
	if len(history) == 0 || history[0].Role != model.RoleSystem {
		return ErrMissingSystem
	}
	for i, msg := range history[1:] {
		if msg.Role == model.RoleSystem {
			return fmt.Errorf("%w: duplicate system message at %d", ErrMissingSystem, i+1)
		}
	}
	if len(history) > b.maxTurns+1 {
		return fmt.Errorf("%w: %d messages, limit %d", ErrTooLong, len(history), b.maxTurns+1)
	}
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/yasser8111/HUAI/internal/conversation"
	"github.com/yasser8111/HUAI/internal/model"
	"github.com/yasser8111/HUAI/internal/router"
	"github.com/yasser8111/HUAI/internal/sanitize"
	"github.com/yasser8111/HUAI/internal/session"
	"github.com/yasser8111/HUAI/internal/util"
)

const (
	// DefaultMaxPromptLength is the longest accepted prompt, in runes.
	DefaultMaxPromptLength = 2000

	// DefaultEmptyReplyFallback replaces a reply that is empty after cleaning.
	DefaultEmptyReplyFallback = "عذراً، لم أتمكن من توليد رد مناسب. حاول صياغة سؤالك بشكل مختلف."

	previewWidth = 60
)

// Executor sends a conversation to a model. *inference.Client implements it.
type Executor interface {
	IsConfigured() bool
	Execute(ctx context.Context, messages []model.Message, modelID string, temperature float64) (string, error)
}

// Config wires a Service together.
type Config struct {
	Store   *session.Store
	Buffer  *conversation.Buffer
	Router  *router.Router
	Client  Executor
	Cleaner *sanitize.Cleaner

	MaxPromptLength    int
	EmptyReplyFallback string
	Logger             *slog.Logger
}

// Options are per-call overrides. An empty or "auto" Model and a nil
// Temperature leave the choice to the router.
type Options struct {
	Model       string
	Temperature *float64
}

// Reply is a successful Ask result.
type Reply struct {
	SessionID   string        `json:"session_id"`
	Text        string        `json:"reply"`
	Model       string        `json:"model"`
	ModelName   string        `json:"model_name,omitempty"`
	Temperature float64       `json:"temperature"`
	Route       string        `json:"route"`
	Overridden  bool          `json:"overridden,omitempty"`
	Fallback    bool          `json:"fallback,omitempty"`
	Duration    time.Duration `json:"-"`
}

// Stats are cumulative counters for the service.
type Stats struct {
	Requests  int64              `json:"requests"`
	Successes int64              `json:"successes"`
	Failures  map[string]int64   `json:"failures"`
	PerModel  map[string]int64   `json:"per_model"`
	Store     session.StoreStats `json:"store"`
}

// Service answers prompts within sessions. It is safe for concurrent use;
// concurrent calls on the same session are last-write-wins.
type Service struct {
	store    *session.Store
	buffer   *conversation.Buffer
	router   *router.Router
	client   Executor
	cleaner  *sanitize.Cleaner
	maxLen   int
	fallback string
	logger   *slog.Logger

	mu        sync.Mutex
	requests  int64
	successes int64
	failures  map[Kind]int64
	perModel  map[string]int64
}

// New creates a Service. Store, Buffer, Router and Client are required.
func New(cfg Config) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("assistant: store is required")
	case cfg.Buffer == nil:
		return nil, errors.New("assistant: buffer is required")
	case cfg.Router == nil:
		return nil, errors.New("assistant: router is required")
	case cfg.Client == nil:
		return nil, errors.New("assistant: client is required")
	}

	s := &Service{
		store:    cfg.Store,
		buffer:   cfg.Buffer,
		router:   cfg.Router,
		client:   cfg.Client,
		cleaner:  cfg.Cleaner,
		maxLen:   cfg.MaxPromptLength,
		fallback: cfg.EmptyReplyFallback,
		logger:   cfg.Logger,
		failures: make(map[Kind]int64),
		perModel: make(map[string]int64),
	}
	if s.cleaner == nil {
		s.cleaner = sanitize.MustCleaner(sanitize.DefaultFilteredScripts)
	}
	if s.maxLen <= 0 {
		s.maxLen = DefaultMaxPromptLength
	}
	if strings.TrimSpace(s.fallback) == "" {
		s.fallback = DefaultEmptyReplyFallback
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Router returns the router used to pick models.
func (s *Service) Router() *router.Router {
	return s.router
}

// Ask submits prompt in the given session and returns the reply text.
func (s *Service) Ask(ctx context.Context, sessionID, prompt string, opts Options) (string, error) {
	reply, err := s.AskDetailed(ctx, sessionID, prompt, opts)
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// AskDetailed is Ask with the routing decision attached to the result.
//
// On failure only this call's user turn is undone. If the session still
// holds exactly what this call stored, the pre-call history is restored,
// which also brings back a message the turn rotated out. If another call
// has since changed the session, the turn is removed only while it is still
// the last message; otherwise the session is left alone.
func (s *Service) AskDetailed(ctx context.Context, sessionID, prompt string, opts Options) (*Reply, error) {
	s.count(func() { s.requests++ })

	clean, err := s.validate(sessionID, prompt, opts)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	start := time.Now()
	snapshot := s.store.Get(sessionID)
	history := s.buffer.Append(snapshot, model.RoleUser, clean)
	s.store.Put(sessionID, history)

	decision := s.router.Route(clean, router.Override{Model: opts.Model, Temperature: opts.Temperature})
	log := s.logger.With("session", sessionID, "model", decision.Model)
	log.Debug("routed prompt",
		"route", decision.Route.String(),
		"temperature", decision.Temperature,
		"overridden", decision.ModelOverridden,
		"prompt", util.Preview(clean, previewWidth),
		"turns", len(conversation.NonSystem(history)))

	raw, err := s.client.Execute(ctx, history, decision.Model, decision.Temperature)
	if err != nil {
		s.rollback(sessionID, snapshot, history)
		typed := classify(err)
		log.Warn("ask failed, session restored", "kind", typed.Kind.String(), "status", typed.Status, "error", err)
		s.fail(typed)
		return nil, typed
	}

	text := s.cleaner.Clean(raw)
	fallback := text == ""
	if fallback {
		text = s.fallback
	}
	history = s.buffer.Append(history, model.RoleAssistant, text)
	s.store.Put(sessionID, history)

	reply := &Reply{
		SessionID:   sessionID,
		Text:        text,
		Model:       decision.Model,
		ModelName:   s.router.Registry().DisplayName(decision.Model),
		Temperature: decision.Temperature,
		Route:       decision.Route.String(),
		Overridden:  decision.ModelOverridden,
		Fallback:    fallback,
		Duration:    time.Since(start),
	}
	s.count(func() {
		s.successes++
		s.perModel[decision.Model]++
	})
	log.Info("ask completed", "duration", reply.Duration, "fallback", fallback, "reply_runes", util.RuneLen(text))
	return reply, nil
}

// rollback undoes the user turn appended by a failed call. appended is the
// history that call stored; snapshot is what it replaced.
func (s *Service) rollback(sessionID string, snapshot, appended []model.Message) {
	turn := appended[len(appended)-1]
	s.store.Update(sessionID, func(current []model.Message) []model.Message {
		switch {
		case current == nil || slices.Equal(current, appended):
			return snapshot
		case len(current) > 0 && current[len(current)-1] == turn:
			return current[:len(current)-1]
		default:
			return nil
		}
	})
}

// History returns a copy of the session's history without refreshing it.
func (s *Service) History(sessionID string) ([]model.Message, bool) {
	return s.store.Peek(sessionID)
}

// Stats returns a snapshot of the service counters.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		Requests:  s.requests,
		Successes: s.successes,
		Failures:  make(map[string]int64, len(s.failures)),
		PerModel:  make(map[string]int64, len(s.perModel)),
		Store:     s.store.Stats(),
	}
	for k, v := range s.failures {
		st.Failures[k.String()] = v
	}
	for k, v := range s.perModel {
		st.PerModel[k] = v
	}
	return st
}

// validate runs every check that must pass before session state is touched,
// and returns the sanitized prompt.
func (s *Service) validate(sessionID, prompt string, opts Options) (string, error) {
	if !s.client.IsConfigured() {
		return "", &Error{Kind: KindConfiguration, Message: "API key is missing"}
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", validationError(ErrEmptySessionID, "session id is required")
	}

	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", validationError(ErrEmptyPrompt, "Invalid prompt")
	}
	if n := util.RuneLen(trimmed); n > s.maxLen {
		return "", validationError(ErrPromptTooLong,
			fmt.Sprintf("prompt is %d characters, the limit is %d", n, s.maxLen))
	}
	if t := opts.Temperature; t != nil && (math.IsNaN(*t) || *t < 0 || *t > 1) {
		return "", validationError(ErrInvalidTemperature, ErrInvalidTemperature.Error())
	}

	clean := sanitize.Prompt(trimmed)
	if clean == "" {
		return "", validationError(ErrEmptyPrompt, "Prompt is empty after sanitization")
	}
	return clean, nil
}

func (s *Service) count(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
}

func (s *Service) fail(err error) {
	kind, ok := KindOf(err)
	if !ok {
		kind = KindInference
	}
	s.count(func() { s.failures[kind]++ })
}

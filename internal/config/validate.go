// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/yasser8111/HUAI/internal/logging"
	"github.com/yasser8111/HUAI/internal/sanitize"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors listing
// every problem found, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		add("server.addr", "invalid listen address %q: %v", c.Server.Addr, err)
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst < 1 {
		add("server.rate_limit_burst", "must be at least 1 when rate limiting is enabled")
	}
	if c.Server.SweepIntervalSecs < 0 {
		add("server.sweep_interval_secs", "must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		add("server.max_body_bytes", "must not be negative")
	}

	// Inference
	if u, err := url.Parse(c.Inference.Endpoint); err != nil || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		add("inference.endpoint", "must be an absolute http(s) URL, got %q", c.Inference.Endpoint)
	}
	if c.Inference.TimeoutSecs < 1 || c.Inference.TimeoutSecs > 600 {
		add("inference.timeout_secs", "must be between 1 and 600, got %d", c.Inference.TimeoutSecs)
	}
	if c.Inference.MaxRetries < 0 || c.Inference.MaxRetries > 10 {
		add("inference.max_retries", "must be between 0 and 10, got %d", c.Inference.MaxRetries)
	}
	if c.Inference.MaxTokens < 1 {
		add("inference.max_tokens", "must be positive, got %d", c.Inference.MaxTokens)
	}

	// Memory
	if c.Memory.MaxTurns < 1 {
		add("memory.max_turns", "must be positive, got %d", c.Memory.MaxTurns)
	}
	if c.Memory.MaxSessions < 1 {
		add("memory.max_sessions", "must be positive, got %d", c.Memory.MaxSessions)
	}
	if c.Memory.SessionTTLMins < 0 {
		add("memory.session_ttl_mins", "must not be negative")
	}

	// Routing
	if c.Routing.FastLimit < 1 {
		add("routing.fast_limit", "must be positive, got %d", c.Routing.FastLimit)
	}
	if c.Routing.MaxPromptLength < 1 {
		add("routing.max_prompt_length", "must be positive, got %d", c.Routing.MaxPromptLength)
	}

	// Models
	for name, m := range map[string]ModelEntry{
		"models.fast": c.Models.Fast, "models.smart": c.Models.Smart, "models.code": c.Models.Code,
	} {
		if strings.TrimSpace(m.ID) == "" || strings.EqualFold(m.ID, c.Models.Auto.ID) {
			add(name+".id", "must name a concrete model")
		}
	}

	// Output
	if _, err := sanitize.NewCleaner(c.Output.FilteredScripts); err != nil {
		add("output.filtered_scripts", "%v", err)
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v, must be one of: debug, info, warn, error", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json", "auto":
	default:
		add("log.format", "invalid format %q, must be text, json or auto", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

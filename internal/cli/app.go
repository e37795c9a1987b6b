// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/yasser8111/HUAI/internal/assistant"
	"github.com/yasser8111/HUAI/internal/config"
	"github.com/yasser8111/HUAI/internal/conversation"
	"github.com/yasser8111/HUAI/internal/inference"
	"github.com/yasser8111/HUAI/internal/logging"
	"github.com/yasser8111/HUAI/internal/router"
	"github.com/yasser8111/HUAI/internal/sanitize"
	"github.com/yasser8111/HUAI/internal/server"
	"github.com/yasser8111/HUAI/internal/session"
)

// app is everything a command needs, built from one loaded config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	profile *config.ProfileSource
	store   *session.Store
	router  *router.Router
	client  *inference.Client
	service *assistant.Service
}

// loadConfig reads the config file named by --config, or the default
// locations, and applies the --log-level override.
func loadConfig(g *globalOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if g.configPath != "" {
		cfg, err = config.LoadFromPath(g.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, &ConfigError{Path: g.configPath, Err: err}
	}

	if g.logLevel != "" {
		if _, err := logging.ParseLevel(g.logLevel); err != nil {
			return nil, &UsageError{Reason: err.Error(), Example: "huai --log-level debug serve"}
		}
		cfg.Log.Level = g.logLevel
	}
	return cfg, nil
}

// newLogger builds the process logger. Interactive commands log at warn
// unless a level was asked for explicitly, so replies are not interleaved
// with request logs.
func newLogger(cfg *config.Config, g *globalOptions, interactive bool, w io.Writer) (*slog.Logger, error) {
	level := cfg.Log.Level
	if interactive && g.logLevel == "" {
		level = "warn"
	}
	logger, err := logging.New(level, cfg.Log.Format, w)
	if err != nil {
		return nil, &ConfigError{Path: g.configPath, Err: err}
	}
	return logger, nil
}

// newApp wires the session store, conversation buffer, router, inference
// client and assistant service from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	profile, err := config.NewProfileSource(cfg.Profile, logger)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}
	cleaner, err := sanitize.NewCleaner(cfg.Output.FilteredScripts)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	buffer := conversation.NewBuffer(cfg.Memory.MaxTurns, profile.Text)
	store := session.NewStore(session.StoreConfig{
		Capacity: cfg.Memory.MaxSessions,
		TTL:      cfg.Memory.SessionTTL(),
	}, buffer.Initialize)
	rt := router.New(cfg.Registry(), cfg.Routing.FastLimit)
	client := inference.NewClient(inference.Config{
		Endpoint:   cfg.Inference.Endpoint,
		APIKey:     cfg.Inference.APIKey,
		Timeout:    cfg.Inference.Timeout(),
		MaxRetries: cfg.Inference.MaxRetries,
		MaxTokens:  cfg.Inference.MaxTokens,
		Logger:     logger.With("component", "inference"),
	})

	service, err := assistant.New(assistant.Config{
		Store:              store,
		Buffer:             buffer,
		Router:             rt,
		Client:             client,
		Cleaner:            cleaner,
		MaxPromptLength:    cfg.Routing.MaxPromptLength,
		EmptyReplyFallback: cfg.Output.EmptyReplyFallback,
		Logger:             logger.With("component", "assistant"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build assistant: %w", err)
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		profile: profile,
		store:   store,
		router:  rt,
		client:  client,
		service: service,
	}, nil
}

// setup loads the config and builds the app for a command.
func (g *globalOptions) setup(errOut io.Writer, interactive bool) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, g, interactive, errOut)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

// watchProfile hot-reloads the profile file until ctx is done.
func (a *app) watchProfile(ctx context.Context) {
	if a.profile.Path() == "" {
		return
	}
	go func() {
		if err := a.profile.Watch(ctx); err != nil {
			a.logger.Warn("profile watch stopped", "path", a.profile.Path(), "error", err)
		}
	}()
}

// newServer builds the HTTP API around the app's service and store.
func (a *app) newServer() *server.Server {
	s := a.cfg.Server
	return server.New(a.service, a.store, server.Options{
		Addr:           s.Addr,
		AllowedOrigins: s.AllowedOrigins,
		RateLimitRPS:   s.RateLimitRPS,
		RateLimitBurst: s.RateLimitBurst,
		AuthToken:      s.AuthToken,
		SweepInterval:  s.SweepInterval(),
		MaxBodyBytes:   s.MaxBodyBytes,
		Registry:       a.router.Registry(),
		Configured:     a.client.IsConfigured(),
		Logger:         a.logger.With("component", "server"),
	})
}

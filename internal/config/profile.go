// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// profileDebounce coalesces the burst of events editors emit on save.
const profileDebounce = 100 * time.Millisecond

// ProfileSource serves the current system profile text. It is safe for
// concurrent use; Text is what conversation buffers call when seeding.
type ProfileSource struct {
	mu     sync.RWMutex
	text   string
	path   string
	logger *slog.Logger
}

// NewProfileSource builds a source from the profile section. When File is
// set it is read immediately and an unreadable or empty file is an error.
func NewProfileSource(cfg ProfileConfig, logger *slog.Logger) (*ProfileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &ProfileSource{text: cfg.Text, logger: logger}
	if cfg.File == "" {
		return p, nil
	}

	abs, err := filepath.Abs(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("profile file: %w", err)
	}
	p.path = abs
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Text returns the current profile.
func (p *ProfileSource) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

// Path returns the watched file, or "" for a static profile.
func (p *ProfileSource) Path() string {
	return p.path
}

// Reload re-reads the profile file. On failure the previous text is kept.
func (p *ProfileSource) Reload() error {
	if p.path == "" {
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read profile file: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("profile file %s is empty", p.path)
	}

	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
	return nil
}

// Watch reloads the profile whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file on save
// are handled. Existing sessions keep the profile they were seeded with.
func (p *ProfileSource) Watch(ctx context.Context) error {
	if p.path == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(p.path), err)
	}

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(profileDebounce)
			} else {
				timer.Reset(profileDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := p.Reload(); err != nil {
				p.logger.Warn("profile reload failed, keeping previous profile", "path", p.path, "error", err)
				continue
			}
			p.logger.Info("profile reloaded", "path", p.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("profile watcher error", "error", err)
		}
	}
}

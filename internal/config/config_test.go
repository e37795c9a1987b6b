// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range append(apiKeyVars, "HUAI_ENDPOINT", "HUAI_ADDR", "HUAI_LOG_LEVEL", "HUAI_PROFILE_FILE") {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6, cfg.Memory.MaxTurns)
	assert.Equal(t, 1000, cfg.Memory.MaxSessions)
	assert.Equal(t, time.Hour, cfg.Memory.SessionTTL())
	assert.Equal(t, 30*time.Second, cfg.Inference.Timeout())
	assert.Equal(t, 9999, cfg.Inference.MaxTokens)
	assert.Equal(t, 40, cfg.Routing.FastLimit)
	assert.Equal(t, 2000, cfg.Routing.MaxPromptLength)
	assert.Contains(t, cfg.Profile.Text, "HUAI")
}

func TestLoadFromPath_TOMLPartialFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
[memory]
max_turns = 4

[inference]
max_retries = 0

[models.fast]
id = "my/fast-model"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Memory.MaxTurns)
	assert.Equal(t, 1000, cfg.Memory.MaxSessions, "unset keys keep defaults")
	assert.Equal(t, 0, cfg.Inference.MaxRetries, "explicit zero retries is kept")
	assert.Equal(t, "my/fast-model", cfg.Registry().Fast.ID)
	assert.Equal(t, Default().Models.Smart, cfg.Models.Smart)
}

func TestLoadFromPath_JSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"routing": {"fast_limit": 10}}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Routing.FastLimit)
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", "[memory]\nmax_turn = 4\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory.max_turn")
}

func TestLoadFromPath_Invalid(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.toml", `
[memory]
max_turns = -1

[output]
filtered_scripts = ["Klingon"]
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, len(verrs))
	for i, v := range verrs {
		fields[i] = v.Field
	}
	assert.Contains(t, fields, "memory.max_turns")
	assert.Contains(t, fields, "output.filtered_scripts")
}

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VITE_HF_API_KEY", "vite-key")
	t.Setenv("HUAI_ADDR", "0.0.0.0:9000")
	t.Setenv("HUAI_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "vite-key", cfg.Inference.APIKey)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)

	t.Setenv("HUAI_API_KEY", "primary")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "primary", cfg.Inference.APIKey, "HUAI_API_KEY takes precedence")
}

func TestValidate_ReportsEveryError(t *testing.T) {
	cfg := Default()
	cfg.Server.Addr = "nope"
	cfg.Inference.Endpoint = "ftp://x"
	cfg.Models.Code.ID = "auto"
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 4)
}

func TestSaveTOML_RoundTripAndPermissions(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Memory.MaxTurns = 8
	cfg.Inference.APIKey = "secret"
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Memory.MaxTurns)
	assert.Equal(t, "secret", loaded.Inference.APIKey)
}

func TestGet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("memory.max_turns")
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	v, err = cfg.Get("models.code.id")
	require.NoError(t, err)
	assert.Equal(t, "Qwen/Qwen2.5-Coder-32B-Instruct", v)

	_, err = cfg.Get("memory.nope")
	assert.Error(t, err)
	_, err = cfg.Get("memory.max_turns.deeper")
	assert.Error(t, err)
}

func TestString_RedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Inference.APIKey = "hf_supersecret"
	cfg.Server.AuthToken = "tok"

	s := cfg.String()
	assert.NotContains(t, s, "hf_supersecret")
	assert.NotContains(t, s, `"tok"`)
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "hf_supersecret", cfg.Inference.APIKey, "original is untouched")
}

func TestProfileSource_Static(t *testing.T) {
	p, err := NewProfileSource(ProfileConfig{Text: "static"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "static", p.Text())
	assert.Empty(t, p.Path())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.Watch(ctx))
}

func TestProfileSource_FileErrors(t *testing.T) {
	_, err := NewProfileSource(ProfileConfig{File: filepath.Join(t.TempDir(), "missing.md")}, nil)
	assert.Error(t, err)

	empty := writeFile(t, "profile.md", "   \n")
	_, err = NewProfileSource(ProfileConfig{File: empty}, nil)
	assert.Error(t, err)
}

func TestProfileSource_WatchReloads(t *testing.T) {
	path := writeFile(t, "profile.md", "first profile")

	p, err := NewProfileSource(ProfileConfig{Text: "ignored", File: path}, nil)
	require.NoError(t, err)
	assert.Equal(t, "first profile", p.Text())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("second profile\n"), 0o600))

	assert.Eventually(t, func() bool { return p.Text() == "second profile" },
		3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yasser8111/HUAI/internal/model"
	"github.com/yasser8111/HUAI/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete HUAI configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server    ServerConfig    `toml:"server" json:"server"`
	Inference InferenceConfig `toml:"inference" json:"inference"`
	Memory    MemoryConfig    `toml:"memory" json:"memory"`
	Routing   RoutingConfig   `toml:"routing" json:"routing"`
	Models    ModelsConfig    `toml:"models" json:"models"`
	Profile   ProfileConfig   `toml:"profile" json:"profile"`
	Output    OutputConfig    `toml:"output" json:"output"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`

	// AllowedOrigins lists browser origins allowed by CORS. "*" allows any.
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`

	// Per-client-IP token bucket. RPS <= 0 disables rate limiting.
	RateLimitRPS   float64 `toml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst" json:"rate_limit_burst"`

	// AuthToken, when set, is required as a bearer token on /api routes.
	AuthToken string `toml:"auth_token" json:"auth_token,omitempty"`

	SweepIntervalSecs int   `toml:"sweep_interval_secs" json:"sweep_interval_secs"`
	MaxBodyBytes      int64 `toml:"max_body_bytes" json:"max_body_bytes"`
}

// InferenceConfig holds the chat-completions endpoint settings.
type InferenceConfig struct {
	Endpoint    string `toml:"endpoint" json:"endpoint"`
	APIKey      string `toml:"api_key" json:"api_key,omitempty"`
	TimeoutSecs int    `toml:"timeout_secs" json:"timeout_secs"`
	MaxRetries  int    `toml:"max_retries" json:"max_retries"`
	MaxTokens   int    `toml:"max_tokens" json:"max_tokens"`
}

// MemoryConfig bounds the in-process session memory.
type MemoryConfig struct {
	MaxTurns       int `toml:"max_turns" json:"max_turns"`
	MaxSessions    int `toml:"max_sessions" json:"max_sessions"`
	SessionTTLMins int `toml:"session_ttl_mins" json:"session_ttl_mins"`
}

// RoutingConfig holds routing thresholds.
type RoutingConfig struct {
	FastLimit       int `toml:"fast_limit" json:"fast_limit"`
	MaxPromptLength int `toml:"max_prompt_length" json:"max_prompt_length"`
}

// ModelEntry is one model registry slot.
type ModelEntry struct {
	ID          string `toml:"id" json:"id"`
	DisplayName string `toml:"display_name" json:"display_name"`
}

// ModelsConfig is the model registry.
type ModelsConfig struct {
	Auto  ModelEntry `toml:"auto" json:"auto"`
	Fast  ModelEntry `toml:"fast" json:"fast"`
	Smart ModelEntry `toml:"smart" json:"smart"`
	Code  ModelEntry `toml:"code" json:"code"`
}

// ProfileConfig selects the system profile. File wins over Text.
type ProfileConfig struct {
	Text string `toml:"text" json:"text"`
	File string `toml:"file" json:"file,omitempty"`
}

// OutputConfig controls reply post-processing.
type OutputConfig struct {
	FilteredScripts    []string `toml:"filtered_scripts" json:"filtered_scripts"`
	EmptyReplyFallback string   `toml:"empty_reply_fallback" json:"empty_reply_fallback"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Registry converts the models section into a model.Registry.
func (c *Config) Registry() model.Registry {
	conv := func(e ModelEntry) model.Descriptor {
		return model.Descriptor{ID: e.ID, DisplayName: e.DisplayName}
	}
	return model.Registry{
		Auto:  conv(c.Models.Auto),
		Fast:  conv(c.Models.Fast),
		Smart: conv(c.Models.Smart),
		Code:  conv(c.Models.Code),
	}
}

// Timeout returns the per-attempt inference timeout.
func (c *InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SessionTTL returns the idle session lifetime.
func (c *MemoryConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMins) * time.Minute
}

// SweepInterval returns the janitor period.
func (c *ServerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the HUAI configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".huai"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default locations. TOML is tried first,
// then JSON; if neither exists the defaults are used. Environment overrides
// are applied last, then the result is validated.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// finish applies overrides and defaults, then validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep the
// values already in cfg.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions, since the
// file may hold the API key.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# HUAI configuration file\n")
	buf.WriteString("# Generated by huai config init - edit with care\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// GET HELPER (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path, e.g. "memory.max_turns".
func (c *Config) Get(key string) (interface{}, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for _, part := range strings.Split(key, ".") {
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown key: %s", key)
		}
		v = field
	}
	return v.Interface(), nil
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if strings.EqualFold(tag, name) {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// =============================================================================
// DISPLAY
// =============================================================================

// Redacted returns a copy with secrets replaced.
func (c *Config) Redacted() *Config {
	safe := *c
	safe.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	safe.Output.FilteredScripts = append([]string(nil), c.Output.FilteredScripts...)
	if safe.Inference.APIKey != "" {
		safe.Inference.APIKey = "[REDACTED]"
	}
	if safe.Server.AuthToken != "" {
		safe.Server.AuthToken = "[REDACTED]"
	}
	return &safe
}

// String returns the redacted configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"strings"
)

// apiKeyVars are checked in order; the first non-empty one wins.
var apiKeyVars = []string{"HUAI_API_KEY", "HF_API_KEY", "VITE_HF_API_KEY"}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - HUAI_API_KEY, HF_API_KEY, VITE_HF_API_KEY: inference.api_key
//   - HUAI_ENDPOINT: inference.endpoint
//   - HUAI_ADDR: server.addr
//   - HUAI_LOG_LEVEL: log.level
//   - HUAI_PROFILE_FILE: profile.file
func (c *Config) ApplyEnvOverrides() {
	for _, name := range apiKeyVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.Inference.APIKey = key
			break
		}
	}

	if endpoint := os.Getenv("HUAI_ENDPOINT"); endpoint != "" {
		c.Inference.Endpoint = endpoint
	}

	if addr := os.Getenv("HUAI_ADDR"); addr != "" {
		c.Server.Addr = addr
	}

	if level := os.Getenv("HUAI_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if file := os.Getenv("HUAI_PROFILE_FILE"); file != "" {
		c.Profile.File = file
	}
}

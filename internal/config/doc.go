// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for HUAI.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - the --config path, if given
//   - ~/.huai/config.toml
//   - ~/.huai/config.json
//   - Built-in defaults
//
// # Environment
//
//	HUAI_API_KEY (or HF_API_KEY, VITE_HF_API_KEY)  inference.api_key
//	HUAI_ENDPOINT                                  inference.endpoint
//	HUAI_ADDR                                      server.addr
//	HUAI_LOG_LEVEL                                 log.level
//	HUAI_PROFILE_FILE                              profile.file
//
// # Profile
//
// The system profile that seeds new sessions is served by a ProfileSource.
// When profile.file is set the file is re-read whenever it changes on disk.
package config

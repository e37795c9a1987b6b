// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the huai command line.
//
// # Commands
//
//   - serve: run the HTTP API
//   - ask: send one prompt and print the reply
//   - chat: interactive REPL with line editing and history
//   - route: show which model a prompt would be routed to
//   - models: list the model registry
//   - config show|init|path: inspect or create the configuration file
//
// Every command accepts the global --config, --log-level and --no-color
// flags. Commands return errors instead of exiting; Execute maps them to
// process exit codes.
package cli

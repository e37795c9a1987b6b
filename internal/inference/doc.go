// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inference is the client for OpenAI-compatible chat-completions
// endpoints (the Hugging Face router by default).
//
// A call is one POST per attempt. Each attempt gets its own deadline
// (Config.Timeout). Only 5xx answers are retried, immediately and at most
// Config.MaxRetries times. Failures surface as ErrTimeout, ErrNotConfigured
// or *UpstreamError.
//
// # Usage
//
//	c := inference.NewClient(inference.Config{APIKey: key})
//	reply, err := c.Execute(ctx, history, "deepseek-ai/DeepSeek-V3", 0.7)
package inference

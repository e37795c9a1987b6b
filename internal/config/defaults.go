// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

// DefaultProfile is the system message given to every new session.
const DefaultProfile = `# Identity
Your name is HUAI, "Hadhramaut University Artificial Intelligence".
The official smart assistant of Hadhramaut University.

# Core Mission
- Provide expert academic assistance for university students.

# Code Display Guidelines
- Language: 100% English for all identifiers.
- Formatting: Always wrap code blocks in standard Markdown fences.
- Clean Code: No redundant comments or notes inside the code block. Pure code only.
- Architecture: Modular, camelCase, and Single Responsibility Principle.

# Response Logic & Tone
- Output Language: Modern Standard Arabic for explanations.
- Conciseness: Keep explanations brief and direct. Avoid long introductions.
- Structure:
    1. Direct Code/Solution.
    2. Minimalist Arabic explanation (1-3 sentences).
    3. Warning of edge cases if necessary.

# Debugging & Refactoring
- User Arabic Code: Automatically refactor any Arabic identifiers provided by the user into English.
- ASCII ONLY: Strictly forbid non-Latin characters inside code blocks.

# Security & Personality
- Be helpful, academic, and encouraging to HU students.
- No hallucination: If unknown, say "I don't know".
`

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			Addr:              "127.0.0.1:8787",
			AllowedOrigins:    []string{"http://localhost:5173"},
			RateLimitRPS:      2,
			RateLimitBurst:    10,
			SweepIntervalSecs: 60,
			MaxBodyBytes:      64 * 1024,
		},

		Inference: InferenceConfig{
			Endpoint:    "https://router.huggingface.co/v1/chat/completions",
			TimeoutSecs: 30,
			MaxRetries:  2,
			MaxTokens:   9999,
		},

		Memory: MemoryConfig{
			MaxTurns:       6,
			MaxSessions:    1000,
			SessionTTLMins: 60,
		},

		Routing: RoutingConfig{
			FastLimit:       40,
			MaxPromptLength: 2000,
		},

		Models: ModelsConfig{
			Auto:  ModelEntry{ID: "auto", DisplayName: "تلقائي - Auto"},
			Fast:  ModelEntry{ID: "meta-llama/Llama-3.2-3B-Instruct", DisplayName: "السريع - Llama 3.2"},
			Smart: ModelEntry{ID: "deepseek-ai/DeepSeek-V3", DisplayName: "الذكي - DeepSeek V3"},
			Code:  ModelEntry{ID: "Qwen/Qwen2.5-Coder-32B-Instruct", DisplayName: "المبرمج - Qwen 2.5"},
		},

		Profile: ProfileConfig{
			Text: DefaultProfile,
		},

		Output: OutputConfig{
			FilteredScripts:    []string{"Han", "Hiragana", "Katakana", "Devanagari"},
			EmptyReplyFallback: "عذراً، لم أتمكن من توليد رد مناسب. حاول صياغة سؤالك بشكل مختلف.",
		},

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}

	// Server
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = d.Server.AllowedOrigins
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = d.Server.RateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if c.Server.SweepIntervalSecs == 0 {
		c.Server.SweepIntervalSecs = d.Server.SweepIntervalSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}

	// Inference
	if c.Inference.Endpoint == "" {
		c.Inference.Endpoint = d.Inference.Endpoint
	}
	if c.Inference.TimeoutSecs == 0 {
		c.Inference.TimeoutSecs = d.Inference.TimeoutSecs
	}
	if c.Inference.MaxTokens == 0 {
		c.Inference.MaxTokens = d.Inference.MaxTokens
	}

	// Memory
	if c.Memory.MaxTurns == 0 {
		c.Memory.MaxTurns = d.Memory.MaxTurns
	}
	if c.Memory.MaxSessions == 0 {
		c.Memory.MaxSessions = d.Memory.MaxSessions
	}
	if c.Memory.SessionTTLMins == 0 {
		c.Memory.SessionTTLMins = d.Memory.SessionTTLMins
	}

	// Routing
	if c.Routing.FastLimit == 0 {
		c.Routing.FastLimit = d.Routing.FastLimit
	}
	if c.Routing.MaxPromptLength == 0 {
		c.Routing.MaxPromptLength = d.Routing.MaxPromptLength
	}

	// Models
	fillModel(&c.Models.Auto, d.Models.Auto)
	fillModel(&c.Models.Fast, d.Models.Fast)
	fillModel(&c.Models.Smart, d.Models.Smart)
	fillModel(&c.Models.Code, d.Models.Code)

	// Profile
	if c.Profile.Text == "" && c.Profile.File == "" {
		c.Profile.Text = d.Profile.Text
	}

	// Output
	if c.Output.FilteredScripts == nil {
		c.Output.FilteredScripts = d.Output.FilteredScripts
	}
	if c.Output.EmptyReplyFallback == "" {
		c.Output.EmptyReplyFallback = d.Output.EmptyReplyFallback
	}

	// Log
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

func fillModel(m *ModelEntry, d ModelEntry) {
	if m.ID == "" {
		m.ID = d.ID
	}
	if m.DisplayName == "" {
		m.DisplayName = m.ID
		if m.ID == d.ID {
			m.DisplayName = d.DisplayName
		}
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// AutoID is the sentinel model id meaning "let the router decide".
const AutoID = "auto"

// IsAuto reports whether id asks for automatic model selection.
// An empty id is treated the same as the sentinel.
func IsAuto(id string) bool {
	id = strings.TrimSpace(id)
	return id == "" || strings.EqualFold(id, AutoID)
}

// =============================================================================
// MODEL DESCRIPTOR
// =============================================================================

// Descriptor identifies a model offered to the user.
type Descriptor struct {
	// ID is the identifier understood by the inference endpoint.
	ID string `json:"id" toml:"id"`

	// DisplayName is the human label shown in the model picker.
	DisplayName string `json:"display_name" toml:"display_name"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Registry is the fixed set of models the router chooses between, plus the
// Auto sentinel entry shown to users.
type Registry struct {
	Auto  Descriptor `json:"auto" toml:"auto"`
	Fast  Descriptor `json:"fast" toml:"fast"`
	Smart Descriptor `json:"smart" toml:"smart"`
	Code  Descriptor `json:"code" toml:"code"`
}

// DefaultRegistry returns the models served through the Hugging Face router.
func DefaultRegistry() Registry {
	return Registry{
		Auto: Descriptor{
			ID:          AutoID,
			DisplayName: "تلقائي - Auto",
		},
		Fast: Descriptor{
			ID:          "meta-llama/Llama-3.2-3B-Instruct",
			DisplayName: "السريع - Llama 3.2",
		},
		Smart: Descriptor{
			ID:          "deepseek-ai/DeepSeek-V3",
			DisplayName: "الذكي - DeepSeek V3",
		},
		Code: Descriptor{
			ID:          "Qwen/Qwen2.5-Coder-32B-Instruct",
			DisplayName: "المبرمج - Qwen 2.5",
		},
	}
}

// All returns the descriptors in picker order: Auto, Fast, Smart, Code.
func (r Registry) All() []Descriptor {
	return []Descriptor{r.Auto, r.Fast, r.Smart, r.Code}
}

// Lookup finds a descriptor by id (case-insensitive).
func (r Registry) Lookup(id string) (Descriptor, bool) {
	for _, d := range r.All() {
		if strings.EqualFold(d.ID, id) {
			return d, true
		}
	}
	return Descriptor{}, false
}

// DisplayName returns the label for id, or id itself for models outside the registry.
func (r Registry) DisplayName(id string) string {
	if d, ok := r.Lookup(id); ok {
		return d.DisplayName
	}
	return id
}

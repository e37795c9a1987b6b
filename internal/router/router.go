// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"strings"

	"github.com/yasser8111/HUAI/internal/model"
)

// DefaultFastLimit is the prompt length (in runes) above which the fast
// model is skipped.
const DefaultFastLimit = 40

// Router maps prompts to a model and temperature.
type Router struct {
	registry  model.Registry
	fastLimit int
}

// New creates a router over the given registry.
func New(registry model.Registry, fastLimit int) *Router {
	if fastLimit <= 0 {
		fastLimit = DefaultFastLimit
	}
	return &Router{registry: registry, fastLimit: fastLimit}
}

// Registry returns the model registry the router selects from.
func (r *Router) Registry() model.Registry {
	return r.registry
}

// FastLimit returns the fast-path length threshold.
func (r *Router) FastLimit() int {
	return r.fastLimit
}

// Classify returns the routed decision for a sanitized prompt. It is pure:
// the same prompt always yields the same decision.
func (r *Router) Classify(prompt string) Decision {
	route := ClassifyRoute(prompt, r.fastLimit)
	return Decision{
		Route:       route,
		Model:       r.modelFor(route),
		Temperature: route.Temperature(),
	}
}

// Route classifies the prompt and then applies caller overrides. A model
// override replaces the routed model entirely; a temperature override is
// applied independently.
func (r *Router) Route(prompt string, override Override) Decision {
	d := r.Classify(prompt)
	if !model.IsAuto(override.Model) {
		d.Model = strings.TrimSpace(override.Model)
		d.ModelOverridden = true
	}
	if override.Temperature != nil {
		d.Temperature = *override.Temperature
		d.TemperatureOverridden = true
	}
	return d
}

func (r *Router) modelFor(route Route) string {
	switch route {
	case RouteCode:
		return r.registry.Code.ID
	case RouteCreative, RouteLong:
		return r.registry.Smart.ID
	default:
		return r.registry.Fast.ID
	}
}

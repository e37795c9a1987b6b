// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import "fmt"

// ============================================================================
// ROUTE TYPE
// ============================================================================

// Route names the rule that produced a routing decision.
// Rules are evaluated in declaration order; the first match wins.
type Route int

const (
	// RouteCode is chosen when the prompt looks like programming work.
	RouteCode Route = iota
	// RouteCreative is chosen for creative-writing requests.
	RouteCreative
	// RouteLong is chosen for prompts longer than the fast-path limit.
	RouteLong
	// RouteFast is the default, cheapest path.
	RouteFast
)

// String returns the human-readable name of the route.
func (r Route) String() string {
	switch r {
	case RouteCode:
		return "code"
	case RouteCreative:
		return "creative"
	case RouteLong:
		return "long"
	case RouteFast:
		return "fast"
	default:
		return fmt.Sprintf("Route(%d)", r)
	}
}

// Temperature returns the generation temperature attached to the route.
//   - Code: 0.1, favors deterministic output
//   - Creative: 0.9, favors variety
//   - Long: 0.7
//   - Fast: 0.5
func (r Route) Temperature() float64 {
	switch r {
	case RouteCode:
		return 0.1
	case RouteCreative:
		return 0.9
	case RouteLong:
		return 0.7
	default:
		return 0.5
	}
}

// ============================================================================
// ROUTING DECISION
// ============================================================================

// Decision is the model and temperature chosen for one prompt.
// It is computed per request and never persisted.
type Decision struct {
	Route       Route   `json:"route"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`

	// ModelOverridden and TemperatureOverridden record caller overrides.
	ModelOverridden       bool `json:"model_overridden,omitempty"`
	TemperatureOverridden bool `json:"temperature_overridden,omitempty"`
}

// String returns a one-line description for logs.
func (d Decision) String() string {
	src := "routed"
	if d.ModelOverridden {
		src = "override"
	}
	return fmt.Sprintf("%s -> %s (%s) @ %.2f", d.Route, d.Model, src, d.Temperature)
}

// Override carries optional caller choices. An empty or "auto" Model keeps the
// routed model; a nil Temperature keeps the routed temperature.
type Override struct {
	Model       string
	Temperature *float64
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yasser8111/HUAI/internal/router"
	"github.com/yasser8111/HUAI/internal/sanitize"
)

// routeOutput is the --json form of a routing decision.
type routeOutput struct {
	Route                 string  `json:"route"`
	Model                 string  `json:"model"`
	ModelName             string  `json:"model_name"`
	Temperature           float64 `json:"temperature"`
	ModelOverridden       bool    `json:"model_overridden"`
	TemperatureOverridden bool    `json:"temperature_overridden"`
}

func newRouteCommand(g *globalOptions) *cobra.Command {
	o := &askOptions{}

	cmd := &cobra.Command{
		Use:   "route <prompt...>",
		Short: "Show which model a prompt would be sent to",
		Long: `Route classifies the prompt exactly as ask would, after sanitising it,
and prints the chosen model and temperature. The endpoint is not called.`,
		Example: `  huai route "fix this python function"
  huai route --json "اكتب قصيدة عن البحر"`,
		Args: promptArgs(`huai route "write a poem"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			rt := router.New(cfg.Registry(), cfg.Routing.FastLimit)

			prompt := sanitize.Prompt(strings.TrimSpace(strings.Join(args, " ")))
			if prompt == "" {
				return &UsageError{Reason: "prompt is empty after sanitising"}
			}
			opts := o.assistantOptions(cmd.Flags())
			d := rt.Route(prompt, router.Override{Model: opts.Model, Temperature: opts.Temperature})

			out := routeOutput{
				Route:                 d.Route.String(),
				Model:                 d.Model,
				ModelName:             rt.Registry().DisplayName(d.Model),
				Temperature:           d.Temperature,
				ModelOverridden:       d.ModelOverridden,
				TemperatureOverridden: d.TemperatureOverridden,
			}
			w := cmd.OutOrStdout()
			if o.json {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(out)
			}

			fmt.Fprintln(w, RenderField("Route:", out.Route))
			fmt.Fprintln(w, RenderField("Model:", out.Model))
			fmt.Fprintln(w, RenderField("Name:", out.ModelName))
			fmt.Fprintln(w, RenderField("Temperature:", fmt.Sprintf("%.2f", out.Temperature)))
			if d.ModelOverridden || d.TemperatureOverridden {
				fmt.Fprintln(w, RenderLabel("Source:")+WarningStyle.Render("override"))
			} else {
				fmt.Fprintln(w, RenderField("Source:", "routed"))
			}
			return nil
		},
	}

	addOverrideFlags(cmd.Flags(), o)
	cmd.Flags().BoolVar(&o.json, "json", false, "print the decision as JSON")
	return cmd
}

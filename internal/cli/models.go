// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/yasser8111/HUAI/internal/model"
)

func newModelsCommand(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the model registry",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			reg := cfg.Registry()
			w := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(reg.All())
			}

			slots := []string{"auto", "fast", "smart", "code"}
			idWidth := 0
			for _, d := range reg.All() {
				if n := runewidth.StringWidth(d.ID); n > idWidth {
					idWidth = n
				}
			}
			fmt.Fprintln(w, TitleStyle.Render("Models"))
			for i, d := range reg.All() {
				id := d.ID
				if model.IsAuto(id) {
					id = model.AutoID
				}
				fmt.Fprintf(w, "  %s %s  %s\n",
					LabelStyle.Width(8).Render(slots[i]),
					ValueStyle.Render(runewidth.FillRight(id, idWidth)),
					DimStyle.Render(d.DisplayName))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the registry as JSON")
	return cmd
}

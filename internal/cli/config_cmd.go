// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yasser8111/HUAI/internal/config"
)

func newConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
		Args:  noArgs,
	}
	cmd.AddCommand(
		newConfigShowCommand(g),
		newConfigInitCommand(g),
		newConfigPathCommand(g),
	)
	return cmd
}

// configFile returns --config or the default TOML location.
func (g *globalOptions) configFile() (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return path, nil
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [key]",
		Short: "Print the effective configuration with secrets redacted",
		Example: `  huai config show
  huai config show inference.endpoint
  huai config show --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			safe := cfg.Redacted()
			w := cmd.OutOrStdout()

			if len(args) == 1 {
				v, err := safe.Get(args[0])
				if err != nil {
					return &UsageError{Reason: err.Error(), Example: "huai config show server.addr"}
				}
				if asJSON {
					return json.NewEncoder(w).Encode(v)
				}
				fmt.Fprintln(w, v)
				return nil
			}

			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(safe)
			}
			fmt.Fprint(w, cfg.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newConfigInitCommand(g *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return &UsageError{
					Reason:  fmt.Sprintf("%s already exists", path),
					Example: "huai config init --force",
				}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return &ConfigError{Path: path, Err: err}
			}

			if err := config.SaveTOML(config.Default(), path); err != nil {
				return &ConfigError{Path: path, Err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("[OK]"), path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigPathCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := g.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Example: `  huai serve
  huai serve --addr 0.0.0.0:8080
  HUAI_API_KEY=hf_xxx huai serve --log-level debug`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup(cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			ctx := cmd.Context()
			a.watchProfile(ctx)

			if a.client.IsConfigured() {
				a.logger.Info("inference configured",
					"endpoint", a.client.Endpoint(),
					"key", a.client.KeyFingerprint(),
					"attempts", a.client.MaxAttempts())
			} else {
				a.logger.Warn("no API key configured, ask requests will fail until one is set")
			}
			return a.newServer().Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set at build time)
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Streams are the command's standard streams.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	logLevel   string
	noColor    bool
}

// NewRootCommand builds the huai command tree on the given streams.
func NewRootCommand(streams Streams) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "huai",
		Short: "HUAI academic assistant backend",
		Long: `HUAI answers questions through a hosted chat-completions endpoint,
keeping a short per-session memory and routing each prompt to a fast,
smart or code model.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureColors(cmd.OutOrStdout(), g.noColor)
		},
	}
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &UsageError{Reason: err.Error(), Example: cmd.UseLine()}
	})

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "config file (default ~/.huai/config.toml)")
	flags.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&g.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newServeCommand(g),
		newAskCommand(g),
		newChatCommand(g),
		newRouteCommand(g),
		newModelsCommand(g),
		newConfigCommand(g),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
// SIGINT and SIGTERM cancel the command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	err := root.ExecuteContext(ctx)
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return GetExitCode(err)
}

// promptArgs requires at least one argument, the words of a prompt.
func promptArgs(example string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return &UsageError{Reason: "a prompt is required", Example: example}
		}
		return nil
	}
}

// noArgs rejects positional arguments.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return &UsageError{Reason: fmt.Sprintf("unexpected argument %q", args[0]), Example: cmd.UseLine()}
	}
	return nil
}

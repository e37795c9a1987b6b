// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yasser8111/HUAI/internal/assistant"
)

// askOptions are the per-prompt overrides shared by ask and chat.
type askOptions struct {
	session     string
	model       string
	temperature float64
	verbose     bool
	json        bool
}

// addOverrideFlags registers --model and --temperature on fs.
func addOverrideFlags(fs *pflag.FlagSet, o *askOptions) {
	fs.StringVarP(&o.model, "model", "m", "", "model id to use instead of routing (\"auto\" routes)")
	fs.Float64VarP(&o.temperature, "temperature", "t", 0, "sampling temperature in [0,1] instead of the routed one")
}

// assistantOptions converts the flags to service options. The temperature
// override only applies when the flag was given.
func (o *askOptions) assistantOptions(fs *pflag.FlagSet) assistant.Options {
	opts := assistant.Options{Model: o.model}
	if fs.Changed("temperature") {
		t := o.temperature
		opts.Temperature = &t
	}
	return opts
}

func newAskCommand(g *globalOptions) *cobra.Command {
	o := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask <prompt...>",
		Short: "Send one prompt and print the reply",
		Example: `  huai ask "ما هو الفرق بين TCP و UDP؟"
  huai ask --model Qwen/Qwen2.5-Coder-32B-Instruct "write a binary search in Go"
  huai ask --json --temperature 0.2 explain recursion`,
		Args: promptArgs(`huai ask "what is a linked list?"`),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}

			sessionID := o.session
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			prompt := strings.Join(args, " ")

			reply, err := a.service.AskDetailed(cmd.Context(), sessionID, prompt, o.assistantOptions(cmd.Flags()))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if o.json {
				return writeReplyJSON(out, reply)
			}
			if o.verbose {
				fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render(describeReply(reply)))
			}
			fmt.Fprintln(out, reply.Text)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&o.session, "session", "s", "", "session id (default: a new session)")
	addOverrideFlags(fs, o)
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "print the routing decision to stderr")
	fs.BoolVar(&o.json, "json", false, "print the reply as JSON")
	return cmd
}

// describeReply is the one-line routing summary shown in verbose mode.
func describeReply(r *assistant.Reply) string {
	name := r.ModelName
	if name == "" {
		name = r.Model
	}
	how := "routed"
	if r.Overridden {
		how = "override"
	}
	return fmt.Sprintf("[%s] %s (%s, %s) @ %.2f in %s", r.Route, name, r.Model, how, r.Temperature, r.Duration.Round(time.Millisecond))
}

func writeReplyJSON(w io.Writer, r *assistant.Reply) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(r)
}

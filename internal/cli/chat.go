// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command for the huai CLI.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   huai chat                         Start a new session
//   huai chat --session 7f3c...       Continue an existing session id
//   huai chat --model <id>            Pin a model instead of routing
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /reset              Start a new session
//   /model [id|auto]    Show or set the model override
//   /temp [t|auto]      Show or set the temperature override
//   /history            Show the session's turns
//   /exit, /quit, /q    Exit chat
//   Ctrl+D              Exit chat
//
// When stdin is not a terminal, lines are read without editing or history
// and only replies are written, so the command can be scripted.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/yasser8111/HUAI/internal/assistant"
	"github.com/yasser8111/HUAI/internal/config"
	"github.com/yasser8111/HUAI/internal/conversation"
	"github.com/yasser8111/HUAI/internal/model"
	"github.com/yasser8111/HUAI/internal/util"
)

const (
	chatPrompt      = "huai> "
	historyFileName = "chat_history"
	maxInputLine    = 1 << 20
)

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of REPL input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI whose history persists to historyFile.
// An empty historyFile keeps history in memory only.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if c.historyFile == "" {
		return
	}
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Non-empty lines
// are added to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history, readable by the owner only.
func (c *ChatCLI) SaveHistory() {
	if c.historyFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// scanReader reads lines from a non-terminal stream. Prompts are not shown.
type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxInputLine)
	return &scanReader{scanner: s}
}

func (r *scanReader) ReadInput(string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (r *scanReader) Close() {}

func chatHistoryPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, historyFileName)
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state of one REPL run.
type chatSession struct {
	app         *app
	out         io.Writer
	errOut      io.Writer
	interactive bool
	verbose     bool

	id      string
	opts    assistant.Options
	asked   int
	started time.Time
}

func newChatCommand(g *globalOptions) *cobra.Command {
	o := &askOptions{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Example: `  huai chat
  huai chat --session my-thread
  echo "hello" | huai chat`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup(cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a.watchProfile(ctx)

			s := &chatSession{
				app:     a,
				out:     cmd.OutOrStdout(),
				errOut:  cmd.ErrOrStderr(),
				verbose: o.verbose,
				id:      o.session,
				opts:    o.assistantOptions(cmd.Flags()),
				started: time.Now(),
			}
			if s.id == "" {
				s.id = uuid.NewString()
			}

			in := cmd.InOrStdin()
			var reader lineReader
			if isTerminal(in) {
				s.interactive = true
				reader = NewChatCLI(chatHistoryPath())
			} else {
				reader = newScanReader(in)
			}
			defer reader.Close()

			return s.run(ctx, reader)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&o.session, "session", "s", "", "session id to continue (default: a new session)")
	addOverrideFlags(fs, o)
	fs.BoolVarP(&o.verbose, "verbose", "v", false, "show the routing decision for each reply")
	return cmd
}

// =============================================================================
// REPL
// =============================================================================

// run reads prompts until EOF, /exit or ctx is cancelled.
func (s *chatSession) run(ctx context.Context, in lineReader) error {
	if s.interactive {
		s.printWelcome()
	}

	for {
		if ctx.Err() != nil {
			s.printExitSummary()
			return nil
		}

		input, err := in.ReadInput(chatPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				s.printExitSummary()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(input)
			if err != nil {
				DisplayError(s.errOut, err)
			}
			if !keepGoing {
				s.printExitSummary()
				return nil
			}
			continue
		}

		if err := s.send(ctx, input); err != nil {
			DisplayError(s.errOut, err)
		}
	}
}

// send asks the service and prints the reply. A failed ask leaves the
// session as it was, so the user can simply retry.
func (s *chatSession) send(ctx context.Context, prompt string) error {
	reply, err := s.app.service.AskDetailed(ctx, s.id, prompt, s.opts)
	if err != nil {
		return err
	}
	s.asked++

	if s.verbose {
		fmt.Fprintln(s.errOut, DimStyle.Render(describeReply(reply)))
	}
	if s.interactive {
		fmt.Fprintf(s.out, "%s %s\n\n", assistantStyle.Render("HUAI:"), reply.Text)
		return nil
	}
	fmt.Fprintln(s.out, reply.Text)
	return nil
}

// handleSlashCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func (s *chatSession) handleSlashCommand(line string) (bool, error) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
	case "/exit", "/quit", "/q":
		return false, nil
	case "/reset":
		s.id = uuid.NewString()
		s.asked = 0
		s.notice("[New session] " + s.id)
	case "/model", "/m":
		return true, s.setModel(args)
	case "/temp", "/temperature":
		return true, s.setTemperature(args)
	case "/history":
		s.printHistory()
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

func (s *chatSession) setModel(args []string) error {
	if len(args) == 0 {
		current := s.opts.Model
		if model.IsAuto(current) {
			current = model.AutoID + " (routed)"
		}
		s.notice("[Model] " + current)
		return nil
	}

	id := args[0]
	if model.IsAuto(id) {
		s.opts.Model = ""
		s.notice("[Model] routing restored")
		return nil
	}
	if _, ok := s.app.router.Registry().Lookup(id); !ok {
		fmt.Fprintln(s.errOut, WarningStyle.Render("[Warning] "+id+" is not in the registry, sending it as given"))
	}
	s.opts.Model = id
	s.notice("[Model] " + id)
	return nil
}

func (s *chatSession) setTemperature(args []string) error {
	if len(args) == 0 {
		if s.opts.Temperature == nil {
			s.notice("[Temperature] routed")
		} else {
			s.notice(fmt.Sprintf("[Temperature] %.2f", *s.opts.Temperature))
		}
		return nil
	}

	if model.IsAuto(args[0]) {
		s.opts.Temperature = nil
		s.notice("[Temperature] routing restored")
		return nil
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil || t < 0 || t > 1 {
		return &UsageError{Reason: fmt.Sprintf("invalid temperature %q", args[0]), Example: "/temp 0.3"}
	}
	s.opts.Temperature = &t
	s.notice(fmt.Sprintf("[Temperature] %.2f", t))
	return nil
}

// =============================================================================
// DISPLAY FUNCTIONS
// =============================================================================

// notice prints a command acknowledgement. Scripted runs stay quiet.
func (s *chatSession) notice(msg string) {
	if s.interactive {
		fmt.Fprintln(s.out, commandStyle.Render(msg))
	}
}

func (s *chatSession) printWelcome() {
	a := s.app
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.Render("HUAI interactive chat"))
	fmt.Fprintln(s.out, RenderSeparator(30))
	fmt.Fprintln(s.out, RenderField("Session:", s.id))
	current := s.opts.Model
	if model.IsAuto(current) {
		current = "auto (routed)"
	}
	fmt.Fprintln(s.out, RenderField("Model:", current))
	if a.client.IsConfigured() {
		fmt.Fprintln(s.out, RenderField("Endpoint:", a.client.Endpoint()))
	} else {
		fmt.Fprintln(s.out, RenderLabel("Endpoint:")+WarningStyle.Render("no API key, set HUAI_API_KEY"))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, DimStyle.Render("Type your message and press Enter. Commands: /help, /exit"))
	fmt.Fprintln(s.out)
}

func (s *chatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/reset", "Start a new session"},
		{"/model [id|auto]", "Show or set the model override"},
		{"/temp [t|auto]", "Show or set the temperature override"},
		{"/history", "Show the session's turns"},
		{"/exit, /q", "Exit chat"},
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.Render("Available Commands"))
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-18s", c.cmd)),
			DimStyle.Render(c.desc))
	}
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, DimStyle.Render("Ctrl+D exits, Ctrl+C aborts the current request and exits"))
	fmt.Fprintln(s.out)
}

// printHistory lists the session's turns without refreshing its TTL.
func (s *chatSession) printHistory() {
	history, ok := s.app.service.History(s.id)
	turns := conversation.NonSystem(history)
	if !ok || len(turns) == 0 {
		fmt.Fprintln(s.out, DimStyle.Render("[No messages yet]"))
		return
	}

	width := TerminalWidth(s.out) - 12
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, TitleStyle.Render("Conversation History"))
	for i, msg := range turns {
		label := promptStyle.Render("You")
		if msg.Role == model.RoleAssistant {
			label = assistantStyle.Render("HUAI")
		}
		fmt.Fprintf(s.out, "  %d. %s: %s\n", i+1, label, util.Preview(msg.Content, width))
	}
	fmt.Fprintln(s.out)
}

func (s *chatSession) printExitSummary() {
	if !s.interactive {
		return
	}
	fmt.Fprintln(s.out)
	if s.asked == 0 {
		fmt.Fprintln(s.out, DimStyle.Render("Goodbye!"))
		return
	}
	elapsed := time.Since(s.started).Round(time.Second)
	fmt.Fprintln(s.out, DimStyle.Render(fmt.Sprintf("%d replies in %s. Goodbye!", s.asked, elapsed)))
}

// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package shell implements the interactive multi-tab SQL workbench.
//
// Each tab is a session in the registry. Plain input lines are appended to the
// active tab's draft and a line ending with ';' executes it through the
// execution coordinator. Lines starting with '\' are meta commands.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"sqlbench/cli/internal/backend"
	"sqlbench/cli/internal/execution"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/render"
	"sqlbench/cli/internal/session"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
)

// Shell is the interactive workbench.
type Shell struct {
	registry *session.Registry
	coord    *execution.Coordinator
	service  backend.QueryService
	renderer *render.Renderer
	out      io.Writer
	logger   *pterm.Logger

	database string
	// stale marks tabs whose draft was just executed; the next typed line
	// starts a new draft instead of extending it.
	stale map[session.ID]bool
}

// Option configures a Shell.
type Option func(*Shell)

// WithOutput sets where the shell writes.
func WithOutput(w io.Writer) Option { return func(s *Shell) { s.out = w } }

// WithRenderer replaces the default terminal-sized renderer.
func WithRenderer(r *render.Renderer) Option { return func(s *Shell) { s.renderer = r } }

// WithDatabase sets the initial database context.
func WithDatabase(name string) Option { return func(s *Shell) { s.database = strings.TrimSpace(name) } }

// WithLogger sets the logger.
func WithLogger(l *pterm.Logger) Option { return func(s *Shell) { s.logger = l } }

// New returns a shell over the given registry, coordinator and service.
func New(registry *session.Registry, coord *execution.Coordinator, service backend.QueryService, opts ...Option) *Shell {
	s := &Shell{
		registry: registry,
		coord:    coord,
		service:  service,
		out:      io.Discard,
		logger:   logging.Discard(),
		stale:    map[session.ID]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.renderer == nil {
		s.renderer = render.New()
	}
	return s
}

// Database returns the current database context.
func (s *Shell) Database() string { return s.database }

// Prompt returns the prompt for the next line. It shows the active tab
// position, or a continuation marker while a draft is being typed.
func (s *Shell) Prompt() string {
	active := s.registry.Active()
	if s.composing(active) {
		return "       ...> "
	}
	return fmt.Sprintf("sqlbench[%d]> ", s.position(active.ID))
}

// composing reports whether the next plain line extends the draft of sess.
func (s *Shell) composing(sess session.Session) bool {
	if s.stale[sess.ID] {
		return false
	}
	d := strings.TrimSpace(sess.DraftQuery)
	return d != "" && sess.DraftQuery != s.registry.Placeholder()
}

// RunConfig configures the interactive loop.
type RunConfig struct {
	// HistoryFile persists input history; empty disables it.
	HistoryFile string
}

// Run reads lines with readline until \q, EOF or ctx cancellation.
func (s *Shell) Run(ctx context.Context, cfg RunConfig) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.Prompt(),
		HistoryFile:     cfg.HistoryFile,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       `\q`,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.println("sqlbench shell. Type \\help for commands, \\q to exit.")
	s.println(s.renderer.Tabs(s.registry.Sessions(), s.registry.ActiveID(), s.hasPending))
	s.println()

	for {
		if ctx.Err() != nil {
			return nil
		}
		rl.SetPrompt(s.Prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl-C abandons the draft being typed.
			active := s.registry.Active()
			if s.composing(active) {
				s.stale[active.ID] = true
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if s.Handle(ctx, line) {
			return nil
		}
	}
}

// Handle processes one input line and reports whether the shell should exit.
func (s *Shell) Handle(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, `\`) {
		return s.meta(ctx, trimmed)
	}

	active := s.registry.Active()
	draft := strings.TrimRight(line, " \t")
	if s.composing(active) {
		draft = strings.TrimRight(active.DraftQuery, "\n") + "\n" + draft
	}
	s.registry.UpdateDraft(active.ID, draft+"\n")
	delete(s.stale, active.ID)

	if strings.HasSuffix(trimmed, ";") {
		s.run(ctx, active.ID)
	}
	return false
}

// run executes the current draft of session id.
func (s *Shell) run(ctx context.Context, id session.ID) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return
	}
	s.stale[id] = true
	s.logger.Debug("running draft", s.logger.Args("session", id, "database", s.database))

	out, err := s.coord.ExecuteSession(ctx, id, strings.TrimSpace(sess.DraftQuery), s.database, false)
	s.report(id, out, err)
}

func (s *Shell) report(id session.ID, out execution.Outcome, err error) {
	if err != nil {
		s.println(pterm.Warning.Sprint(logging.PresentError("", err)))
		return
	}
	if out.AwaitingConfirmation() {
		s.println(s.renderer.Confirmation(s.position(id), *out.Confirmation))
		return
	}
	s.println(s.renderer.Result(out.Result))
}

func (s *Shell) hasPending(id session.ID) bool {
	_, ok := s.coord.Pending(id)
	return ok
}

// position returns the 1-based tab position of id, or 0.
func (s *Shell) position(id session.ID) int {
	for i, sess := range s.registry.Sessions() {
		if sess.ID == id {
			return i + 1
		}
	}
	return 0
}

func (s *Shell) println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Shell) tabs() {
	s.println(s.renderer.Tabs(s.registry.Sessions(), s.registry.ActiveID(), s.hasPending))
}

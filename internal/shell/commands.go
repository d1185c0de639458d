package shell

import (
	"context"
	"strconv"
	"strings"

	apperrors "sqlbench/cli/internal/errors"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/session"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"
)

const helpText = `Commands:
  \new             Open a new tab
  \close [n]       Close tab n (default: active tab)
  \dup [n]         Duplicate tab n (default: active tab)
  \rename <title>  Rename the active tab
  \use <n>         Switch to tab n
  \tabs            Show the tab bar
  \run             Execute the active tab's draft
  \confirm         Run the pending destructive statement
  \cancel          Discard the pending destructive statement
  \show            Show the active tab's draft and last result
  \clear           Clear the active tab's draft
  \db [name]       Show or set the database context
  \schema [name]   List tables of a database
  \status          Test the Query Service connection
  \help            Show this help message
  \q               Exit

SQL lines are appended to the active tab's draft; a line ending with ';' runs it.`

var metaCommands = []string{
	`\new`, `\close`, `\dup`, `\rename`, `\use`, `\tabs`, `\run`, `\confirm`,
	`\cancel`, `\show`, `\clear`, `\db`, `\schema`, `\status`, `\help`, `\q`,
}

func newCompleter() *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(metaCommands))
	for _, c := range metaCommands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}

// meta runs a backslash command and reports whether the shell should exit.
func (s *Shell) meta(ctx context.Context, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case `\q`, `\quit`, `\exit`:
		return true

	case `\help`, `\?`:
		s.println(helpText)

	case `\new`:
		s.registry.Create()
		s.tabs()

	case `\close`:
		id, ok := s.target(arg)
		if !ok {
			return false
		}
		if sess, _ := s.registry.Get(id); sess.Running() {
			s.println(pterm.Warning.Sprint("Tab is running a query"))
			return false
		}
		s.registry.Close(id)
		s.coord.Forget(id)
		delete(s.stale, id)
		s.tabs()

	case `\dup`:
		id, ok := s.target(arg)
		if !ok {
			return false
		}
		s.registry.Duplicate(id)
		s.tabs()

	case `\rename`:
		if arg == "" {
			s.println(pterm.Warning.Sprint(`Usage: \rename <title>`))
			return false
		}
		s.registry.Rename(s.registry.ActiveID(), arg)
		s.tabs()

	case `\use`:
		if arg == "" {
			s.println(pterm.Warning.Sprint(`Usage: \use <n>`))
			return false
		}
		id, ok := s.target(arg)
		if !ok {
			return false
		}
		s.registry.SetActive(id)
		s.tabs()
		if c, pending := s.coord.Pending(id); pending {
			s.println(s.renderer.Confirmation(s.position(id), c))
		}

	case `\tabs`:
		s.tabs()

	case `\run`:
		s.run(ctx, s.registry.ActiveID())

	case `\confirm`:
		id, ok := s.pendingTarget()
		if !ok {
			return false
		}
		out, err := s.coord.Confirm(ctx, id)
		s.report(id, out, err)

	case `\cancel`:
		id, ok := s.pendingTarget()
		if !ok {
			return false
		}
		s.coord.Cancel(id)
		s.println(pterm.Info.Sprint("Statement discarded"))

	case `\show`:
		active := s.registry.Active()
		s.println(s.renderer.Draft(active))
		s.println()
		s.println(s.renderer.Result(active.LastResult))

	case `\clear`:
		id := s.registry.ActiveID()
		s.registry.UpdateDraft(id, "")
		delete(s.stale, id)

	case `\db`:
		if arg != "" {
			s.database = arg
		}
		if s.database == "" {
			s.println("Database: (service default)")
		} else {
			s.println("Database: " + s.database)
		}

	case `\schema`:
		db := arg
		if db == "" {
			db = s.database
		}
		schema, err := s.service.GetSchema(ctx, db)
		if err != nil {
			s.println(pterm.Error.Sprint(logging.PresentError("Failed to load schema", err)))
			return false
		}
		s.println(s.renderer.Schema(schema))

	case `\status`:
		st, err := s.service.TestConnection(ctx)
		if err != nil {
			s.println(pterm.Error.Sprint(logging.PresentError("Connection test failed", err)))
			return false
		}
		s.println(s.renderer.Status(st))

	default:
		s.println(pterm.Warning.Sprintf(`Unknown command: %s (type \help for commands)`, name))
	}
	return false
}

// target resolves an optional 1-based tab position, defaulting to the active tab.
func (s *Shell) target(arg string) (session.ID, bool) {
	if arg == "" {
		return s.registry.ActiveID(), true
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		s.println(pterm.Warning.Sprintf("Not a tab number: %s", arg))
		return "", false
	}
	id, ok := s.registry.At(n)
	if !ok {
		s.println(pterm.Warning.Sprintf("No tab %d (there are %d)", n, s.registry.Len()))
		return "", false
	}
	return id, true
}

// pendingTarget returns the active tab when it holds a pending confirmation.
// Otherwise it reports which tabs do.
func (s *Shell) pendingTarget() (session.ID, bool) {
	active := s.registry.ActiveID()
	if _, ok := s.coord.Pending(active); ok {
		return active, true
	}
	owners := s.coord.PendingSessions()
	if len(owners) == 0 {
		s.println(pterm.Warning.Sprint(logging.PresentError("", apperrors.New(apperrors.NoPendingConfirmation, "nothing to confirm"))))
		return "", false
	}
	positions := make([]string, len(owners))
	for i, id := range owners {
		positions[i] = strconv.Itoa(s.position(id))
	}
	s.println(pterm.Warning.Sprintf(
		`No pending statement in this tab; awaiting confirmation in tab %s (\use %s)`,
		strings.Join(positions, ", "), positions[0]))
	return "", false
}

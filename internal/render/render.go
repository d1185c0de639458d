// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package render turns sessions, results and confirmations into terminal text.
// Every function returns a string so the shell and the one-shot commands decide
// where the output goes.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sqlbench/cli/internal/model"
	"sqlbench/cli/internal/session"
	"sqlbench/cli/internal/terminal"

	"github.com/pterm/pterm"
)

// Tab markers.
const (
	MarkActive  = "*"
	MarkRunning = "~"
	MarkPending = "!"
)

const (
	defaultMaxRows = 200
	maxTitleRunes  = 24
	minCellWidth   = 8
	nullText       = "NULL"
)

// Renderer renders workbench state sized to a terminal width.
type Renderer struct {
	// Width is the terminal width used to clip cells.
	Width int
	// MaxRows caps the number of rows drawn for one result.
	MaxRows int
}

// New returns a renderer sized to the current terminal.
func New() *Renderer {
	return &Renderer{Width: terminal.Width(), MaxRows: defaultMaxRows}
}

// Tabs renders the tab bar. pending reports whether a session holds a pending
// confirmation and may be nil.
func (r *Renderer) Tabs(sessions []session.Session, active session.ID, pending func(session.ID) bool) string {
	activeStyle := pterm.NewStyle(pterm.FgLightCyan, pterm.Bold)
	idleStyle := pterm.NewStyle(pterm.FgGray)

	parts := make([]string, 0, len(sessions))
	for i, s := range sessions {
		marks := ""
		if s.ID == active {
			marks += MarkActive
		}
		if s.Running() {
			marks += MarkRunning
		}
		if pending != nil && pending(s.ID) {
			marks += MarkPending
		}
		label := fmt.Sprintf("[%d%s %s]", i+1, marks, clip(s.Title, maxTitleRunes))
		if s.ID == active {
			parts = append(parts, activeStyle.Sprint(label))
		} else {
			parts = append(parts, idleStyle.Sprint(label))
		}
	}
	return strings.Join(parts, " ")
}

// Draft renders the draft of s with line numbers.
func (r *Renderer) Draft(s session.Session) string {
	text := strings.TrimRight(s.DraftQuery, "\n")
	if text == "" {
		return pterm.NewStyle(pterm.FgGray).Sprint("(empty draft)")
	}
	lines := strings.Split(text, "\n")
	width := len(strconv.Itoa(len(lines)))
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%s  %s\n", pterm.NewStyle(pterm.FgGray).Sprintf("%*d", width, i+1), l)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result renders an execution result: a table for row sets, a summary line
// for writes, an error line for failures.
func (r *Renderer) Result(res *model.Result) string {
	if res == nil {
		return pterm.NewStyle(pterm.FgGray).Sprint("No results yet. Run a query to see output.")
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "Query execution failed"
		}
		return pterm.Error.Sprint(msg)
	}

	var b strings.Builder
	if len(res.Columns) > 0 {
		table, err := r.table(res)
		if err != nil {
			return pterm.Error.Sprint(err.Error())
		}
		b.WriteString(strings.TrimRight(table, "\n"))
		b.WriteString("\n")
		if hidden := len(res.Data) - r.maxRows(); hidden > 0 {
			b.WriteString(pterm.NewStyle(pterm.FgGray).Sprintf("... %d more row(s) not shown\n", hidden))
		}
	}
	b.WriteString(pterm.Success.Sprint(summary(res)))
	return b.String()
}

func (r *Renderer) table(res *model.Result) (string, error) {
	limit := r.maxRows()
	rows := res.Data
	if len(rows) > limit {
		rows = rows[:limit]
	}
	cell := r.cellWidth(len(res.Columns))

	data := make(pterm.TableData, 0, len(rows)+1)
	header := make([]string, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = clip(c, cell)
	}
	data = append(data, header)
	for _, row := range rows {
		line := make([]string, len(res.Columns))
		for i := range line {
			if i < len(row) {
				line[i] = clip(FormatValue(row[i]), cell)
			}
		}
		data = append(data, line)
	}
	return pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Srender()
}

func (r *Renderer) maxRows() int {
	if r.MaxRows <= 0 {
		return defaultMaxRows
	}
	return r.MaxRows
}

// cellWidth spreads the terminal width over n columns, allowing for borders.
func (r *Renderer) cellWidth(n int) int {
	width := r.Width
	if width <= 0 {
		width = terminal.DefaultWidth
	}
	if n == 0 {
		return width
	}
	w := (width - 3*n - 1) / n
	if w < minCellWidth {
		return minCellWidth
	}
	return w
}

func summary(res *model.Result) string {
	var head string
	switch {
	case res.Message != "":
		head = res.Message
	case res.RowsAffected != nil:
		head = fmt.Sprintf("%d row(s) affected", *res.RowsAffected)
	case len(res.Columns) > 0:
		head = fmt.Sprintf("%d row(s) returned", len(res.Data))
	default:
		head = "Query executed successfully"
	}
	return fmt.Sprintf("%s (%.3fs)", head, res.ExecutionTime)
}

// Confirmation renders the destructive-statement warning for the tab at
// 1-based position pos.
func (r *Renderer) Confirmation(pos int, c model.Confirmation) string {
	var b strings.Builder
	op := c.Operation
	if op == "" {
		op = "UNKNOWN"
	}
	fmt.Fprintf(&b, "Operation: %s\n", op)
	if len(c.AffectedObjects) > 0 {
		fmt.Fprintf(&b, "Affected:  %s\n", strings.Join(c.AffectedObjects, ", "))
	}
	if c.Warning != "" {
		fmt.Fprintf(&b, "\n%s\n", c.Warning)
	}
	fmt.Fprintf(&b, "\n%s\n", clip(strings.TrimSpace(c.Query), r.Width))
	b.WriteString("\nType \\confirm to run it or \\cancel to discard.")

	title := pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprintf("Destructive statement in tab %d", pos)
	return pterm.DefaultBox.WithTitle(title).WithPadding(1).Sprint(b.String())
}

// Schema renders the tables of a database as a bullet list, one level per
// schema when more than one schema is present.
func (r *Renderer) Schema(s model.Schema) string {
	if len(s.Tables) == 0 {
		return pterm.Warning.Sprint("No tables found")
	}

	bySchema := map[string][]model.Table{}
	for _, t := range s.Tables {
		bySchema[t.Schema] = append(bySchema[t.Schema], t)
	}
	schemas := make([]string, 0, len(bySchema))
	for name := range bySchema {
		schemas = append(schemas, name)
	}
	sort.Strings(schemas)

	var items []pterm.BulletListItem
	for _, name := range schemas {
		level := 0
		if len(schemas) > 1 {
			items = append(items, pterm.BulletListItem{Level: 0, Text: schemaLabel(name)})
			level = 1
		}
		for _, t := range bySchema[name] {
			items = append(items, pterm.BulletListItem{
				Level: level,
				Text:  fmt.Sprintf("%s (%s)", t.Name, clip(strings.Join(t.Columns, ", "), r.Width)),
			})
		}
	}
	out, err := pterm.DefaultBulletList.WithItems(items).Srender()
	if err != nil {
		return pterm.Error.Sprint(err.Error())
	}
	return strings.TrimRight(out, "\n")
}

func schemaLabel(name string) string {
	if name == "" {
		return "(default)"
	}
	return name
}

// Status renders a connection test answer.
func (r *Renderer) Status(st model.ConnectionStatus) string {
	if !st.Connected {
		msg := st.Error
		if msg == "" {
			msg = "not connected"
		}
		return pterm.Error.Sprint("Disconnected: " + msg)
	}
	var details []string
	for _, kv := range [][2]string{{"server", st.Server}, {"database", st.Database}, {"version", st.Version}} {
		if kv[1] != "" {
			details = append(details, kv[0]+"="+kv[1])
		}
	}
	line := "Connected"
	if len(details) > 0 {
		line += " (" + strings.Join(details, ", ") + ")"
	}
	return pterm.Success.Sprint(line)
}

// BulletList renders plain strings as a one-level bullet list.
func BulletList(items []string) string {
	out, err := pterm.DefaultBulletList.WithItems(stringListToBulletItems(items)).Srender()
	if err != nil {
		return strings.Join(items, "\n")
	}
	return strings.TrimRight(out, "\n")
}

func stringListToBulletItems(items []string) (out []pterm.BulletListItem) {
	for _, s := range items {
		out = append(out, pterm.BulletListItem{Level: 0, Text: s})
	}
	return out
}

// FormatValue renders one cell value.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return nullText
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case []byte:
		return string(x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// clip shortens s to at most n runes, collapsing newlines.
func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if n <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n <= 3 {
		return string(rs[:n])
	}
	return string(rs[:n-3]) + "..."
}

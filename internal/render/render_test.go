package render

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"sqlbench/cli/internal/model"
	"sqlbench/cli/internal/session"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

func newTestRenderer() *Renderer {
	return &Renderer{Width: 80, MaxRows: 3}
}

func TestTabsMarkers(t *testing.T) {
	sessions := []session.Session{
		{ID: "a", Title: "Query 1", Status: session.StatusIdle},
		{ID: "b", Title: "Query 2", Status: session.StatusRunning},
		{ID: "c", Title: "Query 3", Status: session.StatusIdle},
	}
	out := newTestRenderer().Tabs(sessions, "a", func(id session.ID) bool { return id == "c" })

	assert.Contains(t, out, "[1* Query 1]")
	assert.Contains(t, out, "[2~ Query 2]")
	assert.Contains(t, out, "[3! Query 3]")
}

func TestTabsNilPendingAndLongTitle(t *testing.T) {
	sessions := []session.Session{{ID: "a", Title: strings.Repeat("x", 40)}}
	out := newTestRenderer().Tabs(sessions, "a", nil)

	assert.Contains(t, out, "[1* ")
	assert.Contains(t, out, "...]")
	assert.NotContains(t, out, strings.Repeat("x", 30))
}

func TestDraftLineNumbers(t *testing.T) {
	r := newTestRenderer()
	out := r.Draft(session.Session{DraftQuery: "SELECT 1\nFROM t;\n"})
	assert.Contains(t, out, "1  SELECT 1")
	assert.Contains(t, out, "2  FROM t;")

	assert.Contains(t, r.Draft(session.Session{}), "empty draft")
}

func TestResultTable(t *testing.T) {
	res := &model.Result{
		Success:       true,
		Columns:       []string{"id", "name"},
		Data:          [][]any{{json.Number("1"), "Alice"}, {json.Number("2"), nil}},
		ExecutionTime: 0.0123,
	}
	out := newTestRenderer().Result(res)

	assert.Contains(t, out, "id")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "2 row(s) returned (0.012s)")
	assert.NotContains(t, out, "more row(s)")
}

func TestResultTruncatesDisplayedRows(t *testing.T) {
	res := &model.Result{Success: true, Columns: []string{"n"}}
	for i := 0; i < 5; i++ {
		res.Data = append(res.Data, []any{float64(i)})
	}
	out := newTestRenderer().Result(res)

	assert.Contains(t, out, "... 2 more row(s) not shown")
	assert.NotContains(t, out, "4")
}

func TestResultWriteAndFailure(t *testing.T) {
	r := newTestRenderer()
	n := int64(3)

	out := r.Result(&model.Result{Success: true, RowsAffected: &n})
	assert.Contains(t, out, "3 row(s) affected")

	out = r.Result(&model.Result{Success: true, Message: "Query executed successfully. 3 row(s) affected"})
	assert.Contains(t, out, "Query executed successfully. 3 row(s) affected")

	out = r.Result(&model.Result{Success: false, Error: "relation \"nope\" does not exist"})
	assert.Contains(t, out, "relation \"nope\" does not exist")

	assert.Contains(t, r.Result(&model.Result{}), "Query execution failed")
	assert.Contains(t, r.Result(nil), "No results yet")
}

func TestConfirmation(t *testing.T) {
	out := newTestRenderer().Confirmation(2, model.Confirmation{
		Query:           "DROP TABLE users",
		Operation:       "DROP",
		AffectedObjects: []string{"users"},
		Warning:         "This will permanently delete data",
	})

	assert.Contains(t, out, "Destructive statement in tab 2")
	assert.Contains(t, out, "Operation: DROP")
	assert.Contains(t, out, "Affected:  users")
	assert.Contains(t, out, "This will permanently delete data")
	assert.Contains(t, out, "DROP TABLE users")
	assert.Contains(t, out, `\confirm`)
}

func TestSchemaSingleAndMultiSchema(t *testing.T) {
	r := newTestRenderer()

	out := r.Schema(model.Schema{Tables: []model.Table{{Name: "users", Schema: "main", Columns: []string{"id", "email"}}}})
	assert.Contains(t, out, "users (id, email)")
	assert.NotContains(t, out, "main")

	out = r.Schema(model.Schema{Tables: []model.Table{
		{Name: "orders", Schema: "sales", Columns: []string{"id"}},
		{Name: "users", Schema: "public", Columns: []string{"id"}},
	}})
	assert.Less(t, strings.Index(out, "public"), strings.Index(out, "sales"))
	assert.Contains(t, out, "orders (id)")

	assert.Contains(t, r.Schema(model.Schema{}), "No tables found")
}

func TestStatus(t *testing.T) {
	r := newTestRenderer()
	out := r.Status(model.ConnectionStatus{Connected: true, Server: "localhost", Database: "app"})
	assert.Contains(t, out, "Connected (server=localhost, database=app)")

	out = r.Status(model.ConnectionStatus{Error: "connection refused"})
	assert.Contains(t, out, "Disconnected: connection refused")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"text", "text"},
		{json.Number("42"), "42"},
		{1.5, "1.5"},
		{true, "true"},
		{[]byte("raw"), "raw"},
		{map[string]any{"a": json.Number("1")}, `{"a":1}`},
		{int64(7), "7"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestClip(t *testing.T) {
	assert.Equal(t, "abc", clip("abc", 5))
	assert.Equal(t, "ab...", clip("abcdefgh", 5))
	assert.Equal(t, "a b", clip("a\nb", 0))
	assert.Equal(t, "ab", clip("abcd", 2))
}

func TestBulletList(t *testing.T) {
	out := BulletList([]string{"one", "two"})
	assert.Contains(t, out, "one")
	assert.Contains(t, out, "two")
}

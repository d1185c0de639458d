package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sqlbench/cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteQuerySendsContract(t *testing.T) {
	var got executeRequest
	var headers http.Header
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/execute", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"columns":["id","name"],"data":[[1,"ada"],[2,"bob"]],"execution_time":0.012,"query":"SELECT * FROM users"}`))
	})

	c := New(srv.URL+"/", WithToken("tok"), WithSessionID("tab-1"))
	resp, err := c.ExecuteQuery(context.Background(), "SELECT * FROM users", "app", false)
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM users", got.Query)
	require.NotNil(t, got.Database)
	assert.Equal(t, "app", *got.Database)
	assert.False(t, got.ConfirmDestructive)
	assert.Equal(t, "Bearer tok", headers.Get("Authorization"))
	assert.Equal(t, "tab-1", headers.Get("X-Session-ID"))

	require.False(t, resp.RequiresConfirmation())
	res := resp.Result
	assert.True(t, res.Success)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{json.Number("1"), "ada"}, {json.Number("2"), "bob"}}, res.Data)
	assert.InDelta(t, 0.012, res.ExecutionTime, 1e-9)
}

func TestExecuteQueryNullDatabase(t *testing.T) {
	var raw map[string]any
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := New(srv.URL).ExecuteQuery(context.Background(), "SELECT 1", "", true)
	require.NoError(t, err)
	v, present := raw["database"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, true, raw["confirm_destructive"])
}

func TestExecuteQueryDecodesShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, resp model.Response)
	}{
		{
			name: "confirmation",
			body: `{"requires_confirmation":true,"query":"DROP TABLE Foo","operation":"DROP","affected_objects":["Foo"]}`,
			check: func(t *testing.T, resp model.Response) {
				require.True(t, resp.RequiresConfirmation())
				assert.Equal(t, "DROP", resp.Confirmation.Operation)
				assert.Equal(t, []string{"Foo"}, resp.Confirmation.AffectedObjects)
			},
		},
		{
			name: "confirmation without echo",
			body: `{"success":false,"requires_confirmation":true,"warning":"This is a destructive operation."}`,
			check: func(t *testing.T, resp model.Response) {
				require.True(t, resp.RequiresConfirmation())
				assert.Equal(t, "truncate logs", resp.Confirmation.Query)
				assert.Equal(t, "TRUNCATE", resp.Confirmation.Operation)
				assert.Equal(t, "This is a destructive operation.", resp.Confirmation.Warning)
			},
		},
		{
			name: "object rows",
			body: `{"success":true,"columns":["b","a"],"data":[{"a":1,"b":"x"}],"row_count":1}`,
			check: func(t *testing.T, resp model.Response) {
				assert.Equal(t, [][]any{{"x", json.Number("1")}}, resp.Result.Data)
				assert.Nil(t, resp.Result.RowsAffected)
			},
		},
		{
			name: "object rows without columns",
			body: `{"success":true,"data":[{"z":1},{"a":2}]}`,
			check: func(t *testing.T, resp model.Response) {
				assert.Equal(t, []string{"a", "z"}, resp.Result.Columns)
				assert.Equal(t, [][]any{{nil, json.Number("1")}, {json.Number("2"), nil}}, resp.Result.Data)
			},
		},
		{
			name: "write with row_count",
			body: `{"success":true,"row_count":3,"message":"Query executed successfully. 3 row(s) affected"}`,
			check: func(t *testing.T, resp model.Response) {
				require.NotNil(t, resp.Result.RowsAffected)
				assert.EqualValues(t, 3, *resp.Result.RowsAffected)
			},
		},
		{
			name: "failure payload",
			body: `{"success":false,"error":"syntax error at or near \"SELEC\""}`,
			check: func(t *testing.T, resp model.Response) {
				assert.False(t, resp.Result.Success)
				assert.Equal(t, `syntax error at or near "SELEC"`, resp.Result.Error)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			resp, err := New(srv.URL).ExecuteQuery(context.Background(), "truncate logs", "", false)
			require.NoError(t, err)
			tt.check(t, resp)
		})
	}
}

func TestServiceErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"detail", 500, `{"detail":"connection pool exhausted"}`, "connection pool exhausted"},
		{"error", 400, `{"error":"bad query"}`, "bad query"},
		{"validation list", 422, `{"detail":[{"msg":"field required"},{"msg":"too short"}]}`, "field required; too short"},
		{"plain text", 502, "Bad Gateway\n", "Bad Gateway"},
		{"json without reason", 500, `{"ok":false}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := New(srv.URL).ExecuteQuery(context.Background(), "SELECT 1", "", false)

			var se *ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.status, se.Status)
			assert.Equal(t, tt.want, se.Message)
		})
	}
}

func TestTestConnection(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/connection-test", r.URL.Path)
		_, _ = w.Write([]byte(`{"connected":true,"database":"app","version":"PostgreSQL 16.2"}`))
	})

	st, err := New(srv.URL).TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionStatus{Connected: true, Database: "app", Version: "PostgreSQL 16.2"}, st)
}

func TestGetSchemaPaths(t *testing.T) {
	var paths []string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"tables":[{"name":"users","schema":"public","columns":["id","email"]}]}`))
	})
	c := New(srv.URL)

	s, err := c.GetSchema(context.Background(), "my db")
	require.NoError(t, err)
	assert.Equal(t, "my db", s.Database)
	assert.Equal(t, []model.Table{{Name: "users", Schema: "public", Columns: []string{"id", "email"}}}, s.Tables)

	_, err = c.GetSchema(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"/api/schema/my%20db", "/api/schema/default"}, paths)
}

func TestTimeout(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).TestConnection(context.Background())
	require.Error(t, err)
	var se *ServiceError
	assert.False(t, errors.As(err, &se))
}

package sqlexec

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"sqlbench/cli/internal/dsn"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockExecutor(t *testing.T, opts ...Option) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, dsn.DBTypePostgreSQL, opts...), mock
}

func TestExecuteRead(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ada").
			AddRow(int64(2), []byte("bob")))

	resp, err := e.ExecuteQuery(context.Background(), "SELECT id, name FROM users", "", false)
	require.NoError(t, err)
	require.False(t, resp.RequiresConfirmation())

	res := resp.Result
	assert.True(t, res.Success)
	assert.Equal(t, []string{"id", "name"}, res.Columns)
	assert.Equal(t, [][]any{{int64(1), "ada"}, {int64(2), "bob"}}, res.Data)
	assert.Equal(t, "SELECT id, name FROM users", res.Query)
	assert.Equal(t, "Query returned 2 row(s)", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteTruncatesAtMaxRows(t *testing.T) {
	e, mock := newMockExecutor(t, WithMaxRows(2))
	mock.ExpectQuery("SELECT n FROM numbers").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)).AddRow(int64(2)).AddRow(int64(3)))

	resp, err := e.ExecuteQuery(context.Background(), "SELECT n FROM numbers", "", false)
	require.NoError(t, err)
	assert.Len(t, resp.Result.Data, 2)
	assert.Contains(t, resp.Result.Message, "truncated")
}

func TestDestructiveNeedsConfirmation(t *testing.T) {
	e, mock := newMockExecutor(t)

	resp, err := e.ExecuteQuery(context.Background(), "DELETE FROM users", "", false)
	require.NoError(t, err)
	require.True(t, resp.RequiresConfirmation())
	assert.Equal(t, "DELETE", resp.Confirmation.Operation)
	assert.Equal(t, []string{"users"}, resp.Confirmation.AffectedObjects)
	assert.Equal(t, "DELETE FROM users", resp.Confirmation.Query)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing may run before confirmation")
}

func TestConfirmedWriteRunsInTransaction(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	resp, err := e.ExecuteQuery(context.Background(), "DELETE FROM users", "", true)
	require.NoError(t, err)
	res := resp.Result
	require.True(t, res.Success)
	require.NotNil(t, res.RowsAffected)
	assert.EqualValues(t, 3, *res.RowsAffected)
	assert.Equal(t, "Query executed successfully. 3 row(s) affected", res.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommitFailure(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	resp, err := e.ExecuteQuery(context.Background(), "INSERT INTO t VALUES (1)", "", false)
	require.NoError(t, err)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "commit failed: disk full", resp.Result.Error)
}

func TestWriteFailureRollsBack(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	resp, err := e.ExecuteQuery(context.Background(), "INSERT INTO t VALUES (1)", "", false)
	require.NoError(t, err)
	assert.Equal(t, "constraint violated", resp.Result.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropDatabaseRunsWithoutTransaction(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectExec("DROP DATABASE analytics").WillReturnResult(sqlmock.NewResult(0, 0))

	resp, err := e.ExecuteQuery(context.Background(), "DROP DATABASE analytics", "", true)
	require.NoError(t, err)
	assert.True(t, resp.Result.Success, resp.Result.Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchRunsEachStatementInOrder(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO t").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT id FROM t").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	resp, err := e.ExecuteQuery(context.Background(), "INSERT INTO t VALUES (1);\nSELECT id FROM t;", "", false)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(1)}}, resp.Result.Data)
	assert.Equal(t, "Executed 2 statement(s) successfully", resp.Result.Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresErrorMessage(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT \\* FROM nope").WillReturnError(&pgconn.PgError{
		Message: `relation "nope" does not exist`,
		Code:    "42P01",
	})

	resp, err := e.ExecuteQuery(context.Background(), "SELECT * FROM nope", "", false)
	require.NoError(t, err)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, `relation "nope" does not exist (SQLSTATE 42P01)`, resp.Result.Error)
}

func TestDatabaseSetsAndResetsSearchPath(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectExec(regexp.QuoteMeta(`SET search_path TO "reporting"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(int64(1)))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))

	resp, err := e.ExecuteQuery(context.Background(), "SELECT 1", "reporting", false)
	require.NoError(t, err)
	assert.True(t, resp.Result.Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEmptyQuery(t *testing.T) {
	e, _ := newMockExecutor(t)

	resp, err := e.ExecuteQuery(context.Background(), " \n ", "", false)
	require.NoError(t, err)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, EmptyQueryMessage, resp.Result.Error)
}

func TestSchemaIsCachedUntilWrite(t *testing.T) {
	e, mock := newMockExecutor(t)
	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}).
			AddRow("public", "orders", "id").
			AddRow("public", "orders", "total").
			AddRow("public", "users", "id")
	}
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("").WillReturnRows(rows())
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("").WillReturnRows(rows())

	ctx := context.Background()
	s, err := e.GetSchema(ctx, "")
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)
	assert.Equal(t, []string{"id", "total"}, s.Tables[0].Columns)
	assert.Equal(t, "users", s.Tables[1].Name)

	_, err = e.GetSchema(ctx, "")
	require.NoError(t, err)

	_, err = e.ExecuteQuery(ctx, "CREATE TABLE x (id int)", "", false)
	require.NoError(t, err)
	_, err = e.GetSchema(ctx, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaForCurrentDatabaseListsAllSchemas(t *testing.T) {
	e, mock := newMockExecutor(t)
	mock.ExpectQuery("SELECT current_database").WillReturnRows(sqlmock.NewRows([]string{"current_database"}).AddRow("app"))
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name", "column_name"}))

	s, err := e.GetSchema(context.Background(), "app")
	require.NoError(t, err)
	assert.Equal(t, "app", s.Database)
	assert.NotNil(t, s.Tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTestConnectionPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	e := New(db, dsn.DBTypePostgreSQL, WithServer("db.internal:5432"))

	mock.ExpectPing()
	mock.ExpectQuery("SELECT current_database\\(\\), version\\(\\)").
		WillReturnRows(sqlmock.NewRows([]string{"current_database", "version"}).AddRow("app", "PostgreSQL 16.2"))

	st, err := e.TestConnection(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Connected)
	assert.Equal(t, "app", st.Database)
	assert.Equal(t, "PostgreSQL 16.2", st.Version)
	assert.Equal(t, "db.internal:5432", st.Server)
}

func TestTestConnectionPingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	e := New(db, dsn.DBTypePostgreSQL)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	st, err := e.TestConnection(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Connected)
	assert.Equal(t, "connection refused", st.Error)
}

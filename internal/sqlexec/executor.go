// Package sqlexec runs statements directly against a database through database/sql.
// It is the direct-mode Query Service: PostgreSQL goes through the pgx stdlib
// driver and SQLite through modernc.org/sqlite. Destructive statements are
// classified locally and answered with a confirmation request unless the
// caller already confirmed them.
//
// Key features include:
//   - Transaction management for write operations
//   - Statement-by-statement execution of batches
//   - Row normalisation for JSON (UUIDs, byte arrays, timestamps)
//   - Result truncation at a configurable row limit
//   - Per-statement timeouts
//   - Schema listing with a per-database cache
package sqlexec

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"sqlbench/cli/internal/dsn"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pterm/pterm"
	_ "modernc.org/sqlite"
)

// EmptyQueryMessage is the failure for a blank statement.
const EmptyQueryMessage = "Query cannot be empty"

// DefaultMaxRows caps returned rows when no limit is configured.
const DefaultMaxRows = 10000

// Executor executes SQL statements using a database/sql pool.
type Executor struct {
	db     *sql.DB
	dbType dsn.DBType
	// server is a display form of the target (host:port or file path)
	server       string
	maxRows      int
	queryTimeout time.Duration
	inspector    *SchemaInspector
	logger       *pterm.Logger
	// audit receives one entry per executed batch; nil disables it.
	audit *pterm.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxRows caps the number of rows returned by a read statement.
func WithMaxRows(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxRows = n
		}
	}
}

// WithQueryTimeout bounds each statement; zero means no timeout beyond the caller's context.
func WithQueryTimeout(d time.Duration) Option {
	return func(e *Executor) { e.queryTimeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *pterm.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithAuditLog records every executed batch on l.
func WithAuditLog(l *pterm.Logger) Option {
	return func(e *Executor) { e.audit = l }
}

// WithServer sets the display name reported by TestConnection.
func WithServer(name string) Option {
	return func(e *Executor) { e.server = name }
}

// Open resolves rawDSN, opens the matching driver and pings the database.
func Open(ctx context.Context, rawDSN string, opts ...Option) (*Executor, error) {
	driver, source, err := dsn.Resolve(rawDSN)
	if err != nil {
		return nil, err
	}
	info, err := dsn.ParseInfo(rawDSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", info.Redacted(), err)
	}
	if info.Type == dsn.DBTypeSQLite {
		// A single connection keeps :memory: databases alive and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	server := info.Database
	if info.Type == dsn.DBTypePostgreSQL {
		server = info.Host + ":" + info.Port
	}
	return New(db, info.Type, append([]Option{WithServer(server)}, opts...)...), nil
}

// New creates an Executor over an open pool.
func New(db *sql.DB, dbType dsn.DBType, opts ...Option) *Executor {
	e := &Executor{
		db:      db,
		dbType:  dbType,
		maxRows: DefaultMaxRows,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.inspector = NewSchemaInspector(db, dbType)
	return e
}

// Close closes the underlying pool.
func (e *Executor) Close() error { return e.db.Close() }

// ExecuteQuery runs query. Database errors are reported as failure results,
// never as Go errors, so the caller sees the driver's message.
func (e *Executor) ExecuteQuery(ctx context.Context, query, database string, confirmDestructive bool) (model.Response, error) {
	if strings.TrimSpace(query) == "" {
		return model.Response{Result: model.Failure(EmptyQueryMessage)}, nil
	}

	if c := Classify(query); c.Destructive && !confirmDestructive {
		e.logger.Debug("confirmation required", e.logger.Args("operation", c.Operation, "objects", c.AffectedObjects))
		return model.Response{Confirmation: &model.Confirmation{
			Query:           query,
			Operation:       c.Operation,
			AffectedObjects: c.AffectedObjects,
			Warning:         c.Warning,
		}}, nil
	}

	if e.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	res := e.run(ctx, query, database)
	res.ExecutionTime = math.Round(time.Since(start).Seconds()*1000) / 1000
	res.Query = query
	e.record(database, res)
	return model.Response{Result: res}, nil
}

// auditQueryLimit caps the statement text kept per audit entry.
const auditQueryLimit = 500

func (e *Executor) record(database string, res *model.Result) {
	if e.audit == nil {
		return
	}
	rows := int64(len(res.Data))
	if res.RowsAffected != nil {
		rows = *res.RowsAffected
	}
	q := []rune(res.Query)
	if len(q) > auditQueryLimit {
		q = q[:auditQueryLimit]
	}
	e.audit.Info("query", e.audit.Args(
		"database", database,
		"query", logging.Mask(string(q)),
		"success", res.Success,
		"execution_time", res.ExecutionTime,
		"row_count", rows,
		"error", logging.Mask(res.Error),
	))
}

func (e *Executor) run(ctx context.Context, query, database string) *model.Result {
	conn, err := e.db.Conn(ctx)
	if err != nil {
		return e.failure(err)
	}
	defer conn.Close()

	if database != "" && e.dbType == dsn.DBTypePostgreSQL {
		path := pgx.Identifier{database}.Sanitize()
		if _, err := conn.ExecContext(ctx, "SET search_path TO "+path); err != nil {
			return e.failure(err)
		}
		defer func() {
			// The connection returns to the pool; do not leak the search_path.
			if _, err := conn.ExecContext(context.WithoutCancel(ctx), "RESET search_path"); err != nil {
				e.logger.Debug("reset search_path failed", e.logger.Args("error", err.Error()))
			}
		}()
	}

	stmts := SplitStatements(query)
	if len(stmts) == 0 {
		// Comments only; let the driver decide.
		stmts = []string{query}
	}

	var (
		res   *model.Result
		wrote bool
	)
	for _, stmt := range stmts {
		res = e.statement(ctx, conn, stmt)
		if !res.Success {
			break
		}
		wrote = wrote || !IsRead(stmt)
	}
	if wrote {
		e.inspector.ClearCache()
	}
	if res.Success && len(stmts) > 1 {
		res.Message = fmt.Sprintf("Executed %d statement(s) successfully", len(stmts))
	}
	return res
}

// statement runs a single statement. Batches stop at the first failure, so
// statements before it stay committed.
func (e *Executor) statement(ctx context.Context, conn *sql.Conn, stmt string) *model.Result {
	switch {
	case IsRead(stmt):
		return e.query(ctx, conn, stmt)
	case NeedsNoTransaction(stmt):
		return e.direct(ctx, conn, stmt)
	default:
		return e.exec(ctx, conn, stmt)
	}
}

func (e *Executor) query(ctx context.Context, conn *sql.Conn, query string) *model.Result {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return e.failure(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return e.failure(err)
	}
	res := &model.Result{Success: true, Columns: cols, Data: [][]any{}}
	truncated := false
	for rows.Next() {
		if len(res.Data) >= e.maxRows {
			truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return e.failure(err)
		}
		res.Data = append(res.Data, NormalizeRow(vals))
	}
	if err := rows.Err(); err != nil {
		return e.failure(err)
	}

	if truncated {
		res.Message = fmt.Sprintf("Showing first %d row(s); result truncated", e.maxRows)
	} else {
		res.Message = fmt.Sprintf("Query returned %d row(s)", len(res.Data))
	}
	return res
}

// exec runs a write inside a transaction so a failed commit leaves nothing behind.
func (e *Executor) exec(ctx context.Context, conn *sql.Conn, query string) *model.Result {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return e.failure(err)
	}
	defer tx.Rollback() // no-op after commit

	r, err := tx.ExecContext(ctx, query)
	if err != nil {
		return e.failure(err)
	}
	res := affected(r)
	if err := tx.Commit(); err != nil {
		return e.failure(fmt.Errorf("commit failed: %w", err))
	}
	return res
}

// direct runs a statement the server refuses inside a transaction block.
func (e *Executor) direct(ctx context.Context, conn *sql.Conn, stmt string) *model.Result {
	r, err := conn.ExecContext(ctx, stmt)
	if err != nil {
		return e.failure(err)
	}
	return affected(r)
}

func affected(r sql.Result) *model.Result {
	n, err := r.RowsAffected()
	if err != nil {
		n = 0
	}
	return &model.Result{
		Success:      true,
		RowsAffected: &n,
		Message:      fmt.Sprintf("Query executed successfully. %d row(s) affected", n),
	}
}

func (e *Executor) failure(err error) *model.Result {
	msg := errorMessage(err)
	e.logger.Debug("statement failed", e.logger.Args("error", logging.Mask(msg)))
	return model.Failure(msg)
}

// errorMessage prefers the server's message and detail for PostgreSQL errors.
func errorMessage(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := pgErr.Message
		if pgErr.Detail != "" {
			msg += ": " + pgErr.Detail
		}
		if pgErr.Code != "" {
			msg += " (SQLSTATE " + pgErr.Code + ")"
		}
		return msg
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "query timed out"
	}
	return err.Error()
}

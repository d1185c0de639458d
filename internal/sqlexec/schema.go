// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package sqlexec

import (
	"context"
	"database/sql"
	"strings"
	"sync"

	"sqlbench/cli/internal/dsn"
	"sqlbench/cli/internal/model"
)

const (
	postgresTablesQuery = `
		SELECT c.table_schema, c.table_name, c.column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND ($1 = '' OR c.table_schema = $1)
		ORDER BY c.table_schema, c.table_name, c.ordinal_position`

	sqliteTablesQuery = `
		SELECT m.name, p.name
		FROM sqlite_master m
		JOIN pragma_table_info(m.name) p
		WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
		ORDER BY m.name, p.cid`
)

// SchemaInspector lists tables and their columns.
// Listings are cached per database and dropped after any successful write,
// since DDL may have changed them.
type SchemaInspector struct {
	db     *sql.DB
	dbType dsn.DBType
	// cache stores listings keyed by database name
	cache map[string]model.Schema
	// mu protects concurrent access to the cache
	mu sync.RWMutex
}

// NewSchemaInspector creates a new SchemaInspector over db.
func NewSchemaInspector(db *sql.DB, dbType dsn.DBType) *SchemaInspector {
	return &SchemaInspector{
		db:     db,
		dbType: dbType,
		cache:  make(map[string]model.Schema),
	}
}

// Tables returns the cached or freshly queried listing for database.
// For PostgreSQL, database selects a schema; empty, "default" or the
// connected database name list all user schemas. SQLite ignores it.
func (si *SchemaInspector) Tables(ctx context.Context, database string) (model.Schema, error) {
	si.mu.RLock()
	if s, ok := si.cache[database]; ok {
		si.mu.RUnlock()
		return s, nil
	}
	si.mu.RUnlock()

	var (
		s   model.Schema
		err error
	)
	switch si.dbType {
	case dsn.DBTypeSQLite:
		s, err = si.sqliteTables(ctx)
	default:
		s, err = si.postgresTables(ctx, database)
	}
	if err != nil {
		return model.Schema{}, err
	}
	if s.Database == "" {
		s.Database = database
	}

	si.mu.Lock()
	si.cache[database] = s
	si.mu.Unlock()
	return s, nil
}

// ClearCache clears all cached schema information.
func (si *SchemaInspector) ClearCache() {
	si.mu.Lock()
	defer si.mu.Unlock()
	si.cache = make(map[string]model.Schema)
}

func (si *SchemaInspector) postgresTables(ctx context.Context, database string) (model.Schema, error) {
	filter := strings.TrimSpace(database)
	if filter == "default" {
		filter = ""
	}
	if filter != "" {
		var current string
		if err := si.db.QueryRowContext(ctx, "SELECT current_database()").Scan(&current); err != nil {
			return model.Schema{}, err
		}
		if strings.EqualFold(filter, current) {
			filter = ""
		}
	}

	rows, err := si.db.QueryContext(ctx, postgresTablesQuery, filter)
	if err != nil {
		return model.Schema{}, err
	}
	defer rows.Close()

	var s model.Schema
	for rows.Next() {
		var schema, table, column string
		if err := rows.Scan(&schema, &table, &column); err != nil {
			return model.Schema{}, err
		}
		s.Tables = appendColumn(s.Tables, schema, table, column)
	}
	return s, rows.Err()
}

func (si *SchemaInspector) sqliteTables(ctx context.Context) (model.Schema, error) {
	rows, err := si.db.QueryContext(ctx, sqliteTablesQuery)
	if err != nil {
		return model.Schema{}, err
	}
	defer rows.Close()

	s := model.Schema{Database: "main"}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return model.Schema{}, err
		}
		s.Tables = appendColumn(s.Tables, "main", table, column)
	}
	return s, rows.Err()
}

// appendColumn relies on rows arriving grouped by table.
func appendColumn(tables []model.Table, schema, table, column string) []model.Table {
	if n := len(tables); n > 0 && tables[n-1].Schema == schema && tables[n-1].Name == table {
		tables[n-1].Columns = append(tables[n-1].Columns, column)
		return tables
	}
	return append(tables, model.Table{Name: table, Schema: schema, Columns: []string{column}})
}

// GetSchema lists tables of database.
func (e *Executor) GetSchema(ctx context.Context, database string) (model.Schema, error) {
	s, err := e.inspector.Tables(ctx, database)
	if err != nil {
		return model.Schema{}, err
	}
	if s.Tables == nil {
		s.Tables = []model.Table{}
	}
	return s, nil
}

// TestConnection pings the database and reports its name and server version.
func (e *Executor) TestConnection(ctx context.Context) (model.ConnectionStatus, error) {
	st := model.ConnectionStatus{Server: e.server}
	if err := e.db.PingContext(ctx); err != nil {
		st.Error = errorMessage(err)
		return st, nil
	}

	var err error
	switch e.dbType {
	case dsn.DBTypeSQLite:
		st.Database = "main"
		var v string
		err = e.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v)
		st.Version = "SQLite " + v
	default:
		err = e.db.QueryRowContext(ctx, "SELECT current_database(), version()").Scan(&st.Database, &st.Version)
	}
	if err != nil {
		st.Error = errorMessage(err)
		return st, nil
	}
	st.Connected = true
	return st, nil
}

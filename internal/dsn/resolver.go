// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"strings"

	apperrors "sqlbench/cli/internal/errors"
)

const supportedHint = "use postgres://, postgresql://, sqlite://, file: or a path ending in .db/.sqlite"

// DetectDBType detects the database type from a DSN string
func DetectDBType(dsn string) DBType {
	lower := strings.ToLower(strings.TrimSpace(dsn))

	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DBTypePostgreSQL
	case strings.HasPrefix(lower, "sqlite://"), strings.HasPrefix(lower, "sqlite3://"),
		strings.HasPrefix(lower, "file:"), lower == ":memory:":
		return DBTypeSQLite
	}
	for _, ext := range []string{".db", ".sqlite", ".sqlite3"} {
		if strings.HasSuffix(lower, ext) && !strings.Contains(lower, "://") {
			return DBTypeSQLite
		}
	}
	return DBTypeUnknown
}

// resolverFor picks the resolver for dsn or explains why there is none.
func resolverFor(dsn string) (Resolver, DBType, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, DBTypeUnknown, NewParseError(dsn, "empty DSN", "provide a valid database connection string")
	}
	t := DetectDBType(dsn)
	switch t {
	case DBTypePostgreSQL:
		return NewPostgreSQLResolver(), t, nil
	case DBTypeSQLite:
		return NewSQLiteResolver(), t, nil
	}
	return nil, t, apperrors.Wrap(apperrors.UnsupportedDSN, "unknown database type",
		NewParseError(dsn, "unknown database type", supportedHint))
}

// Parse parses a DSN string and returns the normalized connection string.
// This is the main entry point for DSN parsing
func Parse(dsn string) (string, error) {
	resolver, _, err := resolverFor(dsn)
	if err != nil {
		return "", err
	}

	info, err := resolver.Parse(dsn)
	if err != nil {
		return "", err
	}

	return resolver.Normalize(info)
}

// Validate validates a DSN string without normalizing it
func Validate(dsn string) error {
	resolver, _, err := resolverFor(dsn)
	if err != nil {
		return err
	}
	return resolver.Validate(dsn)
}

// ParseInfo parses a DSN string and returns detailed DSN info
// Useful for inspecting connection details
func ParseInfo(dsn string) (*DSNInfo, error) {
	resolver, _, err := resolverFor(dsn)
	if err != nil {
		return nil, err
	}
	return resolver.Parse(dsn)
}

// Resolve returns the database/sql driver name and normalized data source for dsn.
func Resolve(dsn string) (driver, dataSource string, err error) {
	resolver, t, err := resolverFor(dsn)
	if err != nil {
		return "", "", err
	}
	if err := resolver.Validate(dsn); err != nil {
		return "", "", err
	}
	info, err := resolver.Parse(dsn)
	if err != nil {
		return "", "", err
	}
	dataSource, err = resolver.Normalize(info)
	if err != nil {
		return "", "", err
	}
	return t.Driver(), dataSource, nil
}

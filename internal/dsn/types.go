// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

package dsn

import (
	"fmt"
	"net/url"
)

// DBType represents the type of database
type DBType string

const (
	DBTypePostgreSQL DBType = "postgresql"
	DBTypeSQLite     DBType = "sqlite"
	DBTypeUnknown    DBType = "unknown"
)

// Driver returns the database/sql driver name registered for the type.
func (t DBType) Driver() string {
	switch t {
	case DBTypePostgreSQL:
		return "pgx"
	case DBTypeSQLite:
		return "sqlite"
	}
	return ""
}

// DSNInfo contains parsed information from a DSN string
type DSNInfo struct {
	Type     DBType
	Host     string
	Port     string
	User     string
	Password string
	// Database is the database name for servers and the file path for SQLite.
	Database string
	Params   map[string]string
	Original string
}

// String returns the original DSN string
func (d *DSNInfo) String() string {
	return d.Original
}

// Redacted returns a display form without the password.
func (d *DSNInfo) Redacted() string {
	switch d.Type {
	case DBTypePostgreSQL:
		u := url.URL{Scheme: "postgresql", Host: d.Host, Path: "/" + d.Database}
		if d.Port != "" {
			u.Host = d.Host + ":" + d.Port
		}
		if d.User != "" {
			if d.Password != "" {
				u.User = url.UserPassword(d.User, "***")
			} else {
				u.User = url.User(d.User)
			}
		}
		return u.String()
	case DBTypeSQLite:
		return "sqlite://" + d.Database
	}
	return ""
}

// Resolver is an interface for database-specific DSN resolution
type Resolver interface {
	// Parse parses a DSN string and returns normalized DSN info
	Parse(dsn string) (*DSNInfo, error)

	// Normalize converts DSN info to the connection string its driver accepts
	Normalize(info *DSNInfo) (string, error)

	// Validate checks if the DSN is valid for the database type
	Validate(dsn string) error
}

// ParseError represents an error that occurred during DSN parsing
type ParseError struct {
	DSN    string
	Reason string
	Hint   string
}

func (e *ParseError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("invalid DSN format: %s\nHint: %s", e.Reason, e.Hint)
	}
	return fmt.Sprintf("invalid DSN format: %s", e.Reason)
}

// NewParseError creates a new ParseError
func NewParseError(dsn, reason, hint string) *ParseError {
	return &ParseError{
		DSN:    dsn,
		Reason: reason,
		Hint:   hint,
	}
}

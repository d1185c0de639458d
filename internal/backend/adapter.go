// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package backend provides the Query Service contract and its REST client.
// It defines the operations the execution core needs from a SQL backend:
// connection testing, statement execution with destructive-operation
// confirmation, and schema listing. The HTTP implementation talks to a
// backend exposing /api/connection-test, /api/execute and /api/schema.
package backend

import (
	"context"

	"sqlbench/cli/internal/model"
)

// QueryService defines the backend operations the workbench depends on.
// Implementations may call a remote REST backend, run statements directly
// against a database, or provide fakes for tests.
type QueryService interface {
	TestConnection(ctx context.Context) (model.ConnectionStatus, error)
	// ExecuteQuery runs query against database (empty means the service default).
	// A destructive statement submitted with confirmDestructive false yields a
	// Response carrying a Confirmation and nothing is executed.
	ExecuteQuery(ctx context.Context, query, database string, confirmDestructive bool) (model.Response, error)
	GetSchema(ctx context.Context, database string) (model.Schema, error)
}

// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package model defines shared data structures exchanged between the session
// registry, the execution coordinator and the Query Service implementations.
//
// The types in this package are transport-agnostic: the REST client, the direct
// database executor and the HTTP server all speak in terms of these values.
package model

// Result is the outcome of one completed execution. It is either a success
// payload (Success true, optional Columns/Data) or a failure payload carrying Error.
type Result struct {
	Success bool `json:"success"`
	// Columns lists column names in row order; nil for statements without a row set.
	Columns []string `json:"columns,omitempty"`
	// Data holds the returned rows, one slice per row aligned with Columns.
	Data [][]any `json:"data,omitempty"`
	// RowsAffected is set for write statements when the service reports it.
	RowsAffected *int64 `json:"rows_affected,omitempty"`
	// ExecutionTime is the service-reported duration in seconds.
	ExecutionTime float64 `json:"execution_time"`
	Query         string  `json:"query,omitempty"`
	Message       string  `json:"message,omitempty"`
	Error         string  `json:"error,omitempty"`
}

// Failure builds a failure result with the given message.
func Failure(msg string) *Result {
	return &Result{Success: false, Error: msg}
}

// RowCount returns the number of returned rows.
func (r *Result) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Data)
}

// Clone returns a shallow copy of r. Row data is shared; results are replaced
// wholesale and never mutated in place.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Confirmation is the advisory response for a statement the Query Service
// classified as destructive.
type Confirmation struct {
	Query           string   `json:"query"`
	Operation       string   `json:"operation"`
	AffectedObjects []string `json:"affected_objects"`
	Warning         string   `json:"warning,omitempty"`
}

// Response is what a Query Service returns for one execute call.
// Exactly one of Result and Confirmation is set.
type Response struct {
	Result       *Result
	Confirmation *Confirmation
}

// RequiresConfirmation reports whether the service asked for human confirmation.
func (r Response) RequiresConfirmation() bool {
	return r.Confirmation != nil
}

// ConnectionStatus is the answer of a connection test.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Server    string `json:"server,omitempty"`
	Database  string `json:"database,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Table describes one table of a database schema.
type Table struct {
	Name    string   `json:"name"`
	Schema  string   `json:"schema"`
	Columns []string `json:"columns"`
}

// Schema lists the tables of one database.
type Schema struct {
	Database string  `json:"database,omitempty"`
	Tables   []Table `json:"tables"`
}

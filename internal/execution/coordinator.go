// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package execution drives the two-phase execute protocol for query sessions.
//
// A statement is submitted to the Query Service on behalf of one session. When
// the service classifies it as destructive, nothing is committed; the
// Coordinator parks a pending confirmation on that session until the user
// confirms (one resubmission with the override flag) or cancels.
package execution

import (
	"context"
	"errors"
	"strings"
	"sync"

	"sqlbench/cli/internal/backend"
	apperrors "sqlbench/cli/internal/errors"
	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"
	"sqlbench/cli/internal/session"

	"github.com/pterm/pterm"
)

const (
	// EmptyQueryMessage is the failure committed for a blank statement.
	EmptyQueryMessage = "empty query"
	// FallbackFailureMessage is used when a service failure carries no message.
	FallbackFailureMessage = "Query execution failed"
	// UnconfirmedMessage is committed when the service still demands confirmation
	// for a statement that was already confirmed.
	UnconfirmedMessage = "Query Service rejected the confirmed statement"
)

// Executor is the part of the Query Service the coordinator needs.
type Executor interface {
	ExecuteQuery(ctx context.Context, query, database string, confirmDestructive bool) (model.Response, error)
}

// State is the coordinator state of one session.
type State string

const (
	StateIdle                 State = "idle"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// Outcome is what one execute, confirm or cancel produced. At most one of Result
// and Confirmation is set; both are nil after a cancel.
type Outcome struct {
	Session      session.ID
	Result       *model.Result
	Confirmation *model.Confirmation
}

// AwaitingConfirmation reports whether the outcome parked a pending confirmation.
func (o Outcome) AwaitingConfirmation() bool { return o.Confirmation != nil }

type pending struct {
	confirmation model.Confirmation
	database     string
}

// Coordinator runs statements for sessions of a Registry.
type Coordinator struct {
	registry *session.Registry
	service  Executor
	logger   *pterm.Logger

	mu      sync.Mutex
	pending map[session.ID]pending
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(l *pterm.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator that commits into registry and executes through service.
func New(registry *session.Registry, service Executor, opts ...Option) *Coordinator {
	c := &Coordinator{
		registry: registry,
		service:  service,
		logger:   logging.Discard(),
		pending:  make(map[session.ID]pending),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs query for the active session.
func (c *Coordinator) Execute(ctx context.Context, query, database string, confirmDestructive bool) (Outcome, error) {
	return c.ExecuteSession(ctx, c.registry.ActiveID(), query, database, confirmDestructive)
}

// ExecuteSession runs query for session id.
//
// A session that is already running is rejected with a session_busy error,
// blank or not. A blank query commits a local failure without contacting the
// service. Service failures are committed as failure results, not returned as
// errors.
func (c *Coordinator) ExecuteSession(ctx context.Context, id session.ID, query, database string, confirmDestructive bool) (Outcome, error) {
	sess, ok := c.registry.Get(id)
	if !ok {
		return Outcome{}, apperrors.New(apperrors.UnknownSession, string(id))
	}
	if sess.Running() {
		return Outcome{}, busy(id)
	}
	out := Outcome{Session: id}

	if strings.TrimSpace(query) == "" {
		out.Result = model.Failure(EmptyQueryMessage)
		c.commit(id, out.Result)
		c.logger.Debug("empty query rejected", c.logger.Args("session", id))
		return out, nil
	}

	if !c.registry.BeginRun(id) {
		return Outcome{}, busy(id)
	}
	defer c.registry.SetRunning(id, false)

	c.logger.Debug("executing", c.logger.Args("session", id, "confirm", confirmDestructive, "database", database))
	resp, err := c.service.ExecuteQuery(ctx, query, database, confirmDestructive)
	switch {
	case err != nil:
		msg := failureMessage(err)
		c.logger.Warn("query service failed", c.logger.Args("session", id, "error", logging.Mask(err.Error())))
		out.Result = model.Failure(msg)
		out.Result.Query = query
	case resp.RequiresConfirmation() && !confirmDestructive:
		conf := *resp.Confirmation
		if conf.Query == "" {
			conf.Query = query
		}
		c.mu.Lock()
		c.pending[id] = pending{confirmation: conf, database: database}
		c.mu.Unlock()
		c.logger.Debug("awaiting confirmation", c.logger.Args("session", id, "operation", conf.Operation, "objects", conf.AffectedObjects))
		out.Confirmation = &conf
		return out, nil
	case resp.RequiresConfirmation():
		out.Result = model.Failure(UnconfirmedMessage)
		out.Result.Query = query
	case resp.Result == nil:
		out.Result = model.Failure(FallbackFailureMessage)
		out.Result.Query = query
	default:
		out.Result = resp.Result.Clone()
		if out.Result.Query == "" {
			out.Result.Query = query
		}
	}

	c.commit(id, out.Result)
	return out, nil
}

func busy(id session.ID) error {
	return apperrors.New(apperrors.SessionBusy, "an execution is already running for "+string(id))
}

// commit stores result as the session's last result and drops any pending confirmation.
func (c *Coordinator) commit(id session.ID, result *model.Result) {
	c.registry.UpdateResult(id, result)
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Confirm resubmits the pending statement of session id with the override flag.
// The pending confirmation is discarded before resubmission.
func (c *Coordinator) Confirm(ctx context.Context, id session.ID) (Outcome, error) {
	c.mu.Lock()
	p, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()
	if !ok {
		return Outcome{}, apperrors.New(apperrors.NoPendingConfirmation, "nothing to confirm for "+string(id))
	}

	c.logger.Debug("confirmed", c.logger.Args("session", id, "operation", p.confirmation.Operation))
	out, err := c.ExecuteSession(ctx, id, p.confirmation.Query, p.database, true)
	if apperrors.Is(err, apperrors.SessionBusy) {
		c.mu.Lock()
		if _, exists := c.pending[id]; !exists {
			c.pending[id] = p
		}
		c.mu.Unlock()
	}
	return out, err
}

// Cancel discards the pending confirmation of session id and reports whether
// there was one. The session's last result is left untouched.
func (c *Coordinator) Cancel(id session.ID) bool {
	c.mu.Lock()
	_, ok := c.pending[id]
	delete(c.pending, id)
	c.mu.Unlock()
	if ok {
		c.logger.Debug("confirmation cancelled", c.logger.Args("session", id))
	}
	return ok
}

// Forget drops coordinator state of a closed session.
func (c *Coordinator) Forget(id session.ID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Pending returns the pending confirmation of session id.
func (c *Coordinator) Pending(id session.ID) (model.Confirmation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	return p.confirmation, ok
}

// PendingSessions returns the ids of sessions awaiting confirmation, in registry order.
func (c *Coordinator) PendingSessions() []session.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []session.ID
	for _, s := range c.registry.Sessions() {
		if _, ok := c.pending[s.ID]; ok {
			out = append(out, s.ID)
		}
	}
	return out
}

// State returns the coordinator state of session id.
func (c *Coordinator) State(id session.ID) State {
	if s, ok := c.registry.Get(id); ok && s.Running() {
		return StateSubmitting
	}
	if _, ok := c.Pending(id); ok {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

func failureMessage(err error) string {
	var se *backend.ServiceError
	if errors.As(err, &se) && strings.TrimSpace(se.Message) != "" {
		return se.Message
	}
	return FallbackFailureMessage
}

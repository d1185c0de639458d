// Copyright (c) 2025 Sqlbench
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package session implements the registry of query tabs.
//
// The Registry is the single source of truth for every tab: its draft text, its
// last result and whether an execution is outstanding. It always holds at least
// one session and exactly one active session. Callers only ever see copies;
// every change goes through a Registry method.
package session

import (
	"fmt"
	"strings"
	"sync"

	"sqlbench/cli/internal/logging"
	"sqlbench/cli/internal/model"

	"github.com/pterm/pterm"
)

// ID identifies a session for the lifetime of the process.
type ID string

// Status is the execution status of a session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
)

// DefaultDraft is the placeholder text of a fresh session.
const DefaultDraft = "-- Write your SQL query here\n"

const copySuffix = " (Copy)"

// Session is a read-only snapshot of one query tab.
type Session struct {
	ID         ID
	Title      string
	DraftQuery string
	// LastResult is the outcome of the most recently completed execution, nil for a fresh tab.
	LastResult *model.Result
	Status     Status
}

// Running reports whether an execution is outstanding for the session.
func (s Session) Running() bool { return s.Status == StatusRunning }

// Option configures a Registry.
type Option func(*Registry)

// WithIDGenerator replaces the default per-registry counter.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *pterm.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithDefaultDraft sets the draft text of new sessions.
func WithDefaultDraft(text string) Option {
	return func(r *Registry) { r.defaultDraft = text }
}

// Registry owns the set of sessions and the active pointer.
type Registry struct {
	mu sync.RWMutex
	// order preserves creation order; it is the iteration order of Sessions.
	order    []ID
	sessions map[ID]*Session
	activeID ID
	// seq numbers default titles ("Query n").
	seq          int
	ids          IDGenerator
	defaultDraft string
	logger       *pterm.Logger
}

// NewRegistry creates a registry bootstrapped with one active session.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[ID]*Session),
		ids:          &CounterIDs{},
		defaultDraft: DefaultDraft,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	s := r.addLocked()
	r.activeID = s.ID
	return r
}

// Placeholder returns the draft text new sessions start with.
func (r *Registry) Placeholder() string { return r.defaultDraft }

// addLocked appends a fresh default session. r.mu must be held.
func (r *Registry) addLocked() *Session {
	r.seq++
	s := &Session{
		ID:         r.ids.NextID(),
		Title:      fmt.Sprintf("Query %d", r.seq),
		DraftQuery: r.defaultDraft,
		Status:     StatusIdle,
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	return s
}

// Create allocates a new default session, makes it active and returns its id.
func (r *Registry) Create() ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.addLocked()
	r.activeID = s.ID
	r.logger.Debug("session created", r.logger.Args("session", s.ID, "title", s.Title))
	return s.ID
}

// Close removes the session. Unknown ids are ignored. Closing the last session
// substitutes a fresh one; closing the active session activates the last
// remaining session in creation order.
func (r *Registry) Close(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(id)
	if idx < 0 {
		return
	}
	delete(r.sessions, id)
	r.order = append(r.order[:idx], r.order[idx+1:]...)

	if len(r.order) == 0 {
		s := r.addLocked()
		r.activeID = s.ID
		r.logger.Debug("last session closed, substituted", r.logger.Args("closed", id, "session", s.ID))
		return
	}
	if r.activeID == id {
		r.activeID = r.order[len(r.order)-1]
	}
	r.logger.Debug("session closed", r.logger.Args("session", id, "active", r.activeID))
}

// Duplicate copies the title (suffixed) and draft of id into a new idle session
// without a result, makes it active and returns its id. ok is false when id is unknown.
func (r *Registry) Duplicate(id ID) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.sessions[id]
	if !ok {
		return "", false
	}
	s := &Session{
		ID:         r.ids.NextID(),
		Title:      src.Title + copySuffix,
		DraftQuery: src.DraftQuery,
		Status:     StatusIdle,
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
	r.activeID = s.ID
	r.logger.Debug("session duplicated", r.logger.Args("source", id, "session", s.ID))
	return s.ID, true
}

// Rename sets the title when newTitle is not blank.
func (r *Registry) Rename(id ID, newTitle string) {
	title := strings.TrimSpace(newTitle)
	if title == "" {
		return
	}
	r.update(id, func(s *Session) { s.Title = title })
}

// SetActive moves the active pointer and reports whether id exists.
func (r *Registry) SetActive(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	r.activeID = id
	return true
}

// UpdateDraft replaces the draft text.
func (r *Registry) UpdateDraft(id ID, text string) {
	r.update(id, func(s *Session) { s.DraftQuery = text })
}

// UpdateResult replaces the last result wholesale.
func (r *Registry) UpdateResult(id ID, result *model.Result) {
	result = result.Clone()
	r.update(id, func(s *Session) { s.LastResult = result })
}

// SetRunning sets or clears the running status.
func (r *Registry) SetRunning(id ID, running bool) {
	r.update(id, func(s *Session) {
		if running {
			s.Status = StatusRunning
		} else {
			s.Status = StatusIdle
		}
	})
}

// BeginRun marks an idle session as running and reports whether it did.
// It returns false when the session is unknown or already running.
func (r *Registry) BeginRun(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status == StatusRunning {
		return false
	}
	s.Status = StatusRunning
	return true
}

func (r *Registry) update(id ID, fn func(*Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		fn(s)
	}
}

// Active returns the active session.
func (r *Registry) Active() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.sessions[r.activeID])
}

// ActiveID returns the id of the active session.
func (r *Registry) ActiveID() ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeID
}

// Get returns the session with id.
func (r *Registry) Get(id ID) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return snapshot(s), true
}

// Sessions returns all sessions in creation order.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, snapshot(r.sessions[id]))
	}
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// At returns the id at 1-based position pos in creation order.
func (r *Registry) At(pos int) (ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if pos < 1 || pos > len(r.order) {
		return "", false
	}
	return r.order[pos-1], true
}

func (r *Registry) indexLocked(id ID) int {
	for i, v := range r.order {
		if v == id {
			return i
		}
	}
	return -1
}

func snapshot(s *Session) Session {
	c := *s
	c.LastResult = s.LastResult.Clone()
	return c
}

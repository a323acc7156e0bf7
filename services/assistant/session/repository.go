// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package session owns the lifecycle of questionnaire sessions.
//
// # Description
//
// A Repository creates sessions, hands out snapshots, serializes turns of
// the same session and expires sessions that have been idle for longer
// than the configured timeout. Sessions live only for the lifetime of the
// process.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned the first time an idle session is
	// accessed after its timeout. The session is removed at that point.
	ErrSessionExpired = errors.New("session expired")
)

// DefaultIdleTimeout is used when no timeout is configured.
const DefaultIdleTimeout = time.Hour

// UpdateFunc computes the next state of a session from a snapshot.
// Returning an error aborts the update without committing anything.
type UpdateFunc func(current datatypes.SessionState) (datatypes.SessionState, error)

// Repository manages session state keyed by session id.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Update must guarantee
// that two updates of the same session never run concurrently.
type Repository interface {
	Create(ctx context.Context, lang datatypes.Language) (datatypes.SessionState, error)
	Get(ctx context.Context, id string) (datatypes.SessionState, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (datatypes.SessionState, error)
	Delete(ctx context.Context, id string) error
	ExpireIdle(ctx context.Context) (int, error)
	Len() int
}

// =============================================================================
// In-memory implementation
// =============================================================================

type entry struct {
	// lock is a one-slot semaphore so acquisition can honor ctx.
	lock  chan struct{}
	state datatypes.SessionState
	gone  bool
}

func (e *entry) acquire(ctx context.Context) error {
	select {
	case e.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *entry) tryAcquire() bool {
	select {
	case e.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *entry) release() { <-e.lock }

// MemoryRepository keeps sessions in a map guarded by a RWMutex, with one
// lock per session for turn serialization.
type MemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	idle     time.Duration
	now      func() time.Time
	newID    func() string
	onRemove func(id string)
}

var _ Repository = (*MemoryRepository)(nil)

// Option configures a MemoryRepository.
type Option func(*MemoryRepository)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *MemoryRepository) { r.now = now }
}

// WithIDGenerator overrides session id generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *MemoryRepository) { r.newID = gen }
}

// WithRemoveHook registers fn to run after a session is expired or
// deleted. fn runs without repository locks held.
func WithRemoveHook(fn func(id string)) Option {
	return func(r *MemoryRepository) { r.onRemove = fn }
}

// NewMemoryRepository creates an empty repository. A non-positive idle
// timeout selects DefaultIdleTimeout.
func NewMemoryRepository(idle time.Duration, opts ...Option) *MemoryRepository {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	r := &MemoryRepository{
		sessions: make(map[string]*entry),
		idle:     idle,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Create starts a new session positioned at the first parameter.
func (r *MemoryRepository) Create(_ context.Context, lang datatypes.Language) (datatypes.SessionState, error) {
	if !lang.Valid() {
		return datatypes.SessionState{}, fmt.Errorf("%w: %q", datatypes.ErrInvalidLanguage, lang)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.newID()
	if _, exists := r.sessions[id]; exists {
		return datatypes.SessionState{}, fmt.Errorf("session id collision: %s", id)
	}
	s := datatypes.NewSessionState(id, lang, r.now())
	r.sessions[id] = &entry{lock: make(chan struct{}, 1), state: s}
	slog.Info("session created", "session_id", id, "language", lang)
	return s.Clone(), nil
}

// Get returns a snapshot of the session. Reading does not refresh the idle
// timer.
func (r *MemoryRepository) Get(_ context.Context, id string) (datatypes.SessionState, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return datatypes.SessionState{}, ErrSessionNotFound
	}
	if e.tryAcquire() {
		defer e.release()
		if r.expired(e.state) {
			r.remove(id, e)
			return datatypes.SessionState{}, ErrSessionExpired
		}
		return e.state.Clone(), nil
	}
	// A turn is in flight; the committed state is still consistent to read
	// because commits replace e.state under r.mu.
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.state.Clone(), nil
}

// Update runs fn on a snapshot while holding the session's lock and commits
// the returned state in a single step.
//
// # Description
//
// The lock is held for the whole of fn, including any network calls fn
// makes, so turns of one session are strictly sequential. Turns of
// different sessions never contend. The committed state gets LastActive
// set to now.
//
// # Outputs
//
//   - datatypes.SessionState: The committed state.
//   - error: ErrSessionNotFound, ErrSessionExpired, ctx.Err() while
//     waiting for the lock, or the error returned by fn.
func (r *MemoryRepository) Update(ctx context.Context, id string, fn UpdateFunc) (datatypes.SessionState, error) {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return datatypes.SessionState{}, ErrSessionNotFound
	}
	if err := e.acquire(ctx); err != nil {
		return datatypes.SessionState{}, fmt.Errorf("waiting for session %s: %w", id, err)
	}
	defer e.release()

	r.mu.RLock()
	gone := e.gone
	r.mu.RUnlock()
	if gone {
		return datatypes.SessionState{}, ErrSessionNotFound
	}
	if r.expired(e.state) {
		r.remove(id, e)
		return datatypes.SessionState{}, ErrSessionExpired
	}

	next, err := fn(e.state.Clone())
	if err != nil {
		return datatypes.SessionState{}, err
	}
	if next.SessionID != id {
		return datatypes.SessionState{}, fmt.Errorf("update of session %s returned state for %q", id, next.SessionID)
	}
	if next.Cursor.Position() < e.state.Cursor.Position() {
		return datatypes.SessionState{}, fmt.Errorf("update of session %s moves cursor backwards", id)
	}
	next.LastActive = r.now()

	r.mu.Lock()
	e.state = next
	r.mu.Unlock()
	return next.Clone(), nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		e.gone = true
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok && r.onRemove != nil {
		r.onRemove(id)
	}
	return nil
}

// ExpireIdle removes every idle session that is not in the middle of a
// turn and returns how many were removed.
func (r *MemoryRepository) ExpireIdle(ctx context.Context) (int, error) {
	r.mu.RLock()
	candidates := make(map[string]*entry, len(r.sessions))
	for id, e := range r.sessions {
		candidates[id] = e
	}
	r.mu.RUnlock()

	removed := 0
	for id, e := range candidates {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !e.tryAcquire() {
			continue
		}
		if r.expired(e.state) {
			r.remove(id, e)
			removed++
		}
		e.release()
	}
	return removed, nil
}

// Len returns the number of live sessions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *MemoryRepository) expired(s datatypes.SessionState) bool {
	return r.now().Sub(s.LastActive) > r.idle
}

// remove must be called with e's lock held.
func (r *MemoryRepository) remove(id string, e *entry) {
	r.mu.Lock()
	e.gone = true
	if cur, ok := r.sessions[id]; ok && cur == e {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	slog.Info("session expired", "session_id", id)
	if r.onRemove != nil {
		r.onRemove(id)
	}
}

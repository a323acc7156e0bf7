// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// State is the lifecycle stage of a report.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var (
	// ErrIncomplete is returned when a report is requested for a session
	// that has not finished the questionnaire.
	ErrIncomplete = errors.New("questionnaire is not complete")

	// ErrNotReady is returned by Download until the report is completed.
	ErrNotReady = errors.New("report not ready")
)

// Status is the progress record exposed to clients.
type Status struct {
	SessionID string `json:"session_id"`
	Status    State  `json:"status"`
	Progress  int    `json:"progress"`
	Message   string `json:"message"`
	Report    any    `json:"report,omitempty"`
}

// Service runs report generation in the background and tracks progress
// per session.
//
// # Description
//
// Generate validates the session, records a processing status and returns
// immediately. The webhook call runs on its own goroutine detached from the
// request context so a client disconnect does not abort it.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	gen     Generator
	timeout time.Duration

	mu       sync.RWMutex
	statuses map[string]Status
	wg       sync.WaitGroup
}

// NewService creates a report service. A non-positive timeout selects
// DefaultTimeout.
func NewService(gen Generator, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{gen: gen, timeout: timeout, statuses: make(map[string]Status)}
}

// Generate starts report generation for a completed session.
//
// # Outputs
//
//   - Status: The processing status just recorded.
//   - error: ErrIncomplete if the questionnaire has not finished.
func (s *Service) Generate(ctx context.Context, state datatypes.SessionState) (Status, error) {
	if !state.IsComplete() {
		return Status{}, ErrIncomplete
	}
	id := state.SessionID
	st := s.set(id, StateProcessing, 10, "Preparing soil data...", nil)

	payload := NewPayload(state)
	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), payload)
	return st, nil
}

func (s *Service) run(ctx context.Context, p Payload) {
	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.progress(p.ID, StateProcessing, 30, "Analyzing soil parameters...", nil)
	s.progress(p.ID, StateProcessing, 50, "Generating personalized recommendations...", nil)

	report, err := s.gen.Generate(ctx, p)
	switch {
	case errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		slog.Error("report generation timed out", "session_id", p.ID)
		s.progress(p.ID, StateFailed, 0, "Report generation timed out. Please try again.", nil)
	case err != nil:
		slog.Error("report generation failed", "session_id", p.ID, "error", err)
		s.progress(p.ID, StateFailed, 0, "Error generating report: "+err.Error(), nil)
	default:
		slog.Info("report generated", "session_id", p.ID)
		s.progress(p.ID, StateCompleted, 100, "Report generated successfully!", report)
	}
}

// Status returns the progress of a session's report. Unknown sessions
// report pending.
func (s *Service) Status(id string) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.statuses[id]; ok {
		return st
	}
	return Status{SessionID: id, Status: StatePending, Message: "Report generation not started"}
}

// Download returns the finished report.
func (s *Service) Download(id string) (any, error) {
	st := s.Status(id)
	if st.Status != StateCompleted {
		return nil, ErrNotReady
	}
	return st.Report, nil
}

// Forget drops the status of a session. A generation still in flight for
// it finishes without recording a result. Wired to session removal so the
// status map never outlives its sessions.
func (s *Service) Forget(id string) {
	s.mu.Lock()
	delete(s.statuses, id)
	s.mu.Unlock()
}

// Wait blocks until every in-flight generation has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) set(id string, state State, progress int, msg string, report any) Status {
	st := Status{SessionID: id, Status: state, Progress: progress, Message: msg, Report: report}
	s.mu.Lock()
	s.statuses[id] = st
	s.mu.Unlock()
	return st
}

// progress records a background update only while the status is still
// tracked.
func (s *Service) progress(id string, state State, progress int, msg string, report any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.statuses[id]; !ok {
		return
	}
	s.statuses[id] = Status{SessionID: id, Status: state, Progress: progress, Message: msg, Report: report}
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often idle sessions are expired by default.
const DefaultSweepInterval = 5 * time.Minute

// Expirer removes idle sessions.
type Expirer interface {
	ExpireIdle(ctx context.Context) (int, error)
}

// SweepObserver is told how many sessions each cycle removed. Optional.
type SweepObserver interface {
	ObserveExpired(n int)
}

// Sweeper periodically expires idle sessions in the background.
//
// # Description
//
// Uses the ticker + done channel pattern. A cycle also runs immediately on
// Start so a restarted sweeper does not wait a full interval.
//
// # Thread Safety
//
// Start, Stop and RunNow are safe for concurrent use.
type Sweeper struct {
	target   Expirer
	interval time.Duration
	observer SweepObserver

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSweeper creates a stopped sweeper. A non-positive interval selects
// DefaultSweepInterval. observer may be nil.
func NewSweeper(target Expirer, interval time.Duration, observer SweepObserver) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{target: target, interval: interval, observer: observer}
}

// Start launches the background loop.
//
// # Outputs
//
//   - error: Non-nil if the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("session sweeper is already running")
	}
	s.running = true
	s.done = make(chan struct{})

	slog.Info("session sweeper starting", "interval", s.interval.String())
	s.wg.Add(1)
	go s.runLoop(ctx, s.done)
	return nil
}

// Stop signals the loop to exit and waits for the current cycle. Safe to
// call more than once.
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	close(s.done)
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("session sweeper stopped")
	return nil
}

// RunNow performs one expiry cycle synchronously.
func (s *Sweeper) RunNow(ctx context.Context) (int, error) {
	n, err := s.target.ExpireIdle(ctx)
	if err != nil {
		return n, fmt.Errorf("expiring idle sessions: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveExpired(n)
	}
	return n, nil
}

func (s *Sweeper) runLoop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped (context cancelled)")
			return
		case <-done:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.RunNow(ctx)
	if err != nil {
		slog.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("expired idle sessions", "count", n)
	}
}

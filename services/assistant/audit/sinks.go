// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package audit provides sinks for per-turn audit entries.
//
// # Description
//
// The questionnaire engine publishes one datatypes.AuditEntry per turn. The
// sinks here forward entries to the structured log, keep them in SQLite
// for later inspection, or discard them.
package audit

import (
	"context"
	"log/slog"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

// =============================================================================
// Log sink
// =============================================================================

// LogSink writes each entry as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

var _ questionnaire.AuditSink = (*LogSink)(nil)

// NewLogSink creates a sink writing to logger, or to slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Record implements questionnaire.AuditSink.
func (s *LogSink) Record(ctx context.Context, e datatypes.AuditEntry) error {
	attrs := []slog.Attr{
		slog.String("session_id", e.SessionID),
		slog.Int("turn_index", e.TurnIndex),
		slog.String("parameter", e.Parameter.String()),
		slog.String("language", e.Language.String()),
		slog.String("outcome", string(e.Outcome)),
		slog.Float64("asr_conf", e.Record.TranscriptionConfidence),
		slog.Float64("validator_conf", e.Record.ValidatorConfidence),
		slog.Float64("llm_conf", e.Record.GenerationConfidence),
		slog.Float64("combined_conf", e.Record.CombinedConfidence),
		slog.Int("retrieved_chunks", len(e.Record.RetrievedContext)),
	}
	if e.Record.TranscriptText != nil {
		attrs = append(attrs, slog.Bool("has_transcript", true))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "turn audit", attrs...)
	return nil
}

// =============================================================================
// No-op sink
// =============================================================================

type noopSink struct{}

func (noopSink) Record(context.Context, datatypes.AuditEntry) error { return nil }

// NewNoopSink returns a sink that discards every entry.
func NewNoopSink() questionnaire.AuditSink {
	return noopSink{}
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"context"
	"log/slog"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// AuditRecorder fans a finished turn's audit entry out to every sink.
//
// # Description
//
// Sink failures are logged and otherwise ignored; auditing never changes the
// outcome of a turn.
//
// # Thread Safety
//
// Safe for concurrent use if the sinks are. The sink list is fixed at
// construction.
type AuditRecorder struct {
	sinks []AuditSink
}

// NewAuditRecorder creates a recorder over the given sinks. Nil sinks are
// dropped.
func NewAuditRecorder(sinks ...AuditSink) *AuditRecorder {
	r := &AuditRecorder{}
	for _, s := range sinks {
		if s != nil {
			r.sinks = append(r.sinks, s)
		}
	}
	return r
}

// Publish delivers entry to every sink after normalizing the record.
func (r *AuditRecorder) Publish(ctx context.Context, entry datatypes.AuditEntry) {
	if r == nil {
		return
	}
	entry.Record = completeRecord(entry.Record)
	for _, s := range r.sinks {
		if err := s.Record(ctx, entry); err != nil {
			slog.Warn("audit sink failed",
				"error", err,
				"session_id", entry.SessionID,
				"turn_index", entry.TurnIndex)
		}
	}
}

// completeRecord clamps every confidence into [0,1] and guarantees a non-nil
// context slice so records from different paths compare field by field.
func completeRecord(rec datatypes.AuditRecord) datatypes.AuditRecord {
	rec.TranscriptionConfidence = unit(rec.TranscriptionConfidence)
	rec.ValidatorConfidence = unit(rec.ValidatorConfidence)
	rec.GenerationConfidence = unit(rec.GenerationConfidence)
	rec.CombinedConfidence = unit(rec.CombinedConfidence)
	if rec.RetrievedContext == nil {
		rec.RetrievedContext = []string{}
	}
	return rec
}

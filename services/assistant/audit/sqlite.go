// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

const schema = `
CREATE TABLE IF NOT EXISTS turn_audit (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT NOT NULL,
	turn_index       INTEGER NOT NULL,
	parameter        TEXT NOT NULL,
	language         TEXT NOT NULL,
	outcome          TEXT NOT NULL,
	asr_conf         REAL NOT NULL,
	validator_conf   REAL NOT NULL,
	llm_conf         REAL NOT NULL,
	combined_conf    REAL NOT NULL,
	asr_text         TEXT,
	retrieved_chunks TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turn_audit_session ON turn_audit(session_id, turn_index);
`

// SQLiteSink stores audit entries in a SQLite database.
//
// # Thread Safety
//
// Safe for concurrent use; database/sql pools connections and SQLite
// serializes writers.
type SQLiteSink struct {
	db *sql.DB
}

var _ questionnaire.AuditSink = (*SQLiteSink)(nil)

// OpenSQLiteSink opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if path == ":memory:" {
		// Each pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// Record implements questionnaire.AuditSink.
func (s *SQLiteSink) Record(ctx context.Context, e datatypes.AuditEntry) error {
	chunks := e.Record.RetrievedContext
	if chunks == nil {
		chunks = []string{}
	}
	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal retrieved chunks: %w", err)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO turn_audit (session_id, turn_index, parameter, language, outcome,
			asr_conf, validator_conf, llm_conf, combined_conf, asr_text, retrieved_chunks, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.TurnIndex, string(e.Parameter), string(e.Language), string(e.Outcome),
		e.Record.TranscriptionConfidence, e.Record.ValidatorConfidence,
		e.Record.GenerationConfidence, e.Record.CombinedConfidence,
		nullableString(e.Record.TranscriptText), string(chunksJSON),
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListSession returns the stored entries of a session in turn order.
func (s *SQLiteSink) ListSession(ctx context.Context, sessionID string) ([]datatypes.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, turn_index, parameter, language, outcome,
			asr_conf, validator_conf, llm_conf, combined_conf, asr_text, retrieved_chunks, created_at
		 FROM turn_audit WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	var out []datatypes.AuditEntry
	for rows.Next() {
		var (
			e          datatypes.AuditEntry
			param      string
			lang       string
			outcome    string
			asrText    sql.NullString
			chunksJSON string
			createdAt  string
		)
		if err := rows.Scan(&e.SessionID, &e.TurnIndex, &param, &lang, &outcome,
			&e.Record.TranscriptionConfidence, &e.Record.ValidatorConfidence,
			&e.Record.GenerationConfidence, &e.Record.CombinedConfidence,
			&asrText, &chunksJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Parameter = datatypes.Parameter(param)
		e.Language = datatypes.Language(lang)
		e.Outcome = datatypes.Outcome(outcome)
		if asrText.Valid {
			text := asrText.String
			e.Record.TranscriptText = &text
		}
		if err := json.Unmarshal([]byte(chunksJSON), &e.Record.RetrievedContext); err != nil {
			return nil, fmt.Errorf("decode retrieved chunks: %w", err)
		}
		if e.At, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

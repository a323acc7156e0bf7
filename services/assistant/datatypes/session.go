// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package datatypes

import "time"

// Cursor is the questionnaire position of a session.
//
// # Description
//
// A cursor is either at a Parameter or at the terminal COMPLETE state. When
// complete, Parameter keeps the last parameter of the order so that a finished
// session still reports the last answered question.
type Cursor struct {
	Parameter Parameter `json:"parameter"`
	Complete  bool      `json:"complete"`
}

// StartCursor returns the cursor of a freshly created session.
func StartCursor() Cursor {
	return Cursor{Parameter: FirstParameter()}
}

// Advance returns the cursor that follows c. Advancing from the last
// parameter yields COMPLETE; advancing a complete cursor is a no-op.
func (c Cursor) Advance() Cursor {
	if c.Complete {
		return c
	}
	next, ok := c.Parameter.Next()
	if !ok {
		return Cursor{Parameter: c.Parameter, Complete: true}
	}
	return Cursor{Parameter: next}
}

// Position returns a total order over cursors: parameter index, with
// COMPLETE ranked after every parameter.
func (c Cursor) Position() int {
	if c.Complete {
		return TotalSteps
	}
	return c.Parameter.Index()
}

// SessionState is the mutable conversation state of one questionnaire.
//
// # Fields
//
//   - SessionID: Opaque identifier, unique per conversation.
//   - Language: Conversation language.
//   - Cursor: Current question or COMPLETE.
//   - Answers: Recorded values.
//   - ClarificationMode: True while the last turn ended in clarification.
//   - CreatedAt/LastActive: Lifecycle timestamps used by idle expiry.
//   - Turns: Number of turns processed.
type SessionState struct {
	SessionID         string       `json:"session_id"`
	Language          Language     `json:"language"`
	Cursor            Cursor       `json:"cursor"`
	Answers           AnswerRecord `json:"answers"`
	ClarificationMode bool         `json:"clarification_mode"`
	CreatedAt         time.Time    `json:"created_at"`
	LastActive        time.Time    `json:"last_active"`
	Turns             int          `json:"turns"`
}

// NewSessionState creates a session positioned at the first parameter.
func NewSessionState(id string, lang Language, now time.Time) SessionState {
	return SessionState{
		SessionID:  id,
		Language:   lang,
		Cursor:     StartCursor(),
		CreatedAt:  now,
		LastActive: now,
	}
}

// IsComplete reports whether every parameter has been passed.
func (s SessionState) IsComplete() bool {
	return s.Cursor.Complete
}

// Clone returns a deep copy of the session.
func (s SessionState) Clone() SessionState {
	out := s
	out.Answers = s.Answers.Clone()
	return out
}

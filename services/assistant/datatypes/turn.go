// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package datatypes

import "time"

// Outcome is the explicit discriminant of a turn result.
type Outcome string

const (
	// OutcomeAutoFilled means a value was recorded and the cursor advanced.
	OutcomeAutoFilled Outcome = "auto_filled"

	// OutcomeClarification means confidence was insufficient; the cursor
	// stayed and clarification text is returned.
	OutcomeClarification Outcome = "clarification"

	// OutcomeSkipped means no extractor exists for the parameter and the
	// cursor advanced without recording a value.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeComplete means the questionnaire has finished.
	OutcomeComplete Outcome = "complete"

	// OutcomeNoInput means the turn carried no usable input and was
	// aborted before any decision. The session is untouched.
	OutcomeNoInput Outcome = "no_input"

	// OutcomeStarted is used for the greeting returned at session start.
	OutcomeStarted Outcome = "started"
)

// AuditRecord captures every confidence signal produced during a turn.
//
// # Description
//
// One record is produced per turn regardless of the path taken. Signals that
// were not computed stay at 0 and RetrievedContext is never nil, so records
// from different paths are directly comparable.
type AuditRecord struct {
	TranscriptionConfidence float64  `json:"asr_conf"`
	ValidatorConfidence     float64  `json:"validator_conf"`
	GenerationConfidence    float64  `json:"llm_conf"`
	CombinedConfidence      float64  `json:"combined_conf"`
	TranscriptText          *string  `json:"asr_text"`
	RetrievedContext        []string `json:"retrieved_chunks"`
}

// NewAuditRecord returns a record with every field at its default.
func NewAuditRecord() AuditRecord {
	return AuditRecord{RetrievedContext: []string{}}
}

// TurnResult describes the outcome of one questionnaire turn.
//
// # Fields
//
//   - SessionID: Session the turn belongs to.
//   - Outcome: Which path the turn took.
//   - Parameter: Current (held) or next parameter. For a completed session
//     this is the last parameter of the order.
//   - Question: Prompt for the next parameter, when advancing.
//   - HelperText: Clarification or apology text.
//   - Answers: Snapshot of the answer record after the turn.
//   - IsComplete: True once the questionnaire finished.
//   - StepNumber/TotalSteps: 1-based progress counters.
//   - ClarificationMode: Clarification flag as reported to the client.
//   - AudioURL: Optional synthesized audio for the emitted text.
//   - Audit: Per-turn diagnostic signals.
type TurnResult struct {
	SessionID         string       `json:"session_id"`
	Outcome           Outcome      `json:"outcome"`
	Parameter         Parameter    `json:"parameter"`
	Question          *string      `json:"question"`
	HelperText        *string      `json:"helper_text"`
	Answers           AnswerRecord `json:"answers"`
	IsComplete        bool         `json:"is_complete"`
	StepNumber        int          `json:"step_number"`
	TotalSteps        int          `json:"total_steps"`
	ClarificationMode bool         `json:"helper_mode"`
	AudioURL          *string      `json:"audio_url"`
	Audit             AuditRecord  `json:"audit"`
}

// AuditEntry is an AuditRecord together with the turn it describes. It is
// what audit sinks persist. TurnIndex counts turns from 1; a no-input
// attempt, which leaves the session untouched, shares its index with the
// turn that eventually succeeds.
type AuditEntry struct {
	SessionID string      `json:"session_id"`
	TurnIndex int         `json:"turn_index"`
	Parameter Parameter   `json:"parameter"`
	Language  Language    `json:"language"`
	Outcome   Outcome     `json:"outcome"`
	Record    AuditRecord `json:"record"`
	At        time.Time   `json:"at"`
}

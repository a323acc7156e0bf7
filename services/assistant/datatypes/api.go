// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxUserTextBytes bounds the typed answer of a single turn.
	MaxUserTextBytes = 4 * 1024

	// MaxAudioBytes bounds an uploaded audio clip.
	MaxAudioBytes = 10 * 1024 * 1024
)

// apiValidate is shared by the request types in this file.
var apiValidate = validator.New()

// StartSessionRequest is the body of POST /api/v1/session/start.
type StartSessionRequest struct {
	Language string `json:"language" validate:"omitempty,oneof=en hi"`
}

// Validate checks the request against its struct tags.
func (r *StartSessionRequest) Validate() error {
	return apiValidate.Struct(r)
}

// NextMessageRequest is the multipart form of POST /api/v1/session/next.
//
// # Description
//
// UserText and the audio file are both optional; the questionnaire engine
// decides whether the turn carries usable input. Only the session id is
// required at the transport layer.
type NextMessageRequest struct {
	SessionID string `form:"session_id" validate:"required,max=128"`
	UserText  string `form:"user_text"`
}

// Validate checks the request against its struct tags. UserText is bounded
// in bytes, not runes, so Devanagari answers get the same memory budget.
func (r *NextMessageRequest) Validate() error {
	if len(r.UserText) > MaxUserTextBytes {
		return fmt.Errorf("user_text exceeds %d bytes", MaxUserTextBytes)
	}
	return apiValidate.Struct(r)
}

// SessionView is the read-only representation returned by GET /session/:id.
type SessionView struct {
	SessionID         string       `json:"session_id"`
	Language          Language     `json:"language"`
	Parameter         Parameter    `json:"parameter"`
	IsComplete        bool         `json:"is_complete"`
	StepNumber        int          `json:"step_number"`
	TotalSteps        int          `json:"total_steps"`
	ClarificationMode bool         `json:"helper_mode"`
	Answers           AnswerRecord `json:"answers"`
}

// NewSessionView builds the API view of a session snapshot.
func NewSessionView(s SessionState) SessionView {
	step := s.Cursor.Parameter.StepNumber()
	if s.Cursor.Complete {
		step = TotalSteps
	}
	return SessionView{
		SessionID:         s.SessionID,
		Language:          s.Language,
		Parameter:         s.Cursor.Parameter,
		IsComplete:        s.Cursor.Complete,
		StepNumber:        step,
		TotalSteps:        TotalSteps,
		ClarificationMode: s.ClarificationMode,
		Answers:           s.Answers.Clone(),
	}
}

// ErrorResponse is the JSON error envelope used by every handler.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"context"
	"time"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Transcript is the result of a speech-to-text call.
type Transcript struct {
	Text       string
	Confidence float64
}

// Transcriber converts recorded audio into text.
//
// # Description
//
// Implementations call a speech-to-text backend. Errors are absorbed by the
// Normalizer: a failed transcription degrades the transcription confidence to
// 0 and never aborts a turn.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use across sessions.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, lang datatypes.Language) (Transcript, error)
}

// Validator is a pure, deterministic extractor for one parameter.
type Validator interface {
	Validate(utterance string, lang datatypes.Language) datatypes.ValidationResult
}

// ValidatorFunc adapts a plain function to Validator.
type ValidatorFunc func(utterance string, lang datatypes.Language) datatypes.ValidationResult

// Validate implements Validator.
func (f ValidatorFunc) Validate(utterance string, lang datatypes.Language) datatypes.ValidationResult {
	return f(utterance, lang)
}

// ValidatorSet resolves the extractor registered for a parameter.
//
// # Description
//
// A missing registration is not an error: the engine auto-skips the
// parameter without computing any confidence.
type ValidatorSet interface {
	Lookup(p datatypes.Parameter) (Validator, bool)
}

// Retriever fetches reference snippets for the clarification path.
//
// # Description
//
// IsReady reports whether the underlying index has been built. Retrieve
// returns at most k ranked snippets. The Clarifier treats an unready
// retriever, an error, or a timeout as an empty context.
type Retriever interface {
	IsReady(ctx context.Context) bool
	Retrieve(ctx context.Context, query string, p datatypes.Parameter, lang datatypes.Language, k int) ([]string, error)
}

// ExplainRequest carries the inputs of a clarification generation.
type ExplainRequest struct {
	Parameter datatypes.Parameter
	Language  datatypes.Language
	Utterance string
	Chunks    []string
}

// Explanation is the tagged result of the generative explainer.
//
// # Fields
//
//   - Text: Text to show the user. Always usable.
//   - Fallback: True when Text is a canned fallback because the backend
//     failed.
//   - Reason: Short machine-readable cause when Fallback is set.
type Explanation struct {
	Text     string
	Fallback bool
	Reason   string
}

// Explainer generates clarification text grounded on retrieved snippets.
//
// # Description
//
// Explain never fails: any backend error is converted into a localized
// fallback Explanation at the implementation boundary.
type Explainer interface {
	Explain(ctx context.Context, req ExplainRequest) Explanation
}

// Synthesizer turns text into audio and resolves audio handles to URLs.
//
// # Description
//
// Failures degrade to an absent audio reference in the turn result.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, lang datatypes.Language) (string, error)
	Resolve(handle string) (string, error)
}

// Redactor strips sensitive content from utterances before they are sent to
// external services.
type Redactor interface {
	Redact(text string) string
}

// AuditSink persists or forwards audit entries.
type AuditSink interface {
	Record(ctx context.Context, entry datatypes.AuditEntry) error
}

// Observer receives turn-level telemetry. A nil Observer is valid.
type Observer interface {
	ObserveTurn(outcome datatypes.Outcome, audit datatypes.AuditRecord, elapsed time.Duration)
	ObserveCollaboratorFailure(collaborator string)
	ObserveGeneration(fallback bool)
}

// =============================================================================
// Map-backed ValidatorSet
// =============================================================================

// ValidatorMap is a ValidatorSet backed by a map.
type ValidatorMap map[datatypes.Parameter]Validator

// Lookup implements ValidatorSet.
func (m ValidatorMap) Lookup(p datatypes.Parameter) (Validator, bool) {
	v, ok := m[p]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// ErrNoInput is returned when a turn carries neither text nor a usable
// transcript.
var ErrNoInput = errors.New("no input provided")

// Utterance is the normalized input of one turn.
//
// # Fields
//
//   - Text: The candidate utterance (trimmed).
//   - TranscriptionConfidence: In [0,1]; 0 when no audio or on failure.
//   - Transcript: Raw transcript when transcription succeeded.
type Utterance struct {
	Text                    string
	TranscriptionConfidence float64
	Transcript              *string
}

// Normalizer resolves typed text and recorded audio into one utterance.
type Normalizer struct {
	transcriber Transcriber
	timeout     time.Duration
	observer    Observer
}

// NewNormalizer creates a Normalizer. A nil transcriber means audio input is
// ignored; a zero timeout means no per-call deadline is applied.
func NewNormalizer(t Transcriber, timeout time.Duration, obs Observer) *Normalizer {
	return &Normalizer{transcriber: t, timeout: timeout, observer: obs}
}

// Normalize produces the utterance for a turn.
//
// # Description
//
// When audio is present the Transcriber is called under its own timeout.
// Typed text always wins over the transcript; the transcript is only used
// when text is blank. A transcription error is logged and degrades the
// transcription confidence to 0.
//
// # Outputs
//
//   - Utterance: The normalized input.
//   - error: ErrNoInput when nothing usable remains. No other error is
//     returned.
func (n *Normalizer) Normalize(ctx context.Context, text string, audio []byte, lang datatypes.Language) (Utterance, error) {
	out := Utterance{Text: strings.TrimSpace(text)}

	if len(audio) > 0 && n.transcriber != nil {
		tr, err := n.transcribe(ctx, audio, lang)
		if err != nil {
			slog.Warn("transcription failed, continuing without transcript",
				"error", err, "language", lang, "audio_bytes", len(audio))
			if n.observer != nil {
				n.observer.ObserveCollaboratorFailure("transcription")
			}
		} else {
			out.TranscriptionConfidence = unit(tr.Confidence)
			transcript := tr.Text
			out.Transcript = &transcript
			if out.Text == "" {
				out.Text = strings.TrimSpace(tr.Text)
			}
		}
	}

	if out.Text == "" {
		return out, ErrNoInput
	}
	return out, nil
}

func (n *Normalizer) transcribe(ctx context.Context, audio []byte, lang datatypes.Language) (Transcript, error) {
	ctx, span := tracer.Start(ctx, "questionnaire.Transcribe")
	defer span.End()
	span.SetAttributes(attribute.Int("audio.bytes", len(audio)))

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	tr, err := n.transcriber.Transcribe(ctx, audio, lang)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transcription failed")
		return Transcript{}, err
	}
	span.SetAttributes(attribute.Float64("transcription.confidence", tr.Confidence))
	return tr, nil
}

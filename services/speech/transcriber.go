// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

// audioAPI is the subset of *openai.Client used by this package.
type audioAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

var _ audioAPI = (*openai.Client)(nil)

// unsegmentedConfidence is reported when the API returns text without
// segment statistics.
const unsegmentedConfidence = 0.5

// WhisperTranscriber implements questionnaire.Transcriber.
type WhisperTranscriber struct {
	api   audioAPI
	model string
}

var _ questionnaire.Transcriber = (*WhisperTranscriber)(nil)

// NewWhisperTranscriber creates a transcriber. An empty model selects
// whisper-1.
func NewWhisperTranscriber(client *openai.Client, model string) *WhisperTranscriber {
	return newWhisperTranscriber(client, model)
}

func newWhisperTranscriber(api audioAPI, model string) *WhisperTranscriber {
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{api: api, model: model}
}

// Transcribe implements questionnaire.Transcriber.
//
// # Description
//
// Confidence is the duration-agnostic mean over segments of
// exp(avg_logprob) * (1 - no_speech_prob), clamped to [0, 1].
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, lang datatypes.Language) (questionnaire.Transcript, error) {
	resp, err := w.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: "utterance.webm",
		Reader:   bytes.NewReader(audio),
		Language: lang.String(),
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return questionnaire.Transcript{}, fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return questionnaire.Transcript{}, nil
	}
	if len(resp.Segments) == 0 {
		return questionnaire.Transcript{Text: text, Confidence: unsegmentedConfidence}, nil
	}
	var sum float64
	for _, seg := range resp.Segments {
		sum += math.Exp(seg.AvgLogprob) * (1 - seg.NoSpeechProb)
	}
	conf := sum / float64(len(resp.Segments))
	return questionnaire.Transcript{Text: text, Confidence: math.Max(0, math.Min(1, conf))}, nil
}

// readAll drains and closes a speech response.
func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

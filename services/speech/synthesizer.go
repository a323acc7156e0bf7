// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/sync/singleflight"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

const (
	// maxCachedClips bounds the text-to-handle cache. When full it is reset.
	maxCachedClips = 512

	// synthesisTimeout bounds a shared API call, which outlives the caller
	// that started it.
	synthesisTimeout = 30 * time.Second
)

// TTSSynthesizer implements questionnaire.Synthesizer with the OpenAI speech
// endpoint.
//
// # Description
//
// Question prompts repeat across sessions, so clips are cached by
// (language, text). Concurrent requests for the same text share one API
// call through a singleflight group. The shared call runs detached from
// any one caller's context, so a caller that gives up does not fail the
// others waiting on the same clip.
//
// # Thread Safety
//
// Safe for concurrent use.
type TTSSynthesizer struct {
	api     audioAPI
	store   *FileStore
	model   openai.SpeechModel
	voice   openai.SpeechVoice
	timeout time.Duration

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]string
}

var _ questionnaire.Synthesizer = (*TTSSynthesizer)(nil)

// NewTTSSynthesizer creates a synthesizer storing clips in store. Empty model
// and voice select tts-1 and alloy.
func NewTTSSynthesizer(client *openai.Client, store *FileStore, model, voice string) *TTSSynthesizer {
	return newTTSSynthesizer(client, store, model, voice)
}

func newTTSSynthesizer(api audioAPI, store *FileStore, model, voice string) *TTSSynthesizer {
	m := openai.SpeechModel(model)
	if m == "" {
		m = openai.TTSModel1
	}
	v := openai.SpeechVoice(voice)
	if v == "" {
		v = openai.VoiceAlloy
	}
	return &TTSSynthesizer{
		api:     api,
		store:   store,
		model:   m,
		voice:   v,
		timeout: synthesisTimeout,
		cache:   make(map[string]string),
	}
}

// Synthesize implements questionnaire.Synthesizer and returns a handle.
func (t *TTSSynthesizer) Synthesize(ctx context.Context, text string, lang datatypes.Language) (string, error) {
	key := cacheKey(text, lang)

	t.mu.Lock()
	handle, ok := t.cache[key]
	t.mu.Unlock()
	if ok {
		return handle, nil
	}

	shared := context.WithoutCancel(ctx)
	ch := t.group.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(shared, t.timeout)
		defer cancel()
		raw, err := t.api.CreateSpeech(callCtx, openai.CreateSpeechRequest{
			Model:          t.model,
			Input:          text,
			Voice:          t.voice,
			ResponseFormat: openai.SpeechResponseFormatMp3,
		})
		if err != nil {
			return "", fmt.Errorf("speech synthesis failed: %w", err)
		}
		data, err := readAll(raw)
		if err != nil {
			return "", fmt.Errorf("read synthesized audio: %w", err)
		}
		h, err := t.store.Save(data)
		if err != nil {
			return "", err
		}

		t.mu.Lock()
		if len(t.cache) >= maxCachedClips {
			t.cache = make(map[string]string)
		}
		t.cache[key] = h
		t.mu.Unlock()
		return h, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Resolve implements questionnaire.Synthesizer.
func (t *TTSSynthesizer) Resolve(handle string) (string, error) {
	return t.store.URL(handle)
}

func cacheKey(text string, lang datatypes.Language) string {
	sum := sha256.Sum256([]byte(lang.String() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

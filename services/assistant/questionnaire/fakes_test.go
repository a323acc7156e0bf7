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
	"strings"
	"sync"
	"time"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// ============================================================================
// Test Doubles
// ============================================================================

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  int
	result Transcript
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte, _ datatypes.Language) (Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeRetriever struct {
	mu         sync.Mutex
	ready      bool
	chunks     []string
	err        error
	readyCalls int
	calls      int
	lastQuery  string
	lastK      int
}

func (f *fakeRetriever) IsReady(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readyCalls++
	return f.ready
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ datatypes.Parameter, _ datatypes.Language, k int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastQuery = query
	f.lastK = k
	return f.chunks, f.err
}

type fakeExplainer struct {
	mu      sync.Mutex
	calls   int
	text    string
	fb      bool
	lastReq ExplainRequest
}

func (f *fakeExplainer) Explain(_ context.Context, req ExplainRequest) Explanation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastReq = req
	return Explanation{Text: f.text, Fallback: f.fb}
}

type fakeSynthesizer struct {
	mu    sync.Mutex
	calls int
	texts []string
	err   error
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string, _ datatypes.Language) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.err != nil {
		return "", f.err
	}
	return "clip", nil
}

func (f *fakeSynthesizer) Resolve(handle string) (string, error) {
	return "/api/v1/audio/" + handle + ".mp3", nil
}

type memorySink struct {
	mu      sync.Mutex
	entries []datatypes.AuditEntry
	err     error
}

func (m *memorySink) Record(_ context.Context, e datatypes.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

type countingObserver struct {
	turns       map[datatypes.Outcome]int
	failures    map[string]int
	generations int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{turns: map[datatypes.Outcome]int{}, failures: map[string]int{}}
}

func (o *countingObserver) ObserveTurn(outcome datatypes.Outcome, _ datatypes.AuditRecord, _ time.Duration) {
	o.turns[outcome]++
}

func (o *countingObserver) ObserveCollaboratorFailure(c string) { o.failures[c]++ }

func (o *countingObserver) ObserveGeneration(bool) { o.generations++ }

// keywordValidator returns a confident value when the utterance contains one
// of the keywords, no value otherwise.
func keywordValidator(keywords ...string) Validator {
	return ValidatorFunc(func(u string, _ datatypes.Language) datatypes.ValidationResult {
		lower := strings.ToLower(u)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return datatypes.ValidationResult{Value: k, Confident: true}
			}
		}
		return datatypes.ValidationResult{}
	})
}

// acceptAll records the utterance itself as a confident value.
var acceptAll = ValidatorFunc(func(u string, _ datatypes.Language) datatypes.ValidationResult {
	return datatypes.ValidationResult{Value: u, Confident: true}
})

func allValidators() ValidatorMap {
	m := ValidatorMap{}
	for _, p := range datatypes.ParameterOrder() {
		m[p] = acceptAll
	}
	return m
}

var errBackend = errors.New("backend unavailable")

type harness struct {
	engine      *Engine
	transcriber *fakeTranscriber
	retriever   *fakeRetriever
	explainer   *fakeExplainer
	synth       *fakeSynthesizer
	sink        *memorySink
	observer    *countingObserver
}

var fixedNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newHarness(validators ValidatorSet) *harness {
	h := &harness{
		transcriber: &fakeTranscriber{},
		retriever:   &fakeRetriever{ready: true},
		explainer:   &fakeExplainer{text: "Take a handful of soil and compare it in daylight."},
		synth:       &fakeSynthesizer{},
		sink:        &memorySink{},
		observer:    newCountingObserver(),
	}
	eng, err := NewEngine(DefaultEngineConfig(), Dependencies{
		Validators:  validators,
		Transcriber: h.transcriber,
		Retriever:   h.retriever,
		Explainer:   h.explainer,
		Synthesizer: h.synth,
		Observer:    h.observer,
		Audit:       NewAuditRecorder(h.sink),
		Now:         func() time.Time { return fixedNow },
	})
	if err != nil {
		panic(err)
	}
	h.engine = eng
	return h
}

func newSession(lang datatypes.Language) datatypes.SessionState {
	return datatypes.NewSessionState("sess-1", lang, fixedNow.Add(-time.Minute))
}

func sessionAt(p datatypes.Parameter) datatypes.SessionState {
	s := newSession(datatypes.LangEnglish)
	s.Cursor = datatypes.Cursor{Parameter: p}
	return s
}

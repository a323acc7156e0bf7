// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// ============================================================================
// Decision policy
// ============================================================================

func TestHandleTurn_ConfidentAnswerAutoFillsWithoutGeneration(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black", "red")})
	state := newSession(datatypes.LangEnglish)

	res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "black"})

	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.InDelta(t, 0.95, res.Audit.ValidatorConfidence, 1e-9)
	assert.Equal(t, 0.0, res.Audit.TranscriptionConfidence)
	assert.Equal(t, 0.0, res.Audit.GenerationConfidence)
	assert.InDelta(t, 0.57, res.Audit.CombinedConfidence, 1e-9)

	assert.Equal(t, datatypes.ParamMoisture, res.Parameter)
	assert.Equal(t, datatypes.ParamMoisture, next.Cursor.Parameter)
	require.NotNil(t, next.Answers.Color)
	assert.Equal(t, "black", *next.Answers.Color)
	assert.False(t, next.ClarificationMode)
	assert.Equal(t, 2, res.StepNumber)
	require.NotNil(t, res.Question)
	assert.Equal(t, Question(datatypes.ParamMoisture, datatypes.LangEnglish), *res.Question)
	require.NotNil(t, res.AudioURL)

	assert.Equal(t, 0, h.explainer.calls, "explainer must not be called")
	assert.Equal(t, 0, h.retriever.calls)
	assert.Equal(t, 0, h.transcriber.calls)

	// input snapshot untouched
	assert.Nil(t, state.Answers.Color)
	assert.Equal(t, datatypes.ParamColor, state.Cursor.Parameter)
}

func TestHandleTurn_UnknownAnswerEntersClarification(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	h.retriever.chunks = []string{"chunk one", "chunk two", "chunk three", "chunk four"}
	h.explainer.text = strings.Repeat("Rub moist soil between your fingers and compare. ", 3)

	state := newSession(datatypes.LangEnglish)
	res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "I don't know"})

	assert.Equal(t, datatypes.OutcomeClarification, res.Outcome)
	assert.Equal(t, 1, h.explainer.calls)
	assert.InDelta(t, 0.20, res.Audit.ValidatorConfidence, 1e-9)
	assert.InDelta(t, 0.85, res.Audit.GenerationConfidence, 1e-9)
	assert.InDelta(t, 0.29, res.Audit.CombinedConfidence, 1e-9)

	assert.True(t, res.ClarificationMode)
	assert.True(t, next.ClarificationMode)
	assert.Equal(t, datatypes.ParamColor, next.Cursor.Parameter)
	assert.Equal(t, datatypes.ParamColor, res.Parameter)
	assert.Nil(t, res.Question)
	require.NotNil(t, res.HelperText)
	assert.Equal(t, h.explainer.text, *res.HelperText)
	assert.Equal(t, []string{"chunk one", "chunk two"}, res.Audit.RetrievedContext)
	assert.Equal(t, 4, len(h.explainer.lastReq.Chunks), "explainer receives the full fetched context")
	assert.Equal(t, 8, h.retriever.lastK)
	assert.Equal(t, "How to identify soil color at home step by step I don't know", h.retriever.lastQuery)
	assert.Equal(t, 0, next.Answers.Filled())
}

func TestHandleTurn_TentativeValueAutoFillsAfterGeneration(t *testing.T) {
	tentative := ValidatorFunc(func(string, datatypes.Language) datatypes.ValidationResult {
		return datatypes.ValidationResult{Value: "moist"}
	})
	h := newHarness(ValidatorMap{datatypes.ParamColor: tentative})

	res, next := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "kinda moist"})

	// 0.60*0.80 = 0.48 misses the gate; no chunks and a medium answer
	// give g = 0.50, so 0.48 + 0.10 = 0.58.
	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.Equal(t, 1, h.explainer.calls)
	assert.InDelta(t, 0.58, res.Audit.CombinedConfidence, 1e-9)
	assert.Equal(t, datatypes.ParamMoisture, next.Cursor.Parameter)
}

func TestHandleTurn_HighConfidenceWithoutValueNeverAutoFills(t *testing.T) {
	noValue := ValidatorFunc(func(string, datatypes.Language) datatypes.ValidationResult {
		return datatypes.ValidationResult{Confident: true}
	})
	h := newHarness(ValidatorMap{datatypes.ParamColor: noValue})
	h.engine.cfg.Policy = PolicyConfig{PreliminaryThreshold: 0, FinalThreshold: 0}

	res, next := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "something"})

	assert.GreaterOrEqual(t, res.Audit.CombinedConfidence, 0.0)
	assert.Equal(t, datatypes.OutcomeClarification, res.Outcome)
	assert.Equal(t, datatypes.ParamColor, next.Cursor.Parameter)
	assert.Nil(t, next.Answers.Color)
}

func TestHandleTurn_ThresholdsAreIndependent(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	h.engine.cfg.Policy = PolicyConfig{PreliminaryThreshold: 0.90, FinalThreshold: 0.50}

	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "black"})

	// prelim 0.57 misses 0.90; final 0.57+0.20*g clears 0.50.
	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.Equal(t, 1, h.explainer.calls)
}

// ============================================================================
// Progression
// ============================================================================

func TestHandleTurn_LastParameterCompletes(t *testing.T) {
	h := newHarness(allValidators())
	state := sessionAt(datatypes.ParamFertilizerUsed)
	state.ClarificationMode = true

	res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "urea"})

	assert.Equal(t, datatypes.OutcomeComplete, res.Outcome)
	assert.True(t, res.IsComplete)
	assert.Equal(t, 8, res.StepNumber)
	assert.Equal(t, 8, res.TotalSteps)
	assert.False(t, res.ClarificationMode)
	assert.Equal(t, datatypes.ParamFertilizerUsed, res.Parameter)
	assert.Nil(t, res.Question)
	assert.Nil(t, res.AudioURL, "completion produces no audio")
	assert.True(t, next.Cursor.Complete)
	require.NotNil(t, next.Answers.FertilizerUsed)
	assert.Equal(t, "urea", *next.Answers.FertilizerUsed)
}

func TestHandleTurn_CompletedSessionIsInert(t *testing.T) {
	h := newHarness(allValidators())
	state := sessionAt(datatypes.ParamFertilizerUsed)
	state.Cursor = state.Cursor.Advance()

	res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "more"})

	assert.Equal(t, datatypes.OutcomeComplete, res.Outcome)
	assert.Equal(t, state, next)
	assert.Equal(t, 0, h.synth.calls)
	assert.Empty(t, h.sink.entries)
}

func TestHandleTurn_UnregisteredParameterSkipsAudioOnlyTurn(t *testing.T) {
	validators := allValidators()
	delete(validators, datatypes.ParamSmell)
	h := newHarness(validators)
	h.transcriber.err = errBackend

	res, next := h.engine.HandleTurn(context.Background(), sessionAt(datatypes.ParamSmell), TurnInput{Audio: []byte{1, 2, 3}})

	// The skip is decided before the audio is transcribed, so an audio-only
	// turn never reaches the no-input path.
	assert.Equal(t, datatypes.OutcomeSkipped, res.Outcome)
	assert.Equal(t, datatypes.ParamPH, next.Cursor.Parameter)
	assert.Equal(t, 1, next.Turns)
	assert.Equal(t, 0, h.transcriber.calls)
	assert.Equal(t, 0, h.observer.turns[datatypes.OutcomeNoInput])
	require.Len(t, h.sink.entries, 1)
	assert.Equal(t, datatypes.OutcomeSkipped, h.sink.entries[0].Outcome)
	assert.Equal(t, datatypes.ParamSmell, h.sink.entries[0].Parameter)
}

func TestHandleTurn_UnregisteredParameterIsSkipped(t *testing.T) {
	validators := allValidators()
	delete(validators, datatypes.ParamSmell)
	h := newHarness(validators)

	res, next := h.engine.HandleTurn(context.Background(), sessionAt(datatypes.ParamSmell), TurnInput{Text: "earthy", Audio: []byte{1, 2}})

	assert.Equal(t, datatypes.OutcomeSkipped, res.Outcome)
	assert.Equal(t, datatypes.ParamPH, next.Cursor.Parameter)
	assert.Nil(t, next.Answers.Smell)
	assert.Equal(t, datatypes.NewAuditRecord(), res.Audit)
	assert.Nil(t, res.AudioURL)
	require.NotNil(t, res.Question)

	assert.Equal(t, 0, h.transcriber.calls)
	assert.Equal(t, 0, h.retriever.readyCalls)
	assert.Equal(t, 0, h.explainer.calls)
	assert.Equal(t, 0, h.synth.calls)
}

func TestHandleTurn_SkippingLastParameterCompletes(t *testing.T) {
	validators := allValidators()
	delete(validators, datatypes.ParamFertilizerUsed)
	h := newHarness(validators)

	res, next := h.engine.HandleTurn(context.Background(), sessionAt(datatypes.ParamFertilizerUsed), TurnInput{})

	assert.Equal(t, datatypes.OutcomeComplete, res.Outcome)
	assert.True(t, next.Cursor.Complete)
	assert.Nil(t, next.Answers.FertilizerUsed)
}

func TestHandleTurn_RoundTripIsLanguageIndependent(t *testing.T) {
	run := func(lang datatypes.Language) ([]datatypes.Parameter, []string) {
		h := newHarness(allValidators())
		state := newSession(lang)
		var cursors []datatypes.Parameter
		var texts []string
		for i := 0; i < datatypes.TotalSteps; i++ {
			res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "answer"})
			require.Contains(t, []datatypes.Outcome{datatypes.OutcomeAutoFilled, datatypes.OutcomeComplete}, res.Outcome)
			assert.GreaterOrEqual(t, next.Cursor.Position(), state.Cursor.Position())
			cursors = append(cursors, res.Parameter)
			if res.Question != nil {
				texts = append(texts, *res.Question)
			}
			state = next
		}
		assert.True(t, state.IsComplete())
		assert.Equal(t, datatypes.TotalSteps, state.Answers.Filled())
		assert.Equal(t, 0, h.explainer.calls)
		return cursors, texts
	}

	enCursors, enTexts := run(datatypes.LangEnglish)
	hiCursors, hiTexts := run(datatypes.LangHindi)

	assert.Equal(t, enCursors, hiCursors)
	assert.NotEqual(t, enTexts, hiTexts)
	assert.Equal(t, datatypes.ParamFertilizerUsed, enCursors[len(enCursors)-1])
}

// ============================================================================
// Input handling
// ============================================================================

func TestHandleTurn_NoInputLeavesSessionUntouched(t *testing.T) {
	h := newHarness(allValidators())
	state := sessionAt(datatypes.ParamMoisture)

	res, next := h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "   "})

	assert.Equal(t, datatypes.OutcomeNoInput, res.Outcome)
	assert.Equal(t, state, next)
	assert.True(t, res.ClarificationMode)
	require.NotNil(t, res.HelperText)
	assert.Equal(t, "Sorry, no input provided. Please try again.", *res.HelperText)
	assert.NotNil(t, res.AudioURL)
	assert.Equal(t, 0, h.explainer.calls)
}

func TestHandleTurn_NoInputHindiApology(t *testing.T) {
	h := newHarness(allValidators())
	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangHindi), TurnInput{})

	require.NotNil(t, res.HelperText)
	assert.True(t, strings.HasPrefix(*res.HelperText, "माफ करें, "))
	assert.True(t, strings.HasSuffix(*res.HelperText, "कृपया पुनः प्रयास करें।"))
}

func TestHandleTurn_AudioTranscriptUsedWhenNoText(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("red")})
	h.transcriber.result = Transcript{Text: "it is red", Confidence: 0.9}

	res, next := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Audio: []byte("wav")})

	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.InDelta(t, 0.9, res.Audit.TranscriptionConfidence, 1e-9)
	assert.InDelta(t, 0.20*0.9+0.60*0.95, res.Audit.CombinedConfidence, 1e-9)
	require.NotNil(t, res.Audit.TranscriptText)
	assert.Equal(t, "it is red", *res.Audit.TranscriptText)
	assert.Equal(t, "red", *next.Answers.Color)
}

func TestHandleTurn_TranscriptionFailureIsNotFatal(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	h.transcriber.err = errBackend

	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "black", Audio: []byte("wav")})

	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.Equal(t, 0.0, res.Audit.TranscriptionConfidence)
	assert.Nil(t, res.Audit.TranscriptText)
	assert.Equal(t, 1, h.observer.failures["transcription"])
}

func TestHandleTurn_TranscriptionFailureWithoutTextIsNoInput(t *testing.T) {
	h := newHarness(allValidators())
	h.transcriber.err = errBackend

	res, next := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Audio: []byte("wav")})

	assert.Equal(t, datatypes.OutcomeNoInput, res.Outcome)
	assert.Equal(t, datatypes.ParamColor, next.Cursor.Parameter)
}

// ============================================================================
// Degraded collaborators
// ============================================================================

func TestHandleTurn_UnreadyRetrieverGivesEmptyContext(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	h.retriever.ready = false

	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "no idea"})

	assert.Equal(t, datatypes.OutcomeClarification, res.Outcome)
	assert.Equal(t, 0, h.retriever.calls)
	assert.NotNil(t, res.Audit.RetrievedContext)
	assert.Empty(t, res.Audit.RetrievedContext)
	assert.Empty(t, h.explainer.lastReq.Chunks)
}

func TestHandleTurn_SynthesisFailureOmitsAudio(t *testing.T) {
	h := newHarness(allValidators())
	h.synth.err = errBackend

	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "black"})

	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.Nil(t, res.AudioURL)
	assert.Equal(t, 1, h.observer.failures["synthesis"])
}

func TestHandleTurn_EmptyExplanationUsesFallback(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	h.explainer.text = ""

	res, _ := h.engine.HandleTurn(context.Background(), newSession(datatypes.LangEnglish), TurnInput{Text: "hmm"})

	require.NotNil(t, res.HelperText)
	assert.Equal(t, FallbackClarification(datatypes.ParamColor, datatypes.LangEnglish), *res.HelperText)
}

// ============================================================================
// Audit
// ============================================================================

func TestHandleTurn_AuditPublishedForEveryPath(t *testing.T) {
	validators := ValidatorMap{
		datatypes.ParamColor:    keywordValidator("black"),
		datatypes.ParamMoisture: keywordValidator("dry"),
	}
	h := newHarness(validators)
	state := newSession(datatypes.LangEnglish)

	_, state = h.engine.HandleTurn(context.Background(), state, TurnInput{})             // no input
	_, state = h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "what"}) // clarification
	_, state = h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "black"}) // auto-fill
	_, _ = h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "dry"})       // auto-fill

	require.Len(t, h.sink.entries, 4)
	outcomes := []datatypes.Outcome{}
	for _, e := range h.sink.entries {
		outcomes = append(outcomes, e.Outcome)
		assert.NotNil(t, e.Record.RetrievedContext)
		assert.Equal(t, "sess-1", e.SessionID)
	}
	assert.Equal(t, []datatypes.Outcome{
		datatypes.OutcomeNoInput,
		datatypes.OutcomeClarification,
		datatypes.OutcomeAutoFilled,
		datatypes.OutcomeAutoFilled,
	}, outcomes)
	assert.Equal(t, datatypes.ParamColor, h.sink.entries[2].Parameter)
	assert.Equal(t, datatypes.ParamMoisture, h.sink.entries[3].Parameter)
	assert.Equal(t, 1, h.observer.turns[datatypes.OutcomeNoInput])

	indexes := []int{}
	for _, e := range h.sink.entries {
		indexes = append(indexes, e.TurnIndex)
	}
	assert.Equal(t, []int{1, 1, 2, 3}, indexes)
}

func TestHandleTurn_NoInputAuditCarriesAttemptedTurn(t *testing.T) {
	h := newHarness(ValidatorMap{datatypes.ParamColor: keywordValidator("black")})
	state := newSession(datatypes.LangEnglish)

	_, state = h.engine.HandleTurn(context.Background(), state, TurnInput{Text: "what"})
	require.Equal(t, 1, state.Turns)
	_, after := h.engine.HandleTurn(context.Background(), state, TurnInput{})

	assert.Equal(t, state, after, "no-input leaves the session untouched")
	require.Len(t, h.sink.entries, 2)
	assert.Equal(t, datatypes.OutcomeClarification, h.sink.entries[0].Outcome)
	assert.Equal(t, 1, h.sink.entries[0].TurnIndex)
	assert.Equal(t, datatypes.OutcomeNoInput, h.sink.entries[1].Outcome)
	assert.Equal(t, 2, h.sink.entries[1].TurnIndex)
}

func TestAuditRecorder_SinkErrorIsIgnored(t *testing.T) {
	failing := &memorySink{err: errBackend}
	ok := &memorySink{}
	r := NewAuditRecorder(failing, nil, ok)

	r.Publish(context.Background(), datatypes.AuditEntry{SessionID: "s"})

	assert.Len(t, failing.entries, 1)
	require.Len(t, ok.entries, 1)
	assert.NotNil(t, ok.entries[0].Record.RetrievedContext)
}

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(DefaultEngineConfig(), Dependencies{})
	assert.Error(t, err)

	cfg := DefaultEngineConfig()
	cfg.Policy.FinalThreshold = 1.5
	_, err = NewEngine(cfg, Dependencies{Validators: allValidators()})
	assert.Error(t, err)
}

func TestStart_ReturnsFirstQuestion(t *testing.T) {
	h := newHarness(allValidators())
	res := h.engine.Start(context.Background(), newSession(datatypes.LangHindi))

	assert.Equal(t, datatypes.OutcomeStarted, res.Outcome)
	assert.Equal(t, datatypes.ParamColor, res.Parameter)
	assert.Equal(t, 1, res.StepNumber)
	require.NotNil(t, res.Question)
	assert.Equal(t, Question(datatypes.ParamColor, datatypes.LangHindi), *res.Question)
	assert.NotNil(t, res.AudioURL)
}

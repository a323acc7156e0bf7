// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package questionnaire implements the turn-decision engine of the soil
// assistant.
//
// # Description
//
// Each turn flows through the same pipeline:
//
//	Normalizer -> Validator dispatch -> Fuse (g=0) -> policy
//	    -> [Clarifier -> Fuse (with g) -> policy] -> progression -> audit
//
// The engine never mutates the session it is given. HandleTurn returns the
// next session state and the caller commits it, normally while holding the
// per-session lock of the session repository.
//
// # Failure Model
//
// Every collaborator failure is recovered where it happens: transcription
// degrades to confidence 0, retrieval to an empty context, generation to a
// fallback text and synthesis to an absent audio reference. HandleTurn
// therefore has no error return.
package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

var tracer = otel.Tracer("agrovers.questionnaire")

// =============================================================================
// Configuration
// =============================================================================

// PolicyConfig holds the two auto-fill gates.
//
// # Description
//
// The preliminary gate is evaluated without the generation signal, the
// final gate after it. Both default to 0.50 and are tuned independently.
type PolicyConfig struct {
	PreliminaryThreshold float64 `yaml:"preliminary_threshold" validate:"gte=0,lte=1"`
	FinalThreshold       float64 `yaml:"final_threshold" validate:"gte=0,lte=1"`
}

// DefaultPolicyConfig returns the production thresholds.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{PreliminaryThreshold: 0.50, FinalThreshold: 0.50}
}

// EngineConfig groups every tunable of the engine.
type EngineConfig struct {
	Policy               PolicyConfig
	Clarifier            ClarifierConfig
	TranscriptionTimeout time.Duration
	SynthesisTimeout     time.Duration
}

// DefaultEngineConfig returns production defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Policy:               DefaultPolicyConfig(),
		Clarifier:            DefaultClarifierConfig(),
		TranscriptionTimeout: 30 * time.Second,
		SynthesisTimeout:     15 * time.Second,
	}
}

// Dependencies are the collaborators of the engine. Only Validators is
// required.
type Dependencies struct {
	Validators  ValidatorSet
	Transcriber Transcriber
	Retriever   Retriever
	Explainer   Explainer
	Synthesizer Synthesizer
	Redactor    Redactor
	Observer    Observer
	Audit       *AuditRecorder

	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// TurnInput is the raw input of one turn.
type TurnInput struct {
	Text  string
	Audio []byte
}

// =============================================================================
// Engine
// =============================================================================

// Engine decides, turn by turn, whether to record an answer or clarify.
//
// # Thread Safety
//
// An Engine holds no per-session state and is safe for concurrent use.
// Turns of the same session must be serialized by the caller.
type Engine struct {
	cfg         EngineConfig
	validators  ValidatorSet
	normalizer  *Normalizer
	clarifier   *Clarifier
	synthesizer Synthesizer
	observer    Observer
	audit       *AuditRecorder
	now         func() time.Time
}

// NewEngine wires an Engine from its configuration and collaborators.
//
// # Outputs
//
//   - *Engine: Ready engine.
//   - error: When Validators is missing or a threshold is outside [0,1].
func NewEngine(cfg EngineConfig, deps Dependencies) (*Engine, error) {
	if deps.Validators == nil {
		return nil, errors.New("questionnaire: validator set is required")
	}
	for name, th := range map[string]float64{
		"preliminary": cfg.Policy.PreliminaryThreshold,
		"final":       cfg.Policy.FinalThreshold,
	} {
		if th < 0 || th > 1 {
			return nil, fmt.Errorf("questionnaire: %s threshold %.2f outside [0,1]", name, th)
		}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:         cfg,
		validators:  deps.Validators,
		normalizer:  NewNormalizer(deps.Transcriber, cfg.TranscriptionTimeout, deps.Observer),
		clarifier:   NewClarifier(deps.Retriever, deps.Explainer, deps.Redactor, cfg.Clarifier, deps.Observer),
		synthesizer: deps.Synthesizer,
		observer:    deps.Observer,
		audit:       deps.Audit,
		now:         now,
	}, nil
}

// Start returns the greeting turn of a fresh session: the first question
// and its audio.
func (e *Engine) Start(ctx context.Context, state datatypes.SessionState) datatypes.TurnResult {
	ctx, span := tracer.Start(ctx, "questionnaire.Start")
	defer span.End()

	res := e.result(state, datatypes.OutcomeStarted, datatypes.NewAuditRecord())
	if state.IsComplete() {
		res.Outcome = datatypes.OutcomeComplete
		return res
	}
	q := Question(state.Cursor.Parameter, state.Language)
	res.Question = &q
	res.AudioURL = e.speak(ctx, q, state.Language)
	return res
}

// HandleTurn processes one turn against a snapshot of the session.
//
// # Description
//
// The returned SessionState is what the caller should commit. For
// OutcomeNoInput, and for turns on an already completed session, it is the
// input state unchanged.
//
// # Inputs
//
//   - ctx: Carries the deadline of the whole turn. Each collaborator call
//     gets its own, shorter timeout.
//   - state: Snapshot of the session. Never mutated.
//   - in: Typed text and/or recorded audio.
//
// # Outputs
//
//   - datatypes.TurnResult: Always well-formed.
//   - datatypes.SessionState: The next state.
func (e *Engine) HandleTurn(ctx context.Context, state datatypes.SessionState, in TurnInput) (datatypes.TurnResult, datatypes.SessionState) {
	started := e.now()
	ctx, span := tracer.Start(ctx, "questionnaire.HandleTurn")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", state.SessionID),
		attribute.String("parameter", state.Cursor.Parameter.String()),
		attribute.String("language", state.Language.String()),
	)

	res, next := e.decide(ctx, state, in)

	span.SetAttributes(
		attribute.String("outcome", string(res.Outcome)),
		attribute.Float64("confidence.combined", res.Audit.CombinedConfidence),
	)
	if e.observer != nil {
		e.observer.ObserveTurn(res.Outcome, res.Audit, e.now().Sub(started))
	}
	slog.Info("questionnaire turn processed",
		"session_id", state.SessionID,
		"parameter", state.Cursor.Parameter,
		"outcome", res.Outcome,
		"combined_conf", res.Audit.CombinedConfidence)
	return res, next
}

func (e *Engine) decide(ctx context.Context, state datatypes.SessionState, in TurnInput) (datatypes.TurnResult, datatypes.SessionState) {
	rec := datatypes.NewAuditRecord()
	if state.IsComplete() {
		return e.result(state, datatypes.OutcomeComplete, rec), state
	}

	param := state.Cursor.Parameter
	lang := state.Language

	validator, ok := e.validators.Lookup(param)
	if !ok {
		return e.skip(ctx, state, rec)
	}

	utt, err := e.normalizer.Normalize(ctx, in.Text, in.Audio, lang)
	rec.TranscriptionConfidence = utt.TranscriptionConfidence
	rec.TranscriptText = utt.Transcript
	if err != nil {
		return e.noInput(ctx, state, rec), state
	}

	v := validator.Validate(utt.Text, lang)
	rec.ValidatorConfidence = ValidatorConfidence(v)

	// Phase 1: validator and transcription only.
	prelim := Fuse(rec.TranscriptionConfidence, rec.ValidatorConfidence, 0)
	rec.CombinedConfidence = prelim
	if v.HasValue() && prelim >= e.cfg.Policy.PreliminaryThreshold {
		return e.autoFill(ctx, state, v, rec)
	}

	// Phase 2: retrieval and generation.
	clar := e.clarifier.Clarify(ctx, param, lang, utt.Text)
	rec.GenerationConfidence = clar.GenerationConfidence
	rec.RetrievedContext = clar.AuditChunks(e.cfg.Clarifier.AuditKeep)
	rec.CombinedConfidence = Fuse(rec.TranscriptionConfidence, rec.ValidatorConfidence, rec.GenerationConfidence)
	if v.HasValue() && rec.CombinedConfidence >= e.cfg.Policy.FinalThreshold {
		return e.autoFill(ctx, state, v, rec)
	}

	next := e.touch(state)
	next.ClarificationMode = true
	res := e.result(next, datatypes.OutcomeClarification, rec)
	helper := clar.Text
	res.HelperText = &helper
	res.AudioURL = e.speak(ctx, helper, lang)
	e.publish(ctx, next, next.Turns, param, res)
	return res, next
}

// =============================================================================
// Progression
// =============================================================================

func (e *Engine) autoFill(ctx context.Context, state datatypes.SessionState, v datatypes.ValidationResult, rec datatypes.AuditRecord) (datatypes.TurnResult, datatypes.SessionState) {
	next := e.touch(state)
	next.Answers.Set(state.Cursor.Parameter, v)
	return e.advance(ctx, next, datatypes.OutcomeAutoFilled, rec, true)
}

func (e *Engine) skip(ctx context.Context, state datatypes.SessionState, rec datatypes.AuditRecord) (datatypes.TurnResult, datatypes.SessionState) {
	slog.Info("no validator registered, skipping parameter",
		"session_id", state.SessionID, "parameter", state.Cursor.Parameter)
	return e.advance(ctx, e.touch(state), datatypes.OutcomeSkipped, rec, false)
}

// advance moves the cursor forward and builds the result. The answer (if
// any) must already be recorded on next.
func (e *Engine) advance(ctx context.Context, next datatypes.SessionState, outcome datatypes.Outcome, rec datatypes.AuditRecord, withAudio bool) (datatypes.TurnResult, datatypes.SessionState) {
	answered := next.Cursor.Parameter
	next.ClarificationMode = false
	next.Cursor = next.Cursor.Advance()

	if next.Cursor.Complete {
		res := e.result(next, datatypes.OutcomeComplete, rec)
		e.publish(ctx, next, next.Turns, answered, res)
		return res, next
	}

	res := e.result(next, outcome, rec)
	q := Question(next.Cursor.Parameter, next.Language)
	res.Question = &q
	if withAudio {
		res.AudioURL = e.speak(ctx, q, next.Language)
	}
	e.publish(ctx, next, next.Turns, answered, res)
	return res, next
}

func (e *Engine) noInput(ctx context.Context, state datatypes.SessionState, rec datatypes.AuditRecord) datatypes.TurnResult {
	res := e.result(state, datatypes.OutcomeNoInput, rec)
	res.ClarificationMode = true
	apology := NoInputApology(state.Language)
	res.HelperText = &apology
	res.AudioURL = e.speak(ctx, apology, state.Language)
	// The state is not committed, so the entry carries the number of the
	// turn that was attempted rather than repeating the previous one.
	e.publish(ctx, state, state.Turns+1, state.Cursor.Parameter, res)
	return res
}

// touch returns a clone of state accounted for one more processed turn.
func (e *Engine) touch(state datatypes.SessionState) datatypes.SessionState {
	next := state.Clone()
	next.Turns++
	next.LastActive = e.now()
	return next
}

func (e *Engine) result(s datatypes.SessionState, outcome datatypes.Outcome, rec datatypes.AuditRecord) datatypes.TurnResult {
	step := s.Cursor.Parameter.StepNumber()
	if s.Cursor.Complete {
		step = datatypes.TotalSteps
	}
	return datatypes.TurnResult{
		SessionID:         s.SessionID,
		Outcome:           outcome,
		Parameter:         s.Cursor.Parameter,
		Answers:           s.Answers.Clone(),
		IsComplete:        s.Cursor.Complete,
		StepNumber:        step,
		TotalSteps:        datatypes.TotalSteps,
		ClarificationMode: s.ClarificationMode,
		Audit:             completeRecord(rec),
	}
}

// =============================================================================
// Side channels
// =============================================================================

// speak synthesizes text and resolves it to a URL. Any failure yields nil.
func (e *Engine) speak(ctx context.Context, text string, lang datatypes.Language) *string {
	if e.synthesizer == nil || text == "" {
		return nil
	}
	ctx, span := tracer.Start(ctx, "questionnaire.Synthesize")
	defer span.End()

	if e.cfg.SynthesisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SynthesisTimeout)
		defer cancel()
	}
	handle, err := e.synthesizer.Synthesize(ctx, text, lang)
	if err == nil {
		var url string
		url, err = e.synthesizer.Resolve(handle)
		if err == nil {
			return &url
		}
	}
	span.RecordError(err)
	slog.Warn("speech synthesis failed, omitting audio", "error", err, "language", lang)
	if e.observer != nil {
		e.observer.ObserveCollaboratorFailure("synthesis")
	}
	return nil
}

// publish records the turn under the parameter it was about, which differs
// from res.Parameter whenever the cursor advanced.
func (e *Engine) publish(ctx context.Context, s datatypes.SessionState, turn int, p datatypes.Parameter, res datatypes.TurnResult) {
	if e.audit == nil {
		return
	}
	e.audit.Publish(ctx, datatypes.AuditEntry{
		SessionID: s.SessionID,
		TurnIndex: turn,
		Parameter: p,
		Language:  s.Language,
		Outcome:   res.Outcome,
		Record:    res.Audit,
		At:        e.now(),
	})
}

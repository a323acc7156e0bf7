// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// ClarifierConfig tunes the clarification path.
//
// # Fields
//
//   - RetrievalK: Fetch width passed to the retriever.
//   - AuditKeep: Number of leading snippets copied into the audit record.
//   - RetrievalTimeout: Deadline for IsReady + Retrieve together.
//   - GenerationTimeout: Deadline handed to the explainer.
type ClarifierConfig struct {
	RetrievalK        int
	AuditKeep         int
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
}

// DefaultClarifierConfig returns the production defaults.
func DefaultClarifierConfig() ClarifierConfig {
	return ClarifierConfig{
		RetrievalK:        8,
		AuditKeep:         2,
		RetrievalTimeout:  5 * time.Second,
		GenerationTimeout: 30 * time.Second,
	}
}

// Clarification is the product of one clarification run.
type Clarification struct {
	Text                 string
	Chunks               []string
	GenerationConfidence float64
	Fallback             bool
}

// AuditChunks returns the leading snippets retained for the audit trail.
func (c Clarification) AuditChunks(keep int) []string {
	if keep <= 0 || len(c.Chunks) == 0 {
		return []string{}
	}
	if keep > len(c.Chunks) {
		keep = len(c.Chunks)
	}
	out := make([]string, keep)
	copy(out, c.Chunks[:keep])
	return out
}

// Clarifier retrieves reference material and asks the explainer for
// clarification text.
//
// # Thread Safety
//
// Safe for concurrent use if its collaborators are.
type Clarifier struct {
	retriever Retriever
	explainer Explainer
	redactor  Redactor
	cfg       ClarifierConfig
	observer  Observer
}

// NewClarifier creates a Clarifier. retriever and redactor may be nil.
func NewClarifier(r Retriever, e Explainer, red Redactor, cfg ClarifierConfig, obs Observer) *Clarifier {
	if cfg.RetrievalK <= 0 {
		cfg.RetrievalK = DefaultClarifierConfig().RetrievalK
	}
	if cfg.AuditKeep < 0 {
		cfg.AuditKeep = 0
	}
	return &Clarifier{retriever: r, explainer: e, redactor: red, cfg: cfg, observer: obs}
}

// Clarify runs retrieval and generation for one turn. It never fails.
func (c *Clarifier) Clarify(ctx context.Context, p datatypes.Parameter, lang datatypes.Language, utterance string) Clarification {
	ctx, span := tracer.Start(ctx, "questionnaire.Clarify")
	defer span.End()
	span.SetAttributes(attribute.String("parameter", p.String()), attribute.String("language", lang.String()))

	if c.redactor != nil {
		utterance = c.redactor.Redact(utterance)
	}

	chunks := c.retrieve(ctx, p, lang, utterance)

	exp := c.explain(ctx, ExplainRequest{
		Parameter: p,
		Language:  lang,
		Utterance: utterance,
		Chunks:    chunks,
	})
	if strings.TrimSpace(exp.Text) == "" {
		exp = Explanation{Text: FallbackClarification(p, lang), Fallback: true, Reason: "empty"}
	}
	if c.observer != nil {
		c.observer.ObserveGeneration(exp.Fallback)
	}

	out := Clarification{
		Text:                 exp.Text,
		Chunks:               chunks,
		GenerationConfidence: GenerationConfidence(exp.Text, len(chunks)),
		Fallback:             exp.Fallback,
	}
	span.SetAttributes(
		attribute.Int("retrieval.chunks", len(chunks)),
		attribute.Bool("generation.fallback", out.Fallback),
		attribute.Float64("generation.confidence", out.GenerationConfidence),
	)
	return out
}

func (c *Clarifier) retrieve(ctx context.Context, p datatypes.Parameter, lang datatypes.Language, utterance string) []string {
	if c.retriever == nil {
		return []string{}
	}
	ctx, span := tracer.Start(ctx, "questionnaire.Retrieve")
	defer span.End()

	if c.cfg.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RetrievalTimeout)
		defer cancel()
	}

	if !c.retriever.IsReady(ctx) {
		span.SetAttributes(attribute.Bool("retrieval.ready", false))
		return []string{}
	}

	query := RetrievalQuery(p, lang, utterance)
	chunks, err := c.retriever.Retrieve(ctx, query, p, lang, c.cfg.RetrievalK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		slog.Warn("retrieval failed, continuing with empty context",
			"error", err, "parameter", p, "language", lang)
		if c.observer != nil {
			c.observer.ObserveCollaboratorFailure("retrieval")
		}
		return []string{}
	}
	if len(chunks) > c.cfg.RetrievalK {
		chunks = chunks[:c.cfg.RetrievalK]
	}
	if chunks == nil {
		chunks = []string{}
	}
	return chunks
}

func (c *Clarifier) explain(ctx context.Context, req ExplainRequest) Explanation {
	if c.explainer == nil {
		return Explanation{}
	}
	ctx, span := tracer.Start(ctx, "questionnaire.Explain")
	defer span.End()

	if c.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GenerationTimeout)
		defer cancel()
	}
	exp := c.explainer.Explain(ctx, req)
	if exp.Fallback {
		span.SetStatus(codes.Error, "explainer fell back: "+exp.Reason)
		if c.observer != nil {
			c.observer.ObserveCollaboratorFailure("generation")
		}
	}
	return exp
}

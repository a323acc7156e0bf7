// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package explainer writes clarification texts with an LLM backend.
//
// # Description
//
// LLMExplainer implements questionnaire.Explainer. It grounds the model on
// retrieved knowledge-base snippets and converts every backend failure into
// a localized fallback Explanation, so callers never see an error.
package explainer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/llm"
)

// Fallback reasons reported in Explanation.Reason.
const (
	ReasonDisabled = "disabled"
	ReasonQuota    = "quota"
	ReasonBackend  = "backend_error"
	ReasonEmpty    = "empty"
)

// Config tunes generation.
type Config struct {
	Temperature   float32 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens     int     `yaml:"max_tokens" validate:"gte=0"`
	ContextChunks int     `yaml:"context_chunks" validate:"gte=0"`
}

// DefaultConfig mirrors the hosted model settings used in production.
func DefaultConfig() Config {
	return Config{Temperature: 0.7, MaxTokens: 1000}
}

// LLMExplainer generates explanations through an llm.LLMClient.
//
// # Thread Safety
//
// Safe for concurrent use when the client is.
type LLMExplainer struct {
	client llm.LLMClient
	cfg    Config
	logger *slog.Logger
}

var _ questionnaire.Explainer = (*LLMExplainer)(nil)

// New creates an explainer. A nil client yields fallbacks for every call,
// which keeps the questionnaire usable without a configured model.
func New(client llm.LLMClient, cfg Config) *LLMExplainer {
	return &LLMExplainer{client: client, cfg: cfg, logger: slog.Default()}
}

// Explain implements questionnaire.Explainer.
func (e *LLMExplainer) Explain(ctx context.Context, req questionnaire.ExplainRequest) questionnaire.Explanation {
	if e.client == nil {
		return e.fallback(req, ReasonDisabled)
	}

	temp := e.cfg.Temperature
	params := llm.GenerationParams{
		Temperature: &temp,
		System:      SystemPrompt(req.Language),
	}
	if e.cfg.MaxTokens > 0 {
		maxTokens := e.cfg.MaxTokens
		params.MaxTokens = &maxTokens
	}

	text, err := e.client.Generate(ctx, UserPrompt(req, e.cfg.ContextChunks), params)
	if err != nil {
		reason := ReasonBackend
		if isQuota(err) {
			reason = ReasonQuota
		}
		e.logger.Warn("explainer backend failed",
			"parameter", req.Parameter.String(),
			"reason", reason,
			"error", err)
		return e.fallback(req, reason)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return e.fallback(req, ReasonEmpty)
	}
	return questionnaire.Explanation{Text: text}
}

func (e *LLMExplainer) fallback(req questionnaire.ExplainRequest, reason string) questionnaire.Explanation {
	text := FallbackText(req.Parameter, req.Language)
	if reason == ReasonQuota {
		text = QuotaText(req.Language)
	}
	return questionnaire.Explanation{Text: text, Fallback: true, Reason: reason}
}

// isQuota recognizes exhausted quotas, including providers that only say so
// in the message.
func isQuota(err error) bool {
	if errors.Is(err, llm.ErrQuotaExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}

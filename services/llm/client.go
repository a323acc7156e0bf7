// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package llm provides text-generation clients for the hosted and local model
// backends the assistant can use to write clarifications.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ErrQuotaExceeded is wrapped by every backend when the provider reports
// that the caller is rate limited or out of quota (HTTP 429).
var ErrQuotaExceeded = errors.New("llm quota exceeded")

// GenerationParams are optional sampling settings. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
	System      string   `json:"system,omitempty"`
}

// LLMClient defines the standard interface for any LLM backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Backend names accepted by Config.Backend.
const (
	BackendGemini    = "gemini"
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	// BackendLocal is an alias of ollama.
	BackendLocal = "local"
)

// Config selects and configures a backend.
//
// # Fields
//
//   - Backend: One of gemini, openai, ollama (alias local), anthropic.
//   - Model: Model identifier; each backend has a default.
//   - APIKey: Credential. Falls back to the backend's env var, then to a
//     container secret under /run/secrets.
//   - BaseURL: Endpoint override (required for ollama).
//   - Timeout: HTTP timeout for backends that own their HTTP client.
//   - RequestsPerMinute: Client-side rate limit; 0 disables it.
type Config struct {
	Backend           string        `yaml:"backend" validate:"omitempty,oneof=gemini openai ollama anthropic local"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
}

// New builds the client named by cfg.Backend, wrapped in a rate limiter when
// cfg.RequestsPerMinute is positive.
func New(cfg Config) (LLMClient, error) {
	var (
		client LLMClient
		err    error
	)
	switch cfg.Backend {
	case BackendGemini, "":
		client, err = NewGeminiClient(cfg)
	case BackendOpenAI:
		client, err = NewOpenAIClient(cfg)
	case BackendOllama, BackendLocal:
		client, err = NewOllamaClient(cfg)
	case BackendAnthropic:
		client, err = NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		client = NewRateLimited(client, cfg.RequestsPerMinute)
	}
	return client, nil
}

// resolveAPIKey returns explicit, else the env var, else the content of
// /run/secrets/<secret>.
func resolveAPIKey(explicit, envVar, secret string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	secretPath := "/run/secrets/" + secret
	if content, err := os.ReadFile(secretPath); err == nil {
		slog.Info("Read API key from secrets", "path", secretPath)
		return strings.TrimSpace(string(content))
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

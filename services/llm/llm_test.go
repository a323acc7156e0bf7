// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Ollama
// =============================================================================

func TestOllamaClient_Generate(t *testing.T) {
	var got ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"model":"llama3.1","response":"Loamy soil feels smooth.","done":true}`))
	}))
	defer server.Close()

	client, err := NewOllamaClient(Config{BaseURL: server.URL + "/", Model: "llama3.1"})
	require.NoError(t, err)

	temp := float32(0.7)
	out, err := client.Generate(context.Background(), "What is loam?", GenerationParams{Temperature: &temp, System: "be brief"})
	require.NoError(t, err)
	assert.Equal(t, "Loamy soil feels smooth.", out)
	assert.Equal(t, "What is loam?", got.Prompt)
	assert.Equal(t, "be brief", got.System)
	assert.False(t, got.Stream)
	assert.InDelta(t, 0.7, got.Options["temperature"], 1e-6)
	assert.EqualValues(t, 1024, got.Options["num_predict"])
}

func TestOllamaClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		quota    bool
		contains string
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, true, "429"},
		{"model missing", http.StatusNotFound, `{"error":"model 'x' not found"}`, false, "ollama pull"},
		{"server error", http.StatusInternalServerError, `boom`, false, "status 500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewOllamaClient(Config{BaseURL: server.URL, Model: "x"})
			require.NoError(t, err)
			_, err = client.Generate(context.Background(), "q", GenerationParams{})
			require.Error(t, err)
			assert.Equal(t, tt.quota, errors.Is(err, ErrQuotaExceeded))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestNewOllamaClient_RequiresBaseURL(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	_, err := NewOllamaClient(Config{})
	assert.Error(t, err)
}

// =============================================================================
// Anthropic
// =============================================================================

func TestAnthropicClient_Generate(t *testing.T) {
	var got anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"id":"m1","content":[{"type":"text","text":"Red soil "},{"type":"text","text":"is iron rich."}]}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), "why red?", GenerationParams{System: "farmer helper"})
	require.NoError(t, err)
	assert.Equal(t, "Red soil is iron rich.", out)
	assert.Equal(t, "farmer helper", got.System)
	assert.Equal(t, anthropicMaxTokens, got.MaxTokens)
	assert.Equal(t, defaultAnthropicModel, got.Model)
}

func TestAnthropicClient_QuotaExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewAnthropicClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Generate(context.Background(), "q", GenerationParams{})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

// =============================================================================
// Rate limiting and factory
// =============================================================================

type countingClient struct {
	calls atomic.Int32
}

func (c *countingClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	c.calls.Add(1)
	return "ok", nil
}

func TestRateLimited_WaitExceedsDeadline(t *testing.T) {
	inner := &countingClient{}
	limited := NewRateLimited(inner, 1)

	out, err := limited.Generate(context.Background(), "first", GenerationParams{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, "second", GenerationParams{})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestNew_Backends(t *testing.T) {
	client, err := New(Config{Backend: BackendOllama, BaseURL: "http://localhost:11434", RequestsPerMinute: 30})
	require.NoError(t, err)
	assert.IsType(t, &RateLimited{}, client)

	client, err = New(Config{Backend: BackendAnthropic, APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicClient{}, client)

	_, err = New(Config{Backend: "bard"})
	assert.Error(t, err)
}

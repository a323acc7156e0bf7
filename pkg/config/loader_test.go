// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWriteDefault_RoundTrip verifies the file written by `config init`
// loads back to the defaults.
func TestWriteDefault_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "soilassistant.yaml")
	require.NoError(t, WriteDefault(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	assert.Error(t, WriteDefault(path, false), "existing file must not be overwritten")
	assert.NoError(t, WriteDefault(path, true))
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
policy:
  final_threshold: 0.6
  disabled_parameters: [location]
session:
  idle_timeout: 30m
llm:
  backend: ollama
  base_url: http://localhost:11434
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.6, cfg.Policy.FinalThreshold)
	assert.Equal(t, 0.5, cfg.Policy.PreliminaryThreshold)
	assert.Equal(t, []string{"location"}, cfg.Policy.DisabledParameters)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"threshold above one", "policy:\n  final_threshold: 1.5\n"},
		{"unknown backend", "llm:\n  backend: mystery\n"},
		{"unknown parameter", "policy:\n  disabled_parameters: [colour]\n"},
		{"bad speech backend", "speech:\n  backend: azure\n"},
		{"http embedder without url", "retrieval:\n  weaviate_url: http://localhost:8080\n  embedder: http\n"},
		{"malformed yaml", "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SOIL_PORT":            "7000",
		"LLM_BACKEND_TYPE":     "anthropic",
		"WEAVIATE_SERVICE_URL": "http://weaviate:8080",
		"REPORT_WEBHOOK_URL":   "http://n8n:5678/webhook/soil",
	}
	cfg := DefaultConfig()
	require.NoError(t, applyEnv(&cfg, func(k string) string { return env[k] }))
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "anthropic", cfg.LLM.Backend)
	assert.Equal(t, "http://weaviate:8080", cfg.Retrieval.WeaviateURL)
	assert.Equal(t, "http://n8n:5678/webhook/soil", cfg.Report.WebhookURL)
	assert.Equal(t, "info", cfg.Logging.Level)

	cfg = DefaultConfig()
	err := applyEnv(&cfg, func(k string) string {
		if k == "SOIL_PORT" {
			return "eighty"
		}
		return ""
	})
	assert.ErrorContains(t, err, "SOIL_PORT")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SOIL_PORT", "6553")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 6553, cfg.Server.Port)
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// DefaultPath returns ~/.agrovers/soilassistant.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".agrovers", "soilassistant.yaml"), nil
}

// Load builds the effective configuration.
//
// # Description
//
// Starts from DefaultConfig, overlays the YAML file at path (when path is
// non-empty), then applies environment overrides and validates the result.
// Keys missing from the file keep their defaults.
//
// # Outputs
//
//   - SoilAssistantConfig: The validated configuration.
//   - error: Non-nil if the file cannot be read or parsed, an override is
//     malformed, or validation fails.
func Load(path string) (SoilAssistantConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read the config file %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return cfg, err
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg SoilAssistantConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Retrieval.WeaviateURL != "" && cfg.Retrieval.Embedder == "http" && cfg.Retrieval.EmbedderURL == "" {
		return errors.New("invalid configuration: retrieval.embedder_url is required for the http embedder")
	}
	return nil
}

// WriteDefault writes DefaultConfig to path, creating parent directories.
// An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// envOverride binds one environment variable to a config field.
type envOverride struct {
	name  string
	apply func(cfg *SoilAssistantConfig, v string) error
}

var envOverrides = []envOverride{
	{"SOIL_PORT", func(c *SoilAssistantConfig, v string) error {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SOIL_PORT: %w", err)
		}
		c.Server.Port = port
		return nil
	}},
	{"GIN_MODE", func(c *SoilAssistantConfig, v string) error { c.Server.GinMode = v; return nil }},
	{"LOG_LEVEL", func(c *SoilAssistantConfig, v string) error { c.Logging.Level = v; return nil }},
	{"LLM_BACKEND_TYPE", func(c *SoilAssistantConfig, v string) error { c.LLM.Backend = v; return nil }},
	{"LLM_MODEL", func(c *SoilAssistantConfig, v string) error { c.LLM.Model = v; return nil }},
	{"LLM_BASE_URL", func(c *SoilAssistantConfig, v string) error { c.LLM.BaseURL = v; return nil }},
	{"SPEECH_BACKEND", func(c *SoilAssistantConfig, v string) error { c.Speech.Backend = v; return nil }},
	{"WEAVIATE_SERVICE_URL", func(c *SoilAssistantConfig, v string) error { c.Retrieval.WeaviateURL = v; return nil }},
	{"EMBEDDING_SERVICE_URL", func(c *SoilAssistantConfig, v string) error { c.Retrieval.EmbedderURL = v; return nil }},
	{"REPORT_WEBHOOK_URL", func(c *SoilAssistantConfig, v string) error { c.Report.WebhookURL = v; return nil }},
	{"OTEL_EXPORTER_OTLP_ENDPOINT", func(c *SoilAssistantConfig, v string) error { c.Telemetry.OTelEndpoint = v; return nil }},
	{"AUDIT_SQLITE_PATH", func(c *SoilAssistantConfig, v string) error { c.Audit.SQLitePath = v; return nil }},
}

func applyEnv(cfg *SoilAssistantConfig, getenv func(string) string) error {
	for _, o := range envOverrides {
		v := getenv(o.name)
		if v == "" {
			continue
		}
		if err := o.apply(cfg, v); err != nil {
			return fmt.Errorf("invalid environment override: %w", err)
		}
	}
	return nil
}

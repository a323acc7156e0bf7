// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package config loads the soil assistant configuration from a YAML file
// with environment overrides.
package config

import (
	"time"

	"github.com/Shreyashgol/agrovers/services/explainer"
	"github.com/Shreyashgol/agrovers/services/llm"
)

type SoilAssistantConfig struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	Session   SessionConfig    `yaml:"session"`
	Policy    PolicyConfig     `yaml:"policy"`
	LLM       llm.Config       `yaml:"llm"`
	Explainer explainer.Config `yaml:"explainer"`
	Speech    SpeechConfig     `yaml:"speech"`
	Retrieval RetrievalConfig  `yaml:"retrieval"`
	Audit     AuditConfig      `yaml:"audit"`
	Report    ReportConfig     `yaml:"report"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	GinMode         string        `yaml:"gin_mode" validate:"omitempty,oneof=debug release test"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// File, when set, receives a JSON copy of every log line.
	File string `yaml:"file,omitempty"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// PolicyConfig holds the decision thresholds and per-collaborator budgets
// of a turn.
type PolicyConfig struct {
	PreliminaryThreshold float64       `yaml:"preliminary_threshold" validate:"gte=0,lte=1"`
	FinalThreshold       float64       `yaml:"final_threshold" validate:"gte=0,lte=1"`
	RetrievalK           int           `yaml:"retrieval_k" validate:"gte=0"`
	AuditKeep            int           `yaml:"audit_keep" validate:"gte=0"`
	TranscriptionTimeout time.Duration `yaml:"transcription_timeout"`
	RetrievalTimeout     time.Duration `yaml:"retrieval_timeout"`
	GenerationTimeout    time.Duration `yaml:"generation_timeout"`
	SynthesisTimeout     time.Duration `yaml:"synthesis_timeout"`
	// DisabledParameters are auto-skipped.
	DisabledParameters []string `yaml:"disabled_parameters,omitempty" validate:"dive,oneof=color moisture smell ph soil_type earthworms location fertilizer_used"`
}

type SpeechConfig struct {
	// Backend is "openai" or "none".
	Backend     string `yaml:"backend" validate:"oneof=openai none"`
	APIKey      string `yaml:"api_key,omitempty"`
	STTModel    string `yaml:"stt_model"`
	TTSModel    string `yaml:"tts_model"`
	Voice       string `yaml:"voice"`
	AudioDir    string `yaml:"audio_dir"`
	AudioPrefix string `yaml:"audio_url_prefix"`
}

type RetrievalConfig struct {
	// WeaviateURL empty disables retrieval.
	WeaviateURL string `yaml:"weaviate_url" validate:"omitempty,url"`
	ClassName   string `yaml:"class_name"`
	// Embedder is "genai" or "http".
	Embedder     string `yaml:"embedder" validate:"oneof=genai http"`
	EmbedderURL  string `yaml:"embedder_url,omitempty" validate:"omitempty,url"`
	EmbedModel   string `yaml:"embed_model,omitempty"`
	KnowledgeDir string `yaml:"knowledge_dir,omitempty"`
}

type AuditConfig struct {
	// SQLitePath empty keeps audit records in the log only.
	SQLitePath string `yaml:"sqlite_path,omitempty"`
}

type ReportConfig struct {
	// WebhookURL empty disables the report endpoints.
	WebhookURL string        `yaml:"webhook_url,omitempty" validate:"omitempty,url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type TelemetryConfig struct {
	// OTelEndpoint empty disables trace export.
	OTelEndpoint  string `yaml:"otel_endpoint,omitempty"`
	EnableMetrics bool   `yaml:"enable_metrics"`
}

// DefaultConfig returns the configuration written by `config init`.
func DefaultConfig() SoilAssistantConfig {
	return SoilAssistantConfig{
		Server: ServerConfig{
			Port:            8000,
			GinMode:         "release",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Session: SessionConfig{
			IdleTimeout:   time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Policy: PolicyConfig{
			PreliminaryThreshold: 0.50,
			FinalThreshold:       0.50,
			RetrievalK:           8,
			AuditKeep:            2,
			TranscriptionTimeout: 30 * time.Second,
			RetrievalTimeout:     5 * time.Second,
			GenerationTimeout:    30 * time.Second,
			SynthesisTimeout:     15 * time.Second,
		},
		LLM: llm.Config{
			Backend: llm.BackendGemini,
			Timeout: 60 * time.Second,
		},
		Explainer: explainer.DefaultConfig(),
		Speech: SpeechConfig{
			Backend:     "none",
			STTModel:    "whisper-1",
			TTSModel:    "tts-1",
			Voice:       "alloy",
			AudioDir:    "./data/audio",
			AudioPrefix: "/api/v1/audio",
		},
		Retrieval: RetrievalConfig{
			ClassName: "SoilKnowledge",
			Embedder:  "genai",
		},
		Report: ReportConfig{Timeout: 120 * time.Second},
		Telemetry: TelemetryConfig{
			EnableMetrics: true,
		},
	}
}

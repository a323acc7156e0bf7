// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package observability provides Prometheus metrics for the soil assistant.
//
// # Description
//
// TurnMetrics implements the questionnaire engine's Observer and the session
// sweeper's SweepObserver. Metrics include:
//   - Turn counters by outcome
//   - Confidence histograms per signal
//   - Turn latency
//   - Collaborator failure counters
//   - Generation calls split by fallback
//   - Expired and live session counts
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
)

// =============================================================================
// Metric Definitions
// =============================================================================

const metricsNamespace = "soil_assistant"

const questionnaireSubsystem = "questionnaire"

// TurnMetrics holds every Prometheus metric of the questionnaire.
//
// # Fields
//
//   - TurnsTotal: Turns by outcome.
//     Labels: outcome (auto_filled, clarification, skipped, complete, no_input)
//   - ConfidenceScore: Distribution of each confidence signal.
//     Labels: signal (asr, validator, llm, combined)
//   - TurnDurationSeconds: Wall time of HandleTurn.
//   - CollaboratorFailuresTotal: Recovered collaborator failures.
//     Labels: collaborator (transcription, retrieval, generation, synthesis)
//   - GenerationsTotal: Explainer calls.
//     Labels: result (ok, fallback)
//   - SessionsExpiredTotal: Sessions removed by the idle sweeper.
type TurnMetrics struct {
	TurnsTotal                *prometheus.CounterVec
	ConfidenceScore           *prometheus.HistogramVec
	TurnDurationSeconds       prometheus.Histogram
	CollaboratorFailuresTotal *prometheus.CounterVec
	GenerationsTotal          *prometheus.CounterVec
	SessionsExpiredTotal      prometheus.Counter

	reg prometheus.Registerer
}

var (
	_ questionnaire.Observer = (*TurnMetrics)(nil)
	_ session.SweepObserver  = (*TurnMetrics)(nil)
)

// NewTurnMetrics creates and registers the metrics on reg.
//
// # Description
//
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests so runs do not collide.
//
// # Limitations
//
//   - Panics if the same metrics are registered twice on one registry.
func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	f := promauto.With(reg)
	return &TurnMetrics{
		TurnsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: questionnaireSubsystem,
				Name:      "turns_total",
				Help:      "Questionnaire turns by outcome",
			},
			[]string{"outcome"},
		),
		ConfidenceScore: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: questionnaireSubsystem,
				Name:      "confidence_score",
				Help:      "Distribution of confidence signals per turn",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"signal"},
		),
		TurnDurationSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: questionnaireSubsystem,
				Name:      "turn_duration_seconds",
				Help:      "Time spent processing one turn",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		CollaboratorFailuresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: questionnaireSubsystem,
				Name:      "collaborator_failures_total",
				Help:      "Recovered failures of downstream collaborators",
			},
			[]string{"collaborator"},
		),
		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: questionnaireSubsystem,
				Name:      "generations_total",
				Help:      "Explainer invocations by result",
			},
			[]string{"result"},
		),
		SessionsExpiredTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "expired_total",
				Help:      "Sessions removed after the idle timeout",
			},
		),
		reg: reg,
	}
}

// RegisterLiveSessions exports the current session count as a gauge.
func (m *TurnMetrics) RegisterLiveSessions(count func() int) {
	promauto.With(m.reg).NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "sessions",
			Name:      "live",
			Help:      "Sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	)
}

// =============================================================================
// Observer implementation
// =============================================================================

// ObserveTurn records the outcome, confidences and latency of a turn. Only
// computed signals are observed, so a skipped turn adds no confidence
// samples.
func (m *TurnMetrics) ObserveTurn(outcome datatypes.Outcome, audit datatypes.AuditRecord, elapsed time.Duration) {
	m.TurnsTotal.WithLabelValues(string(outcome)).Inc()
	m.TurnDurationSeconds.Observe(elapsed.Seconds())

	switch outcome {
	case datatypes.OutcomeSkipped, datatypes.OutcomeNoInput:
		return
	}
	if audit.TranscriptText != nil {
		m.ConfidenceScore.WithLabelValues("asr").Observe(audit.TranscriptionConfidence)
	}
	if audit.ValidatorConfidence > 0 {
		m.ConfidenceScore.WithLabelValues("validator").Observe(audit.ValidatorConfidence)
		m.ConfidenceScore.WithLabelValues("combined").Observe(audit.CombinedConfidence)
	}
	if audit.GenerationConfidence > 0 {
		m.ConfidenceScore.WithLabelValues("llm").Observe(audit.GenerationConfidence)
	}
}

// ObserveCollaboratorFailure counts a recovered collaborator failure.
func (m *TurnMetrics) ObserveCollaboratorFailure(collaborator string) {
	m.CollaboratorFailuresTotal.WithLabelValues(collaborator).Inc()
}

// ObserveGeneration counts an explainer call.
func (m *TurnMetrics) ObserveGeneration(fallback bool) {
	result := "ok"
	if fallback {
		result = "fallback"
	}
	m.GenerationsTotal.WithLabelValues(result).Inc()
}

// ObserveExpired counts sessions removed by one sweep.
func (m *TurnMetrics) ObserveExpired(n int) {
	if n > 0 {
		m.SessionsExpiredTotal.Add(float64(n))
	}
}

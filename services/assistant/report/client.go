// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package report turns a completed questionnaire into a soil health report
// by handing the answers to an external workflow webhook.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

var tracer = otel.Tracer("agrovers.report")

// DefaultTimeout bounds one webhook call. Report workflows run an LLM
// chain and routinely take more than a minute.
const DefaultTimeout = 120 * time.Second

// ErrTimeout is returned when the workflow did not answer in time.
var ErrTimeout = errors.New("report generation timed out")

// Payload is the body posted to the report workflow.
type Payload struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	SoilColor           string `json:"soilColor"`
	MoistureLevel       string `json:"moistureLevel"`
	SoilSmell           string `json:"soilSmell"`
	PHLevel             string `json:"phLevel"`
	SoilType            string `json:"soilType"`
	Earthworms          string `json:"earthworms"`
	Location            string `json:"location"`
	PreviousFertilizers string `json:"previousFertilizers"`
	PreferredLanguage   string `json:"preferredLanguage"`
}

// NewPayload maps a session's answers onto the workflow's field names.
// A numeric pH reading is preferred over its category.
func NewPayload(s datatypes.SessionState) Payload {
	a := s.Answers
	ph := deref(a.PHCategory)
	if a.PHValue != nil {
		ph = strconv.FormatFloat(*a.PHValue, 'f', -1, 64)
	}
	return Payload{
		ID:                  s.SessionID,
		SoilColor:           deref(a.Color),
		MoistureLevel:       deref(a.Moisture),
		SoilSmell:           deref(a.Smell),
		PHLevel:             ph,
		SoilType:            deref(a.SoilType),
		Earthworms:          deref(a.Earthworms),
		Location:            deref(a.Location),
		PreviousFertilizers: deref(a.FertilizerUsed),
		PreferredLanguage:   s.Language.String(),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Generator produces a report for a payload.
type Generator interface {
	Generate(ctx context.Context, p Payload) (any, error)
}

// WebhookClient posts payloads to an n8n-style workflow webhook.
//
// # Description
//
// A JSON response body is returned decoded. Any other body is treated as a
// plain-text report and parsed into sections with ParseText.
//
// # Thread Safety
//
// Safe for concurrent use.
type WebhookClient struct {
	url        string
	httpClient *http.Client
}

var _ Generator = (*WebhookClient)(nil)

// NewWebhookClient creates a client. A non-positive timeout selects
// DefaultTimeout.
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebhookClient{url: url, httpClient: &http.Client{Timeout: timeout}}
}

// Generate posts p and returns the workflow's report.
func (c *WebhookClient) Generate(ctx context.Context, p Payload) (any, error) {
	ctx, span := tracer.Start(ctx, "report.WebhookClient.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", p.ID))

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Info("sending soil data to report workflow", "session_id", p.ID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook call failed")
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("report workflow request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report response: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("report workflow returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad status")
		return nil, err
	}

	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		if text, ok := decoded.(string); ok {
			return ParseText(text), nil
		}
		return decoded, nil
	}
	return ParseText(string(raw)), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// =============================================================================
// Text reports
// =============================================================================

// Section is one headed block of a text report.
type Section struct {
	Title   string   `json:"title"`
	Content []string `json:"content"`
}

// TextReport is the structured form of a plain-text report.
type TextReport struct {
	Type     string    `json:"type"`
	Content  string    `json:"content"`
	Sections []Section `json:"sections"`
}

// ParseText splits a plain-text report into sections. A line is a heading
// when it is all upper case or ends with a colon; every other non-blank
// line belongs to the most recent heading.
func ParseText(text string) TextReport {
	out := TextReport{Type: "text_report", Content: text, Sections: []Section{}}
	cur := -1
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isHeading(line) {
			out.Sections = append(out.Sections, Section{Title: strings.TrimSuffix(line, ":"), Content: []string{}})
			cur = len(out.Sections) - 1
			continue
		}
		if cur >= 0 {
			out.Sections[cur].Content = append(out.Sections[cur].Content, line)
		}
	}
	return out
}

func isHeading(line string) bool {
	if strings.HasSuffix(line, ":") {
		return true
	}
	return strings.ToUpper(line) == line && strings.ToLower(line) != line
}

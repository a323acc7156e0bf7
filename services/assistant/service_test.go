// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shreyashgol/agrovers/pkg/config"
	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/report"
	"github.com/Shreyashgol/agrovers/services/llm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Test Setup
// =============================================================================

type stubLLM struct{ calls int }

func (s *stubLLM) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	s.calls++
	return "Moist soil sticks to your fingers. Dry soil crumbles. Wet soil leaves water on your palm.", nil
}

func testConfig(t *testing.T) config.SoilAssistantConfig {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.GinMode = "test"
	cfg.Speech.AudioDir = filepath.Join(t.TempDir(), "audio")
	cfg.Audit.SQLitePath = filepath.Join(t.TempDir(), "audit.db")
	return cfg
}

func newTestService(t *testing.T, cfg config.SoilAssistantConfig) (*service, *stubLLM) {
	t.Helper()
	stub := &stubLLM{}
	svc, err := newService(cfg, WithLLMClient(stub), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(svc.cleanup)
	return svc, stub
}

func postForm(t *testing.T, router http.Handler, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/next", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Construction
// =============================================================================

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.FinalThreshold = 2
	_, err := New(cfg, WithLLMClient(&stubLLM{}), WithRegistry(prometheus.NewRegistry()))
	assert.Error(t, err)
}

func TestNew_OpenAISpeechRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := testConfig(t)
	cfg.Speech.Backend = "openai"
	_, err := New(cfg, WithLLMClient(&stubLLM{}), WithRegistry(prometheus.NewRegistry()))
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestNew_ReportRoutesFollowWebhookConfig(t *testing.T) {
	svc, _ := newTestService(t, testConfig(t))
	w := httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/status/x", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	cfg := testConfig(t)
	cfg.Report.WebhookURL = "http://127.0.0.1:1/webhook"
	svc, _ = newTestService(t, cfg)
	w = httptest.NewRecorder()
	svc.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/reports/status/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestService_RemovedSessionDropsReport(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"summary":"ok"}`))
	}))
	defer webhook.Close()

	cfg := testConfig(t)
	cfg.Report.WebhookURL = webhook.URL
	svc, _ := newTestService(t, cfg)
	ctx := context.Background()

	st, err := svc.repo.Create(ctx, datatypes.LangEnglish)
	require.NoError(t, err)
	st, err = svc.repo.Update(ctx, st.SessionID, func(cur datatypes.SessionState) (datatypes.SessionState, error) {
		for !cur.Cursor.Complete {
			cur.Cursor = cur.Cursor.Advance()
		}
		return cur, nil
	})
	require.NoError(t, err)

	_, err = svc.reports.Generate(ctx, st)
	require.NoError(t, err)
	svc.reports.Wait()
	require.Equal(t, report.StateCompleted, svc.reports.Status(st.SessionID).Status)

	require.NoError(t, svc.repo.Delete(ctx, st.SessionID))
	assert.Equal(t, report.StatePending, svc.reports.Status(st.SessionID).Status)
}

func TestEngineConfig(t *testing.T) {
	p := config.DefaultConfig().Policy
	p.FinalThreshold = 0.65
	p.RetrievalK = 3
	p.GenerationTimeout = 0

	ec := engineConfig(p)
	assert.Equal(t, 0.5, ec.Policy.PreliminaryThreshold)
	assert.Equal(t, 0.65, ec.Policy.FinalThreshold)
	assert.Equal(t, 3, ec.Clarifier.RetrievalK)
	assert.Equal(t, 30*time.Second, ec.Clarifier.GenerationTimeout)
}

func TestDisabledParameters(t *testing.T) {
	got := disabledParameters([]string{"location", "bogus", "ph"})
	assert.Equal(t, []datatypes.Parameter{datatypes.ParamLocation, datatypes.ParamPH}, got)
}

// =============================================================================
// End to end through the router
// =============================================================================

func TestService_QuestionnaireFlow(t *testing.T) {
	cfg := testConfig(t)
	cfg.Policy.DisabledParameters = []string{"smell"}
	svc, stub := newTestService(t, cfg)
	router := svc.Router()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/session/start", strings.NewReader(`{"language":"en"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var started datatypes.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))

	w = postForm(t, router, map[string]string{"session_id": started.SessionID, "user_text": "black"})
	require.Equal(t, http.StatusOK, w.Code)
	var res datatypes.TurnResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)

	w = postForm(t, router, map[string]string{"session_id": started.SessionID, "user_text": "no idea"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, datatypes.OutcomeClarification, res.Outcome)
	assert.Equal(t, 1, stub.calls)

	w = postForm(t, router, map[string]string{"session_id": started.SessionID, "user_text": "moist"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, datatypes.OutcomeAutoFilled, res.Outcome)
	assert.Equal(t, datatypes.ParamSmell, res.Parameter)

	w = postForm(t, router, map[string]string{"session_id": started.SessionID, "user_text": "anything"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, datatypes.OutcomeSkipped, res.Outcome)
	assert.Equal(t, datatypes.ParamPH, res.Parameter)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `soil_assistant_questionnaire_turns_total{outcome="auto_filled"} 2`)
	assert.Contains(t, w.Body.String(), "soil_assistant_sessions_live 1")

	entries, err := svc.sqliteSink.ListSession(context.Background(), started.SessionID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestService_RunAndShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	cfg := testConfig(t)
	cfg.Server.Port = port
	svc, _ := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

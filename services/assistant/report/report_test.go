// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

func completedSession(t *testing.T) datatypes.SessionState {
	t.Helper()
	s := datatypes.NewSessionState("s-1", datatypes.LangHindi, time.Now())
	s.Answers.Set(datatypes.ParamColor, datatypes.ValidationResult{Value: "black"})
	ph := 6.8
	s.Answers.Set(datatypes.ParamPH, datatypes.ValidationResult{Value: "neutral", NumericValue: &ph})
	for !s.Cursor.Complete {
		s.Cursor = s.Cursor.Advance()
	}
	return s
}

type fakeGenerator struct {
	report any
	err    error
	block  chan struct{}
	got    Payload
}

func (f *fakeGenerator) Generate(ctx context.Context, p Payload) (any, error) {
	f.got = p
	if f.block != nil {
		<-f.block
	}
	return f.report, f.err
}

func TestNewPayload(t *testing.T) {
	p := NewPayload(completedSession(t))
	assert.Equal(t, "s-1", p.ID)
	assert.Equal(t, "black", p.SoilColor)
	assert.Equal(t, "6.8", p.PHLevel)
	assert.Equal(t, "hi", p.PreferredLanguage)
	assert.Empty(t, p.Location)
}

func TestService_Lifecycle(t *testing.T) {
	gen := &fakeGenerator{report: map[string]any{"summary": "healthy"}, block: make(chan struct{})}
	svc := NewService(gen, time.Second)

	assert.Equal(t, StatePending, svc.Status("s-1").Status)
	_, err := svc.Download("s-1")
	assert.ErrorIs(t, err, ErrNotReady)

	st, err := svc.Generate(context.Background(), completedSession(t))
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, st.Status)
	assert.Equal(t, 10, st.Progress)

	_, err = svc.Download("s-1")
	assert.ErrorIs(t, err, ErrNotReady)

	close(gen.block)
	svc.Wait()

	final := svc.Status("s-1")
	assert.Equal(t, StateCompleted, final.Status)
	assert.Equal(t, 100, final.Progress)
	rep, err := svc.Download("s-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"summary": "healthy"}, rep)
	assert.Equal(t, "s-1", gen.got.ID)

	svc.Forget("s-1")
	assert.Equal(t, StatePending, svc.Status("s-1").Status)
}

func TestService_Failures(t *testing.T) {
	svc := NewService(&fakeGenerator{err: errors.New("workflow exploded")}, time.Second)
	_, err := svc.Generate(context.Background(), completedSession(t))
	require.NoError(t, err)
	svc.Wait()
	st := svc.Status("s-1")
	assert.Equal(t, StateFailed, st.Status)
	assert.Zero(t, st.Progress)
	assert.Contains(t, st.Message, "workflow exploded")

	svc = NewService(&fakeGenerator{err: ErrTimeout}, time.Second)
	_, err = svc.Generate(context.Background(), completedSession(t))
	require.NoError(t, err)
	svc.Wait()
	assert.Equal(t, "Report generation timed out. Please try again.", svc.Status("s-1").Message)
}

func TestService_ForgetDuringGeneration(t *testing.T) {
	gen := &fakeGenerator{report: "done", block: make(chan struct{})}
	svc := NewService(gen, time.Second)

	_, err := svc.Generate(context.Background(), completedSession(t))
	require.NoError(t, err)
	svc.Forget("s-1")
	close(gen.block)
	svc.Wait()

	assert.Equal(t, StatePending, svc.Status("s-1").Status)
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	assert.Empty(t, svc.statuses)
}

func TestService_RejectsIncompleteSession(t *testing.T) {
	svc := NewService(&fakeGenerator{}, time.Second)
	s := datatypes.NewSessionState("s-2", datatypes.LangEnglish, time.Now())
	_, err := svc.Generate(context.Background(), s)
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Equal(t, StatePending, svc.Status("s-2").Status)
}

func TestWebhookClient(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		switch got.ID {
		case "json":
			w.Write([]byte(`{"recommendation":"add compost"}`))
		case "text":
			w.Write([]byte("SOIL SUMMARY\nDark, moist soil.\nActions:\nAdd compost.\nTest again in spring."))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()
	c := NewWebhookClient(server.URL, time.Second)

	rep, err := c.Generate(context.Background(), Payload{ID: "json", SoilColor: "black"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"recommendation": "add compost"}, rep)
	assert.Equal(t, "black", got.SoilColor)

	rep, err = c.Generate(context.Background(), Payload{ID: "text"})
	require.NoError(t, err)
	tr, ok := rep.(TextReport)
	require.True(t, ok)
	require.Len(t, tr.Sections, 2)
	assert.Equal(t, "SOIL SUMMARY", tr.Sections[0].Title)
	assert.Equal(t, []string{"Add compost.", "Test again in spring."}, tr.Sections[1].Content)

	_, err = c.Generate(context.Background(), Payload{ID: "bad"})
	assert.ErrorContains(t, err, "502")
}

func TestWebhookClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := NewWebhookClient(server.URL, 50*time.Millisecond).Generate(context.Background(), Payload{ID: "slow"})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestParseText(t *testing.T) {
	tr := ParseText("intro line\nRECOMMENDATIONS\n- lime\n\nNotes:\nnone")
	assert.Equal(t, "text_report", tr.Type)
	require.Len(t, tr.Sections, 2)
	assert.Equal(t, Section{Title: "RECOMMENDATIONS", Content: []string{"- lime"}}, tr.Sections[0])
	assert.Equal(t, Section{Title: "Notes", Content: []string{"none"}}, tr.Sections[1])
}

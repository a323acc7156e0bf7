// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package explainer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/llm"
)

type stubClient struct {
	reply      string
	err        error
	lastPrompt string
	lastParams llm.GenerationParams
}

func (s *stubClient) Generate(ctx context.Context, prompt string, params llm.GenerationParams) (string, error) {
	s.lastPrompt = prompt
	s.lastParams = params
	return s.reply, s.err
}

func request(lang datatypes.Language) questionnaire.ExplainRequest {
	return questionnaire.ExplainRequest{
		Parameter: datatypes.ParamSoilType,
		Language:  lang,
		Utterance: "not sure what loam is",
		Chunks:    []string{"Loam is a mix of sand, silt and clay.", "Clay feels sticky.", "Sand feels gritty."},
	}
}

func TestExplain_Success(t *testing.T) {
	client := &stubClient{reply: "  Rub moist soil between fingers.\n"}
	e := New(client, Config{Temperature: 0.7, MaxTokens: 200, ContextChunks: 2})

	got := e.Explain(context.Background(), request(datatypes.LangEnglish))

	assert.False(t, got.Fallback)
	assert.Equal(t, "Rub moist soil between fingers.", got.Text)
	assert.Contains(t, client.lastPrompt, "Loam is a mix")
	assert.Contains(t, client.lastPrompt, "Clay feels sticky.")
	assert.NotContains(t, client.lastPrompt, "Sand feels gritty.")
	assert.Contains(t, client.lastPrompt, `Farmer message: "not sure what loam is"`)
	assert.Contains(t, client.lastPrompt, "Parameter: soil type")
	require.NotNil(t, client.lastParams.MaxTokens)
	assert.Equal(t, 200, *client.lastParams.MaxTokens)
	assert.Equal(t, systemEN, client.lastParams.System)
}

func TestExplain_HindiPrompt(t *testing.T) {
	client := &stubClient{reply: "किसान भाई, मिट्टी को उंगलियों में रगड़ें।"}
	e := New(client, DefaultConfig())

	got := e.Explain(context.Background(), request(datatypes.LangHindi))

	assert.False(t, got.Fallback)
	assert.Contains(t, client.lastPrompt, "पैरामीटर: मिट्टी का प्रकार")
	assert.Equal(t, systemHI, client.lastParams.System)
}

func TestExplain_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		client llm.LLMClient
		lang   datatypes.Language
		reason string
		text   string
	}{
		{
			name:   "no client",
			client: nil,
			lang:   datatypes.LangEnglish,
			reason: ReasonDisabled,
			text:   "Sorry, there was an issue getting information about soil type. Please try again.",
		},
		{
			name:   "quota sentinel",
			client: &stubClient{err: fmt.Errorf("wrap: %w", llm.ErrQuotaExceeded)},
			lang:   datatypes.LangEnglish,
			reason: ReasonQuota,
			text:   "API quota exceeded. Please try again later.",
		},
		{
			name:   "quota in message",
			client: &stubClient{err: errors.New("Error 429, RESOURCE_EXHAUSTED")},
			lang:   datatypes.LangHindi,
			reason: ReasonQuota,
			text:   "किसान भाई, API की सीमा पूरी हो गई है। कृपया कुछ देर बाद पुनः प्रयास करें।",
		},
		{
			name:   "backend error",
			client: &stubClient{err: errors.New("connection refused")},
			lang:   datatypes.LangHindi,
			reason: ReasonBackend,
			text:   "माफ करें, मिट्टी का प्रकार के बारे में जानकारी प्राप्त करने में समस्या हुई। कृपया पुनः प्रयास करें।",
		},
		{
			name:   "blank reply",
			client: &stubClient{reply: "   "},
			lang:   datatypes.LangEnglish,
			reason: ReasonEmpty,
			text:   "Sorry, there was an issue getting information about soil type. Please try again.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.client, DefaultConfig())
			got := e.Explain(context.Background(), request(tt.lang))
			assert.True(t, got.Fallback)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, tt.text, got.Text)
		})
	}
}

func TestDisplayName_UnknownParameter(t *testing.T) {
	assert.Equal(t, "depth", DisplayName(datatypes.Parameter("depth"), datatypes.LangEnglish))
	assert.Equal(t, "pH", DisplayName(datatypes.ParamPH, datatypes.LangHindi))
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package explainer

import (
	"fmt"
	"strings"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

var displayNames = map[datatypes.Parameter][2]string{
	datatypes.ParamColor:          {"color", "रंग"},
	datatypes.ParamMoisture:       {"moisture", "नमी"},
	datatypes.ParamSmell:          {"smell", "गंध"},
	datatypes.ParamPH:             {"pH", "pH"},
	datatypes.ParamSoilType:       {"soil type", "मिट्टी का प्रकार"},
	datatypes.ParamEarthworms:     {"earthworms", "केंचुए"},
	datatypes.ParamLocation:       {"location", "स्थान"},
	datatypes.ParamFertilizerUsed: {"fertilizer", "खाद"},
}

// DisplayName is the human name of p in lang.
func DisplayName(p datatypes.Parameter, lang datatypes.Language) string {
	names, ok := displayNames[p]
	if !ok {
		return p.String()
	}
	if lang == datatypes.LangHindi {
		return names[1]
	}
	return names[0]
}

const systemEN = `You are a soil testing assistant for Indian farmers.
Speak in simple English, and explain step-by-step how to test the soil for the requested parameter.
Use only the provided context and do not invent information.`

const systemHI = `आप एक मिट्टी परीक्षण सहायक हैं जो भारतीय किसानों की मदद करता है।
सरल हिंदी में बात करें, उन्हें "किसान भाई" कहकर संबोधित करें, और चरणबद्ध तरीके से समझाएं कि
मांगे गए पैरामीटर के लिए मिट्टी का परीक्षण कैसे करें। केवल प्रदान किए गए संदर्भ का उपयोग करें
और जानकारी का आविष्कार न करें।`

const userEN = `Parameter: %s
Farmer message: "%s"

Using the context above, explain how the farmer should measure this parameter at home and what
the possible categories mean. Keep it short and actionable.`

const userHI = `पैरामीटर: %s
किसान का संदेश: "%s"

ऊपर दिए गए संदर्भ का उपयोग करते हुए, समझाएं कि किसान को घर पर इस पैरामीटर को कैसे मापना चाहिए
और संभावित श्रेणियों का क्या अर्थ है। इसे छोटा और व्यावहारिक रखें।`

// SystemPrompt returns the assistant persona for lang.
func SystemPrompt(lang datatypes.Language) string {
	if lang == datatypes.LangHindi {
		return systemHI
	}
	return systemEN
}

// UserPrompt renders the grounded request: the retrieved context followed by
// the parameter and the farmer's (already redacted) message. At most
// maxChunks snippets are included; maxChunks <= 0 includes all of them.
func UserPrompt(req questionnaire.ExplainRequest, maxChunks int) string {
	chunks := req.Chunks
	if maxChunks > 0 && len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}
	tmpl := userEN
	if req.Language == datatypes.LangHindi {
		tmpl = userHI
	}

	var sb strings.Builder
	sb.WriteString("Context from knowledge base:\n")
	sb.WriteString(strings.Join(chunks, "\n\n"))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, tmpl, DisplayName(req.Parameter, req.Language), req.Utterance)
	return sb.String()
}

// =============================================================================
// Fallback texts
// =============================================================================

// FallbackText is shown when the backend failed for a reason other than quota.
func FallbackText(p datatypes.Parameter, lang datatypes.Language) string {
	if lang == datatypes.LangHindi {
		return fmt.Sprintf("माफ करें, %s के बारे में जानकारी प्राप्त करने में समस्या हुई। कृपया पुनः प्रयास करें।", DisplayName(p, lang))
	}
	return fmt.Sprintf("Sorry, there was an issue getting information about %s. Please try again.", DisplayName(p, lang))
}

// QuotaText is shown when the backend reported an exhausted quota.
func QuotaText(lang datatypes.Language) string {
	if lang == datatypes.LangHindi {
		return "किसान भाई, API की सीमा पूरी हो गई है। कृपया कुछ देर बाद पुनः प्रयास करें।"
	}
	return "API quota exceeded. Please try again later."
}

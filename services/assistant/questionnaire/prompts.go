// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"fmt"
	"strings"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

type localized map[datatypes.Language]string

func (l localized) get(lang datatypes.Language) string {
	if s, ok := l[lang]; ok {
		return s
	}
	return l[datatypes.DefaultLanguage]
}

var questions = map[datatypes.Parameter]localized{
	datatypes.ParamColor: {
		datatypes.LangEnglish: "What is the color of your soil? (for example black, red, brown, yellow or grey)",
		datatypes.LangHindi:   "आपकी मिट्टी का रंग क्या है? (जैसे काला, लाल, भूरा, पीला या धूसर)",
	},
	datatypes.ParamMoisture: {
		datatypes.LangEnglish: "How moist is the soil? (dry, slightly moist, moist or wet)",
		datatypes.LangHindi:   "मिट्टी में कितनी नमी है? (सूखी, थोड़ी नम, नम या गीली)",
	},
	datatypes.ParamSmell: {
		datatypes.LangEnglish: "How does the soil smell? (earthy, sour, rotten or no smell)",
		datatypes.LangHindi:   "मिट्टी की गंध कैसी है? (मिट्टी जैसी, खट्टी, सड़ी हुई या कोई गंध नहीं)",
	},
	datatypes.ParamPH: {
		datatypes.LangEnglish: "What is the pH of your soil? Tell the number, or say acidic, neutral or alkaline.",
		datatypes.LangHindi:   "आपकी मिट्टी का pH क्या है? संख्या बताएं, या अम्लीय, सामान्य या क्षारीय कहें।",
	},
	datatypes.ParamSoilType: {
		datatypes.LangEnglish: "What type of soil is it? (clay, sandy, loamy, silty or black cotton)",
		datatypes.LangHindi:   "मिट्टी का प्रकार क्या है? (चिकनी, रेतीली, दोमट, गाद या काली कपास)",
	},
	datatypes.ParamEarthworms: {
		datatypes.LangEnglish: "Do you see earthworms in the soil? (none, few or many)",
		datatypes.LangHindi:   "क्या मिट्टी में केंचुए दिखते हैं? (नहीं, थोड़े या बहुत)",
	},
	datatypes.ParamLocation: {
		datatypes.LangEnglish: "Where is your field located? (village, district or state)",
		datatypes.LangHindi:   "आपका खेत कहाँ है? (गाँव, जिला या राज्य)",
	},
	datatypes.ParamFertilizerUsed: {
		datatypes.LangEnglish: "Which fertilizer did you use last season? (urea, DAP, compost, none, ...)",
		datatypes.LangHindi:   "पिछले मौसम में आपने कौन सी खाद डाली थी? (यूरिया, डीएपी, कम्पोस्ट, कोई नहीं, ...)",
	},
}

// Retrieval query prefixes. The utterance is appended after a single space.
var queryTemplates = map[datatypes.Parameter]localized{
	datatypes.ParamColor: {
		datatypes.LangEnglish: "How to identify soil color at home step by step",
		datatypes.LangHindi:   "घर पर मिट्टी का रंग कैसे पहचानें चरणबद्ध तरीके से",
	},
	datatypes.ParamMoisture: {
		datatypes.LangEnglish: "How to test soil moisture level at home step by step",
		datatypes.LangHindi:   "घर पर मिट्टी की नमी का स्तर कैसे जांचें चरणबद्ध तरीके से",
	},
	datatypes.ParamSmell: {
		datatypes.LangEnglish: "How to test soil smell at home step by step",
		datatypes.LangHindi:   "घर पर मिट्टी की गंध कैसे जांचें चरणबद्ध तरीके से",
	},
	datatypes.ParamPH: {
		datatypes.LangEnglish: "How to test soil pH at home step by step",
		datatypes.LangHindi:   "घर पर मिट्टी का pH कैसे जांचें चरणबद्ध तरीके से",
	},
	datatypes.ParamSoilType: {
		datatypes.LangEnglish: "How to identify soil type at home step by step",
		datatypes.LangHindi:   "घर पर मिट्टी का प्रकार कैसे पहचानें चरणबद्ध तरीके से",
	},
	datatypes.ParamEarthworms: {
		datatypes.LangEnglish: "How to check for earthworms in soil",
		datatypes.LangHindi:   "मिट्टी में केंचुए कैसे जांचें",
	},
	datatypes.ParamLocation: {
		datatypes.LangEnglish: "soil location and geography",
		datatypes.LangHindi:   "मिट्टी का स्थान और भूगोल",
	},
	datatypes.ParamFertilizerUsed: {
		datatypes.LangEnglish: "fertilizer types and usage",
		datatypes.LangHindi:   "खाद के प्रकार और उपयोग",
	},
}

var noInputReason = localized{
	datatypes.LangEnglish: "no input provided",
	datatypes.LangHindi:   "कोई इनपुट नहीं मिला",
}

var clarificationFallback = localized{
	datatypes.LangEnglish: "Please select from the options or try again to describe the %s.",
	datatypes.LangHindi:   "किसान भाई, %s की जांच के लिए कृपया विकल्पों में से चुनें या फिर से प्रयास करें।",
}

// Question returns the localized prompt for p. Unknown parameters yield the
// parameter identifier itself.
func Question(p datatypes.Parameter, lang datatypes.Language) string {
	q, ok := questions[p]
	if !ok {
		return p.String()
	}
	return q.get(lang)
}

// RetrievalQuery builds the retrieval query for a clarification turn.
func RetrievalQuery(p datatypes.Parameter, lang datatypes.Language, utterance string) string {
	base := p.String()
	if t, ok := queryTemplates[p]; ok {
		base = t.get(lang)
	}
	return base + " " + utterance
}

// Apology renders the localized "please try again" text around reason.
func Apology(lang datatypes.Language, reason string) string {
	if lang == datatypes.LangHindi {
		return fmt.Sprintf("माफ करें, %s। कृपया पुनः प्रयास करें।", reason)
	}
	return fmt.Sprintf("Sorry, %s. Please try again.", reason)
}

// NoInputApology is the text returned for a turn without usable input.
func NoInputApology(lang datatypes.Language) string {
	return Apology(lang, noInputReason.get(lang))
}

// FallbackClarification is used when the explainer produced no text at all.
func FallbackClarification(p datatypes.Parameter, lang datatypes.Language) string {
	name := strings.ReplaceAll(p.String(), "_", " ")
	return fmt.Sprintf(clarificationFallback.get(lang), name)
}

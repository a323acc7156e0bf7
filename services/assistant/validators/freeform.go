// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

const (
	minLocationRunes = 2
	maxLocationRunes = 120
)

// locationPrefixes are stripped from the front of a location answer.
var locationPrefixes = []string{
	"my field is in",
	"my farm is in",
	"my field is near",
	"the field is in",
	"i am from",
	"i'm from",
	"i live in",
	"it is in",
	"it's in",
	"near",
	"in",
	"मेरा खेत",
	"मैं",
}

// locationSuffixes are stripped from the end of a Hindi location answer.
var locationSuffixes = []string{
	"में है",
	"में",
	"से हूँ",
	"से हूं",
	"के पास",
}

// ValidateLocation accepts free text naming a place.
//
// # Description
//
// Leading filler ("my field is in", "I am from") is removed and the rest is
// kept verbatim. The answer is confident when it contains at least one
// letter and fits the length bounds; a purely numeric answer (a PIN code,
// say) is kept without confidence.
func ValidateLocation(utterance string, _ datatypes.Language) datatypes.ValidationResult {
	if IsUnknownAnswer(utterance) {
		return datatypes.ValidationResult{}
	}
	place := strings.TrimSpace(utterance)
	lower := strings.ToLower(place)
	for _, p := range locationPrefixes {
		if strings.HasPrefix(lower, p+" ") {
			place = strings.TrimSpace(place[len(p):])
			lower = strings.ToLower(place)
		}
	}
	for _, s := range locationSuffixes {
		if strings.HasSuffix(place, " "+s) {
			place = strings.TrimSpace(strings.TrimSuffix(place, s))
		}
	}
	place = strings.TrimFunc(place, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || r == '।'
	})

	n := utf8.RuneCountInString(place)
	if n < minLocationRunes || n > maxLocationRunes {
		return datatypes.ValidationResult{}
	}
	return datatypes.ValidationResult{Value: place, Confident: strings.IndexFunc(place, unicode.IsLetter) >= 0}
}

// ValidateFertilizer matches known fertilizers; an unrecognised product name
// is kept verbatim without confidence so the clarification path can help.
func ValidateFertilizer(utterance string, lang datatypes.Language) datatypes.ValidationResult {
	res := matchTable(utterance, fertilizerTable)
	if res.HasValue() || IsUnknownAnswer(utterance) {
		return res
	}
	norm := normalize(utterance)
	if utf8.RuneCountInString(norm) < minLocationRunes || strings.IndexFunc(norm, unicode.IsLetter) < 0 {
		return datatypes.ValidationResult{}
	}
	return datatypes.ValidationResult{Value: norm}
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package validators

import (
	"regexp"
	"strconv"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// pH categories.
const (
	PHAcidic   = "acidic"
	PHNeutral  = "neutral"
	PHAlkaline = "alkaline"
)

const (
	phMin          = 0.0
	phMax          = 14.0
	phNeutralLower = 6.5
	phNeutralUpper = 7.5
)

var phNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ValidatePH extracts a pH reading.
//
// # Description
//
// The first number in [0,14] wins and is categorized as acidic below 6.5,
// neutral up to 7.5 inclusive, and alkaline above. Both the category and
// the number are returned. Without a usable number the category words of
// both languages are matched the same way as other enumerated parameters.
//
// # Examples
//
//	ValidatePH("ph is 6.8", "en")  // {Value: "neutral", Confident: true, NumericValue: 6.8}
//	ValidatePH("अम्लीय", "hi")     // {Value: "acidic", Confident: true}
//	ValidatePH("pH 42", "en")      // {} (out of range)
func ValidatePH(utterance string, _ datatypes.Language) datatypes.ValidationResult {
	norm := normalize(utterance)
	if norm == "" || IsUnknownAnswer(norm) {
		return datatypes.ValidationResult{}
	}
	for _, m := range phNumber.FindAllString(norm, -1) {
		n, err := strconv.ParseFloat(m, 64)
		if err != nil || n < phMin || n > phMax {
			continue
		}
		return datatypes.ValidationResult{
			Value:        PHCategory(n),
			Confident:    true,
			NumericValue: &n,
		}
	}
	return matchTable(norm, phWordTable)
}

// PHCategory maps a pH reading to its category.
func PHCategory(ph float64) string {
	switch {
	case ph < phNeutralLower:
		return PHAcidic
	case ph <= phNeutralUpper:
		return PHNeutral
	default:
		return PHAlkaline
	}
}

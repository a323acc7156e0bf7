// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package questionnaire

import (
	"math"
	"unicode/utf8"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// Fusion weights. The deterministic validator carries most of the weight.
const (
	WeightTranscription = 0.20
	WeightValidator     = 0.60
	WeightGeneration    = 0.20
)

// Validator confidence levels.
const (
	ValidatorConfidentValue = 0.95
	ValidatorTentativeValue = 0.80
	ValidatorNoValue        = 0.20
)

// Generation confidence levels, derived from response shape only.
const (
	GenerationShort    = 0.40
	GenerationGrounded = 0.85
	GenerationPartial  = 0.70
	GenerationUnsure   = 0.50

	shortResponseRunes    = 20
	groundedResponseRunes = 100
	groundedMinChunks     = 3
)

// Fuse combines the three confidence signals into one score in [0,1].
//
// # Description
//
// combined = clamp(0.20*transcription + 0.60*validator + 0.20*generation).
// Each input is clamped to [0,1] first and NaN counts as 0, so the result is
// always within [0,1].
func Fuse(transcription, validator, generation float64) float64 {
	combined := WeightTranscription*unit(transcription) +
		WeightValidator*unit(validator) +
		WeightGeneration*unit(generation)
	return unit(combined)
}

// ValidatorConfidence maps a validation result to its fixed confidence.
func ValidatorConfidence(v datatypes.ValidationResult) float64 {
	switch {
	case v.HasValue() && v.Confident:
		return ValidatorConfidentValue
	case v.HasValue():
		return ValidatorTentativeValue
	default:
		return ValidatorNoValue
	}
}

// GenerationConfidence estimates explainer confidence from response shape.
//
// # Description
//
// Lengths are counted in runes so Devanagari text is measured the same way
// as Latin text.
func GenerationConfidence(text string, chunks int) float64 {
	n := utf8.RuneCountInString(text)
	switch {
	case n < shortResponseRunes:
		return GenerationShort
	case chunks >= groundedMinChunks && n > groundedResponseRunes:
		return GenerationGrounded
	case chunks >= 1:
		return GenerationPartial
	default:
		return GenerationUnsure
	}
}

// unit clamps x to [0,1], mapping NaN to 0.
func unit(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package validators holds the deterministic per-parameter extractors.
//
// # Description
//
// Each extractor is a pure function of (utterance, language). An exact
// phrase match in the parameter's table yields a confident value; a close
// spelling of a table entry yields the same value without confidence; an
// explicit "don't know" or no match yields no value.
//
// # Thread Safety
//
// Extractors are stateless. A Registry is safe for concurrent reads once
// built.
package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

// =============================================================================
// Registry
// =============================================================================

// Registry maps every parameter to its extractor.
//
// # Description
//
// A parameter that has been disabled has no extractor and is therefore
// auto-skipped by the questionnaire engine.
type Registry struct {
	byParam map[datatypes.Parameter]questionnaire.Validator
}

var _ questionnaire.ValidatorSet = (*Registry)(nil)

// NewRegistry returns a registry with the built-in extractor of every
// parameter except those listed in disabled.
func NewRegistry(disabled ...datatypes.Parameter) *Registry {
	r := &Registry{byParam: map[datatypes.Parameter]questionnaire.Validator{
		datatypes.ParamColor:          tableValidator(colorTable),
		datatypes.ParamMoisture:       tableValidator(moistureTable),
		datatypes.ParamSmell:          tableValidator(smellTable),
		datatypes.ParamPH:             questionnaire.ValidatorFunc(ValidatePH),
		datatypes.ParamSoilType:       tableValidator(soilTypeTable),
		datatypes.ParamEarthworms:     tableValidator(earthwormTable),
		datatypes.ParamLocation:       questionnaire.ValidatorFunc(ValidateLocation),
		datatypes.ParamFertilizerUsed: questionnaire.ValidatorFunc(ValidateFertilizer),
	}}
	for _, p := range disabled {
		delete(r.byParam, p)
	}
	return r
}

// Lookup implements questionnaire.ValidatorSet.
func (r *Registry) Lookup(p datatypes.Parameter) (questionnaire.Validator, bool) {
	v, ok := r.byParam[p]
	return v, ok
}

// Enabled lists the parameters that have an extractor, in questionnaire
// order.
func (r *Registry) Enabled() []datatypes.Parameter {
	var out []datatypes.Parameter
	for _, p := range datatypes.ParameterOrder() {
		if _, ok := r.byParam[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// =============================================================================
// Table matching
// =============================================================================

func tableValidator(table []synonym) questionnaire.Validator {
	return questionnaire.ValidatorFunc(func(u string, _ datatypes.Language) datatypes.ValidationResult {
		return matchTable(u, table)
	})
}

// matchTable runs the exact-then-fuzzy lookup shared by every enumerated
// parameter.
func matchTable(utterance string, table []synonym) datatypes.ValidationResult {
	norm := normalize(utterance)
	if norm == "" || IsUnknownAnswer(norm) {
		return datatypes.ValidationResult{}
	}
	if v, ok := exactMatch(norm, table); ok {
		return datatypes.ValidationResult{Value: v, Confident: true}
	}
	if v, ok := fuzzyMatch(norm, table); ok {
		return datatypes.ValidationResult{Value: v}
	}
	return datatypes.ValidationResult{}
}

func exactMatch(norm string, table []synonym) (string, bool) {
	padded := " " + norm + " "
	for _, s := range table {
		if strings.Contains(padded, " "+s.phrase+" ") {
			return s.value, true
		}
	}
	return "", false
}

const (
	minFuzzyRunes = 3
	maxFuzzySlack = 2
)

// fuzzyMatch tries each word of the utterance against the single-word
// phrases of table. A candidate counts only when the word is an in-order
// subsequence of it and at most maxFuzzySlack runes shorter, which accepts
// dropped letters ("blak", "yelow") without matching unrelated words.
func fuzzyMatch(norm string, table []synonym) (string, bool) {
	words := make([]string, 0, len(table))
	values := make([]string, 0, len(table))
	for _, s := range table {
		if strings.ContainsRune(s.phrase, ' ') {
			continue
		}
		words = append(words, s.phrase)
		values = append(values, s.value)
	}

	bestScore := 0
	best := ""
	for _, tok := range strings.Fields(norm) {
		n := utf8.RuneCountInString(tok)
		if n < minFuzzyRunes {
			continue
		}
		for _, m := range fuzzy.Find(tok, words) {
			slack := utf8.RuneCountInString(m.Str) - n
			if slack < 0 || slack > maxFuzzySlack {
				continue
			}
			if best == "" || m.Score > bestScore {
				best = values[m.Index]
				bestScore = m.Score
			}
		}
	}
	return best, best != ""
}

// IsUnknownAnswer reports whether the utterance says the user does not
// know the answer.
func IsUnknownAnswer(utterance string) bool {
	norm := normalize(utterance)
	padded := " " + norm + " "
	for _, p := range unknownPhrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// normalize lowercases, converts Devanagari digits, and collapses every run
// of punctuation or space to a single space. Apostrophes and decimal points
// between digits are kept.
func normalize(s string) string {
	runes := []rune(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(s))
	space := true
	emit := func(r rune) {
		b.WriteRune(r)
		space = false
	}
	for i, r := range runes {
		switch {
		case r >= '०' && r <= '९':
			emit('0' + (r - '०'))
		case r == '\'' || r == '’':
			emit('\'')
		case r == '.' && i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]):
			emit('.')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r):
			emit(r)
		default:
			if !space {
				b.WriteByte(' ')
				space = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= '०' && r <= '९')
}

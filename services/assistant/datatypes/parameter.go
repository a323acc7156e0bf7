// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package datatypes provides the data model shared by the soil assistant
// service: questionnaire parameters, languages, the answer record, session
// state and the per-turn result and audit structures.
package datatypes

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Parameters
// =============================================================================

// Parameter identifies one soil-test question in the fixed questionnaire.
type Parameter string

const (
	ParamColor          Parameter = "color"
	ParamMoisture       Parameter = "moisture"
	ParamSmell          Parameter = "smell"
	ParamPH             Parameter = "ph"
	ParamSoilType       Parameter = "soil_type"
	ParamEarthworms     Parameter = "earthworms"
	ParamLocation       Parameter = "location"
	ParamFertilizerUsed Parameter = "fertilizer_used"
)

// parameterOrder is the total, immutable questionnaire order.
var parameterOrder = [...]Parameter{
	ParamColor,
	ParamMoisture,
	ParamSmell,
	ParamPH,
	ParamSoilType,
	ParamEarthworms,
	ParamLocation,
	ParamFertilizerUsed,
}

// TotalSteps is the number of parameters in the questionnaire.
const TotalSteps = len(parameterOrder)

// ErrUnknownParameter is returned when parsing an identifier outside the
// fixed parameter set.
var ErrUnknownParameter = errors.New("unknown parameter")

// ParameterOrder returns a copy of the questionnaire order.
//
// # Description
//
// The returned slice is a fresh copy; callers may modify it without
// affecting the package-level order.
func ParameterOrder() []Parameter {
	out := make([]Parameter, len(parameterOrder))
	copy(out, parameterOrder[:])
	return out
}

// FirstParameter returns the parameter every new session starts at.
func FirstParameter() Parameter {
	return parameterOrder[0]
}

// Index returns the zero-based position of p in the order, or -1.
func (p Parameter) Index() int {
	for i, candidate := range parameterOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p belongs to the fixed parameter set.
func (p Parameter) Valid() bool {
	return p.Index() >= 0
}

// Next returns the parameter that follows p.
//
// # Outputs
//
//   - Parameter: The next parameter in order (zero value if none).
//   - bool: False when p is the last parameter or is not a known parameter.
func (p Parameter) Next() (Parameter, bool) {
	idx := p.Index()
	if idx < 0 || idx+1 >= len(parameterOrder) {
		return "", false
	}
	return parameterOrder[idx+1], true
}

// StepNumber returns the 1-based step of p, or 0 for unknown parameters.
func (p Parameter) StepNumber() int {
	return p.Index() + 1
}

func (p Parameter) String() string {
	return string(p)
}

// ParseParameter converts a wire identifier into a Parameter.
func ParseParameter(s string) (Parameter, error) {
	p := Parameter(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownParameter, s)
	}
	return p, nil
}

// =============================================================================
// Languages
// =============================================================================

// Language is one of the supported conversation languages.
type Language string

const (
	LangEnglish Language = "en"
	LangHindi   Language = "hi"
)

// DefaultLanguage is used when a request does not specify one.
const DefaultLanguage = LangEnglish

// ErrInvalidLanguage is returned for language tags outside the supported set.
var ErrInvalidLanguage = errors.New("unsupported language")

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	return l == LangEnglish || l == LangHindi
}

func (l Language) String() string {
	return string(l)
}

// ParseLanguage validates a language tag. An empty tag yields DefaultLanguage.
func ParseLanguage(s string) (Language, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultLanguage, nil
	}
	l := Language(s)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return l, nil
}

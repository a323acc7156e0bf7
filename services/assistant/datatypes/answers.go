// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package datatypes

import "strings"

// ValidationResult is the output of a deterministic parameter extractor.
//
// # Fields
//
//   - Value: Extracted canonical value. Empty means nothing was extracted.
//   - Confident: True when the extractor matched an exact known option.
//   - NumericValue: Secondary numeric reading (only pH uses it).
//
// A ValidationResult is produced fresh per turn and never mutated.
type ValidationResult struct {
	Value        string   `json:"value,omitempty"`
	Confident    bool     `json:"confident"`
	NumericValue *float64 `json:"numeric_value,omitempty"`
}

// HasValue reports whether a non-blank value was extracted.
func (v ValidationResult) HasValue() bool {
	return strings.TrimSpace(v.Value) != ""
}

// AnswerRecord holds one optional value per questionnaire parameter.
//
// # Description
//
// Fields are written only by the progression step of a turn, after an
// auto-fill decision. A field that has been set is never cleared. The pH
// parameter writes both PHCategory and, when the reading was numeric, PHValue.
type AnswerRecord struct {
	Color          *string  `json:"color"`
	Moisture       *string  `json:"moisture"`
	Smell          *string  `json:"smell"`
	PHCategory     *string  `json:"ph_category"`
	PHValue        *float64 `json:"ph_value"`
	SoilType       *string  `json:"soil_type"`
	Earthworms     *string  `json:"earthworms"`
	Location       *string  `json:"location"`
	FertilizerUsed *string  `json:"fertilizer_used"`
}

// Set records the validated value for p.
//
// # Outputs
//
//   - bool: True if a field was written. Blank values and unknown
//     parameters write nothing.
func (a *AnswerRecord) Set(p Parameter, v ValidationResult) bool {
	if !v.HasValue() {
		return false
	}
	value := strings.TrimSpace(v.Value)
	switch p {
	case ParamColor:
		a.Color = &value
	case ParamMoisture:
		a.Moisture = &value
	case ParamSmell:
		a.Smell = &value
	case ParamPH:
		a.PHCategory = &value
		if v.NumericValue != nil {
			n := *v.NumericValue
			a.PHValue = &n
		}
	case ParamSoilType:
		a.SoilType = &value
	case ParamEarthworms:
		a.Earthworms = &value
	case ParamLocation:
		a.Location = &value
	case ParamFertilizerUsed:
		a.FertilizerUsed = &value
	default:
		return false
	}
	return true
}

// Get returns the recorded categorical value for p.
func (a *AnswerRecord) Get(p Parameter) (string, bool) {
	var field *string
	switch p {
	case ParamColor:
		field = a.Color
	case ParamMoisture:
		field = a.Moisture
	case ParamSmell:
		field = a.Smell
	case ParamPH:
		field = a.PHCategory
	case ParamSoilType:
		field = a.SoilType
	case ParamEarthworms:
		field = a.Earthworms
	case ParamLocation:
		field = a.Location
	case ParamFertilizerUsed:
		field = a.FertilizerUsed
	}
	if field == nil {
		return "", false
	}
	return *field, true
}

// Filled returns how many parameters have a recorded value.
func (a *AnswerRecord) Filled() int {
	n := 0
	for _, p := range parameterOrder {
		if _, ok := a.Get(p); ok {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so snapshots never alias session state.
func (a AnswerRecord) Clone() AnswerRecord {
	return AnswerRecord{
		Color:          cloneString(a.Color),
		Moisture:       cloneString(a.Moisture),
		Smell:          cloneString(a.Smell),
		PHCategory:     cloneString(a.PHCategory),
		PHValue:        cloneFloat(a.PHValue),
		SoilType:       cloneString(a.SoilType),
		Earthworms:     cloneString(a.Earthworms),
		Location:       cloneString(a.Location),
		FertilizerUsed: cloneString(a.FertilizerUsed),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

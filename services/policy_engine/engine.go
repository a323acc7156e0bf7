// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package policy_engine detects and redacts personal data in farmer
// utterances before they leave the process.
package policy_engine

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/policy_engine/enforcement"
)

// PolicyEngine holds the compiled pattern set.
//
// # Thread Safety
//
// Immutable after construction; safe for concurrent use.
type PolicyEngine struct {
	Classifiers []Classification
}

var _ questionnaire.Redactor = (*PolicyEngine)(nil)

// NewPolicyEngine loads the patterns embedded in the binary.
func NewPolicyEngine() (*PolicyEngine, error) {
	return NewPolicyEngineFromYAML(enforcement.PIIPatterns)
}

// NewPolicyEngineFromYAML builds an engine from a pattern file.
//
// # Description
//
// Unmarshals the YAML, compiles every regex and sorts classifications by
// priority so higher-priority patterns redact first.
//
// # Outputs
//
//   - *PolicyEngine: Ready engine.
//   - error: Non-nil if the YAML is malformed or a regex is invalid.
func NewPolicyEngineFromYAML(data []byte) (*PolicyEngine, error) {
	var file PatternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the pattern file: %w", err)
	}
	if err := file.Compile(); err != nil {
		return nil, fmt.Errorf("failed to compile a regex %w", err)
	}
	file.SortByPriority()
	return &PolicyEngine{Classifiers: file.Classifications}, nil
}

// Redact implements questionnaire.Redactor. Patterns are applied in
// priority order, so a span claimed by a higher-priority pattern is already
// a token when lower ones run.
func (e *PolicyEngine) Redact(text string) string {
	for _, c := range e.Classifiers {
		for _, p := range c.Patterns {
			text = p.compiledPattern.ReplaceAllLiteralString(text, p.Replacement)
		}
	}
	return text
}

// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package enforcement embeds the PII pattern file into the binary.
package enforcement

import (
	_ "embed"
)

// PIIPatterns holds the raw content of pii_patterns.yaml.
//
// Usage:
//
//	err := yaml.Unmarshal(enforcement.PIIPatterns, &targetStruct)
//
//go:embed pii_patterns.yaml
var PIIPatterns []byte

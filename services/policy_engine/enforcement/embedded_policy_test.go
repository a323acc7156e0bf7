// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package enforcement

import (
	"crypto/sha256"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestEmbeddedDataIntegrity(t *testing.T) {
	if len(PIIPatterns) == 0 {
		t.Fatal("Embedded pattern data is empty. Did the build fail to include 'pii_patterns.yaml'?")
	}

	var dump struct {
		Classifications []map[string]interface{} `yaml:"classifications"`
	}
	if err := yaml.Unmarshal(PIIPatterns, &dump); err != nil {
		t.Fatalf("Embedded data is not valid YAML: %v", err)
	}
	if len(dump.Classifications) == 0 {
		t.Fatal("there are no classifications in the pattern file")
	}

	hash := sha256.Sum256(PIIPatterns)
	t.Logf("Current pattern hash: %x", hash)
}

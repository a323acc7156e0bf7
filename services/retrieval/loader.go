// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package retrieval

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
)

// LoadSnippets reads a knowledge-base directory.
//
// # Description
//
// Every .md or .txt file is split into paragraphs on blank lines. The file
// name selects the tags: "<parameter>.<lang>.md" or "<parameter>.md"
// (English). Files whose stem is not a known parameter are tagged general.
//
// # Outputs
//
//   - []Snippet: Snippets in file-name order.
//   - error: Non-nil if the directory or a file cannot be read.
func LoadSnippets(dir string) ([]Snippet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".md" && ext != ".txt") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var out []Snippet
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		param, lang := tagsFromName(name)
		for _, para := range splitParagraphs(string(data)) {
			out = append(out, Snippet{Content: para, Parameter: param, Language: lang, Source: name})
		}
	}
	return out, nil
}

func tagsFromName(name string) (string, string) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	lang := datatypes.LangEnglish.String()
	if i := strings.LastIndex(stem, "."); i >= 0 {
		if l, err := datatypes.ParseLanguage(stem[i+1:]); err == nil {
			lang = l.String()
			stem = stem[:i]
		}
	}
	if p, err := datatypes.ParseParameter(stem); err == nil {
		return p.String(), lang
	}
	return GeneralParameter, lang
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if para := strings.TrimSpace(block); para != "" {
			out = append(out, para)
		}
	}
	return out
}

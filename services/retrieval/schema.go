// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// DefaultClassName is the Weaviate class holding knowledge-base snippets.
const DefaultClassName = "SoilKnowledge"

// GeneralParameter tags snippets that apply to every parameter.
const GeneralParameter = "general"

// KnowledgeSchema describes the snippet class. Vectors are supplied by the
// caller, so the class has no vectorizer.
func KnowledgeSchema(className string) *models.Class {
	indexFilterable := new(bool)
	*indexFilterable = true

	return &models.Class{
		Class:       className,
		Description: "Soil testing knowledge-base snippets used to ground clarifications.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:         "content",
				DataType:     []string{"text"},
				Description:  "Snippet text.",
				Tokenization: "word",
			},
			{
				Name:            "parameter",
				DataType:        []string{"text"},
				Description:     "Questionnaire parameter the snippet explains, or general.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "language",
				DataType:        []string{"text"},
				Description:     "Language tag of the snippet.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "source",
				DataType:        []string{"text"},
				Description:     "File the snippet was ingested from.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
		},
	}
}

// EnsureSchema creates the snippet class when it does not exist yet.
func EnsureSchema(ctx context.Context, client *weaviate.Client, className string) error {
	if _, err := client.Schema().ClassGetter().WithClassName(className).Do(ctx); err == nil {
		slog.Info("Schema already exists", "class", className)
		return nil
	}
	slog.Info("Schema not found, creating it...", "class", className)
	if err := client.Schema().ClassCreator().WithClass(KnowledgeSchema(className)).Do(ctx); err != nil {
		return fmt.Errorf("create schema for class %s: %w", className, err)
	}
	return nil
}

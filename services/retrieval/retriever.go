// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package retrieval finds knowledge-base snippets for clarification turns.
//
// # Description
//
// Snippets live in a Weaviate class with caller-supplied vectors. A query is
// embedded, searched with nearVector and filtered to snippets tagged with
// the current parameter or as general. The Retriever implements
// questionnaire.Retriever.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
)

var tracer = otel.Tracer("agrovers.retrieval")

// Snippet is one knowledge-base entry.
type Snippet struct {
	Content   string `json:"content"`
	Parameter string `json:"parameter"`
	Language  string `json:"language"`
	Source    string `json:"source"`
}

// index is the vector store the Retriever talks to.
type index interface {
	Ready(ctx context.Context) (bool, error)
	Search(ctx context.Context, vector []float32, parameter string, k int) ([]Snippet, error)
	Add(ctx context.Context, s Snippet, vector []float32) error
}

// Retriever implements questionnaire.Retriever over a Weaviate class.
//
// # Thread Safety
//
// Safe for concurrent use.
type Retriever struct {
	idx      index
	embedder Embedder
}

var _ questionnaire.Retriever = (*Retriever)(nil)

// NewRetriever creates a retriever searching className.
func NewRetriever(client *weaviate.Client, embedder Embedder, className string) *Retriever {
	if className == "" {
		className = DefaultClassName
	}
	return &Retriever{idx: &weaviateIndex{client: client, class: className}, embedder: embedder}
}

// IsReady reports whether the index answers queries. Any error counts as
// not ready.
func (r *Retriever) IsReady(ctx context.Context) bool {
	if r.embedder == nil {
		return false
	}
	ok, err := r.idx.Ready(ctx)
	if err != nil {
		slog.Debug("retrieval index not ready", "error", err)
		return false
	}
	return ok
}

// Retrieve returns up to k snippet texts for query.
func (r *Retriever) Retrieve(ctx context.Context, query string, p datatypes.Parameter, lang datatypes.Language, k int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Retriever.Retrieve")
	defer span.End()
	span.SetAttributes(
		attribute.String("retrieval.parameter", p.String()),
		attribute.Int("retrieval.k", k),
	)

	if k <= 0 {
		return []string{}, nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embed query: %w", err)
	}
	snippets, err := r.idx.Search(ctx, vector, p.String(), k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if text := strings.TrimSpace(s.Content); text != "" {
			out = append(out, text)
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	span.SetAttributes(attribute.Int("retrieval.results", len(out)))
	return out, nil
}

// Ingest embeds and stores snippets, returning how many were stored before
// the first failure.
func (r *Retriever) Ingest(ctx context.Context, snippets []Snippet) (int, error) {
	if r.embedder == nil {
		return 0, errors.New("no embedder configured")
	}
	for i, s := range snippets {
		vector, err := r.embedder.Embed(ctx, s.Content)
		if err != nil {
			return i, fmt.Errorf("embed snippet from %s: %w", s.Source, err)
		}
		if err := r.idx.Add(ctx, s, vector); err != nil {
			return i, fmt.Errorf("store snippet from %s: %w", s.Source, err)
		}
	}
	return len(snippets), nil
}

// =============================================================================
// Weaviate index
// =============================================================================

type weaviateIndex struct {
	client *weaviate.Client
	class  string
}

func (w *weaviateIndex) Ready(ctx context.Context) (bool, error) {
	ready, err := w.client.Misc().ReadyChecker().Do(ctx)
	if err != nil || !ready {
		return false, err
	}
	if _, err := w.client.Schema().ClassGetter().WithClassName(w.class).Do(ctx); err != nil {
		return false, fmt.Errorf("class %s missing: %w", w.class, err)
	}
	return true, nil
}

func (w *weaviateIndex) Search(ctx context.Context, vector []float32, parameter string, k int) ([]Snippet, error) {
	where := filters.Where().
		WithOperator(filters.Or).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().WithPath([]string{"parameter"}).WithOperator(filters.Equal).WithValueString(parameter),
			filters.Where().WithPath([]string{"parameter"}).WithOperator(filters.Equal).WithValueString(GeneralParameter),
		})

	nearVector := w.client.GraphQL().NearVectorArgBuilder().WithVector(vector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "parameter"},
		{Name: "language"},
		{Name: "source"},
	}

	result, err := w.client.GraphQL().Get().
		WithClassName(w.class).
		WithFields(fields...).
		WithWhere(where).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	return parseSnippets(result, w.class)
}

func (w *weaviateIndex) Add(ctx context.Context, s Snippet, vector []float32) error {
	_, err := w.client.Data().Creator().
		WithClassName(w.class).
		WithProperties(map[string]interface{}{
			"content":   s.Content,
			"parameter": s.Parameter,
			"language":  s.Language,
			"source":    s.Source,
		}).
		WithVector(vector).
		Do(ctx)
	return err
}

// parseSnippets decodes a Get query answer for className.
func parseSnippets(resp *models.GraphQLResponse, className string) ([]Snippet, error) {
	if resp == nil {
		return nil, fmt.Errorf("nil GraphQL response")
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			if e != nil {
				msgs = append(msgs, e.Message)
			}
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
	}

	respBytes, err := json.Marshal(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL response data: %w", err)
	}
	var parsed struct {
		Get map[string][]Snippet `json:"Get"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snippets: %w", err)
	}
	return parsed.Get[className], nil
}

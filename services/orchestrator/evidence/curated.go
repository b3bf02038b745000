// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package evidence retrieves and merges supporting material for a
// query from two places: a curated corpus (Weaviate, or a YAML file in
// lightweight mode) and a live web search. The Aggregator fans the
// lookups out concurrently and folds the results into a single
// EvidenceBundle.
package evidence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// evidenceTracer is the OpenTelemetry tracer for evidence retrieval.
var evidenceTracer = otel.Tracer("fairagent.orchestrator.evidence")

// CuratedEvidenceClassName is the Weaviate class holding the vetted
// corpus.
const CuratedEvidenceClassName = "CuratedEvidence"

// CuratedStore looks up evidence in the vetted domain corpus.
//
// Implementations must be safe for concurrent use and must respect
// context cancellation; the aggregator calls Search under a per-source
// timeout.
type CuratedStore interface {
	// Search returns up to limit sources relevant to the query within
	// the given domain, best match first. An empty result with a nil
	// error means the corpus simply has nothing relevant.
	Search(ctx context.Context, query string, domain datatypes.Domain, limit int) ([]datatypes.EvidenceSource, error)
}

// Compile-time interface implementation checks.
var (
	_ CuratedStore = (*WeaviateStore)(nil)
	_ CuratedStore = (*FileStore)(nil)
)

// =============================================================================
// WeaviateStore
// =============================================================================

// WeaviateStore retrieves curated evidence with semantic (nearText)
// search over the CuratedEvidence class.
type WeaviateStore struct {
	client *weaviate.Client
}

// NewWeaviateStore creates a WeaviateStore.
//
// Returns an error if client is nil. It does not probe the server;
// connectivity problems surface on the first Search call.
func NewWeaviateStore(client *weaviate.Client) (*WeaviateStore, error) {
	if client == nil {
		return nil, errors.New("weaviate client must not be nil")
	}
	return &WeaviateStore{client: client}, nil
}

// Search implements CuratedStore using a nearText query filtered to the
// requested domain. The _additional certainty is not surfaced to
// callers; ranking is delegated to Weaviate and result order is kept.
func (s *WeaviateStore) Search(ctx context.Context, query string, domain datatypes.Domain, limit int) ([]datatypes.EvidenceSource, error) {
	ctx, span := evidenceTracer.Start(ctx, "WeaviateStore.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("evidence.domain", string(domain)),
		attribute.Int("evidence.limit", limit),
	)

	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = datatypes.MaxCuratedSources
	}

	whereFilter := filters.Where().
		WithPath([]string{"domain"}).
		WithOperator(filters.Equal).
		WithValueString(string(domain))

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "title"},
		{Name: "content"},
		{Name: "locator"},
		{Name: "reliability"},
		{Name: "domain"},
		{Name: "_additional { certainty distance }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(CuratedEvidenceClassName).
		WithFields(fields...).
		WithWhere(whereFilter).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("curated search: %w", err)
	}
	if len(result.Errors) > 0 {
		err := fmt.Errorf("curated search error: %s", result.Errors[0].Message)
		span.RecordError(err)
		return nil, err
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	objects, ok := data[CuratedEvidenceClassName].([]interface{})
	if !ok {
		return nil, nil
	}

	sources := make([]datatypes.EvidenceSource, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue // skip malformed objects
		}
		sources = append(sources, datatypes.EvidenceSource{
			Title:       getString(m, "title"),
			Content:     getString(m, "content"),
			Locator:     getString(m, "locator"),
			Reliability: getFloat64(m, "reliability"),
			Origin:      datatypes.OriginCurated,
			Domain:      domain,
		})
	}

	span.SetAttributes(attribute.Int("evidence.results", len(sources)))
	return sources, nil
}

// VerifySchema checks that the curated evidence class exists. It is a
// startup probe, not a migration: provisioning the class and importing
// the corpus is an operator task.
func (s *WeaviateStore) VerifySchema(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(CuratedEvidenceClassName).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if !exists {
		return fmt.Errorf("weaviate class %q does not exist; import the curated corpus first", CuratedEvidenceClassName)
	}
	return nil
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getFloat64(m map[string]interface{}, key string) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return 0
}

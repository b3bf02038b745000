// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"log/slog"
	"time"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// AggregatorConfig bounds each evidence lookup.
type AggregatorConfig struct {
	// CuratedTimeout caps a single curated store lookup.
	CuratedTimeout time.Duration

	// LiveTimeout caps a single live search, including its rate
	// limiter wait.
	LiveTimeout time.Duration
}

// DefaultAggregatorConfig returns the standard lookup budgets.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		CuratedTimeout: 10 * time.Second,
		LiveTimeout:    20 * time.Second,
	}
}

// Aggregator fans evidence lookups out to the curated store and the
// live provider and merges the results into one bundle.
//
// Failure containment is the core contract: a source that errors or
// times out contributes nothing, but never fails the query. A question
// must still get an answer when Weaviate is down or the search quota is
// gone; it just gets a lower-confidence one.
type Aggregator struct {
	curated CuratedStore
	live    LiveProvider
	config  AggregatorConfig
}

// NewAggregator creates an Aggregator. Either source may be nil, which
// disables it; both nil yields empty bundles with NoEvidence set.
func NewAggregator(curated CuratedStore, live LiveProvider) *Aggregator {
	return &Aggregator{
		curated: curated,
		live:    live,
		config:  DefaultAggregatorConfig(),
	}
}

// NewAggregatorWithConfig creates an Aggregator with custom timeouts.
func NewAggregatorWithConfig(curated CuratedStore, live LiveProvider, config AggregatorConfig) *Aggregator {
	return &Aggregator{curated: curated, live: live, config: config}
}

// Gather collects evidence for a query from both sources concurrently.
//
// # Description
//
// Runs the curated lookup and (unless skipLive is set) the live search
// in parallel, each under its own timeout. Source failures are logged
// and contained. Results merge curated-first with deduplication and
// per-origin caps; see datatypes.NewEvidenceBundle for the merge rules.
//
// # Outputs
//
//   - *datatypes.EvidenceBundle: Never nil. NoEvidence is set when both
//     lookups came back empty, whether from misses or failures.
func (a *Aggregator) Gather(ctx context.Context, query string, domain datatypes.Domain, skipLive bool) *datatypes.EvidenceBundle {
	ctx, span := evidenceTracer.Start(ctx, "Aggregator.Gather")
	defer span.End()
	span.SetAttributes(
		attribute.String("evidence.domain", string(domain)),
		attribute.Bool("evidence.skip_live", skipLive),
	)

	var curated, live []datatypes.EvidenceSource

	g, gctx := errgroup.WithContext(ctx)

	if a.curated != nil {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(gctx, a.config.CuratedTimeout)
			defer cancel()

			results, err := a.curated.Search(lookupCtx, query, domain, datatypes.MaxCuratedSources)
			if err != nil {
				slog.Warn("Curated evidence lookup failed, continuing without it",
					"domain", domain, "error", err)
				return nil
			}
			curated = results
			return nil
		})
	}

	if a.live != nil && !skipLive {
		g.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(gctx, a.config.LiveTimeout)
			defer cancel()

			results, err := a.live.Search(lookupCtx, query, domain, datatypes.MaxLiveSources)
			if err != nil {
				slog.Warn("Live evidence lookup failed, continuing without it",
					"domain", domain, "error", err)
				return nil
			}
			live = results
			return nil
		})
	}

	// Lookup goroutines contain their own failures, so Wait only
	// propagates a canceled parent context, which the merge below
	// handles as empty results.
	_ = g.Wait()

	bundle := datatypes.NewEvidenceBundle(curated, live)
	span.SetAttributes(
		attribute.Int("evidence.curated_count", bundle.CuratedCount()),
		attribute.Int("evidence.live_count", bundle.LiveCount()),
		attribute.Bool("evidence.no_evidence", bundle.NoEvidence),
	)
	slog.Info("Gathered evidence",
		"domain", domain,
		"curated", bundle.CuratedCount(),
		"live", bundle.LiveCount(),
		"no_evidence", bundle.NoEvidence,
	)
	return bundle
}

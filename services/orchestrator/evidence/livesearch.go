// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// LiveProvider fetches fresh evidence from the open web.
//
// Implementations degrade rather than fail: quota exhaustion and
// missing credentials return an empty result with a nil error so the
// pipeline can proceed on curated evidence alone. Only transport-level
// failures are reported as errors.
type LiveProvider interface {
	Search(ctx context.Context, query string, domain datatypes.Domain, limit int) ([]datatypes.EvidenceSource, error)
}

// HTTPClient abstracts the HTTP transport so tests can inject a mock.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Compile-time interface implementation check.
var _ LiveProvider = (*GoogleSearchProvider)(nil)

// googleSearchEndpoint is the Google Custom Search JSON API.
const googleSearchEndpoint = "https://www.googleapis.com/customsearch/v1"

// maxResultsPerRequest is Google's per-request result ceiling.
const maxResultsPerRequest = 10

// Live source reliability defaults. Domain-restricted searches only hit
// vetted sites, so live results still carry high trust scores.
const (
	medicalLiveReliability = 0.94
	financeLiveReliability = 0.92
	generalLiveReliability = 0.80
)

// Per-domain query suffixes restricting results to vetted sites.
var domainSiteFilters = map[datatypes.Domain]string{
	datatypes.DomainMedical: "medical information site:mayoclinic.org OR site:medlineplus.gov OR site:cdc.gov",
	datatypes.DomainFinance: "financial advice site:investor.gov OR site:sec.gov OR site:investopedia.com",
}

// GoogleSearchProvider implements LiveProvider against the Google
// Custom Search API.
//
// A single rate limiter spaces requests at least one second apart
// across the whole process, whatever the request concurrency, to stay
// inside the API's free-tier quota.
type GoogleSearchProvider struct {
	apiKey   string
	engineID string
	client   HTTPClient
	limiter  *rate.Limiter
}

// NewGoogleSearchProvider creates a provider from the environment.
//
// Reads GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_ENGINE_ID. Both may be
// empty; an unconfigured provider serves empty results so deployments
// without search credentials still work.
func NewGoogleSearchProvider() *GoogleSearchProvider {
	apiKey := os.Getenv("GOOGLE_SEARCH_API_KEY")
	engineID := os.Getenv("GOOGLE_SEARCH_ENGINE_ID")
	if apiKey == "" || engineID == "" {
		slog.Warn("Google search credentials not set, live search disabled")
	}
	return &GoogleSearchProvider{
		apiKey:   apiKey,
		engineID: engineID,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// NewGoogleSearchProviderWithClient creates a provider with explicit
// credentials and transport, for tests.
func NewGoogleSearchProviderWithClient(apiKey, engineID string, client HTTPClient) *GoogleSearchProvider {
	return &GoogleSearchProvider{
		apiKey:   apiKey,
		engineID: engineID,
		client:   client,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Configured reports whether the provider has API credentials.
func (p *GoogleSearchProvider) Configured() bool {
	return p.apiKey != "" && p.engineID != ""
}

// Search implements LiveProvider.
//
// # Description
//
// Builds a domain-restricted query (medical and finance queries are
// pinned to vetted sites), waits for a rate limiter slot, and calls the
// Custom Search API. HTTP 429 logs a warning and returns empty results;
// quota exhaustion must not fail the whole query. Other non-200 codes
// are errors.
//
// # Inputs
//
//   - ctx: Cancels both the limiter wait and the HTTP call.
//   - query: The user question. Must be non-empty.
//   - domain: Chooses the site filter and reliability default.
//   - limit: Result cap, clamped to Google's maximum of 10.
func (p *GoogleSearchProvider) Search(ctx context.Context, query string, domain datatypes.Domain, limit int) ([]datatypes.EvidenceSource, error) {
	ctx, span := evidenceTracer.Start(ctx, "GoogleSearchProvider.Search")
	defer span.End()
	span.SetAttributes(attribute.String("evidence.domain", string(domain)))

	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if !p.Configured() {
		return nil, nil
	}
	if limit <= 0 || limit > maxResultsPerRequest {
		limit = datatypes.MaxLiveSources
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	searchQuery := query
	if suffix, ok := domainSiteFilters[domain]; ok {
		searchQuery = query + " " + suffix
	}

	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("cx", p.engineID)
	params.Set("q", searchQuery)
	params.Set("num", fmt.Sprintf("%d", limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleSearchEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("live search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		slog.Warn("Live search quota exhausted, continuing without live evidence", "domain", domain)
		span.SetAttributes(attribute.Bool("evidence.quota_exhausted", true))
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("live search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed googleSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	reliability := liveReliability(domain)
	sources := make([]datatypes.EvidenceSource, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		sources = append(sources, datatypes.EvidenceSource{
			Title:       item.Title,
			Content:     item.Snippet,
			Locator:     item.Link,
			Reliability: reliability,
			Origin:      datatypes.OriginLive,
			Domain:      domain,
		})
	}

	span.SetAttributes(attribute.Int("evidence.results", len(sources)))
	return sources, nil
}

func liveReliability(domain datatypes.Domain) float64 {
	switch domain {
	case datatypes.DomainMedical:
		return medicalLiveReliability
	case datatypes.DomainFinance:
		return financeLiveReliability
	default:
		return generalLiveReliability
	}
}

// googleSearchResponse is the slice of the Custom Search payload we
// consume.
type googleSearchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

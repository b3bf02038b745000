// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the orchestrator service.
//
// This file contains the evidence source model shared by the curated store,
// the live search provider, and the aggregator. For query request and
// response types, see query.go.
package datatypes

import "strings"

// =============================================================================
// Domains and Origins
// =============================================================================

// Domain identifies which restricted knowledge domain a query belongs to.
type Domain string

const (
	// DomainMedical covers clinical and health questions.
	DomainMedical Domain = "medical"

	// DomainFinance covers investment and personal finance questions.
	DomainFinance Domain = "finance"

	// DomainGeneral is the fallback for questions outside the two
	// supported domains. General answers skip domain safety checks.
	DomainGeneral Domain = "general"
)

// ParseDomain normalizes a user-supplied domain string.
// Unknown values map to DomainGeneral rather than erroring so that a
// misrouted query still gets an answer, just without domain scaffolding.
func ParseDomain(s string) Domain {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(DomainMedical):
		return DomainMedical
	case string(DomainFinance):
		return DomainFinance
	default:
		return DomainGeneral
	}
}

// Origin tags where a piece of evidence came from.
type Origin string

const (
	// OriginCurated marks evidence retrieved from the vetted corpus.
	OriginCurated Origin = "curated"

	// OriginLive marks evidence retrieved from a live web search.
	OriginLive Origin = "live"
)

// =============================================================================
// Evidence Source Model
// =============================================================================

// Bundle capacity limits. Curated evidence is preferred, so it gets the
// larger share of the bundle.
const (
	// MaxCuratedSources is the maximum number of curated sources kept
	// in a bundle after merging.
	MaxCuratedSources = 8

	// MaxLiveSources is the maximum number of live web sources kept in
	// a bundle after merging.
	MaxLiveSources = 3

	// dedupeContentPrefixLen is the number of leading content characters
	// used as the fallback identity key when a source has no locator.
	dedupeContentPrefixLen = 100
)

// EvidenceSource is a single retrievable piece of supporting material.
//
// # Fields
//
//   - Title: Human-readable source title shown in citation lists.
//   - Content: The snippet or passage text used for grounding.
//   - Locator: URL or document identifier. May be empty for corpus
//     entries that only have titles.
//   - Reliability: Source trust score in [0,1]. Curated entries carry
//     corpus-assigned scores; live entries carry a per-domain default.
//   - Origin: OriginCurated or OriginLive.
//   - Domain: The domain the source was retrieved for.
type EvidenceSource struct {
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Locator     string  `json:"locator,omitempty"`
	Reliability float64 `json:"reliability"`
	Origin      Origin  `json:"origin"`
	Domain      Domain  `json:"domain"`
}

// ContentKey returns the content-identity key for this source: the
// first 100 characters of its content. Two sources sharing a key are
// near-duplicates even when they live behind different locators, as
// happens with syndicated articles.
func (s EvidenceSource) ContentKey() string {
	content := s.Content
	if len(content) > dedupeContentPrefixLen {
		content = content[:dedupeContentPrefixLen]
	}
	return content
}

// EvidenceBundle is the merged, ordered evidence set for one query.
//
// Curated sources always precede live sources. NoEvidence is set when
// every lookup came back empty, so downstream stages can suppress the
// evidence boost and flag the answer as ungrounded.
type EvidenceBundle struct {
	Sources    []EvidenceSource `json:"sources"`
	NoEvidence bool             `json:"no_evidence"`
}

// CuratedCount returns how many curated sources the bundle holds.
func (b *EvidenceBundle) CuratedCount() int {
	return b.countOrigin(OriginCurated)
}

// LiveCount returns how many live sources the bundle holds.
func (b *EvidenceBundle) LiveCount() int {
	return b.countOrigin(OriginLive)
}

func (b *EvidenceBundle) countOrigin(origin Origin) int {
	n := 0
	for _, s := range b.Sources {
		if s.Origin == origin {
			n++
		}
	}
	return n
}

// NewEvidenceBundle merges curated and live results into a bundle.
//
// Merge rules, in order:
//  1. Curated sources first, then live sources.
//  2. Duplicates are dropped, first occurrence wins. A source is a
//     duplicate when it repeats an earlier locator or an earlier
//     ContentKey; the two checks are independent, so the same passage
//     syndicated at two URLs still collapses to one entry.
//  3. Curated sources are capped at MaxCuratedSources and live sources
//     at MaxLiveSources, truncating from the tail so the highest-ranked
//     results survive.
//
// The same inputs always produce the same bundle.
func NewEvidenceBundle(curated, live []EvidenceSource) *EvidenceBundle {
	seenLocators := make(map[string]struct{}, len(curated)+len(live))
	seenContent := make(map[string]struct{}, len(curated)+len(live))
	bundle := &EvidenceBundle{}

	isDup := func(s EvidenceSource) bool {
		if s.Locator != "" {
			if _, ok := seenLocators[s.Locator]; ok {
				return true
			}
		}
		if key := s.ContentKey(); key != "" {
			if _, ok := seenContent[key]; ok {
				return true
			}
		}
		return false
	}
	mark := func(s EvidenceSource) {
		if s.Locator != "" {
			seenLocators[s.Locator] = struct{}{}
		}
		if key := s.ContentKey(); key != "" {
			seenContent[key] = struct{}{}
		}
	}

	curatedKept := 0
	for _, s := range curated {
		if curatedKept >= MaxCuratedSources {
			break
		}
		if isDup(s) {
			continue
		}
		mark(s)
		s.Origin = OriginCurated
		bundle.Sources = append(bundle.Sources, s)
		curatedKept++
	}

	liveKept := 0
	for _, s := range live {
		if liveKept >= MaxLiveSources {
			break
		}
		if isDup(s) {
			continue
		}
		mark(s)
		s.Origin = OriginLive
		bundle.Sources = append(bundle.Sources, s)
		liveKept++
	}

	bundle.NoEvidence = len(bundle.Sources) == 0
	return bundle
}

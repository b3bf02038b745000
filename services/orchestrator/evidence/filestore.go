// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"gopkg.in/yaml.v3"
)

// FileStore serves curated evidence from a YAML corpus file. It backs
// lightweight mode, where no Weaviate instance is configured; lookups
// are keyword overlap instead of semantic search, which is good enough
// for the small corpora this mode is meant for.
//
// The corpus file maps domains to entries:
//
//	medical:
//	  - title: Statin Side Effects
//	    content: Statins may cause muscle aches...
//	    locator: https://medlineplus.gov/statins.html
//	    reliability: 0.95
//	finance:
//	  - title: Index Fund Basics
//	    ...
//
// FileStore is immutable after load and safe for concurrent use.
type FileStore struct {
	entries map[datatypes.Domain][]fileEntry
}

type fileEntry struct {
	Title       string  `yaml:"title"`
	Content     string  `yaml:"content"`
	Locator     string  `yaml:"locator"`
	Reliability float64 `yaml:"reliability"`
}

var fileStoreWordPattern = regexp.MustCompile(`\b\w{4,}\b`)

// NewFileStore loads a YAML corpus from path.
func NewFileStore(path string) (*FileStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curated corpus: %w", err)
	}
	return ParseFileStore(raw)
}

// ParseFileStore builds a FileStore from raw YAML.
func ParseFileStore(raw []byte) (*FileStore, error) {
	var doc map[string][]fileEntry
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse curated corpus: %w", err)
	}

	entries := make(map[datatypes.Domain][]fileEntry, len(doc))
	for domain, list := range doc {
		entries[datatypes.ParseDomain(domain)] = list
	}
	return &FileStore{entries: entries}, nil
}

// Search implements CuratedStore with keyword overlap ranking.
//
// Each corpus entry is scored by how many of the query's content words
// (4+ characters) appear in its title or content. Entries scoring zero
// are dropped; ties keep corpus order, so results are deterministic.
func (s *FileStore) Search(ctx context.Context, query string, domain datatypes.Domain, limit int) ([]datatypes.EvidenceSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if limit <= 0 {
		limit = datatypes.MaxCuratedSources
	}

	words := fileStoreWordPattern.FindAllString(strings.ToLower(query), -1)
	if len(words) == 0 {
		return nil, nil
	}

	type scored struct {
		entry fileEntry
		score int
		pos   int
	}

	var hits []scored
	for i, entry := range s.entries[domain] {
		haystack := strings.ToLower(entry.Title + " " + entry.Content)
		score := 0
		for _, w := range words {
			if strings.Contains(haystack, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{entry: entry, score: score, pos: i})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].pos < hits[j].pos
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	sources := make([]datatypes.EvidenceSource, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, datatypes.EvidenceSource{
			Title:       h.entry.Title,
			Content:     h.entry.Content,
			Locator:     h.entry.Locator,
			Reliability: h.entry.Reliability,
			Origin:      datatypes.OriginCurated,
			Domain:      domain,
		})
	}
	return sources, nil
}

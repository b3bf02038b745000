// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package citation reconciles the [Source N] markers a model emitted
// with the evidence bundle that actually grounded the answer, and
// renders a source attribution trailer.
//
// Models routinely cite only one or two of the sources they were given.
// The synthesizer corrects for that: whenever the bundle holds more
// sources than the answer cites, the trailer lists every bundle entry,
// so the reader always sees the full grounding set.
package citation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
)

// sourceMarkerPattern matches inline citation markers and captures the
// source index.
var sourceMarkerPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// fallbackTitle labels sources whose corpus entry has no title.
const fallbackTitle = "Trusted reference"

// CitedIndexes returns the distinct 1-based source indexes cited in the
// answer, in ascending order. Markers are matched literally; malformed
// or out-of-range markers are the caller's concern.
func CitedIndexes(answer string) []int {
	matches := sourceMarkerPattern.FindAllStringSubmatch(answer, -1)
	seen := map[int]struct{}{}
	var indexes []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		indexes = append(indexes, n)
	}
	sort.Ints(indexes)
	return indexes
}

// Synthesize appends a source attribution trailer to the answer.
//
// # Description
//
// The trailer lists one line per source: its index, title (falling back
// to a generic label), a markdown link when the source has a locator,
// its origin tag, and its reliability as a percentage. If the model
// cited fewer sources than the bundle holds, or cited none at all, the
// trailer covers the whole bundle. Cited indexes with no matching
// bundle entry are dropped.
//
// Answers with an empty bundle are returned unchanged. The output is
// deterministic for a given answer and bundle.
func Synthesize(answer string, bundle *datatypes.EvidenceBundle) string {
	if bundle == nil || len(bundle.Sources) == 0 {
		return answer
	}

	indexes := CitedIndexes(answer)
	if len(indexes) < len(bundle.Sources) {
		indexes = make([]int, len(bundle.Sources))
		for i := range indexes {
			indexes[i] = i + 1
		}
	}

	var lines []string
	for _, idx := range indexes {
		if idx < 1 || idx > len(bundle.Sources) {
			continue
		}
		lines = append(lines, sourceLine(idx, bundle.Sources[idx-1]))
	}
	if len(lines) == 0 {
		return answer
	}

	var b strings.Builder
	b.WriteString(answer)
	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Sources (%d):**\n\n", len(lines))
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func sourceLine(idx int, src datatypes.EvidenceSource) string {
	title := src.Title
	if title == "" {
		title = fallbackTitle
	}

	display := title
	if src.Locator != "" {
		display = fmt.Sprintf("[%s](%s)", title, src.Locator)
	}

	return fmt.Sprintf("- Source %d: %s - %s - Reliability: %d%%",
		idx, display, originTag(src.Origin), int(src.Reliability*100))
}

func originTag(origin datatypes.Origin) string {
	if origin == datatypes.OriginLive {
		return "Live web"
	}
	return "Curated"
}

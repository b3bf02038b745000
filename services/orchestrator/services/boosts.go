// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"regexp"
	"strings"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/confidence"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
)

// =============================================================================
// Boost Producers
// =============================================================================

// BoostProducer computes one additive confidence boost from the final
// answer and its evidence bundle.
//
// Producers are advisory only: they must be pure, must never panic, and
// can only raise confidence. The calibration engine sanitizes their
// outputs (NaN and negatives become zero), so a misbehaving producer
// degrades to a no-op rather than corrupting the score.
type BoostProducer interface {
	// Name identifies the producer in logs and span attributes.
	Name() string

	// Boost returns a non-negative confidence contribution.
	Boost(answer string, bundle *datatypes.EvidenceBundle) float64
}

// Compile-time interface implementation checks.
var (
	_ BoostProducer = (*SafetyBoost)(nil)
	_ BoostProducer = (*EvidenceBoost)(nil)
	_ BoostProducer = (*ReasoningBoost)(nil)
)

// defaultProducers is the standard pipeline boost set.
func defaultProducers() []BoostProducer {
	return []BoostProducer{SafetyBoost{}, EvidenceBoost{}, ReasoningBoost{}}
}

// =============================================================================
// SafetyBoost
// =============================================================================

// safetyBoostValue is the full credit for a properly disclaimed answer.
const safetyBoostValue = 0.40

// disclaimerIndicators mark an answer as carrying safety framing.
var disclaimerIndicators = []string{
	"disclaimer", "not medical advice", "not financial advice",
	"consult", "healthcare professional", "financial advisor",
}

// SafetyBoost credits answers that carry safety framing. Disclaimers
// are appended automatically during validation, so most domain answers
// earn this; answers that somehow ship without any safety language get
// nothing.
type SafetyBoost struct{}

func (SafetyBoost) Name() string { return "safety" }

func (SafetyBoost) Boost(answer string, _ *datatypes.EvidenceBundle) float64 {
	lower := strings.ToLower(answer)
	for _, indicator := range disclaimerIndicators {
		if strings.Contains(lower, indicator) {
			return safetyBoostValue
		}
	}
	return 0
}

// =============================================================================
// EvidenceBoost
// =============================================================================

// Curated evidence contribution: per-source credit and its cap. Live
// sources use the calibration package's shared constants, so the two
// origins together max out at the overall evidence cap.
const (
	curatedBoostPerSource = 0.05
	curatedBoostCap       = 0.20
)

// EvidenceBoost converts the bundle composition into an evidence boost:
// 0.05 per curated source (capped at 0.20) plus 0.05 per live source
// (capped at 0.15). An empty bundle contributes nothing.
type EvidenceBoost struct{}

func (EvidenceBoost) Name() string { return "evidence" }

func (EvidenceBoost) Boost(_ string, bundle *datatypes.EvidenceBundle) float64 {
	if bundle == nil || bundle.NoEvidence {
		return 0
	}
	curated := float64(bundle.CuratedCount()) * curatedBoostPerSource
	if curated > curatedBoostCap {
		curated = curatedBoostCap
	}
	return curated + confidence.LiveSourceBoost(bundle.LiveCount())
}

// =============================================================================
// ReasoningBoost
// =============================================================================

const (
	reasoningBoostPerMarker = 0.02
	reasoningBoostCap       = 0.10
)

// reasoningMarkerPattern matches explicit structure: step headings or
// numbered list items at the start of a line.
var reasoningMarkerPattern = regexp.MustCompile(`(?im)^(?:\*\*)?step \d+|^\d+\.\s`)

// ReasoningBoost credits visibly structured reasoning. Each step
// heading or numbered item adds 0.02, capped at 0.10. Formatting alone
// is weak evidence of good reasoning, so the cap stays well below the
// evidence boost's.
type ReasoningBoost struct{}

func (ReasoningBoost) Name() string { return "reasoning" }

func (ReasoningBoost) Boost(answer string, _ *datatypes.EvidenceBundle) float64 {
	markers := len(reasoningMarkerPattern.FindAllString(answer, -1))
	boost := float64(markers) * reasoningBoostPerMarker
	if boost > reasoningBoostCap {
		boost = reasoningBoostCap
	}
	return boost
}

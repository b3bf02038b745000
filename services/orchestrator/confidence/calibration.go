// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package confidence implements the calibration engine that turns raw
// enhancement boosts into a final, evidence-weighted confidence score.
//
// # Description
//
// Language models routinely overstate certainty. The engine counters
// that in three ways:
//   - Safety and reasoning boosts are scaled down when evidence is weak,
//     so unsupported answers cannot buy confidence with formatting.
//   - The final score is capped at ConfidenceCeiling; domain answers are
//     never reported as near-certain.
//   - The heuristic base confidence starts low (0.3) and is bounded to
//     [0.2, 0.5] before any boosts apply.
//
// All functions here are pure and deterministic.
package confidence

import (
	"math"
	"strings"
)

// Calibration constants.
const (
	// EvidenceCap is the maximum combined evidence boost.
	EvidenceCap = 0.35

	// QualityRef is the evidence boost treated as "full quality".
	// Boosts at or above this value leave safety and reasoning boosts
	// unscaled.
	QualityRef = 0.15

	// ConfidenceCeiling is the hard upper bound on the final score.
	ConfidenceCeiling = 0.85

	// LiveBoostPerSource is the evidence boost contributed by each live
	// web source.
	LiveBoostPerSource = 0.05

	// LiveBoostCap is the maximum total boost from live sources.
	LiveBoostCap = 0.15
)

// Base confidence heuristic bounds.
const (
	baseline     = 0.3
	baseFloor    = 0.2
	baseCeil     = 0.5
	keywordStep  = 0.05
	longAnswer   = 500
	shortAnswer  = 200
	lengthAdjust = 0.05
)

// Result is the full calibration breakdown. Keeping the intermediate
// terms makes the score explainable in logs and API payloads.
type Result struct {
	Base            float64 `json:"base"`
	EvidenceBoost   float64 `json:"evidence_boost"`
	QualityFactor   float64 `json:"quality_factor"`
	ScaledSafety    float64 `json:"scaled_safety_boost"`
	ScaledReasoning float64 `json:"scaled_reasoning_boost"`
	Final           float64 `json:"final"`
}

// Calibrate combines the base confidence with enhancement boosts.
//
// # Description
//
// The evidence boost is capped at EvidenceCap, then converted to a
// quality factor: min(evidence/QualityRef, 1), or 0.5 when there is no
// evidence at all. Safety and reasoning boosts are scaled into the
// 30-100% and 40-100% bands by that factor, so weak evidence shrinks
// them but never zeroes them. The sum is capped at ConfidenceCeiling
// and floored at the base score.
//
// NaN and negative inputs are clamped to zero; a broken boost producer
// can only fail to raise confidence, never lower or corrupt it.
//
// # Inputs
//
//   - base: Heuristic base confidence, typically from BaseConfidence.
//   - safetyBoost: Boost from safety enhancement (disclaimers added).
//   - evidenceBoost: Combined curated + live evidence boost.
//   - reasoningBoost: Boost from structured reasoning enhancement.
//
// # Outputs
//
//   - Result: The breakdown, with Final in [base, ConfidenceCeiling].
func Calibrate(base, safetyBoost, evidenceBoost, reasoningBoost float64) Result {
	base = sanitize(base)
	safetyBoost = sanitize(safetyBoost)
	reasoningBoost = sanitize(reasoningBoost)
	evidenceBoost = math.Min(sanitize(evidenceBoost), EvidenceCap)

	quality := 0.5
	if evidenceBoost > 0 {
		quality = math.Min(evidenceBoost/QualityRef, 1.0)
	}

	scaledSafety := safetyBoost * (0.3 + 0.7*quality)
	scaledReasoning := reasoningBoost * (0.4 + 0.6*quality)

	final := math.Min(base+scaledSafety+evidenceBoost+scaledReasoning, ConfidenceCeiling)
	final = math.Max(final, base)

	return Result{
		Base:            base,
		EvidenceBoost:   evidenceBoost,
		QualityFactor:   quality,
		ScaledSafety:    scaledSafety,
		ScaledReasoning: scaledReasoning,
		Final:           final,
	}
}

// LiveSourceBoost converts a live source count into its evidence boost:
// LiveBoostPerSource per source, capped at LiveBoostCap.
func LiveSourceBoost(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(float64(count)*LiveBoostPerSource, LiveBoostCap)
}

// confidenceMarkers raise the heuristic base score; hedgeMarkers lower
// it. Matching is substring-based on the lowercased answer.
var confidenceMarkers = []string{
	"evidence", "study", "research", "clinical", "proven", "data", "trial",
}

var hedgeMarkers = []string{
	"may", "might", "unclear", "uncertain", "varies", "possibly", "potentially",
}

// BaseConfidence derives a conservative base score from answer text.
//
// Starts at 0.3, adds 0.05 per confidence marker present, subtracts
// 0.05 per hedge marker present, adds 0.05 for answers over 500
// characters, subtracts 0.05 for answers under 200 characters, then
// clamps to [0.2, 0.5]. The low ceiling leaves headroom for the
// evidence-driven boosts to differentiate grounded answers.
func BaseConfidence(answer string) float64 {
	lower := strings.ToLower(answer)

	adjustment := 0.0
	for _, marker := range confidenceMarkers {
		if strings.Contains(lower, marker) {
			adjustment += keywordStep
		}
	}
	for _, marker := range hedgeMarkers {
		if strings.Contains(lower, marker) {
			adjustment -= keywordStep
		}
	}

	if len(answer) > longAnswer {
		adjustment += lengthAdjust
	}
	if len(answer) < shortAnswer {
		adjustment -= lengthAdjust
	}

	return clamp(baseline+adjustment, baseFloor, baseCeil)
}

// ApplyAdjustment folds the validator's confidence adjustment into a
// score, keeping the result in [0.1, 1.0].
func ApplyAdjustment(score, adjustment float64) float64 {
	return clamp(sanitize(score)+adjustment, 0.1, 1.0)
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

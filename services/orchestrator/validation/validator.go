// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation checks generated answers for citation discipline,
// numeric plausibility, domain safety, and completeness before they are
// returned to a caller.
//
// The four checks are deliberately cheap (regex and substring scans, no
// model calls) so validation can run inline on every response. Each
// check produces a score in [0,1]; the validator combines them into a
// pass/fail verdict plus a signed confidence adjustment that the
// calibration stage folds into the final score.
package validation

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// validatorTracer is the OpenTelemetry tracer for validator operations.
var validatorTracer = otel.Tracer("fairagent.orchestrator.validation")

// Minimum per-check scores an answer must reach to be considered valid.
const (
	minCitationScore     = 0.4
	minNumericScore      = 0.5
	minSafetyScore       = 0.6
	minCompletenessScore = 0.4
)

// Confidence adjustment deltas. Penalties fire when a check falls below
// its trigger threshold; the bonus fires on high overall quality.
const (
	citationPenalty     = -0.10
	numericPenalty      = -0.15
	safetyPenalty       = -0.20
	completenessPenalty = -0.08
	qualityBonus        = 0.05

	citationPenaltyBelow     = 0.5
	numericPenaltyBelow      = 0.6
	safetyPenaltyBelow       = 0.7
	completenessPenaltyBelow = 0.5
	qualityBonusAbove        = 0.85
)

var (
	// citationPattern matches bracketed source markers like [Source 3].
	citationPattern = regexp.MustCompile(`\[Source \d+\]`)

	// numberPattern extracts numeric tokens, keeping a trailing percent
	// sign so percentage plausibility can be checked.
	numberPattern = regexp.MustCompile(`\b\d+\.?\d*%?`)

	// contentWordPattern extracts 4+ character words for the question
	// coverage check.
	contentWordPattern = regexp.MustCompile(`\b\w{4,}\b`)
)

// calcKeywords signal the answer claims to have computed something.
var calcKeywords = []string{"calculate", "compute", "formula", "equation"}

// coverageStopWords are question words too common to count as content.
var coverageStopWords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "which": {},
	"should": {}, "would": {}, "could": {}, "does": {}, "have": {},
}

// Result is the outcome of validating one answer.
//
// Valid reports whether every check met its minimum threshold.
// Adjustment is the signed confidence delta in roughly [-0.53, +0.05];
// both signals are kept so callers can decide independently whether to
// regenerate, annotate, or just deliver with reduced confidence.
type Result struct {
	Valid        bool
	Citation     float64
	Numeric      float64
	Safety       float64
	Completeness float64
	Quality      float64
	Adjustment   float64
	Issues       []string
	Corrections  []string
}

// Report converts the result into its API representation.
func (r Result) Report() *datatypes.ValidationReport {
	return &datatypes.ValidationReport{
		Valid:        r.Valid,
		Citation:     r.Citation,
		Numeric:      r.Numeric,
		Safety:       r.Safety,
		Completeness: r.Completeness,
		Adjustment:   r.Adjustment,
		Issues:       r.Issues,
	}
}

// Validator runs the four-check answer review.
//
// Safe for concurrent use; it holds only immutable configuration.
type Validator struct {
	checkers map[datatypes.Domain]SafetyChecker
}

// NewValidator creates a Validator with the built-in medical and
// finance safety checkers. Additional or replacement checkers may be
// passed in; later entries win on domain collisions.
func NewValidator(extra ...SafetyChecker) *Validator {
	checkers := map[datatypes.Domain]SafetyChecker{
		datatypes.DomainMedical: MedicalSafetyChecker{},
		datatypes.DomainFinance: FinanceSafetyChecker{},
	}
	for _, c := range extra {
		checkers[c.Domain()] = c
	}
	return &Validator{checkers: checkers}
}

// Validate reviews an answer against its question, domain, and the
// number of evidence sources that grounded it.
//
// # Description
//
// Runs citation, numeric, safety, and completeness checks, averages
// their scores into Quality, applies the threshold-gated confidence
// adjustments, and sets Valid when every check clears its minimum.
// The method is pure: identical inputs always produce identical
// results.
//
// # Inputs
//
//   - ctx: Context for tracing only; validation never blocks.
//   - question: The user question, used by the completeness check.
//   - answer: The generated answer under review.
//   - domain: Selects the safety checker. Unknown domains skip safety.
//   - evidenceCount: Number of sources in the evidence bundle. Zero
//     disables citation scoring (neutral 0.7).
func (v *Validator) Validate(ctx context.Context, question, answer string, domain datatypes.Domain, evidenceCount int) Result {
	_, span := validatorTracer.Start(ctx, "Validator.Validate")
	defer span.End()

	res := Result{}

	res.Citation, res.Issues = v.checkCitations(answer, evidenceCount, res.Issues)
	res.Numeric, res.Issues = v.checkNumericConsistency(answer, res.Issues)

	safety := v.checkSafety(answer, domain)
	res.Safety = safety.Score
	res.Issues = append(res.Issues, safety.Issues...)
	res.Corrections = append(res.Corrections, safety.Corrections...)

	res.Completeness, res.Issues = v.checkCompleteness(answer, question, res.Issues)

	res.Quality = (res.Citation + res.Numeric + res.Safety + res.Completeness) / 4

	if res.Citation < citationPenaltyBelow {
		res.Adjustment += citationPenalty
	}
	if res.Numeric < numericPenaltyBelow {
		res.Adjustment += numericPenalty
	}
	if res.Safety < safetyPenaltyBelow {
		res.Adjustment += safetyPenalty
	}
	if res.Completeness < completenessPenaltyBelow {
		res.Adjustment += completenessPenalty
	}
	if res.Quality > qualityBonusAbove {
		res.Adjustment += qualityBonus
	}

	res.Valid = res.Citation >= minCitationScore &&
		res.Numeric >= minNumericScore &&
		res.Safety >= minSafetyScore &&
		res.Completeness >= minCompletenessScore

	span.SetAttributes(
		attribute.Bool("validation.valid", res.Valid),
		attribute.Float64("validation.quality", res.Quality),
		attribute.Float64("validation.adjustment", res.Adjustment),
	)
	slog.Debug("Validated answer",
		"domain", domain,
		"valid", res.Valid,
		"citation", res.Citation,
		"numeric", res.Numeric,
		"safety", res.Safety,
		"completeness", res.Completeness,
	)

	return res
}

// checkCitations verifies the answer cites the evidence it was given.
//
// No evidence: neutral 0.7, nothing to verify. Zero citations against
// available evidence: 0.2. Partial citation scales 0.5 + 0.3*ratio.
// Citing at least once per source: 0.9.
func (v *Validator) checkCitations(answer string, evidenceCount int, issues []string) (float64, []string) {
	if evidenceCount == 0 {
		return 0.7, issues
	}

	citations := len(citationPattern.FindAllString(answer, -1))
	if citations == 0 {
		return 0.2, append(issues, "response lacks evidence citations")
	}

	if citations < evidenceCount {
		issues = append(issues, "underutilized evidence ("+
			strconv.Itoa(citations)+"/"+strconv.Itoa(evidenceCount)+" sources cited)")
		return 0.5 + (float64(citations)/float64(evidenceCount))*0.3, issues
	}

	return 0.9, issues
}

// checkNumericConsistency looks for implausible numbers.
//
// Answers without numeric tokens pass at 1.0. Percentages over 100
// score 0.4, values over one million score 0.6, and calculation talk
// backed by fewer than two numbers scores 0.5. Clean numeric answers
// score 0.95.
func (v *Validator) checkNumericConsistency(answer string, issues []string) (float64, []string) {
	numbers := numberPattern.FindAllString(answer, -1)
	if len(numbers) == 0 {
		return 1.0, issues
	}

	for _, n := range numbers {
		if !strings.HasSuffix(n, "%") {
			continue
		}
		if pct, err := strconv.ParseFloat(strings.TrimSuffix(n, "%"), 64); err == nil && pct > 100 {
			return 0.4, append(issues, "suspicious percentage value: "+n)
		}
	}

	for _, n := range numbers {
		if strings.HasSuffix(n, "%") {
			continue
		}
		if val, err := strconv.ParseFloat(n, 64); err == nil && val > 1_000_000 {
			return 0.6, append(issues, "extremely large numerical value detected")
		}
	}

	if containsAny(strings.ToLower(answer), calcKeywords) && len(numbers) < 2 {
		return 0.5, append(issues, "calculation mentioned but results not shown")
	}

	return 0.95, issues
}

// checkSafety dispatches to the domain's safety checker. Domains
// without a registered checker pass at 1.0.
func (v *Validator) checkSafety(answer string, domain datatypes.Domain) SafetyFinding {
	checker, ok := v.checkers[domain]
	if !ok {
		return SafetyFinding{Score: 1.0}
	}
	return checker.Check(answer)
}

// checkCompleteness verifies the answer actually addresses the
// question.
//
// Very short answers score 0.3; answers trailing off with "..." or a
// comma score 0.5. Otherwise coverage of the question's content words
// (4+ characters, stop words removed) decides: under 30% scores 0.4,
// under 50% scores 0.7, and anything better scores 0.95.
func (v *Validator) checkCompleteness(answer, question string, issues []string) (float64, []string) {
	if len(answer) < 50 {
		return 0.3, append(issues, "response too short")
	}

	trimmed := strings.TrimRight(answer, " \t\n")
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, ",") {
		return 0.5, append(issues, "response appears incomplete")
	}

	questionWords := map[string]struct{}{}
	for _, w := range contentWordPattern.FindAllString(strings.ToLower(question), -1) {
		if _, stop := coverageStopWords[w]; !stop {
			questionWords[w] = struct{}{}
		}
	}

	if len(questionWords) > 0 {
		answerLower := strings.ToLower(answer)
		addressed := 0
		for w := range questionWords {
			if strings.Contains(answerLower, w) {
				addressed++
			}
		}
		coverage := float64(addressed) / float64(len(questionWords))
		if coverage < 0.3 {
			return 0.4, append(issues, "response doesn't address key question terms")
		}
		if coverage < 0.5 {
			return 0.7, append(issues, "response partially addresses question")
		}
	}

	return 0.95, issues
}

// correctionDisclaimerPrefix marks a correction that appends text.
const correctionDisclaimerPrefix = "ADD DISCLAIMER:"

// ApplyCorrections applies the result's automatic corrections to an
// answer.
//
// ADD DISCLAIMER corrections append their text under an "Important"
// marker, but only when the answer does not already contain it
// (case-insensitive), so re-validating a corrected answer is a no-op.
// Other correction kinds are advisory and left to the caller.
func ApplyCorrections(answer string, res Result) string {
	corrected := answer
	for _, correction := range res.Corrections {
		if !strings.HasPrefix(correction, correctionDisclaimerPrefix) {
			continue
		}
		disclaimer := strings.TrimSpace(strings.TrimPrefix(correction, correctionDisclaimerPrefix))
		if disclaimer == "" {
			continue
		}
		if strings.Contains(strings.ToLower(corrected), strings.ToLower(disclaimer)) {
			continue
		}
		corrected += "\n\n**Important:** " + disclaimer
	}
	return corrected
}

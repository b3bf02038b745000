// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package validation

import (
	"strings"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
)

// =============================================================================
// Safety Checker Interface
// =============================================================================

// SafetyFinding is the outcome of a domain safety check.
//
// Score is in [0,1]. Corrections are machine-actionable directives
// (e.g. "ADD DISCLAIMER: ...") consumed by ApplyCorrections; Issues are
// human-readable warnings surfaced to the caller.
type SafetyFinding struct {
	Score       float64
	Issues      []string
	Corrections []string
}

// SafetyChecker performs domain-specific safety review of an answer.
//
// Implementations must be pure: same answer in, same finding out, no
// I/O. That keeps the validator usable in hot paths and trivially
// testable. New domains plug in via NewValidator without touching the
// scoring pipeline.
type SafetyChecker interface {
	// Domain reports which domain this checker covers.
	Domain() datatypes.Domain

	// Check reviews an answer and returns a finding. It must accept
	// arbitrary text and never panic.
	Check(answer string) SafetyFinding
}

// Compile-time interface implementation checks.
var (
	_ SafetyChecker = (*MedicalSafetyChecker)(nil)
	_ SafetyChecker = (*FinanceSafetyChecker)(nil)
	_ SafetyChecker = (*permissiveSafetyChecker)(nil)
)

// =============================================================================
// Medical Safety
// =============================================================================

// medicalSafetyKeywords mark an answer as containing medical content
// that requires a consultation disclaimer.
var medicalSafetyKeywords = []string{
	"treatment", "medication", "drug", "dose", "symptom", "diagnosis",
	"therapy", "surgery", "prescription", "condition", "disease",
}

// medicalDisclaimerPhrases satisfy the disclaimer requirement.
var medicalDisclaimerPhrases = []string{
	"consult", "healthcare provider", "medical professional",
	"doctor", "physician", "professional advice",
}

// medicalAbsoluteTerms are dangerous in clinical statements.
var medicalAbsoluteTerms = []string{"always", "never", "definitely", "guaranteed", "cure"}

// MedicalDisclaimer is appended to medical answers that lack one.
const MedicalDisclaimer = "This information is for educational purposes only. " +
	"Always consult a qualified healthcare provider for medical advice."

// MedicalSafetyChecker enforces disclaimer and language rules for
// clinical answers.
type MedicalSafetyChecker struct{}

// Domain implements SafetyChecker.
func (MedicalSafetyChecker) Domain() datatypes.Domain { return datatypes.DomainMedical }

// Check scores a medical answer.
//
// Answers without medical keywords pass at 1.0. Medical answers missing
// a consultation disclaimer score 0.3 and receive an ADD DISCLAIMER
// correction. Answers using absolute language ("always", "cure", ...)
// score 0.7. Everything else scores 0.95.
func (MedicalSafetyChecker) Check(answer string) SafetyFinding {
	lower := strings.ToLower(answer)

	if !containsAny(lower, medicalSafetyKeywords) {
		return SafetyFinding{Score: 1.0}
	}

	if !containsAny(lower, medicalDisclaimerPhrases) {
		return SafetyFinding{
			Score:       0.3,
			Issues:      []string{"medical response lacks professional consultation disclaimer"},
			Corrections: []string{"ADD DISCLAIMER: " + MedicalDisclaimer},
		}
	}

	if containsAny(lower, medicalAbsoluteTerms) {
		return SafetyFinding{
			Score:  0.7,
			Issues: []string{"medical response uses absolute language"},
		}
	}

	return SafetyFinding{Score: 0.95}
}

// =============================================================================
// Finance Safety
// =============================================================================

var financeSafetyKeywords = []string{
	"invest", "stock", "trade", "buy", "sell", "portfolio",
	"recommendation", "advice", "should invest", "guaranteed",
}

var financeDisclaimerPhrases = []string{
	"not financial advice", "consult", "financial advisor",
	"professional advice", "past performance", "risk",
}

// financeGuaranteeTerms promise risk-free returns. Any of these is a
// critical finding regardless of what disclaimers surround it.
var financeGuaranteeTerms = []string{
	"guaranteed profit", "guaranteed return", "no risk", "cant lose",
}

// FinanceDisclaimer is appended to finance answers that lack one.
const FinanceDisclaimer = "This is educational information, not financial advice. " +
	"Consult a qualified financial advisor before making investment decisions."

// FinanceSafetyChecker enforces disclaimer rules and rejects guarantee
// claims in investment answers.
type FinanceSafetyChecker struct{}

// Domain implements SafetyChecker.
func (FinanceSafetyChecker) Domain() datatypes.Domain { return datatypes.DomainFinance }

// Check scores a finance answer.
//
// Guarantee language is evaluated before the disclaimer rule: an answer
// promising "guaranteed returns" is capped at 0.2 even when it carries
// a perfectly worded disclaimer, because no disclaimer makes that claim
// acceptable. Answers without finance keywords pass at 1.0; keyword
// answers missing a disclaimer score 0.4 with a correction; clean
// answers score 0.95.
func (FinanceSafetyChecker) Check(answer string) SafetyFinding {
	lower := strings.ToLower(answer)

	if !containsAny(lower, financeSafetyKeywords) {
		return SafetyFinding{Score: 1.0}
	}

	if containsAny(lower, financeGuaranteeTerms) {
		return SafetyFinding{
			Score:       0.2,
			Issues:      []string{"CRITICAL: financial response makes dangerous guarantee claims"},
			Corrections: []string{"REMOVE: Guaranteed return claims are false and misleading"},
		}
	}

	if !containsAny(lower, financeDisclaimerPhrases) {
		return SafetyFinding{
			Score:       0.4,
			Issues:      []string{"financial advice lacks appropriate disclaimers"},
			Corrections: []string{"ADD DISCLAIMER: " + FinanceDisclaimer},
		}
	}

	return SafetyFinding{Score: 0.95}
}

// =============================================================================
// General Fallback
// =============================================================================

// permissiveSafetyChecker passes everything. Used for the general
// domain, which has no safety lexicon.
type permissiveSafetyChecker struct {
	domain datatypes.Domain
}

func (c permissiveSafetyChecker) Domain() datatypes.Domain { return c.domain }

func (permissiveSafetyChecker) Check(string) SafetyFinding {
	return SafetyFinding{Score: 1.0}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation utilities for user-facing
// entry points.
//
// This package contains validators for user-provided inputs that end up
// in prompts, search queries, and log lines. Sanitizing at the edge
// keeps control characters and oversized payloads out of the pipeline.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxQuestionBytes bounds a question's size at the CLI and API edge.
const MaxQuestionBytes = 8 * 1024

// knownDomains are the domains the answer pipeline understands.
// Anything else falls back to "general" at the service layer.
var knownDomains = map[string]struct{}{
	"medical": {},
	"finance": {},
	"general": {},
}

// controlCharPattern matches ASCII control characters other than
// newline and tab.
var controlCharPattern = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")

// whitespaceRunPattern collapses runs of spaces and tabs.
var whitespaceRunPattern = regexp.MustCompile(`[ \t]{2,}`)

// ValidateQuestion checks a question for structural problems.
//
// Valid questions:
//   - Non-empty after trimming whitespace
//   - At most 8KB
//   - Free of control characters (newline and tab allowed)
//
// Returns an error describing the first violation found.
func ValidateQuestion(question string) error {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if len(question) > MaxQuestionBytes {
		return fmt.Errorf("question exceeds %d bytes", MaxQuestionBytes)
	}
	if controlCharPattern.MatchString(question) {
		return fmt.Errorf("question contains control characters")
	}
	return nil
}

// SanitizeQuestion normalizes and validates a question.
//
// Strips control characters, collapses whitespace runs, and trims the
// result, then validates it. Returns the cleaned question or an error.
//
// Example:
//
//	question, err := validation.SanitizeQuestion(userInput)
//	if err != nil {
//	    return err
//	}
//	// question is trimmed and safe to embed in a prompt
func SanitizeQuestion(question string) (string, error) {
	cleaned := controlCharPattern.ReplaceAllString(question, "")
	cleaned = whitespaceRunPattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	if err := ValidateQuestion(cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// ValidateDomain checks that a domain name is one the pipeline knows.
// The empty string is valid and means "let the server decide".
func ValidateDomain(domain string) error {
	if domain == "" {
		return nil
	}
	if _, ok := knownDomains[domain]; !ok {
		return fmt.Errorf("unknown domain %q (expected medical, finance, or general)", domain)
	}
	return nil
}

// SanitizeDomain normalizes and validates a domain name.
// Returns the lowercase domain if valid, or an error if unknown.
func SanitizeDomain(domain string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(domain))
	if err := ValidateDomain(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

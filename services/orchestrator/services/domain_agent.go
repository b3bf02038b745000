// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services provides business logic services for the
// orchestrator.
//
// This package contains service structs that encapsulate business
// logic, separating it from HTTP handlers. Services are responsible
// for:
//   - Orchestrating calls to external systems (evidence stores, LLM)
//   - Applying validation, calibration, and citation rules
//   - Error categorization for the HTTP edge
//
// Services are designed to be:
//   - Testable: Dependencies are injected via constructors
//   - Stateless: All state is passed in via requests
//   - Traceable: All methods accept context for distributed tracing
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fairagent/FairAgentLocal/services/llm"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/citation"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/confidence"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/evidence"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/observability"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/validation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// agentTracer is the OpenTelemetry tracer for DomainAgentService
// operations.
var agentTracer = otel.Tracer("fairagent.orchestrator.services.domain_agent")

// harmfulIndicators block a query before any retrieval or generation
// happens. Substring match on the lowercased question.
var harmfulIndicators = []string{
	"self-harm", "suicide", "illegal drugs", "prescription without doctor",
	"dangerous procedures", "unproven treatments",
}

// safeRefusalAnswer is returned for screened-out queries.
const safeRefusalAnswer = "I can't help with that request. " +
	"If you are in crisis or considering harming yourself, please contact a healthcare " +
	"professional or a local emergency service right away."

// noEvidenceNotice is appended to answers generated without any
// supporting sources, so the reader sees the caveat even when the
// front end ignores the no_evidence flag.
const noEvidenceNotice = "\n\n⚠️ **Note**: Could not find specific supporting evidence " +
	"for this answer. It is based on general knowledge and may be incomplete."

// DomainAgentService answers a domain-restricted question end-to-end.
// It orchestrates the flow between:
//   - Evidence aggregator: curated corpus plus live web search
//   - LLM client: generates the answer from an evidence-grounded prompt
//   - Validator: four-check quality and safety review
//   - Calibration: evidence-weighted confidence scoring
//   - Citation synthesizer: source attribution trailer
//
// The service is stateless; all state is passed in via requests. This
// allows horizontal scaling of the orchestrator.
//
// Usage:
//
//	service := NewDomainAgentService(llmClient, aggregator, validator)
//	resp, err := service.Process(ctx, &req)
type DomainAgentService struct {
	llmClient  llm.LLMClient
	aggregator *evidence.Aggregator
	validator  *validation.Validator
	producers  []BoostProducer
}

// NewDomainAgentService creates a DomainAgentService with the standard
// boost producers.
//
// All three dependencies must be non-nil; the service does not check
// and will fail at first use otherwise.
func NewDomainAgentService(
	llmClient llm.LLMClient,
	aggregator *evidence.Aggregator,
	validator *validation.Validator,
) *DomainAgentService {
	return &DomainAgentService{
		llmClient:  llmClient,
		aggregator: aggregator,
		validator:  validator,
		producers:  defaultProducers(),
	}
}

// WithProducers replaces the boost producer set. Intended for tests and
// for deployments that tune the boost pipeline.
func (s *DomainAgentService) WithProducers(producers ...BoostProducer) *DomainAgentService {
	s.producers = producers
	return s
}

// Process handles one query end-to-end.
//
// The processing flow is:
//  1. Ensure request defaults and validate
//  2. Screen the question for harmful intent (medical domain)
//  3. Gather evidence concurrently from curated and live sources
//  4. Generate an answer from an evidence-grounded prompt
//  5. Validate the answer and apply automatic corrections
//  6. Calibrate confidence from base score plus boosts
//  7. Synthesize the citation trailer and build the response
//
// Screened-out questions return a refusal response with zero
// confidence, not an error. Generation failures return a
// *GenerationError so the handler can map them to 502.
func (s *DomainAgentService) Process(ctx context.Context, req *datatypes.QueryRequest) (*datatypes.QueryResponse, error) {
	ctx, span := agentTracer.Start(ctx, "DomainAgentService.Process")
	defer span.End()
	started := time.Now()

	// Step 1: Defaults and validation
	req.EnsureDefaults()
	span.SetAttributes(attribute.String("request.id", req.Id))

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, &ValidationError{Err: err}
	}

	domain := datatypes.ParseDomain(req.Domain)
	sessionId := req.EnsureSessionId()
	span.SetAttributes(
		attribute.String("request.domain", string(domain)),
		attribute.String("session.id", sessionId),
	)
	slog.Info("Processing query",
		"requestId", req.Id,
		"sessionId", sessionId,
		"domain", domain,
	)

	// Step 2: Harmful query screen
	if domain == datatypes.DomainMedical && isHarmfulQuery(req.Question) {
		span.SetAttributes(attribute.Bool("request.screened", true))
		slog.Warn("Query blocked by safety screen", "requestId", req.Id)
		if m := observability.DefaultMetrics; m != nil {
			m.RecordScreened(string(domain))
		}
		resp := datatypes.NewQueryResponse(req.Id, sessionId, safeRefusalAnswer, domain)
		resp.Confidence = 0
		resp.ProcessingTimeMs = time.Since(started).Milliseconds()
		return resp, nil
	}

	// Step 3: Evidence
	bundle := s.aggregator.Gather(ctx, req.Question, domain, req.SkipLiveSearch)

	// Step 4: Generation
	prompt := buildPrompt(req.Question, domain, bundle)
	answer, err := s.llmClient.Generate(ctx, prompt, llm.GenerationParams{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, &GenerationError{Err: err}
	}

	// Step 5: Validation and corrections
	result := s.validator.Validate(ctx, req.Question, answer, domain, len(bundle.Sources))
	answer = validation.ApplyCorrections(answer, result)

	// Step 6: Confidence calibration
	base := confidence.BaseConfidence(answer)
	base = confidence.ApplyAdjustment(base, result.Adjustment)

	boosts := s.collectBoosts(answer, bundle)
	calib := confidence.Calibrate(base, boosts["safety"], boosts["evidence"], boosts["reasoning"])

	// Step 7: Citations and response assembly
	if bundle.NoEvidence {
		answer += noEvidenceNotice
	}
	answer = citation.Synthesize(answer, bundle)

	resp := datatypes.NewQueryResponse(req.Id, sessionId, answer, domain)
	resp.Confidence = calib.Final
	resp.Sources = bundle.Sources
	resp.Boosts = boosts
	resp.NoEvidence = bundle.NoEvidence
	resp.Validation = result.Report()
	resp.ProcessingTimeMs = time.Since(started).Milliseconds()

	span.SetAttributes(
		attribute.String("response.id", resp.Id),
		attribute.Float64("response.confidence", resp.Confidence),
		attribute.Int("response.sources_count", len(resp.Sources)),
		attribute.Bool("response.valid", result.Valid),
	)
	slog.Info("Query processed",
		"requestId", req.Id,
		"confidence", resp.Confidence,
		"valid", result.Valid,
		"sources", len(resp.Sources),
		"durationMs", resp.ProcessingTimeMs,
	)
	return resp, nil
}

// collectBoosts runs every producer, keyed by name. Producer output is
// trusted to be non-negative; calibration sanitizes regardless.
func (s *DomainAgentService) collectBoosts(answer string, bundle *datatypes.EvidenceBundle) map[string]float64 {
	boosts := make(map[string]float64, len(s.producers))
	for _, p := range s.producers {
		boosts[p.Name()] = p.Boost(answer, bundle)
	}
	return boosts
}

func isHarmfulQuery(question string) bool {
	lower := strings.ToLower(question)
	for _, indicator := range harmfulIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// buildPrompt assembles the evidence-grounded prompt.
//
// Sources are numbered in bundle order so the model's [Source N]
// markers line up with the citation synthesizer's numbering.
func buildPrompt(question string, domain datatypes.Domain, bundle *datatypes.EvidenceBundle) string {
	var b strings.Builder

	switch domain {
	case datatypes.DomainMedical:
		b.WriteString("Answer the medical question below for a general audience. ")
		b.WriteString("Be accurate, note uncertainty where it exists, and include a reminder to consult a healthcare provider.\n\n")
	case datatypes.DomainFinance:
		b.WriteString("Answer the finance question below for a general audience. ")
		b.WriteString("Be accurate, never promise returns, and note that this is educational information, not financial advice.\n\n")
	default:
		b.WriteString("Answer the question below accurately and concisely.\n\n")
	}

	if len(bundle.Sources) > 0 {
		b.WriteString("Ground your answer in the numbered sources and cite them inline as [Source N].\n\n")
		for i, src := range bundle.Sources {
			title := src.Title
			if title == "" {
				title = src.Locator
			}
			fmt.Fprintf(&b, "[Source %d] %s (reliability %d%%)\n%s\n\n",
				i+1, title, int(src.Reliability*100), src.Content)
		}
	} else {
		b.WriteString("No supporting sources were found. Answer from general knowledge and say explicitly that no sources back this answer.\n\n")
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// =============================================================================
// Error Types
// =============================================================================

// GenerationError wraps LLM backend failures so handlers can map them
// to an upstream error status.
type GenerationError struct {
	Err error
}

// Error implements the error interface for GenerationError.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

// Unwrap supports errors.Is and errors.As chains.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError checks if an error is a GenerationError. Useful for
// handlers to determine the appropriate HTTP status code.
func IsGenerationError(err error) bool {
	_, ok := err.(*GenerationError)
	return ok
}

// ValidationError wraps request validation failures so handlers can map
// them to a client error status.
type ValidationError struct {
	Err error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Err)
}

// Unwrap supports errors.Is and errors.As chains.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

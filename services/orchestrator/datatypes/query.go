// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxQuestionBytes bounds the question payload to keep prompt sizes and
// downstream search requests sane.
const MaxQuestionBytes = 8 * 1024

// =============================================================================
// Query Request Types
// =============================================================================

// QueryRequest is the body for POST /v1/query.
//
// # Fields
//
//   - Question: Required. The user's question, at most 8KB.
//   - Domain: Optional. "medical", "finance", or "general". Anything
//     else (including empty) is treated as general.
//   - SessionId: Optional. Omit to start a new session.
//   - SkipLiveSearch: Optional. When true the aggregator only consults
//     the curated store.
type QueryRequest struct {
	Question       string `json:"question"`
	Domain         string `json:"domain,omitempty"`
	SessionId      string `json:"session_id,omitempty"`
	SkipLiveSearch bool   `json:"skip_live_search,omitempty"`

	Id        string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// EnsureDefaults populates the request ID and timestamp if the client
// did not provide them.
func (r *QueryRequest) EnsureDefaults() {
	if r.Id == "" {
		r.Id = uuid.New().String()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// Validate checks the request for structural problems.
func (r *QueryRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question is required")
	}
	if len(r.Question) > MaxQuestionBytes {
		return fmt.Errorf("question exceeds %d bytes", MaxQuestionBytes)
	}
	return nil
}

// EnsureSessionId returns the session ID, generating one for the first
// turn of a new session.
func (r *QueryRequest) EnsureSessionId() string {
	if r.SessionId == "" {
		r.SessionId = uuid.New().String()
	}
	return r.SessionId
}

// =============================================================================
// Query Response Types
// =============================================================================

// ValidationReport is the per-check score breakdown returned to clients.
// Scores are in [0,1]; Adjustment is the signed confidence delta the
// validator applied.
type ValidationReport struct {
	Valid        bool     `json:"valid"`
	Citation     float64  `json:"citation_score"`
	Numeric      float64  `json:"numeric_score"`
	Safety       float64  `json:"safety_score"`
	Completeness float64  `json:"completeness_score"`
	Adjustment   float64  `json:"confidence_adjustment"`
	Issues       []string `json:"issues,omitempty"`
}

// QueryResponse is the body returned by POST /v1/query.
//
// Confidence is the calibrated final score in [0, 0.85]. Sources lists
// the evidence bundle that grounded the answer, in citation order.
type QueryResponse struct {
	Id               string             `json:"response_id"`
	RequestId        string             `json:"request_id"`
	SessionId        string             `json:"session_id"`
	Timestamp        int64              `json:"timestamp"`
	Answer           string             `json:"answer"`
	Domain           Domain             `json:"domain"`
	Confidence       float64            `json:"confidence"`
	Sources          []EvidenceSource   `json:"sources,omitempty"`
	Boosts           map[string]float64 `json:"boosts,omitempty"`
	NoEvidence       bool               `json:"no_evidence,omitempty"`
	Validation       *ValidationReport  `json:"validation,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms,omitempty"`
}

// NewQueryResponse creates a response with a generated ID and timestamp.
func NewQueryResponse(requestId, sessionId, answer string, domain Domain) *QueryResponse {
	return &QueryResponse{
		Id:        uuid.New().String(),
		RequestId: requestId,
		SessionId: sessionId,
		Timestamp: time.Now().UnixMilli(),
		Answer:    answer,
		Domain:    domain,
	}
}

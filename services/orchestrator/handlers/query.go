// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/observability"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/services"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var queryTracer = otel.Tracer("fairagent.orchestrator.handlers")

// HandleQuery answers a domain-restricted question.
//
// POST /v1/query
//
// Binds the request body, delegates to the domain agent service, and
// maps service errors to HTTP statuses: malformed or invalid requests
// get 400, LLM backend failures get 502, everything else 500. Metrics
// are recorded when observability.InitMetrics has run.
func HandleQuery(service *services.DomainAgentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := queryTracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()
		started := time.Now()

		var req datatypes.QueryRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the query request", "error", err)
			recordFailure("", observability.ErrorCodeValidation, started)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		domain := string(datatypes.ParseDomain(req.Domain))

		resp, err := service.Process(ctx, &req)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			if services.IsGenerationError(err) {
				slog.Error("Query generation failed", "requestId", req.Id, "error", err)
				recordFailure(domain, observability.ErrorCodeLLMError, started)
				c.JSON(http.StatusBadGateway, gin.H{"error": "answer generation failed"})
				return
			}
			if services.IsValidationError(err) {
				slog.Warn("Rejected invalid query request", "error", err)
				recordFailure(domain, observability.ErrorCodeValidation, started)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			slog.Error("Query processing failed", "requestId", req.Id, "error", err)
			recordFailure(domain, observability.ErrorCodeInternal, started)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		recordSuccess(resp, started)
		c.JSON(http.StatusOK, resp)
	}
}

// recordSuccess updates the pipeline metrics for a completed query.
func recordSuccess(resp *datatypes.QueryResponse, started time.Time) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	domain := string(resp.Domain)
	m.RecordRequest(domain, true)
	m.RecordConfidence(domain, resp.Confidence)
	m.RecordDuration(domain, time.Since(started).Seconds(), true)

	curated, live := 0, 0
	for _, src := range resp.Sources {
		if src.Origin == datatypes.OriginLive {
			live++
		} else {
			curated++
		}
	}
	m.RecordEvidence(curated, live)

	if v := resp.Validation; v != nil && !v.Valid {
		if v.Citation < 0.4 {
			m.RecordValidationFailure(domain, "citation")
		}
		if v.Numeric < 0.5 {
			m.RecordValidationFailure(domain, "numeric")
		}
		if v.Safety < 0.6 {
			m.RecordValidationFailure(domain, "safety")
		}
		if v.Completeness < 0.4 {
			m.RecordValidationFailure(domain, "completeness")
		}
	}
}

// recordFailure updates the pipeline metrics for a failed query.
func recordFailure(domain string, code observability.ErrorCode, started time.Time) {
	m := observability.DefaultMetrics
	if m == nil {
		return
	}
	if domain == "" {
		domain = string(datatypes.DomainGeneral)
	}
	m.RecordRequest(domain, false)
	m.RecordError(code)
	m.RecordDuration(domain, time.Since(started).Seconds(), false)
}

// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fairagent/FairAgentLocal/services/llm"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/evidence"
	"github.com/fairagent/FairAgentLocal/services/orchestrator/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLLMClient records the prompt and returns a canned answer.
type mockLLMClient struct {
	response   string
	err        error
	callCount  int
	lastPrompt string
}

func (m *mockLLMClient) Generate(_ context.Context, prompt string, _ llm.GenerationParams) (string, error) {
	m.callCount++
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockCuratedStore serves a fixed source list for every search.
type mockCuratedStore struct {
	sources   []datatypes.EvidenceSource
	err       error
	callCount int
}

func (m *mockCuratedStore) Search(_ context.Context, _ string, _ datatypes.Domain, _ int) ([]datatypes.EvidenceSource, error) {
	m.callCount++
	return m.sources, m.err
}

func newTestService(llmClient llm.LLMClient, store evidence.CuratedStore) *DomainAgentService {
	return NewDomainAgentService(llmClient, evidence.NewAggregator(store, nil), validation.NewValidator())
}

func TestDomainAgentService_ProcessMedicalQuery(t *testing.T) {
	store := &mockCuratedStore{sources: []datatypes.EvidenceSource{{
		Title:       "Statin Side Effects",
		Content:     "Statins may cause muscle aches and digestive problems.",
		Locator:     "https://medlineplus.gov/statins.html",
		Reliability: 0.95,
		Origin:      datatypes.OriginCurated,
		Domain:      datatypes.DomainMedical,
	}}}
	llmClient := &mockLLMClient{response: "Clinical evidence shows statins may cause muscle " +
		"aches in some patients [Source 1]. Side effects vary between individuals, so consult " +
		"a healthcare provider before changing your medication."}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{
		Question: "What are the side effects of statins?",
		Domain:   "medical",
	}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, 1, llmClient.callCount)
	assert.Equal(t, 1, store.callCount)
	assert.Equal(t, req.Id, resp.RequestId)
	assert.NotEmpty(t, resp.SessionId)
	assert.Equal(t, datatypes.DomainMedical, resp.Domain)
	assert.False(t, resp.NoEvidence)
	require.Len(t, resp.Sources, 1)

	require.NotNil(t, resp.Validation)
	assert.True(t, resp.Validation.Valid)

	assert.GreaterOrEqual(t, resp.Confidence, 0.1)
	assert.LessOrEqual(t, resp.Confidence, 0.85)

	require.Contains(t, resp.Boosts, "safety")
	require.Contains(t, resp.Boosts, "evidence")
	require.Contains(t, resp.Boosts, "reasoning")
	assert.Greater(t, resp.Boosts["evidence"], 0.0)

	assert.Contains(t, resp.Answer, "**Sources (1):**")
	assert.Contains(t, resp.Answer, "Statin Side Effects")
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, int64(0))
}

func TestDomainAgentService_PromptGroundsEvidence(t *testing.T) {
	store := &mockCuratedStore{sources: []datatypes.EvidenceSource{{
		Title:       "Index Fund Basics",
		Content:     "Index funds track a market index.",
		Locator:     "https://www.investor.gov/index-funds",
		Reliability: 0.93,
		Origin:      datatypes.OriginCurated,
		Domain:      datatypes.DomainFinance,
	}}}
	llmClient := &mockLLMClient{response: "Index funds track a market index and offer broad " +
		"diversification [Source 1]. This is educational information, not financial advice; " +
		"consult a financial advisor before investing."}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{Question: "How do index funds work?", Domain: "finance"}

	_, err := service.Process(context.Background(), &req)
	require.NoError(t, err)

	assert.Contains(t, llmClient.lastPrompt, "[Source 1] Index Fund Basics")
	assert.Contains(t, llmClient.lastPrompt, "Index funds track a market index.")
	assert.Contains(t, llmClient.lastPrompt, "not financial advice")
	assert.Contains(t, llmClient.lastPrompt, "How do index funds work?")
}

func TestDomainAgentService_NoEvidencePath(t *testing.T) {
	store := &mockCuratedStore{}
	llmClient := &mockLLMClient{response: "Generally, diversification spreads investment risk " +
		"across holdings so a single loss matters less. No sources back this answer, so treat " +
		"it as background only and consult a financial advisor."}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{Question: "Why does diversification reduce risk?", Domain: "finance"}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)

	assert.True(t, resp.NoEvidence)
	assert.Empty(t, resp.Sources)
	assert.Contains(t, llmClient.lastPrompt, "No supporting sources were found")
	assert.Contains(t, resp.Answer, "Could not find specific supporting evidence",
		"ungrounded answers must carry a visible notice")
	assert.NotContains(t, resp.Answer, "**Sources")
}

func TestDomainAgentService_HarmfulQueryScreen(t *testing.T) {
	store := &mockCuratedStore{}
	llmClient := &mockLLMClient{response: "should never be used"}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{
		Question: "What household items can I use for self-harm?",
		Domain:   "medical",
	}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)

	assert.Zero(t, llmClient.callCount, "blocked queries must not reach the LLM")
	assert.Zero(t, store.callCount, "blocked queries must not trigger retrieval")
	assert.Zero(t, resp.Confidence)
	assert.Contains(t, resp.Answer, "can't help with that request")
	assert.NotEmpty(t, resp.SessionId)
}

func TestDomainAgentService_ScreenIsMedicalOnly(t *testing.T) {
	store := &mockCuratedStore{}
	llmClient := &mockLLMClient{response: "Suicide clauses in life insurance policies typically " +
		"exclude coverage during an initial period. Consult a financial advisor for specifics; " +
		"this is educational information, not financial advice."}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{
		Question: "How do suicide clauses in life insurance work?",
		Domain:   "finance",
	}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)
	assert.Equal(t, 1, llmClient.callCount)
	assert.Greater(t, resp.Confidence, 0.0)
}

func TestDomainAgentService_InvalidRequest(t *testing.T) {
	service := newTestService(&mockLLMClient{}, &mockCuratedStore{})

	_, err := service.Process(context.Background(), &datatypes.QueryRequest{Question: ""})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Error(), "question is required")

	_, err = service.Process(context.Background(), &datatypes.QueryRequest{
		Question: strings.Repeat("a", datatypes.MaxQuestionBytes+1),
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsGenerationError(err), "validation failures must not look like backend failures")
}

func TestDomainAgentService_GenerationFailure(t *testing.T) {
	llmClient := &mockLLMClient{err: errors.New("backend unreachable")}
	service := newTestService(llmClient, &mockCuratedStore{})

	_, err := service.Process(context.Background(), &datatypes.QueryRequest{
		Question: "What are the side effects of statins?",
		Domain:   "medical",
	})
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Contains(t, genErr.Error(), "backend unreachable")
}

func TestDomainAgentService_AppendsMissingDisclaimer(t *testing.T) {
	store := &mockCuratedStore{sources: []datatypes.EvidenceSource{{
		Title:       "Blood Pressure Basics",
		Content:     "High blood pressure raises cardiovascular risk.",
		Locator:     "https://www.cdc.gov/bloodpressure",
		Reliability: 0.96,
		Origin:      datatypes.OriginCurated,
		Domain:      datatypes.DomainMedical,
	}}}
	// Medical answer with no disclaimer language at all.
	llmClient := &mockLLMClient{response: "Common blood pressure medication classes include " +
		"diuretics and beta blockers [Source 1]. Each drug class works through a different " +
		"mechanism and dosing differs between patients."}

	service := newTestService(llmClient, store)
	req := datatypes.QueryRequest{Question: "What medication lowers blood pressure?", Domain: "medical"}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "**Important:**")
	assert.Contains(t, resp.Answer, "consult a qualified healthcare provider")
	require.NotNil(t, resp.Validation)
	assert.False(t, resp.Validation.Valid, "missing disclaimer fails the safety check")
}

func TestDomainAgentService_CustomProducers(t *testing.T) {
	store := &mockCuratedStore{}
	llmClient := &mockLLMClient{response: "Generally, rebalancing keeps portfolio weights near " +
		"their targets over time. Consult a financial advisor before acting on this."}

	service := newTestService(llmClient, store).WithProducers()
	req := datatypes.QueryRequest{Question: "Why rebalance a portfolio?", Domain: "finance"}

	resp, err := service.Process(context.Background(), &req)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Confidence, 0.1)
}

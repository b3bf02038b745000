// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockHTTPClient implements HTTPClient and records the last request.
type mockHTTPClient struct {
	status   int
	body     string
	err      error
	lastReq  *http.Request
	numCalls int
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	m.numCalls++
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

const searchPayload = `{
	"items": [
		{"title": "Statins - MedlinePlus", "link": "https://medlineplus.gov/statins.html", "snippet": "Statins are drugs used to lower cholesterol."},
		{"title": "Cholesterol - CDC", "link": "https://www.cdc.gov/cholesterol", "snippet": "About high cholesterol."},
		{"title": "No link entry", "link": "", "snippet": "dropped"}
	]
}`

func TestGoogleSearchProvider_Search(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusOK, body: searchPayload}
	p := NewGoogleSearchProviderWithClient("key", "engine", client)

	sources, err := p.Search(context.Background(), "statin side effects", datatypes.DomainMedical, 3)
	require.NoError(t, err)
	require.Len(t, sources, 2, "entries without links are dropped")

	assert.Equal(t, "Statins - MedlinePlus", sources[0].Title)
	assert.Equal(t, "https://medlineplus.gov/statins.html", sources[0].Locator)
	assert.Equal(t, datatypes.OriginLive, sources[0].Origin)
	assert.InDelta(t, 0.94, sources[0].Reliability, 1e-9)

	// The outgoing query must be pinned to the vetted medical sites.
	q := client.lastReq.URL.Query().Get("q")
	assert.Contains(t, q, "site:mayoclinic.org")
	assert.Contains(t, q, "site:medlineplus.gov")
	assert.Contains(t, q, "site:cdc.gov")
	assert.Equal(t, "key", client.lastReq.URL.Query().Get("key"))
	assert.Equal(t, "engine", client.lastReq.URL.Query().Get("cx"))
}

func TestGoogleSearchProvider_FinanceFilterAndReliability(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusOK, body: `{"items":[{"title":"T","link":"https://investor.gov/x","snippet":"s"}]}`}
	p := NewGoogleSearchProviderWithClient("key", "engine", client)

	sources, err := p.Search(context.Background(), "index funds", datatypes.DomainFinance, 3)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.InDelta(t, 0.92, sources[0].Reliability, 1e-9)
	assert.Contains(t, client.lastReq.URL.Query().Get("q"), "site:investor.gov")
}

func TestGoogleSearchProvider_QuotaExhaustedDegrades(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusTooManyRequests, body: `{"error": "quota"}`}
	p := NewGoogleSearchProviderWithClient("key", "engine", client)

	sources, err := p.Search(context.Background(), "q", datatypes.DomainMedical, 3)
	assert.NoError(t, err, "429 must degrade, not fail")
	assert.Empty(t, sources)
}

func TestGoogleSearchProvider_ServerErrorFails(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusInternalServerError, body: "boom"}
	p := NewGoogleSearchProviderWithClient("key", "engine", client)

	_, err := p.Search(context.Background(), "q", datatypes.DomainMedical, 3)
	assert.Error(t, err)
}

func TestGoogleSearchProvider_Unconfigured(t *testing.T) {
	client := &mockHTTPClient{status: http.StatusOK, body: searchPayload}
	p := NewGoogleSearchProviderWithClient("", "", client)

	sources, err := p.Search(context.Background(), "q", datatypes.DomainMedical, 3)
	assert.NoError(t, err)
	assert.Empty(t, sources)
	assert.Zero(t, client.numCalls, "unconfigured provider must not hit the network")
	assert.False(t, p.Configured())
}

func TestGoogleSearchProvider_EmptyQuery(t *testing.T) {
	p := NewGoogleSearchProviderWithClient("key", "engine", &mockHTTPClient{status: http.StatusOK, body: "{}"})
	_, err := p.Search(context.Background(), "", datatypes.DomainMedical, 3)
	assert.Error(t, err)
}

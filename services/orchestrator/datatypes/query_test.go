// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRequest_EnsureDefaults(t *testing.T) {
	req := QueryRequest{Question: "What is diabetes?"}
	req.EnsureDefaults()

	assert.NotEmpty(t, req.Id)
	assert.NotZero(t, req.Timestamp)

	// Client-provided values survive.
	fixed := QueryRequest{Question: "q", Id: "req-1", Timestamp: 42}
	fixed.EnsureDefaults()
	assert.Equal(t, "req-1", fixed.Id)
	assert.Equal(t, int64(42), fixed.Timestamp)
}

func TestQueryRequest_Validate(t *testing.T) {
	valid := QueryRequest{Question: "What is diabetes?"}
	require.NoError(t, valid.Validate())

	empty := QueryRequest{}
	err := empty.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question is required")

	oversized := QueryRequest{Question: strings.Repeat("a", MaxQuestionBytes+1)}
	require.Error(t, oversized.Validate())
}

func TestQueryRequest_EnsureSessionId(t *testing.T) {
	req := QueryRequest{Question: "q"}
	first := req.EnsureSessionId()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, req.SessionId, "generated id should be stored on the request")
	assert.Equal(t, first, req.EnsureSessionId(), "repeated calls must not rotate the id")

	continuing := QueryRequest{Question: "q", SessionId: "sess-7"}
	assert.Equal(t, "sess-7", continuing.EnsureSessionId())
}

func TestNewQueryResponse(t *testing.T) {
	resp := NewQueryResponse("req-1", "sess-1", "answer text", DomainFinance)

	assert.NotEmpty(t, resp.Id)
	assert.Equal(t, "req-1", resp.RequestId)
	assert.Equal(t, "sess-1", resp.SessionId)
	assert.Equal(t, "answer text", resp.Answer)
	assert.Equal(t, DomainFinance, resp.Domain)
	assert.NotZero(t, resp.Timestamp)
}

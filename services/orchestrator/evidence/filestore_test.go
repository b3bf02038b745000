// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package evidence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fairagent/FairAgentLocal/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `
medical:
  - title: Statin Side Effects
    content: Statins may cause muscle aches, digestive problems, and rarely liver damage.
    locator: https://medlineplus.gov/statins.html
    reliability: 0.95
  - title: Blood Pressure Basics
    content: High blood pressure often has no symptoms but raises cardiovascular risk.
    locator: https://www.cdc.gov/bloodpressure
    reliability: 0.96
finance:
  - title: Index Fund Basics
    content: Index funds track a market index and offer broad diversification at low cost.
    locator: https://www.investor.gov/index-funds
    reliability: 0.93
`

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := ParseFileStore([]byte(testCorpus))
	require.NoError(t, err)
	return store
}

func TestFileStore_SearchRanksByOverlap(t *testing.T) {
	store := newTestFileStore(t)

	sources, err := store.Search(context.Background(), "statin muscle aches", datatypes.DomainMedical, 5)
	require.NoError(t, err)
	require.Len(t, sources, 1, "entries with zero overlap are dropped")

	assert.Equal(t, "Statin Side Effects", sources[0].Title)
	assert.Equal(t, datatypes.OriginCurated, sources[0].Origin)
	assert.Equal(t, datatypes.DomainMedical, sources[0].Domain)
	assert.InDelta(t, 0.95, sources[0].Reliability, 1e-9)
}

func TestFileStore_DomainIsolation(t *testing.T) {
	store := newTestFileStore(t)

	sources, err := store.Search(context.Background(), "index funds diversification", datatypes.DomainMedical, 5)
	require.NoError(t, err)
	assert.Empty(t, sources, "finance corpus entries must not leak into medical searches")

	sources, err = store.Search(context.Background(), "index funds diversification", datatypes.DomainFinance, 5)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Index Fund Basics", sources[0].Title)
}

func TestFileStore_LimitAndDeterminism(t *testing.T) {
	store := newTestFileStore(t)

	first, err := store.Search(context.Background(), "blood pressure symptoms statins muscle", datatypes.DomainMedical, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := store.Search(context.Background(), "blood pressure symptoms statins muscle", datatypes.DomainMedical, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFileStore_EmptyQuery(t *testing.T) {
	store := newTestFileStore(t)
	_, err := store.Search(context.Background(), "", datatypes.DomainMedical, 5)
	assert.Error(t, err)
}

func TestNewFileStore_ReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCorpus), 0o600))

	store, err := NewFileStore(path)
	require.NoError(t, err)

	sources, err := store.Search(context.Background(), "statin aches", datatypes.DomainMedical, 5)
	require.NoError(t, err)
	assert.NotEmpty(t, sources)
}

func TestNewFileStore_MissingFile(t *testing.T) {
	_, err := NewFileStore("/nonexistent/corpus.yaml")
	assert.Error(t, err)
}

func TestParseFileStore_BadYAML(t *testing.T) {
	_, err := ParseFileStore([]byte("medical: [unclosed"))
	assert.Error(t, err)
}

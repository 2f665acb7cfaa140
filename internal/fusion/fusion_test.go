package fusion

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kikuchi0790/ukfr-smbc-app-sub000/pkg/types"
)

// scriptedSearcher returns a canned result list per embedding identity,
// keyed by the first element of the embedding.
type scriptedSearcher struct {
	results map[float32][]types.RetrievedPassage
	errs    map[float32]error
}

func (s *scriptedSearcher) Search(_ context.Context, embedding []float32, _ types.SearchOptions) ([]types.RetrievedPassage, error) {
	key := embedding[0]
	if err, ok := s.errs[key]; ok {
		return nil, err
	}
	return s.results[key], nil
}

func passage(material string, page int, score float64) types.RetrievedPassage {
	return types.RetrievedPassage{
		MaterialID: material,
		Page:       page,
		Quote:      "text",
		Score:      score,
	}
}

func TestRetrieveSingleQueryPassthrough(t *testing.T) {
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 10, 0.9), passage("Checkpoint", 22, 0.7)},
	}}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "only phrasing", Embedding: []float32{1}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.9, got[0].Score, 1e-9)
	assert.InDelta(t, 0.7, got[1].Score, 1e-9)
}

func TestRetrieveConsensusBoost(t *testing.T) {
	// Page 10 appears in both lists; page 22 only in the first with a
	// higher raw score. Consensus must win the top slot.
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 22, 0.95), passage("Checkpoint", 10, 0.80)},
		2: {passage("Checkpoint", 10, 0.85)},
	}}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 10, got[0].Page)
	assert.InDelta(t, 0.85*DefaultConsensusBoost, got[0].Score, 1e-9)
	assert.Equal(t, 22, got[1].Page)
	assert.InDelta(t, 0.95, got[1].Score, 1e-9)
}

func TestRetrieveConsensusBoostCompounds(t *testing.T) {
	// Page 10 is confirmed by all three phrasings, so the boost applies
	// once per extra confirming phrasing.
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 10, 0.80)},
		2: {passage("Checkpoint", 10, 0.85)},
		3: {passage("Checkpoint", 10, 0.70)},
	}}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
		{Phrasing: "c", Embedding: []float32{3}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.85*DefaultConsensusBoost*DefaultConsensusBoost, got[0].Score, 1e-9)
}

func TestRetrieveConfiguredBoost(t *testing.T) {
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 10, 0.80)},
		2: {passage("Checkpoint", 10, 0.85)},
	}}
	f := New(s, 1.5, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.85*1.5, got[0].Score, 1e-9)
}

func TestRetrieveDuplicateWithinOneListNotBoosted(t *testing.T) {
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 10, 0.6), passage("Checkpoint", 10, 0.8)},
	}}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.8, got[0].Score, 1e-9)
}

func TestRetrieveTruncatesAfterFusion(t *testing.T) {
	s := &scriptedSearcher{results: map[float32][]types.RetrievedPassage{
		1: {passage("Checkpoint", 1, 0.9), passage("Checkpoint", 2, 0.8), passage("Checkpoint", 3, 0.7)},
		2: {passage("Checkpoint", 3, 0.6)},
	}}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
	}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Page 3 hit twice, so it survives the cut ahead of pages 1 and 2.
	assert.Equal(t, 3, got[0].Page)
	assert.Equal(t, 1, got[1].Page)
}

func TestRetrievePartialFailureDegrades(t *testing.T) {
	s := &scriptedSearcher{
		results: map[float32][]types.RetrievedPassage{
			1: {passage("Checkpoint", 10, 0.9)},
		},
		errs: map[float32]error{2: errors.New("backend timeout")},
	}
	f := New(s, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
	}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].Page)
}

func TestRetrieveAllFailuresError(t *testing.T) {
	s := &scriptedSearcher{errs: map[float32]error{
		1: errors.New("backend down"),
		2: errors.New("backend down"),
	}}
	f := New(s, 0, slog.Default())

	_, err := f.Retrieve(context.Background(), []SubQuery{
		{Phrasing: "a", Embedding: []float32{1}},
		{Phrasing: "b", Embedding: []float32{2}},
	}, 5)
	assert.Error(t, err)
}

func TestRetrieveEmptyInputs(t *testing.T) {
	f := New(&scriptedSearcher{}, 0, slog.Default())

	got, err := f.Retrieve(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.Retrieve(context.Background(), []SubQuery{{Embedding: []float32{1}}}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterCandidatesThreshold(t *testing.T) {
	candidates := []Candidate{
		{Chunk: Chunk{Text: "c1"}, Distance: 0.2},
		{Chunk: Chunk{Text: "c2"}, Distance: 0.97},
	}
	result := FilterCandidates(candidates, 0.95, 1)
	require.True(t, result.Sufficient)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "c1", result.Accepted[0].Chunk.Text)
	assert.False(t, result.Fallback)
}

func TestFilterCandidatesFallbackToBest(t *testing.T) {
	candidates := []Candidate{
		{Chunk: Chunk{Text: "far"}, Distance: 0.99},
		{Chunk: Chunk{Text: "farther"}, Distance: 1.3},
	}
	result := FilterCandidates(candidates, 0.95, 1)
	require.True(t, result.Sufficient)
	require.Len(t, result.Accepted, 1)
	assert.Equal(t, "far", result.Accepted[0].Chunk.Text)
	assert.True(t, result.Fallback)
}

func TestFilterCandidatesInsufficient(t *testing.T) {
	result := FilterCandidates(nil, 0.95, 1)
	assert.False(t, result.Sufficient)
	assert.Empty(t, result.Accepted)
}

func TestFilterCandidatesMinDocs(t *testing.T) {
	candidates := []Candidate{{Chunk: Chunk{Text: "only"}, Distance: 0.1}}
	result := FilterCandidates(candidates, 0.95, 3)
	assert.False(t, result.Sufficient)
}

func TestFilterCandidatesBoundary(t *testing.T) {
	// exactly on the threshold passes
	candidates := []Candidate{{Chunk: Chunk{Text: "edge"}, Distance: 0.95}}
	result := FilterCandidates(candidates, 0.95, 1)
	require.Len(t, result.Accepted, 1)
	assert.False(t, result.Fallback)
}

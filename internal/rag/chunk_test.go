package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("hello world", 1000, 200)
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 11, chunks[0].End)
}

func TestSplitTextChunkBounds(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks := SplitText(text, 1000, 200)
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 1000)
		assert.NotEmpty(t, c.Text)
		assert.Equal(t, c.End-c.Start, len([]rune(c.Text)))
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := strings.Repeat("x", 1800)
	chunks := SplitText(text, 1000, 200)
	require.Len(t, chunks, 2)
	// overlap of 200 means the second chunk starts 800 in
	assert.Equal(t, 800, chunks[1].Start)
}

func TestSplitTextDeterministic(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 60)
	first := SplitText(text, 1000, 200)
	second := SplitText(text, 1000, 200)
	assert.Equal(t, first, second)
}

func TestSplitTextMultibyte(t *testing.T) {
	text := strings.Repeat("世界", 700)
	chunks := SplitText(text, 1000, 200)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 1000)
	}
	// rejoining chunk rune counts must cover the full text
	last := chunks[len(chunks)-1]
	assert.Equal(t, 1400, last.End)
}

func TestSplitTextEmpty(t *testing.T) {
	assert.Empty(t, SplitText("", 1000, 200))
	assert.Empty(t, SplitText("   \n\t ", 1000, 200))
}

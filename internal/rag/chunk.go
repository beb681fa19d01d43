package rag

import "strings"

// Chunk is a bounded span of source-document text, the unit of retrieval.
// Chunks are immutable once produced and belong to exactly one session.
type Chunk struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	Start     int    `json:"start"` // rune offset into the source text
	End       int    `json:"end"`
}

// SplitText splits text into overlapping chunks measured in runes. The
// overlap keeps sentences that straddle a boundary retrievable from at
// least one chunk. Splitting is deterministic: the same input always
// yields the same chunk boundaries.
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	runes := []rune(text)
	for i := 0; i < len(runes); i += size - overlap {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, Chunk{
			Text:  string(runes[i:end]),
			Start: i,
			End:   end,
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

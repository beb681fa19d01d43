package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrIngestionFailed = errors.New("ingestion failed")

// Ingestor runs the document side of the pipeline: extract, chunk, tag,
// embed, insert. Chunk size and overlap are fixed policy, set once at
// construction.
type Ingestor struct {
	index    VectorIndex
	embedder Embedder
	size     int
	overlap  int
}

func NewIngestor(index VectorIndex, embedder Embedder, chunkSize, chunkOverlap int) *Ingestor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Ingestor{
		index:    index,
		embedder: embedder,
		size:     chunkSize,
		overlap:  chunkOverlap,
	}
}

// Ingest loads the document and indexes its chunks under sessionID,
// returning the chunk count. An embed or insert failure aborts the file;
// chunks from earlier batches that were already inserted are not rolled
// back (re-ingesting is safe, duplicates do not corrupt retrieval).
func (ing *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader, sessionID string) (int, error) {
	text, err := ExtractText(filename, r)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(text) == "" {
		return 0, ErrEmptyDocument
	}

	chunks := SplitText(text, ing.size, ing.overlap)
	if len(chunks) == 0 {
		return 0, ErrEmptyDocument
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].SessionID = sessionID
		texts[i] = chunks[i].Text
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("%w: embed chunks: %v", ErrIngestionFailed, err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: embedding count mismatch", ErrIngestionFailed)
	}

	if err := ing.index.Insert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("%w: insert chunks: %v", ErrIngestionFailed, err)
	}
	return len(chunks), nil
}

package rag

import (
	"context"
	"fmt"

	"docuchat/internal/platform/qdrant"
)

// Candidate is a similarity-scored retrieval result. Distance is lower-is-
// better; callers must not assume a bounded range.
type Candidate struct {
	Chunk    Chunk
	Distance float64
}

// Retriever finds candidate chunks for a query within one session. The
// session identifier is the sole isolation boundary: implementations must
// never return a chunk tagged with a different session.
type Retriever interface {
	Search(ctx context.Context, query, sessionID string, k int) ([]Candidate, error)
}

// Embedder turns text into vectors. The model behind it is fixed for the
// lifetime of the index collection.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the persistent embedding store.
type VectorIndex interface {
	Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, sessionID string, k int) ([]Candidate, error)
	PurgeSession(ctx context.Context, sessionID string) error
}

// VectorRetriever embeds the query and searches the index.
type VectorRetriever struct {
	index    VectorIndex
	embedder Embedder
}

func NewVectorRetriever(index VectorIndex, embedder Embedder) *VectorRetriever {
	return &VectorRetriever{index: index, embedder: embedder}
}

func (r *VectorRetriever) Search(ctx context.Context, query, sessionID string, k int) ([]Candidate, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}
	return r.index.Search(ctx, vector, sessionID, k)
}

// qdrantIndex adapts the qdrant platform client to the VectorIndex
// contract.
type qdrantIndex struct {
	client *qdrant.Client
	newID  func() string
}

func NewQdrantIndex(client *qdrant.Client, newID func() string) VectorIndex {
	return &qdrantIndex{client: client, newID: newID}
}

func (q *qdrantIndex) Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	points := make([]qdrant.Point, len(chunks))
	for i := range chunks {
		points[i] = qdrant.Point{
			ID:        q.newID(),
			Vector:    vectors[i],
			SessionID: chunks[i].SessionID,
			Text:      chunks[i].Text,
			Start:     chunks[i].Start,
			End:       chunks[i].End,
		}
	}
	return q.client.Upsert(ctx, points)
}

func (q *qdrantIndex) Search(ctx context.Context, vector []float32, sessionID string, k int) ([]Candidate, error) {
	hits, err := q.client.Search(ctx, vector, sessionID, k)
	if err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		candidates = append(candidates, Candidate{
			Chunk: Chunk{
				Text:      hit.Text,
				SessionID: hit.SessionID,
				Start:     hit.Start,
				End:       hit.End,
			},
			Distance: hit.Distance,
		})
	}
	return candidates, nil
}

func (q *qdrantIndex) PurgeSession(ctx context.Context, sessionID string) error {
	return q.client.DeleteBySession(ctx, sessionID)
}

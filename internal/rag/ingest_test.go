package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2}
	}
	return vectors, nil
}

type fakeIndex struct {
	inserted  []Chunk
	insertErr error
	purged    []string
}

func (f *fakeIndex) Insert(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, sessionID string, k int) ([]Candidate, error) {
	return nil, nil
}

func (f *fakeIndex) PurgeSession(ctx context.Context, sessionID string) error {
	f.purged = append(f.purged, sessionID)
	return nil
}

func TestIngestTagsEverySessionID(t *testing.T) {
	index := &fakeIndex{}
	ing := NewIngestor(index, &fakeEmbedder{}, 100, 20)

	count, err := ing.Ingest(context.Background(), "doc.txt", strings.NewReader(strings.Repeat("lorem ipsum ", 50)), "session-7")
	require.NoError(t, err)
	require.Greater(t, count, 1)
	require.Len(t, index.inserted, count)
	for _, c := range index.inserted {
		assert.Equal(t, "session-7", c.SessionID)
	}
}

func TestIngestEmptyDocument(t *testing.T) {
	ing := NewIngestor(&fakeIndex{}, &fakeEmbedder{}, 1000, 200)
	_, err := ing.Ingest(context.Background(), "blank.txt", strings.NewReader("   \n "), "s1")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestIngestUnsupportedFormat(t *testing.T) {
	ing := NewIngestor(&fakeIndex{}, &fakeEmbedder{}, 1000, 200)
	_, err := ing.Ingest(context.Background(), "slides.pptx", strings.NewReader("x"), "s1")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngestEmbedFailure(t *testing.T) {
	index := &fakeIndex{}
	ing := NewIngestor(index, &fakeEmbedder{err: errors.New("quota exceeded")}, 1000, 200)
	_, err := ing.Ingest(context.Background(), "doc.txt", strings.NewReader("some content"), "s1")
	require.ErrorIs(t, err, ErrIngestionFailed)
	assert.Empty(t, index.inserted)
}

func TestIngestInsertFailure(t *testing.T) {
	index := &fakeIndex{insertErr: errors.New("qdrant unavailable")}
	ing := NewIngestor(index, &fakeEmbedder{}, 1000, 200)
	_, err := ing.Ingest(context.Background(), "doc.txt", strings.NewReader("some content"), "s1")
	assert.ErrorIs(t, err, ErrIngestionFailed)
}

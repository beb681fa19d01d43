package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s Stream) []string {
	t.Helper()
	var out []string
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, fragment)
	}
}

func TestStreamOf(t *testing.T) {
	s := StreamOf("a", "b")
	assert.Equal(t, []string{"a", "b"}, drain(t, s))

	// EOF is sticky.
	_, err := s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestOpenAICompatibleStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
				"data: [DONE]\n\n",
		))
	}))
	defer server.Close()

	model := newOpenAICompatibleModel(server.URL, "test-key", Descriptor{
		Name:  "llama3-70b",
		Model: "llama3-70b-8192",
	})

	stream, err := model.Stream(context.Background(), Prompt{
		System: "You are a helpful assistant.",
		User:   "Hi",
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"Hello", " world"}, drain(t, stream))
}

func TestOpenAICompatibleStreamRetriesOn429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: [DONE]\n\n"))
	}))
	defer server.Close()

	model := newOpenAICompatibleModel(server.URL, "k", Descriptor{Model: "m", MaxRetries: 1, Timeout: 5 * time.Second})
	stream, err := model.Stream(context.Background(), Prompt{User: "hi"})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"ok"}, drain(t, stream))
	assert.Equal(t, 2, calls)
}

func TestOpenAICompatibleStreamFatalStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	model := newOpenAICompatibleModel(server.URL, "bad-key", Descriptor{Model: "m", MaxRetries: 2})
	_, err := model.Stream(context.Background(), Prompt{User: "hi"})
	assert.Error(t, err)
}

func TestGoogleStreamParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "alt=sse")
		_, _ = w.Write([]byte(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"The answer\"}]}}]}\n\n" +
				"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\" is 42.\"}]}}]}\n\n",
		))
	}))
	defer server.Close()

	model := newGoogleModel("key", Descriptor{Name: "gemini-flash", Model: "gemini-1.5-flash"})
	model.baseURL = server.URL

	stream, err := model.Stream(context.Background(), Prompt{
		History: []ChatMessage{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}},
		User:    "What is it?",
	})
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, []string{"The answer", " is 42."}, drain(t, stream))
}

func TestGoogleEmbedBatchOrderAndBatching(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Requests []struct {
				Content googleContent `json:"content"`
			} `json:"requests"`
		}
		require.NoError(t, decodeJSON(r, &req))
		batchSizes = append(batchSizes, len(req.Requests))

		resp := map[string]any{"embeddings": []map[string]any{}}
		embeddings := make([]map[string]any, len(req.Requests))
		for i := range req.Requests {
			embeddings[i] = map[string]any{"values": []float32{float32(i), 1}}
		}
		resp["embeddings"] = embeddings
		writeJSON(w, resp)
	}))
	defer server.Close()

	embedder, err := NewGoogleEmbedder(EmbeddingConfig{APIKey: "k", Model: "embedding-001"})
	require.NoError(t, err)
	embedder.baseURL = server.URL

	texts := make([]string, 23)
	for i := range texts {
		texts[i] = "chunk"
	}
	vectors, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, vectors, 23)
	assert.Equal(t, []int{10, 10, 3}, batchSizes)
}

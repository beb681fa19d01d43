package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{URL: server.URL, Collection: "chunks"})
}

func TestSearchCarriesSessionFilter(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chunks/points/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":[{"score":0.8,"payload":{"session_id":"42","text":"chunk text","start":0,"end":10}}]}`))
	})

	hits, err := client.Search(context.Background(), []float32{0.1, 0.2}, "42", 5)
	require.NoError(t, err)

	filter, ok := captured["filter"].(map[string]any)
	require.True(t, ok, "search request must carry a filter")
	must := filter["must"].([]any)
	require.Len(t, must, 1)
	cond := must[0].(map[string]any)
	assert.Equal(t, "session_id", cond["key"])
	assert.Equal(t, "42", cond["match"].(map[string]any)["value"])

	require.Len(t, hits, 1)
	assert.Equal(t, "42", hits[0].SessionID)
	assert.Equal(t, "chunk text", hits[0].Text)
	// cosine similarity 0.8 becomes distance 0.2
	assert.InDelta(t, 0.2, hits[0].Distance, 1e-9)
}

func TestDeleteBySession(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/chunks/points/delete", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, client.DeleteBySession(context.Background(), "42"))

	filter := captured["filter"].(map[string]any)
	must := filter["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, "session_id", cond["key"])
	assert.Equal(t, "42", cond["match"].(map[string]any)["value"])
}

func TestSearchServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := client.Search(context.Background(), []float32{0.1}, "42", 5)
	assert.Error(t, err)
}

package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTavilySearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-test", req["api_key"])
		assert.Equal(t, "basic", req["search_depth"])
		assert.Equal(t, float64(5), req["max_results"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Go", "content": "A language.", "url": "https://go.dev", "score": 0.9},
				{"title": "Gin", "content": "A framework.", "url": "https://gin-gonic.com", "score": 0.7},
			},
		})
	}))
	defer server.Close()

	client := NewTavilyClient(Config{APIKey: "tvly-test", BaseURL: server.URL})
	results, err := client.Search(context.Background(), "golang")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Go", results[0].Title)
	assert.Equal(t, 0.9, results[0].Score)
}

func TestTavilySearchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewTavilyClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Search(context.Background(), "golang")
	assert.Error(t, err)
}

func TestFormatMarkdown(t *testing.T) {
	results := []Result{
		{Title: "Go", Content: "A language.", URL: "https://go.dev"},
		{Title: "Gin", Content: "A framework.", URL: "https://gin-gonic.com"},
	}

	formatted := FormatMarkdown(results)
	assert.Contains(t, formatted, "**Web Search Results:**")
	assert.Contains(t, formatted, "**1. Go**")
	assert.Contains(t, formatted, "Source: https://gin-gonic.com")
	assert.Contains(t, formatted, "A framework.")
}

func TestFormatMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", FormatMarkdown(nil))
}

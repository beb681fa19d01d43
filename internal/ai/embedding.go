package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Embeddings above this count are sent in multiple batch requests; Gemini
// and similar APIs limit batch size.
const embeddingBatchSize = 10

// EmbeddingConfig holds API settings for the Gemini embedding endpoint.
// The model identity is fixed per collection: vectors from different
// embedding models must never share one index.
type EmbeddingConfig struct {
	APIKey string
	Model  string
}

type GoogleEmbedder struct {
	cfg        EmbeddingConfig
	baseURL    string
	httpClient *http.Client
}

func NewGoogleEmbedder(cfg EmbeddingConfig) (*GoogleEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: google api key required for embeddings", ErrMissingCredential)
	}
	return &GoogleEmbedder{
		cfg:        cfg,
		baseURL:    googleBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Embed returns the embedding vector for one text.
func (e *GoogleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("embedding input is empty")
	}

	reqBody := map[string]interface{}{
		"content": googleContent{Parts: []googlePart{{Text: text}}},
	}
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", e.baseURL, e.cfg.Model, e.cfg.APIKey)

	var parsed struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := e.post(ctx, url, reqBody, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed.Embedding.Values, nil
}

// EmbedBatch embeds multiple texts, batching requests to stay within
// provider limits. The result preserves input order.
func (e *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		requests := make([]map[string]interface{}, len(batch))
		for i, t := range batch {
			requests[i] = map[string]interface{}{
				"model":   "models/" + e.cfg.Model,
				"content": googleContent{Parts: []googlePart{{Text: t}}},
			}
		}
		reqBody := map[string]interface{}{"requests": requests}
		url := fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", e.baseURL, e.cfg.Model, e.cfg.APIKey)

		var parsed struct {
			Embeddings []struct {
				Values []float32 `json:"values"`
			} `json:"embeddings"`
		}
		if err := e.post(ctx, url, reqBody, &parsed); err != nil {
			return nil, err
		}
		if len(parsed.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: sent %d got %d", len(batch), len(parsed.Embeddings))
		}
		for _, emb := range parsed.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *GoogleEmbedder) post(ctx context.Context, url string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal embedding request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse embedding json failed: %w", err)
	}
	return nil
}

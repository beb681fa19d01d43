package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is a minimal REST client to Qdrant. One collection holds every
// session's points; Search always carries a session_id payload filter so a
// result can never cross session boundaries.
type Client struct {
	url        string
	apiKey     string
	collection string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Point is one embedded chunk with its payload.
type Point struct {
	ID        string
	Vector    []float32
	SessionID string
	Text      string
	Start     int
	End       int
}

// Hit is a search result. Distance is cosine distance: lower is better.
type Hit struct {
	SessionID string
	Text      string
	Start     int
	End       int
	Distance  float64
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Health verifies the collection is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", c.url, c.collection), nil, nil)
}

// EnsureCollection creates the collection if missing. The dimension must
// match the embedding model bound to this collection for its whole lifetime.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dimension)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.url, c.collection), body, nil)
}

func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(points))
	for i, p := range points {
		payload[i] = map[string]any{
			"id":     p.ID,
			"vector": p.Vector,
			"payload": map[string]any{
				"session_id": p.SessionID,
				"text":       p.Text,
				"start":      p.Start,
				"end":        p.End,
			},
		}
	}
	body := map[string]any{"points": payload}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection)
	return c.putJSON(ctx, url, body, nil)
}

// Search returns up to limit hits whose session_id payload equals sessionID.
// Qdrant reports cosine similarity (higher is better); it is converted to a
// distance here so callers get a single lower-is-better contract.
func (c *Client) Search(ctx context.Context, vector []float32, sessionID string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "session_id", "match": map[string]any{"value": sessionID}},
			},
		},
	}

	var parsed struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection)
	if err := c.postJSON(ctx, url, body, &parsed); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		hit := Hit{Distance: 1 - r.Score}
		if v, ok := r.Payload["session_id"].(string); ok {
			hit.SessionID = v
		}
		if v, ok := r.Payload["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := r.Payload["start"].(float64); ok {
			hit.Start = int(v)
		}
		if v, ok := r.Payload["end"].(float64); ok {
			hit.End = int(v)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteBySession removes every point tagged with the session.
func (c *Client) DeleteBySession(ctx context.Context, sessionID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "session_id", "match": map[string]any{"value": sessionID}},
			},
		},
	}
	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.url, c.collection)
	return c.postJSON(ctx, url, body, nil)
}

func (c *Client) putJSON(ctx context.Context, url string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, url, body, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal qdrant request failed: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build qdrant request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant response failed: %w", err)
		}
	}
	return nil
}

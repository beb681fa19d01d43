package search

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

const defaultBaseURL = "https://api.tavily.com/search"

// Result is one web search hit as returned by Tavily.
type Result struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	URL     string  `json:"url"`
	Score   float64 `json:"score"`
}

// TavilyClient performs web searches for answer augmentation. Search
// failures are non-fatal by contract: callers proceed without results.
type TavilyClient struct {
	apiKey      string
	baseURL     string
	maxResults  int
	searchDepth string
	httpClient  *http.Client
}

type Config struct {
	APIKey      string
	BaseURL     string
	MaxResults  int
	SearchDepth string
	Timeout     time.Duration
}

func NewTavilyClient(cfg Config) *TavilyClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	depth := cfg.SearchDepth
	if depth == "" {
		depth = "basic"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &TavilyClient{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxResults:  maxResults,
		searchDepth: depth,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *TavilyClient) Search(ctx context.Context, query string) ([]Result, error) {
	payload := map[string]interface{}{
		"api_key":             c.apiKey,
		"query":               query,
		"search_depth":        c.searchDepth,
		"include_answer":      true,
		"include_images":      false,
		"include_raw_content": false,
		"max_results":         c.maxResults,
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search request failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Results []Result `json:"results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse search json failed: %w", err)
	}
	return parsed.Results, nil
}

// FormatMarkdown renders results as the markdown block appended to the
// system instruction.
func FormatMarkdown(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("**Web Search Results:**\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "**%d. %s**\n", i+1, r.Title)
		fmt.Fprintf(&sb, "Source: %s\n", r.URL)
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// MarkdownSearcher adapts the client for callers that want the results as
// one ready-to-embed text block.
type MarkdownSearcher struct {
	Client *TavilyClient
}

func (s MarkdownSearcher) Search(ctx context.Context, query string) (string, error) {
	results, err := s.Client.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatMarkdown(results), nil
}

package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// openAICompatibleModel speaks the /chat/completions SSE protocol, which
// covers both Groq and OpenRouter bindings.
type openAICompatibleModel struct {
	baseURL    string
	apiKey     string
	desc       Descriptor
	httpClient *http.Client
}

func newOpenAICompatibleModel(baseURL, apiKey string, desc Descriptor) *openAICompatibleModel {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &openAICompatibleModel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		desc:       desc,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *openAICompatibleModel) Name() string { return m.desc.Name }

func (m *openAICompatibleModel) Stream(ctx context.Context, prompt Prompt) (Stream, error) {
	messages := make([]ChatMessage, 0, len(prompt.History)+2)
	if prompt.System != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: prompt.System})
	}
	messages = append(messages, prompt.History...)
	if prompt.User != "" {
		messages = append(messages, ChatMessage{Role: "user", Content: prompt.User})
	}

	reqBody := map[string]interface{}{
		"model":       m.desc.Model,
		"messages":    messages,
		"stream":      true,
		"temperature": m.desc.Temperature,
	}
	if m.desc.MaxTokens > 0 {
		reqBody["max_tokens"] = m.desc.MaxTokens
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal llm stream request failed: %w", err)
	}

	url := m.baseURL + "/chat/completions"
	resp, err := doWithRetry(ctx, m.httpClient, m.desc.MaxRetries, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return newSSEStream(resp.Body, parseOpenAIChunk), nil
}

func parseOpenAIChunk(payload []byte) (string, error) {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(payload, &chunk); err != nil {
		// Keep-alive comments and unknown frames are skipped, not fatal.
		return "", nil
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

// sseStream adapts a server-sent-event body into the pull-based Stream
// contract. One Recv call consumes data lines until a non-empty fragment,
// the [DONE] sentinel, or the end of the body.
type sseStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	parse   func(payload []byte) (string, error)
	done    bool
}

func newSSEStream(body io.ReadCloser, parse func([]byte) (string, error)) *sseStream {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	return &sseStream{body: body, scanner: scanner, parse: parse}
}

func (s *sseStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.done = true
			return "", io.EOF
		}
		text, err := s.parse([]byte(payload))
		if err != nil {
			s.done = true
			return "", err
		}
		if text == "" {
			continue
		}
		return text, nil
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("scan llm stream failed: %w", err)
	}
	return "", io.EOF
}

func (s *sseStream) Close() error {
	s.done = true
	return s.body.Close()
}

// doWithRetry retries the initial request on network errors and retryable
// statuses. Once a 2xx response is open, streaming errors are not retried.
func doWithRetry(ctx context.Context, client *http.Client, maxRetries int, build func() (*http.Request, error)) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("build llm request failed: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("llm request failed: %w", err)
			continue
		}
		if resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return nil, lastErr
		}
		return resp, nil
	}
	return nil, lastErr
}

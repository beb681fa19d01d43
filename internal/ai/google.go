package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// googleModel calls the Gemini streamGenerateContent endpoint over SSE.
type googleModel struct {
	apiKey     string
	desc       Descriptor
	baseURL    string
	httpClient *http.Client
}

func newGoogleModel(apiKey string, desc Descriptor) *googleModel {
	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &googleModel{
		apiKey:     apiKey,
		desc:       desc,
		baseURL:    googleBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *googleModel) Name() string { return m.desc.Name }

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text string `json:"text"`
}

func (m *googleModel) Stream(ctx context.Context, prompt Prompt) (Stream, error) {
	contents := make([]googleContent, 0, len(prompt.History)+1)
	for _, msg := range prompt.History {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, googleContent{Role: role, Parts: []googlePart{{Text: msg.Content}}})
	}
	contents = append(contents, googleContent{Role: "user", Parts: []googlePart{{Text: prompt.User}}})

	reqBody := map[string]interface{}{
		"contents": contents,
		"generationConfig": map[string]interface{}{
			"temperature": m.desc.Temperature,
		},
	}
	if prompt.System != "" {
		reqBody["systemInstruction"] = googleContent{Parts: []googlePart{{Text: prompt.System}}}
	}
	if m.desc.MaxTokens > 0 {
		reqBody["generationConfig"].(map[string]interface{})["maxOutputTokens"] = m.desc.MaxTokens
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request failed: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s", m.baseURL, m.desc.Model, m.apiKey)
	resp, err := doWithRetry(ctx, m.httpClient, m.desc.MaxRetries, func() (*http.Request, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	return newSSEStream(resp.Body, parseGeminiChunk), nil
}

func parseGeminiChunk(payload []byte) (string, error) {
	var chunk struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return "", nil
	}
	if len(chunk.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range chunk.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

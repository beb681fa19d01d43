package ai

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredentials(baseURL string) Credentials {
	return Credentials{
		GoogleAPIKey:      "test-google-key",
		GroqAPIKey:        "test-groq-key",
		GroqBaseURL:       baseURL,
		OpenRouterAPIKey:  "test-openrouter-key",
		OpenRouterBaseURL: baseURL,
	}
}

func TestResolveUnknownModelNoNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	registry, err := NewRegistry(testCredentials(server.URL), DefaultDescriptors())
	require.NoError(t, err)

	_, err = registry.Resolve("nonexistent-model")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Contains(t, err.Error(), "gemini-flash")
	assert.Equal(t, int32(0), calls.Load())
}

func TestResolveKnownModel(t *testing.T) {
	registry, err := NewRegistry(testCredentials("http://127.0.0.1:0"), DefaultDescriptors())
	require.NoError(t, err)

	model, err := registry.Resolve("llama3-70b")
	require.NoError(t, err)
	assert.Equal(t, "llama3-70b", model.Name())
}

func TestNewRegistryMissingCredential(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{
			name: "missing google key",
			creds: Credentials{
				GroqAPIKey:        "k",
				GroqBaseURL:       "http://example.invalid",
				OpenRouterAPIKey:  "k",
				OpenRouterBaseURL: "http://example.invalid",
			},
		},
		{
			name: "missing groq key",
			creds: Credentials{
				GoogleAPIKey:      "k",
				OpenRouterAPIKey:  "k",
				OpenRouterBaseURL: "http://example.invalid",
			},
		},
		{
			name: "missing openrouter key",
			creds: Credentials{
				GoogleAPIKey: "k",
				GroqAPIKey:   "k",
				GroqBaseURL:  "http://example.invalid",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.creds, DefaultDescriptors())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingCredential)
		})
	}
}

func TestRegistryNames(t *testing.T) {
	registry, err := NewRegistry(testCredentials("http://example.invalid"), DefaultDescriptors())
	require.NoError(t, err)

	names := registry.Names()
	assert.Contains(t, names, "gemini-flash")
	assert.Contains(t, names, "deepseek-chat")
	assert.Len(t, names, len(DefaultDescriptors()))
}

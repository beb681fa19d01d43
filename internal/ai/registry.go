package ai

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	ErrUnknownModel      = errors.New("unknown model")
	ErrMissingCredential = errors.New("missing provider credential")
)

// Provider identifies which backend a descriptor binds to.
type Provider string

const (
	ProviderGoogle     Provider = "google"
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

// Descriptor binds a logical model name to a provider, a concrete model
// string, and fixed sampling parameters. Loaded once at startup, immutable.
type Descriptor struct {
	Name        string
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// Credentials carries one API key per provider plus the base URLs of the
// OpenAI-compatible ones.
type Credentials struct {
	GoogleAPIKey      string
	GroqAPIKey        string
	GroqBaseURL       string
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
}

// DefaultDescriptors is the static table of operator-selectable models.
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "gemini-flash", Provider: ProviderGoogle, Model: "gemini-1.5-flash", Temperature: 0.7, Timeout: 90 * time.Second, MaxRetries: 1},
		{Name: "gemini-pro", Provider: ProviderGoogle, Model: "gemini-1.5-pro", Temperature: 0.7, Timeout: 120 * time.Second, MaxRetries: 1},
		{Name: "llama3-70b", Provider: ProviderGroq, Model: "llama3-70b-8192", Temperature: 0.2, Timeout: 60 * time.Second, MaxRetries: 2},
		{Name: "mixtral", Provider: ProviderGroq, Model: "mixtral-8x7b-32768", Temperature: 0.2, Timeout: 60 * time.Second, MaxRetries: 2},
		{Name: "deepseek-chat", Provider: ProviderOpenRouter, Model: "deepseek/deepseek-chat", Temperature: 0.3, MaxTokens: 4096, Timeout: 120 * time.Second, MaxRetries: 1},
	}
}

// Registry resolves logical model names to invocable models. All provider
// clients are constructed up front so a missing credential fails at startup
// instead of at call time.
type Registry struct {
	models map[string]ChatModel
	names  []string
}

func NewRegistry(creds Credentials, descriptors []Descriptor) (*Registry, error) {
	r := &Registry{models: make(map[string]ChatModel, len(descriptors))}
	for _, d := range descriptors {
		model, err := buildModel(creds, d)
		if err != nil {
			return nil, err
		}
		r.models[d.Name] = model
		r.names = append(r.names, d.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Resolve maps a logical name to its model. It performs no network I/O.
func (r *Registry) Resolve(name string) (ChatModel, error) {
	model, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", ErrUnknownModel, name, strings.Join(r.names, ", "))
	}
	return model, nil
}

// Names returns the sorted logical model names.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func buildModel(creds Credentials, d Descriptor) (ChatModel, error) {
	switch d.Provider {
	case ProviderGoogle:
		if creds.GoogleAPIKey == "" {
			return nil, fmt.Errorf("%w: google api key required by %q", ErrMissingCredential, d.Name)
		}
		return newGoogleModel(creds.GoogleAPIKey, d), nil
	case ProviderGroq:
		if creds.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: groq api key required by %q", ErrMissingCredential, d.Name)
		}
		return newOpenAICompatibleModel(creds.GroqBaseURL, creds.GroqAPIKey, d), nil
	case ProviderOpenRouter:
		if creds.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("%w: openrouter api key required by %q", ErrMissingCredential, d.Name)
		}
		return newOpenAICompatibleModel(creds.OpenRouterBaseURL, creds.OpenRouterAPIKey, d), nil
	default:
		return nil, fmt.Errorf("%w: unsupported provider %q", ErrUnknownModel, d.Provider)
	}
}

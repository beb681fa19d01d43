package rag

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
)

type fakeRetriever struct {
	candidates []Candidate
	err        error
	calls      int
}

func (f *fakeRetriever) Search(ctx context.Context, query, sessionID string, k int) ([]Candidate, error) {
	f.calls++
	return f.candidates, f.err
}

type fakeModel struct {
	name       string
	stream     ai.Stream
	streamErr  error
	calls      int
	lastPrompt ai.Prompt
}

func (m *fakeModel) Name() string { return m.name }

func (m *fakeModel) Stream(ctx context.Context, prompt ai.Prompt) (ai.Stream, error) {
	m.calls++
	m.lastPrompt = prompt
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return m.stream, nil
}

type fakeResolver struct {
	model *fakeModel
	err   error
}

func (r *fakeResolver) Resolve(name string) (ai.ChatModel, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.model, nil
}

type fakeSearcher struct {
	results string
	err     error
}

func (s *fakeSearcher) Search(ctx context.Context, query string) (string, error) {
	return s.results, s.err
}

// erroringStream yields its fragments then fails instead of reaching EOF.
type erroringStream struct {
	fragments []string
	pos       int
}

func (s *erroringStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", errors.New("connection reset")
	}
	out := s.fragments[s.pos]
	s.pos++
	return out, nil
}

func (s *erroringStream) Close() error { return nil }

func drainStream(t *testing.T, s ai.Stream) string {
	t.Helper()
	var sb strings.Builder
	for {
		fragment, err := s.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sb.WriteString(fragment)
	}
	require.NoError(t, s.Close())
	return sb.String()
}

func newTestResponder(retriever *fakeRetriever, resolver *fakeResolver, web WebSearcher) *Responder {
	return NewResponder(retriever, resolver, web, Policy{Threshold: 0.95, TopK: 10, MinDocuments: 1}, "gemini-flash")
}

func TestRespondRefusesWithoutInvokingModel(t *testing.T) {
	retriever := &fakeRetriever{}
	model := &fakeModel{name: "gemini-flash"}
	responder := newTestResponder(retriever, &fakeResolver{model: model}, nil)

	outcome, err := responder.Respond(context.Background(), Request{
		Prompt:       "what does the report say?",
		SessionID:    "s1",
		HasDocuments: true,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Refused)
	assert.Equal(t, 0, model.calls)
	assert.Equal(t, RefusalMessage, drainStream(t, outcome.Stream))
}

func TestRespondUnknownModelBeforeRetrieval(t *testing.T) {
	retriever := &fakeRetriever{}
	resolver := &fakeResolver{err: ai.ErrUnknownModel}
	responder := newTestResponder(retriever, resolver, nil)

	_, err := responder.Respond(context.Background(), Request{
		Prompt:       "hi",
		SessionID:    "s1",
		HasDocuments: true,
		Model:        "no-such-model",
	})
	require.ErrorIs(t, err, ai.ErrUnknownModel)
	assert.Equal(t, 0, retriever.calls)
}

func TestRespondPlainPath(t *testing.T) {
	retriever := &fakeRetriever{}
	model := &fakeModel{name: "gemini-flash", stream: ai.StreamOf("hello", " there")}
	responder := newTestResponder(retriever, &fakeResolver{model: model}, nil)

	outcome, err := responder.Respond(context.Background(), Request{
		Prompt:    "hi",
		SessionID: "s1",
	})
	require.NoError(t, err)
	assert.False(t, outcome.Refused)
	assert.Equal(t, 0, retriever.calls)
	assert.Equal(t, "hello there", drainStream(t, outcome.Stream))
	assert.NotContains(t, model.lastPrompt.System, "Document excerpts")
}

func TestRespondGroundedPath(t *testing.T) {
	retriever := &fakeRetriever{candidates: []Candidate{
		{Chunk: Chunk{Text: "revenue grew 12 percent"}, Distance: 0.3},
	}}
	model := &fakeModel{name: "gemini-flash", stream: ai.StreamOf("Revenue grew.")}
	responder := newTestResponder(retriever, &fakeResolver{model: model}, nil)

	outcome, err := responder.Respond(context.Background(), Request{
		Prompt:       "how did revenue change?",
		SessionID:    "s1",
		HasDocuments: true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Refused)
	assert.Contains(t, model.lastPrompt.System, "revenue grew 12 percent")
	assert.Equal(t, "Revenue grew.", drainStream(t, outcome.Stream))
}

func TestRespondWebSearchFailureIsNonFatal(t *testing.T) {
	model := &fakeModel{name: "gemini-flash", stream: ai.StreamOf("ok")}
	responder := newTestResponder(&fakeRetriever{}, &fakeResolver{model: model}, &fakeSearcher{err: errors.New("tavily down")})

	outcome, err := responder.Respond(context.Background(), Request{
		Prompt:       "latest news",
		SessionID:    "s1",
		UseWebSearch: true,
	})
	require.NoError(t, err)
	assert.False(t, outcome.WebSearched)
	assert.Equal(t, "ok", drainStream(t, outcome.Stream))
}

func TestRespondWebSearchAugmentsPrompt(t *testing.T) {
	model := &fakeModel{name: "gemini-flash", stream: ai.StreamOf("ok")}
	responder := newTestResponder(&fakeRetriever{}, &fakeResolver{model: model}, &fakeSearcher{results: "**Web Search Results:**\n\nsome finding"})

	outcome, err := responder.Respond(context.Background(), Request{
		Prompt:       "latest news",
		SessionID:    "s1",
		UseWebSearch: true,
	})
	require.NoError(t, err)
	assert.True(t, outcome.WebSearched)
	assert.Contains(t, model.lastPrompt.System, "some finding")
	drainStream(t, outcome.Stream)
}

func TestRespondModelFailureDegradesToApology(t *testing.T) {
	model := &fakeModel{name: "gemini-flash", streamErr: errors.New("provider 500")}
	responder := newTestResponder(&fakeRetriever{}, &fakeResolver{model: model}, nil)

	outcome, err := responder.Respond(context.Background(), Request{Prompt: "hi", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, ApologyMessage, drainStream(t, outcome.Stream))
}

func TestRespondMidStreamFailureDegradesToApology(t *testing.T) {
	model := &fakeModel{name: "gemini-flash", stream: &erroringStream{fragments: []string{"partial "}}}
	responder := newTestResponder(&fakeRetriever{}, &fakeResolver{model: model}, nil)

	outcome, err := responder.Respond(context.Background(), Request{Prompt: "hi", SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "partial "+ApologyMessage, drainStream(t, outcome.Stream))
}

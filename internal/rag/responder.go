package rag

import (
	"context"
	"fmt"
	"io"
	"log"

	"docuchat/internal/ai"
)

// ModelResolver maps a logical model name to a usable chat model. A lookup
// must be local; resolution failures surface before any provider traffic.
type ModelResolver interface {
	Resolve(name string) (ai.ChatModel, error)
}

// WebSearcher fetches supplementary web context. Failures are non-fatal.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Policy carries the retrieval gates applied on the document path.
type Policy struct {
	Threshold    float64
	TopK         int
	MinDocuments int
}

// Request is one user turn to answer.
type Request struct {
	Prompt       string
	SessionID    string
	HasDocuments bool
	History      []ai.ChatMessage
	Model        string
	UseWebSearch bool
}

// Outcome is the answer stream plus the flags the transport layer reports.
type Outcome struct {
	Stream      ai.Stream
	Refused     bool
	WebSearched bool
	ModelName   string
}

// Responder routes a turn through either the plain path or the
// document-grounded path and produces a response stream.
type Responder struct {
	retriever    Retriever
	models       ModelResolver
	web          WebSearcher
	policy       Policy
	defaultModel string
}

func NewResponder(retriever Retriever, models ModelResolver, web WebSearcher, policy Policy, defaultModel string) *Responder {
	if policy.TopK <= 0 {
		policy.TopK = 10
	}
	if policy.MinDocuments < 1 {
		policy.MinDocuments = 1
	}
	return &Responder{
		retriever:    retriever,
		models:       models,
		web:          web,
		policy:       policy,
		defaultModel: defaultModel,
	}
}

// Respond answers one turn. The model name is resolved before anything
// else so an unknown name fails fast without touching retrieval or the
// network. On the document path an empty retrieval short-circuits to the
// refusal stream without invoking the model. Provider failures degrade to
// the apology stream instead of surfacing as errors.
func (r *Responder) Respond(ctx context.Context, req Request) (Outcome, error) {
	name := req.Model
	if name == "" {
		name = r.defaultModel
	}
	model, err := r.models.Resolve(name)
	if err != nil {
		return Outcome{}, err
	}
	outcome := Outcome{ModelName: name}

	var accepted []Candidate
	if req.HasDocuments {
		candidates, err := r.retriever.Search(ctx, req.Prompt, req.SessionID, r.policy.TopK)
		if err != nil {
			return Outcome{}, fmt.Errorf("retrieval failed: %w", err)
		}
		filtered := FilterCandidates(candidates, r.policy.Threshold, r.policy.MinDocuments)
		if !filtered.Sufficient {
			outcome.Refused = true
			outcome.Stream = ai.StreamOf(RefusalMessage)
			return outcome, nil
		}
		accepted = filtered.Accepted
	}

	var webResults string
	if req.UseWebSearch && r.web != nil {
		results, err := r.web.Search(ctx, req.Prompt)
		if err != nil {
			log.Printf("web search failed, continuing without: %v", err)
		} else {
			webResults = results
			outcome.WebSearched = results != ""
		}
	}

	prompt := ai.Prompt{
		System:  BuildSystemInstruction(accepted, webResults),
		History: req.History,
		User:    req.Prompt,
	}

	stream, err := model.Stream(ctx, prompt)
	if err != nil {
		log.Printf("model %s stream failed: %v", name, err)
		outcome.Stream = ai.StreamOf(ApologyMessage)
		return outcome, nil
	}
	outcome.Stream = &degradedStream{inner: stream}
	return outcome, nil
}

// degradedStream passes fragments through until the provider errors
// mid-stream, then emits one apology fragment and ends.
type degradedStream struct {
	inner ai.Stream
	done  bool
}

func (s *degradedStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	fragment, err := s.inner.Recv()
	if err == io.EOF {
		s.done = true
		return "", io.EOF
	}
	if err != nil {
		log.Printf("stream interrupted: %v", err)
		s.done = true
		return ApologyMessage, nil
	}
	return fragment, nil
}

func (s *degradedStream) Close() error {
	return s.inner.Close()
}

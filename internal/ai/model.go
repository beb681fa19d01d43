package ai

import (
	"context"
	"io"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the structured input every provider accepts: a system
// instruction, the ordered prior turns, and the new user turn.
type Prompt struct {
	System  string
	History []ChatMessage
	User    string
}

// Stream is a pull-based sequence of response fragments. Recv returns
// io.EOF after the final fragment; Close releases the underlying call and
// is the caller's cancellation point when dropping a stream early.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// ChatModel is the uniform invocation surface over all providers.
type ChatModel interface {
	Name() string
	Stream(ctx context.Context, prompt Prompt) (Stream, error)
}

type staticStream struct {
	fragments []string
	pos       int
}

// StreamOf returns a finished stream that yields the given fragments in
// order. Used for canned responses that never touch a model.
func StreamOf(fragments ...string) Stream {
	return &staticStream{fragments: fragments}
}

func (s *staticStream) Recv() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	out := s.fragments[s.pos]
	s.pos++
	return out, nil
}

func (s *staticStream) Close() error { return nil }

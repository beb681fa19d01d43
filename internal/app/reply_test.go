package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuchat/internal/ai"
	"docuchat/internal/model"
)

type fakePublisher struct {
	published []model.Message
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, msg model.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func newDrainReply(publisher AsyncMessagePublisher, stream ai.Stream) *Reply {
	svc := NewChatService(nil, nil, publisher, nil, nil, nil, nil, 10)
	return &Reply{
		SessionID: 3,
		svc:       svc,
		userID:    7,
		content:   "question",
		stream:    stream,
	}
}

func TestDrainPersistsConcatenation(t *testing.T) {
	publisher := &fakePublisher{}
	reply := newDrainReply(publisher, ai.StreamOf("The answer", " is 42."))

	var forwarded []string
	err := reply.Drain(context.Background(), func(chunk string) error {
		forwarded = append(forwarded, chunk)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"The answer", " is 42."}, forwarded)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, "assistant", publisher.published[0].Role)
	assert.Equal(t, "The answer is 42.", publisher.published[0].Content)
	assert.Equal(t, uint(3), publisher.published[0].SessionID)
}

func TestDrainPersistsAfterClientGone(t *testing.T) {
	publisher := &fakePublisher{}
	reply := newDrainReply(publisher, ai.StreamOf("first ", "second"))

	clientGone := errors.New("write: broken pipe")
	err := reply.Drain(context.Background(), func(chunk string) error {
		return clientGone
	})
	assert.ErrorIs(t, err, clientGone)

	// the assistant turn is stored in full even though nothing was delivered
	require.Len(t, publisher.published, 1)
	assert.Equal(t, "first second", publisher.published[0].Content)
}

func TestDrainPublishFailure(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	reply := newDrainReply(publisher, ai.StreamOf("hello"))

	err := reply.Drain(context.Background(), func(string) error { return nil })
	assert.ErrorIs(t, err, ErrMessageEnqueue)
}

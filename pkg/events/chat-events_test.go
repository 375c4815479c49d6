package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventFromJSONRoundTrip(t *testing.T) {
	meta := EventMetadata{ChatID: "c1", MessageID: "m1"}

	b, err := json.Marshal(NewPartialCompletionEvent(meta, "wor", "hello wor"))
	require.NoError(t, err)

	decoded, err := NewEventFromJSON(b)
	require.NoError(t, err)
	require.Equal(t, EventTypePartialCompletion, decoded.Type())
	assert.Equal(t, meta, decoded.Metadata())

	partial, ok := decoded.(*EventPartialCompletion)
	require.True(t, ok)
	assert.Equal(t, "wor", partial.Delta)
	assert.Equal(t, "hello wor", partial.Completion)

	b, err = json.Marshal(NewErrorEvent(meta, errors.New("boom")))
	require.NoError(t, err)
	decoded, err = NewEventFromJSON(b)
	require.NoError(t, err)
	errEvent, ok := decoded.(*EventError)
	require.True(t, ok)
	assert.Equal(t, "boom", errEvent.ErrorString)
}

func TestPublisherManagerSequencesMessages(t *testing.T) {
	// Delivery order is only guaranteed when each publish blocks until the
	// subscriber acks, the same transport configuration the CLI uses.
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, watermill.NopLogger{})
	defer func() {
		_ = pubSub.Close()
	}()

	messages, err := pubSub.Subscribe(context.Background(), "chat")
	require.NoError(t, err)

	pm := NewPublisherManager()
	pm.SubscribePublisher("chat", pubSub)

	meta := EventMetadata{ChatID: "c1", MessageID: "m1"}
	published := make(chan struct{})
	go func() {
		defer close(published)
		pm.PublishBlind(NewStartEvent(meta))
		pm.PublishBlind(NewFinalEvent(meta, "done"))
	}()

	first := nextMessage(t, messages)
	assert.Equal(t, "0", first.Metadata.Get("sequence_number"))
	decoded, err := NewEventFromJSON(first.Payload)
	require.NoError(t, err)
	assert.Equal(t, EventTypeStart, decoded.Type())

	second := nextMessage(t, messages)
	assert.Equal(t, "1", second.Metadata.Get("sequence_number"))
	decoded, err = NewEventFromJSON(second.Payload)
	require.NoError(t, err)
	final, ok := decoded.(*EventFinal)
	require.True(t, ok)
	assert.Equal(t, "done", final.Text)

	<-published
}

func nextMessage(t *testing.T, c <-chan *message.Message) *message.Message {
	t.Helper()
	msg, ok := <-c
	require.True(t, ok)
	msg.Ack()
	return msg
}

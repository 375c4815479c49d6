package steps

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEchoStepFragmentsJoinToResponse(t *testing.T) {
	step := &EchoStep{
		TimePerToken: time.Millisecond,
		Response:     "the quick brown fox",
	}

	result, err := step.Start(context.Background(), "chat-1", "anything")
	require.NoError(t, err)

	completion := ""
	for r := range result.C {
		fragment, err := r.Value()
		require.NoError(t, err)
		completion += fragment
	}
	assert.Equal(t, "the quick brown fox", completion)
}

func TestEchoStepCancellationIsTerminal(t *testing.T) {
	step := &EchoStep{
		TimePerToken: time.Millisecond,
		Response:     "a b c d e f g h i j k l m n o p q r s t u v w x y z",
	}

	ctx, cancel := context.WithCancel(context.Background())
	result, err := step.Start(ctx, "chat-1", "anything")
	require.NoError(t, err)

	first, ok := <-result.C
	require.True(t, ok)
	require.NoError(t, first.Error())

	cancel()

	var terminal error
	for r := range result.C {
		terminal = r.Error()
	}
	require.Error(t, terminal)
	assert.True(t, errors.Is(terminal, context.Canceled))
}

func TestEchoStepInterrupt(t *testing.T) {
	step := &EchoStep{
		TimePerToken: time.Millisecond,
		Response:     "a b c d e f g h i j k l m n o p q r s t u v w x y z",
	}

	result, err := step.Start(context.Background(), "chat-1", "anything")
	require.NoError(t, err)
	step.Interrupt()

	var terminal error
	for r := range result.C {
		terminal = r.Error()
	}
	require.Error(t, terminal)
	assert.True(t, errors.Is(terminal, context.Canceled))
}

package steps

import (
	"context"
	"strings"
	"time"

	"github.com/go-go-golems/parlato/pkg/helpers"
)

// DefaultEchoResponse is the canned reply the placeholder producer streams
// until a real token-generation backend is wired in.
const DefaultEchoResponse = "Thanks for the prompt. This is a placeholder streaming response so the " +
	"conversation state machine can be exercised before the agent backend is connected."

// EchoStep is a timer-driven placeholder producer: it splits a fixed response
// into word fragments and emits one per TimePerToken. It satisfies the same
// contract as a real backend stream, including cancellation.
type EchoStep struct {
	TimePerToken time.Duration
	Response     string
	cancel       context.CancelFunc
}

var _ Step = (*EchoStep)(nil)

func NewEchoStep() *EchoStep {
	return &EchoStep{
		TimePerToken: 50 * time.Millisecond,
		Response:     DefaultEchoResponse,
	}
}

func (e *EchoStep) Interrupt() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *EchoStep) Start(ctx context.Context, _ string, _ string) (*StepResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	words := strings.Fields(e.Response)
	c := make(chan helpers.Result[string], 1)

	go func() {
		defer close(c)
		for idx, word := range words {
			select {
			case <-ctx.Done():
				c <- helpers.NewErrorResult[string](ctx.Err())
				return
			case <-time.After(e.TimePerToken):
			}

			fragment := word
			if idx < len(words)-1 {
				fragment += " "
			}
			select {
			case c <- helpers.NewValueResult(fragment):
			case <-ctx.Done():
				c <- helpers.NewErrorResult[string](ctx.Err())
				return
			}
		}
	}()

	return &StepResult{C: c}, nil
}

package steps

import (
	"context"

	"github.com/go-go-golems/parlato/pkg/helpers"
)

// Step produces an assistant reply for a prompt as a lazy, ordered, finite
// sequence of text fragments. The fragment channel closing is the explicit
// end signal; an error Result is terminal. Consumers must keep receiving
// until the channel closes, even after cancelling ctx — producers may block
// delivering the terminal error. At most one producer is active per chat at
// a time — the conversation manager enforces this by cancelling the previous
// stream before starting a new one.
type Step interface {
	// Start begins producing fragments for the given chat and prompt. The
	// returned stream is driven until the channel closes or ctx is cancelled.
	Start(ctx context.Context, chatID string, prompt string) (*StepResult, error)
	// Interrupt cancels the in-flight production, if any.
	Interrupt()
}

// StepResult is the handle to a running production: a fragment channel plus
// the context-backed cancellation the Step installed.
type StepResult struct {
	C <-chan helpers.Result[string]
}

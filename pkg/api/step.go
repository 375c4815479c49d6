package api

import (
	"context"

	"github.com/go-go-golems/parlato/pkg/steps"
)

// BackendStep adapts the remote streaming endpoint to the steps.Step
// contract, so the real token-generation backend substitutes for the
// placeholder without changing the state machine.
type BackendStep struct {
	client *Client
	cancel context.CancelFunc
}

var _ steps.Step = (*BackendStep)(nil)

func NewBackendStep(client *Client) *BackendStep {
	return &BackendStep{client: client}
}

func (s *BackendStep) Interrupt() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *BackendStep) Start(ctx context.Context, chatID string, prompt string) (*steps.StepResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	c, err := s.client.StreamReply(ctx, chatID, prompt)
	if err != nil {
		cancel()
		return nil, err
	}
	return &steps.StepResult{C: c}, nil
}

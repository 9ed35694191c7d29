package agent

import (
	"context"
	"fmt"
	"time"
)

// MockEngine is a simple mock implementation for testing. It reports every
// fix as successful without touching the workspace, unless RunFixFunc is set.
type MockEngine struct {
	modelID string

	// RunFixFunc, when non-nil, replaces the canned behavior entirely. The
	// events channel is still closed by MockEngine after it returns.
	RunFixFunc func(ctx context.Context, req *FixRequest, events chan<- AgentEvent) (*FixOutcome, error)
}

// NewMockEngine creates a new mock engine
func NewMockEngine(modelID string) *MockEngine {
	return &MockEngine{
		modelID: modelID,
	}
}

func (m *MockEngine) Initialize(ctx context.Context) error {
	return nil
}

func (m *MockEngine) RunFix(ctx context.Context, req *FixRequest, events chan<- AgentEvent) (*FixOutcome, error) {
	if events != nil {
		defer close(events)
	}

	if m.RunFixFunc != nil {
		return m.RunFixFunc(ctx, req, events)
	}

	start := time.Now()

	if events != nil {
		text := fmt.Sprintf("Mock fix for: %s", req.Strategy.Focus)
		select {
		case events <- AgentEvent{Phase: PhaseText, Text: text}:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &FixOutcome{
		Status:      StatusSuccess,
		FinalOutput: fmt.Sprintf("Mock response for strategy: %s", req.Strategy.Name),
		SessionID:   "mock-session",
		DurationMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (m *MockEngine) Ask(ctx context.Context, prompt string) (string, error) {
	return "CONTINUE", nil
}

func (m *MockEngine) Shutdown(ctx context.Context) error {
	return nil
}

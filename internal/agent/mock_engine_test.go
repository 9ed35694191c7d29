package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockEngineRunFix(t *testing.T) {
	engine := NewMockEngine("test-model")
	require.NoError(t, engine.Initialize(context.Background()))

	events := make(chan AgentEvent, 8)
	outcome, err := engine.RunFix(context.Background(), fixRequest(), events)
	require.NoError(t, err)

	require.Equal(t, StatusSuccess, outcome.Status)
	require.Equal(t, "mock-session", outcome.SessionID)
	require.Contains(t, outcome.FinalOutput, "improve-lint")

	var streamed []AgentEvent
	for ev := range events {
		streamed = append(streamed, ev)
	}
	require.Len(t, streamed, 1)
	require.Equal(t, PhaseText, streamed[0].Phase)

	require.NoError(t, engine.Shutdown(context.Background()))
}

func TestMockEngineRunFixFunc(t *testing.T) {
	engine := NewMockEngine("test-model")
	engine.RunFixFunc = func(ctx context.Context, req *FixRequest, events chan<- AgentEvent) (*FixOutcome, error) {
		return &FixOutcome{Status: StatusNoChanges}, nil
	}

	events := make(chan AgentEvent)
	outcome, err := engine.RunFix(context.Background(), fixRequest(), events)
	require.NoError(t, err)
	require.Equal(t, StatusNoChanges, outcome.Status)

	_, open := <-events
	require.False(t, open)
}

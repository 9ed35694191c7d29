// Package agent wraps one LLM agent invocation that attempts exactly one
// atomic code change. Events stream to the caller while the agent works;
// the terminal outcome says whether the fix landed, changed nothing, or
// failed.
package agent

import (
	"context"
	"time"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/burnish-dev/burnish/internal/strategy"
)

// FixStatus is the terminal status of a fix attempt.
type FixStatus string

const (
	StatusSuccess               FixStatus = "success"
	StatusNoChanges             FixStatus = "no_changes"
	StatusAgentError            FixStatus = "agent_error"
	StatusContinuationExhausted FixStatus = "continuation_exhausted"
)

// EventPhase labels where in a tool call's lifecycle an AgentEvent sits.
type EventPhase string

const (
	PhasePreToolUse  EventPhase = "PreToolUse"
	PhasePostToolUse EventPhase = "PostToolUse"
	PhaseText        EventPhase = "Text"
)

// AgentEvent is one observable step of the agent's work, forwarded to the
// controller as it happens.
type AgentEvent struct {
	Phase   EventPhase
	Tool    string
	Text    string
	Success *bool
}

// ToolCall correlates a tool invocation's start with its completion.
type ToolCall struct {
	Name      string          `json:"name"`
	Arguments any             `json:"arguments,omitempty"`
	Result    *copilot.Result `json:"result,omitempty"`
	Success   bool            `json:"success"`
}

// FixRequest describes one fix attempt.
type FixRequest struct {
	// ProjectPath is the isolated workspace the agent edits in.
	ProjectPath string
	// Strategy is the single-metric instruction to pursue.
	Strategy *strategy.Strategy
	// CurrentScore and TargetScore are the focus metric's normalized and
	// target scores, quoted in the prompt.
	CurrentScore float64
	TargetScore  float64
	// HigherIsBetter states the improvement direction for the prompt.
	HigherIsBetter bool
	// FailedAttempts are quoted so the agent does not repeat them.
	FailedAttempts []strategy.FailedAttempt
	// Rules are behavioral constraints appended verbatim to the prompt.
	Rules []string
	// ModelID overrides the engine default when non-empty.
	ModelID string
	// Timeout bounds the whole attempt including continuations. Required.
	Timeout time.Duration
}

// FixOutcome is the terminal result of a fix attempt.
type FixOutcome struct {
	Status        FixStatus
	FinalOutput   string
	SessionID     string
	Continuations int
	ToolCalls     []ToolCall
	DurationMs    int64
	ErrorMsg      string
}

// FixEngine runs fix attempts. RunFix streams AgentEvents into events while
// it works and closes the channel before returning; cancelling ctx
// terminates the underlying agent session and stops the stream. The channel
// is never written to after RunFix returns.
type FixEngine interface {
	Initialize(ctx context.Context) error
	RunFix(ctx context.Context, req *FixRequest, events chan<- AgentEvent) (*FixOutcome, error)
	Shutdown(ctx context.Context) error
}

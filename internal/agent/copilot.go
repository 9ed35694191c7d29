package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/burnish-dev/burnish/internal/utils"
)

// MaxContinuations bounds how many times a fix attempt resumes the same
// session after the agent runs out of turns mid-change.
const MaxContinuations = 5

// CopilotEngine runs fix attempts through the GitHub Copilot SDK.
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used if no model ID is specified in the fix request.
//     Can be blank, which means the copilot CLI will choose its own fallback
//     model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		// workspace is set at the session level, instead of at the client.
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	builder := &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
		},
	}

	builder.engine.client = client
	return builder
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize checks the engine is usable. The client itself starts lazily on
// the first fix.
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// RunFix runs one fix attempt, streaming AgentEvents into events as the agent
// works. The channel is closed before RunFix returns. A non-nil FixOutcome
// with Status != StatusSuccess is not an error; err is reserved for failures
// to run the attempt at all.
func (e *CopilotEngine) RunFix(ctx context.Context, req *FixRequest, events chan<- AgentEvent) (*FixOutcome, error) {
	if events != nil {
		defer close(events)
	}

	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.RunFix")
	}

	if req.Strategy == nil {
		return nil, fmt.Errorf("fix request has no strategy")
	}

	if req.Timeout <= 0 {
		return nil, fmt.Errorf("positive Timeout is required")
	}

	var startErr error

	e.startOnce.Do(func() {
		// NOTE: this is a workaround, copilot client has an 'autostart'
		// feature, but it runs into issues when it tries to autostart from
		// separate goroutines.
		startErr = e.client.Start(ctx)
	})

	if startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", startErr)
	}

	modelID := e.defaultModelID

	if req.ModelID != "" {
		modelID = req.ModelID // override the default model for the engine
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()

	outcome := &FixOutcome{Status: StatusSuccess}
	prompt := BuildFixPrompt(req)

	var outputParts []string
	sawMutation := false

	for {
		var session copilotSession
		var err error

		if outcome.SessionID == "" {
			session, err = e.client.CreateSession(ctx, &copilot.SessionConfig{
				Model: modelID,

				OnPermissionRequest: allowAllTools,

				WorkingDirectory: req.ProjectPath,
			})

			if err != nil {
				return nil, fmt.Errorf("failed to create session: %w", err)
			}
		} else {
			session, err = e.client.ResumeSessionWithOptions(ctx, outcome.SessionID, &copilot.ResumeSessionConfig{
				Model: modelID,

				OnPermissionRequest: allowAllTools,

				WorkingDirectory: req.ProjectPath,
			})

			if err != nil {
				return nil, fmt.Errorf("failed to resume session (%s): %w", outcome.SessionID, err)
			}
		}

		coll := newFixCollector(ctx, events)

		unsubscribe := session.On(coll.On)
		unsubscribeLog := session.On(utils.SessionToSlog)

		_, sendErr := session.SendAndWait(ctx, copilot.MessageOptions{
			Prompt: prompt,
		})

		unsubscribe()
		unsubscribeLog()

		outcome.SessionID = session.SessionID()
		outcome.ToolCalls = append(outcome.ToolCalls, coll.ToolCalls()...)
		outputParts = append(outputParts, coll.OutputParts()...)
		sawMutation = sawMutation || coll.SawMutation()

		if sendErr == nil {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.Status = StatusAgentError
			outcome.ErrorMsg = ctxErr.Error()
			break
		}

		// errors that are returned inline, as part of the conversation, also
		// come back in the returned error.
		errMsg := coll.ErrorMessage()
		if errMsg == "" {
			errMsg = sendErr.Error()
		}

		if !isTurnLimit(errMsg) {
			outcome.Status = StatusAgentError
			outcome.ErrorMsg = errMsg
			break
		}

		if outcome.Continuations >= MaxContinuations {
			outcome.Status = StatusContinuationExhausted
			outcome.ErrorMsg = errMsg
			break
		}

		outcome.Continuations++
		prompt = continuationPrompt
		slog.Debug("agent ran out of turns, resuming session",
			"sessionID", outcome.SessionID,
			"continuation", outcome.Continuations)
	}

	if outcome.Status == StatusSuccess && !sawMutation {
		outcome.Status = StatusNoChanges
	}

	outcome.FinalOutput = joinStrings(outputParts)
	outcome.DurationMs = time.Since(start).Milliseconds()

	return outcome, nil
}

// Ask sends a one-off prompt in a fresh session and returns the assistant's
// reply. Used for judgment calls (plateau detection) rather than fixes; the
// session gets no workspace and no tool permissions.
func (e *CopilotEngine) Ask(ctx context.Context, prompt string) (string, error) {
	var startErr error

	e.startOnce.Do(func() {
		startErr = e.client.Start(ctx)
	})

	if startErr != nil {
		return "", fmt.Errorf("copilot failed to start: %w", startErr)
	}

	session, err := e.client.CreateSession(ctx, &copilot.SessionConfig{
		Model: e.defaultModelID,
	})

	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	coll := newFixCollector(ctx, nil)

	unsubscribe := session.On(coll.On)
	defer unsubscribe()

	if _, err := session.SendAndWait(ctx, copilot.MessageOptions{Prompt: prompt}); err != nil {
		return "", err
	}

	return joinStrings(coll.OutputParts()), nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue
		slog.Info("failed to stop client", "error", err)
	}

	return nil
}

// isTurnLimit reports whether a session error message means the agent hit its
// turn budget rather than genuinely failing.
func isTurnLimit(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "turn limit") ||
		strings.Contains(lower, "max turn") ||
		strings.Contains(lower, "maximum number of turns")
}

func joinStrings(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}

func allowAllTools(request copilot.PermissionRequest, invocation copilot.PermissionInvocation) (copilot.PermissionRequestResult, error) {
	// value for 'Kind' came from the permissions_test.go in the Copilot SDK.
	return copilot.PermissionRequestResult{Kind: "approved"}, nil
}

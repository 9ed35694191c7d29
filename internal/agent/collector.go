package agent

import (
	"context"

	copilot "github.com/github/copilot-sdk/go"
)

const sessionFailedUnknown = "session failed with unknown error"

// mutatingTools are tool names that plausibly change files in the workspace.
// Used only as a hint for the no_changes status; the working tree is the
// source of truth.
var mutatingTools = map[string]bool{
	"write":       true,
	"edit":        true,
	"create":      true,
	"str_replace": true,
	"apply_patch": true,
	"bash":        true,
	"shell":       true,
}

// fixCollector receives session events from the Copilot SDK, forwards them as
// AgentEvents to the live stream, and accumulates what the terminal
// FixOutcome needs.
type fixCollector struct {
	ctx    context.Context
	stream chan<- AgentEvent

	sessionEvents []copilot.SessionEvent
	outputParts   []string
	errorMsg      string
	sawMutation   bool
	done          chan struct{}
	intentToolIDs map[string]bool
}

func newFixCollector(ctx context.Context, stream chan<- AgentEvent) *fixCollector {
	return &fixCollector{
		ctx:           ctx,
		stream:        stream,
		done:          make(chan struct{}),
		intentToolIDs: map[string]bool{},
	}
}

// OutputParts returns the collected assistant text parts.
func (coll *fixCollector) OutputParts() []string {
	return coll.outputParts
}

// ErrorMessage returns the session error message, if any.
func (coll *fixCollector) ErrorMessage() string {
	return coll.errorMsg
}

// SawMutation reports whether any successful, plausibly file-mutating tool
// call completed during the session.
func (coll *fixCollector) SawMutation() bool {
	return coll.sawMutation
}

// Done returns the channel that is closed when the session completes.
func (coll *fixCollector) Done() <-chan struct{} {
	return coll.done
}

// On is a callback, intended to be passed to [copilot.Session.On] to receive
// events in real-time.
func (coll *fixCollector) On(event copilot.SessionEvent) {
	switch event.Type {
	case copilot.AssistantMessage, copilot.AssistantMessageDelta:
		if event.Data.Content != nil {
			coll.outputParts = append(coll.outputParts, *event.Data.Content)
			coll.forward(AgentEvent{Phase: PhaseText, Text: *event.Data.Content})
		}

	case copilot.ToolExecutionStart:
		if event.Data.ToolName != nil && *event.Data.ToolName == "report_intent" {
			// report_intent always seems to be followed by the actual tool
			// invocation, so skip these to save a little space.
			if event.Data.ToolCallID != nil {
				coll.intentToolIDs[*event.Data.ToolCallID] = true
			}
			return
		}
		if event.Data.ToolName != nil {
			coll.forward(AgentEvent{Phase: PhasePreToolUse, Tool: *event.Data.ToolName})
		}

	case copilot.ToolExecutionProgress, copilot.ToolUserRequested:
		if event.Data.ToolCallID != nil && coll.intentToolIDs[*event.Data.ToolCallID] {
			return
		}

	case copilot.ToolExecutionComplete, copilot.ToolExecutionPartialResult:
		if event.Data.ToolCallID != nil && coll.intentToolIDs[*event.Data.ToolCallID] {
			delete(coll.intentToolIDs, *event.Data.ToolCallID)
			return
		}
		ev := AgentEvent{Phase: PhasePostToolUse, Success: event.Data.Success}
		if name := coll.toolNameFor(event.Data.ToolCallID); name != "" {
			ev.Tool = name
			if mutatingTools[name] && event.Data.Success != nil && *event.Data.Success {
				coll.sawMutation = true
			}
		}
		coll.forward(ev)

	// these are both termination events
	case copilot.SessionIdle, copilot.SessionError:
		if event.Type == copilot.SessionError {
			if event.Data.Message == nil || *event.Data.Message == "" {
				coll.errorMsg = sessionFailedUnknown
			} else {
				coll.errorMsg = *event.Data.Message
			}
		}

		select {
		case <-coll.done:
		default:
			close(coll.done)
		}
	}

	coll.sessionEvents = append(coll.sessionEvents, event)
}

// ToolCalls goes through the list of session events and correlates tool starts
// with Success. The resulting tool calls are not cached - if you're going to
// use it repeatedly you should store it locally.
func (coll *fixCollector) ToolCalls() []ToolCall {
	return FilterToolCalls(coll.sessionEvents)
}

func (coll *fixCollector) forward(ev AgentEvent) {
	if coll.stream == nil {
		return
	}
	select {
	case coll.stream <- ev:
	case <-coll.ctx.Done():
	}
}

// toolNameFor finds the ToolExecutionStart that matches a tool call ID.
func (coll *fixCollector) toolNameFor(toolCallID *string) string {
	if toolCallID == nil {
		return ""
	}
	for _, evt := range coll.sessionEvents {
		if evt.Type != copilot.ToolExecutionStart {
			continue
		}
		if evt.Data.ToolCallID != nil && *evt.Data.ToolCallID == *toolCallID && evt.Data.ToolName != nil {
			return *evt.Data.ToolName
		}
	}
	return ""
}

// FilterToolCalls goes through a list of session events and correlates tool
// starts with their completion results.
func FilterToolCalls(sessionEvents []copilot.SessionEvent) []ToolCall {
	toolCallsMap := map[string]*ToolCall{}
	var toolCallIDs []string // preserve the start order of the events.

	for _, evt := range sessionEvents {
		switch evt.Type {
		case copilot.ToolExecutionStart:
			if evt.Data.ToolName == nil || evt.Data.ToolCallID == nil {
				continue
			}
			tc := &ToolCall{
				Name:      *evt.Data.ToolName,
				Arguments: evt.Data.Arguments,
			}
			toolCallsMap[*evt.Data.ToolCallID] = tc
			toolCallIDs = append(toolCallIDs, *evt.Data.ToolCallID)
		case copilot.ToolExecutionComplete, copilot.ToolExecutionPartialResult:
			if evt.Data.ToolCallID == nil {
				continue
			}
			tc := toolCallsMap[*evt.Data.ToolCallID]
			if tc == nil {
				continue
			}

			if evt.Data.Success != nil {
				tc.Success = *evt.Data.Success
			}

			tc.Result = evt.Data.Result
		}
	}

	var toolCalls []ToolCall

	for _, id := range toolCallIDs {
		toolCalls = append(toolCalls, *toolCallsMap[id])
	}

	return toolCalls
}

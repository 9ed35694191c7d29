package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// SessionToSlog forwards an agent session event to the default slog logger.
// It is a no-op unless debug logging is enabled, so it is safe to register
// unconditionally as a session event handler.
func SessionToSlog(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{"type", event.Type}
	attrs = appendAttr(attrs, "content", event.Data.Content)
	attrs = appendAttr(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = appendAttr(attrs, "reasoningText", event.Data.ReasoningText)
	attrs = appendAttr(attrs, "toolName", event.Data.ToolName)
	attrs = appendAttr(attrs, "toolCallID", event.Data.ToolCallID)
	attrs = appendAttr(attrs, "toolResult", event.Data.Result)

	slog.Debug("agent event", attrs...)
}

// appendAttr appends a key-value pair only when the value is set.
func appendAttr[T any](attrs []any, name string, v *T) []any {
	if v == nil {
		return attrs
	}
	return append(attrs, name, *v)
}

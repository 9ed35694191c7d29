package utils

import (
	"bytes"
	"log/slog"
	"testing"

	copilot "github.com/github/copilot-sdk/go"
	"github.com/stretchr/testify/require"
)

func TestSessionToSlogDebugDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	SessionToSlog(copilot.SessionEvent{Type: copilot.SessionEventType("message")})
	require.Empty(t, buf.String())
}

func TestSessionToSlogDebugEnabled(t *testing.T) {
	buf := &bytes.Buffer{}
	old := slog.Default()
	t.Cleanup(func() { slog.SetDefault(old) })

	slog.SetDefault(slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	SessionToSlog(copilot.SessionEvent{
		Type: copilot.AssistantMessage,
		Data: copilot.Data{
			Content:  Ptr("hello"),
			ToolName: Ptr("edit"),
		},
	})

	out := buf.String()
	require.Contains(t, out, "agent event")
	require.Contains(t, out, "content=hello")
	require.Contains(t, out, "toolName=edit")
}

func TestPtr(t *testing.T) {
	v := 42
	p := Ptr(v)

	require.NotNil(t, p)
	require.Equal(t, 42, *p)
}

func TestResolvePath(t *testing.T) {
	require.Equal(t, "/abs", ResolvePath("/abs", "/base"))
	require.Equal(t, "/base/rel", ResolvePath("rel", "/base"))
}

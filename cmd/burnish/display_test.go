package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/burnish-dev/burnish/internal/metrics"
	"github.com/burnish-dev/burnish/internal/polish"
	"github.com/burnish-dev/burnish/internal/session"
)

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 5))
	// Wide runes count for their display width.
	assert.Equal(t, "日本 ", padRight("日本", 5))
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "short", truncateName("short", 10))
	assert.Equal(t, "abcd…", truncateName("abcdefgh", 5))
}

func TestPrintScoreTable(t *testing.T) {
	result := &metrics.ScoreResult{
		Score: 72.5,
		Metrics: []metrics.MetricResult{
			{Name: "lint", NormalizedScore: 45, RawValue: 55, Target: 0},
			{Name: "coverage", NormalizedScore: 100, RawValue: 87.5, Target: 100},
			{Name: "broken", RunFailed: true, Feedback: "command not found"},
		},
	}

	var buf bytes.Buffer
	printScoreTable(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "lint")
	assert.Contains(t, out, "coverage")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Composite")
	assert.Contains(t, out, "72.5")
}

func TestPrintPolishSummary(t *testing.T) {
	result := &polish.PolishResult{
		Reason:       polish.ReasonPlateau,
		InitialScore: 60,
		FinalScore:   80,
		Iterations:   4,
		Branch:       "polish/20260827-120000",
		Trajectory:   []float64{60, 70, 80},
		Commits: []polish.CommitInfo{
			{Iteration: 1, Hash: "abc123def456", Focus: "lint", Delta: 10},
			{Iteration: 2, Hash: "def456abc789", Focus: "coverage", Delta: 10},
		},
	}

	var buf bytes.Buffer
	printPolishSummary(&buf, result)
	out := buf.String()

	assert.Contains(t, out, "POLISH RESULTS")
	assert.Contains(t, out, "plateau")
	assert.Contains(t, out, "60.0 → 80.0 (+20.0)")
	assert.Contains(t, out, "60 → 70 → 80")
	assert.Contains(t, out, "abc123de")
	assert.Contains(t, out, "polish/20260827-120000")
}

func TestRenderProgress(t *testing.T) {
	events := make(chan session.Event, 8)
	events <- session.NewEvent(session.EventPhase, map[string]any{"iteration": 1, "focus": "lint"})
	events <- session.NewEvent(session.EventScore, session.ScoreData(1, 72.5, 12.5))
	events <- session.NewEvent(session.EventCommit, session.CommitData(1, "abc123def", "polish: lint", 12.5))
	events <- session.NewEvent(session.EventRollback, session.RollbackData(2, "no_improvement", "improve-lint"))
	close(events)

	var buf bytes.Buffer
	renderProgress(&buf, events, false)
	out := buf.String()

	assert.Contains(t, out, "polishing lint")
	assert.Contains(t, out, "score 72.5 (+12.5)")
	assert.Contains(t, out, "committed abc123de")
	assert.Contains(t, out, "rolled back (no_improvement)")
}

func TestRenderProgressVerboseShowsAgentActivity(t *testing.T) {
	events := make(chan session.Event, 4)
	events <- session.NewEvent(session.EventStrategy, session.StrategyData(1, "improve-lint", "lint"))
	events <- session.NewEvent(session.EventAgent, session.AgentData("pre_tool_use", "edit", nil))
	close(events)

	var quiet, verbose bytes.Buffer

	quietEvents := make(chan session.Event, 4)
	quietEvents <- session.NewEvent(session.EventAgent, session.AgentData("pre_tool_use", "edit", nil))
	close(quietEvents)

	renderProgress(&quiet, quietEvents, false)
	renderProgress(&verbose, events, true)

	assert.NotContains(t, quiet.String(), "edit")
	assert.Contains(t, verbose.String(), "improve-lint")
	assert.Contains(t, verbose.String(), "edit")
}

func TestRenderProgressSkipsInitialScore(t *testing.T) {
	events := make(chan session.Event, 2)
	events <- session.NewEvent(session.EventScore, session.ScoreData(0, 60, 0))
	close(events)

	var buf bytes.Buffer
	renderProgress(&buf, events, false)
	assert.Empty(t, strings.TrimSpace(buf.String()))
}

package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/burnish-dev/burnish/internal/strategy"
)

func fixRequest() *FixRequest {
	return &FixRequest{
		ProjectPath: "/tmp/proj",
		Strategy: &strategy.Strategy{
			Name:        "improve-lint",
			Focus:       "lint",
			Instruction: "Fix the highest-impact lint finding.",
		},
		CurrentScore:   62.5,
		TargetScore:    95,
		HigherIsBetter: true,
		Timeout:        time.Minute,
	}
}

func TestBuildFixPromptNamesMetricAndScores(t *testing.T) {
	prompt := BuildFixPrompt(fixRequest())

	require.Contains(t, prompt, "Target metric: lint")
	require.Contains(t, prompt, "Current score: 62.5 / target 95.0")
}

func TestBuildFixPromptDirection(t *testing.T) {
	req := fixRequest()
	require.Contains(t, BuildFixPrompt(req), "Higher is better")

	req.HigherIsBetter = false
	prompt := BuildFixPrompt(req)
	require.Contains(t, prompt, "Lower is better")
	require.NotContains(t, prompt, "Higher is better")
}

func TestBuildFixPromptRulesVerbatim(t *testing.T) {
	req := fixRequest()
	req.Rules = []string{
		"Never edit generated files",
		"Keep public API signatures unchanged",
	}

	prompt := BuildFixPrompt(req)
	require.Contains(t, prompt, "- Never edit generated files\n")
	require.Contains(t, prompt, "- Keep public API signatures unchanged\n")
}

func TestBuildFixPromptNoRulesSection(t *testing.T) {
	require.NotContains(t, BuildFixPrompt(fixRequest()), "Rules you must follow")
}

func TestBuildFixPromptFailedAttempts(t *testing.T) {
	req := fixRequest()
	req.FailedAttempts = []strategy.FailedAttempt{
		{Strategy: "improve-lint", Reason: strategy.ReasonNoImprovement, File: "pkg/a.go", Line: 42},
		{Strategy: "improve-lint", Reason: strategy.ReasonTestsFailed},
	}

	prompt := BuildFixPrompt(req)
	require.Contains(t, prompt, "do not repeat them")
	require.Contains(t, prompt, "- improve-lint (no_improvement) at pkg/a.go:42")
	require.Contains(t, prompt, "- improve-lint (tests_failed)")
}

func TestBuildFixPromptAtomicChange(t *testing.T) {
	prompt := BuildFixPrompt(fixRequest())
	require.Contains(t, prompt, "ONE SINGLE atomic change")

	require.Contains(t, continuationPrompt, "ONE SINGLE atomic change")
}

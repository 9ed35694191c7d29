// Package plateau decides when a polish run has stopped making progress and
// should end rather than keep burning agent invocations.
package plateau

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sample is one completed iteration's outcome, oldest first.
type Sample struct {
	Iteration int     `json:"iteration"`
	Focus     string  `json:"focus"`
	Score     float64 `json:"score"`
	Delta     float64 `json:"delta"`
	Committed bool    `json:"committed"`
}

// Detector reports whether the run has plateaued. stalled is the number of
// consecutive iterations without a committed improvement.
type Detector interface {
	Plateaued(ctx context.Context, samples []Sample, stalled int) (bool, error)
}

// StalledDetector plateaus after a fixed number of consecutive iterations
// without improvement.
type StalledDetector struct {
	maxStalled int
}

// NewStalledDetector creates a StalledDetector. maxStalled must be positive.
func NewStalledDetector(maxStalled int) (*StalledDetector, error) {
	if maxStalled <= 0 {
		return nil, fmt.Errorf("maxStalled must be positive, got %d", maxStalled)
	}
	return &StalledDetector{maxStalled: maxStalled}, nil
}

func (d *StalledDetector) Plateaued(ctx context.Context, samples []Sample, stalled int) (bool, error) {
	return stalled >= d.maxStalled, nil
}

// Asker is the one-shot prompt surface of the agent engine.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// LLMDetector asks the model whether the recent score trajectory still looks
// workable. It only consults the model once the stalled counter is nonzero,
// and falls back to the stalled heuristic when the model errors or gives an
// unparseable answer.
type LLMDetector struct {
	asker    Asker
	fallback *StalledDetector
}

// NewLLMDetector creates an LLMDetector with a stalled fallback.
func NewLLMDetector(asker Asker, maxStalled int) (*LLMDetector, error) {
	if asker == nil {
		return nil, fmt.Errorf("asker is required")
	}

	fallback, err := NewStalledDetector(maxStalled)
	if err != nil {
		return nil, err
	}

	return &LLMDetector{asker: asker, fallback: fallback}, nil
}

func (d *LLMDetector) Plateaued(ctx context.Context, samples []Sample, stalled int) (bool, error) {
	if stalled == 0 {
		// Still improving, no judgment needed.
		return false, nil
	}

	reply, err := d.asker.Ask(ctx, buildJudgmentPrompt(samples, stalled))
	if err != nil {
		slog.Warn("plateau judgment failed, falling back to stalled heuristic", "error", err)
		return d.fallback.Plateaued(ctx, samples, stalled)
	}

	switch parseVerdict(reply) {
	case verdictPlateau:
		return true, nil
	case verdictContinue:
		return false, nil
	default:
		slog.Warn("plateau judgment gave no verdict, falling back to stalled heuristic", "reply", reply)
		return d.fallback.Plateaued(ctx, samples, stalled)
	}
}

type verdict int

const (
	verdictNone verdict = iota
	verdictPlateau
	verdictContinue
)

// judgmentWindow caps how many recent iterations are quoted to the model.
const judgmentWindow = 10

func buildJudgmentPrompt(samples []Sample, stalled int) string {
	var b strings.Builder

	b.WriteString("You are judging a code-quality improvement loop. ")
	b.WriteString("Each iteration makes one change and re-scores the codebase.\n\n")
	fmt.Fprintf(&b, "Consecutive iterations without improvement: %d\n", stalled)
	b.WriteString("Recent iterations (oldest first):\n")

	start := 0
	if len(samples) > judgmentWindow {
		start = len(samples) - judgmentWindow
	}
	for _, s := range samples[start:] {
		outcome := "rolled back"
		if s.Committed {
			outcome = "committed"
		}
		fmt.Fprintf(&b, "- iteration %d: focus=%s score=%.1f delta=%+.1f (%s)\n",
			s.Iteration, s.Focus, s.Score, s.Delta, outcome)
	}

	b.WriteString("\nIs this run still likely to improve, or has it plateaued? ")
	b.WriteString("Answer with exactly one word: PLATEAU or CONTINUE.\n")

	return b.String()
}

func parseVerdict(reply string) verdict {
	upper := strings.ToUpper(reply)

	// A reply that mentions both is no verdict at all.
	hasPlateau := strings.Contains(upper, "PLATEAU")
	hasContinue := strings.Contains(upper, "CONTINUE")

	switch {
	case hasPlateau && !hasContinue:
		return verdictPlateau
	case hasContinue && !hasPlateau:
		return verdictContinue
	default:
		return verdictNone
	}
}

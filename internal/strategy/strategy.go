// Package strategy picks the next improvement focus for a polish iteration.
package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/burnish-dev/burnish/internal/metrics"
)

// DefaultRetryCeiling is how many no-improvement failures a metric tolerates
// before its strategy is considered exhausted.
const DefaultRetryCeiling = 2

// ErrNoViableStrategy signals that every metric with headroom has exhausted
// its strategies. The controller treats this as a plateau, not a crash.
var ErrNoViableStrategy = errors.New("no viable strategy: all metric strategies exhausted")

// FailReason classifies why a strategy attempt was rejected.
type FailReason string

const (
	ReasonTestsFailed   FailReason = "tests_failed"
	ReasonNoImprovement FailReason = "no_improvement"
	ReasonError         FailReason = "error"
)

// FailedAttempt records a strategy that did not improve the score. Appended
// to session memory and never removed.
type FailedAttempt struct {
	Strategy  string     `json:"strategy"`
	Focus     string     `json:"focus"`
	File      string     `json:"file,omitempty"`
	Line      int        `json:"line,omitempty"`
	Reason    FailReason `json:"reason"`
	Timestamp time.Time  `json:"timestamp"`
}

// Strategy is a single-metric-focused instruction for one fix attempt.
// Ephemeral: it lives for one iteration, surviving only as a FailedAttempt
// when the attempt is rejected.
type Strategy struct {
	Name        string
	Focus       string
	Instruction string
}

// Selector picks the worst-performing metric that still has headroom and an
// un-exhausted strategy.
type Selector struct {
	retryCeiling int
}

// NewSelector creates a selector. A non-positive ceiling falls back to
// DefaultRetryCeiling.
func NewSelector(retryCeiling int) *Selector {
	if retryCeiling <= 0 {
		retryCeiling = DefaultRetryCeiling
	}
	return &Selector{retryCeiling: retryCeiling}
}

// Select returns the strategy for the metric with the largest weighted
// distance to target. Ties resolve to configuration order. Metrics whose
// strategy already failed retryCeiling times with no improvement are
// skipped, as are metrics at or above their target.
func (s *Selector) Select(score *metrics.ScoreResult, failed []FailedAttempt) (*Strategy, error) {
	noImprovement := map[string]int{}
	for _, fa := range failed {
		if fa.Reason == ReasonNoImprovement {
			noImprovement[fa.Focus]++
		}
	}

	var best *metrics.MetricResult
	var bestDistance float64

	for i := range score.Metrics {
		mr := &score.Metrics[i]
		distance := weightedDistance(mr)
		if distance <= 0 {
			continue
		}
		if noImprovement[mr.Name] >= s.retryCeiling {
			continue
		}
		// Strict comparison keeps the first metric on ties.
		if best == nil || distance > bestDistance {
			best = mr
			bestDistance = distance
		}
	}

	if best == nil {
		return nil, ErrNoViableStrategy
	}

	return buildStrategy(best, failed), nil
}

func weightedDistance(mr *metrics.MetricResult) float64 {
	d := mr.Target - mr.NormalizedScore
	if d < 0 {
		d = 0
	}
	return d * mr.Weight
}

func buildStrategy(mr *metrics.MetricResult, failed []FailedAttempt) *Strategy {
	direction := "raise"
	if !mr.HigherIsBetter {
		direction = "lower"
	}

	instruction := fmt.Sprintf(
		"Improve the %q metric: %s its measured value. The normalized score is %.1f and the target is %.1f.",
		mr.Name, direction, mr.NormalizedScore, mr.Target)

	if mr.RunFailed {
		instruction = fmt.Sprintf(
			"The %q metric command failed to produce a value (%s). Fix whatever prevents it from running cleanly.",
			mr.Name, mr.Feedback)
	}

	if n := attemptsFor(failed, mr.Name); n > 0 {
		instruction += fmt.Sprintf(" %d earlier attempt(s) on this metric did not stick; take a different angle.", n)
	}

	return &Strategy{
		Name:        "improve-" + mr.Name,
		Focus:       mr.Name,
		Instruction: instruction,
	}
}

func attemptsFor(failed []FailedAttempt, focus string) int {
	n := 0
	for _, fa := range failed {
		if fa.Focus == focus {
			n++
		}
	}
	return n
}

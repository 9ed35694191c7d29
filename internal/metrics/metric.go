// Package metrics defines the quality metrics model and the scoring pass
// that turns raw metric command output into a weighted 0-100 score.
package metrics

import (
	"fmt"
	"strings"
)

// Metric is the static configuration for one quality signal. Loaded from
// .burnish.yaml and immutable afterwards.
type Metric struct {
	// Name uniquely identifies the metric within a project.
	Name string `yaml:"name"`
	// Command is the shell invocation that produces the raw value.
	Command string `yaml:"command"`
	// Weight is the relative influence on the total score. Must be positive.
	Weight float64 `yaml:"weight"`
	// Target is the 0-100 threshold at which the metric is satisfied.
	Target float64 `yaml:"target"`
	// HigherIsBetter flips the normalization polarity.
	HigherIsBetter bool `yaml:"higher_is_better"`
	// Runner selects the runner implementation ("command" when empty).
	Runner string `yaml:"runner,omitempty"`
	// Params holds runner-specific options, decoded by the runner factory.
	Params map[string]any `yaml:"params,omitempty"`
}

// Validate checks the fields that scoring depends on.
func (m Metric) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("metric has no name")
	}
	if strings.TrimSpace(m.Command) == "" {
		return fmt.Errorf("metric %q has no command", m.Name)
	}
	if m.Weight <= 0 {
		return fmt.Errorf("metric %q must have a positive weight", m.Name)
	}
	if m.Target < 0 || m.Target > 100 {
		return fmt.Errorf("metric %q target must be within 0-100", m.Name)
	}
	return nil
}

// MetricResult is one scoring observation for a single metric. Instances are
// created fresh on every pass and never mutated.
type MetricResult struct {
	Name            string  `json:"name"`
	RawValue        float64 `json:"raw_value"`
	NormalizedScore float64 `json:"normalized_score"`
	Weight          float64 `json:"weight"`
	Target          float64 `json:"target"`
	HigherIsBetter  bool    `json:"higher_is_better"`
	// RunFailed is set when the metric command could not execute at all.
	// The metric contributes a zero score for the pass.
	RunFailed bool   `json:"run_failed,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
}

// ScoreResult aggregates one full scoring pass. Metrics keeps configuration
// order so downstream tie-breaking stays deterministic.
type ScoreResult struct {
	Score   float64        `json:"score"`
	Metrics []MetricResult `json:"metrics"`
}

// Find returns the result for the named metric, or nil.
func (r *ScoreResult) Find(name string) *MetricResult {
	for i := range r.Metrics {
		if r.Metrics[i].Name == name {
			return &r.Metrics[i]
		}
	}
	return nil
}

// RunError reports that a metric command failed to execute. It is recovered
// locally: the metric scores zero for the pass and the session continues.
type RunError struct {
	Metric string
	Err    error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("metric %q failed to run: %v", e.Metric, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

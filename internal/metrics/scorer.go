package metrics

import (
	"context"
	"fmt"
	"log/slog"
)

// Scorer runs every configured metric and aggregates a weighted total.
// The polish controller guarantees sequential scoring, so Scorer carries no
// synchronization of its own.
type Scorer struct {
	runners map[string]Runner
	metrics []Metric
}

// NewScorer builds a scorer for the given metric configuration. Runner
// construction errors are configuration errors and fail fast.
func NewScorer(ms []Metric) (*Scorer, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("at least one metric is required")
	}

	runners := make(map[string]Runner, len(ms))
	for _, m := range ms {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := runners[m.Name]; dup {
			return nil, fmt.Errorf("duplicate metric name %q", m.Name)
		}
		r, err := NewRunner(m)
		if err != nil {
			return nil, err
		}
		runners[m.Name] = r
	}

	return &Scorer{runners: runners, metrics: ms}, nil
}

// Metrics returns the metric configuration in its original order.
func (s *Scorer) Metrics() []Metric { return s.metrics }

// Score performs one full scoring pass against dir. A metric whose command
// cannot execute scores zero and is reported in the result; only a cancelled
// context aborts the pass.
func (s *Scorer) Score(ctx context.Context, dir string) (*ScoreResult, error) {
	result := &ScoreResult{Metrics: make([]MetricResult, 0, len(s.metrics))}

	var weightedSum, weightTotal float64

	for _, m := range s.metrics {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mr := MetricResult{
			Name:           m.Name,
			Weight:         m.Weight,
			Target:         m.Target,
			HigherIsBetter: m.HigherIsBetter,
		}

		raw, err := s.runners[m.Name].Run(ctx, m, dir)
		if err != nil {
			slog.Warn("metric run failed", "metric", m.Name, "error", err)
			mr.RunFailed = true
			mr.Feedback = err.Error()
		} else {
			mr.RawValue = raw
			mr.NormalizedScore = Normalize(raw, m.Target, m.HigherIsBetter)
		}

		weightedSum += mr.NormalizedScore * m.Weight
		weightTotal += m.Weight
		result.Metrics = append(result.Metrics, mr)
	}

	result.Score = weightedSum / weightTotal
	return result, nil
}

// Normalize converts a raw metric value into a 0-100 sub-score. A zero
// target cannot divide, so it scores 100 only when the raw value is also
// zero (relevant for lower-is-better metrics like "lint warnings: 0").
func Normalize(raw, target float64, higherIsBetter bool) float64 {
	if target == 0 {
		if raw == 0 {
			return 100
		}
		return 0
	}

	ratio := raw / target * 100
	if higherIsBetter {
		return clamp(ratio, 0, 100)
	}
	return clamp(100-ratio, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name           string
		raw            float64
		target         float64
		higherIsBetter bool
		expected       float64
	}{
		{"at target", 100, 100, true, 100},
		{"below target", 80, 100, true, 80},
		{"above target clamps", 150, 100, true, 100},
		{"negative raw clamps", -10, 100, true, 0},
		{"partial target", 40, 80, true, 50},
		{"lower is better at zero", 0, 50, false, 100},
		{"lower is better at target", 50, 50, false, 0},
		{"lower is better midway", 25, 50, false, 50},
		{"lower is better over target clamps", 80, 50, false, 0},
		{"zero target zero raw", 0, 0, false, 100},
		{"zero target nonzero raw", 3, 0, false, 0},
		{"zero target higher is better", 0, 0, true, 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Normalize(tc.raw, tc.target, tc.higherIsBetter))
		})
	}
}

func TestScorerWeightedAggregate(t *testing.T) {
	scorer, err := NewScorer([]Metric{
		{Name: "tests", Command: "echo 80", Weight: 100, Target: 100, HigherIsBetter: true},
	})
	require.NoError(t, err)

	result, err := scorer.Score(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 80.0, result.Score)
	require.Len(t, result.Metrics, 1)
	require.Equal(t, 80.0, result.Metrics[0].RawValue)
	require.Equal(t, 80.0, result.Metrics[0].NormalizedScore)
}

func TestScorerMixedWeights(t *testing.T) {
	scorer, err := NewScorer([]Metric{
		{Name: "tests", Command: "echo 100", Weight: 3, Target: 100, HigherIsBetter: true},
		{Name: "lint", Command: "echo 20", Weight: 1, Target: 20, HigherIsBetter: false},
	})
	require.NoError(t, err)

	result, err := scorer.Score(context.Background(), t.TempDir())
	require.NoError(t, err)

	// tests normalizes to 100 with weight 3, lint to 0 with weight 1.
	require.Equal(t, 75.0, result.Score)
	require.GreaterOrEqual(t, result.Score, 0.0)
	require.LessOrEqual(t, result.Score, 100.0)
}

func TestScorerRunFailureScoresZero(t *testing.T) {
	scorer, err := NewScorer([]Metric{
		{Name: "good", Command: "echo 100", Weight: 1, Target: 100, HigherIsBetter: true},
		{Name: "broken", Command: "exit 3", Weight: 1, Target: 100, HigherIsBetter: true},
	})
	require.NoError(t, err)

	result, err := scorer.Score(context.Background(), t.TempDir())
	require.NoError(t, err, "a failing metric is reported, not fatal")

	require.Equal(t, 50.0, result.Score)
	broken := result.Find("broken")
	require.NotNil(t, broken)
	require.True(t, broken.RunFailed)
	require.Zero(t, broken.NormalizedScore)
}

func TestScorerOrderMatchesConfiguration(t *testing.T) {
	scorer, err := NewScorer([]Metric{
		{Name: "b", Command: "echo 1", Weight: 1, Target: 100, HigherIsBetter: true},
		{Name: "a", Command: "echo 2", Weight: 1, Target: 100, HigherIsBetter: true},
	})
	require.NoError(t, err)

	result, err := scorer.Score(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "b", result.Metrics[0].Name)
	require.Equal(t, "a", result.Metrics[1].Name)
}

func TestScorerCancelledContext(t *testing.T) {
	scorer, err := NewScorer([]Metric{
		{Name: "tests", Command: "echo 80", Weight: 1, Target: 100, HigherIsBetter: true},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = scorer.Score(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewScorerRejectsBadConfig(t *testing.T) {
	testCases := []struct {
		name    string
		metrics []Metric
	}{
		{"empty", nil},
		{"missing name", []Metric{{Command: "echo 1", Weight: 1, Target: 100}}},
		{"missing command", []Metric{{Name: "x", Weight: 1, Target: 100}}},
		{"zero weight", []Metric{{Name: "x", Command: "echo 1", Target: 100}}},
		{"negative weight", []Metric{{Name: "x", Command: "echo 1", Weight: -2, Target: 100}}},
		{"target out of range", []Metric{{Name: "x", Command: "echo 1", Weight: 1, Target: 101}}},
		{"duplicate names", []Metric{
			{Name: "x", Command: "echo 1", Weight: 1, Target: 100},
			{Name: "x", Command: "echo 2", Weight: 1, Target: 100},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewScorer(tc.metrics)
			require.Error(t, err)
		})
	}
}

package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/burnish-dev/burnish/internal/projectconfig"
)

func TestGenerateConfigYAML_HigherIsBetter(t *testing.T) {
	spec := &ProjectSpec{
		Target:           90,
		MaxIterations:    25,
		Model:            "claude-sonnet-4.6",
		PlateauDetection: "stalled",
		MetricName:       "coverage",
		MetricCommand:    "go test -cover ./... | awk '{print $5}'",
		HigherIsBetter:   true,
	}

	out, err := GenerateConfigYAML(spec)
	require.NoError(t, err)

	assert.Contains(t, out, "target: 90")
	assert.Contains(t, out, "max_iterations: 25")
	assert.Contains(t, out, "model: claude-sonnet-4.6")
	assert.Contains(t, out, "name: coverage")
	assert.NotContains(t, out, "higher_is_better: false")
}

func TestGenerateConfigYAML_LowerIsBetter(t *testing.T) {
	spec := &ProjectSpec{
		Target:           95,
		MaxIterations:    50,
		Model:            "gpt-5",
		PlateauDetection: "llm",
		MetricName:       "lint",
		MetricCommand:    "golangci-lint run 2>&1 | wc -l",
		HigherIsBetter:   false,
	}

	out, err := GenerateConfigYAML(spec)
	require.NoError(t, err)

	assert.Contains(t, out, "higher_is_better: false")
	assert.Contains(t, out, "target: 0")
	assert.Contains(t, out, "plateau_detection: llm")
}

func TestGenerateConfigYAML_IsLoadable(t *testing.T) {
	out, err := GenerateConfigYAML(DefaultSpec())
	require.NoError(t, err)

	var cfg projectconfig.ProjectConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))

	assert.InDelta(t, projectconfig.DefaultTarget, cfg.Polish.Target, 0.001)
	require.Len(t, cfg.Metrics, 1)
	assert.Equal(t, "tests", cfg.Metrics[0].Name)
	assert.Equal(t, "POLISH.md", cfg.RulesFile)
}

func TestGenerateRulesMD(t *testing.T) {
	out := GenerateRulesMD()
	assert.Contains(t, out, "# Polish Rules")
	assert.Contains(t, out, "- Never delete or skip tests")
}

func TestValidateScore(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"95", false},
		{"1", false},
		{"100", false},
		{" 80 ", false},
		{"0", true},
		{"101", true},
		{"abc", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			err := validateScore(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePositiveInt(t *testing.T) {
	assert.NoError(t, validatePositiveInt("50"))
	assert.Error(t, validatePositiveInt("0"))
	assert.Error(t, validatePositiveInt("-3"))
	assert.Error(t, validatePositiveInt("many"))
}

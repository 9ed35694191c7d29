// Package projectconfig provides the ProjectConfig struct and loader for
// .burnish.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/burnish-dev/burnish/internal/metrics"
)

// Default values for project configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultTarget           = 95.0
	DefaultMaxIterations    = 50
	DefaultMaxDurationMs    = 2 * 60 * 60 * 1000 // 2h
	DefaultMaxStalled       = 5
	DefaultStallEpsilon     = 0.0
	DefaultRetryCeiling     = 2
	DefaultPlateauDetection = "stalled"

	DefaultModel           = "claude-sonnet-4.6"
	DefaultAgentTimeoutSec = 900

	DefaultResultsDir = "results/"
	DefaultRulesFile  = "POLISH.md"

	DefaultServerPort       = 3000
	DefaultServerResultsDir = "."
)

// MetricConfig is one metric definition as it appears in .burnish.yaml.
// HigherIsBetter is a pointer so an absent key can default to true.
type MetricConfig struct {
	Name           string         `yaml:"name"`
	Command        string         `yaml:"command"`
	Weight         float64        `yaml:"weight,omitempty"`
	Target         float64        `yaml:"target,omitempty"`
	HigherIsBetter *bool          `yaml:"higher_is_better,omitempty"`
	Runner         string         `yaml:"runner,omitempty"`
	Params         map[string]any `yaml:"params,omitempty"`
}

// PolishConfig holds the loop budgets and agent settings.
type PolishConfig struct {
	Target           float64 `yaml:"target,omitempty"`
	MaxIterations    int     `yaml:"max_iterations,omitempty"`
	MaxDurationMs    int64   `yaml:"max_duration_ms,omitempty"`
	MaxStalled       int     `yaml:"max_stalled,omitempty"`
	StallEpsilon     float64 `yaml:"stall_epsilon,omitempty"`
	RetryCeiling     int     `yaml:"retry_ceiling,omitempty"`
	PlateauDetection string  `yaml:"plateau_detection,omitempty"`
	Model            string  `yaml:"model,omitempty"`
	AgentTimeoutSec  int     `yaml:"agent_timeout,omitempty"`
}

// ServerConfig holds dashboard server settings.
type ServerConfig struct {
	Port       int    `yaml:"port,omitempty"`
	ResultsDir string `yaml:"results_dir,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .burnish.yaml.
type ProjectConfig struct {
	Polish     PolishConfig   `yaml:"polish,omitempty"`
	Metrics    []MetricConfig `yaml:"metrics,omitempty"`
	Rules      []string       `yaml:"rules,omitempty"`
	RulesFile  string         `yaml:"rules_file,omitempty"`
	ResultsDir string         `yaml:"results_dir,omitempty"`
	Server     ServerConfig   `yaml:"server,omitempty"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Polish: PolishConfig{
			Target:           DefaultTarget,
			MaxIterations:    DefaultMaxIterations,
			MaxDurationMs:    DefaultMaxDurationMs,
			MaxStalled:       DefaultMaxStalled,
			StallEpsilon:     DefaultStallEpsilon,
			RetryCeiling:     DefaultRetryCeiling,
			PlateauDetection: DefaultPlateauDetection,
			Model:            DefaultModel,
			AgentTimeoutSec:  DefaultAgentTimeoutSec,
		},
		RulesFile:  DefaultRulesFile,
		ResultsDir: DefaultResultsDir,
		Server: ServerConfig{
			Port:       DefaultServerPort,
			ResultsDir: DefaultServerResultsDir,
		},
	}
}

// Load finds .burnish.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading .burnish.yaml: %w", err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing .burnish.yaml: %w", err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .burnish.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ".burnish.yaml")
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Polish.Target != 0 {
		dst.Polish.Target = src.Polish.Target
	}
	if src.Polish.MaxIterations != 0 {
		dst.Polish.MaxIterations = src.Polish.MaxIterations
	}
	if src.Polish.MaxDurationMs != 0 {
		dst.Polish.MaxDurationMs = src.Polish.MaxDurationMs
	}
	if src.Polish.MaxStalled != 0 {
		dst.Polish.MaxStalled = src.Polish.MaxStalled
	}
	if src.Polish.StallEpsilon != 0 {
		dst.Polish.StallEpsilon = src.Polish.StallEpsilon
	}
	if src.Polish.RetryCeiling != 0 {
		dst.Polish.RetryCeiling = src.Polish.RetryCeiling
	}
	if src.Polish.PlateauDetection != "" {
		dst.Polish.PlateauDetection = src.Polish.PlateauDetection
	}
	if src.Polish.Model != "" {
		dst.Polish.Model = src.Polish.Model
	}
	if src.Polish.AgentTimeoutSec != 0 {
		dst.Polish.AgentTimeoutSec = src.Polish.AgentTimeoutSec
	}

	if len(src.Metrics) > 0 {
		dst.Metrics = src.Metrics
	}
	if len(src.Rules) > 0 {
		dst.Rules = src.Rules
	}
	if src.RulesFile != "" {
		dst.RulesFile = src.RulesFile
	}
	if src.ResultsDir != "" {
		dst.ResultsDir = src.ResultsDir
	}

	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ResultsDir != "" {
		dst.Server.ResultsDir = src.Server.ResultsDir
	}
}

// MetricDefs converts the configured metric list to the scoring model.
// An absent higher_is_better defaults to true, an absent weight to 1, and an
// absent target to 100 for higher-is-better metrics. A lower-is-better metric
// with no target keeps 0, meaning "the raw value should reach zero".
func (cfg *ProjectConfig) MetricDefs() []metrics.Metric {
	defs := make([]metrics.Metric, 0, len(cfg.Metrics))

	for _, mc := range cfg.Metrics {
		m := metrics.Metric{
			Name:           mc.Name,
			Command:        mc.Command,
			Weight:         mc.Weight,
			Target:         mc.Target,
			HigherIsBetter: true,
			Runner:         mc.Runner,
			Params:         mc.Params,
		}
		if mc.HigherIsBetter != nil {
			m.HigherIsBetter = *mc.HigherIsBetter
		}
		if m.Weight == 0 {
			m.Weight = 1
		}
		if m.Target == 0 && m.HigherIsBetter {
			m.Target = 100
		}
		defs = append(defs, m)
	}

	return defs
}

package polish

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/burnish-dev/burnish/internal/strategy"
)

// CommitInfo is the audit record for one accepted iteration.
type CommitInfo struct {
	Iteration int       `json:"iteration"`
	Hash      string    `json:"hash"`
	Focus     string    `json:"focus"`
	Delta     float64   `json:"delta"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// IterationRecord summarizes one completed iteration, committed or not.
type IterationRecord struct {
	Iteration int     `json:"iteration"`
	Focus     string  `json:"focus"`
	Score     float64 `json:"score"`
	Delta     float64 `json:"delta"`
	Committed bool    `json:"committed"`
	Status    string  `json:"status"`
}

// PolishState is the controller's working memory. It is persisted to the
// results directory after every iteration so an interrupted session can be
// resumed with --resume.
type PolishState struct {
	SessionID   string    `json:"session_id"`
	ProjectPath string    `json:"project_path"`
	Branch      string    `json:"branch"`
	StartedAt   time.Time `json:"started_at"`

	Iteration       int     `json:"iteration"`
	InitialScore    float64 `json:"initial_score"`
	BestScore       float64 `json:"best_score"`
	StalledCount    int     `json:"stalled_count"`
	LastImprovement int     `json:"last_improvement"`

	FailedAttempts []strategy.FailedAttempt `json:"failed_attempts,omitempty"`
	Commits        []CommitInfo             `json:"commits,omitempty"`
	Trajectory     []float64                `json:"trajectory,omitempty"`
	History        []IterationRecord        `json:"history,omitempty"`
}

// StatePath returns where a session's state file lives.
func StatePath(resultsDir, sessionID string) string {
	return filepath.Join(resultsDir, sessionID+".state.json")
}

// Save writes the state atomically: a torn write must not corrupt the only
// resume point.
func (s *PolishState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}

// LoadState reads a previously saved state file.
func LoadState(path string) (*PolishState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var s PolishState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding state %q: %w", path, err)
	}
	return &s, nil
}

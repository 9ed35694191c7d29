package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initPolishProject creates a git repo whose quality "measurement" is the
// number stored in value.txt, plus a .burnish.yaml wired to read it.
func initPolishProject(t *testing.T, value, config string) string {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "value.txt"), []byte(value+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".burnish.yaml"), []byte(config), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

const valueMetricConfig = `polish:
  target: 95
  max_iterations: 3
  max_stalled: 2

metrics:
  - name: quality
    command: "cat value.txt"
`

func TestPolishTargetAlreadyReached(t *testing.T) {
	dir := initPolishProject(t, "100", valueMetricConfig)

	out, err := runCommand(t, "polish", dir, "--engine", "mock")
	require.NoError(t, err)

	assert.Contains(t, out, "target_reached")
	assert.Contains(t, out, "Iterations:    0")
}

func TestPolishBelowTargetExitsWithTargetError(t *testing.T) {
	dir := initPolishProject(t, "50", valueMetricConfig)

	// The mock engine changes nothing, so every iteration rolls back and the
	// session ends below target.
	out, err := runCommand(t, "polish", dir, "--engine", "mock")
	require.Error(t, err)

	var targetErr *TargetNotReachedError
	assert.True(t, errors.As(err, &targetErr), "expected TargetNotReachedError, got %T", err)
	assert.Contains(t, out, "POLISH RESULTS")
}

func TestPolishWritesSessionArtifacts(t *testing.T) {
	dir := initPolishProject(t, "100", valueMetricConfig)

	_, err := runCommand(t, "polish", dir, "--engine", "mock")
	require.NoError(t, err)

	resultsDir := filepath.Join(dir, "results")
	entries, err := os.ReadDir(resultsDir)
	require.NoError(t, err)

	var haveState, haveLog bool
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".json":
			haveState = true
		case ".jsonl":
			haveLog = true
		}
	}
	assert.True(t, haveState, "expected a state file in %s", resultsDir)
	assert.True(t, haveLog, "expected an event log in %s", resultsDir)
}

func TestPolishUnknownEngine(t *testing.T) {
	dir := initPolishProject(t, "100", valueMetricConfig)

	_, err := runCommand(t, "polish", dir, "--engine", "teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown engine type")
}

func TestPolishRejectsInvalidConfig(t *testing.T) {
	dir := initPolishProject(t, "100", "polish:\n  target: 200\n")

	_, err := runCommand(t, "polish", dir, "--engine", "mock")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid")
}

func TestPolishRequiresMetrics(t *testing.T) {
	dir := initPolishProject(t, "100", "polish:\n  target: 95\n")

	_, err := runCommand(t, "polish", dir, "--engine", "mock")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no metrics configured")
}

func TestScoreCommand(t *testing.T) {
	dir := initPolishProject(t, "80", valueMetricConfig)

	out, err := runCommand(t, "score", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "quality")
	assert.Contains(t, out, "80.0")
	assert.Contains(t, out, "Composite")
}

func TestScoreCommandJSON(t *testing.T) {
	dir := initPolishProject(t, "80", valueMetricConfig)

	out, err := runCommand(t, "score", dir, "--json")
	require.NoError(t, err)

	assert.Contains(t, out, `"score"`)
	assert.Contains(t, out, `"quality"`)
}

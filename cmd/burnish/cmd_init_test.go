package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burnish-dev/burnish/internal/projectconfig"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestInitCreatesProjectFiles(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "init", dir)
	require.NoError(t, err)

	assert.Contains(t, out, "Initialized polish project")
	assert.FileExists(t, filepath.Join(dir, ".burnish.yaml"))
	assert.FileExists(t, filepath.Join(dir, "POLISH.md"))
}

func TestInitConfigIsLoadable(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, "init", dir)
	require.NoError(t, err)

	cfg, err := projectconfig.Load(dir)
	require.NoError(t, err)

	require.Len(t, cfg.Metrics, 1)
	assert.Equal(t, "tests", cfg.Metrics[0].Name)
	assert.InDelta(t, projectconfig.DefaultTarget, cfg.Polish.Target, 0.001)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, "init", dir)
	require.NoError(t, err)

	_, err = runCommand(t, "init", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, ".burnish.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("stale: true\n"), 0o644))

	_, err := runCommand(t, "init", dir, "--force")
	require.NoError(t, err)

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
	assert.Contains(t, string(data), "metrics:")
}

func TestInitKeepsExistingRules(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "POLISH.md")
	require.NoError(t, os.WriteFile(rulesPath, []byte("# My Rules\n\n- custom rule\n"), 0o644))

	_, err := runCommand(t, "init", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(rulesPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "custom rule")
}

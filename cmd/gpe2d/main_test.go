package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/config"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/runstore"
)

// execute runs one gpe2d invocation and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeWithLogs(t, append(args, "--log-level", "error")...)
	return out, err
}

// executeWithLogs runs one gpe2d invocation and returns stdout and the log
// output written to stderr.
func executeWithLogs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	c := &cli{}
	root := newRootCmd(c)
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if c.log != nil {
		_ = c.log.Sync()
	}
	return out.String(), logs.String(), err
}

func smallRunArgs(dir string) []string {
	return []string{
		"run",
		"--nx", "16", "--ny", "16",
		"--steps", "5",
		"--workers", "2",
		"--out", filepath.Join(dir, "out"),
		"--csv",
		"--store-path", filepath.Join(dir, "runs.db"),
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, append(smallRunArgs(dir), "--json")...)
	require.NoError(t, err)

	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 5, report.Steps)
	assert.InDelta(t, 1.0, report.Norm, 1e-10)
	assert.InDelta(t, 5*2e-4, report.SimTime, 1e-12)
	require.Len(t, report.Files, 3)
	for _, f := range report.Files {
		assert.FileExists(t, f)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "out", report.RunID+"_summary.yaml"))
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &summary))
	assert.Equal(t, report.RunID, summary["run_id"])

	store, err := runstore.Open(context.Background(), filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, runstore.StatusCompleted, runs[0].Status)
	assert.Equal(t, 16, runs[0].Config.Nx)
}

func TestRunInstabilityIsRecorded(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, append(smallRunArgs(dir), "--v0", "1.7976931348623157e308")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpe.ErrNumericalInstability)

	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr), "no outputs for a failed run")

	out, err := execute(t, "history", "--json", "--store-path", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	var runs []runstore.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runstore.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "numerical instability")
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, append(smallRunArgs(dir), "--nx", "0")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpe.ErrInvalidConfiguration)
	assert.NoFileExists(t, filepath.Join(dir, "runs.db"))
}

func TestHistoryTable(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, smallRunArgs(dir)...)
	require.NoError(t, err)

	out, err := execute(t, "history", "--store-path", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "16x16")

	empty, err := execute(t, "history", "--store-path", filepath.Join(dir, "other.db"))
	require.NoError(t, err)
	assert.Contains(t, empty, "No runs recorded.")
}

func TestConfigCommandPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gpe2d.yaml")
	require.NoError(t, os.WriteFile(path, []byte("simulation:\n  nx: 32\n  g: 4.5\n"), 0o644))
	t.Setenv("GPE2D_SIMULATION_G", "7")

	out, err := execute(t, "config", "--config", path, "--ny", "48")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 32, cfg.Simulation.Nx)
	assert.Equal(t, 48, cfg.Simulation.Ny)
	assert.Equal(t, 7.0, cfg.Simulation.G)
	assert.Equal(t, config.Default().Simulation.Steps, cfg.Simulation.Steps)
}

func TestVersionSkipsConfig(t *testing.T) {
	out, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "gpe2d version "+version)
}

func TestRunRecordsExportFailure(t *testing.T) {
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("not a directory"), 0o644))

	args := append(smallRunArgs(dir), "--out", blocked)
	_, err := execute(t, args...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing results")

	out, err := execute(t, "history", "--json", "--store-path", filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	var runs []runstore.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runstore.StatusFailed, runs[0].Status)
	assert.Equal(t, 5, runs[0].Steps, "evolution results are kept")
	assert.Contains(t, runs[0].Error, "writing results")
}

func TestRunImageSizeFlag(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, append(smallRunArgs(dir), "--image-size", "40", "--json")...)
	require.NoError(t, err)
	var report runReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	f, err := os.Open(filepath.Join(dir, "out", report.RunID+"_density.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Width)
	assert.Equal(t, 40, img.Height)
}

func TestRunLogsToCommandStderr(t *testing.T) {
	dir := t.TempDir()

	_, logs, err := executeWithLogs(t, append(smallRunArgs(dir), "--log-format", "json")...)
	require.NoError(t, err)
	assert.Contains(t, logs, `"msg":"time evolution finished"`)
	assert.Contains(t, logs, `"run_id":`)
}

func TestConfigJSONUsesSnakeCase(t *testing.T) {
	out, err := execute(t, "config", "--json")
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got, "simulation")
	assert.Contains(t, got["runtime"], "snapshot_every")
	assert.Contains(t, got["output"], "image_size")
	assert.NotContains(t, got, "Simulation")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 0.1, cfg.Anomaly.Contamination)
	assert.Equal(t, 100, cfg.Anomaly.Trees)
	assert.Equal(t, 200, cfg.Anomaly.JointTrees)
	assert.Equal(t, int64(42), cfg.Anomaly.Seed)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 256, cfg.Cache.MaxSize)

	require.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 0.1, cfg.Anomaly.Contamination)
	assert.Equal(t, "data/reports", cfg.Paths.ReportsDir)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anomaly:
  contamination: 0.05
  trees: 50
paths:
  reports_dir: /tmp/reports
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Anomaly.Contamination)
	assert.Equal(t, 50, cfg.Anomaly.Trees)
	assert.Equal(t, "/tmp/reports", cfg.Paths.ReportsDir)
	// Untouched values still get defaults.
	assert.Equal(t, 200, cfg.Anomaly.JointTrees)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anomaly:\n  contamination: 0.05\n"), 0644))

	t.Setenv("EPIPULSE_ANOMALY_CONTAMINATION", "0.2")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Anomaly.Contamination)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Anomaly.Contamination)
}

func TestValidate_ContaminationBounds(t *testing.T) {
	tests := []struct {
		name          string
		contamination float64
		expectError   bool
	}{
		{name: "valid default", contamination: 0.1, expectError: false},
		{name: "just inside lower bound", contamination: 0.001, expectError: false},
		{name: "just inside upper bound", contamination: 0.999, expectError: false},
		{name: "zero rejected", contamination: 0, expectError: true},
		{name: "one rejected", contamination: 1, expectError: true},
		{name: "negative rejected", contamination: -0.1, expectError: true},
		{name: "above one rejected", contamination: 1.5, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Anomaly.Contamination = tt.contamination

			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPaths(t *testing.T) {
	paths, err := NewPaths(PathsConfig{
		DataDir:    "data",
		ReportsDir: "data/reports",
		LogsDir:    "logs",
	})
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(paths.DataDir))
	assert.True(t, filepath.IsAbs(paths.ReportsDir))
	assert.Equal(t, filepath.Join(paths.ReportsDir, "out.csv"), paths.GetReportPath("out.csv"))
	assert.Equal(t, filepath.Join(paths.LogsDir, "run.log"), paths.GetLogPath("run.log"))
}

func TestPaths_EnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	paths, err := NewPaths(PathsConfig{
		DataDir:    filepath.Join(dir, "data"),
		ReportsDir: filepath.Join(dir, "data", "reports"),
		LogsDir:    filepath.Join(dir, "logs"),
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	for _, p := range []string{paths.DataDir, paths.ReportsDir, paths.LogsDir} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

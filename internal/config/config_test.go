package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpe2d.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	s := cfg.Simulation
	assert.Equal(t, 256, s.Nx)
	assert.Equal(t, 256, s.Ny)
	assert.Equal(t, 10.0, s.Lx)
	assert.Equal(t, 10.0, s.Ly)
	assert.Equal(t, 0.0002, s.Dt)
	assert.Equal(t, 1.0, s.G)
	assert.Equal(t, 10.0, s.V0)
	assert.Equal(t, 2.0, s.A)
	assert.Equal(t, 1.0, s.Sigma)
	assert.Equal(t, 2000, s.Steps)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "inferno", cfg.Output.Colormap)
	assert.Equal(t, 512, cfg.Output.ImageSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
simulation:
  nx: 64
  ny: 32
  steps: 100
  g: 0
  vortices:
    - x: 0.5
      y: -0.5
      charge: 2
logging:
  level: debug
output:
  colormap: viridis
  csv: true
  image_size: 128
store:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Simulation.Nx)
	assert.Equal(t, 32, cfg.Simulation.Ny)
	assert.Equal(t, 100, cfg.Simulation.Steps)
	assert.Equal(t, 0.0, cfg.Simulation.G)
	assert.Equal(t, 10.0, cfg.Simulation.Lx, "unset keys keep defaults")
	assert.Equal(t, []gpe.Vortex{{X: 0.5, Y: -0.5, Charge: 2}}, cfg.Simulation.Vortices)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "viridis", cfg.Output.Colormap)
	assert.True(t, cfg.Output.CSV)
	assert.Equal(t, 128, cfg.Output.ImageSize)
	assert.False(t, cfg.Store.Enabled)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "simulation:\n  nx: 64\n")
	t.Setenv("GPE2D_SIMULATION_NX", "48")
	t.Setenv("GPE2D_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Simulation.Nx)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("GPE2D_SIMULATION_STEPS", "10")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("steps", 0, "")
	flags.Float64("g", 0, "")
	require.NoError(t, flags.Parse([]string{"--steps=25"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(flags, map[string]string{
		"steps": "simulation.steps",
		"g":     "simulation.g",
	}))
	cfg, err := l.Load("")
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Simulation.Steps)
	assert.Equal(t, 1.0, cfg.Simulation.G, "unset flag must not override the default")
}

func TestBindUnknownFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := NewLoader().BindFlags(flags, map[string]string{"missing": "simulation.nx"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
		physics bool
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "Logging.Level", false},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "Logging.Format", false},
		{"bad colormap", func(c *Config) { c.Output.Colormap = "jet" }, "Output.Colormap", false},
		{"negative image size", func(c *Config) { c.Output.ImageSize = -1 }, "Output.ImageSize", false},
		{"huge image size", func(c *Config) { c.Output.ImageSize = 1 << 20 }, "Output.ImageSize", false},
		{"negative workers", func(c *Config) { c.Runtime.Workers = -2 }, "Runtime.Workers", false},
		{"store path required", func(c *Config) { c.Store.Path = "" }, "Store.Path", false},
		{"zero grid", func(c *Config) { c.Simulation.Nx = 0 }, "grid dimensions", true},
		{"zero period", func(c *Config) { c.Simulation.A = 0 }, "potential period", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			if tt.physics {
				assert.ErrorIs(t, err, gpe.ErrInvalidConfiguration)
			}
		})
	}
}

func TestStorePathOptionalWhenDisabled(t *testing.T) {
	cfg := Default()
	cfg.Store.Enabled = false
	cfg.Store.Path = ""
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := writeConfig(t, "simulation:\n  sigma: -1\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, gpe.ErrInvalidConfiguration)
}

func TestJSONKeysMatchYAML(t *testing.T) {
	raw, err := json.Marshal(Default())
	require.NoError(t, err)

	var got map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.ElementsMatch(t, []string{"simulation", "runtime", "logging", "output", "store"}, keys(got))
	assert.Contains(t, got["runtime"], "snapshot_every")
	assert.Contains(t, got["output"], "image_size")
	assert.Contains(t, got["store"], "enabled")
	assert.Contains(t, got["simulation"], "nx")
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

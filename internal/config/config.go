// Package config loads gpe2d settings from defaults, an optional YAML file,
// GPE2D_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/gpe"
)

// EnvPrefix is prepended to every environment override, e.g. GPE2D_SIMULATION_NX.
const EnvPrefix = "GPE2D"

// Config is the full application configuration.
type Config struct {
	Simulation gpe.Config    `mapstructure:"simulation" yaml:"simulation" json:"simulation"`
	Runtime    RuntimeConfig `mapstructure:"runtime" yaml:"runtime" json:"runtime"`
	Logging    LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
	Output     OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Store      StoreConfig   `mapstructure:"store" yaml:"store" json:"store"`
}

// RuntimeConfig controls execution resources, never the physics.
type RuntimeConfig struct {
	// Workers bounds FFT row/column parallelism; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers" validate:"gte=0"`

	// SnapshotEvery is the number of steps between viewer refreshes.
	SnapshotEvery int `mapstructure:"snapshot_every" yaml:"snapshot_every" json:"snapshot_every" validate:"gte=0"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"required,oneof=json console"`
}

// OutputConfig selects which artifacts a run writes.
type OutputConfig struct {
	Dir      string `mapstructure:"dir" yaml:"dir" json:"dir" validate:"required"`
	PNG      bool   `mapstructure:"png" yaml:"png" json:"png"`
	CSV      bool   `mapstructure:"csv" yaml:"csv" json:"csv"`
	Summary  bool   `mapstructure:"summary" yaml:"summary" json:"summary"`
	Colormap string `mapstructure:"colormap" yaml:"colormap" json:"colormap" validate:"required,oneof=inferno viridis"`

	// ImageSize is the PNG edge length in pixels; 0 draws one pixel per
	// grid point.
	ImageSize int `mapstructure:"image_size" yaml:"image_size" json:"image_size" validate:"gte=0,lte=8192"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Path    string `mapstructure:"path" yaml:"path" json:"path" validate:"required_if=Enabled true"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Simulation: gpe.DefaultConfig(),
		Runtime: RuntimeConfig{
			Workers:       0,
			SnapshotEvery: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Output: OutputConfig{
			Dir:       "out",
			PNG:       true,
			CSV:       false,
			Summary:   true,
			Colormap:  "inferno",
			ImageSize: 512,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "gpe2d.db",
		},
	}
}

var validate = validator.New()

// Validate checks host settings with struct tags and the simulation block
// with gpe.Config.Validate, so physics errors keep wrapping
// gpe.ErrInvalidConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s: failed %q constraint (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("validating config: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

// Loader reads configuration through a private viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with defaults and environment binding set up.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// BindFlags maps command-line flags onto configuration keys. Only flags the
// user actually set override lower layers.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			return fmt.Errorf("binding flag %q: no such flag", flag)
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding flag %q: %w", flag, err)
		}
	}
	return nil
}

// Load reads the optional YAML file at path, applies environment and flag
// overrides, and validates the result.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
		l.v.SetConfigType("yaml")
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Default()
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is shorthand for NewLoader().Load(path).
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// setDefaults registers every leaf key so AutomaticEnv can see it.
func setDefaults(v *viper.Viper, d *Config) {
	s := d.Simulation
	v.SetDefault("simulation.nx", s.Nx)
	v.SetDefault("simulation.ny", s.Ny)
	v.SetDefault("simulation.lx", s.Lx)
	v.SetDefault("simulation.ly", s.Ly)
	v.SetDefault("simulation.dt", s.Dt)
	v.SetDefault("simulation.g", s.G)
	v.SetDefault("simulation.v0", s.V0)
	v.SetDefault("simulation.a", s.A)
	v.SetDefault("simulation.sigma", s.Sigma)
	v.SetDefault("simulation.steps", s.Steps)

	v.SetDefault("runtime.workers", d.Runtime.Workers)
	v.SetDefault("runtime.snapshot_every", d.Runtime.SnapshotEvery)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.png", d.Output.PNG)
	v.SetDefault("output.csv", d.Output.CSV)
	v.SetDefault("output.summary", d.Output.Summary)
	v.SetDefault("output.colormap", d.Output.Colormap)
	v.SetDefault("output.image_size", d.Output.ImageSize)

	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)
}

// Package gpe integrates the 2D time-dependent Gross-Pitaevskii equation
//
//	i dpsi/dt = [ -laplacian/2 + V(x,y) + g|psi|^2 ] psi
//
// on a periodic box with the split-step Fourier method. The pieces are used
// in dependency order: Grid, then Potential and State, then Propagator.
package gpe

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Vortex is a phase winding imprinted on the initial state.
type Vortex struct {
	X      float64 `mapstructure:"x" yaml:"x" json:"x"`
	Y      float64 `mapstructure:"y" yaml:"y" json:"y"`
	Charge int     `mapstructure:"charge" yaml:"charge" json:"charge"`
}

// Config holds the scalar inputs of one run. It is built once and read-only
// afterwards.
type Config struct {
	Nx    int     `mapstructure:"nx" yaml:"nx" json:"nx"`
	Ny    int     `mapstructure:"ny" yaml:"ny" json:"ny"`
	Lx    float64 `mapstructure:"lx" yaml:"lx" json:"lx"`
	Ly    float64 `mapstructure:"ly" yaml:"ly" json:"ly"`
	Dt    float64 `mapstructure:"dt" yaml:"dt" json:"dt"`
	G     float64 `mapstructure:"g" yaml:"g" json:"g"`
	V0    float64 `mapstructure:"v0" yaml:"v0" json:"v0"`
	A     float64 `mapstructure:"a" yaml:"a" json:"a"`
	Sigma float64 `mapstructure:"sigma" yaml:"sigma" json:"sigma"`
	Steps int     `mapstructure:"steps" yaml:"steps" json:"steps"`

	Vortices []Vortex `mapstructure:"vortices" yaml:"vortices,omitempty" json:"vortices,omitempty"`
}

// DefaultConfig returns the reference parameter set.
func DefaultConfig() Config {
	return Config{
		Nx:    256,
		Ny:    256,
		Lx:    10.0,
		Ly:    10.0,
		Dt:    0.0002,
		G:     1.0,
		V0:    10.0,
		A:     2.0,
		Sigma: 1.0,
		Steps: 2000,
	}
}

// Validate reports the first unusable field as ErrInvalidConfiguration.
func (c Config) Validate() error {
	switch {
	case c.Nx <= 0 || c.Ny <= 0:
		return invalidf("grid dimensions must be positive, got Nx=%d Ny=%d", c.Nx, c.Ny)
	case !(c.Lx > 0) || !(c.Ly > 0) || math.IsInf(c.Lx, 0) || math.IsInf(c.Ly, 0):
		return invalidf("box lengths must be positive and finite, got Lx=%g Ly=%g", c.Lx, c.Ly)
	case c.A == 0 || math.IsNaN(c.A) || math.IsInf(c.A, 0):
		return invalidf("potential period must be non-zero and finite, got a=%g", c.A)
	case !(c.Sigma > 0) || math.IsInf(c.Sigma, 0):
		return invalidf("initial width must be positive and finite, got sigma=%g", c.Sigma)
	case !(c.Dt > 0) || math.IsInf(c.Dt, 0):
		return invalidf("time step must be positive and finite, got dt=%g", c.Dt)
	case c.Steps < 0:
		return invalidf("step count must be non-negative, got %d", c.Steps)
	case math.IsNaN(c.G) || math.IsInf(c.G, 0) || math.IsNaN(c.V0) || math.IsInf(c.V0, 0):
		return invalidf("g and V0 must be finite, got g=%g V0=%g", c.G, c.V0)
	}
	for i, v := range c.Vortices {
		if math.Abs(v.X) > c.Lx/2 || math.Abs(v.Y) > c.Ly/2 {
			return invalidf("vortex %d at (%g, %g) lies outside the box", i, v.X, v.Y)
		}
	}
	return nil
}

// Result is the terminal output of a run, handed off by value.
type Result struct {
	Density [][]float64
	Phase   [][]float64
	Extent  [4]float64
	Dx, Dy  float64

	Steps  int
	Time   float64
	Norm   float64
	Peak   float64
	Energy float64
}

// RunOption adjusts how Run executes without changing the physics.
type RunOption func(*Options)

// WithWorkers bounds FFT parallelism.
func WithWorkers(n int) RunOption {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets the logger used by setup and the time loop.
func WithLogger(l *zap.Logger) RunOption {
	return func(o *Options) { o.Logger = l }
}

// WithObserver delivers a Snapshot before the first step and after every
// n-th step.
func WithObserver(n int, fn func(Snapshot)) RunOption {
	return func(o *Options) {
		o.SnapshotEvery = n
		o.Observer = fn
	}
}

// Run builds the grid, potential and initial state described by cfg and
// evolves the state for cfg.Steps steps. Configuration problems are reported
// before any stepping; on any error no result is returned.
func Run(ctx context.Context, cfg Config, opts ...RunOption) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := Options{Dt: cfg.Dt, G: cfg.G, Steps: cfg.Steps}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
		o.Logger = log
	}

	grid, err := NewGrid(cfg.Nx, cfg.Ny, cfg.Lx, cfg.Ly)
	if err != nil {
		return nil, err
	}
	log.Debug("grid ready",
		zap.Int("nx", grid.Nx), zap.Int("ny", grid.Ny),
		zap.Float64("dx", grid.Dx), zap.Float64("dy", grid.Dy))

	pot, err := NewLatticePotential(grid, cfg.V0, cfg.A)
	if err != nil {
		return nil, err
	}
	lo, hi := pot.Range()
	log.Debug("potential ready", zap.Float64("v_min", lo), zap.Float64("v_max", hi))

	state, err := NewGaussianState(grid, cfg.Sigma)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if len(cfg.Vortices) > 0 {
		for _, v := range cfg.Vortices {
			state.ImprintVortex(v.X, v.Y, v.Charge)
			log.Debug("vortex imprinted", zap.Float64("x", v.X), zap.Float64("y", v.Y), zap.Int("charge", v.Charge))
		}
		if err := state.Normalize(); err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
	}

	prop, err := NewPropagator(grid, pot, o)
	if err != nil {
		return nil, err
	}
	return prop.Run(ctx, state)
}

package gpe

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/devloper-gazi/2D-GPE-SplitStep-Simulator/internal/spectral"
)

// Snapshot is a copy of the field taken between steps for observers such as
// the live viewer. It never aliases the propagator's buffers.
type Snapshot struct {
	Step    int
	Time    float64
	Norm    float64
	Density [][]float64
	Phase   [][]float64
	Extent  [4]float64
}

// Options configures a Propagator.
type Options struct {
	Dt    float64
	G     float64
	Steps int

	// Workers bounds FFT row/column parallelism; 0 uses GOMAXPROCS.
	Workers int

	// SnapshotEvery > 0 calls Observer after every SnapshotEvery-th step and
	// once before the first step.
	SnapshotEvery int
	Observer      func(Snapshot)

	Logger *zap.Logger
}

// Propagator advances a State with the symmetric split-step Fourier scheme
//
//	psi <- exp(-i(V+g|psi|^2)dt/2) F^-1 exp(-i K2 dt/2) F exp(-i(V+g|psi|^2)dt/2) psi
//
// followed by renormalization. The two potential half-steps read |psi|^2
// before and after the kinetic step respectively.
type Propagator struct {
	grid *Grid
	pot  *Potential
	opts Options
	log  *zap.Logger

	plan *spectral.Plan2D

	// expK[i][j] = exp(-i K2[i][j] dt/2), built once.
	expK [][]complex128

	// scratch holds a copy of psi for Energy.
	scratch [][]complex128

	step int
	time float64
}

// NewPropagator validates the time-stepping options and precomputes the
// kinetic phase table.
func NewPropagator(g *Grid, pot *Potential, opts Options) (*Propagator, error) {
	if !(opts.Dt > 0) || math.IsInf(opts.Dt, 0) {
		return nil, invalidf("time step must be positive and finite, got dt=%g", opts.Dt)
	}
	if opts.Steps < 0 {
		return nil, invalidf("step count must be non-negative, got %d", opts.Steps)
	}
	if math.IsNaN(opts.G) || math.IsInf(opts.G, 0) {
		return nil, invalidf("interaction strength must be finite, got g=%g", opts.G)
	}
	if opts.SnapshotEvery < 0 {
		return nil, invalidf("snapshot interval must be non-negative, got %d", opts.SnapshotEvery)
	}
	if len(pot.V) != g.Nx || (g.Nx > 0 && len(pot.V[0]) != g.Ny) {
		return nil, invalidf("potential shape does not match %dx%d grid", g.Nx, g.Ny)
	}

	plan, err := spectral.NewPlan2D(g.Nx, g.Ny, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("creating FFT plan: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	p := &Propagator{
		grid:    g,
		pot:     pot,
		opts:    opts,
		log:     log,
		plan:    plan,
		expK:    newComplexMesh(g.Nx, g.Ny),
		scratch: newComplexMesh(g.Nx, g.Ny),
	}
	half := -0.5 * opts.Dt
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			sin, cos := math.Sincos(half * g.K2[i][j])
			p.expK[i][j] = complex(cos, sin)
		}
	}
	return p, nil
}

// Time returns the simulated time reached so far.
func (p *Propagator) Time() float64 {
	return p.time
}

// StepCount returns how many steps have completed.
func (p *Propagator) StepCount() int {
	return p.step
}

// Step advances s by one time step dt.
func (p *Propagator) Step(s *State) error {
	if err := p.advance(s); err != nil {
		return &StepError{Step: p.step + 1, Time: p.time + p.opts.Dt, Wrapped: err}
	}
	p.step++
	p.time += p.opts.Dt
	return nil
}

func (p *Propagator) advance(s *State) error {
	if s.grid != p.grid {
		return invalidf("state and propagator use different grids")
	}

	p.halfStepPotential(s.Psi)

	if err := p.plan.Forward(s.Psi); err != nil {
		return err
	}
	for i, row := range s.Psi {
		ek := p.expK[i]
		for j := range row {
			row[j] *= ek[j]
		}
	}
	if err := p.plan.Inverse(s.Psi); err != nil {
		return err
	}

	p.halfStepPotential(s.Psi)

	return s.Normalize()
}

// halfStepPotential applies exp(-i (V + g|psi|^2) dt/2) pointwise, reading
// |psi|^2 from the current field.
func (p *Propagator) halfStepPotential(psi [][]complex128) {
	half := -0.5 * p.opts.Dt
	g := p.opts.G
	for i, row := range psi {
		v := p.pot.V[i]
		for j, z := range row {
			dens := real(z)*real(z) + imag(z)*imag(z)
			sin, cos := math.Sincos(half * (v[j] + g*dens))
			row[j] = z * complex(cos, sin)
		}
	}
}

// Run performs the configured number of steps. It stops early only on
// numerical breakdown or when ctx is cancelled between steps; in both cases
// no result is returned.
func (p *Propagator) Run(ctx context.Context, s *State) (*Result, error) {
	p.log.Info("starting time evolution",
		zap.Int("steps", p.opts.Steps),
		zap.Float64("dt", p.opts.Dt),
		zap.Float64("g", p.opts.G),
		zap.Int("fft_workers", p.plan.Workers()))

	p.observe(s)
	for n := 0; n < p.opts.Steps; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evolution stopped at step %d: %w", p.step, err)
		}
		if err := p.Step(s); err != nil {
			p.log.Error("evolution aborted", zap.Error(err))
			return nil, err
		}
		if p.opts.SnapshotEvery > 0 && p.step%p.opts.SnapshotEvery == 0 {
			p.observe(s)
		}
	}

	res := p.result(s)
	p.log.Info("time evolution finished",
		zap.Int("steps", res.Steps),
		zap.Float64("time", res.Time),
		zap.Float64("norm", res.Norm),
		zap.Float64("peak_density", res.Peak),
		zap.Float64("energy", res.Energy))
	return res, nil
}

func (p *Propagator) observe(s *State) {
	if p.opts.SnapshotEvery <= 0 || p.opts.Observer == nil {
		return
	}
	snap := Snapshot{
		Step:    p.step,
		Time:    p.time,
		Norm:    s.Norm(),
		Density: s.Density(),
		Phase:   s.Phase(),
		Extent:  p.grid.Extent(),
	}
	p.log.Debug("snapshot", zap.Int("step", snap.Step), zap.Float64("time", snap.Time), zap.Float64("norm", snap.Norm))
	p.opts.Observer(snap)
}

func (p *Propagator) result(s *State) *Result {
	density := s.Density()
	return &Result{
		Density: density,
		Phase:   s.Phase(),
		Extent:  p.grid.Extent(),
		Dx:      p.grid.Dx,
		Dy:      p.grid.Dy,
		Steps:   p.step,
		Time:    p.time,
		Norm:    math.Sqrt(Integral(p.grid, density)),
		Peak:    Peak(density),
		Energy:  p.Energy(s),
	}
}

// Energy returns the Gross-Pitaevskii energy functional
//
//	E = sum( |grad psi|^2/2 + V|psi|^2 + g|psi|^4/2 ) dx dy
//
// with the kinetic term evaluated spectrally. s is not modified.
func (p *Propagator) Energy(s *State) float64 {
	g := p.grid
	for i := range s.Psi {
		copy(p.scratch[i], s.Psi[i])
	}
	if err := p.plan.Forward(p.scratch); err != nil {
		return math.NaN()
	}

	// Parseval: sum |f|^2 = sum |F|^2 / (Nx*Ny).
	var kinetic float64
	for i, row := range p.scratch {
		for j, z := range row {
			kinetic += 0.5 * g.K2[i][j] * (real(z)*real(z) + imag(z)*imag(z))
		}
	}
	kinetic /= float64(g.Nx * g.Ny)

	var interaction float64
	for i, row := range s.Psi {
		for j, z := range row {
			dens := real(z)*real(z) + imag(z)*imag(z)
			interaction += p.pot.V[i][j]*dens + 0.5*p.opts.G*dens*dens
		}
	}
	return (kinetic + interaction) * g.CellArea()
}

package gpe

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"
)

// State owns the evolving wavefunction psi[Nx][Ny]. The propagator mutates
// it in place; everything else reads it through Density, Phase and Norm.
type State struct {
	grid *Grid
	Psi  [][]complex128
}

// NewGaussianState sets psi = exp(-(X^2+Y^2)/(2 sigma^2)) and normalizes it.
func NewGaussianState(g *Grid, sigma float64) (*State, error) {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, invalidf("initial width must be positive and finite, got sigma=%g", sigma)
	}

	s := &State{grid: g, Psi: newComplexMesh(g.Nx, g.Ny)}
	twoSigmaSq := 2 * sigma * sigma
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			r2 := g.XX[i][j]*g.XX[i][j] + g.YY[i][j]*g.YY[i][j]
			s.Psi[i][j] = complex(math.Exp(-r2/twoSigmaSq), 0)
		}
	}
	if err := s.Normalize(); err != nil {
		return nil, err
	}
	return s, nil
}

// Norm returns sqrt(sum |psi|^2 dx dy).
func (s *State) Norm() float64 {
	var sum float64
	for _, row := range s.Psi {
		for _, v := range row {
			sum += real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return math.Sqrt(sum * s.grid.CellArea())
}

// Normalize rescales psi to unit norm in place. A zero or non-finite norm
// means the field has broken down and is reported as ErrNumericalInstability.
func (s *State) Normalize() error {
	norm := s.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return instability(norm)
	}
	inv := complex(1/norm, 0)
	for _, row := range s.Psi {
		for j := range row {
			row[j] *= inv
		}
	}
	return nil
}

func instability(norm float64) error {
	if norm == 0 {
		return fmt.Errorf("%w: wavefunction norm is zero", ErrNumericalInstability)
	}
	return fmt.Errorf("%w: wavefunction norm is %g", ErrNumericalInstability, norm)
}

// Density returns a fresh |psi|^2 array.
func (s *State) Density() [][]float64 {
	d := newRealMesh(s.grid.Nx, s.grid.Ny)
	for i, row := range s.Psi {
		for j, v := range row {
			d[i][j] = real(v)*real(v) + imag(v)*imag(v)
		}
	}
	return d
}

// Phase returns a fresh arg(psi) array with values in (-pi, pi].
func (s *State) Phase() [][]float64 {
	p := newRealMesh(s.grid.Nx, s.grid.Ny)
	for i, row := range s.Psi {
		for j, v := range row {
			p[i][j] = cmplx.Phase(v)
		}
	}
	return p
}

// ImprintVortex multiplies psi by exp(i*charge*atan2(y-y0, x-x0)).
func (s *State) ImprintVortex(x0, y0 float64, charge int) {
	if charge == 0 {
		return
	}
	q := float64(charge)
	g := s.grid
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			theta := q * math.Atan2(g.YY[i][j]-y0, g.XX[i][j]-x0)
			sin, cos := math.Sincos(theta)
			s.Psi[i][j] *= complex(cos, sin)
		}
	}
}

// Integral returns sum f dx dy for a real field sampled on the grid.
func Integral(g *Grid, f [][]float64) float64 {
	var sum float64
	for _, row := range f {
		sum += floats.Sum(row)
	}
	return sum * g.CellArea()
}

// Peak returns the largest value of a real field.
func Peak(f [][]float64) float64 {
	peak := math.Inf(-1)
	for _, row := range f {
		if len(row) == 0 {
			continue
		}
		peak = math.Max(peak, floats.Max(row))
	}
	return peak
}

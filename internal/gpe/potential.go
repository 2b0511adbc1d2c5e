package gpe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Potential is the static external potential sampled on a Grid.
type Potential struct {
	V0 float64
	A  float64
	V  [][]float64
}

// NewLatticePotential evaluates V = V0 * (cos^2(pi X / a) + cos^2(pi Y / a)).
func NewLatticePotential(g *Grid, v0, a float64) (*Potential, error) {
	if a == 0 || math.IsNaN(a) || math.IsInf(a, 0) {
		return nil, invalidf("potential period must be non-zero and finite, got a=%g", a)
	}
	if math.IsNaN(v0) || math.IsInf(v0, 0) {
		return nil, invalidf("potential depth must be finite, got V0=%g", v0)
	}

	// The x and y factors separate, so evaluate each axis once.
	cx := make([]float64, g.Nx)
	for i, x := range g.X {
		c := math.Cos(math.Pi * x / a)
		cx[i] = c * c
	}
	cy := make([]float64, g.Ny)
	for j, y := range g.Y {
		c := math.Cos(math.Pi * y / a)
		cy[j] = c * c
	}

	v := newRealMesh(g.Nx, g.Ny)
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			v[i][j] = v0 * (cx[i] + cy[j])
		}
	}
	return &Potential{V0: v0, A: a, V: v}, nil
}

// Range returns the smallest and largest sampled value of V.
func (p *Potential) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range p.V {
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	return lo, hi
}

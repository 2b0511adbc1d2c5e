package gpe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatticePotentialValues(t *testing.T) {
	g, err := NewGrid(40, 40, 10, 10)
	require.NoError(t, err)

	p, err := NewLatticePotential(g, 10, 2)
	require.NoError(t, err)

	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			cx := math.Cos(math.Pi * g.XX[i][j] / 2)
			cy := math.Cos(math.Pi * g.YY[i][j] / 2)
			assert.InDelta(t, 10*(cx*cx+cy*cy), p.V[i][j], 1e-12)
			assert.GreaterOrEqual(t, p.V[i][j], 0.0)
		}
	}

	// Origin sits on index 20 and is a maximum: cos^2(0) + cos^2(0).
	assert.InDelta(t, 20, p.V[20][20], 1e-12)

	lo, hi := p.Range()
	assert.InDelta(t, 0, lo, 1e-12)
	assert.InDelta(t, 20, hi, 1e-12)
}

func TestLatticePotentialPeriodic(t *testing.T) {
	// dx = 0.25, so one period a = 2 spans 8 grid points.
	g, err := NewGrid(40, 40, 10, 10)
	require.NoError(t, err)
	p, err := NewLatticePotential(g, 3.5, 2)
	require.NoError(t, err)

	const shift = 8
	for i := 0; i < g.Nx; i++ {
		for j := 0; j < g.Ny; j++ {
			assert.InDelta(t, p.V[i][j], p.V[(i+shift)%g.Nx][j], 1e-12)
			assert.InDelta(t, p.V[i][j], p.V[i][(j+shift)%g.Ny], 1e-12)
		}
	}
}

func TestLatticePotentialInvalid(t *testing.T) {
	g, err := NewGrid(8, 8, 10, 10)
	require.NoError(t, err)

	for _, a := range []float64{0, math.NaN(), math.Inf(-1)} {
		p, err := NewLatticePotential(g, 10, a)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, "a=%g", a)
	}

	_, err = NewLatticePotential(g, math.NaN(), 2)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

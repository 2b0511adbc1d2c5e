package gpe

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Grid holds the spatial and spectral coordinates of a periodic Nx x Ny box.
// It is built once and shared read-only by every other component.
type Grid struct {
	Nx, Ny int
	Lx, Ly float64
	Dx, Dy float64

	// 1D axes spanning [-L/2, L/2) with the endpoint excluded.
	X, Y []float64

	// Coordinate meshes, indexed [i][j] for the point (X[i], Y[j]).
	XX, YY [][]float64

	// Angular frequencies in FFT bin order.
	Kx, Ky []float64

	// K2[i][j] = Kx[i]^2 + Ky[j]^2.
	K2 [][]float64
}

// NewGrid creates the coordinate and wavenumber arrays for the given box.
func NewGrid(nx, ny int, lx, ly float64) (*Grid, error) {
	if nx <= 0 || ny <= 0 {
		return nil, invalidf("grid dimensions must be positive, got Nx=%d Ny=%d", nx, ny)
	}
	if !(lx > 0) || !(ly > 0) || math.IsInf(lx, 0) || math.IsInf(ly, 0) {
		return nil, invalidf("box lengths must be positive and finite, got Lx=%g Ly=%g", lx, ly)
	}

	g := &Grid{
		Nx: nx, Ny: ny,
		Lx: lx, Ly: ly,
		Dx: lx / float64(nx),
		Dy: ly / float64(ny),
	}
	g.X = axis(nx, lx)
	g.Y = axis(ny, ly)
	g.Kx = AngularFrequencies(nx, g.Dx)
	g.Ky = AngularFrequencies(ny, g.Dy)

	// Kx and Ky are in FFT bin order, not sorted, so K2 lines up with the
	// transformed field element by element and no shift is needed.
	g.XX = newRealMesh(nx, ny)
	g.YY = newRealMesh(nx, ny)
	g.K2 = newRealMesh(nx, ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			g.XX[i][j] = g.X[i]
			g.YY[i][j] = g.Y[j]
			g.K2[i][j] = g.Kx[i]*g.Kx[i] + g.Ky[j]*g.Ky[j]
		}
	}
	return g, nil
}

// axis returns n points starting at -l/2 with spacing l/n. The last point is
// l/2 - l/n so the periodic image of -l/2 is not duplicated.
func axis(n int, l float64) []float64 {
	pts := make([]float64, n)
	if n == 1 {
		pts[0] = -l / 2
		return pts
	}
	floats.Span(pts, -l/2, l/2-l/float64(n))
	return pts
}

// AngularFrequencies returns 2*pi*fftfreq(n, d): bin k holds k/(n*d) for
// k < (n+1)/2 and (k-n)/(n*d) otherwise, scaled by 2*pi.
func AngularFrequencies(n int, d float64) []float64 {
	k := make([]float64, n)
	scale := 2 * math.Pi / (float64(n) * d)
	for i := 0; i < n; i++ {
		f := i
		if i >= (n+1)/2 {
			f = i - n
		}
		k[i] = float64(f) * scale
	}
	return k
}

// CellArea is dx*dy, the weight of one grid point in discrete integrals.
func (g *Grid) CellArea() float64 {
	return g.Dx * g.Dy
}

// Extent returns [xmin, xmax, ymin, ymax] of the periodic box.
func (g *Grid) Extent() [4]float64 {
	return [4]float64{-g.Lx / 2, g.Lx / 2, -g.Ly / 2, g.Ly / 2}
}

// Index returns the grid indices nearest to (x, y), wrapping periodically.
func (g *Grid) Index(x, y float64) (int, int) {
	wrap := func(v, l float64, n int, d float64) int {
		k := int(math.Round((v + l/2) / d))
		k %= n
		if k < 0 {
			k += n
		}
		return k
	}
	return wrap(x, g.Lx, g.Nx, g.Dx), wrap(y, g.Ly, g.Ny, g.Dy)
}

// newRealMesh allocates an nx x ny mesh over one contiguous backing slice.
func newRealMesh(nx, ny int) [][]float64 {
	backing := make([]float64, nx*ny)
	m := make([][]float64, nx)
	for i := range m {
		m[i] = backing[i*ny : (i+1)*ny : (i+1)*ny]
	}
	return m
}

// newComplexMesh allocates an nx x ny complex mesh over one contiguous backing slice.
func newComplexMesh(nx, ny int) [][]complex128 {
	backing := make([]complex128, nx*ny)
	m := make([][]complex128, nx)
	for i := range m {
		m[i] = backing[i*ny : (i+1)*ny : (i+1)*ny]
	}
	return m
}

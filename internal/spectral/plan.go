// Package spectral provides an in-place 2D discrete Fourier transform built
// from 1D transforms along each axis.
//
// Forward is unscaled and Inverse carries the 1/(Nx*Ny) factor, so
// Inverse(Forward(f)) reproduces f. Bin k of an axis of length n holds
// frequency k for k < (n+1)/2 and k-n otherwise.
package spectral

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/mjibson/go-dsp/fft"
	"golang.org/x/sync/errgroup"
)

// ErrShape is returned for non-positive plan sizes or data that does not
// match the plan.
var ErrShape = errors.New("spectral: shape mismatch")

// Plan2D transforms Nx x Ny complex arrays in place. Rows (index i) run
// along y, columns (index j) along x. A Plan2D must not be used by more
// than one goroutine at a time.
type Plan2D struct {
	nx, ny  int
	workers int

	// One column gather buffer per worker.
	cols [][]complex128
}

// NewPlan2D creates a plan for nx x ny arrays. workers bounds how many row or
// column transforms run at once; workers <= 0 uses GOMAXPROCS and 1 runs
// everything on the calling goroutine.
func NewPlan2D(nx, ny, workers int) (*Plan2D, error) {
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("%w: plan size must be positive, got %dx%d", ErrShape, nx, ny)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, max(nx, ny))

	p := &Plan2D{nx: nx, ny: ny, workers: workers}
	p.cols = make([][]complex128, workers)
	for w := range p.cols {
		p.cols[w] = make([]complex128, nx)
	}
	return p, nil
}

// Workers returns the effective parallelism.
func (p *Plan2D) Workers() int {
	return p.workers
}

// Forward replaces data with its unscaled 2D DFT.
func (p *Plan2D) Forward(data [][]complex128) error {
	return p.transform(data, fft.FFT)
}

// Inverse replaces data with its 2D inverse DFT, scaled by 1/(Nx*Ny).
func (p *Plan2D) Inverse(data [][]complex128) error {
	return p.transform(data, fft.IFFT)
}

func (p *Plan2D) transform(data [][]complex128, kernel func([]complex128) []complex128) error {
	if err := p.check(data); err != nil {
		return err
	}

	// fft.IFFT divides by the length of each 1D transform, so the row pass
	// and the column pass together scale the inverse by 1/(Nx*Ny). fft.FFT
	// applies no factor.

	// Along y: every row is independent.
	if err := p.parallel(p.nx, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			copy(data[i], kernel(data[i]))
		}
	}); err != nil {
		return err
	}

	// Along x: gather each column into the worker's buffer and scatter back.
	return p.parallel(p.ny, func(w, lo, hi int) {
		col := p.cols[w]
		for j := lo; j < hi; j++ {
			for i := 0; i < p.nx; i++ {
				col[i] = data[i][j]
			}
			out := kernel(col)
			for i := 0; i < p.nx; i++ {
				data[i][j] = out[i]
			}
		}
	})
}

// parallel splits [0, n) into contiguous chunks, one per worker, and waits
// for all of them. Chunks never overlap, so writes never collide.
func (p *Plan2D) parallel(n int, fn func(w, lo, hi int)) error {
	workers := min(p.workers, n)
	if workers <= 1 {
		fn(0, 0, n)
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		w := w
		lo, hi := w*chunk, min((w+1)*chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			fn(w, lo, hi)
			return nil
		})
	}
	return g.Wait()
}

func (p *Plan2D) check(data [][]complex128) error {
	if len(data) != p.nx {
		return fmt.Errorf("%w: got %d rows, plan has %d", ErrShape, len(data), p.nx)
	}
	for i, row := range data {
		if len(row) != p.ny {
			return fmt.Errorf("%w: row %d has %d columns, plan has %d", ErrShape, i, len(row), p.ny)
		}
	}
	return nil
}

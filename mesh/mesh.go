// Package mesh implements the local relaxation kernel: a
// structured 2-D grid of samples over the unit square,
// advanced by Jacobi sweeps that may be split across
// several goroutines.
package mesh

import (
	"fmt"
	"math"
	"sync"
)

// A Source is the forcing term of the equation, sampled
// at unit-square coordinates.
type Source func(x, y float64) float64

// DefaultSource is the classic test problem
// f(x, y) = 8π²·sin(2πx)·sin(2πy), whose solution with
// zero boundary is sin(2πx)·sin(2πy).
func DefaultSource(x, y float64) float64 {
	return 8 * math.Pi * math.Pi * math.Sin(2*math.Pi*x) * math.Sin(2*math.Pi*y)
}

// A Mesh holds a flattened row-major grid of samples and
// advances it one relaxation sweep at a time.
//
// A Mesh may cover the whole grid, or one worker's row
// block of it. In the latter case the first and last
// local rows are halo or physical-boundary rows; a sweep
// reads them but never writes them.
type Mesh struct {
	data    []float64
	scratch []float64

	rows int
	cols int

	// globalRow0 and globalRows place the local block in
	// the full grid, so that source samples line up no
	// matter how the grid is partitioned.
	globalRow0 int
	globalRows int

	f   Source
	err float64
}

// New creates a zero-initialized mesh covering the whole
// grid. The boundary stays at zero (Dirichlet).
func New(rows, cols int, f Source) *Mesh {
	return FromData(make([]float64, rows*cols), cols, f)
}

// FromData wraps an existing full grid. The mesh aliases
// data.
func FromData(data []float64, cols int, f Source) *Mesh {
	if cols < 1 || len(data)%cols != 0 {
		panic(fmt.Sprintf("grid of %d elements is not a whole number of %d-wide rows",
			len(data), cols))
	}
	rows := len(data) / cols
	return Local(data, cols, 0, rows, f)
}

// Local wraps one worker's local buffer, whose first row
// sits at globalRow0 within a grid of globalRows total
// rows.
func Local(data []float64, cols int, globalRow0, globalRows int, f Source) *Mesh {
	if cols < 2 {
		panic(fmt.Sprintf("invalid column count: %d", cols))
	}
	rows := len(data) / cols
	if rows < 2 {
		panic(fmt.Sprintf("local block of %d rows cannot be swept", rows))
	}
	return &Mesh{
		data:       data,
		scratch:    make([]float64, len(data)),
		rows:       rows,
		cols:       cols,
		globalRow0: globalRow0,
		globalRows: globalRows,
		f:          f,
	}
}

// Size returns the local row and column counts.
func (m *Mesh) Size() (rows, cols int) {
	return m.rows, m.cols
}

// Data returns the mesh's backing buffer. Mutating it
// mutates the mesh; this is how halo rows are refreshed
// between sweeps.
func (m *Mesh) Data() []float64 {
	return m.data
}

// SetData replaces the mesh's samples. The buffer must
// have the same shape as the current one.
func (m *Mesh) SetData(data []float64) {
	if len(data) != len(m.data) {
		panic(fmt.Sprintf("buffer has %d elements but mesh holds %d",
			len(data), len(m.data)))
	}
	copy(m.data, data)
}

// Error returns the residual magnitude of the most recent
// sweep: sqrt(hx·hy·Σ(new−old)²) over the rows this mesh
// sweeps.
func (m *Mesh) Error() float64 {
	return m.err
}

// Update performs one Jacobi sweep in place, splitting
// the swept rows across the given number of goroutines.
//
// Rows 0 and rows-1 and columns 0 and cols-1 are never
// written: they hold Dirichlet boundary values or halo
// rows owned by a neighbor.
func (m *Mesh) Update(threads int) {
	if threads < 1 {
		panic(fmt.Sprintf("invalid thread count: %d", threads))
	}
	first, last := 1, m.rows-1
	if threads > last-first {
		threads = last - first
	}
	if threads < 1 {
		threads = 1
	}

	var sums []float64
	if threads == 1 {
		sums = []float64{m.sweepRows(first, last)}
	} else {
		// Each goroutine owns a disjoint band of rows and
		// only reads the previous iteration's values, so
		// there are no write conflicts.
		sums = make([]float64, threads)
		band := (last - first + threads - 1) / threads
		var wg sync.WaitGroup
		for i := 0; i < threads; i++ {
			lo := first + i*band
			hi := lo + band
			if hi > last {
				hi = last
			}
			wg.Add(1)
			go func(i, lo, hi int) {
				defer wg.Done()
				sums[i] = m.sweepRows(lo, hi)
			}(i, lo, hi)
		}
		wg.Wait()
	}

	// Combine band residuals in band order so the result
	// does not depend on goroutine scheduling.
	var total float64
	for _, s := range sums {
		total += s
	}
	m.err = math.Sqrt(m.hx() * m.hy() * total)

	for r := first; r < last; r++ {
		copy(m.data[r*m.cols+1:(r+1)*m.cols-1], m.scratch[r*m.cols+1:(r+1)*m.cols-1])
	}
}

// sweepRows computes one Jacobi step for rows [lo, hi)
// into the scratch buffer and returns the band's sum of
// squared changes.
func (m *Mesh) sweepRows(lo, hi int) float64 {
	hx, hy := m.hx(), m.hy()
	cx := 1 / (hx * hx)
	cy := 1 / (hy * hy)
	denom := 2*cx + 2*cy

	var sum float64
	for r := lo; r < hi; r++ {
		y := float64(m.globalRow0+r) * hy
		base := r * m.cols
		for c := 1; c < m.cols-1; c++ {
			x := float64(c) * hx
			old := m.data[base+c]
			next := (cy*(m.data[base-m.cols+c]+m.data[base+m.cols+c]) +
				cx*(m.data[base+c-1]+m.data[base+c+1]) +
				m.f(x, y)) / denom
			m.scratch[base+c] = next
			diff := next - old
			sum += diff * diff
		}
	}
	return sum
}

func (m *Mesh) hx() float64 {
	return 1 / float64(m.cols-1)
}

func (m *Mesh) hy() float64 {
	return 1 / float64(m.globalRows-1)
}

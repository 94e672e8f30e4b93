package mesh

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func randomInterior(rows, cols int) *Mesh {
	m := New(rows, cols, DefaultSource)
	for r := 1; r < rows-1; r++ {
		for c := 1; c < cols-1; c++ {
			m.data[r*cols+c] = rand.NormFloat64()
		}
	}
	return m
}

func TestUpdatePreservesBoundary(t *testing.T) {
	const rows = 9
	const cols = 7
	m := randomInterior(rows, cols)
	for i := 0; i < 10; i++ {
		m.Update(1)
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if r != 0 && r != rows-1 && c != 0 && c != cols-1 {
				continue
			}
			if m.data[r*cols+c] != 0 {
				t.Fatalf("boundary value at (%d, %d) is %f", r, c, m.data[r*cols+c])
			}
		}
	}
}

func TestUpdateResidualShrinks(t *testing.T) {
	m := randomInterior(17, 17)
	m.Update(1)
	first := m.Error()
	for i := 0; i < 200; i++ {
		m.Update(1)
	}
	if m.Error() >= first {
		t.Errorf("residual grew from %f to %f", first, m.Error())
	}
}

// TestUpdateThreadsMatch checks that a banded parallel
// sweep computes the same grid as a sequential sweep.
func TestUpdateThreadsMatch(t *testing.T) {
	seq := randomInterior(19, 11)
	par := New(19, 11, DefaultSource)
	par.SetData(seq.Data())

	for i := 0; i < 50; i++ {
		seq.Update(1)
		par.Update(4)
		for j, x := range seq.Data() {
			if x != par.Data()[j] {
				t.Fatalf("iteration %d: grids differ at element %d", i, j)
			}
		}
		if math.Abs(seq.Error()-par.Error()) > 1e-12 {
			t.Fatalf("iteration %d: residuals differ: %g vs %g",
				i, seq.Error(), par.Error())
		}
	}
}

// TestConvergesToKnownSolution relaxes the default
// problem until the residual is tiny and compares against
// the analytic solution sin(2πx)·sin(2πy).
func TestConvergesToKnownSolution(t *testing.T) {
	const n = 17
	m := New(n, n, DefaultSource)
	for i := 0; i < 5000; i++ {
		m.Update(1)
		if m.Error() < 1e-8 {
			break
		}
	}

	h := 1 / float64(n-1)
	var worst float64
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			expected := math.Sin(2*math.Pi*float64(c)*h) *
				math.Sin(2*math.Pi*float64(r)*h)
			diff := math.Abs(m.data[r*n+c] - expected)
			if diff > worst {
				worst = diff
			}
		}
	}
	// Coarse-grid discretization error dominates here.
	if worst > 0.1 {
		t.Errorf("worst pointwise error is %f", worst)
	}
}

func TestLocalMatchesGlobalRows(t *testing.T) {
	// A local block swept in place must compute the same
	// values as the matching rows of a full-grid sweep,
	// given up-to-date halo rows.
	const rows = 12
	const cols = 6
	full := randomInterior(rows, cols)

	// The local block covers global rows 4..7 plus one
	// halo row on each side.
	local := make([]float64, 6*cols)
	copy(local, full.Data()[3*cols:9*cols])
	lm := Local(local, cols, 3, rows, DefaultSource)

	full.Update(1)
	lm.Update(1)

	for i, x := range full.Data()[4*cols : 8*cols] {
		if lm.Data()[cols+i] != x {
			t.Fatalf("element %d differs: %f vs %f", i, lm.Data()[cols+i], x)
		}
	}
}

func TestWrite(t *testing.T) {
	m := randomInterior(5, 4)
	path := filepath.Join(t.TempDir(), "vtk_out", "mesh.vtk")
	if err := m.Write(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(string(data), "\n")
	if lines[0] != "# vtk DataFile Version 2.0" {
		t.Errorf("bad header line: %q", lines[0])
	}
	if lines[4] != "DIMENSIONS 4 5 1" {
		t.Errorf("bad dimensions line: %q", lines[4])
	}
	if lines[7] != "POINT_DATA 20" {
		t.Errorf("bad point data line: %q", lines[7])
	}
}

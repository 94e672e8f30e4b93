package solver

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/unixpickle/dist-pde/mesh"
)

func testConfig(t *testing.T) Config {
	cfg := DefaultConfig()
	cfg.Tolerance = 1e-5
	cfg.OutDir = t.TempDir()
	return cfg
}

func randomGrid(rows, cols int) []float64 {
	grid := make([]float64, rows*cols)
	for r := 1; r < rows-1; r++ {
		for c := 1; c < cols-1; c++ {
			grid[r*cols+c] = rand.NormFloat64()
		}
	}
	return grid
}

// TestSolveLocalThreadsMatch checks that the sequential
// and thread-parallel modes converge in the same number
// of iterations to the same grid.
func TestSolveLocalThreadsMatch(t *testing.T) {
	const rows = 15
	const cols = 15
	grid := randomGrid(rows, cols)

	cfg := testConfig(t)
	seqSolver := New(cfg)
	seqMesh := mesh.FromData(append([]float64{}, grid...), cols, mesh.DefaultSource)
	seqStats, err := seqSolver.SolveLocal(seqMesh, 1)
	if err != nil {
		t.Fatal(err)
	}

	parSolver := New(cfg)
	parMesh := mesh.FromData(append([]float64{}, grid...), cols, mesh.DefaultSource)
	parStats, err := parSolver.SolveLocal(parMesh, 4)
	if err != nil {
		t.Fatal(err)
	}

	if seqStats.Iterations != parStats.Iterations {
		t.Fatalf("sequential took %d iterations but parallel took %d",
			seqStats.Iterations, parStats.Iterations)
	}
	for i, x := range seqMesh.Data() {
		if parMesh.Data()[i] != x {
			t.Fatalf("grids differ at element %d", i)
		}
	}
	if seqStats.CapHit || parStats.CapHit {
		t.Error("unexpected iteration cap")
	}
}

// TestSolveLocalCapHit checks that running out of
// iterations is a normal termination path: the result is
// still persisted and the cap is reported.
func TestSolveLocalCapHit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tolerance = 1e-30
	cfg.MaxIters = 3

	s := New(cfg)
	m := mesh.FromData(randomGrid(11, 11), 11, mesh.DefaultSource)
	stats, err := s.SolveLocal(m, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !stats.CapHit {
		t.Error("cap was not reported")
	}
	if stats.Iterations != 3 {
		t.Errorf("expected 3 iterations but got %d", stats.Iterations)
	}
	if _, err := os.Stat(cfg.OutputPath(1, 11)); err != nil {
		t.Errorf("result was not persisted: %v", err)
	}
}

func TestSolveLocalOutputName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tolerance = 1e9
	s := New(cfg)
	m := mesh.FromData(randomGrid(9, 3), 3, mesh.DefaultSource)
	if _, err := s.SolveLocal(m, 1); err != nil {
		t.Fatal(err)
	}
	expected := filepath.Join(cfg.OutDir, "approx_sol-1-9.vtk")
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("missing output file %s: %v", expected, err)
	}
}

func TestStatsMeanUpdate(t *testing.T) {
	s := Stats{Iterations: 4, UpdateTime: 100}
	if s.MeanUpdate() != 25 {
		t.Errorf("mean update is %v", s.MeanUpdate())
	}
	if (Stats{}).MeanUpdate() != 0 {
		t.Error("zero-iteration stats should have zero mean")
	}
}

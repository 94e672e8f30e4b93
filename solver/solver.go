// Package solver composes the partition calculator, halo
// exchange, convergence reduction and scatter/gather into
// the end-to-end iterate-until-converged procedure, in
// three modes: sequential, single-worker thread-parallel,
// and multi-worker with optional per-worker threading.
package solver

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unixpickle/dist-pde/mesh"
)

// Stats summarizes a completed solve.
type Stats struct {
	// Iterations is the number of relaxation sweeps each
	// worker performed before the global stop.
	Iterations int

	// UpdateTime is the wall-clock time spent in the
	// local update phase. For distributed runs this is
	// the mean across workers.
	UpdateTime time.Duration

	// CapHit reports that the run stopped at the
	// iteration cap rather than at the tolerance.
	CapHit bool
}

// MeanUpdate returns the average update time per
// iteration.
func (s Stats) MeanUpdate() time.Duration {
	if s.Iterations == 0 {
		return 0
	}
	return s.UpdateTime / time.Duration(s.Iterations)
}

// A Solver runs the iterate-until-converged procedure for
// a fixed Config.
type Solver struct {
	Config Config

	// Source is the equation's forcing term, identical on
	// every worker.
	Source mesh.Source

	// RunID identifies this run in summary lines.
	RunID string
}

// New creates a Solver with the default source term.
func New(cfg Config) *Solver {
	return &Solver{
		Config: cfg,
		Source: mesh.DefaultSource,
		RunID:  uuid.NewString(),
	}
}

// SolveLocal relaxes a full-grid mesh with a single
// worker until the residual drops below the tolerance or
// the iteration cap is hit, then persists the result.
//
// threads == 1 is the purely sequential mode; larger
// values split each sweep across goroutines.
func (s *Solver) SolveLocal(m *mesh.Mesh, threads int) (Stats, error) {
	var stats Stats
	for {
		start := time.Now()
		m.Update(threads)
		stats.UpdateTime += time.Since(start)
		stats.Iterations++
		if m.Error() < s.Config.Tolerance {
			break
		}
		if stats.Iterations == s.Config.MaxIters {
			stats.CapHit = true
			break
		}
	}

	rows, _ := m.Size()
	path := s.Config.OutputPath(1, rows)
	if err := m.Write(path); err != nil {
		return stats, err
	}
	s.report(stats, 1)
	return stats, nil
}

func (s *Solver) report(stats Stats, workers int) {
	if !s.Config.Verbose {
		return
	}
	note := ""
	if stats.CapHit {
		note = " (iteration cap hit)"
	}
	fmt.Printf("run %s: workers %d - iters %d - time %v - mean time each update %v%s\n",
		s.RunID, workers, stats.Iterations, stats.UpdateTime,
		stats.MeanUpdate(), note)
}

package solver

import (
	"fmt"
	"time"

	"github.com/unixpickle/dist-pde/gridcomm"
	"github.com/unixpickle/dist-pde/mesh"
	"github.com/unixpickle/dist-pde/partition"
	"github.com/unixpickle/dist-pde/simulator"
)

// A Phase is a stage of the distributed pipeline. Phase
// boundaries are the blocking collective operations, so
// every worker passes through them in the same order.
type Phase int

const (
	PhaseScattering Phase = iota
	PhaseIterating
	PhaseGathering
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseScattering:
		return "scattering"
	case PhaseIterating:
		return "iterating"
	case PhaseGathering:
		return "gathering"
	case PhaseDone:
		return "done"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ValidateGrid checks an initial grid before a
// distributed run starts, so that a malformed grid is
// surfaced at the coordinator instead of hanging workers
// on a scatter that never arrives.
func ValidateGrid(grid []float64, cols, workers int) error {
	if len(grid) == 0 {
		return fmt.Errorf("initial grid is empty")
	}
	if cols < 2 {
		return fmt.Errorf("invalid column count: %d", cols)
	}
	if len(grid)%cols != 0 {
		return fmt.Errorf("grid of %d elements is not a whole number of %d-wide rows",
			len(grid), cols)
	}
	rows := len(grid) / cols
	if rows < 2 {
		return fmt.Errorf("grid of %d rows cannot be swept", rows)
	}
	if workers < 1 || workers > rows {
		return fmt.Errorf("cannot split %d rows across %d workers", rows, workers)
	}
	return nil
}

// RunDistributed solves the grid across the given number
// of workers on a fresh event loop and returns the
// assembled result. The initial grid is validated before
// any worker starts.
//
// The returned mesh is rank 0's gathered, persisted
// result.
func (s *Solver) RunDistributed(network simulator.Network, initial []float64,
	cols, workers, threads int) (*mesh.Mesh, Stats, error) {
	if err := ValidateGrid(initial, cols, workers); err != nil {
		return nil, Stats{}, err
	}

	loop := simulator.NewEventLoop()
	var result *mesh.Mesh
	var stats Stats
	var solveErr error
	gridcomm.Spawn(loop, network, workers, func(c *gridcomm.Comm) {
		m, st, err := s.SolveDistributed(c, initial, cols, threads)
		if c.Rank() == 0 {
			result, stats, solveErr = m, st, err
		}
	})
	if err := loop.Run(); err != nil {
		return nil, Stats{}, err
	}
	return result, stats, solveErr
}

// SolveDistributed is the procedure every worker of a
// distributed run executes. Only rank 0 reads initial,
// receives the gathered grid, persists it, and returns a
// non-nil mesh; other ranks return nil.
//
// All workers must share the same Config; the Phase
// transitions below are driven by blocking collectives,
// so the group moves through them together.
func (s *Solver) SolveDistributed(c *gridcomm.Comm, initial []float64,
	cols, threads int) (*mesh.Mesh, Stats, error) {
	w := &distWorker{
		solver:  s,
		comm:    c,
		cols:    cols,
		threads: threads,
		phase:   PhaseScattering,
		// Round 0 is reserved for the setup reduction in
		// scatter; iteration rounds start at 1.
		round: 1,
	}
	w.scatter(initial)
	w.iterate()
	return w.gather()
}

// A distWorker is one rank's state as it moves through
// the distributed pipeline.
type distWorker struct {
	solver  *Solver
	comm    *gridcomm.Comm
	cols    int
	threads int

	phase Phase
	parts []partition.Partition
	part  partition.Partition
	mesh  *mesh.Mesh
	local []float64

	stats Stats
	round int
}

func (w *distWorker) advance(from, to Phase) {
	if w.phase != from {
		panic(fmt.Sprintf("rank %d is %v but should be %v",
			w.comm.Rank(), w.phase, from))
	}
	w.phase = to
}

// scatter computes this rank's partition and receives its
// block of the initial grid.
func (w *distWorker) scatter(initial []float64) {
	var rows int
	if w.comm.Rank() == 0 {
		rows = len(initial) / w.cols
	}
	// Every rank needs the global row count to partition;
	// rank 0 knows it from the grid it holds.
	rows = int(w.comm.Allreduce([]float64{float64(rows)}, 0, gridcomm.SumOp)[0])

	w.parts = partition.SplitAll(rows, w.cols, w.comm.Size())
	w.part = w.parts[w.comm.Rank()]
	w.local = w.comm.ScatterGrid(initial, w.parts)
	w.mesh = mesh.Local(w.local, w.cols, w.part.GlobalStart()/w.cols, rows,
		w.solver.Source)
	w.advance(PhaseScattering, PhaseIterating)
}

// iterate runs the update / reduce / exchange loop until
// the group agrees to stop.
//
// A worker whose own block has converged stops sweeping,
// but keeps joining every reduction and halo exchange:
// its neighbors still need its rows, and a silent peer
// would deadlock the group.
func (w *distWorker) iterate() {
	if w.phase != PhaseIterating {
		panic(fmt.Sprintf("rank %d is %v but should be iterating",
			w.comm.Rank(), w.phase))
	}
	cfg := w.solver.Config
	localDone := false
	for {
		if !localDone {
			start := time.Now()
			w.mesh.Update(w.threads)
			w.stats.UpdateTime += time.Since(start)
			w.stats.Iterations++
			localDone = w.mesh.Error() < cfg.Tolerance ||
				w.stats.Iterations == cfg.MaxIters
		}
		globalDone := w.comm.AllAnd(localDone, w.round)
		w.comm.ExchangeRows(w.local, w.part, w.round)
		w.round++
		if globalDone {
			break
		}
	}
	w.advance(PhaseIterating, PhaseGathering)
}

// gather assembles the interior rows at rank 0, averages
// the per-worker update times, and persists the result.
func (w *distWorker) gather() (*mesh.Mesh, Stats, error) {
	if w.phase != PhaseGathering {
		panic(fmt.Sprintf("rank %d is %v but should be gathering",
			w.comm.Rank(), w.phase))
	}
	// The run hit the cap if any worker ran out of
	// iterations without converging.
	cfg := w.solver.Config
	localCap := w.stats.Iterations == cfg.MaxIters &&
		w.mesh.Error() >= cfg.Tolerance
	w.stats.CapHit = !w.comm.AllAnd(!localCap, w.round)
	w.round++

	totalTime := w.comm.AllSum(w.stats.UpdateTime.Seconds(), w.round)
	w.stats.UpdateTime = time.Duration(totalTime / float64(w.comm.Size()) *
		float64(time.Second))
	w.round++

	global := w.comm.GatherGrid(w.local, w.parts, w.round)
	w.advance(PhaseGathering, PhaseDone)
	if w.comm.Rank() != 0 {
		return nil, w.stats, nil
	}

	final := mesh.FromData(global, w.cols, w.solver.Source)
	rows, _ := final.Size()
	path := w.solver.Config.OutputPath(w.comm.Size(), rows)
	if err := final.Write(path); err != nil {
		return nil, w.stats, err
	}
	w.solver.report(w.stats, w.comm.Size())
	return final, w.stats, nil
}

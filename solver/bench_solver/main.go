// Command bench_solver compares the solver's execution
// modes on one grid: sequential, thread-parallel, and
// distributed over a simulated network with several
// worker counts.
package main

import (
	"flag"
	"fmt"

	"github.com/unixpickle/dist-pde/mesh"
	"github.com/unixpickle/dist-pde/simulator"
	"github.com/unixpickle/dist-pde/solver"
	"github.com/unixpickle/essentials"
)

func main() {
	var configPath string
	var rows, cols int
	var latency, rate float64
	flag.StringVar(&configPath, "config", "", "TOML run-parameter file")
	flag.IntVar(&rows, "rows", 65, "grid height")
	flag.IntVar(&cols, "cols", 65, "grid width")
	flag.Float64Var(&latency, "latency", 1e-4, "simulated per-message latency")
	flag.Float64Var(&rate, "rate", 1e9, "simulated NIC rate (bytes/sec)")
	flag.Parse()

	cfg := solver.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = solver.LoadConfig(configPath)
		essentials.Must(err)
	}
	cfg.Verbose = false

	fmt.Println("| Mode | Workers | Threads | Iters | Update time | Per iter |")
	fmt.Println("|:--|:--|:--|:--|:--|:--|")

	for _, threads := range []int{1, cfg.Threads * 4} {
		s := solver.New(cfg)
		m := mesh.New(rows, cols, mesh.DefaultSource)
		stats, err := s.SolveLocal(m, threads)
		essentials.Must(err)
		mode := "sequential"
		if threads > 1 {
			mode = "threaded"
		}
		printRow(mode, 1, threads, stats)
	}

	grid := make([]float64, rows*cols)
	for _, workers := range []int{2, 4, 8} {
		if workers > rows {
			continue
		}
		network := simulator.NewLatencyNetwork(latency, rate)
		s := solver.New(cfg)
		_, stats, err := s.RunDistributed(network, grid, cols, workers, cfg.Threads)
		essentials.Must(err)
		printRow("distributed", workers, cfg.Threads, stats)
	}
}

func printRow(mode string, workers, threads int, stats solver.Stats) {
	iters := fmt.Sprintf("%d", stats.Iterations)
	if stats.CapHit {
		iters += " (cap)"
	}
	fmt.Printf("| %s | %d | %d | %s | %v | %v |\n",
		mode, workers, threads, iters, stats.UpdateTime, stats.MeanUpdate())
}

package solver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/unixpickle/essentials"
)

// A Config holds the run-wide parameters of a solve.
// Every worker in a distributed run uses the same Config.
type Config struct {
	// Tolerance is the residual below which a worker
	// considers its block converged.
	Tolerance float64 `toml:"tolerance"`

	// MaxIters caps the number of relaxation sweeps.
	// Hitting the cap is a normal termination path.
	MaxIters int `toml:"max_iters"`

	// Threads is the number of goroutines each worker
	// uses for its local sweep.
	Threads int `toml:"threads"`

	// OutDir and Base control where the final grid is
	// persisted: <out_dir>/<base>-<workers>-<rows>.vtk.
	OutDir string `toml:"out_dir"`
	Base   string `toml:"base"`

	// Verbose enables the per-run summary line.
	Verbose bool `toml:"verbose"`
}

// DefaultConfig returns the parameters a run uses when no
// config file overrides them.
func DefaultConfig() Config {
	return Config{
		Tolerance: 1e-6,
		MaxIters:  50000,
		Threads:   1,
		OutDir:    "vtk_files",
		Base:      "approx_sol",
	}
}

// LoadConfig reads a TOML config file on top of the
// defaults.
func LoadConfig(path string) (cfg Config, err error) {
	defer essentials.AddCtxTo(fmt.Sprintf("load config %s", path), &err)

	cfg = DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate checks that the parameters describe a runnable
// solve.
func (c Config) Validate() error {
	if c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive: %g", c.Tolerance)
	}
	if c.MaxIters < 1 {
		return fmt.Errorf("max_iters must be at least 1: %d", c.MaxIters)
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1: %d", c.Threads)
	}
	if c.Base == "" {
		return fmt.Errorf("base must not be empty")
	}
	return nil
}

// OutputPath returns the persistence path for a run with
// the given worker count and grid height.
func (c Config) OutputPath(workers, rows int) string {
	return filepath.Join(c.OutDir, fmt.Sprintf("%s-%d-%d.vtk", c.Base, workers, rows))
}

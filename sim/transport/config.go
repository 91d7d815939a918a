// Package transport runs particle histories through a geometry and its
// materials, feeding every track event to an event.Handler.
//
// Histories are distributed over a fixed pool of worker goroutines. Each
// history draws from its own random stream derived from the simulation seed
// and the history index, so which worker runs it does not matter.
package transport

import (
	"fmt"

	"github.com/transport-sim/transport-sim/sim/trace"
)

const (
	// DefaultMaxCollisions caps collisions per track before it is declared lost.
	DefaultMaxCollisions = 100000
)

// Config holds the run settings.
type Config struct {
	Histories    uint64 // histories to run
	FirstHistory uint64 // index of the first history, for splitting a run across processes
	Threads      int    // worker goroutines
	Seed         int64

	// SurvivalBias replaces analogue absorption with weight reduction.
	SurvivalBias bool
	// WeightCutoff enables Russian roulette below this weight; 0 disables it.
	WeightCutoff float64
	// WeightSurvival is the weight given to roulette survivors. Defaults to
	// twice the cutoff.
	WeightSurvival float64

	MaxCollisions int // 0 selects DefaultMaxCollisions
	Trace         trace.TraceConfig
}

// Validate checks the settings and fills defaults.
func (c *Config) Validate() error {
	if c.Histories == 0 {
		return fmt.Errorf("histories must be positive")
	}
	if c.Threads < 1 {
		return fmt.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.WeightCutoff < 0 || c.WeightCutoff >= 1 {
		return fmt.Errorf("weight cutoff must lie in [0, 1), got %g", c.WeightCutoff)
	}
	if c.WeightCutoff > 0 {
		if c.WeightSurvival == 0 {
			c.WeightSurvival = 2 * c.WeightCutoff
		}
		if c.WeightSurvival <= c.WeightCutoff {
			return fmt.Errorf("roulette survival weight %g must exceed the cutoff %g", c.WeightSurvival, c.WeightCutoff)
		}
	}
	if c.MaxCollisions < 0 {
		return fmt.Errorf("max collisions must be non-negative, got %d", c.MaxCollisions)
	}
	if c.MaxCollisions == 0 {
		c.MaxCollisions = DefaultMaxCollisions
	}
	if !trace.IsValidTraceLevel(string(c.Trace.Level)) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}

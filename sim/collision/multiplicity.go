package collision

import (
	"math"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

// Multiplicity gives the number of neutrons leaving a reaction.
type Multiplicity interface {
	// Emitted returns the number of outgoing neutrons for one event.
	Emitted(energy float64, rng sim.RandomStream) int
	// Mean returns the expected number of outgoing neutrons.
	Mean(energy float64) float64
}

// FixedMultiplicity emits the same number of neutrons at every energy.
type FixedMultiplicity int

func (m FixedMultiplicity) Emitted(float64, sim.RandomStream) int { return int(m) }

func (m FixedMultiplicity) Mean(float64) float64 { return float64(m) }

// TabulatedMultiplicity samples the integer multiplicity around a tabulated
// nu-bar: floor(nu) with probability 1-frac, floor(nu)+1 with probability frac.
type TabulatedMultiplicity struct {
	NuBar *interp.Table
}

func (m TabulatedMultiplicity) Emitted(energy float64, rng sim.RandomStream) int {
	nu := m.Mean(energy)
	n := math.Floor(nu)
	if rng.Float64() < nu-n {
		n++
	}
	return int(n)
}

func (m TabulatedMultiplicity) Mean(energy float64) float64 {
	return m.NuBar.EvalClamped(energy)
}

package collision

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
)

// testGrid is a three point grid spanning thermal to 20 MeV.
var testGrid = []float64{1e-11, 1.0, 20.0}

func flat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func elasticData(xs float64) ReactionData {
	return ReactionData{
		Type:         sim.ElasticReaction,
		Multiplicity: 1,
		CrossSection: flat(xs, len(testGrid)),
	}
}

func captureData(xs float64) ReactionData {
	return ReactionData{
		Type:         sim.NGammaReaction,
		QValue:       2.2,
		CrossSection: flat(xs, len(testGrid)),
	}
}

func mustNuclide(t *testing.T, policy AbsorptionPolicy, name string, reactions ...ReactionData) *Nuclide {
	t.Helper()
	n, err := NewNuclideFactory(policy).CreateNuclide(NuclideData{
		Name:              name,
		AtomicNumber:      1,
		AtomicMassNumber:  1,
		AtomicWeightRatio: 0.999167,
		Temperature:       2.53e-8,
		EnergyGrid:        testGrid,
		Reactions:         reactions,
	})
	require.NoError(t, err)
	return n
}

func testNeutron(energy float64) *sim.ParticleState {
	p := sim.NewParticleState(sim.Neutron, 0)
	p.Energy = energy
	p.Direction = r3.Vec{Z: 1}
	return p
}

package collision

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/internal/testutil"
)

func TestNeutronMaterial_SingleElasticNuclide(t *testing.T) {
	// GIVEN one nuclide with a flat 10 b elastic cross section at 0.01 atom/b-cm
	n := mustNuclide(t, DefaultAbsorptionPolicy(), "H-1", elasticData(10))
	m, err := NewNeutronMaterial(1, []MaterialComponent{{Nuclide: n, NumberDensity: 0.01}})
	require.NoError(t, err)

	// THEN a 1 MeV neutron sees 0.1 /cm and always survives
	assert.InDelta(t, 0.1, m.MacroscopicTotalCrossSection(1.0), 1e-15)
	assert.Equal(t, 0.0, m.MacroscopicAbsorptionCrossSection(1.0))
	assert.Equal(t, 1.0, m.SurvivalProbability(1.0))
	assert.InDelta(t, 0.01, m.NumberDensity(), 1e-18)
}

func water(t *testing.T) (*NeutronMaterial, *Nuclide, *Nuclide) {
	t.Helper()
	h := mustNuclide(t, DefaultAbsorptionPolicy(), "H-1", elasticData(20), captureData(0.3))
	o := mustNuclide(t, DefaultAbsorptionPolicy(), "O-16", elasticData(4))
	m, err := NewNeutronMaterial(2, []MaterialComponent{
		{Nuclide: h, NumberDensity: 0.06},
		{Nuclide: o, NumberDensity: 0.03},
	})
	require.NoError(t, err)
	return m, h, o
}

func TestNeutronMaterial_MacroscopicCrossSections(t *testing.T) {
	m, _, _ := water(t)

	assert.InDelta(t, 1.338, m.MacroscopicTotalCrossSection(1), 1e-12)
	assert.InDelta(t, 0.018, m.MacroscopicAbsorptionCrossSection(1), 1e-12)
	assert.InDelta(t, 1.32, m.MacroscopicReactionCrossSection(1, sim.ElasticReaction), 1e-12)
	assert.Equal(t, 0.0, m.MacroscopicReactionCrossSection(1, sim.N2NReaction))
	assert.InDelta(t, 1-0.018/1.338, m.SurvivalProbability(1), 1e-12)
	assert.InDelta(t, 0.09, m.NumberDensity(), 1e-15)
}

func TestNeutronMaterial_SampleCollisionNuclide(t *testing.T) {
	m, h, o := water(t)

	got, err := m.SampleCollisionNuclide(1, testutil.NewSequenceStream(0.5))
	require.NoError(t, err)
	assert.Same(t, h, got)

	got, err = m.SampleCollisionNuclide(1, testutil.NewSequenceStream(0.95))
	require.NoError(t, err)
	assert.Same(t, o, got)

	_, err = m.SampleCollisionNuclide(50, testutil.NewSequenceStream(0.5))
	assert.True(t, errors.Is(err, ErrSamplingFailure))
}

func TestNeutronMaterial_SampleCollisionNuclideDoesNotAllocate(t *testing.T) {
	m, _, o := water(t)
	rng := testutil.NewSequenceStream(0.95)

	var got *Nuclide
	allocs := testing.AllocsPerRun(100, func() {
		got, _ = m.SampleCollisionNuclide(1, rng)
	})

	assert.Zero(t, allocs)
	assert.Same(t, o, got)
}

func TestNeutronMaterial_CollideDelegatesToNuclide(t *testing.T) {
	m, _, _ := water(t)

	// nuclide draw picks O-16, which only scatters
	p := testNeutron(1)
	require.NoError(t, m.CollideAnalogue(p, sim.NewParticleBank(), testutil.NewSequenceStream(0.99, 0.5, 0.5, 0.5)))
	assert.False(t, p.IsGone())
	assert.Equal(t, 1, p.CollisionNumber)

	q := testNeutron(1)
	require.NoError(t, m.CollideSurvivalBias(q, sim.NewParticleBank(), testutil.NewSequenceStream(0.1, 0.5, 0.5, 0.5)))
	assert.InDelta(t, 20.0/20.3, q.Weight, 1e-12)
}

func TestNewNeutronMaterialFromFractions(t *testing.T) {
	_, h, o := water(t)
	m, err := NewNeutronMaterialFromFractions(3, 0.09, []*Nuclide{h, o}, []float64{2, 1})
	require.NoError(t, err)

	c := m.Components()
	require.Len(t, c, 2)
	assert.InDelta(t, 0.06, c[0].NumberDensity, 1e-15)
	assert.InDelta(t, 0.03, c[1].NumberDensity, 1e-15)
	assert.InDelta(t, 0.09, m.NumberDensity(), 1e-15)
}

func TestNewNeutronMaterial_Rejects(t *testing.T) {
	_, h, o := water(t)
	tests := []struct {
		name  string
		build func() error
	}{
		{"no components", func() error {
			_, err := NewNeutronMaterial(1, nil)
			return err
		}},
		{"zero density", func() error {
			_, err := NewNeutronMaterial(1, []MaterialComponent{{Nuclide: h, NumberDensity: 0}})
			return err
		}},
		{"duplicate nuclide", func() error {
			_, err := NewNeutronMaterial(1, []MaterialComponent{{Nuclide: h, NumberDensity: 1}, {Nuclide: h, NumberDensity: 1}})
			return err
		}},
		{"fraction count mismatch", func() error {
			_, err := NewNeutronMaterialFromFractions(1, 1, []*Nuclide{h, o}, []float64{1})
			return err
		}},
		{"zero fractions", func() error {
			_, err := NewNeutronMaterialFromFractions(1, 1, []*Nuclide{h, o}, []float64{0, 0})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.build(), ErrInvalidMaterial))
		})
	}
}

func TestNeutronMaterial_EnergyRange(t *testing.T) {
	m, _, _ := water(t)

	lo, hi := m.EnergyRange()
	assert.Equal(t, 1e-11, lo)
	assert.Equal(t, 20.0, hi)
}

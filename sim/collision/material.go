package collision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/transport-sim/transport-sim/sim"
)

// MaterialComponent is one nuclide of a mixture with its number density
// (atoms/barn-cm).
type MaterialComponent struct {
	Nuclide       *Nuclide
	NumberDensity float64
}

// NeutronMaterial is a homogeneous mixture of nuclides.
// Immutable after construction and safe for concurrent use.
type NeutronMaterial struct {
	id            int64
	components    []MaterialComponent
	numberDensity float64
}

// NewNeutronMaterial builds a material from explicit per-nuclide densities.
// The material's number density is their sum.
func NewNeutronMaterial(id int64, components []MaterialComponent) (*NeutronMaterial, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: material %d has no nuclides", ErrInvalidMaterial, id)
	}
	seen := make(map[*Nuclide]bool, len(components))
	densities := make([]float64, len(components))
	for i, c := range components {
		if c.Nuclide == nil {
			return nil, fmt.Errorf("%w: material %d component %d has no nuclide", ErrInvalidMaterial, id, i)
		}
		if c.NumberDensity <= 0 {
			return nil, fmt.Errorf("%w: material %d: %s has number density %g",
				ErrInvalidMaterial, id, c.Nuclide.Name(), c.NumberDensity)
		}
		if seen[c.Nuclide] {
			return nil, fmt.Errorf("%w: material %d lists %s twice", ErrInvalidMaterial, id, c.Nuclide.Name())
		}
		seen[c.Nuclide] = true
		densities[i] = c.NumberDensity
	}
	return &NeutronMaterial{
		id:            id,
		components:    append([]MaterialComponent(nil), components...),
		numberDensity: floats.Sum(densities),
	}, nil
}

// NewNeutronMaterialFromFractions builds a material from atom fractions that
// are normalized and scaled to totalDensity.
func NewNeutronMaterialFromFractions(id int64, totalDensity float64, nuclides []*Nuclide, fractions []float64) (*NeutronMaterial, error) {
	if len(nuclides) != len(fractions) {
		return nil, fmt.Errorf("%w: material %d has %d nuclides and %d fractions",
			ErrInvalidMaterial, id, len(nuclides), len(fractions))
	}
	if totalDensity <= 0 {
		return nil, fmt.Errorf("%w: material %d has number density %g", ErrInvalidMaterial, id, totalDensity)
	}
	scaled := append([]float64(nil), fractions...)
	sum := floats.Sum(scaled)
	if sum <= 0 {
		return nil, fmt.Errorf("%w: material %d fractions sum to %g", ErrInvalidMaterial, id, sum)
	}
	floats.Scale(totalDensity/sum, scaled)

	components := make([]MaterialComponent, len(nuclides))
	for i, nuc := range nuclides {
		components[i] = MaterialComponent{Nuclide: nuc, NumberDensity: scaled[i]}
	}
	return NewNeutronMaterial(id, components)
}

func (m *NeutronMaterial) ID() int64 { return m.id }

// NumberDensity returns the total number density (atoms/barn-cm).
func (m *NeutronMaterial) NumberDensity() float64 { return m.numberDensity }

// Components returns a copy of the material's nuclides and densities.
func (m *NeutronMaterial) Components() []MaterialComponent {
	return append([]MaterialComponent(nil), m.components...)
}

// EnergyRange returns the energies every nuclide of the material has data for.
// lo > hi when the nuclide grids do not overlap.
func (m *NeutronMaterial) EnergyRange() (lo, hi float64) {
	lo, hi = math.Inf(-1), math.Inf(1)
	for _, c := range m.components {
		g := c.Nuclide.EnergyGrid()
		lo = math.Max(lo, g.Min())
		hi = math.Min(hi, g.Max())
	}
	return lo, hi
}

// MacroscopicTotalCrossSection returns the total cross section in 1/cm.
func (m *NeutronMaterial) MacroscopicTotalCrossSection(energy float64) float64 {
	sum := 0.0
	for _, c := range m.components {
		sum += c.NumberDensity * c.Nuclide.TotalCrossSection(energy)
	}
	return sum
}

// MacroscopicAbsorptionCrossSection returns the absorption cross section in 1/cm.
func (m *NeutronMaterial) MacroscopicAbsorptionCrossSection(energy float64) float64 {
	sum := 0.0
	for _, c := range m.components {
		sum += c.NumberDensity * c.Nuclide.AbsorptionCrossSection(energy)
	}
	return sum
}

// MacroscopicReactionCrossSection returns the cross section of reaction t in 1/cm.
func (m *NeutronMaterial) MacroscopicReactionCrossSection(energy float64, t sim.ReactionType) float64 {
	sum := 0.0
	for _, c := range m.components {
		sum += c.NumberDensity * c.Nuclide.ReactionCrossSection(energy, t)
	}
	return sum
}

// SurvivalProbability returns 1 - absorption/total, clamped into [0,1].
func (m *NeutronMaterial) SurvivalProbability(energy float64) float64 {
	total := m.MacroscopicTotalCrossSection(energy)
	if total <= 0 {
		return 1
	}
	return clampProbability(1 - m.MacroscopicAbsorptionCrossSection(energy)/total)
}

// SampleCollisionNuclide selects the struck nuclide with probability
// proportional to its macroscopic total cross section.
func (m *NeutronMaterial) SampleCollisionNuclide(energy float64, rng sim.RandomStream) (*Nuclide, error) {
	// The second pass rebuilds the same sums in the same order.
	draw := rng.Float64() * m.MacroscopicTotalCrossSection(energy)

	partial := 0.0
	var last *Nuclide
	for _, c := range m.components {
		macro := c.NumberDensity * c.Nuclide.TotalCrossSection(energy)
		if macro <= 0 {
			continue
		}
		partial += macro
		last = c.Nuclide
		if draw < partial {
			return c.Nuclide, nil
		}
	}
	if last != nil && draw-partial <= samplingSlack*partial {
		return last, nil
	}
	return nil, fmt.Errorf("%w: material %d at %g MeV: draw %.12g not below partial sum %.12g",
		ErrSamplingFailure, m.id, energy, draw, partial)
}

// CollideAnalogue samples the struck nuclide and performs an analogue collision.
func (m *NeutronMaterial) CollideAnalogue(p *sim.ParticleState, bank *sim.ParticleBank, rng sim.RandomStream) error {
	n, err := m.SampleCollisionNuclide(p.Energy, rng)
	if err != nil {
		return err
	}
	return n.CollideAnalogue(p, bank, rng)
}

// CollideSurvivalBias samples the struck nuclide and performs a survival-biased collision.
func (m *NeutronMaterial) CollideSurvivalBias(p *sim.ParticleState, bank *sim.ParticleBank, rng sim.RandomStream) error {
	n, err := m.SampleCollisionNuclide(p.Energy, rng)
	if err != nil {
		return err
	}
	return n.CollideSurvivalBias(p, bank, rng)
}

package collision

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

// TotalCrossSectionTolerance is the relative tolerance used when checking the
// summed total cross section against the tabulated one.
const TotalCrossSectionTolerance = 5e-9

// defaultFissionTheta is the Maxwellian temperature (MeV) used for fission
// channels that do not name a spectrum.
const defaultFissionTheta = 1.2895

// === AbsorptionPolicy ===

// AbsorptionPolicy is the set of reaction types treated as absorption when a
// nuclide partitions its reactions. Policies are values: building a policy
// from another never mutates the original, and nuclides built under a policy
// keep their partition for life.
type AbsorptionPolicy struct {
	types map[sim.ReactionType]bool
}

// NewAbsorptionPolicy creates a policy treating exactly types as absorption.
func NewAbsorptionPolicy(types ...sim.ReactionType) AbsorptionPolicy {
	p := AbsorptionPolicy{types: make(map[sim.ReactionType]bool, len(types))}
	for _, t := range types {
		p.types[t] = true
	}
	return p
}

// DefaultAbsorptionPolicy treats radiative capture and the charged-particle
// production channels as absorption.
func DefaultAbsorptionPolicy() AbsorptionPolicy {
	return NewAbsorptionPolicy(
		sim.NGammaReaction,
		sim.NPReaction,
		sim.NDReaction,
		sim.NTReaction,
		sim.NHe3Reaction,
		sim.NAlphaReaction,
		sim.N2AlphaReaction,
		sim.N2PReaction,
	)
}

// IsAbsorption reports whether t is treated as absorption.
func (p AbsorptionPolicy) IsAbsorption(t sim.ReactionType) bool {
	return p.types[t]
}

// With returns a copy of the policy that also treats types as absorption.
func (p AbsorptionPolicy) With(types ...sim.ReactionType) AbsorptionPolicy {
	return NewAbsorptionPolicy(append(p.Types(), types...)...)
}

// Without returns a copy of the policy that no longer treats types as absorption.
func (p AbsorptionPolicy) Without(types ...sim.ReactionType) AbsorptionPolicy {
	out := NewAbsorptionPolicy(p.Types()...)
	for _, t := range types {
		delete(out.types, t)
	}
	return out
}

// Types returns the policy's reaction types in ascending order.
func (p AbsorptionPolicy) Types() []sim.ReactionType {
	out := make([]sim.ReactionType, 0, len(p.types))
	for t := range p.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// === Parsed nuclear data ===

// ReactionData is one reaction block as handed over by a data parser.
type ReactionData struct {
	Type           sim.ReactionType
	QValue         float64
	Multiplicity   int           // fixed neutron multiplicity; ignored when NuBar is set
	NuBar          *interp.Table // energy-dependent mean multiplicity
	ThresholdIndex int
	CrossSection   []float64

	// Scattering overrides the distribution chosen from the reaction type.
	Scattering ScatteringDistribution
}

// NuclideData is the parsed data for one nuclide at one temperature.
type NuclideData struct {
	Name              string
	AtomicNumber      int
	AtomicMassNumber  int
	IsomerNumber      int
	AtomicWeightRatio float64
	Temperature       float64 // MeV
	EnergyGrid        []float64
	// TotalCrossSection is the tabulated total used to validate the
	// reaction set. When nil the summed total is trusted.
	TotalCrossSection []float64
	Reactions         []ReactionData
}

// === NuclideFactory ===

// NuclideFactory builds nuclides under a fixed absorption policy.
// Factories with different policies may be used concurrently.
type NuclideFactory struct {
	Policy AbsorptionPolicy
}

// NewNuclideFactory returns a factory using policy.
func NewNuclideFactory(policy AbsorptionPolicy) *NuclideFactory {
	return &NuclideFactory{Policy: policy}
}

// CreateNuclide validates data, builds its reactions, partitions them and
// checks the summed total cross section.
func (f *NuclideFactory) CreateNuclide(data NuclideData) (*Nuclide, error) {
	if data.Name == "" {
		return nil, fmt.Errorf("%w: nuclide has no name", ErrInvalidNuclide)
	}
	if data.AtomicWeightRatio <= 0 {
		return nil, fmt.Errorf("%w: %s has atomic weight ratio %g", ErrInvalidNuclide, data.Name, data.AtomicWeightRatio)
	}
	if data.Temperature < 0 {
		return nil, fmt.Errorf("%w: %s has temperature %g", ErrInvalidNuclide, data.Name, data.Temperature)
	}
	if len(data.Reactions) == 0 {
		return nil, fmt.Errorf("%w: %s has no reactions", ErrInvalidNuclide, data.Name)
	}
	grid, err := NewEnergyGrid(data.EnergyGrid)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidNuclide, data.Name, err)
	}
	if data.TotalCrossSection != nil && len(data.TotalCrossSection) != grid.Len() {
		return nil, fmt.Errorf("%w: %s total cross section has %d values for a %d point grid",
			ErrInvalidNuclide, data.Name, len(data.TotalCrossSection), grid.Len())
	}

	hasLevels, hasPartialFission := false, false
	for _, rd := range data.Reactions {
		hasLevels = hasLevels || rd.Type.IsLevelInelastic()
		hasPartialFission = hasPartialFission || rd.Type.IsPartialFission()
	}

	n := &Nuclide{
		name:                data.Name,
		atomicNumber:        data.AtomicNumber,
		atomicMassNumber:    data.AtomicMassNumber,
		isomerNumber:        data.IsomerNumber,
		awr:                 data.AtomicWeightRatio,
		temperature:         data.Temperature,
		grid:                grid,
		scatteringReactions: make(map[sim.ReactionType]*NuclearReaction),
		absorptionReactions: make(map[sim.ReactionType]*NuclearReaction),
		miscReactions:       make(map[sim.ReactionType]*NuclearReaction),
	}

	for _, rd := range data.Reactions {
		class := f.classify(rd.Type, hasLevels, hasPartialFission)
		r, err := f.createReaction(rd, class, grid, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", data.Name, err)
		}
		target := n.mapFor(class)
		if _, dup := n.scatteringReactions[rd.Type]; dup {
			return nil, fmt.Errorf("%w: %s lists %s twice", ErrInvalidNuclide, data.Name, rd.Type)
		}
		if _, dup := n.absorptionReactions[rd.Type]; dup {
			return nil, fmt.Errorf("%w: %s lists %s twice", ErrInvalidNuclide, data.Name, rd.Type)
		}
		if _, dup := n.miscReactions[rd.Type]; dup {
			return nil, fmt.Errorf("%w: %s lists %s twice", ErrInvalidNuclide, data.Name, rd.Type)
		}
		target[rd.Type] = r
	}
	if len(n.scatteringReactions) == 0 && len(n.absorptionReactions) == 0 {
		return nil, fmt.Errorf("%w: %s has only redundant reactions", ErrInvalidNuclide, data.Name)
	}

	n.scatteringOrder = sortedReactions(n.scatteringReactions)
	n.absorptionOrder = sortedReactions(n.absorptionReactions)
	n.absorption = n.sumOverGrid(n.absorptionOrder)
	n.scattering = n.sumOverGrid(n.scatteringOrder)
	n.total = make([]float64, grid.Len())
	floats.AddTo(n.total, n.absorption, n.scattering)

	if data.TotalCrossSection == nil {
		logrus.Debugf("nuclide %s: no tabulated total, using summed total", data.Name)
		return n, nil
	}
	for i, want := range data.TotalCrossSection {
		if !scalar.EqualWithinRel(n.total[i], want, TotalCrossSectionTolerance) {
			return nil, fmt.Errorf("%w: %s at E=%g MeV: summed %.12g, tabulated %.12g",
				ErrInconsistentTotal, data.Name, grid.At(i), n.total[i], want)
		}
	}
	return n, nil
}

type reactionClass int

const (
	scatteringClass reactionClass = iota
	absorptionClass
	miscClass
)

func (f *NuclideFactory) classify(t sim.ReactionType, hasLevels, hasPartialFission bool) reactionClass {
	switch {
	case f.Policy.IsAbsorption(t):
		return absorptionClass
	case t.IsRedundant():
		return miscClass
	case t == sim.TotalInelastic && hasLevels:
		return miscClass
	case t == sim.TotalFission && hasPartialFission:
		return miscClass
	}
	return scatteringClass
}

func (f *NuclideFactory) createReaction(rd ReactionData, class reactionClass, grid *EnergyGrid, data NuclideData) (*NuclearReaction, error) {
	// Channels without outgoing neutrons (capture, charged-particle
	// emission) keep a multiplicity of 0 and terminate the particle when
	// the policy moves them out of absorption.
	var mult Multiplicity = FixedMultiplicity(rd.Multiplicity)
	if rd.NuBar != nil {
		mult = TabulatedMultiplicity{NuBar: rd.NuBar}
	}

	scattering := rd.Scattering
	if scattering == nil {
		scattering = defaultScattering(rd.Type, data.AtomicWeightRatio, rd.QValue)
	}
	fission := rd.Type == sim.TotalFission || rd.Type.IsPartialFission()

	return NewNuclearReaction(ReactionConfig{
		Type:                      rd.Type,
		QValue:                    rd.QValue,
		Multiplicity:              mult,
		ThresholdIndex:            rd.ThresholdIndex,
		Grid:                      grid,
		CrossSection:              rd.CrossSection,
		Scattering:                scattering,
		Temperature:               data.Temperature,
		IncrementCollisionNumber:  class == scatteringClass,
		IncrementGenerationNumber: fission,
	})
}

func defaultScattering(t sim.ReactionType, awr, qValue float64) ScatteringDistribution {
	switch {
	case t == sim.ElasticReaction:
		return ElasticScattering{AtomicWeightRatio: awr}
	case t.IsLevelInelastic():
		return LevelInelasticScattering{AtomicWeightRatio: awr, QValue: qValue}
	case t == sim.TotalFission || t.IsPartialFission():
		return FissionSpectrum{Theta: defaultFissionTheta}
	}
	return IsotropicScattering{}
}

func sortedReactions(m map[sim.ReactionType]*NuclearReaction) []*NuclearReaction {
	out := make([]*NuclearReaction, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].rtype < out[j].rtype })
	return out
}

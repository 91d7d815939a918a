package collision

import (
	"fmt"
	"math"

	"github.com/transport-sim/transport-sim/sim"
)

// ReactionConfig carries the pre-parsed data for one reaction channel.
type ReactionConfig struct {
	Type           sim.ReactionType
	QValue         float64 // MeV
	Multiplicity   Multiplicity
	ThresholdIndex int
	Grid           *EnergyGrid
	CrossSection   []float64 // barns, aligned to Grid[ThresholdIndex:]
	Scattering     ScatteringDistribution
	Temperature    float64 // MeV

	IncrementCollisionNumber  bool
	IncrementGenerationNumber bool
}

// NuclearReaction is one reaction channel of one nuclide.
// Immutable after construction and safe for concurrent use.
type NuclearReaction struct {
	rtype          sim.ReactionType
	qValue         float64
	multiplicity   Multiplicity
	thresholdIndex int
	grid           *EnergyGrid
	xs             []float64
	scattering     ScatteringDistribution
	temperature    float64

	incrementCollision  bool
	incrementGeneration bool
}

// NewNuclearReaction validates cfg and builds the reaction.
func NewNuclearReaction(cfg ReactionConfig) (*NuclearReaction, error) {
	if math.IsNaN(cfg.QValue) || math.IsInf(cfg.QValue, 0) {
		return nil, fmt.Errorf("%w: %s has non-finite Q-value %g", ErrInvalidReaction, cfg.Type, cfg.QValue)
	}
	if cfg.Multiplicity == nil {
		return nil, fmt.Errorf("%w: %s has no multiplicity", ErrInvalidReaction, cfg.Type)
	}
	// A zero multiplicity emits no neutron, which only elastic scattering cannot do.
	if m, ok := cfg.Multiplicity.(FixedMultiplicity); ok && (m < 0 || m == 0 && cfg.Type == sim.ElasticReaction) {
		return nil, fmt.Errorf("%w: %s has multiplicity %d", ErrInvalidReaction, cfg.Type, int(m))
	}
	if cfg.Grid == nil {
		return nil, fmt.Errorf("%w: %s has no energy grid", ErrInvalidReaction, cfg.Type)
	}
	if len(cfg.CrossSection) == 0 {
		return nil, fmt.Errorf("%w: %s has an empty cross section", ErrInvalidReaction, cfg.Type)
	}
	if cfg.Scattering == nil {
		return nil, fmt.Errorf("%w: %s has no scattering distribution", ErrInvalidReaction, cfg.Type)
	}
	if cfg.ThresholdIndex < 0 || cfg.ThresholdIndex >= cfg.Grid.Len() {
		return nil, fmt.Errorf("%w: %s threshold index %d outside grid of %d points",
			ErrInvalidReaction, cfg.Type, cfg.ThresholdIndex, cfg.Grid.Len())
	}
	if want := cfg.Grid.Len() - cfg.ThresholdIndex; len(cfg.CrossSection) != want {
		return nil, fmt.Errorf("%w: %s has %d cross section values, want %d",
			ErrInvalidReaction, cfg.Type, len(cfg.CrossSection), want)
	}
	for i, v := range cfg.CrossSection {
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %s cross section[%d] = %g", ErrInvalidReaction, cfg.Type, i, v)
		}
	}
	return &NuclearReaction{
		rtype:               cfg.Type,
		qValue:              cfg.QValue,
		multiplicity:        cfg.Multiplicity,
		thresholdIndex:      cfg.ThresholdIndex,
		grid:                cfg.Grid,
		xs:                  append([]float64(nil), cfg.CrossSection...),
		scattering:          cfg.Scattering,
		temperature:         cfg.Temperature,
		incrementCollision:  cfg.IncrementCollisionNumber,
		incrementGeneration: cfg.IncrementGenerationNumber,
	}, nil
}

func (r *NuclearReaction) Type() sim.ReactionType { return r.rtype }

func (r *NuclearReaction) QValue() float64 { return r.qValue }

func (r *NuclearReaction) ThresholdIndex() int { return r.thresholdIndex }

// ThresholdEnergy is the lowest energy with a tabulated cross section.
func (r *NuclearReaction) ThresholdEnergy() float64 { return r.grid.At(r.thresholdIndex) }

func (r *NuclearReaction) Temperature() float64 { return r.temperature }

// CrossSection returns the microscopic cross section (barns) at energy.
func (r *NuclearReaction) CrossSection(energy float64) float64 {
	return r.grid.evaluate(r.thresholdIndex, r.xs, energy)
}

// crossSectionAt returns the tabulated value at absolute grid index i.
func (r *NuclearReaction) crossSectionAt(i int) float64 {
	if i < r.thresholdIndex {
		return 0
	}
	return r.xs[i-r.thresholdIndex]
}

// NumberOfEmittedNeutrons samples the multiplicity at energy.
func (r *NuclearReaction) NumberOfEmittedNeutrons(energy float64, rng sim.RandomStream) int {
	return r.multiplicity.Emitted(energy, rng)
}

// React applies the reaction to p. Secondaries are pushed to bank tagged with
// the reaction type. p is marked gone when it is replaced by a new-generation
// state or when no neutron leaves the reaction.
func (r *NuclearReaction) React(p *sim.ParticleState, bank *sim.ParticleBank, rng sim.RandomStream) {
	n := r.NumberOfEmittedNeutrons(p.Energy, rng)
	if n <= 0 {
		p.SetGone()
		return
	}

	for i := 0; i < n-1; i++ {
		bank.PushFromReaction(r.emit(p, rng), r.rtype)
	}

	if r.incrementGeneration {
		bank.PushFromReaction(r.emit(p, rng), r.rtype)
		p.SetGone()
		return
	}
	if r.incrementCollision {
		p.IncrementCollisionNumber()
	}
	r.scattering.Scatter(p, r.temperature, rng)
}

func (r *NuclearReaction) emit(p *sim.ParticleState, rng sim.RandomStream) *sim.ParticleState {
	c := p.Clone()
	if r.incrementCollision {
		c.IncrementCollisionNumber()
	}
	if r.incrementGeneration {
		c.IncrementGenerationNumber()
	}
	r.scattering.Scatter(c, r.temperature, rng)
	return c
}

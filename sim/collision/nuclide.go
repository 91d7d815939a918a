package collision

import (
	"fmt"
	"math"
	"sort"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

// samplingSlack is the relative amount by which a scaled draw may exceed the
// final partial sum before sampling is declared failed. It absorbs rounding
// in the summation order only.
const samplingSlack = 1e-12

// Nuclide aggregates the reactions of one isotope at one temperature.
// Built by NuclideFactory; immutable afterwards and safe for concurrent use.
type Nuclide struct {
	name             string
	atomicNumber     int
	atomicMassNumber int
	isomerNumber     int
	awr              float64
	temperature      float64

	grid       *EnergyGrid
	total      []float64
	absorption []float64
	scattering []float64

	scatteringReactions map[sim.ReactionType]*NuclearReaction
	absorptionReactions map[sim.ReactionType]*NuclearReaction
	miscReactions       map[sim.ReactionType]*NuclearReaction

	// sampling order, ascending reaction type
	scatteringOrder []*NuclearReaction
	absorptionOrder []*NuclearReaction
}

func (n *Nuclide) Name() string               { return n.name }
func (n *Nuclide) AtomicNumber() int          { return n.atomicNumber }
func (n *Nuclide) AtomicMassNumber() int      { return n.atomicMassNumber }
func (n *Nuclide) IsomerNumber() int          { return n.isomerNumber }
func (n *Nuclide) AtomicWeightRatio() float64 { return n.awr }
func (n *Nuclide) Temperature() float64       { return n.temperature }
func (n *Nuclide) EnergyGrid() *EnergyGrid    { return n.grid }

func (n *Nuclide) String() string {
	return fmt.Sprintf("Nuclide: (name: %s, Z: %d, A: %d, awr: %g, reactions: %d)",
		n.name, n.atomicNumber, n.atomicMassNumber, n.awr,
		len(n.scatteringReactions)+len(n.absorptionReactions)+len(n.miscReactions))
}

// TotalCrossSection returns the microscopic total cross section (barns).
func (n *Nuclide) TotalCrossSection(energy float64) float64 {
	return n.grid.evaluate(0, n.total, energy)
}

// AbsorptionCrossSection returns the summed absorption cross section (barns).
func (n *Nuclide) AbsorptionCrossSection(energy float64) float64 {
	return n.grid.evaluate(0, n.absorption, energy)
}

// SurvivalProbability returns 1 - absorption/total, clamped into [0,1].
// A nuclide with no cross section at energy never absorbs.
func (n *Nuclide) SurvivalProbability(energy float64) float64 {
	total := n.TotalCrossSection(energy)
	if total <= 0 {
		return 1
	}
	return clampProbability(1 - n.AbsorptionCrossSection(energy)/total)
}

// ReactionCrossSection returns the cross section of reaction t, the total for
// sim.TotalReaction, or 0 when the nuclide does not have the reaction.
func (n *Nuclide) ReactionCrossSection(energy float64, t sim.ReactionType) float64 {
	if t == sim.TotalReaction {
		return n.TotalCrossSection(energy)
	}
	if r := n.Reaction(t); r != nil {
		return r.CrossSection(energy)
	}
	return 0
}

// Reaction returns the reaction of type t, or nil.
func (n *Nuclide) Reaction(t sim.ReactionType) *NuclearReaction {
	if r, ok := n.scatteringReactions[t]; ok {
		return r
	}
	if r, ok := n.absorptionReactions[t]; ok {
		return r
	}
	return n.miscReactions[t]
}

// ReactionTypes returns every reaction type present, ascending.
func (n *Nuclide) ReactionTypes() []sim.ReactionType {
	out := append(n.ScatteringReactionTypes(), n.AbsorptionReactionTypes()...)
	out = append(out, n.MiscellaneousReactionTypes()...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (n *Nuclide) ScatteringReactionTypes() []sim.ReactionType {
	return typesOf(n.scatteringReactions)
}

func (n *Nuclide) AbsorptionReactionTypes() []sim.ReactionType {
	return typesOf(n.absorptionReactions)
}

func (n *Nuclide) MiscellaneousReactionTypes() []sim.ReactionType {
	return typesOf(n.miscReactions)
}

// CollideAnalogue samples absorption against scattering with a single draw.
// An absorbed particle is always terminated after its reaction fires.
func (n *Nuclide) CollideAnalogue(p *sim.ParticleState, bank *sim.ParticleBank, rng sim.RandomStream) error {
	bin, err := n.gridBin(p.Energy)
	if err != nil {
		return err
	}
	total := n.binnedValue(n.total, bin, p.Energy)
	absorption := n.binnedValue(n.absorption, bin, p.Energy)

	draw := rng.Float64() * total
	if draw < absorption {
		r, err := n.sampleReaction(n.absorptionOrder, bin, p.Energy, draw)
		if err != nil {
			return err
		}
		r.React(p, bank, rng)
		p.SetGone()
		return nil
	}

	r, err := n.sampleReaction(n.scatteringOrder, bin, p.Energy, draw-absorption)
	if err != nil {
		return err
	}
	r.React(p, bank, rng)
	return nil
}

// CollideSurvivalBias never absorbs: the weight is multiplied by the survival
// probability and a scattering reaction is always sampled. A particle with
// zero survival probability is terminated.
func (n *Nuclide) CollideSurvivalBias(p *sim.ParticleState, bank *sim.ParticleBank, rng sim.RandomStream) error {
	bin, err := n.gridBin(p.Energy)
	if err != nil {
		return err
	}
	total := n.binnedValue(n.total, bin, p.Energy)
	absorption := n.binnedValue(n.absorption, bin, p.Energy)
	scattering := n.binnedValue(n.scattering, bin, p.Energy)

	survival := 1.0
	if total > 0 {
		survival = clampProbability(1 - absorption/total)
	}
	if survival == 0 {
		p.SetGone()
		return nil
	}
	p.MultiplyWeight(survival)

	r, err := n.sampleReaction(n.scatteringOrder, bin, p.Energy, rng.Float64()*scattering)
	if err != nil {
		return err
	}
	r.React(p, bank, rng)
	return nil
}

// gridBin locates energy on the nuclide grid.
func (n *Nuclide) gridBin(energy float64) (int, error) {
	if !n.grid.Contains(energy) {
		return 0, fmt.Errorf("%w: %s has no data at %g MeV (grid [%g, %g])",
			ErrSamplingFailure, n.name, energy, n.grid.Min(), n.grid.Max())
	}
	return interp.BinarySearchContinuous(n.grid.points, energy), nil
}

// binnedValue interpolates values (aligned to the full grid) inside bin.
func (n *Nuclide) binnedValue(values []float64, bin int, energy float64) float64 {
	return interp.LinLin.Interpolate(n.grid.At(bin), n.grid.At(bin+1), energy, values[bin], values[bin+1])
}

// sampleReaction walks reactions accumulating their cross sections within the
// same grid bin used for the summed arrays, so partial sums match the cached
// totals even across reaction thresholds.
func (n *Nuclide) sampleReaction(reactions []*NuclearReaction, bin int, energy, draw float64) (*NuclearReaction, error) {
	e0, e1 := n.grid.At(bin), n.grid.At(bin+1)
	partial := 0.0
	var last *NuclearReaction
	for _, r := range reactions {
		xs := interp.LinLin.Interpolate(e0, e1, energy, r.crossSectionAt(bin), r.crossSectionAt(bin+1))
		if xs <= 0 {
			continue
		}
		partial += xs
		last = r
		if draw < partial {
			return r, nil
		}
	}
	if last != nil && draw-partial <= samplingSlack*partial {
		return last, nil
	}
	return nil, fmt.Errorf("%w: %s at %g MeV: draw %.12g not below partial sum %.12g",
		ErrSamplingFailure, n.name, energy, draw, partial)
}

func (n *Nuclide) sumOverGrid(reactions []*NuclearReaction) []float64 {
	out := make([]float64, n.grid.Len())
	for i := range out {
		for _, r := range reactions {
			out[i] += r.crossSectionAt(i)
		}
	}
	return out
}

func (n *Nuclide) mapFor(c reactionClass) map[sim.ReactionType]*NuclearReaction {
	switch c {
	case absorptionClass:
		return n.absorptionReactions
	case miscClass:
		return n.miscReactions
	}
	return n.scatteringReactions
}

func typesOf(m map[sim.ReactionType]*NuclearReaction) []sim.ReactionType {
	out := make([]sim.ReactionType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func clampProbability(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

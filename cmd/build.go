package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/collision"
	"github.com/transport-sim/transport-sim/sim/estimator"
	"github.com/transport-sim/transport-sim/sim/event"
	"github.com/transport-sim/transport-sim/sim/geometry"
	"github.com/transport-sim/transport-sim/sim/interp"
	"github.com/transport-sim/transport-sim/sim/trace"
	"github.com/transport-sim/transport-sim/sim/transport"
)

// World is the immutable part of a problem shared by every process.
type World struct {
	Geometry  *geometry.SlabStack
	Materials map[sim.CellID]*collision.NeutronMaterial
	Source    transport.Source
}

// BuildWorld builds the nuclear data, materials, geometry and source.
func BuildWorld(p *Problem) (*World, error) {
	factory := collision.NewNuclideFactory(policyFor(p.AbsorptionPolicy))
	nuclides := make(map[string]*collision.Nuclide, len(p.Nuclides))
	for _, ns := range p.Nuclides {
		data, err := nuclideData(ns)
		if err != nil {
			return nil, err
		}
		n, err := factory.CreateNuclide(data)
		if err != nil {
			return nil, err
		}
		nuclides[ns.Name] = n
		logrus.Debugf("nuclide %s: %d reactions", n.Name(), len(n.ReactionTypes()))
	}

	materials := make(map[int64]*collision.NeutronMaterial, len(p.Materials))
	for _, ms := range p.Materials {
		m, err := buildMaterial(ms, nuclides)
		if err != nil {
			return nil, err
		}
		materials[ms.ID] = m
	}

	cells := make([]sim.CellID, len(p.Geometry.Cells))
	fill := make(map[sim.CellID]*collision.NeutronMaterial)
	for i, c := range p.Geometry.Cells {
		cells[i] = sim.CellID(c.ID)
		if c.Material != 0 {
			fill[cells[i]] = materials[c.Material]
		}
	}
	surfaces := make([]sim.SurfaceID, len(p.Geometry.Surfaces))
	for i, s := range p.Geometry.Surfaces {
		surfaces[i] = sim.SurfaceID(s)
	}
	g, err := geometry.NewSlabStack(p.Geometry.Planes, cells, surfaces)
	if err != nil {
		return nil, err
	}

	src, err := buildSource(p.Source)
	if err != nil {
		return nil, err
	}
	return &World{Geometry: g, Materials: fill, Source: src}, nil
}

func policyFor(ps *PolicySpec) collision.AbsorptionPolicy {
	if ps == nil {
		return collision.DefaultAbsorptionPolicy()
	}
	policy := collision.DefaultAbsorptionPolicy()
	if len(ps.Types) > 0 {
		policy = collision.NewAbsorptionPolicy(reactionTypes(ps.Types)...)
	}
	return policy.With(reactionTypes(ps.Add)...).Without(reactionTypes(ps.Remove)...)
}

func reactionTypes(mts []int) []sim.ReactionType {
	out := make([]sim.ReactionType, len(mts))
	for i, mt := range mts {
		out[i] = sim.ReactionType(mt)
	}
	return out
}

func nuclideData(ns NuclideSpec) (collision.NuclideData, error) {
	data := collision.NuclideData{
		Name:              ns.Name,
		AtomicNumber:      ns.AtomicNumber,
		AtomicMassNumber:  ns.AtomicMassNumber,
		IsomerNumber:      ns.IsomerNumber,
		AtomicWeightRatio: ns.AtomicWeightRatio,
		Temperature:       ns.Temperature,
		EnergyGrid:        ns.EnergyGrid,
		TotalCrossSection: ns.TotalCrossSection,
		Reactions:         make([]collision.ReactionData, len(ns.Reactions)),
	}
	for i, rs := range ns.Reactions {
		data.Reactions[i] = collision.ReactionData{
			Type:           sim.ReactionType(rs.MT),
			QValue:         rs.QValue,
			Multiplicity:   rs.Multiplicity,
			ThresholdIndex: rs.ThresholdIndex,
			CrossSection:   rs.CrossSection,
		}
		if rs.NuBar != nil {
			t, err := buildTable(*rs.NuBar)
			if err != nil {
				return data, fmt.Errorf("nuclide %s mt %d nu_bar: %w", ns.Name, rs.MT, err)
			}
			data.Reactions[i].NuBar = t
		}
		if rs.Scattering != nil {
			s, err := collision.NewScatteringDistribution(rs.Scattering.Kind, ns.AtomicWeightRatio, rs.QValue, rs.Scattering.Theta)
			if err != nil {
				return data, fmt.Errorf("nuclide %s mt %d: %w", ns.Name, rs.MT, err)
			}
			data.Reactions[i].Scattering = s
		}
	}
	return data, nil
}

func buildTable(ts TableSpec) (*interp.Table, error) {
	law := interp.LinLin
	if ts.Law != "" {
		var err error
		if law, err = interp.ParseLaw(ts.Law); err != nil {
			return nil, err
		}
	}
	return interp.NewTable(ts.Energies, ts.Values, law)
}

func buildMaterial(ms MaterialSpec, nuclides map[string]*collision.Nuclide) (*collision.NeutronMaterial, error) {
	if ms.Density > 0 {
		ns := make([]*collision.Nuclide, len(ms.Nuclides))
		fractions := make([]float64, len(ms.Nuclides))
		for i, c := range ms.Nuclides {
			ns[i] = nuclides[c.Name]
			fractions[i] = c.Fraction
		}
		return collision.NewNeutronMaterialFromFractions(ms.ID, ms.Density, ns, fractions)
	}
	components := make([]collision.MaterialComponent, len(ms.Nuclides))
	for i, c := range ms.Nuclides {
		components[i] = collision.MaterialComponent{Nuclide: nuclides[c.Name], NumberDensity: c.NumberDensity}
	}
	return collision.NewNeutronMaterial(ms.ID, components)
}

func buildSource(ss SourceSpec) (transport.Source, error) {
	t, err := sim.ParseParticleType(ss.Particle)
	if err != nil {
		return nil, err
	}
	pos := r3.Vec{X: ss.Position[0], Y: ss.Position[1], Z: ss.Position[2]}
	var dir r3.Vec
	if len(ss.Direction) == 3 {
		dir = r3.Vec{X: ss.Direction[0], Y: ss.Direction[1], Z: ss.Direction[2]}
	}
	return transport.NewPointSource(ss.ID, t, pos, ss.Energy, dir)
}

// BuildHandler creates fresh estimators and registers them with a new
// handler. Each process builds its own, with identical ids.
func BuildHandler(p *Problem, w *World) (*event.Handler, error) {
	ids := sim.NewIDAllocator()
	h := event.NewHandler()
	for i, es := range p.Estimators {
		est, err := buildEstimator(ids, es, w.Geometry)
		if err != nil {
			return nil, fmt.Errorf("estimators[%d]: %w", i, err)
		}
		if err := h.AddEstimator(est); err != nil {
			return nil, fmt.Errorf("estimators[%d]: %w", i, err)
		}
	}
	return h, nil
}

func buildEstimator(ids *sim.IDAllocator, es EstimatorSpec, g *geometry.SlabStack) (estimator.Estimator, error) {
	cfg, err := estimatorConfig(es)
	if err != nil {
		return nil, err
	}
	cells := make([]sim.CellID, len(es.Cells))
	volumes := make([]float64, len(es.Cells))
	for i, c := range es.Cells {
		cells[i] = sim.CellID(c)
		if volumes[i], err = g.Volume(cells[i]); err != nil {
			return nil, err
		}
	}
	surfaces := make([]sim.SurfaceID, len(es.Surfaces))
	areas := make([]float64, len(es.Surfaces))
	for i, s := range es.Surfaces {
		surfaces[i] = sim.SurfaceID(s)
		areas[i] = g.Area(surfaces[i])
	}

	switch es.Type {
	case estimator.KindCellTrackLengthFlux:
		return estimator.NewCellTrackLengthFluxEstimator(ids, cfg, cells, volumes)
	case estimator.KindCellCollisionFlux:
		return estimator.NewCellCollisionFluxEstimator(ids, cfg, cells, volumes)
	case estimator.KindCellPulseHeight:
		return estimator.NewCellPulseHeightEstimator(ids, cfg, cells)
	case estimator.KindSurfaceFlux:
		return estimator.NewSurfaceFluxEstimator(ids, cfg, surfaces, areas, es.CosineCutoff)
	case estimator.KindSurfaceCurrent:
		return estimator.NewSurfaceCurrentEstimator(ids, cfg, surfaces)
	}
	return nil, fmt.Errorf("%w: unknown type %q", estimator.ErrInvalidEstimator, es.Type)
}

func estimatorConfig(es EstimatorSpec) (estimator.Config, error) {
	cfg := estimator.Config{ID: es.ID, Multiplier: es.Multiplier}
	if cfg.Multiplier == 0 {
		cfg.Multiplier = 1
	}
	for _, name := range es.Particles {
		t, err := sim.ParseParticleType(name)
		if err != nil {
			return cfg, err
		}
		cfg.ParticleTypes = append(cfg.ParticleTypes, t)
	}
	contribution, err := estimator.ParseContributionMultiplier(es.Contribution)
	if err != nil {
		return cfg, err
	}
	cfg.Contribution = contribution

	for _, b := range es.Bins {
		dim, err := estimator.ParseDimension(b.Dimension)
		if err != nil {
			return cfg, err
		}
		var d estimator.DimensionDiscretization
		if len(b.UpperBounds) > 0 {
			d, err = estimator.NewIntegerDiscretization(dim, b.UpperBounds)
		} else {
			d, err = estimator.NewContinuousDiscretization(dim, b.Bounds)
		}
		if err != nil {
			return cfg, err
		}
		cfg.Discretizations = append(cfg.Discretizations, d)
	}
	for _, rs := range es.Responses {
		t, err := buildTable(rs.Table)
		if err != nil {
			return cfg, fmt.Errorf("response %q: %w", rs.Name, err)
		}
		r, err := estimator.NewEnergyResponse(rs.Name, t)
		if err != nil {
			return cfg, err
		}
		cfg.ResponseFunctions = append(cfg.ResponseFunctions, r)
	}
	return cfg, nil
}

// transportConfig merges the run section with the CLI overrides.
func transportConfig(rs RunSpec, o runOptions) transport.Config {
	cfg := transport.Config{
		Histories:      rs.Histories,
		Threads:        rs.Threads,
		Seed:           rs.Seed,
		SurvivalBias:   rs.SurvivalBias,
		WeightCutoff:   rs.WeightCutoff,
		WeightSurvival: rs.WeightSurvival,
		MaxCollisions:  rs.MaxCollisions,
	}
	if rs.Trace != nil {
		cfg.Trace = trace.TraceConfig{Level: trace.TraceLevel(rs.Trace.Level), MaxHistories: rs.Trace.MaxHistories}
	}
	if o.histories > 0 {
		cfg.Histories = o.histories
	}
	if o.threads > 0 {
		cfg.Threads = o.threads
	}
	if o.seedSet {
		cfg.Seed = o.seed
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
	return cfg
}

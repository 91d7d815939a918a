package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/estimator"
	"github.com/transport-sim/transport-sim/sim/trace"
)

// Problem is the YAML problem file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Problem struct {
	Run              RunSpec         `yaml:"run"`
	AbsorptionPolicy *PolicySpec     `yaml:"absorption_policy,omitempty"`
	Nuclides         []NuclideSpec   `yaml:"nuclides"`
	Materials        []MaterialSpec  `yaml:"materials"`
	Geometry         GeometrySpec    `yaml:"geometry"`
	Source           SourceSpec      `yaml:"source"`
	Estimators       []EstimatorSpec `yaml:"estimators"`
}

// RunSpec holds the run settings; CLI flags override them.
type RunSpec struct {
	Histories      uint64     `yaml:"histories"`
	Threads        int        `yaml:"threads"`
	Seed           int64      `yaml:"seed"`
	SurvivalBias   bool       `yaml:"survival_bias"`
	WeightCutoff   float64    `yaml:"weight_cutoff"`
	WeightSurvival float64    `yaml:"weight_survival"`
	MaxCollisions  int        `yaml:"max_collisions"`
	Trace          *TraceSpec `yaml:"trace,omitempty"`
}

type TraceSpec struct {
	Level        string `yaml:"level"`
	MaxHistories uint64 `yaml:"max_histories"`
}

// PolicySpec overrides the default absorption policy. Types replaces the
// default set; Add and Remove adjust it. MT numbers throughout.
type PolicySpec struct {
	Types  []int `yaml:"types"`
	Add    []int `yaml:"add"`
	Remove []int `yaml:"remove"`
}

type NuclideSpec struct {
	Name              string         `yaml:"name"`
	AtomicNumber      int            `yaml:"atomic_number"`
	AtomicMassNumber  int            `yaml:"atomic_mass_number"`
	IsomerNumber      int            `yaml:"isomer_number"`
	AtomicWeightRatio float64        `yaml:"atomic_weight_ratio"`
	Temperature       float64        `yaml:"temperature"`         // MeV
	EnergyGrid        []float64      `yaml:"energy_grid"`
	TotalCrossSection []float64      `yaml:"total_cross_section"`
	Reactions         []ReactionSpec `yaml:"reactions"`
}

type ReactionSpec struct {
	MT             int             `yaml:"mt"`
	QValue         float64         `yaml:"q_value"`
	Multiplicity   int             `yaml:"multiplicity"`
	NuBar          *TableSpec      `yaml:"nu_bar,omitempty"`
	ThresholdIndex int             `yaml:"threshold_index"`
	CrossSection   []float64       `yaml:"cross_section"`
	Scattering     *ScatteringSpec `yaml:"scattering,omitempty"`
}

// ScatteringSpec names a scattering law: elastic, level, fission or isotropic.
type ScatteringSpec struct {
	Kind  string  `yaml:"kind"`
	Theta float64 `yaml:"theta"` // fission spectrum temperature, MeV
}

// TableSpec is a tabulated function of energy.
type TableSpec struct {
	Energies []float64 `yaml:"energies"`
	Values   []float64 `yaml:"values"`
	Law      string    `yaml:"law"`
}

// MaterialSpec gives either a number density per nuclide, or a total
// density with atom fractions.
type MaterialSpec struct {
	ID       int64                   `yaml:"id"`
	Density  float64                 `yaml:"density"`
	Nuclides []MaterialComponentSpec `yaml:"nuclides"`
}

type MaterialComponentSpec struct {
	Name          string  `yaml:"name"`
	NumberDensity float64 `yaml:"number_density"`
	Fraction      float64 `yaml:"fraction"`
}

// GeometrySpec is a slab stack: len(Planes)-1 cells and len(Planes) surfaces.
type GeometrySpec struct {
	Planes   []float64  `yaml:"planes"`
	Cells    []CellSpec `yaml:"cells"`
	Surfaces []int64    `yaml:"surfaces"`
}

// CellSpec fills a cell. Material 0 is void.
type CellSpec struct {
	ID       int64 `yaml:"id"`
	Material int64 `yaml:"material"`
}

type SourceSpec struct {
	ID        int       `yaml:"id"`
	Particle  string    `yaml:"particle"`
	Position  []float64 `yaml:"position"`
	Direction []float64 `yaml:"direction"` // empty for isotropic
	Energy    float64   `yaml:"energy"`
}

type EstimatorSpec struct {
	ID           uint64         `yaml:"id"`
	Type         string         `yaml:"type"`
	Particles    []string       `yaml:"particles"`
	Multiplier   float64        `yaml:"multiplier"`
	Contribution string         `yaml:"contribution"`
	Cells        []int64        `yaml:"cells"`
	Surfaces     []int64        `yaml:"surfaces"`
	CosineCutoff float64        `yaml:"cosine_cutoff"`
	Bins         []BinSpec      `yaml:"bins"`
	Responses    []ResponseSpec `yaml:"responses"`
}

// BinSpec discretizes one dimension. Continuous dimensions take Bounds,
// integer dimensions take UpperBounds.
type BinSpec struct {
	Dimension   string    `yaml:"dimension"`
	Bounds      []float64 `yaml:"bounds"`
	UpperBounds []int     `yaml:"upper_bounds"`
}

type ResponseSpec struct {
	Name  string    `yaml:"name"`
	Table TableSpec `yaml:"table"`
}

// LoadProblem reads and strictly decodes a problem file, then validates it.
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	return ParseProblem(data)
}

// ParseProblem decodes a problem with strict field checking: typos must
// cause errors.
func ParseProblem(data []byte) (*Problem, error) {
	var p Problem
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing problem YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

var validEstimatorTypes = map[string]bool{
	estimator.KindCellTrackLengthFlux: true,
	estimator.KindCellCollisionFlux:   true,
	estimator.KindCellPulseHeight:     true,
	estimator.KindSurfaceFlux:         true,
	estimator.KindSurfaceCurrent:      true,
}

// Validate checks cross references and shapes that the builders cannot
// report with file context. Physics checks are left to the constructors.
func (p *Problem) Validate() error {
	if p.Run.Threads < 0 {
		return fmt.Errorf("run.threads must be non-negative, got %d", p.Run.Threads)
	}
	if p.Run.Trace != nil && !trace.IsValidTraceLevel(p.Run.Trace.Level) {
		return fmt.Errorf("run.trace.level %q is not one of none, histories, collisions", p.Run.Trace.Level)
	}

	nuclides := make(map[string]bool, len(p.Nuclides))
	for i, n := range p.Nuclides {
		if n.Name == "" {
			return fmt.Errorf("nuclides[%d]: missing name", i)
		}
		if nuclides[n.Name] {
			return fmt.Errorf("nuclides[%d]: duplicate name %q", i, n.Name)
		}
		nuclides[n.Name] = true
		for j, r := range n.Reactions {
			if r.MT <= 0 {
				return fmt.Errorf("nuclide %s reactions[%d]: mt must be positive, got %d", n.Name, j, r.MT)
			}
		}
	}

	materials := make(map[int64]bool, len(p.Materials))
	for i, m := range p.Materials {
		if m.ID <= 0 {
			return fmt.Errorf("materials[%d]: id must be positive, got %d", i, m.ID)
		}
		if materials[m.ID] {
			return fmt.Errorf("materials[%d]: duplicate id %d", i, m.ID)
		}
		materials[m.ID] = true
		if len(m.Nuclides) == 0 {
			return fmt.Errorf("material %d: no nuclides", m.ID)
		}
		for _, c := range m.Nuclides {
			if !nuclides[c.Name] {
				return fmt.Errorf("material %d: unknown nuclide %q", m.ID, c.Name)
			}
			if m.Density > 0 && c.NumberDensity != 0 {
				return fmt.Errorf("material %d: %s has a number density but the material uses fractions of a total density", m.ID, c.Name)
			}
		}
	}

	cells := make(map[int64]bool, len(p.Geometry.Cells))
	for i, c := range p.Geometry.Cells {
		if cells[c.ID] {
			return fmt.Errorf("geometry.cells[%d]: duplicate id %d", i, c.ID)
		}
		cells[c.ID] = true
		if c.Material != 0 && !materials[c.Material] {
			return fmt.Errorf("cell %d: unknown material %d", c.ID, c.Material)
		}
	}
	surfaces := make(map[int64]bool, len(p.Geometry.Surfaces))
	for _, s := range p.Geometry.Surfaces {
		surfaces[s] = true
	}

	particle, err := sim.ParseParticleType(p.Source.Particle)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if particle != sim.Neutron {
		for _, c := range p.Geometry.Cells {
			if c.Material != 0 {
				return fmt.Errorf("source.particle %s cannot cross material %d in cell %d: only neutron physics is available",
					particle, c.Material, c.ID)
			}
		}
	}
	if len(p.Source.Position) != 3 {
		return fmt.Errorf("source.position needs 3 coordinates, got %d", len(p.Source.Position))
	}
	if len(p.Source.Direction) != 0 && len(p.Source.Direction) != 3 {
		return fmt.Errorf("source.direction needs 3 components or none, got %d", len(p.Source.Direction))
	}

	for i, e := range p.Estimators {
		if !validEstimatorTypes[e.Type] {
			return fmt.Errorf("estimators[%d]: unknown type %q", i, e.Type)
		}
		for _, name := range e.Particles {
			if _, err := sim.ParseParticleType(name); err != nil {
				return fmt.Errorf("estimators[%d]: %w", i, err)
			}
		}
		for _, c := range e.Cells {
			if !cells[c] {
				return fmt.Errorf("estimators[%d]: unknown cell %d", i, c)
			}
		}
		for _, s := range e.Surfaces {
			if !surfaces[s] {
				return fmt.Errorf("estimators[%d]: unknown surface %d", i, s)
			}
		}
	}
	return nil
}

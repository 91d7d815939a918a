package estimator

import (
	"fmt"
	"math"
	"strings"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

// PhaseSpaceDimension names a coordinate contributions can be binned on.
type PhaseSpaceDimension int

const (
	EnergyDimension PhaseSpaceDimension = iota
	TimeDimension
	CollisionNumberDimension
	CosineDimension
	SourceIDDimension
)

var dimensionNames = map[PhaseSpaceDimension]string{
	EnergyDimension:          "energy",
	TimeDimension:            "time",
	CollisionNumberDimension: "collision_number",
	CosineDimension:          "cosine",
	SourceIDDimension:        "source_id",
}

func (d PhaseSpaceDimension) String() string {
	if name, ok := dimensionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dimension_%d", int(d))
}

// ParseDimension maps a configuration name to a dimension.
func ParseDimension(name string) (PhaseSpaceDimension, error) {
	for d, n := range dimensionNames {
		if n == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown phase-space dimension %q", ErrInvalidDiscretization, name)
}

// integral reports whether the dimension takes integer values.
func (d PhaseSpaceDimension) integral() bool {
	return d == CollisionNumberDimension || d == SourceIDDimension
}

// PhasePoint is the set of coordinates of one scoring event.
type PhasePoint struct {
	Energy          float64
	Time            float64
	CollisionNumber int
	Cosine          float64
	SourceID        int
}

// PointFromParticle takes the coordinates of p; cosine is the event's angle
// cosine and only meaningful for surface events.
func PointFromParticle(p *sim.ParticleState, cosine float64) PhasePoint {
	return PhasePoint{
		Energy:          p.Energy,
		Time:            p.Time,
		CollisionNumber: p.CollisionNumber,
		Cosine:          cosine,
		SourceID:        p.SourceID,
	}
}

// Value returns the coordinate of point along d.
func (d PhaseSpaceDimension) Value(point PhasePoint) float64 {
	switch d {
	case EnergyDimension:
		return point.Energy
	case TimeDimension:
		return point.Time
	case CollisionNumberDimension:
		return float64(point.CollisionNumber)
	case CosineDimension:
		return point.Cosine
	case SourceIDDimension:
		return float64(point.SourceID)
	}
	panic(fmt.Sprintf("unknown phase-space dimension %d", int(d)))
}

// DimensionDiscretization splits one dimension into bins.
type DimensionDiscretization interface {
	Dimension() PhaseSpaceDimension
	NumberOfBins() int
	// BinIndex returns the bin containing v, or false when v is outside.
	BinIndex(v float64) (int, bool)
	BinName(i int) string
}

// continuousDiscretization has n-1 bins [b_i, b_{i+1}) over n boundaries;
// the last bin is closed.
type continuousDiscretization struct {
	dim    PhaseSpaceDimension
	bounds []float64
}

// NewContinuousDiscretization builds a discretization from ascending boundaries.
func NewContinuousDiscretization(dim PhaseSpaceDimension, bounds []float64) (DimensionDiscretization, error) {
	if dim.integral() {
		return nil, fmt.Errorf("%w: %s takes integer bounds", ErrInvalidDiscretization, dim)
	}
	if len(bounds) < 2 {
		return nil, fmt.Errorf("%w: %s needs at least 2 boundaries, got %d", ErrInvalidDiscretization, dim, len(bounds))
	}
	if !interp.IsAscending(bounds) {
		return nil, fmt.Errorf("%w: %s boundaries are not strictly ascending", ErrInvalidDiscretization, dim)
	}
	if dim == CosineDimension && (bounds[0] < -1 || bounds[len(bounds)-1] > 1) {
		return nil, fmt.Errorf("%w: cosine boundaries must lie in [-1, 1]", ErrInvalidDiscretization)
	}
	return &continuousDiscretization{dim: dim, bounds: append([]float64(nil), bounds...)}, nil
}

func (c *continuousDiscretization) Dimension() PhaseSpaceDimension { return c.dim }

func (c *continuousDiscretization) NumberOfBins() int { return len(c.bounds) - 1 }

func (c *continuousDiscretization) BinIndex(v float64) (int, bool) {
	if v < c.bounds[0] || v > c.bounds[len(c.bounds)-1] || math.IsNaN(v) {
		return 0, false
	}
	return interp.BinarySearchContinuous(c.bounds, v), true
}

func (c *continuousDiscretization) BinName(i int) string {
	closing := ")"
	if i == len(c.bounds)-2 {
		closing = "]"
	}
	return fmt.Sprintf("%s [%g, %g%s", c.dim, c.bounds[i], c.bounds[i+1], closing)
}

// integerDiscretization bins integer values by ascending inclusive upper
// bounds: bin 0 is [0, u0], bin i is (u_{i-1}, u_i].
type integerDiscretization struct {
	dim    PhaseSpaceDimension
	bounds []float64
}

// NewIntegerDiscretization builds a discretization for an integer dimension.
func NewIntegerDiscretization(dim PhaseSpaceDimension, upperBounds []int) (DimensionDiscretization, error) {
	if !dim.integral() {
		return nil, fmt.Errorf("%w: %s takes continuous bounds", ErrInvalidDiscretization, dim)
	}
	if len(upperBounds) == 0 {
		return nil, fmt.Errorf("%w: %s needs at least 1 bound", ErrInvalidDiscretization, dim)
	}
	bounds := make([]float64, len(upperBounds))
	for i, b := range upperBounds {
		bounds[i] = float64(b)
	}
	if bounds[0] < 0 || !interp.IsAscending(bounds) {
		return nil, fmt.Errorf("%w: %s bounds must be non-negative and strictly ascending", ErrInvalidDiscretization, dim)
	}
	return &integerDiscretization{dim: dim, bounds: bounds}, nil
}

func (c *integerDiscretization) Dimension() PhaseSpaceDimension { return c.dim }

func (c *integerDiscretization) NumberOfBins() int { return len(c.bounds) }

func (c *integerDiscretization) BinIndex(v float64) (int, bool) {
	if v < 0 || v > c.bounds[len(c.bounds)-1] {
		return 0, false
	}
	return interp.BinarySearchDiscrete(c.bounds, v), true
}

func (c *integerDiscretization) BinName(i int) string {
	lo := 0.0
	if i > 0 {
		lo = c.bounds[i-1] + 1
	}
	return fmt.Sprintf("%s [%g, %g]", c.dim, lo, c.bounds[i])
}

// PhaseSpaceDiscretization combines dimension discretizations into a
// row-major composite bin index; the dimension assigned last varies fastest.
type PhaseSpaceDiscretization struct {
	dims []DimensionDiscretization
}

func NewPhaseSpaceDiscretization() *PhaseSpaceDiscretization {
	return &PhaseSpaceDiscretization{}
}

// Assign adds a dimension. A dimension may only be assigned once.
func (p *PhaseSpaceDiscretization) Assign(d DimensionDiscretization) error {
	if p.IsAssigned(d.Dimension()) {
		return fmt.Errorf("%w: %s is already discretized", ErrInvalidDiscretization, d.Dimension())
	}
	p.dims = append(p.dims, d)
	return nil
}

func (p *PhaseSpaceDiscretization) IsAssigned(dim PhaseSpaceDimension) bool {
	for _, d := range p.dims {
		if d.Dimension() == dim {
			return true
		}
	}
	return false
}

// Dimensions returns the assigned dimensions in assignment order.
func (p *PhaseSpaceDiscretization) Dimensions() []PhaseSpaceDimension {
	out := make([]PhaseSpaceDimension, len(p.dims))
	for i, d := range p.dims {
		out[i] = d.Dimension()
	}
	return out
}

// NumberOfBins is the product of the per-dimension bin counts (1 when empty).
func (p *PhaseSpaceDiscretization) NumberOfBins() int {
	n := 1
	for _, d := range p.dims {
		n *= d.NumberOfBins()
	}
	return n
}

// BinIndex returns the composite index of point, or false when any
// coordinate falls outside its discretization.
func (p *PhaseSpaceDiscretization) BinIndex(point PhasePoint) (int, bool) {
	index := 0
	for _, d := range p.dims {
		i, ok := d.BinIndex(d.Dimension().Value(point))
		if !ok {
			return 0, false
		}
		index = index*d.NumberOfBins() + i
	}
	return index, true
}

// BinName describes composite bin index.
func (p *PhaseSpaceDiscretization) BinName(index int) string {
	if len(p.dims) == 0 {
		return "all"
	}
	parts := make([]string, len(p.dims))
	for k := len(p.dims) - 1; k >= 0; k-- {
		n := p.dims[k].NumberOfBins()
		parts[k] = p.dims[k].BinName(index % n)
		index /= n
	}
	return strings.Join(parts, ", ")
}

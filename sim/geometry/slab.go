// Package geometry provides a reference Navigator: a stack of infinite slabs
// normal to the x axis. Each slab is one cell and each plane one surface.
// Slab volumes are per unit transverse area (cm^3 per cm^2), plane areas are 1.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

var (
	ErrInvalidGeometry = errors.New("geometry: invalid geometry")
	ErrPointOutside    = errors.New("geometry: point outside the model")
	ErrUnknownCell     = errors.New("geometry: unknown cell")
)

// planeTolerance is the distance within which a point lies on a plane (cm).
const planeTolerance = 1e-10

// SlabStack is an immutable slab geometry, safe for concurrent use.
type SlabStack struct {
	planes   []float64       // ascending x positions
	cells    []sim.CellID    // cells[i] lies between planes[i] and planes[i+1]
	surfaces []sim.SurfaceID // surfaces[i] is the plane at planes[i]
	index    map[sim.CellID]int
}

// NewSlabStack builds len(planes)-1 slabs. planes must be strictly ascending.
func NewSlabStack(planes []float64, cells []sim.CellID, surfaces []sim.SurfaceID) (*SlabStack, error) {
	if len(planes) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 planes, got %d", ErrInvalidGeometry, len(planes))
	}
	if !interp.IsAscending(planes) {
		return nil, fmt.Errorf("%w: plane positions are not strictly ascending", ErrInvalidGeometry)
	}
	if len(cells) != len(planes)-1 {
		return nil, fmt.Errorf("%w: %d planes bound %d slabs, got %d cells", ErrInvalidGeometry, len(planes), len(planes)-1, len(cells))
	}
	if len(surfaces) != len(planes) {
		return nil, fmt.Errorf("%w: %d planes, got %d surfaces", ErrInvalidGeometry, len(planes), len(surfaces))
	}
	index := make(map[sim.CellID]int, len(cells))
	for i, c := range cells {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("%w: cell %d appears twice", ErrInvalidGeometry, c)
		}
		index[c] = i
	}
	seen := make(map[sim.SurfaceID]bool, len(surfaces))
	for _, s := range surfaces {
		if seen[s] {
			return nil, fmt.Errorf("%w: surface %d appears twice", ErrInvalidGeometry, s)
		}
		seen[s] = true
	}
	return &SlabStack{
		planes:   append([]float64(nil), planes...),
		cells:    append([]sim.CellID(nil), cells...),
		surfaces: append([]sim.SurfaceID(nil), surfaces...),
		index:    index,
	}, nil
}

// Cells returns the cells from low to high x.
func (g *SlabStack) Cells() []sim.CellID { return append([]sim.CellID(nil), g.cells...) }

// Surfaces returns the surfaces from low to high x.
func (g *SlabStack) Surfaces() []sim.SurfaceID { return append([]sim.SurfaceID(nil), g.surfaces...) }

// Volume returns the thickness of cell.
func (g *SlabStack) Volume(cell sim.CellID) (float64, error) {
	i, ok := g.index[cell]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownCell, cell)
	}
	return g.planes[i+1] - g.planes[i], nil
}

// Area returns the area per unit transverse area of a plane, always 1.
func (g *SlabStack) Area(sim.SurfaceID) float64 { return 1 }

// FindCellContainingRay returns the slab containing the ray origin. On a
// plane, the slab the ray is heading into is chosen.
func (g *SlabStack) FindCellContainingRay(ray sim.Ray, candidates []sim.CellID) (sim.CellID, error) {
	cell, ok := g.locate(ray)
	if !ok {
		return 0, fmt.Errorf("%w: x = %g", ErrPointOutside, ray.Position.X)
	}
	if len(candidates) == 0 {
		return cell, nil
	}
	for _, c := range candidates {
		if c == cell {
			return cell, nil
		}
	}
	return 0, fmt.Errorf("%w: x = %g is in cell %d, not in any of %v", ErrPointOutside, ray.Position.X, cell, candidates)
}

func (g *SlabStack) locate(ray sim.Ray) (sim.CellID, bool) {
	x := ray.Position.X
	n := len(g.planes)
	if x < g.planes[0]-planeTolerance || x > g.planes[n-1]+planeTolerance {
		return 0, false
	}
	clamped := math.Min(math.Max(x, g.planes[0]), g.planes[n-1])
	i := interp.BinarySearchContinuous(g.planes, clamped)

	// nudge off a plane in the direction of travel
	if math.Abs(x-g.planes[i]) <= planeTolerance && ray.Direction.X < 0 {
		i--
	} else if math.Abs(x-g.planes[i+1]) <= planeTolerance && ray.Direction.X > 0 {
		i++
	}
	if i < 0 || i >= len(g.cells) {
		return 0, false
	}
	return g.cells[i], true
}

// PointLocation classifies the ray origin with respect to cell.
func (g *SlabStack) PointLocation(ray sim.Ray, cell sim.CellID) sim.PointLocation {
	i, ok := g.index[cell]
	if !ok {
		return sim.PointOutside
	}
	x := ray.Position.X
	lo, hi := g.planes[i], g.planes[i+1]
	switch {
	case math.Abs(x-lo) <= planeTolerance || math.Abs(x-hi) <= planeTolerance:
		return sim.PointOnSurface
	case x > lo && x < hi:
		return sim.PointInside
	default:
		return sim.PointOutside
	}
}

// FireRay returns the plane the ray reaches first from inside cell. A ray
// parallel to the planes never leaves and reports an infinite distance.
func (g *SlabStack) FireRay(ray sim.Ray, cell sim.CellID) (sim.RayHit, error) {
	i, ok := g.index[cell]
	if !ok {
		return sim.RayHit{}, fmt.Errorf("%w: %d", ErrUnknownCell, cell)
	}
	u := ray.Direction.X
	switch {
	case u > 0:
		hit := sim.RayHit{
			Distance: math.Max(0, (g.planes[i+1]-ray.Position.X)/u),
			Surface:  g.surfaces[i+1],
			Normal:   r3.Vec{X: 1},
		}
		if i+1 < len(g.cells) {
			hit.NextCell = g.cells[i+1]
		} else {
			hit.Escaped = true
		}
		return hit, nil
	case u < 0:
		hit := sim.RayHit{
			Distance: math.Max(0, (g.planes[i]-ray.Position.X)/u),
			Surface:  g.surfaces[i],
			Normal:   r3.Vec{X: -1},
		}
		if i > 0 {
			hit.NextCell = g.cells[i-1]
		} else {
			hit.Escaped = true
		}
		return hit, nil
	default:
		return sim.RayHit{Distance: math.Inf(1), NextCell: cell}, nil
	}
}

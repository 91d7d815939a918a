package collision

import (
	"fmt"

	"github.com/transport-sim/transport-sim/sim/interp"
)

// EnergyGrid is a strictly ascending incident-energy grid (MeV) shared
// read-only by a nuclide and all of its reactions.
type EnergyGrid struct {
	points []float64
}

// NewEnergyGrid validates and copies the grid points.
func NewEnergyGrid(points []float64) (*EnergyGrid, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: energy grid needs at least 2 points, got %d", ErrInvalidReaction, len(points))
	}
	if !interp.IsAscending(points) {
		return nil, fmt.Errorf("%w: energy grid is not strictly ascending", ErrInvalidReaction)
	}
	if points[0] <= 0 {
		return nil, fmt.Errorf("%w: energy grid must be positive, starts at %g", ErrInvalidReaction, points[0])
	}
	return &EnergyGrid{points: append([]float64(nil), points...)}, nil
}

func (g *EnergyGrid) Len() int { return len(g.points) }

func (g *EnergyGrid) At(i int) float64 { return g.points[i] }

func (g *EnergyGrid) Min() float64 { return g.points[0] }

func (g *EnergyGrid) Max() float64 { return g.points[len(g.points)-1] }

// Contains reports whether e lies within [Min, Max].
func (g *EnergyGrid) Contains(e float64) bool {
	return e >= g.points[0] && e <= g.points[len(g.points)-1]
}

// evaluate interpolates values tabulated on points[offset:] (lin-lin).
// Returns 0 below points[offset] or above the grid, and the last value
// exactly at the top.
func (g *EnergyGrid) evaluate(offset int, values []float64, e float64) float64 {
	n := len(g.points)
	if e < g.points[offset] || e > g.points[n-1] {
		return 0
	}
	if e == g.points[n-1] {
		return values[len(values)-1]
	}
	sub := g.points[offset:]
	i := interp.BinarySearchContinuous(sub, e)
	return interp.LinLin.Interpolate(sub[i], sub[i+1], e, values[i], values[i+1])
}

package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
)

// threeSlabs: cells 1|2|3 between planes at x = 0, 1, 3, 6 (surfaces 10..13).
func threeSlabs(t *testing.T) *SlabStack {
	t.Helper()
	g, err := NewSlabStack([]float64{0, 1, 3, 6}, []sim.CellID{1, 2, 3}, []sim.SurfaceID{10, 11, 12, 13})
	require.NoError(t, err)
	return g
}

func ray(x, u float64) sim.Ray {
	return sim.Ray{Position: r3.Vec{X: x}, Direction: r3.Unit(r3.Vec{X: u, Y: math.Sqrt(1 - u*u)})}
}

func TestNewSlabStack_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		planes   []float64
		cells    []sim.CellID
		surfaces []sim.SurfaceID
	}{
		{"one plane", []float64{0}, nil, []sim.SurfaceID{1}},
		{"descending", []float64{1, 0}, []sim.CellID{1}, []sim.SurfaceID{1, 2}},
		{"cell count", []float64{0, 1}, []sim.CellID{1, 2}, []sim.SurfaceID{1, 2}},
		{"surface count", []float64{0, 1}, []sim.CellID{1}, []sim.SurfaceID{1}},
		{"duplicate cell", []float64{0, 1, 2}, []sim.CellID{1, 1}, []sim.SurfaceID{1, 2, 3}},
		{"duplicate surface", []float64{0, 1}, []sim.CellID{1}, []sim.SurfaceID{1, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSlabStack(tc.planes, tc.cells, tc.surfaces)
			assert.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestSlabStack_FindCellContainingRay(t *testing.T) {
	g := threeSlabs(t)

	tests := []struct {
		name string
		x, u float64
		want sim.CellID
	}{
		{"inside first", 0.5, 1, 1},
		{"inside last", 5, -1, 3},
		{"on plane heading right", 1, 0.5, 2},
		{"on plane heading left", 1, -0.5, 1},
		{"on outer plane heading in", 0, 1, 1},
		{"on plane parallel", 3, 0, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := g.FindCellContainingRay(ray(tc.x, tc.u), nil)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := g.FindCellContainingRay(ray(-1, 1), nil)
	assert.ErrorIs(t, err, ErrPointOutside)
	_, err = g.FindCellContainingRay(ray(6, 1), nil)
	assert.ErrorIs(t, err, ErrPointOutside)

	got, err := g.FindCellContainingRay(ray(2, 1), []sim.CellID{1, 2})
	require.NoError(t, err)
	assert.Equal(t, sim.CellID(2), got)
	_, err = g.FindCellContainingRay(ray(2, 1), []sim.CellID{3})
	assert.ErrorIs(t, err, ErrPointOutside)
}

func TestSlabStack_PointLocation(t *testing.T) {
	g := threeSlabs(t)

	assert.Equal(t, sim.PointInside, g.PointLocation(ray(2, 1), 2))
	assert.Equal(t, sim.PointOnSurface, g.PointLocation(ray(3, 1), 2))
	assert.Equal(t, sim.PointOutside, g.PointLocation(ray(4, 1), 2))
	assert.Equal(t, sim.PointOutside, g.PointLocation(ray(2, 1), 99))
}

func TestSlabStack_FireRay(t *testing.T) {
	g := threeSlabs(t)

	// heading right at 60 degrees from the x axis
	hit, err := g.FireRay(ray(1.5, 0.5), 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, hit.Distance, 1e-12)
	assert.Equal(t, sim.SurfaceID(12), hit.Surface)
	assert.Equal(t, sim.CellID(3), hit.NextCell)
	assert.False(t, hit.Escaped)
	assert.Equal(t, r3.Vec{X: 1}, hit.Normal)

	// leaving the model on the left
	hit, err = g.FireRay(ray(0.25, -1), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, hit.Distance, 1e-12)
	assert.Equal(t, sim.SurfaceID(10), hit.Surface)
	assert.True(t, hit.Escaped)
	assert.Equal(t, r3.Vec{X: -1}, hit.Normal)

	// leaving on the right
	hit, err = g.FireRay(ray(4, 1), 3)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, hit.Distance, 1e-12)
	assert.True(t, hit.Escaped)

	// parallel to the planes
	hit, err = g.FireRay(ray(2, 0), 2)
	require.NoError(t, err)
	assert.True(t, math.IsInf(hit.Distance, 1))

	_, err = g.FireRay(ray(2, 1), 42)
	assert.ErrorIs(t, err, ErrUnknownCell)
}

func TestSlabStack_VolumesAndAreas(t *testing.T) {
	g := threeSlabs(t)

	v, err := g.Volume(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
	_, err = g.Volume(7)
	assert.ErrorIs(t, err, ErrUnknownCell)
	assert.Equal(t, 1.0, g.Area(11))
	assert.Equal(t, []sim.CellID{1, 2, 3}, g.Cells())
	assert.Equal(t, []sim.SurfaceID{10, 11, 12, 13}, g.Surfaces())
}

func TestSlabStack_ImplementsNavigator(t *testing.T) {
	var _ sim.Navigator = threeSlabs(t)
}

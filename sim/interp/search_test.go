package interp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarySearchContinuous_BracketsValue(t *testing.T) {
	grid := []float64{1e-11, 1e-8, 1e-5, 0.1, 1.0, 2.0, 5.0, 20.0}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 1000; i++ {
		v := grid[0] + rng.Float64()*(grid[len(grid)-1]-grid[0])
		idx := BinarySearchContinuous(grid, v)
		require.True(t, idx >= 0 && idx < len(grid)-1, "index %d out of range", idx)
		if !(grid[idx] <= v && v <= grid[idx+1]) {
			t.Fatalf("value %v not bracketed by [%v, %v]", v, grid[idx], grid[idx+1])
		}
	}
}

func TestBinarySearchContinuous_GridPoints(t *testing.T) {
	grid := []float64{0, 1, 2, 3, 4}
	tests := []struct {
		name  string
		value float64
		want  int
	}{
		{"first point", 0, 0},
		{"interior point", 2, 2},
		{"inside bin", 2.5, 2},
		{"last point gives final bracket", 4, 3},
		{"just below last point", 3.999, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BinarySearchContinuous(grid, tt.value))
		})
	}
}

func TestBinarySearchContinuous_TwoPointGrid(t *testing.T) {
	grid := []float64{1, 2}
	assert.Equal(t, 0, BinarySearchContinuous(grid, 1))
	assert.Equal(t, 0, BinarySearchContinuous(grid, 1.5))
	assert.Equal(t, 0, BinarySearchContinuous(grid, 2))
}

func TestBinarySearchContinuous_OutOfRangePanics(t *testing.T) {
	grid := []float64{1, 2, 3}
	assert.Panics(t, func() { BinarySearchContinuous(grid, 0.5) })
	assert.Panics(t, func() { BinarySearchContinuous(grid, 3.5) })
	assert.Panics(t, func() { BinarySearchContinuous([]float64{1}, 1) })
}

func TestBinarySearchDiscrete_UpperBoundSemantics(t *testing.T) {
	// CDF-like data: 2, 4, 6, 8, 10
	cdf := []float64{2, 4, 6, 8, 10}
	tests := []struct {
		value float64
		want  int
	}{
		{0, 0}, {1, 0}, {2, 0},
		{3, 1}, {4, 1},
		{5, 2}, {6, 2},
		{7, 3}, {8, 3},
		{9, 4}, {10, 4},
	}

	for _, tt := range tests {
		got := BinarySearchDiscrete(cdf, tt.value)
		if got != tt.want {
			t.Errorf("BinarySearchDiscrete(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestBinarySearchDiscrete_AboveLastPanics(t *testing.T) {
	assert.Panics(t, func() { BinarySearchDiscrete([]float64{0.5, 1.0}, 1.5) })
	assert.Panics(t, func() { BinarySearchDiscrete(nil, 0) })
}

func TestIsAscending(t *testing.T) {
	assert.True(t, IsAscending([]float64{1, 2, 3}))
	assert.True(t, IsAscending([]float64{1}))
	assert.False(t, IsAscending([]float64{1, 1, 3}))
	assert.False(t, IsAscending([]float64{3, 2}))
}

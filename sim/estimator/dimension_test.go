package estimator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContinuousDiscretization_Bins(t *testing.T) {
	d, err := NewContinuousDiscretization(EnergyDimension, []float64{0, 1, 10})
	require.NoError(t, err)
	require.Equal(t, 2, d.NumberOfBins())

	tests := []struct {
		value  float64
		want   int
		inside bool
	}{
		{0, 0, true},
		{0.5, 0, true},
		{1, 1, true},  // lower edge belongs to the upper bin
		{10, 1, true}, // last bin is closed
		{-0.1, 0, false},
		{10.1, 0, false},
	}
	for _, tc := range tests {
		got, ok := d.BinIndex(tc.value)
		assert.Equal(t, tc.inside, ok, "value %g", tc.value)
		if tc.inside {
			assert.Equal(t, tc.want, got, "value %g", tc.value)
		}
	}
	assert.Equal(t, "energy [1, 10]", d.BinName(1))
}

func TestContinuousDiscretization_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		dim    PhaseSpaceDimension
		bounds []float64
	}{
		{"single boundary", EnergyDimension, []float64{1}},
		{"not ascending", EnergyDimension, []float64{0, 2, 1}},
		{"repeated boundary", TimeDimension, []float64{0, 1, 1}},
		{"cosine below -1", CosineDimension, []float64{-1.5, 0, 1}},
		{"integer dimension", CollisionNumberDimension, []float64{0, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewContinuousDiscretization(tc.dim, tc.bounds)
			assert.True(t, errors.Is(err, ErrInvalidDiscretization), "got %v", err)
		})
	}
}

func TestIntegerDiscretization_UpperBounds(t *testing.T) {
	d, err := NewIntegerDiscretization(CollisionNumberDimension, []int{0, 1, 5})
	require.NoError(t, err)

	for v, want := range map[float64]int{0: 0, 1: 1, 2: 2, 5: 2} {
		got, ok := d.BinIndex(v)
		require.True(t, ok)
		assert.Equal(t, want, got, "collision number %g", v)
	}
	_, ok := d.BinIndex(6)
	assert.False(t, ok)
	assert.Equal(t, "collision_number [2, 5]", d.BinName(2))

	_, err = NewIntegerDiscretization(EnergyDimension, []int{1})
	assert.ErrorIs(t, err, ErrInvalidDiscretization)
	_, err = NewIntegerDiscretization(SourceIDDimension, []int{2, 2})
	assert.ErrorIs(t, err, ErrInvalidDiscretization)
}

func TestPhaseSpaceDiscretization_RowMajorIndex(t *testing.T) {
	// GIVEN energy (3 bins) assigned before collision number (2 bins)
	p := NewPhaseSpaceDiscretization()
	energy, err := NewContinuousDiscretization(EnergyDimension, []float64{0, 1, 2, 3})
	require.NoError(t, err)
	collisions, err := NewIntegerDiscretization(CollisionNumberDimension, []int{0, 10})
	require.NoError(t, err)
	require.NoError(t, p.Assign(energy))
	require.NoError(t, p.Assign(collisions))

	assert.Equal(t, 6, p.NumberOfBins())
	assert.Equal(t, []PhaseSpaceDimension{EnergyDimension, CollisionNumberDimension}, p.Dimensions())

	// THEN the last assigned dimension varies fastest
	idx, ok := p.BinIndex(PhasePoint{Energy: 1.5, CollisionNumber: 3})
	require.True(t, ok)
	assert.Equal(t, 1*2+1, idx)
	idx, ok = p.BinIndex(PhasePoint{Energy: 2.5, CollisionNumber: 0})
	require.True(t, ok)
	assert.Equal(t, 4, idx)
	assert.Equal(t, "energy [2, 3], collision_number [0, 0]", p.BinName(4))

	_, ok = p.BinIndex(PhasePoint{Energy: 1.5, CollisionNumber: 11})
	assert.False(t, ok)

	// AND a dimension cannot be assigned twice
	assert.ErrorIs(t, p.Assign(energy), ErrInvalidDiscretization)
}

func TestPhaseSpaceDiscretization_Empty(t *testing.T) {
	p := NewPhaseSpaceDiscretization()
	idx, ok := p.BinIndex(PhasePoint{Energy: 1e6})
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, p.NumberOfBins())
	assert.Equal(t, "all", p.BinName(0))
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("cosine")
	require.NoError(t, err)
	assert.Equal(t, CosineDimension, d)

	_, err = ParseDimension("spin")
	assert.ErrorIs(t, err, ErrInvalidDiscretization)
}

package interp

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name   string
		xs, ys []float64
		law    Law
	}{
		{"too few points", []float64{1}, []float64{1}, LinLin},
		{"length mismatch", []float64{1, 2}, []float64{1}, LinLin},
		{"not ascending", []float64{2, 1}, []float64{1, 1}, LinLin},
		{"log axis with zero x", []float64{0, 1}, []float64{1, 1}, LogLog},
		{"log axis with zero y", []float64{1, 2}, []float64{0, 1}, LogLin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.xs, tt.ys, tt.law)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTable))
		})
	}
}

func TestTable_Eval(t *testing.T) {
	table, err := NewTable([]float64{1, 2, 4}, []float64{10, 20, 40}, LinLin)
	require.NoError(t, err)

	assert.Equal(t, 0.0, table.Eval(0.5), "below grid")
	assert.Equal(t, 10.0, table.Eval(1))
	assert.InDelta(t, 15.0, table.Eval(1.5), 1e-12)
	assert.Equal(t, 20.0, table.Eval(2))
	assert.InDelta(t, 30.0, table.Eval(3), 1e-12)
	assert.Equal(t, 40.0, table.Eval(4), "top of grid is exact")
	assert.Equal(t, 0.0, table.Eval(4.0001), "above grid")
}

func TestTable_EvalClamped(t *testing.T) {
	table, err := NewTable([]float64{1, 2}, []float64{2.5, 3.0}, LinLin)
	require.NoError(t, err)

	assert.Equal(t, 2.5, table.EvalClamped(0.1))
	assert.Equal(t, 3.0, table.EvalClamped(100))
	assert.InDelta(t, 2.75, table.EvalClamped(1.5), 1e-12)
}

func TestTable_LogLogPowerLawIsExact(t *testing.T) {
	// y = x^2 is a straight line on log-log axes
	xs := []float64{1, 10, 100}
	ys := []float64{1, 100, 10000}
	table, err := NewTable(xs, ys, LogLog)
	require.NoError(t, err)

	for _, x := range []float64{2, 3.7, 50} {
		assert.InEpsilon(t, math.Pow(x, 2), table.Eval(x), 1e-12)
	}
	lo, hi := table.Domain()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 100.0, hi)
	assert.Equal(t, LogLog, table.Law())
	assert.Equal(t, 3, table.Len())
}

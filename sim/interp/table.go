package interp

import (
	"errors"
	"fmt"
)

// ErrInvalidTable is returned when a table cannot be built from its points.
var ErrInvalidTable = errors.New("interp: invalid table")

// Table is a tabulated function y(x) evaluated with one interpolation law.
// Processed values and slopes are computed once at construction.
//
// Lookups are O(log n). A Table is immutable and safe for concurrent use.
type Table struct {
	law    Law
	xs, ys []float64
	px, py []float64
	slopes []float64
}

// NewTable creates a table over the strictly ascending grid xs.
func NewTable(xs, ys []float64, law Law) (*Table, error) {
	if len(xs) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidTable, len(xs))
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("%w: %d grid points but %d values", ErrInvalidTable, len(xs), len(ys))
	}
	if !IsAscending(xs) {
		return nil, fmt.Errorf("%w: grid is not strictly ascending", ErrInvalidTable)
	}
	for i := range xs {
		if law.logIndep() && xs[i] <= 0 {
			return nil, fmt.Errorf("%w: %s law needs positive grid, got %g", ErrInvalidTable, law, xs[i])
		}
		if law.logDep() && ys[i] <= 0 {
			return nil, fmt.Errorf("%w: %s law needs positive values, got %g", ErrInvalidTable, law, ys[i])
		}
	}

	t := &Table{
		law:    law,
		xs:     append([]float64(nil), xs...),
		ys:     append([]float64(nil), ys...),
		px:     make([]float64, len(xs)),
		py:     make([]float64, len(xs)),
		slopes: make([]float64, len(xs)-1),
	}
	for i := range xs {
		t.px[i] = law.ProcessIndep(xs[i])
		t.py[i] = law.ProcessDep(ys[i])
	}
	for i := range t.slopes {
		t.slopes[i] = ProcessedSlope(t.px[i], t.px[i+1], t.py[i], t.py[i+1])
	}
	return t, nil
}

// Eval returns y(x). Outside the grid the table is zero; the top grid point
// returns the last value exactly.
func (t *Table) Eval(x float64) float64 {
	n := len(t.xs)
	if x < t.xs[0] || x > t.xs[n-1] {
		return 0
	}
	return t.evalInside(x)
}

// EvalClamped returns y(x), holding the edge values constant outside the grid.
func (t *Table) EvalClamped(x float64) float64 {
	n := len(t.xs)
	if x <= t.xs[0] {
		return t.ys[0]
	}
	if x >= t.xs[n-1] {
		return t.ys[n-1]
	}
	return t.evalInside(x)
}

func (t *Table) evalInside(x float64) float64 {
	n := len(t.xs)
	if x == t.xs[n-1] {
		return t.ys[n-1]
	}
	i := BinarySearchContinuous(t.xs, x)
	if x == t.xs[i] {
		return t.ys[i]
	}
	return t.law.InterpolateProcessed(t.px[i], t.law.ProcessIndep(x), t.py[i], t.slopes[i])
}

// Domain returns the first and last grid points.
func (t *Table) Domain() (lo, hi float64) {
	return t.xs[0], t.xs[len(t.xs)-1]
}

func (t *Table) Law() Law { return t.law }

func (t *Table) Len() int { return len(t.xs) }

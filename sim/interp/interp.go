// Package interp provides the stateless numerical primitives used by the
// collision kernel and the tallies: the four 1-D interpolation laws, binary
// search over ascending grids, and tabulated functions built from them.
//
// Every law comes in two forms. The raw form takes the bracketing points
// directly. The processed form takes values that have already been mapped
// onto the law's working axes (ln on log axes) plus a cached slope, so a
// table lookup costs at most one log and one exp.
package interp

import (
	"fmt"
	"math"
)

// Law is an interpolation scheme, named dependent-independent.
type Law int

const (
	LinLin Law = iota // y linear in x
	LogLin            // ln y linear in x
	LinLog            // y linear in ln x
	LogLog            // ln y linear in ln x
)

var lawNames = map[Law]string{
	LinLin: "lin-lin",
	LogLin: "log-lin",
	LinLog: "lin-log",
	LogLog: "log-log",
}

func (l Law) String() string {
	if name, ok := lawNames[l]; ok {
		return name
	}
	return fmt.Sprintf("law_%d", int(l))
}

// ParseLaw maps a configuration name ("lin-lin", ...) to a Law.
func ParseLaw(name string) (Law, error) {
	for l, n := range lawNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation law %q", name)
}

func (l Law) logIndep() bool { return l == LinLog || l == LogLog }

func (l Law) logDep() bool { return l == LogLin || l == LogLog }

// Interpolate returns y(x) for x in [x0,x1].
// The endpoints are returned exactly.
func (l Law) Interpolate(x0, x1, x, y0, y1 float64) float64 {
	if checks {
		l.checkPreconditions(x0, x1, x, y0, y1)
	}
	if x == x0 {
		return y0
	}
	if x == x1 {
		return y1
	}
	switch l {
	case LinLin:
		return y0 + (y1-y0)*(x-x0)/(x1-x0)
	case LogLin:
		return y0 * math.Pow(y1/y0, (x-x0)/(x1-x0))
	case LinLog:
		return y0 + (y1-y0)*math.Log(x/x0)/math.Log(x1/x0)
	case LogLog:
		return y0 * math.Pow(y1/y0, math.Log(x/x0)/math.Log(x1/x0))
	}
	panic(fmt.Sprintf("unknown interpolation law %d", int(l)))
}

// ProcessIndep maps x onto the law's independent working axis.
func (l Law) ProcessIndep(x float64) float64 {
	if l.logIndep() {
		return math.Log(x)
	}
	return x
}

// ProcessDep maps y onto the law's dependent working axis.
func (l Law) ProcessDep(y float64) float64 {
	if l.logDep() {
		return math.Log(y)
	}
	return y
}

// RecoverDep is the inverse of ProcessDep.
func (l Law) RecoverDep(py float64) float64 {
	if l.logDep() {
		return math.Exp(py)
	}
	return py
}

// ProcessedSlope returns the slope between two processed points.
func ProcessedSlope(px0, px1, py0, py1 float64) float64 {
	return (py1 - py0) / (px1 - px0)
}

// InterpolateProcessed evaluates the law from pre-processed values.
// px0 and px are processed independent values, py0 is the processed
// dependent value at px0 and slope is the cached ProcessedSlope.
func (l Law) InterpolateProcessed(px0, px, py0, slope float64) float64 {
	return l.RecoverDep(py0 + slope*(px-px0))
}

func (l Law) checkPreconditions(x0, x1, x, y0, y1 float64) {
	if !(x0 < x1) {
		panic(fmt.Sprintf("%s: precondition violated: x0 (%g) < x1 (%g)", l, x0, x1))
	}
	if x < x0 || x > x1 {
		panic(fmt.Sprintf("%s: precondition violated: x (%g) outside [%g, %g]", l, x, x0, x1))
	}
	if l.logIndep() && x0 <= 0 {
		panic(fmt.Sprintf("%s: precondition violated: x0 (%g) must be positive", l, x0))
	}
	if l.logDep() && (y0 <= 0 || y1 <= 0) {
		panic(fmt.Sprintf("%s: precondition violated: y0 (%g), y1 (%g) must be positive", l, y0, y1))
	}
}

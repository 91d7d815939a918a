package interp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

var allLaws = []Law{LinLin, LogLin, LinLog, LogLog}

func TestInterpolate_EndpointsAreExact(t *testing.T) {
	brackets := []struct {
		x0, x1, y0, y1 float64
	}{
		{0.1, 1.0, 5.0, 10.0},
		{1e-11, 20.0, 3.3, 0.7},
		{2.0, 2.5, 1e-8, 1e8},
		{1.0, 3.0, 7.0, 7.0},
	}

	for _, law := range allLaws {
		for _, b := range brackets {
			if got := law.Interpolate(b.x0, b.x1, b.x0, b.y0, b.y1); got != b.y0 {
				t.Errorf("%s: y(x0) = %v, want exactly %v", law, got, b.y0)
			}
			if got := law.Interpolate(b.x0, b.x1, b.x1, b.y0, b.y1); got != b.y1 {
				t.Errorf("%s: y(x1) = %v, want exactly %v", law, got, b.y1)
			}
		}
	}
}

func TestInterpolate_KnownValues(t *testing.T) {
	// bracket [1,10] x [1,25], evaluated at x = 5.5
	tests := []struct {
		law  Law
		want float64
	}{
		{LinLin, 13.0},
		{LogLin, 5.0},
		{LinLog, 1.0 + 24.0*math.Log(5.5)/math.Log(10.0)},
		{LogLog, math.Pow(25.0, math.Log(5.5)/math.Log(10.0))},
	}

	for _, tt := range tests {
		t.Run(tt.law.String(), func(t *testing.T) {
			got := tt.law.Interpolate(1.0, 10.0, 5.5, 1.0, 25.0)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestInterpolate_LinLinStaysBetweenEndpoints(t *testing.T) {
	for i := 0; i <= 100; i++ {
		x := 2.0 + 3.0*float64(i)/100
		y := LinLin.Interpolate(2.0, 5.0, x, 8.0, -4.0)
		if y > 8.0 || y < -4.0 {
			t.Fatalf("y(%v) = %v outside [-4, 8]", x, y)
		}
	}
}

func TestInterpolate_LogLogIsMonotonic(t *testing.T) {
	prev := LogLog.Interpolate(1e-3, 20.0, 1e-3, 0.5, 300.0)
	for i := 1; i <= 200; i++ {
		x := 1e-3 * math.Pow(20.0/1e-3, float64(i)/200)
		if x > 20.0 {
			x = 20.0
		}
		y := LogLog.Interpolate(1e-3, 20.0, x, 0.5, 300.0)
		if y < prev {
			t.Fatalf("log-log not monotonic at x=%v: %v < %v", x, y, prev)
		}
		prev = y
	}
}

func TestInterpolateProcessed_MatchesRawForm(t *testing.T) {
	x0, x1, y0, y1 := 0.5, 4.0, 2.0, 32.0
	for _, law := range allLaws {
		px0, px1 := law.ProcessIndep(x0), law.ProcessIndep(x1)
		py0, py1 := law.ProcessDep(y0), law.ProcessDep(y1)
		slope := ProcessedSlope(px0, px1, py0, py1)

		for _, x := range []float64{0.75, 1.0, 2.2, 3.9} {
			want := law.Interpolate(x0, x1, x, y0, y1)
			got := law.InterpolateProcessed(px0, law.ProcessIndep(x), py0, slope)
			assert.InEpsilon(t, want, got, 1e-12, "%s at x=%v", law, x)
		}
	}
}

func TestParseLaw(t *testing.T) {
	for _, law := range allLaws {
		got, err := ParseLaw(law.String())
		assert.NoError(t, err)
		assert.Equal(t, law, got)
	}
	_, err := ParseLaw("cubic")
	assert.Error(t, err)
}

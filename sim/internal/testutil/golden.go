// Package testutil provides shared test infrastructure for the transport
// simulator: golden moment datasets, float assertions and scripted random
// streams.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenMoments represents the structure of testdata/goldenmoments.json.
type GoldenMoments struct {
	Cases []GoldenMomentCase `json:"cases"`
}

// GoldenMomentCase is one set of raw moment sums with the statistics they
// must produce.
type GoldenMomentCase struct {
	Name      string      `json:"name"`
	Moments   [4]float64  `json:"moments"` // S1..S4
	Histories uint64      `json:"histories"`
	ElapsedS  float64     `json:"elapsed_s"`
	Want      GoldenStats `json:"want"`
}

// GoldenStats are the expected processed statistics of a case.
type GoldenStats struct {
	Mean          float64 `json:"mean"`
	Variance      float64 `json:"variance"`
	RelativeError float64 `json:"relative_error"`
	VOV           float64 `json:"vov"`
	FOM           float64 `json:"fom"`
}

// LoadGoldenMoments loads the golden moment dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenMoments(t *testing.T) *GoldenMoments {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldenmoments.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden moments: %v", err)
	}

	var dataset GoldenMoments
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden moments: %v", err)
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// SequenceStream replays a fixed list of random numbers and then repeats the
// last one. Used to force specific sampling branches.
type SequenceStream struct {
	Values []float64
	next   int
}

// NewSequenceStream returns a stream yielding values in order.
func NewSequenceStream(values ...float64) *SequenceStream {
	return &SequenceStream{Values: values}
}

func (s *SequenceStream) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	if s.next >= len(s.Values) {
		return s.Values[len(s.Values)-1]
	}
	v := s.Values[s.next]
	s.next++
	return v
}

// Drawn returns how many values have been consumed.
func (s *SequenceStream) Drawn() int { return s.next }

// Package estimator accumulates per-history tally contributions into moment
// collections and turns them into means, relative errors, variance of the
// variance and figures of merit.
//
// Scoring during a history happens in worker-private update trackers without
// locking. CommitHistoryContribution folds one worker's tracker into the
// shared moments under the estimator mutex, exactly once per history.
package estimator

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// MomentCollection stores running sums of the first Order powers of
// per-history scores for a fixed number of slots.
type MomentCollection struct {
	order int
	sums  [][]float64 // sums[k][slot] = sum of score^(k+1)
}

// NewMomentCollection creates a zeroed collection. order must be 2 or 4.
func NewMomentCollection(size, order int) *MomentCollection {
	if order != 2 && order != 4 {
		panic(fmt.Sprintf("moment collection order must be 2 or 4, got %d", order))
	}
	if size < 0 {
		panic(fmt.Sprintf("moment collection size must be non-negative, got %d", size))
	}
	m := &MomentCollection{order: order, sums: make([][]float64, order)}
	for k := range m.sums {
		m.sums[k] = make([]float64, size)
	}
	return m
}

func (m *MomentCollection) Size() int { return len(m.sums[0]) }

func (m *MomentCollection) Order() int { return m.order }

// AddHistoryScore adds one history's total score to slot.
func (m *MomentCollection) AddHistoryScore(slot int, score float64) {
	pow := score
	for k := 0; k < m.order; k++ {
		m.sums[k][slot] += pow
		pow *= score
	}
}

// Moment returns the k-th (1-based) moment sum of slot.
func (m *MomentCollection) Moment(k, slot int) float64 {
	return m.sums[k-1][slot]
}

// Moments returns a copy of the k-th (1-based) moment sums.
func (m *MomentCollection) Moments(k int) []float64 {
	return append([]float64(nil), m.sums[k-1]...)
}

// Reset zeroes every sum.
func (m *MomentCollection) Reset() {
	for _, s := range m.sums {
		for i := range s {
			s[i] = 0
		}
	}
}

// Resize changes the number of slots. All data is discarded.
func (m *MomentCollection) Resize(size int) {
	for k := range m.sums {
		m.sums[k] = make([]float64, size)
	}
}

// Add sums other into m elementwise.
func (m *MomentCollection) Add(other *MomentCollection) error {
	if other.order != m.order || other.Size() != m.Size() {
		return fmt.Errorf("cannot add moment collection (order %d, size %d) to (order %d, size %d)",
			other.order, other.Size(), m.order, m.Size())
	}
	for k := range m.sums {
		floats.Add(m.sums[k], other.sums[k])
	}
	return nil
}

// Clone returns an independent copy.
func (m *MomentCollection) Clone() *MomentCollection {
	c := &MomentCollection{order: m.order, sums: make([][]float64, m.order)}
	for k := range m.sums {
		c.sums[k] = append([]float64(nil), m.sums[k]...)
	}
	return c
}

// flatten appends the sums moment-major to buf.
func (m *MomentCollection) flatten(buf []float64) []float64 {
	for _, s := range m.sums {
		buf = append(buf, s...)
	}
	return buf
}

// load overwrites the sums from buf and returns the unread remainder.
func (m *MomentCollection) load(buf []float64) []float64 {
	for _, s := range m.sums {
		n := copy(s, buf)
		buf = buf[n:]
	}
	return buf
}

// flatLen is the number of values flatten appends.
func (m *MomentCollection) flatLen() int { return m.order * m.Size() }

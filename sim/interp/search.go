package interp

import "fmt"

// BinarySearchContinuous returns the lower bracket index i of value in the
// ascending grid xs, such that xs[i] <= value <= xs[i+1].
//
// Searching for the last grid point returns len(xs)-2, the final bracket.
// Panics if xs has fewer than two points or value lies outside the grid.
func BinarySearchContinuous(xs []float64, value float64) int {
	n := len(xs)
	if n < 2 {
		panic(fmt.Sprintf("binary search needs at least 2 grid points, got %d", n))
	}
	if value < xs[0] || value > xs[n-1] {
		panic(fmt.Sprintf("search value %g outside grid [%g, %g]", value, xs[0], xs[n-1]))
	}

	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if value >= xs[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// BinarySearchDiscrete returns the smallest index i with value <= xs[i].
//
// Discrete (CDF-like) data closes bins on the upper boundary: a value lying
// exactly on xs[i] belongs to bin i, a value strictly greater moves the search
// window up. Panics if xs is empty or value exceeds the last point.
func BinarySearchDiscrete(xs []float64, value float64) int {
	n := len(xs)
	if n == 0 {
		panic("binary search on empty data")
	}
	if value > xs[n-1] {
		panic(fmt.Sprintf("search value %g above last point %g", value, xs[n-1]))
	}

	lo, hi := 0, n-1
	for lo < hi {
		mid := lo + (hi-lo)/2
		if value > xs[mid] {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// IsAscending reports whether xs is strictly increasing.
func IsAscending(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

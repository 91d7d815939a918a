package estimator

import (
	"math"
	"time"
)

// RunStatistics describes the run whose moments are being processed.
type RunStatistics struct {
	Histories uint64
	Elapsed   time.Duration
}

// Mean returns S1/N.
func Mean(s1 float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	return s1 / float64(n)
}

// Variance returns the unbiased sample variance (S2 - S1^2/N)/(N-1).
func Variance(s1, s2 float64, n uint64) float64 {
	if n < 2 {
		return 0
	}
	N := float64(n)
	return math.Max(0, (s2-s1*s1/N)/(N-1))
}

// RelativeError returns sqrt(Var/N)/Mean, or 0 when nothing was scored.
func RelativeError(s1, s2 float64, n uint64) float64 {
	if s1 == 0 || n < 2 {
		return 0
	}
	return math.Sqrt(Variance(s1, s2, n)/float64(n)) / math.Abs(Mean(s1, n))
}

// RelativeVOV returns the relative variance of the variance:
//
//	(S4 - 4 S1 S3/N + 6 S1^2 S2/N^2 - 3 S1^4/N^3) / (S2 - S1^2/N)^2 - 1/N
func RelativeVOV(s1, s2, s3, s4 float64, n uint64) float64 {
	if n == 0 {
		return 0
	}
	N := float64(n)
	denom := s2 - s1*s1/N
	if denom == 0 {
		return 0
	}
	num := s4 - 4*s1*s3/N + 6*s1*s1*s2/(N*N) - 3*s1*s1*s1*s1/(N*N*N)
	return num/(denom*denom) - 1/N
}

// FigureOfMerit returns 1/(RE^2 T), or 0 when either factor is zero.
func FigureOfMerit(relativeError float64, elapsed time.Duration) float64 {
	t := elapsed.Seconds()
	if relativeError <= 0 || t <= 0 {
		return 0
	}
	return 1 / (relativeError * relativeError * t)
}

// BinStatistics are the processed values of a two-moment slot.
type BinStatistics struct {
	Mean          float64 `json:"mean"`
	RelativeError float64 `json:"relative_error"`
	FOM           float64 `json:"fom"`
}

// TotalStatistics are the processed values of a four-moment slot.
type TotalStatistics struct {
	Mean          float64 `json:"mean"`
	RelativeError float64 `json:"relative_error"`
	VOV           float64 `json:"vov"`
	FOM           float64 `json:"fom"`
}

// processTwo scales the mean by multiplier/norm.
func processTwo(m *MomentCollection, slot int, multiplier, norm float64, stats RunStatistics) BinStatistics {
	s1, s2 := m.Moment(1, slot), m.Moment(2, slot)
	re := RelativeError(s1, s2, stats.Histories)
	return BinStatistics{
		Mean:          Mean(s1, stats.Histories) * multiplier / norm,
		RelativeError: re,
		FOM:           FigureOfMerit(re, stats.Elapsed),
	}
}

func processFour(m *MomentCollection, slot int, multiplier, norm float64, stats RunStatistics) TotalStatistics {
	s1, s2, s3, s4 := m.Moment(1, slot), m.Moment(2, slot), m.Moment(3, slot), m.Moment(4, slot)
	re := RelativeError(s1, s2, stats.Histories)
	return TotalStatistics{
		Mean:          Mean(s1, stats.Histories) * multiplier / norm,
		RelativeError: re,
		VOV:           RelativeVOV(s1, s2, s3, s4, stats.Histories),
		FOM:           FigureOfMerit(re, stats.Elapsed),
	}
}

package profile

import (
	"math"
	"slices"
)

// NumericStats holds the summary statistics of a numeric sequence. A nil
// field means the statistic is absent (empty sequence), which is distinct
// from a computed zero.
type NumericStats struct {
	Min    *float64
	Max    *float64
	Mean   *float64
	Median *float64
	StdDev *float64
}

// Aggregate computes min, max, mean, median and sample standard deviation
// over values. values is not modified.
//
// Edge cases:
//   - empty input: every field is nil
//   - one value: StdDev is 0 (not absent)
//   - even count: Median is the mean of the two middle values
//   - values near the float64 limit still give finite Mean and Median;
//     StdDev is absent only when the spread itself exceeds the float64 range
func Aggregate(values []float64) NumericStats {
	n := len(values)
	if n == 0 {
		return NumericStats{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(n)
	// The plain sum overflows near the float64 limit; redo it on values
	// scaled by a power of two, which is exact.
	exp := 0
	if math.IsInf(sum, 0) {
		exp = scaleExp(sorted)
		var scaled float64
		for _, v := range sorted {
			scaled += math.Ldexp(v, -exp)
		}
		mean = math.Ldexp(scaled/float64(n), exp)
	}

	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		lo, hi := sorted[n/2-1], sorted[n/2]
		median = (lo + hi) / 2
		if math.IsInf(median, 0) {
			median = lo/2 + hi/2
		}
	}

	stats := NumericStats{
		Min:    ptr(sorted[0]),
		Max:    ptr(sorted[n-1]),
		Mean:   ptr(mean),
		Median: ptr(median),
		StdDev: ptr(0),
	}
	if n > 1 {
		if std := sampleStdDev(sorted, mean, exp); math.IsInf(std, 0) {
			stats.StdDev = nil
		} else {
			stats.StdDev = ptr(std)
		}
	}
	return stats
}

// scaleExp returns the binary exponent of the largest magnitude in sorted.
func scaleExp(sorted []float64) int {
	_, exp := math.Frexp(math.Max(math.Abs(sorted[0]), math.Abs(sorted[len(sorted)-1])))
	return exp
}

// sampleStdDev is the two-pass deviation with Bessel's correction. exp != 0
// means the values must be scaled by 2^-exp to stay in range.
func sampleStdDev(sorted []float64, mean float64, exp int) float64 {
	denom := float64(len(sorted) - 1)
	if exp == 0 {
		var ss float64
		for _, v := range sorted {
			d := v - mean
			ss += d * d
		}
		if !math.IsInf(ss, 0) {
			return math.Sqrt(ss / denom)
		}
		exp = scaleExp(sorted)
	}

	var ss float64
	m := math.Ldexp(mean, -exp)
	for _, v := range sorted {
		d := math.Ldexp(v, -exp) - m
		ss += d * d
	}
	return math.Ldexp(math.Sqrt(ss/denom), exp)
}

func ptr(f float64) *float64 { return &f }

func round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

package statistics

import (
	"math"
	"sort"
)

// Quantile computes the p-quantile (0 ≤ p ≤ 1) of data using linear
// interpolation between order statistics, the same convention the rest of
// the pipeline relies on for quartiles and IQR fences. Returns NaN for
// empty input.
func Quantile(data []float64, p float64) float64 {
	n := len(data)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return data[0]
	}

	sorted := make([]float64, n)
	copy(sorted, data)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Package analyze computes percentiles and sensitivity rankings from
// per-iteration simulation output.
package analyze

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Percentile returns the p-quantile (p in [0,1]) of values using linear
// interpolation between order statistics with h = (n-1)p.
//
// CONVENTION: this is Hyndman-Fan type 7, the default of numpy, R and
// Excel PERCENTILE.INC. Different conventions yield different P80 values
// on identical samples, so this choice is pinned here and locked by
// tests; changing it invalidates every stored result hash.
func Percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

// Percentiles returns the requested quantiles in input order, sharing
// one sort of the sample.
func Percentiles(values []float64, ps []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = percentileSorted(sorted, p)
	}
	return out
}

func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Summary holds the descriptive statistics reported alongside the
// percentiles.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summarize computes mean, population standard deviation, min and max.
func Summarize(values []float64) Summary {
	s := Summary{
		Mean:   stat.Mean(values, nil),
		StdDev: stat.PopStdDev(values, nil),
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
	}
	for _, v := range values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}

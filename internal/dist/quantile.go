package dist

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// Quantile maps a uniform variate u in (0,1) to a value via the
// distribution's inverse CDF. Pure function: identical inputs always
// produce identical outputs.
//
// The caller must validate the distribution and keep u strictly inside
// (0,1); the stratified sampler guarantees both. Quantile panics on
// out-of-range u (gonum's contract), which the engine treats as a bug,
// not a runtime condition.
func (d Distribution) Quantile(u float64) float64 {
	switch d.Kind {
	case Triangular:
		return distuv.NewTriangle(d.Min, d.Max, d.Mode, nil).Quantile(u)
	case Normal:
		return distuv.Normal{Mu: d.Mean, Sigma: d.StdDev}.Quantile(u)
	case Lognormal:
		return distuv.LogNormal{Mu: d.Mean, Sigma: d.StdDev}.Quantile(u)
	case Uniform:
		return distuv.Uniform{Min: d.Min, Max: d.Max}.Quantile(u)
	case PERT:
		span := d.Max - d.Min
		alpha := 1 + PERTLambda*(d.Mode-d.Min)/span
		beta := 1 + PERTLambda*(d.Max-d.Mode)/span
		b := distuv.Beta{Alpha: alpha, Beta: beta}
		return d.Min + b.Quantile(u)*span
	}
	panic("dist: unsupported kind " + string(d.Kind))
}

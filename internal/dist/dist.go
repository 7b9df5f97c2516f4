// Package dist provides the probability distribution primitives for the
// risk engine: parameter validation and pure inverse-CDF sampling.
//
// Every distribution maps a uniform variate in (0,1) to a value via its
// quantile function. There is no internal randomness - the caller supplies
// the variates, which keeps sampling reproducible and lets the stratified
// sampler control coverage.
package dist

import (
	"fmt"
	"math"
)

// Kind identifies a supported distribution shape.
type Kind string

const (
	Triangular Kind = "triangular"
	Normal     Kind = "normal"
	Lognormal  Kind = "lognormal"
	Uniform    Kind = "uniform"
	PERT       Kind = "pert"
)

// ValidKinds lists all supported distribution kinds.
var ValidKinds = []Kind{Triangular, Normal, Lognormal, Uniform, PERT}

// PERTLambda is the PERT shape parameter. The conventional value is 4,
// giving the standard Beta reshaping alpha = 1 + 4(mode-min)/(max-min).
const PERTLambda = 4.0

// Distribution is an immutable distribution definition.
//
// Parameter usage by kind:
//   - triangular, pert: Min, Mode, Max
//   - normal, lognormal: Mean, StdDev (for lognormal these are the
//     parameters of the underlying normal, i.e. mu and sigma)
//   - uniform: Min, Max
type Distribution struct {
	Kind   Kind    `json:"kind" yaml:"kind"`
	Min    float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Mode   float64 `json:"mode,omitempty" yaml:"mode,omitempty"`
	Max    float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Mean   float64 `json:"mean,omitempty" yaml:"mean,omitempty"`
	StdDev float64 `json:"std_dev,omitempty" yaml:"std_dev,omitempty"`
}

// ParamError reports invalid distribution parameters.
// Detected during validation, before any sampling starts.
type ParamError struct {
	Kind    Kind
	Message string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s parameters: %s", e.Kind, e.Message)
}

// Validate checks the parameters for the distribution's kind.
// Returns a *ParamError describing the first violation found.
func (d Distribution) Validate() error {
	switch d.Kind {
	case Triangular, PERT:
		if d.Min > d.Mode || d.Mode > d.Max {
			return &ParamError{Kind: d.Kind, Message: fmt.Sprintf("requires min <= mode <= max, got min=%v mode=%v max=%v", d.Min, d.Mode, d.Max)}
		}
		if d.Min >= d.Max {
			return &ParamError{Kind: d.Kind, Message: fmt.Sprintf("requires min < max, got min=%v max=%v", d.Min, d.Max)}
		}
	case Normal, Lognormal:
		if d.StdDev <= 0 {
			return &ParamError{Kind: d.Kind, Message: fmt.Sprintf("requires std_dev > 0, got %v", d.StdDev)}
		}
	case Uniform:
		if d.Min >= d.Max {
			return &ParamError{Kind: d.Kind, Message: fmt.Sprintf("requires min < max, got min=%v max=%v", d.Min, d.Max)}
		}
	default:
		return &ParamError{Kind: d.Kind, Message: "unsupported distribution kind"}
	}
	if hasNonFinite(d.Min, d.Mode, d.Max, d.Mean, d.StdDev) {
		return &ParamError{Kind: d.Kind, Message: "parameters must be finite"}
	}
	return nil
}

// Mean returns the analytic mean of the distribution.
// Assumes the distribution has already been validated.
func (d Distribution) AnalyticMean() float64 {
	switch d.Kind {
	case Triangular:
		return (d.Min + d.Mode + d.Max) / 3
	case PERT:
		return (d.Min + PERTLambda*d.Mode + d.Max) / (PERTLambda + 2)
	case Normal:
		return d.Mean
	case Lognormal:
		return math.Exp(d.Mean + d.StdDev*d.StdDev/2)
	case Uniform:
		return (d.Min + d.Max) / 2
	}
	return math.NaN()
}

// LognormalFromArithmetic builds a lognormal distribution from the
// arithmetic mean and standard deviation of the target variable, converting
// to the mu/sigma of the underlying normal. Estimators usually think in
// arithmetic terms, so this is the conversion used when loading inputs.
func LognormalFromArithmetic(mean, stddev float64) (Distribution, error) {
	if mean <= 0 {
		return Distribution{}, &ParamError{Kind: Lognormal, Message: fmt.Sprintf("arithmetic mean must be > 0, got %v", mean)}
	}
	if stddev <= 0 {
		return Distribution{}, &ParamError{Kind: Lognormal, Message: fmt.Sprintf("arithmetic std_dev must be > 0, got %v", stddev)}
	}
	mu := math.Log(mean * mean / math.Sqrt(mean*mean+stddev*stddev))
	sigma := math.Sqrt(math.Log(1 + (stddev*stddev)/(mean*mean)))
	return Distribution{Kind: Lognormal, Mean: mu, StdDev: sigma}, nil
}

func hasNonFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// Package aace maps AACE International estimate classes (1-5) onto
// simulation defaults. Maturity determines how hard the Monte Carlo
// engine should work and which confidence level backs the contingency.
package aace

import (
	"fmt"

	"github.com/apexcost/riskengine/internal/engine"
)

// Class is an AACE International estimate classification.
// Class 5 is conceptual (±50%), Class 1 a check estimate (±10%).
type Class int

const (
	Class1 Class = 1
	Class2 Class = 2
	Class3 Class = 3
	Class4 Class = 4
	Class5 Class = 5
)

// Classify derives the class from engineering maturity and document
// completeness, both 0-100, weighted 60/40.
func Classify(engineeringMaturityPct, completenessScore float64) (Class, error) {
	if engineeringMaturityPct < 0 || engineeringMaturityPct > 100 {
		return 0, fmt.Errorf("engineering maturity %v outside [0, 100]", engineeringMaturityPct)
	}
	if completenessScore < 0 || completenessScore > 100 {
		return 0, fmt.Errorf("completeness score %v outside [0, 100]", completenessScore)
	}
	weighted := engineeringMaturityPct*0.6 + completenessScore*0.4
	switch {
	case weighted >= 90:
		return Class1, nil
	case weighted >= 70:
		return Class2, nil
	case weighted >= 50:
		return Class3, nil
	case weighted >= 30:
		return Class4, nil
	default:
		return Class5, nil
	}
}

// AccuracyRange returns the expected accuracy band for the class.
func (c Class) AccuracyRange() string {
	switch c {
	case Class1:
		return "±10%"
	case Class2:
		return "±15%"
	case Class3:
		return "±20%"
	case Class4:
		return "±30%"
	case Class5:
		return "±50%"
	}
	return "unknown"
}

// ConfidenceLevel returns the percentile backing the contingency for
// the class. Mature estimates price contingency off P80; conceptual
// ones off P95, since their tails are where the surprises live.
func (c Class) ConfidenceLevel() float64 {
	switch c {
	case Class4, Class5:
		return 0.95
	default:
		return 0.80
	}
}

// Config returns the default simulation config for the class. Coarser
// classes carry wider distributions and need fewer iterations for the
// same reportable precision; tighter classes get more.
func (c Class) Config() engine.Config {
	iterations := 10_000
	switch c {
	case Class1, Class2:
		iterations = 50_000
	case Class3:
		iterations = 20_000
	}
	return engine.Config{
		Iterations:  iterations,
		Percentiles: []float64{0.50, 0.80, 0.95},
	}
}

// Contingency returns the contingency percentage implied by a result:
// the margin of the class's confidence-level percentile over the
// deterministic base cost. Returns 0 for a zero base.
func Contingency(c Class, res *engine.Result) (float64, error) {
	if res.BaseCost <= 0 {
		return 0, nil
	}
	target, ok := res.PercentileValueAt(c.ConfidenceLevel())
	if !ok {
		return 0, fmt.Errorf("result does not report the P%v confidence level", c.ConfidenceLevel()*100)
	}
	return (target - res.BaseCost) / res.BaseCost * 100, nil
}

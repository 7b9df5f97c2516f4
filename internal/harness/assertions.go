package harness

import (
	"fmt"
	"math"
)

const baseCostTolerance = 1e-9

func checkAssertion(r *Result, a *Assertion) error {
	switch a.Type {
	case AssertBaseCost:
		return checkBaseCost(r, a)
	case AssertPercentileBetween:
		return checkPercentileBetween(r, a)
	case AssertMeanBetween:
		return checkMeanBetween(r, a)
	case AssertSensitivityOrder:
		return checkSensitivityOrder(r, a)
	case AssertCorrelationCorrected:
		return checkCorrelationCorrected(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func checkBaseCost(r *Result, a *Assertion) error {
	got := r.Result.BaseCost
	if math.Abs(got-a.Value) > baseCostTolerance*math.Max(1, math.Abs(a.Value)) {
		return fmt.Errorf("base cost %v, want %v", got, a.Value)
	}
	return nil
}

func checkPercentileBetween(r *Result, a *Assertion) error {
	got, ok := r.Result.PercentileValueAt(a.Level)
	if !ok {
		return fmt.Errorf("percentile level %v was not reported", a.Level)
	}
	if got < a.Min || got > a.Max {
		return fmt.Errorf("p%v = %v, want within [%v, %v]", a.Level, got, a.Min, a.Max)
	}
	return nil
}

func checkMeanBetween(r *Result, a *Assertion) error {
	got := r.Result.Summary.Mean
	if got < a.Min || got > a.Max {
		return fmt.Errorf("mean %v, want within [%v, %v]", got, a.Min, a.Max)
	}
	return nil
}

// checkSensitivityOrder verifies the tornado ranking starts with the
// listed factors in order. A prefix match keeps scenarios stable when
// an estimate gains minor factors below the ones under test.
func checkSensitivityOrder(r *Result, a *Assertion) error {
	sens := r.Result.Sensitivity
	if len(sens) < len(a.Factors) {
		return fmt.Errorf("tornado has %d factors, want at least %d", len(sens), len(a.Factors))
	}
	for i, want := range a.Factors {
		if sens[i].FactorID != want {
			return fmt.Errorf("tornado[%d] = %s, want %s", i, sens[i].FactorID, want)
		}
	}
	return nil
}

func checkCorrelationCorrected(r *Result, a *Assertion) error {
	if r.Result.CorrelationCorrected != a.Expected {
		return fmt.Errorf("correlation_corrected = %v, want %v", r.Result.CorrelationCorrected, a.Expected)
	}
	return nil
}

package harness

import (
	"context"
	"fmt"
	"os"

	"github.com/apexcost/riskengine/internal/engine"
	"github.com/apexcost/riskengine/internal/estimate"
	"github.com/apexcost/riskengine/internal/schema"
)

// Result bundles a scenario run with the inputs that produced it.
type Result struct {
	Scenario *Scenario
	Estimate *estimate.Estimate
	Config   engine.Config
	Result   *engine.Result
}

// Run executes a scenario: load and validate the estimate, run the
// simulation at the pinned seed, and return the result. Assertion
// checking is separate (Verify) so callers can inspect a result even
// when assertions would fail.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	data, err := os.ReadFile(scenario.Estimate)
	if err != nil {
		return nil, fmt.Errorf("reading estimate %s: %w", scenario.Estimate, err)
	}

	est, errs := schema.DecodeYAML(data)
	if len(errs) > 0 {
		return nil, fmt.Errorf("estimate %s: %w", scenario.Estimate, errs[0])
	}
	if err := est.Validate(); err != nil {
		return nil, fmt.Errorf("estimate %s: %w", scenario.Estimate, err)
	}

	seed := scenario.Seed
	cfg := engine.Config{
		Iterations:  scenario.Iterations,
		Seed:        &seed,
		Percentiles: scenario.Percentiles,
	}

	res, err := engine.Run(ctx, est, cfg)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	return &Result{
		Scenario: scenario,
		Estimate: est,
		Config:   cfg,
		Result:   res,
	}, nil
}

// Verify checks every assertion in the scenario against the result
// and returns one error per failed assertion.
func Verify(r *Result) []error {
	var failures []error
	for i, a := range r.Scenario.Assertions {
		if err := checkAssertion(r, &a); err != nil {
			failures = append(failures, fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err))
		}
	}
	return failures
}

package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/apexcost/riskengine/internal/engine"
)

// AssertInputGolden pins the canonical input bytes for a scenario run
// against testdata/golden/{scenario.Name}.golden. The input hash is
// computed over exactly these bytes, so a diff here explains any hash
// change before it reaches the audit ledger.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
func AssertInputGolden(t *testing.T, r *Result) error {
	t.Helper()

	data, err := engine.CanonicalInput(r.Estimate, r.Config, r.Result.Seed)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, r.Scenario.Name, data)
	return nil
}

// AssertResultGolden pins the canonical result serialization for a
// scenario run. Result goldens are seed-sensitive: they only hold as
// long as the sampling streams are unchanged, so regenerate them
// whenever the engine's draw order changes deliberately.
func AssertResultGolden(t *testing.T, r *Result) error {
	t.Helper()

	data, err := r.Result.CanonicalJSON()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".result.golden"),
	)
	g.Assert(t, r.Scenario.Name, data)
	return nil
}

package engine

import (
	"github.com/apexcost/riskengine/internal/canonical"
	"github.com/apexcost/riskengine/internal/estimate"
)

// InputHash computes the content hash identifying a run: the estimate,
// the effective config, and the resolved seed. Two runs with equal
// input hashes must produce equal result hashes; the audit store's
// replay check enforces exactly that.
func InputHash(est *estimate.Estimate, cfg Config, seed uint64) (string, error) {
	return canonical.Hash(canonical.DomainInput, inputMap(est, cfg, seed))
}

// CanonicalInput returns the exact bytes InputHash is computed over
// (before domain separation). Golden tests pin these bytes so encoding
// drift shows up as a diff instead of an unexplained hash change.
func CanonicalInput(est *estimate.Estimate, cfg Config, seed uint64) ([]byte, error) {
	return canonical.Marshal(inputMap(est, cfg, seed))
}

func inputMap(est *estimate.Estimate, cfg Config, seed uint64) map[string]any {
	items := make([]any, len(est.Items))
	for i, it := range est.Items {
		m := map[string]any{
			"id":        it.ID,
			"quantity":  it.Quantity,
			"unit_cost": it.UnitCost,
		}
		if it.ParentID != "" {
			m["parent_id"] = it.ParentID
		}
		if it.Factor != nil {
			m["factor"] = map[string]any{
				"id":      it.Factor.ID,
				"kind":    string(it.Factor.Dist.Kind),
				"min":     it.Factor.Dist.Min,
				"mode":    it.Factor.Dist.Mode,
				"max":     it.Factor.Dist.Max,
				"mean":    it.Factor.Dist.Mean,
				"std_dev": it.Factor.Dist.StdDev,
				"apply":   string(it.Factor.Mode()),
			}
		}
		items[i] = m
	}

	correlations := make([]any, len(est.Correlations))
	for i, cs := range est.Correlations {
		correlations[i] = map[string]any{
			"factor_a": cs.FactorA,
			"factor_b": cs.FactorB,
			"rho":      cs.Rho,
		}
	}

	return map[string]any{
		"items":        items,
		"correlations": correlations,
		"iterations":   int64(cfg.Iterations),
		"percentiles":  cfg.effectivePercentiles(),
		"seed":         seed,
	}
}

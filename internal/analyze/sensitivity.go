package analyze

import (
	"math"
	"sort"

	"github.com/apexcost/riskengine/internal/correlate"
)

// Sensitivity is one entry of the tornado ranking: a risk factor and its
// Spearman rank correlation with total cost.
type Sensitivity struct {
	FactorID string  `json:"factor_id"`
	Spearman float64 `json:"spearman"`
}

// Tornado ranks risk factors by their contribution to total-cost
// variance: Spearman rank correlation between each factor's sampled
// column and the per-iteration totals, ordered by descending absolute
// value. Ties break on factor id so the ordering is deterministic.
func Tornado(totals []float64, factorIDs []string, samplesFor func(factorID string) []float64) []Sensitivity {
	out := make([]Sensitivity, 0, len(factorIDs))
	for _, id := range factorIDs {
		col := samplesFor(id)
		if col == nil {
			continue
		}
		out = append(out, Sensitivity{
			FactorID: id,
			Spearman: correlate.Spearman(col, totals),
		})
	}
	sort.SliceStable(out, func(a, b int) bool {
		aa, bb := math.Abs(out[a].Spearman), math.Abs(out[b].Spearman)
		if aa != bb {
			return aa > bb
		}
		return out[a].FactorID < out[b].FactorID
	})
	return out
}

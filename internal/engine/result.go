package engine

import (
	"fmt"
	"strconv"

	"github.com/apexcost/riskengine/internal/analyze"
	"github.com/apexcost/riskengine/internal/canonical"
)

// PercentileValue is one reported confidence level.
type PercentileValue struct {
	Level float64 `json:"level"` // e.g. 0.80
	Value float64 `json:"value"`
}

// Label renders the conventional name for the level: "p50", "p80",
// "p99.5".
func (p PercentileValue) Label() string {
	return "p" + strconv.FormatFloat(p.Level*100, 'g', -1, 64)
}

// RealizedCorrelation pairs a correlation target with the Spearman
// correlation actually measured after induction. The induction is an
// approximation; the realized value is always re-measured and reported,
// never assumed.
type RealizedCorrelation struct {
	FactorA  string  `json:"factor_a"`
	FactorB  string  `json:"factor_b"`
	Target   float64 `json:"target"`
	Realized float64 `json:"realized"`
}

// Result is the complete output of one simulation run.
type Result struct {
	// Seed is the seed actually used; replaying with it reproduces the
	// result byte for byte.
	Seed       uint64 `json:"seed"`
	Iterations int    `json:"iterations"`

	// BaseCost is the deterministic pre-risk total.
	BaseCost float64 `json:"base_cost"`

	Percentiles []PercentileValue `json:"percentiles"`
	Summary     analyze.Summary   `json:"summary"`

	// Sensitivity is the tornado ranking: factors by descending
	// |Spearman| against total cost.
	Sensitivity []analyze.Sensitivity `json:"sensitivity,omitempty"`

	// RealizedCorrelations holds the measured correlation for every
	// specified pair.
	RealizedCorrelations []RealizedCorrelation `json:"realized_correlations,omitempty"`

	// CorrelationCorrected flags that the target matrix was not
	// positive semi-definite and was projected before factoring.
	// CorrectedMatrix carries the matrix actually used, row-major.
	CorrelationCorrected bool        `json:"correlation_corrected,omitempty"`
	CorrectedMatrix      [][]float64 `json:"corrected_matrix,omitempty"`

	// Totals is the full per-iteration total-cost array, retained only
	// when Config.KeepTotals is set.
	Totals []float64 `json:"totals,omitempty"`
}

// PercentileValueAt returns the value reported for the given level.
func (r *Result) PercentileValueAt(level float64) (float64, bool) {
	for _, p := range r.Percentiles {
		if p.Level == level {
			return p.Value, true
		}
	}
	return 0, false
}

// canonicalMap flattens the result for canonical serialization. Totals
// are excluded: the hash covers the reported statistics, which must be
// identical whether or not the caller kept the raw array.
func (r *Result) canonicalMap() map[string]any {
	percs := make(map[string]any, len(r.Percentiles))
	for _, p := range r.Percentiles {
		percs[p.Label()] = p.Value
	}

	sens := make([]any, len(r.Sensitivity))
	for i, s := range r.Sensitivity {
		sens[i] = map[string]any{
			"factor_id": s.FactorID,
			"spearman":  s.Spearman,
		}
	}

	realized := make([]any, len(r.RealizedCorrelations))
	for i, rc := range r.RealizedCorrelations {
		realized[i] = map[string]any{
			"factor_a": rc.FactorA,
			"factor_b": rc.FactorB,
			"target":   rc.Target,
			"realized": rc.Realized,
		}
	}

	m := map[string]any{
		"seed":                  r.Seed,
		"iterations":            int64(r.Iterations),
		"base_cost":             r.BaseCost,
		"percentiles":           percs,
		"mean":                  r.Summary.Mean,
		"std_dev":               r.Summary.StdDev,
		"min":                   r.Summary.Min,
		"max":                   r.Summary.Max,
		"sensitivity":           sens,
		"realized_correlations": realized,
		"correlation_corrected": r.CorrelationCorrected,
	}
	if r.CorrelationCorrected {
		rows := make([]any, len(r.CorrectedMatrix))
		for i, row := range r.CorrectedMatrix {
			rows[i] = row
		}
		m["corrected_matrix"] = rows
	}
	return m
}

// CanonicalJSON returns the canonical serialization of the result, the
// byte string the audit hash is computed over.
func (r *Result) CanonicalJSON() ([]byte, error) {
	data, err := canonical.Marshal(r.canonicalMap())
	if err != nil {
		return nil, fmt.Errorf("canonicalize result: %w", err)
	}
	return data, nil
}

// Hash returns the domain-separated content hash of the result.
func (r *Result) Hash() (string, error) {
	data, err := r.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return canonical.HashWithDomain(canonical.DomainResult, data), nil
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/apexcost/riskengine/internal/analyze"
	"github.com/apexcost/riskengine/internal/correlate"
	"github.com/apexcost/riskengine/internal/estimate"
	"github.com/apexcost/riskengine/internal/sample"
)

// PCG stream layout. Marginal sampling and correlation-induction scores
// draw from disjoint stream ranges of the same seed, so adding a
// correlation spec never perturbs the marginal draws.
const (
	streamMarginalBase uint64 = 1
	streamScoreBase    uint64 = 1 << 32
)

// Run executes one simulation: validate, seed, sample, correlate,
// aggregate, analyze.
//
// Returns *Result on success, or a ValidationError, NumericError, or
// TimeoutError. On error nothing is returned and nothing external was
// mutated; errors are local to this invocation and never affect
// concurrent runs.
//
// The context deadline is the wall-clock budget. On expiry the run
// aborts with a TimeoutError - partial Monte Carlo output is never
// surfaced.
func Run(ctx context.Context, est *estimate.Estimate, cfg Config) (*Result, error) {
	// PHASE 1: validate everything before any sampling (fail fast, not
	// mid-run).
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := est.Validate(); err != nil {
		return nil, &ValidationError{Code: ErrCodeEstimateStructure, Message: err.Error()}
	}
	factors := est.Factors()
	for _, f := range factors {
		if err := f.Dist.Validate(); err != nil {
			return nil, &ValidationError{Code: ErrCodeDistributionParams, Field: f.ID, Message: err.Error()}
		}
	}
	pairs, err := correlationPairs(est, factors)
	if err != nil {
		return nil, err
	}

	seed, err := cfg.resolveSeed()
	if err != nil {
		return nil, err
	}

	n := cfg.Iterations
	k := len(factors)
	slog.Debug("simulation starting",
		"iterations", n,
		"factors", k,
		"correlations", len(pairs),
		"seed", seed,
	)

	// PHASE 2: stratified marginal sampling.
	columns := make([][]float64, k)
	for j, f := range factors {
		if err := checkDeadline(ctx, "sampling"); err != nil {
			return nil, err
		}
		u := sample.Column(seed, streamMarginalBase+uint64(j), n)
		col := make([]float64, n)
		for i, v := range u {
			col[i] = f.Dist.Quantile(v)
		}
		if !allFinite(col) {
			return nil, &NumericError{Stage: "sampling", Subject: f.ID}
		}
		columns[j] = col
	}

	// PHASE 3: correlation induction.
	result := &Result{
		Seed:       seed,
		Iterations: n,
		BaseCost:   est.BaseCost(),
	}
	if len(pairs) > 0 {
		if err := checkDeadline(ctx, "correlation"); err != nil {
			return nil, err
		}
		target, berr := correlate.BuildMatrix(k, pairs)
		if berr != nil {
			return nil, &ValidationError{Code: ErrCodeCorrelationMatrix, Message: berr.Error()}
		}
		used, corrected, perr := correlate.NearestPSD(target)
		if perr != nil {
			return nil, &ValidationError{Code: ErrCodeCorrelationMatrix, Message: perr.Error()}
		}
		if corrected {
			// Recoverable by design: hand-entered pairwise correlations
			// are often jointly infeasible. Correct, flag, continue.
			slog.Warn("correlation matrix not positive semi-definite, projected to nearest PSD",
				"factors", k,
				"pairs", len(pairs),
			)
			result.CorrelationCorrected = true
			result.CorrectedMatrix = matrixRows(used)
		}
		if err := correlate.Induce(columns, used, seed, streamScoreBase); err != nil {
			return nil, fmt.Errorf("correlation induction: %w", err)
		}
		for _, col := range columns {
			if !allFinite(col) {
				return nil, &NumericError{Stage: "correlation"}
			}
		}
		result.RealizedCorrelations = measureRealized(est, factors, columns)
	}

	// PHASE 4: aggregation.
	if err := checkDeadline(ctx, "aggregation"); err != nil {
		return nil, err
	}
	colByFactor := make(map[string][]float64, k)
	for j, f := range factors {
		colByFactor[f.ID] = columns[j]
	}
	lookup := func(id string) []float64 { return colByFactor[id] }
	totals := est.Totals(n, lookup)
	if !allFinite(totals) {
		return nil, &NumericError{Stage: "aggregation"}
	}

	// PHASE 5: analysis.
	if err := checkDeadline(ctx, "analysis"); err != nil {
		return nil, err
	}
	levels := cfg.effectivePercentiles()
	values := analyze.Percentiles(totals, levels)
	result.Percentiles = make([]PercentileValue, len(levels))
	for i, p := range levels {
		result.Percentiles[i] = PercentileValue{Level: p, Value: values[i]}
	}
	result.Summary = analyze.Summarize(totals)

	factorIDs := make([]string, k)
	for j, f := range factors {
		factorIDs[j] = f.ID
	}
	result.Sensitivity = analyze.Tornado(totals, factorIDs, lookup)

	if cfg.KeepTotals {
		result.Totals = totals
	}

	slog.Debug("simulation complete",
		"mean", result.Summary.Mean,
		"std_dev", result.Summary.StdDev,
	)
	return result, nil
}

// correlationPairs maps factor-id correlation specs onto column indices.
func correlationPairs(est *estimate.Estimate, factors []*estimate.RiskFactor) ([]correlate.Pair, error) {
	if len(est.Correlations) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(factors))
	for j, f := range factors {
		index[f.ID] = j
	}
	pairs := make([]correlate.Pair, 0, len(est.Correlations))
	for _, cs := range est.Correlations {
		if math.IsNaN(cs.Rho) || cs.Rho < -1 || cs.Rho > 1 {
			return nil, &ValidationError{
				Code:    ErrCodeCorrelationOutOfRange,
				Field:   cs.FactorA + "/" + cs.FactorB,
				Message: fmt.Sprintf("rank correlation %v outside [-1, 1]", cs.Rho),
			}
		}
		pairs = append(pairs, correlate.Pair{I: index[cs.FactorA], J: index[cs.FactorB], Rho: cs.Rho})
	}
	return pairs, nil
}

// measureRealized re-measures the Spearman correlation of every
// specified pair after induction.
func measureRealized(est *estimate.Estimate, factors []*estimate.RiskFactor, columns [][]float64) []RealizedCorrelation {
	index := make(map[string]int, len(factors))
	for j, f := range factors {
		index[f.ID] = j
	}
	out := make([]RealizedCorrelation, len(est.Correlations))
	for i, cs := range est.Correlations {
		out[i] = RealizedCorrelation{
			FactorA:  cs.FactorA,
			FactorB:  cs.FactorB,
			Target:   cs.Rho,
			Realized: correlate.Spearman(columns[index[cs.FactorA]], columns[index[cs.FactorB]]),
		}
	}
	return out
}

func checkDeadline(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return &TimeoutError{Stage: stage, Cause: err}
	}
	return nil
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func matrixRows(m *mat.SymDense) [][]float64 {
	k := m.SymmetricDim()
	rows := make([][]float64, k)
	for i := 0; i < k; i++ {
		rows[i] = make([]float64, k)
		for j := 0; j < k; j++ {
			rows[i][j] = m.At(i, j)
		}
	}
	return rows
}

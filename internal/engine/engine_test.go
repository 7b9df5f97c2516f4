package engine

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcost/riskengine/internal/analyze"
	"github.com/apexcost/riskengine/internal/dist"
	"github.com/apexcost/riskengine/internal/estimate"
	"github.com/apexcost/riskengine/internal/sample"
)

func seedPtr(s uint64) *uint64 { return &s }

func triEstimate() *estimate.Estimate {
	return &estimate.Estimate{Items: []estimate.LineItem{
		{ID: "work", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
			ID:   "tri",
			Dist: dist.Distribution{Kind: dist.Triangular, Min: 100, Mode: 150, Max: 200},
		}},
	}}
}

func TestRun_TriangularMeanWithinTwoPercent(t *testing.T) {
	res, err := Run(context.Background(), triEstimate(), Config{Iterations: 10_000, Seed: seedPtr(42)})
	require.NoError(t, err)
	assert.InDelta(t, 150.0, res.Summary.Mean, 150.0*0.02)
}

func TestRun_PercentilesOrdered(t *testing.T) {
	res, err := Run(context.Background(), triEstimate(), Config{Iterations: 5_000, Seed: seedPtr(7)})
	require.NoError(t, err)
	require.Len(t, res.Percentiles, 3)

	p50, _ := res.PercentileValueAt(0.50)
	p80, _ := res.PercentileValueAt(0.80)
	p95, _ := res.PercentileValueAt(0.95)
	assert.Less(t, p50, p80)
	assert.Less(t, p80, p95)
}

func TestRun_Deterministic(t *testing.T) {
	est := &estimate.Estimate{
		Items: []estimate.LineItem{
			{ID: "a", Quantity: 10, UnitCost: 100, Factor: &estimate.RiskFactor{
				ID:   "f-a",
				Dist: dist.Distribution{Kind: dist.Triangular, Min: 0.9, Mode: 1.0, Max: 1.3},
			}},
			{ID: "b", Quantity: 3, UnitCost: 2_000, Factor: &estimate.RiskFactor{
				ID:   "f-b",
				Dist: dist.Distribution{Kind: dist.Normal, Mean: 1.0, StdDev: 0.1},
			}},
		},
		Correlations: []estimate.CorrelationSpec{{FactorA: "f-a", FactorB: "f-b", Rho: 0.5}},
	}
	cfg := Config{Iterations: 2_000, Seed: seedPtr(99)}

	a, err := Run(context.Background(), est, cfg)
	require.NoError(t, err)
	b, err := Run(context.Background(), est, cfg)
	require.NoError(t, err)

	assert.Equal(t, a, b)

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "identical inputs and seed must produce byte-identical results")
}

func TestRun_GeneratesAndReturnsSeed(t *testing.T) {
	est := triEstimate()
	res, err := Run(context.Background(), est, Config{Iterations: 1_000})
	require.NoError(t, err)

	// Replaying with the returned seed reproduces the result exactly.
	replay, err := Run(context.Background(), est, Config{Iterations: 1_000, Seed: seedPtr(res.Seed)})
	require.NoError(t, err)

	h1, err := res.Hash()
	require.NoError(t, err)
	h2, err := replay.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestRun_NoRiskFactors(t *testing.T) {
	est := &estimate.Estimate{Items: []estimate.LineItem{
		{ID: "a", Quantity: 1, UnitCost: 1_000},
		{ID: "b", Quantity: 1, UnitCost: 2_000},
		{ID: "c", Quantity: 1, UnitCost: 3_000},
	}}
	res, err := Run(context.Background(), est, Config{Iterations: 1_000, Seed: seedPtr(1)})
	require.NoError(t, err)

	for _, p := range res.Percentiles {
		assert.Equal(t, 6_000.0, p.Value, "percentile %v", p.Level)
	}
	assert.Equal(t, 6_000.0, res.Summary.Mean)
	assert.Equal(t, 0.0, res.Summary.StdDev)
	assert.Empty(t, res.Sensitivity)
}

func TestRun_RealizedCorrelationReported(t *testing.T) {
	est := &estimate.Estimate{
		Items: []estimate.LineItem{
			{ID: "a", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
				ID:   "x",
				Dist: dist.Distribution{Kind: dist.Normal, Mean: 0, StdDev: 1},
				// Normal samples can go negative; additive keeps the
				// total well-defined without a multiplier sign flip.
				Apply: estimate.ApplyAdditive,
			}},
			{ID: "b", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
				ID:    "y",
				Dist:  dist.Distribution{Kind: dist.Normal, Mean: 0, StdDev: 1},
				Apply: estimate.ApplyAdditive,
			}},
		},
		Correlations: []estimate.CorrelationSpec{{FactorA: "x", FactorB: "y", Rho: 0.7}},
	}
	res, err := Run(context.Background(), est, Config{Iterations: 5_000, Seed: seedPtr(42)})
	require.NoError(t, err)

	require.Len(t, res.RealizedCorrelations, 1)
	rc := res.RealizedCorrelations[0]
	assert.Equal(t, 0.7, rc.Target)
	assert.InDelta(t, 0.7, rc.Realized, 0.05)
	assert.False(t, res.CorrelationCorrected)
}

func TestRun_NonPSDCorrectedAndFlagged(t *testing.T) {
	newFactor := func(id string) *estimate.RiskFactor {
		return &estimate.RiskFactor{
			ID:    id,
			Dist:  dist.Distribution{Kind: dist.Normal, Mean: 0, StdDev: 1},
			Apply: estimate.ApplyAdditive,
		}
	}
	est := &estimate.Estimate{
		Items: []estimate.LineItem{
			{ID: "a", Quantity: 1, UnitCost: 100, Factor: newFactor("x")},
			{ID: "b", Quantity: 1, UnitCost: 100, Factor: newFactor("y")},
			{ID: "c", Quantity: 1, UnitCost: 100, Factor: newFactor("z")},
		},
		Correlations: []estimate.CorrelationSpec{
			{FactorA: "x", FactorB: "y", Rho: -0.9},
			{FactorA: "x", FactorB: "z", Rho: 0.9},
			{FactorA: "y", FactorB: "z", Rho: 0.9},
		},
	}
	res, err := Run(context.Background(), est, Config{Iterations: 2_000, Seed: seedPtr(5)})
	require.NoError(t, err, "non-PSD target must be corrected, not failed")

	assert.True(t, res.CorrelationCorrected)
	require.Len(t, res.CorrectedMatrix, 3)
	for i := range res.CorrectedMatrix {
		assert.Equal(t, 1.0, res.CorrectedMatrix[i][i])
	}
	assert.Len(t, res.RealizedCorrelations, 3)
}

func TestRun_ValidationFailures(t *testing.T) {
	valid := triEstimate()
	tests := []struct {
		name string
		est  *estimate.Estimate
		cfg  Config
		code ValidationCode
	}{
		{"iterations too low", valid, Config{Iterations: 10}, ErrCodeIterationsOutOfRange},
		{"iterations too high", valid, Config{Iterations: 1_000_000}, ErrCodeIterationsOutOfRange},
		{"percentile out of range", valid, Config{Iterations: 1_000, Percentiles: []float64{1.5}}, ErrCodePercentileOutOfRange},
		{
			"bad distribution",
			&estimate.Estimate{Items: []estimate.LineItem{
				{ID: "a", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
					ID:   "bad",
					Dist: dist.Distribution{Kind: dist.Normal, Mean: 0, StdDev: -1},
				}},
			}},
			Config{Iterations: 1_000},
			ErrCodeDistributionParams,
		},
		{
			"bad tree",
			&estimate.Estimate{Items: []estimate.LineItem{{ID: "a", ParentID: "ghost"}}},
			Config{Iterations: 1_000},
			ErrCodeEstimateStructure,
		},
		{
			"correlation out of range",
			&estimate.Estimate{
				Items: []estimate.LineItem{
					{ID: "a", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
						ID: "x", Dist: dist.Distribution{Kind: dist.Uniform, Min: 0, Max: 1},
					}},
					{ID: "b", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
						ID: "y", Dist: dist.Distribution{Kind: dist.Uniform, Min: 0, Max: 1},
					}},
				},
				Correlations: []estimate.CorrelationSpec{{FactorA: "x", FactorB: "y", Rho: 2}},
			},
			Config{Iterations: 1_000},
			ErrCodeCorrelationOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.est, tt.cfg)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.code, ve.Code)
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := Run(ctx, triEstimate(), Config{Iterations: 10_000, Seed: seedPtr(1)})
	assert.Nil(t, res, "no partial result on timeout")
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestRun_NumericInstabilityFails(t *testing.T) {
	// A stddev near the float64 ceiling overflows the tail quantiles.
	est := &estimate.Estimate{Items: []estimate.LineItem{
		{ID: "a", Quantity: 1, UnitCost: 1, Factor: &estimate.RiskFactor{
			ID:    "huge",
			Dist:  dist.Distribution{Kind: dist.Normal, Mean: 0, StdDev: 1e308},
			Apply: estimate.ApplyAdditive,
		}},
	}}
	_, err := Run(context.Background(), est, Config{Iterations: 1_000, Seed: seedPtr(3)})
	require.Error(t, err)
	assert.True(t, IsNumeric(err))
}

func TestRun_KeepTotals(t *testing.T) {
	cfg := Config{Iterations: 1_000, Seed: seedPtr(8)}

	without, err := Run(context.Background(), triEstimate(), cfg)
	require.NoError(t, err)
	assert.Nil(t, without.Totals)

	cfg.KeepTotals = true
	with, err := Run(context.Background(), triEstimate(), cfg)
	require.NoError(t, err)
	assert.Len(t, with.Totals, 1_000)

	// The audit hash covers reported statistics only; retaining the raw
	// array must not change it.
	h1, err := without.Hash()
	require.NoError(t, err)
	h2, err := with.Hash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestRun_TornadoOrdering(t *testing.T) {
	// The big factor swings 100x the cost of the small one and must
	// dominate the tornado ranking.
	est := &estimate.Estimate{Items: []estimate.LineItem{
		{ID: "big", Quantity: 1, UnitCost: 100_000, Factor: &estimate.RiskFactor{
			ID:   "f-big",
			Dist: dist.Distribution{Kind: dist.Triangular, Min: 0.8, Mode: 1.0, Max: 1.4},
		}},
		{ID: "small", Quantity: 1, UnitCost: 1_000, Factor: &estimate.RiskFactor{
			ID:   "f-small",
			Dist: dist.Distribution{Kind: dist.Triangular, Min: 0.8, Mode: 1.0, Max: 1.4},
		}},
	}}
	res, err := Run(context.Background(), est, Config{Iterations: 2_000, Seed: seedPtr(17)})
	require.NoError(t, err)

	require.Len(t, res.Sensitivity, 2)
	assert.Equal(t, "f-big", res.Sensitivity[0].FactorID)
	assert.Greater(t, math.Abs(res.Sensitivity[0].Spearman), math.Abs(res.Sensitivity[1].Spearman))
}

func TestRun_InputHashStable(t *testing.T) {
	est := triEstimate()
	cfg := Config{Iterations: 1_000}
	h1, err := InputHash(est, cfg, 42)
	require.NoError(t, err)
	h2, err := InputHash(est, cfg, 42)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	h3, err := InputHash(est, cfg, 43)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "seed is part of the input identity")
}

// TestStratifiedBeatsNaive verifies the variance-reduction property:
// across 20 repeated runs with different seeds, the spread of the
// reported P50 under stratified sampling is lower than under naive
// random sampling at equal N.
func TestStratifiedBeatsNaive(t *testing.T) {
	const (
		runs = 20
		n    = 2_000
	)
	d := dist.Distribution{Kind: dist.Triangular, Min: 100, Mode: 150, Max: 200}

	var lhsP50, naiveP50 []float64
	for r := 0; r < runs; r++ {
		seed := uint64(1000 + r)

		u := sample.Column(seed, 1, n)
		lhs := make([]float64, n)
		for i, v := range u {
			lhs[i] = d.Quantile(v)
		}
		lhsP50 = append(lhsP50, analyze.Percentile(lhs, 0.5))

		rng := rand.New(rand.NewPCG(seed, 1))
		naive := make([]float64, n)
		for i := range naive {
			v := rng.Float64()
			if v == 0 {
				v = 0.5
			}
			naive[i] = d.Quantile(v)
		}
		naiveP50 = append(naiveP50, analyze.Percentile(naive, 0.5))
	}

	lhsSpread := analyze.Summarize(lhsP50).StdDev
	naiveSpread := analyze.Summarize(naiveP50).StdDev
	assert.Less(t, lhsSpread, naiveSpread,
		"stratified P50 spread %v must beat naive %v at N=%d", lhsSpread, naiveSpread, n)
}

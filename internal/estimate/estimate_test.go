package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexcost/riskengine/internal/dist"
)

func triFactor(id string) *RiskFactor {
	return &RiskFactor{
		ID:   id,
		Dist: dist.Distribution{Kind: dist.Triangular, Min: 0.9, Mode: 1.0, Max: 1.2},
	}
}

func TestValidate_FlatEstimate(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "a", Quantity: 10, UnitCost: 100},
		{ID: "b", Quantity: 5, UnitCost: 400, Factor: triFactor("f-b")},
	}}
	assert.NoError(t, e.Validate())
}

func TestValidate_Tree(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "root"},
		{ID: "civil", ParentID: "root"},
		{ID: "found", ParentID: "civil", Quantity: 2, UnitCost: 500, Factor: triFactor("f-1")},
		{ID: "steel", ParentID: "root", Quantity: 1, UnitCost: 3000},
	}}
	assert.NoError(t, e.Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		e    *Estimate
	}{
		{"empty", &Estimate{}},
		{"duplicate item id", &Estimate{Items: []LineItem{{ID: "a"}, {ID: "a"}}}},
		{"unknown parent", &Estimate{Items: []LineItem{{ID: "a", ParentID: "ghost"}}}},
		{"self parent", &Estimate{Items: []LineItem{{ID: "a", ParentID: "a"}}}},
		{"parent cycle", &Estimate{Items: []LineItem{
			{ID: "a", ParentID: "b"}, {ID: "b", ParentID: "a"},
		}}},
		{"roll-up with factor", &Estimate{Items: []LineItem{
			{ID: "p", Factor: triFactor("f")},
			{ID: "c", ParentID: "p", Quantity: 1, UnitCost: 1},
		}}},
		{"roll-up with base cost", &Estimate{Items: []LineItem{
			{ID: "p", Quantity: 1, UnitCost: 100},
			{ID: "c", ParentID: "p", Quantity: 1, UnitCost: 1},
		}}},
		{"duplicate factor id", &Estimate{Items: []LineItem{
			{ID: "a", Quantity: 1, UnitCost: 1, Factor: triFactor("f")},
			{ID: "b", Quantity: 1, UnitCost: 1, Factor: triFactor("f")},
		}}},
		{"bad apply mode", &Estimate{Items: []LineItem{
			{ID: "a", Quantity: 1, UnitCost: 1, Factor: &RiskFactor{
				ID:    "f",
				Dist:  dist.Distribution{Kind: dist.Uniform, Min: 0, Max: 1},
				Apply: "scaled",
			}},
		}}},
		{"correlation unknown factor", &Estimate{
			Items:        []LineItem{{ID: "a", Quantity: 1, UnitCost: 1, Factor: triFactor("f")}},
			Correlations: []CorrelationSpec{{FactorA: "f", FactorB: "ghost", Rho: 0.5}},
		}},
		{"correlation self pair", &Estimate{
			Items:        []LineItem{{ID: "a", Quantity: 1, UnitCost: 1, Factor: triFactor("f")}},
			Correlations: []CorrelationSpec{{FactorA: "f", FactorB: "f", Rho: 0.5}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.e.Validate())
		})
	}
}

func TestLeavesAndBaseCost(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "root"},
		{ID: "a", ParentID: "root", Quantity: 10, UnitCost: 100},
		{ID: "grp", ParentID: "root"},
		{ID: "b", ParentID: "grp", Quantity: 2, UnitCost: 1000},
		{ID: "c", ParentID: "grp", Quantity: 3, UnitCost: 1000},
	}}
	require.NoError(t, e.Validate())

	leaves := e.Leaves()
	require.Len(t, leaves, 3)
	assert.Equal(t, "a", leaves[0].ID)
	assert.Equal(t, "b", leaves[1].ID)
	assert.Equal(t, "c", leaves[2].ID)
	assert.Equal(t, 6000.0, e.BaseCost())
}

func TestFactors_DeclarationOrder(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "a", Quantity: 1, UnitCost: 1, Factor: triFactor("f-2")},
		{ID: "b", Quantity: 1, UnitCost: 1},
		{ID: "c", Quantity: 1, UnitCost: 1, Factor: triFactor("f-1")},
	}}
	fs := e.Factors()
	require.Len(t, fs, 2)
	assert.Equal(t, "f-2", fs[0].ID)
	assert.Equal(t, "f-1", fs[1].ID)
}

func TestTotals_DeterministicOnly(t *testing.T) {
	// Three leaves, no risk factors: every iteration totals 6000.
	e := &Estimate{Items: []LineItem{
		{ID: "a", Quantity: 1, UnitCost: 1000},
		{ID: "b", Quantity: 1, UnitCost: 2000},
		{ID: "c", Quantity: 1, UnitCost: 3000},
	}}
	totals := e.Totals(4, func(string) []float64 { return nil })
	assert.Equal(t, []float64{6000, 6000, 6000, 6000}, totals)
}

func TestTotals_MultiplierAndAdditive(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "a", Quantity: 1, UnitCost: 1000, Factor: &RiskFactor{
			ID:   "mult",
			Dist: dist.Distribution{Kind: dist.Uniform, Min: 0.5, Max: 1.5},
		}},
		{ID: "b", Quantity: 1, UnitCost: 500, Factor: &RiskFactor{
			ID:    "add",
			Dist:  dist.Distribution{Kind: dist.Uniform, Min: -100, Max: 100},
			Apply: ApplyAdditive,
		}},
	}}
	samples := map[string][]float64{
		"mult": {1.0, 1.2},
		"add":  {-50, 25},
	}
	totals := e.Totals(2, func(id string) []float64 { return samples[id] })
	// i=0: 1000*1.0 + (500-50) = 1450; i=1: 1000*1.2 + (500+25) = 1725
	assert.InDelta(t, 1450.0, totals[0], 1e-9)
	assert.InDelta(t, 1725.0, totals[1], 1e-9)
}

func TestTotals_ParentEqualsSumOfChildren(t *testing.T) {
	e := &Estimate{Items: []LineItem{
		{ID: "root"},
		{ID: "a", ParentID: "root", Quantity: 1, UnitCost: 100, Factor: &RiskFactor{
			ID:   "f-a",
			Dist: dist.Distribution{Kind: dist.Uniform, Min: 0.8, Max: 1.2},
		}},
		{ID: "b", ParentID: "root", Quantity: 1, UnitCost: 200},
	}}
	samples := map[string][]float64{"f-a": {0.9, 1.1, 1.0}}
	lookup := func(id string) []float64 { return samples[id] }

	root := e.ItemTotals("root", 3, lookup)
	a := e.ItemTotals("a", 3, lookup)
	b := e.ItemTotals("b", 3, lookup)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, a[i]+b[i], root[i], 1e-9, "iteration %d", i)
	}
	// And the root subtree total matches the whole-estimate total.
	assert.Equal(t, e.Totals(3, lookup), root)
}

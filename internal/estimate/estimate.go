// Package estimate defines the cost estimate data model - line items,
// risk factors, correlation specs - and the per-iteration cost roll-up.
//
// All entities are constructed by the caller for a single simulation
// invocation and treated as immutable once a run starts. The engine
// retains no state between calls.
package estimate

import (
	"fmt"

	"github.com/apexcost/riskengine/internal/dist"
)

// ApplyMode controls how a sampled risk value combines with an item's
// deterministic base cost.
type ApplyMode string

const (
	// ApplyMultiplier: item cost = base * sample. The usual encoding for
	// uncertainty bands around a point estimate (e.g. triangular around 1).
	ApplyMultiplier ApplyMode = "multiplier"

	// ApplyAdditive: item cost = base + sample. Used for absolute-value
	// risks such as lump-sum exposure.
	ApplyAdditive ApplyMode = "additive"
)

// RiskFactor is an uncertain input attached to a line item.
// Immutable once a run starts.
type RiskFactor struct {
	ID    string            `json:"id" yaml:"id"`
	Dist  dist.Distribution `json:"dist" yaml:"dist"`
	Apply ApplyMode         `json:"apply,omitempty" yaml:"apply,omitempty"`
	Unit  string            `json:"unit,omitempty" yaml:"unit,omitempty"`
}

// Mode returns the apply mode, defaulting to multiplier.
func (f RiskFactor) Mode() ApplyMode {
	if f.Apply == "" {
		return ApplyMultiplier
	}
	return f.Apply
}

// LineItem is one node of the cost breakdown tree. Items with children
// are pure roll-up nodes: their total is the sum of their children and
// they carry no base cost or risk factor of their own. Leaves carry the
// deterministic quantity x unit cost and at most one risk factor.
type LineItem struct {
	ID          string      `json:"id" yaml:"id"`
	ParentID    string      `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Quantity    float64     `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitCost    float64     `json:"unit_cost,omitempty" yaml:"unit_cost,omitempty"`
	Factor      *RiskFactor `json:"factor,omitempty" yaml:"factor,omitempty"`
}

// BaseCost is the item's deterministic cost before risk.
func (it LineItem) BaseCost() float64 {
	return it.Quantity * it.UnitCost
}

// CorrelationSpec is an unordered pair of risk factor ids with a target
// Spearman rank correlation in [-1, 1].
type CorrelationSpec struct {
	FactorA string  `json:"factor_a" yaml:"factor_a"`
	FactorB string  `json:"factor_b" yaml:"factor_b"`
	Rho     float64 `json:"rho" yaml:"rho"`
}

// Estimate is the full input to one simulation run.
type Estimate struct {
	Items        []LineItem        `json:"items" yaml:"items"`
	Correlations []CorrelationSpec `json:"correlations,omitempty" yaml:"correlations,omitempty"`
}

// Validate checks structural integrity of the line-item tree and the
// correlation specs. Distribution parameters and coefficient ranges are
// validated separately by the engine so all failures carry typed codes;
// this method covers references and shape.
func (e *Estimate) Validate() error {
	if len(e.Items) == 0 {
		return fmt.Errorf("estimate has no line items")
	}

	byID := make(map[string]*LineItem, len(e.Items))
	for i := range e.Items {
		it := &e.Items[i]
		if it.ID == "" {
			return fmt.Errorf("line item %d has empty id", i)
		}
		if _, dup := byID[it.ID]; dup {
			return fmt.Errorf("duplicate line item id %q", it.ID)
		}
		byID[it.ID] = it
	}

	hasChildren := make(map[string]bool, len(e.Items))
	for i := range e.Items {
		it := &e.Items[i]
		if it.ParentID == "" {
			continue
		}
		if _, ok := byID[it.ParentID]; !ok {
			return fmt.Errorf("line item %q references unknown parent %q", it.ID, it.ParentID)
		}
		if it.ParentID == it.ID {
			return fmt.Errorf("line item %q is its own parent", it.ID)
		}
		hasChildren[it.ParentID] = true
	}

	// Cycle check: walk each item's parent chain; a chain longer than
	// the item count means a loop.
	for i := range e.Items {
		steps := 0
		for cur := &e.Items[i]; cur.ParentID != ""; cur = byID[cur.ParentID] {
			steps++
			if steps > len(e.Items) {
				return fmt.Errorf("parent cycle involving line item %q", e.Items[i].ID)
			}
		}
	}

	factorIDs := make(map[string]bool)
	for i := range e.Items {
		it := &e.Items[i]
		if hasChildren[it.ID] {
			if it.Factor != nil {
				return fmt.Errorf("roll-up item %q cannot carry a risk factor", it.ID)
			}
			if it.BaseCost() != 0 {
				return fmt.Errorf("roll-up item %q cannot carry a base cost; its total is the sum of its children", it.ID)
			}
			continue
		}
		if it.Factor == nil {
			continue
		}
		if it.Factor.ID == "" {
			return fmt.Errorf("risk factor on item %q has empty id", it.ID)
		}
		if factorIDs[it.Factor.ID] {
			return fmt.Errorf("duplicate risk factor id %q", it.Factor.ID)
		}
		factorIDs[it.Factor.ID] = true
		switch it.Factor.Mode() {
		case ApplyMultiplier, ApplyAdditive:
		default:
			return fmt.Errorf("risk factor %q has unknown apply mode %q", it.Factor.ID, it.Factor.Apply)
		}
	}

	for _, cs := range e.Correlations {
		if !factorIDs[cs.FactorA] {
			return fmt.Errorf("correlation references unknown risk factor %q", cs.FactorA)
		}
		if !factorIDs[cs.FactorB] {
			return fmt.Errorf("correlation references unknown risk factor %q", cs.FactorB)
		}
		if cs.FactorA == cs.FactorB {
			return fmt.Errorf("correlation pairs risk factor %q with itself", cs.FactorA)
		}
	}
	return nil
}

// Leaves returns the leaf line items in declaration order. Declaration
// order is part of the determinism contract: it fixes factor column
// assignment and therefore the byte-identical replay guarantee.
func (e *Estimate) Leaves() []*LineItem {
	hasChildren := make(map[string]bool, len(e.Items))
	for i := range e.Items {
		if p := e.Items[i].ParentID; p != "" {
			hasChildren[p] = true
		}
	}
	var leaves []*LineItem
	for i := range e.Items {
		if !hasChildren[e.Items[i].ID] {
			leaves = append(leaves, &e.Items[i])
		}
	}
	return leaves
}

// Factors returns the risk factors of all leaves in declaration order.
func (e *Estimate) Factors() []*RiskFactor {
	var fs []*RiskFactor
	for _, leaf := range e.Leaves() {
		if leaf.Factor != nil {
			fs = append(fs, leaf.Factor)
		}
	}
	return fs
}

// BaseCost returns the deterministic total before risk: the sum of
// quantity x unit cost over all leaves.
func (e *Estimate) BaseCost() float64 {
	var total float64
	for _, leaf := range e.Leaves() {
		total += leaf.BaseCost()
	}
	return total
}

package estimate

// Totals rolls the line-item tree up into one total project cost per
// iteration. samplesFor returns the per-iteration sample column for a
// risk factor id, or nil for factors that were not sampled.
//
// The walk is leaf-by-leaf with a single running totals slice, so memory
// stays O(iterations) regardless of tree depth or factor count. Items
// without a risk factor are the degenerate zero-variance case: they add
// the same base cost to every iteration, there is no special branch for
// them at aggregation time.
//
// Parent totals are by construction the sum of their children: only
// leaves contribute, and every leaf rolls up through its parent chain.
func (e *Estimate) Totals(n int, samplesFor func(factorID string) []float64) []float64 {
	totals := make([]float64, n)
	for _, leaf := range e.Leaves() {
		base := leaf.BaseCost()

		var col []float64
		mode := ApplyMultiplier
		if leaf.Factor != nil {
			col = samplesFor(leaf.Factor.ID)
			mode = leaf.Factor.Mode()
		}

		if col == nil {
			for i := range totals {
				totals[i] += base
			}
			continue
		}

		switch mode {
		case ApplyAdditive:
			for i := range totals {
				totals[i] += base + col[i]
			}
		default:
			for i := range totals {
				totals[i] += base * col[i]
			}
		}
	}
	return totals
}

// ItemTotals computes the per-iteration cost of a single subtree rooted
// at itemID. Used for drill-down reporting; the simulation itself only
// needs Totals.
func (e *Estimate) ItemTotals(itemID string, n int, samplesFor func(factorID string) []float64) []float64 {
	inSubtree := e.subtree(itemID)
	totals := make([]float64, n)
	for _, leaf := range e.Leaves() {
		if !inSubtree[leaf.ID] {
			continue
		}
		base := leaf.BaseCost()
		if leaf.Factor == nil {
			for i := range totals {
				totals[i] += base
			}
			continue
		}
		col := samplesFor(leaf.Factor.ID)
		if col == nil {
			for i := range totals {
				totals[i] += base
			}
			continue
		}
		switch leaf.Factor.Mode() {
		case ApplyAdditive:
			for i := range totals {
				totals[i] += base + col[i]
			}
		default:
			for i := range totals {
				totals[i] += base * col[i]
			}
		}
	}
	return totals
}

// subtree returns the set of item ids at or below itemID.
func (e *Estimate) subtree(itemID string) map[string]bool {
	in := map[string]bool{itemID: true}
	// Items are not guaranteed to be declared parent-first, so iterate
	// until the membership set stops growing.
	for {
		grew := false
		for i := range e.Items {
			it := &e.Items[i]
			if !in[it.ID] && it.ParentID != "" && in[it.ParentID] {
				in[it.ID] = true
				grew = true
			}
		}
		if !grew {
			return in
		}
	}
}

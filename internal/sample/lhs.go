// Package sample implements seeded Latin Hypercube sampling.
//
// For N iterations, (0,1) is partitioned into N equal strata. Each column
// draws one jittered point per stratum and then shuffles the strata across
// iterations, so every stratum of every column is visited exactly once.
// This evens out marginal coverage and cuts percentile-estimate variance
// versus naive random sampling at the same N.
//
// DETERMINISM: all randomness comes from math/rand/v2 PCG generators keyed
// by (seed, stream). Each column owns one stream, so columns are mutually
// independent and a run is byte-reproducible from its seed alone. Stream
// numbers are assigned by the caller; the engine reserves disjoint stream
// ranges for marginal sampling and for correlation-induction scores.
package sample

import (
	"math/rand/v2"
)

// uniformFloor keeps variates strictly inside (0,1) so inverse CDFs with
// unbounded support never see 0 or 1. 2^-53 is one ULP below 1.
const uniformFloor = 1.0 / (1 << 53)

// Column returns n stratified uniform variates in (0,1) for one factor.
// Stratum i contributes one point in (i/n, (i+1)/n); the points are
// shuffled across iteration positions.
func Column(seed, stream uint64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, stream))

	// Permutation first, jitters second. The draw order is part of the
	// reproducibility contract - do not reorder.
	perm := rng.Perm(n)

	u := make([]float64, n)
	for i, p := range perm {
		j := rng.Float64()
		if j < uniformFloor {
			j = uniformFloor
		}
		u[i] = (float64(p) + j) / float64(n)
	}
	return u
}

// Matrix returns k columns of n stratified variates each. Column j uses
// stream base+j. The result is column-major: m[j][i] is iteration i of
// factor j.
func Matrix(seed, base uint64, n, k int) [][]float64 {
	m := make([][]float64, k)
	for j := range m {
		m[j] = Column(seed, base+uint64(j), n)
	}
	return m
}

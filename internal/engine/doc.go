// Package engine orchestrates one Monte Carlo cost-risk simulation:
// validate, seed, sample, correlate, aggregate, analyze.
//
// ARCHITECTURE:
//
// A run is a pure, CPU-bound computation over its inputs with no I/O
// and no shared mutable state. Pipeline, strictly in order:
//
//  1. Validation - distribution parameters, correlation coefficients,
//     iteration bounds. All failures surface before any sampling.
//  2. Stratified sampling - one Latin Hypercube column per risk factor,
//     transformed through the factor's inverse CDF.
//  3. Correlation induction - Iman-Conover reorder toward the target
//     rank-correlation matrix. A non-PSD target is projected to the
//     nearest PSD matrix and flagged on the result, never failed and
//     never silently accepted. The realized correlation of every
//     specified pair is re-measured and reported.
//  4. Aggregation - bottom-up line-item roll-up, one total per
//     iteration, O(iterations) memory.
//  5. Analysis - percentiles (Hyndman-Fan type 7) and the Spearman
//     tornado ranking.
//
// CRITICAL PATTERNS:
//
// Explicit seed. All randomness derives from one uint64 seed per run,
// generated if absent and always returned on the result. Identical
// inputs plus identical seed produce a byte-identical canonical result,
// verified by hash. This is an audit requirement, not an optimization:
// any stored percentile must be exactly regenerable by replay.
//
// No partial output. A timeout or a NaN/Inf aborts the whole run with a
// typed error. Partial Monte Carlo output is statistically invalid and
// is never surfaced as complete.
//
// Concurrency. Many runs may execute in parallel with no locking; a run
// touches nothing outside its own inputs. The invoking layer runs the
// computation off any request-handling thread and sets the wall-clock
// budget via context deadline.
package engine

// Package correlate induces a target rank-correlation structure among
// independently sampled columns using the Iman-Conover method.
//
// The induction reorders values WITHIN each column and never rewrites
// them, so every column's marginal distribution is preserved exactly.
// The realized correlation is an approximation of the target; callers
// must re-measure it (see Spearman) and report it rather than assume it.
//
// ARCHITECTURE:
//
//  1. Pairwise specs are assembled into a symmetric unit-diagonal matrix.
//  2. If the matrix is not positive semi-definite (common with
//     hand-entered pairwise values) it is projected to the nearest PSD
//     correlation matrix by eigenvalue clipping. The projection is
//     surfaced as a correction, never applied silently.
//  3. An auxiliary matrix of stratified van der Waerden scores is
//     multiplied by the Cholesky factor of the target, giving scores
//     whose Pearson correlation approximates the target. Rank
//     correlation is monotone in the underlying correlation, which is
//     the standard Iman-Conover approximation.
//  4. Each original column is reordered so its rank order matches the
//     rank order of its correlated score column.
//
// Columns that appear in no pairwise spec pass through untouched.
package correlate

package correlate

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/apexcost/riskengine/internal/sample"
)

// Induce reorders the sample columns in place so their joint rank
// correlation approximates the target matrix c, leaving each column's
// value set untouched (Iman-Conover).
//
// The auxiliary normal scores are stratified (Latin Hypercube on streams
// scoreBase..scoreBase+k-1 of the run seed) for variance reduction,
// mirroring the marginal sampler. Columns with no off-diagonal entries
// in c are not touched.
//
// c must be positive definite; callers run NearestPSD first.
func Induce(columns [][]float64, c *mat.SymDense, seed, scoreBase uint64) error {
	k := len(columns)
	if k < 2 {
		return nil
	}
	n := len(columns[0])

	var chol mat.Cholesky
	if !chol.Factorize(c) {
		return &MatrixError{Message: "not positive definite; project with NearestPSD before inducing"}
	}
	var l mat.TriDense
	chol.LTo(&l)

	// Stratified van der Waerden scores, one stream per column.
	scores := make([][]float64, k)
	for j := 0; j < k; j++ {
		u := sample.Column(seed, scoreBase+uint64(j), n)
		col := make([]float64, n)
		for i, v := range u {
			col[i] = distuv.UnitNormal.Quantile(v)
		}
		scores[j] = col
	}

	// correlated = scores * L^T, computed per column:
	// correlated[j][i] = sum over m<=j of L[j][m] * scores[m][i].
	involved := Involved(c)
	for j := k - 1; j >= 0; j-- {
		if !involved[j] {
			continue
		}
		correlated := make([]float64, n)
		for m := 0; m <= j; m++ {
			w := l.At(j, m)
			if w == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				correlated[i] += w * scores[m][i]
			}
		}

		// Reorder the original column so its ranks match the ranks of
		// the correlated scores: position of the r-th smallest score
		// receives the r-th smallest original value.
		order := argsort(correlated)
		sorted := append([]float64(nil), columns[j]...)
		sort.Float64s(sorted)
		for r, i := range order {
			columns[j][i] = sorted[r]
		}
	}
	return nil
}

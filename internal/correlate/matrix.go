package correlate

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pair is one pairwise rank-correlation target between column indices.
// The pair is unordered; (I, J, rho) and (J, I, rho) are the same target.
type Pair struct {
	I, J int
	Rho  float64
}

// psdEigenFloor is the eigenvalue floor used by the nearest-PSD
// projection. Clipping to a small positive value (rather than zero)
// keeps the corrected matrix strictly positive definite so the Cholesky
// factorization cannot fail afterwards.
const psdEigenFloor = 1e-8

// MatrixError reports an invalid correlation target assembly.
type MatrixError struct {
	Message string
}

func (e *MatrixError) Error() string {
	return "correlation matrix: " + e.Message
}

// BuildMatrix assembles pairwise targets into a k x k symmetric matrix
// with unit diagonal. It rejects out-of-range coefficients, self pairs,
// out-of-bounds indices, and conflicting duplicate pairs.
func BuildMatrix(k int, pairs []Pair) (*mat.SymDense, error) {
	c := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		c.SetSym(i, i, 1)
	}

	type key struct{ lo, hi int }
	seen := make(map[key]float64, len(pairs))

	for _, p := range pairs {
		if p.I < 0 || p.I >= k || p.J < 0 || p.J >= k {
			return nil, &MatrixError{Message: fmt.Sprintf("pair (%d,%d) out of range for %d factors", p.I, p.J, k)}
		}
		if p.I == p.J {
			return nil, &MatrixError{Message: fmt.Sprintf("self correlation on column %d", p.I)}
		}
		if math.IsNaN(p.Rho) || p.Rho < -1 || p.Rho > 1 {
			return nil, &MatrixError{Message: fmt.Sprintf("coefficient %v for pair (%d,%d) outside [-1, 1]", p.Rho, p.I, p.J)}
		}
		lo, hi := p.I, p.J
		if lo > hi {
			lo, hi = hi, lo
		}
		if prev, ok := seen[key{lo, hi}]; ok && prev != p.Rho {
			return nil, &MatrixError{Message: fmt.Sprintf("conflicting targets %v and %v for pair (%d,%d)", prev, p.Rho, lo, hi)}
		}
		seen[key{lo, hi}] = p.Rho
		c.SetSym(lo, hi, p.Rho)
	}
	return c, nil
}

// IsPSD reports whether the matrix admits a Cholesky factorization,
// i.e. is positive definite up to numerical tolerance.
func IsPSD(c *mat.SymDense) bool {
	var chol mat.Cholesky
	return chol.Factorize(c)
}

// NearestPSD projects a symmetric unit-diagonal matrix onto the nearest
// positive semi-definite correlation matrix: negative eigenvalues are
// clipped to a small floor, the matrix is reassembled, and the diagonal
// is rescaled back to one.
//
// Returns the corrected matrix and true when a correction was applied,
// or the input and false when it was already PSD.
func NearestPSD(c *mat.SymDense) (*mat.SymDense, bool, error) {
	if IsPSD(c) {
		return c, false, nil
	}

	var eig mat.EigenSym
	if !eig.Factorize(c, true) {
		return nil, false, &MatrixError{Message: "eigendecomposition failed"}
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	for i, v := range vals {
		if v < psdEigenFloor {
			vals[i] = psdEigenFloor
		}
	}

	// B = V * diag(clipped) * V^T
	k := len(vals)
	var scaled mat.Dense
	scaled.Scale(1, &vecs)
	for j := 0; j < k; j++ {
		for i := 0; i < k; i++ {
			scaled.Set(i, j, vecs.At(i, j)*vals[j])
		}
	}
	var b mat.Dense
	b.Mul(&scaled, vecs.T())

	// Rescale to unit diagonal so the result is a correlation matrix.
	out := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			v := b.At(i, j) / math.Sqrt(b.At(i, i)*b.At(j, j))
			out.SetSym(i, j, v)
		}
	}
	for i := 0; i < k; i++ {
		out.SetSym(i, i, 1)
	}

	if !IsPSD(out) {
		return nil, false, &MatrixError{Message: "projection did not produce a positive definite matrix"}
	}
	return out, true, nil
}

// Involved reports which columns participate in at least one off-diagonal
// entry. Columns not involved must pass through induction untouched.
func Involved(c *mat.SymDense) []bool {
	k := c.SymmetricDim()
	involved := make([]bool, k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			if i != j && c.At(i, j) != 0 {
				involved[i] = true
				break
			}
		}
	}
	return involved
}

package davidson

import "gonum.org/v1/gonum/mat"

// defaultDenseEigenSolver implements DenseEigenSolver on top of
// gonum.org/v1/gonum/mat.EigenSym, which itself wraps LAPACK's dsyev via
// lapack64.Syev.
type defaultDenseEigenSolver struct{}

// NewDefaultDenseEigenSolver returns the gonum-backed DenseEigenSolver used
// when Options.WithDenseEigen is not called.
func NewDefaultDenseEigenSolver() DenseEigenSolver { return defaultDenseEigenSolver{} }

func (defaultDenseEigenSolver) EigenDecompose(h *mat.SymDense, vectors bool) ([]float64, *mat.Dense, bool) {
	var eig mat.EigenSym
	ok := eig.Factorize(h, vectors)
	if !ok {
		return nil, nil, false
	}
	values := eig.Values(nil)
	if !vectors {
		return values, nil, true
	}
	var vecs mat.Dense
	vecs.EigenvectorsSym(&eig)
	return values, &vecs, true
}

func (defaultDenseEigenSolver) WorkspaceSize(n int) int {
	// mat.EigenSym queries LAPACK's own workspace size internally; this is
	// a conservative estimate for callers sizing their own scratch.
	return 8 * n
}

// defaultDenseSVDSolver implements DenseSVDSolver on top of
// gonum.org/v1/gonum/mat.SVD, used for harmonic and refined extraction.
type defaultDenseSVDSolver struct{}

// NewDefaultDenseSVDSolver returns the gonum-backed DenseSVDSolver used
// when Options.WithDenseSVD is not called.
func NewDefaultDenseSVDSolver() DenseSVDSolver { return defaultDenseSVDSolver{} }

func (defaultDenseSVDSolver) SVD(r *mat.Dense) (*mat.Dense, *mat.Dense, []float64, bool) {
	svd := mat.SVD{U: mat.SVDThin, V: mat.SVDThin}
	ok := svd.Factorize(r)
	if !ok {
		return nil, nil, nil, false
	}
	// LAPACK/gonum return singular values descending; the driver's reset
	// heuristic (driver.go) indexes hSVals[0] expecting the smallest, so
	// reverse the order here and permute u/v columns to match.
	descending := svd.Values(nil)
	var uFull, vFull mat.Dense
	svd.UTo(&uFull)
	svd.VTo(&vFull)

	n := len(descending)
	values := make([]float64, n)
	u := mat.NewDense(uFull.RawMatrix().Rows, n, nil)
	v := mat.NewDense(vFull.RawMatrix().Rows, n, nil)
	for i := 0; i < n; i++ {
		src := n - 1 - i
		values[i] = descending[src]
		u.SetCol(i, mat.Col(nil, src, &uFull))
		v.SetCol(i, mat.Col(nil, src, &vFull))
	}
	return u, v, values, true
}

func (defaultDenseSVDSolver) WorkspaceSize(rows, cols int) int {
	return 8 * (rows + cols)
}

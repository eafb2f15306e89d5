package davidson

import "gonum.org/v1/gonum/mat"

// MatVec applies the operator A to blockSize columns of in, writing the
// result into out. Both in and out are nLocal x blockSize, column-major,
// owned by the driver for the duration of the call only: implementations
// must not retain in or out past the call. MatVec must be linear and must
// return bitwise-identical results across processes for identical input.
type MatVec interface {
	Apply(in, out *mat.Dense) error
}

// MatVecFunc adapts a function to MatVec.
type MatVecFunc func(in, out *mat.Dense) error

// Apply implements MatVec.
func (f MatVecFunc) Apply(in, out *mat.Dense) error { return f(in, out) }

// Preconditioner applies an approximation to (A - sigma*I)^-1. It need not
// be linear in general, but must be identical across processes given
// identical input.
type Preconditioner interface {
	Apply(in, out *mat.Dense) error
}

// PreconditionerFunc adapts a function to Preconditioner.
type PreconditionerFunc func(in, out *mat.Dense) error

// Apply implements Preconditioner.
func (f PreconditionerFunc) Apply(in, out *mat.Dense) error { return f(in, out) }

// GlobalSum is the sole distributed-coordination primitive: an elementwise
// sum of a real-valued buffer across processes. Every scalar decision
// variable that follows a reduction (cost-model ratios, the
// restartsSinceReset heuristic, residual norms) must be produced through
// this interface rather than computed locally, to guarantee identical
// control flow on every process.
type GlobalSum interface {
	// SumInto writes the elementwise sum across all processes of in into
	// out. len(in) == len(out) is guaranteed by the caller. Implementations
	// may set out = in when numProcs == 1.
	SumInto(out, in []float64) error
}

// DenseEigenSolver is the narrow external-collaborator interface to the
// dense projected eigensolver. H is Hermitian of size n x n;
// EigenDecompose returns ascending eigenvalues and, if vectors is true,
// the corresponding eigenvectors as columns.
type DenseEigenSolver interface {
	EigenDecompose(h *mat.SymDense, vectors bool) (values []float64, vectors_ *mat.Dense, ok bool)
	// WorkspaceSize reports the scratch floats EigenDecompose will need for
	// a problem of size n.
	WorkspaceSize(n int) int
}

// DenseSVDSolver is the narrow external-collaborator interface to the
// dense SVD used for refined extraction: it factors R = U * Sigma * V^T,
// returning the left singular vectors u, the right singular vectors v, and
// the singular values sigma, all sorted ascending (smallest first) so that
// index 0 is always the smallest singular value.
type DenseSVDSolver interface {
	SVD(r *mat.Dense) (u, v *mat.Dense, sigma []float64, ok bool)
	WorkspaceSize(rows, cols int) int
}

// Orthogonalizer re-orthogonalizes columns [b1,b2) of v against v's own
// columns [0,b1) and against locked, replacing numerically zero columns
// with random directions. iseed is a four-element RNG state convention,
// carried so a caller-supplied deterministic Orthogonalizer can reproduce
// a run bit-for-bit.
type Orthogonalizer interface {
	Orthogonalize(v *mat.Dense, b1, b2 int, locked *mat.Dense, iseed *[4]uint16) error
}

// CorrectionSolver produces new basis directions from the current block's
// residuals. A dynamic switch can choose between a GD+k and a JDQMR
// implementation at runtime. The returned directions occupy the same
// shape as residuals.
type CorrectionSolver interface {
	Solve(req *CorrectionRequest) (*mat.Dense, error)
}

// CorrectionRequest bundles everything a CorrectionSolver needs: the
// current block's Ritz values/vectors/residuals, the operator and
// preconditioner, and the projector configuration.
type CorrectionRequest struct {
	RitzValues    []float64
	RitzVectors   *mat.Dense // nLocal x block, current approximate eigenvectors
	Residuals     *mat.Dense // nLocal x block
	MatVec        MatVec
	Precon        Preconditioner
	GlobalSum     GlobalSum
	PrevRitzVals  []float64
	Projectors    Projectors
	MaxInnerIters int // 0 = none (GD+k only), -1 = adaptive JDQMR, >0 = fixed
	Tolerance     float64
}

// Projectors controls the skew/orthogonal projection applied before the
// inner correction solve.
type Projectors struct {
	RightQ bool
	SkewQ  bool
	RightX bool
	SkewX  bool
}

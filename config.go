package davidson

import "gonum.org/v1/gonum/mat"

// Projection selects the Ritz extraction strategy used to form approximate
// eigenpairs from the current subspace.
type Projection int

const (
	// RR is plain Rayleigh-Ritz extraction.
	RR Projection = iota
	// Harmonic extraction targets interior eigenvalues via a QR
	// factorization of (A - tau*I) V.
	Harmonic
	// Refined extraction additionally uses the SVD of R from the harmonic
	// QR factorization.
	Refined
)

// Locking selects whether converged pairs are removed from the working
// basis (hard locking) or merely flagged (soft locking).
type Locking int

const (
	// LockingOff performs soft locking: converged pairs stay in the basis
	// and are re-checked at verification time.
	LockingOff Locking = iota
	// LockingOn removes converged pairs into the locked set as soon as
	// they are identified during a restart.
	LockingOn
)

// DynamicSwitch selects whether, and how, the driver alternates between
// the GD+k and JDQMR correction strategies at runtime.
type DynamicSwitch int

const (
	// DynamicOff always uses the correction strategy implied by
	// CorrectionOptions.MaxInnerIterations.
	DynamicOff DynamicSwitch = iota
	// DynamicState1 starts the state machine in state 1 (GD+k, few
	// eigenvalues, evaluate every restart).
	DynamicState1
	// DynamicState2 starts in state 2 (JDQMR, few eigenvalues, evaluate
	// every outer step).
	DynamicState2
	// DynamicState3 starts in state 3 (GD+k, many eigenvalues, evaluate
	// only when a pair converges).
	DynamicState3
	// DynamicState4 starts in state 4 (JDQMR, many eigenvalues, evaluate
	// only when a pair converges).
	DynamicState4
)

// CorrectionOptions configures the inner correction-equation solver.
type CorrectionOptions struct {
	// MaxInnerIterations: 0 = GD+k only (no inner solve), -1 = adaptive
	// JDQMR, >0 = fixed number of inner iterations.
	MaxInnerIterations int
	Precondition       bool
	Projectors         Projectors
}

// RestartOptions configures thick restart / "+k" behavior.
type RestartOptions struct {
	MaxPrevRetain int
}

// Options configures a Solver. It follows a functional-options-by-value
// pattern: NewOptions returns sensible defaults and each setter returns a
// modified copy, so call sites read as
// NewOptions().NumEvals(5).WithTarget(Smallest).
type Options struct {
	numEvals      int
	numOrthoConst int
	maxBasisSize  int
	minRestart    int
	maxBlockSize  int

	target       Target
	targetShifts []float64
	projection   Projection
	locking      Locking
	dynamic      DynamicSwitch

	correction CorrectionOptions
	restart    RestartOptions

	eps   float64
	aNorm float64

	maxMatvecs         int
	maxOuterIterations int

	iseed [4]uint16

	// straddlingPairsJoinBlock governs closest_leq/closest_geq pairs whose
	// residual band lies entirely on the wrong side of tau (see
	// straddlesShift): if false (default), such pairs are both
	// excluded from the convergence count and removed from the working
	// block; if true, they remain in the block but are still excluded from
	// the count.
	straddlingPairsJoinBlock bool

	numProcs int

	matVec    MatVec
	precon    Preconditioner
	globalSum GlobalSum
	ortho     Orthogonalizer
	denseEig  DenseEigenSolver
	denseSVD  DenseSVDSolver
	corrector CorrectionSolver

	initialGuesses *mat.Dense
}

// NewOptions returns an Options with conservative defaults: Rayleigh-Ritz
// extraction, soft locking, dynamic switching off, a single process,
// MaxBlockSize 1.
func NewOptions() Options {
	return Options{
		numEvals: 1,
		target:   Smallest,
		eps:      1e-12,
		iseed:    [4]uint16{1, 2, 3, 5},
		numProcs: 1,

		maxBlockSize: 1,
	}
}

func (o Options) NumEvals(v int) Options      { o.numEvals = v; return o }
func (o Options) NumOrthoConst(v int) Options  { o.numOrthoConst = v; return o }
func (o Options) MaxBasisSize(v int) Options   { o.maxBasisSize = v; return o }
func (o Options) MinRestartSize(v int) Options { o.minRestart = v; return o }
func (o Options) MaxBlockSize(v int) Options   { o.maxBlockSize = v; return o }

func (o Options) WithTarget(v Target) Options          { o.target = v; return o }
func (o Options) TargetShifts(v []float64) Options     { o.targetShifts = v; return o }
func (o Options) WithProjection(v Projection) Options   { o.projection = v; return o }
func (o Options) WithLocking(v Locking) Options         { o.locking = v; return o }
func (o Options) WithDynamicSwitch(v DynamicSwitch) Options { o.dynamic = v; return o }

func (o Options) Correction(v CorrectionOptions) Options { o.correction = v; return o }
func (o Options) Restart(v RestartOptions) Options       { o.restart = v; return o }

func (o Options) Eps(v float64) Options    { o.eps = v; return o }
func (o Options) NormA(v float64) Options   { o.aNorm = v; return o }

func (o Options) MaxMatvecs(v int) Options         { o.maxMatvecs = v; return o }
func (o Options) MaxOuterIterations(v int) Options { o.maxOuterIterations = v; return o }

func (o Options) Iseed(v [4]uint16) Options { o.iseed = v; return o }
func (o Options) NumProcs(v int) Options    { o.numProcs = v; return o }

func (o Options) StraddlingPairsJoinBlock(v bool) Options {
	o.straddlingPairsJoinBlock = v
	return o
}

func (o Options) WithMatVec(v MatVec) Options               { o.matVec = v; return o }
func (o Options) WithPrecon(v Preconditioner) Options        { o.precon = v; return o }
func (o Options) WithGlobalSum(v GlobalSum) Options          { o.globalSum = v; return o }
func (o Options) WithOrtho(v Orthogonalizer) Options         { o.ortho = v; return o }
func (o Options) WithDenseEigen(v DenseEigenSolver) Options  { o.denseEig = v; return o }
func (o Options) WithDenseSVD(v DenseSVDSolver) Options      { o.denseSVD = v; return o }
func (o Options) WithCorrectionSolver(v CorrectionSolver) Options {
	o.corrector = v
	return o
}

// WithInitialGuesses supplies a pool of initial basis vectors; Solve
// consumes up to minRestartSize of them for the initial basis, falling
// back to random directions for the rest, and after each restart tops the
// basis up to minRestartSize from the guesses not yet used. InitFailure is
// returned only if no usable basis can be formed at all.
func (o Options) WithInitialGuesses(v *mat.Dense) Options { o.initialGuesses = v; return o }

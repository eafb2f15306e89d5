package davidson

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Solve runs the outer Davidson-type driver: it grows the search
// subspace, extracts Ritz pairs, tests convergence, restarts with
// thick-restart recurrence retention, locks converged pairs when
// requested, and dynamically switches between GD+k and JDQMR corrections.
//
// It runs three nested loops: outer verification (only re-entered when
// soft-converged pairs drift unconverged after a restart), restart, and
// growth.
func (s *Solver) Solve() (*Result, error) {
	if s.n == 1 {
		return s.solveTrivial()
	}
	if s.opt.numEvals == 0 {
		return &Result{Code: Success}, nil
	}

	dense := s.opt.denseEig
	if dense == nil {
		dense = NewDefaultDenseEigenSolver()
	}
	svd := s.opt.denseSVD
	if svd == nil {
		svd = NewDefaultDenseSVDSolver()
	}
	globalSum := s.opt.globalSum
	if globalSum == nil {
		globalSum = defaultGlobalSum(s.opt.numProcs)
	}
	ortho := s.opt.ortho
	if ortho == nil {
		ortho = newDefaultOrthogonalizer(s.rng)
	}

	if err := s.initBasis(ortho); err != nil {
		return nil, err
	}
	if err := s.refreshW(0, s.basisSize); err != nil {
		return nil, err
	}
	s.recomputeH()
	if err := s.solveH(dense, svd); err != nil {
		return nil, err
	}

	for {
		// Outer verification: reset per-pair flags and recompute H from
		// scratch before re-entering the restart loop.
		for i := range s.ws.flags[:s.basisSize] {
			s.ws.flags[i] = unconverged
		}
		s.recomputeH()
		if err := s.solveH(dense, svd); err != nil {
			return nil, err
		}

		stopEarly, err := s.restartLoop(dense, svd, ortho, globalSum)
		if err != nil {
			return nil, err
		}
		if stopEarly {
			return s.finish(s.exitCodeWithoutLocking())
		}

		if s.opt.locking == LockingOn {
			if s.numConverged == s.opt.numEvals || s.wholeSpace {
				return s.finish(Success)
			}
			return s.finish(MaxIterationsReached)
		}

		ok, err := s.verifyNorms(globalSum)
		if err != nil {
			return nil, err
		}
		if ok || s.budgetExhausted() || s.wholeSpace {
			return s.finish(s.exitCodeWithoutLocking())
		}
		// Some pairs drifted unconverged after the last restart recombined
		// the basis: full re-orthogonalization and a full W = A*V
		// recomputation, then fall back to outer verification.
		v := s.ws.v.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
		if err := ortho.Orthogonalize(v, 0, s.basisSize, s.lockedCols(), &s.opt.iseed); err != nil {
			return nil, fault(OrthoFailure, err)
		}
		if err := s.refreshW(0, s.basisSize); err != nil {
			return nil, err
		}
		s.restartsSinceReset = 0
		s.reset = 0
	}
}

// exitCodeWithoutLocking returns Success unless the exit was forced purely
// by an exhausted budget.
func (s *Solver) exitCodeWithoutLocking() ExitCode {
	if s.numConverged < s.opt.numEvals && s.budgetExhausted() && !s.wholeSpace {
		return MaxIterationsReached
	}
	return Success
}

// restartLoop runs until numConverged >= numEvals, a budget is reached, or
// the basis has spanned the whole orthogonal complement. It returns true
// when the caller should stop without re-entering outer verification,
// which happens only when a budget was exhausted mid-loop.
func (s *Solver) restartLoop(dense DenseEigenSolver, svd DenseSVDSolver, ortho Orthogonalizer, globalSum GlobalSum) (bool, error) {
	for {
		if s.numConverged >= s.opt.numEvals {
			return false, nil
		}
		if s.basisSize >= s.n-s.opt.numOrthoConst-s.numLocked {
			s.wholeSpace = true
			return false, nil
		}
		if s.budgetExhausted() {
			return true, nil
		}

		if _, err := s.growthLoop(dense, svd, ortho, globalSum); err != nil {
			return false, err
		}

		if s.targetShiftIndex >= 0 {
			s.prepareVecs()
		}

		if err := s.restart(dense, svd); err != nil {
			return false, err
		}

		if err := s.pullInitialGuesses(ortho); err != nil {
			return false, err
		}

		if s.wholeSpace {
			return false, nil
		}
	}
}

// growthLoop extends basisSize by up to availableBlockSize per step until
// the basis is full, a budget is reached, or a convergence/shift-change
// event forces an early restart. The returned bool reports whether an
// early restart was requested (informational; the caller always restarts
// after growthLoop returns).
func (s *Solver) growthLoop(dense DenseEigenSolver, svd DenseSVDSolver, ortho Orthogonalizer, globalSum GlobalSum) (bool, error) {
	s.numOuterIterations++
	for s.basisSize < s.opt.maxBasisSize {
		if s.budgetExhausted() {
			return false, nil
		}

		avail := s.availableBlockSize()

		if s.resetHeuristicForRefined() {
			s.targetShiftIndex = -1
			s.reset = 2
			return true, nil
		}

		block, _, err := s.prepareBlock(globalSum)
		if err != nil {
			return false, err
		}

		if s.earlyRestart() {
			return true, nil
		}

		var corrections *mat.Dense
		if len(block) == 0 {
			// The basis already spans an exact invariant subspace: zero the
			// next columns so orthogonalization invents random directions
			// instead of running a correction solve on nothing.
			corrections = mat.NewDense(s.nLocal, avail, nil)
		} else {
			corrections, err = s.runCorrection(block, globalSum)
			if err != nil {
				return false, err
			}
		}

		a := s.basisSize
		b := a + avail
		if b > s.opt.maxBasisSize {
			b = s.opt.maxBasisSize
		}
		_, correctionCols := corrections.Dims()
		for j := 0; j < b-a && j < correctionCols; j++ {
			s.ws.v.SetCol(a+j, mat.Col(nil, j, corrections))
		}

		v := s.ws.v.Slice(0, s.nLocal, 0, b).(*mat.Dense)
		if err := ortho.Orthogonalize(v, a, b, s.lockedCols(), &s.opt.iseed); err != nil {
			return false, fault(OrthoFailure, err)
		}
		if err := s.refreshW(a, b); err != nil {
			return false, err
		}
		s.basisSize = b
		s.updateProjection(a, b)

		if err := s.solveH(dense, svd); err != nil {
			return false, err
		}

		if s.basisSize+s.opt.maxBlockSize >= s.opt.maxBasisSize && s.basisSize < s.opt.maxBasisSize {
			s.snapshotPrevRitzVecs()
		}
	}
	return false, nil
}

// availableBlockSize bounds how many new columns may be added to the
// basis this growth step: maxBlockSize, shrunk to 1 whenever harmonic or
// refined extraction depends on a single shift still in use by more than
// one remaining target, and clamped by the basis, convergence, and
// dimension ceilings.
func (s *Solver) availableBlockSize() int {
	avail := s.opt.maxBlockSize
	if s.opt.projection != RR && len(s.opt.targetShifts)-s.numConverged > 1 {
		avail = 1
	}
	if rem := s.opt.maxBasisSize - s.basisSize; avail > rem {
		avail = rem
	}
	maxRecentlyConverged := s.opt.numEvals - s.numConverged + 1
	if avail > maxRecentlyConverged {
		avail = maxRecentlyConverged
	}
	if rem := s.n - s.basisSize; avail > rem {
		avail = rem
	}
	if avail < 0 {
		avail = 0
	}
	return avail
}

// resetHeuristicForRefined reports whether the refined extraction's
// leading singular value has drifted below the Ritz-value/shift gap,
// meaning Q,R should be rebuilt against the current shift before
// continuing.
func (s *Solver) resetHeuristicForRefined() bool {
	if s.opt.projection != Refined || s.ws.hSVals == nil || s.basisSize == 0 {
		return false
	}
	tau := s.currentShift()
	bound := absF(s.ws.hVals[0]-tau) - machEps*maxF(s.opt.aNorm, s.est.largestSVal)
	return s.ws.hSVals[0] < bound
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// earlyRestart reports whether the growth loop should restart immediately
// rather than keep extending the basis: enough pairs have converged,
// locking under an interior target just converged a pair (interior
// targets must restart right away to lock safely), the shift was
// invalidated, or harmonic/refined extraction is due to move to the next
// shift.
func (s *Solver) earlyRestart() bool {
	if s.numConverged >= s.opt.numEvals {
		return true
	}
	if s.opt.locking == LockingOn && s.opt.target.isInterior() {
		for _, f := range s.ws.flags[:s.basisSize] {
			if f == converged || f == practicallyConverged {
				return true
			}
		}
	}
	if s.targetShiftIndex < 0 && len(s.opt.targetShifts) > 0 {
		return true
	}
	if s.opt.projection != RR {
		wantedShift := s.numConverged
		if wantedShift < len(s.opt.targetShifts) && wantedShift != s.targetShiftIndex {
			return true
		}
	}
	return false
}

// runCorrection invokes the correction solver (GD+k or JDQMR, selected by
// the dynamic switch or the static CorrectionOptions) on the current
// block, timing it for the cost model when dynamic switching is active.
func (s *Solver) runCorrection(block []blockCandidate, globalSum GlobalSum) (*mat.Dense, error) {
	corrector := s.selectCorrectionSolver()
	_, usedJDQMR := corrector.(jdqmrCorrection)

	vals := make([]float64, len(block))
	residuals := mat.NewDense(s.nLocal, len(block), nil)
	ritzVecs := mat.NewDense(s.nLocal, len(block), nil)
	for j, c := range block {
		vals[j] = s.ws.hVals[c.idx]
		residuals.SetCol(j, c.r)
		ritzVecs.SetCol(j, c.x)
	}

	counting := &countingMatVec{inner: s.opt.matVec}
	req := &CorrectionRequest{
		RitzValues:    vals,
		RitzVectors:   ritzVecs,
		Residuals:     residuals,
		MatVec:        counting,
		Precon:        s.opt.precon,
		GlobalSum:     globalSum,
		PrevRitzVals:  s.ws.prevRitzVals[:s.basisSize],
		Projectors:    s.opt.correction.Projectors,
		MaxInnerIters: s.opt.correction.MaxInnerIterations,
		Tolerance:     s.est.tolerance(s.opt.eps, s.opt.aNorm),
	}

	var start time.Time
	if s.cost.active() {
		start = time.Now()
		s.cost.startTiming(s.numOuterIterations, s.numMatvecs)
	}
	d, err := corrector.Solve(req)
	if s.cost.active() {
		elapsed := time.Since(start)
		s.cost.recordInnerTime(elapsed)
		s.cost.recordCorrectionCost(usedJDQMR, elapsed, counting.calls, len(block))
		s.cost.evaluateAtRestart(globalSum, s.opt.numProcs)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// countingMatVec wraps a MatVec to count calls made during one correction
// step, feeding the cost model's per-matvec timing estimate without
// disturbing the driver's own matvec budget accounting (JDQMR's inner
// Krylov iterations issue matvecs the correction solver owns, not the
// driver's outer loop).
type countingMatVec struct {
	inner MatVec
	calls int
}

func (c *countingMatVec) Apply(in, out *mat.Dense) error {
	c.calls++
	return c.inner.Apply(in, out)
}

// refreshW recomputes W[:,a:b] = A*V[:,a:b] via the user's MatVec and
// counts the matvecs spent.
func (s *Solver) refreshW(a, b int) error {
	if b <= a {
		return nil
	}
	in := s.ws.v.Slice(0, s.nLocal, a, b).(*mat.Dense)
	out := mat.NewDense(s.nLocal, b-a, nil)
	if err := s.opt.matVec.Apply(in, out); err != nil {
		return fault(SolveCorrectionFailure, errors.Wrap(err, "davidson: matvec"))
	}
	for j := 0; j < b-a; j++ {
		col := mat.Col(nil, j, out)
		s.ws.w.SetCol(a+j, col)
	}
	s.numMatvecs += b - a
	return nil
}

// budgetExhausted reports whether a matvec or outer-iteration budget has
// been reached; both act as cooperative cancellation points checked only
// between whole driver steps.
func (s *Solver) budgetExhausted() bool {
	if s.opt.maxMatvecs > 0 && s.numMatvecs >= s.opt.maxMatvecs {
		return true
	}
	if s.opt.maxOuterIterations > 0 && s.numOuterIterations >= s.opt.maxOuterIterations {
		return true
	}
	return false
}

// lockedCols returns the evecs columns currently holding the
// numOrthoConst externally-fixed directions plus locked pairs.
func (s *Solver) lockedCols() *mat.Dense {
	n := s.opt.numOrthoConst + s.numLocked
	if n == 0 {
		return nil
	}
	return s.evecs.Slice(0, s.nLocal, 0, n).(*mat.Dense)
}

// pullInitialGuesses tops the basis back up to minRestartSize from any
// caller-supplied initial guesses not yet consumed, orthogonalizing and
// extending the projection exactly as a growth step would.
func (s *Solver) pullInitialGuesses(ortho Orthogonalizer) error {
	want := s.opt.minRestart - s.basisSize
	if want <= 0 || s.opt.initialGuesses == nil {
		return nil
	}
	_, avail := s.opt.initialGuesses.Dims()
	remaining := avail - s.guessesUsed
	if remaining <= 0 {
		return nil
	}
	if want > remaining {
		want = remaining
	}
	a, b := s.basisSize, s.basisSize+want
	for j := 0; j < want; j++ {
		col := mat.Col(nil, s.guessesUsed+j, s.opt.initialGuesses)
		s.ws.v.SetCol(a+j, col)
	}
	s.guessesUsed += want
	v := s.ws.v.Slice(0, s.nLocal, 0, b).(*mat.Dense)
	if err := ortho.Orthogonalize(v, a, b, s.lockedCols(), &s.opt.iseed); err != nil {
		return fault(OrthoFailure, err)
	}
	if err := s.refreshW(a, b); err != nil {
		return err
	}
	s.basisSize = b
	s.updateProjection(a, b)
	return nil
}

// finish assembles the final Result, copying the leading numEvals pairs
// into Evals/Evecs when locking is off (under locking, lockConverged
// already wrote them as they converged).
func (s *Solver) finish(code ExitCode) (*Result, error) {
	if s.opt.locking == LockingOff && code != InitFailure {
		n := s.opt.numEvals
		if n > s.basisSize {
			n = s.basisSize
		}
		for j := 0; j < n; j++ {
			s.evals[j] = s.ws.hVals[j]
			col := make([]float64, s.nLocal)
			s.ritzVector(col, j)
			s.evecs.SetCol(s.opt.numOrthoConst+j, col)
			s.perm[j] = j
		}
	}
	stats := Stats{
		NumOuterIterations: s.numOuterIterations,
		NumRestarts:        s.numRestarts,
		NumMatvecs:         s.numMatvecs,
		LockingProblem:     s.lockingProblem,
		WholeSpace:         s.wholeSpace,
	}
	stats.snapshot(s.est)
	if s.cost.active() {
		s.cost.state = s.cost.finalRecommendation()
	}

	evecsOut := mat.NewDense(s.nLocal, s.opt.numOrthoConst+s.numLocked+s.clampedEvals(), nil)
	evecsOut.Copy(s.evecs)

	return &Result{
		Evals:    append([]float64(nil), s.evals...),
		Evecs:    evecsOut,
		ResNorms: append([]float64(nil), s.resNorms...),
		Perm:     append([]int(nil), s.perm...),
		Stats:    stats,
		Code:     code,
	}, nil
}

func (s *Solver) clampedEvals() int {
	n := s.opt.numEvals
	if s.opt.locking == LockingOn && s.numLocked < n {
		n = s.numLocked
	}
	return n
}

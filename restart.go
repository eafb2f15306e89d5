package davidson

import "gonum.org/v1/gonum/mat"

// restart compresses (V, W, H, hVecs, hVals[, Q, R, QtV, hU, hSVals]) to a
// smaller basis. The target size is minRestartSize plus the number of
// retained recurrence coefficients, clamped to the remaining orthogonal
// complement. When locking is enabled, converged Ritz vectors in the
// restart window are moved into evecs instead of kept in V.
func (s *Solver) restart(dense DenseEigenSolver, svd DenseSVDSolver) error {
	numPrevRetained := s.numPrevRetained()
	newSize := s.opt.minRestart + numPrevRetained
	ceiling := s.n - s.opt.numOrthoConst - s.numLocked
	if newSize > ceiling {
		newSize = ceiling
	}
	if newSize > s.basisSize {
		newSize = s.basisSize
	}
	if newSize <= 0 {
		return faultf(RestartFailure, "davidson: restart target size %d is non-positive", newSize)
	}

	// Build the combined coefficient matrix: leading columns are the
	// target-ordered Ritz coefficients, trailing columns are the retained
	// "+k" thick-restart recurrence coefficients.
	primary := s.opt.minRestart
	if primary > newSize {
		primary = newSize
	}
	extra := newSize - primary

	coeffs := mat.NewDense(s.basisSize, newSize, nil)
	hVecs := s.ws.hVecs.Slice(0, s.basisSize, 0, s.basisSize).(*mat.Dense)
	for j := 0; j < primary; j++ {
		col := mat.Col(nil, j, hVecs)
		coeffs.SetCol(j, col)
	}
	for j := 0; j < extra; j++ {
		col := mat.Col(nil, j, s.ws.previousHVecs.Slice(0, s.basisSize, 0, numPrevRetained).(*mat.Dense))
		coeffs.SetCol(primary+j, col)
	}

	oldV := s.ws.v.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	oldW := s.ws.w.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)

	var newV, newW mat.Dense
	newV.Mul(oldV, coeffs)
	newW.Mul(oldW, coeffs) // W*hVecs = A*V*hVecs, no fresh matvec needed

	// Locking: pull converged columns among the leading `primary` columns
	// out into evecs before copying the rest back into V.
	lockedThisRestart := 0
	if s.opt.locking == LockingOn {
		var err error
		lockedThisRestart, err = s.lockConverged(&newV, primary)
		if err != nil {
			return err
		}
	}

	finalSize := newSize - lockedThisRestart
	for j := 0; j < finalSize; j++ {
		col := mat.Col(nil, j+lockedThisRestart, &newV)
		s.ws.v.SetCol(j, col)
		colw := mat.Col(nil, j+lockedThisRestart, &newW)
		s.ws.w.SetCol(j, colw)
	}
	s.basisSize = finalSize

	// Recompute H directly from the compressed V, W (cheaper and more
	// robust than rotating the old H through coeffs when columns were
	// removed for locking).
	s.recomputeH()

	if err := s.solveH(dense, svd); err != nil {
		return err
	}

	if s.opt.projection != RR {
		s.needsQRRebuild = true
	}

	if s.reset >= 1 {
		s.restartsSinceReset = 0
	} else {
		s.restartsSinceReset++
	}
	s.numRestarts++
	return nil
}

// numPrevRetained returns how many columns of previousHVecs are currently
// populated (snapshotted by the driver just before the basis goes full).
func (s *Solver) numPrevRetained() int {
	_, c := s.ws.previousHVecs.Dims()
	n := s.opt.restart.MaxPrevRetain
	if n > c {
		n = c
	}
	return n
}

// recomputeH recomputes H = V'W from scratch on the active basis, used
// after restart/verification when incremental maintenance is unsafe.
func (s *Solver) recomputeH() {
	v := s.ws.v.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	w := s.ws.w.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	for i := 0; i < s.basisSize; i++ {
		vi := mat.Col(nil, i, v)
		for j := i; j < s.basisSize; j++ {
			wj := mat.Col(nil, j, w)
			s.ws.h.SetSym(i, j, dotLocal(vi, wj))
		}
	}
}

// snapshotPrevRitzVecs runs just before the basis becomes full: it
// snapshots the coefficient columns for the current block (plus any
// leading unconverged coefficients, up to maxPrevRetain) into
// previousHVecs, the "+k" step of thick restart.
func (s *Solver) snapshotPrevRitzVecs() {
	maxPrev := s.opt.restart.MaxPrevRetain
	if maxPrev <= 0 {
		return
	}
	hVecs := s.ws.hVecs.Slice(0, s.basisSize, 0, s.basisSize).(*mat.Dense)
	n := maxPrev
	if n > s.basisSize {
		n = s.basisSize
	}
	prev := s.ws.previousHVecs.Slice(0, s.basisSize, 0, n).(*mat.Dense)
	for j := 0; j < n; j++ {
		col := mat.Col(nil, j, hVecs)
		prev.SetCol(j, col)
	}
	copy(s.ws.prevRitzVals, s.ws.hVals[:s.basisSize])
}

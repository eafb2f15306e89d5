package davidson

import "math"

// convergenceRate returns the log-residual-reduction-per-matvec sample fed
// to the cost model on a pair's convergence: the natural log of tol/norm
// (how far the residual fell below tol), divided by the matvecs spent
// since the previous convergence event.
func (s *Solver) convergenceRate(norm, tol float64) float64 {
	spent := s.numMatvecs - s.matvecsAtLastConvergence
	if spent < 1 {
		spent = 1
	}
	s.matvecsAtLastConvergence = s.numMatvecs
	if norm <= 0 || tol <= 0 {
		return 0
	}
	return math.Log(tol/norm) / float64(spent)
}

// blockCandidate is one entry of the working block assembled by
// prepareBlock.
type blockCandidate struct {
	idx  int // index into hVals/hVecs
	x    []float64
	r    []float64
	norm float64
}

// prepareBlock produces the next block of up to maxBlockSize Ritz pairs
// whose residuals drive the correction step, folding in pairs that just
// converged. It returns the new block and the number of pairs that
// converged this call (recentlyConverged).
func (s *Solver) prepareBlock(globalSum GlobalSum) (block []blockCandidate, recentlyConverged int, err error) {
	tau := s.currentShift()
	tol := s.est.tolerance(s.opt.eps, s.opt.aNorm)

	if s.blockNormsSize > 0 {
		min := s.ws.blockNorms[0]
		for _, v := range s.ws.blockNorms[1:s.blockNormsSize] {
			if v < min {
				min = v
			}
		}
		s.smallestResNorm = min
	}

	maxRecentlyConverged := s.opt.numEvals - s.numConverged

	// Residuals computed in an earlier growth step refer to an older basis.
	s.candidates = nil
	for {
		// Ensure residuals are available for every index currently under
		// consideration (indices [0, basisSize) that aren't already
		// flagged converged/locked).
		s.ensureCandidates(globalSum)

		var kept []blockCandidate
		for _, c := range s.candidates {
			flag := convergenceTest(c.norm, s.ws.hVals[c.idx], tol)
			s.ws.flags[c.idx] = flag
			s.est.update(s.ws.hVals[c.idx], c.norm)

			if s.straddlesShift(c.idx, tau) {
				// residual band lies entirely on the wrong side of tau
				if s.opt.straddlingPairsJoinBlock {
					kept = append(kept, c)
				}
				continue
			}

			eligibleSlot := c.idx < s.opt.numEvals-s.numLocked || s.opt.target.isInterior()
			if (flag == converged || flag == practicallyConverged) &&
				recentlyConverged < maxRecentlyConverged && eligibleSlot {
				if flag == practicallyConverged {
					s.lockingProblem = s.lockingProblem || s.opt.locking == LockingOn
				}
				if s.opt.locking == LockingOff {
					s.evals[c.idx] = s.ws.hVals[c.idx]
					s.resNorms[c.idx] = c.norm
				}
				s.est.noteConverged(c.norm)
				if s.cost.active() {
					rate := s.convergenceRate(c.norm, tol)
					s.cost.evaluateOnConvergence(rate, s.numConverged+recentlyConverged+1, globalSum, s.opt.numProcs)
				}
				recentlyConverged++
				continue
			}
			if flag == unconverged {
				kept = append(kept, c)
			}
		}
		s.candidates = kept

		added := s.fillBlock()
		if added == 0 || recentlyConverged >= maxRecentlyConverged {
			break
		}
	}

	s.numConverged += recentlyConverged
	return s.candidates, recentlyConverged, nil
}

// candidates is the working set of one prepareBlock call (one growth
// step): prepareBlock clears it on entry, and it is re-sliced in place as
// pairs converge or are added.
//
// It lives on Solver rather than as a prepareBlock-local because
// convergence testing interleaves with appending newly scanned
// unconverged indices across repeated passes of the same loop.

// currentShift returns tau = targetShifts[targetShiftIndex], or 0 if no
// shift is configured.
func (s *Solver) currentShift() float64 {
	if s.targetShiftIndex < 0 || s.targetShiftIndex >= len(s.opt.targetShifts) {
		return 0
	}
	return s.opt.targetShifts[s.targetShiftIndex]
}

// straddlesShift reports whether, for closest_leq/closest_geq targets, a
// candidate's residual band [lambda-norm, lambda+norm] falls entirely on
// the wrong side of tau and should be ignored.
func (s *Solver) straddlesShift(idx int, tau float64) bool {
	if s.opt.target != ClosestLeq && s.opt.target != ClosestGeq {
		return false
	}
	lambda := s.ws.hVals[idx]
	norm := 0.0
	for _, c := range s.candidates {
		if c.idx == idx {
			norm = c.norm
			break
		}
	}
	lo, hi := lambda-norm, lambda+norm
	if s.opt.target == ClosestLeq {
		return lo > tau // band entirely above tau
	}
	return hi < tau // band entirely below tau
}

// ensureCandidates computes X/R/norm for every candidate that has no X yet
// (entries fillBlock appended); entries kept from an earlier pass of the
// same prepareBlock call were computed against the same basis and are left
// as they are. Norms are reduced via globalSum so every process reaches
// the same convergence decision.
func (s *Solver) ensureCandidates(globalSum GlobalSum) {
	for i := range s.candidates {
		c := &s.candidates[i]
		if c.x == nil {
			c.x = make([]float64, s.nLocal)
			c.r = make([]float64, s.nLocal)
			s.ritzVector(c.x, c.idx)
			s.ritzResidual(c.r, c.idx, c.x)
			local := [1]float64{dotLocal(c.r, c.r)}
			global := [1]float64{0}
			_ = globalSum.SumInto(global[:], local[:])
			c.norm = math.Sqrt(global[0])
		}
	}
}

// fillBlock scans flags from just past the last examined index forward,
// collecting the next unconverged indices into the block up to
// maxBlockSize. It returns the number of indices added.
func (s *Solver) fillBlock() int {
	have := map[int]bool{}
	for _, c := range s.candidates {
		have[c.idx] = true
	}
	start := 0
	for _, c := range s.candidates {
		if c.idx+1 > start {
			start = c.idx + 1
		}
	}

	added := 0
	for idx := start; idx < s.basisSize && len(s.candidates) < s.opt.maxBlockSize; idx++ {
		if have[idx] {
			continue
		}
		if s.ws.flags[idx] != unconverged {
			continue
		}
		s.candidates = append(s.candidates, blockCandidate{idx: idx})
		added++
	}
	return added
}

// prepareVecs refreshes the coefficient vectors used for harmonic/refined
// extraction over the remaining basis region. For plain Rayleigh-Ritz
// projection this is a no-op: hVecs already holds the RR coefficients
// with no rotation needed.
func (s *Solver) prepareVecs() {
	if s.opt.projection == RR {
		s.numArbitraryVecs = 0
		return
	}
	// Harmonic/refined: the arbitrary-vector rotation would substitute
	// columns of hVecs in [blockSize, blockSize+maxBlockSize) with vectors
	// better conditioned for the QR/SVD-based extraction. The refreshed
	// coefficients already live in hVecs from the projection update, so
	// this call only resets the counter the rest of the driver consults.
	s.numArbitraryVecs = 0
}

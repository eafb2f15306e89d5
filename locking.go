package davidson

import "gonum.org/v1/gonum/mat"

// lockConverged moves any converged Ritz vector among the leading `window`
// columns of newV into evecs/evals/resNorms, compacting newV in place so
// its first `window-moved` columns are the remaining (unconverged)
// vectors: the basis shrinks accordingly and numLocked grows. It returns
// the number of columns moved.
func (s *Solver) lockConverged(newV *mat.Dense, window int) (int, error) {
	moved := 0
	kept := make([]int, 0, window)
	for j := 0; j < window; j++ {
		flag := s.ws.flags[j]
		if flag != converged && flag != practicallyConverged {
			kept = append(kept, j)
			continue
		}
		if s.numLocked+s.opt.numOrthoConst >= s.evecs.RawMatrix().Cols {
			return moved, faultf(LockFailure, "davidson: no room left to lock pair %d", j)
		}
		if flag == practicallyConverged {
			s.lockingProblem = true
		}
		dst := s.opt.numOrthoConst + s.numLocked
		col := mat.Col(nil, j, newV)
		s.evecs.SetCol(dst, col)
		s.evals[s.numLocked] = s.ws.hVals[j]
		s.resNorms[s.numLocked] = s.blockNormFor(j)
		s.perm[s.numLocked] = s.numLocked
		s.numLocked++
		moved++
	}
	nLocal, _ := newV.Dims()
	for i, src := range kept {
		col := mat.Col(nil, src, newV)
		newV.SetCol(i, col)
		_ = nLocal
	}
	return moved, nil
}

// blockNormFor returns the residual norm recorded for hVals index idx, if
// it is currently part of the tracked block, or the smallest known
// residual norm as a conservative fallback.
func (s *Solver) blockNormFor(idx int) float64 {
	for _, c := range s.candidates {
		if c.idx == idx {
			return c.norm
		}
	}
	return s.smallestResNorm
}

package davidson

import "testing"

func TestStraddlesShift(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 6, 2, 4)
	s.opt.target = ClosestLeq
	s.ws.hVals[0] = 5
	s.candidates = []blockCandidate{{idx: 0, norm: 0.1}}

	// band [4.9, 5.1], tau = 2: entirely above tau -> straddles (excluded).
	if !s.straddlesShift(0, 2) {
		t.Error("expected band entirely above tau to straddle (excluded) under ClosestLeq")
	}
	// tau = 10: band is below tau, admissible.
	if s.straddlesShift(0, 10) {
		t.Error("expected band below tau to be admissible under ClosestLeq")
	}
}

func TestStraddlesShiftNotApplicableToSmallest(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 6, 2, 4)
	s.opt.target = Smallest
	s.ws.hVals[0] = 5
	s.candidates = []blockCandidate{{idx: 0, norm: 0.1}}
	if s.straddlesShift(0, 2) {
		t.Error("Smallest target should never straddle")
	}
}

func TestFillBlockCollectsUnconvergedIndicesInOrder(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 6, 3, 4)
	s.basisSize = 4
	s.opt.maxBlockSize = 3
	s.ws.flags[0] = converged
	s.ws.flags[1] = unconverged
	s.ws.flags[2] = unconverged
	s.ws.flags[3] = unconverged
	s.candidates = nil

	added := s.fillBlock()
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}
	var idxs []int
	for _, c := range s.candidates {
		idxs = append(idxs, c.idx)
	}
	want := []int{1, 2, 3}
	for i, w := range want {
		if idxs[i] != w {
			t.Errorf("candidates[%d].idx = %d, want %d", i, idxs[i], w)
		}
	}
}

func TestFillBlockSkipsAlreadyPresentIndices(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 6, 3, 4)
	s.basisSize = 4
	s.opt.maxBlockSize = 10
	s.ws.flags[0] = unconverged
	s.ws.flags[1] = unconverged
	s.ws.flags[2] = unconverged
	s.ws.flags[3] = unconverged
	s.candidates = []blockCandidate{{idx: 1}}

	added := s.fillBlock()
	// fillBlock starts scanning just past the highest index already present
	// (1), so it should only pick up index 2 and 3 — it never revisits 0.
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
}

func TestCurrentShiftReturnsZeroWithoutTargetShifts(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 4, 1, 3)
	if got := s.currentShift(); got != 0 {
		t.Errorf("currentShift() = %v, want 0", got)
	}
}

func TestCurrentShiftReturnsConfiguredShift(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 4, 1, 3)
	s.opt.targetShifts = []float64{2.5, 7}
	s.targetShiftIndex = 1
	if got := s.currentShift(); got != 7 {
		t.Errorf("currentShift() = %v, want 7", got)
	}
}

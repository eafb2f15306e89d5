package davidson

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestCheckOrthonormalPassesForOrthonormalBasis(t *testing.T) {
	debugInvariants = true
	defer func() { debugInvariants = false }()

	s := newTestSolver(t, 6, 2, 4)
	s.basisSize = 2
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{0, 1, 0, 0, 0, 0})

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("checkOrthonormal panicked on an orthonormal basis: %v", r)
		}
	}()
	s.checkOrthonormal()
}

func TestCheckOrthonormalPanicsForNonOrthogonalBasis(t *testing.T) {
	debugInvariants = true
	defer func() { debugInvariants = false }()

	s := newTestSolver(t, 6, 2, 4)
	s.basisSize = 2
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{1, 1, 0, 0, 0, 0}) // not orthogonal, not unit norm

	defer func() {
		if recover() == nil {
			t.Error("expected checkOrthonormal to panic on a non-orthonormal basis")
		}
	}()
	s.checkOrthonormal()
}

func TestCheckOrthonormalNoOpWhenDisabled(t *testing.T) {
	// debugInvariants defaults to false; this must never panic regardless
	// of basis content.
	s := newTestSolver(t, 6, 2, 4)
	s.basisSize = 2
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{5, 5, 0, 0, 0, 0})
	s.checkOrthonormal()
}

func TestCheckMatvecConsistency(t *testing.T) {
	t.Parallel()
	v := mat.NewDense(2, 1, []float64{1, 0})
	w := mat.NewDense(2, 1, []float64{2, 0})
	av := mat.NewDense(2, 1, []float64{2, 0})
	if err := checkMatvecConsistency(v, w, av, 2, 1); err != nil {
		t.Errorf("expected consistent matvec to pass, got %v", err)
	}

	avBad := mat.NewDense(2, 1, []float64{5, 0})
	if err := checkMatvecConsistency(v, w, avBad, 2, 1); err == nil {
		t.Error("expected stale matvec image to be reported")
	}
}

func TestCheckProjectionPassesWhenHMatchesVtW(t *testing.T) {
	debugInvariants = true
	defer func() { debugInvariants = false }()

	s := newTestSolver(t, 4, 1, 3)
	s.basisSize = 2
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{0, 1, 0, 0})
	s.ws.w.SetCol(0, []float64{3, 0, 0, 0})
	s.ws.w.SetCol(1, []float64{0, 5, 0, 0})
	s.recomputeH()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("checkProjection panicked when H == V'W: %v", r)
		}
	}()
	s.checkProjection()
}

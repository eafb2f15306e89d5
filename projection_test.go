package davidson

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestUpdateProjectionMatchesRecomputeH(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 6, 2, 4)
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{0, 1, 0, 0, 0, 0})
	s.ws.w.SetCol(0, []float64{2, 0, 0, 0, 0, 0})
	s.ws.w.SetCol(1, []float64{1, 3, 0, 0, 0, 0})

	s.basisSize = 2
	s.updateProjection(0, 2)
	incremental := s.ws.h.At(0, 0)
	incremental01 := s.ws.h.At(0, 1)
	incremental11 := s.ws.h.At(1, 1)

	s.recomputeH()
	if s.ws.h.At(0, 0) != incremental {
		t.Errorf("H(0,0) recomputed = %v, want %v (incremental)", s.ws.h.At(0, 0), incremental)
	}
	if s.ws.h.At(0, 1) != incremental01 {
		t.Errorf("H(0,1) recomputed = %v, want %v (incremental)", s.ws.h.At(0, 1), incremental01)
	}
	if s.ws.h.At(1, 1) != incremental11 {
		t.Errorf("H(1,1) recomputed = %v, want %v (incremental)", s.ws.h.At(1, 1), incremental11)
	}
}

func TestSolveHPopulatesAscendingValuesAndVectors(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 4, 1, 3)
	s.basisSize = 2
	s.ws.h.SetSym(0, 0, 5)
	s.ws.h.SetSym(1, 1, 1)

	if err := s.solveH(NewDefaultDenseEigenSolver(), NewDefaultDenseSVDSolver()); err != nil {
		t.Fatalf("solveH: %v", err)
	}
	if math.Abs(s.ws.hVals[0]-1) > 1e-9 || math.Abs(s.ws.hVals[1]-5) > 1e-9 {
		t.Errorf("hVals = %v, want [1 5]", s.ws.hVals[:2])
	}
}

func TestSolveHOrdersByTarget(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 4, 1, 3)
	s.opt.target = Largest
	s.basisSize = 3
	s.ws.h.SetSym(0, 0, 1)
	s.ws.h.SetSym(1, 1, 5)
	s.ws.h.SetSym(2, 2, 3)

	if err := s.solveH(NewDefaultDenseEigenSolver(), NewDefaultDenseSVDSolver()); err != nil {
		t.Fatalf("solveH: %v", err)
	}
	want := []float64{5, 3, 1}
	for i, w := range want {
		if math.Abs(s.ws.hVals[i]-w) > 1e-9 {
			t.Errorf("hVals[%d] = %v, want %v", i, s.ws.hVals[i], w)
		}
	}
	// hVecs[:,0] must now be the eigenvector for eigenvalue 5 (index 1 of
	// the diagonal H, i.e. the standard basis vector e_1).
	col := mat.Col(nil, 0, s.ws.hVecs.Slice(0, 3, 0, 3).(*mat.Dense))
	if math.Abs(math.Abs(col[1])-1) > 1e-9 {
		t.Errorf("hVecs[:,0] = %v, want unit vector along e_1", col)
	}
}

func TestRitzVectorAndResidual(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 4, 1, 3)
	s.basisSize = 2
	s.ws.v.SetCol(0, []float64{1, 0, 0, 0})
	s.ws.v.SetCol(1, []float64{0, 1, 0, 0})
	s.ws.w.SetCol(0, []float64{3, 0, 0, 0})
	s.ws.w.SetCol(1, []float64{0, 7, 0, 0})
	s.ws.hVecs.SetCol(0, []float64{1, 0, 0})
	s.ws.hVals[0] = 3

	x := make([]float64, 4)
	s.ritzVector(x, 0)
	want := []float64{1, 0, 0, 0}
	for i := range want {
		if x[i] != want[i] {
			t.Errorf("ritzVector x[%d] = %v, want %v", i, x[i], want[i])
		}
	}

	r := make([]float64, 4)
	s.ritzResidual(r, 0, x)
	// W*hVecs[:,0] = [3,0,0,0]; lambda*x = 3*[1,0,0,0] = [3,0,0,0]; r = 0.
	for i := range r {
		if math.Abs(r[i]) > 1e-12 {
			t.Errorf("ritzResidual r[%d] = %v, want 0 (exact eigenpair)", i, r[i])
		}
	}
}

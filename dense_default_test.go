package davidson

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDefaultDenseEigenSolverAscendingOrder(t *testing.T) {
	t.Parallel()
	h := mat.NewSymDense(3, nil)
	h.SetSym(0, 0, 2)
	h.SetSym(1, 1, 5)
	h.SetSym(2, 2, -1)
	values, vecs, ok := NewDefaultDenseEigenSolver().EigenDecompose(h, true)
	if !ok {
		t.Fatal("EigenDecompose reported failure on a well-posed diagonal matrix")
	}
	want := []float64{-1, 2, 5}
	for i, w := range want {
		if math.Abs(values[i]-w) > 1e-9 {
			t.Errorf("values[%d] = %v, want %v", i, values[i], w)
		}
	}
	rows, cols := vecs.Dims()
	if rows != 3 || cols != 3 {
		t.Fatalf("vecs dims = %dx%d, want 3x3", rows, cols)
	}
}

func TestDefaultDenseEigenSolverWithoutVectors(t *testing.T) {
	t.Parallel()
	h := mat.NewSymDense(2, []float64{1, 0, 0, 4})
	values, vecs, ok := NewDefaultDenseEigenSolver().EigenDecompose(h, false)
	if !ok {
		t.Fatal("EigenDecompose failed")
	}
	if vecs != nil {
		t.Error("expected nil eigenvectors when vectors=false")
	}
	if len(values) != 2 {
		t.Fatalf("len(values) = %d, want 2", len(values))
	}
}

func TestDefaultDenseSVDSolverRecoversSingularValues(t *testing.T) {
	t.Parallel()
	r := mat.NewDense(2, 2, []float64{3, 0, 0, 2})
	u, v, sigma, ok := NewDefaultDenseSVDSolver().SVD(r)
	if !ok {
		t.Fatal("SVD reported failure")
	}
	if u == nil || v == nil {
		t.Fatal("expected non-nil U and V")
	}
	// Ascending: index 0 must be the smallest singular value.
	want := []float64{2, 3}
	for i, w := range want {
		if math.Abs(sigma[i]-w) > 1e-9 {
			t.Errorf("sigma[%d] = %v, want %v", i, sigma[i], w)
		}
	}
}

func TestWorkspaceSizeHints(t *testing.T) {
	t.Parallel()
	if got := NewDefaultDenseEigenSolver().WorkspaceSize(10); got != 80 {
		t.Errorf("WorkspaceSize(10) = %d, want 80", got)
	}
	if got := NewDefaultDenseSVDSolver().WorkspaceSize(4, 6); got != 80 {
		t.Errorf("WorkspaceSize(4,6) = %d, want 80", got)
	}
}

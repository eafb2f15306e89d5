package davidson

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestRestartCompressesToMinRestartPlusRetained(t *testing.T) {
	t.Parallel()
	n := 10
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = float64(i)
	}
	opt := NewOptions().
		NumEvals(2).
		MaxBasisSize(6).
		MinRestartSize(2).
		MaxBlockSize(1).
		Restart(RestartOptions{MaxPrevRetain: 1}).
		WithMatVec(diagonalMatVec{diag: diag})
	s, err := NewSolver(n, n, opt)
	if err != nil {
		t.Fatalf("NewSolver: %v", err)
	}

	ortho := newDefaultOrthogonalizer(s.rng)
	if err := s.initBasis(ortho); err != nil {
		t.Fatalf("initBasis: %v", err)
	}
	// Grow to a full basis of 6 columns directly (bypassing the driver loop)
	// so restart has something nontrivial to compress.
	for j := s.basisSize; j < 6; j++ {
		col := make([]float64, n)
		col[j] = 1
		s.ws.v.SetCol(j, col)
	}
	v := s.ws.v.Slice(0, n, 0, 6).(*mat.Dense)
	if err := ortho.Orthogonalize(v, s.basisSize, 6, nil, &s.opt.iseed); err != nil {
		t.Fatalf("Orthogonalize: %v", err)
	}
	s.basisSize = 6
	if err := s.refreshW(0, 6); err != nil {
		t.Fatalf("refreshW: %v", err)
	}
	s.recomputeH()
	dense := NewDefaultDenseEigenSolver()
	svd := NewDefaultDenseSVDSolver()
	if err := s.solveH(dense, svd); err != nil {
		t.Fatalf("solveH: %v", err)
	}
	s.snapshotPrevRitzVecs()

	if err := s.restart(dense, svd); err != nil {
		t.Fatalf("restart: %v", err)
	}
	want := opt.minRestart + 1 // +k retained column
	if s.basisSize != want {
		t.Errorf("basisSize after restart = %d, want %d", s.basisSize, want)
	}
	if s.numRestarts != 1 {
		t.Errorf("numRestarts = %d, want 1", s.numRestarts)
	}
	// The two smallest eigenvalues should still be resolvable after the
	// compressed basis is re-solved.
	if s.ws.hVals[0] > s.ws.hVals[1] {
		t.Errorf("hVals not ascending after restart: %v", s.ws.hVals[:s.basisSize])
	}
}

func TestNumPrevRetainedClampsToConfiguredColumns(t *testing.T) {
	t.Parallel()
	s := newTestSolver(t, 8, 2, 5)
	s.opt.restart.MaxPrevRetain = 100 // previousHVecs was sized for MaxPrevRetain=0 by NewSolver
	if got := s.numPrevRetained(); got > 1 {
		t.Errorf("numPrevRetained() = %d, want <= 1 (clamped to allocated columns)", got)
	}
}

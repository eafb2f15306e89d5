package davidson

import "gonum.org/v1/gonum/mat"

// workspace holds the real-valued scratch storage as typed views. Each
// view is allocated separately and sized once at construction, so callers never
// need to reconstruct a layout from pointer arithmetic: V, W, optional Q,
// R, hU, QtV, H, hVecs, previousHVecs, optional hVecsRot, hVals, optional
// hSVals, prevRitzVals, blockNorms.
//
// Q, R, QtV, hU and hSVals are rebuilt from scratch by updateHarmonicProjection
// and solveRefined on every solveH call (see harmonic.go), so unlike
// previousHVecs there is no "+k" recurrence column to retain for them across
// a restart: nothing in the driver reads a value from before the most recent
// rebuild.
type workspace struct {
	nLocal       int
	maxBasis     int
	maxBlock     int
	maxPrevRetain int
	harmonicLike bool // projection is Harmonic or Refined: Q,R,QtV,hU,hSVals live

	v  *mat.Dense // nLocal x maxBasis, active region [:,:basisSize]
	w  *mat.Dense // nLocal x maxBasis, A*V
	q  *mat.Dense // nLocal x maxBasis, optional
	r  *mat.Dense // maxBasis x maxBasis, optional, R from (A-tau I)V = QR
	hu *mat.Dense // maxBasis x maxBasis, optional, left singular vectors of R

	qtV *mat.Dense // maxBasis x maxBasis, optional, Q^T V

	h             *mat.SymDense // maxBasis x maxBasis
	hVecs         *mat.Dense    // maxBasis x maxBasis
	previousHVecs *mat.Dense    // maxBasis x maxPrevRetain
	hVecsRot      *mat.Dense    // optional, rotation for arbitrary vectors

	hVals        []float64
	hSVals       []float64
	prevRitzVals []float64
	blockNorms   []float64

	// integer scratch: flags[maxBasisSize], iev[maxBlockSize],
	// ipivot[maxEvecsSize].
	flags   []convergenceFlag
	iev     []int
	ipivot  []int
}

// newWorkspace allocates the arena for a problem of the given sizing. It is
// a pure function of the configuration: layout never depends on runtime
// state.
func newWorkspace(nLocal, maxBasis, maxBlock, maxPrevRetain, maxEvecsSize int, harmonicLike bool) *workspace {
	ws := &workspace{
		nLocal:        nLocal,
		maxBasis:      maxBasis,
		maxBlock:      maxBlock,
		maxPrevRetain: maxPrevRetain,
		harmonicLike:  harmonicLike,

		v: mat.NewDense(nLocal, maxBasis, nil),
		w: mat.NewDense(nLocal, maxBasis, nil),

		h:             mat.NewSymDense(maxBasis, nil),
		hVecs:         mat.NewDense(maxBasis, maxBasis, nil),
		previousHVecs: mat.NewDense(maxBasis, max(maxPrevRetain, 1), nil),

		hVals:        make([]float64, maxBasis),
		prevRitzVals: make([]float64, maxBasis),
		blockNorms:   make([]float64, maxBlock),

		flags:  make([]convergenceFlag, maxBasis),
		iev:    make([]int, maxBlock),
		ipivot: make([]int, maxEvecsSize),
	}
	if harmonicLike {
		ws.q = mat.NewDense(nLocal, maxBasis, nil)
		ws.r = mat.NewDense(maxBasis, maxBasis, nil)
		ws.qtV = mat.NewDense(maxBasis, maxBasis, nil)
		ws.hSVals = make([]float64, maxBasis)
		ws.hVecsRot = mat.NewDense(maxBasis, maxBasis, nil)
		ws.hu = mat.NewDense(maxBasis, maxBasis, nil)
	}
	return ws
}

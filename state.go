package davidson

import (
	"log"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Solver owns the full driver state for one Solve call: the basis V, its
// image W, the projected matrix H and its optional harmonic/refined
// auxiliaries, the locked set, retained restart coefficients, and the cost
// model. It is not safe for concurrent use; the scheduling model is
// single-threaded cooperative within one process, SPMD across processes.
type Solver struct {
	opt Options
	ws  *workspace

	n      int // global dimension, n = sum of nLocal across processes
	nLocal int

	basisSize int
	numLocked int

	// targetShiftIndex selects tau = targetShifts[targetShiftIndex]; -1
	// forces a QR rebuild on the next iteration.
	targetShiftIndex int

	// numConvergedStored is not set or read by any code path; it stays 0,
	// and no extra converged columns are kept resident in evecs.
	numConvergedStored int

	numArbitraryVecs int

	// guessesUsed counts how many columns of opt.initialGuesses have been
	// consumed so far, across the initial basis fill and later top-ups.
	guessesUsed int

	// evecs/evals/resNorms hold numOrthoConst externally-fixed directions
	// followed by numLocked converged pairs.
	evecs    *mat.Dense
	evals    []float64
	resNorms []float64
	perm     []int

	numConverged       int
	smallestResNorm    float64
	blockNormsSize     int
	blockSize          int

	// matvecsAtLastConvergence anchors the log-residual-reduction-per-matvec
	// rate fed to the cost model's evaluateOnConvergence transitions.
	matvecsAtLastConvergence int

	// candidates is the working block tracked across prepareBlock calls
	// within a single growth step.
	candidates []blockCandidate

	est *estimates

	cost *costModel

	restartsSinceReset int
	reset              int // 0 incremental, 1 full reortho, 2 also recompute W=AV

	numMatvecs         int
	numOuterIterations int
	numRestarts        int

	rng *rand.Rand

	log *log.Logger

	lockingProblem bool
	wholeSpace     bool

	// needsQRRebuild is set by restart and cleared by
	// updateHarmonicProjection. Nothing reads it: Q,R (and, for refined,
	// hU/hSVals) are rebuilt on every solveH call regardless.
	needsQRRebuild bool
}

// NewSolver validates opt against n/nLocal and constructs the driver state,
// including the workspace arena sized from opt. It does not run any
// iteration; call Solve to run the driver.
func NewSolver(n, nLocal int, opt Options) (*Solver, error) {
	if opt.numEvals < 0 {
		return nil, faultf(InitFailure, "davidson: numEvals must be >= 0, got %d", opt.numEvals)
	}
	if opt.matVec == nil {
		return nil, faultf(InitFailure, "davidson: MatVec is required")
	}

	maxBasis := opt.maxBasisSize
	if maxBasis <= 0 {
		maxBasis = min(n, max(2*opt.numEvals, 20))
	}
	minRestart := opt.minRestart
	if minRestart <= 0 {
		minRestart = min(maxBasis, max(opt.numEvals, 2))
	}
	maxBlock := opt.maxBlockSize
	if maxBlock <= 0 {
		maxBlock = 1
	}

	// n=2 is degenerate for thick restart: force minRestartSize=2, maxPrevRetain=0.
	maxPrevRetain := opt.restart.MaxPrevRetain
	if n == 2 {
		minRestart = 2
		maxPrevRetain = 0
	}

	if minRestart > maxBasis {
		return nil, faultf(InitFailure, "davidson: minRestartSize %d exceeds maxBasisSize %d", minRestart, maxBasis)
	}

	maxEvecsSize := opt.numOrthoConst + opt.numEvals
	harmonicLike := opt.projection == Harmonic || opt.projection == Refined

	opt.maxBasisSize = maxBasis
	opt.minRestart = minRestart
	opt.maxBlockSize = maxBlock
	opt.restart.MaxPrevRetain = maxPrevRetain

	s := &Solver{
		opt:              opt,
		ws:               newWorkspace(nLocal, maxBasis, maxBlock, maxPrevRetain, maxEvecsSize, harmonicLike),
		n:                n,
		nLocal:           nLocal,
		targetShiftIndex: 0,
		evecs:            mat.NewDense(nLocal, maxEvecsSize, nil),
		evals:            make([]float64, opt.numEvals),
		resNorms:         make([]float64, opt.numEvals),
		perm:             make([]int, opt.numEvals),
		est:              newEstimates(),
		rng:              rand.New(rand.NewSource(int64(opt.iseed[0])<<48 | int64(opt.iseed[1])<<32 | int64(opt.iseed[2])<<16 | int64(opt.iseed[3]))),
	}
	s.cost = newCostModel(opt.dynamic)
	if len(opt.targetShifts) == 0 {
		s.targetShiftIndex = -1
		if harmonicLike {
			return nil, faultf(InitFailure, "davidson: harmonic/refined projection requires TargetShifts")
		}
	}
	return s, nil
}

// SetLogger attaches an optional logger; nil disables logging.
func (s *Solver) SetLogger(l *log.Logger) { s.log = l }

func (s *Solver) logf(format string, args ...interface{}) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

package davidson

import "gonum.org/v1/gonum/mat"

// Stats is a snapshot of the driver's internal counters and running
// estimates, copied out at return rather than exposed as a live mutable
// struct.
type Stats struct {
	NumOuterIterations int
	NumRestarts        int
	NumMatvecs         int

	EstimateMaxEVal       float64
	EstimateMinEVal       float64
	EstimateLargestSVal   float64
	MaxConvTol            float64
	EstimateResidualError float64

	// LockingProblem is set when locking forcibly accepted a practically
	// converged pair instead of a fully converged one.
	LockingProblem bool

	// WholeSpace is set when the basis spanned the entire orthogonal
	// complement before NumEvals pairs converged.
	WholeSpace bool
}

func (s *Stats) snapshot(e *estimates) {
	s.EstimateMaxEVal = e.maxEVal
	s.EstimateMinEVal = e.minEVal
	s.EstimateLargestSVal = e.largestSVal
	s.MaxConvTol = e.maxConvTol
	s.EstimateResidualError = e.residualError
}

// Result is returned by Solve.
type Result struct {
	Evals    []float64
	Evecs    *mat.Dense
	ResNorms []float64
	Perm     []int
	Stats    Stats
	Code     ExitCode
}

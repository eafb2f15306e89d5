package davidson

import "math"

// convergenceFlag classifies a single Ritz pair.
type convergenceFlag int

const (
	unconverged convergenceFlag = iota
	converged
	practicallyConverged
)

// machEps is the float64 machine epsilon, used throughout the convergence
// test and restart heuristics.
const machEps = 2.220446049250313e-16

// convergenceTest classifies a single candidate given its residual norm r
// and Ritz value lambda. tol is eps*aNorm if the caller supplied aNorm>0,
// else eps*estimateLargestSVal (computed by the caller and passed in,
// since it is a running estimate shared across candidates).
func convergenceTest(r, lambda, tol float64) convergenceFlag {
	if r <= tol {
		return converged
	}
	relaxed := math.Max(tol, machEps*math.Abs(lambda))
	if r <= relaxed {
		return practicallyConverged
	}
	return unconverged
}

// estimates carries the running scalar estimates convergenceTest's side
// effects update: the largest singular value seen, the max/min Ritz
// values, the worst residual, and the worst residual among converged
// pairs.
type estimates struct {
	largestSVal   float64
	maxEVal       float64
	minEVal       float64
	residualError float64
	maxConvTol    float64

	minEValSet bool
}

func newEstimates() *estimates {
	return &estimates{}
}

// tolerance returns the absolute convergence tolerance for the current
// state: eps*aNorm if aNorm>0, otherwise eps*estimateLargestSVal.
func (e *estimates) tolerance(eps, aNorm float64) float64 {
	if aNorm > 0 {
		return eps * aNorm
	}
	return eps * e.largestSVal
}

// update folds a new candidate's (lambda, r) into the running estimates.
func (e *estimates) update(lambda, r float64) {
	e.largestSVal = math.Max(e.largestSVal, math.Abs(lambda))
	e.maxEVal = math.Max(e.maxEVal, lambda)
	if !e.minEValSet || lambda < e.minEVal {
		e.minEVal = lambda
		e.minEValSet = true
	}
	e.residualError = math.Max(e.residualError, r)
}

func (e *estimates) noteConverged(r float64) {
	e.maxConvTol = math.Max(e.maxConvTol, r)
}

package davidson

import "github.com/pkg/errors"

// ExitCode classifies how Solve terminated. MaxIterationsReached is kept
// distinct from the fatal codes because it is non-fatal: Evals/Evecs still
// carry the best pairs found so far.
type ExitCode int

const (
	// Success means numConverged == numEvals, or the basis grew to span
	// the whole space (with or without locking).
	Success ExitCode = iota
	// MaxIterationsReached means a matvec or outer-iteration budget was
	// exhausted before convergence. Evals/Evecs/ResNorms still hold the
	// best-so-far pairs.
	MaxIterationsReached
	// InitFailure means the initial basis could not be constructed.
	InitFailure
	// OrthoFailure means the orthogonalizer could not produce an
	// orthonormal extension after repeated passes.
	OrthoFailure
	// SolveHFailure means the dense projected eigensolver (or its SVD, for
	// harmonic/refined projection) failed to converge.
	SolveHFailure
	// SolveCorrectionFailure means the inner correction solver failed.
	SolveCorrectionFailure
	// RestartFailure means the restart engine could not produce a
	// consistent compressed basis.
	RestartFailure
	// LockFailure means a converged pair could not be moved into the
	// locked set.
	LockFailure
)

func (c ExitCode) String() string {
	switch c {
	case Success:
		return "success"
	case MaxIterationsReached:
		return "max iterations reached"
	case InitFailure:
		return "initialization failure"
	case OrthoFailure:
		return "orthogonalization failure"
	case SolveHFailure:
		return "projected solve failure"
	case SolveCorrectionFailure:
		return "correction solve failure"
	case RestartFailure:
		return "restart failure"
	case LockFailure:
		return "locking failure"
	default:
		return "unknown exit code"
	}
}

// Fault is the structured cause chain for a fatal exit code: the
// classification plus the underlying collaborator error, which itself
// carries a stack trace via github.com/pkg/errors so %+v still prints the
// originating call site.
type Fault struct {
	Code ExitCode
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return f.Code.String()
	}
	return f.Code.String() + ": " + f.Err.Error()
}

func (f *Fault) Unwrap() error { return f.Err }

func fault(code ExitCode, err error) *Fault {
	return &Fault{Code: code, Err: errors.WithStack(err)}
}

func faultf(code ExitCode, format string, args ...interface{}) *Fault {
	return &Fault{Code: code, Err: errors.Errorf(format, args...)}
}

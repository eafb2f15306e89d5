package davidson

// Target selects which part of the spectrum the solver should converge to.
type Target int

const (
	// Smallest targets the algebraically smallest eigenvalues.
	Smallest Target = iota
	// Largest targets the algebraically largest eigenvalues.
	Largest
	// ClosestAbs targets eigenvalues closest in absolute value to the
	// current target shift.
	ClosestAbs
	// ClosestLeq targets the closest eigenvalues that are <= the shift.
	ClosestLeq
	// ClosestGeq targets the closest eigenvalues that are >= the shift.
	ClosestGeq
	// Interior is a generic marker covering ClosestAbs/ClosestLeq/ClosestGeq
	// for code paths that only care whether the target is interior: interior
	// modes must restart immediately on convergence to lock safely.
	Interior
)

// isInterior reports whether t is one of the shift-relative targets that
// require an immediate restart on convergence under locking.
func (t Target) isInterior() bool {
	switch t {
	case ClosestAbs, ClosestLeq, ClosestGeq, Interior:
		return true
	default:
		return false
	}
}

// less reports whether a should be ordered before b under target t, given
// shift tau. Ordering hVals by less gives the user-targeted ordering
// directly from iev.
func (t Target) less(a, b, tau float64) bool {
	switch t {
	case Smallest:
		return a < b
	case Largest:
		return a > b
	case ClosestAbs, Interior:
		return absF(a-tau) < absF(b-tau)
	case ClosestLeq:
		// Prefer values <= tau, closest first; values > tau sort after all
		// admissible ones, also closest first.
		aOK, bOK := a <= tau, b <= tau
		if aOK != bOK {
			return aOK
		}
		return absF(a-tau) < absF(b-tau)
	case ClosestGeq:
		aOK, bOK := a >= tau, b >= tau
		if aOK != bOK {
			return aOK
		}
		return absF(a-tau) < absF(b-tau)
	default:
		return a < b
	}
}

func absF(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

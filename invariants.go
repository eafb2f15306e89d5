package davidson

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// debugInvariants, when true, enables the consistency checks below, which
// panic on violation; when false they return at once. It defaults to
// false: these checks are O(basisSize^2 * nLocal) and are a debugging aid.
// The driver does not call them; tests call them directly.
var debugInvariants = false

// checkOrthonormal verifies that V[:,0:basisSize] is orthonormal to
// tolerance O(sqrt(eps)*basisSize). Orthogonality to the locked columns is
// not checked.
func (s *Solver) checkOrthonormal() {
	if !debugInvariants {
		return
	}
	v := s.ws.v.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	var vtv mat.Dense
	vtv.Mul(v.T(), v)
	var diff mat.Dense
	diff.Sub(&vtv, eye(s.basisSize))
	tol := math.Sqrt(machEps) * float64(s.basisSize)
	if normFro(&diff) > tol {
		panic(fmt.Sprintf("davidson: basis not orthonormal, ||V'V-I||=%g > %g", normFro(&diff), tol))
	}
}

// checkMatvecConsistency verifies that W[:,0:basisSize] = A*V[:,0:basisSize].
// It cannot recompute A*V without another matvec, so callers invoke this
// only in tests with a known operator, not inside the production driver.
func checkMatvecConsistency(v, w, av *mat.Dense, aNorm float64, basisSize int) error {
	var diff mat.Dense
	diff.Sub(av, w)
	tol := math.Sqrt(machEps) * aNorm * float64(basisSize)
	if normFro(&diff) > tol {
		return fmt.Errorf("davidson: matvec image stale, ||W-AV||=%g > %g", normFro(&diff), tol)
	}
	return nil
}

// checkProjection verifies that H[0:basisSize,0:basisSize] == V'*W on that
// block (and is Hermitian, trivially true for mat.SymDense).
func (s *Solver) checkProjection() {
	if !debugInvariants {
		return
	}
	v := s.ws.v.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	w := s.ws.w.Slice(0, s.nLocal, 0, s.basisSize).(*mat.Dense)
	var vtw mat.Dense
	vtw.Mul(v.T(), w)
	var diff mat.Dense
	diff.Sub(&vtw, denseFromSym(s.ws.h, s.basisSize))
	tol := math.Sqrt(machEps) * float64(s.basisSize)
	if normFro(&diff) > tol {
		panic(fmt.Sprintf("davidson: projection stale, ||H-V'W||=%g > %g", normFro(&diff), tol))
	}
}

func normFro(m *mat.Dense) float64 {
	r, c := m.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		sum += floats.Dot(m.RawRowView(i)[:c], m.RawRowView(i)[:c])
	}
	return math.Sqrt(sum)
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func denseFromSym(h *mat.SymDense, n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d.Set(i, j, h.At(i, j))
		}
	}
	return d
}

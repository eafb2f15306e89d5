package davidson

import "testing"

func TestConvergenceTest(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		r, lambda  float64
		tol        float64
		wantFlag   convergenceFlag
	}{
		{"well within tolerance", 1e-14, 1.0, 1e-10, converged},
		{"exactly at tolerance", 1e-10, 1.0, 1e-10, converged},
		{"above tolerance but within machine-eps band", 1e-9, 1e8, 1e-10, practicallyConverged},
		{"far above tolerance", 1e-3, 1.0, 1e-10, unconverged},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := convergenceTest(c.r, c.lambda, c.tol); got != c.wantFlag {
				t.Errorf("convergenceTest(%v,%v,%v) = %v, want %v", c.r, c.lambda, c.tol, got, c.wantFlag)
			}
		})
	}
}

func TestEstimatesUpdate(t *testing.T) {
	t.Parallel()
	e := newEstimates()
	e.update(3.0, 0.1)
	e.update(-2.0, 0.2)
	if e.maxEVal != 3.0 {
		t.Errorf("maxEVal = %v, want 3.0", e.maxEVal)
	}
	if e.minEVal != -2.0 {
		t.Errorf("minEVal = %v, want -2.0", e.minEVal)
	}
	if e.largestSVal != 3.0 {
		t.Errorf("largestSVal = %v, want 3.0", e.largestSVal)
	}
	if e.residualError != 0.2 {
		t.Errorf("residualError = %v, want 0.2", e.residualError)
	}
}

func TestEstimatesTolerance(t *testing.T) {
	t.Parallel()
	e := newEstimates()
	e.largestSVal = 10
	if got := e.tolerance(0.125, 5); got != 0.625 {
		t.Errorf("tolerance with aNorm = %v, want 0.625", got)
	}
	if got := e.tolerance(0.125, 0); got != 1.25 {
		t.Errorf("tolerance without aNorm = %v, want 1.25", got)
	}
}

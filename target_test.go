package davidson

import "testing"

func TestTargetLess(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		t    Target
		a, b float64
		tau  float64
		want bool
	}{
		{"smallest orders ascending", Smallest, 1, 2, 0, true},
		{"smallest rejects descending", Smallest, 2, 1, 0, false},
		{"largest orders descending", Largest, 2, 1, 0, true},
		{"closestAbs prefers nearer", ClosestAbs, 4.2, 3.9, 4, false},
		{"closestLeq prefers admissible over inadmissible", ClosestLeq, 3, 5, 4, true},
		{"closestLeq orders by distance among admissible", ClosestLeq, 3.9, 2, 4, true},
		{"closestGeq prefers admissible over inadmissible", ClosestGeq, 5, 3, 4, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := c.t.less(c.a, c.b, c.tau); got != c.want {
				t.Errorf("less(%v,%v,tau=%v) under %v = %v, want %v", c.a, c.b, c.tau, c.t, got, c.want)
			}
		})
	}
}

func TestTargetIsInterior(t *testing.T) {
	t.Parallel()
	for _, tgt := range []Target{ClosestAbs, ClosestLeq, ClosestGeq, Interior} {
		if !tgt.isInterior() {
			t.Errorf("%v should be interior", tgt)
		}
	}
	for _, tgt := range []Target{Smallest, Largest} {
		if tgt.isInterior() {
			t.Errorf("%v should not be interior", tgt)
		}
	}
}

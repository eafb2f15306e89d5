package davidson

import "testing"

func TestSingleProcessGlobalSumCopiesInput(t *testing.T) {
	t.Parallel()
	in := []float64{1, 2, 3}
	out := make([]float64, 3)
	if err := defaultGlobalSum(1).SumInto(out, in); err != nil {
		t.Fatalf("SumInto: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

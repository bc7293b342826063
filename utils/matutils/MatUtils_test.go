package matutils

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMaxVec(t *testing.T) {
	v := mat.NewVecDense(4, []float64{1, 3, 3, 2})
	if got := MaxVec(v); got != 1 {
		t.Errorf("expected the first maximum at index 1, got %d", got)
	}

	v = mat.NewVecDense(3, []float64{-2, -1, -3})
	if got := MaxVec(v); got != 1 {
		t.Errorf("expected index 1, got %d", got)
	}
}

func TestVecOnes(t *testing.T) {
	v := VecOnes(3)
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) != 1.0 {
			t.Errorf("expected 1.0 at index %d, got %v", i, v.AtVec(i))
		}
	}
}

func TestClampNonNegative(t *testing.T) {
	x := []float64{-1e-12, 0.5, -3, 0}
	got := ClampNonNegative(x)

	want := []float64{0, 0.5, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// The clamp is in place.
	if &x[0] != &got[0] {
		t.Error("expected the input slice to be clamped in place")
	}
}

func TestRowSums(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	sums := RowSums(m)

	if sums[0] != 6 || sums[1] != 15 {
		t.Errorf("expected row sums [6 15], got %v", sums)
	}
}

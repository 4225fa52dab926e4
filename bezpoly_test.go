package nurbs

import (
	"math"
	"sort"
	"testing"
)

// powerToBernstein converts monomial coefficients (low degree first) to
// Bernstein form, for building test inputs.
func powerToBernstein(power []float64) []float64 {
	n := len(power) - 1
	coffs := make([]float64, n+1)
	for k := range coffs {
		sum := 0.0
		for i := 0; i <= k; i++ {
			sum += power[i] * binomial(k, i) / binomial(n, i)
		}
		coffs[k] = sum
	}
	return coffs
}

func TestBernsteinEvaluate(t *testing.T) {
	// p(t) = 2 - 3t + t^3
	power := []float64{2, -3, 0, 1}
	coffs := powerToBernstein(power)
	for i := range 11 {
		ts := float64(i) / 10
		want := 2 - 3*ts + ts*ts*ts
		if got := bernsteinEvaluate(coffs, ts); math.Abs(got-want) > 1e-13 {
			t.Errorf("p(%g) = %g, want %g", ts, got, want)
		}
	}
	back := bernsteinToPower(coffs)
	for i, w := range power {
		if math.Abs(back[i]-w) > 1e-12 {
			t.Errorf("power coefficient %d is %g, want %g", i, back[i], w)
		}
	}
}

func TestBernsteinProduct(t *testing.T) {
	// (1 - 2t)(3 + t) = 3 - 5t - 2t^2
	a := powerToBernstein([]float64{1, -2})
	b := powerToBernstein([]float64{3, 1})
	dst := make([]float64, 3)
	bernsteinAccumulateProduct(dst, a, b, 1)
	for i := range 11 {
		ts := float64(i) / 10
		want := 3 - 5*ts - 2*ts*ts
		if got := bernsteinEvaluate(dst, ts); math.Abs(got-want) > 1e-13 {
			t.Errorf("product at %g = %g, want %g", ts, got, want)
		}
	}
}

func TestBernsteinDerivative(t *testing.T) {
	coffs := powerToBernstein([]float64{1, 0, -4, 2, 0.5})
	deriv := bernsteinDerivativeCoffs(coffs)
	const h = 1e-7
	for i := 1; i < 10; i++ {
		ts := float64(i) / 10
		want := (bernsteinEvaluate(coffs, ts+h) - bernsteinEvaluate(coffs, ts-h)) / (2 * h)
		if got := bernsteinEvaluate(deriv, ts); math.Abs(got-want) > 1e-5 {
			t.Errorf("p'(%g) = %g, finite difference %g", ts, got, want)
		}
	}
}

func TestBernsteinSplit(t *testing.T) {
	coffs := powerToBernstein([]float64{0.3, -1, 2, 1})
	left, right := bernsteinSplit(coffs, 0.4)
	for i := range 11 {
		ts := float64(i) / 10
		if got, want := bernsteinEvaluate(left, ts), bernsteinEvaluate(coffs, 0.4*ts); math.Abs(got-want) > 1e-13 {
			t.Errorf("left(%g) = %g, want %g", ts, got, want)
		}
		if got, want := bernsteinEvaluate(right, ts), bernsteinEvaluate(coffs, 0.4+0.6*ts); math.Abs(got-want) > 1e-13 {
			t.Errorf("right(%g) = %g, want %g", ts, got, want)
		}
	}
}

func checkRoots01(t *testing.T, power []float64, want []float64) {
	t.Helper()
	coffs := powerToBernstein(power)
	got := bernsteinRoots01(coffs)
	sort.Float64s(want)
	if len(got) != len(want) {
		t.Fatalf("got %d roots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-8 {
			t.Errorf("root %d is %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBernsteinRoots(t *testing.T) {
	// Degrees up to four go through the closed-form solvers.
	checkRoots01(t, []float64{-0.25, 1}, []float64{0.25})
	// (t-0.1)(t-0.6)
	checkRoots01(t, []float64{0.06, -0.7, 1}, []float64{0.1, 0.6})
	// (t-0.2)(t-0.5)(t-0.9)
	checkRoots01(t, []float64{-0.09, 0.73, -1.6, 1}, []float64{0.2, 0.5, 0.9})
	// (t-2)(t+1): no roots inside [0, 1]
	checkRoots01(t, []float64{-2, -1, 1}, nil)
	// Degree five forces the subdivision path.
	// (t^2+1)(t-0.15)(t-0.4)(t-0.85)
	checkRoots01(t,
		[]float64{-0.051, 0.5275, -1.451, 1.5275, -1.4, 1},
		[]float64{0.15, 0.4, 0.85})
}

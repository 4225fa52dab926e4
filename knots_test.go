package nurbs

import (
	"math"
	"testing"
)

func TestBasisPartitionOfUnity(t *testing.T) {
	kvs := map[string]*KnotVector{
		"clamped cubic":     NewUniformClampedKnots(7, 3),
		"clamped quadratic": NewUniformClampedKnots(5, 2),
		"periodic cubic":    NewUniformPeriodicKnots(8, 3),
		"nonuniform": NewKnotVector(
			[]float64{0, 0, 0, 0.1, 0.4, 0.45, 1, 1, 1}, 3, WrapNone),
	}
	for name, kv := range kvs {
		if kv == nil {
			t.Fatalf("%s: constructor returned nil", name)
		}
		f := make([]float64, kv.Order())
		const n = 50
		for i := range n + 1 {
			u := kv.FractionToKnot(float64(i) / float64(n))
			k := kv.KnotToLeftKnotIndex(u)
			kv.EvaluateBasisFunctions(k, u, f)
			sum := 0.0
			for _, v := range f {
				sum += v
				if v < -1e-12 {
					t.Errorf("%s: negative basis value %g at u=%g", name, v, u)
				}
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("%s: basis sum %g at u=%g, want 1", name, sum, u)
			}
		}
	}
}

func TestBasisDerivativesMatchFiniteDifferences(t *testing.T) {
	kv := NewKnotVector([]float64{0, 0, 0, 0.25, 0.3, 0.8, 1, 1, 1}, 3, WrapNone)
	order := kv.Order()
	f := make([]float64, order)
	df := make([]float64, order)
	ddf := make([]float64, order)
	fLo := make([]float64, order)
	fHi := make([]float64, order)
	dfLo := make([]float64, order)
	dfHi := make([]float64, order)

	const h = 1e-6
	for _, u := range []float64{0.1, 0.27, 0.5, 0.79, 0.9} {
		k := kv.KnotToLeftKnotIndex(u)
		kv.EvaluateBasisFunctions1(k, u, f, df, ddf)
		kv.EvaluateBasisFunctions1(k, u-h, fLo, dfLo, nil)
		kv.EvaluateBasisFunctions1(k, u+h, fHi, dfHi, nil)
		for r := range order {
			dApprox := (fHi[r] - fLo[r]) / (2 * h)
			if math.Abs(df[r]-dApprox) > 1e-5 {
				t.Errorf("df[%d] at u=%g: got %g, finite difference %g", r, u, df[r], dApprox)
			}
			ddApprox := (dfHi[r] - dfLo[r]) / (2 * h)
			if math.Abs(ddf[r]-ddApprox) > 1e-4 {
				t.Errorf("ddf[%d] at u=%g: got %g, finite difference %g", r, u, ddf[r], ddApprox)
			}
		}
	}
}

func TestKnotToLeftKnotIndex(t *testing.T) {
	kv := NewKnotVector([]float64{0, 0, 0, 0.25, 0.25, 0.5, 1, 1, 1}, 3, WrapNone)
	cases := []struct {
		u    float64
		want int
	}{
		{-1, 2},   // clamped to the left end
		{0, 2},
		{0.1, 2},
		{0.25, 4}, // double knot: zero-length span 0.25..0.25 is skipped
		{0.3, 4},
		{0.5, 5},
		{0.99, 5},
		{1, 5},
		{2, 5}, // clamped to the right end
	}
	for _, c := range cases {
		if got := kv.KnotToLeftKnotIndex(c.u); got != c.want {
			t.Errorf("KnotToLeftKnotIndex(%g) = %d, want %d", c.u, got, c.want)
		}
	}
	if got := kv.GetKnotMultiplicity(0.25); got != 2 {
		t.Errorf("GetKnotMultiplicity(0.25) = %d, want 2", got)
	}
	if got := kv.GetKnotMultiplicity(0); got != 3 {
		t.Errorf("GetKnotMultiplicity(0) = %d, want 3", got)
	}
}

func TestGrevilleKnots(t *testing.T) {
	kv := NewUniformClampedKnots(5, 3)
	// knots: 0 0 0 0.5 1 1 1
	want := []float64{0, 1.0 / 6, 0.5, 5.0 / 6, 1}
	for i, w := range want {
		if got := kv.GrevilleKnot(i); math.Abs(got-w) > 1e-15 {
			t.Errorf("GrevilleKnot(%d) = %g, want %g", i, got, w)
		}
	}
}

func TestClosable(t *testing.T) {
	periodic := NewUniformPeriodicKnots(8, 3)
	if !periodic.TestClosable(WrapOpenByAddingControlPoints) {
		t.Error("uniform periodic knots should be closable by added control points")
	}
	if periodic.TestClosable(WrapOpenByRemovingKnots) {
		t.Error("uniform periodic knots lack the end multiplicity for removed-knot closure")
	}
	clamped := NewUniformClampedKnots(6, 3)
	if clamped.TestClosable(WrapOpenByAddingControlPoints) {
		t.Error("clamped knots are not periodic")
	}
	if !clamped.TestClosable(WrapOpenByRemovingKnots) {
		t.Error("clamped knots have full end multiplicity")
	}
}

func TestReflectKnots(t *testing.T) {
	kv := NewKnotVector([]float64{0, 0, 0, 0.25, 0.3, 0.8, 1, 1, 1}, 3, WrapNone)
	orig := kv.Clone()
	kv.ReflectKnots()
	if !kv.IsNonDecreasing() {
		t.Fatal("reflected knots are not sorted")
	}
	if kv.LeftKnot() != orig.LeftKnot() || kv.RightKnot() != orig.RightKnot() {
		t.Errorf("reflection changed the domain: [%g, %g]", kv.LeftKnot(), kv.RightKnot())
	}
	kv.ReflectKnots()
	if !kv.IsAlmostEqual(orig) {
		t.Error("double reflection is not the identity")
	}
}

func TestKnotVectorRejectsInvalid(t *testing.T) {
	if kv := NewKnotVector([]float64{0, 1, 0.5, 2}, 2, WrapNone); kv != nil {
		t.Error("decreasing knots should be rejected")
	}
	if kv := NewKnotVector([]float64{0, 1}, 2, WrapNone); kv != nil {
		t.Error("too few knots should be rejected")
	}
	if kv := NewUniformClampedKnots(3, 3); kv != nil {
		t.Error("fewer poles than order should be rejected")
	}
}

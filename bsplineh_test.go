package nurbs

import (
	"math"
	"testing"
)

func TestBSplineHUnitWeightsMatchUnweighted(t *testing.T) {
	poles := []Point3{
		Pt(0, 0, 0), Pt(1, 2, 1), Pt(3, 3, -1), Pt(5, 2, 0), Pt(6, 0, 2),
	}
	plain := NewBSplineCurve3d(poles, 4)
	weighted := NewBSplineCurve3dH(poles, []float64{1, 1, 1, 1, 1}, 4)
	if weighted == nil {
		t.Fatal("constructor returned nil")
	}
	const n = 20
	for i := range n + 1 {
		f := float64(i) / n
		pw, dw := weighted.FractionToPointAndDerivative(f)
		pp, dp := plain.FractionToPointAndDerivative(f)
		if !pw.AlmostEqual(pp, 1e-12) {
			t.Errorf("point at %g: %v vs %v", f, pw, pp)
		}
		if dw.Sub(dp).Hypot() > 1e-10 {
			t.Errorf("derivative at %g: %v vs %v", f, dw, dp)
		}
	}
}

// semicircleCurve builds the upper unit semicircle from two rational
// quadratic arcs.
func semicircleCurve(t *testing.T) *BSplineCurve3dH {
	t.Helper()
	w := math.Sqrt2 / 2
	bs := NewBSplineCurve3dHWithKnots(
		[]Point3{Pt(1, 0, 0), Pt(1, 1, 0), Pt(0, 1, 0), Pt(-1, 1, 0), Pt(-1, 0, 0)},
		[]float64{1, w, 1, w, 1},
		[]float64{0, 0, 0.5, 0.5, 1, 1},
		3,
	)
	if bs == nil {
		t.Fatal("constructor returned nil")
	}
	return bs
}

func TestBSplineHSemicircle(t *testing.T) {
	bs := semicircleCurve(t)
	const n = 64
	for i := range n + 1 {
		f := float64(i) / n
		pt, d := bs.FractionToPointAndDerivative(f)
		if r := Vec3(pt).Hypot(); math.Abs(r-1) > 1e-12 {
			t.Errorf("radius at %g is %g, want 1", f, r)
		}
		if dot := Vec3(pt).Dot(d); math.Abs(dot) > 1e-10 {
			t.Errorf("tangent not perpendicular to radius at %g: %g", f, dot)
		}
	}
	if got := bs.FractionToPoint(0.5); !got.AlmostEqual(Pt(0, 1, 0), 1e-13) {
		t.Errorf("midpoint %v, want (0, 1, 0)", got)
	}
}

func TestBSplineHClosestPointToCenter(t *testing.T) {
	bs := semicircleCurve(t)
	detail, ok := bs.ClosestPoint(Pt(0, 0, 0))
	if !ok {
		t.Fatal("no closest point")
	}
	// Every point of the semicircle is at distance 1 from the center.
	if math.Abs(detail.Distance-1) > 1e-8 {
		t.Errorf("distance %g, want 1", detail.Distance)
	}

	// Off-center queries project radially.
	detail, _ = bs.ClosestPoint(Pt(0.4, 0.6, 0))
	dir, _ := Vec(0.4, 0.6, 0).Normalize()
	want := Point3(dir)
	if !detail.Point.AlmostEqual(want, 1e-7) {
		t.Errorf("closest point %v, want %v", detail.Point, want)
	}
}

func TestBSplineHClonePartialStaysOnCircle(t *testing.T) {
	bs := semicircleCurve(t)
	part := bs.ClonePartialCurve(0.2, 0.9)
	if part == nil {
		t.Fatal("ClonePartialCurve returned nil")
	}
	const n = 20
	for i := range n + 1 {
		f := float64(i) / n
		pt := part.FractionToPoint(f)
		if r := Vec3(pt).Hypot(); math.Abs(r-1) > 1e-10 {
			t.Errorf("radius at %g is %g, want 1", f, r)
		}
		want := bs.FractionToPoint(0.2 + 0.7*f)
		if !pt.AlmostEqual(want, 1e-10) {
			t.Errorf("partial point at %g is %v, want %v", f, pt, want)
		}
	}
}

func TestBSplineHAddKnotPreservesShape(t *testing.T) {
	bs := semicircleCurve(t)
	before := make([]Point3, 33)
	for i := range before {
		before[i] = bs.FractionToPoint(float64(i) / 32)
	}
	if !bs.AddKnot(0.25, 1) {
		t.Fatal("AddKnot failed")
	}
	if !bs.AddKnot(0.7, 2) {
		t.Fatal("AddKnot failed")
	}
	for i, want := range before {
		if got := bs.FractionToPoint(float64(i) / 32); !got.AlmostEqual(want, 1e-9) {
			t.Errorf("point %d moved: %v -> %v", i, want, got)
		}
	}
}

func TestBSplineHCopyAccessors(t *testing.T) {
	poles := []Point3{Pt(2, 0, 0), Pt(2, 2, 0), Pt(0, 2, 0)}
	weights := []float64{1, 0.5, 1}
	bs := NewBSplineCurve3dH(poles, weights, 3)
	gotPoints := bs.CopyPoints()
	gotWeights := bs.CopyWeights()
	for i := range poles {
		if !gotPoints[i].AlmostEqual(poles[i], 1e-14) {
			t.Errorf("pole %d is %v, want %v", i, gotPoints[i], poles[i])
		}
		if math.Abs(gotWeights[i]-weights[i]) > 1e-14 {
			t.Errorf("weight %d is %g, want %g", i, gotWeights[i], weights[i])
		}
	}
}

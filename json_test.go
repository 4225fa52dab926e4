package nurbs

import (
	"testing"
)

func TestCurveRecordRoundTrip(t *testing.T) {
	orig := NewBSplineCurve3d([]Point3{
		Pt(0, 0, 0), Pt(1, 2, 1), Pt(3, 3, -1), Pt(5, 2, 0), Pt(6, 0, 2),
	}, 4)
	data, err := orig.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := CurveFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	bs, ok := back.(*BSplineCurve3d)
	if !ok {
		t.Fatalf("round trip produced %T, want *BSplineCurve3d", back)
	}
	if !bs.IsAlmostEqual(orig) {
		t.Error("round-tripped curve differs")
	}
	diff(t, orig.ToRecord(), bs.ToRecord())
}

func TestCurveRecordRoundTripRational(t *testing.T) {
	orig := NewBSplineCurve3dH(
		[]Point3{Pt(1, 0, 0), Pt(1, 1, 0), Pt(0, 1, 0), Pt(-1, 1, 0), Pt(-1, 0, 0)},
		[]float64{1, 0.5, 1, 0.5, 1},
		3,
	)
	data, err := orig.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	back, err := CurveFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	bs, ok := back.(*BSplineCurve3dH)
	if !ok {
		t.Fatalf("round trip produced %T, want *BSplineCurve3dH", back)
	}
	if !bs.IsAlmostEqual(orig) {
		t.Error("round-tripped curve differs")
	}
}

func TestCurveRecordPaddedKnots(t *testing.T) {
	// The classic convention with repeated first and last knots is accepted.
	rec := CurveRecord{
		Poles: [][]float64{
			{0, 0, 0}, {1, 2, 0}, {2, 2, 0}, {3, 0, 0},
		},
		Knots: []float64{0, 0, 0, 0, 1, 1, 1, 1},
		Order: 4,
	}
	curve, err := CurveFromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := NewBezierCurve3d([]Point3{
		Pt(0, 0, 0), Pt(1, 2, 0), Pt(2, 2, 0), Pt(3, 0, 0),
	})
	for i := range 11 {
		f := float64(i) / 10
		if got := curve.FractionToPoint(f); !got.AlmostEqual(want.FractionToPoint(f), 1e-13) {
			t.Errorf("point at %g is %v, want %v", f, got, want.FractionToPoint(f))
		}
	}
}

func TestCurveRecordRejectsBadInput(t *testing.T) {
	if _, err := CurveFromJSON([]byte(`{`)); err == nil {
		t.Error("malformed JSON should fail")
	}
	if _, err := CurveFromRecord(CurveRecord{
		Poles: [][]float64{{0, 0}},
		Knots: []float64{0, 1},
		Order: 2,
	}); err == nil {
		t.Error("two-component pole should fail")
	}
	if _, err := CurveFromRecord(CurveRecord{
		Poles: [][]float64{{0, 0, 0}, {1, 0, 0}},
		Knots: []float64{0, 0.5, 1},
		Order: 2,
	}); err == nil {
		t.Error("mismatched knot count should fail")
	}
}

func TestFitRecordRoundTrip(t *testing.T) {
	data := []byte(`{
		"fitPoints": [[0,0,0],[1,2,0],[3,3,1],[5,2,0],[6,0,-1]],
		"startTangent": [1,0,0]
	}`)
	bs, err := CurveFromFitJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := bs.StartPoint(), Pt(0, 0, 0); !got.AlmostEqual(want, 1e-9) {
		t.Errorf("start point %v, want %v", got, want)
	}
	if got, want := bs.EndPoint(), Pt(6, 0, -1); !got.AlmostEqual(want, 1e-9) {
		t.Errorf("end point %v, want %v", got, want)
	}
	_, d := bs.FractionToPointAndDerivative(0)
	dir, ok := d.Normalize()
	if !ok {
		t.Fatal("degenerate start tangent")
	}
	if dir.Sub(Vec(1, 0, 0)).Hypot() > 1e-9 {
		t.Errorf("start tangent %v, want +x", dir)
	}

	if _, err := CurveFromFitJSON([]byte(`{"fitPoints": [[0,0,0]]}`)); err == nil {
		t.Error("single fit point should fail")
	}
}

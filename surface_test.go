package nurbs

import (
	"math"
	"testing"
)

func TestSurfaceBilinear(t *testing.T) {
	s := NewBSplineSurface3d([][]Point3{
		{Pt(0, 0, 0), Pt(2, 0, 0)},
		{Pt(0, 1, 0), Pt(2, 1, 3)},
	}, 2, 2)
	if s == nil {
		t.Fatal("constructor returned nil")
	}
	const n = 8
	for i := range n + 1 {
		for j := range n + 1 {
			fu := float64(i) / n
			fv := float64(j) / n
			want := Pt(2*fu, fv, 3*fu*fv)
			if got := s.FractionToPoint(fu, fv); !got.AlmostEqual(want, 1e-13) {
				t.Errorf("point at (%g, %g) is %v, want %v", fu, fv, got, want)
			}
		}
	}
}

func TestSurfaceDerivatives(t *testing.T) {
	poles := [][]Point3{
		{Pt(0, 0, 0), Pt(1, 0, 1), Pt(2, 0, 1), Pt(3, 0, 0)},
		{Pt(0, 1, 1), Pt(1, 1, 3), Pt(2, 1, 2), Pt(3, 1, 1)},
		{Pt(0, 2, 0), Pt(1, 2, 1), Pt(2, 2, 2), Pt(3, 2, 0)},
	}
	s := NewBSplineSurface3d(poles, 3, 3)
	if s == nil {
		t.Fatal("constructor returned nil")
	}
	const h = 1e-6
	for _, fu := range []float64{0.2, 0.5, 0.8} {
		for _, fv := range []float64{0.3, 0.6, 0.9} {
			pt, dU, dV := s.FractionToPointAndDerivatives(fu, fv)
			if got := s.FractionToPoint(fu, fv); !got.AlmostEqual(pt, 1e-14) {
				t.Errorf("point mismatch at (%g, %g)", fu, fv)
			}
			uApprox := s.FractionToPoint(fu+h, fv).Sub(s.FractionToPoint(fu-h, fv)).Mul(1 / (2 * h))
			if dU.Sub(uApprox).Hypot() > 1e-5 {
				t.Errorf("dU at (%g, %g): %v, finite difference %v", fu, fv, dU, uApprox)
			}
			vApprox := s.FractionToPoint(fu, fv+h).Sub(s.FractionToPoint(fu, fv-h)).Mul(1 / (2 * h))
			if dV.Sub(vApprox).Hypot() > 1e-5 {
				t.Errorf("dV at (%g, %g): %v, finite difference %v", fu, fv, dV, vApprox)
			}
		}
	}
}

func TestSurfaceRationalUnitWeightsMatchPlain(t *testing.T) {
	poles := [][]Point3{
		{Pt(0, 0, 0), Pt(1, 0, 1), Pt(2, 0, 0)},
		{Pt(0, 1, 1), Pt(1, 1, 2), Pt(2, 1, 1)},
		{Pt(0, 2, 0), Pt(1, 2, 1), Pt(2, 2, 0)},
	}
	weights := [][]float64{
		{1, 1, 1},
		{1, 1, 1},
		{1, 1, 1},
	}
	plain := NewBSplineSurface3d(poles, 3, 3)
	rational := NewBSplineSurface3dH(poles, weights, 3, 3)
	if rational == nil {
		t.Fatal("constructor returned nil")
	}
	for _, fu := range []float64{0, 0.25, 0.5, 1} {
		for _, fv := range []float64{0, 0.75, 1} {
			pp, duP, dvP := plain.FractionToPointAndDerivatives(fu, fv)
			pr, duR, dvR := rational.FractionToPointAndDerivatives(fu, fv)
			if !pp.AlmostEqual(pr, 1e-13) {
				t.Errorf("points differ at (%g, %g): %v vs %v", fu, fv, pp, pr)
			}
			if duP.Sub(duR).Hypot() > 1e-12 || dvP.Sub(dvR).Hypot() > 1e-12 {
				t.Errorf("derivatives differ at (%g, %g)", fu, fv)
			}
		}
	}
}

func TestSurfaceRationalSphereBand(t *testing.T) {
	// Quarter-circle arc in u swept by a quarter circle in v would need full
	// revolution machinery; instead check a cylinder patch: a rational
	// quarter-circle cross section extruded linearly in v.
	w := math.Sqrt2 / 2
	arcPoles := []Point3{Pt(1, 0, 0), Pt(1, 1, 0), Pt(0, 1, 0)}
	arcWeights := []float64{1, w, 1}
	poles := [][]Point3{make([]Point3, 3), make([]Point3, 3)}
	weights := [][]float64{make([]float64, 3), make([]float64, 3)}
	for i, p := range arcPoles {
		poles[0][i] = p
		poles[1][i] = Pt(p.X, p.Y, 2)
		weights[0][i] = arcWeights[i]
		weights[1][i] = arcWeights[i]
	}
	s := NewBSplineSurface3dH(poles, weights, 3, 2)
	if s == nil {
		t.Fatal("constructor returned nil")
	}
	for _, fu := range []float64{0, 0.3, 0.5, 0.7, 1} {
		for _, fv := range []float64{0, 0.5, 1} {
			pt := s.FractionToPoint(fu, fv)
			if r := math.Hypot(pt.X, pt.Y); math.Abs(r-1) > 1e-13 {
				t.Errorf("radius at (%g, %g) is %g, want 1", fu, fv, r)
			}
			if math.Abs(pt.Z-2*fv) > 1e-13 {
				t.Errorf("height at (%g, %g) is %g, want %g", fu, fv, pt.Z, 2*fv)
			}
		}
	}
}

func TestSurfaceRejectsRaggedGrid(t *testing.T) {
	if s := NewBSplineSurface3d([][]Point3{
		{Pt(0, 0, 0), Pt(1, 0, 0)},
		{Pt(0, 1, 0)},
	}, 2, 2); s != nil {
		t.Error("ragged grid should be rejected")
	}
	if s := NewBSplineSurface3d(nil, 2, 2); s != nil {
		t.Error("empty grid should be rejected")
	}
}

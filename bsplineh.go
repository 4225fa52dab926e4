package nurbs

import (
	"iter"
	"math"
	"slices"
)

var _ EvaluatableCurve = (*BSplineCurve3dH)(nil)

// BSplineCurve3dH is a B-spline curve with homogeneous (weighted) poles. Each
// pole is stored as (wx, wy, wz, w).
//
// Like [BSplineCurve3d], instances own scratch buffers and must not be shared
// across goroutines without cloning.
type BSplineCurve3dH struct {
	poles *PoleBuffer

	workBezier *BezierCurve3dH
}

// NewBSplineCurve3dH creates a clamped weighted curve with uniform knots. The
// weights slice must match the poles slice; a nil weights slice means unit
// weights. It returns nil on count mismatches or fewer than order poles.
func NewBSplineCurve3dH(poles []Point3, weights []float64, order int) *BSplineCurve3dH {
	packed := packWeighted(poles, weights)
	if packed == nil || order < 2 || len(poles) < order {
		return nil
	}
	kv := NewUniformClampedKnots(len(poles), order-1)
	if kv == nil {
		return nil
	}
	return &BSplineCurve3dH{poles: NewPoleBuffer(packed, 4, kv)}
}

// NewBSplineCurve3dHWithKnots creates a weighted curve from explicit knots,
// accepting the same two knot conventions as [NewBSplineCurve3dWithKnots].
func NewBSplineCurve3dHWithKnots(poles []Point3, weights []float64, knots []float64, order int) *BSplineCurve3dH {
	packed := packWeighted(poles, weights)
	if packed == nil {
		return nil
	}
	kv := knotsFromEitherConvention(knots, len(poles), order)
	if kv == nil {
		return nil
	}
	return &BSplineCurve3dH{poles: NewPoleBuffer(packed, 4, kv)}
}

// packWeighted packs poles into homogeneous form, pre-multiplying coordinates
// by their weights. Non-positive weights are treated as 1.
func packWeighted(poles []Point3, weights []float64) []float64 {
	if weights != nil && len(weights) != len(poles) {
		return nil
	}
	packed := make([]float64, 4*len(poles))
	for i, p := range poles {
		w := 1.0
		if weights != nil {
			w = weights[i]
			if math.Abs(w) < 1e-12 {
				w = 1
			}
		}
		packed[4*i] = p.X * w
		packed[4*i+1] = p.Y * w
		packed[4*i+2] = p.Z * w
		packed[4*i+3] = w
	}
	return packed
}

// Order returns degree+1.
func (bs *BSplineCurve3dH) Order() int { return bs.poles.Knots.Order() }

// Degree returns the polynomial degree.
func (bs *BSplineCurve3dH) Degree() int { return bs.poles.Knots.Degree() }

// NumPoles returns the number of poles.
func (bs *BSplineCurve3dH) NumPoles() int { return bs.poles.NumPoles() }

// NumSpans returns the number of knot spans, including degenerate ones.
func (bs *BSplineCurve3dH) NumSpans() int { return bs.poles.Knots.NumSpans() }

// KnotVector returns the owned knot vector. Callers must not mutate it.
func (bs *BSplineCurve3dH) KnotVector() *KnotVector { return bs.poles.Knots }

// PolePoint returns pole i de-weighted to xyz space.
func (bs *BSplineCurve3dH) PolePoint(i int) Point3 {
	block := bs.poles.Pole(i)
	recip := safeWeightRecip(block[3])
	return Pt(block[0]*recip, block[1]*recip, block[2]*recip)
}

// CopyWeights returns the weights as a freshly allocated slice.
func (bs *BSplineCurve3dH) CopyWeights() []float64 {
	out := make([]float64, bs.NumPoles())
	for i := range out {
		out[i] = bs.poles.Pole(i)[3]
	}
	return out
}

// CopyPoints returns the de-weighted poles as a freshly allocated slice.
func (bs *BSplineCurve3dH) CopyPoints() []Point3 {
	out := make([]Point3, bs.NumPoles())
	for i := range out {
		out[i] = bs.PolePoint(i)
	}
	return out
}

// CopyKnots returns the knots as a freshly allocated slice.
func (bs *BSplineCurve3dH) CopyKnots() []float64 {
	return slices.Clone(bs.poles.Knots.Knots)
}

// Clone returns a deep copy sharing no buffers.
func (bs *BSplineCurve3dH) Clone() *BSplineCurve3dH {
	return &BSplineCurve3dH{poles: bs.poles.Clone()}
}

// FractionToPoint evaluates the de-weighted curve point at fraction f.
func (bs *BSplineCurve3dH) FractionToPoint(f float64) Point3 {
	u := bs.poles.Knots.FractionToKnot(f)
	p, _, _ := bs.poles.EvaluateBuffersAtKnot(u, 0)
	recip := safeWeightRecip(p[3])
	return Pt(p[0]*recip, p[1]*recip, p[2]*recip)
}

// FractionToPointAndDerivative evaluates the de-weighted point and derivative
// with respect to the fraction, applying the quotient rule.
func (bs *BSplineCurve3dH) FractionToPointAndDerivative(f float64) (Point3, Vec3) {
	kv := bs.poles.Knots
	u := kv.FractionToKnot(f)
	p, d1, _ := bs.poles.EvaluateBuffersAtKnot(u, 1)
	scale := kv.RightKnot() - kv.LeftKnot()
	recip := safeWeightRecip(p[3])
	return Pt(p[0]*recip, p[1]*recip, p[2]*recip), Vec(
		(d1[0]*p[3]-p[0]*d1[3])*recip*recip*scale,
		(d1[1]*p[3]-p[1]*d1[3])*recip*recip*scale,
		(d1[2]*p[3]-p[2]*d1[3])*recip*recip*scale,
	)
}

// FractionToPointAnd2Derivatives evaluates the de-weighted point, first
// derivative, and a central-difference second derivative.
func (bs *BSplineCurve3dH) FractionToPointAnd2Derivatives(f float64) (Point3, Vec3, Vec3) {
	const epsilon = 1e-8
	pt, d1 := bs.FractionToPointAndDerivative(f)
	_, dA := bs.FractionToPointAndDerivative(f - epsilon)
	_, dB := bs.FractionToPointAndDerivative(f + epsilon)
	return pt, d1, dB.Sub(dA).Mul(1 / (2 * epsilon))
}

// StartPoint returns the point at fraction 0.
func (bs *BSplineCurve3dH) StartPoint() Point3 { return bs.FractionToPoint(0) }

// EndPoint returns the point at fraction 1.
func (bs *BSplineCurve3dH) EndPoint() Point3 { return bs.FractionToPoint(1) }

// AddKnot raises the multiplicity of the given knot value, preserving shape.
func (bs *BSplineCurve3dH) AddKnot(knot float64, targetMultiplicity int) bool {
	return bs.poles.AddKnot(knot, targetMultiplicity)
}

// ReverseInPlace reverses the curve's parametric direction.
func (bs *BSplineCurve3dH) ReverseInPlace() {
	bs.poles.ReverseInPlace()
}

// IsClosable reports whether the curve's wrap mode is set and both its knots
// and its pole polygon are consistent with that mode.
func (bs *BSplineCurve3dH) IsClosable() bool {
	mode := bs.poles.Knots.Wrap
	if mode == WrapNone {
		return false
	}
	return bs.poles.Knots.TestClosable(mode) && bs.poles.TestCloseablePolygon(mode)
}

// BezierSegmentAtSpan returns the saturated homogeneous Bézier segment for
// span spanIndex, or nil if the span is degenerate. The segment is scratch
// state owned by the curve.
func (bs *BSplineCurve3dH) BezierSegmentAtSpan(spanIndex int) *BezierCurve3dH {
	if spanIndex < 0 || spanIndex >= bs.NumSpans() {
		return nil
	}
	if bs.workBezier == nil {
		bs.workBezier = newBezierCurve3dHScratch(bs.Order())
	}
	bs.workBezier.bz.LoadSpanPoles(bs.poles, spanIndex)
	if !bs.workBezier.bz.SaturateInPlace(bs.poles.Knots, spanIndex) {
		return nil
	}
	return bs.workBezier
}

// StrokeCountForOptions sums per-span stroke estimates over the curve's
// non-degenerate spans.
func (bs *BSplineCurve3dH) StrokeCountForOptions(opts *StrokeOptions) int {
	total := 0
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			total += segment.StrokeCount(opts)
		}
	}
	return max(total, 1)
}

// EmitStrokes returns an iterator over a polyline approximation of the curve.
func (bs *BSplineCurve3dH) EmitStrokes(opts *StrokeOptions) iter.Seq[Point3] {
	return func(yield func(Point3) bool) {
		if !yield(bs.StartPoint()) {
			return
		}
		for spanIndex := range bs.NumSpans() {
			segment := bs.BezierSegmentAtSpan(spanIndex)
			if segment == nil {
				continue
			}
			count := segment.StrokeCount(opts)
			for i := 1; i <= count; i++ {
				if !yield(segment.FractionToPoint(float64(i) / float64(count))) {
					return
				}
			}
		}
	}
}

// ClosestPoint returns the closest point of the curve to space, searching all
// true perpendiculars and the curve endpoints.
func (bs *BSplineCurve3dH) ClosestPoint(space Point3) (CurveLocationDetail, bool) {
	detail := CurveLocationDetail{Distance: math.Inf(1)}
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			segment.UpdateClosestPoint(space, &detail)
		}
	}
	return detail, !math.IsInf(detail.Distance, 1)
}

// Range returns an axis-aligned range containing the curve (the de-weighted
// pole hull, see [BezierCurve3dH.ExtendRange]).
func (bs *BSplineCurve3dH) Range() Range3d {
	r := NullRange3d()
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			r = segment.ExtendRange(r)
		}
	}
	return r
}

// ClonePartialCurve returns a new curve covering the fraction interval from
// fractionA to fractionB, or nil for a degenerate interval.
func (bs *BSplineCurve3dH) ClonePartialCurve(fractionA, fractionB float64) EvaluatableCurve {
	c := clonePartial(bs.poles, fractionA, fractionB)
	if c == nil {
		return nil
	}
	return &BSplineCurve3dH{poles: c}
}

// IsAlmostEqual reports whether other is a BSplineCurve3dH with the same
// poles, weights, and knots within tolerance.
func (bs *BSplineCurve3dH) IsAlmostEqual(other EvaluatableCurve) bool {
	o, ok := other.(*BSplineCurve3dH)
	if !ok {
		return false
	}
	return bs.poles.IsAlmostEqual(o.poles)
}

// DispatchToHandler implements [EvaluatableCurve].
func (bs *BSplineCurve3dH) DispatchToHandler(handler CurveHandler) {
	handler.HandleBSplineCurve3dH(bs)
}

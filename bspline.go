package nurbs

import (
	"iter"
	"math"
	"slices"
)

var _ EvaluatableCurve = (*BSplineCurve3d)(nil)

// BSplineCurve3d is a B-spline curve with unweighted xyz poles.
//
// Evaluation routes through the owned pole buffer and its knot vector; span
// level work (stroking, closest point, range) routes through saturated Bézier
// segments. The curve owns reusable scratch state, so a single instance must
// not be used from multiple goroutines concurrently; Clone first.
type BSplineCurve3d struct {
	poles *PoleBuffer

	workBezier *BezierCurve3d
}

// NewBSplineCurve3d creates a clamped curve with uniform knots from poles and
// order. It returns nil if there are fewer than order poles or order < 2.
func NewBSplineCurve3d(poles []Point3, order int) *BSplineCurve3d {
	if order < 2 || len(poles) < order {
		return nil
	}
	kv := NewUniformClampedKnots(len(poles), order-1)
	if kv == nil {
		return nil
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packPoints(poles), 3, kv)}
}

// NewBSplineCurve3dWithKnots creates a curve from poles and an explicit knot
// vector. Both knot conventions are accepted: len(knots) ==
// len(poles)+order-2 uses the knots directly, len(knots) == len(poles)+order
// drops the classic first and last padding knots. Any other count returns
// nil.
func NewBSplineCurve3dWithKnots(poles []Point3, knots []float64, order int) *BSplineCurve3d {
	kv := knotsFromEitherConvention(knots, len(poles), order)
	if kv == nil {
		return nil
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packPoints(poles), 3, kv)}
}

// NewPeriodicBSplineCurve3d creates a closed curve with uniform knots. The
// given poles are the distinct poles of one period; the leading degree poles
// are replicated at the tail internally. It returns nil for fewer than order
// poles.
func NewPeriodicBSplineCurve3d(poles []Point3, order int) *BSplineCurve3d {
	if order < 2 || len(poles) < order {
		return nil
	}
	degree := order - 1
	wrapped := make([]Point3, 0, len(poles)+degree)
	wrapped = append(wrapped, poles...)
	wrapped = append(wrapped, poles[:degree]...)
	kv := NewUniformPeriodicKnots(len(wrapped), degree)
	if kv == nil {
		return nil
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packPoints(wrapped), 3, kv)}
}

func packPoints(poles []Point3) []float64 {
	packed := make([]float64, 3*len(poles))
	for i, p := range poles {
		packed[3*i] = p.X
		packed[3*i+1] = p.Y
		packed[3*i+2] = p.Z
	}
	return packed
}

// knotsFromEitherConvention builds a knot vector from explicit knots given
// either with or without the classic padding knots.
func knotsFromEitherConvention(knots []float64, numPoles, order int) *KnotVector {
	if order < 2 || numPoles < order {
		return nil
	}
	degree := order - 1
	switch len(knots) {
	case numPoles + degree - 1:
		return NewKnotVector(slices.Clone(knots), degree, WrapNone)
	case numPoles + order:
		return NewKnotVector(slices.Clone(knots[1:len(knots)-1]), degree, WrapNone)
	default:
		return nil
	}
}

// Order returns degree+1.
func (bs *BSplineCurve3d) Order() int { return bs.poles.Knots.Order() }

// Degree returns the polynomial degree.
func (bs *BSplineCurve3d) Degree() int { return bs.poles.Knots.Degree() }

// NumPoles returns the number of poles.
func (bs *BSplineCurve3d) NumPoles() int { return bs.poles.NumPoles() }

// NumSpans returns the number of knot spans, including degenerate ones.
func (bs *BSplineCurve3d) NumSpans() int { return bs.poles.Knots.NumSpans() }

// KnotVector returns the owned knot vector. Callers must not mutate it.
func (bs *BSplineCurve3d) KnotVector() *KnotVector { return bs.poles.Knots }

// PolePoint returns pole i.
func (bs *BSplineCurve3d) PolePoint(i int) Point3 {
	block := bs.poles.Pole(i)
	return Pt(block[0], block[1], block[2])
}

// CopyPoints returns the poles as a freshly allocated slice.
func (bs *BSplineCurve3d) CopyPoints() []Point3 {
	out := make([]Point3, bs.NumPoles())
	for i := range out {
		out[i] = bs.PolePoint(i)
	}
	return out
}

// CopyKnots returns the knots as a freshly allocated slice.
func (bs *BSplineCurve3d) CopyKnots() []float64 {
	return slices.Clone(bs.poles.Knots.Knots)
}

// Clone returns a deep copy sharing no buffers.
func (bs *BSplineCurve3d) Clone() *BSplineCurve3d {
	return &BSplineCurve3d{poles: bs.poles.Clone()}
}

// FractionToPoint evaluates the curve at global fraction f.
func (bs *BSplineCurve3d) FractionToPoint(f float64) Point3 {
	u := bs.poles.Knots.FractionToKnot(f)
	p, _, _ := bs.poles.EvaluateBuffersAtKnot(u, 0)
	return Pt(p[0], p[1], p[2])
}

// FractionToPointAndDerivative evaluates the curve and its derivative with
// respect to the fraction.
func (bs *BSplineCurve3d) FractionToPointAndDerivative(f float64) (Point3, Vec3) {
	kv := bs.poles.Knots
	u := kv.FractionToKnot(f)
	p, d1, _ := bs.poles.EvaluateBuffersAtKnot(u, 1)
	scale := kv.RightKnot() - kv.LeftKnot()
	return Pt(p[0], p[1], p[2]), Vec(d1[0]*scale, d1[1]*scale, d1[2]*scale)
}

// FractionToPointAnd2Derivatives evaluates the curve and its first and second
// derivatives with respect to the fraction.
func (bs *BSplineCurve3d) FractionToPointAnd2Derivatives(f float64) (Point3, Vec3, Vec3) {
	kv := bs.poles.Knots
	u := kv.FractionToKnot(f)
	p, d1, d2 := bs.poles.EvaluateBuffersAtKnot(u, 2)
	scale := kv.RightKnot() - kv.LeftKnot()
	scale2 := scale * scale
	return Pt(p[0], p[1], p[2]),
		Vec(d1[0]*scale, d1[1]*scale, d1[2]*scale),
		Vec(d2[0]*scale2, d2[1]*scale2, d2[2]*scale2)
}

// StartPoint returns the point at fraction 0.
func (bs *BSplineCurve3d) StartPoint() Point3 { return bs.FractionToPoint(0) }

// EndPoint returns the point at fraction 1.
func (bs *BSplineCurve3d) EndPoint() Point3 { return bs.FractionToPoint(1) }

// AddKnot raises the multiplicity of the given knot value, preserving shape.
// See [PoleBuffer.AddKnot].
func (bs *BSplineCurve3d) AddKnot(knot float64, targetMultiplicity int) bool {
	return bs.poles.AddKnot(knot, targetMultiplicity)
}

// ReverseInPlace reverses the curve's parametric direction.
func (bs *BSplineCurve3d) ReverseInPlace() {
	bs.poles.ReverseInPlace()
}

// IsClosable reports whether the curve's wrap mode is set and both its knots
// and its pole polygon are consistent with that mode.
func (bs *BSplineCurve3d) IsClosable() bool {
	mode := bs.poles.Knots.Wrap
	if mode == WrapNone {
		return false
	}
	return bs.poles.Knots.TestClosable(mode) && bs.poles.TestCloseablePolygon(mode)
}

// BezierSegmentAtSpan returns the saturated Bézier segment for span spanIndex,
// or nil if the span is degenerate. The returned segment is the curve's own
// scratch segment, overwritten by the next call; Clone the underlying data to
// keep it.
func (bs *BSplineCurve3d) BezierSegmentAtSpan(spanIndex int) *BezierCurve3d {
	if spanIndex < 0 || spanIndex >= bs.NumSpans() {
		return nil
	}
	if bs.workBezier == nil {
		bs.workBezier = newBezierCurve3dScratch(bs.Order())
	}
	bs.workBezier.bz.LoadSpanPoles(bs.poles, spanIndex)
	if !bs.workBezier.bz.SaturateInPlace(bs.poles.Knots, spanIndex) {
		return nil
	}
	return bs.workBezier
}

// StrokeCountForOptions sums per-span stroke estimates over the curve's
// non-degenerate spans.
func (bs *BSplineCurve3d) StrokeCountForOptions(opts *StrokeOptions) int {
	total := 0
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			total += segment.StrokeCount(opts)
		}
	}
	return max(total, 1)
}

// EmitStrokes returns an iterator over a polyline approximation of the curve.
func (bs *BSplineCurve3d) EmitStrokes(opts *StrokeOptions) iter.Seq[Point3] {
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
// true perpendiculars and the curve endpoints. ok is false only for a fully
// degenerate curve.
func (bs *BSplineCurve3d) ClosestPoint(space Point3) (CurveLocationDetail, bool) {
	detail := CurveLocationDetail{Distance: math.Inf(1)}
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			segment.UpdateClosestPoint(space, &detail)
		}
	}
	return detail, !math.IsInf(detail.Distance, 1)
}

// Range returns the axis-aligned extent of the curve.
func (bs *BSplineCurve3d) Range() Range3d {
	r := NullRange3d()
	for spanIndex := range bs.NumSpans() {
		if segment := bs.BezierSegmentAtSpan(spanIndex); segment != nil {
			r = segment.ExtendRange(r)
		}
	}
	return r
}

// ClonePartialCurve returns a new curve covering the fraction interval from
// fractionA to fractionB. A reversed interval produces a reversed curve. If
// the whole interval is requested and no knot work is needed, the result is a
// plain clone. A degenerate interval returns nil.
func (bs *BSplineCurve3d) ClonePartialCurve(fractionA, fractionB float64) EvaluatableCurve {
	c := clonePartial(bs.poles, fractionA, fractionB)
	if c == nil {
		return nil
	}
	return &BSplineCurve3d{poles: c}
}

// clonePartial implements partial-curve extraction on a pole buffer: raise
// knot multiplicity to degree at both cut knots, then slice the enclosing
// pole/knot index range.
func clonePartial(pb *PoleBuffer, fractionA, fractionB float64) *PoleBuffer {
	reversed := false
	if fractionA > fractionB {
		fractionA, fractionB = fractionB, fractionA
		reversed = true
	}
	if fractionB-fractionA < KnotTolerance {
		return nil
	}
	work := pb.Clone()
	kv := work.Knots
	degree := kv.Degree()
	knotA := kv.FractionToKnot(fractionA)
	knotB := kv.FractionToKnot(fractionB)
	if !work.AddKnot(knotA, degree) || !work.AddKnot(knotB, degree) {
		return nil
	}
	firstA := -1
	lastB := -1
	for i, knot := range kv.Knots {
		if firstA < 0 && math.Abs(knot-knotA) <= KnotTolerance {
			firstA = i
		}
		if math.Abs(knot-knotB) <= KnotTolerance {
			lastB = i
		}
	}
	if firstA < 0 || lastB < 0 {
		return nil
	}
	newKnots := slices.Clone(kv.Knots[firstA : lastB+1])
	numPoles := len(newKnots) - degree + 1
	newPacked := slices.Clone(work.Packed[firstA*work.BlockSize : (firstA+numPoles)*work.BlockSize])
	out := NewPoleBuffer(newPacked, work.BlockSize, NewKnotVector(newKnots, degree, WrapNone))
	if out == nil {
		return nil
	}
	if reversed {
		out.ReverseInPlace()
	}
	return out
}

// IsAlmostEqual reports whether other is a BSplineCurve3d with the same poles
// and knots within tolerance.
func (bs *BSplineCurve3d) IsAlmostEqual(other EvaluatableCurve) bool {
	o, ok := other.(*BSplineCurve3d)
	if !ok {
		return false
	}
	return bs.poles.IsAlmostEqual(o.poles)
}

// DispatchToHandler implements [EvaluatableCurve].
func (bs *BSplineCurve3d) DispatchToHandler(handler CurveHandler) {
	handler.HandleBSplineCurve3d(bs)
}

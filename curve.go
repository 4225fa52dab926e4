package nurbs

import "iter"

// DefaultChordTolerance is the default chord-height tolerance for stroking.
const DefaultChordTolerance = 1e-3

// DefaultAngleTolerance is the default turning-angle-per-stroke tolerance for
// stroking, in radians.
const DefaultAngleTolerance = 0.25

// StrokeOptions controls how curves are approximated by polylines.
//
// Zero-valued fields select defaults; a negative tolerance disables the
// corresponding criterion.
type StrokeOptions struct {
	// ChordTol bounds the distance between the curve and its strokes.
	ChordTol float64
	// AngleTol bounds the tangent turn between successive strokes, in radians.
	AngleTol float64
	// MaxEdgeLength bounds the length of a single stroke. Zero disables the
	// criterion.
	MaxEdgeLength float64
	// MinStrokesPerSpan forces at least this many strokes on each Bézier span.
	MinStrokesPerSpan int
	// MaxStrokesPerSpan caps the strokes on each span. Zero means no cap.
	MaxStrokesPerSpan int
}

func (opts *StrokeOptions) withDefaults() *StrokeOptions {
	var out StrokeOptions
	if opts != nil {
		out = *opts
	}
	if out.ChordTol == 0 {
		out.ChordTol = DefaultChordTolerance
	}
	if out.AngleTol == 0 {
		out.AngleTol = DefaultAngleTolerance
	}
	return &out
}

// EvaluatableCurve is the contract through which the curve-primitive and
// clipping subsystems consume curves. Those layers depend only on this
// surface, never on pole or knot buffer layout.
type EvaluatableCurve interface {
	// FractionToPoint evaluates the curve at fraction f. Generally, f is in
	// the range [0, 1].
	FractionToPoint(f float64) Point3
	// FractionToPointAndDerivative evaluates the curve and its derivative
	// with respect to the fraction.
	FractionToPointAndDerivative(f float64) (Point3, Vec3)
	// EmitStrokes returns an iterator over a polyline approximation of the
	// curve. The sequence is finite and restartable.
	EmitStrokes(opts *StrokeOptions) iter.Seq[Point3]
	// ClonePartialCurve returns a new curve covering the given fraction
	// interval of this one, or nil if the interval is degenerate.
	ClonePartialCurve(fractionA, fractionB float64) EvaluatableCurve
	// IsAlmostEqual reports whether the other curve has the same type and the
	// same defining data within tolerance.
	IsAlmostEqual(other EvaluatableCurve) bool
	// DispatchToHandler performs double dispatch to the per-type methods of a
	// handler.
	DispatchToHandler(handler CurveHandler)
}

// CurveHandler is the visitor consumed by [EvaluatableCurve.DispatchToHandler].
// Generic geometry-processing passes implement it to get compile-time-checked
// per-type treatment without type switches at call sites.
type CurveHandler interface {
	HandleBSplineCurve3d(curve *BSplineCurve3d)
	HandleBSplineCurve3dH(curve *BSplineCurve3dH)
}

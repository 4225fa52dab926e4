// Package nurbs provides B-spline and NURBS curve primitives and the
// numerical routines built on top of them. It was designed to serve the
// needs of 3D geometry kernels, but the pieces are general enough to be
// useful on their own.
//
// # Features
//
// We provide the following notable features:
//
//   - B-spline basis evaluation with derivatives (see [KnotVector])
//   - Knot insertion (see [BSplineCurve3d.AddKnot])
//   - Bezier extraction of single spans (see [BSplineCurve3d.BezierSegmentAtSpan])
//   - Closest-point queries via polynomial root finding (see [BSplineCurve3d.ClosestPoint])
//   - C2 cubic interpolation through points (see [CreateThroughPointsC2Cubic])
//   - Adaptive stroking of curves into polylines (see [EvaluatableCurve])
//   - Tensor-product surface evaluation (see [BSplineSurface3d])
//
// # Curves
//
// The two curve types are [BSplineCurve3d] and its rational sibling
// [BSplineCurve3dH], which stores weight-multiplied homogeneous poles. Both
// implement [EvaluatableCurve]: evaluation takes a fraction in [0, 1] that is
// mapped onto the curve's active knot range, so callers never handle raw knot
// values unless they want to. [CurveHandler] dispatches on the concrete type
// without type switches at the call site.
//
// Knot vectors use an unpadded representation: a curve with n poles of degree
// d stores n+d-1 knots, without the classic repeated first and last entries.
// Constructors accept the classic padded convention as well and drop the
// padding on the way in.
//
// # Fitting
//
// [CreateThroughPointsC2Cubic] interpolates a point sequence with a C2 cubic
// curve, with natural, Bessel, or explicitly supplied end tangents, and
// optional periodic closure. [CreateThroughPoints] fits a curve of arbitrary
// order by collocation at Greville parameters.
//
// # Interchange
//
// Curves and fit requests round-trip through plain JSON records; see
// [CurveRecord] and [FitRecord].
package nurbs

package nurbs

import "math"

// CurveLocationDetail records a point on a curve found by a search, along with
// its fraction and its distance to the query point.
type CurveLocationDetail struct {
	Fraction float64
	Point    Point3
	Distance float64
}

// updateIfCloser replaces the detail when the candidate is strictly closer.
func (d *CurveLocationDetail) updateIfCloser(fraction float64, pt Point3, space Point3) bool {
	dist := pt.Distance(space)
	if dist < d.Distance {
		d.Fraction = fraction
		d.Point = pt
		d.Distance = dist
		return true
	}
	return false
}

// BezierCurve3d is one Bézier segment with unweighted xyz poles.
type BezierCurve3d struct {
	bz *Bezier1d
}

// NewBezierCurve3d returns the Bézier segment with the given poles, or nil for
// fewer than two poles.
func NewBezierCurve3d(poles []Point3) *BezierCurve3d {
	if len(poles) < 2 {
		return nil
	}
	bz := newBezier1d(len(poles), 3)
	for i, p := range poles {
		block := bz.Pole(i)
		block[0], block[1], block[2] = p.X, p.Y, p.Z
	}
	return &BezierCurve3d{bz: bz}
}

// newBezierCurve3dScratch returns an empty segment of the given order, for
// reuse across spans.
func newBezierCurve3dScratch(order int) *BezierCurve3d {
	return &BezierCurve3d{bz: newBezier1d(order, 3)}
}

// Order returns the number of poles.
func (bc *BezierCurve3d) Order() int { return bc.bz.Order() }

// PolePoint returns pole i as a point.
func (bc *BezierCurve3d) PolePoint(i int) Point3 {
	block := bc.bz.Pole(i)
	return Pt(block[0], block[1], block[2])
}

// Interval returns the parent-curve fraction interval, if the segment was
// produced by span saturation.
func (bc *BezierCurve3d) Interval() ([2]float64, bool) { return bc.bz.Interval() }

// FractionToParentFraction maps a local fraction into the parent curve's
// fraction space.
func (bc *BezierCurve3d) FractionToParentFraction(t float64) float64 {
	return bc.bz.FractionToParentFraction(t)
}

// FractionToPoint evaluates the segment at local fraction t.
func (bc *BezierCurve3d) FractionToPoint(t float64) Point3 {
	var out [3]float64
	bc.bz.Evaluate(t, out[:])
	return Pt(out[0], out[1], out[2])
}

// FractionToPointAndDerivative evaluates the segment and its derivative with
// respect to the local fraction.
func (bc *BezierCurve3d) FractionToPointAndDerivative(t float64) (Point3, Vec3) {
	pt := bc.FractionToPoint(t)
	d := bc.derivativePolygon()
	var out [3]float64
	d.Evaluate(t, out[:])
	return pt, Vec(out[0], out[1], out[2])
}

// derivativePolygon returns the hodograph: degree*(P_{i+1}-P_i).
func (bc *BezierCurve3d) derivativePolygon() *Bezier1d {
	order := bc.Order()
	degree := float64(order - 1)
	d := newBezier1d(order-1, 3)
	for i := 0; i < order-1; i++ {
		a := bc.bz.Pole(i)
		b := bc.bz.Pole(i + 1)
		out := d.Pole(i)
		for c := range out {
			out[c] = degree * (b[c] - a[c])
		}
	}
	return d
}

// SubdivideInPlaceKeepLeft restricts the segment to [0, fraction].
func (bc *BezierCurve3d) SubdivideInPlaceKeepLeft(fraction float64) {
	bc.bz.SubdivideInPlaceKeepLeft(fraction)
}

// SubdivideInPlaceKeepRight restricts the segment to [fraction, 1].
func (bc *BezierCurve3d) SubdivideInPlaceKeepRight(fraction float64) {
	bc.bz.SubdivideInPlaceKeepRight(fraction)
}

// UpdateClosestPoint improves detail with any true perpendicular from space to
// the segment, together with the segment endpoints. Fractions recorded in the
// detail are parent-curve fractions. It reports whether the detail improved.
//
// The perpendicular condition (C(t)-space)·C'(t) = 0 is a Bernstein polynomial
// of degree 2·order-2; its roots in [0, 1] are the candidates.
func (bc *BezierCurve3d) UpdateClosestPoint(space Point3, detail *CurveLocationDetail) bool {
	order := bc.Order()
	n := 2*order - 3
	if n < 1 {
		n = 1
	}
	product := make([]float64, n+1)
	spaceCoord := [3]float64{space.X, space.Y, space.Z}
	for axis := range 3 {
		a := bc.bz.ComponentCoffs(axis)
		bernsteinShift(a, spaceCoord[axis])
		d := bernsteinDerivativeCoffs(a)
		bernsteinAccumulateProduct(product, a, d, 1)
	}
	improved := false
	for _, t := range bernsteinRoots01(product) {
		if detail.updateIfCloser(bc.FractionToParentFraction(t), bc.FractionToPoint(t), space) {
			improved = true
		}
	}
	for _, t := range [2]float64{0, 1} {
		if detail.updateIfCloser(bc.FractionToParentFraction(t), bc.FractionToPoint(t), space) {
			improved = true
		}
	}
	return improved
}

// ExtendRange grows the range by the exact extent of the segment: endpoints
// plus interior extrema of each coordinate.
func (bc *BezierCurve3d) ExtendRange(r Range3d) Range3d {
	r = r.ExtendPoint(bc.FractionToPoint(0))
	r = r.ExtendPoint(bc.FractionToPoint(1))
	for axis := range 3 {
		coffs := bc.bz.ComponentCoffs(axis)
		for _, t := range bernsteinRoots01(bernsteinDerivativeCoffs(coffs)) {
			r = r.ExtendPoint(bc.FractionToPoint(t))
		}
	}
	return r
}

// StrokeCount estimates the number of strokes needed to draw the segment
// within the given options, from the pole polygon's length and turning angle.
func (bc *BezierCurve3d) StrokeCount(opts *StrokeOptions) int {
	return strokeCountForPolygon(bc.bz, func(i int) Point3 { return bc.PolePoint(i) }, opts)
}

func strokeCountForPolygon(bz *Bezier1d, pole func(int) Point3, opts *StrokeOptions) int {
	opts = opts.withDefaults()
	order := bz.Order()
	sumLength := 0.0
	sumTurn := 0.0
	var prevEdge Vec3
	havePrev := false
	for i := 1; i < order; i++ {
		edge := pole(i).Sub(pole(i - 1))
		l := edge.Hypot()
		if l <= 0 {
			continue
		}
		sumLength += l
		if havePrev {
			sumTurn += prevEdge.AngleTo(edge)
		}
		prevEdge = edge
		havePrev = true
	}
	if sumLength <= 0 {
		return 1
	}
	n := 1.0
	if opts.ChordTol > 0 {
		n = math.Max(n, math.Sqrt(sumTurn*sumLength/(8*opts.ChordTol)))
	}
	if opts.AngleTol > 0 {
		n = math.Max(n, sumTurn/opts.AngleTol)
	}
	if opts.MaxEdgeLength > 0 {
		n = math.Max(n, sumLength/opts.MaxEdgeLength)
	}
	count := int(math.Ceil(n))
	count = max(count, opts.MinStrokesPerSpan, 1)
	if opts.MaxStrokesPerSpan > 0 && count > opts.MaxStrokesPerSpan {
		count = opts.MaxStrokesPerSpan
	}
	return count
}

// BezierCurve3dH is one Bézier segment with homogeneous xyzw poles.
type BezierCurve3dH struct {
	bz *Bezier1d
}

// NewBezierCurve3dH returns the Bézier segment with the given weighted poles,
// or nil for fewer than two poles. Each pole is (wx, wy, wz, w).
func NewBezierCurve3dH(poles [][4]float64) *BezierCurve3dH {
	if len(poles) < 2 {
		return nil
	}
	bz := newBezier1d(len(poles), 4)
	for i, p := range poles {
		copy(bz.Pole(i), p[:])
	}
	return &BezierCurve3dH{bz: bz}
}

func newBezierCurve3dHScratch(order int) *BezierCurve3dH {
	return &BezierCurve3dH{bz: newBezier1d(order, 4)}
}

// Order returns the number of poles.
func (bc *BezierCurve3dH) Order() int { return bc.bz.Order() }

// PoleHomogeneous returns pole i as (wx, wy, wz, w).
func (bc *BezierCurve3dH) PoleHomogeneous(i int) [4]float64 {
	var out [4]float64
	copy(out[:], bc.bz.Pole(i))
	return out
}

// Interval returns the parent-curve fraction interval, if the segment was
// produced by span saturation.
func (bc *BezierCurve3dH) Interval() ([2]float64, bool) { return bc.bz.Interval() }

// FractionToParentFraction maps a local fraction into the parent curve's
// fraction space.
func (bc *BezierCurve3dH) FractionToParentFraction(t float64) float64 {
	return bc.bz.FractionToParentFraction(t)
}

// safeWeightRecip treats a near-zero weight as 1 so degenerate poles produce a
// finite point rather than a fault.
func safeWeightRecip(w float64) float64 {
	if math.Abs(w) < 1e-12 {
		return 1
	}
	return 1 / w
}

// FractionToPoint evaluates the de-weighted point at local fraction t.
func (bc *BezierCurve3dH) FractionToPoint(t float64) Point3 {
	var out [4]float64
	bc.bz.Evaluate(t, out[:])
	recip := safeWeightRecip(out[3])
	return Pt(out[0]*recip, out[1]*recip, out[2]*recip)
}

// FractionToPointAndDerivative evaluates the de-weighted point and derivative
// at local fraction t, applying the quotient rule to the homogeneous
// components.
func (bc *BezierCurve3dH) FractionToPointAndDerivative(t float64) (Point3, Vec3) {
	var x, dx [4]float64
	bc.bz.Evaluate(t, x[:])
	d := bc.derivativePolygon()
	d.Evaluate(t, dx[:])
	recip := safeWeightRecip(x[3])
	// (X/w)' = (X' w - X w') / w²
	return Pt(x[0]*recip, x[1]*recip, x[2]*recip), Vec(
		(dx[0]*x[3]-x[0]*dx[3])*recip*recip,
		(dx[1]*x[3]-x[1]*dx[3])*recip*recip,
		(dx[2]*x[3]-x[2]*dx[3])*recip*recip,
	)
}

// FractionToPointAnd2Derivatives additionally approximates the second
// derivative by central differencing of the first derivative. The rational
// quotient rule for the second derivative is substantially more expensive and
// no more accurate at this epsilon.
func (bc *BezierCurve3dH) FractionToPointAnd2Derivatives(t float64) (Point3, Vec3, Vec3) {
	const epsilon = 1e-8
	pt, d1 := bc.FractionToPointAndDerivative(t)
	t0, t1 := t-epsilon, t+epsilon
	_, dA := bc.FractionToPointAndDerivative(t0)
	_, dB := bc.FractionToPointAndDerivative(t1)
	d2 := dB.Sub(dA).Mul(1 / (t1 - t0))
	return pt, d1, d2
}

func (bc *BezierCurve3dH) derivativePolygon() *Bezier1d {
	order := bc.Order()
	degree := float64(order - 1)
	d := newBezier1d(order-1, 4)
	for i := 0; i < order-1; i++ {
		a := bc.bz.Pole(i)
		b := bc.bz.Pole(i + 1)
		out := d.Pole(i)
		for c := range out {
			out[c] = degree * (b[c] - a[c])
		}
	}
	return d
}

// SubdivideInPlaceKeepLeft restricts the segment to [0, fraction].
func (bc *BezierCurve3dH) SubdivideInPlaceKeepLeft(fraction float64) {
	bc.bz.SubdivideInPlaceKeepLeft(fraction)
}

// SubdivideInPlaceKeepRight restricts the segment to [fraction, 1].
func (bc *BezierCurve3dH) SubdivideInPlaceKeepRight(fraction float64) {
	bc.bz.SubdivideInPlaceKeepRight(fraction)
}

// hasUnitWeights reports whether all weights are 1 within tolerance.
func (bc *BezierCurve3dH) hasUnitWeights() bool {
	for i := range bc.Order() {
		if math.Abs(bc.bz.Pole(i)[3]-1) > KnotTolerance {
			return false
		}
	}
	return true
}

// UpdateClosestPoint improves detail with any true perpendicular from space to
// the segment, together with the segment endpoints. Fractions recorded in the
// detail are parent-curve fractions.
//
// With unit weights the perpendicular condition reduces to the polynomial of
// the unweighted case (degree 2·order-2). In the general weighted case the
// condition (X - space·w)·(w·X' - w'·X) = 0 combines two degree-order
// component polynomials per axis before the products are accumulated.
func (bc *BezierCurve3dH) UpdateClosestPoint(space Point3, detail *CurveLocationDetail) bool {
	order := bc.Order()
	spaceCoord := [3]float64{space.X, space.Y, space.Z}
	var product []float64
	if bc.hasUnitWeights() {
		product = make([]float64, max(2*order-2, 2))
		for axis := range 3 {
			a := bc.bz.ComponentCoffs(axis)
			bernsteinShift(a, spaceCoord[axis])
			d := bernsteinDerivativeCoffs(a)
			bernsteinAccumulateProduct(product, a, d, 1)
		}
	} else {
		w := bc.bz.ComponentCoffs(3)
		dw := bernsteinDerivativeCoffs(w)
		product = make([]float64, 3*order-3)
		for axis := range 3 {
			x := bc.bz.ComponentCoffs(axis)
			dx := bernsteinDerivativeCoffs(x)
			// numerator of point difference: X - space·w, degree order-1
			diff := make([]float64, order)
			for i := range diff {
				diff[i] = x[i] - spaceCoord[axis]*w[i]
			}
			// numerator of derivative: w·X' - w'·X, degree 2·order-3
			velocity := make([]float64, 2*order-2)
			bernsteinAccumulateProduct(velocity, w, dx, 1)
			bernsteinAccumulateProduct(velocity, dw, x, -1)
			bernsteinAccumulateProduct(product, diff, velocity, 1)
		}
	}
	improved := false
	for _, t := range bernsteinRoots01(product) {
		if detail.updateIfCloser(bc.FractionToParentFraction(t), bc.FractionToPoint(t), space) {
			improved = true
		}
	}
	for _, t := range [2]float64{0, 1} {
		if detail.updateIfCloser(bc.FractionToParentFraction(t), bc.FractionToPoint(t), space) {
			improved = true
		}
	}
	return improved
}

// ExtendRange grows the range by the segment's extent. With unit weights the
// components are polynomial and the exact extrema are solved, as in the
// unweighted case. Otherwise the range is extended by the de-weighted pole
// hull; for positive weights the rational curve lies inside this hull, and
// exact extrema of rational components are not solved here.
func (bc *BezierCurve3dH) ExtendRange(r Range3d) Range3d {
	if bc.hasUnitWeights() {
		r = r.ExtendPoint(bc.FractionToPoint(0))
		r = r.ExtendPoint(bc.FractionToPoint(1))
		for axis := range 3 {
			coffs := bc.bz.ComponentCoffs(axis)
			for _, t := range bernsteinRoots01(bernsteinDerivativeCoffs(coffs)) {
				r = r.ExtendPoint(bc.FractionToPoint(t))
			}
		}
		return r
	}
	for i := range bc.Order() {
		block := bc.bz.Pole(i)
		recip := safeWeightRecip(block[3])
		r = r.ExtendPoint(Pt(block[0]*recip, block[1]*recip, block[2]*recip))
	}
	return r
}

// StrokeCount estimates the number of strokes needed to draw the segment
// within the given options.
func (bc *BezierCurve3dH) StrokeCount(opts *StrokeOptions) int {
	return strokeCountForPolygon(bc.bz, func(i int) Point3 {
		block := bc.bz.Pole(i)
		recip := safeWeightRecip(block[3])
		return Pt(block[0]*recip, block[1]*recip, block[2]*recip)
	}, opts)
}

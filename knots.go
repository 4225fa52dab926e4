package nurbs

import (
	"math"
	"slices"
)

// KnotTolerance is the absolute tolerance for comparing knot values. Two knots
// closer than this are treated as identical, and a span whose knot interval is
// below it is not a "real" span: it is skipped by Bézier decomposition and
// stroke counting.
const KnotTolerance = 1e-9

// WrapMode describes how a B-spline's poles and knots encode a closed
// (periodic) curve.
type WrapMode uint8

const (
	// WrapNone marks an ordinary open curve.
	WrapNone WrapMode = iota
	// WrapOpenByAddingControlPoints marks a curve whose final degree poles
	// replicate its first degree poles, with periodically extended knots. This
	// is the representation produced for closed fit curves.
	WrapOpenByAddingControlPoints
	// WrapOpenByRemovingKnots marks a curve that was closed in a source
	// representation and is stored clamped, with full end knot multiplicity.
	WrapOpenByRemovingKnots
)

// KnotVector owns a non-decreasing knot sequence together with the curve
// degree.
//
// The packaging convention matches the pole count by
//
//	len(Knots) == numPoles + degree - 1
//
// i.e. the two "over-clamped" end knots of the classic convention, which never
// participate in evaluation, are not stored. The active domain is
// [knots[degree-1], knots[len-degree]].
type KnotVector struct {
	Knots []float64
	Wrap  WrapMode

	degree int
}

// NewKnotVector wraps the given knots for the given degree. It returns nil if
// the knots cannot form a valid vector: fewer than 2*degree knots, degree < 1,
// or a decreasing pair.
//
// The knot slice is not copied; the vector takes ownership.
func NewKnotVector(knots []float64, degree int, wrap WrapMode) *KnotVector {
	if degree < 1 || len(knots) < 2*degree {
		return nil
	}
	for i := 1; i < len(knots); i++ {
		if knots[i] < knots[i-1]-KnotTolerance {
			return nil
		}
	}
	return &KnotVector{Knots: knots, Wrap: wrap, degree: degree}
}

// NewUniformClampedKnots returns the clamped uniform knot vector on [0, 1] for
// the given pole count and degree, or nil if numPoles < degree+1.
func NewUniformClampedKnots(numPoles, degree int) *KnotVector {
	if degree < 1 || numPoles < degree+1 {
		return nil
	}
	numInterior := numPoles - degree - 1
	knots := make([]float64, numPoles+degree-1)
	div := 1.0 / float64(numInterior+1)
	k := 0
	for range degree {
		knots[k] = 0
		k++
	}
	for i := 1; i <= numInterior; i++ {
		knots[k] = float64(i) * div
		k++
	}
	for range degree {
		knots[k] = 1
		k++
	}
	return &KnotVector{Knots: knots, degree: degree}
}

// NewUniformPeriodicKnots returns the uniform periodic knot vector for the
// given pole count (including the replicated wrap poles) and degree. The
// active domain is [0, 1]; knots extend uniformly beyond it on both sides.
func NewUniformPeriodicKnots(numPoles, degree int) *KnotVector {
	if degree < 1 || numPoles < degree+1 {
		return nil
	}
	numSpans := numPoles - degree
	if numSpans < 1 {
		return nil
	}
	knots := make([]float64, numPoles+degree-1)
	div := 1.0 / float64(numSpans)
	for i := range knots {
		knots[i] = float64(i-degree+1) * div
	}
	return &KnotVector{Knots: knots, Wrap: WrapOpenByAddingControlPoints, degree: degree}
}

// Clone returns a deep copy.
func (kv *KnotVector) Clone() *KnotVector {
	return &KnotVector{
		Knots:  slices.Clone(kv.Knots),
		Wrap:   kv.Wrap,
		degree: kv.degree,
	}
}

// Degree returns the curve degree.
func (kv *KnotVector) Degree() int { return kv.degree }

// Order returns degree+1, the number of poles affecting a single span.
func (kv *KnotVector) Order() int { return kv.degree + 1 }

// NumPoles returns the pole count implied by the knot count.
func (kv *KnotVector) NumPoles() int { return len(kv.Knots) - kv.degree + 1 }

// NumSpans returns the number of knot spans in the active domain, counting
// degenerate (zero length) spans.
func (kv *KnotVector) NumSpans() int { return kv.NumPoles() - kv.degree }

// LeftKnotIndex returns the index of the knot at the left end of the active
// domain.
func (kv *KnotVector) LeftKnotIndex() int { return kv.degree - 1 }

// RightKnotIndex returns the index of the knot at the right end of the active
// domain.
func (kv *KnotVector) RightKnotIndex() int { return len(kv.Knots) - kv.degree }

// LeftKnot returns the knot value at the left end of the active domain.
func (kv *KnotVector) LeftKnot() float64 { return kv.Knots[kv.LeftKnotIndex()] }

// RightKnot returns the knot value at the right end of the active domain.
func (kv *KnotVector) RightKnot() float64 { return kv.Knots[kv.RightKnotIndex()] }

// FractionToKnot maps a global fraction in [0, 1] to a knot value by linear
// interpolation over the active domain.
func (kv *KnotVector) FractionToKnot(fraction float64) float64 {
	a, b := kv.LeftKnot(), kv.RightKnot()
	return a + fraction*(b-a)
}

// KnotToFraction is the inverse of [KnotVector.FractionToKnot]. For a
// degenerate (zero length) domain it returns 0.
func (kv *KnotVector) KnotToFraction(knot float64) float64 {
	a, b := kv.LeftKnot(), kv.RightKnot()
	if b-a <= KnotTolerance {
		return 0
	}
	return (knot - a) / (b - a)
}

// SpanFractionToKnot maps a local fraction within span spanIndex to a knot
// value.
func (kv *KnotVector) SpanFractionToKnot(spanIndex int, localFraction float64) float64 {
	k := kv.degree - 1 + spanIndex
	return kv.Knots[k] + localFraction*(kv.Knots[k+1]-kv.Knots[k])
}

// SpanFractionToFraction maps a local fraction within span spanIndex to the
// global fraction of the active domain.
func (kv *KnotVector) SpanFractionToFraction(spanIndex int, localFraction float64) float64 {
	return kv.KnotToFraction(kv.SpanFractionToKnot(spanIndex, localFraction))
}

// SpanIndexToLeftKnotIndex returns the knot index at the left end of span
// spanIndex.
func (kv *KnotVector) SpanIndexToLeftKnotIndex(spanIndex int) int {
	return kv.degree - 1 + spanIndex
}

// SpanLength returns the knot interval length of span spanIndex.
func (kv *KnotVector) SpanLength(spanIndex int) float64 {
	k := kv.degree - 1 + spanIndex
	return kv.Knots[k+1] - kv.Knots[k]
}

// IsRealSpan reports whether span spanIndex has a knot interval longer than
// the knot tolerance.
func (kv *KnotVector) IsRealSpan(spanIndex int) bool {
	return kv.SpanLength(spanIndex) > KnotTolerance
}

// KnotToLeftKnotIndex locates the index k of the knot span containing u, i.e.
// knots[k] <= u < knots[k+1], clamped to the active domain. Zero-length spans
// are stepped over so the returned span is usable for basis evaluation.
func (kv *KnotVector) KnotToLeftKnotIndex(u float64) int {
	left := kv.LeftKnotIndex()
	// Walk down from the right end; evaluation sites cluster near the end of
	// the domain often enough (clamped right end, reversed traversal) that the
	// fallback matters.
	k := kv.RightKnotIndex() - 1
	for k > left && kv.Knots[k] > u {
		k--
	}
	for k > left && kv.Knots[k+1]-kv.Knots[k] <= KnotTolerance {
		k--
	}
	return k
}

// GetKnotMultiplicity returns the number of knots equal to u within the knot
// tolerance.
func (kv *KnotVector) GetKnotMultiplicity(u float64) int {
	n := 0
	for _, knot := range kv.Knots {
		if math.Abs(knot-u) <= KnotTolerance {
			n++
		}
	}
	return n
}

// IsNonDecreasing reports whether the knot sequence is sorted within the knot
// tolerance.
func (kv *KnotVector) IsNonDecreasing() bool {
	for i := 1; i < len(kv.Knots); i++ {
		if kv.Knots[i] < kv.Knots[i-1]-KnotTolerance {
			return false
		}
	}
	return true
}

// GrevilleKnot returns the Greville abscissa for pole poleIndex: the average
// of the degree knots supporting that pole.
func (kv *KnotVector) GrevilleKnot(poleIndex int) float64 {
	sum := 0.0
	for i := range kv.degree {
		sum += kv.Knots[poleIndex+i]
	}
	return sum / float64(kv.degree)
}

// EvaluateBasisFunctions evaluates the degree+1 basis functions that are
// nonzero on the span with left knot index knotIndex0, at parameter u. The
// values are written to f, which must have length at least degree+1. The basis
// values correspond to poles knotIndex0-degree+1 .. knotIndex0+1 and sum to 1.
//
// This is the standard triangular Cox–de Boor recurrence, O(degree²).
func (kv *KnotVector) EvaluateBasisFunctions(knotIndex0 int, u float64, f []float64) {
	degree := kv.degree
	f[0] = 1
	for j := 1; j <= degree; j++ {
		saved := 0.0
		for r := range j {
			dRight := kv.Knots[knotIndex0+r+1] - u
			dLeft := u - kv.Knots[knotIndex0+1-(j-r)]
			temp := f[r] / (dRight + dLeft)
			f[r] = saved + dRight*temp
			saved = dLeft * temp
		}
		f[j] = saved
	}
}

// EvaluateBasisFunctions1 evaluates basis functions along with their first and
// (if ddf is non-nil) second derivatives with respect to the knot parameter,
// at parameter u on the span with left knot index knotIndex0. All output
// slices must have length at least degree+1.
//
// The derivatives ride along the Cox–de Boor recurrence: each level combines
// the previous level as a convex combination with weights linear in u, so the
// product rule contributes the weight derivatives ±1/span directly.
func (kv *KnotVector) EvaluateBasisFunctions1(knotIndex0 int, u float64, f, df, ddf []float64) {
	degree := kv.degree
	f[0] = 1
	df[0] = 0
	if ddf != nil {
		ddf[0] = 0
	}
	for j := 1; j <= degree; j++ {
		saved, dSaved, ddSaved := 0.0, 0.0, 0.0
		for r := range j {
			dRight := kv.Knots[knotIndex0+r+1] - u
			dLeft := u - kv.Knots[knotIndex0+1-(j-r)]
			recip := 1.0 / (dRight + dLeft)
			temp := f[r] * recip
			dTemp := df[r] * recip
			f[r] = saved + dRight*temp
			df[r] = dSaved + dRight*dTemp - temp
			saved = dLeft * temp
			dSaved = dLeft*dTemp + temp
			if ddf != nil {
				ddTemp := ddf[r] * recip
				ddf[r] = ddSaved + dRight*ddTemp - 2.0*dTemp
				ddSaved = dLeft*ddTemp + 2.0*dTemp
			}
		}
		f[j] = saved
		df[j] = dSaved
		if ddf != nil {
			ddf[j] = ddSaved
		}
	}
}

// TestClosable checks whether the knot sequence is consistent with the given
// wrap mode: periodically repeating spans for
// [WrapOpenByAddingControlPoints], full end multiplicity for
// [WrapOpenByRemovingKnots].
func (kv *KnotVector) TestClosable(mode WrapMode) bool {
	switch mode {
	case WrapOpenByAddingControlPoints:
		period := kv.RightKnot() - kv.LeftKnot()
		indexDelta := kv.NumSpans()
		if indexDelta < 1 {
			return false
		}
		for i := 0; i+indexDelta < len(kv.Knots); i++ {
			if math.Abs(kv.Knots[i+indexDelta]-kv.Knots[i]-period) > KnotTolerance {
				return false
			}
		}
		return true
	case WrapOpenByRemovingKnots:
		return kv.GetKnotMultiplicity(kv.LeftKnot()) >= kv.degree &&
			kv.GetKnotMultiplicity(kv.RightKnot()) >= kv.degree
	default:
		return false
	}
}

// ReflectKnots reverses the knot sequence in place, mapping each knot u to
// leftKnot+rightKnot-u. The degree and active domain are preserved.
func (kv *KnotVector) ReflectKnots() {
	a := kv.LeftKnot() + kv.RightKnot()
	slices.Reverse(kv.Knots)
	for i := range kv.Knots {
		kv.Knots[i] = a - kv.Knots[i]
	}
}

// IsAlmostEqual reports whether two knot vectors have the same degree and
// knots within the knot tolerance.
func (kv *KnotVector) IsAlmostEqual(other *KnotVector) bool {
	if kv.degree != other.degree || len(kv.Knots) != len(other.Knots) {
		return false
	}
	for i, knot := range kv.Knots {
		if math.Abs(knot-other.Knots[i]) > KnotTolerance {
			return false
		}
	}
	return true
}

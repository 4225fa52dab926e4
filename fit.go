package nurbs

import (
	"math"
	"slices"

	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/mat"
)

// tracer traces the curve fitting machinery.
func tracer() tracing.Trace {
	return tracing.Select("nurbs")
}

// InterpolationOptions is the value-object input of the C2 cubic fitter. It is
// cloned freely and never mutated by the curve it produces.
type InterpolationOptions struct {
	// FitPoints are the points the curve must pass through, in order.
	FitPoints []Point3
	// Knots optionally assigns an interpolation parameter to each fit point.
	// When nil, a parameterization is derived (chord length or uniform, see
	// ChordLenKnots).
	Knots []float64
	// Closed requests a periodic curve through the points. If the point set
	// is not explicitly closed, a clone of the first point is appended.
	// Closure is dropped for fewer than 5 points.
	Closed bool
	// ChordLenKnots selects chord-length parameterization when Knots is nil;
	// otherwise the parameterization is uniform.
	ChordLenKnots bool
	// NaturalTangents requests zero second derivative end conditions instead
	// of tangent rows.
	NaturalTangents bool
	// ChordLenTangents scales supplied end tangent directions by the adjacent
	// chord length; otherwise they are scaled by the Bessel estimate's
	// magnitude.
	ChordLenTangents bool
	// ColinearTangents forces a common end tangent when the point set is
	// physically closed but fitted as an open curve.
	ColinearTangents bool
	// StartTangent and EndTangent optionally pin the end tangent directions.
	StartTangent *Vec3
	EndTangent   *Vec3
}

// Clone returns a deep copy of the options.
func (o *InterpolationOptions) Clone() *InterpolationOptions {
	out := *o
	out.FitPoints = slices.Clone(o.FitPoints)
	out.Knots = slices.Clone(o.Knots)
	if o.StartTangent != nil {
		t := *o.StartTangent
		out.StartTangent = &t
	}
	if o.EndTangent != nil {
		t := *o.EndTangent
		out.EndTangent = &t
	}
	return &out
}

const fitDuplicateTol = 1e-12

// CreateThroughPointsC2Cubic builds a C2 cubic (order 4) interpolant through
// the given fit points. It returns nil when the input is unusable (fewer than
// 2 distinct points, singular system).
func CreateThroughPointsC2Cubic(options *InterpolationOptions) *BSplineCurve3d {
	opts := options.Clone()
	dedupeFitPoints(opts)
	n := len(opts.FitPoints)
	if n < 2 {
		tracer().Debugf("c2 cubic fit: %d distinct fit points, no curve", n)
		return nil
	}

	closed := opts.Closed
	if closed {
		// Ensure an explicit closure point.
		appended := false
		if !opts.FitPoints[0].AlmostEqual(opts.FitPoints[n-1], fitDuplicateTol) {
			opts.FitPoints = append(opts.FitPoints, opts.FitPoints[0])
			opts.Knots = nil // a supplied parameterization no longer matches
			appended = true
			n++
		}
		if n < 5 {
			closed = false
			if appended {
				opts.FitPoints = opts.FitPoints[:n-1]
				n--
			}
		}
	}

	params := fitParameters(opts, n)
	if params == nil {
		return nil
	}
	if closed {
		return fitClosedC2(opts.FitPoints, params)
	}
	return fitOpenC2(opts, params)
}

// dedupeFitPoints removes consecutive duplicate fit points, keeping any
// supplied knots in sync.
func dedupeFitPoints(opts *InterpolationOptions) {
	if len(opts.Knots) != 0 && len(opts.Knots) != len(opts.FitPoints) {
		opts.Knots = nil
	}
	points := opts.FitPoints[:0]
	var knots []float64
	if opts.Knots != nil {
		knots = opts.Knots[:0]
	}
	for i, p := range opts.FitPoints {
		if i > 0 && p.AlmostEqual(points[len(points)-1], fitDuplicateTol) {
			continue
		}
		points = append(points, p)
		if knots != nil {
			knots = append(knots, opts.Knots[i])
		}
	}
	opts.FitPoints = points
	opts.Knots = knots
}

// fitParameters returns the interpolation parameter of each fit point,
// normalized to [0, 1] and strictly increasing, or nil if that cannot be
// arranged.
func fitParameters(opts *InterpolationOptions, n int) []float64 {
	params := make([]float64, n)
	switch {
	case len(opts.Knots) == n:
		copy(params, opts.Knots)
		lo, hi := params[0], params[n-1]
		if hi-lo <= KnotTolerance {
			return nil
		}
		for i := range params {
			params[i] = (params[i] - lo) / (hi - lo)
		}
		for i := 1; i < n; i++ {
			if params[i] <= params[i-1]+KnotTolerance {
				return nil
			}
		}
	case opts.ChordLenKnots:
		total := 0.0
		for i := 1; i < n; i++ {
			total += opts.FitPoints[i].Distance(opts.FitPoints[i-1])
			params[i] = total
		}
		if total <= 0 {
			return nil
		}
		for i := range params {
			params[i] /= total
		}
	default:
		for i := range params {
			params[i] = float64(i) / float64(n-1)
		}
	}
	return params
}

// besselTangent estimates the start derivative (with respect to the
// parameter) of the parabola through three points. Flip both point order and
// sign conventions for the end tangent.
func besselTangent(q0, q1, q2 Point3, u0, u1, u2 float64) Vec3 {
	d0 := u1 - u0
	d1 := u2 - u1
	c0 := -(2*d0 + d1) / (d0 * (d0 + d1))
	c1 := (d0 + d1) / (d0 * d1)
	c2 := -d0 / (d1 * (d0 + d1))
	return Vec3(q0).Mul(c0).Add(Vec3(q1).Mul(c1)).Add(Vec3(q2).Mul(c2))
}

// endTangents resolves the start and end derivative vectors (in parameter
// space) for an open fit, or ok=false for natural end conditions.
func endTangents(opts *InterpolationOptions, params []float64) (start, end Vec3, ok bool) {
	if opts.NaturalTangents {
		return Vec3{}, Vec3{}, false
	}
	points := opts.FitPoints
	n := len(points)
	var besselStart, besselEnd Vec3
	haveBessel := n >= 3
	if haveBessel {
		besselStart = besselTangent(points[0], points[1], points[2], params[0], params[1], params[2])
		besselEnd = besselTangent(points[n-1], points[n-2], points[n-3],
			1-params[n-1], 1-params[n-2], 1-params[n-3]).Negate()
	} else {
		chord := points[1].Sub(points[0]).Mul(1 / (params[1] - params[0]))
		besselStart, besselEnd = chord, chord
	}
	resolve := func(explicit *Vec3, bessel Vec3, chordLen float64, interval float64) Vec3 {
		if explicit == nil {
			return bessel
		}
		dir, usable := explicit.Normalize()
		if !usable {
			// Zero-magnitude supplied tangent: treat as unset.
			return bessel
		}
		if opts.ChordLenTangents {
			return dir.Mul(chordLen / interval)
		}
		return dir.Mul(bessel.Hypot())
	}
	start = resolve(opts.StartTangent, besselStart,
		points[1].Distance(points[0]), params[1]-params[0])
	end = resolve(opts.EndTangent, besselEnd,
		points[n-1].Distance(points[n-2]), params[n-1]-params[n-2])
	if opts.ColinearTangents && points[0].AlmostEqual(points[n-1], fitDuplicateTol) {
		// Physically closed input fitted as open: share one tangent so the
		// seam is G1.
		common := start.Add(end).Mul(0.5)
		start, end = common, common
	}
	return start, end, true
}

// fitOpenC2 solves the open-curve banded system.
//
// Unknowns are the interior poles P_1..P_{m+1} of a clamped cubic whose
// interior knots are the fit parameters; P_0 and P_{m+2} are the first and
// last fit points, spliced back after the solve. Rows are basis collocation
// at the interior parameters, bracketed by tangent (identity) or natural
// (second-derivative) end rows.
func fitOpenC2(opts *InterpolationOptions, params []float64) *BSplineCurve3d {
	points := opts.FitPoints
	m := len(points) - 1
	const degree = 3
	numPoles := m + 3

	knots := make([]float64, numPoles+degree-1)
	for i := range degree {
		knots[i] = params[0]
		knots[len(knots)-1-i] = params[m]
	}
	copy(knots[degree:], params[1:m])
	kv := NewKnotVector(knots, degree, WrapNone)
	if kv == nil {
		return nil
	}

	nUnknown := m + 1
	// Natural end rows reach two unknowns inward; tiny systems are dense.
	bandwidth := min(2, nUnknown-1)
	band := mat.NewBandDense(nUnknown, nUnknown, bandwidth, bandwidth, nil)
	rhs := mat.NewDense(nUnknown, 3, nil)
	basis := make([]float64, degree+1)
	dBasis := make([]float64, degree+1)
	ddBasis := make([]float64, degree+1)

	addRow := func(row int, poleIndex0 int, weights []float64, rhsPt Vec3) {
		for j, w := range weights {
			pole := poleIndex0 + j
			switch {
			case pole == 0:
				rhsPt = rhsPt.Sub(Vec3(points[0]).Mul(w))
			case pole == m+2:
				rhsPt = rhsPt.Sub(Vec3(points[m]).Mul(w))
			case w != 0:
				band.SetBand(row, pole-1, w)
			}
		}
		rhs.SetRow(row, []float64{rhsPt.X, rhsPt.Y, rhsPt.Z})
	}

	startTangent, endTangent, haveTangents := endTangents(opts, params)
	if haveTangents {
		// C'(u0) = degree/(u1-u0) · (P1 - P0)
		p1 := Vec3(points[0]).Add(startTangent.Mul((kv.Knots[degree] - params[0]) / degree))
		band.SetBand(0, 0, 1)
		rhs.SetRow(0, []float64{p1.X, p1.Y, p1.Z})
		pm1 := Vec3(points[m]).Sub(endTangent.Mul((params[m] - kv.Knots[len(knots)-degree-1]) / degree))
		band.SetBand(nUnknown-1, nUnknown-1, 1)
		rhs.SetRow(nUnknown-1, []float64{pm1.X, pm1.Y, pm1.Z})
	} else {
		// Natural: zero second derivative at both ends.
		k0 := kv.KnotToLeftKnotIndex(params[0])
		kv.EvaluateBasisFunctions1(k0, params[0], basis, dBasis, ddBasis)
		addRow(0, k0-degree+1, slices.Clone(ddBasis), Vec3{})
		k1 := kv.KnotToLeftKnotIndex(params[m])
		kv.EvaluateBasisFunctions1(k1, params[m], basis, dBasis, ddBasis)
		addRow(nUnknown-1, k1-degree+1, slices.Clone(ddBasis), Vec3{})
	}
	for i := 1; i < m; i++ {
		k := kv.KnotToLeftKnotIndex(params[i])
		kv.EvaluateBasisFunctions(k, params[i], basis)
		addRow(i, k-degree+1, basis, Vec3(points[i]))
	}

	var solved mat.Dense
	if err := solved.Solve(band, rhs); err != nil {
		tracer().Debugf("c2 cubic fit: singular open system: %v", err)
		return nil
	}

	packed := make([]float64, 3*numPoles)
	setPole := func(i int, x, y, z float64) {
		packed[3*i], packed[3*i+1], packed[3*i+2] = x, y, z
	}
	setPole(0, points[0].X, points[0].Y, points[0].Z)
	setPole(numPoles-1, points[m].X, points[m].Y, points[m].Z)
	for i := range nUnknown {
		setPole(i+1, solved.At(i, 0), solved.At(i, 1), solved.At(i, 2))
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packed, 3, kv)}
}

// fitClosedC2 solves the periodic fit as a cyclic tridiagonal system: the
// wraparound coupling is folded into a rank-one update (Sherman–Morrison), so
// only two banded solves are needed. The resulting poles are replicated at
// the tail to realize the periodic wrap representation.
func fitClosedC2(points []Point3, params []float64) *BSplineCurve3d {
	const degree = 3
	m := len(points) - 1 // distinct points; points[m] closes the loop
	period := params[m] - params[0]

	numPoles := m + degree
	knots := make([]float64, numPoles+degree-1)
	uExt := func(j int) float64 {
		switch {
		case j < 0:
			return params[j+m] - period
		case j > m:
			return params[j-m] + period
		default:
			return params[j]
		}
	}
	for i := range knots {
		knots[i] = uExt(i - degree + 1)
	}
	kv := NewKnotVector(knots, degree, WrapOpenByAddingControlPoints)
	if kv == nil {
		return nil
	}

	// Row i interpolates points[i] with the three nonzero basis values over
	// wrapped poles P_i, P_{i+1}, P_{i+2}. Relabel x_j = P_{(j+1) mod m} to
	// center the diagonal; corners then carry the wraparound coupling.
	diag := make([]float64, m)
	sub := make([]float64, m)
	sup := make([]float64, m)
	var cornerLow, cornerHigh float64 // A[m-1][0], A[0][m-1]
	basis := make([]float64, degree+1)
	for i := range m {
		k := kv.KnotToLeftKnotIndex(params[i])
		kv.EvaluateBasisFunctions(k, params[i], basis)
		poleIndex0 := k - degree + 1
		set := func(col int, w float64) {
			switch {
			case col == i-1 || (i == 0 && col == m-1):
				if i == 0 {
					cornerHigh = w
				} else {
					sub[i] = w
				}
			case col == i:
				diag[i] = w
			case col == i+1 || (i == m-1 && col == 0):
				if i == m-1 {
					cornerLow = w
				} else {
					sup[i] = w
				}
			}
		}
		for j := range degree { // the fourth value is identically zero here
			pole := (poleIndex0 + j) % m
			col := pole - 1
			if col < 0 {
				col += m
			}
			set(col, basis[j])
		}
	}

	// Sherman–Morrison fold (Numerical Recipes style): subtract u·vᵀ with
	// u = (γ, 0,…,0, cornerLow), v = (1, 0,…,0, cornerHigh/γ).
	gamma := -diag[0]
	band := mat.NewBandDense(m, m, 1, 1, nil)
	band.SetBand(0, 0, diag[0]-gamma)
	for i := 1; i < m; i++ {
		band.SetBand(i, i-1, sub[i])
		band.SetBand(i, i, diag[i])
	}
	band.SetBand(m-1, m-1, diag[m-1]-cornerLow*cornerHigh/gamma)
	for i := 0; i < m-1; i++ {
		band.SetBand(i, i+1, sup[i])
	}

	rhs := mat.NewDense(m, 3, nil)
	for i := range m {
		rhs.SetRow(i, []float64{points[i].X, points[i].Y, points[i].Z})
	}
	uVec := mat.NewDense(m, 1, nil)
	uVec.Set(0, 0, gamma)
	uVec.Set(m-1, 0, cornerLow)

	var y, z mat.Dense
	if err := y.Solve(band, rhs); err != nil {
		tracer().Debugf("c2 cubic fit: singular cyclic system: %v", err)
		return nil
	}
	if err := z.Solve(band, uVec); err != nil {
		tracer().Debugf("c2 cubic fit: singular cyclic system: %v", err)
		return nil
	}
	vDotZ := z.At(0, 0) + cornerHigh/gamma*z.At(m-1, 0)
	denom := 1 + vDotZ
	if math.Abs(denom) < 1e-300 {
		tracer().Debugf("c2 cubic fit: cyclic fold is singular")
		return nil
	}

	poles := make([]Point3, m)
	for col := range 3 {
		vDotY := y.At(0, col) + cornerHigh/gamma*y.At(m-1, col)
		factor := vDotY / denom
		for j := range m {
			x := y.At(j, col) - factor*z.At(j, 0)
			p := (j + 1) % m
			switch col {
			case 0:
				poles[p].X = x
			case 1:
				poles[p].Y = x
			case 2:
				poles[p].Z = x
			}
		}
	}

	packed := make([]float64, 3*numPoles)
	for i := range numPoles {
		p := poles[i%m]
		packed[3*i], packed[3*i+1], packed[3*i+2] = p.X, p.Y, p.Z
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packed, 3, kv)}
}

// CreateThroughPoints builds a curve of the given order through the points by
// collocation at the Greville parameters of a uniform clamped knot vector.
// The system is banded with bandwidth degree on both sides. It returns nil
// for unusable input or a singular system.
func CreateThroughPoints(points []Point3, order int) *BSplineCurve3d {
	n := len(points)
	if n < 2 {
		return nil
	}
	if order > n {
		order = n
	}
	if order < 2 {
		order = 2
	}
	degree := order - 1
	kv := NewUniformClampedKnots(n, degree)
	if kv == nil {
		return nil
	}

	band := mat.NewBandDense(n, n, degree, degree, nil)
	rhs := mat.NewDense(n, 3, nil)
	basis := make([]float64, order)
	for i := range n {
		g := kv.GrevilleKnot(i)
		k := kv.KnotToLeftKnotIndex(g)
		kv.EvaluateBasisFunctions(k, g, basis)
		poleIndex0 := k - degree + 1
		for j, w := range basis {
			if w != 0 {
				band.SetBand(i, poleIndex0+j, w)
			}
		}
		rhs.SetRow(i, []float64{points[i].X, points[i].Y, points[i].Z})
	}

	var solved mat.Dense
	if err := solved.Solve(band, rhs); err != nil {
		tracer().Debugf("through-points fit: singular system: %v", err)
		return nil
	}
	packed := make([]float64, 3*n)
	for i := range n {
		packed[3*i] = solved.At(i, 0)
		packed[3*i+1] = solved.At(i, 1)
		packed[3*i+2] = solved.At(i, 2)
	}
	return &BSplineCurve3d{poles: NewPoleBuffer(packed, 3, kv)}
}

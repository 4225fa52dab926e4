package nurbs

import "math"

// Closed-form and bracketing root solvers. The Bernstein machinery in
// bezpoly.go routes low-degree polynomials here after a power-basis
// conversion, and hands single bracketed crossings of higher degrees to
// [SolveITP]; the closest-point and range queries consume the results.

// SolveQuadratic returns the real x with c0 + c1·x + c2·x² = 0, sorted, along
// with their count.
//
// A vanishing or tiny quadratic term degrades gracefully to the linear root;
// the companion root may then be outside representable range and is omitted.
// When every coefficient is zero, so that any x satisfies the equation, a
// single 0 is reported.
func SolveQuadratic(c0, c1, c2 float64) ([2]float64, int) {
	sc0 := c0 / c2
	sc1 := c1 / c2
	if math.IsInf(sc0, 0) || math.IsInf(sc1, 0) {
		// Effectively linear.
		root := -c0 / c1
		if !math.IsInf(root, 0) {
			return [2]float64{root}, 1
		} else if c0 == 0.0 && c1 == 0.0 {
			return [2]float64{0}, 1
		} else {
			return [2]float64{}, 0
		}
	}
	arg := sc1*sc1 - 4.0*sc0
	var root1 float64
	if math.IsInf(arg, 0) {
		// sc1² overflowed. Take the surviving root of sc1·x + x² = 0; the
		// companion follows from the product of roots below.
		root1 = -sc1
	} else {
		if arg < 0.0 {
			return [2]float64{}, 0
		} else if arg == 0.0 {
			return [2]float64{-0.5 * sc1}, 1
		}
		// Citardauq form, avoiding cancellation between -sc1 and the radical.
		// See https://math.stackexchange.com/questions/866331
		root1 = -0.5 * (sc1 + math.Copysign(math.Sqrt(arg), sc1))
	}
	root2 := sc0 / root1
	if !math.IsInf(root2, 0) {
		if root2 > root1 {
			return [2]float64{root1, root2}, 2
		} else {
			return [2]float64{root2, root1}, 2
		}
	} else {
		return [2]float64{root1}, 1
	}
}

// SolveCubic returns the real x with c0 + c1·x + c2·x² + c3·x³ = 0, along
// with their count. A zero cubic coefficient falls through to
// [SolveQuadratic].
//
// The discriminant analysis follows Blinn's "How to Solve a Cubic Equation"
// as presented at https://momentsingraphics.de/CubicRoots.html; variable
// comments keep that article's names for cross-reference.
func SolveCubic(c0, c1, c2, c3 float64) ([3]float64, int) {
	c3Recip := 1.0 / c3
	scaledC2 := c2 * (1.0 / 3.0 * c3Recip)
	scaledC1 := c1 * (1.0 / 3.0 * c3Recip)
	scaledC0 := c0 * c3Recip
	if math.IsInf(scaledC0, 0) || math.IsInf(scaledC1, 0) || math.IsInf(scaledC2, 0) {
		roots, n := SolveQuadratic(c0, c1, c2)
		return [3]float64{roots[0], roots[1]}, n
	}
	c0, c1, c2 = scaledC0, scaledC1, scaledC2
	// (d0, d1, d2) is the article's "Delta".
	d0 := math.FMA(-c2, c2, c1)
	d1 := math.FMA(-c1, c2, c0)
	d2 := c2*c0 - c1*c1
	// "Discriminant"
	d := 4.0*d0*d2 - d1*d1
	// "Depressed.x"; Depressed.y = d0
	de := math.FMA(-2.0*c2, d0, d1)
	if d < 0.0 {
		sq := math.Sqrt(-0.25 * d)
		r := -0.5 * de
		t1 := math.Cbrt(r+sq) + math.Cbrt(r-sq)
		return [3]float64{t1 - c2}, 1
	} else if d == 0.0 {
		t1 := math.Copysign(math.Sqrt(-d0), de)
		return [3]float64{t1 - c2, -2.0*t1 - c2}, 2
	} else {
		th := math.Atan2(math.Sqrt(d), -de) * (1.0 / 3.0)
		// (thCos, thSin) is "CubicRoot"
		thSin, thCos := math.Sincos(th)
		// (r0, r1, r2) is "Root"
		r0 := thCos
		ss3 := thSin * math.Sqrt(3.0)
		r1 := 0.5 * (-thCos + ss3)
		r2 := 0.5 * (-thCos - ss3)
		t := 2.0 * math.Sqrt(-d0)

		return [3]float64{
			math.FMA(t, r0, -c2),
			math.FMA(t, r1, -c2),
			math.FMA(t, r2, -c2),
		}, 3
	}
}

// depressedCubicDominant returns the dominant root of x³ + g·x + h = 0, per
// section 2.2 of Orellana and De Michele (see [SolveQuartic]). The quartic
// factorization needs only this root, refined by Newton iteration.
func depressedCubicDominant(g float64, h float64) float64 {
	q := (-1.0 / 3.0) * g
	r := 0.5 * h
	var phi0 float64
	// k rescales the discriminant test when q or r would overflow squaring.
	var k float64
	haveK := false
	if math.Abs(q) < 1e102 && math.Abs(r) < 1e154 {
		// Small enough to work with r² and q³ directly.
	} else if math.Abs(q) < math.Abs(r) {
		k = 1.0 - q*((q/r)*(q/r))
		haveK = true
	} else {
		k = ((r/q)*(r/q))/q - 1.0
		if math.Signbit(q) {
			k = -k
		}
		haveK = true
	}
	if haveK && r == 0.0 {
		if g > 0.0 {
			phi0 = 0.0
		} else {
			phi0 = math.Sqrt(-g)
		}
	} else if haveK && k < 0.0 || !haveK && r*r < q*q*q {
		// Three real roots; take the trigonometric dominant one.
		var t float64
		if haveK {
			t = r / q / math.Sqrt(q)
		} else {
			t = r / math.Sqrt(q*q*q)
		}
		phi0 = -2.0 * math.Sqrt(q) * math.Copysign(math.Cos(math.Acos(math.Abs(t))*(1.0/3.0)), t)
	} else {
		// One real root, via the Cardano-style radical pair.
		var a float64
		if haveK {
			if math.Abs(q) < math.Abs(r) {
				a = -r * (1.0 + math.Sqrt(k))
			} else {
				a = -r - math.Copysign(math.Sqrt(math.Abs(q))*q*math.Sqrt(k), r)
			}
		} else {
			a = -r - math.Copysign(math.Sqrt(r*r-q*q*q), r)
		}
		a = math.Cbrt(a)
		var b float64
		if a == 0.0 {
			b = 0.0
		} else {
			b = q / a
		}
		phi0 = a + b
	}
	// Newton refinement.
	x := phi0
	f := (x*x+g)*x + h
	const epsM = 2.22045e-16
	if math.Abs(f) < epsM*max(x*x*x, g*x, h) {
		return x
	}
	for range 8 {
		deltaF := 3.0*x*x + g
		if deltaF == 0.0 {
			break
		}
		newX := x - f/deltaF
		newF := (newX*newX+g)*newX + h
		if newF == 0.0 {
			return newX
		}
		if math.Abs(newF) >= math.Abs(f) {
			break
		}
		x = newX
		f = newF
	}
	return x
}

// SolveQuartic returns the real x with
// c0 + c1·x + c2·x² + c3·x³ + c4·x⁴ = 0, along with their count.
//
// This implements Algorithm 1010 (Orellana and De Michele, "Boosting
// Efficiency in Solving Quartic Equations with No Compromise in Accuracy",
// ACM TOMS Vol. 46 No. 2, 2020): factor into two quadratics via the dominant
// root of a depressed cubic resolvent, with backward-error-driven candidate
// selection and Newton polishing of the factor coefficients.
func SolveQuartic(c0, c1, c2, c3, c4 float64) ([4]float64, int) {
	if c4 == 0.0 {
		ret, n := SolveCubic(c0, c1, c2, c3)
		return [4]float64{ret[0], ret[1], ret[2], 0}, n
	}
	if c0 == 0.0 {
		// x = 0 is appended unsorted after the deflated cubic's roots.
		res, n := SolveCubic(c1, c2, c3, c4)
		return [4]float64{res[0], res[1], res[2], 0}, n
	}
	a := c3 / c4
	b := c2 / c4
	c := c1 / c4
	d := c0 / c4
	if result, n, ok := solveQuarticInner(a, b, c, d, false); ok {
		return result, n
	}
	// Retry with the paper's rescaling constant against overflow.
	const kq = 7.16e76
	for _, rescale := range []bool{false, true} {
		if result, n, ok := solveQuarticInner(
			a/kq,
			b/(kq*kq),
			c/(kq*kq*kq),
			d/(kq*kq*kq*kq),
			rescale,
		); ok {
			for i := range result[:n] {
				result[i] = result[i] * kq
			}
			return result, n
		}
	}
	// Still overflowing; report no roots.
	return [4]float64{}, 0
}

func solveQuarticInner(a float64, b float64, c float64, d float64, rescale bool) ([4]float64, int, bool) {
	vs, ok := factorQuarticInner(a, b, c, d, rescale)
	if !ok {
		return [4]float64{}, 0, false
	}
	var out [4]float64
	var outN int
	for _, v := range vs {
		roots, n := SolveQuadratic(v[1], v[0], 1.0)
		for _, root := range roots[:n] {
			out[outN] = root
			outN++
		}
	}
	return out, outN, true
}

// factorQuarticInner factors a monic quartic into two monic quadratics
// x² + α·x + β. It reports false on overflow (rescaling may then succeed)
// or when the factors would need complex coefficients, meaning no real
// roots exist.
func factorQuarticInner(
	a float64,
	b float64,
	c float64,
	d float64,
	rescale bool,
) ([2][2]float64, bool) {
	// Backward error of a candidate factorization, measured against the
	// input coefficients.
	calcEpsQ := func(a1, b1, a2, b2 float64) float64 {
		epsA := relativeEpsilon(a1+a2, a)
		epsB := relativeEpsilon(b1+a1*a2+b2, b)
		epsC := relativeEpsilon(b1*a2+a1*b2, c)
		return epsA + epsB + epsC
	}
	calcEpsT := func(a1, b1, a2, b2 float64) float64 {
		return calcEpsQ(a1, b1, a2, b2) + relativeEpsilon(b1*b2, d)
	}
	// Shift x by s to suppress the cubic term.
	disc := 9.0*a*a - 24.0*b
	var s float64
	if disc >= 0.0 {
		s = -2.0 * b / (3.0*a + math.Copysign(math.Sqrt(disc), a))
	} else {
		s = -0.25 * a
	}
	aPrime := a + 4.0*s
	bPrime := b + 3.0*s*(a+2.0*s)
	cPrime := c + s*(2.0*b+s*(3.0*a+4.0*s))
	dPrime := d + s*(c+s*(b+s*(a+s)))
	gPrime := 0.0
	hPrime := 0.0
	const kc = 3.49e102
	if rescale {
		aPrimeS := aPrime / kc
		bPrimeS := bPrime / kc
		cPrimeS := cPrime / kc
		dPrimeS := dPrime / kc
		gPrime = aPrimeS*cPrimeS - (4.0/kc)*dPrimeS - (1.0/3.0)*bPrimeS*bPrimeS
		hPrime = (aPrimeS*cPrimeS+(8.0/kc)*dPrimeS-(2.0/9.0)*bPrimeS*bPrimeS)*
			(1.0/3.0)*
			bPrimeS -
			cPrimeS*(cPrimeS/kc) -
			aPrimeS*aPrimeS*dPrimeS
	} else {
		gPrime = aPrime*cPrime - 4.0*dPrime - (1.0/3.0)*bPrime*bPrime
		hPrime = (aPrime*cPrime+8.0*dPrime-(2.0/9.0)*bPrime*bPrime)*(1.0/3.0)*bPrime -
			cPrime*cPrime -
			aPrime*aPrime*dPrime
	}
	if math.IsInf(gPrime, 0) || math.IsInf(hPrime, 0) {
		return [2][2]float64{}, false
	}
	phi := depressedCubicDominant(gPrime, hPrime)
	if rescale {
		phi *= kc
	}
	// The factor coefficients come from l1, l2, l3, d2 of the paper's LDL
	// decomposition. d2 and l2 each have two derivations; keep the pairing
	// with the least backward error.
	l1 := a * 0.5
	l3 := (1.0/6.0)*b + 0.5*phi
	delt2 := c - a*l3
	d2Cand1 := (2.0/3.0)*b - phi - l1*l1
	l2Cand1 := 0.5 * delt2 / d2Cand1
	l2Cand2 := 2.0 * (d - l3*l3) / delt2
	d2Cand2 := 0.5 * delt2 / l2Cand2
	d2Cand3 := d2Cand1
	l2Cand3 := l2Cand2
	d2Best := 0.0
	l2Best := 0.0
	epsLBest := 0.0
	for i, cand := range [][2]float64{{d2Cand1, l2Cand1}, {d2Cand2, l2Cand2}, {d2Cand3, l2Cand3}} {
		d2, l2 := cand[0], cand[1]
		eps0 := relativeEpsilon(d2+l1*l1+2.0*l3, b)
		eps1 := relativeEpsilon(2.0*(d2*l2+l1*l3), c)
		eps2 := relativeEpsilon(d2*l2*l2+l3*l3, d)
		epsL := eps0 + eps1 + eps2
		if i == 0 || epsL < epsLBest {
			d2Best = d2
			l2Best = l2
			epsLBest = epsL
		}
	}
	d2 := d2Best
	l2 := l2Best
	alpha1 := 0.0
	beta1 := 0.0
	alpha2 := 0.0
	beta2 := 0.0
	if d2 < 0.0 {
		sq := math.Sqrt(-d2)
		alpha1 = l1 + sq
		beta1 = l3 + sq*l2
		alpha2 = l1 - sq
		beta2 = l3 - sq*l2
		// The smaller β is recomputed from the product β1·β2 = d to dodge
		// cancellation.
		if math.Abs(beta2) < math.Abs(beta1) {
			beta2 = d / beta1
		} else if math.Abs(beta2) > math.Abs(beta1) {
			beta1 = d / beta2
		}
		var cands [][2]float64
		if math.Abs(alpha1) != math.Abs(alpha2) {
			if math.Abs(alpha1) < math.Abs(alpha2) {
				a1Cand1 := (c - beta1*alpha2) / beta2
				a1Cand2 := (b - beta2 - beta1) / alpha2
				a1Cand3 := a - alpha2
				// Candidate 3 leads because it cannot overflow.
				cands = [][2]float64{{a1Cand3, alpha2}, {a1Cand1, alpha2}, {a1Cand2, alpha2}}
			} else {
				a2Cand1 := (c - alpha1*beta2) / beta1
				a2Cand2 := (b - beta2 - beta1) / alpha1
				a2Cand3 := a - alpha1
				cands = [][2]float64{{alpha1, a2Cand3}, {alpha1, a2Cand1}, {alpha1, a2Cand2}}
			}
			epsQBest := 0.0
			for i, cand := range cands {
				a1, a2 := cand[0], cand[1]
				if !math.IsInf(a1, 0) && !math.IsInf(a2, 0) {
					epsQ := calcEpsQ(a1, beta1, a2, beta2)
					if i == 0 || epsQ < epsQBest {
						alpha1 = a1
						alpha2 = a2
						epsQBest = epsQ
					}
				}
			}
		}
	} else if d2 == 0.0 {
		d3 := d - l3*l3
		alpha1 = l1
		beta1 = l3 + math.Sqrt(-d3)
		alpha2 = l1
		beta2 = l3 - math.Sqrt(-d3)
		if math.Abs(beta1) > math.Abs(beta2) {
			beta2 = d / beta1
		} else if math.Abs(beta2) > math.Abs(beta1) {
			beta1 = d / beta2
		}
	} else {
		// d2 > 0 means the real factorization does not exist, so the quartic
		// has no real roots.
		return [2][2]float64{}, false
	}
	// Newton polish of the four factor coefficients against the backward
	// error, stopping as soon as an iteration fails to improve.
	epsT := calcEpsT(alpha1, beta1, alpha2, beta2)
	for range 8 {
		if epsT == 0.0 {
			break
		}
		f0 := beta1*beta2 - d
		f1 := beta1*alpha2 + alpha1*beta2 - c
		f2 := beta1 + alpha1*alpha2 + beta2 - b
		f3 := alpha1 + alpha2 - a
		c1 := alpha1 - alpha2
		detJ := beta1*beta1 - beta1*(alpha2*c1+2.0*beta2) +
			beta2*(alpha1*c1+beta2)
		if detJ == 0.0 {
			break
		}
		inv := 1.0 / detJ
		c2 := beta2 - beta1
		c3 := beta1*alpha2 - alpha1*beta2
		dz0 := c1*f0 + c2*f1 + c3*f2 - (beta1*c2+alpha1*c3)*f3
		dz1 := (alpha1*c1+c2)*f0 -
			beta1*c1*f1 -
			beta1*c2*f2 -
			beta1*c3*f3
		dz2 := -c1*f0 - c2*f1 - c3*f2 + (alpha2*c3+beta2*c2)*f3
		dz3 := -(alpha2*c1+c2)*f0 +
			beta2*c1*f1 +
			beta2*c2*f2 +
			beta2*c3*f3
		a1 := alpha1 - inv*dz0
		b1 := beta1 - inv*dz1
		a2 := alpha2 - inv*dz2
		b2 := beta2 - inv*dz3
		newEpsT := calcEpsT(a1, b1, a2, b2)
		if newEpsT < epsT {
			alpha1 = a1
			beta1 = b1
			alpha2 = a2
			beta2 = b2
			epsT = newEpsT
		} else {
			break
		}
	}
	return [2][2]float64{{alpha1, beta1}, {alpha2, beta2}}, true
}

// relativeEpsilon measures raw against the coefficient it should reproduce.
func relativeEpsilon(raw float64, a float64) float64 {
	if a == 0.0 {
		return math.Abs(raw)
	} else {
		return math.Abs((raw - a) / a)
	}
}

// SolveITP finds a zero crossing of f on the bracket [a, b] using the
// [ITP method] of [Oliveira and Takahashi]. The Bernstein root isolation in
// bezpoly.go calls it once per bracketed crossing.
//
// ya and yb are f(a) and f(b), passed in because the callers already have
// them. ya must be negative and yb positive; flip the function's sign first
// if the crossing runs the other way.
//
// epsilon must exceed 2⁻⁶³·(b-a) or the iteration-count shift below
// overflows. When f is monotonic the result is within epsilon of the
// crossing.
//
// Of the method's tuning parameters, k2 is hardwired to 2: it avoids a
// floating-point exponentiation and behaves well on the perpendicularity
// polynomials this kernel feeds in. n0 trades bisection's worst-case bound
// against the secant component; 0 never exceeds bisection's iteration count,
// 1 lets the secant engage sooner on smooth functions at the cost of at most
// one extra iteration. For k1 the paper's 0.2/(b-a) works well here.
//
// [ITP method]: https://en.wikipedia.org/wiki/ITP_Method
// [Oliveira and Takahashi]: https://dl.acm.org/doi/10.1145/3423597
func SolveITP(
	f func(float64) float64,
	a float64,
	b float64,
	epsilon float64,
	n0 int,
	k1 float64,
	ya float64,
	yb float64,
) float64 {
	n1_2 := int(max(math.Ceil(math.Log2((b-a)/epsilon))-1.0, 0.0))
	nmax := n0 + n1_2
	scaledEpsilon := epsilon * float64(uint64(1)<<nmax)
	for b-a > 2.0*epsilon {
		x1_2 := 0.5 * (a + b)
		r := scaledEpsilon - 0.5*(b-a)
		xf := (yb*a - ya*b) / (yb - ya)
		sigma := x1_2 - xf
		// k2 = 2 hardwired.
		delta := k1 * ((b - a) * (b - a))
		var xt float64
		if delta <= math.Abs(x1_2-xf) {
			xt = xf + math.Copysign(delta, sigma)
		} else {
			xt = x1_2
		}
		var xitp float64
		if math.Abs(xt-x1_2) <= r {
			xitp = xt
		} else {
			xitp = x1_2 - math.Copysign(r, sigma)
		}
		yitp := f(xitp)
		if yitp > 0.0 {
			b = xitp
			yb = yitp
		} else if yitp < 0.0 {
			a = xitp
			ya = yitp
		} else {
			return xitp
		}
		scaledEpsilon *= 0.5
	}
	return 0.5 * (a + b)
}

package nurbs

import (
	"math"
	"slices"
	"sort"
)

// Scalar polynomials in Bernstein form, used by the closest-point and range
// solvers. A coefficient slice of length n+1 represents
//
//	p(t) = Σ cᵢ · C(n,i) · tⁱ · (1-t)ⁿ⁻ⁱ
//
// Products, differences and derivatives stay in Bernstein form; roots in
// [0, 1] are found by variation-diminishing subdivision, falling back to the
// closed-form solvers for low degrees.

var binomialRows = func() [][]float64 {
	// Enough rows for products of two order-26 factors.
	const maxN = 52
	rows := make([][]float64, maxN+1)
	rows[0] = []float64{1}
	for n := 1; n <= maxN; n++ {
		row := make([]float64, n+1)
		row[0], row[n] = 1, 1
		prev := rows[n-1]
		for k := 1; k < n; k++ {
			row[k] = prev[k-1] + prev[k]
		}
		rows[n] = row
	}
	return rows
}()

func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	return binomialRows[n][k]
}

// bernsteinAccumulateProduct adds scale·a·b to dst. dst must have length
// len(a)+len(b)-1; a and b are Bernstein coefficient slices.
func bernsteinAccumulateProduct(dst, a, b []float64, scale float64) {
	na := len(a) - 1
	nb := len(b) - 1
	n := na + nb
	for i, ca := range a {
		if ca == 0 {
			continue
		}
		fa := scale * ca * binomial(na, i)
		for j, cb := range b {
			dst[i+j] += fa * cb * binomial(nb, j) / binomial(n, i+j)
		}
	}
}

// bernsteinShift subtracts the constant c from the polynomial, in place.
// Constants are exact in Bernstein form thanks to partition of unity.
func bernsteinShift(coffs []float64, c float64) {
	for i := range coffs {
		coffs[i] -= c
	}
}

// bernsteinDerivativeCoffs returns the Bernstein coefficients of p', of degree
// one less.
func bernsteinDerivativeCoffs(coffs []float64) []float64 {
	n := len(coffs) - 1
	d := make([]float64, n)
	for i := range d {
		d[i] = float64(n) * (coffs[i+1] - coffs[i])
	}
	return d
}

// bernsteinEvaluate evaluates the polynomial at t by de Casteljau reduction.
func bernsteinEvaluate(coffs []float64, t float64) float64 {
	work := make([]float64, len(coffs))
	copy(work, coffs)
	for m := len(work) - 1; m > 0; m-- {
		for i := range m {
			work[i] += t * (work[i+1] - work[i])
		}
	}
	return work[0]
}

// bernsteinSplit subdivides the polynomial at local parameter t, returning the
// coefficients of the left and right halves over their own [0, 1] domains.
func bernsteinSplit(coffs []float64, t float64) (left, right []float64) {
	n := len(coffs)
	left = make([]float64, n)
	right = make([]float64, n)
	work := slices.Clone(coffs)
	for m := n; m > 0; m-- {
		left[n-m] = work[0]
		right[m-1] = work[m-1]
		for i := 0; i < m-1; i++ {
			work[i] += t * (work[i+1] - work[i])
		}
	}
	return left, right
}

// bernsteinToPower converts Bernstein coefficients to power-basis
// coefficients c so that p(t) = Σ c_k t^k.
func bernsteinToPower(coffs []float64) []float64 {
	n := len(coffs) - 1
	power := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		sum := 0.0
		for i := 0; i <= k; i++ {
			term := coffs[i] * binomial(n, i) * binomial(n-i, k-i)
			if (k-i)%2 == 1 {
				term = -term
			}
			sum += term
		}
		power[k] = sum
	}
	return power
}

func signVariations(coffs []float64) int {
	variations := 0
	prev := 0.0
	for _, c := range coffs {
		if c == 0 {
			continue
		}
		if prev != 0 && (c > 0) != (prev > 0) {
			variations++
		}
		prev = c
	}
	return variations
}

// bernsteinRoots01 returns the real roots of the polynomial inside [0, 1],
// sorted and deduplicated. Roots of even multiplicity that do not produce a
// sign change may be missed at extreme flatness; the curve algorithms that
// consume this tolerate such misses (they only lose a candidate that ties an
// existing extremum).
func bernsteinRoots01(coffs []float64) []float64 {
	if len(coffs) == 0 {
		return nil
	}
	allZero := true
	for _, c := range coffs {
		if c != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil
	}
	if len(coffs) <= 5 {
		return powerRoots01(bernsteinToPower(coffs))
	}
	var out []float64
	bernsteinRootsRecurse(coffs, 0, 1, 0, &out)
	sort.Float64s(out)
	return dedupeSorted(out)
}

func powerRoots01(power []float64) []float64 {
	// Strip vanishing leading coefficients so the closed-form solvers see the
	// true degree.
	n := len(power)
	for n > 1 && power[n-1] == 0 {
		n--
	}
	var roots []float64
	switch n {
	case 1:
		return nil
	case 2:
		r := -power[0] / power[1]
		roots = []float64{r}
	case 3:
		rs, k := SolveQuadratic(power[0], power[1], power[2])
		roots = rs[:k]
	case 4:
		rs, k := SolveCubic(power[0], power[1], power[2], power[3])
		roots = rs[:k]
	default:
		rs, k := SolveQuartic(power[0], power[1], power[2], power[3], power[4])
		roots = rs[:k]
	}
	var out []float64
	const eps = 1e-10
	for _, r := range roots {
		if r >= -eps && r <= 1+eps {
			out = append(out, math.Min(math.Max(r, 0), 1))
		}
	}
	sort.Float64s(out)
	return dedupeSorted(out)
}

const rootCoincidenceTol = 1e-8

func dedupeSorted(roots []float64) []float64 {
	out := roots[:0]
	for i, r := range roots {
		if i == 0 || r-out[len(out)-1] > rootCoincidenceTol {
			out = append(out, r)
		}
	}
	return out
}

func bernsteinRootsRecurse(coffs []float64, t0, t1 float64, depth int, out *[]float64) {
	switch signVariations(coffs) {
	case 0:
		return
	case 1:
		f0 := coffs[0]
		f1 := coffs[len(coffs)-1]
		if f0 != 0 && f1 != 0 && (f0 > 0) != (f1 > 0) {
			// Single bracketed crossing; hand over to the ITP solver on the
			// original parameter interval.
			f := func(t float64) float64 {
				return bernsteinEvaluate(coffs, (t-t0)/(t1-t0))
			}
			ya, yb := f0, f1
			if ya > 0 {
				g := f
				f = func(t float64) float64 { return -g(t) }
				ya, yb = -ya, -yb
			}
			const epsilon = 1e-14
			*out = append(*out, SolveITP(f, t0, t1, epsilon, 1, 0.2/(t1-t0), ya, yb))
			return
		}
	}
	if depth >= 48 || t1-t0 <= 1e-12 {
		tm := 0.5 * (t0 + t1)
		if math.Abs(bernsteinEvaluate(coffs, 0.5)) <= 1e-10 {
			*out = append(*out, tm)
		}
		return
	}
	left, right := bernsteinSplit(coffs, 0.5)
	tm := 0.5 * (t0 + t1)
	bernsteinRootsRecurse(left, t0, tm, depth+1, out)
	if math.Abs(right[0]) == 0 {
		*out = append(*out, tm)
	}
	bernsteinRootsRecurse(right, tm, t1, depth+1, out)
}

package nurbs

import "slices"

// Bezier1d owns one packed Bézier polygon: order blocks of BlockSize numbers,
// with no knots. After saturation from a B-spline span it additionally records
// the parent-curve fraction interval the segment covers.
//
// Instances are transient scratch objects: callers typically allocate one and
// reuse it across spans.
type Bezier1d struct {
	Packed    []float64
	BlockSize int

	interval    [2]float64
	hasInterval bool

	work []float64
}

func newBezier1d(order, blockSize int) *Bezier1d {
	return &Bezier1d{
		Packed:    make([]float64, order*blockSize),
		BlockSize: blockSize,
	}
}

// Order returns the number of poles of the polygon.
func (bz *Bezier1d) Order() int { return len(bz.Packed) / bz.BlockSize }

// Pole returns a view of pole i's block.
func (bz *Bezier1d) Pole(i int) []float64 {
	return bz.Packed[i*bz.BlockSize : (i+1)*bz.BlockSize]
}

// Interval returns the parent-curve fraction interval recorded by the latest
// saturation, if any.
func (bz *Bezier1d) Interval() ([2]float64, bool) {
	return bz.interval, bz.hasInterval
}

// FractionToParentFraction maps a local Bézier fraction to the parent curve's
// global fraction space. Without a recorded interval it is the identity.
func (bz *Bezier1d) FractionToParentFraction(t float64) float64 {
	if !bz.hasInterval {
		return t
	}
	return bz.interval[0] + t*(bz.interval[1]-bz.interval[0])
}

// LoadSpanPoles copies the order poles of the given span out of a pole
// buffer, resizing the polygon as needed.
func (bz *Bezier1d) LoadSpanPoles(pb *PoleBuffer, spanIndex int) {
	order := pb.Knots.Order()
	bz.BlockSize = pb.BlockSize
	n := order * pb.BlockSize
	if cap(bz.Packed) < n {
		bz.Packed = make([]float64, n)
	}
	bz.Packed = bz.Packed[:n]
	copy(bz.Packed, pb.Packed[spanIndex*pb.BlockSize:spanIndex*pb.BlockSize+n])
	bz.hasInterval = false
}

// SaturateInPlace converts the loaded span poles into the exact Bézier polygon
// of span spanIndex of the given knot vector, and records the parent fraction
// interval. It reports false, leaving the polygon unchanged, when the span is
// degenerate (knot interval below tolerance).
//
// Each Bézier pole is the blossom value b(u0,…,u0,u1,…,u1), computed by a de
// Boor triangle whose interpolation fractions come from the surrounding knots,
// so the result matches the parent curve over the span regardless of interior
// knot multiplicities.
func (bz *Bezier1d) SaturateInPlace(kv *KnotVector, spanIndex int) bool {
	degree := kv.Degree()
	left := kv.SpanIndexToLeftKnotIndex(spanIndex)
	u0, u1 := kv.Knots[left], kv.Knots[left+1]
	if u1-u0 <= KnotTolerance {
		return false
	}
	order := degree + 1
	bs := bz.BlockSize
	n := order * bs
	if cap(bz.work) < 2*n {
		bz.work = make([]float64, 2*n)
	}
	src := bz.work[:n]
	tri := bz.work[n : 2*n]
	copy(src, bz.Packed)

	// Knot T with classic padded indexing: T[m] = kv.Knots[m-1]; the first
	// pole of the span has classic index spanIndex.
	knotAt := func(m int) float64 { return kv.Knots[spanIndex+m-1] }

	for j := 0; j <= degree; j++ {
		copy(tri, src)
		for r := 1; r <= degree; r++ {
			t := u0
			if r > degree-j {
				t = u1
			}
			for i := degree; i >= r; i-- {
				ta := knotAt(i)
				tb := knotAt(i + degree - r + 1)
				alpha := 0.0
				if tb-ta > KnotTolerance {
					alpha = (t - ta) / (tb - ta)
				}
				prev := tri[(i-1)*bs : i*bs]
				cur := tri[i*bs : (i+1)*bs]
				for c := range cur {
					cur[c] = (1-alpha)*prev[c] + alpha*cur[c]
				}
			}
		}
		copy(bz.Pole(j), tri[degree*bs:(degree+1)*bs])
	}
	bz.interval = [2]float64{kv.KnotToFraction(u0), kv.KnotToFraction(u1)}
	bz.hasInterval = true
	return true
}

// Evaluate evaluates the polygon at local fraction t into out, which must have
// length BlockSize.
func (bz *Bezier1d) Evaluate(t float64, out []float64) {
	order := bz.Order()
	bs := bz.BlockSize
	n := order * bs
	if cap(bz.work) < n {
		bz.work = make([]float64, n)
	}
	w := bz.work[:n]
	copy(w, bz.Packed)
	for m := order - 1; m > 0; m-- {
		for i := range m {
			a := w[i*bs : (i+1)*bs]
			b := w[(i+1)*bs : (i+2)*bs]
			for c := range a {
				a[c] += t * (b[c] - a[c])
			}
		}
	}
	copy(out, w[:bs])
}

// SubdivideInPlaceKeepLeft replaces the polygon with its restriction to
// [0, fraction], by de Casteljau interpolation.
func (bz *Bezier1d) SubdivideInPlaceKeepLeft(fraction float64) {
	degree := bz.Order() - 1
	for r := 1; r <= degree; r++ {
		for i := degree; i >= r; i-- {
			a := bz.Pole(i - 1)
			b := bz.Pole(i)
			for c := range b {
				b[c] = a[c] + fraction*(b[c]-a[c])
			}
		}
	}
	if bz.hasInterval {
		bz.interval[1] = bz.interval[0] + fraction*(bz.interval[1]-bz.interval[0])
	}
}

// SubdivideInPlaceKeepRight replaces the polygon with its restriction to
// [fraction, 1], by de Casteljau interpolation.
func (bz *Bezier1d) SubdivideInPlaceKeepRight(fraction float64) {
	degree := bz.Order() - 1
	for r := 1; r <= degree; r++ {
		for i := 0; i <= degree-r; i++ {
			a := bz.Pole(i)
			b := bz.Pole(i + 1)
			for c := range a {
				a[c] += fraction * (b[c] - a[c])
			}
		}
	}
	if bz.hasInterval {
		bz.interval[0] += fraction * (bz.interval[1] - bz.interval[0])
	}
}

// ComponentCoffs returns the Bernstein coefficients of a single coordinate
// component, as a freshly allocated slice.
func (bz *Bezier1d) ComponentCoffs(component int) []float64 {
	order := bz.Order()
	coffs := make([]float64, order)
	for i := range coffs {
		coffs[i] = bz.Packed[i*bz.BlockSize+component]
	}
	return coffs
}

// Clone returns a deep copy.
func (bz *Bezier1d) Clone() *Bezier1d {
	return &Bezier1d{
		Packed:      slices.Clone(bz.Packed),
		BlockSize:   bz.BlockSize,
		interval:    bz.interval,
		hasInterval: bz.hasInterval,
	}
}

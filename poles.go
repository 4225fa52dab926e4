package nurbs

import (
	"math"
	"slices"
)

// PoleBuffer owns a packed buffer of control points paired with a knot vector.
// Each pole occupies BlockSize consecutive numbers: 3 for xyz poles, 4 for
// homogeneous xyzw poles, 1 for scalar data.
//
// All higher curve evaluation funnels through
// [PoleBuffer.EvaluateBuffersAtKnot]. The evaluation scratch buffers are owned
// by the instance and lazily allocated, so a single PoleBuffer must not be
// evaluated from multiple goroutines concurrently; distinct instances are
// independent.
type PoleBuffer struct {
	Packed    []float64
	BlockSize int
	Knots     *KnotVector

	basis   []float64
	dBasis  []float64
	ddBasis []float64
	point   []float64
	deriv1  []float64
	deriv2  []float64
}

// NewPoleBuffer pairs packed pole data with a knot vector. It returns nil if
// the buffer length is not a multiple of blockSize, or if the pole count does
// not match the knot count, or if there are fewer poles than order.
func NewPoleBuffer(packed []float64, blockSize int, knots *KnotVector) *PoleBuffer {
	if knots == nil || blockSize < 1 || len(packed)%blockSize != 0 {
		return nil
	}
	numPoles := len(packed) / blockSize
	if numPoles != knots.NumPoles() || numPoles < knots.Order() {
		return nil
	}
	return &PoleBuffer{Packed: packed, BlockSize: blockSize, Knots: knots}
}

// NumPoles returns the number of poles in the buffer.
func (pb *PoleBuffer) NumPoles() int { return len(pb.Packed) / pb.BlockSize }

// Pole returns a view of pole i's block. The slice aliases the packed buffer.
func (pb *PoleBuffer) Pole(i int) []float64 {
	return pb.Packed[i*pb.BlockSize : (i+1)*pb.BlockSize]
}

// Clone returns a deep copy, sharing no buffers with the original.
func (pb *PoleBuffer) Clone() *PoleBuffer {
	return &PoleBuffer{
		Packed:    slices.Clone(pb.Packed),
		BlockSize: pb.BlockSize,
		Knots:     pb.Knots.Clone(),
	}
}

func (pb *PoleBuffer) ensureScratch() {
	if pb.basis == nil {
		order := pb.Knots.Order()
		pb.basis = make([]float64, order)
		pb.dBasis = make([]float64, order)
		pb.ddBasis = make([]float64, order)
		pb.point = make([]float64, pb.BlockSize)
		pb.deriv1 = make([]float64, pb.BlockSize)
		pb.deriv2 = make([]float64, pb.BlockSize)
	}
}

// EvaluateBuffersAtKnot evaluates the curve (and up to numDerivatives
// derivatives with respect to the knot parameter) at knot value u. The
// returned slices are reused across calls; callers must copy values they want
// to keep. Unrequested derivative slices are returned nil.
func (pb *PoleBuffer) EvaluateBuffersAtKnot(u float64, numDerivatives int) (point, deriv1, deriv2 []float64) {
	pb.ensureScratch()
	knotIndex0 := pb.Knots.KnotToLeftKnotIndex(u)
	degree := pb.Knots.Degree()
	switch {
	case numDerivatives <= 0:
		pb.Knots.EvaluateBasisFunctions(knotIndex0, u, pb.basis)
	case numDerivatives == 1:
		pb.Knots.EvaluateBasisFunctions1(knotIndex0, u, pb.basis, pb.dBasis, nil)
	default:
		pb.Knots.EvaluateBasisFunctions1(knotIndex0, u, pb.basis, pb.dBasis, pb.ddBasis)
	}
	poleIndex0 := knotIndex0 - degree + 1
	pb.sumPoleBlocks(pb.point, poleIndex0, pb.basis)
	if numDerivatives >= 1 {
		pb.sumPoleBlocks(pb.deriv1, poleIndex0, pb.dBasis)
		deriv1 = pb.deriv1
	}
	if numDerivatives >= 2 {
		pb.sumPoleBlocks(pb.deriv2, poleIndex0, pb.ddBasis)
		deriv2 = pb.deriv2
	}
	return pb.point, deriv1, deriv2
}

// sumPoleBlocks accumulates order pole blocks starting at poleIndex0, weighted
// by the given basis values, into dst.
func (pb *PoleBuffer) sumPoleBlocks(dst []float64, poleIndex0 int, weights []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j := 0; j <= pb.Knots.Degree(); j++ {
		w := weights[j]
		block := pb.Pole(poleIndex0 + j)
		for i := range dst {
			dst[i] += w * block[i]
		}
	}
}

// AddKnot inserts the given knot value until it reaches
// min(targetMultiplicity, degree) multiplicity, using Boehm's algorithm. Both
// the knot and pole buffers grow; the curve shape is unchanged.
//
// It returns true without mutating if the knot already has sufficient
// multiplicity, and false (again without mutating) if the knot lies outside
// the active domain.
func (pb *PoleBuffer) AddKnot(knot float64, targetMultiplicity int) bool {
	kv := pb.Knots
	if knot < kv.LeftKnot()-KnotTolerance || knot > kv.RightKnot()+KnotTolerance {
		return false
	}
	knot = math.Min(math.Max(knot, kv.LeftKnot()), kv.RightKnot())
	degree := kv.Degree()
	target := min(targetMultiplicity, degree)
	for kv.GetKnotMultiplicity(knot) < target {
		pb.insertKnotOnce(knot)
	}
	return true
}

// insertKnotOnce performs a single Boehm insertion of knot u.
//
// In the classic (padded) knot convention, inserting u into the span with left
// knot T_s replaces poles P_{s-degree+1}..P_s with degree new poles
//
//	P'_j = (1-a_j) P_{j-1} + a_j P_j,  a_j = (u - T_j) / (T_{j+degree} - T_j)
//
// for j = s-degree+1 .. s, and keeps P_{s-degree}.. on the outside. With the
// unpadded storage here, T_j = Knots[j-1].
func (pb *PoleBuffer) insertKnotOnce(u float64) {
	kv := pb.Knots
	degree := kv.Degree()
	bs := pb.BlockSize
	left := kv.KnotToLeftKnotIndex(u)

	jFirst := left - degree + 2
	jLast := left + 1
	// One block of scratch per new pole.
	newPoles := make([]float64, (jLast-jFirst+1)*bs)
	for j := jFirst; j <= jLast; j++ {
		tj := kv.Knots[j-1]
		d := kv.Knots[j-1+degree] - tj
		a := 0.0
		if d > KnotTolerance {
			a = (u - tj) / d
		}
		prev := pb.Pole(j - 1)
		cur := pb.Pole(j)
		out := newPoles[(j-jFirst)*bs : (j-jFirst+1)*bs]
		for i := range out {
			out[i] = (1-a)*prev[i] + a*cur[i]
		}
	}
	// Splice: poles jFirst..jLast are replaced by the new blocks, with the old
	// pole jLast retained after them, growing the buffer by one block.
	pb.Packed = slices.Insert(pb.Packed, jLast*bs, make([]float64, bs)...)
	copy(pb.Packed[jFirst*bs:], newPoles)
	kv.Knots = slices.Insert(kv.Knots, left+1, u)
	// Scratch basis arrays stay valid: order is unchanged.
}

// ReverseInPlace reverses the parametric direction: pole blocks are swapped
// symmetrically and the knots are reflected.
func (pb *PoleBuffer) ReverseInPlace() {
	bs := pb.BlockSize
	n := pb.NumPoles()
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		pi, pj := pb.Pole(i), pb.Pole(j)
		for k := range bs {
			pi[k], pj[k] = pj[k], pi[k]
		}
	}
	pb.Knots.ReflectKnots()
}

// TestCloseablePolygon checks that the pole polygon is consistent with the
// given wrap mode: for [WrapOpenByAddingControlPoints] the leading degree
// poles must repeat at the tail, for [WrapOpenByRemovingKnots] the first and
// last poles must match.
func (pb *PoleBuffer) TestCloseablePolygon(mode WrapMode) bool {
	degree := pb.Knots.Degree()
	n := pb.NumPoles()
	equalBlocks := func(a, b []float64) bool {
		for i := range a {
			if math.Abs(a[i]-b[i]) > KnotTolerance {
				return false
			}
		}
		return true
	}
	switch mode {
	case WrapOpenByAddingControlPoints:
		if n < 2*degree {
			return false
		}
		for i := range degree {
			if !equalBlocks(pb.Pole(i), pb.Pole(n-degree+i)) {
				return false
			}
		}
		return true
	case WrapOpenByRemovingKnots:
		return equalBlocks(pb.Pole(0), pb.Pole(n-1))
	default:
		return false
	}
}

// IsAlmostEqual reports whether two buffers have the same layout and the same
// pole coordinates and knots within tolerance.
func (pb *PoleBuffer) IsAlmostEqual(other *PoleBuffer) bool {
	if pb.BlockSize != other.BlockSize || len(pb.Packed) != len(other.Packed) {
		return false
	}
	if !pb.Knots.IsAlmostEqual(other.Knots) {
		return false
	}
	for i, v := range pb.Packed {
		if math.Abs(v-other.Packed[i]) > KnotTolerance {
			return false
		}
	}
	return true
}

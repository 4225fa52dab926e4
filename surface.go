package nurbs

// BSplineSurface3d is a tensor-product surface over a grid of poles. The grid
// is packed row-major with u varying fastest; rational surfaces store
// weight-multiplied homogeneous blocks like [BSplineCurve3dH] does.
type BSplineSurface3d struct {
	packed    []float64
	blockSize int
	numPolesU int
	knotsU    *KnotVector
	knotsV    *KnotVector

	basisU  []float64
	basisV  []float64
	dBasisU []float64
	dBasisV []float64
	rowAcc  []float64
	rowDAcc []float64
}

// NewBSplineSurface3d creates a clamped surface with uniform knots in both
// directions. poles[j][i] is the pole at v row j, u column i; all rows must
// have the same length. It returns nil for an unusable grid or order.
func NewBSplineSurface3d(poles [][]Point3, orderU, orderV int) *BSplineSurface3d {
	numV := len(poles)
	if numV == 0 {
		return nil
	}
	numU := len(poles[0])
	kvU := NewUniformClampedKnots(numU, orderU-1)
	kvV := NewUniformClampedKnots(numV, orderV-1)
	if orderU < 2 || orderV < 2 || kvU == nil || kvV == nil {
		return nil
	}
	packed := make([]float64, 0, 3*numU*numV)
	for _, row := range poles {
		if len(row) != numU {
			return nil
		}
		for _, p := range row {
			packed = append(packed, p.X, p.Y, p.Z)
		}
	}
	return &BSplineSurface3d{
		packed:    packed,
		blockSize: 3,
		numPolesU: numU,
		knotsU:    kvU,
		knotsV:    kvV,
	}
}

// NewBSplineSurface3dH creates a rational surface. weights[j][i] pairs with
// poles[j][i]; non-positive weights are treated as 1.
func NewBSplineSurface3dH(poles [][]Point3, weights [][]float64, orderU, orderV int) *BSplineSurface3d {
	numV := len(poles)
	if numV == 0 || len(weights) != numV {
		return nil
	}
	numU := len(poles[0])
	kvU := NewUniformClampedKnots(numU, orderU-1)
	kvV := NewUniformClampedKnots(numV, orderV-1)
	if orderU < 2 || orderV < 2 || kvU == nil || kvV == nil {
		return nil
	}
	packed := make([]float64, 0, 4*numU*numV)
	for j, row := range poles {
		if len(row) != numU || len(weights[j]) != numU {
			return nil
		}
		for i, p := range row {
			w := weights[j][i]
			if w <= 0 {
				w = 1
			}
			packed = append(packed, w*p.X, w*p.Y, w*p.Z, w)
		}
	}
	return &BSplineSurface3d{
		packed:    packed,
		blockSize: 4,
		numPolesU: numU,
		knotsU:    kvU,
		knotsV:    kvV,
	}
}

// OrderU returns the order in the u direction.
func (s *BSplineSurface3d) OrderU() int { return s.knotsU.Order() }

// OrderV returns the order in the v direction.
func (s *BSplineSurface3d) OrderV() int { return s.knotsV.Order() }

// NumPolesU returns the number of pole columns.
func (s *BSplineSurface3d) NumPolesU() int { return s.numPolesU }

// NumPolesV returns the number of pole rows.
func (s *BSplineSurface3d) NumPolesV() int { return len(s.packed) / s.blockSize / s.numPolesU }

func (s *BSplineSurface3d) pole(i, j int) []float64 {
	at := (j*s.numPolesU + i) * s.blockSize
	return s.packed[at : at+s.blockSize]
}

func (s *BSplineSurface3d) ensureScratch() {
	if s.basisU != nil {
		return
	}
	s.basisU = make([]float64, s.knotsU.Order())
	s.basisV = make([]float64, s.knotsV.Order())
	s.dBasisU = make([]float64, s.knotsU.Order())
	s.dBasisV = make([]float64, s.knotsV.Order())
	s.rowAcc = make([]float64, s.blockSize)
	s.rowDAcc = make([]float64, s.blockSize)
}

// FractionToPoint evaluates the surface at fractional coordinates in [0, 1]².
func (s *BSplineSurface3d) FractionToPoint(fu, fv float64) Point3 {
	pt, _, _ := s.evaluate(fu, fv, false)
	return pt
}

// FractionToPointAndDerivatives evaluates the surface point and the two
// partial derivatives with respect to the fractional coordinates.
func (s *BSplineSurface3d) FractionToPointAndDerivatives(fu, fv float64) (Point3, Vec3, Vec3) {
	return s.evaluate(fu, fv, true)
}

func (s *BSplineSurface3d) evaluate(fu, fv float64, derivatives bool) (Point3, Vec3, Vec3) {
	s.ensureScratch()
	degU, degV := s.knotsU.Degree(), s.knotsV.Degree()
	u := s.knotsU.FractionToKnot(fu)
	v := s.knotsV.FractionToKnot(fv)
	kU := s.knotsU.KnotToLeftKnotIndex(u)
	kV := s.knotsV.KnotToLeftKnotIndex(v)
	if derivatives {
		s.knotsU.EvaluateBasisFunctions1(kU, u, s.basisU, s.dBasisU, nil)
		s.knotsV.EvaluateBasisFunctions1(kV, v, s.basisV, s.dBasisV, nil)
	} else {
		s.knotsU.EvaluateBasisFunctions(kU, u, s.basisU)
		s.knotsV.EvaluateBasisFunctions(kV, v, s.basisV)
	}
	poleU0 := kU - degU + 1
	poleV0 := kV - degV + 1

	bs := s.blockSize
	var acc, accDU, accDV [4]float64
	for jj := range degV + 1 {
		row := s.rowAcc[:bs]
		dRow := s.rowDAcc[:bs]
		for c := range bs {
			row[c], dRow[c] = 0, 0
		}
		for ii := range degU + 1 {
			p := s.pole(poleU0+ii, poleV0+jj)
			for c := range bs {
				row[c] += s.basisU[ii] * p[c]
				if derivatives {
					dRow[c] += s.dBasisU[ii] * p[c]
				}
			}
		}
		for c := range bs {
			acc[c] += s.basisV[jj] * row[c]
			if derivatives {
				accDU[c] += s.basisV[jj] * dRow[c]
				accDV[c] += s.dBasisV[jj] * row[c]
			}
		}
	}

	scaleU := s.knotsU.RightKnot() - s.knotsU.LeftKnot()
	scaleV := s.knotsV.RightKnot() - s.knotsV.LeftKnot()
	if bs == 3 {
		pt := Pt(acc[0], acc[1], acc[2])
		if !derivatives {
			return pt, Vec3{}, Vec3{}
		}
		dU := Vec(accDU[0], accDU[1], accDU[2]).Mul(scaleU)
		dV := Vec(accDV[0], accDV[1], accDV[2]).Mul(scaleV)
		return pt, dU, dV
	}
	recip := safeWeightRecip(acc[3])
	pt := Pt(acc[0]*recip, acc[1]*recip, acc[2]*recip)
	if !derivatives {
		return pt, Vec3{}, Vec3{}
	}
	// Quotient rule: d(X/w) = (dX - (X/w)·dw) / w.
	dU := Vec(
		(accDU[0]-pt.X*accDU[3])*recip,
		(accDU[1]-pt.Y*accDU[3])*recip,
		(accDU[2]-pt.Z*accDU[3])*recip,
	).Mul(scaleU)
	dV := Vec(
		(accDV[0]-pt.X*accDV[3])*recip,
		(accDV[1]-pt.Y*accDV[3])*recip,
		(accDV[2]-pt.Z*accDV[3])*recip,
	).Mul(scaleV)
	return pt, dU, dV
}

package nurbs

import "math"

// Range3d is an axis-aligned bounding range. The zero value is not a valid
// range; use [NewRange3d] or start from [NullRange3d].
type Range3d struct {
	Low  Point3
	High Point3
}

// NullRange3d returns the empty range, which extends to contain any point.
func NullRange3d() Range3d {
	inf := math.Inf(1)
	return Range3d{
		Low:  Pt(inf, inf, inf),
		High: Pt(-inf, -inf, -inf),
	}
}

// NewRange3d returns the smallest range containing both points.
func NewRange3d(a, b Point3) Range3d {
	r := NullRange3d()
	r = r.ExtendPoint(a)
	return r.ExtendPoint(b)
}

// IsNull reports whether the range contains no points.
func (r Range3d) IsNull() bool {
	return r.Low.X > r.High.X || r.Low.Y > r.High.Y || r.Low.Z > r.High.Z
}

// ExtendPoint returns the range grown to contain pt.
func (r Range3d) ExtendPoint(pt Point3) Range3d {
	return Range3d{
		Low: Point3{
			X: math.Min(r.Low.X, pt.X),
			Y: math.Min(r.Low.Y, pt.Y),
			Z: math.Min(r.Low.Z, pt.Z),
		},
		High: Point3{
			X: math.Max(r.High.X, pt.X),
			Y: math.Max(r.High.Y, pt.Y),
			Z: math.Max(r.High.Z, pt.Z),
		},
	}
}

// Union returns the smallest range containing both ranges.
func (r Range3d) Union(o Range3d) Range3d {
	if o.IsNull() {
		return r
	}
	return r.ExtendPoint(o.Low).ExtendPoint(o.High)
}

// ContainsPoint reports whether pt lies inside the range, boundary included.
func (r Range3d) ContainsPoint(pt Point3) bool {
	return pt.X >= r.Low.X && pt.X <= r.High.X &&
		pt.Y >= r.Low.Y && pt.Y <= r.High.Y &&
		pt.Z >= r.Low.Z && pt.Z <= r.High.Z
}

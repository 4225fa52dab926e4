package nurbs

import (
	"encoding/json"
	"fmt"
)

// CurveRecord is the plain-record interchange form of a curve. Poles are
// [x, y, z] triples; rational curves carry a parallel weights array. Knots
// may use either accepted convention (see [NewBSplineCurve3dWithKnots]).
type CurveRecord struct {
	Poles   [][]float64 `json:"poles"`
	Weights []float64   `json:"weights,omitempty"`
	Knots   []float64   `json:"knots"`
	Order   int         `json:"order"`
	Closed  bool        `json:"closed,omitempty"`
}

// FitRecord is the plain-record interchange form of an interpolation request.
type FitRecord struct {
	FitPoints    [][]float64 `json:"fitPoints"`
	Knots        []float64   `json:"knots,omitempty"`
	Closed       bool        `json:"closed,omitempty"`
	StartTangent []float64   `json:"startTangent,omitempty"`
	EndTangent   []float64   `json:"endTangent,omitempty"`
}

func recordPoints(rows [][]float64, what string) ([]Point3, error) {
	out := make([]Point3, len(rows))
	for i, row := range rows {
		if len(row) != 3 {
			return nil, fmt.Errorf("nurbs: %s %d has %d components, want 3", what, i, len(row))
		}
		out[i] = Pt(row[0], row[1], row[2])
	}
	return out, nil
}

func pointRows(points []Point3) [][]float64 {
	rows := make([][]float64, len(points))
	for i, p := range points {
		rows[i] = []float64{p.X, p.Y, p.Z}
	}
	return rows
}

// ToRecord returns the curve's interchange record.
func (bs *BSplineCurve3d) ToRecord() CurveRecord {
	return CurveRecord{
		Poles:  pointRows(bs.CopyPoints()),
		Knots:  bs.CopyKnots(),
		Order:  bs.Order(),
		Closed: bs.poles.Knots.Wrap != WrapNone,
	}
}

// ToJSON serializes the curve as a [CurveRecord].
func (bs *BSplineCurve3d) ToJSON() ([]byte, error) {
	return json.Marshal(bs.ToRecord())
}

// ToRecord returns the curve's interchange record, with de-weighted poles and
// a parallel weights array.
func (bs *BSplineCurve3dH) ToRecord() CurveRecord {
	return CurveRecord{
		Poles:   pointRows(bs.CopyPoints()),
		Weights: bs.CopyWeights(),
		Knots:   bs.CopyKnots(),
		Order:   bs.Order(),
		Closed:  bs.poles.Knots.Wrap != WrapNone,
	}
}

// ToJSON serializes the curve as a [CurveRecord].
func (bs *BSplineCurve3dH) ToJSON() ([]byte, error) {
	return json.Marshal(bs.ToRecord())
}

// CurveFromRecord rebuilds a curve from its interchange record. A record with
// weights yields a *BSplineCurve3dH, otherwise a *BSplineCurve3d.
func CurveFromRecord(rec CurveRecord) (EvaluatableCurve, error) {
	points, err := recordPoints(rec.Poles, "pole")
	if err != nil {
		return nil, err
	}
	wrap := WrapNone
	if rec.Closed {
		wrap = WrapOpenByAddingControlPoints
	}
	if rec.Weights != nil {
		bs := NewBSplineCurve3dHWithKnots(points, rec.Weights, rec.Knots, rec.Order)
		if bs == nil {
			return nil, fmt.Errorf("nurbs: invalid curve record (order %d, %d poles, %d knots)",
				rec.Order, len(rec.Poles), len(rec.Knots))
		}
		bs.poles.Knots.Wrap = wrap
		return bs, nil
	}
	bs := NewBSplineCurve3dWithKnots(points, rec.Knots, rec.Order)
	if bs == nil {
		return nil, fmt.Errorf("nurbs: invalid curve record (order %d, %d poles, %d knots)",
			rec.Order, len(rec.Poles), len(rec.Knots))
	}
	bs.poles.Knots.Wrap = wrap
	return bs, nil
}

// CurveFromJSON parses a [CurveRecord] and rebuilds the curve.
func CurveFromJSON(data []byte) (EvaluatableCurve, error) {
	var rec CurveRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("nurbs: parsing curve record: %w", err)
	}
	return CurveFromRecord(rec)
}

// Options converts the record into interpolation options for the C2 fitter.
func (rec FitRecord) Options() (*InterpolationOptions, error) {
	points, err := recordPoints(rec.FitPoints, "fit point")
	if err != nil {
		return nil, err
	}
	opts := &InterpolationOptions{
		FitPoints:     points,
		Knots:         rec.Knots,
		Closed:        rec.Closed,
		ChordLenKnots: rec.Knots == nil,
	}
	vecFrom := func(row []float64, what string) (*Vec3, error) {
		if row == nil {
			return nil, nil
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("nurbs: %s has %d components, want 3", what, len(row))
		}
		v := Vec(row[0], row[1], row[2])
		return &v, nil
	}
	if opts.StartTangent, err = vecFrom(rec.StartTangent, "startTangent"); err != nil {
		return nil, err
	}
	if opts.EndTangent, err = vecFrom(rec.EndTangent, "endTangent"); err != nil {
		return nil, err
	}
	return opts, nil
}

// CurveFromFitJSON parses a [FitRecord] and runs the C2 cubic fitter on it.
func CurveFromFitJSON(data []byte) (*BSplineCurve3d, error) {
	var rec FitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("nurbs: parsing fit record: %w", err)
	}
	opts, err := rec.Options()
	if err != nil {
		return nil, err
	}
	bs := CreateThroughPointsC2Cubic(opts)
	if bs == nil {
		return nil, fmt.Errorf("nurbs: fit record does not define a curve")
	}
	return bs, nil
}

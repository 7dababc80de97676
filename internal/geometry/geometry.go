// Package geometry provides the small set of spatial primitives gridmark
// needs: points, bounded line segments and polyline curves.
//
// Vector arithmetic is delegated to gonum's r3 package. All distances are
// Euclidean in the model's coordinate space.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a location in model space
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Pt is shorthand for a point on the working plane
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Vec returns the point as a gonum vector
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func fromVec(v r3.Vec) Point {
	return Point{X: v.X, Y: v.Y, Z: v.Z}
}

// Distance returns the Euclidean distance between two points
func Distance(a, b Point) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

// Segment is a bounded straight line between two points
type Segment struct {
	Start Point `json:"start" yaml:"start"`
	End   Point `json:"end" yaml:"end"`
}

// Seg builds a segment on the working plane
func Seg(x1, y1, x2, y2 float64) Segment {
	return Segment{Start: Pt(x1, y1), End: Pt(x2, y2)}
}

// Direction returns the unnormalized vector from Start to End
func (s Segment) Direction() r3.Vec {
	return r3.Sub(s.End.Vec(), s.Start.Vec())
}

// Length returns the segment length
func (s Segment) Length() float64 {
	return r3.Norm(s.Direction())
}

// Project returns the point on the segment closest to p.
// A zero-length segment projects everything onto its start point.
func (s Segment) Project(p Point) Point {
	d := s.Direction()
	l2 := r3.Norm2(d)
	if l2 == 0 {
		return s.Start
	}

	t := r3.Dot(r3.Sub(p.Vec(), s.Start.Vec()), d) / l2
	t = math.Max(0, math.Min(1, t))

	return fromVec(r3.Add(s.Start.Vec(), r3.Scale(t, d)))
}

// DistanceTo returns the distance from p to its projection on the segment
func (s Segment) DistanceTo(p Point) float64 {
	return Distance(p, s.Project(p))
}

package geometry

import "math"

// Curve is a polyline through an ordered list of points.
// Walls, beams and pipes are located by curves; a straight run is a
// two-point curve.
type Curve struct {
	Points []Point `json:"points" yaml:"points"`
}

// IsEmpty reports whether the curve has no points to evaluate
func (c Curve) IsEmpty() bool {
	return len(c.Points) == 0
}

// Length returns the total arc length of the curve
func (c Curve) Length() float64 {
	var total float64
	for i := 1; i < len(c.Points); i++ {
		total += Distance(c.Points[i-1], c.Points[i])
	}
	return total
}

// Evaluate returns the point at normalized parameter t along the curve's
// arc length. t is clamped to [0,1]. An empty curve evaluates to the
// origin, a degenerate (zero-length) curve to its first point.
func (c Curve) Evaluate(t float64) Point {
	if len(c.Points) == 0 {
		return Point{}
	}
	if len(c.Points) == 1 {
		return c.Points[0]
	}

	t = math.Max(0, math.Min(1, t))
	total := c.Length()
	if total == 0 {
		return c.Points[0]
	}

	target := t * total
	var walked float64
	for i := 1; i < len(c.Points); i++ {
		a, b := c.Points[i-1], c.Points[i]
		step := Distance(a, b)
		if step == 0 {
			continue
		}
		if walked+step >= target {
			f := (target - walked) / step
			return Point{
				X: a.X + f*(b.X-a.X),
				Y: a.Y + f*(b.Y-a.Y),
				Z: a.Z + f*(b.Z-a.Z),
			}
		}
		walked += step
	}

	return c.Points[len(c.Points)-1]
}

// Midpoint evaluates the curve at its normalized midpoint
func (c Curve) Midpoint() Point {
	return c.Evaluate(0.5)
}

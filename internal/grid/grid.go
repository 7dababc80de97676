// Package grid classifies reference grid lines by orientation and resolves
// points to grid intersection labels.
package grid

import (
	"math"

	"gridmark/internal/domain"
	"gridmark/internal/geometry"
)

// Classify splits lines into horizontal and vertical groups. A line is
// horizontal when |dx| > |dy|; ties, including zero-length lines, are
// vertical. Input order is kept within each group.
func Classify(lines []domain.Line) (horizontal, vertical domain.GridGroup) {
	var h, v []domain.Line
	for _, line := range lines {
		d := line.Segment.Direction()
		if math.Abs(d.X) > math.Abs(d.Y) {
			h = append(h, line)
		} else {
			v = append(v, line)
		}
	}

	return domain.NewGridGroup(domain.OrientationHorizontal, h),
		domain.NewGridGroup(domain.OrientationVertical, v)
}

// NearestIntersection returns the label "{vertical}-{horizontal}" built
// from the line in each group closest to p. ok is false if either group is
// empty. Ties go to the line enumerated first.
func NearestIntersection(p geometry.Point, horizontal, vertical domain.GridGroup) (label string, ok bool) {
	h, ok := Nearest(p, horizontal)
	if !ok {
		return "", false
	}
	v, ok := Nearest(p, vertical)
	if !ok {
		return "", false
	}
	return Label(v, h), true
}

// Nearest returns the line in g whose projection of p is closest to p
func Nearest(p geometry.Point, g domain.GridGroup) (domain.Line, bool) {
	var (
		best    domain.Line
		minDist = math.Inf(1)
		found   bool
	)
	for i := 0; i < g.Len(); i++ {
		line := g.At(i)
		dist := line.Segment.DistanceTo(p)
		if dist < minDist {
			minDist = dist
			best = line
			found = true
		}
	}
	return best, found
}

// Label composes the intersection label, vertical line first
func Label(vertical, horizontal domain.Line) string {
	return vertical.Name + "-" + horizontal.Name
}

// Grid is a classified set of reference lines
type Grid struct {
	Horizontal domain.GridGroup
	Vertical   domain.GridGroup
}

// New classifies lines once for repeated lookups
func New(lines []domain.Line) *Grid {
	h, v := Classify(lines)
	return &Grid{Horizontal: h, Vertical: v}
}

// IsComplete reports whether both orientation groups have lines
func (g *Grid) IsComplete() bool {
	return !g.Horizontal.IsEmpty() && !g.Vertical.IsEmpty()
}

// LabelFor resolves the element's location and returns its intersection
// label. ok is false if the element is unlocated or the grid is incomplete.
func (g *Grid) LabelFor(e *domain.Element) (string, bool) {
	p, ok := domain.ResolveLocation(e)
	if !ok {
		return "", false
	}
	return NearestIntersection(p, g.Horizontal, g.Vertical)
}

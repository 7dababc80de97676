package domain

import "gridmark/internal/geometry"

// Orientation tags a grid group by its dominant axis
type Orientation string

const (
	OrientationHorizontal Orientation = "horizontal"
	OrientationVertical   Orientation = "vertical"
)

// Line is a named reference grid line
type Line struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Segment geometry.Segment `json:"segment"`
}

// NewLine creates a grid line on the working plane
func NewLine(id, name string, x1, y1, x2, y2 float64) Line {
	return Line{
		ID:      id,
		Name:    name,
		Segment: geometry.Seg(x1, y1, x2, y2),
	}
}

// GridGroup is an ordered set of lines sharing one orientation.
// The zero value is an empty group.
type GridGroup struct {
	orientation Orientation
	lines       []Line
}

// NewGridGroup copies lines into a new group
func NewGridGroup(orientation Orientation, lines []Line) GridGroup {
	owned := make([]Line, len(lines))
	copy(owned, lines)
	return GridGroup{orientation: orientation, lines: owned}
}

// Orientation returns the group's tag
func (g GridGroup) Orientation() Orientation {
	return g.orientation
}

// Len returns the number of lines in the group
func (g GridGroup) Len() int {
	return len(g.lines)
}

// IsEmpty reports whether the group has no lines
func (g GridGroup) IsEmpty() bool {
	return len(g.lines) == 0
}

// At returns the i-th line in enumeration order
func (g GridGroup) At(i int) Line {
	return g.lines[i]
}

// Names returns the line names in enumeration order
func (g GridGroup) Names() []string {
	names := make([]string, len(g.lines))
	for i, l := range g.lines {
		names[i] = l.Name
	}
	return names
}

package domain

import "gridmark/internal/geometry"

// CategoryKind distinguishes model categories from annotation categories
type CategoryKind string

const (
	CategoryKindModel      CategoryKind = "model"
	CategoryKindAnnotation CategoryKind = "annotation"
)

// Category groups elements of the same kind (Columns, Walls, Pipes...)
type Category struct {
	ID   string       `json:"id" yaml:"id"`
	Name string       `json:"name" yaml:"name"`
	Kind CategoryKind `json:"kind" yaml:"kind"`

	// AllowsBoundParameters is false for categories that cannot carry
	// shared fields; inserting them into a CategorySet fails.
	AllowsBoundParameters bool `json:"allows_bound_parameters" yaml:"allows_bound_parameters"`
}

// NewCategory creates a bindable model category
func NewCategory(id, name string) *Category {
	return &Category{
		ID:                    id,
		Name:                  name,
		Kind:                  CategoryKindModel,
		AllowsBoundParameters: true,
	}
}

// CategoryUsage pairs a category with the number of elements that use it
type CategoryUsage struct {
	Category     Category `json:"category" yaml:"category"`
	ElementCount int      `json:"element_count" yaml:"element_count"`
}

// LocationKind names the variant held by a Location
type LocationKind string

const (
	LocationKindNone  LocationKind = ""
	LocationKindPoint LocationKind = "point"
	LocationKindCurve LocationKind = "curve"
)

// Location is where an element sits in the model: either a PointLocation
// or a CurveLocation. A nil Location means the element is unlocated.
type Location interface {
	Kind() LocationKind
}

// PointLocation locates an element by a single anchor point
type PointLocation struct {
	Point geometry.Point
}

// Kind implements Location
func (PointLocation) Kind() LocationKind { return LocationKindPoint }

// CurveLocation locates an element along a curve
type CurveLocation struct {
	Curve geometry.Curve
}

// Kind implements Location
func (CurveLocation) Kind() LocationKind { return LocationKindCurve }

// Element is a model element that can be numbered
type Element struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name,omitempty" yaml:"name,omitempty"`
	Category *Category `json:"category,omitempty" yaml:"category,omitempty"`
	Location Location  `json:"-" yaml:"-"`
}

// NewPointElement creates an element anchored at a point
func NewPointElement(id string, category *Category, p geometry.Point) *Element {
	return &Element{ID: id, Category: category, Location: PointLocation{Point: p}}
}

// NewCurveElement creates an element driven by a curve
func NewCurveElement(id string, category *Category, c geometry.Curve) *Element {
	return &Element{ID: id, Category: category, Location: CurveLocation{Curve: c}}
}

// CategoryName returns the element's category name, or "" if uncategorized
func (e *Element) CategoryName() string {
	if e == nil || e.Category == nil {
		return ""
	}
	return e.Category.Name
}

// ResolveLocation returns one representative point for the element.
// Point-located elements yield their anchor, curve-located elements the
// curve's normalized midpoint. ok is false when the element has no usable
// location.
func ResolveLocation(e *Element) (p geometry.Point, ok bool) {
	if e == nil {
		return geometry.Point{}, false
	}

	switch loc := e.Location.(type) {
	case PointLocation:
		return loc.Point, true
	case *PointLocation:
		if loc == nil {
			return geometry.Point{}, false
		}
		return loc.Point, true
	case CurveLocation:
		if loc.Curve.IsEmpty() {
			return geometry.Point{}, false
		}
		return loc.Curve.Midpoint(), true
	case *CurveLocation:
		if loc == nil || loc.Curve.IsEmpty() {
			return geometry.Point{}, false
		}
		return loc.Curve.Midpoint(), true
	default:
		return geometry.Point{}, false
	}
}

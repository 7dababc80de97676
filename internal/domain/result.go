package domain

// Default field names written by a numbering run
const (
	FieldGridSquare = "Grid Square"
	FieldNumber     = "Number"
)

// NumberingEntry is the outcome for one element of a run
type NumberingEntry struct {
	Ordinal     int    `json:"ordinal" yaml:"ordinal"`
	ElementID   string `json:"element_id" yaml:"element_id"`
	ElementName string `json:"element_name,omitempty" yaml:"element_name,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`

	// Label is empty when no grid intersection could be resolved
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Fields lists the field names actually written on the element
	Fields []string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// HasLabel reports whether a grid label was resolved for the entry
func (e NumberingEntry) HasLabel() bool {
	return e.Label != ""
}

// NumberingResult is the ordered outcome of one numbering run
type NumberingResult struct {
	StartElementID string           `json:"start_element_id" yaml:"start_element_id"`
	Entries        []NumberingEntry `json:"entries" yaml:"entries"`
}

// Unlabeled counts entries without a grid label
func (r *NumberingResult) Unlabeled() int {
	n := 0
	for _, e := range r.Entries {
		if !e.HasLabel() {
			n++
		}
	}
	return n
}

// Project is a model snapshot: categories, reference grids and elements
type Project struct {
	Categories []*Category
	Grids      []Line
	Elements   []*Element
}

// Package loader reads project snapshots (categories, reference grids and
// elements) from YAML files.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gridmark/internal/domain"
	"gridmark/internal/geometry"
)

// ProjectYAML represents the YAML file structure
type ProjectYAML struct {
	Version    string         `yaml:"version"`
	Categories []CategoryYAML `yaml:"categories"`
	Grids      []GridYAML     `yaml:"grids"`
	Elements   []ElementYAML  `yaml:"elements"`
}

// CategoryYAML represents a category. Bindable defaults to true for model
// categories and false for annotation categories.
type CategoryYAML struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind,omitempty"`
	Bindable *bool  `yaml:"bindable,omitempty"`
}

// GridYAML represents a reference grid line
type GridYAML struct {
	ID    string         `yaml:"id,omitempty"`
	Name  string         `yaml:"name"`
	Start geometry.Point `yaml:"start"`
	End   geometry.Point `yaml:"end"`
}

// ElementYAML represents an element. Category may be a category ID or
// name. At most one of Point and Curve may be set.
type ElementYAML struct {
	ID       string           `yaml:"id"`
	Name     string           `yaml:"name,omitempty"`
	Category string           `yaml:"category,omitempty"`
	Point    *geometry.Point  `yaml:"point,omitempty"`
	Curve    []geometry.Point `yaml:"curve,omitempty"`
}

// LoadYAML loads a project from a YAML file
func LoadYAML(path string) (*domain.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseYAML(data)
}

// ParseYAML parses a project from YAML bytes
func ParseYAML(data []byte) (*domain.Project, error) {
	var yamlData ProjectYAML
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertYAMLToProject(&yamlData)
}

func convertYAMLToProject(y *ProjectYAML) (*domain.Project, error) {
	project := &domain.Project{}

	// Categories are addressable by ID and by name
	categories := make(map[string]*domain.Category)
	for i, c := range y.Categories {
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("category %d: id and name are required", i)
		}
		if _, dup := categories[c.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.ID)
		}
		if _, dup := categories[c.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", c.Name)
		}

		kind, err := parseCategoryKind(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.ID, err)
		}
		bindable := kind == domain.CategoryKindModel
		if c.Bindable != nil {
			bindable = *c.Bindable
		}

		cat := &domain.Category{ID: c.ID, Name: c.Name, Kind: kind, AllowsBoundParameters: bindable}
		categories[c.ID] = cat
		categories[c.Name] = cat
		project.Categories = append(project.Categories, cat)
	}

	gridIDs := make(map[string]bool)
	for i, g := range y.Grids {
		if g.Name == "" {
			return nil, fmt.Errorf("grid %d: name is required", i)
		}
		id := g.ID
		if id == "" {
			id = "grid-" + g.Name
		}
		if gridIDs[id] {
			return nil, fmt.Errorf("duplicate grid %q", id)
		}
		gridIDs[id] = true

		project.Grids = append(project.Grids, domain.Line{
			ID:      id,
			Name:    g.Name,
			Segment: geometry.Segment{Start: g.Start, End: g.End},
		})
	}

	elementIDs := make(map[string]bool)
	for i, e := range y.Elements {
		if e.ID == "" {
			return nil, fmt.Errorf("element %d: id is required", i)
		}
		if elementIDs[e.ID] {
			return nil, fmt.Errorf("duplicate element %q", e.ID)
		}
		elementIDs[e.ID] = true

		element := &domain.Element{ID: e.ID, Name: e.Name}
		if e.Category != "" {
			cat, ok := categories[e.Category]
			if !ok {
				return nil, fmt.Errorf("element %s: unknown category %q", e.ID, e.Category)
			}
			element.Category = cat
		}

		switch {
		case e.Point != nil && len(e.Curve) > 0:
			return nil, fmt.Errorf("element %s: point and curve are exclusive", e.ID)
		case e.Point != nil:
			element.Location = domain.PointLocation{Point: *e.Point}
		case len(e.Curve) == 1:
			return nil, fmt.Errorf("element %s: curve needs at least two points", e.ID)
		case len(e.Curve) > 1:
			element.Location = domain.CurveLocation{Curve: geometry.Curve{Points: e.Curve}}
		}

		project.Elements = append(project.Elements, element)
	}

	return project, nil
}

func parseCategoryKind(s string) (domain.CategoryKind, error) {
	switch strings.ToLower(s) {
	case "", string(domain.CategoryKindModel):
		return domain.CategoryKindModel, nil
	case string(domain.CategoryKindAnnotation):
		return domain.CategoryKindAnnotation, nil
	default:
		return "", fmt.Errorf("unknown category kind %q", s)
	}
}

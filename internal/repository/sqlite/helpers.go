package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gridmark/internal/domain"
	"gridmark/internal/geometry"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullToBool converts sql.NullInt64 to bool (0 = false, non-zero = true)
func nullToBool(ni sql.NullInt64) bool {
	return ni.Valid && ni.Int64 != 0
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// boolToInt stores booleans the way SQLite expects
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals interface to nullable JSON string
// Returns empty NullString for nil
func marshalToNull(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to the elements table:
// 1. Add field to elementRow struct (below)
// 2. Update scanArgs() - APPEND to end to match column order
// 3. Update elementColumns constant - APPEND to end
// 4. Update toDomain() to map new field to domain.Element
// 5. Update elementInsertArgs() and the upsert in ImportProject
// 6. Add the column to migrate() in sqlite.go
// 7. Update relevant tests
//
// CRITICAL: Column order must match between:
// - elementColumns constant
// - scanArgs() return slice
// - All SELECT queries using elementColumns
//
// Same pattern applies to categories, grid lines and bindings.

// ============================================================================
// Category Row Scanner
// ============================================================================

// categoryRow holds all columns from a category query for scanning
type categoryRow struct {
	ID                    string
	Name                  string
	Kind                  string
	AllowsBoundParameters sql.NullInt64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match categoryColumns order exactly:
// id, name, kind, allows_bound_parameters
func (r *categoryRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,                    // 1
		&r.Name,                  // 2
		&r.Kind,                  // 3
		&r.AllowsBoundParameters, // 4
	}
}

// toDomain converts the scanned row to a domain.Category
func (r *categoryRow) toDomain() *domain.Category {
	return &domain.Category{
		ID:                    r.ID,
		Name:                  r.Name,
		Kind:                  domain.CategoryKind(r.Kind),
		AllowsBoundParameters: nullToBool(r.AllowsBoundParameters),
	}
}

// categoryColumns returns the SELECT column list for category queries
const categoryColumns = `c.id, c.name, c.kind, c.allows_bound_parameters`

// categoryInsertArgs prepares arguments for category INSERT/UPSERT
// Returns: id, name, kind, allows_bound_parameters, seq
func categoryInsertArgs(c *domain.Category, seq int) []interface{} {
	kind := c.Kind
	if kind == "" {
		kind = domain.CategoryKindModel
	}
	return []interface{}{
		c.ID,
		c.Name,
		string(kind),
		boolToInt(c.AllowsBoundParameters),
		seq,
	}
}

// ============================================================================
// Grid Line Row Scanner
// ============================================================================

// lineRow holds all columns from a grid line query for scanning
type lineRow struct {
	ID                     string
	Name                   string
	StartX, StartY, StartZ float64
	EndX, EndY, EndZ       float64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match lineColumns order exactly:
// id, name, start_x, start_y, start_z, end_x, end_y, end_z
func (r *lineRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,     // 1
		&r.Name,   // 2
		&r.StartX, // 3
		&r.StartY, // 4
		&r.StartZ, // 5
		&r.EndX,   // 6
		&r.EndY,   // 7
		&r.EndZ,   // 8
	}
}

// toDomain converts the scanned row to a domain.Line
func (r *lineRow) toDomain() domain.Line {
	return domain.Line{
		ID:   r.ID,
		Name: r.Name,
		Segment: geometry.Segment{
			Start: geometry.Point{X: r.StartX, Y: r.StartY, Z: r.StartZ},
			End:   geometry.Point{X: r.EndX, Y: r.EndY, Z: r.EndZ},
		},
	}
}

// lineColumns returns the column list for grid line queries
const lineColumns = `id, name, start_x, start_y, start_z, end_x, end_y, end_z`

// lineInsertArgs prepares arguments for grid line INSERT
// Returns: id, name, start_x, start_y, start_z, end_x, end_y, end_z
func lineInsertArgs(l domain.Line) []interface{} {
	s, e := l.Segment.Start, l.Segment.End
	return []interface{}{l.ID, l.Name, s.X, s.Y, s.Z, e.X, e.Y, e.Z}
}

// ============================================================================
// Element Row Scanner
// ============================================================================

// elementRow holds all columns from an element query for scanning
type elementRow struct {
	ID                    string
	Name                  sql.NullString
	CategoryID            sql.NullString
	CategoryName          sql.NullString
	CategoryKind          sql.NullString
	AllowsBoundParameters sql.NullInt64
	LocationKind          sql.NullString
	LocationJSON          sql.NullString
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match elementColumns order exactly:
// id, name, category id, category name, category kind,
// allows_bound_parameters, location_kind, location
func (r *elementRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,                    // 1
		&r.Name,                  // 2
		&r.CategoryID,            // 3
		&r.CategoryName,          // 4
		&r.CategoryKind,          // 5
		&r.AllowsBoundParameters, // 6
		&r.LocationKind,          // 7
		&r.LocationJSON,          // 8
	}
}

// toDomain converts the scanned row to a domain.Element
func (r *elementRow) toDomain() (*domain.Element, error) {
	e := &domain.Element{
		ID:   r.ID,
		Name: nullToString(r.Name),
	}

	if r.CategoryID.Valid {
		e.Category = &domain.Category{
			ID:                    r.CategoryID.String,
			Name:                  nullToString(r.CategoryName),
			Kind:                  domain.CategoryKind(nullToString(r.CategoryKind)),
			AllowsBoundParameters: nullToBool(r.AllowsBoundParameters),
		}
	}

	switch domain.LocationKind(nullToString(r.LocationKind)) {
	case domain.LocationKindPoint:
		var p geometry.Point
		if err := unmarshalJSONField(r.LocationJSON, &p); err != nil {
			return nil, fmt.Errorf("unmarshal point location: %w", err)
		}
		e.Location = domain.PointLocation{Point: p}
	case domain.LocationKindCurve:
		var c geometry.Curve
		if err := unmarshalJSONField(r.LocationJSON, &c); err != nil {
			return nil, fmt.Errorf("unmarshal curve location: %w", err)
		}
		e.Location = domain.CurveLocation{Curve: c}
	}

	return e, nil
}

// elementColumns returns the SELECT column list for element queries
const elementColumns = `e.id, e.name, c.id, c.name, c.kind,
	c.allows_bound_parameters, e.location_kind, e.location`

// elementInsertArgs prepares arguments for element INSERT/UPSERT
// Returns: id, name, category_id, location_kind, location, seq
func elementInsertArgs(e *domain.Element, seq int) ([]interface{}, error) {
	var (
		kind     domain.LocationKind
		location interface{}
	)
	switch loc := e.Location.(type) {
	case domain.PointLocation:
		kind, location = domain.LocationKindPoint, loc.Point
	case *domain.PointLocation:
		if loc != nil {
			kind, location = domain.LocationKindPoint, loc.Point
		}
	case domain.CurveLocation:
		kind, location = domain.LocationKindCurve, loc.Curve
	case *domain.CurveLocation:
		if loc != nil {
			kind, location = domain.LocationKindCurve, loc.Curve
		}
	}

	locationJSON, err := marshalToNull(location)
	if err != nil {
		return nil, fmt.Errorf("marshal location: %w", err)
	}

	var categoryID sql.NullString
	if e.Category != nil {
		categoryID = stringToNull(e.Category.ID)
	}

	return []interface{}{
		e.ID,
		stringToNull(e.Name),
		categoryID,
		stringToNull(string(kind)),
		locationJSON,
		seq,
	}, nil
}

// ============================================================================
// Binding Row Scanner
// ============================================================================

// bindingRow holds all columns from a binding query for scanning
type bindingRow struct {
	DefinitionGUID string
	DefinitionName string
	Kind           string
	ParameterGroup string
	UpdatedAt      int64
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match bindingColumns order exactly:
// definition_guid, definition name, kind, parameter_group, updated_at
func (r *bindingRow) scanArgs() []interface{} {
	return []interface{}{
		&r.DefinitionGUID, // 1
		&r.DefinitionName, // 2
		&r.Kind,           // 3
		&r.ParameterGroup, // 4
		&r.UpdatedAt,      // 5
	}
}

// toDomain converts the scanned row to a domain.FieldBinding without categories
func (r *bindingRow) toDomain() (*domain.FieldBinding, error) {
	guid, err := uuid.Parse(r.DefinitionGUID)
	if err != nil {
		return nil, fmt.Errorf("parse definition guid %q: %w", r.DefinitionGUID, err)
	}
	return &domain.FieldBinding{
		DefinitionGUID: guid,
		DefinitionName: r.DefinitionName,
		Kind:           domain.BindingKind(r.Kind),
		ParameterGroup: domain.ParameterGroup(r.ParameterGroup),
		UpdatedAt:      time.Unix(r.UpdatedAt, 0),
	}, nil
}

// bindingColumns returns the SELECT column list for binding queries
const bindingColumns = `b.definition_guid, d.name, b.kind, b.parameter_group, b.updated_at`

// Package domain defines the core domain types for gridmark, the grid-based
// element numbering tool.
//
// This package contains the entities and value objects that describe a
// building model as far as numbering is concerned: reference grid lines,
// located elements, categories, and the metadata field definitions and
// bindings used to store results on elements.
//
// # Core Types
//
// Line is a named reference grid line. GridGroup is an immutable, ordered
// set of lines sharing one orientation (Horizontal or Vertical).
//
// Element is a model element with a category and a Location. Location is a
// tagged variant: PointLocation for point-hosted elements (columns, fixtures)
// and CurveLocation for curve-driven ones (walls, beams, pipes).
//
// # Field Schema
//
// FieldDefinition describes a named, typed metadata slot held in the shared
// definition file. FieldBinding attaches a definition to a CategorySet,
// making the field available on every element of those categories.
//
// # Design Principles
//
// - Immutable value objects where possible
// - No database or file access
// - Absence is reported with (value, ok) returns, not errors
package domain

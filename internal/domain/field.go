package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ParameterType is the value type of a field definition
type ParameterType string

const (
	ParameterTypeText ParameterType = "text"
)

// ParameterGroup is the section a bound field is shown under on an element
type ParameterGroup string

const (
	ParameterGroupIdentityData ParameterGroup = "PG_IDENTITY_DATA"
	ParameterGroupData         ParameterGroup = "PG_DATA"
	ParameterGroupText         ParameterGroup = "PG_TEXT"
)

// BindingKind says whether a field lives on instances or on types. Only
// instance bindings are created.
type BindingKind string

const BindingKindInstance BindingKind = "instance"

// DefaultDefinitionGroup is the definition-file group new fields are created in
const DefaultDefinitionGroup = "Shared Parameters"

// FieldDefinition is a named, typed metadata slot from the shared
// definition file. Identity is the exact, case-sensitive Name.
type FieldDefinition struct {
	GUID  uuid.UUID     `json:"guid" yaml:"guid"`
	Name  string        `json:"name" yaml:"name"`
	Type  ParameterType `json:"type" yaml:"type"`
	Group string        `json:"group" yaml:"-"`
}

// NewFieldDefinition creates a definition with a fresh GUID
func NewFieldDefinition(name string, paramType ParameterType, group string) *FieldDefinition {
	return &FieldDefinition{
		GUID:  uuid.New(),
		Name:  name,
		Type:  paramType,
		Group: group,
	}
}

// CategorySet is an insertion-ordered set of categories keyed by ID
type CategorySet struct {
	order []string
	byID  map[string]*Category
}

// NewCategorySet creates an empty set
func NewCategorySet() *CategorySet {
	return &CategorySet{byID: make(map[string]*Category)}
}

// Insert adds a category. It fails with ErrCategoryNotBindable for nil
// categories and categories that do not allow bound parameters. Inserting
// a category already present is a no-op.
func (s *CategorySet) Insert(c *Category) error {
	if c == nil {
		return fmt.Errorf("nil category: %w", ErrCategoryNotBindable)
	}
	if !c.AllowsBoundParameters {
		return fmt.Errorf("category %q: %w", c.Name, ErrCategoryNotBindable)
	}
	if s.Contains(c.ID) {
		return nil
	}
	s.byID[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Contains reports whether a category ID is in the set
func (s *CategorySet) Contains(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// IsEmpty reports whether the set has no categories
func (s *CategorySet) IsEmpty() bool {
	return len(s.order) == 0
}

// Len returns the number of categories
func (s *CategorySet) Len() int {
	return len(s.order)
}

// IDs returns category IDs in insertion order
func (s *CategorySet) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// FieldBinding attaches a definition to a set of categories
type FieldBinding struct {
	DefinitionGUID uuid.UUID      `json:"definition_guid" yaml:"definition_guid"`
	DefinitionName string         `json:"definition_name" yaml:"definition_name"`
	Kind           BindingKind    `json:"kind" yaml:"kind"`
	ParameterGroup ParameterGroup `json:"parameter_group" yaml:"parameter_group"`
	CategoryIDs    []string       `json:"category_ids" yaml:"category_ids"`
	UpdatedAt      time.Time      `json:"updated_at" yaml:"updated_at"`
}

// NewInstanceBinding binds def to every category in set
func NewInstanceBinding(def *FieldDefinition, set *CategorySet, group ParameterGroup) *FieldBinding {
	return &FieldBinding{
		DefinitionGUID: def.GUID,
		DefinitionName: def.Name,
		Kind:           BindingKindInstance,
		ParameterGroup: group,
		CategoryIDs:    set.IDs(),
	}
}

package service

import (
	"context"
	"fmt"

	"gridmark/internal/definitions"
	"gridmark/internal/domain"
	"gridmark/internal/repository"
	"gridmark/internal/schema"
)

// FieldInfo is a definition from the shared file with its state in the
// document
type FieldInfo struct {
	Definition domain.FieldDefinition `json:"definition" yaml:"definition"`
	Registered bool                   `json:"registered" yaml:"registered"`
	Binding    *domain.FieldBinding   `json:"binding,omitempty" yaml:"binding,omitempty"`
}

// FieldGroup is a definition-file group. Groups with no definitions yet
// have no Fields.
type FieldGroup struct {
	Name   string      `json:"name" yaml:"name"`
	Fields []FieldInfo `json:"fields" yaml:"fields"`
}

// FieldService reports the shared definition file against the document
type FieldService struct {
	opener schema.DefinitionFileOpener
	doc    repository.Document
}

// NewFieldService creates a field service
func NewFieldService(opener schema.DefinitionFileOpener, doc repository.Document) *FieldService {
	return &FieldService{opener: opener, doc: doc}
}

// ListFields returns every group in file order with its definitions and
// their bindings
func (s *FieldService) ListFields(ctx context.Context) ([]FieldGroup, error) {
	file, err := s.opener.OpenDefinitionFile()
	if err != nil {
		return nil, err
	}

	groups := file.Groups()
	out := make([]FieldGroup, 0, len(groups))
	for _, g := range groups {
		fg := FieldGroup{Name: g.Name, Fields: make([]FieldInfo, 0, len(g.Definitions))}
		for _, def := range g.Definitions {
			info, err := s.fieldInfo(ctx, def)
			if err != nil {
				return nil, err
			}
			fg.Fields = append(fg.Fields, info)
		}
		out = append(out, fg)
	}
	return out, nil
}

func (s *FieldService) fieldInfo(ctx context.Context, def domain.FieldDefinition) (FieldInfo, error) {
	registered, err := s.doc.GetDefinition(ctx, def.GUID)
	if err != nil {
		return FieldInfo{}, fmt.Errorf("definition %q: %w", def.Name, err)
	}
	binding, err := s.doc.GetBinding(ctx, def.GUID)
	if err != nil {
		return FieldInfo{}, fmt.Errorf("binding of %q: %w", def.Name, err)
	}
	return FieldInfo{Definition: def, Registered: registered != nil, Binding: binding}, nil
}

// InitDefinitionFile creates a shared definition file at path holding one
// empty group. An empty group name means the default group.
func InitDefinitionFile(path, group string) error {
	if path == "" {
		return fmt.Errorf("definition file path: %w", domain.ErrNotConfigured)
	}
	if group == "" {
		group = domain.DefaultDefinitionGroup
	}

	file, err := definitions.Create(path)
	if err != nil {
		return err
	}
	if _, err := file.UpsertGroup(group); err != nil {
		return fmt.Errorf("create group %q: %w", group, err)
	}
	return nil
}

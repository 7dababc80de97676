// Package schema makes sure the fields a numbering run writes exist in the
// shared definition file and are bound to the categories being numbered.
package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gridmark/internal/definitions"
	"gridmark/internal/domain"
	"gridmark/internal/repository"
)

// DefinitionFileOpener opens the shared definition file. Implementations
// return an error wrapping domain.ErrNotConfigured when no file is available.
type DefinitionFileOpener interface {
	OpenDefinitionFile() (*definitions.File, error)
}

// Options configures a Manager
type Options struct {
	// Group is the definition-file group new fields are created in
	Group string

	// ParameterGroup is where bound fields appear on elements
	ParameterGroup domain.ParameterGroup

	Logger *slog.Logger
}

// Manager ensures field definitions and their category bindings
type Manager struct {
	opener         DefinitionFileOpener
	doc            repository.Document
	group          string
	parameterGroup domain.ParameterGroup
	logger         *slog.Logger
}

// NewManager creates a Manager. Zero options fall back to the
// "Shared Parameters" group and the identity-data parameter group.
func NewManager(opener DefinitionFileOpener, doc repository.Document, opts Options) *Manager {
	m := &Manager{
		opener:         opener,
		doc:            doc,
		group:          opts.Group,
		parameterGroup: opts.ParameterGroup,
		logger:         opts.Logger,
	}
	if m.group == "" {
		m.group = domain.DefaultDefinitionGroup
	}
	if m.parameterGroup == "" {
		m.parameterGroup = domain.ParameterGroupIdentityData
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "schema")
	return m
}

// EnsureFieldDefinition returns the definition called name from the shared
// definition file, creating a text definition in the manager's group when
// no group holds one. Creation runs in its own scoped transaction, which
// joins a transaction already carried by ctx.
func (m *Manager) EnsureFieldDefinition(ctx context.Context, name string) (*domain.FieldDefinition, error) {
	file, err := m.opener.OpenDefinitionFile()
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return nil, err
		}
		return nil, fmt.Errorf("open definition file: %w", err)
	}

	if def, ok := file.FindDefinition(name); ok {
		m.logger.Debug("field definition found", "name", name, "guid", def.GUID)
		return def, nil
	}

	var def *domain.FieldDefinition
	err = m.doc.Transact(ctx, "Create Shared Parameter: "+name, func(ctx context.Context) error {
		created, isNew, err := file.EnsureDefinition(m.group, name, domain.ParameterTypeText)
		if err != nil {
			return fmt.Errorf("create definition %q: %w", name, err)
		}
		if err := m.doc.RegisterDefinition(ctx, created); err != nil {
			return err
		}
		if isNew {
			m.logger.Info("field definition created", "name", name, "group", m.group, "guid", created.GUID)
		}
		def = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// BindToCategories binds def to every bindable category, replacing any
// existing binding of def. Nil categories and categories that do not allow
// bound parameters are skipped. It returns false only when def is nil; an
// empty category set still commits and leaves the binding untouched.
func (m *Manager) BindToCategories(ctx context.Context, def *domain.FieldDefinition, categories []*domain.Category) (bool, error) {
	if def == nil {
		return false, nil
	}

	err := m.doc.Transact(ctx, "Bind Shared Parameter: "+def.Name, func(ctx context.Context) error {
		set := domain.NewCategorySet()
		for _, c := range categories {
			if err := set.Insert(c); err != nil {
				m.logger.Debug("category binding skipped", "field", def.Name, "error", err)
				continue
			}
		}

		if set.IsEmpty() {
			m.logger.Debug("no bindable categories", "field", def.Name)
			return nil
		}

		if err := m.doc.RegisterDefinition(ctx, def); err != nil {
			return err
		}

		existing, err := m.doc.GetBinding(ctx, def.GUID)
		if err != nil {
			return err
		}

		binding := domain.NewInstanceBinding(def, set, m.parameterGroup)
		if existing == nil {
			err = m.doc.InsertBinding(ctx, binding)
		} else {
			err = m.doc.ReInsertBinding(ctx, binding)
		}
		if err != nil {
			return err
		}

		m.logger.Debug("field bound", "field", def.Name, "categories", binding.CategoryIDs, "replaced", existing != nil)
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

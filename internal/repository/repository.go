package repository

import (
	"context"

	"github.com/google/uuid"

	"gridmark/internal/domain"
)

// TxFunc runs inside a scoped transaction. Repository calls made with the
// ctx it receives take part in that transaction.
type TxFunc func(ctx context.Context) error

// ElementSource provides the model's reference grids and elements
type ElementSource interface {
	// GridLines returns every reference grid line in enumeration order
	GridLines(ctx context.Context) ([]domain.Line, error)

	// ListElements returns elements in enumeration order. A non-empty
	// categoryName keeps only elements of that category.
	ListElements(ctx context.Context, categoryName string) ([]*domain.Element, error)

	// GetElement returns nil, nil when the element does not exist
	GetElement(ctx context.Context, id string) (*domain.Element, error)

	// ListCategories returns model categories with at least one element,
	// sorted by name
	ListCategories(ctx context.Context) ([]domain.CategoryUsage, error)
}

// Document is the metadata side of the model: registered definitions,
// bindings and per-element field values, all written inside scoped
// transactions.
type Document interface {
	// Transact runs fn in a transaction named name. When ctx already
	// carries a transaction fn joins it and Transact neither commits nor
	// rolls back; the outermost scope decides.
	Transact(ctx context.Context, name string, fn TxFunc) error

	// RegisterDefinition records a definition in the document (upsert by GUID)
	RegisterDefinition(ctx context.Context, def *domain.FieldDefinition) error

	// GetDefinition returns nil, nil when the definition is not registered
	GetDefinition(ctx context.Context, guid uuid.UUID) (*domain.FieldDefinition, error)

	// GetBinding returns nil, nil when the definition is unbound
	GetBinding(ctx context.Context, guid uuid.UUID) (*domain.FieldBinding, error)
	ListBindings(ctx context.Context) ([]domain.FieldBinding, error)
	InsertBinding(ctx context.Context, binding *domain.FieldBinding) error
	ReInsertBinding(ctx context.Context, binding *domain.FieldBinding) error

	// IsFieldBound reports whether a field of that name is bound to the category
	IsFieldBound(ctx context.Context, fieldName, categoryID string) (bool, error)

	SetFieldValue(ctx context.Context, elementID, fieldName, value string) error
	GetFieldValue(ctx context.Context, elementID, fieldName string) (string, bool, error)
}

// Repository is the full model store
type Repository interface {
	ElementSource
	Document

	// ImportProject replaces categories, grids and elements with the project
	ImportProject(ctx context.Context, project *domain.Project) error

	// Close releases resources
	Close() error
}

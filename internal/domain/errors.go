package domain

import "errors"

var (
	// ErrNotConfigured means no shared definition file is available.
	// It aborts a numbering run before any writes.
	ErrNotConfigured = errors.New("no shared definition file configured")

	// ErrCategoryNotBindable is returned by CategorySet.Insert for
	// categories that cannot carry bound fields.
	ErrCategoryNotBindable = errors.New("category does not allow bound parameters")

	// ErrEmptySelection means no elements were chosen for numbering
	ErrEmptySelection = errors.New("no elements were selected for numbering")

	// ErrMissingReference means no start element was chosen for numbering
	ErrMissingReference = errors.New("no start element was selected for numbering")

	// ErrElementNotFound is returned when an element ID does not exist
	ErrElementNotFound = errors.New("element not found")
)

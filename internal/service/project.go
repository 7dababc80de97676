package service

import (
	"context"
	"fmt"
	"log/slog"

	"gridmark/internal/domain"
	"gridmark/internal/loader"
	"gridmark/internal/repository"
)

// ImportResult represents the result of an import operation
type ImportResult struct {
	Categories int `json:"categories"`
	Grids      int `json:"grids"`
	Elements   int `json:"elements"`
}

// ProjectStore is the part of the repository a ProjectService needs
type ProjectStore interface {
	repository.ElementSource
	ImportProject(ctx context.Context, project *domain.Project) error
}

// ProjectService loads project snapshots into the model and lists what the
// model holds
type ProjectService struct {
	store    ProjectStore
	eventBus *EventBus
	logger   *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(store ProjectStore, eventBus *EventBus, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{
		store:    store,
		eventBus: eventBus,
		logger:   logger.With("component", "project"),
	}
}

// ImportFile loads a project YAML file into the model
func (s *ProjectService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	project, err := loader.LoadYAML(path)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", path, err)
	}
	return s.Import(ctx, project)
}

// Import replaces the model's categories, grids and elements
func (s *ProjectService) Import(ctx context.Context, project *domain.Project) (*ImportResult, error) {
	if err := s.store.ImportProject(ctx, project); err != nil {
		return nil, err
	}

	result := &ImportResult{
		Categories: len(project.Categories),
		Grids:      len(project.Grids),
		Elements:   len(project.Elements),
	}
	s.eventBus.Publish(Event{Type: EventProjectImported, Payload: result})
	return result, nil
}

// Categories returns the model categories that have elements, sorted by name
func (s *ProjectService) Categories(ctx context.Context) ([]domain.CategoryUsage, error) {
	return s.store.ListCategories(ctx)
}

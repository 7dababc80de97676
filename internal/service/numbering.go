package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gridmark/internal/domain"
	"gridmark/internal/grid"
	"gridmark/internal/numbering"
	"gridmark/internal/repository"
	"gridmark/internal/schema"
)

// FieldNames are the element fields a numbering run writes
type FieldNames struct {
	GridSquare string
	Number     string
}

// DefaultFieldNames returns "Grid Square" and "Number"
func DefaultFieldNames() FieldNames {
	return FieldNames{GridSquare: domain.FieldGridSquare, Number: domain.FieldNumber}
}

// NumberingRequest selects what a run numbers
type NumberingRequest struct {
	// Category restricts the batch to elements of one category
	Category string

	// ElementIDs picks the batch in this order. Empty means every element
	// of Category in model order.
	ElementIDs []string

	// StartElementID is the reference element; it must exist and belong to
	// Category when one is given
	StartElementID string
}

// NumberingProgress is the payload of EventNumberingProgress
type NumberingProgress struct {
	Ordinal int     `json:"ordinal"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
	Text    string  `json:"text"`
}

// NumberingService numbers elements by grid position
type NumberingService struct {
	source   repository.ElementSource
	doc      repository.Document
	schema   *schema.Manager
	fields   FieldNames
	eventBus *EventBus
	logger   *slog.Logger
}

// NewNumberingService creates a numbering service
func NewNumberingService(source repository.ElementSource, doc repository.Document, manager *schema.Manager, fields FieldNames, eventBus *EventBus, logger *slog.Logger) *NumberingService {
	if fields.GridSquare == "" {
		fields.GridSquare = domain.FieldGridSquare
	}
	if fields.Number == "" {
		fields.Number = domain.FieldNumber
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NumberingService{
		source:   source,
		doc:      doc,
		schema:   manager,
		fields:   fields,
		eventBus: eventBus,
		logger:   logger.With("component", "numbering"),
	}
}

// Run numbers the selected elements. Field definitions, bindings and values
// are all written in one "Number Elements" transaction: a failure leaves the
// document unchanged. progress may be nil.
func (s *NumberingService) Run(ctx context.Context, req NumberingRequest, progress numbering.ProgressFunc) (*domain.NumberingResult, error) {
	elements, err := s.selectElements(ctx, req)
	if err != nil {
		return nil, err
	}
	start, err := s.startElement(ctx, req)
	if err != nil {
		return nil, err
	}

	lines, err := s.source.GridLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load grid lines: %w", err)
	}
	g := grid.New(lines)
	for _, group := range []domain.GridGroup{g.Horizontal, g.Vertical} {
		s.logger.Debug("grid lines classified", "orientation", group.Orientation(), "lines", group.Names())
	}
	if !g.IsComplete() {
		s.logger.Warn("grid is incomplete, no labels will be resolved",
			"horizontal", g.Horizontal.Len(), "vertical", g.Vertical.Len())
	}

	s.eventBus.Publish(Event{
		Type:    EventNumberingStarted,
		Payload: map[string]interface{}{"elements": len(elements), "start_element_id": start.ID},
	})

	result := &domain.NumberingResult{StartElementID: start.ID}
	err = s.doc.Transact(ctx, "Number Elements", func(ctx context.Context) error {
		if err := s.ensureFields(ctx, elements); err != nil {
			return err
		}

		total := len(elements)
		return numbering.Walk(elements, func(o numbering.Ordinal) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			entry, err := s.write(ctx, g, o)
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, entry)
			return nil
		}, func(percent float64) {
			n := len(result.Entries)
			s.logger.Debug("progress", "element", n, "total", total, "percent", numbering.PercentText(percent))
			s.eventBus.Publish(Event{
				Type:    EventNumberingProgress,
				Payload: NumberingProgress{Ordinal: n, Total: total, Percent: percent, Text: numbering.PercentText(percent)},
			})
			if progress != nil {
				progress(percent)
			}
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("elements numbered",
		"count", len(result.Entries),
		"unlabeled", result.Unlabeled(),
		"start", start.ID)
	s.eventBus.Publish(Event{Type: EventNumberingFinished, Payload: result})
	return result, nil
}

// selectElements resolves the batch, keeping the requested order
func (s *NumberingService) selectElements(ctx context.Context, req NumberingRequest) ([]*domain.Element, error) {
	if len(req.ElementIDs) == 0 {
		if req.Category == "" {
			return nil, domain.ErrEmptySelection
		}
		elements, err := s.source.ListElements(ctx, req.Category)
		if err != nil {
			return nil, fmt.Errorf("list elements: %w", err)
		}
		if len(elements) == 0 {
			return nil, fmt.Errorf("category %q: %w", req.Category, domain.ErrEmptySelection)
		}
		return elements, nil
	}

	elements := make([]*domain.Element, 0, len(req.ElementIDs))
	for _, id := range req.ElementIDs {
		e, err := s.source.GetElement(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get element %s: %w", id, err)
		}
		if e == nil {
			return nil, fmt.Errorf("element %s: %w", id, domain.ErrElementNotFound)
		}
		if req.Category != "" && e.CategoryName() != req.Category {
			return nil, fmt.Errorf("element %s is not in category %q: %w", id, req.Category, domain.ErrElementNotFound)
		}
		elements = append(elements, e)
	}
	return elements, nil
}

func (s *NumberingService) startElement(ctx context.Context, req NumberingRequest) (*domain.Element, error) {
	if req.StartElementID == "" {
		return nil, domain.ErrMissingReference
	}
	e, err := s.source.GetElement(ctx, req.StartElementID)
	if err != nil {
		return nil, fmt.Errorf("get start element: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("start element %s does not exist: %w", req.StartElementID, domain.ErrMissingReference)
	}
	if req.Category != "" && e.CategoryName() != req.Category {
		return nil, fmt.Errorf("start element %s is not in category %q: %w", req.StartElementID, req.Category, domain.ErrMissingReference)
	}
	return e, nil
}

// ensureFields creates and binds every field before any value is written
func (s *NumberingService) ensureFields(ctx context.Context, elements []*domain.Element) error {
	categories := distinctCategories(elements)

	for _, name := range []string{s.fields.GridSquare, s.fields.Number} {
		def, err := s.schema.EnsureFieldDefinition(ctx, name)
		if err != nil {
			return err
		}
		if _, err := s.schema.BindToCategories(ctx, def, categories); err != nil {
			return fmt.Errorf("bind %q: %w", name, err)
		}
		s.eventBus.Publish(Event{
			Type:    EventFieldBound,
			Payload: map[string]interface{}{"field": name, "categories": len(categories)},
		})
	}
	return nil
}

// write stores the ordinal and label on one element. A field is only
// written when it is bound to the element's category.
func (s *NumberingService) write(ctx context.Context, g *grid.Grid, o numbering.Ordinal) (domain.NumberingEntry, error) {
	e := o.Element
	entry := domain.NumberingEntry{
		Ordinal:     o.Number,
		ElementID:   e.ID,
		ElementName: e.Name,
		Category:    e.CategoryName(),
	}

	label, ok := g.LabelFor(e)
	if ok {
		entry.Label = label
	} else {
		s.logger.Debug("no grid intersection", "element", e.ID)
	}

	if e.Category == nil {
		return entry, nil
	}

	values := []struct {
		field, value string
		skip         bool
	}{
		{s.fields.Number, strconv.Itoa(o.Number), false},
		{s.fields.GridSquare, label, !ok},
	}
	for _, v := range values {
		if v.skip {
			continue
		}
		bound, err := s.doc.IsFieldBound(ctx, v.field, e.Category.ID)
		if err != nil {
			return entry, err
		}
		if !bound {
			continue
		}
		if err := s.doc.SetFieldValue(ctx, e.ID, v.field, v.value); err != nil {
			return entry, err
		}
		entry.Fields = append(entry.Fields, v.field)
	}
	return entry, nil
}

// distinctCategories returns the elements' categories in first-seen order
func distinctCategories(elements []*domain.Element) []*domain.Category {
	seen := make(map[string]bool)
	var out []*domain.Category
	for _, e := range elements {
		if e == nil || e.Category == nil || seen[e.Category.ID] {
			continue
		}
		seen[e.Category.ID] = true
		out = append(out, e.Category)
	}
	return out
}

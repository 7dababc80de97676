package service

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmark/internal/definitions"
	"gridmark/internal/domain"
	"gridmark/internal/geometry"
	"gridmark/internal/repository/sqlite"
	"gridmark/internal/schema"
)

type harness struct {
	repo      *sqlite.Repository
	source    definitions.Source
	bus       *EventBus
	projects  *ProjectService
	numbering *NumberingService
	fields    *FieldService
}

// newHarness builds services over an in-memory model holding a 2x2 grid
// (A/B horizontal at y=0/10, 1/2 vertical at x=0/20)
func newHarness(t *testing.T) *harness {
	t.Helper()

	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	path := filepath.Join(t.TempDir(), "shared.yaml")
	require.NoError(t, InitDefinitionFile(path, ""))
	source := definitions.Source{Path: path}

	bus := NewEventBus()
	h := &harness{
		repo:     repo,
		source:   source,
		bus:      bus,
		projects: NewProjectService(repo, bus, nil),
		fields:   NewFieldService(source, repo),
	}
	h.numbering = NewNumberingService(repo, repo, schema.NewManager(source, repo, schema.Options{}), DefaultFieldNames(), bus, nil)

	_, err = h.projects.Import(context.Background(), testProject())
	require.NoError(t, err)
	return h
}

func testProject() *domain.Project {
	columns := domain.NewCategory("cat-columns", "Columns")
	walls := domain.NewCategory("cat-walls", "Walls")
	sealed := &domain.Category{ID: "cat-sealed", Name: "Sealed", Kind: domain.CategoryKindModel}

	return &domain.Project{
		Categories: []*domain.Category{columns, walls, sealed},
		Grids: []domain.Line{
			domain.NewLine("g-a", "A", 0, 0, 20, 0),
			domain.NewLine("g-b", "B", 0, 10, 20, 10),
			domain.NewLine("g-1", "1", 0, 0, 0, 10),
			domain.NewLine("g-2", "2", 20, 0, 20, 10),
		},
		Elements: []*domain.Element{
			domain.NewPointElement("col-1", columns, geometry.Pt(19, 9)),
			domain.NewPointElement("col-2", columns, geometry.Pt(1, 1)),
			{ID: "col-3", Name: "Unplaced", Category: columns},
			domain.NewCurveElement("wall-1", walls, geometry.Curve{Points: []geometry.Point{
				geometry.Pt(0, 9), geometry.Pt(20, 9),
			}}),
			domain.NewPointElement("vault", sealed, geometry.Pt(0, 0)),
		},
	}
}

// fieldsOf flattens the listing of the single default group
func fieldsOf(t *testing.T, h *harness) []FieldInfo {
	t.Helper()
	groups, err := h.fields.ListFields(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, domain.DefaultDefinitionGroup, groups[0].Name)
	return groups[0].Fields
}

func sortedCategoryIDs(b *domain.FieldBinding) []string {
	ids := append([]string(nil), b.CategoryIDs...)
	sort.Strings(ids)
	return ids
}

func value(t *testing.T, h *harness, elementID, field string) (string, bool) {
	t.Helper()
	v, ok, err := h.repo.GetFieldValue(context.Background(), elementID, field)
	require.NoError(t, err)
	return v, ok
}

func TestNumberingRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	var progress []float64
	result, err := h.numbering.Run(ctx, NumberingRequest{
		Category:       "Columns",
		StartElementID: "col-1",
	}, func(p float64) { progress = append(progress, p) })
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, "col-1", result.StartElementID)

	t.Run("ordinals follow model order", func(t *testing.T) {
		for i, want := range []string{"col-1", "col-2", "col-3"} {
			assert.Equal(t, i+1, result.Entries[i].Ordinal)
			assert.Equal(t, want, result.Entries[i].ElementID)
		}
	})

	t.Run("labels", func(t *testing.T) {
		assert.Equal(t, "2-B", result.Entries[0].Label)
		assert.Equal(t, "1-A", result.Entries[1].Label)
		assert.False(t, result.Entries[2].HasLabel())
		assert.Equal(t, 1, result.Unlabeled())
	})

	t.Run("values written", func(t *testing.T) {
		v, ok := value(t, h, "col-1", domain.FieldGridSquare)
		assert.True(t, ok)
		assert.Equal(t, "2-B", v)

		v, ok = value(t, h, "col-2", domain.FieldNumber)
		assert.True(t, ok)
		assert.Equal(t, "2", v)

		// No label: Number only
		v, ok = value(t, h, "col-3", domain.FieldNumber)
		assert.True(t, ok)
		assert.Equal(t, "3", v)
		_, ok = value(t, h, "col-3", domain.FieldGridSquare)
		assert.False(t, ok)
		assert.Equal(t, []string{domain.FieldNumber}, result.Entries[2].Fields)

		// Outside the batch
		_, ok = value(t, h, "wall-1", domain.FieldNumber)
		assert.False(t, ok)
	})

	t.Run("progress", func(t *testing.T) {
		require.Len(t, progress, 3)
		assert.InDelta(t, 100.0/3, progress[0], 1e-9)
		assert.Equal(t, 100.0, progress[2])
	})

	t.Run("single journal entry for the run", func(t *testing.T) {
		journal, err := h.repo.Journal(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Import Project", "Number Elements"}, journal)
	})
}

func TestNumberingRunExplicitSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	result, err := h.numbering.Run(ctx, NumberingRequest{
		ElementIDs:     []string{"wall-1", "col-2", "vault"},
		StartElementID: "col-2",
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.Entries, 3)
	assert.Equal(t, "wall-1", result.Entries[0].ElementID)
	assert.Equal(t, "1-B", result.Entries[0].Label, "curve midpoint (10,9) ties between 1 and 2")

	// Sealed does not allow bound parameters, so nothing is written
	assert.Equal(t, "1-A", result.Entries[2].Label)
	assert.Empty(t, result.Entries[2].Fields)
	_, ok := value(t, h, "vault", domain.FieldNumber)
	assert.False(t, ok)

	fields := fieldsOf(t, h)
	require.Len(t, fields, 2)
	for _, f := range fields {
		assert.True(t, f.Registered, f.Definition.Name)
		require.NotNil(t, f.Binding, f.Definition.Name)
		assert.Equal(t, []string{"cat-columns", "cat-walls"}, sortedCategoryIDs(f.Binding))
	}
}

func TestNumberingRunRebindsOnSecondRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.numbering.Run(ctx, NumberingRequest{Category: "Walls", StartElementID: "wall-1"}, nil)
	require.NoError(t, err)
	_, err = h.numbering.Run(ctx, NumberingRequest{Category: "Columns", StartElementID: "col-1"}, nil)
	require.NoError(t, err)

	fields := fieldsOf(t, h)
	require.Len(t, fields, 2, "definitions are created once")
	for _, f := range fields {
		assert.Equal(t, []string{"cat-columns"}, f.Binding.CategoryIDs)
	}

	// Values from the first run survive; the binding no longer covers walls
	v, ok := value(t, h, "wall-1", domain.FieldNumber)
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestNumberingRunPreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		req  NumberingRequest
		want error
	}{
		{"no selection", NumberingRequest{StartElementID: "col-1"}, domain.ErrEmptySelection},
		{"empty category", NumberingRequest{Category: "Doors", StartElementID: "col-1"}, domain.ErrEmptySelection},
		{"no start", NumberingRequest{Category: "Columns"}, domain.ErrMissingReference},
		{"unknown start", NumberingRequest{Category: "Columns", StartElementID: "ghost"}, domain.ErrMissingReference},
		{"start outside category", NumberingRequest{Category: "Columns", StartElementID: "wall-1"}, domain.ErrMissingReference},
		{"unknown element", NumberingRequest{ElementIDs: []string{"ghost"}, StartElementID: "col-1"}, domain.ErrElementNotFound},
		{"element outside category", NumberingRequest{Category: "Columns", ElementIDs: []string{"wall-1"}, StartElementID: "col-1"}, domain.ErrElementNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, err := h.numbering.Run(ctx, tt.req, nil)
			assert.ErrorIs(t, err, tt.want)

			journal, err := h.repo.Journal(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"Import Project"}, journal)
		})
	}
}

func TestNumberingRunNotConfigured(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	manager := schema.NewManager(definitions.Source{}, h.repo, schema.Options{})
	svc := NewNumberingService(h.repo, h.repo, manager, DefaultFieldNames(), nil, nil)

	_, err := svc.Run(ctx, NumberingRequest{Category: "Columns", StartElementID: "col-1"}, nil)
	require.ErrorIs(t, err, domain.ErrNotConfigured)

	_, ok := value(t, h, "col-1", domain.FieldNumber)
	assert.False(t, ok)
}

func TestNumberingRunCancelledRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := h.numbering.Run(ctx, NumberingRequest{Category: "Columns", StartElementID: "col-1"}, func(p float64) {
		cancel()
	})
	require.ErrorIs(t, err, context.Canceled)

	_, ok := value(t, h, "col-1", domain.FieldNumber)
	assert.False(t, ok, "partial writes must be rolled back")

	bindings, err := h.repo.ListBindings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, bindings)
}

func TestNumberingEvents(t *testing.T) {
	h := newHarness(t)
	events := make(chan Event, 32)
	h.bus.Subscribe(events)

	_, err := h.numbering.Run(context.Background(), NumberingRequest{Category: "Walls", StartElementID: "wall-1"}, nil)
	require.NoError(t, err)
	close(events)

	var types []EventType
	for e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []EventType{
		EventNumberingStarted,
		EventFieldBound,
		EventFieldBound,
		EventNumberingProgress,
		EventNumberingFinished,
	}, types)
}

func TestProjectServiceCategories(t *testing.T) {
	h := newHarness(t)

	usages, err := h.projects.Categories(context.Background())
	require.NoError(t, err)

	var names []string
	for _, u := range usages {
		names = append(names, u.Category.Name)
	}
	assert.Equal(t, []string{"Columns", "Sealed", "Walls"}, names)
}

func TestListFieldsShowsEmptyGroup(t *testing.T) {
	h := newHarness(t)
	assert.Empty(t, fieldsOf(t, h))
}

func TestListFieldsNotConfigured(t *testing.T) {
	h := newHarness(t)
	svc := NewFieldService(definitions.Source{}, h.repo)

	_, err := svc.ListFields(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

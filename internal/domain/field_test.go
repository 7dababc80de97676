package domain

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestNewFieldDefinition(t *testing.T) {
	def := NewFieldDefinition("Grid Square", ParameterTypeText, DefaultDefinitionGroup)

	if def.GUID == uuid.Nil {
		t.Error("expected a GUID to be assigned")
	}
	if def.Name != "Grid Square" {
		t.Errorf("expected name 'Grid Square', got %s", def.Name)
	}
	if def.Type != ParameterTypeText {
		t.Errorf("expected text type, got %s", def.Type)
	}
	if def.Group != "Shared Parameters" {
		t.Errorf("expected group 'Shared Parameters', got %s", def.Group)
	}

	other := NewFieldDefinition("Grid Square", ParameterTypeText, DefaultDefinitionGroup)
	if other.GUID == def.GUID {
		t.Error("expected distinct GUIDs")
	}
}

func TestCategorySetInsert(t *testing.T) {
	t.Run("inserts bindable categories in order", func(t *testing.T) {
		set := NewCategorySet()
		if err := set.Insert(NewCategory("walls", "Walls")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := set.Insert(NewCategory("columns", "Columns")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !reflect.DeepEqual(set.IDs(), []string{"walls", "columns"}) {
			t.Errorf("unexpected ids %v", set.IDs())
		}
		if !set.Contains("walls") || set.Contains("doors") {
			t.Error("Contains reported wrong membership")
		}
	})

	t.Run("duplicate insert is a no-op", func(t *testing.T) {
		set := NewCategorySet()
		c := NewCategory("walls", "Walls")
		_ = set.Insert(c)
		_ = set.Insert(c)
		if set.Len() != 1 {
			t.Errorf("expected 1 category, got %d", set.Len())
		}
	})

	t.Run("rejects nil and non-bindable categories", func(t *testing.T) {
		set := NewCategorySet()

		if err := set.Insert(nil); !errors.Is(err, ErrCategoryNotBindable) {
			t.Errorf("expected ErrCategoryNotBindable for nil, got %v", err)
		}

		lines := &Category{ID: "lines", Name: "Lines", Kind: CategoryKindAnnotation}
		if err := set.Insert(lines); !errors.Is(err, ErrCategoryNotBindable) {
			t.Errorf("expected ErrCategoryNotBindable, got %v", err)
		}

		if !set.IsEmpty() {
			t.Error("expected set to stay empty")
		}
	})
}

func TestNewInstanceBinding(t *testing.T) {
	def := NewFieldDefinition("Number", ParameterTypeText, DefaultDefinitionGroup)
	set := NewCategorySet()
	_ = set.Insert(NewCategory("walls", "Walls"))
	_ = set.Insert(NewCategory("beams", "Structural Framing"))

	b := NewInstanceBinding(def, set, ParameterGroupIdentityData)

	if b.DefinitionGUID != def.GUID || b.DefinitionName != "Number" {
		t.Errorf("binding does not reference definition: %+v", b)
	}
	if b.Kind != BindingKindInstance {
		t.Errorf("expected instance binding, got %s", b.Kind)
	}
	if !reflect.DeepEqual(b.CategoryIDs, []string{"walls", "beams"}) {
		t.Errorf("binding must keep insertion order: %v", b.CategoryIDs)
	}
}

func TestGridGroupIsImmutable(t *testing.T) {
	lines := []Line{NewLine("1", "A", 0, 0, 10, 0)}
	g := NewGridGroup(OrientationHorizontal, lines)

	lines[0].Name = "changed"
	if g.At(0).Name != "A" {
		t.Error("group must not alias the input slice")
	}

	if g.Orientation() != OrientationHorizontal || g.Len() != 1 || g.IsEmpty() {
		t.Errorf("unexpected group state: %+v", g)
	}
	if !reflect.DeepEqual(g.Names(), []string{"A"}) {
		t.Errorf("unexpected names %v", g.Names())
	}

	var empty GridGroup
	if !empty.IsEmpty() {
		t.Error("zero GridGroup should be empty")
	}
}

func TestNumberingResultUnlabeled(t *testing.T) {
	r := &NumberingResult{Entries: []NumberingEntry{
		{Ordinal: 1, ElementID: "a", Label: "1-A"},
		{Ordinal: 2, ElementID: "b"},
		{Ordinal: 3, ElementID: "c", Label: "2-B"},
	}}
	if got := r.Unlabeled(); got != 1 {
		t.Errorf("expected 1 unlabeled entry, got %d", got)
	}
}

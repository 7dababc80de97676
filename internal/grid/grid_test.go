package grid

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmark/internal/domain"
	"gridmark/internal/geometry"
)

// squareGrid builds letters A..C running east-west and numbers 1..3 running
// north-south, spaced 10 apart.
func squareGrid() []domain.Line {
	return []domain.Line{
		domain.NewLine("h1", "A", -5, 0, 25, 0),
		domain.NewLine("h2", "B", -5, 10, 25, 10),
		domain.NewLine("h3", "C", -5, 20, 25, 20),
		domain.NewLine("v1", "1", 0, -5, 0, 25),
		domain.NewLine("v2", "2", 10, -5, 10, 25),
		domain.NewLine("v3", "3", 20, -5, 20, 25),
	}
}

func TestClassify(t *testing.T) {
	t.Run("splits by dominant axis", func(t *testing.T) {
		h, v := Classify(squareGrid())
		assert.Equal(t, []string{"A", "B", "C"}, h.Names())
		assert.Equal(t, []string{"1", "2", "3"}, v.Names())
		assert.Equal(t, domain.OrientationHorizontal, h.Orientation())
		assert.Equal(t, domain.OrientationVertical, v.Orientation())
	})

	t.Run("direction sign does not matter", func(t *testing.T) {
		h, v := Classify([]domain.Line{
			domain.NewLine("1", "west", 10, 0, 0, 0),
			domain.NewLine("2", "south", 0, 10, 0, 0),
		})
		assert.Equal(t, []string{"west"}, h.Names())
		assert.Equal(t, []string{"south"}, v.Names())
	})

	t.Run("skewed lines follow the larger component", func(t *testing.T) {
		h, v := Classify([]domain.Line{
			domain.NewLine("1", "shallow", 0, 0, 10, 3),
			domain.NewLine("2", "steep", 0, 0, 3, 10),
		})
		assert.Equal(t, []string{"shallow"}, h.Names())
		assert.Equal(t, []string{"steep"}, v.Names())
	})

	t.Run("diagonal tie goes vertical", func(t *testing.T) {
		h, v := Classify([]domain.Line{domain.NewLine("d", "D", 0, 0, 5, -5)})
		assert.True(t, h.IsEmpty())
		assert.Equal(t, []string{"D"}, v.Names())
	})

	t.Run("zero vector goes vertical", func(t *testing.T) {
		h, v := Classify([]domain.Line{domain.NewLine("z", "Z", 3, 3, 3, 3)})
		assert.True(t, h.IsEmpty())
		assert.Equal(t, 1, v.Len())
	})

	t.Run("empty input gives empty groups", func(t *testing.T) {
		h, v := Classify(nil)
		assert.True(t, h.IsEmpty())
		assert.True(t, v.IsEmpty())
	})

	t.Run("partition is total and exclusive", func(t *testing.T) {
		rng := rand.New(rand.NewSource(42))
		for round := 0; round < 50; round++ {
			n := rng.Intn(20)
			lines := make([]domain.Line, n)
			for i := range lines {
				lines[i] = domain.NewLine(fmt.Sprintf("l%d", i), fmt.Sprintf("L%d", i),
					rng.Float64()*100-50, rng.Float64()*100-50,
					rng.Float64()*100-50, rng.Float64()*100-50)
			}

			h, v := Classify(lines)
			require.Equal(t, n, h.Len()+v.Len())

			seen := make(map[string]int)
			for _, l := range linesOf(h) {
				seen[l.ID]++
			}
			for _, l := range linesOf(v) {
				seen[l.ID]++
			}
			require.Len(t, seen, n)
			for id, count := range seen {
				require.Equal(t, 1, count, "line %s classified %d times", id, count)
			}
		}
	})
}

func TestNearestIntersection(t *testing.T) {
	h, v := Classify(squareGrid())

	tests := []struct {
		name  string
		point geometry.Point
		want  string
	}{
		{"exact intersection", geometry.Pt(10, 10), "2-B"},
		{"origin", geometry.Pt(0, 0), "1-A"},
		{"near top right", geometry.Pt(18, 21), "3-C"},
		{"between lines rounds to nearer", geometry.Pt(6, 3), "2-A"},
		{"outside the grid", geometry.Pt(40, -30), "3-A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := NearestIntersection(tt.point, h, v)
			require.True(t, ok)
			assert.Equal(t, tt.want, label)
		})
	}
}

func TestNearestIntersectionTieBreak(t *testing.T) {
	h, v := Classify([]domain.Line{
		domain.NewLine("h1", "A", -10, 0, 10, 0),
		domain.NewLine("h2", "B", -10, 10, 10, 10),
		domain.NewLine("v1", "1", 0, -10, 0, 20),
		domain.NewLine("v2", "2", 10, -10, 10, 20),
	})

	// Equidistant from A/B and from 1/2: first enumerated wins
	label, ok := NearestIntersection(geometry.Pt(5, 5), h, v)
	require.True(t, ok)
	assert.Equal(t, "1-A", label)
}

func TestNearestIntersectionEmptyGroups(t *testing.T) {
	h, v := Classify(squareGrid())
	var empty domain.GridGroup

	t.Run("empty horizontal group", func(t *testing.T) {
		label, ok := NearestIntersection(geometry.Pt(0, 0), empty, v)
		assert.False(t, ok)
		assert.Empty(t, label)
	})

	t.Run("empty vertical group", func(t *testing.T) {
		label, ok := NearestIntersection(geometry.Pt(0, 0), h, empty)
		assert.False(t, ok)
		assert.Empty(t, label)
	})

	t.Run("both empty", func(t *testing.T) {
		_, ok := NearestIntersection(geometry.Pt(0, 0), empty, empty)
		assert.False(t, ok)
	})
}

func linesOf(g domain.GridGroup) []domain.Line {
	out := make([]domain.Line, g.Len())
	for i := range out {
		out[i] = g.At(i)
	}
	return out
}

func TestNearestMinimizesDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h, _ := Classify(squareGrid())

	for i := 0; i < 200; i++ {
		p := geometry.Pt(rng.Float64()*60-20, rng.Float64()*60-20)
		best, ok := Nearest(p, h)
		require.True(t, ok)

		bestDist := best.Segment.DistanceTo(p)
		for _, l := range linesOf(h) {
			assert.LessOrEqual(t, bestDist, l.Segment.DistanceTo(p))
		}
	}
}

func TestEndToEndAxisLabel(t *testing.T) {
	// A runs along x, B along y, both through the origin
	lines := []domain.Line{
		{ID: "a", Name: "A", Segment: geometry.Seg(-1, 0, 1, 0)},
		{ID: "b", Name: "B", Segment: geometry.Seg(0, -1, 0, 1)},
	}

	g := New(lines)
	assert.Equal(t, []string{"A"}, g.Horizontal.Names())
	assert.Equal(t, []string{"B"}, g.Vertical.Names())
	assert.True(t, g.IsComplete())

	e := domain.NewPointElement("e", domain.NewCategory("c", "Columns"), geometry.Pt(0, 0))
	label, ok := g.LabelFor(e)
	require.True(t, ok)
	assert.Equal(t, "B-A", label)
}

func TestGridLabelFor(t *testing.T) {
	g := New(squareGrid())
	walls := domain.NewCategory("walls", "Walls")

	t.Run("curve element uses midpoint", func(t *testing.T) {
		wall := domain.NewCurveElement("w", walls, geometry.Curve{Points: []geometry.Point{geometry.Pt(0, 20), geometry.Pt(20, 20)}})
		label, ok := g.LabelFor(wall)
		require.True(t, ok)
		assert.Equal(t, "2-C", label)
	})

	t.Run("unlocated element has no label", func(t *testing.T) {
		_, ok := g.LabelFor(&domain.Element{ID: "x", Category: walls})
		assert.False(t, ok)
	})

	t.Run("incomplete grid has no label", func(t *testing.T) {
		partial := New(squareGrid()[:3])
		assert.False(t, partial.IsComplete())
		_, ok := partial.LabelFor(domain.NewPointElement("p", walls, geometry.Pt(0, 0)))
		assert.False(t, ok)
	})
}

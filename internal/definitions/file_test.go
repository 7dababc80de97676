package definitions

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmark/internal/domain"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	f, err := Create(filepath.Join(t.TempDir(), "shared.yaml"))
	require.NoError(t, err)
	return f
}

func TestOpenNotConfigured(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := Open("")
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})

	t.Run("source with empty path", func(t *testing.T) {
		_, err := Source{}.OpenDefinitionFile()
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
}

func TestOpenInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups: [unclosed"), 0644))

	_, err := Open(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotConfigured)
}

func TestCreateRefusesExistingFile(t *testing.T) {
	f := newTestFile(t)
	_, err := Create(f.Path())
	assert.Error(t, err)
}

func TestEnsureDefinition(t *testing.T) {
	t.Run("creates group and definition", func(t *testing.T) {
		f := newTestFile(t)

		def, created, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Grid Square", domain.ParameterTypeText)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "Grid Square", def.Name)
		assert.Equal(t, "Shared Parameters", def.Group)

		groups := f.Groups()
		require.Len(t, groups, 1)
		assert.Equal(t, "Shared Parameters", groups[0].Name)
		require.Len(t, groups[0].Definitions, 1)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newTestFile(t)

		first, _, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Number", domain.ParameterTypeText)
		require.NoError(t, err)
		second, created, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Number", domain.ParameterTypeText)
		require.NoError(t, err)

		assert.False(t, created)
		assert.Equal(t, first.GUID, second.GUID)
		require.Len(t, f.Groups(), 1)
		assert.Len(t, f.Groups()[0].Definitions, 1)
	})

	t.Run("reuses an existing group", func(t *testing.T) {
		f := newTestFile(t)

		created, err := f.UpsertGroup(domain.DefaultDefinitionGroup)
		require.NoError(t, err)
		assert.True(t, created)

		created, err = f.UpsertGroup(domain.DefaultDefinitionGroup)
		require.NoError(t, err)
		assert.False(t, created)

		_, _, err = f.EnsureDefinition(domain.DefaultDefinitionGroup, "A", domain.ParameterTypeText)
		require.NoError(t, err)
		_, _, err = f.EnsureDefinition(domain.DefaultDefinitionGroup, "B", domain.ParameterTypeText)
		require.NoError(t, err)

		groups := f.Groups()
		require.Len(t, groups, 1)
		assert.Len(t, groups[0].Definitions, 2)
	})

	t.Run("finds definitions in any group", func(t *testing.T) {
		f := newTestFile(t)

		_, _, err := f.EnsureDefinition("Structure", "Mark", domain.ParameterTypeText)
		require.NoError(t, err)

		def, created, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Mark", domain.ParameterTypeText)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "Structure", def.Group)
		assert.Len(t, f.Groups(), 1, "no group should be created for an existing definition")
	})

	t.Run("name match is case sensitive", func(t *testing.T) {
		f := newTestFile(t)

		_, _, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Number", domain.ParameterTypeText)
		require.NoError(t, err)

		_, ok := f.FindDefinition("number")
		assert.False(t, ok)

		_, created, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "number", domain.ParameterTypeText)
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("concurrent callers create one definition", func(t *testing.T) {
		f := newTestFile(t)

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Grid Square", domain.ParameterTypeText)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		require.Len(t, f.Groups(), 1)
		assert.Len(t, f.Groups()[0].Definitions, 1)
	})
}

func TestDefinitionsPersist(t *testing.T) {
	f := newTestFile(t)

	def, _, err := f.EnsureDefinition(domain.DefaultDefinitionGroup, "Grid Square", domain.ParameterTypeText)
	require.NoError(t, err)

	reopened, err := Open(f.Path())
	require.NoError(t, err)

	got, ok := reopened.FindDefinition("Grid Square")
	require.True(t, ok)
	assert.Equal(t, def.GUID, got.GUID)
	assert.Equal(t, domain.ParameterTypeText, got.Type)
	assert.Equal(t, "Shared Parameters", got.Group)

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(f.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// Package definitions reads and writes the shared definition file: the
// document-independent catalogue of field definitions, organised in named
// groups, that bindings refer to.
//
// The file is YAML:
//
//	version: 1
//	groups:
//	  - name: Shared Parameters
//	    definitions:
//	      - guid: 0b4c...
//	        name: Grid Square
//	        type: text
package definitions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"gridmark/internal/domain"
)

const fileVersion = 1

// Group is a named set of definitions in the file
type Group struct {
	Name        string                   `yaml:"name"`
	Definitions []domain.FieldDefinition `yaml:"definitions"`
}

type fileYAML struct {
	Version int     `yaml:"version"`
	Groups  []Group `yaml:"groups"`
}

// File is an open shared definition file. Mutations are written through
// to disk immediately.
type File struct {
	path string

	mu     sync.Mutex
	groups []Group
}

// Source opens the definition file at Path. An empty Path means no file is
// configured.
type Source struct {
	Path string
}

// OpenDefinitionFile implements schema.DefinitionFileOpener
func (s Source) OpenDefinitionFile() (*File, error) {
	return Open(s.Path)
}

// Open loads an existing definition file. It returns an error wrapping
// domain.ErrNotConfigured when path is empty or the file does not exist.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, domain.ErrNotConfigured
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotConfigured)
	}
	if err != nil {
		return nil, fmt.Errorf("read definition file: %w", err)
	}

	var fy fileYAML
	if err := yaml.Unmarshal(data, &fy); err != nil {
		return nil, fmt.Errorf("parse definition file: %w", err)
	}

	return &File{path: path, groups: fy.Groups}, nil
}

// Create writes a new, empty definition file. It fails if the file exists.
func Create(path string) (*File, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("definition file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create definition dir: %w", err)
	}

	f := &File{path: path}
	if err := f.save(); err != nil {
		return nil, err
	}
	return f, nil
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Groups returns a snapshot of all groups and their definitions
func (f *File) Groups() []Group {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Group, len(f.groups))
	for i, g := range f.groups {
		out[i] = Group{Name: g.Name, Definitions: f.definitionsOf(i)}
	}
	return out
}

// FindDefinition searches all groups for an exact, case-sensitive name match
func (f *File) FindDefinition(name string) (*domain.FieldDefinition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(name)
}

// UpsertGroup creates the named group if absent. created reports whether
// the group was added.
func (f *File) UpsertGroup(name string) (created bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, created = f.upsertGroup(name); !created {
		return false, nil
	}
	if err := f.save(); err != nil {
		f.groups = f.groups[:len(f.groups)-1]
		return false, err
	}
	return true, nil
}

// EnsureDefinition returns the definition called name, creating it in
// group (itself created if needed) when no group holds it. Lookup, group
// upsert and creation happen under one lock, so concurrent callers never
// create duplicates.
func (f *File) EnsureDefinition(group, name string, paramType domain.ParameterType) (def *domain.FieldDefinition, created bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.find(name); ok {
		return existing, false, nil
	}

	snapshot := f.clone()

	idx, _ := f.upsertGroup(group)

	def = domain.NewFieldDefinition(name, paramType, group)
	f.groups[idx].Definitions = append(f.groups[idx].Definitions, *def)

	if err := f.save(); err != nil {
		f.groups = snapshot
		return nil, false, err
	}
	return def, true, nil
}

func (f *File) find(name string) (*domain.FieldDefinition, bool) {
	for i := range f.groups {
		for _, d := range f.groups[i].Definitions {
			if d.Name == name {
				d.Group = f.groups[i].Name
				return &d, true
			}
		}
	}
	return nil, false
}

// upsertGroup returns the index of the named group, appending it if absent.
// The caller holds the lock and saves.
func (f *File) upsertGroup(name string) (idx int, created bool) {
	for i, g := range f.groups {
		if g.Name == name {
			return i, false
		}
	}
	f.groups = append(f.groups, Group{Name: name})
	return len(f.groups) - 1, true
}

// definitionsOf copies group i's definitions with Group filled in
func (f *File) definitionsOf(i int) []domain.FieldDefinition {
	defs := make([]domain.FieldDefinition, len(f.groups[i].Definitions))
	for j, d := range f.groups[i].Definitions {
		d.Group = f.groups[i].Name
		defs[j] = d
	}
	return defs
}

func (f *File) clone() []Group {
	out := make([]Group, len(f.groups))
	for i, g := range f.groups {
		defs := make([]domain.FieldDefinition, len(g.Definitions))
		copy(defs, g.Definitions)
		out[i] = Group{Name: g.Name, Definitions: defs}
	}
	return out
}

// save rewrites the file atomically via a temp file and rename
func (f *File) save() error {
	data, err := yaml.Marshal(&fileYAML{Version: fileVersion, Groups: f.groups})
	if err != nil {
		return fmt.Errorf("marshal definition file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".definitions-*.yaml")
	if err != nil {
		return fmt.Errorf("write definition file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write definition file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write definition file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace definition file: %w", err)
	}
	return nil
}

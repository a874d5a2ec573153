package classloader

import (
	"sync"

	"github.com/hostmesh/hostrt/classregistry"
	"github.com/hostmesh/hostrt/errors"
)

// Manager owns a path -> Loader mapping and dedups LoadLibrary calls across
// the process. Insertion order is preserved for CreateClassObj's
// search-every-loader fallback.
type Manager struct {
	registry *classregistry.Registry

	mu      sync.Mutex
	byPath  map[string]*Loader
	ordered []*Loader
}

// NewManager constructs a Manager backed by registry.
func NewManager(registry *classregistry.Registry) *Manager {
	return &Manager{registry: registry, byPath: make(map[string]*Loader)}
}

// LoadLibrary returns the existing Loader for path if one was already
// constructed, otherwise constructs and loads a new one.
func (m *Manager) LoadLibrary(path string, opts ...Option) (*Loader, error) {
	m.mu.Lock()
	if l, ok := m.byPath[path]; ok {
		m.mu.Unlock()
		return l, l.LoadLibrary()
	}
	l := New(path, m.registry, opts...)
	m.byPath[path] = l
	m.ordered = append(m.ordered, l)
	m.mu.Unlock()

	return l, l.LoadLibrary()
}

// Loader returns the Loader registered for path, if any.
func (m *Manager) Loader(path string) (*Loader, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.byPath[path]
	return l, ok
}

// CreateClassObjFromManager searches loaders in insertion order for a registration of
// (Base, name), returning the first match. If path is non-empty the search
// is restricted to that one loader.
func CreateClassObjFromManager[Base any](m *Manager, name, path string) (*Handle[Base], error) {
	m.mu.Lock()
	var candidates []*Loader
	if path != "" {
		if l, ok := m.byPath[path]; ok {
			candidates = []*Loader{l}
		}
	} else {
		candidates = append(candidates, m.ordered...)
	}
	m.mu.Unlock()

	if len(candidates) == 0 {
		return nil, errors.WrapInvalid(errors.ErrArtifactNotLoaded, "ClassLoaderManager", "CreateClassObj", path)
	}

	var lastErr error
	for _, l := range candidates {
		h, err := CreateClassObj[Base](l, name)
		if err == nil {
			return h, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetValidClassNamesFromManager returns the union of valid class names for Base
// across every loader owned by this manager.
func GetValidClassNamesFromManager[Base any](m *Manager) []string {
	m.mu.Lock()
	loaders := append([]*Loader(nil), m.ordered...)
	m.mu.Unlock()

	seen := make(map[string]struct{})
	var names []string
	for _, l := range loaders {
		for _, n := range GetValidClassNames[Base](l) {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				names = append(names, n)
			}
		}
	}
	return names
}

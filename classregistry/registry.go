// Package classregistry implements the process-wide two-level class
// registry: base-class-name -> concrete-class-name -> factory entry.
// Registration happens when an artifact is mapped; lookup happens when a
// ClassLoader instantiates a named class against a known base.
package classregistry

import (
	"log/slog"
	"sync"
)

// Factory constructs a new instance of a registered concrete class. It
// returns `any`; callers type-assert to the expected base interface.
type Factory func() any

// Entry is a ClassFactory entry: the tuple (base, concrete, artifact path,
// owning loaders, constructor thunk).
type Entry struct {
	BaseName     string
	ClassName    string
	ArtifactPath string
	Factory      Factory

	mu     sync.Mutex
	owners map[any]struct{}
}

// AddOwner records that loader (an opaque token, typically a *classloader.Loader)
// owns this entry.
func (e *Entry) AddOwner(loader any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.owners == nil {
		e.owners = make(map[any]struct{})
	}
	e.owners[loader] = struct{}{}
}

// RemoveOwner drops loader's ownership of this entry.
func (e *Entry) RemoveOwner(loader any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.owners, loader)
}

// IsOwnedBy reports whether loader owns this entry.
func (e *Entry) IsOwnedBy(loader any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.owners[loader]
	return ok
}

// IsOwnedByAnybody reports whether any loader currently owns this entry.
func (e *Entry) IsOwnedByAnybody() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.owners) > 0
}

// Registry is the process-wide base -> concrete -> Entry mapping. The zero
// value is not usable; construct with New or use Instance.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]map[string]*Entry
	log     *slog.Logger
}

// New constructs an empty Registry.
func New(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{classes: make(map[string]map[string]*Entry), log: log}
}

// Register inserts a factory entry under (base, name). If an entry already
// exists under that pair the existing one is retained and the new
// registration is ignored with a warning: first wins, warn on second.
func (r *Registry) Register(base, name, artifactPath string, factory Factory) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.classes[base]
	if !ok {
		byName = make(map[string]*Entry)
		r.classes[base] = byName
	}

	if existing, dup := byName[name]; dup {
		r.log.Warn("class already registered, retaining first registration",
			"base", base, "class", name, "existing_artifact", existing.ArtifactPath,
			"rejected_artifact", artifactPath)
		return existing
	}

	e := &Entry{BaseName: base, ClassName: name, ArtifactPath: artifactPath, Factory: factory}
	byName[name] = e
	return e
}

// Lookup returns the entry registered under (base, name), if any.
func (r *Registry) Lookup(base, name string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName, ok := r.classes[base]
	if !ok {
		return nil, false
	}
	e, ok := byName[name]
	return e, ok
}

// ValidNames returns every concrete class name registered under base.
func (r *Registry) ValidNames(base string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byName, ok := r.classes[base]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	return names
}

// EntriesForArtifact returns every entry registered from artifactPath,
// across all base classes. Used by a ClassLoader to claim ownership of the
// entries its artifact just registered.
func (r *Registry) EntriesForArtifact(artifactPath string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*Entry
	for _, byName := range r.classes {
		for _, e := range byName {
			if e.ArtifactPath == artifactPath {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// Unregister removes the entry under (base, name) if it exists and has no
// remaining owners. Returns false if the entry still has owners.
func (r *Registry) Unregister(base, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	byName, ok := r.classes[base]
	if !ok {
		return true
	}
	e, ok := byName[name]
	if !ok {
		return true
	}
	if e.IsOwnedByAnybody() {
		return false
	}
	delete(byName, name)
	return true
}

var (
	instanceMu sync.Mutex
	instance   *Registry
)

// Instance returns the process-wide Registry, constructing it on first use.
func Instance() *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = New(nil)
	}
	return instance
}

// Init force-recreates the process-wide Registry, discarding all
// registrations. Intended for test isolation between scenarios.
func Init() *Registry {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = New(nil)
	return instance
}

// Shutdown discards the process-wide Registry.
func Shutdown() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}

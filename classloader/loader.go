// Package classloader maps artifact paths (Go plugins, in production) to
// live, reference-counted class factories in the classregistry. This is the
// Go analogue of a dynamic-library loader: plugin.Open replaces dlopen, and
// an exported Register(*classregistry.Registry) error function replaces the
// registration macro's static-initialiser side effects.
package classloader

import (
	"log/slog"
	"plugin"
	"reflect"
	"sync"

	"github.com/hostmesh/hostrt/classregistry"
	"github.com/hostmesh/hostrt/errors"
)

// RegisterFunc is the shape every artifact must export under the symbol
// name "Register".
type RegisterFunc func(*classregistry.Registry) error

// Loader is a handle to a single artifact. The artifact is physically
// mapped iff the load refcount is > 0; a Loader may not be torn down while
// its live-object refcount is > 0.
type Loader struct {
	path     string
	registry *classregistry.Registry
	log      *slog.Logger

	// registerFn overrides plugin.Open for artifacts not built as real Go
	// plugins (primarily tests); production callers leave it nil and rely
	// on the artifact exporting "Register" via plugin.Open.
	registerFn RegisterFunc

	loadMu    sync.Mutex
	loadCount int
	plug      *plugin.Plugin

	objMu    sync.Mutex
	objCount int
}

// Option configures a Loader at construction.
type Option func(*Loader)

// WithRegisterFunc bypasses plugin.Open and calls fn directly when the
// artifact is loaded. Used to exercise the loader lifecycle in tests
// without building a real .so.
func WithRegisterFunc(fn RegisterFunc) Option {
	return func(l *Loader) { l.registerFn = fn }
}

// New constructs a Loader for the artifact at path. The artifact is not
// mapped until LoadLibrary is called.
func New(path string, registry *classregistry.Registry, opts ...Option) *Loader {
	l := &Loader{path: path, registry: registry, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetLibraryPath returns the artifact path this Loader was constructed with.
func (l *Loader) GetLibraryPath() string { return l.path }

// IsLibraryLoaded reports whether the artifact is currently mapped.
func (l *Loader) IsLibraryLoaded() bool {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()
	return l.loadCount > 0
}

// LoadLibrary maps the artifact if not already mapped and increments the
// load refcount. On first mapping it resolves and calls the artifact's
// exported Register function, then claims ownership of every registry
// entry registered under this artifact's path.
func (l *Loader) LoadLibrary() error {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	if l.loadCount > 0 {
		l.loadCount++
		return nil
	}

	register := l.registerFn
	if register == nil {
		plug, err := plugin.Open(l.path)
		if err != nil {
			return errors.WrapTransient(err, "ClassLoader", "LoadLibrary", "open artifact "+l.path)
		}
		sym, err := plug.Lookup("Register")
		if err != nil {
			return errors.WrapInvalid(err, "ClassLoader", "LoadLibrary", "resolve Register symbol in "+l.path)
		}
		fn, ok := sym.(func(*classregistry.Registry) error)
		if !ok {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "ClassLoader", "LoadLibrary", "Register has unexpected signature in "+l.path)
		}
		l.plug = plug
		register = fn
	}

	if err := register(l.registry); err != nil {
		return errors.WrapInvalid(err, "ClassLoader", "LoadLibrary", "register classes from "+l.path)
	}

	for _, e := range l.registry.EntriesForArtifact(l.path) {
		e.AddOwner(l)
	}

	l.loadCount++
	return nil
}

// UnloadLibrary decrements the load refcount. If live objects remain it
// warns and returns without decrementing, leaving the artifact mapped
// rather than unmapping underneath them. plugin.Plugin offers no real unmap primitive; once the refcount
// reaches zero this Loader simply forgets its ownership of the artifact's
// registry entries.
func (l *Loader) UnloadLibrary() error {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	if l.loadCount == 0 {
		return errors.WrapInvalid(errors.ErrArtifactNotLoaded, "ClassLoader", "UnloadLibrary", l.path)
	}

	l.objMu.Lock()
	live := l.objCount
	l.objMu.Unlock()
	if live > 0 {
		l.log.Warn("unload requested while live objects remain, keeping artifact mapped",
			"path", l.path, "live_objects", live)
		return nil
	}

	l.loadCount--
	if l.loadCount == 0 {
		for _, e := range l.registry.EntriesForArtifact(l.path) {
			e.RemoveOwner(l)
		}
		l.plug = nil
	}
	return nil
}

// Handle is a shared-ownership reference to an instantiated class object.
// Release must be called when the caller is done with it; it mirrors the
// source's shared_ptr custom deleter.
type Handle[Base any] struct {
	Object Base

	loader   *Loader
	released sync.Once
}

// Release decrements the owning Loader's live-object refcount. Safe to
// call multiple times; only the first call has effect.
func (h *Handle[Base]) Release() {
	h.released.Do(func() {
		h.loader.objMu.Lock()
		defer h.loader.objMu.Unlock()
		if h.loader.objCount > 0 {
			h.loader.objCount--
		}
	})
}

// BaseName derives the registry's base-class key for Base from its
// reflected type. Artifacts registering classes against Base must use the
// same key, which is why it is exported rather than computed ad hoc.
func BaseName[Base any]() string {
	t := reflect.TypeOf((*Base)(nil)).Elem()
	return t.PkgPath() + "." + t.Name()
}

// CreateClassObj loads the artifact if needed, looks up the factory entry
// for (Base, name) owned by l, and instantiates it. Missing artifact,
// unresolved symbol, and unknown class name are all non-fatal: they log a
// warning and return a nil handle.
func CreateClassObj[Base any](l *Loader, name string) (*Handle[Base], error) {
	if !l.IsLibraryLoaded() {
		if err := l.LoadLibrary(); err != nil {
			l.log.Warn("CreateClassObj: load library failed", "path", l.path, "err", err)
			return nil, err
		}
	}

	entry, ok := l.registry.Lookup(BaseName[Base](), name)
	if !ok || !entry.IsOwnedBy(l) {
		l.log.Warn("CreateClassObj failed, ensure class has been registered",
			"class_name", name, "lib", l.path)
		return nil, errors.WrapInvalid(errors.ErrClassNotRegistered, "ClassLoader", "CreateClassObj", name)
	}

	obj, ok := entry.Factory().(Base)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrClassNotRegistered, "ClassLoader", "CreateClassObj", "factory produced wrong type for "+name)
	}

	l.objMu.Lock()
	l.objCount++
	l.objMu.Unlock()

	return &Handle[Base]{Object: obj, loader: l}, nil
}

// GetValidClassNames returns every concrete class name registered under
// Base and owned by l.
func GetValidClassNames[Base any](l *Loader) []string {
	var names []string
	for _, name := range l.registry.ValidNames(BaseName[Base]()) {
		if e, ok := l.registry.Lookup(BaseName[Base](), name); ok && e.IsOwnedBy(l) {
			names = append(names, name)
		}
	}
	return names
}

// IsClassValid reports whether name is a valid, loader-owned registration
// under Base.
func IsClassValid[Base any](l *Loader, name string) bool {
	e, ok := l.registry.Lookup(BaseName[Base](), name)
	return ok && e.IsOwnedBy(l)
}

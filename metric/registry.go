// Package metric provides a small Prometheus-backed metrics registry shared
// by the framework packages that export metrics (databuffer, scheduler).
// Those packages always maintain their own in-memory counters regardless of
// whether a Registry is attached; attaching one only adds Prometheus export.
package metric

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry wraps a prometheus.Registry and tracks what has been registered
// under it so duplicate registrations from repeated component construction
// (e.g. in tests) are caught early instead of panicking deep inside the
// Prometheus client.
type Registry struct {
	mu         sync.RWMutex
	prom       *prometheus.Registry
	registered map[string]prometheus.Collector
}

// NewRegistry creates a Registry with the Go runtime and process collectors
// pre-registered, matching what every long-running framework process wants
// for baseline observability.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()
	prom.MustRegister(prometheus.NewGoCollector())
	prom.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	return &Registry{
		prom:       prom,
		registered: make(map[string]prometheus.Collector),
	}
}

// Prometheus exposes the underlying prometheus.Registry, e.g. for wiring
// into an HTTP handler via promhttp.HandlerFor.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.prom
}

// Register adds a collector under name. A duplicate name, or a collector
// Prometheus reports as already registered, is silently ignored (returns
// nil rather than panicking); other registration errors are returned. This
// lets packages
// call Register unconditionally from constructors without worrying about
// being instantiated more than once against the same Registry in tests.
func (r *Registry) Register(name string, c prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[name]; exists {
		return nil
	}

	if err := r.prom.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if ok := asAlreadyRegistered(err, &are); ok {
			r.registered[name] = are.ExistingCollector
			return nil
		}
		return err
	}

	r.registered[name] = c
	return nil
}

func asAlreadyRegistered(err error, target *prometheus.AlreadyRegisteredError) bool {
	are, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		return false
	}
	*target = are
	return true
}

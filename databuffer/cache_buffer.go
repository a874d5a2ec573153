// Package databuffer implements CacheBuffer, the bounded per-reader ring
// buffer that sits between the dispatcher and a reader. It is a
// single-producer-at-a-time, many-reader (snapshot-style) ring with
// overwrite-oldest overflow and an optional fusion callback.
package databuffer

import (
	"sync"

	"github.com/hostmesh/hostrt/envelope"
	"github.com/hostmesh/hostrt/metric"
)

// FusionFunc, when installed on a buffer, replaces queueing entirely: Fill
// invokes it synchronously and the ring is never touched.
type FusionFunc[M any] func(v *envelope.Envelope[M])

// CacheBuffer is a fixed-capacity ring of capacity+1 slots. head and tail
// are monotonically increasing counters, not physical indices; the
// physical index of logical position p is p mod capacity. This mirrors the
// exact off-by-one convention of the system this buffer is modeled on:
// Front() reads the slot at head+1, not head, because head always points
// at the last position already consumed (or, before any Fill, at the
// notional position "one before the first").
type CacheBuffer[M any] struct {
	mu       sync.Mutex
	buf      []*envelope.Envelope[M]
	capacity uint64 // physical slot count == logical capacity + 1
	head     uint64
	tail     uint64

	fusion FusionFunc[M]
	stats  *Stats
}

// Stats is always populated, whether or not a metric.Registry is attached;
// registering with Prometheus is purely additive.
type Stats struct {
	mu       sync.Mutex
	Filled   uint64
	Dropped  uint64
	Fused    uint64
}

func (s *Stats) recordFill(dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Filled++
	if dropped {
		s.Dropped++
	}
}

func (s *Stats) recordFusion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Fused++
}

// Snapshot returns a copy of the counters for observation.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Filled: s.Filled, Dropped: s.Dropped, Fused: s.Fused}
}

// Option configures a CacheBuffer at construction time.
type Option[M any] func(*CacheBuffer[M])

// WithFusion installs a fusion callback: Fill will call fn synchronously
// instead of enqueueing.
func WithFusion[M any](fn FusionFunc[M]) Option[M] {
	return func(b *CacheBuffer[M]) {
		b.fusion = fn
	}
}

// WithMetrics registers the buffer's stats with a metric.Registry under name.
func WithMetrics[M any](reg *metric.Registry, name string) Option[M] {
	return func(b *CacheBuffer[M]) {
		if reg == nil {
			return
		}
		reg.Register(name, newBufferCollector(b)) //nolint:errcheck // duplicate registration is not fatal here
	}
}

// New creates a CacheBuffer holding up to capacity logical elements
// (capacity+1 physical slots, per the ring's off-by-one convention).
// Capacity must be at least 1.
func New[M any](capacity int, opts ...Option[M]) *CacheBuffer[M] {
	if capacity < 1 {
		capacity = 1
	}
	b := &CacheBuffer[M]{
		buf:      make([]*envelope.Envelope[M], capacity+1),
		capacity: uint64(capacity + 1),
		stats:    &Stats{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *CacheBuffer[M]) index(p uint64) uint64 {
	return p % b.capacity
}

// Fill publishes v into the buffer. If a fusion callback is installed it is
// invoked synchronously and the ring is left untouched. Otherwise, if the
// buffer is full, the oldest element is overwritten and both head and tail
// advance by one (drop oldest); if not full, tail advances by one and v is
// written at the new tail.
func (b *CacheBuffer[M]) Fill(v *envelope.Envelope[M]) {
	if b.fusion != nil {
		b.fusion(v)
		b.stats.recordFusion()
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fullLocked() {
		b.buf[b.index(b.head)] = v
		b.head++
		b.tail++
		b.stats.recordFill(true)
		return
	}

	b.tail++
	b.buf[b.index(b.tail)] = v
	b.stats.recordFill(false)
}

// Front returns the oldest observable element, at logical position
// head+1. Undefined (returns nil) when Empty.
func (b *CacheBuffer[M]) Front() *envelope.Envelope[M] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emptyLocked() {
		return nil
	}
	return b.buf[b.index(b.head+1)]
}

// Back returns the newest element, at logical position tail. Undefined
// (returns nil) when Empty.
func (b *CacheBuffer[M]) Back() *envelope.Envelope[M] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.emptyLocked() {
		return nil
	}
	return b.buf[b.index(b.tail)]
}

// At returns the element at logical position p (expected p in (head, tail]).
func (b *CacheBuffer[M]) At(p uint64) *envelope.Envelope[M] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf[b.index(p)]
}

// Size returns tail - head.
func (b *CacheBuffer[M]) Size() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tail - b.head
}

// Capacity returns the logical capacity (physical slots - 1).
func (b *CacheBuffer[M]) Capacity() uint64 {
	return b.capacity - 1
}

// Head returns head+1, the logical position of the oldest live element.
func (b *CacheBuffer[M]) Head() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head + 1
}

// Tail returns tail, the logical position of the newest live element.
func (b *CacheBuffer[M]) Tail() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tail
}

// Empty reports tail == 0.
func (b *CacheBuffer[M]) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.emptyLocked()
}

func (b *CacheBuffer[M]) emptyLocked() bool {
	return b.tail == 0
}

// Full reports capacity-1 == tail-head.
func (b *CacheBuffer[M]) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullLocked()
}

func (b *CacheBuffer[M]) fullLocked() bool {
	return b.capacity-1 == b.tail-b.head
}

// Stats returns a snapshot of fill/drop/fusion counters.
func (b *CacheBuffer[M]) Stats() Stats {
	return b.stats.Snapshot()
}

// Clear discards every element and resets the buffer to empty, without
// resetting the fill/drop/fusion counters.
func (b *CacheBuffer[M]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.buf {
		b.buf[i] = nil
	}
	b.head = 0
	b.tail = 0
}

// Copy atomically snapshots the source's state under its mutex and returns
// an independent CacheBuffer sharing no state with the source. Assignment
// (overwriting an existing CacheBuffer's fields in place) is intentionally
// not exposed; construct a new buffer with Copy instead.
func (b *CacheBuffer[M]) Copy() *CacheBuffer[M] {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]*envelope.Envelope[M], len(b.buf))
	copy(cp, b.buf)

	return &CacheBuffer[M]{
		buf:      cp,
		capacity: b.capacity,
		head:     b.head,
		tail:     b.tail,
		fusion:   b.fusion,
		stats:    &Stats{Filled: b.stats.Filled, Dropped: b.stats.Dropped, Fused: b.stats.Fused},
	}
}

// Package dispatcher implements DataDispatcher, the per-message-type
// singleton that fans a published value out to every reader buffer
// registered for a channel and pokes the notifier.
package dispatcher

import (
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
	"weak"

	"github.com/hostmesh/hostrt/databuffer"
	"github.com/hostmesh/hostrt/envelope"
	"github.com/hostmesh/hostrt/notifier"
)

// staleWarnThreshold is how old an envelope may be at dispatch time before
// Dispatch logs a warning; a large gap usually means the publisher stalled
// upstream of the dispatcher rather than anything wrong here.
const staleWarnThreshold = 5 * time.Second

// Dispatcher is the process-wide singleton for message type M. It holds a
// weak-reference list per channel so that destroying a reader's buffer
// requires no explicit unregister call: the weak pointer simply stops
// resolving and is pruned lazily on the next Dispatch.
type Dispatcher[M any] struct {
	mu       sync.Mutex
	buffers  map[envelope.ChannelID][]weak.Pointer[databuffer.CacheBuffer[M]]
	shutdown atomic.Bool
	notify   *notifier.DataNotifier
}

var (
	registryMu sync.Mutex
	registry   = map[reflect.Type]any{}
)

// Instance returns the process-wide Dispatcher for message type M,
// constructing it on first use. Dispatcher is a singleton per M, matching
// the "Dispatcher (per-M)... process-wide singleton with explicit
// Init/Shutdown" requirement.
func Instance[M any]() *Dispatcher[M] {
	t := reflect.TypeOf((*M)(nil)).Elem()

	registryMu.Lock()
	defer registryMu.Unlock()

	if d, ok := registry[t]; ok {
		return d.(*Dispatcher[M])
	}
	d := newDispatcher[M]()
	registry[t] = d
	return d
}

// Init (re)creates the singleton for M, discarding all registrations.
// Intended for test isolation between scenarios.
func Init[M any]() *Dispatcher[M] {
	t := reflect.TypeOf((*M)(nil)).Elem()

	registryMu.Lock()
	defer registryMu.Unlock()

	d := newDispatcher[M]()
	registry[t] = d
	return d
}

func newDispatcher[M any]() *Dispatcher[M] {
	return &Dispatcher[M]{
		buffers: make(map[envelope.ChannelID][]weak.Pointer[databuffer.CacheBuffer[M]]),
		notify:  notifier.Instance(),
	}
}

// Shutdown marks the dispatcher as shutting down; subsequent Dispatch calls
// return false without touching any buffer or notifying anyone.
func (d *Dispatcher[M]) Shutdown() {
	d.shutdown.Store(true)
}

// IsShutdown reports whether Shutdown has been called.
func (d *Dispatcher[M]) IsShutdown() bool {
	return d.shutdown.Load()
}

// AddBuffer registers buf as a subscriber of channel. Registration is
// idempotent-safe: registering the same buffer twice is permitted and it
// will receive each message twice.
func (d *Dispatcher[M]) AddBuffer(channel envelope.ChannelID, buf *databuffer.CacheBuffer[M]) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buffers[channel] = append(d.buffers[channel], weak.Make(buf))
}

// Dispatch fills every live buffer registered for channel with msg, then
// asks the notifier to wake everyone subscribed to channel. It returns the
// notifier's result: true iff channel had at least one notifier. Dispatch
// against an unknown channel, or while shutting down, returns false
// without notifying.
func (d *Dispatcher[M]) Dispatch(channel envelope.ChannelID, msg *envelope.Envelope[M]) bool {
	if d.IsShutdown() {
		return false
	}

	d.mu.Lock()
	refs, ok := d.buffers[channel]
	if !ok {
		d.mu.Unlock()
		return false
	}

	live := make([]weak.Pointer[databuffer.CacheBuffer[M]], 0, len(refs))
	bufs := make([]*databuffer.CacheBuffer[M], 0, len(refs))
	for _, ref := range refs {
		if buf := ref.Value(); buf != nil {
			live = append(live, ref)
			bufs = append(bufs, buf)
		}
	}
	// Lazily prune dead weak references.
	d.buffers[channel] = live
	d.mu.Unlock()

	if age := msg.Age(); age > staleWarnThreshold {
		slog.Default().Warn("dispatching stale envelope", "channel", channel, "age", age)
	}

	for _, buf := range bufs {
		buf.Fill(msg)
	}

	return d.notify.Notify(channel)
}

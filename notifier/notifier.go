// Package notifier implements DataNotifier, the process-wide table mapping
// a channel id to the list of wake-up callbacks registered against it.
package notifier

import (
	"sync"

	"github.com/hostmesh/hostrt/envelope"
)

// Notifier holds a single wake-up callback. Callbacks run on the calling
// goroutine (the dispatcher's) and are required to be non-blocking —
// typically they do nothing more than submit a task to the scheduler.
type Notifier struct {
	Callback func()
}

// DataNotifier is the process-wide singleton mapping channel id to the
// notifiers registered against it. It has explicit Init/Shutdown semantics
// rather than construct-on-first-use so tests can reset it between
// scenarios.
type DataNotifier struct {
	mu        sync.Mutex
	notifiers map[envelope.ChannelID][]*Notifier
}

var (
	instanceMu sync.Mutex
	instance   *DataNotifier
)

// Instance returns the process-wide DataNotifier, calling Init if it has
// not been initialised yet.
func Instance() *DataNotifier {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	if instance == nil {
		instance = newDataNotifier()
	}
	return instance
}

// Init (re)creates the process-wide DataNotifier, discarding any existing
// registrations. Intended for test isolation between scenarios.
func Init() *DataNotifier {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = newDataNotifier()
	return instance
}

// Shutdown discards the process-wide DataNotifier; the next Instance call
// builds a fresh one.
func Shutdown() {
	instanceMu.Lock()
	defer instanceMu.Unlock()
	instance = nil
}

func newDataNotifier() *DataNotifier {
	return &DataNotifier{notifiers: make(map[envelope.ChannelID][]*Notifier)}
}

// AddNotifier appends n to the list registered under channel.
func (d *DataNotifier) AddNotifier(channel envelope.ChannelID, n *Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[channel] = append(d.notifiers[channel], n)
}

// Notify invokes every notifier registered under channel, in registration
// order, and reports whether the channel had at least one notifier.
func (d *DataNotifier) Notify(channel envelope.ChannelID) bool {
	d.mu.Lock()
	list, ok := d.notifiers[channel]
	// Copy the slice header under the lock; callbacks run outside it so a
	// callback that registers a new notifier cannot deadlock.
	callbacks := make([]*Notifier, len(list))
	copy(callbacks, list)
	d.mu.Unlock()

	if !ok {
		return false
	}

	for _, n := range callbacks {
		if n.Callback != nil {
			n.Callback()
		}
	}
	return true
}

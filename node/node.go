// Package node implements Node, the per-component handle that owns a
// named set of readers keyed by channel and fans Observe/ClearData out
// across them.
package node

import (
	"log/slog"
	"sync"

	"github.com/hostmesh/hostrt/databuffer"
	"github.com/hostmesh/hostrt/dispatcher"
	"github.com/hostmesh/hostrt/envelope"
	"github.com/hostmesh/hostrt/errors"
)

// ReaderBase is the channel-agnostic surface Node needs to fan
// Observe/ClearData out to every reader it owns.
type ReaderBase interface {
	Observe()
	ClearData()
	Channel() envelope.ChannelID
}

// Reader is a CacheBuffer bound to a channel via the process-wide
// Dispatcher for M. Observe snapshots the buffer for consumption by the
// component's callback; ClearData empties both the live and observed
// copies.
type Reader[M any] struct {
	channel  envelope.ChannelID
	buf      *databuffer.CacheBuffer[M]
	mu       sync.RWMutex
	observed *databuffer.CacheBuffer[M]
}

// Channel returns the channel this reader subscribes to.
func (r *Reader[M]) Channel() envelope.ChannelID { return r.channel }

// Observe atomically snapshots the live buffer for callback consumption.
func (r *Reader[M]) Observe() {
	snap := r.buf.Copy()
	r.mu.Lock()
	r.observed = snap
	r.mu.Unlock()
}

// ClearData empties both the live buffer and the last observed snapshot.
func (r *Reader[M]) ClearData() {
	r.buf.Clear()
	r.mu.Lock()
	r.observed = nil
	r.mu.Unlock()
}

// Observed returns the most recent Observe snapshot, or nil if Observe has
// never been called.
func (r *Reader[M]) Observed() *databuffer.CacheBuffer[M] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.observed
}

// Node is the fundamental building block: every component owns one Node
// and creates its readers through it. Node enforces channel uniqueness
// among its own readers; global name uniqueness across the process is a
// transport-layer concern out of scope here.
type Node struct {
	name      string
	namespace string
	log       *slog.Logger

	mu      sync.Mutex
	readers map[envelope.ChannelID]ReaderBase
}

// New constructs a Node. It does not check that name is unique within the
// process, and neither does ComponentBase when it creates its node.
func New(name, namespace string) *Node {
	return &Node{
		name:      name,
		namespace: namespace,
		log:       slog.Default(),
		readers:   make(map[envelope.ChannelID]ReaderBase),
	}
}

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Namespace returns the node's namespace.
func (n *Node) Namespace() string { return n.namespace }

// CreateReader creates a CacheBuffer-backed reader on channel and
// registers it with the process-wide Dispatcher for M. It refuses (returns
// nil, logs a warning) if this node already has a reader on that channel.
func CreateReader[M any](n *Node, channel envelope.ChannelID, capacity int) *Reader[M] {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.readers[channel]; exists {
		n.log.Warn("failed to create reader: reader with the same channel already exists",
			"node", n.name, "channel", channel)
		return nil
	}

	buf := databuffer.New[M](capacity)
	r := &Reader[M]{channel: channel, buf: buf}
	n.readers[channel] = r

	dispatcher.Instance[M]().AddBuffer(channel, buf)
	return r
}

// DeleteReader removes and discards the reader on channel, returning
// whether one existed.
func (n *Node) DeleteReader(channel envelope.ChannelID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.readers[channel]; !ok {
		return false
	}
	delete(n.readers, channel)
	return true
}

// GetReader returns the reader registered on channel, if any, type-asserted
// to Reader[M]. Returns nil if absent or of a different message type.
func GetReader[M any](n *Node, channel envelope.ChannelID) *Reader[M] {
	n.mu.Lock()
	defer n.mu.Unlock()
	rb, ok := n.readers[channel]
	if !ok {
		return nil
	}
	r, ok := rb.(*Reader[M])
	if !ok {
		return nil
	}
	return r
}

// Observe snapshots every reader this node owns.
func (n *Node) Observe() {
	n.mu.Lock()
	readers := make([]ReaderBase, 0, len(n.readers))
	for _, r := range n.readers {
		readers = append(readers, r)
	}
	n.mu.Unlock()

	for _, r := range readers {
		r.Observe()
	}
}

// ClearData clears every reader this node owns.
func (n *Node) ClearData() {
	n.mu.Lock()
	readers := make([]ReaderBase, 0, len(n.readers))
	for _, r := range n.readers {
		readers = append(readers, r)
	}
	n.mu.Unlock()

	for _, r := range readers {
		r.ClearData()
	}
}

// ErrDuplicateReader is returned by callers that want an error rather than
// a bare nil from CreateReader; Node itself only warns and returns nil, per
// the fan-out helpers' non-fatal failure convention.
var ErrDuplicateReader = errors.ErrReaderAlreadyExists

// Package envelope provides the shared, immutable message wrapper that
// flows from publishers through CacheBuffers to readers. One publish is
// observable by any number of subscribers without copying the payload.
package envelope

import (
	"time"

	"github.com/google/uuid"

	"github.com/hostmesh/hostrt/pkg/timestamp"
)

// ChannelID is the process-wide, 64-bit routing key for a channel, derived
// from hashing the channel's textual name.
type ChannelID uint64

// ChannelIDFromName hashes name into a ChannelID with FNV-1a. This is a
// leaf-level, allocation-free hash with no meaningful choice of third-party
// dependency to make (see DESIGN.md): the loop below is the same 64-bit
// FNV-1a that stdlib hash/fnv implements, written inline.
func ChannelIDFromName(name string) ChannelID {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	var h uint64 = offset64
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= prime64
	}
	return ChannelID(h)
}

// Envelope is an immutable, reference-counted-by-GC carrier for a published
// value of type M. Multiple readers share the same *Envelope[M]; none of
// them may mutate Payload.
type Envelope[M any] struct {
	ID        uuid.UUID
	Channel   ChannelID
	CreatedAt int64 // milliseconds, see pkg/timestamp
	Payload   M
}

// New wraps payload for publication on channel.
func New[M any](channel ChannelID, payload M) *Envelope[M] {
	return &Envelope[M]{
		ID:        uuid.New(),
		Channel:   channel,
		CreatedAt: timestamp.Now(),
		Payload:   payload,
	}
}

// Age returns how long ago the envelope was created.
func (e *Envelope[M]) Age() time.Duration {
	return timestamp.Since(e.CreatedAt)
}

package session

import (
	"sync"

	"github.com/mediasmith/captor/pkg/capture"
)

// Buffer accumulates encoded media fragments in arrival order and tracks
// the cumulative byte size. Arrival order equals capture order, and the
// finalized payload preserves it — reordering would corrupt the decodable
// stream.
//
// Size-limit policy is the owning session's responsibility; the buffer only
// reports the cumulative size after each append.
//
// All methods are safe for concurrent use.
type Buffer struct {
	mu     sync.Mutex
	chunks []capture.Chunk
	bytes  int64
}

// NewBuffer creates an empty chunk buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Reset clears all fragments and the byte counter. Called only when a
// brand-new capture attempt begins.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = nil
	b.bytes = 0
}

// Append adds a fragment and returns the new cumulative size in bytes.
// Empty fragments are counted as arrivals but contribute no bytes.
func (b *Buffer) Append(c capture.Chunk) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, c)
	b.bytes += int64(c.Size())
	return b.bytes
}

// Bytes returns the cumulative size of all appended fragments.
func (b *Buffer) Bytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bytes
}

// Len returns the number of appended fragments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chunks)
}

// Payload is the finalized media payload assembled from all fragments of
// one capture attempt, tagged with its media type.
type Payload struct {
	// Data is the concatenated fragment data in arrival order.
	Data []byte

	// MimeType is the media type the recorder produced.
	MimeType string
}

// Finalize concatenates all fragments into a single [Payload] tagged with
// mimeType. The buffer contents are left intact so the payload can serve
// as a playable preview until the next attempt resets the buffer.
func (b *Buffer) Finalize(mimeType string) Payload {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := make([]byte, 0, b.bytes)
	for _, c := range b.chunks {
		data = append(data, c.Data...)
	}
	return Payload{Data: data, MimeType: mimeType}
}

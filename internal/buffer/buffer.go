// Package buffer holds the append-only receive buffer owned by a
// single connection.
package buffer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Chunk is one discrete append unit: the bytes delivered by a single
// socket read event. Chunks are never merged or reordered.
type Chunk struct {
	Data       []byte
	ReceivedAt time.Time
}

// Stats is a point-in-time snapshot of buffer and traffic counters.
// The byte counters are monotonic and survive a Clear.
type Stats struct {
	Chunks         int       `json:"chunks"`
	TotalSize      int       `json:"total_size"`
	BytesSent      int64     `json:"bytes_sent"`
	BytesReceived  int64     `json:"bytes_received"`
	LastReceivedAt time.Time `json:"last_received,omitempty"`
}

// Buffer stores received chunks in socket receive order. It is safe
// for concurrent use by the owning receive loop and tool calls.
type Buffer struct {
	mu           sync.RWMutex
	chunks       []Chunk
	lastReceived time.Time

	bytesSent     atomic.Int64
	bytesReceived atomic.Int64
}

func New() *Buffer {
	return &Buffer{}
}

// Append records one read event's bytes as a new chunk and bumps the
// received counter. The slice is copied; callers may reuse their read
// buffer.
func (b *Buffer) Append(data []byte) {
	chunk := Chunk{
		Data:       append([]byte(nil), data...),
		ReceivedAt: time.Now(),
	}

	b.mu.Lock()
	b.chunks = append(b.chunks, chunk)
	b.lastReceived = chunk.ReceivedAt
	b.mu.Unlock()

	b.bytesReceived.Add(int64(len(data)))
}

// AddSent bumps the sent counter after a successful socket write.
func (b *Buffer) AddSent(n int) {
	b.bytesSent.Add(int64(n))
}

// Chunks returns a copy of the chunk sequence starting at index.
// A nil index means the whole buffer; a nil count means through the
// end. Out-of-range reads yield an empty slice, not an error.
func (b *Buffer) Chunks(index, count *int) []Chunk {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if index != nil {
		start = *index
	}
	if start < 0 || start >= len(b.chunks) {
		return nil
	}

	end := len(b.chunks)
	if count != nil && start+*count < end {
		end = start + *count
	}
	if end <= start {
		return nil
	}

	out := make([]Chunk, end-start)
	copy(out, b.chunks[start:end])
	return out
}

// Bytes returns the reconstructed buffer content: every chunk's bytes
// concatenated in receive order.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, c := range b.chunks {
		total += len(c.Data)
	}

	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c.Data...)
	}
	return out
}

// Len returns the number of chunks currently buffered.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// Clear resets the chunk sequence. Counters are unaffected.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.chunks = nil
	b.mu.Unlock()
}

// BytesSent returns the monotonic sent counter.
func (b *Buffer) BytesSent() int64 {
	return b.bytesSent.Load()
}

// BytesReceived returns the monotonic received counter.
func (b *Buffer) BytesReceived() int64 {
	return b.bytesReceived.Load()
}

// Stats snapshots the buffer.
func (b *Buffer) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, c := range b.chunks {
		total += len(c.Data)
	}

	return Stats{
		Chunks:         len(b.chunks),
		TotalSize:      total,
		BytesSent:      b.bytesSent.Load(),
		BytesReceived:  b.bytesReceived.Load(),
		LastReceivedAt: b.lastReceived,
	}
}

package buffer_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvasudev/tcpsock/internal/buffer"
)

func intPtr(v int) *int { return &v }

func TestAppendPreservesReceiveOrder(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("first"))
	b.Append([]byte("second"))
	b.Append([]byte("third"))

	chunks := b.Chunks(nil, nil)
	require.Len(t, chunks, 3)
	assert.Equal(t, []byte("first"), chunks[0].Data)
	assert.Equal(t, []byte("second"), chunks[1].Data)
	assert.Equal(t, []byte("third"), chunks[2].Data)
}

func TestAppendCopiesData(t *testing.T) {
	b := buffer.New()
	src := []byte("hello")
	b.Append(src)
	src[0] = 'X'

	chunks := b.Chunks(nil, nil)
	require.Len(t, chunks, 1)
	assert.Equal(t, []byte("hello"), chunks[0].Data)
}

func TestChunksSlicing(t *testing.T) {
	b := buffer.New()
	for _, s := range []string{"a", "b", "c", "d"} {
		b.Append([]byte(s))
	}

	t.Run("from index to end", func(t *testing.T) {
		chunks := b.Chunks(intPtr(2), nil)
		require.Len(t, chunks, 2)
		assert.Equal(t, []byte("c"), chunks[0].Data)
	})

	t.Run("index and count", func(t *testing.T) {
		chunks := b.Chunks(intPtr(1), intPtr(2))
		require.Len(t, chunks, 2)
		assert.Equal(t, []byte("b"), chunks[0].Data)
		assert.Equal(t, []byte("c"), chunks[1].Data)
	})

	t.Run("count past end is clamped", func(t *testing.T) {
		chunks := b.Chunks(intPtr(3), intPtr(10))
		require.Len(t, chunks, 1)
	})

	t.Run("index out of range", func(t *testing.T) {
		assert.Empty(t, b.Chunks(intPtr(10), nil))
		assert.Empty(t, b.Chunks(intPtr(-1), nil))
	})

	t.Run("zero count", func(t *testing.T) {
		assert.Empty(t, b.Chunks(intPtr(0), intPtr(0)))
	})
}

func TestBytesReconstruction(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("PING"))
	b.Append([]byte(" :abc"))

	assert.Equal(t, []byte("PING :abc"), b.Bytes())
}

func TestClearKeepsCounters(t *testing.T) {
	b := buffer.New()
	b.Append([]byte("12345"))
	b.AddSent(3)

	require.Equal(t, int64(5), b.BytesReceived())
	require.Equal(t, int64(3), b.BytesSent())

	b.Clear()

	assert.Zero(t, b.Len())
	assert.Empty(t, b.Chunks(nil, nil))
	assert.Equal(t, int64(5), b.BytesReceived(), "bytes_received must survive a clear")
	assert.Equal(t, int64(3), b.BytesSent(), "bytes_sent must survive a clear")
}

func TestStats(t *testing.T) {
	b := buffer.New()

	stats := b.Stats()
	assert.Zero(t, stats.Chunks)
	assert.True(t, stats.LastReceivedAt.IsZero())

	b.Append([]byte("abc"))
	b.Append([]byte("de"))

	stats = b.Stats()
	assert.Equal(t, 2, stats.Chunks)
	assert.Equal(t, 5, stats.TotalSize)
	assert.Equal(t, int64(5), stats.BytesReceived)
	assert.False(t, stats.LastReceivedAt.IsZero())
}

func TestConcurrentAppendAndRead(t *testing.T) {
	b := buffer.New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.Append([]byte("x"))
				_ = b.Bytes()
				_ = b.Stats()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, b.Len())
	assert.Equal(t, int64(800), b.BytesReceived())
}

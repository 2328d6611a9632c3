// Package conn owns a single TCP connection: its socket, its receive
// buffer, and its active trigger set.
package conn

import (
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kvasudev/tcpsock/internal/buffer"
	"github.com/kvasudev/tcpsock/internal/codec"
	"github.com/kvasudev/tcpsock/internal/errors"
	"github.com/kvasudev/tcpsock/internal/logger"
	"github.com/kvasudev/tcpsock/internal/status"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

// Connection is one live TCP connection. Exactly one receive loop runs
// per open connection; sends may come from any caller but are
// serialized by a write mutex so partial writes never interleave.
type Connection struct {
	ID        string
	Host      string
	Port      int
	CreatedAt time.Time

	sock          net.Conn
	buf           *buffer.Buffer
	triggers      *trigger.Table
	readChunkSize int

	st atomic.Int32

	sendMu sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// Dial establishes the socket. Nothing is running yet; the caller
// starts the receive loop with Start once the connection is
// registered and any pending triggers have been migrated in.
func Dial(ctx context.Context, id, host string, port int, dialTimeout time.Duration, readChunkSize int) (*Connection, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: dialTimeout}
	sock, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.NewConnectFailed(err, addr)
	}

	c := &Connection{
		ID:            id,
		Host:          host,
		Port:          port,
		CreatedAt:     time.Now(),
		sock:          sock,
		buf:           buffer.New(),
		triggers:      trigger.NewTable(),
		readChunkSize: readChunkSize,
		done:          make(chan struct{}),
	}
	c.st.Store(int32(status.Open))

	logger.Infof("connection %s established to %s", id, addr)
	return c, nil
}

// Start launches the receive loop. Must be called exactly once.
func (c *Connection) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go c.receiveLoop(loopCtx)
}

// receiveLoop reads until EOF, error, or cancellation. Each read event
// appends one chunk and runs a trigger evaluation pass over the full
// reconstructed buffer, since protocol messages may span reads.
func (c *Connection) receiveLoop(ctx context.Context) {
	defer close(c.done)

	readBuf := make([]byte, c.readChunkSize)
	for {
		n, err := c.sock.Read(readBuf)
		if n > 0 {
			c.buf.Append(readBuf[:n])
			c.evaluateTriggers()
		}

		if err != nil {
			switch {
			case ctx.Err() != nil, errors.Is(err, net.ErrClosed):
				c.setStatus(status.Closed)
			case errors.Is(err, io.EOF):
				logger.Infof("connection %s closed by remote", c.ID)
				c.setStatus(status.Closed)
			default:
				logger.Errorf("connection %s read error: %v", c.ID, err)
				c.setStatus(status.Failed)
			}
			return
		}
	}
}

// evaluateTriggers runs one first-match-wins pass and sends the
// winning response. The response bytes go straight out the socket and
// never enter the buffer, so a trigger cannot feed itself.
func (c *Connection) evaluateTriggers() {
	res, errs := c.triggers.Evaluate(c.buf.Bytes())
	for _, err := range errs {
		logger.Warnf("connection %s trigger failed: %v", c.ID, err)
	}
	if res == nil {
		return
	}

	logger.Infof("trigger %s fired on connection %s", res.TriggerID, c.ID)
	if _, err := c.Send(res.Payload); err != nil {
		logger.Warnf("connection %s trigger %s response send failed: %v", c.ID, res.TriggerID, err)
	}
}

// Send writes data to the socket and returns the byte count. Fails
// with a send error if the connection is not open or the write fails.
func (c *Connection) Send(data []byte) (int, error) {
	if c.Status() != status.Open {
		return 0, errors.NewSendFailed(errors.ErrNotOpen, c.ID)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	n, err := c.sock.Write(data)
	if n > 0 {
		c.buf.AddSent(n)
	}
	if err != nil {
		c.setStatus(status.Failed)
		return n, errors.NewSendFailed(err, c.ID)
	}

	logger.Debugf("sent %d bytes on connection %s", n, c.ID)
	return n, nil
}

// ReadBuffer returns buffered chunks decoded per format without
// mutating the buffer. A nil index means the whole buffer; a nil
// count means through the end.
func (c *Connection) ReadBuffer(index, count *int, format codec.Encoding) []string {
	chunks := c.buf.Chunks(index, count)

	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, codec.Format(chunk.Data, format))
	}
	return out
}

// ClearBuffer drops all buffered chunks and rewinds trigger scan
// offsets so they stay aligned with buffer content. Counters are
// unaffected.
func (c *Connection) ClearBuffer() {
	c.buf.Clear()
	c.triggers.ResetScan()
}

// BufferStats snapshots buffer and traffic counters.
func (c *Connection) BufferStats() buffer.Stats {
	return c.buf.Stats()
}

// SetTrigger attaches a rule to the active set, replacing a same-id
// rule in place.
func (c *Connection) SetTrigger(t *trigger.Trigger) {
	c.triggers.Set(t)
}

// RemoveTrigger deletes a rule by id, reporting whether it existed.
func (c *Connection) RemoveTrigger(id string) bool {
	return c.triggers.Remove(id)
}

// Triggers lists the active rules in registration order.
func (c *Connection) Triggers() []trigger.Info {
	return c.triggers.List()
}

// TriggerCount returns the number of active rules.
func (c *Connection) TriggerCount() int {
	return c.triggers.Len()
}

// Status returns the connection status atomically.
func (c *Connection) Status() status.Status {
	return status.Status(c.st.Load())
}

func (c *Connection) setStatus(s status.Status) {
	c.st.Store(int32(s))
}

// Close cancels the receive loop and releases the socket. The buffer
// is left intact for inspection until the registry entry is removed.
// Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if !c.Status().Terminal() {
			c.setStatus(status.Closed)
		}
		if c.cancel != nil {
			c.cancel()
		}
		if err := c.sock.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warnf("error closing connection %s: %v", c.ID, err)
		}
		logger.Infof("connection %s closed", c.ID)
	})
}

// Done is closed when the receive loop has exited.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

package conn

import (
	"time"

	"github.com/kvasudev/tcpsock/internal/buffer"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

// Summary is the per-connection row returned by list operations.
type Summary struct {
	ConnectionID  string `json:"connection_id"`
	Host          string `json:"host"`
	Port          int    `json:"port"`
	Status        string `json:"status"`
	BytesSent     int64  `json:"bytes_sent"`
	BytesReceived int64  `json:"bytes_received"`
	BufferChunks  int    `json:"buffer_chunks"`
	Triggers      int    `json:"triggers"`
}

// Detail is the full snapshot returned by connection-info operations.
type Detail struct {
	ConnectionID string         `json:"connection_id"`
	Host         string         `json:"host"`
	Port         int            `json:"port"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	Buffer       buffer.Stats   `json:"buffer"`
	Triggers     []trigger.Info `json:"triggers"`
}

// Summary snapshots the connection for list output.
func (c *Connection) Summary() Summary {
	stats := c.buf.Stats()
	return Summary{
		ConnectionID:  c.ID,
		Host:          c.Host,
		Port:          c.Port,
		Status:        c.Status().String(),
		BytesSent:     stats.BytesSent,
		BytesReceived: stats.BytesReceived,
		BufferChunks:  stats.Chunks,
		Triggers:      c.TriggerCount(),
	}
}

// Detail snapshots the connection including its trigger rules.
func (c *Connection) Detail() Detail {
	return Detail{
		ConnectionID: c.ID,
		Host:         c.Host,
		Port:         c.Port,
		Status:       c.Status().String(),
		CreatedAt:    c.CreatedAt,
		Buffer:       c.buf.Stats(),
		Triggers:     c.Triggers(),
	}
}

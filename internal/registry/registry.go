// Package registry is the authoritative owner of the id→connection
// map. It orchestrates connection creation and removal and migrates
// pre-registered triggers into new connections.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kvasudev/tcpsock/internal/conn"
	"github.com/kvasudev/tcpsock/internal/errors"
	"github.com/kvasudev/tcpsock/internal/logger"
	"github.com/kvasudev/tcpsock/internal/trigger"
)

// Trigger placement results reported to callers.
const (
	TriggerActive         = "active"
	TriggerPending        = "pending"
	TriggerRemovedActive  = "removed_active"
	TriggerRemovedPending = "removed_pending"
)

// Registry maps connection ids to live connections. Ids are unique
// among active connections and reusable only after removal.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*conn.Connection
	order       []string
	creating    map[string]struct{}

	pending *trigger.PendingStore

	dialTimeout   time.Duration
	readChunkSize int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Registry scoped to the process lifetime. All receive
// loops are children of the registry context and die with it.
func New(dialTimeout time.Duration, readChunkSize int) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		connections:   make(map[string]*conn.Connection),
		creating:      make(map[string]struct{}),
		pending:       trigger.NewPendingStore(),
		dialTimeout:   dialTimeout,
		readChunkSize: readChunkSize,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Create establishes a connection and registers it. An empty id gets a
// generated one. A duplicate id fails before any dial attempt. Pending
// triggers registered under the id migrate into the active set before
// the receive loop starts, as one atomic step with registration.
// Returns the connection and the ids of any migrated triggers.
func (r *Registry) Create(ctx context.Context, host string, port int, id string) (*conn.Connection, []string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	// Reserve the id so a concurrent Create with the same id fails
	// instead of racing the dial.
	r.mu.Lock()
	if _, exists := r.connections[id]; exists {
		r.mu.Unlock()
		return nil, nil, errors.NewDuplicateID(id)
	}
	if _, exists := r.creating[id]; exists {
		r.mu.Unlock()
		return nil, nil, errors.NewDuplicateID(id)
	}
	r.creating[id] = struct{}{}
	r.mu.Unlock()

	c, err := conn.Dial(ctx, id, host, port, r.dialTimeout, r.readChunkSize)

	r.mu.Lock()
	delete(r.creating, id)
	if err != nil {
		r.mu.Unlock()
		return nil, nil, err
	}

	var applied []string
	for _, t := range r.pending.Take(id) {
		c.SetTrigger(t)
		applied = append(applied, t.ID)
	}

	r.connections[id] = c
	r.order = append(r.order, id)
	r.mu.Unlock()

	c.Start(r.ctx)

	if len(applied) > 0 {
		logger.Infof("applied %d pre-registered trigger(s) to connection %s", len(applied), id)
	}
	return c, applied, nil
}

// CreateAndSend is the atomic connect-plus-send operation. A send
// failure after a successful connect tears the new connection back
// down and reports the send failure.
func (r *Registry) CreateAndSend(ctx context.Context, host string, port int, id string, payload []byte) (*conn.Connection, []string, int, error) {
	c, applied, err := r.Create(ctx, host, port, id)
	if err != nil {
		return nil, nil, 0, err
	}

	n, err := c.Send(payload)
	if err != nil {
		logger.Warnf("connect-and-send to %s:%d failed after connect: %v", host, port, err)
		if removeErr := r.Remove(c.ID); removeErr != nil {
			logger.Errorf("failed to tear down connection %s: %v", c.ID, removeErr)
		}
		return nil, nil, 0, err
	}

	return c, applied, n, nil
}

// Get returns the connection for id.
func (r *Registry) Get(id string) (*conn.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.connections[id]
	if !ok {
		return nil, errors.NewNotFound(id)
	}
	return c, nil
}

// Remove cancels the connection's receive loop, closes its socket, and
// discards its buffer and active triggers along with the registry
// entry. The id becomes reusable.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	c, ok := r.connections[id]
	if !ok {
		r.mu.Unlock()
		return errors.NewNotFound(id)
	}
	delete(r.connections, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	c.Close()
	return nil
}

// List summarizes active connections in creation order.
func (r *Registry) List() []conn.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]conn.Summary, 0, len(r.order))
	for _, id := range r.order {
		if c, ok := r.connections[id]; ok {
			out = append(out, c.Summary())
		}
	}
	return out
}

// RegisterTrigger attaches a trigger to the connection's active set if
// the connection exists, otherwise records it as pending for that id.
// Same-id triggers are replaced, not duplicated. Returns where the
// trigger landed: "active" or "pending".
func (r *Registry) RegisterTrigger(connID string, t *trigger.Trigger) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.connections[connID]; ok {
		c.SetTrigger(t)
		return TriggerActive
	}

	r.pending.Set(connID, t)
	return TriggerPending
}

// RemoveTrigger removes a trigger from whichever set holds it and
// reports which one that was.
func (r *Registry) RemoveTrigger(connID, triggerID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.connections[connID]; ok {
		if c.RemoveTrigger(triggerID) {
			return TriggerRemovedActive, nil
		}
		return "", errors.NewNotFound(triggerID)
	}

	if r.pending.Remove(connID, triggerID) {
		return TriggerRemovedPending, nil
	}
	return "", errors.NewNotFound(triggerID)
}

// HasPending reports whether any triggers are pre-registered for the
// given connection id.
func (r *Registry) HasPending(connID string) bool {
	return r.pending.Has(connID)
}

// CloseAll closes every connection in parallel and waits for their
// receive loops to exit or ctx to expire.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	conns := make([]*conn.Connection, 0, len(r.connections))
	for _, c := range r.connections {
		conns = append(conns, c)
	}
	r.connections = make(map[string]*conn.Connection)
	r.order = nil
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range conns {
		c := c
		g.Go(func() error {
			c.Close()
			select {
			case <-c.Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

// Shutdown cancels all receive loops and closes every connection.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()
	return r.CloseAll(ctx)
}

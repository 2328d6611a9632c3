package trigger

import "sync"

// PendingStore holds triggers registered against connection ids that
// do not exist yet. They migrate verbatim into the connection's active
// table when that id connects, and are discarded only by explicit
// removal; a failed connect leaves them pending.
type PendingStore struct {
	mu      sync.Mutex
	pending map[string][]*Trigger
}

func NewPendingStore() *PendingStore {
	return &PendingStore{pending: make(map[string][]*Trigger)}
}

// Set records a pending trigger for connID, replacing a same-id entry
// in place.
func (ps *PendingStore) Set(connID string, t *Trigger) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	list := ps.pending[connID]
	for i, existing := range list {
		if existing.ID == t.ID {
			list[i] = t
			return
		}
	}
	ps.pending[connID] = append(list, t)
}

// Remove deletes a pending trigger, reporting whether it existed.
// An emptied connection entry is dropped entirely.
func (ps *PendingStore) Remove(connID, triggerID string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	list, ok := ps.pending[connID]
	if !ok {
		return false
	}
	for i, t := range list {
		if t.ID == triggerID {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(ps.pending, connID)
			} else {
				ps.pending[connID] = list
			}
			return true
		}
	}
	return false
}

// Take removes and returns all pending triggers for connID in
// registration order.
func (ps *PendingStore) Take(connID string) []*Trigger {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	list := ps.pending[connID]
	delete(ps.pending, connID)
	return list
}

// Has reports whether any triggers are pending for connID.
func (ps *PendingStore) Has(connID string) bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return len(ps.pending[connID]) > 0
}

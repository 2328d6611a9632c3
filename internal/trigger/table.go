package trigger

import "sync"

// Result is the outcome of an evaluation pass that fired: the payload
// to send and the rule that produced it.
type Result struct {
	TriggerID string
	Payload   []byte
}

// Table is a connection's active trigger set. Rules keep registration
// order; registering an existing id replaces the rule in its slot.
// Safe for concurrent use by tool calls and the owning receive loop.
type Table struct {
	mu       sync.Mutex
	triggers []*Trigger
}

func NewTable() *Table {
	return &Table{}
}

// Set adds or replaces a rule.
func (tb *Table) Set(t *Trigger) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for i, existing := range tb.triggers {
		if existing.ID == t.ID {
			tb.triggers[i] = t
			return
		}
	}
	tb.triggers = append(tb.triggers, t)
}

// Remove deletes a rule by id, reporting whether it existed.
func (tb *Table) Remove(id string) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for i, t := range tb.triggers {
		if t.ID == id {
			tb.triggers = append(tb.triggers[:i], tb.triggers[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of active rules.
func (tb *Table) Len() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return len(tb.triggers)
}

// List describes the active rules in registration order.
func (tb *Table) List() []Info {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	infos := make([]Info, 0, len(tb.triggers))
	for _, t := range tb.triggers {
		infos = append(infos, t.info())
	}
	return infos
}

// Evaluate runs one pass over the reconstructed buffer content. Rules
// are tested in registration order and the first match wins: at most
// one Result per pass. A rule whose response cannot be rendered is
// skipped (its error is collected) and evaluation continues, so one
// broken trigger never blocks the rest.
func (tb *Table) Evaluate(buf []byte) (*Result, []error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	var errs []error
	for _, t := range tb.triggers {
		payload, matched, err := t.match(buf)
		if !matched {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return &Result{TriggerID: t.ID, Payload: payload}, errs
	}
	return nil, errs
}

// ResetScan rewinds every rule's fired-match offset; called when the
// owning buffer is cleared so offsets stay aligned with buffer content.
func (tb *Table) ResetScan() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for _, t := range tb.triggers {
		t.resetScan()
	}
}

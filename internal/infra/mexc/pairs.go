package mexc

import "sync"

// PairRegistry tracks take-profit/stop-loss order pairs awaiting OCO
// resolution. The mapping is bidirectional: both ids point at their
// sibling, and an id is present iff its sibling is still believed
// open. It is the only state shared between the trade path (insert)
// and the fill watcher (remove), so every access takes the lock.
type PairRegistry struct {
	mu       sync.Mutex
	siblings map[string]string
}

// NewPairRegistry creates an empty registry.
func NewPairRegistry() *PairRegistry {
	return &PairRegistry{siblings: make(map[string]string)}
}

// Add links a take-profit order and its stop-loss sibling.
func (r *PairRegistry) Add(tpOrderID, slOrderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.siblings[tpOrderID] = slOrderID
	r.siblings[slOrderID] = tpOrderID
}

// Take removes the pair containing id and returns the sibling to
// cancel. Removal is idempotent: a second Take for either id of an
// already-removed pair reports ok=false and mutates nothing, so a
// duplicate terminal notification never triggers a duplicate cancel.
func (r *PairRegistry) Take(id string) (sibling string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sibling, ok = r.siblings[id]
	if !ok {
		return "", false
	}
	delete(r.siblings, id)
	delete(r.siblings, sibling)
	return sibling, true
}

// Len reports the number of tracked ids (both directions counted).
func (r *PairRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.siblings)
}

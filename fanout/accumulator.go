package fanout

import (
	"sync"

	"github.com/google/uuid"
)

// Accumulator collects the submission ids produced by concurrent units.
// Once closed it rejects late ids, so a snapshot taken at close is final.
type Accumulator struct {
	mu     sync.Mutex
	ids    []uuid.UUID
	closed bool
}

// Append records id and reports whether it was accepted.
func (a *Accumulator) Append(id uuid.UUID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.ids = append(a.ids, id)
	return true
}

// Snapshot returns a copy of the ids appended so far.
func (a *Accumulator) Snapshot() []uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]uuid.UUID, len(a.ids))
	copy(out, a.ids)
	return out
}

// Close stops accepting ids and returns the final snapshot.
func (a *Accumulator) Close() []uuid.UUID {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()
	return a.Snapshot()
}

package reconcile

import "sync"

// Cell is a view's locally-held snapshot of one server entity. Cells are
// owned by a single view and never shared across views; two views holding
// the same logical entity hold two independent cells, and consistency
// between them is eventual (each re-fetches or reconciles on its own).
type Cell[S any] struct {
	mu    sync.RWMutex
	value S
}

// NewCell creates a Cell holding the given snapshot.
func NewCell[S any](initial S) *Cell[S] {
	return &Cell[S]{value: initial}
}

// Get returns the current snapshot.
func (c *Cell[S]) Get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set replaces the snapshot.
func (c *Cell[S]) Set(v S) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
}

// Update applies fn to the current snapshot atomically.
func (c *Cell[S]) Update(fn func(S) S) {
	c.mu.Lock()
	c.value = fn(c.value)
	c.mu.Unlock()
}

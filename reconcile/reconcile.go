// Package reconcile makes locally-visible mutations feel synchronous while
// keeping the server authoritative. A mutation is applied to the view's
// snapshot immediately, the server call goes out, and settlement either
// merges the server's truth or applies the exact inverse of the speculative
// patch. Like, follow, and edit are all instances of the same descriptor;
// only their patch functions differ.
package reconcile

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-social-client/transport"
)

// Mutation describes one user-initiated change bound to a specific
// on-screen snapshot. Created per action, consumed once.
type Mutation[S any] struct {
	// EntityID keys the per-entity serialization: mutations sharing an id
	// settle in issue order.
	EntityID string

	// Apply is the optimistic patch, applied to the snapshot before the
	// server round-trip completes.
	Apply func(S) S

	// Invert is the exact inverse of Apply. Rollback applies it to the
	// current snapshot rather than restoring a saved copy, because an
	// unrelated field of the same snapshot may have changed while the call
	// was in flight.
	Invert func(S) S

	// Call issues the server request.
	Call func(ctx context.Context) (*transport.Result, error)

	// Merge folds server-confirmed fields into the settled snapshot. The
	// server's values always win over the optimistic guess. Optional; nil
	// keeps the optimistic result.
	Merge func(S, *transport.Result) S

	// Duplicate classifies errors that mean the server considered the
	// action already applied. Those settle as success with no merge: the
	// optimistic guess was already true. Optional.
	Duplicate func(err error) bool
}

// Reconciler serializes mutations per entity. Different entities proceed
// independently; for one entity, a second mutation waits for the in-flight
// one to settle before applying its optimistic patch, so a rapid double
// toggle can never patch against a snapshot a pending rollback is about to
// rewrite.
type Reconciler struct {
	mu      sync.Mutex
	tails   map[string]chan struct{}
	pending map[string]int
}

// New creates a Reconciler.
func New() *Reconciler {
	return &Reconciler{
		tails:   map[string]chan struct{}{},
		pending: map[string]int{},
	}
}

// acquire enqueues the caller behind any in-flight mutation for entityID.
// The returned channel is closed when the predecessor settles (nil when
// there is none); release must be called exactly once after settlement.
func (r *Reconciler) acquire(entityID string) (prev <-chan struct{}, release func()) {
	mine := make(chan struct{})

	r.mu.Lock()
	predecessor := r.tails[entityID]
	r.tails[entityID] = mine
	r.pending[entityID]++
	r.mu.Unlock()

	release = func() {
		close(mine)
		r.mu.Lock()
		r.pending[entityID]--
		if r.pending[entityID] == 0 {
			delete(r.pending, entityID)
			delete(r.tails, entityID)
		}
		r.mu.Unlock()
	}
	return predecessor, release
}

// Do runs one mutation against the given cell: capture, optimistic patch,
// server call, then merge or exact rollback. The error, when non-nil, is a
// *transport.NetworkError, transport.ErrUnauthorized, or *RejectedError —
// in every case the cell has already been restored.
func Do[S any](ctx context.Context, r *Reconciler, cell *Cell[S], m Mutation[S]) error {
	if r == nil || cell == nil {
		return errors.New("[reconcile.Do] reconciler and cell are required")
	}
	if m.EntityID == "" {
		return errors.New("[reconcile.Do] mutation entity id is required")
	}
	if m.Apply == nil || m.Invert == nil || m.Call == nil {
		return errors.New("[reconcile.Do] mutation patch and call functions are required")
	}

	prev, release := r.acquire(m.EntityID)
	defer release()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	cell.Update(m.Apply)

	result, err := m.Call(ctx)
	if err != nil {
		if m.Duplicate != nil && m.Duplicate(err) {
			// The action was already applied server-side; the optimistic
			// state matches reality and there is nothing to merge.
			return nil
		}
		cell.Update(m.Invert)
		return settleFailure(m.EntityID, err)
	}

	if m.Merge != nil {
		cell.Update(func(current S) S { return m.Merge(current, result) })
	}
	return nil
}

func settleFailure(entityID string, err error) error {
	log.Debug().Str("entity_id", entityID).Err(err).Msg("mutation rolled back")

	var netErr *transport.NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	if errors.Is(err, transport.ErrUnauthorized) {
		return err
	}
	return &RejectedError{Cause: err}
}

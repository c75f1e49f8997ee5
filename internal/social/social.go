// Package social reconciles optimistic like/subscribe toggles against
// server truth. The coordinator is pure state: the view issues the
// mutating request and feeds the settlement back in.
package social

import "errors"

// ErrPending rejects a toggle while the previous one is still in
// flight, so rapid repeated activation cannot fan out duplicate
// mutations.
var ErrPending = errors.New("social: action already in flight")

// Value is the displayed state of one action kind: whether the viewer
// has engaged (liked, subscribed) and the public counter.
type Value struct {
	Engaged bool
	Count   int
}

// Coordinator tracks one action kind through the optimistic cycle:
// capture committed value, flip the display, then either commit the
// server-declared truth or restore the capture exactly.
type Coordinator struct {
	value   Value
	loaded  bool
	pending bool
}

func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Value returns the currently displayed state.
func (c *Coordinator) Value() Value { return c.value }

// Loaded reports whether server state has ever been adopted.
func (c *Coordinator) Loaded() bool { return c.loaded }

// Pending reports whether a mutation is in flight.
func (c *Coordinator) Pending() bool { return c.pending }

// SetCommitted adopts server state outside a mutation, e.g. the lazy
// initial fetch or a poller refresh. Ignored while a mutation is in
// flight; the settlement will bring fresher truth.
func (c *Coordinator) SetCommitted(v Value) {
	if c.pending {
		return
	}
	c.value = v
	c.loaded = true
}

// Begin starts a toggle: it captures the committed value for rollback,
// optimistically flips the displayed state, and marks the action in
// flight. Returns ErrPending when a mutation is already running.
func (c *Coordinator) Begin() (Value, error) {
	if c.pending {
		return Value{}, ErrPending
	}

	captured := c.value
	flipped := Value{Engaged: !captured.Engaged, Count: captured.Count}
	if flipped.Engaged {
		flipped.Count++
	} else if flipped.Count > 0 {
		flipped.Count--
	}

	c.value = flipped
	c.pending = true
	return captured, nil
}

// Commit adopts the server-declared truth after a successful mutation.
// The server value wins over the naive flip; counters move concurrently
// under other viewers.
func (c *Coordinator) Commit(v Value) {
	c.value = v
	c.loaded = true
	c.pending = false
}

// Rollback restores the captured pre-action value exactly.
func (c *Coordinator) Rollback(captured Value) {
	c.value = captured
	c.pending = false
}

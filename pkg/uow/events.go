// SPDX-License-Identifier: Apache-2.0

package uow

// EventName enumerates the lifecycle events dispatched around
// each processor step.
type EventName string

const (
	PrePersist  EventName = "pre_persist"
	PostPersist EventName = "post_persist"
	PreUpdate   EventName = "pre_update"
	PostUpdate  EventName = "post_update"
	PreRemove   EventName = "pre_remove"
	PostRemove  EventName = "post_remove"
	PostLoad    EventName = "post_load"
)

// EventHandler receives the instance an event fires for, plus its change
// set when the event is update-related (nil otherwise).
type EventHandler func(instance any, changes map[string]PropertyChange) error

// eventKey dedups a single dispatch within a flush: the same instance must
// not receive the same event twice at the same flush depth.
type eventKey struct {
	instance any
	name     EventName
	depth    int
}

// Dispatcher fires lifecycle event handlers, deduplicating by
// (entity-identity, event-name, flush-depth) so that work a handler
// schedules mid-flush (which re-enters the same depth) cannot cause the
// same event to fire twice for the same entity.
type Dispatcher struct {
	handlers  map[EventName][]EventHandler
	processed map[eventKey]bool
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers:  make(map[EventName][]EventHandler),
		processed: make(map[eventKey]bool),
	}
}

// On registers handler to fire whenever name is dispatched.
func (d *Dispatcher) On(name EventName, handler EventHandler) {
	d.handlers[name] = append(d.handlers[name], handler)
}

// Dispatch fires every handler registered for name against instance, unless
// (instance, name, depth) was already dispatched. Returns the first handler
// error encountered, if any.
func (d *Dispatcher) Dispatch(name EventName, instance any, changes map[string]PropertyChange, depth int) error {
	key := eventKey{instance: instance, name: name, depth: depth}
	if d.processed[key] {
		return nil
	}
	d.processed[key] = true

	for _, h := range d.handlers[name] {
		if err := h(instance, changes); err != nil {
			return err
		}
	}
	return nil
}

// ResetDepth clears the dedup record for a single flush depth, once that
// depth's processing loop has fully drained.
func (d *Dispatcher) ResetDepth(depth int) {
	for key := range d.processed {
		if key.depth == depth {
			delete(d.processed, key)
		}
	}
}

// Reset clears every dedup record. Called when the context is cleared and
// when a top-level flush ends.
func (d *Dispatcher) Reset() {
	d.processed = make(map[eventKey]bool)
}

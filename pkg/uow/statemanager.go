// SPDX-License-Identifier: Apache-2.0

package uow

// StateManager tracks the scheduled-insertion and scheduled-deletion queues
// and drives the lifecycle transitions between entity states. Updates have
// no queue of their own — any MANAGED entity with a non-empty change set is
// implicitly scheduled for update at flush time.
type StateManager struct {
	insertions []any // ordered by persist time
	deletions  []any // ordered by remove time
}

func newStateManager() *StateManager {
	return &StateManager{}
}

// Persist applies the persist(e) transition to st, in place, queuing an
// insertion when appropriate.
func (sm *StateManager) Persist(instance any, st *EntityState) error {
	switch st.Lifecycle {
	case New:
		sm.insertions = append(sm.insertions, instance)
		st.Lifecycle = Managed
	case Removed:
		sm.removeFrom(&sm.deletions, instance)
		st.Lifecycle = Managed
	case Managed:
		// no-op
	case Detached:
		return DetachedEntityError{Class: st.Class}
	}
	return nil
}

// Remove applies the remove(e) transition to st, in place.
func (sm *StateManager) Remove(instance any, st *EntityState) error {
	switch st.Lifecycle {
	case New:
		sm.removeFrom(&sm.insertions, instance)
	case Managed:
		for _, e := range sm.insertions {
			if e == instance {
				sm.removeFrom(&sm.insertions, instance)
				st.Lifecycle = New
				return nil
			}
		}
		sm.deletions = append(sm.deletions, instance)
		st.Lifecycle = Removed
	case Removed:
		// no-op
	case Detached:
		return DetachedEntityError{Class: st.Class}
	}
	return nil
}

// Detach removes instance from every queue and marks st DETACHED.
func (sm *StateManager) Detach(instance any, st *EntityState) {
	sm.removeFrom(&sm.insertions, instance)
	sm.removeFrom(&sm.deletions, instance)
	st.Lifecycle = Detached
}

// ScheduledInsertions returns the current insertion queue, in persist order.
func (sm *StateManager) ScheduledInsertions() []any {
	return append([]any(nil), sm.insertions...)
}

// ScheduledDeletions returns the current deletion queue, in remove order.
func (sm *StateManager) ScheduledDeletions() []any {
	return append([]any(nil), sm.deletions...)
}

// ClearInsertion removes instance from the insertion queue (called by the
// Flush Orchestrator once the insert has been processed).
func (sm *StateManager) ClearInsertion(instance any) {
	sm.removeFrom(&sm.insertions, instance)
}

// ClearDeletion removes instance from the deletion queue (called by the
// Flush Orchestrator once the delete has been processed).
func (sm *StateManager) ClearDeletion(instance any) {
	sm.removeFrom(&sm.deletions, instance)
}

// RequeueInsertion re-adds instance to the insertion queue if not already
// present (used to undo a rolled-back insert).
func (sm *StateManager) RequeueInsertion(instance any) {
	for _, e := range sm.insertions {
		if e == instance {
			return
		}
	}
	sm.insertions = append(sm.insertions, instance)
}

// RequeueDeletion re-adds instance to the deletion queue if not already
// present (used to undo a rolled-back delete).
func (sm *StateManager) RequeueDeletion(instance any) {
	for _, e := range sm.deletions {
		if e == instance {
			return
		}
	}
	sm.deletions = append(sm.deletions, instance)
}

// Empty reports whether both queues are empty.
func (sm *StateManager) Empty() bool {
	return len(sm.insertions) == 0 && len(sm.deletions) == 0
}

func (sm *StateManager) removeFrom(queue *[]any, instance any) {
	q := *queue
	for i, e := range q {
		if e == instance {
			*queue = append(q[:i], q[i+1:]...)
			return
		}
	}
}

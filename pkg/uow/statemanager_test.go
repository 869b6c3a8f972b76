// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManagerPersistNewQueuesInsertion(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: New}
	a := &struct{}{}

	require.NoError(t, sm.Persist(a, st))

	assert.Equal(t, Managed, st.Lifecycle)
	assert.Equal(t, []any{a}, sm.ScheduledInsertions())
}

func TestStateManagerPersistManagedIsNoop(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: Managed}
	a := &struct{}{}

	require.NoError(t, sm.Persist(a, st))
	assert.Equal(t, Managed, st.Lifecycle)
	assert.True(t, sm.Empty())
}

func TestStateManagerPersistRemovedCancelsDeletion(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: Managed}
	a := &struct{}{}

	require.NoError(t, sm.Remove(a, st))
	assert.Equal(t, []any{a}, sm.ScheduledDeletions())

	require.NoError(t, sm.Persist(a, st))
	assert.Equal(t, Managed, st.Lifecycle)
	assert.Empty(t, sm.ScheduledDeletions())
}

func TestStateManagerPersistDetachedFails(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: Detached}
	a := &struct{}{}

	err := sm.Persist(a, st)
	assert.Error(t, err)
	assert.ErrorAs(t, err, &DetachedEntityError{})
}

func TestStateManagerRemoveNewCancelsInsertion(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: New}
	a := &struct{}{}

	require.NoError(t, sm.Persist(a, st))
	require.NoError(t, sm.Remove(a, st))

	assert.Empty(t, sm.ScheduledInsertions())
	assert.Empty(t, sm.ScheduledDeletions(), "an entity never flushed to the database needs no DELETE")
}

func TestStateManagerRemoveManagedQueuesDeletion(t *testing.T) {
	sm := newStateManager()
	st := &EntityState{Class: "x", Lifecycle: Managed}
	a := &struct{}{}

	require.NoError(t, sm.Remove(a, st))
	assert.Equal(t, Removed, st.Lifecycle)
	assert.Equal(t, []any{a}, sm.ScheduledDeletions())
}

func TestStateManagerDetachClearsBothQueues(t *testing.T) {
	sm := newStateManager()
	a := &struct{}{}
	b := &struct{}{}
	stA := &EntityState{Class: "x", Lifecycle: New}
	stB := &EntityState{Class: "x", Lifecycle: Managed}

	require.NoError(t, sm.Persist(a, stA))
	require.NoError(t, sm.Remove(b, stB))

	sm.Detach(a, stA)
	assert.Equal(t, Detached, stA.Lifecycle)
	assert.Empty(t, sm.ScheduledInsertions())
	assert.Equal(t, []any{b}, sm.ScheduledDeletions())
}

func TestStateManagerClearInsertionAndDeletion(t *testing.T) {
	sm := newStateManager()
	a := &struct{}{}
	st := &EntityState{Class: "x", Lifecycle: New}
	require.NoError(t, sm.Persist(a, st))

	sm.ClearInsertion(a)
	assert.True(t, sm.Empty())

	st2 := &EntityState{Class: "x", Lifecycle: Managed}
	require.NoError(t, sm.Remove(a, st2))
	sm.ClearDeletion(a)
	assert.True(t, sm.Empty())
}

func TestLifecycleStateString(t *testing.T) {
	assert.Equal(t, "NEW", New.String())
	assert.Equal(t, "MANAGED", Managed.String())
	assert.Equal(t, "DETACHED", Detached.String())
	assert.Equal(t, "REMOVED", Removed.String())
}

// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

// EntityRegistry holds a per-instance snapshot of every mapped column, the
// current target of every owning *-to-one relation and the members of every
// owning many-to-many relation, captured at load time, at persist-of-new-with-assigned-id, and
// at each successful flush. Keyed on instance identity (the
// pointer value itself), not on primary key, so NEW entities without an id
// yet are still tracked.
type EntityRegistry struct {
	states map[any]*EntityState
}

func newEntityRegistry() *EntityRegistry {
	return &EntityRegistry{states: make(map[any]*EntityState)}
}

// Track begins tracking instance in the given lifecycle state, snapshotting
// its current column and owning relation values as "original".
func (r *EntityRegistry) Track(instance any, meta *metadata.EntityMetadata, acc entity.Accessor, lifecycle LifecycleState) *EntityState {
	snap := snapshot(meta, acc)
	st := newEntityState(meta.ClassName, lifecycle, snap)
	r.states[instance] = st
	return st
}

// StateOf returns the tracked state of instance, if any.
func (r *EntityRegistry) StateOf(instance any) (*EntityState, bool) {
	st, ok := r.states[instance]
	return st, ok
}

// Resnapshot overwrites instance's original-data snapshot with its current
// values — called after a successful insert/update so the next change
// detection pass starts from a clean baseline.
func (r *EntityRegistry) Resnapshot(instance any, meta *metadata.EntityMetadata, acc entity.Accessor) {
	if st, ok := r.states[instance]; ok {
		st.OriginalData = snapshot(meta, acc)
	}
}

// Forget stops tracking instance (on detach/clear/post-delete).
func (r *EntityRegistry) Forget(instance any) {
	delete(r.states, instance)
}

// Restore re-inserts a previously Forgotten instance's state (used to undo
// a rolled-back delete).
func (r *EntityRegistry) Restore(instance any, st *EntityState) {
	r.states[instance] = st
}

// Clear removes all tracked instances.
func (r *EntityRegistry) Clear() {
	r.states = make(map[any]*EntityState)
}

func snapshot(meta *metadata.EntityMetadata, acc entity.Accessor) map[string]any {
	snap := make(map[string]any, len(meta.Columns)+len(meta.Relations))
	for _, col := range meta.Columns {
		if v, ok := acc.GetProperty(col.PropertyName); ok {
			snap[col.PropertyName] = v
		}
	}
	for i := range meta.Relations {
		rel := &meta.Relations[i]
		if rel.Owning && (rel.Kind == metadata.ManyToOne || rel.Kind == metadata.OneToOne) {
			if v, ok := acc.GetProperty(rel.PropertyName); ok {
				snap[rel.PropertyName] = v
			}
			continue
		}
		if rel.Kind != metadata.ManyToMany || !rel.Owning {
			continue
		}
		if members, err := collectionMembers(acc, rel.PropertyName); err == nil {
			snap[rel.PropertyName] = members
		}
	}
	return snap
}

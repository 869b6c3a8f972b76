// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"context"
	"database/sql"

	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

// flushOrchestrator runs the flush algorithm: build a
// snapshot of scheduled work, order it via the Relation Manager, dispatch
// pre-events, run the matching processor, dispatch post-events, and repeat
// until a pass schedules nothing new — all inside one retryable
// transaction. If any step of a pass fails, every in-memory mutation
// already applied during that pass (identity map, primary keys, tracked
// snapshots) is unwound to match the transaction's SQL-level rollback.
type flushOrchestrator struct {
	ctx *Context
}

func (f *flushOrchestrator) run(parent context.Context) error {
	ctx := f.ctx

	ctx.flushDepth++
	defer func() {
		ctx.flushDepth--
		if ctx.flushDepth == 0 {
			ctx.dispatcher.Reset()
		}
	}()

	// A Flush() call made from inside an event handler re-enters here at
	// depth > 1. Rather than nesting a second transaction, it is a no-op:
	// the outer pass's drain loop (below) picks up whatever the handler
	// just scheduled before the outer transaction commits.
	if ctx.flushDepth > 1 {
		return nil
	}

	return ctx.db.WithRetryableTransaction(parent, func(txCtx context.Context, tx *sql.Tx) error {
		var undo []func()
		rollback := func() {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}

		for {
			ops, err := f.snapshot()
			if err != nil {
				rollback()
				return err
			}
			if len(ops) == 0 {
				return nil
			}

			ordered, err := ctx.relationManager.Order(ops)
			if err != nil {
				rollback()
				return err
			}

			for _, op := range ordered {
				fn, err := f.process(txCtx, tx, op)
				if fn != nil {
					undo = append(undo, fn)
				}
				if err != nil {
					rollback()
					return err
				}
			}
		}
	})
}

// snapshot builds the ScheduledOp batch for one flush pass: every queued
// insertion and deletion (plus their owning many-to-many join rows), and
// every tracked MANAGED entity whose current state differs from its last
// snapshot (scalar/relation changes as OpUpdate, collection membership
// changes as OpJoinInsert/OpJoinRemove).
func (f *flushOrchestrator) snapshot() ([]ScheduledOp, error) {
	ctx := f.ctx
	var ops []ScheduledOp

	for _, instance := range ctx.stateManager.ScheduledInsertions() {
		ops = append(ops, ScheduledOp{Instance: instance, Kind: OpInsert})
		joinOps, err := f.joinOpsForAllMembers(instance, OpJoinInsert)
		if err != nil {
			return nil, err
		}
		ops = append(ops, joinOps...)
	}

	for instance, st := range ctx.entityRegistry.states {
		if st.Lifecycle != Managed {
			continue
		}
		meta, err := ctx.MetadataOf(instance)
		if err != nil {
			return nil, err
		}
		acc, err := ctx.AccessorOf(instance, meta)
		if err != nil {
			return nil, err
		}
		changes, collections, err := ctx.detector.Detect(meta, acc, st.OriginalData)
		if err != nil {
			return nil, err
		}
		if len(changes) > 0 {
			ops = append(ops, ScheduledOp{Instance: instance, Kind: OpUpdate, Changes: changes})
		}
		for _, cc := range collections {
			for _, added := range cc.Added {
				ops = append(ops, ScheduledOp{Instance: instance, Kind: OpJoinInsert, Relation: cc.Relation, Target: added})
			}
			for _, removed := range cc.Removed {
				ops = append(ops, ScheduledOp{Instance: instance, Kind: OpJoinRemove, Relation: cc.Relation, Target: removed})
			}
		}
	}

	for _, instance := range ctx.stateManager.ScheduledDeletions() {
		joinOps, err := f.joinOpsForAllMembers(instance, OpJoinRemove)
		if err != nil {
			return nil, err
		}
		ops = append(ops, joinOps...)
		ops = append(ops, ScheduledOp{Instance: instance, Kind: OpDelete})
	}

	return ops, nil
}

// joinOpsForAllMembers schedules kind (OpJoinInsert or OpJoinRemove) for
// every current member of every owning many-to-many relation on instance —
// used for entities with no prior snapshot to diff against: brand new
// inserts (every member is "added") and deletions (every member is
// "removed", cleaned up before the owner row itself is deleted).
func (f *flushOrchestrator) joinOpsForAllMembers(instance any, kind OpKind) ([]ScheduledOp, error) {
	ctx := f.ctx
	meta, err := ctx.MetadataOf(instance)
	if err != nil {
		return nil, err
	}
	acc, err := ctx.AccessorOf(instance, meta)
	if err != nil {
		return nil, err
	}

	var ops []ScheduledOp
	for i := range meta.Relations {
		rel := &meta.Relations[i]
		if rel.Kind != metadata.ManyToMany || !rel.Owning {
			continue
		}
		members, err := collectionMembers(acc, rel.PropertyName)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			ops = append(ops, ScheduledOp{Instance: instance, Kind: kind, Relation: rel, Target: m})
		}
	}
	return ops, nil
}

// process runs op's pre-event, processor, post-event and in-memory
// bookkeeping. On success it returns a closure that undoes op's in-memory
// mutations (nil if there were none); the caller accumulates these and
// runs them in reverse if a later op in the same pass fails.
func (f *flushOrchestrator) process(txCtx context.Context, tx *sql.Tx, op ScheduledOp) (func(), error) {
	ctx := f.ctx

	meta, err := ctx.MetadataOf(op.Instance)
	if err != nil {
		return nil, err
	}
	acc, err := ctx.AccessorOf(op.Instance, meta)
	if err != nil {
		return nil, err
	}

	switch op.Kind {
	case OpInsert:
		if err := ctx.dispatcher.Dispatch(PrePersist, op.Instance, nil, ctx.flushDepth); err != nil {
			return nil, err
		}
		if err := ctx.insertionProcessor.Insert(txCtx, tx, op.Instance, meta, acc); err != nil {
			return nil, err
		}

		prevOriginal := ctx.entityRegistry.states[op.Instance].OriginalData
		newPK := mustPK(acc)

		ctx.stateManager.ClearInsertion(op.Instance)
		ctx.entityRegistry.Resnapshot(op.Instance, meta, acc)
		ctx.identityMap.Add(meta.ClassName, newPK, op.Instance)

		undo := func() {
			ctx.identityMap.Remove(meta.ClassName, newPK)
			if st, ok := ctx.entityRegistry.StateOf(op.Instance); ok {
				st.OriginalData = prevOriginal
			}
			_ = acc.SetPrimaryKeyValue(nil)
			ctx.stateManager.RequeueInsertion(op.Instance)
		}
		return undo, ctx.dispatcher.Dispatch(PostPersist, op.Instance, nil, ctx.flushDepth)

	case OpUpdate:
		if err := ctx.dispatcher.Dispatch(PreUpdate, op.Instance, op.Changes, ctx.flushDepth); err != nil {
			return nil, err
		}
		if err := ctx.updateProcessor.Update(txCtx, tx, op.Instance, meta, acc, op.Changes); err != nil {
			return nil, err
		}

		prevOriginal := ctx.entityRegistry.states[op.Instance].OriginalData
		ctx.entityRegistry.Resnapshot(op.Instance, meta, acc)

		undo := func() {
			if st, ok := ctx.entityRegistry.StateOf(op.Instance); ok {
				st.OriginalData = prevOriginal
			}
		}
		return undo, ctx.dispatcher.Dispatch(PostUpdate, op.Instance, op.Changes, ctx.flushDepth)

	case OpDelete:
		if err := ctx.dispatcher.Dispatch(PreRemove, op.Instance, nil, ctx.flushDepth); err != nil {
			return nil, err
		}
		if err := ctx.deletionProcessor.Delete(txCtx, tx, op.Instance, meta, acc); err != nil {
			return nil, err
		}

		pk, hadPK := acc.PrimaryKeyValue()
		savedState, _ := ctx.entityRegistry.StateOf(op.Instance)
		savedCopy := *savedState

		ctx.stateManager.ClearDeletion(op.Instance)
		if hadPK {
			ctx.identityMap.Remove(meta.ClassName, pk)
		}
		ctx.entityRegistry.Forget(op.Instance)

		undo := func() {
			restored := savedCopy
			ctx.entityRegistry.Restore(op.Instance, &restored)
			if hadPK {
				ctx.identityMap.Add(meta.ClassName, pk, op.Instance)
			}
			ctx.stateManager.RequeueDeletion(op.Instance)
		}
		return undo, ctx.dispatcher.Dispatch(PostRemove, op.Instance, nil, ctx.flushDepth)

	case OpJoinInsert:
		err = ctx.joinTableProcessor.Add(txCtx, tx, op.Relation, acc, op.Target)

	case OpJoinRemove:
		err = ctx.joinTableProcessor.Remove(txCtx, tx, op.Relation, acc, op.Target)
	}

	if err != nil || (op.Kind != OpJoinInsert && op.Kind != OpJoinRemove) {
		return nil, err
	}
	// A written join row becomes part of a managed owner's baseline, so the
	// next pass does not schedule the same membership change again.
	st, ok := ctx.entityRegistry.StateOf(op.Instance)
	if !ok || st.Lifecycle != Managed {
		return nil, nil
	}
	prevOriginal := st.OriginalData
	ctx.entityRegistry.Resnapshot(op.Instance, meta, acc)
	return func() { st.OriginalData = prevOriginal }, nil
}

func mustPK(acc entity.Accessor) any {
	pk, _ := acc.PrimaryKeyValue()
	return pk
}

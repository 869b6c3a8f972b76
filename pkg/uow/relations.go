// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

// OpKind distinguishes the processor operations a scheduled entity or
// relation can require.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpDelete
	// OpJoinInsert inserts one many-to-many join row: Instance is the
	// owning side, Target the added member.
	OpJoinInsert
	// OpJoinRemove deletes one many-to-many join row: Instance is the
	// owning side, Target the removed member.
	OpJoinRemove
)

// ScheduledOp pairs one tracked instance with the operation the Flush
// Orchestrator must run for it: the change set that triggered scheduling
// (updates), or the relation and target member (join row operations).
type ScheduledOp struct {
	Instance any
	Kind     OpKind
	Changes  map[string]PropertyChange
	Relation *metadata.RelationMetadata
	Target   any
}

// Resolver is the narrow view of the persistence context the Relation
// Manager needs: metadata/accessor lookup for an arbitrary instance.
type Resolver interface {
	MetadataOf(instance any) (*metadata.EntityMetadata, error)
	AccessorOf(instance any, meta *metadata.EntityMetadata) (entity.Accessor, error)
}

// RelationManager computes cascade ordering for a snapshot of scheduled
// work: inserts that reference other NEW entities must follow them, and
// deletes that are restricted-referenced by other deleted entities must
// follow those.
type RelationManager struct {
	resolver Resolver
}

// NewRelationManager creates a RelationManager backed by resolver.
func NewRelationManager(resolver Resolver) *RelationManager {
	return &RelationManager{resolver: resolver}
}

// Order returns ops in a valid dependency order: topologically sorted by
// relation constraints, stable by original (scheduling) order on ties.
// Returns CyclicDependencyError if no valid order exists.
func (rm *RelationManager) Order(ops []ScheduledOp) ([]ScheduledOp, error) {
	n := len(ops)
	if n == 0 {
		return nil, nil
	}

	// insertIndex/deleteIndex map an instance to the index of *its own*
	// OpInsert/OpDelete, independent of however many join-row ops for that
	// same instance also appear in ops.
	insertIndex := make(map[any]int, n)
	deleteIndex := make(map[any]int, n)
	for i, op := range ops {
		switch op.Kind {
		case OpInsert:
			insertIndex[op.Instance] = i
		case OpDelete:
			deleteIndex[op.Instance] = i
		}
	}

	// edges[i] lists j such that i must be processed before j.
	edges := make([][]int, n)
	indegree := make([]int, n)

	addEdge := func(before, after int) {
		if before == after {
			return
		}
		edges[before] = append(edges[before], after)
		indegree[after]++
	}

	for i, op := range ops {
		if op.Kind != OpInsert {
			continue
		}
		meta, err := rm.resolver.MetadataOf(op.Instance)
		if err != nil {
			return nil, err
		}
		acc, err := rm.resolver.AccessorOf(op.Instance, meta)
		if err != nil {
			return nil, err
		}

		for _, rel := range meta.Relations {
			if !rel.Owning || rel.Kind == metadata.OneToMany || rel.Kind == metadata.ManyToMany {
				continue
			}
			target, ok := acc.GetProperty(rel.PropertyName)
			if !ok || target == nil || isNilPointer(target) {
				continue
			}
			if j, ok := insertIndex[target]; ok {
				addEdge(j, i)
			}
		}
	}

	// Join-row inserts must follow the insert of whichever end (owner or
	// target) is itself new this pass; join-row removals must precede the
	// delete of whichever end is itself being removed this pass.
	for i, op := range ops {
		switch op.Kind {
		case OpJoinInsert:
			if j, ok := insertIndex[op.Instance]; ok {
				addEdge(j, i)
			}
			if j, ok := insertIndex[op.Target]; ok {
				addEdge(j, i)
			}
		case OpJoinRemove:
			if j, ok := deleteIndex[op.Instance]; ok {
				addEdge(i, j)
			}
			if j, ok := deleteIndex[op.Target]; ok {
				addEdge(i, j)
			}
		}
	}

	for i, op := range ops {
		if op.Kind != OpDelete {
			continue
		}
		meta, err := rm.resolver.MetadataOf(op.Instance)
		if err != nil {
			return nil, err
		}

		// Any other deleted entity B with an owning RESTRICT relation
		// pointing at this entity A must be deleted before A.
		for j, other := range ops {
			if other.Kind != OpDelete || j == i {
				continue
			}
			otherMeta, err := rm.resolver.MetadataOf(other.Instance)
			if err != nil {
				return nil, err
			}
			otherAcc, err := rm.resolver.AccessorOf(other.Instance, otherMeta)
			if err != nil {
				return nil, err
			}
			for _, rel := range otherMeta.Relations {
				if !rel.Owning || rel.OnDelete != metadata.Restrict {
					continue
				}
				if rel.Target != meta.ClassName {
					continue
				}
				target, ok := otherAcc.GetProperty(rel.PropertyName)
				if !ok || target != op.Instance {
					continue
				}
				addEdge(j, i)
			}
		}
	}

	return kahn(ops, edges, indegree)
}

func kahn(ops []ScheduledOp, edges [][]int, indegree []int) ([]ScheduledOp, error) {
	n := len(ops)
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]ScheduledOp, 0, n)
	remaining := indegree

	for len(ordered) < n {
		if len(ready) == 0 {
			return nil, cyclicDependencyError(ops, remaining)
		}

		// Stable tie-break: pick the lowest original index among ready nodes.
		minPos := 0
		for i := 1; i < len(ready); i++ {
			if ready[i] < ready[minPos] {
				minPos = i
			}
		}
		node := ready[minPos]
		ready = append(ready[:minPos], ready[minPos+1:]...)

		ordered = append(ordered, ops[node])
		for _, next := range edges[node] {
			remaining[next]--
			if remaining[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	return ordered, nil
}

func cyclicDependencyError(ops []ScheduledOp, remaining []int) error {
	var classes []string
	for i, r := range remaining {
		if r > 0 {
			if a, ok := any(ops[i].Instance).(classNamed); ok {
				classes = append(classes, a.ClassName())
			} else {
				classes = append(classes, "?")
			}
		}
	}
	return CyclicDependencyError{Classes: classes}
}

// classNamed is an optional naming hook used only to label the classes in a
// CyclicDependencyError; ormkit entities never need to implement it, the
// error path falls back to "?" when they don't.
type classNamed interface {
	ClassName() string
}

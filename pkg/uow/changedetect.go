// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"fmt"
	"reflect"
	"time"

	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

// PropertyChange is one attribute-level delta between an entity's current
// and original state. Equality is by name + oldValue.
type PropertyChange struct {
	Name     string
	OldValue any
	NewValue any
}

// Equal compares two PropertyChanges by name and old value only.
func (c PropertyChange) Equal(other PropertyChange) bool {
	return c.Name == other.Name && reflect.DeepEqual(c.OldValue, other.OldValue)
}

// TargetKeyFunc resolves a *-to-one relation target instance to its
// identity (class name, primary key value, whether it has one yet). It is
// supplied by the owning Context, which alone knows how to resolve an
// arbitrary related instance's metadata and accessor.
type TargetKeyFunc func(target any) (class string, pk any, hasPK bool, err error)

// Detector computes per-property change sets between an entity's current
// and original attribute values.
type Detector struct {
	resolveTarget TargetKeyFunc
}

// NewDetector creates a Detector. resolveTarget is used to turn *-to-one
// relation values into comparable (class, pk) identity tuples.
func NewDetector(resolveTarget TargetKeyFunc) *Detector {
	return &Detector{resolveTarget: resolveTarget}
}

// CollectionChange is the add/remove delta for one owning many-to-many
// relation, between an entity's current and last-snapshotted member set.
// Membership is compared by instance identity (the pointer itself), the
// same identity EntityRegistry tracks instances by.
type CollectionChange struct {
	PropertyName string
	Relation     *metadata.RelationMetadata
	Added        []any
	Removed      []any
}

// Detect returns the change set for instance: scalar columns compared by
// !=, DateTime-like columns compared by epoch value, owning *-to-one
// relations compared by (target class, target primary key), and owning
// many-to-many relations compared member-by-member.
func (d *Detector) Detect(meta *metadata.EntityMetadata, acc entity.Accessor, original map[string]any) (map[string]PropertyChange, []CollectionChange, error) {
	changes := make(map[string]PropertyChange)

	for _, col := range meta.Columns {
		current, _ := acc.GetProperty(col.PropertyName)
		old := original[col.PropertyName]

		if isDateTimeType(col.Type) {
			if !sameEpoch(old, current) {
				changes[col.PropertyName] = PropertyChange{Name: col.PropertyName, OldValue: old, NewValue: current}
			}
			continue
		}

		if !reflect.DeepEqual(old, current) {
			changes[col.PropertyName] = PropertyChange{Name: col.PropertyName, OldValue: old, NewValue: current}
		}
	}

	var collections []CollectionChange

	for i := range meta.Relations {
		rel := &meta.Relations[i]

		if rel.Kind == metadata.ManyToMany {
			if !rel.Owning {
				continue
			}
			cc, err := d.detectCollection(rel, acc, original)
			if err != nil {
				return nil, nil, err
			}
			if cc != nil {
				collections = append(collections, *cc)
			}
			continue
		}

		if !rel.Owning || rel.Kind == metadata.OneToMany {
			continue
		}

		current, _ := acc.GetProperty(rel.PropertyName)
		newKey, err := d.targetKey(current)
		if err != nil {
			return nil, nil, err
		}

		oldRaw := original[rel.PropertyName]
		oldKey, err := d.targetKey(oldRaw)
		if err != nil {
			return nil, nil, err
		}

		if newKey != oldKey {
			changes[rel.PropertyName] = PropertyChange{Name: rel.PropertyName, OldValue: oldKey, NewValue: newKey}
		}
	}

	return changes, collections, nil
}

// detectCollection diffs the current members of an owning many-to-many
// relation against its last snapshot, by instance identity.
func (d *Detector) detectCollection(rel *metadata.RelationMetadata, acc entity.Accessor, original map[string]any) (*CollectionChange, error) {
	current, err := collectionMembers(acc, rel.PropertyName)
	if err != nil {
		return nil, err
	}
	old, _ := original[rel.PropertyName].([]any)

	oldSet := make(map[any]bool, len(old))
	for _, m := range old {
		oldSet[m] = true
	}
	curSet := make(map[any]bool, len(current))
	for _, m := range current {
		curSet[m] = true
	}

	var added, removed []any
	for _, m := range current {
		if !oldSet[m] {
			added = append(added, m)
		}
	}
	for _, m := range old {
		if !curSet[m] {
			removed = append(removed, m)
		}
	}

	if len(added) == 0 && len(removed) == 0 {
		return nil, nil
	}
	return &CollectionChange{PropertyName: rel.PropertyName, Relation: rel, Added: added, Removed: removed}, nil
}

// collectionMembers reads a slice-valued relation property as a []any of
// its non-nil elements.
func collectionMembers(acc entity.Accessor, propertyName string) ([]any, error) {
	v, ok := acc.GetProperty(propertyName)
	if !ok || v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("uow: %s is not a collection-valued property", propertyName)
	}

	members := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := rv.Index(i).Interface()
		if el == nil || isNilPointer(el) {
			continue
		}
		members = append(members, el)
	}
	return members, nil
}

// relationTargetKey is the comparable identity of a *-to-one relation
// target: either nil (no target), or a (class, pk) pair, or a sentinel for
// "target exists but has no primary key yet" (an unsaved NEW entity).
type relationTargetKey struct {
	Class   string
	PK      any
	HasPK   bool
	NoValue bool
}

func (d *Detector) targetKey(value any) (relationTargetKey, error) {
	if value == nil || isNilPointer(value) {
		return relationTargetKey{NoValue: true}, nil
	}

	class, pk, hasPK, err := d.resolveTarget(value)
	if err != nil {
		return relationTargetKey{}, err
	}
	return relationTargetKey{Class: class, PK: pk, HasPK: hasPK}, nil
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

func isDateTimeType(t metadata.ColumnType) bool {
	switch t {
	case metadata.DateTime, metadata.Timestamp, metadata.Date:
		return true
	default:
		return false
	}
}

func sameEpoch(a, b any) bool {
	ta, aok := asTime(a)
	tb, bok := asTime(b)
	if aok != bok {
		return false
	}
	if !aok {
		return reflect.DeepEqual(a, b)
	}
	return ta.Unix() == tb.Unix()
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

// SPDX-License-Identifier: Apache-2.0

// Package identitymap implements the persistence context's identity map:
// one in-memory instance per (entity type, primary key).
package identitymap

import (
	"fmt"
	"sync"
)

// Key uniquely identifies a managed entity within one context.
type Key struct {
	ClassName string
	ID        any
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%v", k.ClassName, k.ID)
}

// Map is a mapping (class, primary key) -> instance, guaranteeing that two
// lookups for the same key within one context's lifetime return the same
// instance reference, until a detach or clear.
//
// A Map belongs to exactly one persistence context and is never shared
// across contexts; the mutex here serialises each call so accidental
// concurrent use cannot corrupt the map, but it does not detect or report
// such use.
type Map struct {
	mu      sync.Mutex
	entries map[Key]any
}

// New creates an empty identity map.
func New() *Map {
	return &Map{entries: make(map[Key]any)}
}

// Add registers instance under (className, id). Re-adding the same key with
// a different instance overwrites the mapping — callers are expected to
// check Contains/Get first when identity must be preserved.
func (m *Map) Add(className string, id any, instance any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key{ClassName: className, ID: id}] = instance
}

// Get returns the instance mapped to (className, id), and whether it was
// found.
func (m *Map) Get(className string, id any) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[Key{ClassName: className, ID: id}]
	return v, ok
}

// Contains reports whether (className, id) is mapped.
func (m *Map) Contains(className string, id any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[Key{ClassName: className, ID: id}]
	return ok
}

// Remove deletes the mapping for (className, id), leaving any previously
// returned instance usable as a detached value.
func (m *Map) Remove(className string, id any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, Key{ClassName: className, ID: id})
}

// Clear removes every mapping.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[Key]any)
}

// AllOf returns every instance mapped under className.
func (m *Map) AllOf(className string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []any
	for k, v := range m.entries {
		if k.ClassName == className {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the total number of mapped entries, across all classes.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

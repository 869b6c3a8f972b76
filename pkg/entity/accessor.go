// SPDX-License-Identifier: Apache-2.0

// Package entity defines the capability set the persistence context uses to
// read and write entity state without depending on a specific entity type.
// Generated, per-entity adapters are the fast path; ReflectAccessor is the
// slower fallback used for entities that don't implement Accessor themselves.
package entity

import (
	"fmt"
	"reflect"

	"github.com/ormkit/ormkit/pkg/metadata"
)

// Accessor is the capability set an entity must expose (directly, or via
// ReflectAccessor) for the persistence context to read/write its mapped
// properties and primary key.
type Accessor interface {
	GetProperty(name string) (any, bool)
	SetProperty(name string, value any) error
	PrimaryKeyValue() (any, bool)
	SetPrimaryKeyValue(value any) error
}

// ReflectAccessor adapts any addressable struct pointer to Accessor using
// reflection and the entity's metadata.EntityMetadata.
type ReflectAccessor struct {
	instance any
	meta     *metadata.EntityMetadata
	value    reflect.Value
}

// NewReflectAccessor builds an Accessor for instance (must be a non-nil
// pointer to struct) using meta to resolve property names to struct fields.
func NewReflectAccessor(instance any, meta *metadata.EntityMetadata) (*ReflectAccessor, error) {
	v := reflect.ValueOf(instance)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, fmt.Errorf("entity: ReflectAccessor requires a non-nil pointer, got %T", instance)
	}
	if v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity: ReflectAccessor requires a pointer to struct, got %T", instance)
	}
	return &ReflectAccessor{instance: instance, meta: meta, value: v.Elem()}, nil
}

// ForInstance returns instance as an Accessor: its own implementation if it
// satisfies Accessor directly (the fast, generated-adapter path), or a
// ReflectAccessor built from meta otherwise.
func ForInstance(instance any, meta *metadata.EntityMetadata) (Accessor, error) {
	if a, ok := instance.(Accessor); ok {
		return a, nil
	}
	return NewReflectAccessor(instance, meta)
}

func (a *ReflectAccessor) GetProperty(name string) (any, bool) {
	f := a.value.FieldByName(name)
	if !f.IsValid() {
		return nil, false
	}
	return f.Interface(), true
}

func (a *ReflectAccessor) SetProperty(name string, value any) error {
	f := a.value.FieldByName(name)
	if !f.IsValid() {
		return fmt.Errorf("entity: %s has no field %q", a.meta.ClassName, name)
	}
	if !f.CanSet() {
		return fmt.Errorf("entity: %s field %q is not settable", a.meta.ClassName, name)
	}

	if value == nil {
		f.Set(reflect.Zero(f.Type()))
		return nil
	}

	rv := reflect.ValueOf(value)
	if f.Kind() == reflect.Ptr && rv.Kind() != reflect.Ptr {
		p := reflect.New(f.Type().Elem())
		if !rv.Type().ConvertibleTo(f.Type().Elem()) {
			return fmt.Errorf("entity: %s field %q: cannot assign %T to %s", a.meta.ClassName, name, value, f.Type())
		}
		p.Elem().Set(rv.Convert(f.Type().Elem()))
		f.Set(p)
		return nil
	}

	if !rv.Type().ConvertibleTo(f.Type()) {
		return fmt.Errorf("entity: %s field %q: cannot assign %T to %s", a.meta.ClassName, name, value, f.Type())
	}
	f.Set(rv.Convert(f.Type()))
	return nil
}

func (a *ReflectAccessor) PrimaryKeyValue() (any, bool) {
	pk := a.meta.PrimaryKeyColumn()
	if pk == nil {
		return nil, false
	}
	v, ok := a.GetProperty(pk.PropertyName)
	if !ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	}
	if isZero(rv) {
		return nil, false
	}
	return v, true
}

func (a *ReflectAccessor) SetPrimaryKeyValue(value any) error {
	pk := a.meta.PrimaryKeyColumn()
	if pk == nil {
		return fmt.Errorf("entity: %s has no primary key column", a.meta.ClassName)
	}
	return a.SetProperty(pk.PropertyName, value)
}

func isZero(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	return v.IsZero()
}

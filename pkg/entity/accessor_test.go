// SPDX-License-Identifier: Apache-2.0

package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

type Widget struct {
	ID   int
	Name string
}

func widgetMeta(t *testing.T) *metadata.EntityMetadata {
	t.Helper()
	reg := metadata.New()
	type widgetTagged struct {
		ID   int    `orm:"type:int;pk;auto_increment"`
		Name string `orm:"type:varchar(100)"`
	}
	m, err := reg.Register(widgetTagged{})
	require.NoError(t, err)
	return m
}

func TestReflectAccessorGetSetProperty(t *testing.T) {
	meta := widgetMeta(t)
	w := &Widget{}

	a, err := entity.NewReflectAccessor(w, meta)
	require.NoError(t, err)

	require.NoError(t, a.SetProperty("Name", "bolt"))
	v, ok := a.GetProperty("Name")
	require.True(t, ok)
	assert.Equal(t, "bolt", v)
	assert.Equal(t, "bolt", w.Name)
}

func TestReflectAccessorUnknownFieldFails(t *testing.T) {
	meta := widgetMeta(t)
	w := &Widget{}
	a, err := entity.NewReflectAccessor(w, meta)
	require.NoError(t, err)

	_, ok := a.GetProperty("Nonexistent")
	assert.False(t, ok)

	err = a.SetProperty("Nonexistent", "x")
	assert.Error(t, err)
}

func TestReflectAccessorPrimaryKeyValueZeroIsUnset(t *testing.T) {
	meta := widgetMeta(t)
	w := &Widget{}
	a, err := entity.NewReflectAccessor(w, meta)
	require.NoError(t, err)

	_, ok := a.PrimaryKeyValue()
	assert.False(t, ok, "zero-valued primary key should report unset")

	require.NoError(t, a.SetPrimaryKeyValue(42))
	v, ok := a.PrimaryKeyValue()
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestNewReflectAccessorRejectsNonPointer(t *testing.T) {
	meta := widgetMeta(t)

	_, err := entity.NewReflectAccessor(Widget{}, meta)

	assert.Error(t, err)
}

func TestNewReflectAccessorRejectsNilPointer(t *testing.T) {
	meta := widgetMeta(t)

	var w *Widget
	_, err := entity.NewReflectAccessor(w, meta)

	assert.Error(t, err)
}

type selfAccessor struct {
	val string
}

func (s *selfAccessor) GetProperty(name string) (any, bool)         { return s.val, true }
func (s *selfAccessor) SetProperty(name string, value any) error    { s.val = value.(string); return nil }
func (s *selfAccessor) PrimaryKeyValue() (any, bool)                { return s.val, s.val != "" }
func (s *selfAccessor) SetPrimaryKeyValue(value any) error          { s.val = value.(string); return nil }

func TestForInstancePrefersEntitysOwnAccessor(t *testing.T) {
	meta := widgetMeta(t)
	s := &selfAccessor{}

	a, err := entity.ForInstance(s, meta)
	require.NoError(t, err)

	assert.Same(t, s, a)
}

func TestForInstanceFallsBackToReflectAccessor(t *testing.T) {
	meta := widgetMeta(t)
	w := &Widget{Name: "fallback"}

	a, err := entity.ForInstance(w, meta)
	require.NoError(t, err)

	_, isReflect := a.(*entity.ReflectAccessor)
	assert.True(t, isReflect)
}

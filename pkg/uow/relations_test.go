// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
)

type order struct {
	ID      int
	Account *account
}

type account struct {
	ID int
}

type fakeResolver struct {
	registry *metadata.Registry
}

func (f *fakeResolver) MetadataOf(instance any) (*metadata.EntityMetadata, error) {
	switch instance.(type) {
	case *order:
		return f.registry.GetByName("orderTagged")
	case *account:
		return f.registry.GetByName("accountTagged")
	case *article:
		return f.registry.GetByName("articleTagged")
	case *tag:
		return f.registry.GetByName("tagTagged")
	default:
		return nil, metadata.UnknownEntityError{}
	}
}

func (f *fakeResolver) AccessorOf(instance any, meta *metadata.EntityMetadata) (entity.Accessor, error) {
	return entity.NewReflectAccessor(instance, meta)
}

func newFakeResolver(t *testing.T) *fakeResolver {
	t.Helper()
	reg := metadata.New()

	type orderTagged struct {
		ID      int `orm:"type:int;pk;auto_increment"`
		Account int `orm:"relation:many_to_one;target:account;column:account_id"`
	}
	m, err := reg.Register(orderTagged{})
	require.NoError(t, err)
	m.ClassName = "order"

	type accountTagged struct {
		ID int `orm:"type:int;pk;auto_increment"`
	}
	m2, err := reg.Register(accountTagged{})
	require.NoError(t, err)
	m2.ClassName = "account"

	type articleTagged struct {
		ID   int    `orm:"type:int;pk;auto_increment"`
		Tags []*tag `orm:"relation:many_to_many;target:tag;owning;join_table:article_tags"`
	}
	m3, err := reg.Register(articleTagged{})
	require.NoError(t, err)
	m3.ClassName = "article"

	type tagTagged struct {
		ID int `orm:"type:int;pk;auto_increment"`
	}
	m4, err := reg.Register(tagTagged{})
	require.NoError(t, err)
	m4.ClassName = "tag"

	return &fakeResolver{registry: reg}
}

func TestOrderInsertsDependentEntityAfterItsTarget(t *testing.T) {
	resolver := newFakeResolver(t)
	rm := NewRelationManager(resolver)

	acc := &account{ID: 0}
	ord := &order{ID: 0, Account: acc}

	ops := []ScheduledOp{
		{Instance: ord, Kind: OpInsert},
		{Instance: acc, Kind: OpInsert},
	}

	ordered, err := rm.Order(ops)
	require.NoError(t, err)
	require.Len(t, ordered, 2)

	assert.Same(t, acc, ordered[0].Instance, "account must be inserted before the order referencing it")
	assert.Same(t, ord, ordered[1].Instance)
}

func TestOrderPreservesStableOrderWhenNoDependency(t *testing.T) {
	resolver := newFakeResolver(t)
	rm := NewRelationManager(resolver)

	a1 := &account{ID: 1}
	a2 := &account{ID: 2}

	ops := []ScheduledOp{
		{Instance: a1, Kind: OpInsert},
		{Instance: a2, Kind: OpInsert},
	}

	ordered, err := rm.Order(ops)
	require.NoError(t, err)
	assert.Same(t, a1, ordered[0].Instance)
	assert.Same(t, a2, ordered[1].Instance)
}

func TestOrderSchedulesJoinInsertAfterBothEndsInserted(t *testing.T) {
	resolver := newFakeResolver(t)
	rm := NewRelationManager(resolver)

	meta, err := resolver.registry.GetByName("articleTagged")
	require.NoError(t, err)

	a := &article{ID: 0}
	tg := &tag{ID: 0}

	ops := []ScheduledOp{
		{Instance: a, Kind: OpJoinInsert, Relation: &meta.Relations[0], Target: tg},
		{Instance: tg, Kind: OpInsert},
		{Instance: a, Kind: OpInsert},
	}

	ordered, err := rm.Order(ops)
	require.NoError(t, err)
	require.Len(t, ordered, 3)

	assert.Equal(t, OpJoinInsert, ordered[2].Kind, "join row must be inserted last, after both ends exist")
}

func TestOrderSchedulesJoinRemoveBeforeEitherEndDeleted(t *testing.T) {
	resolver := newFakeResolver(t)
	rm := NewRelationManager(resolver)

	meta, err := resolver.registry.GetByName("articleTagged")
	require.NoError(t, err)

	a := &article{ID: 1}
	tg := &tag{ID: 1}

	ops := []ScheduledOp{
		{Instance: a, Kind: OpDelete},
		{Instance: tg, Kind: OpDelete},
		{Instance: a, Kind: OpJoinRemove, Relation: &meta.Relations[0], Target: tg},
	}

	ordered, err := rm.Order(ops)
	require.NoError(t, err)
	require.Len(t, ordered, 3)

	assert.Equal(t, OpJoinRemove, ordered[0].Kind, "join row must be removed first, before either end is deleted")
}

func TestOrderEmptyReturnsNil(t *testing.T) {
	resolver := newFakeResolver(t)
	rm := NewRelationManager(resolver)

	ordered, err := rm.Order(nil)
	require.NoError(t, err)
	assert.Nil(t, ordered)
}

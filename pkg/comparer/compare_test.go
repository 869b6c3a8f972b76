// SPDX-License-Identifier: Apache-2.0

package comparer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/pkg/comparer"
	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/schema"
)

type Account struct {
	ID    int    `orm:"type:int;pk;auto_increment"`
	Name  string `orm:"type:varchar(255)"`
	Owner int    `orm:"relation:many_to_one;target:Account;column:owner_id;on_delete:set_null"`
}

func newSnapshot(tables ...*schema.Table) *schema.Snapshot {
	s := schema.New()
	for _, t := range tables {
		s.AddTable(t)
	}
	return s
}

func TestCompareEmptyWhenLiveMatchesTarget(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name: "accounts",
		Columns: map[string]*schema.ColumnInfo{
			"id": {Name: "id", ColumnType: "int", Key: "PRI"},
		},
	})
	live := newSnapshot(&schema.Table{
		Name: "accounts",
		Columns: map[string]*schema.ColumnInfo{
			"id": {Name: "id", ColumnType: "int", Key: "PRI"},
		},
	})

	d := comparer.Compare(live, target, nil)

	assert.True(t, d.Empty())
}

func TestCompareDetectsNewTable(t *testing.T) {
	target := newSnapshot(&schema.Table{Name: "accounts", Columns: map[string]*schema.ColumnInfo{"id": {Name: "id"}}})
	live := schema.New()

	d := comparer.Compare(live, target, map[string]string{"accounts": "Account"})

	require.False(t, d.Empty())
	assert.Equal(t, "Account", d.TablesToCreate["accounts"])
}

func TestCompareDetectsDroppedTable(t *testing.T) {
	target := schema.New()
	live := newSnapshot(&schema.Table{Name: "legacy", Columns: map[string]*schema.ColumnInfo{"id": {Name: "id"}}})

	d := comparer.Compare(live, target, nil)

	assert.Contains(t, d.TablesToDrop, "legacy")
}

func TestCompareDetectsAddedAndDroppedColumns(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name: "accounts",
		Columns: map[string]*schema.ColumnInfo{
			"id":   {Name: "id", ColumnType: "int"},
			"name": {Name: "name", ColumnType: "varchar(255)"},
		},
	})
	live := newSnapshot(&schema.Table{
		Name: "accounts",
		Columns: map[string]*schema.ColumnInfo{
			"id":      {Name: "id", ColumnType: "int"},
			"old_col": {Name: "old_col", ColumnType: "text"},
		},
	})

	d := comparer.Compare(live, target, nil)

	require.Contains(t, d.ColumnsToAdd, "accounts")
	assert.Contains(t, d.ColumnsToAdd["accounts"], "name")
	assert.Contains(t, d.ColumnsToDrop["accounts"], "old_col")
}

func TestCompareNormalizesIntegerDisplayWidth(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"id": {Name: "id", ColumnType: "int"}},
	})
	live := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"id": {Name: "id", ColumnType: "int(11)"}},
	})

	d := comparer.Compare(live, target, nil)

	assert.True(t, d.Empty(), "int(11) and int should be treated as equivalent")
}

func TestCompareTreatsBooleanAndTinyintOneAsEquivalent(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"active": {Name: "active", ColumnType: "boolean"}},
	})
	live := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"active": {Name: "active", ColumnType: "tinyint(1)"}},
	})

	d := comparer.Compare(live, target, nil)

	assert.True(t, d.Empty())
}

func TestCompareDetectsNullableChange(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"name": {Name: "name", ColumnType: "varchar(255)", Nullable: false}},
	})
	live := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"name": {Name: "name", ColumnType: "varchar(255)", Nullable: true}},
	})

	d := comparer.Compare(live, target, nil)

	require.Contains(t, d.ColumnsToModify, "accounts")
	fd := d.ColumnsToModify["accounts"]["name"]
	require.NotNil(t, fd)
	assert.True(t, fd.NullableChanged)
	assert.False(t, fd.TypeChanged)
}

func TestCompareDetectsForeignKeyChange(t *testing.T) {
	target := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"owner_id": {Name: "owner_id", ColumnType: "int"}},
		ForeignKeys: map[string]*schema.FkInfo{
			"fk_accounts_owner": {Name: "fk_accounts_owner", Column: "owner_id", ReferencedTable: "accounts", ReferencedColumn: "id", OnDelete: "CASCADE"},
		},
	})
	live := newSnapshot(&schema.Table{
		Name:    "accounts",
		Columns: map[string]*schema.ColumnInfo{"owner_id": {Name: "owner_id", ColumnType: "int"}},
		ForeignKeys: map[string]*schema.FkInfo{
			"fk_accounts_owner": {Name: "fk_accounts_owner", Column: "owner_id", ReferencedTable: "accounts", ReferencedColumn: "id", OnDelete: "SET NULL"},
		},
	})

	d := comparer.Compare(live, target, nil)

	assert.Contains(t, d.ForeignKeysToDrop["accounts"], "fk_accounts_owner")
	assert.Contains(t, d.ForeignKeysToAdd["accounts"], "fk_accounts_owner")
}

func TestTargetDerivesOwningRelationForeignKey(t *testing.T) {
	reg := metadata.New()
	_, err := reg.Register(Account{})
	require.NoError(t, err)

	snap, classNames := comparer.Target(reg)

	tbl := snap.GetTable("accounts")
	require.NotNil(t, tbl)
	assert.NotNil(t, tbl.GetColumn("owner_id"))
	assert.Equal(t, "Account", classNames["accounts"])

	var found bool
	for _, fk := range tbl.ForeignKeys {
		if fk.Column == "owner_id" {
			found = true
			assert.Equal(t, "accounts", fk.ReferencedTable)
			assert.Equal(t, "SET NULL", fk.OnDelete)
		}
	}
	assert.True(t, found, "expected a foreign key derived from the owning relation")
}

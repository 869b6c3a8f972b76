// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/pkg/comparer"
	"github.com/ormkit/ormkit/pkg/schema"
)

func newDifference() *comparer.Difference {
	return &comparer.Difference{
		TablesToCreate:    make(map[string]string),
		ColumnsToAdd:      make(map[string]map[string]*schema.ColumnInfo),
		ColumnsToModify:   make(map[string]map[string]*comparer.FieldDiff),
		ColumnsToDrop:     make(map[string][]string),
		ForeignKeysToAdd:  make(map[string]map[string]*schema.FkInfo),
		ForeignKeysToDrop: make(map[string][]string),
	}
}

func TestRenderSourceCreateTable(t *testing.T) {
	target := schema.New()
	target.AddTable(&schema.Table{
		Name: "accounts",
		Columns: map[string]*schema.ColumnInfo{
			"id":   {Name: "id", ColumnType: "int", Key: "PRI", Extra: "auto_increment"},
			"name": {Name: "name", ColumnType: "varchar(255)"},
		},
		Options: schema.TableOptions{Engine: "InnoDB", Charset: "utf8mb4", Collation: "utf8mb4_general_ci"},
	})

	d := newDifference()
	d.TablesToCreate["accounts"] = "Account"

	src := renderSource("migrations", "Migration202601010000", "202601010000", d, target)

	assert.Contains(t, src, "package migrations")
	assert.Contains(t, src, "type Migration202601010000 struct{}")
	assert.Contains(t, src, "func init() { migration.RegisterGenerated(Migration202601010000{}) }")
	assert.Contains(t, src, `func (m Migration202601010000) Version() string { return "202601010000" }`)
	assert.Contains(t, src, `t1 := b.CreateTable("accounts")`)
	assert.Contains(t, src, `t1.Column("id").Integer().NotNull().AutoIncrement()`)
	assert.Contains(t, src, `t1.Column("name").String(255)`)
	assert.Contains(t, src, `t1.PrimaryKey("id")`)
	assert.Contains(t, src, `t1.Engine("InnoDB").Charset("utf8mb4").Collation("utf8mb4_general_ci")`)
	assert.Contains(t, src, "stmts = append(stmts, t1.ToSQL())")
}

func TestRenderModifyColumnUsesStandaloneColumn(t *testing.T) {
	target := schema.New()
	d := newDifference()
	d.ColumnsToModify["accounts"] = map[string]*comparer.FieldDiff{
		"name": {
			Live:        &schema.ColumnInfo{Name: "name", ColumnType: "varchar(100)", Nullable: true},
			Target:      &schema.ColumnInfo{Name: "name", ColumnType: "varchar(255)", Nullable: false},
			TypeChanged: true, NullableChanged: true,
		},
	}

	src := renderSource("migrations", "Migration202601010000", "202601010000", d, target)

	assert.Contains(t, src, `c2 := builder.NewColumn("name").String(255).NotNull()`)
	assert.Contains(t, src, "t1.ModifyColumn(c2)")
}

func TestRenderDownReversesCreateTable(t *testing.T) {
	target := schema.New()
	target.AddTable(&schema.Table{Name: "accounts", Columns: map[string]*schema.ColumnInfo{"id": {Name: "id", ColumnType: "int"}}})
	d := newDifference()
	d.TablesToCreate["accounts"] = "Account"

	src := renderSource("migrations", "Migration202601010000", "202601010000", d, target)

	assert.Contains(t, src, `stmts = append(stmts, b.DropTable("accounts"))`)
}

func TestValidateRejectsEntityWithNoColumns(t *testing.T) {
	target := schema.New()
	target.AddTable(&schema.Table{Name: "accounts", Columns: map[string]*schema.ColumnInfo{}})
	d := newDifference()
	d.TablesToCreate["accounts"] = "Account"

	err := validate(d, target)

	require.Error(t, err)
	var sve SchemaValidationError
	require.ErrorAs(t, err, &sve)
	assert.Equal(t, EntityHasNoColumns, sve.Kind)
}

func TestValidateRejectsForeignKeyMissingReference(t *testing.T) {
	target := schema.New()
	target.AddTable(&schema.Table{Name: "accounts", Columns: map[string]*schema.ColumnInfo{"id": {Name: "id"}}})
	d := newDifference()
	d.ForeignKeysToAdd["accounts"] = map[string]*schema.FkInfo{
		"fk_bad": {Name: "fk_bad", Column: "owner_id"},
	}

	err := validate(d, target)

	require.Error(t, err)
	var sve SchemaValidationError
	require.ErrorAs(t, err, &sve)
	assert.Equal(t, ForeignKeyIncomplete, sve.Kind)
}

func TestValidatePassesForValidDifference(t *testing.T) {
	target := schema.New()
	target.AddTable(&schema.Table{Name: "accounts", Columns: map[string]*schema.ColumnInfo{"id": {Name: "id"}}})
	d := newDifference()

	assert.NoError(t, validate(d, target))
}

func TestTypeChainMapsKnownTypes(t *testing.T) {
	cases := map[string]string{
		"int":             "Integer()",
		"int(11) unsigned": "Integer().Unsigned()",
		"bigint":          "BigInteger()",
		"varchar(255)":    "String(255)",
		"char(10)":        "FixedString(10)",
		"decimal(10,2)":   "Decimal(10, 2)",
		"boolean":         "Boolean()",
		"tinyint(1)":      "Boolean()",
		"text":            "Text()",
		"json":            "JSON()",
	}

	for input, want := range cases {
		col := &schema.ColumnInfo{ColumnType: input}
		assert.Equal(t, want, typeChain(col), "input %q", input)
	}
}

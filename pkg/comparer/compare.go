// SPDX-License-Identifier: Apache-2.0

// Package comparer diffs a live database schema.Snapshot against the
// target schema derived from the metadata registry.
package comparer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/schema"
)

// FieldDiff records which attributes of a shared column differ between the
// live and target schema.
type FieldDiff struct {
	Live            *schema.ColumnInfo
	Target          *schema.ColumnInfo
	TypeChanged     bool
	NullableChanged bool
	DefaultChanged  bool
	ExtraChanged    bool
}

// Any reports whether at least one attribute differs.
func (d *FieldDiff) Any() bool {
	return d.TypeChanged || d.NullableChanged || d.DefaultChanged || d.ExtraChanged
}

// Difference is the structural delta between a live snapshot and a target
// schema, the input the Migration Generator renders into DSL statements.
type Difference struct {
	TablesToCreate    map[string]string // table name -> entity class name
	TablesToDrop      []string
	ColumnsToAdd      map[string]map[string]*schema.ColumnInfo
	ColumnsToModify    map[string]map[string]*FieldDiff
	ColumnsToDrop      map[string][]string
	ForeignKeysToAdd   map[string]map[string]*schema.FkInfo
	ForeignKeysToDrop  map[string][]string
}

// Empty reports whether the difference contains no changes at all
// (Migration Generator step 3: "if no differences -> return None").
func (d *Difference) Empty() bool {
	return len(d.TablesToCreate) == 0 &&
		len(d.TablesToDrop) == 0 &&
		len(d.ColumnsToAdd) == 0 &&
		len(d.ColumnsToModify) == 0 &&
		len(d.ColumnsToDrop) == 0 &&
		len(d.ForeignKeysToAdd) == 0 &&
		len(d.ForeignKeysToDrop) == 0
}

func newDifference() *Difference {
	return &Difference{
		TablesToCreate:    make(map[string]string),
		ColumnsToAdd:      make(map[string]map[string]*schema.ColumnInfo),
		ColumnsToModify:    make(map[string]map[string]*FieldDiff),
		ColumnsToDrop:      make(map[string][]string),
		ForeignKeysToAdd:   make(map[string]map[string]*schema.FkInfo),
		ForeignKeysToDrop:  make(map[string][]string),
	}
}

// Target derives the target schema.Snapshot from every entity registered in
// reg, along with a table -> class name index the Difference's
// TablesToCreate needs.
func Target(reg *metadata.Registry) (*schema.Snapshot, map[string]string) {
	snap := schema.New()
	classNames := make(map[string]string)

	for _, m := range reg.All() {
		t := &schema.Table{
			Name:        m.Table,
			Columns:     make(map[string]*schema.ColumnInfo),
			ForeignKeys: make(map[string]*schema.FkInfo),
			Indexes:     make(map[string]*schema.IndexInfo),
			Options:     schema.TableOptions{Engine: "InnoDB", Charset: "utf8mb4", Collation: "utf8mb4_general_ci"},
		}

		for _, col := range m.Columns {
			t.AddColumn(columnInfoFor(&col))
		}

		for i := range m.Relations {
			rel := &m.Relations[i]
			if !rel.Owning || rel.LocalColumn == "" {
				continue
			}
			targetEntity, err := reg.GetByName(rel.Target)
			if err != nil {
				continue
			}
			targetPK := targetEntity.PrimaryKeyColumn()
			if targetPK == nil {
				continue
			}
			t.AddColumn(&schema.ColumnInfo{Name: rel.LocalColumn, ColumnType: columnTypeString(targetPK), Nullable: true})
			fkName := "fk_" + m.Table + "_" + rel.LocalColumn
			t.ForeignKeys[fkName] = &schema.FkInfo{
				Name:             fkName,
				Column:           rel.LocalColumn,
				ReferencedTable:  targetEntity.Table,
				ReferencedColumn: targetPK.ColumnName,
				OnDelete:         rel.OnDelete.String(),
				OnUpdate:         rel.OnUpdate.String(),
			}
		}

		snap.AddTable(t)
		classNames[m.Table] = m.ClassName
	}

	return snap, classNames
}

func columnInfoFor(col *metadata.ColumnMetadata) *schema.ColumnInfo {
	c := &schema.ColumnInfo{
		Name:       col.ColumnName,
		ColumnType: columnTypeString(col),
		Nullable:   col.Nullable,
		Default:    col.Default,
		EnumValues: col.EnumValues,
	}
	if col.AutoIncrement {
		c.Extra = "auto_increment"
	} else {
		c.Extra = col.Extra
	}
	if col.Key == metadata.KeyPrimary {
		c.Key = "PRI"
	} else if col.Key == metadata.KeyUnique {
		c.Key = "UNI"
	} else if col.Key == metadata.KeyIndex {
		c.Key = "MUL"
	}
	return c
}

func columnTypeString(col *metadata.ColumnMetadata) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(col.Type.String()))

	switch col.Type {
	case metadata.Varchar, metadata.Char:
		b.WriteString("(")
		b.WriteString(itoa(col.Length))
		b.WriteString(")")
	case metadata.Decimal:
		b.WriteString("(")
		b.WriteString(itoa(col.Precision))
		b.WriteString(",")
		b.WriteString(itoa(col.Scale))
		b.WriteString(")")
	case metadata.Enum, metadata.Set:
		b.WriteString("(")
		for i, v := range col.EnumValues {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString("'")
			b.WriteString(v)
			b.WriteString("'")
		}
		b.WriteString(")")
	}

	if col.Unsigned {
		b.WriteString(" unsigned")
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

var intWidthPattern = regexp.MustCompile(`^(int|bigint|smallint|tinyint|mediumint)\(\d+\)( unsigned)?$`)

// normalizeType collapses the display-width suffix MySQL attaches to
// integer types, e.g. int(11) and int both normalize to "int".
func normalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	// MySQL stores BOOLEAN columns as TINYINT(1); treat the two spellings
	// as the same type so the round-trip through information_schema never
	// shows a spurious modify.
	if t == "boolean" || t == "tinyint(1)" || t == "tinyint(1) unsigned" {
		return "boolean"
	}
	if m := intWidthPattern.FindStringSubmatch(t); m != nil {
		if m[2] != "" {
			return m[1] + m[2]
		}
		return m[1]
	}
	return t
}

func sameEnumSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func sameDefault(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Compare yields the structural difference between live and target.
func Compare(live, target *schema.Snapshot, classNames map[string]string) *Difference {
	d := newDifference()

	for name, targetTable := range target.Tables {
		liveTable := live.GetTable(name)
		if liveTable == nil {
			d.TablesToCreate[name] = classNames[name]
			continue
		}
		compareTable(d, name, liveTable, targetTable)
	}

	for name := range live.Tables {
		if _, ok := target.Tables[name]; !ok {
			d.TablesToDrop = append(d.TablesToDrop, name)
		}
	}

	return d
}

func compareTable(d *Difference, tableName string, live, target *schema.Table) {
	for colName, targetCol := range target.Columns {
		liveCol, ok := live.Columns[colName]
		if !ok {
			if d.ColumnsToAdd[tableName] == nil {
				d.ColumnsToAdd[tableName] = make(map[string]*schema.ColumnInfo)
			}
			d.ColumnsToAdd[tableName][colName] = targetCol
			continue
		}

		fd := diffColumn(liveCol, targetCol)
		if fd.Any() {
			if d.ColumnsToModify[tableName] == nil {
				d.ColumnsToModify[tableName] = make(map[string]*FieldDiff)
			}
			d.ColumnsToModify[tableName][colName] = fd
		}
	}

	for colName := range live.Columns {
		if _, ok := target.Columns[colName]; !ok {
			d.ColumnsToDrop[tableName] = append(d.ColumnsToDrop[tableName], colName)
		}
	}

	for fkName, targetFk := range target.ForeignKeys {
		liveFk, ok := live.ForeignKeys[fkName]
		if !ok || !sameForeignKey(liveFk, targetFk) {
			if ok {
				d.ForeignKeysToDrop[tableName] = append(d.ForeignKeysToDrop[tableName], fkName)
			}
			if d.ForeignKeysToAdd[tableName] == nil {
				d.ForeignKeysToAdd[tableName] = make(map[string]*schema.FkInfo)
			}
			d.ForeignKeysToAdd[tableName][fkName] = targetFk
		}
	}

	for fkName := range live.ForeignKeys {
		if _, ok := target.ForeignKeys[fkName]; !ok {
			d.ForeignKeysToDrop[tableName] = append(d.ForeignKeysToDrop[tableName], fkName)
		}
	}
}

func diffColumn(live, target *schema.ColumnInfo) *FieldDiff {
	fd := &FieldDiff{Live: live, Target: target}
	fd.TypeChanged = normalizeType(live.ColumnType) != normalizeType(target.ColumnType) || !sameEnumSet(live.EnumValues, target.EnumValues)
	fd.NullableChanged = live.Nullable != target.Nullable
	fd.DefaultChanged = !sameDefault(live.Default, target.Default)
	fd.ExtraChanged = live.Extra != target.Extra
	return fd
}

func sameForeignKey(a, b *schema.FkInfo) bool {
	return a.Column == b.Column &&
		a.ReferencedTable == b.ReferencedTable &&
		a.ReferencedColumn == b.ReferencedColumn &&
		a.OnDelete == b.OnDelete &&
		a.OnUpdate == b.OnUpdate
}

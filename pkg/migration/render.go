// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ormkit/ormkit/pkg/comparer"
	"github.com/ormkit/ormkit/pkg/schema"
)

// validate applies pre-generation safety checks to d before a
// migration is generated from it.
func validate(d *comparer.Difference, target *schema.Snapshot) error {
	for table, className := range d.TablesToCreate {
		t := target.GetTable(table)
		if t == nil || len(t.Columns) == 0 {
			return SchemaValidationError{Kind: EntityHasNoColumns, Table: table, Detail: fmt.Sprintf("entity %q has no mapped columns", className)}
		}
	}

	for table, fks := range d.ForeignKeysToAdd {
		for name, fk := range fks {
			if fk.Column == "" || fk.ReferencedTable == "" || fk.ReferencedColumn == "" {
				return SchemaValidationError{Kind: ForeignKeyIncomplete, Table: table, Detail: fmt.Sprintf("foreign key %q is missing column/reference information", name)}
			}
			t := target.GetTable(table)
			if t != nil && t.GetColumn(fk.Column) == nil {
				if _, added := d.ColumnsToAdd[table][fk.Column]; !added {
					return SchemaValidationError{Kind: ForeignKeyColumnMissing, Table: table, Detail: fmt.Sprintf("foreign key %q references column %q which is absent from both the diff and the target schema", name, fk.Column)}
				}
			}
		}
	}

	return nil
}

// source accumulates the Go statements of one migration method body, each
// already indented by 8 spaces.
type source struct {
	lines   []string
	varSeq  int
}

func (s *source) emit(format string, args ...any) {
	s.lines = append(s.lines, "        "+fmt.Sprintf(format, args...))
}

func (s *source) nextVar(prefix string) string {
	s.varSeq++
	return fmt.Sprintf("%s%d", prefix, s.varSeq)
}

// renderSource emits the full Go source of the migration file implementing
// className/version against d and target, following a fixed up/down
// statement ordering that keeps dependent objects safe to drop and create.
func renderSource(pkgName, className, version string, d *comparer.Difference, target *schema.Snapshot) string {
	var b strings.Builder

	b.WriteString("// SPDX-License-Identifier: Apache-2.0\n\n")
	fmt.Fprintf(&b, "package %s\n\n", pkgName)
	b.WriteString("import (\n")
	b.WriteString("        \"github.com/ormkit/ormkit/pkg/builder\"\n")
	b.WriteString("        \"github.com/ormkit/ormkit/pkg/migration\"\n")
	b.WriteString(")\n\n")
	fmt.Fprintf(&b, "type %s struct{}\n\n", className)
	fmt.Fprintf(&b, "func init() { migration.RegisterGenerated(%s{}) }\n\n", className)
	fmt.Fprintf(&b, "func (m %s) Version() string { return %q }\n\n", className, version)

	fmt.Fprintf(&b, "func (m %s) Up(b *builder.Builder) []string {\n", className)
	b.WriteString("        var stmts []string\n\n")
	up := &source{}
	renderUp(up, d, target)
	b.WriteString(strings.Join(up.lines, "\n"))
	b.WriteString("\n\n        return stmts\n}\n\n")

	fmt.Fprintf(&b, "func (m %s) Down(b *builder.Builder) []string {\n", className)
	b.WriteString("        var stmts []string\n\n")
	down := &source{}
	renderDown(down, d, target)
	b.WriteString(strings.Join(down.lines, "\n"))
	if len(d.TablesToDrop) > 0 {
		down.emit("// down restores structure only: dropped tables' data is not recoverable.")
		b.WriteString("\n        // down restores structure only: dropped tables' data is not recoverable.")
	}
	b.WriteString("\n\n        return stmts\n}\n")

	return b.String()
}

// renderUp emits: drop FKs -> drop columns -> create tables -> add columns
// -> modify columns -> add FKs -> drop tables.
func renderUp(s *source, d *comparer.Difference, target *schema.Snapshot) {
	for _, table := range sortedTableKeys(d.ForeignKeysToDrop) {
		for _, name := range d.ForeignKeysToDrop[table] {
			s.emit("stmts = append(stmts, b.AlterTable(%q).DropForeignKey(%q).ToSQL())", table, name)
		}
	}

	for _, table := range sortedTableKeys(d.ColumnsToDrop) {
		for _, col := range d.ColumnsToDrop[table] {
			s.emit("stmts = append(stmts, b.AlterTable(%q).DropColumn(%q).ToSQL())", table, col)
		}
	}

	for _, table := range namesOf(d.TablesToCreate) {
		renderCreateTable(s, table, target.GetTable(table))
	}

	for _, table := range sortedColumnTableKeys(d.ColumnsToAdd) {
		v := s.nextVar("t")
		s.emit("%s := b.AlterTable(%q)", v, table)
		for _, colName := range sortedColumnNames(d.ColumnsToAdd[table]) {
			col := d.ColumnsToAdd[table][colName]
			s.emit("%s.Column(%q)%s", v, colName, columnChain(col))
		}
		s.emit("stmts = append(stmts, %s.ToSQL())", v)
	}

	for _, table := range sortedFieldDiffTableKeys(d.ColumnsToModify) {
		renderModifyColumns(s, table, d.ColumnsToModify[table], func(fd *comparer.FieldDiff) *schema.ColumnInfo { return fd.Target })
	}

	for _, table := range sortedFkTableKeys(d.ForeignKeysToAdd) {
		v := s.nextVar("t")
		s.emit("%s := b.AlterTable(%q)", v, table)
		for _, name := range sortedFkNames(d.ForeignKeysToAdd[table]) {
			fk := d.ForeignKeysToAdd[table][name]
			s.emit("%s.ForeignKey(%q).Columns(%q).References(%q, %q).OnDelete(%q).OnUpdate(%q)", v, name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn, fk.OnDelete, fk.OnUpdate)
		}
		s.emit("stmts = append(stmts, %s.ToSQL())", v)
	}

	for _, table := range sortedStrings(d.TablesToDrop) {
		s.emit("stmts = append(stmts, b.DropTable(%q))", table)
	}
}

// renderDown reverses renderUp: drop added FKs -> drop added columns ->
// restore modified columns -> drop created tables.
func renderDown(s *source, d *comparer.Difference, target *schema.Snapshot) {
	for _, table := range sortedFkTableKeys(d.ForeignKeysToAdd) {
		for _, name := range sortedFkNames(d.ForeignKeysToAdd[table]) {
			s.emit("stmts = append(stmts, b.AlterTable(%q).DropForeignKey(%q).ToSQL())", table, name)
		}
	}

	for _, table := range sortedColumnTableKeys(d.ColumnsToAdd) {
		for _, colName := range sortedColumnNames(d.ColumnsToAdd[table]) {
			s.emit("stmts = append(stmts, b.AlterTable(%q).DropColumn(%q).ToSQL())", table, colName)
		}
	}

	for _, table := range sortedFieldDiffTableKeys(d.ColumnsToModify) {
		renderModifyColumns(s, table, d.ColumnsToModify[table], func(fd *comparer.FieldDiff) *schema.ColumnInfo { return fd.Live })
	}

	for _, table := range namesOf(d.TablesToCreate) {
		s.emit("stmts = append(stmts, b.DropTable(%q))", table)
	}
}

func renderModifyColumns(s *source, table string, diffs map[string]*comparer.FieldDiff, pick func(*comparer.FieldDiff) *schema.ColumnInfo) {
	v := s.nextVar("t")
	s.emit("%s := b.AlterTable(%q)", v, table)
	for _, colName := range sortedFieldDiffNames(diffs) {
		col := pick(diffs[colName])
		cv := s.nextVar("c")
		s.emit("%s := builder.NewColumn(%q)%s", cv, colName, columnChain(col))
		s.emit("%s.ModifyColumn(%s)", v, cv)
	}
	s.emit("stmts = append(stmts, %s.ToSQL())", v)
}

func renderCreateTable(s *source, table string, t *schema.Table) {
	v := s.nextVar("t")
	s.emit("%s := b.CreateTable(%q)", v, table)

	var pk []string
	for _, colName := range sortedColumnInfoNames(t.Columns) {
		col := t.Columns[colName]
		s.emit("%s.Column(%q)%s", v, colName, columnChain(col))
		if col.Key == "PRI" {
			pk = append(pk, colName)
		}
	}
	if len(pk) > 0 {
		sort.Strings(pk)
		s.emit("%s.PrimaryKey(%s)", v, quotedValueList(pk))
	}
	for _, name := range sortedFkInfoNames(t.ForeignKeys) {
		fk := t.ForeignKeys[name]
		s.emit("%s.ForeignKey(%q).Columns(%q).References(%q, %q).OnDelete(%q).OnUpdate(%q)", v, name, fk.Column, fk.ReferencedTable, fk.ReferencedColumn, fk.OnDelete, fk.OnUpdate)
	}
	if t.Options.Engine != "" || t.Options.Charset != "" || t.Options.Collation != "" {
		s.emit("%s.Engine(%q).Charset(%q).Collation(%q)", v, t.Options.Engine, t.Options.Charset, t.Options.Collation)
	}
	s.emit("stmts = append(stmts, %s.ToSQL())", v)
}

func columnChain(col *schema.ColumnInfo) string {
	var b strings.Builder
	b.WriteString("." + typeChain(col))
	if !col.Nullable {
		b.WriteString(".NotNull()")
	}
	if strings.Contains(strings.ToLower(col.Extra), "auto_increment") {
		b.WriteString(".AutoIncrement()")
	}
	if col.Default != nil {
		b.WriteString(fmt.Sprintf(".Default(%q)", *col.Default))
	}
	return b.String()
}

var intWidthRE = regexp.MustCompile(`^(int|bigint|smallint|tinyint|mediumint)(\(\d+\))?( unsigned)?$`)
var decimalRE = regexp.MustCompile(`^decimal\((\d+),(\d+)\)( unsigned)?$`)
var varcharRE = regexp.MustCompile(`^varchar\((\d+)\)$`)
var charRE = regexp.MustCompile(`^char\((\d+)\)$`)

func typeChain(col *schema.ColumnInfo) string {
	t := strings.ToLower(col.ColumnType)

	if t == "boolean" || t == "tinyint(1)" {
		return "Boolean()"
	}
	if m := intWidthRE.FindStringSubmatch(t); m != nil {
		method := map[string]string{"int": "Integer", "bigint": "BigInteger", "smallint": "SmallInteger", "tinyint": "TinyInteger", "mediumint": "Integer"}[m[1]]
		chain := method + "()"
		if m[3] != "" {
			chain += ".Unsigned()"
		}
		return chain
	}
	if m := varcharRE.FindStringSubmatch(t); m != nil {
		return fmt.Sprintf("String(%s)", m[1])
	}
	if m := charRE.FindStringSubmatch(t); m != nil {
		return fmt.Sprintf("FixedString(%s)", m[1])
	}
	if m := decimalRE.FindStringSubmatch(t); m != nil {
		chain := fmt.Sprintf("Decimal(%s, %s)", m[1], m[2])
		if m[3] != "" {
			chain += ".Unsigned()"
		}
		return chain
	}
	if strings.HasPrefix(t, "enum(") {
		return "Enum(" + quotedValueList(col.EnumValues) + ")"
	}
	if strings.HasPrefix(t, "set(") {
		return "Set(" + quotedValueList(col.EnumValues) + ")"
	}

	switch t {
	case "text":
		return "Text()"
	case "blob":
		return "Blob()"
	case "float":
		return "Float()"
	case "double":
		return "Double()"
	case "date":
		return "Date()"
	case "datetime":
		return "DateTime()"
	case "timestamp":
		return "Timestamp()"
	case "json":
		return "JSON()"
	case "geometry":
		return "Geometry()"
	default:
		return "Text()"
	}
}

func quotedValueList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(v)
	}
	return strings.Join(quoted, ", ")
}

func namesOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedTableKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedColumnTableKeys(m map[string]map[string]*schema.ColumnInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedColumnNames(m map[string]*schema.ColumnInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedColumnInfoNames(m map[string]*schema.ColumnInfo) []string {
	return sortedColumnNames(m)
}

func sortedFieldDiffTableKeys(m map[string]map[string]*comparer.FieldDiff) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFieldDiffNames(m map[string]*comparer.FieldDiff) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFkTableKeys(m map[string]map[string]*schema.FkInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFkNames(m map[string]*schema.FkInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFkInfoNames(m map[string]*schema.FkInfo) []string {
	return sortedFkNames(m)
}

func sortedStrings(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

// SPDX-License-Identifier: Apache-2.0

package builder

import "strings"

// Builder is the entry point to the Schema Builder DSL: `create_table`,
// `alter_table` and `drop_table`.
type Builder struct {
	dialect Dialect
}

// New creates a Builder that renders SQL for dialect.
func New(dialect Dialect) *Builder {
	return &Builder{dialect: dialect}
}

// CreateTable starts a CREATE TABLE definition.
func (b *Builder) CreateTable(name string) *TableDefinition {
	return &TableDefinition{dialect: b.dialect, name: name, creating: true}
}

// AlterTable starts an ALTER TABLE definition.
func (b *Builder) AlterTable(name string) *TableDefinition {
	return &TableDefinition{dialect: b.dialect, name: name}
}

// DropTable renders a DROP TABLE statement.
func (b *Builder) DropTable(name string) string {
	return "DROP TABLE " + b.dialect.QuoteIdentifier(name) + ";"
}

// TableDefinition accumulates column/key/option changes for one table and
// renders them as a single SQL statement via ToSQL.
type TableDefinition struct {
	dialect Dialect
	name    string
	creating bool

	addColumns    []*ColumnDefinition
	modifyColumns []*ColumnDefinition
	dropColumns   []string

	primaryKey []string

	addForeignKeys  []*ForeignKeyDefinition
	dropForeignKeys []string

	engine    string
	charset   string
	collation string
}

// Column declares a new column to add (on ALTER) or define (on CREATE).
func (t *TableDefinition) Column(name string) *ColumnDefinition {
	c := newColumn(name)
	t.addColumns = append(t.addColumns, c)
	return c
}

// DropColumn schedules name for removal (ALTER TABLE ... DROP COLUMN).
func (t *TableDefinition) DropColumn(name string) *TableDefinition {
	t.dropColumns = append(t.dropColumns, name)
	return t
}

// ModifyColumn schedules an already-built ColumnDefinition as a MODIFY
// COLUMN clause.
func (t *TableDefinition) ModifyColumn(c *ColumnDefinition) *TableDefinition {
	t.modifyColumns = append(t.modifyColumns, c)
	return t
}

// PrimaryKey declares the table's primary key columns.
func (t *TableDefinition) PrimaryKey(cols ...string) *TableDefinition {
	t.primaryKey = cols
	return t
}

// ForeignKey declares a new foreign-key constraint to add.
func (t *TableDefinition) ForeignKey(name string) *ForeignKeyDefinition {
	fk := newForeignKey(name)
	t.addForeignKeys = append(t.addForeignKeys, fk)
	return fk
}

// DropForeignKey schedules a foreign key for removal.
func (t *TableDefinition) DropForeignKey(name string) *TableDefinition {
	t.dropForeignKeys = append(t.dropForeignKeys, name)
	return t
}

// Engine sets the storage engine table option (CREATE TABLE only).
func (t *TableDefinition) Engine(v string) *TableDefinition { t.engine = v; return t }

// Charset sets the character set table option.
func (t *TableDefinition) Charset(v string) *TableDefinition { t.charset = v; return t }

// Collation sets the collation table option.
func (t *TableDefinition) Collation(v string) *TableDefinition { t.collation = v; return t }

// ToSQL renders the accumulated definition as one SQL statement.
func (t *TableDefinition) ToSQL() string {
	if t.creating {
		return t.createSQL()
	}
	return t.alterSQL()
}

func (t *TableDefinition) createSQL() string {
	var clauses []string
	for _, c := range t.addColumns {
		clauses = append(clauses, t.columnClause(c))
	}
	if len(t.primaryKey) > 0 {
		clauses = append(clauses, "PRIMARY KEY ("+t.quoteList(t.primaryKey)+")")
	}
	for _, fk := range t.addForeignKeys {
		clauses = append(clauses, t.foreignKeyClause(fk))
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(t.dialect.QuoteIdentifier(t.name))
	b.WriteString(" (\n  ")
	b.WriteString(strings.Join(clauses, ",\n  "))
	b.WriteString("\n)")

	if t.engine != "" {
		b.WriteString(" ENGINE=" + t.engine)
	}
	if t.charset != "" {
		b.WriteString(" DEFAULT CHARSET=" + t.charset)
	}
	if t.collation != "" {
		b.WriteString(" COLLATE=" + t.collation)
	}
	b.WriteString(";")
	return b.String()
}

func (t *TableDefinition) alterSQL() string {
	var clauses []string
	for _, name := range t.dropForeignKeys {
		clauses = append(clauses, "DROP FOREIGN KEY "+t.dialect.QuoteIdentifier(name))
	}
	for _, name := range t.dropColumns {
		clauses = append(clauses, "DROP COLUMN "+t.dialect.QuoteIdentifier(name))
	}
	for _, c := range t.addColumns {
		clauses = append(clauses, "ADD COLUMN "+t.columnClause(c))
	}
	for _, c := range t.modifyColumns {
		clauses = append(clauses, "MODIFY COLUMN "+t.columnClause(c))
	}
	for _, fk := range t.addForeignKeys {
		clauses = append(clauses, "ADD "+t.foreignKeyClause(fk))
	}

	var b strings.Builder
	b.WriteString("ALTER TABLE ")
	b.WriteString(t.dialect.QuoteIdentifier(t.name))
	b.WriteString(" ")
	b.WriteString(strings.Join(clauses, ", "))
	b.WriteString(";")
	return b.String()
}

func (t *TableDefinition) columnClause(c *ColumnDefinition) string {
	var b strings.Builder
	b.WriteString(t.dialect.QuoteIdentifier(c.name))
	b.WriteString(" ")
	b.WriteString(t.dialect.ColumnTypeSQL(c))
	if !c.nullable {
		b.WriteString(" NOT NULL")
	}
	if c.autoIncrement {
		b.WriteString(" AUTO_INCREMENT")
	}
	if c.hasDefault {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.def)
	}
	return b.String()
}

func (t *TableDefinition) foreignKeyClause(fk *ForeignKeyDefinition) string {
	var b strings.Builder
	b.WriteString("CONSTRAINT ")
	b.WriteString(t.dialect.QuoteIdentifier(fk.name))
	b.WriteString(" FOREIGN KEY (")
	b.WriteString(t.quoteList(fk.columns))
	b.WriteString(") REFERENCES ")
	b.WriteString(t.dialect.QuoteIdentifier(fk.refTable))
	b.WriteString(" (")
	b.WriteString(t.quoteList(fk.refColumns))
	b.WriteString(")")
	if fk.onDeleteRule != "" {
		b.WriteString(" ON DELETE " + fk.onDeleteRule)
	}
	if fk.onUpdateRule != "" {
		b.WriteString(" ON UPDATE " + fk.onUpdateRule)
	}
	return b.String()
}

func (t *TableDefinition) quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = t.dialect.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

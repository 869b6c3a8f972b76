// SPDX-License-Identifier: Apache-2.0

package builder

// ColumnDefinition is one column's type and modifiers, built fluently and
// rendered by the owning Dialect.
type ColumnDefinition struct {
	name          string
	sqlType       string
	length        int
	precision     int
	scale         int
	enumValues    []string
	nullable      bool
	unsigned      bool
	autoIncrement bool
	def           *string
	hasDefault    bool
}

func newColumn(name string) *ColumnDefinition {
	return &ColumnDefinition{name: name, nullable: true}
}

// NewColumn builds a standalone ColumnDefinition, for callers (the
// Migration Generator's rendered code) that need a column built outside a
// TableDefinition's own Column/ModifyColumn calls — e.g. to pass to
// TableDefinition.ModifyColumn.
func NewColumn(name string) *ColumnDefinition {
	return newColumn(name)
}

// Name returns the column's name.
func (c *ColumnDefinition) Name() string { return c.name }

// Integer sets the column type to INT.
func (c *ColumnDefinition) Integer() *ColumnDefinition { c.sqlType = "INT"; return c }

// BigInteger sets the column type to BIGINT.
func (c *ColumnDefinition) BigInteger() *ColumnDefinition { c.sqlType = "BIGINT"; return c }

// SmallInteger sets the column type to SMALLINT.
func (c *ColumnDefinition) SmallInteger() *ColumnDefinition { c.sqlType = "SMALLINT"; return c }

// TinyInteger sets the column type to TINYINT.
func (c *ColumnDefinition) TinyInteger() *ColumnDefinition { c.sqlType = "TINYINT"; return c }

// String sets the column type to VARCHAR(length).
func (c *ColumnDefinition) String(length int) *ColumnDefinition {
	c.sqlType = "VARCHAR"
	c.length = length
	return c
}

// FixedString sets the column type to CHAR(length).
func (c *ColumnDefinition) FixedString(length int) *ColumnDefinition {
	c.sqlType = "CHAR"
	c.length = length
	return c
}

// Text sets the column type to TEXT.
func (c *ColumnDefinition) Text() *ColumnDefinition { c.sqlType = "TEXT"; return c }

// Blob sets the column type to BLOB.
func (c *ColumnDefinition) Blob() *ColumnDefinition { c.sqlType = "BLOB"; return c }

// Decimal sets the column type to DECIMAL(precision,scale).
func (c *ColumnDefinition) Decimal(precision, scale int) *ColumnDefinition {
	c.sqlType = "DECIMAL"
	c.precision = precision
	c.scale = scale
	return c
}

// Float sets the column type to FLOAT.
func (c *ColumnDefinition) Float() *ColumnDefinition { c.sqlType = "FLOAT"; return c }

// Double sets the column type to DOUBLE.
func (c *ColumnDefinition) Double() *ColumnDefinition { c.sqlType = "DOUBLE"; return c }

// Boolean sets the column type to BOOLEAN.
func (c *ColumnDefinition) Boolean() *ColumnDefinition { c.sqlType = "BOOLEAN"; return c }

// Date sets the column type to DATE.
func (c *ColumnDefinition) Date() *ColumnDefinition { c.sqlType = "DATE"; return c }

// DateTime sets the column type to DATETIME.
func (c *ColumnDefinition) DateTime() *ColumnDefinition { c.sqlType = "DATETIME"; return c }

// Timestamp sets the column type to TIMESTAMP.
func (c *ColumnDefinition) Timestamp() *ColumnDefinition { c.sqlType = "TIMESTAMP"; return c }

// JSON sets the column type to JSON.
func (c *ColumnDefinition) JSON() *ColumnDefinition { c.sqlType = "JSON"; return c }

// Enum sets the column type to ENUM(values...), rendered in source order.
func (c *ColumnDefinition) Enum(values ...string) *ColumnDefinition {
	c.sqlType = "ENUM"
	c.enumValues = values
	return c
}

// Set sets the column type to SET(values...).
func (c *ColumnDefinition) Set(values ...string) *ColumnDefinition {
	c.sqlType = "SET"
	c.enumValues = values
	return c
}

// Geometry sets the column type to GEOMETRY.
func (c *ColumnDefinition) Geometry() *ColumnDefinition { c.sqlType = "GEOMETRY"; return c }

// NotNull marks the column NOT NULL.
func (c *ColumnDefinition) NotNull() *ColumnDefinition { c.nullable = false; return c }

// Unsigned marks a numeric column UNSIGNED.
func (c *ColumnDefinition) Unsigned() *ColumnDefinition { c.unsigned = true; return c }

// AutoIncrement marks the column AUTO_INCREMENT.
func (c *ColumnDefinition) AutoIncrement() *ColumnDefinition { c.autoIncrement = true; return c }

// Default sets the column's default clause, rendered verbatim. Passing a
// NULL default is equivalent to not calling Default at all: NULL defaults
// are omitted from the rendered statement.
func (c *ColumnDefinition) Default(v string) *ColumnDefinition {
	if v == "NULL" {
		return c
	}
	c.def = &v
	c.hasDefault = true
	return c
}

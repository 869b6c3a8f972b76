// SPDX-License-Identifier: Apache-2.0

// Package builder implements the Schema Builder DSL: a small fluent AST for
// table/column/foreign-key definitions that renders dialect SQL. MySQL is the only Dialect implemented today; Postgres/SQLite stay
// pluggable behind the Dialect interface rather than requiring a rewrite.
package builder

import (
	"strconv"
	"strings"
)

// Dialect gates every piece of SQL rendering that differs across database
// engines: identifier/literal quoting and per-type column syntax.
type Dialect interface {
	QuoteIdentifier(name string) string
	QuoteLiteral(value string) string
	ColumnTypeSQL(c *ColumnDefinition) string
}

// MySQLDialect renders backtick-quoted identifiers and MySQL column type
// syntax.
type MySQLDialect struct{}

// QuoteIdentifier backtick-quotes name, doubling any interior backtick.
func (MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteLiteral single-quotes value, doubling any interior single quote.
func (MySQLDialect) QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// ColumnTypeSQL renders c's type token, e.g. "VARCHAR(255)", "DECIMAL(10,2)
// UNSIGNED", "ENUM('a','b')".
func (d MySQLDialect) ColumnTypeSQL(c *ColumnDefinition) string {
	var b strings.Builder
	b.WriteString(c.sqlType)
	if c.length > 0 {
		b.WriteString("(")
		b.WriteString(strconv.Itoa(c.length))
		b.WriteString(")")
	} else if c.precision > 0 {
		b.WriteString("(")
		b.WriteString(strconv.Itoa(c.precision))
		b.WriteString(",")
		b.WriteString(strconv.Itoa(c.scale))
		b.WriteString(")")
	} else if len(c.enumValues) > 0 {
		b.WriteString("(")
		for i, v := range c.enumValues {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(d.QuoteLiteral(v))
		}
		b.WriteString(")")
	}
	if c.unsigned {
		b.WriteString(" UNSIGNED")
	}
	return b.String()
}

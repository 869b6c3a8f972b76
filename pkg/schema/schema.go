// SPDX-License-Identifier: Apache-2.0

// Package schema holds the shared live/target schema model the Schema
// Information reader, Schema Comparer and Migration Generator all speak.
package schema

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// New creates an empty Snapshot.
func New() *Snapshot {
	return &Snapshot{Tables: make(map[string]*Table)}
}

// Snapshot represents one database's schema, keyed by table name —
// produced either by live introspection (pkg/schemainfo) or derived from
// the entity metadata registry (the "target" schema the Comparer diffs
// against).
type Snapshot struct {
	Tables map[string]*Table `json:"tables"`
}

// Table is one table's columns, foreign keys, indexes and engine options.
type Table struct {
	Name        string                 `json:"name"`
	Columns     map[string]*ColumnInfo `json:"columns"`
	ForeignKeys map[string]*FkInfo     `json:"foreignKeys"`
	Indexes     map[string]*IndexInfo  `json:"indexes"`
	Options     TableOptions           `json:"options"`
}

// TableOptions are the engine-level knobs the Schema Builder DSL can render
// on CREATE TABLE.
type TableOptions struct {
	Engine    string `json:"engine,omitempty"`
	Charset   string `json:"charset,omitempty"`
	Collation string `json:"collation,omitempty"`
}

// ColumnInfo mirrors the information_schema.COLUMNS fields the introspection
// reader needs.
type ColumnInfo struct {
	Name          string   `json:"name"`
	ColumnType    string   `json:"columnType"` // COLUMN_TYPE, e.g. "varchar(255)", "int(11) unsigned"
	Nullable      bool     `json:"nullable"`   // IS_NULLABLE == "YES"
	Default       *string  `json:"default"`    // COLUMN_DEFAULT
	Extra         string   `json:"extra"`      // EXTRA, e.g. "auto_increment"
	Key           string   `json:"key"`        // COLUMN_KEY: "", "PRI", "UNI", "MUL"
	EnumValues    []string `json:"enumValues,omitempty"`
}

// FkInfo mirrors the information_schema.KEY_COLUMN_USAGE /
// REFERENTIAL_CONSTRAINTS fields the introspection reader needs.
type FkInfo struct {
	Name                string `json:"name"` // CONSTRAINT_NAME
	Column              string `json:"column"`
	ReferencedTable     string `json:"referencedTable"`
	ReferencedColumn    string `json:"referencedColumn"`
	OnDelete            string `json:"onDelete"` // DELETE_RULE
	OnUpdate            string `json:"onUpdate"` // UPDATE_RULE
}

// IndexInfo describes a non-PRIMARY index. Indexes that back a foreign key
// are not filtered out.
type IndexInfo struct {
	Name    string   `json:"name"`
	Unique  bool     `json:"unique"`
	Columns []string `json:"columns"`
}

// GetTable returns a table by name, or nil.
func (s *Snapshot) GetTable(name string) *Table {
	if s.Tables == nil {
		return nil
	}
	return s.Tables[name]
}

// AddTable adds or replaces a table in the snapshot.
func (s *Snapshot) AddTable(t *Table) {
	if s.Tables == nil {
		s.Tables = make(map[string]*Table)
	}
	s.Tables[t.Name] = t
}

// GetColumn returns a column by name, or nil.
func (t *Table) GetColumn(name string) *ColumnInfo {
	if t.Columns == nil {
		return nil
	}
	return t.Columns[name]
}

// AddColumn adds or replaces a column on the table.
func (t *Table) AddColumn(c *ColumnInfo) {
	if t.Columns == nil {
		t.Columns = make(map[string]*ColumnInfo)
	}
	t.Columns[c.Name] = c
}

// Value implements driver.Valuer so a Snapshot can be persisted as a JSON
// column.
func (s Snapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner, the inverse of Value.
func (s *Snapshot) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("schema: type assertion to []byte failed")
	}
	return json.Unmarshal(b, s)
}

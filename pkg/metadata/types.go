// SPDX-License-Identifier: Apache-2.0

// Package metadata is the canonical model of entities, columns, keys and
// relations consumed by the persistence engine (pkg/uow) and the schema
// pipeline (pkg/schemainfo, pkg/comparer, pkg/migration).
package metadata

import "reflect"

// ColumnType enumerates the column types the registry understands. The
// Schema Builder DSL (pkg/builder) renders each to its MySQL spelling.
type ColumnType int

const (
	Unknown ColumnType = iota
	Int
	BigInt
	SmallInt
	TinyInt
	Varchar
	Char
	Text
	Blob
	Decimal
	Float
	Double
	Boolean
	Date
	DateTime
	Timestamp
	JSON
	Enum
	Set
	Geometry
)

func (t ColumnType) String() string {
	switch t {
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case SmallInt:
		return "SMALLINT"
	case TinyInt:
		return "TINYINT"
	case Varchar:
		return "VARCHAR"
	case Char:
		return "CHAR"
	case Text:
		return "TEXT"
	case Blob:
		return "BLOB"
	case Decimal:
		return "DECIMAL"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case Boolean:
		return "BOOLEAN"
	case Date:
		return "DATE"
	case DateTime:
		return "DATETIME"
	case Timestamp:
		return "TIMESTAMP"
	case JSON:
		return "JSON"
	case Enum:
		return "ENUM"
	case Set:
		return "SET"
	case Geometry:
		return "GEOMETRY"
	default:
		return "UNKNOWN"
	}
}

// KeyKind is the kind of key a column participates in.
type KeyKind int

const (
	KeyNone KeyKind = iota
	KeyPrimary
	KeyUnique
	KeyIndex
)

// RelationKind enumerates the four relation shapes a mapped entity can declare.
type RelationKind int

const (
	OneToOne RelationKind = iota
	OneToMany
	ManyToOne
	ManyToMany
)

func (k RelationKind) String() string {
	switch k {
	case OneToOne:
		return "one_to_one"
	case OneToMany:
		return "one_to_many"
	case ManyToOne:
		return "many_to_one"
	case ManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// ReferentialRule enumerates ON DELETE / ON UPDATE behaviours.
type ReferentialRule int

const (
	Restrict ReferentialRule = iota
	Cascade
	SetNull
	NoAction
)

func (r ReferentialRule) String() string {
	switch r {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case NoAction:
		return "NO ACTION"
	default:
		return "RESTRICT"
	}
}

// ColumnMetadata describes one mapped property/column pair.
type ColumnMetadata struct {
	PropertyName  string
	ColumnName    string
	Type          ColumnType
	Length        int
	Precision     int
	Scale         int
	Nullable      bool
	Default       *string
	Key           KeyKind
	AutoIncrement bool
	Unsigned      bool
	Extra         string
	EnumValues    []string
}

// RelationMetadata describes one relation between two entities.
type RelationMetadata struct {
	PropertyName    string
	Kind            RelationKind
	Target          string
	Owning          bool
	LocalColumn     string
	InverseProperty string
	JoinTable       string
	JoinLocalColumn string
	JoinTargetColumn string
	OnDelete        ReferentialRule
	OnUpdate        ReferentialRule
}

// IndexMetadata describes a multi-column index declared on an entity beyond
// the per-column Key annotations.
type IndexMetadata struct {
	Name    string
	Columns []string
	Unique  bool
}

// EntityMetadata is the immutable, once-computed description of one entity
// class. Lifecycle: computed once at registry load, cached, read-only
// thereafter.
type EntityMetadata struct {
	ClassName  string
	Table      string
	Columns    []ColumnMetadata
	Relations  []RelationMetadata
	Indexes    []IndexMetadata
	Repository string
}

// PrimaryKeyColumn returns the single PRIMARY column, or nil if none is
// declared (the registry's Register/validate step should never allow this
// to happen for a successfully registered entity).
func (m *EntityMetadata) PrimaryKeyColumn() *ColumnMetadata {
	for i := range m.Columns {
		if m.Columns[i].Key == KeyPrimary {
			return &m.Columns[i]
		}
	}
	return nil
}

// ColumnByProperty looks up a column by its Go property name.
func (m *EntityMetadata) ColumnByProperty(name string) *ColumnMetadata {
	for i := range m.Columns {
		if m.Columns[i].PropertyName == name {
			return &m.Columns[i]
		}
	}
	return nil
}

// RelationByProperty looks up a relation by its Go property name.
func (m *EntityMetadata) RelationByProperty(name string) *RelationMetadata {
	for i := range m.Relations {
		if m.Relations[i].PropertyName == name {
			return &m.Relations[i]
		}
	}
	return nil
}

// Equal reports whether two EntityMetadata describe the same mapping. Used
// by Register to detect a conflicting re-registration of the same class
// name.
func (m *EntityMetadata) Equal(other *EntityMetadata) bool {
	return reflect.DeepEqual(m, other)
}

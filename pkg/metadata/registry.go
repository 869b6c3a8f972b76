// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Tabler lets an entity override the table name derived from its type name.
type Tabler interface {
	TableName() string
}

// Registry is the canonical, process-wide model of entities, columns, keys
// and relations. It is populated once at startup (via Register or
// LoadFromPath) and is thereafter read-only across goroutines: writers take
// the mutex exclusively and every read takes it shared.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityMetadata
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entities: make(map[string]*EntityMetadata)}
}

// Register computes and stores the EntityMetadata for the concrete type of
// class (a struct value or pointer-to-struct). Calling Register twice for
// the same class name with equivalent metadata is a no-op; calling it twice
// with *different* metadata fails with AlreadyRegisteredError.
func (r *Registry) Register(class any) (*EntityMetadata, error) {
	t := reflect.TypeOf(class)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("metadata: Register requires a struct or pointer to struct, got %s", t.Kind())
	}

	m, err := buildFromStructType(t, class)
	if err != nil {
		return nil, err
	}

	if err := validate(m); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entities[m.ClassName]; ok {
		if !existing.Equal(m) {
			return nil, AlreadyRegisteredError{ClassName: m.ClassName}
		}
		return existing, nil
	}

	r.entities[m.ClassName] = m
	return m, nil
}

// put inserts already-built metadata (used by LoadFromPath, whose metadata
// is built from source ASTs rather than reflection) under the same
// AlreadyRegistered semantics as Register.
func (r *Registry) put(m *EntityMetadata) error {
	if err := validate(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entities[m.ClassName]; ok {
		if !existing.Equal(m) {
			return AlreadyRegisteredError{ClassName: m.ClassName}
		}
		return nil
	}
	r.entities[m.ClassName] = m
	return nil
}

// Get returns the metadata registered for class's type.
func (r *Registry) Get(class any) (*EntityMetadata, error) {
	return r.GetByName(classNameOf(class))
}

// GetByName returns the metadata registered under the given class name.
func (r *Registry) GetByName(name string) (*EntityMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.entities[name]
	if !ok {
		return nil, UnknownEntityError{ClassName: name}
	}
	return m, nil
}

// All returns every registered EntityMetadata, in no particular order.
func (r *Registry) All() []*EntityMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*EntityMetadata, 0, len(r.entities))
	for _, m := range r.entities {
		out = append(out, m)
	}
	return out
}

// TableFor returns the table name mapped to class.
func (r *Registry) TableFor(class any) (string, error) {
	m, err := r.Get(class)
	if err != nil {
		return "", err
	}
	return m.Table, nil
}

// ColumnsOf returns the column metadata for class.
func (r *Registry) ColumnsOf(class any) ([]ColumnMetadata, error) {
	m, err := r.Get(class)
	if err != nil {
		return nil, err
	}
	return m.Columns, nil
}

// RelationsOf returns the relation metadata for class.
func (r *Registry) RelationsOf(class any) ([]RelationMetadata, error) {
	m, err := r.Get(class)
	if err != nil {
		return nil, err
	}
	return m.Relations, nil
}

// PrimaryKeyColumnOf returns the single PRIMARY column of class.
func (r *Registry) PrimaryKeyColumnOf(class any) (*ColumnMetadata, error) {
	m, err := r.Get(class)
	if err != nil {
		return nil, err
	}
	pk := m.PrimaryKeyColumn()
	if pk == nil {
		return nil, NoPrimaryKeyError{ClassName: m.ClassName}
	}
	return pk, nil
}

func classNameOf(class any) string {
	t := reflect.TypeOf(class)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

func validate(m *EntityMetadata) error {
	if m.PrimaryKeyColumn() == nil {
		return NoPrimaryKeyError{ClassName: m.ClassName}
	}

	seenCols := make(map[string]bool, len(m.Columns))
	seenProps := make(map[string]bool, len(m.Columns))
	for _, c := range m.Columns {
		if seenCols[c.ColumnName] {
			return DuplicateColumnNameError{ClassName: m.ClassName, ColumnName: c.ColumnName}
		}
		seenCols[c.ColumnName] = true

		if seenProps[c.PropertyName] {
			return DuplicatePropertyNameError{ClassName: m.ClassName, PropertyName: c.PropertyName}
		}
		seenProps[c.PropertyName] = true
	}
	return nil
}

// buildFromStructType derives an EntityMetadata from a reflect.Type via its
// `orm` struct tags.
func buildFromStructType(t reflect.Type, instance any) (*EntityMetadata, error) {
	m := &EntityMetadata{
		ClassName: t.Name(),
		Table:     tableNameFor(t, instance),
	}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		tag, ok := f.Tag.Lookup(tagKey)
		if !ok {
			continue
		}
		d := parseTag(tag)

		if d.isRelation() {
			rel, err := relationFromTag(m.ClassName, f.Name, d)
			if err != nil {
				return nil, err
			}
			m.Relations = append(m.Relations, *rel)
			continue
		}

		col, err := columnFromTag(m.ClassName, f.Name, d)
		if err != nil {
			return nil, err
		}
		m.Columns = append(m.Columns, *col)
	}

	return m, nil
}

func tableNameFor(t reflect.Type, instance any) string {
	if tabler, ok := instance.(Tabler); ok {
		return tabler.TableName()
	}
	if v := reflect.New(t); v.Type().Implements(reflect.TypeOf((*Tabler)(nil)).Elem()) {
		return v.Interface().(Tabler).TableName()
	}
	return toSnakeCasePlural(t.Name())
}

func columnFromTag(className, fieldName string, d tagDirectives) (*ColumnMetadata, error) {
	typeSpec, ok := d["type"]
	if !ok {
		return nil, InvalidTagError{ClassName: className, Field: fieldName, Reason: "missing type: directive"}
	}

	ct, length, precision, scale, enumValues, err := parseColumnType(typeSpec)
	if err != nil {
		return nil, InvalidTagError{ClassName: className, Field: fieldName, Reason: err.Error()}
	}

	var def *string
	if v, ok := d["default"]; ok {
		def = &v
	}

	return &ColumnMetadata{
		PropertyName:  fieldName,
		ColumnName:    d.String("column", toSnakeCase(fieldName)),
		Type:          ct,
		Length:        length,
		Precision:     precision,
		Scale:         scale,
		Nullable:      d.has("nullable") || d.has("null"),
		Default:       def,
		Key:           d.keyKind(),
		AutoIncrement: d.has("auto_increment"),
		Unsigned:      d.has("unsigned"),
		Extra:         d.String("extra", ""),
		EnumValues:    enumValues,
	}, nil
}

func relationFromTag(className, fieldName string, d tagDirectives) (*RelationMetadata, error) {
	kind, err := d.relationKind()
	if err != nil {
		return nil, InvalidTagError{ClassName: className, Field: fieldName, Reason: err.Error()}
	}

	target, ok := d["target"]
	if !ok {
		return nil, InvalidTagError{ClassName: className, Field: fieldName, Reason: "missing target: directive"}
	}

	rel := &RelationMetadata{
		PropertyName:     fieldName,
		Kind:             kind,
		Target:           target,
		Owning:           d.has("owning") || kind == ManyToOne || kind == OneToOne,
		LocalColumn:      d.String("column", toSnakeCase(fieldName)+"_id"),
		InverseProperty:  d.String("inverse", ""),
		JoinTable:        d.String("join_table", ""),
		JoinLocalColumn:  d.String("join_local_column", toSnakeCase(className)+"_id"),
		JoinTargetColumn: d.String("join_target_column", toSnakeCase(target)+"_id"),
		OnDelete:         d.referentialRule("on_delete"),
		OnUpdate:         d.referentialRule("on_update"),
	}

	if kind == ManyToMany && rel.JoinTable == "" {
		return nil, InvalidTagError{ClassName: className, Field: fieldName, Reason: "many_to_many relations require a join_table: directive"}
	}

	return rel, nil
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func toSnakeCasePlural(s string) string {
	base := toSnakeCase(s)
	if strings.HasSuffix(base, "s") {
		return base
	}
	return base + "s"
}

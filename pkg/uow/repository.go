// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ormkit/ormkit/pkg/metadata"
)

// Criteria is a flat column-value equality filter, ANDed together, as used
// by Repository.FindBy/FindOneBy.
type Criteria map[string]any

// Repository is the default, composition-based data-access object every
// registered entity gets for free. Entities that need bespoke queries embed *Repository and add
// methods of their own rather than subclassing a generic base.
type Repository struct {
	ctx   *Context
	meta  *metadata.EntityMetadata
	newFn func() any
}

// NewRepository builds a Repository for the entity class described by
// meta. newFn must return a fresh, addressable pointer to that entity type
// (typically `func() any { return &MyEntity{} }`) so Find* can hydrate rows
// into new instances.
func NewRepository(ctx *Context, meta *metadata.EntityMetadata, newFn func() any) *Repository {
	return &Repository{ctx: ctx, meta: meta, newFn: newFn}
}

// Find returns the entity with the given primary key, or (nil, false) if no
// row matches. A second call for the same id within the same context
// returns the identity-mapped instance from the first, not a fresh one.
func (r *Repository) Find(sqlCtx context.Context, id any) (any, bool, error) {
	if existing, ok := r.ctx.Identity(r.meta.ClassName, id); ok {
		return existing, true, nil
	}

	pk := r.meta.PrimaryKeyColumn()
	if pk == nil {
		return nil, false, NoPrimaryKeyAccessorError{Class: r.meta.ClassName}
	}

	return r.FindOneBy(sqlCtx, Criteria{pk.PropertyName: id})
}

// FindAll returns every row in the entity's table, hydrated and tracked.
func (r *Repository) FindAll(sqlCtx context.Context) ([]any, error) {
	return r.FindBy(sqlCtx, nil)
}

// FindBy returns every row matching criteria, hydrated and tracked.
func (r *Repository) FindBy(sqlCtx context.Context, criteria Criteria) ([]any, error) {
	query, args, err := r.selectQuery(criteria)
	if err != nil {
		return nil, err
	}

	rows, err := r.ctx.db.QueryContext(sqlCtx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []any
	for rows.Next() {
		instance, err := r.hydrate(cols, rows)
		if err != nil {
			return nil, err
		}
		if err := r.ctx.Track(instance); err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, rows.Err()
}

// FindOneBy returns the first row matching criteria, or (nil, false, nil)
// if none matches.
func (r *Repository) FindOneBy(sqlCtx context.Context, criteria Criteria) (any, bool, error) {
	results, err := r.FindBy(sqlCtx, criteria)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	return results[0], true, nil
}

func (r *Repository) selectQuery(criteria Criteria) (string, []any, error) {
	cols := make([]string, 0, len(r.meta.Columns))
	for _, c := range r.meta.Columns {
		cols = append(cols, quoteIdent(c.ColumnName))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(r.meta.Table))

	if len(criteria) == 0 {
		return query, nil, nil
	}

	var wheres []string
	var args []any
	for propertyName, value := range criteria {
		col := r.meta.ColumnByProperty(propertyName)
		if col == nil {
			return "", nil, fmt.Errorf("uow: %s has no mapped property %q", r.meta.ClassName, propertyName)
		}
		wheres = append(wheres, fmt.Sprintf("%s = ?", quoteIdent(col.ColumnName)))
		args = append(args, value)
	}

	return query + " WHERE " + strings.Join(wheres, " AND "), args, nil
}

// hydrate scans one row into a fresh entity instance, reporting any
// hydration failure through the shared error taxonomy.
func (r *Repository) hydrate(cols []string, rows *sql.Rows) (any, error) {
	instance := r.newFn()
	acc, err := r.ctx.AccessorOf(instance, r.meta)
	if err != nil {
		return nil, err
	}

	dest := make([]any, len(cols))
	colMeta := make([]*metadata.ColumnMetadata, len(cols))
	for i, name := range cols {
		found := false
		for j := range r.meta.Columns {
			if r.meta.Columns[j].ColumnName == name {
				colMeta[i] = &r.meta.Columns[j]
				found = true
				break
			}
		}
		if !found {
			return nil, HydrationFailureError{Kind: MissingColumn, Class: r.meta.ClassName, Property: name, Reason: "column not present in entity metadata"}
		}
		var v any
		dest[i] = &v
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, HydrationFailureError{Kind: TypeMismatch, Class: r.meta.ClassName, Property: "", Reason: err.Error()}
	}

	for i, col := range colMeta {
		raw := *(dest[i].(*any))
		if raw == nil {
			if !col.Nullable {
				return nil, HydrationFailureError{Kind: NullForNonNullable, Class: r.meta.ClassName, Property: col.PropertyName, Reason: "column is NULL but not declared nullable"}
			}
			continue
		}
		if err := acc.SetProperty(col.PropertyName, normalizeScanned(raw)); err != nil {
			return nil, HydrationFailureError{Kind: TypeMismatch, Class: r.meta.ClassName, Property: col.PropertyName, Reason: err.Error()}
		}
	}

	return instance, nil
}

// normalizeScanned converts driver-returned []byte (the go-sql-driver/mysql
// representation for DECIMAL, and for VARCHAR columns on some configs) into
// a string, so accessor.SetProperty's reflect-conversion path can assign it
// to a string field.
func normalizeScanned(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

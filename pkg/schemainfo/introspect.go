// SPDX-License-Identifier: Apache-2.0

// Package schemainfo reads a live MySQL/MariaDB database's
// information_schema into a pkg/schema.Snapshot.
package schemainfo

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/schema"
)

// Reader snapshots a database's live schema.
type Reader struct {
	db db.DB
}

// New creates a Reader backed by database.
func New(database db.DB) *Reader {
	return &Reader{db: database}
}

// Snapshot reads every base table in dbName, concurrently fetching each
// table's columns, foreign keys and indexes.
func (r *Reader) Snapshot(ctx context.Context, dbName string) (*schema.Snapshot, error) {
	names, err := r.tableNames(ctx, dbName)
	if err != nil {
		return nil, fmt.Errorf("schemainfo: listing tables: %w", err)
	}

	snap := schema.New()
	tables := make([]*schema.Table, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			t, err := r.readTable(gctx, dbName, name)
			if err != nil {
				return fmt.Errorf("schemainfo: reading table %q: %w", name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range tables {
		snap.AddTable(t)
	}
	return snap, nil
}

func (r *Reader) tableNames(ctx context.Context, dbName string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT TABLE_NAME FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'`, dbName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *Reader) readTable(ctx context.Context, dbName, tableName string) (*schema.Table, error) {
	t := &schema.Table{Name: tableName, Columns: make(map[string]*schema.ColumnInfo), ForeignKeys: make(map[string]*schema.FkInfo), Indexes: make(map[string]*schema.IndexInfo)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.readColumns(gctx, dbName, t) })
	g.Go(func() error { return r.readForeignKeys(gctx, dbName, t) })
	g.Go(func() error { return r.readIndexes(gctx, dbName, t) })
	g.Go(func() error { return r.readOptions(gctx, dbName, t) })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Reader) readColumns(ctx context.Context, dbName string, t *schema.Table) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA, COLUMN_KEY
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`, dbName, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c schema.ColumnInfo
		var nullable string
		var def *string
		if err := rows.Scan(&c.Name, &c.ColumnType, &nullable, &def, &c.Extra, &c.Key); err != nil {
			return err
		}
		c.Nullable = nullable == "YES"
		c.Default = def
		if strings.HasPrefix(c.ColumnType, "enum(") || strings.HasPrefix(c.ColumnType, "set(") {
			c.EnumValues = parseEnumValues(c.ColumnType)
		}
		t.AddColumn(&c)
	}
	return rows.Err()
}

func (r *Reader) readForeignKeys(ctx context.Context, dbName string, t *schema.Table) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT kcu.CONSTRAINT_NAME, kcu.COLUMN_NAME, kcu.REFERENCED_TABLE_NAME, kcu.REFERENCED_COLUMN_NAME,
		       rc.DELETE_RULE, rc.UPDATE_RULE
		FROM information_schema.KEY_COLUMN_USAGE kcu
		JOIN information_schema.REFERENTIAL_CONSTRAINTS rc
		  ON rc.CONSTRAINT_SCHEMA = kcu.CONSTRAINT_SCHEMA AND rc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		WHERE kcu.TABLE_SCHEMA = ? AND kcu.TABLE_NAME = ? AND kcu.REFERENCED_TABLE_NAME IS NOT NULL`, dbName, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var fk schema.FkInfo
		if err := rows.Scan(&fk.Name, &fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &fk.OnDelete, &fk.OnUpdate); err != nil {
			return err
		}
		t.ForeignKeys[fk.Name] = &fk
	}
	return rows.Err()
}

func (r *Reader) readIndexes(ctx context.Context, dbName string, t *schema.Table) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT INDEX_NAME, NON_UNIQUE, COLUMN_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ? AND INDEX_NAME != 'PRIMARY'
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`, dbName, t.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, column string
		var nonUnique int
		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return err
		}
		idx, ok := t.Indexes[name]
		if !ok {
			idx = &schema.IndexInfo{Name: name, Unique: nonUnique == 0}
			t.Indexes[name] = idx
		}
		idx.Columns = append(idx.Columns, column)
	}
	return rows.Err()
}

func (r *Reader) readOptions(ctx context.Context, dbName string, t *schema.Table) error {
	row := r.db.QueryRowContext(ctx, `
		SELECT ENGINE, TABLE_COLLATION
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`, dbName, t.Name)

	var engine string
	var collation string
	if err := row.Scan(&engine, &collation); err != nil {
		return err
	}
	t.Options = schema.TableOptions{
		Engine:    engine,
		Collation: collation,
		Charset:   charsetOf(collation),
	}
	return nil
}

// parseEnumValues extracts the ordered literal list from a COLUMN_TYPE
// string like `enum('a','b','c')`.
func parseEnumValues(columnType string) []string {
	open := strings.Index(columnType, "(")
	shut := strings.LastIndex(columnType, ")")
	if open < 0 || shut < 0 || shut <= open {
		return nil
	}
	inner := columnType[open+1 : shut]
	var values []string
	for _, part := range strings.Split(inner, ",") {
		part = strings.TrimSpace(part)
		part = strings.TrimPrefix(part, "'")
		part = strings.TrimSuffix(part, "'")
		values = append(values, part)
	}
	return values
}

// charsetOf derives a MySQL charset name from its collation's prefix, e.g.
// "utf8mb4_general_ci" -> "utf8mb4".
func charsetOf(collation string) string {
	if i := strings.Index(collation, "_"); i >= 0 {
		return collation[:i]
	}
	return collation
}

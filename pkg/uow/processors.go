// SPDX-License-Identifier: Apache-2.0

package uow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ormkit/ormkit/pkg/entity"
	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/ormlog"
)

// quoteIdent backtick-quotes a MySQL identifier, doubling interior
// backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// columnValue returns the SQL value to write for one mapped column of
// instance, read straight off the accessor (nil when the property is nil or
// a nil pointer). It does not resolve relations to a target's primary key.
func columnValue(acc entity.Accessor, resolver Resolver, propertyName string) (any, error) {
	v, _ := acc.GetProperty(propertyName)
	if v == nil || isNilPointer(v) {
		return nil, nil
	}
	return v, nil
}

func relationColumnValue(resolver Resolver, acc entity.Accessor, rel *metadata.RelationMetadata) (any, error) {
	target, ok := acc.GetProperty(rel.PropertyName)
	if !ok || target == nil || isNilPointer(target) {
		return nil, nil
	}
	targetMeta, err := resolver.MetadataOf(target)
	if err != nil {
		return nil, err
	}
	targetAcc, err := resolver.AccessorOf(target, targetMeta)
	if err != nil {
		return nil, err
	}
	pk, ok := targetAcc.PrimaryKeyValue()
	if !ok {
		return nil, fmt.Errorf("uow: cannot resolve %s.%s: related %s has no primary key value yet", rel.Target, rel.PropertyName, targetMeta.ClassName)
	}
	return pk, nil
}

// InsertionProcessor executes INSERT statements for NEW entities and writes
// back any database-generated primary key.
type InsertionProcessor struct {
	resolver Resolver
}

// NewInsertionProcessor creates an InsertionProcessor.
func NewInsertionProcessor(resolver Resolver) *InsertionProcessor {
	return &InsertionProcessor{resolver: resolver}
}

// Insert runs the INSERT for instance within tx.
func (p *InsertionProcessor) Insert(ctx context.Context, tx *sql.Tx, instance any, meta *metadata.EntityMetadata, acc entity.Accessor) error {
	pk := meta.PrimaryKeyColumn()
	if pk == nil {
		return NoPrimaryKeyAccessorError{Class: meta.ClassName}
	}

	var cols []string
	var placeholders []string
	var args []any

	for _, col := range meta.Columns {
		if col.AutoIncrement {
			continue
		}
		v, err := columnValue(acc, p.resolver, col.PropertyName)
		if err != nil {
			return FlushError{Class: meta.ClassName, Operation: "insert", Err: err}
		}
		cols = append(cols, quoteIdent(col.ColumnName))
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}

	for i := range meta.Relations {
		rel := &meta.Relations[i]
		if !rel.Owning || rel.LocalColumn == "" {
			continue
		}
		v, err := relationColumnValue(p.resolver, acc, rel)
		if err != nil {
			return FlushError{Class: meta.ClassName, Operation: "insert", Err: err}
		}
		cols = append(cols, quoteIdent(rel.LocalColumn))
		placeholders = append(placeholders, "?")
		args = append(args, v)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(meta.Table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return FlushError{Class: meta.ClassName, Operation: "insert", Err: err}
	}

	if pk.AutoIncrement {
		id, err := res.LastInsertId()
		if err != nil {
			return FlushError{Class: meta.ClassName, Operation: "insert", Err: err}
		}
		if err := acc.SetPrimaryKeyValue(id); err != nil {
			return NoPrimaryKeyMutatorError{Class: meta.ClassName}
		}
	}

	return nil
}

// UpdateProcessor executes UPDATE statements for MANAGED entities with a
// non-empty change set.
type UpdateProcessor struct {
	resolver Resolver
	logger   ormlog.Logger
}

// NewUpdateProcessor creates an UpdateProcessor.
func NewUpdateProcessor(resolver Resolver) *UpdateProcessor {
	return &UpdateProcessor{resolver: resolver, logger: ormlog.NewNoopLogger()}
}

// SetLogger replaces the processor's logger. Used by Context to thread a
// configured Logger through after construction.
func (p *UpdateProcessor) SetLogger(logger ormlog.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Update runs the UPDATE for instance within tx, writing only the columns
// named in changes. Returns CannotUpdateError if instance has no primary
// key value.
func (p *UpdateProcessor) Update(ctx context.Context, tx *sql.Tx, instance any, meta *metadata.EntityMetadata, acc entity.Accessor, changes map[string]PropertyChange) error {
	pkCol := meta.PrimaryKeyColumn()
	if pkCol == nil {
		return NoPrimaryKeyAccessorError{Class: meta.ClassName}
	}
	pkValue, ok := acc.PrimaryKeyValue()
	if !ok {
		return CannotUpdateError{Class: meta.ClassName}
	}

	if len(changes) == 0 {
		return nil
	}

	var sets []string
	var args []any

	for propertyName := range changes {
		if col := meta.ColumnByProperty(propertyName); col != nil {
			v, err := columnValue(acc, p.resolver, propertyName)
			if err != nil {
				return FlushError{Class: meta.ClassName, Operation: "update", Err: err}
			}
			sets = append(sets, fmt.Sprintf("%s = ?", quoteIdent(col.ColumnName)))
			args = append(args, v)
			continue
		}
		if rel := meta.RelationByProperty(propertyName); rel != nil && rel.Owning && rel.LocalColumn != "" {
			v, err := relationColumnValue(p.resolver, acc, rel)
			if err != nil {
				return FlushError{Class: meta.ClassName, Operation: "update", Err: err}
			}
			sets = append(sets, fmt.Sprintf("%s = ?", quoteIdent(rel.LocalColumn)))
			args = append(args, v)
		}
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, pkValue)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quoteIdent(meta.Table), strings.Join(sets, ", "), quoteIdent(pkCol.ColumnName))

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return FlushError{Class: meta.ClassName, Operation: "update", Err: err}
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		p.logger.Warn("update affected zero rows", "class", meta.ClassName, "table", meta.Table, "pk", pkValue)
	}
	return nil
}

// JoinTableProcessor inserts and deletes many-to-many join rows.
type JoinTableProcessor struct {
	resolver Resolver
}

// NewJoinTableProcessor creates a JoinTableProcessor.
func NewJoinTableProcessor(resolver Resolver) *JoinTableProcessor {
	return &JoinTableProcessor{resolver: resolver}
}

// Add inserts the join row linking owner (via ownerAcc) to target.
func (p *JoinTableProcessor) Add(ctx context.Context, tx *sql.Tx, rel *metadata.RelationMetadata, ownerAcc entity.Accessor, target any) error {
	localPK, targetPK, err := p.joinKeys(rel, ownerAcc, target)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		quoteIdent(rel.JoinTable), quoteIdent(rel.JoinLocalColumn), quoteIdent(rel.JoinTargetColumn))
	if _, err := tx.ExecContext(ctx, query, localPK, targetPK); err != nil {
		return FlushError{Class: rel.Target, Operation: "join-insert", Err: err}
	}
	return nil
}

// Remove deletes the join row linking owner (via ownerAcc) to target.
func (p *JoinTableProcessor) Remove(ctx context.Context, tx *sql.Tx, rel *metadata.RelationMetadata, ownerAcc entity.Accessor, target any) error {
	localPK, targetPK, err := p.joinKeys(rel, ownerAcc, target)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?",
		quoteIdent(rel.JoinTable), quoteIdent(rel.JoinLocalColumn), quoteIdent(rel.JoinTargetColumn))
	if _, err := tx.ExecContext(ctx, query, localPK, targetPK); err != nil {
		return FlushError{Class: rel.Target, Operation: "join-delete", Err: err}
	}
	return nil
}

func (p *JoinTableProcessor) joinKeys(rel *metadata.RelationMetadata, ownerAcc entity.Accessor, target any) (any, any, error) {
	localPK, ok := ownerAcc.PrimaryKeyValue()
	if !ok {
		return nil, nil, CannotUpdateError{Class: rel.Target}
	}

	targetMeta, err := p.resolver.MetadataOf(target)
	if err != nil {
		return nil, nil, err
	}
	targetAcc, err := p.resolver.AccessorOf(target, targetMeta)
	if err != nil {
		return nil, nil, err
	}
	targetPK, ok := targetAcc.PrimaryKeyValue()
	if !ok {
		return nil, nil, fmt.Errorf("uow: cannot resolve join row on %s: related %s has no primary key value yet", rel.JoinTable, targetMeta.ClassName)
	}
	return localPK, targetPK, nil
}

// DeletionProcessor executes DELETE statements for REMOVED entities.
type DeletionProcessor struct{}

// NewDeletionProcessor creates a DeletionProcessor.
func NewDeletionProcessor() *DeletionProcessor {
	return &DeletionProcessor{}
}

// Delete runs the DELETE for instance within tx. Returns CannotDeleteError
// if instance has no primary key value.
func (p *DeletionProcessor) Delete(ctx context.Context, tx *sql.Tx, instance any, meta *metadata.EntityMetadata, acc entity.Accessor) error {
	pkCol := meta.PrimaryKeyColumn()
	if pkCol == nil {
		return NoPrimaryKeyAccessorError{Class: meta.ClassName}
	}
	pkValue, ok := acc.PrimaryKeyValue()
	if !ok {
		return CannotDeleteError{Class: meta.ClassName}
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quoteIdent(meta.Table), quoteIdent(pkCol.ColumnName))
	if _, err := tx.ExecContext(ctx, query, pkValue); err != nil {
		return FlushError{Class: meta.ClassName, Operation: "delete", Err: err}
	}
	return nil
}

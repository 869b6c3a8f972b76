// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/go-sql-driver/mysql"
)

const (
	// ER_LOCK_WAIT_TIMEOUT and ER_LOCK_DEADLOCK: transient lock errors that are
	// safe to retry with backoff rather than surface to the caller.
	errLockWaitTimeout uint16 = 1205
	errLockDeadlock    uint16 = 1213

	maxBackoffDuration = 1 * time.Minute
	backoffInterval    = 1 * time.Second
)

// DB is the collaborator interface the persistence processors, schema
// information reader, and migration manager depend on. It is the narrow
// database-manager surface the rest of the module treats as an external
// collaborator.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error
	Close() error
}

// MDB wraps a *sql.DB and retries queries using an exponential backoff (with
// jitter) on transient lock errors.
type MDB struct {
	DB *sql.DB
}

// ExecContext wraps sql.DB.ExecContext, retrying on transient lock errors.
func (db *MDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		res, err := db.DB.ExecContext(ctx, query, args...)
		if err == nil {
			return res, nil
		}

		if isRetryableLockError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

// QueryContext wraps sql.DB.QueryContext, retrying on transient lock errors.
func (db *MDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		rows, err := db.DB.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}

		if isRetryableLockError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return nil, err
			}
			continue
		}

		return nil, err
	}
}

// QueryRowContext wraps sql.DB.QueryRowContext. Lock-wait errors surface only
// on Scan, so no retry loop is attempted here; callers that need retry
// semantics on a single-row read should go through QueryContext instead.
func (db *MDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.DB.QueryRowContext(ctx, query, args...)
}

// WithRetryableTransaction runs `f` in a transaction, retrying on transient
// lock errors.
func (db *MDB) WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	b := backoff.New(maxBackoffDuration, backoffInterval)

	for {
		tx, err := db.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		err = f(ctx, tx)
		if err == nil {
			return tx.Commit()
		}

		if errRollback := tx.Rollback(); errRollback != nil {
			return errRollback
		}

		if isRetryableLockError(err) {
			if err := sleepCtx(ctx, b.Duration()); err != nil {
				return err
			}
			continue
		}

		return err
	}
}

func (db *MDB) Close() error {
	return db.DB.Close()
}

func isRetryableLockError(err error) bool {
	myErr := &mysql.MySQLError{}
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == errLockWaitTimeout || myErr.Number == errLockDeadlock
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// ScanFirstValue is a helper to scan the first value, assuming Rows contains
// a single row with a single value.
func ScanFirstValue[T any](rows *sql.Rows, dest *T) error {
	if rows.Next() {
		if err := rows.Scan(dest); err != nil {
			return err
		}
	}
	return rows.Err()
}

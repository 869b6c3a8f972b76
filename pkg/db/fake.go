// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"database/sql"
)

// FakeDB satisfies DB for tests that only need a constructor-time
// collaborator and never drive an actual query or transaction (e.g.
// asserting a constructor's own argument validation). All methods are
// no-ops; WithRetryableTransaction does not invoke f, so this is not a
// substitute for testutils.WithConnectionToContainer in any test that
// exercises a read, write or flush.
type FakeDB struct{}

func (db *FakeDB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (db *FakeDB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (db *FakeDB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (db *FakeDB) WithRetryableTransaction(ctx context.Context, f func(context.Context, *sql.Tx) error) error {
	return nil
}

func (db *FakeDB) Close() error {
	return nil
}

// SPDX-License-Identifier: Apache-2.0

package migration_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ormdb "github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/migration"
	"github.com/ormkit/ormkit/pkg/testutils"
)

type ledgerItem struct {
	ID     int    `orm:"type:int;pk;auto_increment"`
	Amount string `orm:"type:decimal(10,2)"`
}

func TestGeneratorWritesMigrationFileWhenSchemaDiffers(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		reg := metadata.New()
		_, err := reg.Register(ledgerItem{})
		require.NoError(t, err)

		dir := t.TempDir()
		gen, err := migration.NewGenerator(database, reg, dbName, dir, "migrations")
		require.NoError(t, err)

		path, ok, err := gen.Generate(context.Background(), "202601010000")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, filepath.Join(dir, "Migration202601010000.go"), path)

		contents, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(contents), "package migrations")
		assert.Contains(t, string(contents), "ledger_items")
	})
}

func TestGeneratorReturnsFalseWhenSchemaMatches(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()
		_, err := database.ExecContext(ctx, `CREATE TABLE ledger_items (
			id INT NOT NULL AUTO_INCREMENT,
			amount DECIMAL(10,2) NOT NULL,
			PRIMARY KEY (id)
		)`)
		require.NoError(t, err)

		reg := metadata.New()
		_, err = reg.Register(ledgerItem{})
		require.NoError(t, err)

		dir := t.TempDir()
		gen, err := migration.NewGenerator(database, reg, dbName, dir, "migrations")
		require.NoError(t, err)

		_, ok, err := gen.Generate(ctx, "202601010000")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestGeneratorRejectsMalformedDatetime(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		reg := metadata.New()
		_, err := reg.Register(ledgerItem{})
		require.NoError(t, err)

		dir := t.TempDir()
		gen, err := migration.NewGenerator(database, reg, dbName, dir, "migrations")
		require.NoError(t, err)

		_, _, err = gen.Generate(context.Background(), "not-a-datetime")
		assert.Error(t, err)
		assert.ErrorAs(t, err, &migration.InvalidDatetimeError{})
	})
}

func TestNewGeneratorFailsWhenDirMissing(t *testing.T) {
	reg := metadata.New()
	_, err := migration.NewGenerator(&ormdb.FakeDB{}, reg, "db", "/no/such/dir", "migrations")
	assert.Error(t, err)
	assert.ErrorAs(t, err, &migration.DirectoryMissingError{})
}

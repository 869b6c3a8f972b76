// SPDX-License-Identifier: Apache-2.0

package migration_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/pkg/builder"
	ormdb "github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/migration"
	"github.com/ormkit/ormkit/pkg/testutils"
)

func TestMain(m *testing.M) {
	testutils.SharedTestMain(m)
}

type createWidgets struct{}

func (createWidgets) Version() string { return "202601010000" }
func (createWidgets) Up(b *builder.Builder) []string {
	t := b.CreateTable("widgets")
	t.Column("id").Integer().Unsigned().NotNull().AutoIncrement()
	t.Column("name").String(100).NotNull()
	t.PrimaryKey("id")
	return []string{t.ToSQL()}
}
func (createWidgets) Down(b *builder.Builder) []string {
	return []string{b.DropTable("widgets")}
}

func TestManagerMigratesAndTracksHistory(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()

		mgr, err := migration.NewManager(ctx, database, builder.MySQLDialect{})
		require.NoError(t, err)

		require.NoError(t, mgr.Register(createWidgets{}))

		pending, err := mgr.Pending(ctx)
		require.NoError(t, err)
		assert.Len(t, pending, 1)

		n, err := mgr.Migrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		pending, err = mgr.Pending(ctx)
		require.NoError(t, err)
		assert.Empty(t, pending)

		version, found, err := mgr.LastExecuted(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "202601010000", version)

		var tableExists int
		row := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = 'widgets'", dbName)
		require.NoError(t, row.Scan(&tableExists))
		assert.Equal(t, 1, tableExists)
	})
}

func TestManagerExecuteTwiceFailsWithAlreadyExecuted(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()

		mgr, err := migration.NewManager(ctx, database, builder.MySQLDialect{})
		require.NoError(t, err)
		require.NoError(t, mgr.Register(createWidgets{}))

		require.NoError(t, mgr.Execute(ctx, createWidgets{}))

		err = mgr.Execute(ctx, createWidgets{})
		require.Error(t, err)
		var already migration.AlreadyExecutedError
		assert.ErrorAs(t, err, &already)
	})
}

func TestManagerRollbackRunsDownAndDeletesHistory(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()

		mgr, err := migration.NewManager(ctx, database, builder.MySQLDialect{})
		require.NoError(t, err)
		require.NoError(t, mgr.Register(createWidgets{}))
		require.NoError(t, mgr.Execute(ctx, createWidgets{}))

		ok, err := mgr.Rollback(ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		_, found, err := mgr.LastExecuted(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		var tableExists int
		row := database.QueryRowContext(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = 'widgets'", dbName)
		require.NoError(t, row.Scan(&tableExists))
		assert.Equal(t, 0, tableExists)
	})
}

func TestManagerRollbackWithNothingExecutedIsNoOp(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()

		mgr, err := migration.NewManager(ctx, database, builder.MySQLDialect{})
		require.NoError(t, err)

		ok, err := mgr.Rollback(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRegisterDuplicateVersionFails(t *testing.T) {
	t.Parallel()

	testutils.WithConnectionToContainer(t, func(database ormdb.DB, dbName string) {
		ctx := context.Background()

		mgr, err := migration.NewManager(ctx, database, builder.MySQLDialect{})
		require.NoError(t, err)

		require.NoError(t, mgr.Register(createWidgets{}))
		err = mgr.Register(createWidgets{})

		require.Error(t, err)
		var dup migration.DuplicateVersionError
		assert.ErrorAs(t, err, &dup)
	})
}

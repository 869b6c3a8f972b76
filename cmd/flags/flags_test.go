// SPDX-License-Identifier: Apache-2.0

package flags_test

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormkit/ormkit/cmd/flags"
)

func TestDBFlagsRegistersDefaultsAndBindsViper(t *testing.T) {
	viper.Reset()
	cmd := &cobra.Command{Use: "test"}
	flags.DBFlags(cmd)

	assert.Equal(t, "root:root@tcp(127.0.0.1:3306)/ormkit?parseTime=true", flags.DSN())
	assert.Equal(t, "ormkit", flags.Database())
	assert.Equal(t, "./migrations", flags.MigrationsDir())
	assert.Equal(t, "migrations", flags.MigrationsPackage())
	assert.Equal(t, "./entities", flags.EntityDir())

	require.NoError(t, cmd.PersistentFlags().Set("dsn", "root:x@tcp(db:3306)/app"))
	assert.Equal(t, "root:x@tcp(db:3306)/app", flags.DSN())
}

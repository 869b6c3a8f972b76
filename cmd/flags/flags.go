// SPDX-License-Identifier: Apache-2.0

package flags

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DSN returns the MySQL data source name ormkit connects with.
func DSN() string {
	return viper.GetString("DSN")
}

// Database returns the database name schema introspection targets.
func Database() string {
	return viper.GetString("DATABASE")
}

// MigrationsDir returns the directory generated migration files are written
// to and loaded from.
func MigrationsDir() string {
	return viper.GetString("MIGRATIONS_DIR")
}

// MigrationsPackage returns the package name stamped into generated
// migration files.
func MigrationsPackage() string {
	return viper.GetString("MIGRATIONS_PACKAGE")
}

// EntityDir returns the directory LoadFromPath scans for orm-tagged
// entity structs.
func EntityDir() string {
	return viper.GetString("ENTITY_DIR")
}

// DBFlags registers the persistent connection flags every subcommand needs
// and binds them into viper under the ORMKIT_ environment prefix.
func DBFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("dsn", "root:root@tcp(127.0.0.1:3306)/ormkit?parseTime=true", "MySQL data source name")
	cmd.PersistentFlags().String("database", "ormkit", "Database name to introspect and migrate")
	cmd.PersistentFlags().String("migrations-dir", "./migrations", "Directory holding generated migration files")
	cmd.PersistentFlags().String("migrations-package", "migrations", "Go package name stamped into generated migration files")
	cmd.PersistentFlags().String("entity-dir", "./entities", "Directory scanned for orm-tagged entity structs")

	viper.BindPFlag("DSN", cmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("DATABASE", cmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("MIGRATIONS_DIR", cmd.PersistentFlags().Lookup("migrations-dir"))
	viper.BindPFlag("MIGRATIONS_PACKAGE", cmd.PersistentFlags().Lookup("migrations-package"))
	viper.BindPFlag("ENTITY_DIR", cmd.PersistentFlags().Lookup("entity-dir"))
}

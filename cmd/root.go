// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ormkit/ormkit/cmd/flags"
	"github.com/ormkit/ormkit/pkg/builder"
	ormdb "github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/metadata"
)

// Version is the ormkit version.
var Version = "development"

func init() {
	viper.SetEnvPrefix("ORMKIT")
	viper.AutomaticEnv()

	flags.DBFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:          "ormkit",
	SilenceUsage: true,
	Version:      Version,
}

// Execute executes the root command.
func Execute() error {
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(rollbackCmd())
	rootCmd.AddCommand(statusCmd())

	return rootCmd.Execute()
}

// Run executes the root command and translates the resulting error into the
// process exit code used by the operating system.
func Run() int {
	return exitCode(Execute())
}

// openDB opens the MySQL connection named by the --dsn flag, wrapped in the
// retrying db.DB collaborator every package in the module depends on.
func openDB() (ormdb.DB, error) {
	sqlDB, err := sql.Open("mysql", flags.DSN())
	if err != nil {
		return nil, err
	}
	return &ormdb.MDB{DB: sqlDB}, nil
}

// loadRegistry scans entityDir for `orm`-tagged structs and builds the
// metadata registry the generator and manager diff against.
func loadRegistry(entityDir string) (*metadata.Registry, error) {
	reg := metadata.New()
	if err := reg.LoadFromPath(os.DirFS(entityDir)); err != nil {
		return nil, err
	}
	return reg, nil
}

func dialect() builder.Dialect {
	return builder.MySQLDialect{}
}

// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ormkit/ormkit/pkg/migration"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migration:run",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			mgr, err := migration.NewManager(ctx, database, dialect())
			if err != nil {
				return err
			}
			if err := mgr.RegisterGenerated(); err != nil {
				return err
			}

			sp, _ := pterm.DefaultSpinner.WithText("Applying pending migrations...").Start()
			n, err := mgr.Migrate(ctx)
			if err != nil {
				sp.Fail(fmt.Sprintf("Migration failed: %s", err))
				return err
			}
			if n == 0 {
				sp.Success("Database is up to date; no migrations to apply")
				return nil
			}

			sp.Success(fmt.Sprintf("Applied %d migration(s)", n))
			return nil
		},
	}
}

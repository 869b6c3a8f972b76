// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ormkit/ormkit/cmd/flags"
	"github.com/ormkit/ormkit/pkg/migration"
)

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "migration:generate [datetime]",
		Short:   "Diff the live schema against the entity registry and write a migration file",
		Args:    cobra.MaximumNArgs(1),
		Example: "migration:generate 202601151230",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			datetime := time.Now().UTC().Format("200601021504")
			if len(args) == 1 {
				datetime = args[0]
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer database.Close()

			reg, err := loadRegistry(flags.EntityDir())
			if err != nil {
				return err
			}

			gen, err := migration.NewGenerator(database, reg, flags.Database(), flags.MigrationsDir(), flags.MigrationsPackage())
			if err != nil {
				return err
			}

			sp, _ := pterm.DefaultSpinner.WithText("Diffing schema...").Start()
			path, ok, err := gen.Generate(ctx, datetime)
			if err != nil {
				sp.Fail(fmt.Sprintf("Failed to generate migration: %s", err))
				return err
			}
			if !ok {
				sp.Success("No schema differences detected; nothing to generate")
				return nil
			}

			sp.Success(fmt.Sprintf("Wrote migration %s", path))
			return nil
		},
	}
}

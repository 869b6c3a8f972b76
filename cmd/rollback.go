// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ormkit/ormkit/pkg/migration"
)

var errNothingToRollback = errors.New("no migration has been executed; nothing to roll back")

func rollbackCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migration:rollback",
		Short: "Roll back the most recently executed migration",
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

			if dryRun {
				version, found, err := mgr.LastExecuted(ctx)
				if err != nil {
					return err
				}
				if !found {
					fmt.Println(errNothingToRollback.Error())
					return nil
				}
				fmt.Printf("Would roll back migration %s\n", version)
				return nil
			}

			sp, _ := pterm.DefaultSpinner.WithText("Rolling back last migration...").Start()
			ok, err := mgr.Rollback(ctx)
			if err != nil {
				sp.Fail(fmt.Sprintf("Rollback failed: %s", err))
				return err
			}
			if !ok {
				sp.Success(errNothingToRollback.Error())
				return nil
			}

			sp.Success("Migration rolled back")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report which migration would be rolled back without running it")
	return cmd
}

// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormkit/ormkit/pkg/migration"
)

type migrationStatus struct {
	LastExecutedVersion string `json:"lastExecutedVersion,omitempty"`
	AppliedCount        int    `json:"appliedCount"`
	PendingCount        int    `json:"pendingCount"`
	PendingVersions     []string `json:"pendingVersions,omitempty"`
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migration:status",
		Short: "Show applied and pending migration counts",
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

			pending, err := mgr.Pending(ctx)
			if err != nil {
				return err
			}

			lastVersion, found, err := mgr.LastExecuted(ctx)
			if err != nil {
				return err
			}

			status := migrationStatus{
				PendingCount: len(pending),
				AppliedCount: mgr.RegisteredCount() - len(pending),
			}
			if found {
				status.LastExecutedVersion = lastVersion
			}
			for _, mig := range pending {
				status.PendingVersions = append(status.PendingVersions, mig.Version())
			}

			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
